// Package parser turns raw participant text into the few things the
// engine needs from it: a mention, a yes/no answer, or a keyword hit.
// Intentionally dumb: no NLP, just word matching.
package parser

import (
	"sort"
	"strings"
	"unicode"
)

// Answer is the classification of a reply to a yes/no question.
type Answer int

const (
	AnswerUnknown Answer = iota
	AnswerYes
	AnswerNo
)

func (a Answer) String() string {
	switch a {
	case AnswerYes:
		return "yes"
	case AnswerNo:
		return "no"
	default:
		return "unknown"
	}
}

// articles are dropped from mentions; they never identify a character.
var articles = map[string]bool{
	"de": true, "het": true, "een": true, "'t": true,
	"the": true, "a": true, "an": true,
}

// Tokens lowercases text and splits it into words. Everything that is
// not a letter, digit or apostrophe separates words.
func Tokens(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

// Normalize returns the tokens of text joined by single spaces.
func Normalize(text string) string {
	return strings.Join(Tokens(text), " ")
}

// ExtractMention strips filler phrases and articles from an utterance and
// returns what remains. ok is false when nothing is left.
// Fillers are matched on whole words, longest first.
func ExtractMention(utterance string, fillers []string) (mention string, ok bool) {
	words := Tokens(utterance)

	sorted := make([][]string, 0, len(fillers))
	for _, f := range fillers {
		if ft := Tokens(f); len(ft) > 0 {
			sorted = append(sorted, ft)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })

	for _, filler := range sorted {
		words = removeSeq(words, filler)
	}

	result := make([]string, 0, len(words))
	for _, w := range words {
		if !articles[w] {
			result = append(result, w)
		}
	}
	if len(result) == 0 {
		return "", false
	}
	return strings.Join(result, " "), true
}

// Classify matches text against the localized yes and no words.
// Yes wins when both appear.
func Classify(text string, yes, no []string) Answer {
	words := Tokens(text)
	for _, y := range yes {
		if containsSeq(words, Tokens(y)) {
			return AnswerYes
		}
	}
	for _, n := range no {
		if containsSeq(words, Tokens(n)) {
			return AnswerNo
		}
	}
	return AnswerUnknown
}

// ContainsWord reports whether phrase occurs in text on word boundaries.
func ContainsWord(text, phrase string) bool {
	return containsSeq(Tokens(text), Tokens(phrase))
}

// MatchKeyword returns the first vocabulary entry (in name order) with a
// keyword occurring in text, or "" if none does.
func MatchKeyword(text string, vocabulary map[string][]string) string {
	names := make([]string, 0, len(vocabulary))
	for name := range vocabulary {
		names = append(names, name)
	}
	sort.Strings(names)

	words := Tokens(text)
	for _, name := range names {
		for _, kw := range vocabulary[name] {
			if containsSeq(words, Tokens(kw)) {
				return name
			}
		}
	}
	return ""
}

// containsSeq reports whether seq occurs contiguously in words.
func containsSeq(words, seq []string) bool {
	return indexSeq(words, seq) >= 0
}

func indexSeq(words, seq []string) int {
	if len(seq) == 0 || len(seq) > len(words) {
		return -1
	}
outer:
	for i := 0; i+len(seq) <= len(words); i++ {
		for j, s := range seq {
			if words[i+j] != s {
				continue outer
			}
		}
		return i
	}
	return -1
}

// removeSeq removes every occurrence of seq from words.
func removeSeq(words, seq []string) []string {
	for {
		i := indexSeq(words, seq)
		if i < 0 {
			return words
		}
		out := make([]string, 0, len(words)-len(seq))
		out = append(out, words[:i]...)
		words = append(out, words[i+len(seq):]...)
	}
}
