// Package resolve implements a keyword-scoring disambiguator over a scene
// definition: it maps a participant's mention to the character the agent
// has at some position in the current round.
package resolve

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/nathoo/spotcore/engine/parser"
	"github.com/nathoo/spotcore/engine/save"
	"github.com/nathoo/spotcore/types"
)

// Options tune the scoring.
type Options struct {
	High float64 // confidence at or above which a match needs no confirmation
	Low  float64 // confidence below which a match counts as no match

	Negatives   []string // words meaning "nobody"
	Connectives []string // a mention ending in one of these is unfinished
	Stopwords   []string // words ignored when scoring
	Or          string   // joins candidate descriptions in a follow-up question
}

// DefaultOptions returns Dutch defaults.
func DefaultOptions() Options {
	return Options{
		High:        0.7,
		Low:         0.3,
		Negatives:   []string{"niemand", "geen", "niks", "niets", "nobody", "none"},
		Connectives: []string{"en", "met", "die", "and", "with"},
		Stopwords:   []string{"de", "het", "een", "en", "met", "die", "dat", "is", "op", "the", "a", "and", "with", "on"},
		Or:          "of",
	}
}

// Scene is a Disambiguator over one scene definition. It is not safe for
// concurrent use.
type Scene struct {
	def  types.SceneDef
	opts Options
	log  *zap.Logger

	negatives   map[string]bool
	connectives map[string]bool
	stopwords   map[string]bool

	status      types.Status
	round       int // 1-based, 0 before the first round
	position    int // 1-based
	current     *save.Entry
	provisional bool

	history []save.Entry
	learned map[string]map[string]bool // character ID -> words from earlier sessions
}

// New creates a disambiguator for def.
func New(def types.SceneDef, opts Options, log *zap.Logger) *Scene {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scene{
		def:         def,
		opts:        opts,
		log:         log.With(zap.String("component", "scene")),
		negatives:   wordSet(opts.Negatives),
		connectives: wordSet(opts.Connectives),
		stopwords:   wordSet(opts.Stopwords),
		status:      types.StatusAwaitNext,
		learned:     map[string]map[string]bool{},
	}
}

func wordSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		for _, tok := range parser.Tokens(w) {
			set[tok] = true
		}
	}
	return set
}

// Status returns the classification of the last Disambiguate call, or
// AWAIT_NEXT after an advance.
func (s *Scene) Status() types.Status { return s.status }

// Round returns the current round, starting at 1.
func (s *Scene) Round() int { return s.round }

// Position returns the current position, starting at 1.
func (s *Scene) Position() int { return s.position }

// History returns the positions agreed so far.
func (s *Scene) History() []save.Entry {
	return append([]save.Entry(nil), s.history...)
}

// Disambiguate scores mention against every character and classifies the
// outcome.
func (s *Scene) Disambiguate(mention string) types.Disambiguation {
	words := parser.Tokens(mention)
	s.current = nil
	s.provisional = false

	res, status := s.classify(words)
	if n := len(words); n > 0 && s.connectives[words[n-1]] {
		res.Continuation = true
		s.provisional = true
	}
	s.status = status

	if status == types.StatusSuccessHigh || status == types.StatusSuccessLow {
		s.current = &save.Entry{
			Round:     s.round,
			Position:  s.position,
			Character: res.Selected,
			Mention:   strings.Join(words, " "),
		}
	}

	s.log.Debug("disambiguate",
		zap.String("mention", mention),
		zap.String("status", string(status)),
		zap.String("selected", res.Selected),
		zap.Float64("confidence", res.Confidence))
	return res
}

func (s *Scene) classify(words []string) (types.Disambiguation, types.Status) {
	for _, w := range words {
		if s.negatives[w] {
			return types.Disambiguation{}, types.StatusNegResponse
		}
	}

	var content []string
	for _, w := range words {
		if !s.stopwords[w] {
			content = append(content, w)
		}
	}
	if len(content) == 0 {
		return types.Disambiguation{}, types.StatusNoMatch
	}

	best, score := s.score(content)
	if len(best) == 0 {
		return types.Disambiguation{}, types.StatusNoMatch
	}

	if len(best) > 1 {
		descriptions := make([]string, len(best))
		for i, id := range best {
			descriptions[i] = s.def.Characters[id].Description
		}
		return types.Disambiguation{
			Confidence: score,
			Detail:     strings.Join(descriptions, " "+s.opts.Or+" "),
		}, types.StatusMatchMultiple
	}

	id := best[0]
	res := types.Disambiguation{
		Selected:    id,
		Confidence:  score,
		Position:    s.positionOf(id),
		Description: s.def.Characters[id].Description,
	}

	for _, e := range s.history {
		if e.Round == s.round && e.Character == id && e.Position != s.position {
			return res, types.StatusMatchPrevious
		}
	}

	switch {
	case score >= s.opts.High:
		return res, types.StatusSuccessHigh
	case score >= s.opts.Low:
		return res, types.StatusSuccessLow
	default:
		return res, types.StatusNoMatch
	}
}

// score returns the characters with the highest share of content words
// they know, in ID order.
func (s *Scene) score(content []string) ([]string, float64) {
	ids := make([]string, 0, len(s.def.Characters))
	for id := range s.def.Characters {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var best []string
	bestScore := 0.0
	for _, id := range ids {
		vocab := s.vocabulary(id)
		hits := 0
		for _, w := range content {
			if vocab[w] {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		sc := float64(hits) / float64(len(content))
		switch {
		case sc > bestScore:
			best, bestScore = []string{id}, sc
		case sc == bestScore:
			best = append(best, id)
		}
	}
	return best, bestScore
}

func (s *Scene) vocabulary(id string) map[string]bool {
	c := s.def.Characters[id]
	vocab := map[string]bool{}
	for _, tok := range parser.Tokens(c.Name) {
		vocab[tok] = true
	}
	for _, kw := range c.Keywords {
		for _, tok := range parser.Tokens(kw) {
			vocab[tok] = true
		}
	}
	for w := range s.learned[id] {
		vocab[w] = true
	}
	for w := range s.stopwords {
		delete(vocab, w)
	}
	return vocab
}

// positionOf returns where the agent has id in the current round, or 0.
func (s *Scene) positionOf(id string) int {
	if s.round < 1 || s.round > len(s.def.Rounds) {
		return 0
	}
	for i, c := range s.def.Rounds[s.round-1].Positions {
		if c == id {
			return i + 1
		}
	}
	return 0
}

// AdvanceRound moves to the next round. first starts a new game.
func (s *Scene) AdvanceRound(first bool) {
	s.flush()
	if first {
		s.round = 0
		s.history = nil
	}
	s.round++
	s.position = 1
	s.status = types.StatusAwaitNext
}

// AdvancePosition moves to the next position. Unless skip is set, the
// last successful match is kept as agreed.
func (s *Scene) AdvancePosition(skip bool) {
	if skip {
		s.current = nil
	}
	s.flush()
	s.position++
	s.status = types.StatusAwaitNext
}

// Provisional reports whether the last match may still be extended.
func (s *Scene) Provisional() bool { return s.provisional }

// CommitStatus makes a provisional match final.
func (s *Scene) CommitStatus() {
	s.provisional = false
}

func (s *Scene) flush() {
	if s.current != nil {
		s.history = append(s.history, *s.current)
		s.current = nil
	}
}

// SaveInteraction writes the agreed positions of this game.
func (s *Scene) SaveInteraction(path, participant, session string) error {
	s.flush()
	rec := &save.Interaction{
		Participant: participant,
		Session:     session,
		Entries:     s.History(),
	}
	if err := save.WriteInteraction(path, rec); err != nil {
		return fmt.Errorf("saving interaction: %w", err)
	}
	s.log.Info("interaction saved",
		zap.String("participant", participant),
		zap.String("session", session),
		zap.Int("entries", len(rec.Entries)))
	return nil
}

// LoadInteraction teaches the disambiguator the words the participant used
// for each character in priorSession.
func (s *Scene) LoadInteraction(path, participant, priorSession string) error {
	rec, err := save.ReadInteraction(path, participant, priorSession)
	if err != nil {
		return fmt.Errorf("loading interaction: %w", err)
	}
	for _, e := range rec.Entries {
		if _, ok := s.def.Characters[e.Character]; !ok {
			continue
		}
		if s.learned[e.Character] == nil {
			s.learned[e.Character] = map[string]bool{}
		}
		for _, w := range parser.Tokens(e.Mention) {
			if !s.stopwords[w] && !s.negatives[w] {
				s.learned[e.Character][w] = true
			}
		}
	}
	s.log.Info("interaction loaded",
		zap.String("participant", participant),
		zap.String("session", priorSession),
		zap.Int("entries", len(rec.Entries)))
	return nil
}
