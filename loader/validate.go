package loader

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nathoo/spotcore/engine"
	"github.com/nathoo/spotcore/engine/phrase"
	"github.com/nathoo/spotcore/types"
)

// ValidationError collects all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

func (e *ValidationError) errorf(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

func (e *ValidationError) warnf(format string, args ...any) {
	e.Warnings = append(e.Warnings, fmt.Sprintf(format, args...))
}

var (
	knownPhrases = keySet(engine.RequiredPhrases, engine.OptionalPhrases)
	knownBlocks  = keySet(engine.Blocks)
	knownSlots   = keySet(engine.Slots)
)

func keySet(lists ...[]string) map[string]bool {
	set := map[string]bool{}
	for _, l := range lists {
		for _, k := range l {
			set[k] = true
		}
	}
	return set
}

// validate checks compiled content. It returns nil when there is nothing
// to report.
func validate(c *types.Content) *ValidationError {
	ve := &ValidationError{}

	if c.Title == "" {
		ve.errorf("Game.title is required")
	}

	for _, key := range engine.RequiredPhrases {
		if _, ok := c.Phrases.Default.Phrases[key]; !ok {
			ve.errorf("required phrase %q is not defined", key)
		}
	}
	validateTable("", c.Phrases.Default, ve)

	ids := make([]string, 0, len(c.Phrases.Sessions))
	for id := range c.Phrases.Sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		validateTable(id, c.Phrases.Sessions[id], ve)
	}

	validateScene(c.Scene, ve)

	if len(ve.Errors) == 0 && len(ve.Warnings) == 0 {
		return nil
	}
	return ve
}

func validateTable(session string, t types.PhraseTable, ve *ValidationError) {
	where := "default"
	if session != "" {
		where = "session " + session
	}

	for _, key := range sortedKeys(t.Phrases) {
		variants := t.Phrases[key]
		if !knownPhrases[key] {
			ve.warnf("%s: phrase %q is never used", where, key)
		}
		if len(variants) == 0 {
			ve.errorf("%s: phrase %q has no variants", where, key)
		}
		for _, v := range variants {
			validateSlots(where, "phrase", key, v, ve)
		}
	}

	for _, name := range sortedKeys(t.Blocks) {
		lines := t.Blocks[name]
		if !knownBlocks[name] {
			ve.warnf("%s: block %q is never played", where, name)
		}
		if len(lines) == 0 {
			ve.errorf("%s: block %q is empty", where, name)
		}
		for i, l := range lines {
			if strings.TrimSpace(l.Text) == "" {
				ve.errorf("%s: block %q line %d has no text", where, name, i+1)
			}
			validateSlots(where, "block", name, l.Text, ve)
			if l.StoreInput && name != engine.BlockOutro {
				ve.warnf("%s: block %q line %d stores input outside the outro", where, name, i+1)
			}
		}
	}
}

func validateSlots(where, kind, key, text string, ve *ValidationError) {
	for _, slot := range phrase.SlotNames(text) {
		if !knownSlots[slot] {
			ve.errorf("%s: %s %q uses unknown slot {%s}", where, kind, key, slot)
		}
	}
}

func validateScene(scene types.SceneDef, ve *ValidationError) {
	if len(scene.Characters) == 0 {
		ve.errorf("no characters defined")
	}
	if len(scene.Rounds) == 0 {
		ve.errorf("no rounds defined")
	}

	for _, id := range sortedKeys(scene.Characters) {
		ch := scene.Characters[id]
		if ch.Description == "" {
			ve.errorf("character %q has no description", id)
		}
		if ch.Name == "" && len(ch.Keywords) == 0 {
			ve.errorf("character %q has neither name nor keywords", id)
		}
	}

	used := map[string]bool{}
	for i, r := range scene.Rounds {
		if len(r.Positions) == 0 {
			ve.errorf("round %d has no positions", i+1)
		}
		seen := map[string]bool{}
		for j, id := range r.Positions {
			if _, ok := scene.Characters[id]; !ok {
				ve.errorf("round %d position %d references undefined character %q", i+1, j+1, id)
			}
			if seen[id] {
				ve.errorf("round %d places %q twice", i+1, id)
			}
			seen[id] = true
			used[id] = true
		}
	}

	for _, id := range sortedKeys(scene.Characters) {
		if !used[id] {
			ve.warnf("character %q does not appear in any round", id)
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
