// Package phrase resolves logical phrase keys to concrete text, with
// per-session overrides, random variant selection and named slots.
package phrase

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nathoo/spotcore/types"
)

// Chooser picks an index in [0, n).
type Chooser interface {
	Intn(n int) int
}

// Slots holds named placeholder values, e.g. {"position": 3}.
type Slots map[string]any

// MissingError reports a key that neither the session table nor the
// default table defines.
type MissingError struct {
	Key       string
	SessionID string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("phrase %q not configured (session %q, no default)", e.Key, e.SessionID)
}

// SlotError reports a placeholder without a value.
type SlotError struct {
	Key  string
	Slot string
	Text string
}

func (e *SlotError) Error() string {
	return fmt.Sprintf("phrase %q: unresolved slot {%s} in %q", e.Key, e.Slot, e.Text)
}

var slotPattern = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Resolver looks up phrases in read-only tables loaded once at startup.
type Resolver struct {
	defs types.PhraseDefs
	rng  Chooser
}

// NewResolver creates a resolver over the given tables.
func NewResolver(defs types.PhraseDefs, rng Chooser) *Resolver {
	return &Resolver{defs: defs, rng: rng}
}

// Variants returns every configured variant for key, session table first.
func (r *Resolver) Variants(key, sessionID string) ([]string, error) {
	if t, ok := r.defs.Sessions[sessionID]; ok {
		if v, ok := t.Phrases[key]; ok && len(v) > 0 {
			return v, nil
		}
	}
	if v, ok := r.defs.Default.Phrases[key]; ok && len(v) > 0 {
		return v, nil
	}
	return nil, &MissingError{Key: key, SessionID: sessionID}
}

// Resolve picks a variant for key and fills its slots. Repeated calls
// may return different variants.
func (r *Resolver) Resolve(key, sessionID string, slots Slots) (string, error) {
	variants, err := r.Variants(key, sessionID)
	if err != nil {
		return "", err
	}
	text := variants[0]
	if len(variants) > 1 {
		text = variants[r.rng.Intn(len(variants))]
	}
	return fill(key, text, slots)
}

// Has reports whether key resolves for the session.
func (r *Resolver) Has(key, sessionID string) bool {
	_, err := r.Variants(key, sessionID)
	return err == nil
}

// Statements returns the ordered lines of a scripted block.
func (r *Resolver) Statements(block, sessionID string) ([]types.Line, error) {
	if t, ok := r.defs.Sessions[sessionID]; ok {
		if lines, ok := t.Blocks[block]; ok && len(lines) > 0 {
			return lines, nil
		}
	}
	if lines, ok := r.defs.Default.Blocks[block]; ok && len(lines) > 0 {
		return lines, nil
	}
	return nil, &MissingError{Key: block, SessionID: sessionID}
}

// HasBlock reports whether a block is configured and non-empty.
func (r *Resolver) HasBlock(block, sessionID string) bool {
	_, err := r.Statements(block, sessionID)
	return err == nil
}

// Fill substitutes slots in a scripted line of block key. Lines follow
// the same placeholder rules as phrases.
func Fill(key, text string, slots Slots) (string, error) {
	return fill(key, text, slots)
}

func fill(key, text string, slots Slots) (string, error) {
	if !strings.Contains(text, "{") {
		return text, nil
	}
	var missing string
	out := slotPattern.ReplaceAllStringFunc(text, func(m string) string {
		name := m[1 : len(m)-1]
		v, ok := slots[name]
		if !ok {
			if missing == "" {
				missing = name
			}
			return m
		}
		return fmt.Sprint(v)
	})
	if missing != "" {
		return "", &SlotError{Key: key, Slot: missing, Text: text}
	}
	return out, nil
}

// SlotNames returns the placeholder names used in text.
func SlotNames(text string) []string {
	var names []string
	for _, m := range slotPattern.FindAllStringSubmatch(text, -1) {
		names = append(names, m[1])
	}
	return names
}
