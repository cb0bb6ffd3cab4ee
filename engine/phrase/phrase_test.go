package phrase

import (
	"errors"
	"testing"

	"github.com/nathoo/spotcore/types"
)

// seqChooser returns the queued indexes in order, then 0.
type seqChooser struct {
	picks []int
}

func (s *seqChooser) Intn(n int) int {
	if len(s.picks) == 0 {
		return 0
	}
	p := s.picks[0]
	s.picks = s.picks[1:]
	return p % n
}

func testDefs() types.PhraseDefs {
	return types.PhraseDefs{
		Default: types.PhraseTable{
			Phrases: map[string][]string{
				"round.start":  {"Laten we beginnen!"},
				"query.next":   {"En de volgende?", "Oke, en de volgende?", "En die daarnaast staat?"},
				"query.repeat": {"Wie staat er bij jou op plek {position}?"},
				"greeting":     {"Hoi {name}!"},
			},
			Blocks: map[string][]types.Line{
				"intro": {{Text: "Eerst oefenen."}, {Text: "Daar gaan we."}},
				"outro": {},
			},
		},
		Sessions: map[string]types.PhraseTable{
			"2": {
				Phrases: map[string][]string{
					"round.start": {"Welkom terug, we beginnen weer!"},
				},
				Blocks: map[string][]types.Line{
					"intro": {{Text: "Je kent het spel al."}},
				},
			},
		},
	}
}

func TestResolve_DefaultTable(t *testing.T) {
	r := NewResolver(testDefs(), &seqChooser{})

	got, err := r.Resolve("round.start", "1", nil)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != "Laten we beginnen!" {
		t.Errorf("got %q", got)
	}
}

func TestResolve_SessionOverride(t *testing.T) {
	r := NewResolver(testDefs(), &seqChooser{})

	got, err := r.Resolve("round.start", "2", nil)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != "Welkom terug, we beginnen weer!" {
		t.Errorf("expected session override, got %q", got)
	}

	// Keys missing from the session table fall back to the default.
	got, err = r.Resolve("query.next", "2", nil)
	if err != nil {
		t.Fatalf("Resolve fallback failed: %v", err)
	}
	if got != "En de volgende?" {
		t.Errorf("expected default fallback, got %q", got)
	}
}

func TestResolve_VariantsUseChooser(t *testing.T) {
	r := NewResolver(testDefs(), &seqChooser{picks: []int{2, 1}})

	first, _ := r.Resolve("query.next", "1", nil)
	second, _ := r.Resolve("query.next", "1", nil)
	if first != "En die daarnaast staat?" {
		t.Errorf("first pick = %q", first)
	}
	if second != "Oke, en de volgende?" {
		t.Errorf("second pick = %q", second)
	}
}

func TestResolve_Missing(t *testing.T) {
	r := NewResolver(testDefs(), &seqChooser{})

	_, err := r.Resolve("nope", "2", nil)
	var me *MissingError
	if !errors.As(err, &me) {
		t.Fatalf("expected MissingError, got %v", err)
	}
	if me.Key != "nope" || me.SessionID != "2" {
		t.Errorf("unexpected error fields: %+v", me)
	}
}

func TestResolve_Slots(t *testing.T) {
	r := NewResolver(testDefs(), &seqChooser{})

	got, err := r.Resolve("query.repeat", "1", Slots{"position": 3})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != "Wie staat er bij jou op plek 3?" {
		t.Errorf("got %q", got)
	}
}

func TestResolve_UnresolvedSlot(t *testing.T) {
	r := NewResolver(testDefs(), &seqChooser{})

	_, err := r.Resolve("greeting", "1", Slots{"position": 1})
	var se *SlotError
	if !errors.As(err, &se) {
		t.Fatalf("expected SlotError, got %v", err)
	}
	if se.Slot != "name" {
		t.Errorf("expected slot 'name', got %q", se.Slot)
	}
}

func TestStatements_And_HasBlock(t *testing.T) {
	r := NewResolver(testDefs(), &seqChooser{})

	lines, err := r.Statements("intro", "1")
	if err != nil || len(lines) != 2 {
		t.Fatalf("expected 2 default intro lines, got %v (%v)", lines, err)
	}
	lines, err = r.Statements("intro", "2")
	if err != nil || len(lines) != 1 {
		t.Fatalf("expected 1 session intro line, got %v (%v)", lines, err)
	}

	if !r.HasBlock("intro", "1") {
		t.Error("intro should be configured")
	}
	if r.HasBlock("outro", "1") {
		t.Error("empty outro should not count as configured")
	}
	if r.HasBlock("game_start", "1") {
		t.Error("missing game_start should not count as configured")
	}
}

func TestSlotNames(t *testing.T) {
	names := SlotNames("Bij mij staat {description} op plek {position}.")
	if len(names) != 2 || names[0] != "description" || names[1] != "position" {
		t.Errorf("got %v", names)
	}
}

func TestFill(t *testing.T) {
	got, err := Fill("game_start", "Hoi {name}!", Slots{"name": "Sam"})
	if err != nil || got != "Hoi Sam!" {
		t.Errorf("Fill = %q, %v", got, err)
	}

	_, err = Fill("game_start", "Hoi {naam}!", Slots{"name": "Sam"})
	var se *SlotError
	if !errors.As(err, &se) {
		t.Fatalf("expected *SlotError, got %v", err)
	}
	if se.Key != "game_start" || se.Slot != "naam" {
		t.Errorf("unexpected error %+v", se)
	}
}
