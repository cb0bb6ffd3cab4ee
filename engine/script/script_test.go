package script

import (
	"testing"

	"github.com/nathoo/spotcore/types"
)

func testLines() []types.Line {
	return []types.Line{
		{Text: "Hoi!"},
		{Text: "Zullen we een spelletje doen?"},
		{Text: "Wat vond je ervan?", StoreInput: true},
	}
}

func TestCursor_StartsBeforeFirstLine(t *testing.T) {
	c := New(testLines())

	if c.Index() != -1 {
		t.Errorf("expected index -1, got %d", c.Index())
	}
	if c.Final() {
		t.Error("fresh cursor should not be final")
	}
	if c.Line().Text != "" {
		t.Errorf("expected no line before Next, got %q", c.Line().Text)
	}
}

func TestCursor_NextWalksLines(t *testing.T) {
	c := New(testLines())

	c = c.Next()
	if c.Line().Text != "Hoi!" || c.Final() {
		t.Fatalf("step 0: got %q final=%v", c.Line().Text, c.Final())
	}
	c = c.Next()
	if c.Line().Text != "Zullen we een spelletje doen?" || c.Final() {
		t.Fatalf("step 1: got %q final=%v", c.Line().Text, c.Final())
	}
	c = c.Next()
	if !c.Final() {
		t.Fatal("expected final on last line")
	}
	if !c.Line().StoreInput {
		t.Error("expected last line to carry StoreInput")
	}
}

func TestCursor_IdempotentAtFinal(t *testing.T) {
	c := New(testLines())
	for i := 0; i < 3; i++ {
		c = c.Next()
	}
	last := c.Line()

	for i := 0; i < 5; i++ {
		c = c.Next()
		if !c.Final() {
			t.Fatalf("call %d: expected final", i)
		}
		if c.Line() != last {
			t.Fatalf("call %d: expected %q, got %q", i, last.Text, c.Line().Text)
		}
		if c.Index() != 2 {
			t.Fatalf("call %d: expected index 2, got %d", i, c.Index())
		}
	}
}

func TestCursor_NextDoesNotMutate(t *testing.T) {
	c := New(testLines())
	n := c.Next()

	if c.Index() != -1 {
		t.Errorf("original cursor moved to %d", c.Index())
	}
	if n.Index() != 0 {
		t.Errorf("expected new cursor at 0, got %d", n.Index())
	}
}

func TestCursor_SingleLineIsFinalImmediately(t *testing.T) {
	c := New([]types.Line{{Text: "Klaar."}}).Next()

	if !c.Final() {
		t.Error("single-line block should be final after one Next")
	}
}
