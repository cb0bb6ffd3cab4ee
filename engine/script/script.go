// Package script implements the cursor over scripted narration blocks
// (game start, intro, outro) that are played one line per turn.
package script

import "github.com/nathoo/spotcore/types"

// Cursor is an immutable position in a block of narration lines.
// The zero position is -1: no line has been produced yet.
type Cursor struct {
	lines []types.Line
	index int
}

// New creates a cursor before the first line. lines must be non-empty;
// the loader rejects empty blocks.
func New(lines []types.Line) *Cursor {
	return &Cursor{lines: lines, index: -1}
}

// Next returns a cursor advanced by one line. Once the last line is
// reached, Next keeps returning a cursor on the last line.
func (c *Cursor) Next() *Cursor {
	index := min(c.index+1, len(c.lines)-1)
	return &Cursor{lines: c.lines, index: index}
}

// Line returns the current line, or the zero Line before the first Next.
func (c *Cursor) Line() types.Line {
	if c.index < 0 {
		return types.Line{}
	}
	return c.lines[c.index]
}

// Index returns the current line index (-1 before the first Next).
func (c *Cursor) Index() int {
	return c.index
}

// Final reports whether the cursor is on the last line.
func (c *Cursor) Final() bool {
	return c.index >= 0 && c.index == len(c.lines)-1
}

// Len returns the number of lines in the block.
func (c *Cursor) Len() int {
	return len(c.lines)
}
