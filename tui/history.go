// Package tui provides a Bubble Tea chat view for playing a SpotCore game.
package tui

// History keeps recent utterances for Up/Down recall.
type History struct {
	entries []string
	max     int
	cursor  int // -1 = not navigating, 0..len-1 = position in entries
}

// NewHistory creates a history holding at most max entries.
func NewHistory(max int) *History {
	return &History{
		entries: make([]string, 0, max),
		max:     max,
		cursor:  -1,
	}
}

// Push records an utterance. Saying something again moves it to the most
// recent slot instead of storing it twice.
func (h *History) Push(text string) {
	for i, e := range h.entries {
		if e == text {
			h.entries = append(h.entries[:i], h.entries[i+1:]...)
			break
		}
	}
	h.entries = append(h.entries, text)
	if len(h.entries) > h.max {
		h.entries = h.entries[1:]
	}
	h.cursor = -1
}

// Len returns the number of stored entries.
func (h *History) Len() int { return len(h.entries) }

// Prev returns the previous (older) entry, staying on the oldest.
func (h *History) Prev() (string, bool) {
	if len(h.entries) == 0 {
		return "", false
	}
	if h.cursor == -1 {
		h.cursor = len(h.entries) - 1
	} else if h.cursor > 0 {
		h.cursor--
	}
	return h.entries[h.cursor], true
}

// Next returns the next (newer) entry, or false once past the newest.
func (h *History) Next() (string, bool) {
	if h.cursor == -1 {
		return "", false
	}
	h.cursor++
	if h.cursor >= len(h.entries) {
		h.cursor = -1
		return "", false
	}
	return h.entries[h.cursor], true
}

// ResetCursor stops navigating.
func (h *History) ResetCursor() {
	h.cursor = -1
}
