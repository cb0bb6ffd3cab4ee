package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nathoo/spotcore/types"
)

// awaitLabel describes what the dialogue waits for.
func awaitLabel(k types.InputKind, pending bool) string {
	switch {
	case pending:
		return "go on…"
	case k == types.InputGame:
		return "waiting for game"
	case k == types.InputReply:
		return "your turn"
	}
	return ""
}

// renderStatusBar produces a full-width inverted status line showing the
// round, position, conversation state and what the dialogue waits for.
func (m Model) renderStatusBar() string {
	s := m.engine.Session()
	cfg := m.engine.Config()

	left := fmt.Sprintf(" %s | Round %d/%d | Position %d/%d",
		s.Conv, s.Round, cfg.Rounds, min(s.Position, cfg.MaxPosition), cfg.MaxPosition)

	participant, _ := m.engine.Participant()
	right := awaitLabel(m.await, m.engine.Pending()) + " "
	if participant != "" {
		candidate := fmt.Sprintf("%s | %s", participant, right)
		if lipgloss.Width(left)+lipgloss.Width(candidate)+2 < m.width {
			right = candidate
		}
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	if m.engine.Pending() {
		return stylePending.Width(m.width).Render(bar)
	}
	return styleStatusBar.Width(m.width).Render(bar)
}
