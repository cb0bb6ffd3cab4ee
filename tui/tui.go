package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nathoo/spotcore/engine"
	"github.com/nathoo/spotcore/types"
)

// rawLine stores an unstyled output line with its classification,
// so we can re-wrap and re-style when the terminal is resized.
type rawLine struct {
	text     string
	kind     lineKind
	isInput  bool // true for echoed participant input
	isSystem bool // true for system messages
}

// Model is the Bubble Tea model for the SpotCore TUI.
type Model struct {
	engine *engine.Engine
	event  types.GameEvent // template for the game events we send
	title  string

	viewport viewport.Model
	input    textinput.Model
	history  *History

	rawLines []rawLine // accumulated dialogue lines (unstyled, for re-wrapping)

	width    int
	height   int
	ready    bool
	trace    bool
	quitting bool
	lastText string
	await    types.InputKind
	err      error // fatal engine error; the dialogue is over
}

// gameOutputMsg carries output from the engine into the Update loop.
type gameOutputMsg struct {
	input    string   // echoed participant input (empty for the start)
	lines    []string // output lines
	isSystem bool     // true for meta-command output
	await    types.InputKind
	err      error
}

// New creates a TUI model wired to the given engine. ev identifies the
// participant in the game events the TUI sends.
func New(eng *engine.Engine, ev types.GameEvent, title string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 256
	ti.PromptStyle = styleInputPrompt

	return Model{
		engine:  eng,
		event:   ev,
		title:   title,
		input:   ti,
		history: NewHistory(100),
	}
}

// Run starts the Bubble Tea program. It returns the engine error that
// ended the dialogue, if any.
func Run(eng *engine.Engine, ev types.GameEvent, title string) error {
	m := New(eng, ev, title)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	final, err := p.Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(Model); ok && fm.err != nil {
		return fm.err
	}
	return nil
}

// Init returns the initial command: the title and the start event.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.initialOutput())
}

func (m Model) initialOutput() tea.Cmd {
	return func() tea.Msg {
		msg := m.sendEvent("")
		if m.title != "" {
			msg.lines = append([]string{m.title, ""}, msg.lines...)
		}
		return msg
	}
}

// Update handles messages (key presses, window resize, game output).
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		vpHeight := m.height - 2 // 1 status bar + 1 input line
		if vpHeight < 1 {
			vpHeight = 1
		}

		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.KeyMap = viewportKeyMap()
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}

		m.refreshViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "enter":
			return m.handleEnter()

		case "up":
			if prev, ok := m.history.Prev(); ok {
				m.input.SetValue(prev)
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			if next, ok := m.history.Next(); ok {
				m.input.SetValue(next)
				m.input.CursorEnd()
			} else {
				m.input.SetValue("")
				m.history.ResetCursor()
			}
			return m, nil

		case "pgup", "pgdown":
			var vpCmd tea.Cmd
			m.viewport, vpCmd = m.viewport.Update(msg)
			return m, vpCmd
		}

	case gameOutputMsg:
		m = m.appendOutput(msg)
		if m.err != nil {
			return m, tea.Quit
		}
	}

	var inputCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	cmds = append(cmds, inputCmd)

	return m, tea.Batch(cmds...)
}

// handleEnter processes the submitted input line.
func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")

	// An empty line ends a segmented utterance.
	if input == "" {
		if !m.engine.Pending() {
			return m, nil
		}
		return m.finish(m.commit(""))
	}

	m.history.Push(input)
	m.history.ResetCursor()

	if state, ok := gameLine(input); ok {
		msg := m.sendEvent(state)
		msg.input = input
		return m.finish(msg)
	}

	// Meta-commands.
	if strings.HasPrefix(input, "/") {
		if strings.Fields(input)[0] == "/commit" {
			return m.finish(m.commit(input))
		}
		output, quit := m.handleMeta(input)
		m = m.appendOutput(gameOutputMsg{input: input, lines: output, isSystem: true, await: m.await})
		if quit {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	lower := strings.ToLower(input)
	text := input
	if lower == "again" || lower == "g" {
		if m.lastText == "" {
			m = m.appendOutput(gameOutputMsg{
				input: input, lines: []string{"Nothing to repeat."}, isSystem: true, await: m.await,
			})
			return m, nil
		}
		text = m.lastText
	} else {
		m.lastText = input
	}

	res, err := m.engine.ProcessUtterance(text)
	msg := m.resultMsg(res, err)
	msg.input = input
	return m.finish(msg)
}

// finish appends msg and quits if it carried a fatal error.
func (m Model) finish(msg gameOutputMsg) (tea.Model, tea.Cmd) {
	m = m.appendOutput(msg)
	if m.err != nil {
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) sendEvent(state string) gameOutputMsg {
	ev := m.event
	ev.State = state
	res, err := m.engine.ProcessGameEvent(ev)
	return m.resultMsg(res, err)
}

func (m Model) commit(input string) gameOutputMsg {
	res, err := m.engine.Commit()
	if errors.Is(err, engine.ErrNothingPending) {
		return gameOutputMsg{input: input, lines: []string{"Nothing to commit."}, isSystem: true, await: m.await}
	}
	msg := m.resultMsg(res, err)
	msg.input = input
	return msg
}

// resultMsg turns an engine result into output lines: one line per pause
// segment, then trace lines and a hint about what the dialogue waits for.
func (m Model) resultMsg(res engine.Result, err error) gameOutputMsg {
	if err != nil {
		return gameOutputMsg{
			lines: []string{fmt.Sprintf("Error: %v", err)},
			await: m.await,
			err:   err,
		}
	}

	var lines []string
	if res.Reply != "" {
		lines = append(lines, strings.Split(res.Reply, m.engine.Config().PauseMarker)...)
	}
	if m.trace {
		lines = append(lines, formatTrace(res)...)
	}
	switch {
	case res.ContinuationPending:
		lines = append(lines, "[Go on, or press Enter.]")
	case res.Await == types.InputGame:
		lines = append(lines, "[Waiting for the game. Type /go to continue.]")
	}
	return gameOutputMsg{lines: lines, await: res.Await}
}

// gameLine recognizes "game:<state>" and "/go [state]" lines.
func gameLine(input string) (state string, ok bool) {
	if rest, found := strings.CutPrefix(input, "game:"); found {
		return strings.TrimSpace(rest), true
	}
	fields := strings.Fields(input)
	if len(fields) == 0 || fields[0] != "/go" {
		return "", false
	}
	if len(fields) > 1 {
		state = fields[1]
	}
	return state, true
}

// appendOutput adds lines to the dialogue and refreshes the viewport.
func (m Model) appendOutput(msg gameOutputMsg) Model {
	if msg.input != "" {
		m.rawLines = append(m.rawLines, rawLine{
			text: "> " + msg.input, isInput: true,
		})
	}

	for i, line := range msg.lines {
		rl := rawLine{text: line, isSystem: msg.isSystem}
		if !msg.isSystem {
			rl.kind = classifyLine(line)
			if i == 0 && line == m.title && msg.input == "" && len(m.rawLines) == 0 {
				rl.kind = kindTitle
			}
		}
		m.rawLines = append(m.rawLines, rl)
	}

	// Blank line separator between turns.
	m.rawLines = append(m.rawLines, rawLine{})

	m.await = msg.await
	if msg.err != nil {
		m.err = msg.err
	}

	m.refreshViewport()

	return m
}

// refreshViewport re-wraps and re-styles all raw lines at the current width
// and updates the viewport content.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}

	width := m.width
	if width < 10 {
		width = 10
	}

	var styled []string
	for _, rl := range m.rawLines {
		if rl.text == "" {
			styled = append(styled, "")
			continue
		}

		wrapped := wordWrap(rl.text, width)

		switch {
		case rl.isInput:
			styled = append(styled, styleParticipant.Render(wrapped))
		case rl.isSystem:
			styled = append(styled, styledSystemMsg(wrapped))
		default:
			styled = append(styled, renderLineKind(wrapped, rl.kind))
		}
	}

	m.viewport.SetContent(strings.Join(styled, "\n"))
	m.viewport.GotoBottom()
}

// wordWrap wraps text to fit within the given width, breaking at word
// boundaries.
func wordWrap(text string, width int) string {
	if width <= 0 || len(text) <= width {
		return text
	}

	var result strings.Builder
	lineLen := 0
	for i, word := range strings.Fields(text) {
		wLen := len(word)
		switch {
		case i == 0:
			lineLen = wLen
		case lineLen+1+wLen > width:
			result.WriteString("\n")
			lineLen = wLen
		default:
			result.WriteString(" ")
			lineLen += 1 + wLen
		}
		result.WriteString(word)
	}
	return result.String()
}

// View renders the full TUI layout: viewport + status bar + input.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	return m.viewport.View() + "\n" + m.renderStatusBar() + "\n" + m.input.View()
}

// handleMeta dispatches meta-commands. Returns output lines and quit flag.
func (m *Model) handleMeta(input string) ([]string, bool) {
	cmd := strings.Fields(input)[0]

	switch cmd {
	case "/quit", "/exit":
		return []string{"Goodbye."}, true

	case "/help":
		return cmdHelp(), false

	case "/state":
		return m.cmdState(), false

	case "/trace":
		m.trace = !m.trace
		if m.trace {
			return []string{"Trace output enabled."}, false
		}
		return []string{"Trace output disabled."}, false

	default:
		return []string{fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd)}, false
	}
}

func cmdHelp() []string {
	return []string{
		"System:",
		"  /go [state]   — Send a game event (also: game:<state>)",
		"  /go restart   — Start a new game after the last one",
		"  /commit       — Finish a split utterance (also: empty line)",
		"  /quit         — Exit",
		"  /help         — Show this help",
		"  /state        — Debug: dump the dialog session",
		"  /trace        — Toggle debug trace output",
		"",
		"Anything else is said to the agent, e.g. \"de piraat\" or \"ja\".",
		"  again (g)     — Say the last thing again",
		"",
		"Navigation: PgUp/PgDn to scroll, Up/Down for input history",
	}
}

func (m *Model) cmdState() []string {
	s := m.engine.Session()
	participant, interaction := m.engine.Participant()
	output := []string{
		fmt.Sprintf("State: %s", s.Conv),
		fmt.Sprintf("Round: %d  Position: %d  Attempts: %d", s.Round, s.Position, s.Attempts),
	}
	if participant != "" {
		output = append(output, fmt.Sprintf("Participant: %s (interaction %s)", participant, interaction))
	}
	if s.Result != nil {
		output = append(output, fmt.Sprintf("Last result: %s (%.2f)", s.Result.Selected, s.Result.Confidence))
	}
	if m.engine.Pending() {
		output = append(output, "Continuation pending.")
	}
	return output
}

func formatTrace(res engine.Result) []string {
	var lines []string
	if len(res.Path) > 0 {
		names := make([]string, len(res.Path))
		for i, st := range res.Path {
			names[i] = st.String()
		}
		lines = append(lines, "[trace] Path: "+strings.Join(names, " -> "))
	}
	for _, a := range res.Annotations {
		lines = append(lines, fmt.Sprintf("[trace]   %s selected=%q confidence=%.2f", a.Status, a.Selected, a.Confidence))
	}
	return lines
}

// viewportKeyMap returns a viewport keymap with Up/Down disabled
// (we use those for input history).
func viewportKeyMap() viewport.KeyMap {
	return viewport.KeyMap{
		PageDown:     key.NewBinding(key.WithKeys("pgdown")),
		PageUp:       key.NewBinding(key.WithKeys("pgup")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u")),
		Up:           key.NewBinding(key.WithDisabled()),
		Down:         key.NewBinding(key.WithDisabled()),
	}
}
