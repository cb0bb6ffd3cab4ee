// Package cli provides terminal I/O, output formatting, and meta-command
// dispatch for playing a SpotCore game from a terminal or a script file.
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nathoo/spotcore/engine"
	"github.com/nathoo/spotcore/types"
)

// CLI handles terminal interaction with the participant.
type CLI struct {
	Engine    *engine.Engine
	Event     types.GameEvent // template for every game event sent
	In        io.Reader
	Out       io.Writer
	Trace     bool
	EchoInput bool   // echo each input line after the prompt (for script playback)
	lastText  string // for "again"/"g" repeat
}

// New creates a CLI wired to the given engine. ev identifies the
// participant in the game events the CLI sends.
func New(eng *engine.Engine, ev types.GameEvent) *CLI {
	return &CLI{
		Engine: eng,
		Event:  ev,
		In:     os.Stdin,
		Out:    os.Stdout,
	}
}

// Run starts the game with a game event, then loops: prompt → input →
// dispatch → output. It returns the first engine error; the dialogue cannot
// continue after one.
func (c *CLI) Run() error {
	if err := c.sendEvent(""); err != nil {
		return err
	}

	scanner := bufio.NewScanner(c.In)
	for {
		c.print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		// Skip comment lines (for script files).
		if strings.HasPrefix(input, "#") {
			continue
		}
		if c.EchoInput {
			c.printLine(input)
		}

		// An empty line ends a segmented utterance.
		if input == "" {
			if c.Engine.Pending() {
				if err := c.commit(); err != nil {
					return err
				}
			}
			continue
		}

		if state, ok := gameLine(input); ok {
			if err := c.sendEvent(state); err != nil {
				return err
			}
			continue
		}

		// Meta-commands start with '/'.
		if strings.HasPrefix(input, "/") {
			quit, err := c.handleMeta(input)
			if err != nil {
				return err
			}
			if quit {
				return nil
			}
			continue
		}

		// "again" / "g" repeats the last utterance.
		lower := strings.ToLower(input)
		if lower == "again" || lower == "g" {
			if c.lastText == "" {
				c.printLine("Nothing to repeat.")
				continue
			}
			input = c.lastText
		} else {
			c.lastText = input
		}

		res, err := c.Engine.ProcessUtterance(input)
		if err != nil {
			return c.fatal(err)
		}
		c.printResult(res)
	}
	return scanner.Err()
}

// gameLine recognizes "game:<state>" and "/go [state]" lines.
func gameLine(input string) (state string, ok bool) {
	if rest, found := strings.CutPrefix(input, "game:"); found {
		return strings.TrimSpace(rest), true
	}
	fields := strings.Fields(input)
	if fields[0] != "/go" {
		return "", false
	}
	if len(fields) > 1 {
		state = fields[1]
	}
	return state, true
}

// handleMeta dispatches meta-commands. Returns true if the game should exit.
func (c *CLI) handleMeta(input string) (bool, error) {
	cmd := strings.Fields(input)[0]

	switch cmd {
	case "/quit", "/exit":
		c.printSystem("Goodbye.")
		return true, nil

	case "/commit":
		if !c.Engine.Pending() {
			c.printSystem("Nothing to commit.")
			return false, nil
		}
		return false, c.commit()

	case "/help":
		c.cmdHelp()

	case "/state":
		c.cmdState()

	case "/trace":
		c.Trace = !c.Trace
		if c.Trace {
			c.printSystem("Trace output enabled.")
		} else {
			c.printSystem("Trace output disabled.")
		}

	default:
		c.printSystem(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd))
	}

	return false, nil
}

func (c *CLI) sendEvent(state string) error {
	ev := c.Event
	ev.State = state
	res, err := c.Engine.ProcessGameEvent(ev)
	if err != nil {
		return c.fatal(err)
	}
	c.printResult(res)
	return nil
}

func (c *CLI) commit() error {
	res, err := c.Engine.Commit()
	if errors.Is(err, engine.ErrNothingPending) {
		c.printSystem("Nothing to commit.")
		return nil
	}
	if err != nil {
		return c.fatal(err)
	}
	c.printResult(res)
	return nil
}

func (c *CLI) fatal(err error) error {
	c.printSystem(fmt.Sprintf("Error: %v", err))
	return err
}

func (c *CLI) cmdHelp() {
	help := []string{
		"System:",
		"  /go [state]   — Send a game event (also: game:<state>)",
		"  /go restart   — Start a new game after the last one",
		"  /commit       — Finish a split utterance (also: empty line)",
		"  /quit         — Exit",
		"  /help         — Show this help",
		"  /state        — Debug: dump the dialog session",
		"  /trace        — Toggle debug trace output",
		"",
		"Anything else is said to the agent, for example:",
		"  de piraat",
		"  ik denk de robot met de antenne",
		"  ja / nee",
		"  again (g)     — Say the last thing again",
	}
	for _, line := range help {
		c.printLine(line)
	}
}

func (c *CLI) cmdState() {
	s := c.Engine.Session()
	participant, interaction := c.Engine.Participant()
	c.printSystem(fmt.Sprintf("State: %s", s.Conv))
	c.printSystem(fmt.Sprintf("Round: %d  Position: %d  Attempts: %d", s.Round, s.Position, s.Attempts))
	if participant != "" {
		c.printSystem(fmt.Sprintf("Participant: %s (interaction %s)", participant, interaction))
	}
	if s.Result != nil {
		c.printSystem(fmt.Sprintf("Last result: %s (%.2f)", s.Result.Selected, s.Result.Confidence))
	}
	if c.Engine.Pending() {
		c.printSystem("Continuation pending.")
	}
}

func (c *CLI) printTrace(res engine.Result) {
	if len(res.Path) > 0 {
		names := make([]string, len(res.Path))
		for i, st := range res.Path {
			names[i] = st.String()
		}
		c.printSystem(fmt.Sprintf("[trace] Path: %s", strings.Join(names, " -> ")))
	}
	for _, a := range res.Annotations {
		c.printSystem(fmt.Sprintf("[trace]   %s selected=%q confidence=%.2f", a.Status, a.Selected, a.Confidence))
	}
}

func (c *CLI) printResult(res engine.Result) {
	if res.Reply != "" {
		for _, part := range strings.Split(res.Reply, c.Engine.Config().PauseMarker) {
			c.printLine(part)
		}
	}
	if c.Trace {
		c.printTrace(res)
	}
	switch {
	case res.ContinuationPending:
		c.printSystem("Go on, or /commit.")
	case res.Await == types.InputGame:
		c.printSystem("Waiting for the game. Type /go to continue.")
	}
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	fmt.Fprintf(c.Out, "[%s]\n", text)
}
