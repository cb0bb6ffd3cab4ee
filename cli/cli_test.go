package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/nathoo/spotcore/engine"
	"github.com/nathoo/spotcore/engine/phrase"
	"github.com/nathoo/spotcore/engine/resolve"
	"github.com/nathoo/spotcore/types"
)

// testPhrases returns a complete default phrase table.
func testPhrases() types.PhraseDefs {
	return types.PhraseDefs{
		Default: types.PhraseTable{
			Phrases: map[string][]string{
				engine.KeyRoundStart:      {"Ronde {round}."},
				engine.KeyQueryFirst:      {"Wie staat er op plek 1?"},
				engine.KeyQueryNext:       {"En op plek {position}?"},
				engine.KeyQueryRepeat:     {"Wie staat er dan op plek {position}?"},
				engine.KeyAckSame:         {"Ja, {description} staat ook op plek {position}."},
				engine.KeyAckDifferent:    {"Bij mij staat {description} op plek {position}."},
				engine.KeyConfirmQuestion: {"Bedoel je {description}?"},
				engine.KeyConfirmRetry:    {"Oke, we proberen het opnieuw."},
				engine.KeyConfirmUnclear:  {"Ja of nee?"},
				engine.KeyConfirmYes:      {"ja"},
				engine.KeyConfirmNo:       {"nee"},
				engine.KeyRepairNoMatch:   {"Die ken ik niet."},
				engine.KeyRepairNegative:  {"Wie dan wel?"},
				engine.KeyRepairPrevious:  {"Die hadden we al."},
				engine.KeyRepairMultiple:  {"Bedoel je {detail}?"},
				engine.KeyRepairSkip:      {"We slaan deze over."},
				engine.KeyRoundFinish:     {"Einde van de ronde."},
				engine.KeyQuestionnaire:   {"Vul de vragenlijst in."},
				engine.KeyGoodbye:         {"Goodbye!"},
			},
		},
	}
}

// testScene has one round: the pirate at 1, the robot at 2.
func testScene() types.SceneDef {
	return types.SceneDef{
		Characters: map[string]types.Character{
			"pirate": {ID: "pirate", Name: "piraat", Description: "de piraat"},
			"robot":  {ID: "robot", Name: "robot", Description: "de robot"},
		},
		Rounds: []types.RoundDef{{Positions: []string{"pirate", "robot"}}},
	}
}

func newTestCLIWith(t *testing.T, defs types.PhraseDefs, input string) (*CLI, *bytes.Buffer) {
	t.Helper()
	cfg := engine.DefaultConfig()
	cfg.Rounds = 1
	cfg.MaxPosition = 2
	cfg.QuestionnaireRounds = nil
	cfg.EncouragementRate = 0
	cfg.PauseMarker = " | "
	cfg.StoragePath = t.TempDir()
	eng := engine.New(cfg, resolve.New(testScene(), resolve.DefaultOptions(), nil), defs)

	var out bytes.Buffer
	c := &CLI{
		Engine: eng,
		Event:  types.GameEvent{ParticipantID: "p1", ParticipantName: "Sam", Interaction: "1"},
		In:     strings.NewReader(input),
		Out:    &out,
	}
	return c, &out
}

func newTestCLI(t *testing.T, input string) (*CLI, *bytes.Buffer) {
	t.Helper()
	return newTestCLIWith(t, testPhrases(), input)
}

func run(t *testing.T, c *CLI) {
	t.Helper()
	if err := c.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestCLI_StartsGame(t *testing.T) {
	c, out := newTestCLI(t, "/quit\n")
	run(t, c)

	output := out.String()
	if !strings.Contains(output, "Ronde 1.\n") {
		t.Errorf("expected round start on its own line, got:\n%s", output)
	}
	if !strings.Contains(output, "Wie staat er op plek 1?\n") {
		t.Errorf("expected first query, got:\n%s", output)
	}
}

func TestCLI_Utterance(t *testing.T) {
	c, out := newTestCLI(t, "de piraat\n/quit\n")
	run(t, c)

	output := out.String()
	if !strings.Contains(output, "Ja, de piraat staat ook op plek 1.") {
		t.Errorf("expected acknowledgement, got:\n%s", output)
	}
	if !strings.Contains(output, "En op plek 2?") {
		t.Errorf("expected next query, got:\n%s", output)
	}
}

func TestCLI_FullGameAndRestart(t *testing.T) {
	c, out := newTestCLI(t, "piraat\nrobot\n/go\n/go restart\n/quit\n")
	run(t, c)

	output := out.String()
	if !strings.Contains(output, "Goodbye!") {
		t.Errorf("expected goodbye, got:\n%s", output)
	}
	if !strings.Contains(output, "Waiting for the game") {
		t.Error("expected a hint to send a game event")
	}
	if n := strings.Count(output, "Goodbye!"); n != 1 {
		t.Errorf("goodbye said %d times, want 1", n)
	}
	if n := strings.Count(output, "Ronde 1."); n != 2 {
		t.Errorf("expected the game to start twice, got %d", n)
	}
}

func TestCLI_GameLinePrefix(t *testing.T) {
	c, out := newTestCLI(t, "piraat\nrobot\ngame:restart\n/quit\n")
	run(t, c)

	if n := strings.Count(out.String(), "Ronde 1."); n != 2 {
		t.Errorf("game:restart should restart the game, round start seen %d times", n)
	}
}

func TestCLI_Continuation(t *testing.T) {
	c, out := newTestCLI(t, "piraat met\n\n/quit\n")
	run(t, c)

	output := out.String()
	pending := strings.Index(output, "Go on, or /commit.")
	ack := strings.Index(output, "Ja, de piraat staat ook op plek 1.")
	if pending < 0 || ack < 0 || ack < pending {
		t.Errorf("expected pending notice before the acknowledgement, got:\n%s", output)
	}
}

func TestCLI_CommitCommand(t *testing.T) {
	c, out := newTestCLI(t, "/commit\npiraat met\n/commit\n/quit\n")
	run(t, c)

	output := out.String()
	if !strings.Contains(output, "[Nothing to commit.]") {
		t.Error("expected nothing-to-commit message")
	}
	if !strings.Contains(output, "Ja, de piraat staat ook op plek 1.") {
		t.Errorf("expected commit to acknowledge, got:\n%s", output)
	}
}

func TestCLI_HelpCommand(t *testing.T) {
	c, out := newTestCLI(t, "/help\n/quit\n")
	run(t, c)

	output := out.String()
	for _, want := range []string{"/go", "/commit", "/quit", "/state", "/trace"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in help output", want)
		}
	}
}

func TestCLI_UnknownMetaCommand(t *testing.T) {
	c, out := newTestCLI(t, "/bogus\n/quit\n")
	run(t, c)

	if !strings.Contains(out.String(), "Unknown command") {
		t.Error("expected unknown command message")
	}
}

func TestCLI_TraceToggle(t *testing.T) {
	c, out := newTestCLI(t, "/trace\npiraat\n/trace\n/quit\n")
	run(t, c)

	output := out.String()
	if !strings.Contains(output, "Trace output enabled") {
		t.Error("expected trace enabled message")
	}
	if !strings.Contains(output, "Path: Disambiguation -> Acknowledge -> QueryNext -> Disambiguation") {
		t.Errorf("expected path trace, got:\n%s", output)
	}
	if !strings.Contains(output, `SUCCESS_HIGH selected="pirate"`) {
		t.Errorf("expected annotation trace, got:\n%s", output)
	}
	if !strings.Contains(output, "Trace output disabled") {
		t.Error("expected trace disabled message")
	}
}

func TestCLI_StateCommand(t *testing.T) {
	c, out := newTestCLI(t, "/state\n/quit\n")
	run(t, c)

	output := out.String()
	if !strings.Contains(output, "State: Disambiguation") {
		t.Errorf("expected state in output, got:\n%s", output)
	}
	if !strings.Contains(output, "Round: 1  Position: 1") {
		t.Error("expected round and position in state output")
	}
	if !strings.Contains(output, "Participant: p1 (interaction 1)") {
		t.Error("expected participant in state output")
	}
}

func TestCLI_EmptyAndCommentLines(t *testing.T) {
	c, out := newTestCLI(t, "\n# a comment\n\n/quit\n")
	run(t, c)

	output := out.String()
	if strings.Contains(output, "comment") {
		t.Error("comment lines should be skipped")
	}
	if strings.Contains(output, "Nothing to commit") {
		t.Error("empty lines without a continuation should be skipped silently")
	}
}

func TestCLI_Again_RepeatsLastUtterance(t *testing.T) {
	c, out := newTestCLI(t, "piraat\nagain\n/quit\n")
	run(t, c)

	// The pirate is already agreed for position 1.
	if !strings.Contains(out.String(), "Die hadden we al.") {
		t.Errorf("expected repeated utterance to be handled, got:\n%s", out.String())
	}
}

func TestCLI_Again_NothingToRepeat(t *testing.T) {
	c, out := newTestCLI(t, "g\n/quit\n")
	run(t, c)

	if !strings.Contains(out.String(), "Nothing to repeat") {
		t.Error("expected 'Nothing to repeat' when no prior utterance")
	}
}

func TestCLI_FatalErrorStops(t *testing.T) {
	defs := testPhrases()
	delete(defs.Default.Phrases, engine.KeyRepairPrevious)
	c, out := newTestCLIWith(t, defs, "piraat\npiraat\nrobot\n/quit\n")

	err := c.Run()
	var missing *phrase.MissingError
	if !errors.As(err, &missing) {
		t.Fatalf("expected *phrase.MissingError, got %v", err)
	}
	if missing.Key != engine.KeyRepairPrevious {
		t.Errorf("missing key = %q", missing.Key)
	}
	if !strings.Contains(out.String(), "[Error:") {
		t.Error("expected the error to be printed")
	}
	if strings.Contains(out.String(), "de robot") {
		t.Error("input after a fatal error should not be processed")
	}
}

func TestGameLine(t *testing.T) {
	tests := []struct {
		input string
		state string
		ok    bool
	}{
		{"/go", "", true},
		{"/go restart", "restart", true},
		{"game:", "", true},
		{"game: restart", "restart", true},
		{"/good", "", false},
		{"piraat", "", false},
	}
	for _, tt := range tests {
		state, ok := gameLine(tt.input)
		if state != tt.state || ok != tt.ok {
			t.Errorf("gameLine(%q) = %q, %v; want %q, %v", tt.input, state, ok, tt.state, tt.ok)
		}
	}
}
