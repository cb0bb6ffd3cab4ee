// Package state defines the conversation states, the table of legal
// transitions between them, and the immutable dialog session record.
package state

import (
	"fmt"
	"strings"

	"github.com/nathoo/spotcore/engine/script"
	"github.com/nathoo/spotcore/types"
)

// ConvState is a conversation state.
type ConvState int

const (
	GameInit ConvState = iota
	GameStart
	Intro
	RoundStart
	QueryNext
	Disambiguation
	Repair
	Acknowledge
	RoundFinish
	Questionnaire
	Outro
	GameFinish
)

var stateNames = [...]string{
	GameInit:       "GameInit",
	GameStart:      "GameStart",
	Intro:          "Intro",
	RoundStart:     "RoundStart",
	QueryNext:      "QueryNext",
	Disambiguation: "Disambiguation",
	Repair:         "Repair",
	Acknowledge:    "Acknowledge",
	RoundFinish:    "RoundFinish",
	Questionnaire:  "Questionnaire",
	Outro:          "Outro",
	GameFinish:     "GameFinish",
}

// States lists every conversation state in declaration order.
var States = []ConvState{
	GameInit, GameStart, Intro, RoundStart, QueryNext, Disambiguation,
	Repair, Acknowledge, RoundFinish, Questionnaire, Outro, GameFinish,
}

func (s ConvState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("ConvState(%d)", int(s))
	}
	return stateNames[s]
}

// ParseConvState returns the state with the given name (case-insensitive).
func ParseConvState(name string) (ConvState, bool) {
	for i, n := range stateNames {
		if strings.EqualFold(n, name) {
			return ConvState(i), true
		}
	}
	return 0, false
}

// A self-transition means "re-run this state's handler on the next step".
var transitions = map[ConvState][]ConvState{
	GameInit:       {GameInit, GameStart},
	GameStart:      {GameStart, Intro},
	Intro:          {Intro, RoundStart},
	RoundStart:     {QueryNext},
	QueryNext:      {QueryNext, Disambiguation},
	Disambiguation: {Disambiguation, Repair, Acknowledge},
	Repair:         {Repair, Disambiguation, QueryNext, RoundFinish},
	Acknowledge:    {Acknowledge, QueryNext, RoundFinish},
	RoundFinish:    {Questionnaire, RoundStart, RoundFinish, Outro},
	Questionnaire:  {Questionnaire, RoundStart, RoundFinish, Outro},
	Outro:          {Outro, GameFinish},
	GameFinish:     {GameFinish, GameInit},
}

// Transitions returns the states s may move to.
func (s ConvState) Transitions() []ConvState {
	return transitions[s]
}

// Allowed reports whether from may move to to.
func Allowed(from, to ConvState) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Confirmation is the sub-state of Acknowledge.
type Confirmation int

const (
	ConfirmNone Confirmation = iota
	Confirm
	Requested
	Accepted
)

func (c Confirmation) String() string {
	switch c {
	case Confirm:
		return "Confirm"
	case Requested:
		return "Requested"
	case Accepted:
		return "Accepted"
	default:
		return "None"
	}
}

// TransitionError is raised for a move outside the transition table.
// It always indicates a defect in a step function.
type TransitionError struct {
	From ConvState
	To   ConvState
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot change state from %s to %s", e.From, e.To)
}

// Session is the dialog session record. It is a value: updates return a
// new Session and never modify the receiver.
type Session struct {
	Conv ConvState

	GameStart *script.Cursor
	Intro     *script.Cursor
	Outro     *script.Cursor

	Round    int
	Position int

	Utterance    string // staged raw input, "" if none
	Mention      string // extracted referring expression, "" if none
	Result       *types.Disambiguation
	Confirmation Confirmation
	Attempts     int
}

// New returns the session a game starts from.
func New() Session {
	return Session{Conv: GameInit, Attempts: 1}
}

// Change modifies a session copy during Transition or With.
type Change func(*Session)

// Transition returns a copy of s in state to with the changes applied.
// It panics with *TransitionError if to is not in s.Conv.Transitions().
func (s Session) Transition(to ConvState, changes ...Change) Session {
	if !Allowed(s.Conv, to) {
		panic(&TransitionError{From: s.Conv, To: to})
	}
	next := s.With(changes...)
	next.Conv = to
	return next
}

// TryTransition is Transition returning the violation as an error.
func (s Session) TryTransition(to ConvState, changes ...Change) (Session, error) {
	if !Allowed(s.Conv, to) {
		return s, &TransitionError{From: s.Conv, To: to}
	}
	return s.Transition(to, changes...), nil
}

// With returns a copy of s with the changes applied, keeping the state.
func (s Session) With(changes ...Change) Session {
	next := s
	for _, c := range changes {
		c(&next)
	}
	return next
}

// WithRound sets the round counter.
func WithRound(round int) Change {
	return func(s *Session) { s.Round = round }
}

// WithPosition sets the position counter.
func WithPosition(position int) Change {
	return func(s *Session) { s.Position = position }
}

// WithAttempts sets the attempt counter.
func WithAttempts(n int) Change {
	return func(s *Session) { s.Attempts = n }
}

// WithUtterance stages raw input.
func WithUtterance(text string) Change {
	return func(s *Session) { s.Utterance = text }
}

// WithMention stages an extracted mention.
func WithMention(mention string) Change {
	return func(s *Session) { s.Mention = mention }
}

// WithResult records the last disambiguation result.
func WithResult(r types.Disambiguation) Change {
	return func(s *Session) { s.Result = &r }
}

// WithConfirmation sets the confirmation sub-state.
func WithConfirmation(c Confirmation) Change {
	return func(s *Session) { s.Confirmation = c }
}

// WithGameStart sets or clears the game-start cursor.
func WithGameStart(c *script.Cursor) Change {
	return func(s *Session) { s.GameStart = c }
}

// WithIntro sets or clears the intro cursor.
func WithIntro(c *script.Cursor) Change {
	return func(s *Session) { s.Intro = c }
}

// WithOutro sets or clears the outro cursor.
func WithOutro(c *script.Cursor) Change {
	return func(s *Session) { s.Outro = c }
}

// ClearInput drops the staged utterance and mention.
func ClearInput(s *Session) {
	s.Utterance = ""
	s.Mention = ""
}

// ClearPending drops staged input, the last result and the confirmation.
func ClearPending(s *Session) {
	ClearInput(s)
	s.Result = nil
	s.Confirmation = ConfirmNone
}

// String renders the non-empty fields for logs and traces.
func (s Session) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s round=%d position=%d attempts=%d", s.Conv, s.Round, s.Position, s.Attempts)
	if s.Utterance != "" {
		fmt.Fprintf(&b, " utterance=%q", s.Utterance)
	}
	if s.Mention != "" {
		fmt.Fprintf(&b, " mention=%q", s.Mention)
	}
	if s.Confirmation != ConfirmNone {
		fmt.Fprintf(&b, " confirmation=%s", s.Confirmation)
	}
	if s.Result != nil {
		fmt.Fprintf(&b, " selected=%s confidence=%.2f", s.Result.Selected, s.Result.Confidence)
	}
	cursors := []struct {
		name string
		c    *script.Cursor
	}{{"game_start", s.GameStart}, {"intro", s.Intro}, {"outro", s.Outro}}
	for _, cur := range cursors {
		if cur.c != nil {
			fmt.Fprintf(&b, " %s=%d/%d", cur.name, cur.c.Index()+1, cur.c.Len())
		}
	}
	return b.String()
}
