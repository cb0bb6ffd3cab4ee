// Package engine drives the conversation: it feeds utterances and game
// events through the per-state step functions until the dialogue has to
// wait for the participant or the game again.
package engine

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/nathoo/spotcore/engine/phrase"
	"github.com/nathoo/spotcore/engine/state"
	"github.com/nathoo/spotcore/types"
)

// ErrNothingPending is returned by Commit when no continuation is open.
var ErrNothingPending = errors.New("no continuation pending")

// Disambiguator matches a participant's mention against the scene. It
// keeps its own view of the current round and position, moved forward by
// AdvanceRound and AdvancePosition.
type Disambiguator interface {
	Status() types.Status
	Disambiguate(mention string) types.Disambiguation
	AdvanceRound(first bool)
	AdvancePosition(skip bool)
	// CommitStatus makes a provisional (continuation) result final.
	CommitStatus()
	SaveInteraction(path, participant, session string) error
	LoadInteraction(path, participant, priorSession string) error
}

// PreferenceStore persists free answers given during the outro and
// recalls the preference stored for an earlier session.
type PreferenceStore interface {
	SavePreference(participant, session, answer string) error
	LoadPreference(participant, session string) (string, error)
}

// Config holds the game parameters the engine needs.
type Config struct {
	Rounds              int
	MaxPosition         int
	QuestionnaireRounds []int
	AdvanceLimit        int // positions below this advance the disambiguator; 0 means MaxPosition+1
	MaxAttempts         int
	EncouragementRate   float64
	HighEngagement      bool
	PauseMarker         string
	MaxSteps            int
	ResumePrior         bool
	StoragePath         string
}

// DefaultConfig returns the standard six-round, five-position game.
func DefaultConfig() Config {
	return Config{
		Rounds:              6,
		MaxPosition:         5,
		QuestionnaireRounds: []int{1, 6},
		MaxAttempts:         3,
		EncouragementRate:   0.2,
		HighEngagement:      true,
		PauseMarker:         ` \pau=1000\ `,
		MaxSteps:            50,
		StoragePath:         ".",
	}
}

func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.Rounds <= 0 {
		c.Rounds = d.Rounds
	}
	if c.MaxPosition <= 0 {
		c.MaxPosition = d.MaxPosition
	}
	if c.AdvanceLimit <= 0 {
		c.AdvanceLimit = c.MaxPosition + 1
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.MaxSteps <= 0 {
		c.MaxSteps = d.MaxSteps
	}
	if c.PauseMarker == "" {
		c.PauseMarker = d.PauseMarker
	}
	return c
}

func (c Config) questionnaire(round int) bool {
	for _, r := range c.QuestionnaireRounds {
		if r == round {
			return true
		}
	}
	return false
}

// StatusError reports a disambiguator status the current state has no
// handling for.
type StatusError struct {
	State  state.ConvState
	Status types.Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected disambiguator status %q in %s", e.Status, e.State)
}

// LoopError reports a single input that kept the engine stepping without
// ever waiting for input.
type LoopError struct {
	Steps int
	Last  state.ConvState
}

func (e *LoopError) Error() string {
	return fmt.Sprintf("no await after %d steps (last state %s)", e.Steps, e.Last)
}

// IDError reports a game event whose participant or interaction id
// cannot name a stored record.
type IDError struct {
	Field string
	ID    string
}

func (e *IDError) Error() string {
	return fmt.Sprintf("invalid %s id %q: use letters, digits, '_' or '-'", e.Field, e.ID)
}

// Result is what one call into the engine produced.
type Result struct {
	Reply               string
	Session             state.Session
	Await               types.InputKind
	Annotations         []types.Annotation
	ContinuationPending bool
	Path                []state.ConvState // states entered during the call, in order
}

// pendingSegment is a disambiguation outcome withheld until Commit.
type pendingSegment struct {
	next      state.Session
	replies   []string
	fragments []string
}

// gameInfo identifies the participant and interaction being played.
type gameInfo struct {
	participant string
	name        string
	interaction string
	preference  string // from the previous interaction, when resumed
}

// Engine holds the conversation state between calls. It is not safe for
// concurrent use; callers serialize input. After a call returns an error
// the Disambiguator may be out of step with Session, so hosts discard the
// engine and end the dialogue.
type Engine struct {
	cfg     Config
	dis     Disambiguator
	phrases *phrase.Resolver
	prefs   PreferenceStore
	rng     *RNG
	log     *zap.Logger

	session state.Session
	pending *pendingSegment
	game    gameInfo
}

// Option configures an Engine.
type Option func(*Engine)

// WithRNG sets the random source used for phrase variants and
// encouragement.
func WithRNG(rng *RNG) Option {
	return func(e *Engine) { e.rng = rng }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithPreferences sets where outro answers are stored.
func WithPreferences(p PreferenceStore) Option {
	return func(e *Engine) { e.prefs = p }
}

// New creates an engine in GameInit.
func New(cfg Config, d Disambiguator, defs types.PhraseDefs, opts ...Option) *Engine {
	e := &Engine{
		cfg:     cfg.normalized(),
		dis:     d,
		log:     zap.NewNop(),
		session: state.New(),
		game:    gameInfo{interaction: "1"},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = NewRNG(1)
	}
	e.log = e.log.With(zap.String("component", "engine"))
	e.phrases = phrase.NewResolver(defs, e.rng)
	return e
}

// Session returns the visible session.
func (e *Engine) Session() state.Session { return e.session }

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// Participant returns the participant id and interaction id of the game
// in progress.
func (e *Engine) Participant() (id, interaction string) {
	return e.game.participant, e.game.interaction
}

// Pending reports whether a continuation is waiting for Commit.
func (e *Engine) Pending() bool { return e.pending != nil }

// RNG returns the engine's random source.
func (e *Engine) RNG() *RNG { return e.rng }

// ProcessUtterance handles one piece of participant text. While a
// continuation is pending the text extends the withheld utterance and the
// mention is disambiguated again.
func (e *Engine) ProcessUtterance(text string) (Result, error) {
	text = strings.TrimSpace(text)
	e.log.Debug("utterance", zap.String("text", text), zap.Stringer("state", e.session.Conv))

	in := input{text: text}
	var prefix []string
	if e.pending != nil {
		in.fragments = append([]string(nil), e.pending.fragments...)
		if text != "" {
			in.fragments = append(in.fragments, text)
		}
		in.text = strings.Join(in.fragments, " ")
		prefix = e.pending.replies
	} else if text != "" {
		in.fragments = []string{text}
	}
	return e.execute(e.session, in, prefix)
}

// ProcessGameEvent handles a control event from the game UI. A pending
// continuation is committed first.
func (e *Engine) ProcessGameEvent(ev types.GameEvent) (Result, error) {
	e.log.Debug("game event",
		zap.String("participant", ev.ParticipantID),
		zap.String("state", ev.State),
		zap.Stringer("conv", e.session.Conv))

	var committed *Result
	if e.pending != nil {
		r, err := e.Commit()
		if err != nil {
			return Result{}, err
		}
		committed = &r
	}

	in := input{event: &ev, text: strings.TrimSpace(ev.Input)}
	r, err := e.execute(e.session, in, nil)
	if err != nil {
		return Result{}, err
	}
	if committed != nil {
		r = e.merge(*committed, r)
	}
	return r, nil
}

// Commit makes a pending continuation final and continues the dialogue
// from the withheld outcome.
func (e *Engine) Commit() (Result, error) {
	if e.pending == nil {
		return Result{}, ErrNothingPending
	}
	e.log.Debug("commit", zap.Strings("fragments", e.pending.fragments))
	e.dis.CommitStatus()
	return e.execute(e.pending.next, input{}, e.pending.replies)
}

func (e *Engine) merge(first, second Result) Result {
	var replies []string
	for _, r := range []string{first.Reply, second.Reply} {
		if r != "" {
			replies = append(replies, r)
		}
	}
	second.Reply = strings.Join(replies, e.cfg.PauseMarker)
	second.Annotations = append(first.Annotations, second.Annotations...)
	if len(first.Path) > 0 {
		second.Path = append(first.Path, second.Path[1:]...)
	}
	return second
}

// execute runs the loop from s and, on success, makes the outcome the
// engine's state. A fatal error leaves the engine's own session and
// pending continuation as they were; calls already made on the
// Disambiguator are not undone.
func (e *Engine) execute(s state.Session, in input, prefix []string) (res Result, err error) {
	t := &turn{
		e:       e,
		cfg:     e.cfg,
		game:    e.game,
		replies: append([]string(nil), prefix...),
		path:    []state.ConvState{s.Conv},
	}

	defer func() {
		if r := recover(); r != nil {
			fe := asFatal(r)
			if fe == nil {
				panic(r)
			}
			e.log.Error("dialogue aborted",
				zap.Error(fe),
				zap.Stringer("state", e.session.Conv))
			res, err = Result{}, fe
		}
	}()

	out := t.run(s, in)

	e.game = t.game
	if out.pending != nil {
		e.pending = out.pending
		e.session = out.session
		return Result{
			Session:             out.session,
			Await:               types.InputReply,
			Annotations:         t.annotations,
			ContinuationPending: true,
			Path:                t.path,
		}, nil
	}

	e.pending = nil
	e.session = out.session.With(state.ClearInput)
	return Result{
		Reply:       strings.Join(t.replies, e.cfg.PauseMarker),
		Session:     e.session,
		Await:       out.await,
		Annotations: t.annotations,
		Path:        t.path,
	}, nil
}

// fatal carries an error raised inside a step function up to execute.
type fatal struct{ err error }

func fail(err error) {
	panic(fatal{err: err})
}

func asFatal(r any) error {
	switch v := r.(type) {
	case fatal:
		return v.err
	case *state.TransitionError:
		return v
	}
	return nil
}
