package engine

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/nathoo/spotcore/engine/parser"
	"github.com/nathoo/spotcore/engine/phrase"
	"github.com/nathoo/spotcore/engine/save"
	"github.com/nathoo/spotcore/engine/script"
	"github.com/nathoo/spotcore/engine/state"
	"github.com/nathoo/spotcore/types"
)

// input is what a call delivers to the first step function.
type input struct {
	text      string
	event     *types.GameEvent
	fragments []string
}

func (in input) empty() bool {
	return in.text == "" && in.event == nil
}

// step is the outcome of one step function.
type step struct {
	next  state.Session
	reply string
	await types.InputKind // InputNone: keep stepping

	// pending is set when a continuation should be withheld; next is then
	// the visible session.
	pending *state.Session

	// pass hands the input on to the next step instead of consuming it.
	pass bool
}

// outcome is what the run loop ended with.
type outcome struct {
	session state.Session
	await   types.InputKind
	pending *pendingSegment
}

// turn is the working state of one engine call. Nothing in it reaches the
// Engine unless the call completes.
type turn struct {
	e           *Engine
	cfg         Config
	game        gameInfo
	replies     []string
	annotations []types.Annotation
	path        []state.ConvState
}

func (t *turn) run(s state.Session, in input) outcome {
	for steps := 1; ; steps++ {
		if steps > t.cfg.MaxSteps {
			fail(&LoopError{Steps: t.cfg.MaxSteps, Last: s.Conv})
		}

		st := t.step(s, in)
		if !st.pass {
			in = input{fragments: in.fragments}
		}
		if st.reply != "" {
			t.replies = append(t.replies, st.reply)
		}
		if st.next.Conv != s.Conv {
			t.e.log.Debug("transition",
				zap.Stringer("from", s.Conv),
				zap.Stringer("to", st.next.Conv),
				zap.Int("round", st.next.Round),
				zap.Int("position", st.next.Position))
			t.path = append(t.path, st.next.Conv)
		}
		s = st.next

		if st.pending != nil {
			return outcome{
				session: s,
				await:   types.InputReply,
				pending: &pendingSegment{
					next:      *st.pending,
					replies:   t.replies,
					fragments: in.fragments,
				},
			}
		}
		if st.await != types.InputNone {
			return outcome{session: s, await: st.await}
		}
	}
}

func (t *turn) step(s state.Session, in input) step {
	switch s.Conv {
	case state.GameInit:
		return t.gameInit(s, in)
	case state.GameStart:
		return t.scripted(s, in, BlockGameStart, s.GameStart, state.WithGameStart, state.Intro)
	case state.Intro:
		return t.scripted(s, in, BlockIntro, s.Intro, state.WithIntro, state.RoundStart, state.WithRound(0))
	case state.RoundStart:
		return t.roundStart(s)
	case state.QueryNext:
		return t.queryNext(s)
	case state.Disambiguation:
		return t.disambiguation(s, in)
	case state.Repair:
		return t.repair(s)
	case state.Acknowledge:
		return t.acknowledge(s, in)
	case state.RoundFinish, state.Questionnaire:
		return t.roundFinish(s, in)
	case state.Outro:
		return t.scripted(s, in, BlockOutro, s.Outro, state.WithOutro, state.GameFinish)
	case state.GameFinish:
		return t.gameFinish(s, in)
	default:
		fail(fmt.Errorf("no step function for state %s", s.Conv))
		return step{}
	}
}

func (t *turn) gameInit(s state.Session, in input) step {
	if in.event == nil {
		return step{next: s, await: types.InputGame}
	}

	ev := in.event
	t.game = gameInfo{
		participant: ev.ParticipantID,
		name:        ev.ParticipantName,
		interaction: ev.Interaction,
	}
	if t.game.interaction == "" {
		t.game.interaction = "1"
	}
	if !save.ValidID(t.game.participant) {
		fail(&IDError{Field: "participant", ID: t.game.participant})
	}
	if !save.ValidID(t.game.interaction) {
		fail(&IDError{Field: "interaction", ID: t.game.interaction})
	}

	if n, err := strconv.Atoi(t.game.interaction); err == nil && n > 1 && t.cfg.ResumePrior {
		t.resume(strconv.Itoa(n - 1))
	}

	t.e.log.Info("game started",
		zap.String("participant", t.game.participant),
		zap.String("interaction", t.game.interaction))
	return step{next: s.Transition(state.GameStart)}
}

// resume loads what the participant and the agent agreed on in the prior
// interaction.
func (t *turn) resume(prior string) {
	if err := t.e.dis.LoadInteraction(t.cfg.StoragePath, t.game.participant, prior); err != nil {
		t.e.log.Warn("loading prior interaction failed",
			zap.String("participant", t.game.participant),
			zap.String("interaction", prior),
			zap.Error(err))
	}
	if t.e.prefs == nil {
		return
	}
	pref, err := t.e.prefs.LoadPreference(t.game.participant, prior)
	if err != nil {
		t.e.log.Warn("loading prior preference failed",
			zap.String("participant", t.game.participant),
			zap.String("interaction", prior),
			zap.Error(err))
		return
	}
	t.game.preference = pref
}

// scripted plays one block line per input. The last line waits for a game
// event, which moves on to next.
func (t *turn) scripted(s state.Session, in input, block string, cur *script.Cursor,
	set func(*script.Cursor) state.Change, next state.ConvState, changes ...state.Change) step {

	if !t.e.phrases.HasBlock(block, t.game.interaction) {
		return step{next: s.Transition(next, changes...)}
	}

	if cur == nil {
		lines, err := t.e.phrases.Statements(block, t.game.interaction)
		if err != nil {
			fail(err)
		}
		return step{next: s.Transition(s.Conv, set(script.New(lines))), pass: true}
	}

	if cur.Index() >= 0 && cur.Line().StoreInput && in.text != "" {
		t.storeAnswer(in.text)
	}

	if !cur.Final() {
		c := cur.Next()
		await := types.InputReply
		if c.Final() {
			await = types.InputGame
		}
		return step{
			next:  s.Transition(s.Conv, set(c)),
			reply: t.line(block, c.Line().Text, s),
			await: await,
		}
	}

	if in.event != nil {
		return step{next: s.Transition(next, append([]state.Change{set(nil)}, changes...)...)}
	}
	return step{next: s, await: types.InputReply}
}

func (t *turn) storeAnswer(answer string) {
	if t.e.prefs == nil {
		return
	}
	if err := t.e.prefs.SavePreference(t.game.participant, t.game.interaction, answer); err != nil {
		t.e.log.Warn("saving preference failed",
			zap.String("participant", t.game.participant),
			zap.Error(err))
	}
}

func (t *turn) roundStart(s state.Session) step {
	round := s.Round + 1
	t.e.dis.AdvanceRound(round == 1)

	next := s.Transition(state.QueryNext,
		state.WithRound(round),
		state.WithPosition(1),
		state.WithAttempts(1),
		state.ClearPending)
	return step{next: next, reply: t.say(KeyRoundStart, next, nil)}
}

func (t *turn) queryNext(s state.Session) step {
	key := KeyQueryRepeat
	if t.e.dis.Status() == types.StatusAwaitNext {
		key = KeyQueryNext
		if s.Position == 1 {
			key = KeyQueryFirst
		}
	}

	return step{
		next:  s.Transition(state.Disambiguation, state.WithAttempts(1)),
		reply: t.say(key, s, nil),
		await: types.InputReply,
	}
}

func (t *turn) disambiguation(s state.Session, in input) step {
	if in.text != "" {
		s = s.With(state.WithUtterance(in.text))
	}
	if s.Utterance == "" {
		return step{next: s, await: types.InputReply}
	}

	mention, ok := parser.ExtractMention(s.Utterance, t.optional(KeyMentionFiller))
	if !ok {
		return step{next: s.With(state.ClearInput), await: types.InputReply}
	}
	s = s.With(state.WithMention(mention))

	res := t.e.dis.Disambiguate(mention)
	status := t.e.dis.Status()
	t.annotations = append(t.annotations, types.Annotation{
		Selected:   res.Selected,
		Confidence: res.Confidence,
		Status:     status,
	})
	t.e.log.Debug("disambiguated",
		zap.String("mention", mention),
		zap.String("selected", res.Selected),
		zap.Float64("confidence", res.Confidence),
		zap.String("status", string(status)),
		zap.Bool("continuation", res.Continuation))

	var next state.Session
	switch status {
	case types.StatusSuccessHigh:
		next = s.Transition(state.Acknowledge,
			state.WithResult(res), state.WithConfirmation(state.Accepted), state.WithAttempts(1))
	case types.StatusSuccessLow:
		next = s.Transition(state.Acknowledge,
			state.WithResult(res), state.WithConfirmation(state.Confirm), state.WithAttempts(1))
	default:
		next = s.Transition(state.Repair, state.WithResult(res))
	}

	if res.Continuation {
		return step{next: s, await: types.InputReply, pending: &next}
	}
	return step{next: next}
}

func (t *turn) repair(s state.Session) step {
	if s.Attempts > t.cfg.MaxAttempts {
		return t.advance(s, true, t.say(KeyRepairSkip, s, nil))
	}

	var key string
	switch status := t.e.dis.Status(); status {
	case types.StatusNoMatch:
		key = KeyRepairNoMatch
	case types.StatusNegResponse:
		key = KeyRepairNegative
	case types.StatusMatchPrevious:
		key = KeyRepairPrevious
	case types.StatusMatchMultiple:
		key = KeyRepairMultiple
	default:
		fail(&StatusError{State: s.Conv, Status: status})
	}

	reply := t.say(key, s, nil)
	return step{
		next:  s.Transition(state.Disambiguation, state.WithAttempts(s.Attempts+1), state.ClearInput),
		reply: reply,
		await: types.InputReply,
	}
}

// advance moves to the next position, or finishes the round after the last
// one.
func (t *turn) advance(s state.Session, skip bool, reply string) step {
	position := s.Position + 1
	if position < t.cfg.AdvanceLimit {
		t.e.dis.AdvancePosition(skip)
	}

	to := state.QueryNext
	if position > t.cfg.MaxPosition {
		to = state.RoundFinish
	}
	return step{
		next: s.Transition(to,
			state.WithPosition(position),
			state.WithAttempts(1),
			state.ClearPending),
		reply: reply,
	}
}

func (t *turn) acknowledge(s state.Session, in input) step {
	switch s.Confirmation {
	case state.Accepted:
		return t.advance(s, false, t.acknowledgement(s))

	case state.Requested:
		if in.text == "" {
			return step{next: s, await: types.InputReply}
		}
		switch parser.Classify(in.text, t.variants(KeyConfirmYes), t.variants(KeyConfirmNo)) {
		case parser.AnswerYes:
			return step{next: s.Transition(state.Acknowledge, state.WithConfirmation(state.Accepted))}
		case parser.AnswerNo:
			reply := t.say(KeyConfirmRetry, s, nil)
			return step{
				next:  s.Transition(state.QueryNext, state.ClearPending),
				reply: reply,
			}
		default:
			return step{next: s, reply: t.say(KeyConfirmUnclear, s, nil), await: types.InputReply}
		}

	default:
		return step{
			next:  s.Transition(state.Acknowledge, state.WithConfirmation(state.Requested)),
			reply: t.say(KeyConfirmQuestion, s, nil),
			await: types.InputReply,
		}
	}
}

// acknowledgement builds the reply for an accepted selection. Only the
// wording varies; the dialogue continues the same way.
func (t *turn) acknowledgement(s state.Session) string {
	var res types.Disambiguation
	if s.Result != nil {
		res = *s.Result
	}

	description := res.Description
	if !t.cfg.HighEngagement {
		description = t.say(KeyReferentGeneric, s, nil)
	}
	slots := phrase.Slots{SlotPosition: res.Position, SlotDescription: description}

	key := KeyAckDifferent
	if res.Position == s.Position {
		key = KeyAckSame
	}
	reply := t.say(key, s, slots)

	if s.Round == 1 && t.e.phrases.Has(KeyAckHint, t.game.interaction) {
		reply += " " + t.say(KeyAckHint, s, nil)
	}
	if t.e.rng.Chance(t.cfg.EncouragementRate) && t.e.phrases.Has(KeyAckEncourage, t.game.interaction) {
		reply += " " + t.say(KeyAckEncourage, s, nil)
	}
	return reply
}

func (t *turn) roundFinish(s state.Session, in input) step {
	more := s.Round < t.cfg.Rounds

	if in.event != nil {
		if more {
			return step{next: s.Transition(state.RoundStart)}
		}
		return step{next: s.Transition(state.Outro)}
	}

	if s.Conv == state.Questionnaire {
		return step{next: s, await: types.InputGame}
	}

	if !t.cfg.questionnaire(s.Round) {
		reply := t.say(KeyRoundFinish, s, nil)
		if more {
			return step{next: s.Transition(state.Questionnaire), reply: reply, await: types.InputGame}
		}
		return step{next: s.Transition(state.Outro), reply: reply}
	}

	return step{
		next:  s.Transition(state.RoundFinish),
		reply: t.say(KeyQuestionnaire, s, nil),
		await: types.InputGame,
	}
}

func (t *turn) gameFinish(s state.Session, in input) step {
	if in.event != nil && in.event.State == types.EventRestart {
		t.e.log.Info("game restarted", zap.String("participant", t.game.participant))
		fresh := state.New()
		return step{next: s.Transition(state.GameInit, func(n *state.Session) { *n = fresh }), pass: true}
	}
	// Only the step that enters GameFinish says goodbye; later input waits.
	if n := len(t.path); n < 2 || t.path[n-1] != state.GameFinish {
		return step{next: s, await: types.InputGame}
	}

	reply := t.say(KeyGoodbye, s, nil)
	if err := t.e.dis.SaveInteraction(t.cfg.StoragePath, t.game.participant, t.game.interaction); err != nil {
		t.e.log.Warn("saving interaction failed",
			zap.String("participant", t.game.participant),
			zap.String("interaction", t.game.interaction),
			zap.Error(err))
	}
	return step{next: s, reply: reply, await: types.InputGame}
}

// say resolves key with the session's slots plus extra. Configuration
// errors abort the call.
func (t *turn) say(key string, s state.Session, extra phrase.Slots) string {
	text, err := t.e.phrases.Resolve(key, t.game.interaction, t.slots(s, extra))
	if err != nil {
		fail(err)
	}
	return text
}

// line fills the slots of a scripted line of block.
func (t *turn) line(block, text string, s state.Session) string {
	out, err := phrase.Fill(block, text, t.slots(s, nil))
	if err != nil {
		fail(err)
	}
	return out
}

func (t *turn) slots(s state.Session, extra phrase.Slots) phrase.Slots {
	slots := phrase.Slots{
		SlotRound:      s.Round,
		SlotPosition:   s.Position,
		SlotName:       t.game.name,
		SlotPreference: t.game.preference,
	}
	if s.Result != nil {
		slots[SlotDescription] = s.Result.Description
		slots[SlotDetail] = s.Result.Detail
	}
	for k, v := range extra {
		slots[k] = v
	}
	return slots
}

func (t *turn) variants(key string) []string {
	v, err := t.e.phrases.Variants(key, t.game.interaction)
	if err != nil {
		fail(err)
	}
	return v
}

func (t *turn) optional(key string) []string {
	if !t.e.phrases.Has(key, t.game.interaction) {
		return nil
	}
	return t.variants(key)
}
