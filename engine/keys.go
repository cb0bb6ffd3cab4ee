package engine

// Phrase keys looked up by the step functions.
const (
	KeyRoundStart      = "round.start"
	KeyQueryFirst      = "query.first"
	KeyQueryNext       = "query.next"
	KeyQueryRepeat     = "query.repeat"
	KeyAckSame         = "ack.same"
	KeyAckDifferent    = "ack.different"
	KeyAckHint         = "ack.hint"
	KeyAckEncourage    = "ack.encourage"
	KeyReferentGeneric = "referent.generic"
	KeyConfirmQuestion = "confirm.question"
	KeyConfirmRetry    = "confirm.retry"
	KeyConfirmUnclear  = "confirm.unclear"
	KeyConfirmYes      = "confirm.yes"
	KeyConfirmNo       = "confirm.no"
	KeyRepairNoMatch   = "repair.no_match"
	KeyRepairNegative  = "repair.negative"
	KeyRepairPrevious  = "repair.previous"
	KeyRepairMultiple  = "repair.multiple"
	KeyRepairSkip      = "repair.skip"
	KeyRoundFinish     = "round.finish"
	KeyQuestionnaire   = "round.questionnaire"
	KeyGoodbye         = "game.goodbye"
	KeyMentionFiller   = "mention.filler"
)

// Scripted blocks. Each one is optional; a missing block is skipped.
const (
	BlockGameStart = "game_start"
	BlockIntro     = "intro"
	BlockOutro     = "outro"
)

// Slot names every phrase may use.
const (
	SlotRound       = "round"
	SlotPosition    = "position"
	SlotDescription = "description"
	SlotDetail      = "detail"
	SlotName        = "name"
	SlotPreference  = "preference"
)

// Slots lists the slot names filled in by the engine.
var Slots = []string{SlotRound, SlotPosition, SlotDescription, SlotDetail, SlotName, SlotPreference}

// RequiredPhrases must be present in the default phrase table.
var RequiredPhrases = []string{
	KeyRoundStart,
	KeyQueryFirst,
	KeyQueryNext,
	KeyQueryRepeat,
	KeyAckSame,
	KeyAckDifferent,
	KeyConfirmQuestion,
	KeyConfirmRetry,
	KeyConfirmUnclear,
	KeyConfirmYes,
	KeyConfirmNo,
	KeyRepairNoMatch,
	KeyRepairNegative,
	KeyRepairPrevious,
	KeyRepairMultiple,
	KeyRepairSkip,
	KeyRoundFinish,
	KeyQuestionnaire,
	KeyGoodbye,
}

// OptionalPhrases are used when present.
var OptionalPhrases = []string{
	KeyAckHint,
	KeyAckEncourage,
	KeyReferentGeneric,
	KeyMentionFiller,
}

// Blocks lists the scripted blocks in the order they are played.
var Blocks = []string{BlockGameStart, BlockIntro, BlockOutro}
