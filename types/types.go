// Package types defines the shared data structures for the SpotCore engine.
// This package contains only type definitions — no logic, no methods.
package types

// Status is the disambiguator's classification of the last match attempt.
type Status string

// Disambiguator statuses.
const (
	StatusAwaitNext     Status = "AWAIT_NEXT"
	StatusSuccessHigh   Status = "SUCCESS_HIGH"
	StatusSuccessLow    Status = "SUCCESS_LOW"
	StatusNoMatch       Status = "NO_MATCH"
	StatusNegResponse   Status = "NEG_RESPONSE"
	StatusMatchPrevious Status = "MATCH_PREVIOUS"
	StatusMatchMultiple Status = "MATCH_MULTIPLE"
)

// InputKind is the kind of external input the engine waits for.
type InputKind int

const (
	InputNone InputKind = iota
	InputGame
	InputReply
)

// Game event states with special meaning.
const (
	EventRestart = "restart"
)

// GameEvent is a game-control event delivered by the game UI.
type GameEvent struct {
	ParticipantID   string `json:"participant_id"`
	ParticipantName string `json:"participant_name,omitempty"`
	Round           string `json:"round,omitempty"`
	Interaction     string `json:"interaction,omitempty"` // interaction session id, "1" if empty
	State           string `json:"state,omitempty"`
	Input           string `json:"input,omitempty"` // free-form input typed in the game UI
}

// Disambiguation is the outcome of a single disambiguate call.
type Disambiguation struct {
	Selected     string  `json:"selected,omitempty"`     // character ID
	Confidence   float64 `json:"confidence"`             // 0..1
	Position     int     `json:"position,omitempty"`     // agent-side position of the selected character
	Description  string  `json:"description,omitempty"`  // how the agent refers to the selection
	Detail       string  `json:"detail,omitempty"`       // follow-up question material for ambiguous matches
	Continuation bool    `json:"continuation,omitempty"` // provisional, more input may follow
}

// Annotation is the diagnostic record produced for each disambiguation attempt.
type Annotation struct {
	Selected   string  `json:"selected,omitempty"`
	Confidence float64 `json:"confidence"`
	Status     Status  `json:"status"`
}

// Line is a single scripted narration line.
type Line struct {
	Text       string
	StoreInput bool // the reply to this line is persisted as a preference
}

// Character is a scene character the participant can refer to.
type Character struct {
	ID          string
	Name        string
	Description string   // referring expression the agent uses
	Keywords    []string // words a mention may use for this character
}

// RoundDef is the agent's arrangement of characters for one round.
// Positions[i] holds the character ID at position i+1.
type RoundDef struct {
	Positions []string
}

// SceneDef holds the characters and per-round arrangements.
type SceneDef struct {
	Characters map[string]Character
	Rounds     []RoundDef
}

// PhraseTable maps logical phrase keys to variants and block keys to lines.
type PhraseTable struct {
	Phrases map[string][]string
	Blocks  map[string][]Line
}

// PhraseDefs holds the default phrase table and per-session overrides.
type PhraseDefs struct {
	Default  PhraseTable
	Sessions map[string]PhraseTable
}

// Content is everything loaded from a content directory.
type Content struct {
	Title    string
	Language string
	Phrases  PhraseDefs
	Scene    SceneDef
}
