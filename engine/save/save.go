// Package save implements the JSON files a game leaves behind: the
// participant's outro preference and the interaction history used to
// resume with common ground in a later session.
package save

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"go.uber.org/zap"

	"github.com/nathoo/spotcore/engine/parser"
)

// Version is written into every interaction record.
const Version = "1"

// Entry is one agreed position.
type Entry struct {
	Round     int    `json:"round"`
	Position  int    `json:"position"`
	Character string `json:"character"`
	Mention   string `json:"mention"`
}

// Interaction is the history of one interaction session.
type Interaction struct {
	Version     string  `json:"version"`
	Participant string  `json:"participant"`
	Session     string  `json:"session"`
	Entries     []Entry `json:"entries"`
}

// PreferenceRecord is the participant's free answer and the vocabulary
// entry it mentions, if any.
type PreferenceRecord struct {
	Answer     string `json:"answer"`
	Preference string `json:"preference"`
}

// ErrInvalidID is returned for participant or session ids that cannot be
// used in a file name.
var ErrInvalidID = errors.New("invalid id")

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidID reports whether id may name a participant or session: letters,
// digits, '_' and '-' only.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

func checkIDs(participant, session string) error {
	for _, id := range []string{participant, session} {
		if !ValidID(id) {
			return fmt.Errorf("%w: %q", ErrInvalidID, id)
		}
	}
	return nil
}

// InteractionPath returns where the history for participant and session
// lives under dir. Callers check the ids with ValidID first.
func InteractionPath(dir, participant, session string) string {
	return filepath.Join(dir, "scene", fmt.Sprintf("pp_%s_int%s_interaction.json", participant, session))
}

// PreferencePath returns where the preference for participant and session
// lives under dir.
func PreferencePath(dir, participant, session string) string {
	return filepath.Join(dir, "dialog", fmt.Sprintf("pp_%s_int%s_preferences.json", participant, session))
}

// Marshal serializes an interaction record.
func Marshal(in *Interaction) ([]byte, error) {
	if in.Version == "" {
		in.Version = Version
	}
	return json.MarshalIndent(in, "", "  ")
}

// Unmarshal deserializes an interaction record.
func Unmarshal(data []byte) (*Interaction, error) {
	var in Interaction
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, err
	}
	// Ensure entries are never nil after load.
	if in.Entries == nil {
		in.Entries = []Entry{}
	}
	return &in, nil
}

// WriteInteraction stores the record at InteractionPath.
func WriteInteraction(dir string, in *Interaction) error {
	data, err := Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding interaction: %w", err)
	}
	if err := checkIDs(in.Participant, in.Session); err != nil {
		return err
	}
	return writeFile(InteractionPath(dir, in.Participant, in.Session), data)
}

// ReadInteraction loads the record for participant and session.
func ReadInteraction(dir, participant, session string) (*Interaction, error) {
	if err := checkIDs(participant, session); err != nil {
		return nil, err
	}
	path := InteractionPath(dir, participant, session)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading interaction: %w", err)
	}
	in, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return in, nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Preferences stores outro answers as preference records.
type Preferences struct {
	dir        string
	vocabulary map[string][]string
	log        *zap.Logger
}

// NewPreferences creates a store rooted at dir. vocabulary maps a
// preference name to the words that select it.
func NewPreferences(dir string, vocabulary map[string][]string, log *zap.Logger) *Preferences {
	if log == nil {
		log = zap.NewNop()
	}
	return &Preferences{
		dir:        dir,
		vocabulary: vocabulary,
		log:        log.With(zap.String("component", "preferences")),
	}
}

// SavePreference writes answer and the vocabulary entry it mentions.
func (p *Preferences) SavePreference(participant, session, answer string) error {
	if err := checkIDs(participant, session); err != nil {
		return err
	}
	rec := PreferenceRecord{
		Answer:     answer,
		Preference: parser.MatchKeyword(answer, p.vocabulary),
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding preference: %w", err)
	}
	if err := writeFile(PreferencePath(p.dir, participant, session), data); err != nil {
		return err
	}
	p.log.Debug("preference saved",
		zap.String("participant", participant),
		zap.String("session", session),
		zap.String("preference", rec.Preference))
	return nil
}

// Record returns the stored record. A missing or unreadable file means
// there is no prior data and is reported as ok == false.
func (p *Preferences) Record(participant, session string) (rec PreferenceRecord, ok bool) {
	if checkIDs(participant, session) != nil {
		return PreferenceRecord{}, false
	}
	path := PreferencePath(p.dir, participant, session)
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			p.log.Warn("reading preference failed", zap.String("path", path), zap.Error(err))
		}
		return PreferenceRecord{}, false
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		p.log.Warn("corrupt preference file", zap.String("path", path), zap.Error(err))
		return PreferenceRecord{}, false
	}
	return rec, true
}

// LoadPreference returns the preference name stored for participant and
// session, or "" when there is none.
func (p *Preferences) LoadPreference(participant, session string) (string, error) {
	rec, _ := p.Record(participant, session)
	return rec.Preference, nil
}
