// Package config loads SpotCore settings through viper: defaults, an
// optional spotcore.yaml and SPOTCORE_* environment variables.
package config

import (
	"math/rand"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/nathoo/spotcore/engine"
	"github.com/nathoo/spotcore/engine/resolve"
)

// Config represents the complete SpotCore configuration
type Config struct {
	Game        GameConfig        `mapstructure:"game"`
	Content     ContentConfig     `mapstructure:"content"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Preferences PreferencesConfig `mapstructure:"preferences"`
	Scene       SceneConfig       `mapstructure:"scene"`
	Service     ServiceConfig     `mapstructure:"service"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// GameConfig controls the shape of a game and the dialogue policy
type GameConfig struct {
	Rounds              int   `mapstructure:"rounds"`
	MaxPosition         int   `mapstructure:"max_position"`
	QuestionnaireRounds []int `mapstructure:"questionnaire_rounds"`
	// AdvanceLimit is the position below which an acknowledged match moves
	// the disambiguator forward (0 = max_position + 1)
	AdvanceLimit int `mapstructure:"advance_limit"`
	// MaxAttempts is the number of repairs before a position is skipped
	MaxAttempts       int     `mapstructure:"max_attempts"`
	EncouragementRate float64 `mapstructure:"encouragement_rate"`
	// HighEngagement makes acknowledgements repeat the full description
	HighEngagement bool   `mapstructure:"high_engagement"`
	PauseMarker    string `mapstructure:"pause_marker"`
	MaxSteps       int    `mapstructure:"max_steps"`
	// ResumePrior loads the previous interaction and preference when a
	// participant starts interaction 2 or later
	ResumePrior bool `mapstructure:"resume_prior"`
	// Seed fixes the random source for replay; 0 picks a new seed for
	// every engine
	Seed int64 `mapstructure:"seed"`
}

// ContentConfig points at the Lua content directory
type ContentConfig struct {
	Dir string `mapstructure:"dir"`
}

// StorageConfig controls where interaction and preference records live
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// PreferencesConfig maps a preference name to the words that select it
type PreferencesConfig struct {
	Vocabulary map[string][]string `mapstructure:"vocabulary"`
}

// SceneConfig tunes the scene disambiguator
type SceneConfig struct {
	High float64 `mapstructure:"high"`
	Low  float64 `mapstructure:"low"`
}

// ServiceConfig controls the websocket service
type ServiceConfig struct {
	Addr string `mapstructure:"addr"`
	// CommitTimeout is how long a continuation may stay pending before it is
	// committed
	CommitTimeout time.Duration `mapstructure:"commit_timeout"`
	// MicGating ignores text while an utterance is handled until the next
	// mic message
	MicGating bool `mapstructure:"mic_gating"`
}

// LoggingConfig controls the zap logger
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns the default configuration
func Default() *Config {
	eng := engine.DefaultConfig()
	scene := resolve.DefaultOptions()
	return &Config{
		Game: GameConfig{
			Rounds:              eng.Rounds,
			MaxPosition:         eng.MaxPosition,
			QuestionnaireRounds: eng.QuestionnaireRounds,
			MaxAttempts:         eng.MaxAttempts,
			EncouragementRate:   eng.EncouragementRate,
			HighEngagement:      eng.HighEngagement,
			PauseMarker:         eng.PauseMarker,
			MaxSteps:            eng.MaxSteps,
		},
		Content: ContentConfig{
			Dir: "games/spot_nl",
		},
		Storage: StorageConfig{
			Path: eng.StoragePath,
		},
		Preferences: PreferencesConfig{
			Vocabulary: map[string][]string{
				"piraat":    {"piraat", "ooglap", "zwaard"},
				"robot":     {"robot", "antenne"},
				"clown":     {"clown", "neus"},
				"heks":      {"heks", "bezem"},
				"ridder":    {"ridder", "harnas", "schild"},
				"astronaut": {"astronaut", "raket", "ruimte"},
				"kok":       {"kok", "koksmuts"},
			},
		},
		Scene: SceneConfig{
			High: scene.High,
			Low:  scene.Low,
		},
		Service: ServiceConfig{
			Addr:          ":8080",
			CommitTimeout: 2 * time.Second,
			MicGating:     true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// SetDefaults registers every default with viper
func SetDefaults() {
	defaults := Default()

	// Game defaults
	viper.SetDefault("game.rounds", defaults.Game.Rounds)
	viper.SetDefault("game.max_position", defaults.Game.MaxPosition)
	viper.SetDefault("game.questionnaire_rounds", defaults.Game.QuestionnaireRounds)
	viper.SetDefault("game.advance_limit", defaults.Game.AdvanceLimit)
	viper.SetDefault("game.max_attempts", defaults.Game.MaxAttempts)
	viper.SetDefault("game.encouragement_rate", defaults.Game.EncouragementRate)
	viper.SetDefault("game.high_engagement", defaults.Game.HighEngagement)
	viper.SetDefault("game.pause_marker", defaults.Game.PauseMarker)
	viper.SetDefault("game.max_steps", defaults.Game.MaxSteps)
	viper.SetDefault("game.resume_prior", defaults.Game.ResumePrior)
	viper.SetDefault("game.seed", defaults.Game.Seed)

	viper.SetDefault("content.dir", defaults.Content.Dir)
	viper.SetDefault("storage.path", defaults.Storage.Path)
	viper.SetDefault("preferences.vocabulary", defaults.Preferences.Vocabulary)

	// Scene defaults
	viper.SetDefault("scene.high", defaults.Scene.High)
	viper.SetDefault("scene.low", defaults.Scene.Low)

	// Service defaults
	viper.SetDefault("service.addr", defaults.Service.Addr)
	viper.SetDefault("service.commit_timeout", defaults.Service.CommitTimeout)
	viper.SetDefault("service.mic_gating", defaults.Service.MicGating)

	// Logging defaults
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.format", defaults.Logging.Format)
}

// Init points viper at cfgFile, or at spotcore.yaml in the working
// directory when cfgFile is empty, and enables SPOTCORE_* overrides.
// A missing config file is not an error.
func Init(cfgFile string) error {
	SetDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("spotcore")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("SPOTCORE")
	// SPOTCORE_GAME_ROUNDS for game.rounds
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && cfgFile == "" {
			return nil
		}
		return err
	}
	return nil
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Engine returns the engine parameters.
func (c *Config) Engine() engine.Config {
	return engine.Config{
		Rounds:              c.Game.Rounds,
		MaxPosition:         c.Game.MaxPosition,
		QuestionnaireRounds: c.Game.QuestionnaireRounds,
		AdvanceLimit:        c.Game.AdvanceLimit,
		MaxAttempts:         c.Game.MaxAttempts,
		EncouragementRate:   c.Game.EncouragementRate,
		HighEngagement:      c.Game.HighEngagement,
		PauseMarker:         c.Game.PauseMarker,
		MaxSteps:            c.Game.MaxSteps,
		ResumePrior:         c.Game.ResumePrior,
		StoragePath:         c.Storage.Path,
	}
}

// EngineSeed returns the configured seed, or a fresh non-zero random seed
// when none is configured.
func (c *Config) EngineSeed() int64 {
	if c.Game.Seed != 0 {
		return c.Game.Seed
	}
	for {
		if seed := rand.Int63(); seed != 0 {
			return seed
		}
	}
}

// SceneOptions returns the scene disambiguator options.
func (c *Config) SceneOptions() resolve.Options {
	opts := resolve.DefaultOptions()
	opts.High = c.Scene.High
	opts.Low = c.Scene.Low
	return opts
}
