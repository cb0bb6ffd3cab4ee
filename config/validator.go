package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "game.max_position")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidLogFormats returns the list of valid log formats
func ValidLogFormats() []string {
	return []string{"console", "json"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateGame()...)
	errors = append(errors, c.validateContent()...)
	errors = append(errors, c.validateScene()...)
	errors = append(errors, c.validateService()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

// validateGame validates the GameConfig
func (c *Config) validateGame() []ValidationError {
	var errors []ValidationError
	g := c.Game

	if g.Rounds < 1 {
		errors = append(errors, ValidationError{
			Field:   "game.rounds",
			Value:   g.Rounds,
			Message: "must be at least 1",
		})
	}
	if g.MaxPosition < 1 {
		errors = append(errors, ValidationError{
			Field:   "game.max_position",
			Value:   g.MaxPosition,
			Message: "must be at least 1",
		})
	}
	for _, r := range g.QuestionnaireRounds {
		if r < 1 || r > g.Rounds {
			errors = append(errors, ValidationError{
				Field:   "game.questionnaire_rounds",
				Value:   g.QuestionnaireRounds,
				Message: fmt.Sprintf("round %d is outside 1..%d", r, g.Rounds),
			})
		}
	}
	if g.AdvanceLimit < 0 || g.AdvanceLimit > g.MaxPosition+1 {
		errors = append(errors, ValidationError{
			Field:   "game.advance_limit",
			Value:   g.AdvanceLimit,
			Message: fmt.Sprintf("must be between 0 and max_position+1 (%d)", g.MaxPosition+1),
		})
	}
	if g.MaxAttempts < 1 {
		errors = append(errors, ValidationError{
			Field:   "game.max_attempts",
			Value:   g.MaxAttempts,
			Message: "must be at least 1",
		})
	}
	if g.EncouragementRate < 0 || g.EncouragementRate > 1 {
		errors = append(errors, ValidationError{
			Field:   "game.encouragement_rate",
			Value:   g.EncouragementRate,
			Message: "must be between 0 and 1",
		})
	}
	// Every input passes through a handful of states; anything much lower
	// cannot finish a round.
	const minSteps = 10
	if g.MaxSteps < minSteps {
		errors = append(errors, ValidationError{
			Field:   "game.max_steps",
			Value:   g.MaxSteps,
			Message: fmt.Sprintf("must be at least %d", minSteps),
		})
	}

	return errors
}

func (c *Config) validateContent() []ValidationError {
	var errors []ValidationError

	if c.Content.Dir == "" {
		errors = append(errors, ValidationError{
			Field:   "content.dir",
			Value:   c.Content.Dir,
			Message: "is required",
		})
	}
	if c.Storage.Path == "" {
		errors = append(errors, ValidationError{
			Field:   "storage.path",
			Value:   c.Storage.Path,
			Message: "is required",
		})
	}

	return errors
}

// validateScene validates the SceneConfig
func (c *Config) validateScene() []ValidationError {
	var errors []ValidationError

	if c.Scene.Low < 0 || c.Scene.Low > 1 {
		errors = append(errors, ValidationError{
			Field:   "scene.low",
			Value:   c.Scene.Low,
			Message: "must be between 0 and 1",
		})
	}
	if c.Scene.High < 0 || c.Scene.High > 1 {
		errors = append(errors, ValidationError{
			Field:   "scene.high",
			Value:   c.Scene.High,
			Message: "must be between 0 and 1",
		})
	}
	if c.Scene.Low > c.Scene.High {
		errors = append(errors, ValidationError{
			Field:   "scene.low",
			Value:   c.Scene.Low,
			Message: fmt.Sprintf("must not exceed scene.high (%v)", c.Scene.High),
		})
	}

	return errors
}

// validateService validates the ServiceConfig
func (c *Config) validateService() []ValidationError {
	var errors []ValidationError

	if c.Service.Addr == "" {
		errors = append(errors, ValidationError{
			Field:   "service.addr",
			Value:   c.Service.Addr,
			Message: "is required",
		})
	}
	if c.Service.CommitTimeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "service.commit_timeout",
			Value:   c.Service.CommitTimeout,
			Message: "must be positive",
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}
	if c.Logging.Format != "" && !slices.Contains(ValidLogFormats(), c.Logging.Format) {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Value:   c.Logging.Format,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogFormats(), ", ")),
		})
	}

	return errors
}
