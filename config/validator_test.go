package config

import (
	"strings"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"zero rounds", func(c *Config) { c.Game.Rounds = 0 }, "game.rounds"},
		{"zero max position", func(c *Config) { c.Game.MaxPosition = 0 }, "game.max_position"},
		{"questionnaire past last round", func(c *Config) { c.Game.QuestionnaireRounds = []int{7} }, "game.questionnaire_rounds"},
		{"negative advance limit", func(c *Config) { c.Game.AdvanceLimit = -1 }, "game.advance_limit"},
		{"advance limit too high", func(c *Config) { c.Game.AdvanceLimit = 7 }, "game.advance_limit"},
		{"zero max attempts", func(c *Config) { c.Game.MaxAttempts = 0 }, "game.max_attempts"},
		{"encouragement above 1", func(c *Config) { c.Game.EncouragementRate = 1.5 }, "game.encouragement_rate"},
		{"max steps too low", func(c *Config) { c.Game.MaxSteps = 3 }, "game.max_steps"},
		{"empty content dir", func(c *Config) { c.Content.Dir = "" }, "content.dir"},
		{"empty storage path", func(c *Config) { c.Storage.Path = "" }, "storage.path"},
		{"low above high", func(c *Config) { c.Scene.Low = 0.8 }, "scene.low"},
		{"high above 1", func(c *Config) { c.Scene.High = 2 }, "scene.high"},
		{"empty addr", func(c *Config) { c.Service.Addr = "" }, "service.addr"},
		{"zero commit timeout", func(c *Config) { c.Service.CommitTimeout = 0 }, "service.commit_timeout"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			errs := cfg.Validate()
			if len(errs) == 0 {
				t.Fatal("expected validation errors")
			}
			found := false
			for _, e := range errs {
				if e.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error for %s, got %v", tt.field, errs)
			}
		})
	}
}

func TestValidate_AcceptsBoundaries(t *testing.T) {
	cfg := Default()
	cfg.Game.AdvanceLimit = cfg.Game.MaxPosition + 1
	cfg.Game.EncouragementRate = 1
	cfg.Scene.Low = cfg.Scene.High
	cfg.Service.CommitTimeout = time.Millisecond
	cfg.Logging.Level = ""

	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("expected no errors, got %v", errs)
	}
}

func TestValidationErrors_Error(t *testing.T) {
	one := ValidationErrors{{Field: "game.rounds", Value: 0, Message: "must be at least 1"}}
	if got := one.Error(); got != "game.rounds: must be at least 1 (got: 0)" {
		t.Errorf("single error = %q", got)
	}

	two := append(one, ValidationError{Field: "scene.low", Value: 2, Message: "must be between 0 and 1"})
	got := two.Error()
	if !strings.HasPrefix(got, "2 validation errors:") {
		t.Errorf("multiple errors = %q", got)
	}
	if !strings.Contains(got, "2. scene.low") {
		t.Errorf("multiple errors should be numbered: %q", got)
	}

	if (ValidationErrors{}).Error() != "" {
		t.Error("empty ValidationErrors should have an empty message")
	}
}
