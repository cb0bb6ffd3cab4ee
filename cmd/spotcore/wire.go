package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/nathoo/spotcore/config"
	"github.com/nathoo/spotcore/engine"
	"github.com/nathoo/spotcore/engine/resolve"
	"github.com/nathoo/spotcore/engine/save"
	"github.com/nathoo/spotcore/loader"
	"github.com/nathoo/spotcore/logging"
	"github.com/nathoo/spotcore/types"
)

// app is the loaded configuration and content shared by every engine.
type app struct {
	cfg     *config.Config
	content *types.Content
	log     *zap.Logger
}

// loadApp reads the configuration and compiles the content. outputs are
// passed to the logger; nil means stderr.
func loadApp(outputs ...string) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	log, err := logging.New(cfg.Logging.Level, cfg.Logging.Format, outputs...)
	if err != nil {
		return nil, err
	}
	content, err := loader.Load(cfg.Content.Dir, log)
	if err != nil {
		return nil, fmt.Errorf("loading game: %w", err)
	}
	log.Info("content loaded",
		zap.String("title", content.Title),
		zap.String("dir", cfg.Content.Dir),
		zap.Int("characters", len(content.Scene.Characters)),
		zap.Int("rounds", len(content.Scene.Rounds)))
	return &app{cfg: cfg, content: content, log: log}, nil
}

// newEngine builds an engine with its own scene state and random source.
// The seed is logged so a game can be replayed with game.seed.
func (a *app) newEngine(log *zap.Logger) *engine.Engine {
	seed := a.cfg.EngineSeed()
	log.Info("engine created", zap.Int64("seed", seed))

	scene := resolve.New(a.content.Scene, a.cfg.SceneOptions(), log)
	prefs := save.NewPreferences(a.cfg.Storage.Path, a.cfg.Preferences.Vocabulary, log)
	return engine.New(a.cfg.Engine(), scene, a.content.Phrases,
		engine.WithRNG(engine.NewRNG(seed)),
		engine.WithLogger(log),
		engine.WithPreferences(prefs),
	)
}
