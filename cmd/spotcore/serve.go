package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/nathoo/spotcore/engine"
	"github.com/nathoo/spotcore/service"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve games to a game UI over websockets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer func() { _ = a.log.Sync() }()

			factory := func(connID string, log *zap.Logger) (*engine.Engine, error) {
				return a.newEngine(log), nil
			}
			srv := service.New(factory, service.Options{
				CommitTimeout: a.cfg.Service.CommitTimeout,
				MicGating:     a.cfg.Service.MicGating,
			}, a.log)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx, a.cfg.Service.Addr)
		},
	}

	cmd.Flags().String("addr", "", "listen address (default from config)")
	_ = viper.BindPFlag("service.addr", cmd.Flags().Lookup("addr"))
	return cmd
}
