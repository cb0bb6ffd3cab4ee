package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nathoo/spotcore/config"
)

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "spotcore",
		Short: "Dialogue engine for the spot-the-difference reference game",
		Long: `SpotCore plays a reference game: over several rounds the agent and a
participant agree, position by position, on which character stands where.
Play it in a terminal, or serve it to a game UI over websockets.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.Init(cfgFile)
		},
	}

	// Global flags
	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./spotcore.yaml)")
	root.PersistentFlags().String("content", "", "directory holding the game's Lua files")
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	_ = viper.BindPFlag("content.dir", root.PersistentFlags().Lookup("content"))
	_ = viper.BindPFlag("logging.level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(newPlayCmd(), newServeCmd(), newCheckCmd(), newVersionCmd())
	return root
}
