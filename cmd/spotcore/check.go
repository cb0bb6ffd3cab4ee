package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Load and validate the game content",
		Long: `Load and validate the game content. Errors fail the command; warnings
are logged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer func() { _ = a.log.Sync() }()

			out := cmd.OutOrStdout()
			c := a.content
			fmt.Fprintf(out, "%s (%s)\n", c.Title, c.Language)
			fmt.Fprintf(out, "  characters: %d\n", len(c.Scene.Characters))
			fmt.Fprintf(out, "  rounds:     %d\n", len(c.Scene.Rounds))
			fmt.Fprintf(out, "  sessions:   %d\n", len(c.Phrases.Sessions))
			fmt.Fprintln(out, "OK")
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "spotcore %s (commit %s, built %s)\n", version, commit, date)
			return nil
		},
	}
}
