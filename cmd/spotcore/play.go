package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nathoo/spotcore/cli"
	"github.com/nathoo/spotcore/tui"
	"github.com/nathoo/spotcore/types"
)

type playOptions struct {
	participant string
	name        string
	interaction string
	plain       bool
	script      string
	trace       bool
	logFile     string
}

func newPlayCmd() *cobra.Command {
	var opts playOptions

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a game in the terminal",
		Long: `Play a game in the terminal. Type what the participant says; send game
events with /go (or game:<state> lines in a script).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.participant, "participant", "p", "p1", "participant id")
	cmd.Flags().StringVar(&opts.name, "name", "", "participant name used in greetings")
	cmd.Flags().StringVarP(&opts.interaction, "interaction", "i", "1", "interaction session id")
	cmd.Flags().BoolVar(&opts.plain, "plain", false, "use the plain line-based interface")
	cmd.Flags().StringVar(&opts.script, "script", "", "play the lines of a script file")
	cmd.Flags().BoolVar(&opts.trace, "trace", false, "show state paths and disambiguation results")
	cmd.Flags().StringVar(&opts.logFile, "log-file", "", "write logs to this file instead of stderr")

	return cmd
}

func runPlay(cmd *cobra.Command, opts playOptions) error {
	plain := opts.plain || opts.script != "" || !isTerminal()

	var outputs []string
	switch {
	case opts.logFile != "":
		outputs = []string{opts.logFile}
	case !plain:
		// The TUI owns the terminal.
		outputs = []string{os.DevNull}
	}

	a, err := loadApp(outputs...)
	if err != nil {
		return err
	}
	defer func() { _ = a.log.Sync() }()

	eng := a.newEngine(a.log)
	ev := types.GameEvent{
		ParticipantID:   opts.participant,
		ParticipantName: opts.name,
		Interaction:     opts.interaction,
	}

	if !plain {
		return tui.Run(eng, ev, a.content.Title)
	}

	c := cli.New(eng, ev)
	c.Out = cmd.OutOrStdout()
	c.Trace = opts.trace

	// Script mode: read the file and echo each line.
	if opts.script != "" {
		f, err := os.Open(opts.script)
		if err != nil {
			return fmt.Errorf("opening script: %w", err)
		}
		defer f.Close()
		c.In = f
		c.EchoInput = true
	} else {
		c.In = cmd.InOrStdin()
	}

	fmt.Fprintf(c.Out, "%s\n\n", a.content.Title)
	return c.Run()
}

// isTerminal returns true if stdout is a terminal (not piped/redirected).
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
