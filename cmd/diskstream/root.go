package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tphakala/go-audio-diskstream/internal/logger"
)

// app carries the resolved configuration to the subcommands.
type app struct {
	cfg    *Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "diskstream",
		Short: "Stream audio files from disk without blocking the reader",
		Long: `diskstream plays WAV and MP3 files through a real-time disk stream:
a worker goroutine decodes ahead of the play position while the reader
never waits on I/O.

Use "diskstream [command] --help" for more information about a command.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			l, err := logger.Init(cfg.Logging)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = l
			return nil
		},
	}

	addStreamFlags(root.PersistentFlags())

	root.AddCommand(newDumpCmd(a))
	root.AddCommand(newSimulateCmd(a))
	root.CompletionOptions.DisableDefaultCmd = true

	return root
}
