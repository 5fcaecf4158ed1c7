// Package cli implements the redub command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	root := newRootCommand()
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)

	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cc := &commandContext{}

	root := &cobra.Command{
		Use:           "redub",
		Short:         "Replace a recording's narration with clean, time-aligned synthetic speech",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := cc.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVarP(&cc.configFlag, "config", "c", "", "Configuration file path")
	root.PersistentFlags().BoolVarP(&cc.verbose, "verbose", "v", false, "Debug logging")

	root.AddCommand(newProjectCommand(cc))
	root.AddCommand(newTranscribeCommand(cc))
	root.AddCommand(newRunCommand(cc))
	root.AddCommand(newZoomCommand(cc))
	root.AddCommand(newStatusCommand(cc))
	root.AddCommand(newExportCommand(cc))
	root.AddCommand(newConfigCommand(cc))
	return root
}
