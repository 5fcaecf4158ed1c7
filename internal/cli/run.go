package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forPelevin/redub/internal/pipeline"
)

func newRunCommand(cc *commandContext) *cobra.Command {
	var (
		outDir string
		noBar  bool
	)
	cmd := &cobra.Command{
		Use:   "run <project>",
		Short: "Clean the transcript, synthesize the voiceover and compose the video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cc.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireSynthesisKey(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			useColor(out)
			tracker := newProgressTracker(out, !noBar && isTerminal(out))
			defer tracker.finish()

			return cc.withApp(cmd, func(app *pipeline.App) error {
				p, err := resolveProject(cmd.Context(), app.Store, args[0])
				if err != nil {
					return err
				}
				if err := app.Runner.Run(cmd.Context(), p.ID); err != nil {
					return err
				}
				tracker.finish()

				done, err := app.Store.GetProject(cmd.Context(), p.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s %s\n", statusLabel(done.Status), done.ProcessingStep)
				if done.ErrorMessage != "" {
					fmt.Fprintf(out, "  %s\n", done.ErrorMessage)
				}
				if strings.TrimSpace(outDir) == "" {
					return nil
				}
				return exportTo(cmd.Context(), out, app, p.ID, outDir)
			}, pipeline.WithProgress(tracker.observe))
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "", "Copy the result into this directory")
	cmd.Flags().BoolVar(&noBar, "no-progress", false, "Print steps instead of a progress bar")
	return cmd
}

func newExportCommand(cc *commandContext) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "export <project>",
		Short: "Copy the processed video, or the voiceover, out of storage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cc.withApp(cmd, func(app *pipeline.App) error {
				p, err := resolveProject(cmd.Context(), app.Store, args[0])
				if err != nil {
					return err
				}
				return exportTo(cmd.Context(), cmd.OutOrStdout(), app, p.ID, outDir)
			})
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "out", "Output directory")
	return cmd
}

func exportTo(ctx context.Context, out io.Writer, app *pipeline.App, projectID, dir string) error {
	path, err := app.Runner.Export(ctx, projectID, dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Exported %s\n", path)
	return nil
}
