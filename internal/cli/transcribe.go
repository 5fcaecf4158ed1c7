package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forPelevin/redub/internal/pipeline"
)

func newTranscribeCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "transcribe <project>",
		Short: "Transcribe the original recording with whisper.cpp",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cc.withApp(cmd, func(app *pipeline.App) error {
				p, err := resolveProject(cmd.Context(), app.Store, args[0])
				if err != nil {
					return err
				}
				tr, err := app.Transcribe(cmd.Context(), p.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Transcribed %s: %d segments, %d words (%s)\n",
					shortID(p.ID), len(tr.Segments), len(tr.Words), orDash(tr.Language))
				return nil
			})
		},
	}
}
