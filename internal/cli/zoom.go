package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forPelevin/redub/internal/pipeline"
	"github.com/forPelevin/redub/internal/types"
)

func newZoomCommand(cc *commandContext) *cobra.Command {
	var (
		start, end, level float64
		centerX, centerY  float64
		disable           bool
	)
	cmd := &cobra.Command{
		Use:   "zoom <project>",
		Short: "Apply a manual zoom window and re-render the video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := types.ZoomConfig{Enabled: !disable, StartTime: start, EndTime: end, ZoomLevel: level}
			if cmd.Flags().Changed("center-x") {
				cfg.CenterX = &centerX
			}
			if cmd.Flags().Changed("center-y") {
				cfg.CenterY = &centerY
			}
			if cfg.Enabled && !cmd.Flags().Changed("end") {
				return fmt.Errorf("--end is required unless --disable is set")
			}
			return cc.withApp(cmd, func(app *pipeline.App) error {
				p, err := resolveProject(cmd.Context(), app.Store, args[0])
				if err != nil {
					return err
				}
				if err := app.ApplyZoom(cmd.Context(), p.ID, cfg); err != nil {
					return err
				}
				if !cfg.Enabled {
					fmt.Fprintf(cmd.OutOrStdout(), "Zoom disabled for %s\n", shortID(p.ID))
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Zoom %.2fs-%.2fs at %gx applied to %s\n", start, end, level, shortID(p.ID))
				return nil
			})
		},
	}
	cmd.Flags().Float64Var(&start, "start", 0, "Window start in seconds")
	cmd.Flags().Float64Var(&end, "end", 0, "Window end in seconds")
	cmd.Flags().Float64Var(&level, "level", 1.5, "Zoom factor (1-4)")
	cmd.Flags().Float64Var(&centerX, "center-x", 0.5, "Horizontal center as a fraction of the width")
	cmd.Flags().Float64Var(&centerY, "center-y", 0.5, "Vertical center as a fraction of the height")
	cmd.Flags().BoolVar(&disable, "disable", false, "Turn zoom off")
	return cmd
}
