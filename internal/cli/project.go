package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/forPelevin/redub/internal/pipeline"
	"github.com/forPelevin/redub/internal/types"
	"github.com/forPelevin/redub/internal/usecase"
)

func newProjectCommand(cc *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Create, configure and delete projects",
	}
	cmd.AddCommand(newProjectCreateCommand(cc))
	cmd.AddCommand(newProjectAvatarCommand(cc))
	cmd.AddCommand(newProjectDeleteCommand(cc))
	return cmd
}

func newProjectCreateCommand(cc *commandContext) *cobra.Command {
	var (
		name       string
		transcript string
		avatar     string
		voice      string
		position   string
		size       string
	)
	cmd := &cobra.Command{
		Use:   "create <video>",
		Short: "Register a recording as a new project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var tr *types.Transcript
			if transcript != "" {
				loaded, err := readTranscript(transcript)
				if err != nil {
					return err
				}
				tr = &loaded
			}
			return cc.withApp(cmd, func(app *pipeline.App) error {
				if position == "" {
					position = app.Config.Overlay.Position
				}
				if size == "" {
					size = app.Config.Overlay.Size
				}
				p, err := app.Usecase.CreateProject(cmd.Context(), usecase.NewProject{
					Name:       name,
					VideoPath:  args[0],
					AvatarPath: avatar,
					Voice:      voice,
					Avatar:     types.AvatarConfig{Position: position, Size: size},
					Transcript: tr,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created project %s (%s)\n", p.ID, p.Name)
				if tr == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "Next: redub transcribe %s\n", shortID(p.ID))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Project name (default: video file name)")
	cmd.Flags().StringVar(&transcript, "transcript", "", "Transcript JSON with timed segments")
	cmd.Flags().StringVar(&avatar, "avatar", "", "Presenter image to overlay")
	cmd.Flags().StringVar(&voice, "voice", "", "Synthesis voice (default from config)")
	cmd.Flags().StringVar(&position, "position", "", "Overlay position: bottom-right, bottom-left, top-right, top-left")
	cmd.Flags().StringVar(&size, "size", "", "Overlay size: small, medium, large")
	return cmd
}

func newProjectAvatarCommand(cc *commandContext) *cobra.Command {
	var position, size string
	cmd := &cobra.Command{
		Use:   "avatar <project> [image]",
		Short: "Set the overlay image or its placement",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cc.withApp(cmd, func(app *pipeline.App) error {
				p, err := resolveProject(cmd.Context(), app.Store, args[0])
				if err != nil {
					return err
				}
				image := ""
				if len(args) == 2 {
					image = args[1]
				}
				cfg := p.Avatar
				if position != "" {
					cfg.Position = position
				}
				if size != "" {
					cfg.Size = size
				}
				if err := app.Usecase.SetAvatar(cmd.Context(), p.ID, image, cfg); err != nil {
					return err
				}
				cfg = usecase.NormalizeAvatar(cfg)
				fmt.Fprintf(cmd.OutOrStdout(), "Avatar for %s: %s, %s\n", shortID(p.ID), cfg.Position, cfg.Size)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&position, "position", "", "Overlay position")
	cmd.Flags().StringVar(&size, "size", "", "Overlay size")
	return cmd
}

func newProjectDeleteCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <project>",
		Short: "Delete a project with its transcript and media",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cc.withApp(cmd, func(app *pipeline.App) error {
				p, err := resolveProject(cmd.Context(), app.Store, args[0])
				if err != nil {
					return err
				}
				if err := app.DeleteProject(cmd.Context(), p.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s (%s)\n", shortID(p.ID), p.Name)
				return nil
			})
		},
	}
}

func readTranscript(path string) (types.Transcript, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return types.Transcript{}, fmt.Errorf("read transcript: %w", err)
	}
	var tr types.Transcript
	if err := json.Unmarshal(b, &tr); err != nil {
		return types.Transcript{}, fmt.Errorf("parse transcript %s: %w", path, err)
	}
	return tr, nil
}
