package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/forPelevin/redub/internal/pipeline"
	"github.com/forPelevin/redub/internal/ports"
	"github.com/forPelevin/redub/internal/types"
)

func newStatusCommand(cc *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status [project]",
		Short: "List projects or show one project in detail",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			useColor(out)
			return cc.withApp(cmd, func(app *pipeline.App) error {
				ctx := cmd.Context()
				if len(args) == 0 {
					projects, err := app.Store.ListProjects(ctx)
					if err != nil {
						return err
					}
					if asJSON {
						return writeJSON(out, projects)
					}
					if len(projects) == 0 {
						fmt.Fprintln(out, "No projects. Create one with: redub project create <video>")
						return nil
					}
					fmt.Fprintln(out, renderProjects(projects, time.Now()))
					return nil
				}

				p, err := resolveProject(ctx, app.Store, args[0])
				if err != nil {
					return err
				}
				files, err := app.Store.ListFiles(ctx, p.ID)
				if err != nil {
					return err
				}
				spans, err := app.Store.GetCleanedSpans(ctx, p.ID)
				if err != nil && !errors.Is(err, ports.ErrNotFound) {
					return err
				}
				if asJSON {
					return writeJSON(out, struct {
						Project types.Project       `json:"project"`
						Files   []types.FileRecord  `json:"files"`
						Spans   []types.CleanedSpan `json:"cleaned_spans,omitempty"`
					}{p, files, spans})
				}
				fmt.Fprint(out, renderProject(p, files, spans, time.Now()))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func renderProjects(projects []types.Project, now time.Time) string {
	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		rows = append(rows, []string{
			shortID(p.ID),
			p.Name,
			statusLabel(p.Status),
			orDash(p.ProcessingStep),
			humanize.RelTime(p.UpdatedAt, now, "ago", "from now"),
		})
	}
	return renderTable([]string{"ID", "Name", "Status", "Step", "Updated"}, rows, nil)
}

func renderProject(p types.Project, files []types.FileRecord, spans []types.CleanedSpan, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Project  %s\n", p.ID)
	fmt.Fprintf(&b, "Name     %s\n", p.Name)
	fmt.Fprintf(&b, "Status   %s (%s)\n", statusLabel(p.Status), orDash(p.ProcessingStep))
	if p.ErrorMessage != "" {
		fmt.Fprintf(&b, "Message  %s\n", p.ErrorMessage)
	}
	fmt.Fprintf(&b, "Voice    %s\n", orDash(p.Voice))
	fmt.Fprintf(&b, "Avatar   %s, %s\n", orDash(p.Avatar.Position), orDash(p.Avatar.Size))
	if p.Zoom != nil && p.Zoom.Enabled {
		fmt.Fprintf(&b, "Zoom     %.2fs-%.2fs at %.2gx\n", p.Zoom.StartTime, p.Zoom.EndTime, p.Zoom.ZoomLevel)
	} else {
		fmt.Fprintln(&b, "Zoom     off")
	}
	fmt.Fprintf(&b, "Created  %s\n", humanize.RelTime(p.CreatedAt, now, "ago", "from now"))

	if len(files) > 0 {
		rows := make([][]string, 0, len(files))
		for _, f := range files {
			rows = append(rows, []string{
				string(f.Type),
				f.StorageKey,
				humanize.Bytes(uint64(max(f.Size, 0))),
				humanize.RelTime(f.CreatedAt, now, "ago", "from now"),
			})
		}
		b.WriteString(renderTable([]string{"File", "Key", "Size", "Stored"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft}))
		b.WriteString("\n")
	}
	if len(spans) > 0 {
		rows := make([][]string, 0, len(spans))
		for _, sp := range spans {
			cleaned := sp.CleanedText
			if cleaned == sp.OriginalText {
				cleaned = "="
			}
			rows = append(rows, []string{
				fmt.Sprintf("%d", sp.ID),
				fmt.Sprintf("%.2f-%.2f", sp.Start, sp.End),
				sp.OriginalText,
				cleaned,
			})
		}
		b.WriteString("\n")
		b.WriteString(renderTable([]string{"Span", "Time", "Original", "Cleaned"}, rows, []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft}))
		b.WriteString("\n")
	} else if p.CleanedScript != "" {
		fmt.Fprintf(&b, "\nScript\n%s\n", p.CleanedScript)
	}
	return b.String()
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
