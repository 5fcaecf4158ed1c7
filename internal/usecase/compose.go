package usecase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/forPelevin/redub/internal/domain/composition"
	"github.com/forPelevin/redub/internal/logging"
	"github.com/forPelevin/redub/internal/ports"
	"github.com/forPelevin/redub/internal/probe"
	"github.com/forPelevin/redub/internal/types"
)

// compose renders the processed video from the original, the narration (if
// any), the project's avatar (if any) and its zoom window (if enabled). With
// requireZoom, a zoom that cannot be built fails the composition instead of
// being skipped.
func (u Usecase) compose(ctx context.Context, p types.Project, videoPath string, info probe.Result, probeErr error, narrationPath, workDir string, requireZoom bool) error {
	log := logging.WithContext(ctx, u.log)

	plan := composition.Plan{Narration: narrationPath != ""}
	if probeErr == nil {
		plan.VideoDuration = info.Duration
		plan.FPS = info.FPS
	}

	if p.Zoom != nil && p.Zoom.Enabled {
		filter, err := composition.ZoomFilter(*p.Zoom, info.Width, info.Height, info.FPS)
		switch {
		case err == nil:
			plan.ZoomFilter = filter
		case requireZoom:
			return fmt.Errorf("build zoom: %w", err)
		default:
			log.Warn("zoom skipped", logging.Error(err))
		}
	}

	avatarPath, err := u.localFile(ctx, p.ID, types.FileAvatar)
	switch {
	case err == nil:
		plan.Overlay = &composition.Overlay{
			ImagePath: avatarPath,
			Size:      p.Avatar.Size,
			Position:  p.Avatar.Position,
		}
	case errors.Is(err, ports.ErrNotFound):
	default:
		log.Warn("avatar unavailable, composing without overlay", logging.Error(err))
	}

	spec := composition.Build(plan)
	out := filepath.Join(workDir, "processed.mp4")
	log.Debug("composing video", "graph", spec.Graph.String(), "shortest", spec.Shortest)
	if err := u.d.Video.Compose(ctx, spec.Args(videoPath, narrationPath, out)); err != nil {
		return err
	}

	key := ProcessedKey(p.ID)
	if err := u.importFile(ctx, p.ID, types.FileProcessed, key, out); err != nil {
		return err
	}
	if err := u.d.Store.SetProcessedVideo(ctx, p.ID, key); err != nil {
		return fmt.Errorf("record processed video: %w", err)
	}
	log.Info("video composed", "key", key, "zoom", plan.ZoomFilter != "", "overlay", plan.Overlay != nil)
	return nil
}
