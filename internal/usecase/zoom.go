package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/forPelevin/redub/internal/logging"
	"github.com/forPelevin/redub/internal/ports"
	"github.com/forPelevin/redub/internal/probe"
	"github.com/forPelevin/redub/internal/types"
)

// ApplyZoom stores the zoom window and, when it is enabled, re-renders the
// processed video from the original with the existing narration. A disabled
// window is only persisted.
func (u Usecase) ApplyZoom(ctx context.Context, projectID string, cfg types.ZoomConfig) error {
	ctx = logging.WithStage(logging.WithProjectID(ctx, projectID), "zoom")
	log := logging.WithContext(ctx, u.log)

	if cfg.Enabled && cfg.EndTime <= cfg.StartTime {
		return fmt.Errorf("zoom window %.2f-%.2f: end must follow start", cfg.StartTime, cfg.EndTime)
	}
	p, err := u.d.Store.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if p.Status.Processing() {
		return ErrBusy
	}
	if err := u.d.Store.SetZoomConfig(ctx, projectID, &cfg); err != nil {
		return err
	}
	if !cfg.Enabled {
		log.Info("zoom disabled")
		return nil
	}
	p.Zoom = &cfg

	videoPath, err := u.localFile(ctx, projectID, types.FileOriginal)
	if err != nil {
		return fmt.Errorf("original video: %w", err)
	}
	info, probeErr := u.d.Prober.Probe(ctx, videoPath)
	if probeErr != nil && !errors.Is(probeErr, probe.ErrNoDuration) {
		return fmt.Errorf("probe original: %w", probeErr)
	}
	if info.Width <= 0 || info.Height <= 0 {
		return errors.New("probe original: frame size unknown")
	}
	if probeErr != nil {
		log.Warn("video duration unknown, composing to the shortest stream", logging.Error(probeErr))
	}

	narration, err := u.localFile(ctx, projectID, types.FileAudio)
	switch {
	case err == nil:
	case errors.Is(err, ports.ErrNotFound):
		narration = ""
	default:
		return fmt.Errorf("narration: %w", err)
	}

	workDir, cleanup, err := u.newWorkDir(projectID, "zoom-"+uuid.NewString()[:8])
	if err != nil {
		return err
	}
	defer cleanup()

	if err := u.compose(ctx, p, videoPath, info, probeErr, narration, workDir, true); err != nil {
		return fmt.Errorf("apply zoom: %w", err)
	}
	log.Info("zoom applied", "start", cfg.StartTime, "end", cfg.EndTime, "level", cfg.ZoomLevel)
	return nil
}
