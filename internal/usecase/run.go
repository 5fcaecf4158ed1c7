package usecase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/forPelevin/redub/internal/domain/segments"
	"github.com/forPelevin/redub/internal/logging"
	"github.com/forPelevin/redub/internal/ports"
	"github.com/forPelevin/redub/internal/probe"
	"github.com/forPelevin/redub/internal/types"
)

const (
	StepStarting  = "Starting"
	StepCleaning  = "Cleaning transcript with AI"
	StepCleaned   = "Transcript cleaned"
	StepVoiceover = "Generating AI voiceover"
	StepVoiced    = "Voiceover generated"
	StepVideo     = "Processing video with avatar"
	StepComplete  = "Processing complete"
	StepFailed    = "Processing failed"

	// wordsPerSecond sizes the fallback span when the video length is unknown.
	wordsPerSecond = 2.5
)

// Run executes the full pipeline for one project: cleaning, voiceover and
// video composition. Cleaning never fails the run; a voiceover failure moves
// the project to error; a composition failure still completes the project
// with a warning since the voiceover is usable on its own.
func (u Usecase) Run(ctx context.Context, projectID string) error {
	runID := uuid.NewString()[:8]
	ctx = logging.WithRunID(logging.WithProjectID(ctx, projectID), runID)
	log := logging.WithContext(ctx, u.log)

	p, err := u.d.Store.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	tr, err := u.d.Store.GetTranscript(ctx, projectID)
	if err != nil && !errors.Is(err, ports.ErrNotFound) {
		u.fail(ctx, projectID, fmt.Sprintf("Failed to load transcript: %s", err))
		return err
	}
	if errors.Is(err, ports.ErrNotFound) || (strings.TrimSpace(tr.Text) == "" && len(tr.Segments) == 0) {
		u.fail(ctx, projectID, "No transcript available for processing")
		return ErrNoTranscript
	}

	workDir, cleanup, err := u.newWorkDir(projectID, runID)
	if err != nil {
		u.fail(ctx, projectID, err.Error())
		return err
	}
	defer cleanup()

	videoPath, err := u.localFile(ctx, projectID, types.FileOriginal)
	if err != nil {
		log.Warn("original video unavailable", logging.Error(err))
		videoPath = ""
	}
	var (
		info     probe.Result
		probeErr = errors.New("no video")
	)
	if videoPath != "" {
		info, probeErr = u.d.Prober.Probe(ctx, videoPath)
		if probeErr != nil {
			log.Warn("video duration unknown, narration will not be padded", logging.Error(probeErr))
		} else {
			log.Info("video probed", "duration", info.Duration, "fps", info.FPS, "strategy", info.Strategy)
		}
	}
	videoDuration := 0.0
	if probeErr == nil {
		videoDuration = info.Duration
	}

	// Cleaning.
	u.setStatus(ctx, projectID, types.StatusUpdate{Status: types.StatusCleaning, Step: StepCleaning, ClearMessage: true})
	spans := segments.Merge(tr.Segments)
	if len(spans) == 0 {
		spans = fallbackSpan(tr.Text, videoDuration)
		log.Info("transcript has no segments, using a single span", "end", spans[0].End)
	}
	cleaned := CleanSpans(logging.WithStage(ctx, "cleaning"), u.d.Cleaner, spans, log.With(logging.FieldStage, "cleaning"))
	if err := u.d.Store.SaveCleanedTranscript(ctx, projectID, cleaned, Script(cleaned)); err != nil {
		log.Warn("persisting cleaned transcript failed", logging.Error(err))
	}
	u.setStatus(ctx, projectID, types.StatusUpdate{Status: types.StatusCleaned, Step: StepCleaned})

	// Voiceover.
	u.setStatus(ctx, projectID, types.StatusUpdate{Status: types.StatusGeneratingVoice, Step: StepVoiceover})
	voice := p.Voice
	if voice == "" {
		voice = u.opt.DefaultVoice
	}
	narrationPath := filepath.Join(workDir, "narration.mp3")
	rec := Reconciler{
		Synth:       u.d.Synth,
		Audio:       u.d.Audio,
		Log:         log.With(logging.FieldStage, "voiceover"),
		Concurrency: u.opt.SynthConcurrency,
		OnClip: func(c SynthesizedClip) {
			u.emit(Progress{ProjectID: projectID, Status: types.StatusGeneratingVoice, Step: StepVoiceover, Clip: &c, Total: len(cleaned)})
		},
	}
	track, err := rec.Reconcile(ctx, cleaned, voice, videoDuration, workDir, narrationPath)
	if err == nil {
		err = u.importFile(ctx, projectID, types.FileAudio, VoiceoverKey(projectID), track.Path)
	}
	if err != nil {
		u.fail(ctx, projectID, fmt.Sprintf("Voiceover generation failed: %s", err))
		return fmt.Errorf("voiceover: %w", err)
	}
	log.Info("voiceover ready", "duration", track.Duration, "clips", len(track.Clips), "dropped", len(track.Dropped))
	u.setStatus(ctx, projectID, types.StatusUpdate{Status: types.StatusGeneratedVoiceover, Step: StepVoiced})

	// Video.
	if videoPath == "" {
		u.setStatus(ctx, projectID, types.StatusUpdate{
			Status:  types.StatusComplete,
			Step:    StepComplete,
			Message: "Video processing skipped, voiceover available separately",
		})
		return nil
	}
	u.setStatus(ctx, projectID, types.StatusUpdate{Status: types.StatusProcessingVideo, Step: StepVideo})
	if err := u.compose(logging.WithStage(ctx, "video"), p, videoPath, info, probeErr, track.Path, workDir, false); err != nil {
		log.Error("video processing failed, voiceover kept", logging.Error(err))
		u.setStatus(ctx, projectID, types.StatusUpdate{
			Status:  types.StatusComplete,
			Step:    StepComplete,
			Message: fmt.Sprintf("Video processing failed: %s, but voiceover is available", firstLine(err.Error())),
		})
		return nil
	}
	u.setStatus(ctx, projectID, types.StatusUpdate{Status: types.StatusComplete, Step: StepComplete, ClearMessage: true})
	log.Info("pipeline complete")
	return nil
}

// fallbackSpan covers a transcript without segments with a single span.
func fallbackSpan(text string, videoDuration float64) []types.MergedSpan {
	end := videoDuration
	if end <= 0 {
		end = float64(len(strings.Fields(text))) / wordsPerSecond
		if end < 1 {
			end = 1
		}
	}
	return []types.MergedSpan{{ID: 0, Start: 0, End: end, Text: strings.TrimSpace(text)}}
}

// setStatus writes a status even when ctx is already canceled so the
// project never stays in a processing state after the run returns.
func (u Usecase) setStatus(ctx context.Context, projectID string, upd types.StatusUpdate) {
	if err := u.d.Store.UpdateStatus(context.WithoutCancel(ctx), projectID, upd); err != nil {
		logging.WithContext(ctx, u.log).Error("status update failed", "status", string(upd.Status), logging.Error(err))
	}
	u.emit(Progress{ProjectID: projectID, Status: upd.Status, Step: upd.Step})
}

func (u Usecase) fail(ctx context.Context, projectID, msg string) {
	u.setStatus(ctx, projectID, types.StatusUpdate{Status: types.StatusError, Step: StepFailed, Message: msg})
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
