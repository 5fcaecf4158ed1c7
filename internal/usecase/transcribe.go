package usecase

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/forPelevin/redub/internal/logging"
	"github.com/forPelevin/redub/internal/types"
)

// Transcribe extracts the original's audio, runs speech recognition and
// stores the transcript, replacing any earlier one.
func (u Usecase) Transcribe(ctx context.Context, projectID string) (types.Transcript, error) {
	ctx = logging.WithStage(logging.WithProjectID(ctx, projectID), "transcribe")
	log := logging.WithContext(ctx, u.log)

	if u.d.ASR == nil {
		return types.Transcript{}, fmt.Errorf("transcribe: no speech recognizer configured")
	}
	p, err := u.d.Store.GetProject(ctx, projectID)
	if err != nil {
		return types.Transcript{}, err
	}
	if p.Status.Processing() {
		return types.Transcript{}, ErrBusy
	}
	videoPath, err := u.localFile(ctx, projectID, types.FileOriginal)
	if err != nil {
		return types.Transcript{}, fmt.Errorf("original video: %w", err)
	}

	workDir, cleanup, err := u.newWorkDir(projectID, "asr-"+uuid.NewString()[:8])
	if err != nil {
		return types.Transcript{}, err
	}
	defer cleanup()

	wav := filepath.Join(workDir, "audio.wav")
	if err := u.d.Video.ExtractAudioMono16k(ctx, videoPath, wav); err != nil {
		return types.Transcript{}, err
	}
	tr, err := u.d.ASR.Transcribe(ctx, wav, workDir)
	if err != nil {
		return types.Transcript{}, fmt.Errorf("transcribe: %w", err)
	}
	if err := u.d.Store.SaveTranscript(ctx, projectID, tr); err != nil {
		return types.Transcript{}, err
	}
	log.Info("transcript stored", "segments", len(tr.Segments), "language", tr.Language)
	return tr, nil
}
