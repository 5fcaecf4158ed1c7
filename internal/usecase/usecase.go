package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/forPelevin/redub/internal/domain/composition"
	"github.com/forPelevin/redub/internal/logging"
	"github.com/forPelevin/redub/internal/ports"
	"github.com/forPelevin/redub/internal/types"
)

var (
	// ErrNoTranscript is returned when a run starts without a transcript.
	ErrNoTranscript = errors.New("no transcript available for processing")
	// ErrBusy is returned when an edit targets a project that is being
	// processed.
	ErrBusy = errors.New("project is being processed")
)

type Deps struct {
	Store   ports.ProjectStore
	Blobs   ports.BlobStore
	Cleaner ports.Cleaner
	Synth   ports.Synthesizer
	ASR     ports.ASR
	Audio   ports.AudioTool
	Video   ports.VideoTool
	Prober  ports.Prober
	Log     *slog.Logger
}

type Options struct {
	// WorkDir holds per-run scratch directories.
	WorkDir string
	// KeepWork leaves scratch files in place after a run.
	KeepWork         bool
	SynthConcurrency int
	DefaultVoice     string
	// Progress, when set, observes status transitions and finished clips.
	Progress func(Progress)
}

// Progress is a status transition or, with Clip set, a finished clip.
type Progress struct {
	ProjectID string
	Status    types.ProjectStatus
	Step      string
	Clip      *SynthesizedClip
	Total     int
}

type Usecase struct {
	d   Deps
	opt Options
	log *slog.Logger
}

func New(d Deps, opt Options) Usecase {
	if opt.WorkDir == "" {
		opt.WorkDir = filepath.Join(os.TempDir(), "redub")
	}
	if opt.SynthConcurrency <= 0 {
		opt.SynthConcurrency = 1
	}
	if opt.DefaultVoice == "" {
		opt.DefaultVoice = "alloy"
	}
	return Usecase{d: d, opt: opt, log: logging.OrNop(d.Log)}
}

func VoiceoverKey(projectID string) string { return projectID + "/voiceover.mp3" }

func ProcessedKey(projectID string) string { return projectID + "/processed.mp4" }

func originalKey(projectID, path string) string {
	return projectID + "/original" + strings.ToLower(filepath.Ext(path))
}

func avatarKey(projectID, path string) string {
	return projectID + "/avatar" + strings.ToLower(filepath.Ext(path))
}

// NewProject describes a project to create from local files.
type NewProject struct {
	Name       string
	VideoPath  string
	AvatarPath string
	Voice      string
	Avatar     types.AvatarConfig
	Transcript *types.Transcript
}

// CreateProject registers a project and copies its media into blob storage.
func (u Usecase) CreateProject(ctx context.Context, in NewProject) (types.Project, error) {
	if strings.TrimSpace(in.VideoPath) == "" {
		return types.Project{}, errors.New("create project: video path is required")
	}
	if _, err := os.Stat(in.VideoPath); err != nil {
		return types.Project{}, fmt.Errorf("stat video: %w", err)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(in.VideoPath), filepath.Ext(in.VideoPath))
	}
	voice := strings.TrimSpace(in.Voice)
	if voice == "" {
		voice = u.opt.DefaultVoice
	}

	p, err := u.d.Store.CreateProject(ctx, types.Project{
		Name:   name,
		Status: types.StatusUploaded,
		Voice:  voice,
		Avatar: NormalizeAvatar(in.Avatar),
	})
	if err != nil {
		return types.Project{}, err
	}
	if err := u.importFile(ctx, p.ID, types.FileOriginal, originalKey(p.ID, in.VideoPath), in.VideoPath); err != nil {
		return types.Project{}, err
	}
	if in.AvatarPath != "" {
		if err := u.importFile(ctx, p.ID, types.FileAvatar, avatarKey(p.ID, in.AvatarPath), in.AvatarPath); err != nil {
			return types.Project{}, err
		}
	}
	if in.Transcript != nil {
		if err := u.d.Store.SaveTranscript(ctx, p.ID, *in.Transcript); err != nil {
			return types.Project{}, err
		}
	}
	u.log.Info("project created", logging.FieldProjectID, p.ID, "name", p.Name)
	return p, nil
}

// SetAvatar replaces the overlay image and its placement.
func (u Usecase) SetAvatar(ctx context.Context, projectID, imagePath string, cfg types.AvatarConfig) error {
	if imagePath != "" {
		if err := u.importFile(ctx, projectID, types.FileAvatar, avatarKey(projectID, imagePath), imagePath); err != nil {
			return err
		}
	}
	return u.d.Store.SetAvatarConfig(ctx, projectID, NormalizeAvatar(cfg))
}

// DeleteProject removes the project's blobs, scratch files and records.
// Projects owned by a run are refused with ErrBusy.
func (u Usecase) DeleteProject(ctx context.Context, projectID string) error {
	p, err := u.d.Store.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if p.Status.Processing() {
		return ErrBusy
	}
	files, err := u.d.Store.ListFiles(ctx, projectID)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := u.d.Blobs.Delete(ctx, f.StorageKey); err != nil {
			return fmt.Errorf("delete %s: %w", f.Type, err)
		}
	}
	if err := u.d.Store.DeleteProject(ctx, projectID); err != nil {
		return err
	}
	if err := os.RemoveAll(filepath.Join(u.opt.WorkDir, projectID)); err != nil {
		u.log.Warn("remove work dir failed", logging.FieldProjectID, projectID, logging.Error(err))
	}
	u.log.Info("project deleted", logging.FieldProjectID, projectID, "files", len(files))
	return nil
}

// NormalizeAvatar substitutes defaults for unknown placement values.
func NormalizeAvatar(cfg types.AvatarConfig) types.AvatarConfig {
	switch cfg.Position {
	case composition.PositionBottomRight, composition.PositionBottomLeft, composition.PositionTopRight, composition.PositionTopLeft:
	default:
		cfg.Position = composition.PositionBottomRight
	}
	switch cfg.Size {
	case composition.SizeSmall, composition.SizeMedium, composition.SizeLarge:
	default:
		cfg.Size = composition.SizeMedium
	}
	return cfg
}

func (u Usecase) importFile(ctx context.Context, projectID string, ft types.FileType, key, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", ft, err)
	}
	defer f.Close()
	return u.storeFile(ctx, projectID, ft, key, f)
}

func (u Usecase) storeFile(ctx context.Context, projectID string, ft types.FileType, key string, r io.Reader) error {
	n, err := u.d.Blobs.Put(ctx, key, r)
	if err != nil {
		return fmt.Errorf("store %s: %w", ft, err)
	}
	if err := u.d.Store.SaveFile(ctx, types.FileRecord{ProjectID: projectID, Type: ft, StorageKey: key, Size: n}); err != nil {
		return fmt.Errorf("record %s: %w", ft, err)
	}
	return nil
}

// localFile resolves the stored file of type ft to a readable path.
func (u Usecase) localFile(ctx context.Context, projectID string, ft types.FileType) (string, error) {
	rec, err := u.d.Store.GetFile(ctx, projectID, ft)
	if err != nil {
		return "", err
	}
	return u.d.Blobs.LocalPath(ctx, rec.StorageKey)
}

func (u Usecase) newWorkDir(projectID, runID string) (string, func(), error) {
	dir := filepath.Join(u.opt.WorkDir, projectID, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", func() {}, fmt.Errorf("create work dir: %w", err)
	}
	cleanup := func() {
		if !u.opt.KeepWork {
			_ = os.RemoveAll(dir)
		}
	}
	return dir, cleanup, nil
}

func (u Usecase) emit(p Progress) {
	if u.opt.Progress != nil {
		u.opt.Progress(p)
	}
}
