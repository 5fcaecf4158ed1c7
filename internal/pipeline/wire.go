package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/forPelevin/redub/internal/config"
	"github.com/forPelevin/redub/internal/logging"
	"github.com/forPelevin/redub/internal/ports"
	"github.com/forPelevin/redub/internal/ports/adapters/blobfs"
	"github.com/forPelevin/redub/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/redub/internal/ports/adapters/openai"
	"github.com/forPelevin/redub/internal/ports/adapters/openrouter"
	"github.com/forPelevin/redub/internal/ports/adapters/sqlite"
	"github.com/forPelevin/redub/internal/ports/adapters/whispercpp"
	"github.com/forPelevin/redub/internal/probe"
	"github.com/forPelevin/redub/internal/types"
	"github.com/forPelevin/redub/internal/usecase"
)

// App is a fully wired redub instance.
type App struct {
	Config  *config.Config
	Store   *sqlite.Store
	Blobs   *blobfs.Store
	Usecase usecase.Usecase
	Runner  *Runner
	log     *slog.Logger
}

// Option adjusts wiring.
type Option func(*usecase.Options)

// WithProgress observes status transitions and finished clips.
func WithProgress(fn func(usecase.Progress)) Option {
	return func(o *usecase.Options) { o.Progress = fn }
}

// Open creates the storage directories, opens the stores and builds every
// adapter named by cfg.
func Open(ctx context.Context, cfg *config.Config, log *slog.Logger, opts ...Option) (*App, error) {
	log = logging.OrNop(log)
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	store, err := sqlite.Open(ctx, cfg.Paths.Database)
	if err != nil {
		return nil, err
	}
	blobs, err := blobfs.New(cfg.Paths.BlobDir)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	ff := ffmpeg.New(cfg.FFmpeg.Binary, cfg.FFmpeg.ProbeBinary).
		WithTimeouts(seconds(cfg.FFmpeg.AudioTimeout), seconds(cfg.FFmpeg.ComposeTimeout))
	prober := probe.New(ff, log.With(logging.FieldComponent, "probe")).
		WithTimeouts(seconds(cfg.FFmpeg.ProbeTimeout), seconds(cfg.FFmpeg.DecodeTimeout))
	synth := openai.New(openai.Options{
		APIKey:      cfg.Synthesis.APIKey,
		BaseURL:     cfg.Synthesis.BaseURL,
		SpeechModel: cfg.Synthesis.Model,
	})

	uopts := usecase.Options{
		WorkDir:          cfg.Paths.WorkDir,
		KeepWork:         cfg.Paths.KeepWork,
		SynthConcurrency: cfg.Synthesis.Concurrency,
		DefaultVoice:     cfg.Synthesis.Voice,
	}
	for _, o := range opts {
		o(&uopts)
	}
	uc := usecase.New(usecase.Deps{
		Store:   store,
		Blobs:   blobs,
		Cleaner: newCleaner(cfg, log),
		Synth:   synth,
		ASR:     whispercpp.New(cfg.Whisper.Binary, cfg.Whisper.Model, cfg.Whisper.Language),
		Audio:   ff,
		Video:   ff,
		Prober:  prober,
		Log:     log.With(logging.FieldComponent, "pipeline"),
	}, uopts)

	return &App{
		Config:  cfg,
		Store:   store,
		Blobs:   blobs,
		Usecase: uc,
		Runner:  newRunner(store, blobs, uc.Run, cfg.Paths.LockDir, log),
		log:     log,
	}, nil
}

// Close waits for background runs and closes the record store.
func (a *App) Close() error {
	a.Runner.Wait()
	return a.Store.Close()
}

// ApplyZoom re-renders the project with a zoom window under the project lock.
func (a *App) ApplyZoom(ctx context.Context, projectID string, cfg types.ZoomConfig) error {
	return a.Runner.Exclusive(ctx, projectID, func(ctx context.Context) error {
		return a.Usecase.ApplyZoom(ctx, projectID, cfg)
	})
}

// Transcribe replaces the project's transcript under the project lock.
func (a *App) Transcribe(ctx context.Context, projectID string) (types.Transcript, error) {
	var tr types.Transcript
	err := a.Runner.Exclusive(ctx, projectID, func(ctx context.Context) error {
		var err error
		tr, err = a.Usecase.Transcribe(ctx, projectID)
		return err
	})
	return tr, err
}

// DeleteProject removes the project under the project lock.
func (a *App) DeleteProject(ctx context.Context, projectID string) error {
	return a.Runner.Exclusive(ctx, projectID, func(ctx context.Context) error {
		return a.Usecase.DeleteProject(ctx, projectID)
	})
}

// newCleaner returns nil, which keeps transcript text unchanged, when the
// configured provider has no credentials.
func newCleaner(cfg *config.Config, log *slog.Logger) ports.Cleaner {
	c := cfg.Cleaner
	switch c.Provider {
	case config.ProviderOpenRouter:
		if c.APIKey == "" {
			log.Warn("cleaner disabled: no OpenRouter API key", logging.Alert("cleaner_disabled"))
			return nil
		}
		return openrouter.New(c.APIKey, c.Model, c.BaseURL)
	case config.ProviderOpenAI:
		key := c.APIKey
		if key == "" {
			key = cfg.Synthesis.APIKey
		}
		if key == "" {
			log.Warn("cleaner disabled: no OpenAI API key", logging.Alert("cleaner_disabled"))
			return nil
		}
		return openai.New(openai.Options{APIKey: key, BaseURL: c.BaseURL, ChatModel: c.Model})
	default:
		return nil
	}
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// Describe summarizes the wiring for diagnostics.
func (a *App) Describe() string {
	return fmt.Sprintf("db=%s blobs=%s cleaner=%s voice=%s concurrency=%d",
		a.Config.Paths.Database, a.Blobs.Root(), a.Config.Cleaner.Provider,
		a.Config.Synthesis.Voice, a.Config.Synthesis.Concurrency)
}

var (
	_ ports.ProjectStore = (*sqlite.Store)(nil)
	_ ports.BlobStore    = (*blobfs.Store)(nil)
	_ ports.Cleaner      = (*openrouter.Adapter)(nil)
	_ ports.Cleaner      = (*openai.Adapter)(nil)
	_ ports.Synthesizer  = (*openai.Adapter)(nil)
	_ ports.ASR          = (*whispercpp.Adapter)(nil)
	_ ports.AudioTool    = (*ffmpeg.Adapter)(nil)
	_ ports.VideoTool    = (*ffmpeg.Adapter)(nil)
	_ ports.Prober       = (*probe.Prober)(nil)
	_ probe.Source       = (*ffmpeg.Adapter)(nil)
	_ runStore           = (*sqlite.Store)(nil)
)
