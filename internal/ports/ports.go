package ports

import (
	"context"
	"errors"
	"io"

	"github.com/forPelevin/redub/internal/probe"
	"github.com/forPelevin/redub/internal/types"
)

// ErrNotFound is returned by stores for missing projects, transcripts,
// files and blobs.
var ErrNotFound = errors.New("not found")

type ProjectStore interface {
	CreateProject(ctx context.Context, p types.Project) (types.Project, error)
	GetProject(ctx context.Context, id string) (types.Project, error)
	ListProjects(ctx context.Context) ([]types.Project, error)
	UpdateStatus(ctx context.Context, id string, u types.StatusUpdate) error
	// BeginRun moves an idle project into the cleaning state. It fails when
	// another run already owns the project.
	BeginRun(ctx context.Context, id string) error

	GetTranscript(ctx context.Context, projectID string) (types.Transcript, error)
	SaveTranscript(ctx context.Context, projectID string, tr types.Transcript) error
	SaveCleanedTranscript(ctx context.Context, projectID string, spans []types.CleanedSpan, script string) error

	SaveFile(ctx context.Context, rec types.FileRecord) error
	GetFile(ctx context.Context, projectID string, ft types.FileType) (types.FileRecord, error)
	ListFiles(ctx context.Context, projectID string) ([]types.FileRecord, error)

	SetZoomConfig(ctx context.Context, projectID string, cfg *types.ZoomConfig) error
	SetAvatarConfig(ctx context.Context, projectID string, cfg types.AvatarConfig) error
	SetProcessedVideo(ctx context.Context, projectID, key string) error
	// DeleteProject removes the project and every record that belongs to it.
	DeleteProject(ctx context.Context, id string) error
}

// BlobStore maps storage keys to bytes. LocalPath exposes a readable file for
// tools that need one.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	LocalPath(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Cleaner rewrites one span of text. Implementations return an error or an
// empty string when they cannot help; callers keep the original text.
type Cleaner interface {
	Clean(ctx context.Context, text string) (string, error)
}

// Synthesizer renders text to an audio file at outPath.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice, outPath string) error
}

type ASR interface {
	Transcribe(ctx context.Context, wavPath, cacheDir string) (types.Transcript, error)
}

type Prober interface {
	Probe(ctx context.Context, path string) (probe.Result, error)
}

// AudioTool executes clip level audio edits. Every output is PCM WAV so
// clips concatenate without re-timing.
type AudioTool interface {
	// Measure returns an audio file's duration in seconds.
	Measure(ctx context.Context, path string) (float64, error)
	// Normalize re-encodes in to the working sample format.
	Normalize(ctx context.Context, in, out string) error
	// Tempo speeds in up by factor, optionally cutting the result to
	// truncate seconds when truncate > 0.
	Tempo(ctx context.Context, in, out string, factor, truncate float64) error
	// Pad appends seconds of silence to in.
	Pad(ctx context.Context, in, out string, seconds float64) error
	Silence(ctx context.Context, out string, seconds float64) error
	// Concat joins inputs in order and encodes the result to out.
	Concat(ctx context.Context, inputs []string, out string) error
}

type VideoTool interface {
	ExtractAudioMono16k(ctx context.Context, inVideo, outWav string) error
	// Compose runs a transcoder invocation built from a composition spec.
	Compose(ctx context.Context, args []string) error
}
