// Package pipeline wires adapters from configuration and owns run
// scheduling: at most one run per project, started in the background.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/gofrs/flock"

	"github.com/forPelevin/redub/internal/logging"
	"github.com/forPelevin/redub/internal/ports"
	"github.com/forPelevin/redub/internal/ports/adapters/sqlite"
	"github.com/forPelevin/redub/internal/types"
	"github.com/forPelevin/redub/internal/usecase"
)

// ErrRunInProgress is returned when another run or edit owns the project.
var ErrRunInProgress = sqlite.ErrRunInProgress

const reclaimReason = "Previous run was interrupted"

// runStore is the record store plus stale-run recovery.
type runStore interface {
	ports.ProjectStore
	ReclaimRun(ctx context.Context, id, reason string) (bool, error)
}

// Runner schedules pipeline runs.
type Runner struct {
	store   runStore
	blobs   ports.BlobStore
	run     func(ctx context.Context, projectID string) error
	lockDir string
	log     *slog.Logger
	wg      sync.WaitGroup
}

func newRunner(store runStore, blobs ports.BlobStore, run func(context.Context, string) error, lockDir string, log *slog.Logger) *Runner {
	return &Runner{
		store:   store,
		blobs:   blobs,
		run:     run,
		lockDir: lockDir,
		log:     logging.OrNop(log).With(logging.FieldComponent, "runner"),
	}
}

// Start claims the project and runs the pipeline in the background. It
// returns as soon as the run is claimed; the run outlives ctx's
// cancellation. The channel receives the run's result.
func (r *Runner) Start(ctx context.Context, projectID string) (<-chan error, error) {
	return r.launch(context.WithoutCancel(ctx), projectID)
}

// Run claims the project and runs the pipeline in the foreground. Canceling
// ctx aborts the run; the project is left in the error state.
func (r *Runner) Run(ctx context.Context, projectID string) error {
	done, err := r.launch(ctx, projectID)
	if err != nil {
		return err
	}
	return <-done
}

// Wait blocks until every started run has finished.
func (r *Runner) Wait() { r.wg.Wait() }

func (r *Runner) launch(ctx context.Context, projectID string) (<-chan error, error) {
	lock, err := r.claim(ctx, projectID)
	if err != nil {
		return nil, err
	}

	done := make(chan error, 1)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if err := lock.Unlock(); err != nil {
				r.log.Warn("release run lock failed", logging.FieldProjectID, projectID, logging.Error(err))
			}
		}()
		started := time.Now()
		err := r.run(ctx, projectID)
		if err != nil && ctx.Err() != nil {
			r.markInterrupted(ctx, projectID)
		}
		r.log.Info("run finished", logging.FieldProjectID, projectID, "elapsed", time.Since(started).Round(time.Millisecond).String(), logging.Error(err))
		done <- err
	}()
	return done, nil
}

// Exclusive runs fn while holding the project's file lock, so edits that
// rewrite project media never interleave with a run or with each other.
func (r *Runner) Exclusive(ctx context.Context, projectID string, fn func(context.Context) error) error {
	lock, err := r.lock(projectID)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			r.log.Warn("release project lock failed", logging.FieldProjectID, projectID, logging.Error(err))
		}
	}()
	return fn(ctx)
}

func (r *Runner) lock(projectID string) (*flock.Flock, error) {
	if err := os.MkdirAll(r.lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	lock := flock.New(filepath.Join(r.lockDir, lockName(projectID)))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("project %s: %w", projectID, ErrRunInProgress)
	}
	return lock, nil
}

// claim takes the per-project file lock and then the store's run marker.
// Holding the file lock proves no live process owns the project, so a
// processing status found at that point is left over from a crash.
func (r *Runner) claim(ctx context.Context, projectID string) (*flock.Flock, error) {
	lock, err := r.lock(projectID)
	if err != nil {
		return nil, err
	}

	err = r.store.BeginRun(ctx, projectID)
	if errors.Is(err, ErrRunInProgress) {
		reclaimed, rerr := r.store.ReclaimRun(ctx, projectID, reclaimReason)
		if rerr != nil {
			err = rerr
		} else {
			if reclaimed {
				r.log.Warn("reclaimed interrupted run", logging.FieldProjectID, projectID, logging.Alert("stale_run"))
			}
			err = r.store.BeginRun(ctx, projectID)
		}
	}
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	return lock, nil
}

// markInterrupted records a canceled run so the project does not stay in a
// processing status.
func (r *Runner) markInterrupted(ctx context.Context, projectID string) {
	p, err := r.store.GetProject(context.WithoutCancel(ctx), projectID)
	if err != nil || !p.Status.Processing() {
		return
	}
	_ = r.store.UpdateStatus(context.WithoutCancel(ctx), projectID, types.StatusUpdate{
		Status:  types.StatusError,
		Step:    usecase.StepFailed,
		Message: "Processing canceled",
	})
}

// Export copies the project's processed video, or its voiceover when no
// video was produced, into outDir under a unique name.
func (r *Runner) Export(ctx context.Context, projectID, outDir string) (string, error) {
	p, err := r.store.GetProject(ctx, projectID)
	if err != nil {
		return "", err
	}
	rec, err := r.store.GetFile(ctx, projectID, types.FileProcessed)
	if errors.Is(err, ports.ErrNotFound) {
		rec, err = r.store.GetFile(ctx, projectID, types.FileAudio)
	}
	if err != nil {
		return "", fmt.Errorf("nothing to export: %w", err)
	}

	src, err := r.blobs.Open(ctx, rec.StorageKey)
	if err != nil {
		return "", err
	}
	defer src.Close()

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}
	out := buildExportPath(outDir, p.Name, filepath.Ext(rec.StorageKey), time.Now().UTC())
	f, err := os.Create(out)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, src); err != nil {
		_ = f.Close()
		_ = os.Remove(out)
		return "", fmt.Errorf("export %s: %w", rec.Type, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return out, nil
}

func lockName(projectID string) string {
	name := normalizePathSegment(projectID)
	if name == "" {
		name = "project"
	}
	return name + "-" + hash(projectID)[:6] + ".lock"
}

func buildExportPath(outRoot, projectName, ext string, now time.Time) string {
	name := normalizePathSegment(projectName)
	if name == "" {
		name = "project"
	}
	ts := now.UTC().Format("20060102-150405Z")
	runSeed := fmt.Sprintf("%s|%d", projectName, now.UTC().UnixNano())
	suffix := hash(runSeed)[:6]
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s%s", name, ts, suffix, strings.ToLower(ext)))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}
