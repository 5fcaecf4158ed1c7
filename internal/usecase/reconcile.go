package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/forPelevin/redub/internal/domain/reconcile"
	"github.com/forPelevin/redub/internal/logging"
	"github.com/forPelevin/redub/internal/ports"
	"github.com/forPelevin/redub/internal/types"
)

// ErrNoUsableAudio means no span produced real speech.
var ErrNoUsableAudio = errors.New("no span produced usable audio")

// SynthesizedClip is one span's speech after reconciliation.
type SynthesizedClip struct {
	SpanID        int
	Start         float64
	End           float64
	RawPath       string
	RawDuration   float64
	FinalPath     string
	FinalDuration float64
	Plan          reconcile.Plan
	BestEffort    bool
	Placeholder   bool
}

// NarrationTrack is the assembled narration.
type NarrationTrack struct {
	Path     string
	Duration float64
	Clips    []SynthesizedClip
	Dropped  []int
}

type Reconciler struct {
	Synth       ports.Synthesizer
	Audio       ports.AudioTool
	Log         *slog.Logger
	Concurrency int
	// OnClip observes each finished clip. It may be called concurrently.
	OnClip func(SynthesizedClip)
}

// Reconcile synthesizes every span, fits each clip to its span and lays
// the clips out on one track written to outPath.
func (r Reconciler) Reconcile(ctx context.Context, spans []types.CleanedSpan, voice string, videoDuration float64, workDir, outPath string) (NarrationTrack, error) {
	log := logging.OrNop(r.Log)

	var eligible []types.CleanedSpan
	for _, s := range spans {
		if s.Duration() <= 0 || strings.TrimSpace(s.CleanedText) == "" {
			log.Debug("skipping span", logging.FieldSpanID, s.ID, "duration", s.Duration())
			continue
		}
		eligible = append(eligible, s)
	}

	clips := make([]SynthesizedClip, len(eligible))
	workers := r.Concurrency
	if workers <= 0 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, s := range eligible {
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			clips[i] = r.clip(ctx, log, s, voice, workDir)
			if r.OnClip != nil {
				r.OnClip(clips[i])
			}
		}()
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return NarrationTrack{}, err
	}

	placed := make([]reconcile.Clip, 0, len(clips))
	for _, c := range clips {
		placed = append(placed, reconcile.Clip{
			SpanID:      c.SpanID,
			Start:       c.Start,
			End:         c.End,
			Path:        c.FinalPath,
			Duration:    c.FinalDuration,
			BestEffort:  c.BestEffort,
			Placeholder: c.Placeholder,
		})
	}
	tl := reconcile.Assemble(placed, videoDuration)
	for _, id := range tl.Dropped {
		log.Warn("dropping overlapping clip", logging.FieldSpanID, id, logging.Alert("overlap"))
	}

	usable := false
	inputs := make([]string, 0, len(tl.Pieces))
	for i, p := range tl.Pieces {
		if !p.Silence {
			usable = true
			inputs = append(inputs, p.Path)
			continue
		}
		path := filepath.Join(workDir, fmt.Sprintf("silence-%03d.wav", i))
		if err := r.Audio.Silence(ctx, path, p.Duration); err != nil {
			return NarrationTrack{}, fmt.Errorf("render silence: %w", err)
		}
		inputs = append(inputs, path)
	}
	if !usable {
		return NarrationTrack{}, ErrNoUsableAudio
	}
	if err := r.Audio.Concat(ctx, inputs, outPath); err != nil {
		return NarrationTrack{}, fmt.Errorf("assemble narration: %w", err)
	}

	track := NarrationTrack{Path: outPath, Duration: tl.Duration, Clips: clips, Dropped: tl.Dropped}
	if d, err := r.Audio.Measure(ctx, outPath); err == nil && d > 0 {
		track.Duration = d
	}
	return track, nil
}

// clip produces one span's final audio. It never fails: synthesis errors
// yield a silent placeholder and edit errors keep the unedited clip.
func (r Reconciler) clip(ctx context.Context, log *slog.Logger, s types.CleanedSpan, voice, workDir string) SynthesizedClip {
	target := s.Duration()
	c := SynthesizedClip{SpanID: s.ID, Start: s.Start, End: s.End}
	placeholder := func(reason string, err error) SynthesizedClip {
		log.Warn(reason+", using silence", logging.FieldSpanID, s.ID, logging.Error(err))
		c.Placeholder = true
		c.FinalPath = ""
		c.FinalDuration = target
		return c
	}

	base := filepath.Join(workDir, fmt.Sprintf("span-%03d", s.ID))
	raw := base + ".raw.mp3"
	if err := r.Synth.Synthesize(ctx, s.CleanedText, voice, raw); err != nil {
		return placeholder("synthesis failed", err)
	}
	c.RawPath = raw

	norm := base + ".wav"
	if err := r.Audio.Normalize(ctx, raw, norm); err != nil {
		return placeholder("decoding synthesized audio failed", err)
	}
	actual, err := r.Audio.Measure(ctx, norm)
	if err != nil || actual <= 0 {
		if err == nil {
			err = errors.New("zero length")
		}
		return placeholder("measuring synthesized audio failed", err)
	}
	c.RawDuration = actual
	c.FinalPath = norm
	c.FinalDuration = actual

	plan := reconcile.Decide(actual, target)
	c.Plan = plan
	bestEffort := func(err error) SynthesizedClip {
		log.Warn("reconciling clip failed, keeping unedited audio", logging.FieldSpanID, s.ID, "plan", string(plan.Kind), logging.Error(err))
		c.FinalPath = norm
		c.FinalDuration = actual
		c.BestEffort = true
		return c
	}

	switch plan.Kind {
	case reconcile.KindAsIs:
		return c
	case reconcile.KindPad:
		out := base + ".pad.wav"
		if err := r.Audio.Pad(ctx, norm, out, plan.Pad); err != nil {
			return bestEffort(err)
		}
		c.FinalPath, c.FinalDuration = out, actual+plan.Pad
		return c
	}

	fast := base + ".tempo.wav"
	if err := r.Audio.Tempo(ctx, norm, fast, plan.Tempo, plan.Truncate); err != nil {
		return bestEffort(err)
	}
	got, err := r.Audio.Measure(ctx, fast)
	if err != nil || got <= 0 {
		got = actual / plan.Tempo
		if plan.Truncate > 0 && got > plan.Truncate {
			got = plan.Truncate
		}
	}
	c.FinalPath, c.FinalDuration = fast, got
	if pad := reconcile.Residual(got, target); pad > 0 {
		out := base + ".tempo.pad.wav"
		if err := r.Audio.Pad(ctx, fast, out, pad); err != nil {
			log.Warn("residual padding failed", logging.FieldSpanID, s.ID, logging.Error(err))
			return c
		}
		c.FinalPath, c.FinalDuration = out, got+pad
	}
	log.Debug("clip reconciled", logging.FieldSpanID, s.ID, "plan", string(plan.Kind), "target", target, "actual", actual, "final", c.FinalDuration)
	return c
}
