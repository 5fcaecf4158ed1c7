package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// SampleRate is the working rate for narration clips.
	SampleRate = 24000

	audioTimeout   = 60 * time.Second
	composeTimeout = 600 * time.Second
)

type Adapter struct {
	ffmpeg  string
	ffprobe string

	audioTimeout   time.Duration
	composeTimeout time.Duration
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{
		ffmpeg:         ffmpegPath,
		ffprobe:        ffprobePath,
		audioTimeout:   audioTimeout,
		composeTimeout: composeTimeout,
	}
}

// WithTimeouts overrides the audio and compose timeouts. Zero keeps the
// default.
func (a *Adapter) WithTimeouts(audio, compose time.Duration) *Adapter {
	if audio > 0 {
		a.audioTimeout = audio
	}
	if compose > 0 {
		a.composeTimeout = compose
	}
	return a
}

func (a *Adapter) ExtractAudioMono16k(ctx context.Context, inVideo, outWav string) error {
	return a.run(ctx, a.audioTimeout, "extract audio",
		"-y",
		"-i", inVideo,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		outWav,
	)
}

func (a *Adapter) Compose(ctx context.Context, args []string) error {
	return a.run(ctx, a.composeTimeout, "compose", args...)
}

func (a *Adapter) Normalize(ctx context.Context, in, out string) error {
	return a.run(ctx, a.audioTimeout, "normalize",
		"-y",
		"-i", in,
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(SampleRate),
		"-c:a", "pcm_s16le",
		out,
	)
}

func (a *Adapter) Tempo(ctx context.Context, in, out string, factor, truncate float64) error {
	args := []string{
		"-y",
		"-i", in,
		"-af", "atempo=" + fmtSeconds(factor),
	}
	if truncate > 0 {
		args = append(args, "-t", fmtSeconds(truncate))
	}
	args = append(args, "-ac", "1", "-ar", strconv.Itoa(SampleRate), "-c:a", "pcm_s16le", out)
	return a.run(ctx, a.audioTimeout, "tempo", args...)
}

func (a *Adapter) Pad(ctx context.Context, in, out string, seconds float64) error {
	return a.run(ctx, a.audioTimeout, "pad",
		"-y",
		"-i", in,
		"-af", "apad=pad_dur="+fmtSeconds(seconds),
		"-ac", "1",
		"-ar", strconv.Itoa(SampleRate),
		"-c:a", "pcm_s16le",
		out,
	)
}

func (a *Adapter) Silence(ctx context.Context, out string, seconds float64) error {
	return a.run(ctx, a.audioTimeout, "silence",
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("anullsrc=r=%d:cl=mono", SampleRate),
		"-t", fmtSeconds(seconds),
		"-c:a", "pcm_s16le",
		out,
	)
}

func (a *Adapter) Concat(ctx context.Context, inputs []string, out string) error {
	if len(inputs) == 0 {
		return errors.New("ffmpeg concat: no inputs")
	}
	list := filepath.Join(filepath.Dir(out), "concat-"+strings.TrimSuffix(filepath.Base(out), filepath.Ext(out))+".txt")
	if err := os.WriteFile(list, []byte(concatList(inputs)), 0o644); err != nil {
		return fmt.Errorf("ffmpeg concat list: %w", err)
	}
	defer os.Remove(list)

	args := []string{"-y", "-f", "concat", "-safe", "0", "-i", list}
	if strings.EqualFold(filepath.Ext(out), ".mp3") {
		args = append(args, "-c:a", "libmp3lame", "-b:a", "192k")
	} else {
		args = append(args, "-c:a", "pcm_s16le")
	}
	args = append(args, out)
	return a.run(ctx, a.audioTimeout, "concat", args...)
}

func (a *Adapter) Measure(ctx context.Context, path string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, a.audioTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w\n%s", err, string(b))
	}
	s := strings.TrimSpace(string(b))
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return sec, nil
}

func (a *Adapter) run(ctx context.Context, timeout time.Duration, op string, args ...string) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("ffmpeg %s: timeout after %s", op, timeout)
		}
		return fmt.Errorf("ffmpeg %s: %w\n%s", op, err, tail(string(b), 2000))
	}
	return nil
}

func concatList(inputs []string) string {
	var b strings.Builder
	for _, in := range inputs {
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(in, "'", `'\''`))
		b.WriteString("'\n")
	}
	return b.String()
}

func fmtSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
