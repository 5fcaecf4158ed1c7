// Package probe determines media duration through a ladder of strategies,
// from cheap container metadata down to a full decode.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultFPS = 30.0
	MaxFPS     = 120.0

	// maxPlausibleFrames bounds nb_frames to 24h at MaxFPS.
	maxPlausibleFrames = 24 * 3600 * MaxFPS

	FastTimeout   = 30 * time.Second
	DecodeTimeout = 120 * time.Second
)

const (
	StrategyFormat = "format"
	StrategyStream = "stream"
	StrategyFrames = "frames"
	StrategyHeader = "header"
	StrategyDecode = "decode"
)

// ErrNoDuration is returned when no strategy yields a positive duration.
var ErrNoDuration = errors.New("probe: duration unavailable")

// Stream is the subset of per-stream metadata the ladder reads.
type Stream struct {
	CodecType  string
	Duration   string
	NbFrames   string
	RFrameRate string
	Width      int
	Height     int
}

// Metadata is one container/stream read of a media file.
type Metadata struct {
	FormatDuration string
	Streams        []Stream
}

// Source performs the raw reads; the ladder only parses what it returns.
type Source interface {
	Metadata(ctx context.Context, path string) (Metadata, error)
	// HeaderDump returns the transcoder's informational output for path.
	HeaderDump(ctx context.Context, path string) (string, error)
	// DecodeDump decodes path to a null sink and returns the progress log.
	DecodeDump(ctx context.Context, path string) (string, error)
}

type Result struct {
	Duration float64
	FPS      float64
	Width    int
	Height   int
	Strategy string
}

type Prober struct {
	src           Source
	log           *slog.Logger
	fastTimeout   time.Duration
	decodeTimeout time.Duration
}

func New(src Source, log *slog.Logger) *Prober {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Prober{src: src, log: log, fastTimeout: FastTimeout, decodeTimeout: DecodeTimeout}
}

// WithTimeouts overrides the per-strategy timeouts. Zero keeps the default.
func (p *Prober) WithTimeouts(fast, decode time.Duration) *Prober {
	if fast > 0 {
		p.fastTimeout = fast
	}
	if decode > 0 {
		p.decodeTimeout = decode
	}
	return p
}

// Probe runs the ladder and stops at the first strategy that yields a
// positive duration. FPS and frame size are filled from the metadata read
// when available, even if the duration came from a later strategy.
func (p *Prober) Probe(ctx context.Context, path string) (Result, error) {
	res := Result{FPS: DefaultFPS}

	fctx, cancel := context.WithTimeout(ctx, p.fastTimeout)
	md, err := p.src.Metadata(fctx, path)
	cancel()
	if err != nil {
		p.log.Debug("metadata read failed", "path", path, "error", err)
	} else {
		video := firstVideo(md.Streams)
		if video != nil {
			res.FPS = ClampFPS(parseRate(video.RFrameRate))
			res.Width, res.Height = video.Width, video.Height
		}
		if d, strategy := fromMetadata(md, res.FPS); d > 0 {
			res.Duration, res.Strategy = d, strategy
			return res, nil
		}
	}
	if ctx.Err() != nil {
		return res, ctx.Err()
	}

	hctx, cancel := context.WithTimeout(ctx, p.fastTimeout)
	dump, err := p.src.HeaderDump(hctx, path)
	cancel()
	if d := ParseHeaderDuration(dump); d > 0 {
		res.Duration, res.Strategy = d, StrategyHeader
		return res, nil
	}
	if err != nil {
		p.log.Debug("header dump failed", "path", path, "error", err)
	}
	if ctx.Err() != nil {
		return res, ctx.Err()
	}

	dctx, cancel := context.WithTimeout(ctx, p.decodeTimeout)
	dump, err = p.src.DecodeDump(dctx, path)
	cancel()
	if d := ParseDecodeTime(dump); d > 0 {
		res.Duration, res.Strategy = d, StrategyDecode
		return res, nil
	}
	if err != nil {
		p.log.Debug("full decode failed", "path", path, "error", err)
	}
	return res, fmt.Errorf("%w: %s", ErrNoDuration, path)
}

func fromMetadata(md Metadata, fps float64) (float64, string) {
	if d := positive(parseFloat(md.FormatDuration)); d > 0 {
		return d, StrategyFormat
	}
	for _, s := range md.Streams {
		if d := positive(parseFloat(s.Duration)); d > 0 {
			return d, StrategyStream
		}
	}
	for _, s := range md.Streams {
		if !strings.EqualFold(s.CodecType, "video") {
			continue
		}
		frames, err := strconv.ParseInt(strings.TrimSpace(s.NbFrames), 10, 64)
		if err != nil || frames <= 0 || float64(frames) > maxPlausibleFrames {
			continue
		}
		streamFPS := fps
		if r := parseRate(s.RFrameRate); r > 0 && r <= MaxFPS {
			streamFPS = r
		}
		return float64(frames) / streamFPS, StrategyFrames
	}
	return 0, ""
}

func firstVideo(streams []Stream) *Stream {
	for i := range streams {
		if strings.EqualFold(streams[i].CodecType, "video") {
			return &streams[i]
		}
	}
	return nil
}

// ClampFPS keeps fps within (0, MaxFPS], substituting DefaultFPS otherwise.
func ClampFPS(fps float64) float64 {
	if math.IsNaN(fps) || fps <= 0 || fps > MaxFPS {
		return DefaultFPS
	}
	return fps
}

var (
	headerDurationRe = regexp.MustCompile(`Duration:\s*(\d{2}):(\d{2}):(\d{2})\.(\d+)`)
	decodeTimeRe     = regexp.MustCompile(`time=(\d+):(\d{2}):(\d{2})\.(\d+)`)
)

// ParseHeaderDuration extracts the "Duration: HH:MM:SS.ff" line of a header
// dump. It returns 0 when absent.
func ParseHeaderDuration(dump string) float64 {
	m := headerDurationRe.FindStringSubmatch(dump)
	if m == nil {
		return 0
	}
	return clockSeconds(m[1:])
}

// ParseDecodeTime returns the last "time=" progress marker of a decode log.
func ParseDecodeTime(dump string) float64 {
	all := decodeTimeRe.FindAllStringSubmatch(dump, -1)
	if len(all) == 0 {
		return 0
	}
	return clockSeconds(all[len(all)-1][1:])
}

func clockSeconds(parts []string) float64 {
	h, _ := strconv.Atoi(parts[0])
	m, _ := strconv.Atoi(parts[1])
	s, _ := strconv.Atoi(parts[2])
	frac, _ := strconv.ParseFloat("0."+parts[3], 64)
	return float64(h*3600+m*60+s) + frac
}

// parseRate parses "num/den" or a plain number.
func parseRate(v string) float64 {
	v = strings.TrimSpace(v)
	if num, den, ok := strings.Cut(v, "/"); ok {
		n := parseFloat(num)
		d := parseFloat(den)
		if d == 0 || math.IsNaN(n) || math.IsNaN(d) {
			return 0
		}
		return n / d
	}
	return parseFloat(v)
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" || cleaned == "N/A" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}

func positive(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0
	}
	return v
}
