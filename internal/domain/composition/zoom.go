package composition

import (
	"errors"
	"fmt"
	"math"

	"github.com/forPelevin/redub/internal/types"
)

const (
	// Ramp is the share of the zoom window spent zooming in, and again
	// zooming out.
	Ramp = 0.3

	MaxZoomLevel = 4.0
)

var (
	ErrZoomDisabled = errors.New("zoom disabled")
	ErrZoomWindow   = errors.New("zoom window is empty")
	ErrFrameSize    = errors.New("frame size unknown")
)

// ZoomFilter builds a zoompan expression for a single manual zoom window.
//
// Zoom ramps linearly from 1 to the configured level over the first part of
// the window, holds, then ramps back out. The crop is centered on the
// configured point (fractions of the frame, default center) and clamped so
// it never leaves the frame.
func ZoomFilter(cfg types.ZoomConfig, width, height int, fps float64) (string, error) {
	if !cfg.Enabled {
		return "", ErrZoomDisabled
	}
	if width <= 0 || height <= 0 {
		return "", ErrFrameSize
	}
	if fps <= 0 || math.IsNaN(fps) {
		fps = 30
	}
	level := cfg.ZoomLevel
	if level < 1 || math.IsNaN(level) {
		level = 1
	}
	if level > MaxZoomLevel {
		level = MaxZoomLevel
	}

	start := int(math.Max(cfg.StartTime, 0) * fps)
	end := int(cfg.EndTime * fps)
	if end <= start {
		return "", fmt.Errorf("%w: start=%.3f end=%.3f", ErrZoomWindow, cfg.StartTime, cfg.EndTime)
	}
	n := end - start
	inEnd := start + int(math.Round(float64(n)*Ramp))
	outStart := end - int(math.Round(float64(n)*Ramp))

	lvl := formatFloat(level)
	extra := formatFloat(level - 1)
	z := fmt.Sprintf(
		"if(between(on,%d,%d),1+%s*(on-%d)/%d,if(between(on,%d,%d),%s,if(between(on,%d,%d),%s-%s*(on-%d)/%d,1)))",
		start, inEnd, extra, start, max(inEnd-start, 1),
		inEnd, outStart, lvl,
		outStart, end, lvl, extra, outStart, max(end-outStart, 1),
	)

	cx := int(math.Round(fraction(cfg.CenterX) * float64(width)))
	cy := int(math.Round(fraction(cfg.CenterY) * float64(height)))
	x := fmt.Sprintf("max(0,min(%d-(iw/zoom/2),iw-iw/zoom))", cx)
	y := fmt.Sprintf("max(0,min(%d-(ih/zoom/2),ih-ih/zoom))", cy)

	return fmt.Sprintf("zoompan=z='%s':d=1:x='%s':y='%s':s=%dx%d:fps=%s",
		z, x, y, width, height, formatFloat(fps)), nil
}

func fraction(v *float64) float64 {
	if v == nil || math.IsNaN(*v) {
		return 0.5
	}
	return math.Min(math.Max(*v, 0), 1)
}
