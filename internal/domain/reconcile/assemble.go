package reconcile

import (
	"sort"
)

const (
	// GapThreshold is the smallest gap between clips filled with silence.
	GapThreshold = 0.05
	// OverlapTolerance is how far a clip may start before the cursor and
	// still be placed.
	OverlapTolerance = 0.1

	minTail = 0.001
)

// Clip is a reconciled clip placed at its span's original window. A
// placeholder clip carries no audio and is rendered as silence.
type Clip struct {
	SpanID      int
	Start       float64
	End         float64
	Path        string
	Duration    float64
	BestEffort  bool
	Placeholder bool
}

// Piece is one entry of the narration timeline: either a clip file or a
// run of silence.
type Piece struct {
	SpanID   int
	Path     string
	Duration float64
	Silence  bool
}

type Timeline struct {
	Pieces   []Piece
	Duration float64
	Dropped  []int
}

// Assemble lays clips out on a single track starting at zero.
//
// Clips are ordered by start. Silence fills gaps of at least GapThreshold,
// clips starting more than OverlapTolerance before the cursor are dropped,
// and trailing silence extends the track to max(videoDuration, last end).
func Assemble(clips []Clip, videoDuration float64) Timeline {
	ordered := make([]Clip, len(clips))
	copy(ordered, clips)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Start < ordered[j].Start })

	var (
		tl     Timeline
		cursor float64
		end    = videoDuration
	)
	for _, c := range ordered {
		if c.End > end {
			end = c.End
		}
		if c.Start+OverlapTolerance < cursor {
			tl.Dropped = append(tl.Dropped, c.SpanID)
			continue
		}
		if gap := c.Start - cursor; gap >= GapThreshold {
			tl.Pieces = append(tl.Pieces, Piece{SpanID: -1, Duration: gap, Silence: true})
			cursor += gap
		}
		if c.Duration <= 0 {
			continue
		}
		tl.Pieces = append(tl.Pieces, Piece{
			SpanID:   c.SpanID,
			Path:     c.Path,
			Duration: c.Duration,
			Silence:  c.Placeholder || c.Path == "",
		})
		cursor += c.Duration
	}
	if tail := end - cursor; tail > minTail {
		tl.Pieces = append(tl.Pieces, Piece{SpanID: -1, Duration: tail, Silence: true})
		cursor += tail
	}
	tl.Duration = cursor
	return tl
}
