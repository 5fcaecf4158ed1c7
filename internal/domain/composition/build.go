// Package composition turns a composition plan into transcoder arguments.
// Build is pure; the graph is only rendered to text in Spec.Args.
package composition

import (
	"fmt"
	"strconv"
)

const (
	SizeSmall  = "small"
	SizeMedium = "medium"
	SizeLarge  = "large"

	PositionBottomRight = "bottom-right"
	PositionBottomLeft  = "bottom-left"
	PositionTopRight    = "top-right"
	PositionTopLeft     = "top-left"
)

var sizeScale = map[string]float64{
	SizeSmall:  0.15,
	SizeMedium: 0.2,
	SizeLarge:  0.25,
}

var positionExpr = map[string]string{
	PositionBottomRight: "W-w-20:H-h-20",
	PositionBottomLeft:  "20:H-h-20",
	PositionTopRight:    "W-w-20:20",
	PositionTopLeft:     "20:20",
}

// Overlay is a still image composited over the video.
type Overlay struct {
	ImagePath string
	Size      string
	Position  string
}

// Plan describes one composition. VideoDuration is zero when unknown.
type Plan struct {
	VideoDuration float64
	FPS           float64
	ZoomFilter    string
	Overlay       *Overlay
	Narration     bool
}

// NeedsAudioPadding reports whether the narration is padded to the video
// length instead of cutting the output at the shortest stream.
func (p Plan) NeedsAudioPadding() bool {
	return p.VideoDuration > 0 && p.Narration
}

type InputKind string

const (
	InputVideo     InputKind = "video"
	InputNarration InputKind = "narration"
	InputOverlay   InputKind = "overlay"
)

type Input struct {
	Kind InputKind
	Path string
	Loop bool
}

// Spec is a fully resolved composition ready to be rendered to argv.
type Spec struct {
	Inputs   []Input
	Graph    Graph
	Maps     []string
	Shortest bool
}

// ScaleFor returns the overlay scale factor, falling back to medium.
func ScaleFor(size string) float64 {
	if s, ok := sizeScale[size]; ok {
		return s
	}
	return sizeScale[SizeMedium]
}

// PositionFor returns the overlay expression, falling back to bottom-right.
func PositionFor(position string) string {
	if p, ok := positionExpr[position]; ok {
		return p
	}
	return positionExpr[PositionBottomRight]
}

// Build resolves the plan into inputs, a filter graph and stream maps.
//
// Input 0 is always the source video. Narration, when present, follows, and
// the overlay image is looped as the last input.
func Build(p Plan) Spec {
	var s Spec
	s.Inputs = append(s.Inputs, Input{Kind: InputVideo})
	narrationIdx := -1
	if p.Narration {
		narrationIdx = len(s.Inputs)
		s.Inputs = append(s.Inputs, Input{Kind: InputNarration})
	}
	overlayIdx := -1
	if p.Overlay != nil && p.Overlay.ImagePath != "" {
		overlayIdx = len(s.Inputs)
		s.Inputs = append(s.Inputs, Input{Kind: InputOverlay, Path: p.Overlay.ImagePath, Loop: true})
	}

	video := "0:v"
	videoFiltered := false
	if p.ZoomFilter != "" {
		out := "zoomed"
		if overlayIdx < 0 {
			out = "v"
		}
		s.Graph.Add(Node{Inputs: []string{video}, Filter: p.ZoomFilter, Outputs: []string{out}})
		video = out
		videoFiltered = true
	}
	if overlayIdx >= 0 {
		scale := formatFloat(ScaleFor(p.Overlay.Size))
		s.Graph.Add(Node{
			Inputs:  []string{fmt.Sprintf("%d:v", overlayIdx)},
			Filter:  "scale=iw*" + scale + ":ih*" + scale,
			Outputs: []string{"avatar"},
		})
		s.Graph.Add(Node{
			Inputs:  []string{video, "avatar"},
			Filter:  "overlay=" + PositionFor(p.Overlay.Position) + ":shortest=1",
			Outputs: []string{"v"},
		})
		videoFiltered = true
	}
	if videoFiltered {
		s.Maps = append(s.Maps, "[v]")
	} else {
		s.Maps = append(s.Maps, "0:v:0")
	}

	switch {
	case p.NeedsAudioPadding():
		// apad only lengthens; atrim cuts a narration that overruns the video.
		dur := strconv.FormatFloat(p.VideoDuration, 'f', 3, 64)
		s.Graph.Add(Node{
			Inputs:  []string{fmt.Sprintf("%d:a", narrationIdx)},
			Filter:  "apad=whole_dur=" + dur + ",atrim=end=" + dur,
			Outputs: []string{"a"},
		})
		s.Maps = append(s.Maps, "[a]")
	case p.Narration:
		s.Maps = append(s.Maps, fmt.Sprintf("%d:a:0", narrationIdx))
		s.Shortest = true
	default:
		s.Maps = append(s.Maps, "0:a?")
	}
	return s
}

// Args renders the spec to transcoder arguments. Paths for the video and
// narration inputs are supplied here; the overlay path travels in the plan.
func (s Spec) Args(videoPath, narrationPath, outPath string) []string {
	args := []string{"-hide_banner", "-y"}
	for _, in := range s.Inputs {
		path := in.Path
		switch in.Kind {
		case InputVideo:
			path = videoPath
		case InputNarration:
			path = narrationPath
		}
		if in.Loop {
			args = append(args, "-loop", "1")
		}
		args = append(args, "-i", path)
	}
	if !s.Graph.Empty() {
		args = append(args, "-filter_complex", s.Graph.String())
	}
	for _, m := range s.Maps {
		args = append(args, "-map", m)
	}
	if s.Shortest {
		args = append(args, "-shortest")
	}
	args = append(args,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-movflags", "+faststart",
		outPath,
	)
	return args
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
