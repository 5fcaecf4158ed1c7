package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/forPelevin/redub/internal/probe"
)

type ffprobeOutput struct {
	Streams []struct {
		CodecType  string `json:"codec_type"`
		Duration   string `json:"duration"`
		NbFrames   string `json:"nb_frames"`
		RFrameRate string `json:"r_frame_rate"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Metadata reads container and stream metadata in a single ffprobe call.
func (a *Adapter) Metadata(ctx context.Context, path string) (probe.Metadata, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-hide_banner",
		"-show_entries", "format=duration",
		"-show_entries", "stream=codec_type,duration,nb_frames,r_frame_rate,width,height",
		"-of", "json",
		"--", path,
	)
	b, err := cmd.Output()
	if err != nil {
		return probe.Metadata{}, fmt.Errorf("ffprobe metadata: %w", err)
	}
	return decodeMetadata(b)
}

// HeaderDump returns ffmpeg's input banner. ffmpeg exits non-zero when no
// output is given, so the output is returned whenever there is any.
func (a *Adapter) HeaderDump(ctx context.Context, path string) (string, error) {
	cmd := exec.CommandContext(ctx, a.ffmpeg, "-hide_banner", "-i", path)
	b, err := cmd.CombinedOutput()
	if len(b) > 0 {
		return string(b), nil
	}
	if err != nil {
		return "", fmt.Errorf("ffmpeg header: %w", err)
	}
	return "", nil
}

// DecodeDump decodes the whole file to a null muxer and returns the
// progress log.
func (a *Adapter) DecodeDump(ctx context.Context, path string) (string, error) {
	cmd := exec.CommandContext(ctx, a.ffmpeg, "-hide_banner", "-i", path, "-f", "null", "-")
	b, err := cmd.CombinedOutput()
	if err != nil {
		return string(b), fmt.Errorf("ffmpeg decode: %w", err)
	}
	return string(b), nil
}

func decodeMetadata(b []byte) (probe.Metadata, error) {
	var out ffprobeOutput
	if err := json.Unmarshal(b, &out); err != nil {
		return probe.Metadata{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	md := probe.Metadata{FormatDuration: strings.TrimSpace(out.Format.Duration)}
	for _, s := range out.Streams {
		md.Streams = append(md.Streams, probe.Stream{
			CodecType:  s.CodecType,
			Duration:   s.Duration,
			NbFrames:   s.NbFrames,
			RFrameRate: s.RFrameRate,
			Width:      s.Width,
			Height:     s.Height,
		})
	}
	return md, nil
}
