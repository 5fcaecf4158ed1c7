//go:build integration

package itest

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
)

type mediaInfo struct {
	Duration float64
	Video    bool
	Audio    bool
}

func probeMedia(path string) (mediaInfo, error) {
	cmd := exec.Command("ffprobe",
		"-v", "error",
		"-show_entries", "format=duration:stream=codec_type",
		"-of", "json",
		path,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return mediaInfo{}, fmt.Errorf("ffprobe: %w\n%s", err, string(b))
	}
	var raw struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
		Streams []struct {
			CodecType string `json:"codec_type"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return mediaInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}
	sec, err := strconv.ParseFloat(raw.Format.Duration, 64)
	if err != nil {
		return mediaInfo{}, fmt.Errorf("parse duration %q: %w", raw.Format.Duration, err)
	}
	info := mediaInfo{Duration: sec}
	for _, s := range raw.Streams {
		switch s.CodecType {
		case "video":
			info.Video = true
		case "audio":
			info.Audio = true
		}
	}
	return info, nil
}

// ffmpegRun runs ffmpeg with args and reports its output on failure.
func ffmpegRun(args ...string) error {
	b, err := exec.Command("ffmpeg", append([]string{"-hide_banner", "-y", "-v", "error"}, args...)...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg %v: %w\n%s", args, err, string(b))
	}
	return nil
}
