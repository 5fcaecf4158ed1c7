package segments

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/forPelevin/redub/internal/types"
)

// PauseThreshold is the inter-segment silence (seconds) that closes a span
// even without terminal punctuation.
const PauseThreshold = 0.5

// Merge regroups recognizer chunks into sentence-level spans.
//
// A group closes when a segment ends with terminal punctuation, when the
// silence before the next segment exceeds PauseThreshold, or at the last
// segment. Segments without text are skipped and never split a group. A span
// starts no earlier than the previous span ends.
func Merge(raw []types.RawSegment) []types.MergedSpan {
	segs := make([]types.RawSegment, 0, len(raw))
	for _, s := range raw {
		s.Text = strings.TrimSpace(s.Text)
		if s.Text == "" {
			continue
		}
		if s.End < s.Start {
			s.End = s.Start
		}
		segs = append(segs, s)
	}
	if len(segs) == 0 {
		return nil
	}

	var (
		out        []types.MergedSpan
		parts      []string
		start, end float64
	)
	for i, s := range segs {
		if len(parts) == 0 {
			start, end = s.Start, s.End
		}
		parts = append(parts, s.Text)
		end = max(end, s.End)

		last := i == len(segs)-1
		pause := !last && segs[i+1].Start-s.End > PauseThreshold
		if !last && !pause && !endsSentence(s.Text) {
			continue
		}
		// Recognizers emit slightly overlapping chunks; spans never overlap.
		if n := len(out); n > 0 {
			start = max(start, out[n-1].End)
		}
		out = append(out, types.MergedSpan{
			ID:    len(out),
			Start: start,
			End:   max(end, start),
			Text:  norm.NFC.String(strings.Join(parts, " ")),
		})
		parts = parts[:0]
	}
	return out
}

func endsSentence(text string) bool {
	t := strings.TrimRight(text, "\"'”’)]» ")
	if t == "" {
		return false
	}
	switch t[len(t)-1] {
	case '.', '!', '?':
		return true
	}
	return false
}
