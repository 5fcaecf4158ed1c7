package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/forPelevin/redub/internal/logging"
	"github.com/forPelevin/redub/internal/ports"
	"github.com/forPelevin/redub/internal/types"
)

// CleanSpans rewrites each span's text independently. A failing span keeps
// its original text; timing is always copied unchanged. A nil cleaner is
// the identity.
func CleanSpans(ctx context.Context, cleaner ports.Cleaner, spans []types.MergedSpan, log *slog.Logger) []types.CleanedSpan {
	log = logging.OrNop(log)
	out := make([]types.CleanedSpan, 0, len(spans))
	failed := 0
	for _, s := range spans {
		cs := types.CleanedSpan{
			ID:           s.ID,
			Start:        s.Start,
			End:          s.End,
			OriginalText: s.Text,
			CleanedText:  s.Text,
		}
		if cleaner != nil && strings.TrimSpace(s.Text) != "" {
			text, err := cleaner.Clean(ctx, s.Text)
			text = strings.TrimSpace(text)
			switch {
			case err != nil:
				failed++
				log.Warn("span cleaning failed, keeping original text", logging.FieldSpanID, s.ID, logging.Error(err))
			case text == "":
				failed++
				log.Warn("span cleaning returned empty text, keeping original", logging.FieldSpanID, s.ID)
			default:
				cs.CleanedText = text
			}
		}
		out = append(out, cs)
	}
	if failed > 0 {
		log.Info("cleaning finished with fallbacks", "spans", len(spans), "fallbacks", failed)
	}
	return out
}

// Script joins cleaned span texts into the full narration script.
func Script(spans []types.CleanedSpan) string {
	parts := make([]string, 0, len(spans))
	for _, s := range spans {
		if t := strings.TrimSpace(s.CleanedText); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
