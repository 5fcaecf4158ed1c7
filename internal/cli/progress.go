package cli

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/forPelevin/redub/internal/usecase"
)

// progressTracker renders pipeline progress: one line per step, plus a bar
// over synthesized spans when the output is a terminal.
type progressTracker struct {
	mu          sync.Mutex
	out         io.Writer
	interactive bool
	bar         *progressbar.ProgressBar
	step        string
	done        bool
}

func newProgressTracker(out io.Writer, interactive bool) *progressTracker {
	return &progressTracker{out: out, interactive: interactive}
}

// observe is called from pipeline goroutines.
func (t *progressTracker) observe(p usecase.Progress) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return
	}

	if p.Clip != nil {
		t.clip(p)
		return
	}
	if p.Step == "" || p.Step == t.step {
		return
	}
	t.step = p.Step
	t.closeBar()
	fmt.Fprintf(t.out, "%s %s\n", statusLabel(p.Status), p.Step)
}

func (t *progressTracker) clip(p usecase.Progress) {
	c := p.Clip
	if t.interactive {
		if t.bar == nil {
			t.bar = progressbar.NewOptions(p.Total,
				progressbar.OptionSetWriter(t.out),
				progressbar.OptionSetDescription("  synthesizing spans"),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(30),
				progressbar.OptionSetPredictTime(false),
				progressbar.OptionClearOnFinish(),
			)
		}
		_ = t.bar.Add(1)
		return
	}
	switch {
	case c.Placeholder:
		fmt.Fprintf(t.out, "  span %d: synthesis failed, silence kept\n", c.SpanID)
	case c.BestEffort:
		fmt.Fprintf(t.out, "  span %d: timing not adjusted (%.2fs for %.2fs)\n", c.SpanID, c.FinalDuration, c.End-c.Start)
	}
}

func (t *progressTracker) closeBar() {
	if t.bar == nil {
		return
	}
	_ = t.bar.Finish()
	t.bar = nil
}

func (t *progressTracker) finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeBar()
	t.done = true
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
