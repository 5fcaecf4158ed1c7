package reconcile

import (
	"math"
	"testing"
)

func TestAssemble_LeadingAndTrailingSilence(t *testing.T) {
	tl := Assemble([]Clip{
		{SpanID: 0, Start: 1.0, End: 3.0, Path: "a.wav", Duration: 2.0},
	}, 5.0)
	if len(tl.Pieces) != 3 {
		t.Fatalf("expected silence, clip, silence; got %+v", tl.Pieces)
	}
	if !tl.Pieces[0].Silence || math.Abs(tl.Pieces[0].Duration-1.0) > 1e-9 {
		t.Fatalf("unexpected leading piece %+v", tl.Pieces[0])
	}
	if tl.Pieces[1].Path != "a.wav" {
		t.Fatalf("unexpected clip piece %+v", tl.Pieces[1])
	}
	if math.Abs(tl.Duration-5.0) > 1e-9 {
		t.Fatalf("duration = %v, want 5", tl.Duration)
	}
}

func TestAssemble_SortsAndSkipsTinyGaps(t *testing.T) {
	tl := Assemble([]Clip{
		{SpanID: 1, Start: 2.02, End: 4.0, Path: "b.wav", Duration: 2.0},
		{SpanID: 0, Start: 0, End: 2.0, Path: "a.wav", Duration: 2.0},
	}, 0)
	if len(tl.Pieces) != 2 {
		t.Fatalf("expected two clips without silence, got %+v", tl.Pieces)
	}
	if tl.Pieces[0].SpanID != 0 || tl.Pieces[1].SpanID != 1 {
		t.Fatalf("clips out of order: %+v", tl.Pieces)
	}
}

func TestAssemble_DropsOverlap(t *testing.T) {
	tl := Assemble([]Clip{
		{SpanID: 0, Start: 0, End: 2.0, Path: "a.wav", Duration: 3.0, BestEffort: true},
		{SpanID: 1, Start: 2.5, End: 4.0, Path: "b.wav", Duration: 1.5},
		{SpanID: 2, Start: 4.0, End: 5.0, Path: "c.wav", Duration: 1.0},
	}, 0)
	if len(tl.Dropped) != 1 || tl.Dropped[0] != 1 {
		t.Fatalf("expected span 1 dropped, got %v", tl.Dropped)
	}
	if math.Abs(tl.Duration-5.0) > 1e-9 {
		t.Fatalf("duration = %v, want 5", tl.Duration)
	}
}

func TestAssemble_OverlapWithinToleranceKept(t *testing.T) {
	tl := Assemble([]Clip{
		{SpanID: 0, Start: 0, End: 2.0, Path: "a.wav", Duration: 2.08},
		{SpanID: 1, Start: 2.0, End: 3.0, Path: "b.wav", Duration: 1.0},
	}, 0)
	if len(tl.Dropped) != 0 {
		t.Fatalf("expected no drops, got %v", tl.Dropped)
	}
}

func TestAssemble_PlaceholderIsSilence(t *testing.T) {
	tl := Assemble([]Clip{
		{SpanID: 0, Start: 0, End: 1.5, Duration: 1.5, Placeholder: true},
		{SpanID: 1, Start: 1.5, End: 3.0, Path: "b.wav", Duration: 1.5},
	}, 3.0)
	if len(tl.Pieces) != 2 || !tl.Pieces[0].Silence || tl.Pieces[1].Silence {
		t.Fatalf("unexpected pieces %+v", tl.Pieces)
	}
}

func TestAssemble_CoversLastSpanEnd(t *testing.T) {
	tl := Assemble([]Clip{
		{SpanID: 0, Start: 0.5, End: 4.0, Path: "a.wav", Duration: 3.0},
	}, 2.0)
	if tl.Duration < 4.0-1e-9 {
		t.Fatalf("duration %v shorter than last span end", tl.Duration)
	}
}

// Scenario: a short clip padded to its window followed by a compressed and
// truncated one, on a 5.4s source.
func TestAssemble_ReconciledScenario(t *testing.T) {
	b := Decide(1.2, 3.0)
	c := Decide(3.4, 2.0)
	clips := []Clip{
		{SpanID: 0, Start: 0, End: 3.0, Path: "b.wav", Duration: b.Actual + b.Pad},
		{SpanID: 1, Start: 3.4, End: 5.4, Path: "c.wav", Duration: c.Truncate},
	}
	tl := Assemble(clips, 5.4)
	if len(tl.Pieces) != 3 {
		t.Fatalf("expected clip, gap, clip; got %+v", tl.Pieces)
	}
	if math.Abs(tl.Pieces[1].Duration-0.4) > 1e-9 {
		t.Fatalf("gap = %v, want 0.4", tl.Pieces[1].Duration)
	}
	if math.Abs(tl.Duration-5.4) > 1e-9 {
		t.Fatalf("duration = %v, want 5.4", tl.Duration)
	}
}
