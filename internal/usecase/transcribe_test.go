package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/forPelevin/redub/internal/types"
)

func TestTranscribe(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	want := *twoSentenceTranscript()
	h.uc.d.ASR = fakeASR{tr: want}
	p := h.project(t, nil)

	got, err := h.uc.Transcribe(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(got.Segments) != 2 {
		t.Fatalf("segments = %d, want 2", len(got.Segments))
	}
	stored, err := h.store.GetTranscript(context.Background(), p.ID)
	if err != nil || stored.Text != want.Text {
		t.Fatalf("stored = %+v, %v", stored, err)
	}
}

func TestTranscribe_Errors(t *testing.T) {
	t.Parallel()

	t.Run("recognizer failure", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.uc.d.ASR = fakeASR{err: errors.New("model missing")}
		p := h.project(t, nil)

		if _, err := h.uc.Transcribe(context.Background(), p.ID); err == nil {
			t.Fatal("expected error")
		}
		if _, err := h.store.GetTranscript(context.Background(), p.ID); err == nil {
			t.Fatal("transcript stored after failure")
		}
	})

	t.Run("extraction failure", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.video.extractErr = errors.New("no audio stream")
		p := h.project(t, nil)

		if _, err := h.uc.Transcribe(context.Background(), p.ID); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("busy", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		p := h.project(t, &types.Transcript{Text: "x"})
		if err := h.store.BeginRun(context.Background(), p.ID); err != nil {
			t.Fatal(err)
		}
		if _, err := h.uc.Transcribe(context.Background(), p.ID); !errors.Is(err, ErrBusy) {
			t.Fatalf("err = %v, want ErrBusy", err)
		}
	})
}
