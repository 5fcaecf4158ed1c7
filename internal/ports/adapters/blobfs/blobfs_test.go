package blobfs

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/forPelevin/redub/internal/ports"
)

func TestPutOpenDelete(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	n, err := s.Put(ctx, "p1/voiceover.mp3", strings.NewReader("audio"))
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 {
		t.Fatalf("n = %d", n)
	}
	rc, err := s.Open(ctx, "p1/voiceover.mp3")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(b) != "audio" {
		t.Fatalf("got %q", b)
	}
	if _, err := s.LocalPath(ctx, "p1/voiceover.mp3"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "p1/voiceover.mp3"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Open(ctx, "p1/voiceover.mp3"); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "p1/voiceover.mp3"); err != nil {
		t.Fatalf("deleting a missing blob must succeed, got %v", err)
	}
}

func TestResolveRejectsEscapes(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"", "/etc/passwd", "../x", "a/../../x", "..", `a\b`} {
		t.Run(key, func(t *testing.T) {
			if _, err := s.resolve(key); !errors.Is(err, ErrInvalidKey) {
				t.Fatalf("resolve(%q) err = %v, want ErrInvalidKey", key, err)
			}
		})
	}
	if _, err := s.resolve("a/../b"); err != nil {
		t.Fatalf("inner .. that stays in root must resolve: %v", err)
	}
}

func TestPut_CanceledContext(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Put(ctx, "k", strings.NewReader("x")); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if _, err := s.LocalPath(context.Background(), "k"); !errors.Is(err, ports.ErrNotFound) {
		t.Fatal("canceled put must not leave a blob behind")
	}
}
