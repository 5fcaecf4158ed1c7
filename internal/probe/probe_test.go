package probe

import (
	"context"
	"errors"
	"math"
	"testing"
)

type fakeSource struct {
	md       Metadata
	mdErr    error
	header   string
	decode   string
	mdCalls  int
	hdrCalls int
	decCalls int
}

func (f *fakeSource) Metadata(context.Context, string) (Metadata, error) {
	f.mdCalls++
	return f.md, f.mdErr
}

func (f *fakeSource) HeaderDump(context.Context, string) (string, error) {
	f.hdrCalls++
	return f.header, nil
}

func (f *fakeSource) DecodeDump(context.Context, string) (string, error) {
	f.decCalls++
	return f.decode, nil
}

func TestProbe_FormatShortCircuits(t *testing.T) {
	src := &fakeSource{md: Metadata{
		FormatDuration: "12.5",
		Streams:        []Stream{{CodecType: "video", RFrameRate: "30000/1001", Width: 1280, Height: 720}},
	}}
	res, err := New(src, nil).Probe(context.Background(), "in.mp4")
	if err != nil {
		t.Fatal(err)
	}
	if res.Duration != 12.5 || res.Strategy != StrategyFormat {
		t.Fatalf("unexpected result %+v", res)
	}
	if math.Abs(res.FPS-29.97) > 0.01 || res.Width != 1280 || res.Height != 720 {
		t.Fatalf("unexpected stream info %+v", res)
	}
	if src.mdCalls != 1 || src.hdrCalls != 0 || src.decCalls != 0 {
		t.Fatalf("later strategies must not run: md=%d hdr=%d dec=%d", src.mdCalls, src.hdrCalls, src.decCalls)
	}
}

func TestProbe_StreamDuration(t *testing.T) {
	src := &fakeSource{md: Metadata{
		FormatDuration: "N/A",
		Streams:        []Stream{{CodecType: "audio", Duration: "garbage"}, {CodecType: "video", Duration: "7.25"}},
	}}
	res, err := New(src, nil).Probe(context.Background(), "in.webm")
	if err != nil {
		t.Fatal(err)
	}
	if res.Duration != 7.25 || res.Strategy != StrategyStream {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestProbe_FrameCount(t *testing.T) {
	src := &fakeSource{md: Metadata{
		Streams: []Stream{{CodecType: "video", NbFrames: "300", RFrameRate: "25/1"}},
	}}
	res, err := New(src, nil).Probe(context.Background(), "in.webm")
	if err != nil {
		t.Fatal(err)
	}
	if res.Duration != 12 || res.Strategy != StrategyFrames || res.FPS != 25 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestProbe_HeaderDuration(t *testing.T) {
	src := &fakeSource{
		md:     Metadata{FormatDuration: "0", Streams: []Stream{{CodecType: "video", NbFrames: "0", RFrameRate: "30/1"}}},
		header: "Input #0, matroska,webm, from 'rec.webm':\n  Duration: 00:01:23.45, start: 0.000000, bitrate: N/A\n",
	}
	res, err := New(src, nil).Probe(context.Background(), "rec.webm")
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(res.Duration-83.45) > 1e-9 || res.Strategy != StrategyHeader {
		t.Fatalf("unexpected result %+v", res)
	}
	if src.decCalls != 0 {
		t.Fatal("decode must not run once the header yields a duration")
	}
}

func TestProbe_ImplausibleFrameCountFallsThrough(t *testing.T) {
	src := &fakeSource{
		md:     Metadata{Streams: []Stream{{CodecType: "video", NbFrames: "99999999999", RFrameRate: "1000/1"}}},
		header: "  Duration: 00:00:04.50, start: 0.000000, bitrate: 1 kb/s",
	}
	res, err := New(src, nil).Probe(context.Background(), "in.webm")
	if err != nil {
		t.Fatal(err)
	}
	if res.Strategy != StrategyHeader || res.Duration != 4.5 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.FPS != DefaultFPS {
		t.Fatalf("fps %v must clamp to default", res.FPS)
	}
}

// Metadata reports nothing usable and the header says N/A; only the full
// decode reveals the length.
func TestProbe_DecodeFallback(t *testing.T) {
	src := &fakeSource{
		md:     Metadata{FormatDuration: "N/A", Streams: []Stream{{CodecType: "video", Duration: "N/A", NbFrames: ""}}},
		header: "  Duration: N/A, start: 0.000000, bitrate: N/A",
		decode: "frame=  100 time=00:00:40.00 bitrate=N/A\rframe= 2503 time=00:01:23.45 bitrate=N/A speed=50x\n",
	}
	res, err := New(src, nil).Probe(context.Background(), "rec.webm")
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(res.Duration-83.45) > 1e-9 || res.Strategy != StrategyDecode {
		t.Fatalf("unexpected result %+v", res)
	}
	if src.decCalls != 1 {
		t.Fatalf("expected one decode, got %d", src.decCalls)
	}
}

func TestProbe_AllFail(t *testing.T) {
	src := &fakeSource{mdErr: errors.New("boom")}
	_, err := New(src, nil).Probe(context.Background(), "x")
	if !errors.Is(err, ErrNoDuration) {
		t.Fatalf("err = %v, want ErrNoDuration", err)
	}
	if src.mdCalls != 1 || src.hdrCalls != 1 || src.decCalls != 1 {
		t.Fatalf("expected every strategy once: md=%d hdr=%d dec=%d", src.mdCalls, src.hdrCalls, src.decCalls)
	}
}

func TestProbe_CanceledContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := &fakeSource{}
	_, err := New(src, nil).Probe(ctx, "x")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if src.decCalls != 0 {
		t.Fatal("decode must not run after cancellation")
	}
}

func TestClampFPS(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, DefaultFPS},
		{-5, DefaultFPS},
		{240, DefaultFPS},
		{120, 120},
		{23.976, 23.976},
		{math.NaN(), DefaultFPS},
	}
	for _, tt := range tests {
		if got := ClampFPS(tt.in); got != tt.want {
			t.Fatalf("ClampFPS(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseRate(t *testing.T) {
	tests := map[string]float64{
		"30/1":  30,
		"0/0":   0,
		"24":    24,
		"":      0,
		"abc/1": 0,
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			if got := parseRate(in); got != want {
				t.Fatalf("parseRate(%q) = %v, want %v", in, got, want)
			}
		})
	}
}
