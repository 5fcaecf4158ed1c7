package composition

import (
	"reflect"
	"slices"
	"strings"
	"testing"
)

func TestBuild_FullPlan(t *testing.T) {
	spec := Build(Plan{
		VideoDuration: 12.5,
		FPS:           30,
		ZoomFilter:    "zoompan=z='1.2'",
		Overlay:       &Overlay{ImagePath: "avatar.png", Size: SizeSmall, Position: PositionTopLeft},
		Narration:     true,
	})
	want := "[0:v]zoompan=z='1.2'[zoomed];[2:v]scale=iw*0.15:ih*0.15[avatar];[zoomed][avatar]overlay=20:20:shortest=1[v];[1:a]apad=whole_dur=12.500,atrim=end=12.500[a]"
	if got := spec.Graph.String(); got != want {
		t.Fatalf("graph:\n got %s\nwant %s", got, want)
	}
	if !slices.Equal(spec.Maps, []string{"[v]", "[a]"}) {
		t.Fatalf("maps = %v", spec.Maps)
	}
	if spec.Shortest {
		t.Fatal("padded narration must not use -shortest")
	}
}

func TestBuild_UnknownDurationUsesShortest(t *testing.T) {
	spec := Build(Plan{Narration: true})
	if !spec.Graph.Empty() {
		t.Fatalf("expected no filters, got %s", spec.Graph.String())
	}
	if !slices.Equal(spec.Maps, []string{"0:v:0", "1:a:0"}) || !spec.Shortest {
		t.Fatalf("unexpected spec %+v", spec)
	}
}

func TestBuild_OverlayOnly(t *testing.T) {
	spec := Build(Plan{
		VideoDuration: 3,
		Overlay:       &Overlay{ImagePath: "a.png", Size: "huge", Position: "middle"},
		Narration:     true,
	})
	g := spec.Graph.String()
	if !strings.Contains(g, "[0:v][avatar]overlay=W-w-20:H-h-20:shortest=1[v]") {
		t.Fatalf("expected bottom-right fallback, got %s", g)
	}
	if !strings.Contains(g, "scale=iw*0.2:ih*0.2") {
		t.Fatalf("expected medium fallback, got %s", g)
	}
}

func TestBuild_ZoomWithoutNarration(t *testing.T) {
	spec := Build(Plan{VideoDuration: 10, ZoomFilter: "zoompan=z='1'"})
	if spec.Graph.String() != "[0:v]zoompan=z='1'[v]" {
		t.Fatalf("unexpected graph %s", spec.Graph.String())
	}
	if !slices.Equal(spec.Maps, []string{"[v]", "0:a?"}) {
		t.Fatalf("maps = %v", spec.Maps)
	}
	if len(spec.Inputs) != 1 {
		t.Fatalf("expected only the video input, got %+v", spec.Inputs)
	}
}

func TestBuild_NarrationWithoutOverlayKeepsIndices(t *testing.T) {
	spec := Build(Plan{VideoDuration: 4, Narration: true, Overlay: &Overlay{}})
	if len(spec.Inputs) != 2 {
		t.Fatalf("overlay without image must be ignored, got %+v", spec.Inputs)
	}
}

func TestBuild_PaddedNarrationIsTrimmedToVideo(t *testing.T) {
	spec := Build(Plan{VideoDuration: 6.25, Narration: true})
	want := "[1:a]apad=whole_dur=6.250,atrim=end=6.250[a]"
	if got := spec.Graph.String(); got != want {
		t.Fatalf("graph:\n got %s\nwant %s", got, want)
	}
	if spec.Shortest {
		t.Fatal("padded narration must not rely on -shortest")
	}
}

func TestNeedsAudioPadding(t *testing.T) {
	tests := []struct {
		plan Plan
		want bool
	}{
		{Plan{VideoDuration: 5, Narration: true}, true},
		{Plan{VideoDuration: 0, Narration: true}, false},
		{Plan{VideoDuration: 5}, false},
	}
	for _, tt := range tests {
		if got := tt.plan.NeedsAudioPadding(); got != tt.want {
			t.Fatalf("NeedsAudioPadding(%+v) = %v, want %v", tt.plan, got, tt.want)
		}
	}
}

func TestSpecArgs(t *testing.T) {
	spec := Build(Plan{
		VideoDuration: 8,
		Overlay:       &Overlay{ImagePath: "/data/avatar.png", Size: SizeLarge, Position: PositionBottomLeft},
		Narration:     true,
	})
	args := spec.Args("/data/in.mp4", "/tmp/narration.mp3", "/tmp/out.mp4")
	joined := strings.Join(args, " ")
	for _, want := range []string{
		"-i /data/in.mp4 -i /tmp/narration.mp3 -loop 1 -i /data/avatar.png",
		"-map [v] -map [a]",
		"-c:v libx264",
		"-c:a aac",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("args missing %q:\n%s", want, joined)
		}
	}
	if args[len(args)-1] != "/tmp/out.mp4" {
		t.Fatalf("output must be last, got %v", args)
	}
	fc := slices.Index(args, "-filter_complex")
	if fc < 0 || !strings.Contains(args[fc+1], "scale=iw*0.25:ih*0.25") {
		t.Fatalf("unexpected filter_complex in %v", args)
	}
}

func TestBuild_IsDeterministic(t *testing.T) {
	plan := Plan{
		VideoDuration: 42.125,
		FPS:           24,
		ZoomFilter:    "zoompan=z='2'",
		Overlay:       &Overlay{ImagePath: "face.png", Size: SizeLarge, Position: PositionBottomLeft},
		Narration:     true,
	}
	first := Build(plan)
	for range 5 {
		if next := Build(plan); !reflect.DeepEqual(first, next) {
			t.Fatalf("Build is not deterministic:\n%+v\n%+v", first, next)
		}
	}
	a := first.Args("in.mp4", "n.mp3", "out.mp4")
	b := Build(plan).Args("in.mp4", "n.mp3", "out.mp4")
	if !slices.Equal(a, b) {
		t.Fatalf("args differ:\n%v\n%v", a, b)
	}
}
