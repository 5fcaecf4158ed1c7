package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/forPelevin/redub/internal/types"
	"github.com/forPelevin/redub/internal/usecase"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

type cliEnv struct {
	dir    string
	config string
}

func newCLIEnv(t *testing.T) cliEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("REDUB_DATA_DIR", filepath.Join(dir, "data"))
	for _, key := range []string{"OPENROUTER_API_KEY", "OPENROUTER_BASE_URL", "OPENROUTER_MODEL", "OPENROUTER_ALLOWED_HOSTS", "OPENAI_API_KEY"} {
		t.Setenv(key, "")
	}
	return cliEnv{dir: dir, config: filepath.Join(dir, "redub.toml")}
}

func (e cliEnv) execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config", e.config}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (e cliEnv) fixtures(t *testing.T) (video, transcript string) {
	t.Helper()
	video = filepath.Join(e.dir, "demo.mp4")
	if err := os.WriteFile(video, []byte("not really a video"), 0o644); err != nil {
		t.Fatal(err)
	}
	tr := types.Transcript{
		Text: "Um, hello. This is it.",
		Segments: []types.RawSegment{
			{ID: 0, Start: 0, End: 1.2, Text: "Um, hello."},
			{ID: 1, Start: 1.4, End: 3, Text: "This is it."},
		},
	}
	b, err := json.Marshal(tr)
	if err != nil {
		t.Fatal(err)
	}
	transcript = filepath.Join(e.dir, "transcript.json")
	if err := os.WriteFile(transcript, b, 0o644); err != nil {
		t.Fatal(err)
	}
	return video, transcript
}

func TestProjectCreateAndStatus(t *testing.T) {
	env := newCLIEnv(t)
	video, transcript := env.fixtures(t)

	out, err := env.execute(t, "project", "create", video, "--transcript", transcript, "--name", "Demo Talk", "--position", "top-left")
	if err != nil {
		t.Fatalf("project create: %v", err)
	}
	if !strings.HasPrefix(out, "Created project ") {
		t.Fatalf("output = %q", out)
	}
	id := strings.Fields(out)[2]

	out, err = env.execute(t, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"Demo Talk", "uploaded", id[:8]} {
		if !strings.Contains(out, want) {
			t.Fatalf("status output missing %q:\n%s", want, out)
		}
	}

	out, err = env.execute(t, "status", id[:8])
	if err != nil {
		t.Fatalf("status detail: %v", err)
	}
	for _, want := range []string{"Name     Demo Talk", "top-left, medium", "original", "Zoom     off"} {
		if !strings.Contains(out, want) {
			t.Fatalf("detail output missing %q:\n%s", want, out)
		}
	}

	out, err = env.execute(t, "status", "--json", id)
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	var detail struct {
		Project types.Project      `json:"project"`
		Files   []types.FileRecord `json:"files"`
	}
	if err := json.Unmarshal([]byte(out), &detail); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	if detail.Project.ID != id || len(detail.Files) != 1 {
		t.Fatalf("detail = %+v", detail)
	}
}

func TestProjectDelete(t *testing.T) {
	env := newCLIEnv(t)
	video, transcript := env.fixtures(t)

	out, err := env.execute(t, "project", "create", video, "--transcript", transcript, "--name", "Doomed")
	if err != nil {
		t.Fatalf("project create: %v", err)
	}
	id := strings.Fields(out)[2]
	blobDir := filepath.Join(env.dir, "data", "blobs", id)
	if entries, err := os.ReadDir(blobDir); err != nil || len(entries) == 0 {
		t.Fatalf("blobs before delete: %v %v", entries, err)
	}

	out, err = env.execute(t, "project", "delete", id[:8])
	if err != nil {
		t.Fatalf("project delete: %v", err)
	}
	if !strings.Contains(out, "Deleted "+id[:8]) {
		t.Fatalf("output = %q", out)
	}
	if entries, _ := os.ReadDir(blobDir); len(entries) != 0 {
		t.Fatalf("blobs left after delete: %v", entries)
	}
	if _, err := env.execute(t, "status", id); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("status after delete err = %v", err)
	}
}

func TestRunRequiresSynthesisKey(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.execute(t, "run", "anything")
	if err == nil || !strings.Contains(err.Error(), "synthesis.api_key is required") {
		t.Fatalf("err = %v", err)
	}
}

func TestUnknownProject(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.execute(t, "status", "nope")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("err = %v", err)
	}
}

func TestZoomRequiresEnd(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.execute(t, "zoom", "anything", "--start", "1")
	if err == nil || !strings.Contains(err.Error(), "--end is required") {
		t.Fatalf("err = %v", err)
	}
}

func TestConfigInit(t *testing.T) {
	env := newCLIEnv(t)
	target := filepath.Join(env.dir, "cfg", "config.toml")

	out, err := env.execute(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("output = %q", out)
	}
	if _, err := env.execute(t, "config", "init", "--path", target); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("second init err = %v", err)
	}
	if _, err := env.execute(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
}

func TestConfigShowRedactsSecrets(t *testing.T) {
	env := newCLIEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-secret")

	out, err := env.execute(t, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "sk-secret") || !strings.Contains(out, "********") {
		t.Fatalf("secret not redacted:\n%s", out)
	}
}

func TestRenderProjects(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	got := renderProjects([]types.Project{{
		ID:             "0123456789abcdef",
		Name:           "Launch video",
		Status:         types.StatusGeneratingVoice,
		ProcessingStep: "Generating AI voiceover",
		UpdatedAt:      now.Add(-2 * time.Minute),
	}}, now)
	for _, want := range []string{"01234567", "Launch video", "generating_voiceover", "Generating AI voiceover", "2 minutes ago"} {
		if !strings.Contains(got, want) {
			t.Fatalf("table missing %q:\n%s", want, got)
		}
	}
}

func TestRenderProjectFiles(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	got := renderProject(types.Project{
		ID:           "p1",
		Name:         "Launch",
		Status:       types.StatusComplete,
		ErrorMessage: "Video processing failed: boom, but voiceover is available",
		Zoom:         &types.ZoomConfig{Enabled: true, StartTime: 1, EndTime: 3, ZoomLevel: 2},
		CreatedAt:    now.Add(-time.Hour),
	}, []types.FileRecord{{Type: types.FileAudio, StorageKey: "p1/voiceover.mp3", Size: 1_500_000, CreatedAt: now}}, nil, now)
	for _, want := range []string{"Message  Video processing failed", "Zoom     1.00s-3.00s at 2x", "1.5 MB", "p1/voiceover.mp3", "1 hour ago"} {
		if !strings.Contains(got, want) {
			t.Fatalf("detail missing %q:\n%s", want, got)
		}
	}
}

func TestRenderProjectCleanedSpans(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	spans := []types.CleanedSpan{
		{ID: 0, Start: 0.5, End: 2.5, OriginalText: "Um, hello there.", CleanedText: "Hello there."},
		{ID: 1, Start: 3, End: 5, OriginalText: "This is the demo.", CleanedText: "This is the demo."},
	}
	got := renderProject(types.Project{ID: "p1", Name: "Launch", Status: types.StatusComplete, CleanedScript: "Hello there. This is the demo."}, nil, spans, now)
	for _, want := range []string{"0.50-2.50", "Um, hello there.", "Hello there.", "3.00-5.00"} {
		if !strings.Contains(got, want) {
			t.Fatalf("detail missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Script") {
		t.Fatalf("script repeated next to the span table:\n%s", got)
	}

	plain := renderProject(types.Project{ID: "p1", Name: "Launch", CleanedScript: "Hello there."}, nil, nil, now)
	if !strings.Contains(plain, "Script\nHello there.") {
		t.Fatalf("script missing without spans:\n%s", plain)
	}
}

func TestProgressTrackerPlainOutput(t *testing.T) {
	var out bytes.Buffer
	tr := newProgressTracker(&out, false)

	tr.observe(usecase.Progress{Status: types.StatusCleaning, Step: "Cleaning transcript with AI"})
	tr.observe(usecase.Progress{Status: types.StatusCleaning, Step: "Cleaning transcript with AI"})
	tr.observe(usecase.Progress{Status: types.StatusGeneratingVoice, Step: "Generating AI voiceover"})
	tr.observe(usecase.Progress{Clip: &usecase.SynthesizedClip{SpanID: 0}, Total: 2})
	tr.observe(usecase.Progress{Clip: &usecase.SynthesizedClip{SpanID: 1, Placeholder: true}, Total: 2})
	tr.finish()
	tr.observe(usecase.Progress{Status: types.StatusComplete, Step: "Processing complete"})

	want := "cleaning Cleaning transcript with AI\n" +
		"generating_voiceover Generating AI voiceover\n" +
		"  span 1: synthesis failed, silence kept\n"
	if out.String() != want {
		t.Fatalf("output = %q, want %q", out.String(), want)
	}
}
