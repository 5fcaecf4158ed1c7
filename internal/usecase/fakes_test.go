package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/forPelevin/redub/internal/ports"
	"github.com/forPelevin/redub/internal/ports/adapters/blobfs"
	"github.com/forPelevin/redub/internal/probe"
	"github.com/forPelevin/redub/internal/types"
)

// The fake audio tools store a clip's duration as the file's text, so every
// edit can be checked by reading the file back.

func writeDuration(path string, d float64) error {
	return os.WriteFile(path, []byte(strconv.FormatFloat(d, 'f', -1, 64)), 0o644)
}

func readDuration(path string) (float64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(string(b)), 64)
}

type fakeSynth struct {
	mu        sync.Mutex
	durations map[string]float64
	errs      map[string]error
	delay     time.Duration
	inFlight  int
	maxFlight int
	calls     []string
}

func (f *fakeSynth) Synthesize(ctx context.Context, text, _ string, outPath string) error {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.inFlight++
	if f.inFlight > f.maxFlight {
		f.maxFlight = f.inFlight
	}
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if err := f.errs[text]; err != nil {
		return err
	}
	d, ok := f.durations[text]
	if !ok {
		d = 1
	}
	return writeDuration(outPath, d)
}

type fakeAudio struct {
	padErr    error
	tempoErr  error
	concatErr error
	// measureErr fails Measure for paths with this suffix.
	measureErr string

	mu     sync.Mutex
	concat []string
}

func (f *fakeAudio) Measure(_ context.Context, path string) (float64, error) {
	if f.measureErr != "" && strings.HasSuffix(path, f.measureErr) {
		return 0, errors.New("ffprobe failed")
	}
	return readDuration(path)
}

func (f *fakeAudio) Normalize(_ context.Context, in, out string) error {
	d, err := readDuration(in)
	if err != nil {
		return err
	}
	return writeDuration(out, d)
}

func (f *fakeAudio) Tempo(_ context.Context, in, out string, factor, truncate float64) error {
	if f.tempoErr != nil {
		return f.tempoErr
	}
	d, err := readDuration(in)
	if err != nil {
		return err
	}
	d /= factor
	if truncate > 0 && d > truncate {
		d = truncate
	}
	return writeDuration(out, d)
}

func (f *fakeAudio) Pad(_ context.Context, in, out string, seconds float64) error {
	if f.padErr != nil {
		return f.padErr
	}
	d, err := readDuration(in)
	if err != nil {
		return err
	}
	return writeDuration(out, d+seconds)
}

func (f *fakeAudio) Silence(_ context.Context, out string, seconds float64) error {
	return writeDuration(out, seconds)
}

func (f *fakeAudio) Concat(_ context.Context, inputs []string, out string) error {
	if f.concatErr != nil {
		return f.concatErr
	}
	total := 0.0
	for _, in := range inputs {
		d, err := readDuration(in)
		if err != nil {
			return err
		}
		total += d
	}
	f.mu.Lock()
	f.concat = slices.Clone(inputs)
	f.mu.Unlock()
	return writeDuration(out, total)
}

type fakeVideo struct {
	composeErr error
	extractErr error
	args       [][]string
}

func (f *fakeVideo) ExtractAudioMono16k(_ context.Context, _, outWav string) error {
	if f.extractErr != nil {
		return f.extractErr
	}
	return os.WriteFile(outWav, []byte("wav"), 0o644)
}

func (f *fakeVideo) Compose(_ context.Context, args []string) error {
	f.args = append(f.args, args)
	if f.composeErr != nil {
		return f.composeErr
	}
	return os.WriteFile(args[len(args)-1], []byte("mp4"), 0o644)
}

func (f *fakeVideo) lastArgs() string {
	if len(f.args) == 0 {
		return ""
	}
	return strings.Join(f.args[len(f.args)-1], " ")
}

type fakeProber struct {
	res probe.Result
	err error
}

func (f fakeProber) Probe(context.Context, string) (probe.Result, error) {
	return f.res, f.err
}

type fakeCleaner struct {
	out map[string]string
	err error
}

func (f fakeCleaner) Clean(_ context.Context, text string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if v, ok := f.out[text]; ok {
		return v, nil
	}
	return text, nil
}

type fakeASR struct {
	tr  types.Transcript
	err error
}

func (f fakeASR) Transcribe(context.Context, string, string) (types.Transcript, error) {
	return f.tr, f.err
}

// memStore is an in-memory ProjectStore that records every status write.
type memStore struct {
	mu          sync.Mutex
	seq         int
	projects    map[string]types.Project
	transcripts map[string]types.Transcript
	cleaned     map[string][]types.CleanedSpan
	files       map[string]map[types.FileType]types.FileRecord
	history     map[string][]types.StatusUpdate
	cleanErr    error
}

func newMemStore() *memStore {
	return &memStore{
		projects:    map[string]types.Project{},
		transcripts: map[string]types.Transcript{},
		cleaned:     map[string][]types.CleanedSpan{},
		files:       map[string]map[types.FileType]types.FileRecord{},
		history:     map[string][]types.StatusUpdate{},
	}
}

var _ ports.ProjectStore = (*memStore)(nil)

func (m *memStore) CreateProject(_ context.Context, p types.Project) (types.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	p.ID = fmt.Sprintf("p%d", m.seq)
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	m.projects[p.ID] = p
	return p, nil
}

func (m *memStore) GetProject(_ context.Context, id string) (types.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return types.Project{}, ports.ErrNotFound
	}
	return p, nil
}

func (m *memStore) ListProjects(context.Context) ([]types.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.Project, 0, len(m.projects))
	for _, p := range m.projects {
		out = append(out, p)
	}
	return out, nil
}

func (m *memStore) UpdateStatus(_ context.Context, id string, u types.StatusUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return ports.ErrNotFound
	}
	p.Status = u.Status
	if u.Step != "" {
		p.ProcessingStep = u.Step
	}
	switch {
	case u.Message != "":
		p.ErrorMessage = u.Message
	case u.ClearMessage:
		p.ErrorMessage = ""
	}
	m.projects[id] = p
	m.history[id] = append(m.history[id], u)
	return nil
}

func (m *memStore) BeginRun(ctx context.Context, id string) error {
	p, err := m.GetProject(ctx, id)
	if err != nil {
		return err
	}
	if p.Status.Processing() {
		return errors.New("run in progress")
	}
	return m.UpdateStatus(ctx, id, types.StatusUpdate{Status: types.StatusCleaning, Step: StepStarting, ClearMessage: true})
}

func (m *memStore) GetTranscript(_ context.Context, projectID string) (types.Transcript, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tr, ok := m.transcripts[projectID]
	if !ok {
		return types.Transcript{}, ports.ErrNotFound
	}
	return tr, nil
}

func (m *memStore) SaveTranscript(_ context.Context, projectID string, tr types.Transcript) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transcripts[projectID] = tr
	delete(m.cleaned, projectID)
	return nil
}

func (m *memStore) SaveCleanedTranscript(_ context.Context, projectID string, spans []types.CleanedSpan, script string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cleanErr != nil {
		return m.cleanErr
	}
	m.cleaned[projectID] = spans
	p := m.projects[projectID]
	p.CleanedScript = script
	m.projects[projectID] = p
	return nil
}

func (m *memStore) SaveFile(_ context.Context, rec types.FileRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.files[rec.ProjectID] == nil {
		m.files[rec.ProjectID] = map[types.FileType]types.FileRecord{}
	}
	m.files[rec.ProjectID][rec.Type] = rec
	return nil
}

func (m *memStore) GetFile(_ context.Context, projectID string, ft types.FileType) (types.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.files[projectID][ft]
	if !ok {
		return types.FileRecord{}, ports.ErrNotFound
	}
	return rec, nil
}

func (m *memStore) ListFiles(_ context.Context, projectID string) ([]types.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.FileRecord
	for _, rec := range m.files[projectID] {
		out = append(out, rec)
	}
	return out, nil
}

func (m *memStore) SetZoomConfig(_ context.Context, projectID string, cfg *types.ZoomConfig) error {
	return m.update(projectID, func(p *types.Project) { p.Zoom = cfg })
}

func (m *memStore) SetAvatarConfig(_ context.Context, projectID string, cfg types.AvatarConfig) error {
	return m.update(projectID, func(p *types.Project) { p.Avatar = cfg })
}

func (m *memStore) SetProcessedVideo(_ context.Context, projectID, key string) error {
	return m.update(projectID, func(p *types.Project) { p.ProcessedKey = key })
}

func (m *memStore) DeleteProject(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return ports.ErrNotFound
	}
	delete(m.projects, id)
	delete(m.transcripts, id)
	delete(m.cleaned, id)
	delete(m.files, id)
	return nil
}

func (m *memStore) update(id string, fn func(*types.Project)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return ports.ErrNotFound
	}
	fn(&p)
	m.projects[id] = p
	return nil
}

func (m *memStore) statuses(id string) []types.ProjectStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.ProjectStatus
	for _, u := range m.history[id] {
		if len(out) == 0 || out[len(out)-1] != u.Status {
			out = append(out, u.Status)
		}
	}
	return out
}

type harness struct {
	uc      Usecase
	store   *memStore
	blobs   *blobfs.Store
	synth   *fakeSynth
	audio   *fakeAudio
	video   *fakeVideo
	cleaner ports.Cleaner
	prober  fakeProber
	dir     string
}

func newHarness(t *testing.T, mutate ...func(*harness)) *harness {
	t.Helper()
	dir := t.TempDir()
	blobs, err := blobfs.New(filepath.Join(dir, "blobs"))
	if err != nil {
		t.Fatalf("blobfs: %v", err)
	}
	h := &harness{
		store:   newMemStore(),
		blobs:   blobs,
		synth:   &fakeSynth{durations: map[string]float64{}, errs: map[string]error{}},
		audio:   &fakeAudio{},
		video:   &fakeVideo{},
		cleaner: fakeCleaner{},
		prober:  fakeProber{res: probe.Result{Duration: 5.4, FPS: 30, Width: 1280, Height: 720, Strategy: probe.StrategyFormat}},
		dir:     dir,
	}
	for _, fn := range mutate {
		fn(h)
	}
	h.uc = New(Deps{
		Store:   h.store,
		Blobs:   h.blobs,
		Cleaner: h.cleaner,
		Synth:   h.synth,
		ASR:     fakeASR{},
		Audio:   h.audio,
		Video:   h.video,
		Prober:  h.prober,
	}, Options{WorkDir: filepath.Join(dir, "work"), SynthConcurrency: 2})
	return h
}

// project creates a project with an original video and, when tr is non-nil,
// a transcript.
func (h *harness) project(t *testing.T, tr *types.Transcript) types.Project {
	t.Helper()
	video := filepath.Join(h.dir, "talk.mp4")
	if err := os.WriteFile(video, []byte("video"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}
	p, err := h.uc.CreateProject(context.Background(), NewProject{VideoPath: video, Transcript: tr})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	return p
}

func twoSentenceTranscript() *types.Transcript {
	return &types.Transcript{
		Text: "Um, hello there. So this is the demo.",
		Segments: []types.RawSegment{
			{ID: 0, Start: 0.5, End: 2.5, Text: "Um, hello there."},
			{ID: 1, Start: 3.0, End: 5.0, Text: "So this is the demo."},
		},
	}
}
