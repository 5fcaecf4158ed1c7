package types

import "time"

type Transcript struct {
	Text     string       `json:"text"`
	Language string       `json:"language"`
	Segments []RawSegment `json:"segments"`
	Words    []Word       `json:"words,omitempty"`
}

// RawSegment is a recognizer chunk. It may be arbitrarily short and end
// mid-sentence.
type RawSegment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type Word struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Word  string  `json:"word"`
}

// MergedSpan is a sentence-level group of consecutive raw segments.
type MergedSpan struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

func (s MergedSpan) Duration() float64 { return s.End - s.Start }

// CleanedSpan carries the span timing unchanged; only the text is rewritten.
type CleanedSpan struct {
	ID           int     `json:"id"`
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
	OriginalText string  `json:"original_text"`
	CleanedText  string  `json:"cleaned_text"`
}

func (s CleanedSpan) Duration() float64 { return s.End - s.Start }

type ProjectStatus string

const (
	StatusUploaded           ProjectStatus = "uploaded"
	StatusCleaning           ProjectStatus = "cleaning"
	StatusCleaned            ProjectStatus = "cleaned"
	StatusGeneratingVoice    ProjectStatus = "generating_voiceover"
	StatusGeneratedVoiceover ProjectStatus = "generated_voiceover"
	StatusProcessingVideo    ProjectStatus = "processing_video"
	StatusComplete           ProjectStatus = "complete"
	StatusError              ProjectStatus = "error"
)

var statusRank = map[ProjectStatus]int{
	StatusUploaded:           0,
	StatusCleaning:           1,
	StatusCleaned:            2,
	StatusGeneratingVoice:    3,
	StatusGeneratedVoiceover: 4,
	StatusProcessingVideo:    5,
	StatusComplete:           6,
	StatusError:              6,
}

// Valid reports whether s is a known status.
func (s ProjectStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Terminal reports whether no further transition is expected within a run.
func (s ProjectStatus) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// Processing reports whether a pipeline run currently owns the project.
func (s ProjectStatus) Processing() bool {
	switch s {
	case StatusCleaning, StatusCleaned, StatusGeneratingVoice, StatusGeneratedVoiceover, StatusProcessingVideo:
		return true
	}
	return false
}

// Before reports whether s precedes next in the lifecycle order.
func (s ProjectStatus) Before(next ProjectStatus) bool {
	return statusRank[s] < statusRank[next]
}

// StatusUpdate is a single status write. Empty Step or Message leave the
// stored values untouched; ClearMessage resets a stale message.
type StatusUpdate struct {
	Status       ProjectStatus
	Step         string
	Message      string
	ClearMessage bool
}

type Project struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Status         ProjectStatus `json:"status"`
	ProcessingStep string        `json:"processing_step,omitempty"`
	ErrorMessage   string        `json:"error_message,omitempty"`
	Voice          string        `json:"voice"`
	Avatar         AvatarConfig  `json:"avatar_config"`
	Zoom           *ZoomConfig   `json:"zoom_config,omitempty"`
	CleanedScript  string        `json:"cleaned_script,omitempty"`
	ProcessedKey   string        `json:"processed_video_key,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

type FileType string

const (
	FileOriginal  FileType = "original"
	FileAudio     FileType = "audio"
	FileProcessed FileType = "processed"
	FileAvatar    FileType = "avatar"
)

type FileRecord struct {
	ProjectID  string    `json:"project_id"`
	Type       FileType  `json:"file_type"`
	StorageKey string    `json:"storage_path"`
	Size       int64     `json:"file_size"`
	CreatedAt  time.Time `json:"created_at"`
}

type AvatarConfig struct {
	Position string `json:"position"`
	Size     string `json:"size"`
}

// ZoomConfig is a manually chosen zoom window. Centers are fractions of the
// frame; nil means the frame center.
type ZoomConfig struct {
	Enabled   bool     `json:"enabled"`
	StartTime float64  `json:"startTime"`
	EndTime   float64  `json:"endTime"`
	ZoomLevel float64  `json:"zoomLevel"`
	CenterX   *float64 `json:"centerX,omitempty"`
	CenterY   *float64 `json:"centerY,omitempty"`
}
