package whispercpp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/forPelevin/redub/internal/types"
)

type Adapter struct {
	bin      string
	model    string
	language string
}

func New(binPath, modelPath, language string) *Adapter {
	if binPath == "" {
		binPath = "whisper-cli"
	}
	if language == "" {
		language = "auto"
	}
	return &Adapter{bin: binPath, model: modelPath, language: language}
}

type offsets struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

type output struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Offsets offsets `json:"offsets"`
		Text    string  `json:"text"`
		Tokens  []struct {
			Text    string  `json:"text"`
			Offsets offsets `json:"offsets"`
		} `json:"tokens"`
	} `json:"transcription"`
}

func (a *Adapter) Transcribe(ctx context.Context, wavPath, cacheDir string) (types.Transcript, error) {
	outPrefix := filepath.Join(cacheDir, "whisper")
	args := []string{
		"-m", a.model,
		"-f", wavPath,
		"-l", a.language,
		"-ojf",
		"-of", outPrefix,
	}
	cmd := exec.CommandContext(ctx, a.bin, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return types.Transcript{}, fmt.Errorf("whisper.cpp failed: %w\n%s", err, string(b))
	}

	jb, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return types.Transcript{}, err
	}
	return decode(jb)
}

func decode(jb []byte) (types.Transcript, error) {
	var out output
	if err := json.Unmarshal(jb, &out); err != nil {
		return types.Transcript{}, fmt.Errorf("whisper.cpp output: %w", err)
	}

	tr := types.Transcript{Language: out.Result.Language}
	texts := make([]string, 0, len(out.Transcription))
	for _, s := range out.Transcription {
		text := strings.TrimSpace(s.Text)
		tr.Segments = append(tr.Segments, types.RawSegment{
			ID:    len(tr.Segments),
			Start: seconds(s.Offsets.From),
			End:   seconds(s.Offsets.To),
			Text:  text,
		})
		if text != "" {
			texts = append(texts, text)
		}
		for _, tok := range s.Tokens {
			w := strings.TrimSpace(tok.Text)
			if w == "" || strings.HasPrefix(w, "[_") {
				continue
			}
			tr.Words = append(tr.Words, types.Word{
				Start: seconds(tok.Offsets.From),
				End:   seconds(tok.Offsets.To),
				Word:  w,
			})
		}
	}
	tr.Text = strings.Join(texts, " ")
	return tr, nil
}

func seconds(ms int64) float64 {
	return float64(ms) / 1000
}
