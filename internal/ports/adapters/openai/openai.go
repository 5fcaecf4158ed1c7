// Package openai adapts the OpenAI API to the synthesizer and cleaner ports.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	DefaultSpeechModel = "tts-1"
	DefaultVoice       = "alloy"
	DefaultChatModel   = "gpt-4o-mini"

	requestTimeout = 90 * time.Second
	maxSpeechInput = 4096
)

var voices = map[string]bool{
	"alloy": true, "ash": true, "ballad": true, "coral": true, "echo": true,
	"fable": true, "onyx": true, "nova": true, "sage": true, "shimmer": true, "verse": true,
}

type Adapter struct {
	client      openai.Client
	speechModel string
	chatModel   string
}

type Options struct {
	APIKey      string
	BaseURL     string
	SpeechModel string
	ChatModel   string
}

func New(opts Options) *Adapter {
	clientOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithRequestTimeout(requestTimeout),
		option.WithMaxRetries(0),
	}
	if strings.TrimSpace(opts.BaseURL) != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.SpeechModel == "" {
		opts.SpeechModel = DefaultSpeechModel
	}
	if opts.ChatModel == "" {
		opts.ChatModel = DefaultChatModel
	}
	return &Adapter{
		client:      openai.NewClient(clientOpts...),
		speechModel: opts.SpeechModel,
		chatModel:   opts.ChatModel,
	}
}

// Voice maps a project voice to a supported one, defaulting to alloy.
func Voice(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if voices[v] {
		return v
	}
	return DefaultVoice
}

// Synthesize renders text as mp3 to outPath.
func (a *Adapter) Synthesize(ctx context.Context, text, voice, outPath string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.New("openai speech: empty input")
	}
	if r := []rune(text); len(r) > maxSpeechInput {
		text = string(r[:maxSpeechInput])
	}

	resp, err := a.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input: text,
		Model: openai.SpeechModel(a.speechModel),
		Voice: openai.AudioSpeechNewParamsVoice(Voice(voice)),
	})
	if err != nil {
		return fmt.Errorf("openai speech: %w", err)
	}
	defer resp.Body.Close()

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("openai speech: %w", err)
	}
	n, copyErr := io.Copy(f, resp.Body)
	closeErr := f.Close()
	if copyErr != nil {
		return fmt.Errorf("openai speech: read audio: %w", copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("openai speech: %w", closeErr)
	}
	if n == 0 {
		return errors.New("openai speech: empty audio")
	}
	return nil
}
