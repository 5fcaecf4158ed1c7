package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
)

const cleanPrompt = "You clean up spoken narration for a voiceover. " +
	"Remove only filler words (um, uh, er, ah, hmm) and immediate word repetitions. " +
	"Do not rephrase, reorder, summarize, translate or add words. " +
	`Reply with JSON only: {"cleaned":"..."}`

// Clean removes filler words from one span of narration.
func (a *Adapter) Clean(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("openai clean: empty input")
	}
	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(cleanPrompt),
			openai.UserMessage(text),
		},
		Model:       a.chatModel,
		Temperature: openai.Float(0),
		MaxTokens:   openai.Int(500),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{Type: "json_object"},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai clean: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai clean: no choices")
	}
	return decodeCleaned(resp.Choices[0].Message.Content)
}

func decodeCleaned(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	var out struct {
		Cleaned string `json:"cleaned"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return "", fmt.Errorf("openai clean: parse: %w", err)
	}
	cleaned := strings.Join(strings.Fields(out.Cleaned), " ")
	if cleaned == "" {
		return "", errors.New("openai clean: empty output")
	}
	return cleaned, nil
}
