// Package openaiselect implements the HighlightPicker port against an
// OpenAI-compatible chat-completion endpoint.
package openaiselect

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/storycut/storycut/internal/domain/highlights"
	"github.com/storycut/storycut/internal/errs"
	"github.com/storycut/storycut/internal/ports"
	"github.com/storycut/storycut/internal/types"
)

const defaultModel = "gpt-4o-mini"

// chatClient is the slice of the OpenAI client this adapter needs; tests
// substitute a fake.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Adapter struct {
	client chatClient
	model  string
	log    zerolog.Logger
}

// New builds the adapter. An empty apiKey is allowed here and reported as a
// ConfigError on first use, so wiring can happen before credentials are
// checked.
func New(apiKey, baseURL, model string, log zerolog.Logger) *Adapter {
	if model == "" {
		model = defaultModel
	}
	a := &Adapter{model: model, log: log}
	if apiKey != "" {
		cfg := openai.DefaultConfig(apiKey)
		if baseURL != "" {
			cfg.BaseURL = baseURL
		}
		// Assign only a non-nil *openai.Client: storing a nil pointer in the
		// interface field would make the a.client == nil guard pass vacuously.
		a.client = openai.NewClientWithConfig(cfg)
	}
	return a
}

func (a *Adapter) SelectHighlights(ctx context.Context, req ports.HighlightRequest) ([]types.Clip, error) {
	if a.client == nil {
		return nil, &errs.ConfigError{Reason: "no AI credential configured (set STORYCUT_OPENAI_API_KEY)"}
	}
	condensed := highlights.CondensedTranscript(req.Transcription)
	if condensed == "" {
		return nil, &errs.ParseError{What: "transcript", Detail: "no usable segments"}
	}

	a.log.Info().Str("model", a.model).Bool("story", req.WantStory).Msg("selecting highlights")
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: 0.7,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: highlights.SystemPrompt(req.WantStory),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: highlights.UserPrompt(req.VideoTitle, req.DurationSec, condensed),
			},
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, &errs.UpstreamError{
				Service: "highlight picker",
				Err:     fmt.Errorf("status %d: %s", apiErr.HTTPStatusCode, apiErr.Message),
			}
		}
		return nil, &errs.UpstreamError{Service: "highlight picker", Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &errs.UpstreamError{Service: "highlight picker", Err: errors.New("empty choices")}
	}

	clips, err := highlights.ParseResponse(resp.Choices[0].Message.Content, req.ProjectID, req.DurationSec)
	if err != nil {
		return nil, err
	}
	a.log.Info().Int("clips", len(clips)).Msg("highlight selection complete")
	return clips, nil
}
