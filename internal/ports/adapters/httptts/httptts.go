// Package httptts implements the SpeechSynthesizer port against a plain HTTP
// endpoint that accepts text and returns raw audio bytes.
package httptts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/storycut/storycut/internal/errs"
)

const requestTimeout = 60 * time.Second

// maxAudioBytes bounds a synthesis response; narration clips are short.
const maxAudioBytes = 32 << 20

type Adapter struct {
	endpoint string
	voice    string
	client   *http.Client
	log      zerolog.Logger
}

func New(endpoint, voice string, log zerolog.Logger) *Adapter {
	return &Adapter{
		endpoint: endpoint,
		voice:    voice,
		client:   &http.Client{Timeout: requestTimeout},
		log:      log,
	}
}

type synthesisRequest struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
	Voice    string `json:"voice,omitempty"`
}

func (a *Adapter) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	if a.endpoint == "" {
		return nil, &errs.ConfigError{Reason: "no speech synthesizer endpoint configured"}
	}

	body, err := json.Marshal(synthesisRequest{Text: text, Language: language, Voice: a.voice})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	a.log.Debug().Int("chars", len(text)).Msg("synthesizing narration")
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &errs.UpstreamError{Service: "speech synthesizer", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		tail, _ := io.ReadAll(io.LimitReader(resp.Body, 400))
		return nil, &errs.UpstreamError{
			Service: "speech synthesizer",
			Err:     fmt.Errorf("status %d: %s", resp.StatusCode, tail),
		}
	}

	audio, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, &errs.UpstreamError{Service: "speech synthesizer", Err: err}
	}
	if len(audio) == 0 {
		return nil, &errs.UpstreamError{Service: "speech synthesizer", Err: fmt.Errorf("empty audio response")}
	}
	return audio, nil
}
