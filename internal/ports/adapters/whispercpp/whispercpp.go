// Package whispercpp adapts the whisper.cpp binary to the Transcriber port.
// Engine output differs by build: some emit fractional-second floats, others
// "HH:MM:SS.mmm" clock strings; both are normalized into the one
// Transcription schema so the rest of the pipeline never branches on the
// engine.
package whispercpp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/storycut/storycut/internal/errs"
	"github.com/storycut/storycut/internal/ports/adapters/procrun"
	"github.com/storycut/storycut/internal/types"
)

// transcribeTimeout kills a runaway transcription; an hour of audio normally
// transcribes well under this.
const transcribeTimeout = 30 * time.Minute

type Adapter struct {
	bin      string
	model    string
	language string
	log      zerolog.Logger
}

func New(binPath, modelPath, language string, log zerolog.Logger) *Adapter {
	return &Adapter{bin: binPath, model: modelPath, language: language, log: log}
}

func (a *Adapter) Transcribe(ctx context.Context, audioPath, cacheDir string) (types.Transcription, error) {
	if a.model == "" {
		return types.Transcription{}, &errs.ConfigError{Reason: "whisper model path is required"}
	}
	outPrefix := filepath.Join(cacheDir, "whisper")
	args := []string{
		"-m", a.model,
		"-f", audioPath,
		"-oj",
		"-of", outPrefix,
		"-ml", "1",
	}
	if a.language != "" {
		args = append(args, "-l", a.language)
	}

	a.log.Info().Str("audio", audioPath).Msg("transcribing")
	if _, err := procrun.Run(ctx, procrun.Spec{
		Name:    "whisper.cpp",
		Bin:     a.bin,
		Args:    args,
		Timeout: transcribeTimeout,
	}); err != nil {
		return types.Transcription{}, err
	}

	b, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return types.Transcription{}, &errs.ParseError{What: "whisper output", Detail: err.Error()}
	}
	return Normalize(b)
}

// seconds accepts either a JSON number of fractional seconds or a clock
// string like "00:01:02.500" (comma decimal separators included).
type seconds float64

func (s *seconds) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		v, err := parseClock(str)
		if err != nil {
			return err
		}
		*s = seconds(v)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*s = seconds(f)
	return nil
}

func parseClock(str string) (float64, error) {
	str = strings.ReplaceAll(strings.TrimSpace(str), ",", ".")
	parts := strings.Split(str, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("clock timestamp %q: want HH:MM:SS.mmm", str)
	}
	h, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, err
	}
	m, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, err
	}
	sec, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, err
	}
	return h*3600 + m*60 + sec, nil
}

type rawWord struct {
	Start       seconds `json:"start"`
	End         seconds `json:"end"`
	Word        string  `json:"word"`
	Probability float64 `json:"probability"`
}

type rawSegment struct {
	Start seconds   `json:"start"`
	End   seconds   `json:"end"`
	Text  string    `json:"text"`
	Words []rawWord `json:"words"`
}

type rawCppSegment struct {
	Timestamps struct {
		From seconds `json:"from"`
		To   seconds `json:"to"`
	} `json:"timestamps"`
	Text string `json:"text"`
}

type rawDoc struct {
	Language string `json:"language"`
	Result   struct {
		Language string `json:"language"`
	} `json:"result"`
	Segments      []rawSegment    `json:"segments"`
	Transcription []rawCppSegment `json:"transcription"`
}

// Normalize converts any supported engine JSON into a Transcription.
func Normalize(b []byte) (types.Transcription, error) {
	var doc rawDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return types.Transcription{}, &errs.ParseError{What: "whisper output", Detail: err.Error()}
	}

	tr := types.Transcription{Language: doc.Language}
	if tr.Language == "" {
		tr.Language = doc.Result.Language
	}

	switch {
	case len(doc.Segments) > 0:
		for _, s := range doc.Segments {
			seg := types.TranscriptSegment{
				Start: float64(s.Start),
				End:   float64(s.End),
				Text:  strings.TrimSpace(s.Text),
			}
			for _, w := range s.Words {
				word := strings.TrimSpace(w.Word)
				if word == "" {
					continue
				}
				seg.Words = append(seg.Words, types.TranscriptWord{
					Start:      float64(w.Start),
					End:        float64(w.End),
					Word:       word,
					Confidence: w.Probability,
				})
			}
			tr.Segments = append(tr.Segments, seg)
		}
	case len(doc.Transcription) > 0:
		for _, s := range doc.Transcription {
			tr.Segments = append(tr.Segments, types.TranscriptSegment{
				Start: float64(s.Timestamps.From),
				End:   float64(s.Timestamps.To),
				Text:  strings.TrimSpace(s.Text),
			})
		}
	default:
		return types.Transcription{}, &errs.ParseError{What: "whisper output", Detail: "no segments"}
	}

	var parts []string
	for _, s := range tr.Segments {
		if s.Text != "" {
			parts = append(parts, s.Text)
		}
	}
	tr.Text = strings.Join(parts, " ")
	return tr, nil
}
