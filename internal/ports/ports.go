package ports

import (
	"context"

	"github.com/storycut/storycut/internal/domain/filtergraph"
	"github.com/storycut/storycut/internal/domain/silence"
	"github.com/storycut/storycut/internal/types"
)

// ProgressFunc receives best-effort completion percentages in [0,100].
type ProgressFunc func(percent float64)

// Downloader fetches a source video into destDir and returns the file path.
type Downloader interface {
	Download(ctx context.Context, url, destDir string, onProgress ProgressFunc) (string, error)
	// Metadata parses the provider-written sidecar info file in projectDir.
	// A missing sidecar is non-fatal and yields a zeroed "Unknown" record.
	Metadata(projectDir string) types.VideoMetadata
}

// MediaInfo is the probe result for one file.
type MediaInfo struct {
	DurationSec float64
	Width       int
	Height      int
	HasAudio    bool
	HasVideo    bool
}

// RenderJob describes one filter-graph render.
type RenderJob struct {
	// Inputs in -i order. Each may carry extra pre-input flags such as lavfi
	// sources or duration limits.
	Inputs []Input
	Graph  *filtergraph.Graph
	// MapPads are the graph output pads to encode, in stream order.
	MapPads []string
	OutPath string
	// DurationHint drives progress percentages parsed from time= markers.
	DurationHint float64
	// AudioOnly selects an audio-only encode.
	AudioOnly  bool
	OnProgress ProgressFunc
}

// Input is one -i entry for a render job.
type Input struct {
	Path string
	// Format is passed as -f (e.g. "lavfi" for synthetic sources).
	Format string
	// DurationSec is passed as -t when positive.
	DurationSec float64
}

// MediaTool wraps the media toolchain for probing, cutting, concatenation
// and filter-graph rendering.
type MediaTool interface {
	Probe(ctx context.Context, path string) (MediaInfo, error)
	ExtractAudio(ctx context.Context, inPath, outWav string) error
	// Cut stream-copies [startSec,endSec) from in into out.
	Cut(ctx context.Context, inPath string, startSec, endSec float64, outPath string) error
	// Concat losslessly joins parts in order via the concat demuxer.
	Concat(ctx context.Context, parts []string, outPath string) error
	Render(ctx context.Context, job RenderJob) error
}

// SilenceDetector produces sorted, non-overlapping silence gaps for an audio
// file.
type SilenceDetector interface {
	DetectSilence(ctx context.Context, audioPath string, opts silence.Options) ([]types.SilenceGap, error)
}

// Transcriber turns audio into a normalized Transcription.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, cacheDir string) (types.Transcription, error)
}

// HighlightRequest carries everything the highlight picker needs.
type HighlightRequest struct {
	Transcription types.Transcription
	VideoTitle    string
	DurationSec   float64
	ProjectID     string
	WantStory     bool
}

// HighlightPicker asks the AI service for highlight clips.
type HighlightPicker interface {
	SelectHighlights(ctx context.Context, req HighlightRequest) ([]types.Clip, error)
}

// SpeechSynthesizer converts text into raw audio bytes.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, language string) ([]byte, error)
}

// Publisher pushes a finished artifact somewhere shareable and returns its
// URL.
type Publisher interface {
	Publish(ctx context.Context, clip types.Clip, path string) (string, error)
}
