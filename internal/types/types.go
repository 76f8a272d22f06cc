package types

import "fmt"

// VideoMetadata describes the source video. It is filled once right after
// download from the provider's sidecar info file and never mutated afterwards.
type VideoMetadata struct {
	Title        string  `json:"title"`
	Channel      string  `json:"channel"`
	DurationSec  float64 `json:"duration_sec"`
	ThumbnailURL string  `json:"thumbnail_url"`
	Description  string  `json:"description"`
}

// Transcription is the normalized output of a transcription backend. Every
// adapter converts its engine's native timestamp format into fractional
// seconds, so downstream code never branches on the engine.
type Transcription struct {
	Language string              `json:"language"`
	Segments []TranscriptSegment `json:"segments"`
	Text     string              `json:"text"`
}

type TranscriptSegment struct {
	Start float64          `json:"start"`
	End   float64          `json:"end"`
	Text  string           `json:"text"`
	Words []TranscriptWord `json:"words,omitempty"`
}

type TranscriptWord struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Word       string  `json:"word"`
	Confidence float64 `json:"confidence,omitempty"`
}

// SilenceGap is one detected low-amplitude interval. Gap lists are always
// sorted ascending by Start and non-overlapping.
type SilenceGap struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Duration float64 `json:"duration"`
}

// ClipStatus tracks a clip through the pipeline. The order is non-strict:
// uploaded and story-composed are alternate terminal branches.
type ClipStatus string

const (
	ClipPending       ClipStatus = "pending"
	ClipExtracted     ClipStatus = "extracted"
	ClipRendered      ClipStatus = "rendered"
	ClipStoryComposed ClipStatus = "story-composed"
	ClipUploaded      ClipStatus = "uploaded"
)

// EmotionalArc tags a story clip's tone and drives the title-card color.
type EmotionalArc string

const (
	ArcTriumph    EmotionalArc = "triumph"
	ArcSurprise   EmotionalArc = "surprise"
	ArcHeartbreak EmotionalArc = "heartbreak"
	ArcHumor      EmotionalArc = "humor"
	ArcTension    EmotionalArc = "tension"
)

// ParseArc maps free-form model output onto a known arc, defaulting to
// surprise for anything unrecognized.
func ParseArc(s string) EmotionalArc {
	switch EmotionalArc(s) {
	case ArcTriumph, ArcSurprise, ArcHeartbreak, ArcHumor, ArcTension:
		return EmotionalArc(s)
	default:
		return ArcSurprise
	}
}

// StoryMeta carries the 3-act narrative frame the highlight picker can attach
// to a clip.
type StoryMeta struct {
	Hook         string       `json:"hook"`
	Context      string       `json:"context"`
	PayoffFrame  string       `json:"payoff_frame"`
	EmotionalArc EmotionalArc `json:"emotional_arc"`
	ShareHook    string       `json:"share_hook"`
}

// Clip is the central mutable entity: created in a batch by the highlight
// picker, then progressively mutated in place by extraction, render, story
// composition and publish.
type Clip struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	StartSec    float64    `json:"start_sec"`
	EndSec      float64    `json:"end_sec"`
	ViralScore  int        `json:"viral_score"`
	Reason      string     `json:"reason"`
	Tags        []string   `json:"tags,omitempty"`
	TemplateID  string     `json:"template_id"`
	Status      ClipStatus `json:"status"`

	StoryMeta *StoryMeta `json:"story_meta,omitempty"`
	Caption   string     `json:"caption,omitempty"`

	ExtractedPath string `json:"extracted_path,omitempty"`
	RenderedPath  string `json:"rendered_path,omitempty"`
	HookedPath    string `json:"hooked_path,omitempty"`
	StoryPath     string `json:"story_path,omitempty"`
	PublishedURL  string `json:"published_url,omitempty"`
}

func (c Clip) DurationSec() float64 { return c.EndSec - c.StartSec }

// ClipID derives the stable clip id from the project id and ordinal.
func ClipID(projectID string, ordinal int) string {
	return fmt.Sprintf("%s-clip-%d", projectID, ordinal)
}

// StepStatus is the live status of one pipeline stage.
type StepStatus string

const (
	StepPending StepStatus = "pending"
	StepRunning StepStatus = "running"
	StepDone    StepStatus = "done"
	StepError   StepStatus = "error"
	StepSkipped StepStatus = "skipped"
)

// PipelineStep is transient per-run state mirrored to progress observers; it
// is never persisted.
type PipelineStep struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Status    StepStatus `json:"status"`
	Progress  int        `json:"progress"`
	Message   string     `json:"message,omitempty"`
	StartedAt int64      `json:"started_at,omitempty"`
	EndedAt   int64      `json:"ended_at,omitempty"`
}

// Project is the durable manifest: everything the orchestrator needs to
// resume a run from whatever artifacts are already on disk.
type Project struct {
	ID        string        `json:"id"`
	SourceURL string        `json:"source_url"`
	Metadata  VideoMetadata `json:"metadata"`
	Clips     []Clip        `json:"clips"`

	SourcePath string `json:"source_path,omitempty"`
	AudioPath  string `json:"audio_path,omitempty"`
}

// Span is a plain [start,end) interval in source seconds.
type Span struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func (s Span) Duration() float64 { return s.End - s.Start }
