package pipeline

import "github.com/storycut/storycut/internal/types"

// Stage ids, in run order.
const (
	StepDownload      = "download"
	StepExtractAudio  = "extract-audio"
	StepTranscribe    = "transcribe"
	StepDetectSilence = "detect-silence"
	StepAnalyze       = "analyze"
	StepExtractClips  = "extract-clips"
	StepRender        = "render"
	StepStoryCompose  = "story-compose"
	StepPublish       = "publish"
)

// Steps returns the fresh per-run stage list. The publish stage is present
// only when publishing is enabled.
func Steps(publish bool) []types.PipelineStep {
	steps := []types.PipelineStep{
		{ID: StepDownload, Name: "Download source video", Status: types.StepPending},
		{ID: StepExtractAudio, Name: "Extract audio track", Status: types.StepPending},
		{ID: StepTranscribe, Name: "Transcribe speech", Status: types.StepPending},
		{ID: StepDetectSilence, Name: "Detect silence", Status: types.StepPending},
		{ID: StepAnalyze, Name: "Select highlights", Status: types.StepPending},
		{ID: StepExtractClips, Name: "Extract clips", Status: types.StepPending},
		{ID: StepRender, Name: "Render vertical clips", Status: types.StepPending},
		{ID: StepStoryCompose, Name: "Compose story cuts", Status: types.StepPending},
	}
	if publish {
		steps = append(steps, types.PipelineStep{ID: StepPublish, Name: "Publish clips", Status: types.StepPending})
	}
	return steps
}
