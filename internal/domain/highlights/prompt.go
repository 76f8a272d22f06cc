// Package highlights holds the model-facing half of highlight selection: the
// condensed transcript, the selection rubric, and parsing/validation of the
// model's response into Clip records.
package highlights

import (
	"fmt"
	"strings"

	"github.com/storycut/storycut/internal/types"
)

// Selection bounds requested from the model.
const (
	MinClips      = 3
	MaxClips      = 8
	MinClipSec    = 20
	MaxClipSec    = 120
	TargetMinSec  = 30
	TargetMaxSec  = 90
	MinViralScore = 1
	MaxViralScore = 10
)

// CondensedTranscript renders one line per segment as
//
//	[12.3s-45.6s] text
//
// Timestamps stay in decimal seconds; minute:second notation is ambiguous to
// language models.
func CondensedTranscript(tr types.Transcription) string {
	var b strings.Builder
	for _, s := range tr.Segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "[%.1fs-%.1fs] %s\n", s.Start, s.End, text)
	}
	return b.String()
}

// SystemPrompt is the selection rubric. wantStory additionally requests the
// 3-act story metadata per clip.
func SystemPrompt(wantStory bool) string {
	var b strings.Builder
	b.WriteString(`You select short-form highlight clips from a long video transcript.

Score each candidate on:
- hook strength: does the first sentence grab attention on its own
- emotional arc: a clear build toward triumph, surprise, heartbreak, humor or tension
- standalone comprehensibility: no missing context required
- shareability: would a viewer send this to a friend

Requirements:
`)
	fmt.Fprintf(&b, "- return %d to %d non-overlapping segments\n", MinClips, MaxClips)
	fmt.Fprintf(&b, "- each segment %d-%ds long, ideally %d-%ds\n", MinClipSec, MaxClipSec, TargetMinSec, TargetMaxSec)
	fmt.Fprintf(&b, "- viral_score is an integer %d-%d\n", MinViralScore, MaxViralScore)
	b.WriteString(`- segments must start and end on complete thoughts
- respond with ONLY a JSON array, no prose, no markdown fences

Each array item:
{"title": "...", "description": "...", "start_sec": 12.5, "end_sec": 55.0,
 "viral_score": 8, "reason": "...", "tags": ["..."]`)
	if wantStory {
		b.WriteString(`,
 "story": {"hook": "...", "context": "...", "payoff_frame": "...",
           "emotional_arc": "triumph|surprise|heartbreak|humor|tension",
           "share_hook": "..."}`)
	}
	b.WriteString("}\n")
	return b.String()
}

// UserPrompt pairs the video facts with the condensed transcript.
func UserPrompt(videoTitle string, videoDurationSec float64, condensed string) string {
	return fmt.Sprintf("Video title: %s\nVideo duration: %.1fs\n\nTranscript:\n%s",
		videoTitle, videoDurationSec, condensed)
}
