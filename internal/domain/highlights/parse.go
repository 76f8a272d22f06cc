package highlights

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/storycut/storycut/internal/domain/templates"
	"github.com/storycut/storycut/internal/errs"
	"github.com/storycut/storycut/internal/types"
)

type rawHighlight struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	StartSec    float64  `json:"start_sec"`
	EndSec      float64  `json:"end_sec"`
	ViralScore  int      `json:"viral_score"`
	Reason      string   `json:"reason"`
	Tags        []string `json:"tags"`
	Story       *struct {
		Hook         string `json:"hook"`
		Context      string `json:"context"`
		PayoffFrame  string `json:"payoff_frame"`
		EmotionalArc string `json:"emotional_arc"`
		ShareHook    string `json:"share_hook"`
	} `json:"story"`
}

// ParseResponse turns the model's raw completion into Clip records. The
// content may be fenced in markdown; fences are stripped before decoding.
// Timestamps with start >= end or end beyond the video duration are rejected
// with a ParseError. Identical ranges are deliberately not de-duplicated.
func ParseResponse(content, projectID string, videoDurationSec float64) ([]types.Clip, error) {
	body, err := extractJSONArray(content)
	if err != nil {
		return nil, err
	}

	var raw []rawHighlight
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, &errs.ParseError{What: "highlight response", Detail: err.Error()}
	}
	if len(raw) == 0 {
		return nil, &errs.ParseError{What: "highlight response", Detail: "empty highlight list"}
	}

	clips := make([]types.Clip, 0, len(raw))
	for i, h := range raw {
		if h.StartSec >= h.EndSec {
			return nil, &errs.ParseError{
				What:   "highlight response",
				Detail: fmt.Sprintf("item %d: start %.1f >= end %.1f", i, h.StartSec, h.EndSec),
			}
		}
		if videoDurationSec > 0 && h.EndSec > videoDurationSec {
			return nil, &errs.ParseError{
				What:   "highlight response",
				Detail: fmt.Sprintf("item %d: end %.1f beyond video duration %.1f", i, h.EndSec, videoDurationSec),
			}
		}
		title := strings.TrimSpace(h.Title)
		if title == "" {
			title = "Highlight"
		}

		c := types.Clip{
			ID:          types.ClipID(projectID, i+1),
			Title:       title,
			Description: strings.TrimSpace(h.Description),
			StartSec:    h.StartSec,
			EndSec:      h.EndSec,
			ViralScore:  clampScore(h.ViralScore),
			Reason:      h.Reason,
			Tags:        h.Tags,
			TemplateID:  templates.DefaultID,
			Status:      types.ClipPending,
		}
		if h.Story != nil {
			c.StoryMeta = &types.StoryMeta{
				Hook:         h.Story.Hook,
				Context:      h.Story.Context,
				PayoffFrame:  h.Story.PayoffFrame,
				EmotionalArc: types.ParseArc(h.Story.EmotionalArc),
				ShareHook:    h.Story.ShareHook,
			}
		}
		clips = append(clips, c)
	}
	return clips, nil
}

// extractJSONArray strips markdown code fences and slices out the first JSON
// array in the content.
func extractJSONArray(s string) (string, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return "", &errs.ParseError{What: "highlight response", Detail: "empty content"}
	}
	if strings.HasPrefix(t, "```") {
		if i := strings.Index(t, "\n"); i >= 0 {
			t = t[i+1:]
		}
		if j := strings.LastIndex(t, "```"); j >= 0 {
			t = t[:j]
		}
		t = strings.TrimSpace(t)
	}
	start := strings.Index(t, "[")
	end := strings.LastIndex(t, "]")
	if start < 0 || end <= start {
		return "", &errs.ParseError{What: "highlight response", Detail: "no JSON array in content"}
	}
	return t[start : end+1], nil
}

func clampScore(v int) int {
	if v < MinViralScore {
		return MinViralScore
	}
	if v > MaxViralScore {
		return MaxViralScore
	}
	return v
}
