// Package render composes the per-template filter graph and produces the
// final 9:16 clip with burned-in subtitles.
package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/storycut/storycut/internal/domain/filtergraph"
	"github.com/storycut/storycut/internal/domain/subtitles"
	"github.com/storycut/storycut/internal/domain/templates"
	"github.com/storycut/storycut/internal/errs"
	"github.com/storycut/storycut/internal/ports"
	"github.com/storycut/storycut/internal/store"
	"github.com/storycut/storycut/internal/types"
)

type Renderer struct {
	media ports.MediaTool
	log   zerolog.Logger
}

func New(media ports.MediaTool, log zerolog.Logger) *Renderer {
	return &Renderer{media: media, log: log}
}

// Input carries everything one clip render needs. SourcePath is the
// extracted (already cut, silence-removed) clip file.
type Input struct {
	Clip          types.Clip
	Template      templates.Template
	Transcription types.Transcription
	SourcePath    string
	OutDir        string
	TmpDir        string
	OnProgress    ports.ProgressFunc
}

// RenderClip renders one clip. Re-running with the same clip and template
// overwrites the previous output deterministically.
func (r *Renderer) RenderClip(ctx context.Context, in Input) (string, error) {
	if !store.HasArtifact(in.SourcePath) {
		return "", &errs.MissingAssetError{Asset: "extracted clip", Path: in.SourcePath, RunFirst: "extract-clips"}
	}
	if len(in.Transcription.Segments) == 0 {
		return "", &errs.MissingAssetError{Asset: "transcript", Path: "", RunFirst: "transcribe"}
	}

	window := SliceWindow(in.Transcription.Segments, in.Clip.StartSec, in.Clip.EndSec)
	doc := subtitles.Render(window, templates.OutputWidth, templates.OutputHeight, in.Template.SubtitleStyle())

	assPath := filepath.Join(in.TmpDir, in.Clip.ID+".ass")
	if err := os.WriteFile(assPath, []byte(doc), 0o644); err != nil {
		return "", err
	}
	defer os.Remove(assPath)

	graph, extraInputs := BuildGraph(in.Template, assPath)
	outPath := filepath.Join(in.OutDir, in.Clip.ID+".mp4")

	r.log.Info().Str("clip", in.Clip.ID).Str("template", in.Template.ID).Msg("rendering clip")
	job := ports.RenderJob{
		Inputs:       append([]ports.Input{{Path: in.SourcePath}}, extraInputs...),
		Graph:        graph,
		MapPads:      []string{"outv", "outa"},
		OutPath:      outPath,
		DurationHint: in.Clip.DurationSec(),
		OnProgress:   in.OnProgress,
	}
	if err := r.media.Render(ctx, job); err != nil {
		return "", err
	}
	return outPath, nil
}

// SliceWindow selects transcript segments overlapping [startSec,endSec] and
// shifts their timestamps to be clip-relative, clamped to [0, duration].
// Segments entirely outside the window are dropped.
func SliceWindow(segments []types.TranscriptSegment, startSec, endSec float64) []types.TranscriptSegment {
	dur := endSec - startSec
	var out []types.TranscriptSegment
	for _, s := range segments {
		if s.End <= startSec || s.Start >= endSec {
			continue
		}
		seg := types.TranscriptSegment{
			Start: clamp(s.Start-startSec, 0, dur),
			End:   clamp(s.End-startSec, 0, dur),
			Text:  s.Text,
		}
		for _, w := range s.Words {
			if w.End <= startSec || w.Start >= endSec {
				continue
			}
			seg.Words = append(seg.Words, types.TranscriptWord{
				Start:      clamp(w.Start-startSec, 0, dur),
				End:        clamp(w.End-startSec, 0, dur),
				Word:       w.Word,
				Confidence: w.Confidence,
			})
		}
		out = append(out, seg)
	}
	return out
}

// BuildGraph assembles the template's composition graph. Stage order is
// fixed: background, video placement, gradient scrim, border, subtitle
// burn-in; audio passes through unchanged. The returned extra inputs (for
// synthetic backgrounds) follow the clip input in -i order.
func BuildGraph(t templates.Template, assPath string) (*filtergraph.Graph, []ports.Input) {
	g := &filtergraph.Graph{}
	var extra []ports.Input
	w, h := templates.OutputWidth, templates.OutputHeight

	var cur string
	switch t.Background.Mode {
	case templates.BackgroundBlur:
		sigma := t.Background.BlurSigma
		if sigma <= 0 {
			sigma = 20
		}
		g.AddChain([]string{"0:v"}, filtergraph.NewFilter("split"), "bgsrc", "fgsrc")
		g.Add(filtergraph.Chain{
			Inputs: []string{"bgsrc"},
			Filters: []filtergraph.Filter{
				scaleCover(w, h),
				filtergraph.NewFilter("crop").WithOption(itoa(w)).WithOption(itoa(h)),
				filtergraph.NewFilter("boxblur").
					WithArg("luma_radius", itoa(sigma)).
					WithArg("luma_power", "2"),
			},
			Outputs: []string{"bg"},
		})
		g.AddChain([]string{"fgsrc"}, scaleWidth(w), "fg")
		g.AddChain([]string{"bg", "fg"}, overlayFor(t.Placement), "v0")
		cur = "v0"

	case templates.BackgroundGradient:
		c0 := t.Background.Color
		if c0 == "" {
			c0 = "0x1A0533"
		}
		extra = append(extra, ports.Input{
			Path:   fmt.Sprintf("gradients=s=%dx%d:c0=%s:c1=black", w, h, c0),
			Format: "lavfi",
		})
		g.AddChain([]string{"0:v"}, placeFilter(t.Placement, w, h), "fg")
		g.AddChain([]string{"1:v", "fg"}, overlayFor(t.Placement), "v0")
		cur = "v0"

	default: // black or color backdrop
		color := t.Background.Color
		if t.Background.Mode == templates.BackgroundBlack || color == "" {
			color = "black"
		}
		g.Add(filtergraph.Chain{
			Inputs: []string{"0:v"},
			Filters: []filtergraph.Filter{
				placeFilter(t.Placement, w, h),
				padFor(t.Placement, w, h, color),
			},
			Outputs: []string{"v0"},
		})
		cur = "v0"
	}

	if t.Overlay.GradientScrim {
		g.AddChain([]string{cur},
			filtergraph.NewFilter("drawbox").
				WithArg("x", "0").
				WithArg("y", itoa(h*2/3)).
				WithArg("w", itoa(w)).
				WithArg("h", itoa(h/3)).
				WithArg("color", "black@0.35").
				WithArg("t", "fill"),
			"vscrim")
		cur = "vscrim"
	}
	if t.Overlay.Border {
		color := t.Overlay.BorderColor
		if color == "" {
			color = "white@0.6"
		}
		width := t.Overlay.BorderWidth
		if width <= 0 {
			width = 6
		}
		g.AddChain([]string{cur},
			filtergraph.NewFilter("drawbox").
				WithArg("x", "0").
				WithArg("y", "0").
				WithArg("w", "iw").
				WithArg("h", "ih").
				WithArg("color", color).
				WithArg("t", itoa(width)),
			"vborder")
		cur = "vborder"
	}

	// Subtitle burn-in is always the final visual stage.
	g.AddChain([]string{cur},
		filtergraph.NewFilter("subtitles").
			WithArg("filename", "'"+filtergraph.Escape(assPath)+"'"),
		"outv")
	g.AddChain([]string{"0:a"}, filtergraph.NewFilter("anull"), "outa")

	return g, extra
}

func scaleCover(w, h int) filtergraph.Filter {
	return filtergraph.NewFilter("scale").
		WithOption(itoa(w)).
		WithOption(itoa(h)).
		WithArg("force_original_aspect_ratio", "increase")
}

func scaleWidth(w int) filtergraph.Filter {
	return filtergraph.NewFilter("scale").WithOption(itoa(w)).WithOption("-2")
}

// placeFilter scales the source per the placement rule.
func placeFilter(p templates.Placement, w, h int) filtergraph.Filter {
	if p == templates.PlacementFill {
		return scaleCover(w, h)
	}
	return scaleWidth(w)
}

// padFor letterboxes a scaled source onto a solid backdrop.
func padFor(p templates.Placement, w, h int, color string) filtergraph.Filter {
	y := "(oh-ih)/2"
	if p == templates.PlacementTop {
		y = "0"
	}
	if p == templates.PlacementFill {
		// Cover-scaled sources just need the crop to the exact frame.
		return filtergraph.NewFilter("crop").WithOption(itoa(w)).WithOption(itoa(h))
	}
	return filtergraph.NewFilter("pad").
		WithOption(itoa(w)).
		WithOption(itoa(h)).
		WithOption("(ow-iw)/2").
		WithOption(y).
		WithArg("color", color)
}

func overlayFor(p templates.Placement) filtergraph.Filter {
	y := "(H-h)/2"
	if p == templates.PlacementTop {
		y = "0"
	}
	return filtergraph.NewFilter("overlay").WithArg("x", "(W-w)/2").WithArg("y", y)
}

func itoa(v int) string { return fmt.Sprintf("%d", v) }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
