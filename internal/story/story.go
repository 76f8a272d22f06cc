// Package story turns a rendered clip into a 3-act short: a tinted title
// card, a dimmed slowed preview, then the clip itself. Acts are rendered
// separately with identical encode parameters and joined losslessly.
package story

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/storycut/storycut/internal/domain/filtergraph"
	"github.com/storycut/storycut/internal/domain/templates"
	"github.com/storycut/storycut/internal/errs"
	"github.com/storycut/storycut/internal/ports"
	"github.com/storycut/storycut/internal/store"
	"github.com/storycut/storycut/internal/types"
)

// Config holds the act timing and mix knobs.
type Config struct {
	// HookTargetSec is both the narration hook cap and the act 1 floor.
	HookTargetSec float64
	// ContextTargetSec is the act 2 floor and the degraded context length.
	ContextTargetSec float64
	// NarrationSplitRatio places the hook/context cut in the narration take.
	NarrationSplitRatio float64
	// ActMarginSec pads an act past its narration so speech never clips.
	ActMarginSec float64
	// AmbienceGain scales the noise+sine bed under the narration.
	AmbienceGain float64
	// EnvelopeFloor is where the act 2 rising volume ramp starts.
	EnvelopeFloor float64
	// PreviewSlowdown stretches act 2 playback (1.25 = 25% slower).
	PreviewSlowdown float64
}

func DefaultConfig() Config {
	return Config{
		HookTargetSec:       4,
		ContextTargetSec:    4,
		NarrationSplitRatio: 0.40,
		ActMarginSec:        0.5,
		AmbienceGain:        0.12,
		EnvelopeFloor:       0.2,
		PreviewSlowdown:     1.25,
	}
}

type Compositor struct {
	media ports.MediaTool
	tts   ports.SpeechSynthesizer
	log   zerolog.Logger
	cfg   Config
}

func New(media ports.MediaTool, tts ports.SpeechSynthesizer, log zerolog.Logger) *Compositor {
	return NewWithConfig(media, tts, log, DefaultConfig())
}

func NewWithConfig(media ports.MediaTool, tts ports.SpeechSynthesizer, log zerolog.Logger, cfg Config) *Compositor {
	return &Compositor{media: media, tts: tts, log: log, cfg: cfg}
}

// Input carries everything one story composition needs.
type Input struct {
	Clip       types.Clip
	Language   string
	OutDir     string
	TmpDir     string
	OnProgress ports.ProgressFunc
}

// Result holds the artifacts one composition produced: the joined 3-act
// story and the standalone hook card (act 1), kept as its own shareable
// teaser.
type Result struct {
	StoryPath string
	HookPath  string
}

// Compose builds the 3-act story file for a rendered clip. Intermediates are
// removed whether composition succeeds or fails; the hook card survives as
// an artifact next to the story.
func (c *Compositor) Compose(ctx context.Context, in Input) (Result, error) {
	if in.Clip.StoryMeta == nil {
		return Result{}, &errs.MissingStoryMetaError{ClipID: in.Clip.ID}
	}
	if !store.HasArtifact(in.Clip.RenderedPath) {
		return Result{}, &errs.MissingAssetError{Asset: "rendered clip", Path: in.Clip.RenderedPath, RunFirst: "render"}
	}
	meta := *in.Clip.StoryMeta

	var temps []string
	defer func() {
		for _, p := range temps {
			os.Remove(p)
		}
	}()
	track := func(p string) string {
		temps = append(temps, p)
		return p
	}

	report(in.OnProgress, 5)
	narr := c.synthesizeNarration(ctx, meta, in.Language, in.TmpDir)
	if narr.Kind == Synthesized {
		track(filepath.Join(in.TmpDir, "narration-raw"))
		track(narr.HookPath)
		track(narr.ContextPath)
	}
	report(in.OnProgress, 15)

	act1 := track(filepath.Join(in.TmpDir, in.Clip.ID+"-act1.mp4"))
	if err := c.renderActOne(ctx, in.Clip, meta, narr, act1); err != nil {
		return Result{}, fmt.Errorf("act 1: %w", err)
	}
	report(in.OnProgress, 40)

	act2 := track(filepath.Join(in.TmpDir, in.Clip.ID+"-act2.mp4"))
	if err := c.renderActTwo(ctx, in.Clip, meta, narr, act2); err != nil {
		return Result{}, fmt.Errorf("act 2: %w", err)
	}
	report(in.OnProgress, 65)

	act3 := track(filepath.Join(in.TmpDir, in.Clip.ID+"-act3.mp4"))
	if err := c.renderActThree(ctx, in.Clip, act3); err != nil {
		return Result{}, fmt.Errorf("act 3: %w", err)
	}
	report(in.OnProgress, 85)

	outPath := filepath.Join(in.OutDir, in.Clip.ID+"-story.mp4")
	c.log.Info().Str("clip", in.Clip.ID).Str("arc", string(meta.EmotionalArc)).
		Bool("narrated", narr.Kind == Synthesized).Msg("joining story acts")
	if err := c.media.Concat(ctx, []string{act1, act2, act3}, outPath); err != nil {
		return Result{}, fmt.Errorf("join acts: %w", err)
	}

	// The hook card doubles as a standalone teaser, so promote it out of the
	// temp set instead of deleting it with the other acts.
	hookPath := filepath.Join(in.OutDir, in.Clip.ID+"-hook.mp4")
	if err := os.Rename(act1, hookPath); err != nil {
		return Result{}, fmt.Errorf("keep hook card: %w", err)
	}
	report(in.OnProgress, 100)
	return Result{StoryPath: outPath, HookPath: hookPath}, nil
}

// renderActOne draws the title card: an arc-tinted backdrop, an accent bar,
// staggered title and hook lines, hook narration over a faint ambience bed,
// and a closing fade.
func (c *Compositor) renderActOne(ctx context.Context, clip types.Clip, meta types.StoryMeta, narr NarrationOutcome, outPath string) error {
	dur := c.cfg.HookTargetSec
	if v := narr.HookSec + c.cfg.ActMarginSec; v > dur {
		dur = v
	}
	w, h := templates.OutputWidth, templates.OutputHeight

	inputs := []ports.Input{
		{Path: fmt.Sprintf("color=c=%s:s=%dx%d:r=30:d=%.3f", arcColor(meta.EmotionalArc), w, h, dur), Format: "lavfi"},
		{Path: fmt.Sprintf("anoisesrc=c=pink:a=0.03:d=%.3f", dur), Format: "lavfi"},
		{Path: fmt.Sprintf("sine=f=110:d=%.3f", dur), Format: "lavfi"},
		narrationInput(narr.HookPath, dur),
	}

	g := &filtergraph.Graph{}
	g.Add(filtergraph.Chain{
		Inputs: []string{"0:v"},
		Filters: []filtergraph.Filter{
			filtergraph.NewFilter("drawbox").
				WithArg("x", itoa(w/8)).
				WithArg("y", itoa(h*38/100)).
				WithArg("w", itoa(w*3/4)).
				WithArg("h", "8").
				WithArg("color", "white@0.8").
				WithArg("t", "fill"),
			drawText(clip.Title, 84, "(h-text_h)*0.30", 0.4),
			drawText(meta.Hook, 56, "(h-text_h)*0.52", 1.2),
			filtergraph.NewFilter("fade").
				WithArg("t", "out").
				WithArg("st", fmtSec(dur-0.5)).
				WithArg("d", "0.5"),
		},
		Outputs: []string{"outv"},
	})
	c.addNarratedMix(g, dur)

	return c.media.Render(ctx, ports.RenderJob{
		Inputs:       inputs,
		Graph:        g,
		MapPads:      []string{"outv", "outa"},
		OutPath:      outPath,
		DurationHint: dur,
	})
}

// renderActTwo previews the clip dimmed and slowed while the context
// narration plays, with the context and share-hook lines drawn over it. The
// mixed audio rises on a linear ramp from the envelope floor to full volume.
func (c *Compositor) renderActTwo(ctx context.Context, clip types.Clip, meta types.StoryMeta, narr NarrationOutcome, outPath string) error {
	dur := c.cfg.ContextTargetSec
	if v := narr.ContextSec + c.cfg.ActMarginSec; v > dur {
		dur = v
	}
	w, h := templates.OutputWidth, templates.OutputHeight
	srcDur := dur / c.cfg.PreviewSlowdown

	inputs := []ports.Input{
		{Path: clip.RenderedPath},
		{Path: fmt.Sprintf("anoisesrc=c=pink:a=0.03:d=%.3f", dur), Format: "lavfi"},
		narrationInput(narr.ContextPath, dur),
	}

	g := &filtergraph.Graph{}
	g.Add(filtergraph.Chain{
		Inputs: []string{"0:v"},
		Filters: []filtergraph.Filter{
			filtergraph.NewFilter("trim").WithArg("duration", fmtSec(srcDur)),
			filtergraph.NewFilter("setpts").WithOption(fmtSec(c.cfg.PreviewSlowdown) + "*PTS"),
			filtergraph.NewFilter("scale").
				WithOption(itoa(w)).
				WithOption(itoa(h)).
				WithArg("force_original_aspect_ratio", "increase"),
			filtergraph.NewFilter("crop").WithOption(itoa(w)).WithOption(itoa(h)),
			filtergraph.NewFilter("eq").
				WithArg("brightness", "-0.25").
				WithArg("saturation", "0.6"),
			drawText(meta.Context, 52, "(h-text_h)*0.20", 0.3),
			drawText(meta.ShareHook, 48, "(h-text_h)*0.82", 1.0),
		},
		Outputs: []string{"outv"},
	})

	// Clip audio is slowed to match the stretched video, then joins the bed
	// and the narration before the rising envelope.
	g.Add(filtergraph.Chain{
		Inputs: []string{"0:a"},
		Filters: []filtergraph.Filter{
			filtergraph.NewFilter("atrim").WithArg("duration", fmtSec(srcDur)),
			filtergraph.NewFilter("atempo").WithOption(fmtSec(1 / c.cfg.PreviewSlowdown)),
		},
		Outputs: []string{"clipa"},
	})
	g.AddChain([]string{"1:a"},
		filtergraph.NewFilter("volume").WithOption(fmtSec(c.cfg.AmbienceGain)), "amb")
	g.AddChain([]string{"2:a"}, filtergraph.NewFilter("apad"), "nar")
	g.Add(filtergraph.Chain{
		Inputs: []string{"clipa", "amb", "nar"},
		Filters: []filtergraph.Filter{
			filtergraph.NewFilter("amix").
				WithArg("inputs", "3").
				WithArg("duration", "shortest"),
			filtergraph.NewFilter("volume").
				WithArg("volume", risingEnvelope(c.cfg.EnvelopeFloor, dur)).
				WithArg("eval", "frame"),
		},
		Outputs: []string{"outa"},
	})

	return c.media.Render(ctx, ports.RenderJob{
		Inputs:       inputs,
		Graph:        g,
		MapPads:      []string{"outv", "outa"},
		OutPath:      outPath,
		DurationHint: dur,
	})
}

// renderActThree re-encodes the rendered clip untouched except for a short
// audio fade-in, so the cut from the dimmed preview does not jump.
func (c *Compositor) renderActThree(ctx context.Context, clip types.Clip, outPath string) error {
	g := &filtergraph.Graph{}
	g.AddChain([]string{"0:v"}, filtergraph.NewFilter("null"), "outv")
	g.AddChain([]string{"0:a"},
		filtergraph.NewFilter("afade").
			WithArg("t", "in").
			WithArg("st", "0").
			WithArg("d", "0.4"),
		"outa")

	return c.media.Render(ctx, ports.RenderJob{
		Inputs:       []ports.Input{{Path: clip.RenderedPath}},
		Graph:        g,
		MapPads:      []string{"outv", "outa"},
		OutPath:      outPath,
		DurationHint: clip.DurationSec(),
	})
}

// addNarratedMix wires inputs 1 (noise), 2 (sine) and 3 (narration) into
// [outa]: bed mixed and attenuated, narration padded so the shortest-stream
// mix always runs the full act, then a closing fade.
func (c *Compositor) addNarratedMix(g *filtergraph.Graph, dur float64) {
	g.Add(filtergraph.Chain{
		Inputs: []string{"1:a", "2:a"},
		Filters: []filtergraph.Filter{
			filtergraph.NewFilter("amix").
				WithArg("inputs", "2").
				WithArg("duration", "shortest"),
			filtergraph.NewFilter("volume").WithOption(fmtSec(c.cfg.AmbienceGain)),
		},
		Outputs: []string{"amb"},
	})
	g.AddChain([]string{"3:a"}, filtergraph.NewFilter("apad"), "nar")
	g.Add(filtergraph.Chain{
		Inputs: []string{"nar", "amb"},
		Filters: []filtergraph.Filter{
			filtergraph.NewFilter("amix").
				WithArg("inputs", "2").
				WithArg("duration", "shortest"),
			filtergraph.NewFilter("afade").
				WithArg("t", "out").
				WithArg("st", fmtSec(dur-0.6)).
				WithArg("d", "0.6"),
		},
		Outputs: []string{"outa"},
	})
}

// narrationInput is the narration -i entry: the synthesized file when one
// exists, otherwise a silent track spanning the act.
func narrationInput(path string, actDur float64) ports.Input {
	if path == "" {
		return ports.Input{Path: silentSource(actDur), Format: "lavfi"}
	}
	return ports.Input{Path: path}
}

// arcColor maps the emotional arc to the title-card tint. The mapping is
// exhaustive over the known arcs; anything else falls back to the surprise
// tint.
func arcColor(arc types.EmotionalArc) string {
	switch arc {
	case types.ArcTriumph:
		return "0xB8860B"
	case types.ArcSurprise:
		return "0x4B0082"
	case types.ArcHeartbreak:
		return "0x1F3A5F"
	case types.ArcHumor:
		return "0xCC5500"
	case types.ArcTension:
		return "0x7A1F1F"
	default:
		return "0x4B0082"
	}
}

// risingEnvelope is a linear volume ramp from floor at t=0 to 1.0 at t=dur,
// clamped so it never exceeds unity. Monotone non-decreasing over the act.
func risingEnvelope(floor, dur float64) string {
	return fmt.Sprintf("'min(1,%s+%s*t/%s)'", fmtSec(floor), fmtSec(1-floor), fmtSec(dur))
}

func drawText(text string, size int, yExpr string, appearAt float64) filtergraph.Filter {
	return filtergraph.NewFilter("drawtext").
		WithArg("text", "'"+sanitizeText(text)+"'").
		WithArg("font", "Inter").
		WithArg("fontsize", itoa(size)).
		WithArg("fontcolor", "white").
		WithArg("borderw", "3").
		WithArg("bordercolor", "black@0.6").
		WithArg("x", "(w-text_w)/2").
		WithArg("y", yExpr).
		WithArg("enable", fmt.Sprintf("'gte(t,%s)'", fmtSec(appearAt)))
}

// sanitizeText neutralizes the drawtext metacharacters in user-facing lines.
func sanitizeText(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`:`, `\:`,
		`%`, `\%`,
		"\n", " ",
	)
	return r.Replace(s)
}

func itoa(v int) string { return fmt.Sprintf("%d", v) }

func fmtSec(v float64) string {
	s := fmt.Sprintf("%.3f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

func report(fn ports.ProgressFunc, pct float64) {
	if fn != nil {
		fn(pct)
	}
}
