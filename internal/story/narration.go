package story

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/storycut/storycut/internal/types"
)

// OutcomeKind distinguishes real narration from the silent fallback.
type OutcomeKind int

const (
	// Synthesized means the speech synthesizer produced narration audio.
	Synthesized OutcomeKind = iota
	// Degraded means synthesis failed and the acts use equal-length silent
	// tracks instead. This is a designed recoverable-degradation path, not
	// an error: the story is still produced, just without narration.
	Degraded
)

// NarrationOutcome is the typed result of the synthesis attempt. Downstream
// act builders consume this instead of relying on a caught error's side
// effects. In the degraded case the paths are empty and the acts substitute
// anullsrc tracks of the configured target durations.
type NarrationOutcome struct {
	Kind        OutcomeKind
	HookPath    string
	ContextPath string
	HookSec     float64
	ContextSec  float64
}

// synthesizeNarration produces one narration take from hook + context, splits
// it at the configured ratio, and returns the typed outcome. Any failure on
// the way (synthesis, probing, splitting) degrades to silence.
func (c *Compositor) synthesizeNarration(ctx context.Context, meta types.StoryMeta, language, tmpDir string) NarrationOutcome {
	// Zero narration seconds make the acts fall back to their configured
	// target durations, each backed by a silent track spanning the act.
	degraded := NarrationOutcome{Kind: Degraded}

	text := meta.Hook + ". " + meta.Context
	audio, err := c.tts.Synthesize(ctx, text, language)
	if err != nil {
		c.log.Warn().Err(err).Msg("narration synthesis failed, degrading to silent tracks")
		return degraded
	}

	rawPath := filepath.Join(tmpDir, "narration-raw")
	if err := os.WriteFile(rawPath, audio, 0o644); err != nil {
		c.log.Warn().Err(err).Msg("cannot persist narration, degrading to silent tracks")
		return degraded
	}

	info, err := c.media.Probe(ctx, rawPath)
	if err != nil || info.DurationSec <= 0 {
		c.log.Warn().Err(err).Msg("cannot probe narration, degrading to silent tracks")
		return degraded
	}
	total := info.DurationSec

	// The first portion of the take is the hook; the rest carries context.
	// The split never exceeds the hook target or the take itself.
	split := total * c.cfg.NarrationSplitRatio
	if split > c.cfg.HookTargetSec {
		split = c.cfg.HookTargetSec
	}
	if split > total {
		split = total
	}

	hookPath := filepath.Join(tmpDir, "narration-hook"+narrationExt)
	contextPath := filepath.Join(tmpDir, "narration-context"+narrationExt)
	if err := c.media.Cut(ctx, rawPath, 0, split, hookPath); err != nil {
		c.log.Warn().Err(err).Msg("cannot split narration, degrading to silent tracks")
		return degraded
	}
	if err := c.media.Cut(ctx, rawPath, split, total, contextPath); err != nil {
		c.log.Warn().Err(err).Msg("cannot split narration, degrading to silent tracks")
		return degraded
	}

	return NarrationOutcome{
		Kind:        Synthesized,
		HookPath:    hookPath,
		ContextPath: contextPath,
		HookSec:     split,
		ContextSec:  total - split,
	}
}

const narrationExt = ".m4a"

// silentSource is the lavfi spec for a mono silent track of the given length.
func silentSource(durSec float64) string {
	return fmt.Sprintf("anullsrc=r=44100:cl=mono:d=%.3f", durSec)
}
