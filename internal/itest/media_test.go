//go:build integration

package itest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/storycut/storycut/internal/domain/filtergraph"
	"github.com/storycut/storycut/internal/domain/silence"
	"github.com/storycut/storycut/internal/ports"
	"github.com/storycut/storycut/internal/ports/adapters/ffmpeg"
)

// TestMediaToolRoundTrip drives the real ffmpeg binaries through the full
// adapter surface: synthesize a fixture, probe it, extract audio, detect the
// silence window baked into the fixture, cut and rejoin.
func TestMediaToolRoundTrip(t *testing.T) {
	requireBinary(t, "ffmpeg")
	requireBinary(t, "ffprobe")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	tool := ffmpeg.New("ffmpeg", "ffprobe", zerolog.Nop())
	tmp := t.TempDir()

	// 6s fixture: gray video with a 440Hz tone muted between t=2 and t=4.
	fixture := filepath.Join(tmp, "fixture.mp4")
	g := &filtergraph.Graph{}
	g.AddChain([]string{"0:v"}, filtergraph.NewFilter("null"), "outv")
	g.AddChain([]string{"1:a"},
		filtergraph.NewFilter("volume").
			WithArg("volume", "'if(between(t,2,4),0,1)'").
			WithArg("eval", "frame"),
		"outa")
	err := tool.Render(ctx, ports.RenderJob{
		Inputs: []ports.Input{
			{Path: "color=c=gray:s=640x360:r=30:d=6", Format: "lavfi"},
			{Path: "sine=f=440:d=6", Format: "lavfi"},
		},
		Graph:        g,
		MapPads:      []string{"outv", "outa"},
		OutPath:      fixture,
		DurationHint: 6,
	})
	if err != nil {
		t.Fatalf("fixture render: %v", err)
	}

	info, err := tool.Probe(ctx, fixture)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if info.DurationSec < 5.5 || info.DurationSec > 6.6 {
		t.Fatalf("fixture duration %v, want ~6s", info.DurationSec)
	}
	if !info.HasAudio || !info.HasVideo {
		t.Fatalf("fixture streams: audio=%v video=%v", info.HasAudio, info.HasVideo)
	}

	wav := filepath.Join(tmp, "audio.wav")
	if err := tool.ExtractAudio(ctx, fixture, wav); err != nil {
		t.Fatalf("extract audio: %v", err)
	}

	gaps, err := tool.DetectSilence(ctx, wav, silence.DefaultOptions())
	if err != nil {
		t.Fatalf("detect silence: %v", err)
	}
	var found bool
	for _, gap := range gaps {
		if gap.Start > 1.5 && gap.Start < 2.5 && gap.End > 3.5 && gap.End < 4.5 {
			found = true
		}
	}
	if !found {
		t.Fatalf("muted window not detected, gaps: %+v", gaps)
	}

	partA := filepath.Join(tmp, "a.mp4")
	partB := filepath.Join(tmp, "b.mp4")
	if err := tool.Cut(ctx, fixture, 0, 2, partA); err != nil {
		t.Fatalf("cut a: %v", err)
	}
	if err := tool.Cut(ctx, fixture, 4, 6, partB); err != nil {
		t.Fatalf("cut b: %v", err)
	}

	joined := filepath.Join(tmp, "joined.mp4")
	if err := tool.Concat(ctx, []string{partA, partB}, joined); err != nil {
		t.Fatalf("concat: %v", err)
	}
	joinedInfo, err := tool.Probe(ctx, joined)
	if err != nil {
		t.Fatalf("probe joined: %v", err)
	}
	// Stream copy cuts are keyframe-coarse, allow generous slack.
	if joinedInfo.DurationSec < 2.5 || joinedInfo.DurationSec > 6 {
		t.Fatalf("joined duration %v, want ~4s", joinedInfo.DurationSec)
	}
}
