package silence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storycut/storycut/internal/types"
)

func TestParseLog(t *testing.T) {
	out := `
[silencedetect @ 0x7f8] silence_start: 12
frame=  100 fps= 25
[silencedetect @ 0x7f8] silence_end: 14.5 | silence_duration: 2.5
[silencedetect @ 0x7f8] silence_start: 30.25
[silencedetect @ 0x7f8] silence_end: 31 | silence_duration: 0.75
`
	gaps := ParseLog(out)
	require.Len(t, gaps, 2)
	assert.Equal(t, types.SilenceGap{Start: 12, End: 14.5, Duration: 2.5}, gaps[0])
	assert.Equal(t, types.SilenceGap{Start: 30.25, End: 31, Duration: 0.75}, gaps[1])
}

func TestParseLog_UnmatchedStartDiscarded(t *testing.T) {
	out := `
[silencedetect @ 0x7f8] silence_start: 5.0
[silencedetect @ 0x7f8] silence_start: 12.0
[silencedetect @ 0x7f8] silence_end: 14.0 | silence_duration: 2.0
[silencedetect @ 0x7f8] silence_start: 90.0
`
	gaps := ParseLog(out)
	require.Len(t, gaps, 1)
	assert.Equal(t, 12.0, gaps[0].Start)
	assert.Equal(t, 14.0, gaps[0].End)
}

func TestParseLog_Idempotent(t *testing.T) {
	out := `
[silencedetect @ 0x7f8] silence_start: 1.5
[silencedetect @ 0x7f8] silence_end: 3.25 | silence_duration: 1.75
`
	assert.Equal(t, ParseLog(out), ParseLog(out))
}

func TestParseLog_Empty(t *testing.T) {
	assert.Empty(t, ParseLog("no silence lines here"))
}

func TestActiveSegments(t *testing.T) {
	tests := []struct {
		name   string
		start  float64
		end    float64
		gaps   []types.SilenceGap
		minGap float64
		want   []types.Span
	}{
		{
			name:   "single gap inside window",
			start:  10, end: 20,
			gaps:   []types.SilenceGap{{Start: 12, End: 14.5, Duration: 2.5}},
			minGap: 0.8,
			want:   []types.Span{{Start: 10, End: 12}, {Start: 14.5, End: 20}},
		},
		{
			name:  "no gaps returns whole window",
			start: 0, end: 30,
			minGap: 0.8,
			want:   []types.Span{{Start: 0, End: 30}},
		},
		{
			name:   "short gap below threshold kept",
			start:  0, end: 10,
			gaps:   []types.SilenceGap{{Start: 4, End: 4.5, Duration: 0.5}},
			minGap: 0.8,
			want:   []types.Span{{Start: 0, End: 10}},
		},
		{
			name:  "gap outside window ignored",
			start: 10, end: 20,
			gaps: []types.SilenceGap{
				{Start: 2, End: 5, Duration: 3},
				{Start: 19, End: 22, Duration: 3},
			},
			minGap: 0.8,
			want:   []types.Span{{Start: 10, End: 20}},
		},
		{
			name:  "gap touching window start",
			start: 10, end: 20,
			gaps:   []types.SilenceGap{{Start: 10, End: 12, Duration: 2}},
			minGap: 0.8,
			want:   []types.Span{{Start: 12, End: 20}},
		},
		{
			name:  "gap touching window end",
			start: 10, end: 20,
			gaps:   []types.SilenceGap{{Start: 18, End: 20, Duration: 2}},
			minGap: 0.8,
			want:   []types.Span{{Start: 10, End: 18}},
		},
		{
			name:  "gap spanning whole window leaves nothing",
			start: 10, end: 20,
			gaps:   []types.SilenceGap{{Start: 10, End: 20, Duration: 10}},
			minGap: 0.8,
			want:   nil,
		},
		{
			name:  "qualifying gaps covering window in pieces leave nothing",
			start: 10, end: 20,
			gaps: []types.SilenceGap{
				{Start: 10, End: 15, Duration: 5},
				{Start: 15, End: 20, Duration: 5},
			},
			minGap: 0.8,
			want:   nil,
		},
		{
			name:  "multiple gaps",
			start: 0, end: 60,
			gaps: []types.SilenceGap{
				{Start: 10, End: 12, Duration: 2},
				{Start: 30, End: 33, Duration: 3},
				{Start: 50, End: 51, Duration: 1},
			},
			minGap: 0.8,
			want: []types.Span{
				{Start: 0, End: 10},
				{Start: 12, End: 30},
				{Start: 33, End: 50},
				{Start: 51, End: 60},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ActiveSegments(tc.start, tc.end, tc.gaps, tc.minGap)
			assert.Equal(t, tc.want, got)
		})
	}
}

// The spans plus the removed gaps must exactly reconstruct the window, with
// no overlap between spans.
func TestActiveSegments_Reconstruction(t *testing.T) {
	start, end := 5.0, 95.0
	gaps := []types.SilenceGap{
		{Start: 10, End: 13, Duration: 3},
		{Start: 20, End: 20.5, Duration: 0.5}, // below threshold
		{Start: 40, End: 44, Duration: 4},
		{Start: 80, End: 82, Duration: 2},
	}
	spans := ActiveSegments(start, end, gaps, 0.8)

	var covered float64
	for i, s := range spans {
		require.Less(t, s.Start, s.End, "span %d inverted", i)
		if i > 0 {
			require.GreaterOrEqual(t, s.Start, spans[i-1].End, "span %d overlaps previous", i)
		}
		covered += s.Duration()
	}
	var removed float64
	for _, g := range gaps {
		if g.Start >= start && g.End <= end && g.Duration >= 0.8 {
			removed += g.Duration
		}
	}
	assert.InDelta(t, end-start, covered+removed, 1e-9)
}

// Reconstruction must also hold when a qualifying gap consumes the whole
// window: the silence stays removed instead of falling back to the full span.
func TestActiveSegments_ReconstructionFullyCovered(t *testing.T) {
	gaps := []types.SilenceGap{{Start: 10, End: 20, Duration: 10}}
	spans := ActiveSegments(10, 20, gaps, 0.8)

	var covered float64
	for _, s := range spans {
		covered += s.Duration()
	}
	assert.Empty(t, spans)
	assert.InDelta(t, 10, covered+gaps[0].Duration, 1e-9)
}

func TestOptionsWithDefaults(t *testing.T) {
	tests := []struct {
		name string
		in   Options
		want Options
	}{
		{"zero value", Options{}, Options{NoiseThresholdDB: -30, MinDurationSec: 0.5}},
		{"threshold kept", Options{NoiseThresholdDB: -45}, Options{NoiseThresholdDB: -45, MinDurationSec: 0.5}},
		{"duration kept", Options{MinDurationSec: 1.2}, Options{NoiseThresholdDB: -30, MinDurationSec: 1.2}},
		{"both kept", Options{NoiseThresholdDB: -20, MinDurationSec: 2}, Options{NoiseThresholdDB: -20, MinDurationSec: 2}},
		{"positive threshold replaced", Options{NoiseThresholdDB: 5, MinDurationSec: 1}, Options{NoiseThresholdDB: -30, MinDurationSec: 1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.in.WithDefaults())
		})
	}
}
