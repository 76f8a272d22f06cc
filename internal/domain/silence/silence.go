// Package silence turns ffmpeg silencedetect output into sorted gap lists and
// partitions clip windows into their non-silent sub-ranges.
package silence

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/storycut/storycut/internal/types"
)

// Options tune the silencedetect filter.
type Options struct {
	NoiseThresholdDB float64
	MinDurationSec   float64
}

// DefaultOptions suit voice recordings with typical background noise.
func DefaultOptions() Options {
	return Options{NoiseThresholdDB: -30, MinDurationSec: 0.5}
}

// WithDefaults fills unset fields independently, keeping whatever the caller
// did set. A threshold of zero or above counts as unset: real thresholds are
// negative dBFS.
func (o Options) WithDefaults() Options {
	def := DefaultOptions()
	if o.NoiseThresholdDB >= 0 {
		o.NoiseThresholdDB = def.NoiseThresholdDB
	}
	if o.MinDurationSec <= 0 {
		o.MinDurationSec = def.MinDurationSec
	}
	return o
}

// DefaultMinGapToRemoveSec is the smallest gap worth cutting out of a clip.
const DefaultMinGapToRemoveSec = 0.8

var (
	startRe = regexp.MustCompile(`silence_start:\s*(-?[\d.]+)`)
	endRe   = regexp.MustCompile(`silence_end:\s*(-?[\d.]+)`)
)

// ParseLog extracts silence gaps from silencedetect stderr output. The filter
// emits paired lines:
//
//	[silencedetect @ 0x...] silence_start: 42.123
//	[silencedetect @ 0x...] silence_end: 43.456 | silence_duration: 1.333
//
// Unmatched starts are discarded. The result is sorted ascending by start.
func ParseLog(output string) []types.SilenceGap {
	var gaps []types.SilenceGap
	var curStart float64
	hasStart := false

	for _, line := range strings.Split(output, "\n") {
		if m := startRe.FindStringSubmatch(line); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				curStart = v
				hasStart = true
			}
			continue
		}
		if m := endRe.FindStringSubmatch(line); m != nil && hasStart {
			v, err := strconv.ParseFloat(m[1], 64)
			if err != nil || v <= curStart {
				hasStart = false
				continue
			}
			gaps = append(gaps, types.SilenceGap{
				Start:    curStart,
				End:      v,
				Duration: v - curStart,
			})
			hasStart = false
		}
	}

	sort.Slice(gaps, func(i, j int) bool { return gaps[i].Start < gaps[j].Start })
	return gaps
}

// ActiveSegments partitions [startSec,endSec] into the non-silent spans that
// remain after removing every gap fully contained in the window with duration
// of at least minGapToRemoveSec. Gaps must be sorted ascending and
// non-overlapping, which ParseLog guarantees. If no gap qualifies the whole
// window is returned as a single span; a window consumed entirely by
// qualifying gaps yields an empty list. The spans plus the qualifying gaps
// always reconstruct the window exactly, with no overlap.
func ActiveSegments(startSec, endSec float64, gaps []types.SilenceGap, minGapToRemoveSec float64) []types.Span {
	if minGapToRemoveSec <= 0 {
		minGapToRemoveSec = DefaultMinGapToRemoveSec
	}

	var out []types.Span
	cursor := startSec
	removedAny := false
	for _, g := range gaps {
		if g.Start < startSec || g.End > endSec || g.Duration < minGapToRemoveSec {
			continue
		}
		removedAny = true
		if g.Start > cursor {
			out = append(out, types.Span{Start: cursor, End: g.Start})
		}
		cursor = g.End
	}
	if cursor < endSec {
		out = append(out, types.Span{Start: cursor, End: endSec})
	}
	if len(out) == 0 && !removedAny {
		return []types.Span{{Start: startSec, End: endSec}}
	}
	return out
}
