// Package subtitles converts clip-relative transcript segments into a styled
// ASS subtitle document sized for the render template's output resolution.
package subtitles

import (
	"fmt"
	"strings"
	"time"

	"github.com/storycut/storycut/internal/types"
)

// Position places the caption block vertically.
type Position string

const (
	PositionTop    Position = "top"
	PositionCenter Position = "center"
	PositionBottom Position = "bottom"
)

// Style holds the caption formatting knobs a template exposes. Colors use the
// ASS &HAABBGGRR notation.
type Style struct {
	Font            string
	FontSize        int
	PrimaryColor    string
	OutlineColor    string
	BackColor       string
	Outline         float64
	Bold            bool
	Position        Position
	MarginV         int
	MaxCharsPerLine int
	// BoxedBackground switches the border style to an opaque box behind the
	// text instead of an outline.
	BoxedBackground bool
}

func (s Style) withDefaults() Style {
	if s.Font == "" {
		s.Font = "Inter"
	}
	if s.FontSize <= 0 {
		s.FontSize = 72
	}
	if s.PrimaryColor == "" {
		s.PrimaryColor = "&H00FFFFFF"
	}
	if s.OutlineColor == "" {
		s.OutlineColor = "&H00000000"
	}
	if s.BackColor == "" {
		s.BackColor = "&H64000000"
	}
	if s.Outline <= 0 {
		s.Outline = 4
	}
	if s.Position == "" {
		s.Position = PositionBottom
	}
	if s.MarginV <= 0 {
		s.MarginV = 120
	}
	if s.MaxCharsPerLine <= 0 {
		s.MaxCharsPerLine = 22
	}
	return s
}

type line struct {
	Start float64
	End   float64
	Text  string
}

// Render produces the full ASS document for the given segments. Segment and
// word timestamps must already be clip-relative. Segments with no words and
// no text produce no events.
func Render(segments []types.TranscriptSegment, width, height int, style Style) string {
	style = style.withDefaults()

	var lines []line
	for _, seg := range segments {
		if len(seg.Words) > 0 {
			lines = append(lines, packWords(seg.Words, style.MaxCharsPerLine)...)
			continue
		}
		lines = append(lines, splitSegment(seg, style.MaxCharsPerLine)...)
	}

	var b strings.Builder
	writeHeader(&b, width, height, style)
	b.WriteString("\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, ln := range lines {
		b.WriteString("Dialogue: 0,")
		b.WriteString(assTime(ln.Start))
		b.WriteString(",")
		b.WriteString(assTime(ln.End))
		b.WriteString(",Caption,,0,0,0,,")
		b.WriteString(ln.Text)
		b.WriteString("\n")
	}
	return b.String()
}

// packWords greedily fills lines up to maxChars, flushing the current line
// when the next word would overflow. Each line's displayed interval is
// [first word start, last word end].
func packWords(words []types.TranscriptWord, maxChars int) []line {
	var out []line
	var cur []types.TranscriptWord
	curLen := 0

	flush := func() {
		if len(cur) == 0 {
			return
		}
		parts := make([]string, 0, len(cur))
		for _, w := range cur {
			parts = append(parts, sanitizeASS(w.Word))
		}
		out = append(out, line{
			Start: cur[0].Start,
			End:   cur[len(cur)-1].End,
			Text:  strings.Join(parts, " "),
		})
		cur = cur[:0]
		curLen = 0
	}

	for _, w := range words {
		text := strings.TrimSpace(w.Word)
		if text == "" {
			continue
		}
		wl := len([]rune(text))
		nextLen := curLen + wl
		if curLen > 0 {
			nextLen++
		}
		if curLen > 0 && nextLen > maxChars {
			flush()
			nextLen = wl
		}
		cur = append(cur, types.TranscriptWord{Start: w.Start, End: w.End, Word: text})
		curLen = nextLen
	}
	flush()
	return out
}

// splitSegment handles segments without word timing: the text is broken at
// natural points and the segment duration is apportioned by each line's
// character share, with a running cursor.
func splitSegment(seg types.TranscriptSegment, maxChars int) []line {
	text := strings.TrimSpace(seg.Text)
	if text == "" {
		return nil
	}
	parts := breakText(text, maxChars)

	total := 0
	for _, p := range parts {
		total += len([]rune(p))
	}
	segDur := seg.End - seg.Start
	if total == 0 || segDur <= 0 {
		return nil
	}

	out := make([]line, 0, len(parts))
	cursor := seg.Start
	for _, p := range parts {
		share := float64(len([]rune(p))) / float64(total)
		end := cursor + segDur*share
		out = append(out, line{Start: cursor, End: end, Text: sanitizeASS(p)})
		cursor = end
	}
	// Rounding drift lands on the last line so the block ends exactly with
	// the segment.
	out[len(out)-1].End = seg.End
	return out
}

// breakText splits at the last eligible break point inside the budget:
// sentence punctuation first, then comma, then space, never earlier than 30%
// of the budget, with a hard cut as the last resort.
func breakText(text string, maxChars int) []string {
	var out []string
	rest := []rune(text)
	minBreak := maxChars * 30 / 100

	for len(rest) > maxChars {
		window := rest[:maxChars]
		cut := -1
		for i := len(window) - 1; i >= minBreak; i-- {
			if window[i] == '.' || window[i] == '!' || window[i] == '?' {
				cut = i + 1
				break
			}
		}
		if cut < 0 {
			for i := len(window) - 1; i >= minBreak; i-- {
				if window[i] == ',' {
					cut = i + 1
					break
				}
			}
		}
		if cut < 0 {
			for i := len(window) - 1; i >= minBreak; i-- {
				if window[i] == ' ' {
					cut = i
					break
				}
			}
		}
		if cut < 0 {
			cut = maxChars
		}
		part := strings.TrimSpace(string(rest[:cut]))
		if part != "" {
			out = append(out, part)
		}
		rest = []rune(strings.TrimSpace(string(rest[cut:])))
	}
	if len(rest) > 0 {
		out = append(out, string(rest))
	}
	return out
}

func writeHeader(b *strings.Builder, width, height int, s Style) {
	fmt.Fprintf(b, "[Script Info]\nScriptType: v4.00+\nPlayResX: %d\nPlayResY: %d\nScaledBorderAndShadow: yes\n", width, height)
	b.WriteString("\n[V4+ Styles]\n")
	b.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	bold := 0
	if s.Bold {
		bold = 1
	}
	borderStyle := 1
	if s.BoxedBackground {
		borderStyle = 3
	}
	fmt.Fprintf(b,
		"Style: Caption, %s, %d, %s, &H00FFD200, %s, %s, %d,0,0,0,100,100,0,0,%d,%.1f,2,%d, 80,80,%d,1\n",
		s.Font, s.FontSize, s.PrimaryColor, s.OutlineColor, s.BackColor,
		bold, borderStyle, s.Outline, alignment(s.Position), s.MarginV,
	)
}

// alignment maps a position onto the ASS numpad alignment scheme.
func alignment(p Position) int {
	switch p {
	case PositionTop:
		return 8
	case PositionCenter:
		return 5
	default:
		return 2
	}
}

func assTime(sec float64) string {
	d := time.Duration(sec * float64(time.Second))
	if d < 0 {
		d = 0
	}
	hs := int(d / time.Hour)
	d -= time.Duration(hs) * time.Hour
	ms := int(d / time.Minute)
	d -= time.Duration(ms) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	cs := int(d / (10 * time.Millisecond))
	return fmt.Sprintf("%d:%02d:%02d.%02d", hs, ms, s, cs)
}

func sanitizeASS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	return strings.TrimSpace(s)
}
