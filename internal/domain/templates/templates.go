// Package templates is the static catalog of vertical render styles. A clip
// references a template by id and can be re-templated at any time before its
// final render.
package templates

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/storycut/storycut/internal/domain/subtitles"
)

// Output layout is fixed 9:16.
const (
	OutputWidth  = 1080
	OutputHeight = 1920
)

// Placement selects how the source video sits inside the frame.
type Placement string

const (
	PlacementFill   Placement = "fill"
	PlacementTop    Placement = "top"
	PlacementCenter Placement = "center"
)

// BackgroundMode selects the treatment behind the placed video.
type BackgroundMode string

const (
	BackgroundBlur     BackgroundMode = "blur"
	BackgroundBlack    BackgroundMode = "black"
	BackgroundGradient BackgroundMode = "gradient"
	BackgroundColor    BackgroundMode = "color"
)

type Background struct {
	Mode BackgroundMode `yaml:"mode"`
	// Color is an ffmpeg color expression, used by the color and gradient
	// modes.
	Color string `yaml:"color,omitempty"`
	// BlurSigma controls the boxblur strength in blur mode.
	BlurSigma int `yaml:"blur_sigma,omitempty"`
}

type Overlay struct {
	GradientScrim bool   `yaml:"gradient_scrim,omitempty"`
	Border        bool   `yaml:"border,omitempty"`
	BorderColor   string `yaml:"border_color,omitempty"`
	BorderWidth   int    `yaml:"border_width,omitempty"`
}

type Caption struct {
	Font            string             `yaml:"font,omitempty"`
	FontSize        int                `yaml:"font_size,omitempty"`
	PrimaryColor    string             `yaml:"primary_color,omitempty"`
	OutlineColor    string             `yaml:"outline_color,omitempty"`
	BackColor       string             `yaml:"back_color,omitempty"`
	Outline         float64            `yaml:"outline,omitempty"`
	Bold            bool               `yaml:"bold,omitempty"`
	Position        subtitles.Position `yaml:"position,omitempty"`
	MarginV         int                `yaml:"margin_v,omitempty"`
	MaxCharsPerLine int                `yaml:"max_chars_per_line,omitempty"`
	BoxedBackground bool               `yaml:"boxed_background,omitempty"`
}

// Template is an immutable style definition.
type Template struct {
	ID         string     `yaml:"id"`
	Name       string     `yaml:"name"`
	Placement  Placement  `yaml:"placement"`
	Background Background `yaml:"background"`
	Caption    Caption    `yaml:"caption"`
	Overlay    Overlay    `yaml:"overlay,omitempty"`
}

// SubtitleStyle converts the template's caption config into the subtitle
// compositor's style.
func (t Template) SubtitleStyle() subtitles.Style {
	c := t.Caption
	return subtitles.Style{
		Font:            c.Font,
		FontSize:        c.FontSize,
		PrimaryColor:    c.PrimaryColor,
		OutlineColor:    c.OutlineColor,
		BackColor:       c.BackColor,
		Outline:         c.Outline,
		Bold:            c.Bold,
		Position:        c.Position,
		MarginV:         c.MarginV,
		MaxCharsPerLine: c.MaxCharsPerLine,
		BoxedBackground: c.BoxedBackground,
	}
}

// DefaultID is applied to clips the highlight picker creates.
const DefaultID = "bold-blur"

// Catalog maps template ids to definitions.
type Catalog struct {
	byID  map[string]Template
	order []string
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c := &Catalog{byID: map[string]Template{}}
	for _, t := range builtin() {
		c.add(t)
	}
	return c
}

func (c *Catalog) add(t Template) {
	if _, ok := c.byID[t.ID]; !ok {
		c.order = append(c.order, t.ID)
	}
	c.byID[t.ID] = t
}

// Get looks a template up by id, falling back to the default template for
// unknown or empty ids so a stale manifest never blocks a render.
func (c *Catalog) Get(id string) Template {
	if t, ok := c.byID[id]; ok {
		return t
	}
	return c.byID[DefaultID]
}

// IDs returns the catalog's template ids in registration order.
func (c *Catalog) IDs() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// LoadYAML merges user-defined templates from a YAML file over the catalog.
// Entries with an existing id replace the built-in definition.
func (c *Catalog) LoadYAML(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read templates: %w", err)
	}
	var doc struct {
		Templates []Template `yaml:"templates"`
	}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}
	for _, t := range doc.Templates {
		if t.ID == "" {
			return fmt.Errorf("template %q has no id", t.Name)
		}
		c.add(t)
	}
	return nil
}

func builtin() []Template {
	return []Template{
		{
			ID:         "bold-blur",
			Name:       "Bold on blur",
			Placement:  PlacementCenter,
			Background: Background{Mode: BackgroundBlur, BlurSigma: 20},
			Caption: Caption{
				FontSize: 78,
				Bold:     true,
				Position: subtitles.PositionBottom,
			},
			Overlay: Overlay{GradientScrim: true},
		},
		{
			ID:         "clean-black",
			Name:       "Clean on black",
			Placement:  PlacementCenter,
			Background: Background{Mode: BackgroundBlack},
			Caption: Caption{
				FontSize: 64,
				Position: subtitles.PositionBottom,
			},
		},
		{
			ID:         "top-panel",
			Name:       "Video top, captions below",
			Placement:  PlacementTop,
			Background: Background{Mode: BackgroundColor, Color: "0x101018"},
			Caption: Caption{
				FontSize:        68,
				Bold:            true,
				Position:        subtitles.PositionCenter,
				BoxedBackground: true,
			},
			Overlay: Overlay{Border: true, BorderColor: "white@0.6", BorderWidth: 6},
		},
		{
			ID:         "gradient-pop",
			Name:       "Gradient pop",
			Placement:  PlacementFill,
			Background: Background{Mode: BackgroundGradient, Color: "0x1A0533"},
			Caption: Caption{
				FontSize:     82,
				Bold:         true,
				PrimaryColor: "&H0000D2FF",
				Position:     subtitles.PositionBottom,
			},
			Overlay: Overlay{GradientScrim: true},
		},
	}
}
