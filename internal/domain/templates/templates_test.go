package templates

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_ContainsDefaultID(t *testing.T) {
	c := Default()
	tmpl := c.Get(DefaultID)
	assert.Equal(t, DefaultID, tmpl.ID)
	assert.NotEmpty(t, c.IDs())
}

func TestGet_UnknownFallsBackToDefault(t *testing.T) {
	c := Default()
	tmpl := c.Get("no-such-template")
	assert.Equal(t, DefaultID, tmpl.ID)
}

func TestLoadYAML_MergesAndOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "templates.yaml")
	doc := `
templates:
  - id: neon
    name: Neon
    placement: center
    background:
      mode: color
      color: "0x001122"
    caption:
      font_size: 90
  - id: bold-blur
    name: Overridden
    placement: fill
    background:
      mode: blur
      blur_sigma: 40
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	c := Default()
	require.NoError(t, c.LoadYAML(path))

	neon := c.Get("neon")
	assert.Equal(t, "Neon", neon.Name)
	assert.Equal(t, 90, neon.Caption.FontSize)

	overridden := c.Get("bold-blur")
	assert.Equal(t, "Overridden", overridden.Name)
	assert.Equal(t, 40, overridden.Background.BlurSigma)
}

func TestLoadYAML_RejectsMissingID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("templates:\n  - name: nameless\n"), 0o644))

	c := Default()
	assert.Error(t, c.LoadYAML(path))
}

func TestSubtitleStyle_Mapping(t *testing.T) {
	tmpl := Default().Get("top-panel")
	style := tmpl.SubtitleStyle()
	assert.Equal(t, tmpl.Caption.FontSize, style.FontSize)
	assert.True(t, style.BoxedBackground)
}
