package ytdlp

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateURL(t *testing.T) {
	a := New("", nil, zerolog.Nop())

	tests := []struct {
		url     string
		wantErr bool
	}{
		{"https://www.youtube.com/watch?v=abc123", false},
		{"https://youtu.be/abc123", false},
		{"https://vimeo.com/12345", false},
		{"https://example.com/video.mp4", true},
		{"ftp://youtube.com/watch", true},
		{"not a url", true},
		{"", true},
	}
	for _, tc := range tests {
		err := a.ValidateURL(tc.url)
		if tc.wantErr {
			assert.Error(t, err, tc.url)
		} else {
			assert.NoError(t, err, tc.url)
		}
	}
}

func TestValidateURL_CustomHosts(t *testing.T) {
	a := New("", []string{"https://video.internal:8443/"}, zerolog.Nop())
	assert.NoError(t, a.ValidateURL("https://video.internal/v/1"))
	assert.Error(t, a.ValidateURL("https://youtube.com/watch?v=x"))
}

func TestProgressRe(t *testing.T) {
	m := progressRe.FindStringSubmatch("[download]  42.3% of 120.45MiB at 5.00MiB/s ETA 00:14")
	require.NotNil(t, m)
	assert.Equal(t, "42.3", m[1])

	assert.Nil(t, progressRe.FindStringSubmatch("[info] Writing video metadata"))
}

func TestMetadata_Sidecar(t *testing.T) {
	dir := t.TempDir()
	info := `{
		"title": "A long talk",
		"channel": "Deep Dives",
		"duration": 3600.5,
		"thumbnail": "https://i.ytimg.com/t.jpg",
		"description": "` + strings.Repeat("x", 600) + `"
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "source.info.json"), []byte(info), 0o644))

	md := New("", nil, zerolog.Nop()).Metadata(dir)
	assert.Equal(t, "A long talk", md.Title)
	assert.Equal(t, "Deep Dives", md.Channel)
	assert.Equal(t, 3600.5, md.DurationSec)
	// Long descriptions are truncated.
	assert.Less(t, len([]rune(md.Description)), 520)
}

func TestMetadata_MissingSidecarNonFatal(t *testing.T) {
	md := New("", nil, zerolog.Nop()).Metadata(t.TempDir())
	assert.Equal(t, "Unknown", md.Title)
	assert.Equal(t, "Unknown", md.Channel)
	assert.Zero(t, md.DurationSec)
}

func TestFindSource_SkipsSidecarAndPartials(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "source.info.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "source.mp4.part"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "source.mp4"), []byte("x"), 0o644))

	got, err := findSource(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "source.mp4"), got)
}
