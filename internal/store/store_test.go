package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storycut/storycut/internal/types"
)

func TestSaveLoadProject(t *testing.T) {
	s := New(t.TempDir())
	p := &types.Project{
		ID:        "proj1",
		SourceURL: "https://youtu.be/x",
		Metadata:  types.VideoMetadata{Title: "T", DurationSec: 120},
		Clips: []types.Clip{
			{ID: "proj1-clip-1", StartSec: 10, EndSec: 40, Status: types.ClipPending},
		},
	}
	require.NoError(t, s.EnsureLayout(p.ID))
	require.NoError(t, s.SaveProject(p))

	got, err := s.LoadProject("proj1")
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestSaveLoadTranscriptionAndSilence(t *testing.T) {
	s := New(t.TempDir())
	require.NoError(t, s.EnsureLayout("p"))

	tr := types.Transcription{Language: "en", Segments: []types.TranscriptSegment{{Start: 0, End: 1, Text: "x"}}, Text: "x"}
	require.NoError(t, s.SaveTranscription("p", tr))
	gotTr, err := s.LoadTranscription("p")
	require.NoError(t, err)
	assert.Equal(t, tr, gotTr)

	gaps := []types.SilenceGap{{Start: 1, End: 2, Duration: 1}}
	require.NoError(t, s.SaveSilence("p", gaps))
	gotGaps, err := s.LoadSilence("p")
	require.NoError(t, err)
	assert.Equal(t, gaps, gotGaps)
}

func TestHasArtifact(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing")
	empty := filepath.Join(dir, "empty")
	full := filepath.Join(dir, "full")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	require.NoError(t, os.WriteFile(full, []byte("data"), 0o644))

	assert.False(t, HasArtifact(missing))
	assert.False(t, HasArtifact(empty))
	assert.True(t, HasArtifact(full))
}

func TestWriteJSON_NoPartialReads(t *testing.T) {
	s := New(t.TempDir())
	require.NoError(t, s.EnsureLayout("p"))
	require.NoError(t, s.SaveProject(&types.Project{ID: "p"}))

	// The temp file must not linger after a successful write.
	_, err := os.Stat(s.ManifestPath("p") + ".tmp")
	assert.True(t, os.IsNotExist(err))
}
