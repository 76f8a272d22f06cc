// Package store persists a project's manifest and cached stage artifacts
// under the workdir. Writes go through a temp file and rename so readers
// always see a complete document.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/storycut/storycut/internal/types"
)

type Store struct {
	root string
}

func New(root string) *Store { return &Store{root: root} }

func (s *Store) ProjectDir(id string) string {
	return filepath.Join(s.root, "projects", id)
}

func (s *Store) ClipsDir(id string) string   { return filepath.Join(s.ProjectDir(id), "clips") }
func (s *Store) RendersDir(id string) string { return filepath.Join(s.ProjectDir(id), "renders") }
func (s *Store) StoriesDir(id string) string { return filepath.Join(s.ProjectDir(id), "stories") }
func (s *Store) TmpDir(id string) string     { return filepath.Join(s.ProjectDir(id), "tmp") }

func (s *Store) ManifestPath(id string) string {
	return filepath.Join(s.ProjectDir(id), "project.json")
}

func (s *Store) AudioPath(id string) string {
	return filepath.Join(s.ProjectDir(id), "audio.wav")
}

func (s *Store) TranscriptPath(id string) string {
	return filepath.Join(s.ProjectDir(id), "transcript.json")
}

func (s *Store) SilencePath(id string) string {
	return filepath.Join(s.ProjectDir(id), "silence.json")
}

// EnsureLayout creates the project's directory tree.
func (s *Store) EnsureLayout(id string) error {
	for _, dir := range []string{
		s.ProjectDir(id),
		s.ClipsDir(id),
		s.RendersDir(id),
		s.StoriesDir(id),
		s.TmpDir(id),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) SaveProject(p *types.Project) error {
	return writeJSON(s.ManifestPath(p.ID), p)
}

func (s *Store) LoadProject(id string) (*types.Project, error) {
	var p types.Project
	if err := readJSON(s.ManifestPath(id), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) SaveTranscription(id string, tr types.Transcription) error {
	return writeJSON(s.TranscriptPath(id), tr)
}

func (s *Store) LoadTranscription(id string) (types.Transcription, error) {
	var tr types.Transcription
	err := readJSON(s.TranscriptPath(id), &tr)
	return tr, err
}

func (s *Store) SaveSilence(id string, gaps []types.SilenceGap) error {
	return writeJSON(s.SilencePath(id), gaps)
}

func (s *Store) LoadSilence(id string) ([]types.SilenceGap, error) {
	var gaps []types.SilenceGap
	err := readJSON(s.SilencePath(id), &gaps)
	return gaps, err
}

// HasArtifact reports whether path exists as a non-empty file. Stage resume
// decisions key off this.
func HasArtifact(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular() && fi.Size() > 0
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", filepath.Base(path), err)
	}
	return nil
}
