// Package export is the local Publisher: finished clips are copied into a
// publish directory and addressed by file URL. Pushing to an actual video
// host sits behind the same port.
package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/storycut/storycut/internal/types"
)

type Adapter struct {
	dir string
	log zerolog.Logger
}

func New(dir string, log zerolog.Logger) *Adapter {
	return &Adapter{dir: dir, log: log}
}

func (a *Adapter) Publish(_ context.Context, clip types.Clip, path string) (string, error) {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", err
	}
	dest := filepath.Join(a.dir, clip.ID+filepath.Ext(path))
	if err := copyFile(path, dest); err != nil {
		return "", fmt.Errorf("publish %s: %w", clip.ID, err)
	}
	abs, err := filepath.Abs(dest)
	if err != nil {
		return "", err
	}
	a.log.Info().Str("clip", clip.ID).Str("dest", abs).Msg("published")
	return "file://" + filepath.ToSlash(abs), nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
