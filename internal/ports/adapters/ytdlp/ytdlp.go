// Package ytdlp adapts the yt-dlp downloader to the pipeline's Downloader
// port. Besides the video itself, yt-dlp writes a sidecar .info.json that
// Metadata parses into VideoMetadata.
package ytdlp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/storycut/storycut/internal/errs"
	"github.com/storycut/storycut/internal/ports"
	"github.com/storycut/storycut/internal/ports/adapters/procrun"
	"github.com/storycut/storycut/internal/types"
)

const downloadTimeout = 30 * time.Minute

// descriptionLimit truncates provider descriptions; some channels paste
// multi-kilobyte link walls there.
const descriptionLimit = 500

var defaultAllowedHosts = map[string]struct{}{
	"youtube.com":   {},
	"youtu.be":      {},
	"m.youtube.com": {},
	"vimeo.com":     {},
	"twitch.tv":     {},
}

type Adapter struct {
	bin          string
	allowedHosts map[string]struct{}
	log          zerolog.Logger
}

func New(binPath string, allowedHosts []string, log zerolog.Logger) *Adapter {
	if binPath == "" {
		binPath = "yt-dlp"
	}
	return &Adapter{bin: binPath, allowedHosts: normalizeAllowedHosts(allowedHosts), log: log}
}

// ValidateURL rejects anything that is not an absolute http(s) URL on a
// supported video host.
func (a *Adapter) ValidateURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid video URL: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("invalid video URL %q: absolute URL with host is required", raw)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("invalid video URL %q: http(s) is required", raw)
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if _, ok := a.allowedHosts[host]; !ok {
		return fmt.Errorf("unsupported video host %q", host)
	}
	return nil
}

var progressRe = regexp.MustCompile(`\[download\]\s+(\d+(?:\.\d+)?)%`)

func (a *Adapter) Download(ctx context.Context, rawURL, destDir string, onProgress ports.ProgressFunc) (string, error) {
	if err := a.ValidateURL(rawURL); err != nil {
		return "", err
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", err
	}

	outTemplate := filepath.Join(destDir, "source.%(ext)s")
	a.log.Info().Str("url", rawURL).Msg("downloading source video")
	_, err := procrun.Run(ctx, procrun.Spec{
		Name: "yt-dlp",
		Bin:  a.bin,
		Args: []string{
			"--no-playlist",
			"--write-info-json",
			"-f", "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best",
			"--merge-output-format", "mp4",
			"-o", outTemplate,
			rawURL,
		},
		Timeout: downloadTimeout,
		OnLine: func(l string) {
			if onProgress == nil {
				return
			}
			if m := progressRe.FindStringSubmatch(l); m != nil {
				if pct, err := strconv.ParseFloat(m[1], 64); err == nil {
					onProgress(pct)
				}
			}
		},
	})
	if err != nil {
		return "", &errs.UpstreamError{Service: "yt-dlp", Err: err}
	}

	path, err := findSource(destDir)
	if err != nil {
		return "", err
	}
	return path, nil
}

func findSource(destDir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(destDir, "source.*"))
	if err != nil {
		return "", err
	}
	for _, m := range matches {
		if strings.HasSuffix(m, ".info.json") || strings.HasSuffix(m, ".part") {
			continue
		}
		return m, nil
	}
	return "", &errs.MissingAssetError{Asset: "source video", Path: destDir, RunFirst: "download"}
}

type infoJSON struct {
	Title       string  `json:"title"`
	Channel     string  `json:"channel"`
	Uploader    string  `json:"uploader"`
	Duration    float64 `json:"duration"`
	Thumbnail   string  `json:"thumbnail"`
	Description string  `json:"description"`
}

// Metadata parses the sidecar info file. A missing or unreadable sidecar is
// non-fatal: the pipeline proceeds with an "Unknown" record.
func (a *Adapter) Metadata(projectDir string) types.VideoMetadata {
	unknown := types.VideoMetadata{Title: "Unknown", Channel: "Unknown"}

	b, err := os.ReadFile(filepath.Join(projectDir, "source.info.json"))
	if err != nil {
		a.log.Warn().Str("dir", projectDir).Msg("no sidecar info file, using unknown metadata")
		return unknown
	}
	var info infoJSON
	if err := json.Unmarshal(b, &info); err != nil {
		a.log.Warn().Err(err).Msg("malformed sidecar info file, using unknown metadata")
		return unknown
	}

	channel := info.Channel
	if channel == "" {
		channel = info.Uploader
	}
	desc := info.Description
	if r := []rune(desc); len(r) > descriptionLimit {
		desc = string(r[:descriptionLimit]) + "…"
	}
	md := types.VideoMetadata{
		Title:        info.Title,
		Channel:      channel,
		DurationSec:  info.Duration,
		ThumbnailURL: info.Thumbnail,
		Description:  desc,
	}
	if md.Title == "" {
		md.Title = "Unknown"
	}
	if md.Channel == "" {
		md.Channel = "Unknown"
	}
	return md
}

func normalizeAllowedHosts(hosts []string) map[string]struct{} {
	if len(hosts) == 0 {
		return defaultAllowedHosts
	}
	out := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		v := strings.ToLower(strings.TrimSpace(h))
		v = strings.TrimPrefix(v, "http://")
		v = strings.TrimPrefix(v, "https://")
		v = strings.TrimPrefix(v, "www.")
		v = strings.Trim(v, "/")
		if v == "" {
			continue
		}
		if i := strings.Index(v, ":"); i >= 0 {
			v = v[:i]
		}
		out[v] = struct{}{}
	}
	if len(out) == 0 {
		return defaultAllowedHosts
	}
	return out
}
