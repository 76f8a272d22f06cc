// Package ffmpeg adapts the ffmpeg/ffprobe toolchain to the pipeline's media
// ports. Filter graphs are passed via a script side file, never inline, to
// avoid shell-escaping pitfalls with complex graphs.
package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/storycut/storycut/internal/domain/silence"
	"github.com/storycut/storycut/internal/errs"
	"github.com/storycut/storycut/internal/ports"
	"github.com/storycut/storycut/internal/ports/adapters/procrun"
	"github.com/storycut/storycut/internal/types"
)

// Per-operation duration budgets. Renders get the largest budget because
// filter graphs re-encode.
const (
	probeTimeout   = 30 * time.Second
	mediaOpTimeout = 10 * time.Minute
	renderTimeout  = 30 * time.Minute
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
	log     zerolog.Logger
}

func New(ffmpegPath, ffprobePath string, log zerolog.Logger) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath, log: log}
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

func (a *Adapter) Probe(ctx context.Context, path string) (ports.MediaInfo, error) {
	var out strings.Builder
	_, err := procrun.Run(ctx, procrun.Spec{
		Name: "ffprobe",
		Bin:  a.ffprobe,
		Args: []string{
			"-v", "error",
			"-print_format", "json",
			"-show_format",
			"-show_streams",
			path,
		},
		Timeout: probeTimeout,
		OnLine:  func(l string) { out.WriteString(l); out.WriteString("\n") },
	})
	if err != nil {
		return ports.MediaInfo{}, err
	}

	var po probeOutput
	if err := json.Unmarshal([]byte(out.String()), &po); err != nil {
		return ports.MediaInfo{}, &errs.ParseError{What: "ffprobe output", Detail: err.Error()}
	}
	info := ports.MediaInfo{}
	if po.Format.Duration != "" {
		d, err := strconv.ParseFloat(po.Format.Duration, 64)
		if err != nil {
			return ports.MediaInfo{}, &errs.ParseError{What: "ffprobe duration", Detail: po.Format.Duration}
		}
		info.DurationSec = d
	}
	for _, s := range po.Streams {
		switch s.CodecType {
		case "video":
			info.HasVideo = true
			if s.Width > 0 {
				info.Width = s.Width
				info.Height = s.Height
			}
		case "audio":
			info.HasAudio = true
		}
	}
	return info, nil
}

func (a *Adapter) ExtractAudio(ctx context.Context, inPath, outWav string) error {
	a.log.Debug().Str("in", inPath).Str("out", outWav).Msg("extracting audio")
	_, err := procrun.Run(ctx, procrun.Spec{
		Name: "ffmpeg extract audio",
		Bin:  a.ffmpeg,
		Args: []string{
			"-y",
			"-i", inPath,
			"-vn",
			"-ac", "1",
			"-ar", "16000",
			"-f", "wav",
			outWav,
		},
		Timeout: mediaOpTimeout,
	})
	return err
}

func (a *Adapter) Cut(ctx context.Context, inPath string, startSec, endSec float64, outPath string) error {
	_, err := procrun.Run(ctx, procrun.Spec{
		Name: "ffmpeg cut",
		Bin:  a.ffmpeg,
		Args: []string{
			"-y",
			"-ss", fmtSeconds(startSec),
			"-to", fmtSeconds(endSec),
			"-i", inPath,
			"-c", "copy",
			"-avoid_negative_ts", "make_zero",
			outPath,
		},
		Timeout: mediaOpTimeout,
	})
	return err
}

func (a *Adapter) Concat(ctx context.Context, parts []string, outPath string) error {
	if len(parts) == 0 {
		return fmt.Errorf("concat: no input parts")
	}
	list := filepath.Join(filepath.Dir(outPath), fmt.Sprintf(".concat-%d.txt", time.Now().UnixNano()))
	var b strings.Builder
	for _, p := range parts {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}
	if err := os.WriteFile(list, []byte(b.String()), 0o644); err != nil {
		return err
	}
	defer os.Remove(list)

	_, err := procrun.Run(ctx, procrun.Spec{
		Name: "ffmpeg concat",
		Bin:  a.ffmpeg,
		Args: []string{
			"-y",
			"-f", "concat",
			"-safe", "0",
			"-i", list,
			"-c", "copy",
			outPath,
		},
		Timeout: mediaOpTimeout,
	})
	return err
}

func (a *Adapter) DetectSilence(ctx context.Context, audioPath string, opts silence.Options) ([]types.SilenceGap, error) {
	opts = opts.WithDefaults()
	var log strings.Builder
	_, err := procrun.Run(ctx, procrun.Spec{
		Name: "ffmpeg silencedetect",
		Bin:  a.ffmpeg,
		Args: []string{
			"-i", audioPath,
			"-af", fmt.Sprintf("silencedetect=noise=%.0fdB:d=%.2f", opts.NoiseThresholdDB, opts.MinDurationSec),
			"-f", "null",
			"-",
		},
		Timeout: mediaOpTimeout,
		OnLine: func(l string) {
			// Only the filter's own lines matter; keeping everything would
			// buffer a long run's full log.
			if strings.Contains(l, "silence_") {
				log.WriteString(l)
				log.WriteString("\n")
			}
		},
	})
	if err != nil {
		return nil, err
	}
	return silence.ParseLog(log.String()), nil
}

func (a *Adapter) Render(ctx context.Context, job ports.RenderJob) error {
	if job.Graph == nil || job.Graph.Len() == 0 {
		return fmt.Errorf("render: empty filter graph")
	}
	script := filepath.Join(filepath.Dir(job.OutPath), fmt.Sprintf(".graph-%d.txt", time.Now().UnixNano()))
	if err := os.WriteFile(script, []byte(job.Graph.String()), 0o644); err != nil {
		return err
	}
	defer os.Remove(script)

	args := []string{"-y"}
	for _, in := range job.Inputs {
		if in.Format != "" {
			args = append(args, "-f", in.Format)
		}
		if in.DurationSec > 0 {
			args = append(args, "-t", fmtSeconds(in.DurationSec))
		}
		args = append(args, "-i", in.Path)
	}
	args = append(args, "-filter_complex_script", script)
	for _, pad := range job.MapPads {
		args = append(args, "-map", "["+pad+"]")
	}
	if job.AudioOnly {
		args = append(args, "-vn", "-c:a", "aac", "-b:a", "192k")
	} else {
		args = append(args,
			"-c:v", "libx264",
			"-preset", "veryfast",
			"-crf", "18",
			"-pix_fmt", "yuv420p",
			"-r", "30",
			"-c:a", "aac",
			"-b:a", "192k",
		)
	}
	args = append(args, job.OutPath)

	a.log.Debug().Str("out", job.OutPath).Int("chains", job.Graph.Len()).Msg("rendering filter graph")
	_, err := procrun.Run(ctx, procrun.Spec{
		Name:    "ffmpeg render",
		Bin:     a.ffmpeg,
		Args:    args,
		Timeout: renderTimeout,
		OnLine: func(l string) {
			if job.OnProgress == nil || job.DurationHint <= 0 {
				return
			}
			if sec, ok := parseTimeMarker(l); ok {
				pct := sec / job.DurationHint * 100
				if pct > 100 {
					pct = 100
				}
				job.OnProgress(pct)
			}
		},
	})
	return err
}

var timeRe = regexp.MustCompile(`time=(\d+):(\d+):(\d+(?:\.\d+)?)`)

// parseTimeMarker extracts the wall-clock position from an ffmpeg progress
// line such as "frame= 120 fps= 30 ... time=00:00:04.00 bitrate=...".
func parseTimeMarker(line string) (float64, bool) {
	m := timeRe.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	h, _ := strconv.ParseFloat(m[1], 64)
	min, _ := strconv.ParseFloat(m[2], 64)
	s, _ := strconv.ParseFloat(m[3], 64)
	return h*3600 + min*60 + s, true
}

func fmtSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}
