package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/storycut/storycut/internal/pipeline"
)

func run(cmd *cobra.Command, url string) error {
	workdir, _ := cmd.Flags().GetString("workdir")
	clipsN, _ := cmd.Flags().GetInt("clips")
	template, _ := cmd.Flags().GetString("template")
	storyMode, _ := cmd.Flags().GetBool("story")
	publish, _ := cmd.Flags().GetBool("publish")
	projectID, _ := cmd.Flags().GetString("project")
	templatesFile, _ := cmd.Flags().GetString("templates-file")
	silenceGap, _ := cmd.Flags().GetFloat64("silence-gap")

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Hour)
	defer cancel()

	cfg := pipeline.Config{
		Workdir: workdir,

		YtdlpPath:   getenvDefault("STORYCUT_YTDLP", "yt-dlp"),
		FfmpegPath:  getenvDefault("STORYCUT_FFMPEG", "ffmpeg"),
		FfprobePath: getenvDefault("STORYCUT_FFPROBE", "ffprobe"),

		WhisperPath:  getenvDefault("STORYCUT_WHISPER_BIN", ".cache/bin/whisper.cpp"),
		WhisperModel: getenvDefault("STORYCUT_WHISPER_MODEL", ".cache/models/ggml-base.bin"),
		Language:     os.Getenv("STORYCUT_LANGUAGE"),

		OpenAIKey:     os.Getenv("STORYCUT_OPENAI_API_KEY"),
		OpenAIBaseURL: os.Getenv("STORYCUT_OPENAI_BASE_URL"),
		OpenAIModel:   os.Getenv("STORYCUT_OPENAI_MODEL"),

		TTSEndpoint: os.Getenv("STORYCUT_TTS_ENDPOINT"),
		TTSVoice:    os.Getenv("STORYCUT_TTS_VOICE"),

		PublishDir: getenvDefault("STORYCUT_PUBLISH_DIR", "published"),

		TemplateFile: templatesFile,
		TemplateID:   template,
		MaxClips:     clipsN,
		Story:        storyMode,
		Publish:      publish,

		MinGapToRemoveSec: silenceGap,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	orch, err := pipeline.New(cfg, nil, log)
	if err != nil {
		return err
	}

	if projectID == "" {
		projectID = uuid.NewString()
	}
	orch.Registry().Attach(projectID, &consoleSink{out: cmd.OutOrStdout()})
	log.Info().Str("project", projectID).Str("url", url).Msg("starting pipeline")

	p, err := orch.Run(ctx, projectID, url)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "project %s: %d clips\n", p.ID, len(p.Clips))
	for _, c := range p.Clips {
		out := c.StoryPath
		if out == "" {
			out = c.RenderedPath
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  %s  score=%d  %s\n", c.ID, c.ViralScore, out)
	}
	return nil
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
