// Package pipeline orchestrates the full run: download, audio extraction,
// transcription, silence detection, highlight selection, clip extraction,
// template rendering, story composition and optional publishing. Artifacts
// persist after every stage so an interrupted run resumes from disk.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/storycut/storycut/internal/domain/silence"
	"github.com/storycut/storycut/internal/domain/templates"
	"github.com/storycut/storycut/internal/errs"
	"github.com/storycut/storycut/internal/ports"
	"github.com/storycut/storycut/internal/ports/adapters/export"
	"github.com/storycut/storycut/internal/ports/adapters/ffmpeg"
	"github.com/storycut/storycut/internal/ports/adapters/httptts"
	"github.com/storycut/storycut/internal/ports/adapters/openaiselect"
	"github.com/storycut/storycut/internal/ports/adapters/whispercpp"
	"github.com/storycut/storycut/internal/ports/adapters/ytdlp"
	"github.com/storycut/storycut/internal/render"
	"github.com/storycut/storycut/internal/store"
	"github.com/storycut/storycut/internal/story"
	"github.com/storycut/storycut/internal/types"
)

var (
	_ ports.Downloader        = (*ytdlp.Adapter)(nil)
	_ ports.MediaTool         = (*ffmpeg.Adapter)(nil)
	_ ports.SilenceDetector   = (*ffmpeg.Adapter)(nil)
	_ ports.Transcriber       = (*whispercpp.Adapter)(nil)
	_ ports.HighlightPicker   = (*openaiselect.Adapter)(nil)
	_ ports.SpeechSynthesizer = (*httptts.Adapter)(nil)
	_ ports.Publisher         = (*export.Adapter)(nil)
)

// Config carries every pipeline knob. Zero values fall back to sane defaults
// where one exists; Validate rejects the rest.
type Config struct {
	Workdir string

	YtdlpPath    string
	FfmpegPath   string
	FfprobePath  string
	WhisperPath  string
	WhisperModel string
	Language     string

	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string

	TTSEndpoint string
	TTSVoice    string

	PublishDir   string
	AllowedHosts []string

	// TemplateFile optionally merges user template overrides into the
	// builtin catalog.
	TemplateFile string
	// TemplateID forces every clip onto one template when set.
	TemplateID string

	MaxClips int
	Story    bool
	Publish  bool

	Silence           silence.Options
	MinGapToRemoveSec float64
}

func (c Config) Validate() error {
	if c.Workdir == "" {
		return &errs.ConfigError{Reason: "workdir is required"}
	}
	if c.WhisperModel == "" {
		return &errs.ConfigError{Reason: "whisper model path is required"}
	}
	if c.MaxClips < 0 {
		return &errs.ConfigError{Reason: "max clips must not be negative"}
	}
	if c.Publish && c.PublishDir == "" {
		return &errs.ConfigError{Reason: "publish dir is required when publishing"}
	}
	return nil
}

func (c Config) withDefaults() Config {
	c.Silence = c.Silence.WithDefaults()
	if c.MinGapToRemoveSec <= 0 {
		c.MinGapToRemoveSec = silence.DefaultMinGapToRemoveSec
	}
	return c
}

// Deps are the orchestrator's collaborator ports, injectable for tests.
type Deps struct {
	Downloader  ports.Downloader
	Media       ports.MediaTool
	Silencer    ports.SilenceDetector
	Transcriber ports.Transcriber
	Picker      ports.HighlightPicker
	TTS         ports.SpeechSynthesizer
	Publisher   ports.Publisher
}

type Orchestrator struct {
	cfg        Config
	deps       Deps
	store      *store.Store
	renderer   *render.Renderer
	compositor *story.Compositor
	templates  *templates.Catalog
	registry   *Registry
	log        zerolog.Logger
}

// New builds an orchestrator on the real adapters.
func New(cfg Config, registry *Registry, log zerolog.Logger) (*Orchestrator, error) {
	media := ffmpeg.New(cfg.FfmpegPath, cfg.FfprobePath, log)
	deps := Deps{
		Downloader:  ytdlp.New(cfg.YtdlpPath, cfg.AllowedHosts, log),
		Media:       media,
		Silencer:    media,
		Transcriber: whispercpp.New(cfg.WhisperPath, cfg.WhisperModel, cfg.Language, log),
		Picker:      openaiselect.New(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, log),
		TTS:         httptts.New(cfg.TTSEndpoint, cfg.TTSVoice, log),
		Publisher:   export.New(cfg.PublishDir, log),
	}
	return NewWith(cfg, deps, registry, log)
}

// NewWith builds an orchestrator on caller-supplied ports.
func NewWith(cfg Config, deps Deps, registry *Registry, log zerolog.Logger) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	catalog := templates.Default()
	if cfg.TemplateFile != "" {
		if err := catalog.LoadYAML(cfg.TemplateFile); err != nil {
			return nil, fmt.Errorf("load templates: %w", err)
		}
	}
	if registry == nil {
		registry = NewRegistry()
	}

	return &Orchestrator{
		cfg:        cfg,
		deps:       deps,
		store:      store.New(cfg.Workdir),
		renderer:   render.New(deps.Media, log),
		compositor: story.New(deps.Media, deps.TTS, log),
		templates:  catalog,
		registry:   registry,
		log:        log,
	}, nil
}

// Registry exposes the event registry for attaching progress sinks.
func (o *Orchestrator) Registry() *Registry { return o.registry }

// Run executes the full pipeline for one project. A stage failure emits a
// terminal error event and halts; artifacts written so far stay on disk so
// the next run resumes past the completed stages.
func (o *Orchestrator) Run(ctx context.Context, projectID, url string) (*types.Project, error) {
	if err := o.store.EnsureLayout(projectID); err != nil {
		return nil, err
	}

	p, err := o.loadOrCreate(projectID, url)
	if err != nil {
		return nil, err
	}

	if err := o.download(ctx, p); err != nil {
		return p, o.fail(p.ID, StepDownload, err)
	}
	if err := o.extractAudio(ctx, p); err != nil {
		return p, o.fail(p.ID, StepExtractAudio, err)
	}
	tr, err := o.transcribe(ctx, p)
	if err != nil {
		return p, o.fail(p.ID, StepTranscribe, err)
	}
	gaps, err := o.detectSilence(ctx, p)
	if err != nil {
		return p, o.fail(p.ID, StepDetectSilence, err)
	}
	if err := o.analyze(ctx, p, tr); err != nil {
		return p, o.fail(p.ID, StepAnalyze, err)
	}
	if err := o.extractClips(ctx, p, gaps); err != nil {
		return p, o.fail(p.ID, StepExtractClips, err)
	}
	if err := o.renderClips(ctx, p, tr); err != nil {
		return p, o.fail(p.ID, StepRender, err)
	}
	if err := o.composeStories(ctx, p); err != nil {
		return p, o.fail(p.ID, StepStoryCompose, err)
	}
	if err := o.publish(ctx, p); err != nil {
		return p, o.fail(p.ID, StepPublish, err)
	}

	o.registry.Send(p.ID, Event{Type: EventDone, Message: "pipeline complete"})
	return p, nil
}

func (o *Orchestrator) loadOrCreate(projectID, url string) (*types.Project, error) {
	if store.HasArtifact(o.store.ManifestPath(projectID)) {
		p, err := o.store.LoadProject(projectID)
		if err != nil {
			return nil, fmt.Errorf("load manifest: %w", err)
		}
		return p, nil
	}
	p := &types.Project{ID: projectID, SourceURL: url}
	return p, o.store.SaveProject(p)
}

func (o *Orchestrator) download(ctx context.Context, p *types.Project) error {
	if p.SourcePath != "" && store.HasArtifact(p.SourcePath) {
		o.cached(p.ID, StepDownload)
		return nil
	}
	o.start(p.ID, StepDownload)

	dir := o.store.ProjectDir(p.ID)
	src, err := o.deps.Downloader.Download(ctx, p.SourceURL, dir, o.progressFn(p.ID, StepDownload))
	if err != nil {
		return err
	}
	p.SourcePath = src
	p.Metadata = o.deps.Downloader.Metadata(dir)
	if err := o.store.SaveProject(p); err != nil {
		return err
	}
	o.complete(p.ID, StepDownload, p.Metadata.Title)
	return nil
}

func (o *Orchestrator) extractAudio(ctx context.Context, p *types.Project) error {
	audio := o.store.AudioPath(p.ID)
	if store.HasArtifact(audio) {
		p.AudioPath = audio
		o.cached(p.ID, StepExtractAudio)
		return nil
	}
	o.start(p.ID, StepExtractAudio)

	if err := o.deps.Media.ExtractAudio(ctx, p.SourcePath, audio); err != nil {
		return err
	}
	p.AudioPath = audio
	if err := o.store.SaveProject(p); err != nil {
		return err
	}
	o.complete(p.ID, StepExtractAudio, "")
	return nil
}

func (o *Orchestrator) transcribe(ctx context.Context, p *types.Project) (types.Transcription, error) {
	if store.HasArtifact(o.store.TranscriptPath(p.ID)) {
		tr, err := o.store.LoadTranscription(p.ID)
		if err == nil {
			o.cached(p.ID, StepTranscribe)
			return tr, nil
		}
		o.log.Warn().Err(err).Msg("cached transcript unreadable, re-transcribing")
	}
	o.start(p.ID, StepTranscribe)

	tr, err := o.deps.Transcriber.Transcribe(ctx, p.AudioPath, o.store.TmpDir(p.ID))
	if err != nil {
		return types.Transcription{}, err
	}
	if err := o.store.SaveTranscription(p.ID, tr); err != nil {
		return types.Transcription{}, err
	}
	o.complete(p.ID, StepTranscribe, fmt.Sprintf("%d segments", len(tr.Segments)))
	return tr, nil
}

func (o *Orchestrator) detectSilence(ctx context.Context, p *types.Project) ([]types.SilenceGap, error) {
	o.start(p.ID, StepDetectSilence)

	gaps, err := o.deps.Silencer.DetectSilence(ctx, p.AudioPath, o.cfg.Silence)
	if err != nil {
		return nil, err
	}
	if err := o.store.SaveSilence(p.ID, gaps); err != nil {
		return nil, err
	}
	o.complete(p.ID, StepDetectSilence, fmt.Sprintf("%d gaps", len(gaps)))
	return gaps, nil
}

func (o *Orchestrator) analyze(ctx context.Context, p *types.Project, tr types.Transcription) error {
	if len(p.Clips) > 0 {
		o.cached(p.ID, StepAnalyze)
		return nil
	}
	o.start(p.ID, StepAnalyze)

	clips, err := o.deps.Picker.SelectHighlights(ctx, ports.HighlightRequest{
		Transcription: tr,
		VideoTitle:    p.Metadata.Title,
		DurationSec:   p.Metadata.DurationSec,
		ProjectID:     p.ID,
		WantStory:     o.cfg.Story,
	})
	if err != nil {
		return err
	}
	if o.cfg.MaxClips > 0 && len(clips) > o.cfg.MaxClips {
		clips = clips[:o.cfg.MaxClips]
	}
	if o.cfg.TemplateID != "" {
		for i := range clips {
			clips[i].TemplateID = o.cfg.TemplateID
		}
	}
	p.Clips = clips
	if err := o.store.SaveProject(p); err != nil {
		return err
	}
	o.complete(p.ID, StepAnalyze, fmt.Sprintf("%d highlights", len(clips)))
	return nil
}

// extractClips cuts each pending clip out of the source, dropping long
// silence gaps. Clips are processed serially; the manifest is saved after
// every clip so a crash loses at most one clip's work.
func (o *Orchestrator) extractClips(ctx context.Context, p *types.Project, gaps []types.SilenceGap) error {
	o.start(p.ID, StepExtractClips)

	for i := range p.Clips {
		clip := &p.Clips[i]
		if clip.Status != types.ClipPending {
			continue
		}
		out := filepath.Join(o.store.ClipsDir(p.ID), clip.ID+".mp4")
		extracted, err := o.extractOne(ctx, p, clip, gaps, out)
		if err != nil {
			return fmt.Errorf("clip %s: %w", clip.ID, err)
		}
		if !extracted {
			o.log.Warn().Str("clip", clip.ID).Msg("clip window is entirely silent, skipping")
			o.progress(p.ID, StepExtractClips, (i+1)*100/len(p.Clips))
			continue
		}
		clip.ExtractedPath = out
		clip.Status = types.ClipExtracted
		if err := o.store.SaveProject(p); err != nil {
			return err
		}
		o.progress(p.ID, StepExtractClips, (i+1)*100/len(p.Clips))
	}
	o.complete(p.ID, StepExtractClips, "")
	return nil
}

// extractOne cuts and joins one clip's active spans. A false result with nil
// error means every span was removed as silence and there is nothing to
// extract.
func (o *Orchestrator) extractOne(ctx context.Context, p *types.Project, clip *types.Clip, gaps []types.SilenceGap, out string) (bool, error) {
	spans := silence.ActiveSegments(clip.StartSec, clip.EndSec, gaps, o.cfg.MinGapToRemoveSec)
	if len(spans) == 0 {
		return false, nil
	}

	var parts []string
	defer func() {
		for _, part := range parts {
			os.Remove(part)
		}
	}()
	for n, span := range spans {
		part := filepath.Join(o.store.TmpDir(p.ID), fmt.Sprintf("%s-part-%d.mp4", clip.ID, n))
		if err := o.deps.Media.Cut(ctx, p.SourcePath, span.Start, span.End, part); err != nil {
			return false, err
		}
		parts = append(parts, part)
	}
	return true, o.deps.Media.Concat(ctx, parts, out)
}

func (o *Orchestrator) renderClips(ctx context.Context, p *types.Project, tr types.Transcription) error {
	o.start(p.ID, StepRender)

	for i := range p.Clips {
		clip := &p.Clips[i]
		if clip.Status != types.ClipExtracted {
			continue
		}
		o.log.Info().Str("clip", clip.ID).Str("template", clip.TemplateID).Msg("rendering")
		out, err := o.renderer.RenderClip(ctx, render.Input{
			Clip:          *clip,
			Template:      o.templates.Get(clip.TemplateID),
			Transcription: tr,
			SourcePath:    clip.ExtractedPath,
			OutDir:        o.store.RendersDir(p.ID),
			TmpDir:        o.store.TmpDir(p.ID),
			OnProgress:    o.progressFn(p.ID, StepRender),
		})
		if err != nil {
			return fmt.Errorf("clip %s: %w", clip.ID, err)
		}
		clip.RenderedPath = out
		clip.Status = types.ClipRendered
		if err := o.store.SaveProject(p); err != nil {
			return err
		}
		o.progress(p.ID, StepRender, (i+1)*100/len(p.Clips))
	}
	o.complete(p.ID, StepRender, "")
	return nil
}

func (o *Orchestrator) composeStories(ctx context.Context, p *types.Project) error {
	if !o.cfg.Story || !anyStoryMeta(p.Clips) {
		o.skipped(p.ID, StepStoryCompose, "no story metadata")
		return nil
	}
	o.start(p.ID, StepStoryCompose)

	for i := range p.Clips {
		clip := &p.Clips[i]
		if clip.StoryMeta == nil || clip.Status != types.ClipRendered {
			continue
		}
		res, err := o.compositor.Compose(ctx, story.Input{
			Clip:       *clip,
			Language:   o.cfg.Language,
			OutDir:     o.store.StoriesDir(p.ID),
			TmpDir:     o.store.TmpDir(p.ID),
			OnProgress: o.progressFn(p.ID, StepStoryCompose),
		})
		if err != nil {
			return fmt.Errorf("clip %s: %w", clip.ID, err)
		}
		clip.StoryPath = res.StoryPath
		clip.HookedPath = res.HookPath
		clip.Status = types.ClipStoryComposed
		if err := o.store.SaveProject(p); err != nil {
			return err
		}
	}
	o.complete(p.ID, StepStoryCompose, "")
	return nil
}

func (o *Orchestrator) publish(ctx context.Context, p *types.Project) error {
	if !o.cfg.Publish {
		return nil
	}
	o.start(p.ID, StepPublish)

	for i := range p.Clips {
		clip := &p.Clips[i]
		path := clip.StoryPath
		if path == "" {
			path = clip.RenderedPath
		}
		if path == "" || clip.PublishedURL != "" {
			continue
		}
		url, err := o.deps.Publisher.Publish(ctx, *clip, path)
		if err != nil {
			return fmt.Errorf("clip %s: %w", clip.ID, err)
		}
		clip.PublishedURL = url
		clip.Status = types.ClipUploaded
		if err := o.store.SaveProject(p); err != nil {
			return err
		}
	}
	o.complete(p.ID, StepPublish, "")
	return nil
}

func anyStoryMeta(clips []types.Clip) bool {
	for _, c := range clips {
		if c.StoryMeta != nil {
			return true
		}
	}
	return false
}

func (o *Orchestrator) start(projectID, step string) {
	o.registry.Send(projectID, Event{Type: EventProgress, StepID: step, Progress: 0})
}

func (o *Orchestrator) progress(projectID, step string, pct int) {
	o.registry.Send(projectID, Event{Type: EventProgress, StepID: step, Progress: pct})
}

func (o *Orchestrator) progressFn(projectID, step string) ports.ProgressFunc {
	return func(pct float64) {
		o.progress(projectID, step, int(pct))
	}
}

func (o *Orchestrator) cached(projectID, step string) {
	o.registry.Send(projectID, Event{Type: EventProgress, StepID: step, Progress: 100, Message: "cached"})
	o.registry.Send(projectID, Event{Type: EventStepComplete, StepID: step, Progress: 100, Message: "cached"})
}

func (o *Orchestrator) skipped(projectID, step, why string) {
	o.registry.Send(projectID, Event{Type: EventStepComplete, StepID: step, Progress: 100, Message: "skipped: " + why})
}

func (o *Orchestrator) complete(projectID, step, msg string) {
	o.registry.Send(projectID, Event{Type: EventStepComplete, StepID: step, Progress: 100, Message: msg})
}

func (o *Orchestrator) fail(projectID, step string, err error) error {
	o.log.Error().Err(err).Str("step", step).Msg("pipeline stage failed")
	o.registry.Send(projectID, Event{Type: EventError, StepID: step, Message: err.Error()})
	return fmt.Errorf("%s: %w", step, err)
}
