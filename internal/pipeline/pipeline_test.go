package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storycut/storycut/internal/domain/silence"
	"github.com/storycut/storycut/internal/ports"
	"github.com/storycut/storycut/internal/types"
)

type recordSink struct {
	events []Event
	closed int
}

func (s *recordSink) Send(e Event) { s.events = append(s.events, e) }
func (s *recordSink) Close()       { s.closed++ }

func (s *recordSink) byType(t EventType) []Event {
	var out []Event
	for _, e := range s.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type fakeDownloader struct{ calls int }

func (f *fakeDownloader) Download(_ context.Context, _ string, destDir string, onProgress ports.ProgressFunc) (string, error) {
	f.calls++
	if onProgress != nil {
		onProgress(50)
	}
	path := filepath.Join(destDir, "source.mp4")
	return path, os.WriteFile(path, []byte("source"), 0o644)
}

func (f *fakeDownloader) Metadata(string) types.VideoMetadata {
	return types.VideoMetadata{Title: "Big Match", DurationSec: 600}
}

type fakeMedia struct {
	cuts    int
	concats int
	renders int
}

func (f *fakeMedia) Probe(context.Context, string) (ports.MediaInfo, error) {
	return ports.MediaInfo{DurationSec: 10, HasAudio: true}, nil
}

func (f *fakeMedia) ExtractAudio(_ context.Context, _ string, outWav string) error {
	return os.WriteFile(outWav, []byte("wav"), 0o644)
}

func (f *fakeMedia) Cut(_ context.Context, _ string, _, _ float64, out string) error {
	f.cuts++
	return os.WriteFile(out, []byte("part"), 0o644)
}

func (f *fakeMedia) Concat(_ context.Context, _ []string, out string) error {
	f.concats++
	return os.WriteFile(out, []byte("joined"), 0o644)
}

func (f *fakeMedia) Render(_ context.Context, job ports.RenderJob) error {
	f.renders++
	return os.WriteFile(job.OutPath, []byte("rendered"), 0o644)
}

type fakeSilencer struct{ gaps []types.SilenceGap }

func (f *fakeSilencer) DetectSilence(context.Context, string, silence.Options) ([]types.SilenceGap, error) {
	return f.gaps, nil
}

type fakeTranscriber struct{ calls int }

func (f *fakeTranscriber) Transcribe(context.Context, string, string) (types.Transcription, error) {
	f.calls++
	return types.Transcription{
		Language: "en",
		Segments: []types.TranscriptSegment{
			{Start: 0, End: 500, Text: "the whole match in one segment"},
		},
		Text: "the whole match in one segment",
	}, nil
}

type fakePicker struct {
	err   error
	calls []ports.HighlightRequest
}

func (f *fakePicker) SelectHighlights(_ context.Context, req ports.HighlightRequest) ([]types.Clip, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	clips := []types.Clip{
		{ID: types.ClipID(req.ProjectID, 1), Title: "Rally", StartSec: 10, EndSec: 50, ViralScore: 8, TemplateID: "bold-blur", Status: types.ClipPending},
		{ID: types.ClipID(req.ProjectID, 2), Title: "Upset", StartSec: 100, EndSec: 160, ViralScore: 9, TemplateID: "bold-blur", Status: types.ClipPending},
	}
	if req.WantStory {
		clips[0].StoryMeta = &types.StoryMeta{
			Hook: "h", Context: "c", EmotionalArc: types.ArcTension, ShareHook: "s",
		}
	}
	return clips, nil
}

type fakeTTS struct{}

func (fakeTTS) Synthesize(context.Context, string, string) ([]byte, error) {
	return []byte("speech"), nil
}

type fakePublisher struct{ published []string }

func (f *fakePublisher) Publish(_ context.Context, clip types.Clip, _ string) (string, error) {
	f.published = append(f.published, clip.ID)
	return "file:///pub/" + clip.ID + ".mp4", nil
}

type fixture struct {
	orch       *Orchestrator
	sink       *recordSink
	downloader *fakeDownloader
	media      *fakeMedia
	trans      *fakeTranscriber
	picker     *fakePicker
	publisher  *fakePublisher
}

func newFixture(t *testing.T, mut func(*Config, *Deps)) *fixture {
	t.Helper()
	f := &fixture{
		sink:       &recordSink{},
		downloader: &fakeDownloader{},
		media:      &fakeMedia{},
		trans:      &fakeTranscriber{},
		picker:     &fakePicker{},
		publisher:  &fakePublisher{},
	}
	cfg := Config{
		Workdir:      t.TempDir(),
		WhisperModel: "model.bin",
		Story:        true,
	}
	deps := Deps{
		Downloader:  f.downloader,
		Media:       f.media,
		Silencer:    &fakeSilencer{},
		Transcriber: f.trans,
		Picker:      f.picker,
		TTS:         fakeTTS{},
		Publisher:   f.publisher,
	}
	if mut != nil {
		mut(&cfg, &deps)
	}
	orch, err := NewWith(cfg, deps, nil, zerolog.Nop())
	require.NoError(t, err)
	orch.Registry().Attach("p1", f.sink)
	f.orch = orch
	return f
}

func TestRun_FullPipeline(t *testing.T) {
	f := newFixture(t, nil)

	p, err := f.orch.Run(context.Background(), "p1", "https://youtu.be/x")
	require.NoError(t, err)

	require.Len(t, p.Clips, 2)
	// The story clip ends story-composed, the other stays rendered.
	assert.Equal(t, types.ClipStoryComposed, p.Clips[0].Status)
	assert.NotEmpty(t, p.Clips[0].StoryPath)
	assert.NotEmpty(t, p.Clips[0].HookedPath)
	assert.Equal(t, types.ClipRendered, p.Clips[1].Status)
	assert.NotEmpty(t, p.Clips[1].RenderedPath)
	assert.Equal(t, "Big Match", p.Metadata.Title)

	// One concat per extracted clip plus the story's act join; one render per
	// clip plus three act renders for the story clip.
	assert.Equal(t, 3, f.media.concats)
	assert.GreaterOrEqual(t, f.media.renders, 5)

	done := f.sink.byType(EventDone)
	require.Len(t, done, 1)
	assert.Empty(t, f.sink.byType(EventError))
	assert.Equal(t, 1, f.sink.closed)
}

func TestRun_ResumesFromCachedArtifacts(t *testing.T) {
	f := newFixture(t, nil)

	// Seed the audio and transcript artifacts as a previous run would have.
	st := f.orch.store
	require.NoError(t, st.EnsureLayout("p1"))
	require.NoError(t, os.WriteFile(st.AudioPath("p1"), []byte("wav"), 0o644))
	require.NoError(t, st.SaveTranscription("p1", types.Transcription{
		Language: "en",
		Segments: []types.TranscriptSegment{{Start: 0, End: 500, Text: "cached"}},
	}))

	_, err := f.orch.Run(context.Background(), "p1", "https://youtu.be/x")
	require.NoError(t, err)

	assert.Equal(t, 0, f.trans.calls)
	var cached []string
	for _, e := range f.sink.events {
		if e.Message == "cached" && e.Type == EventStepComplete {
			cached = append(cached, e.StepID)
		}
	}
	assert.Contains(t, cached, StepExtractAudio)
	assert.Contains(t, cached, StepTranscribe)
}

func TestRun_SkipsStoryWithoutMeta(t *testing.T) {
	f := newFixture(t, func(cfg *Config, _ *Deps) {
		cfg.Story = false
	})

	p, err := f.orch.Run(context.Background(), "p1", "https://youtu.be/x")
	require.NoError(t, err)

	for _, c := range p.Clips {
		assert.Equal(t, types.ClipRendered, c.Status)
		assert.Empty(t, c.StoryPath)
	}
	var skipped bool
	for _, e := range f.sink.events {
		if e.StepID == StepStoryCompose && e.Type == EventStepComplete {
			skipped = true
			assert.Contains(t, e.Message, "skipped")
		}
	}
	assert.True(t, skipped)
}

func TestRun_StageErrorHalts(t *testing.T) {
	f := newFixture(t, nil)
	f.picker.err = errors.New("model overloaded")

	_, err := f.orch.Run(context.Background(), "p1", "https://youtu.be/x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), StepAnalyze)

	// Nothing past the failed stage ran.
	assert.Equal(t, 0, f.media.cuts)
	assert.Equal(t, 0, f.media.renders)

	errs := f.sink.byType(EventError)
	require.Len(t, errs, 1)
	assert.Equal(t, StepAnalyze, errs[0].StepID)
	assert.Empty(t, f.sink.byType(EventDone))
	// Terminal error closed the sink.
	assert.Equal(t, 1, f.sink.closed)
}

func TestRun_PublishStage(t *testing.T) {
	f := newFixture(t, func(cfg *Config, _ *Deps) {
		cfg.Story = false
		cfg.Publish = true
		cfg.PublishDir = t.TempDir()
	})

	p, err := f.orch.Run(context.Background(), "p1", "https://youtu.be/x")
	require.NoError(t, err)

	require.Len(t, f.publisher.published, 2)
	for _, c := range p.Clips {
		assert.Equal(t, types.ClipUploaded, c.Status)
		assert.Contains(t, c.PublishedURL, "file://")
	}
}

func TestRun_MaxClipsAndForcedTemplate(t *testing.T) {
	f := newFixture(t, func(cfg *Config, _ *Deps) {
		cfg.Story = false
		cfg.MaxClips = 1
		cfg.TemplateID = "clean-black"
	})

	p, err := f.orch.Run(context.Background(), "p1", "https://youtu.be/x")
	require.NoError(t, err)

	require.Len(t, p.Clips, 1)
	assert.Equal(t, "clean-black", p.Clips[0].TemplateID)
}

func TestRun_SilenceGapsSplitExtraction(t *testing.T) {
	f := newFixture(t, func(cfg *Config, d *Deps) {
		cfg.Story = false
		// One long gap inside the first clip's 10..50 window.
		d.Silencer = &fakeSilencer{gaps: []types.SilenceGap{{Start: 20, End: 22, Duration: 2}}}
	})

	_, err := f.orch.Run(context.Background(), "p1", "https://youtu.be/x")
	require.NoError(t, err)

	// Clip 1 splits into two spans around the gap, clip 2 stays whole.
	assert.Equal(t, 3, f.media.cuts)
	assert.Equal(t, 2, f.media.concats)
}

func TestRun_SkipsFullySilentClip(t *testing.T) {
	f := newFixture(t, func(cfg *Config, d *Deps) {
		cfg.Story = false
		// The first clip's entire 10..50 window is one silence gap.
		d.Silencer = &fakeSilencer{gaps: []types.SilenceGap{{Start: 10, End: 50, Duration: 40}}}
	})

	p, err := f.orch.Run(context.Background(), "p1", "https://youtu.be/x")
	require.NoError(t, err)

	// The silent clip is never extracted or rendered, the other proceeds.
	assert.Equal(t, types.ClipPending, p.Clips[0].Status)
	assert.Empty(t, p.Clips[0].ExtractedPath)
	assert.Equal(t, types.ClipRendered, p.Clips[1].Status)
	assert.Equal(t, 1, f.media.cuts)
	assert.Equal(t, 1, f.media.concats)
	assert.Equal(t, 1, f.media.renders)
	require.Len(t, f.sink.byType(EventDone), 1)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		mut  func(*Config)
		ok   bool
	}{
		{"valid", func(c *Config) {}, true},
		{"no workdir", func(c *Config) { c.Workdir = "" }, false},
		{"no model", func(c *Config) { c.WhisperModel = "" }, false},
		{"negative clips", func(c *Config) { c.MaxClips = -1 }, false},
		{"publish without dir", func(c *Config) { c.Publish = true }, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Config{Workdir: "/tmp/w", WhisperModel: "m.bin"}
			tc.mut(&cfg)
			err := cfg.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestRegistry_SupersedeAndTerminal(t *testing.T) {
	r := NewRegistry()
	first := &recordSink{}
	second := &recordSink{}

	r.Attach("p", first)
	r.Attach("p", second)
	assert.Equal(t, 1, first.closed)

	r.Send("p", Event{Type: EventProgress, StepID: StepDownload, Progress: 10})
	r.Send("p", Event{Type: EventDone})
	require.Len(t, second.events, 2)
	assert.Equal(t, 1, second.closed)

	// The stream ended, later events are dropped.
	r.Send("p", Event{Type: EventProgress})
	assert.Len(t, second.events, 2)
}

func TestRegistry_DetachIsIdempotent(t *testing.T) {
	r := NewRegistry()
	s := &recordSink{}
	r.Attach("p", s)
	r.Detach("p")
	r.Detach("p")
	assert.Equal(t, 1, s.closed)
}
