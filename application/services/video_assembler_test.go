package services

import (
	"context"
	"errors"
	"os"
	"story-video-pipeline/config"
	"story-video-pipeline/domain"
	"story-video-pipeline/infrastructure/adapters"
	"story-video-pipeline/infrastructure/workerpool"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var renderTime = time.Date(2025, 3, 1, 0, 30, 0, 0, time.UTC)

type assemblyFixture struct {
	workDir   string
	stories   *adapters.MemoryStoryStore
	storage   *fakeStorage
	encoder   *fakeEncoder
	lifecycle *lifecycleFixture
	assembler *videoAssembler
}

func newAssemblyFixture(t *testing.T, stories ...*domain.Story) *assemblyFixture {
	t.Helper()
	seoul, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)

	f := &assemblyFixture{
		workDir:   t.TempDir(),
		stories:   adapters.NewMemoryStoryStore(stories...),
		storage:   &fakeStorage{},
		encoder:   &fakeEncoder{},
		lifecycle: newLifecycleFixture(),
	}
	f.assembler = NewVideoAssembler(adapters.NewNopLogger(), f.stories, f.storage, f.encoder, f.lifecycle.service,
		workerpool.InlineDispatcher{}, &config.AssemblyConfig{WorkDir: f.workDir, Location: seoul}, 10*time.Minute).(*videoAssembler)
	f.assembler.now = func() time.Time { return renderTime }
	return f
}

func (f *assemblyFixture) leftovers(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(f.workDir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func completeStory() *domain.Story {
	story := twoSceneStory()
	for i := range story.Scenes {
		scene := &story.Scenes[i]
		scene.ImageURL = objectURL("images/" + scene.ID + ".png")
		for j := range scene.AudioUnits {
			scene.AudioUnits[j].AudioURL = objectURL("audio/" + scene.ID + "/" + scene.AudioUnits[j].ID + ".mp3")
		}
	}
	return story
}

func TestMergeAudioFiles_Empty(t *testing.T) {
	f := newAssemblyFixture(t)

	_, err := f.assembler.MergeAudioFiles(context.Background(), f.workDir, nil)
	assert.ErrorIs(t, err, domain.ErrEmptyInput)
	assert.Zero(t, f.encoder.callCount())
}

func TestMergeAudioFiles_ConcatenatesInOrder(t *testing.T) {
	f := newAssemblyFixture(t)
	urls := []string{objectURL("a.mp3"), objectURL("b.mp3"), objectURL("c.mp3")}

	out, err := f.assembler.MergeAudioFiles(context.Background(), f.workDir, urls)
	require.NoError(t, err)

	content, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, objectURL("a.mp3")+"?signed=600|"+objectURL("b.mp3")+"?signed=600|"+objectURL("c.mp3")+"?signed=600", string(content))
	assert.Equal(t, []string{"merged_audio.mp3"}, f.leftovers(t), "intermediate outputs replace the running file")
}

func TestMergeAudioFiles_SingleInputIsReencoded(t *testing.T) {
	f := newAssemblyFixture(t)

	out, err := f.assembler.MergeAudioFiles(context.Background(), f.workDir, []string{"/local/a.mp3"})
	require.NoError(t, err)

	content, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "/local/a.mp3", string(content), "non object storage inputs pass through unsigned")
	assert.Equal(t, []string{"encode"}, f.encoder.calls)
}

func TestMergeVideos_KeepsOrderAndDropsManifest(t *testing.T) {
	f := newAssemblyFixture(t)
	var clips []string
	for _, name := range []string{"first.mp4", "it's second.mp4"} {
		path := f.workDir + "/" + name
		require.NoError(t, os.WriteFile(path, []byte(name), 0o644))
		clips = append(clips, path)
	}

	out, err := f.assembler.MergeVideos(context.Background(), clips)
	require.NoError(t, err)

	content, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "first.mp4\nit's second.mp4", strings.ReplaceAll(string(content), `'\''`, "'"))
	for _, name := range f.leftovers(t) {
		assert.False(t, strings.HasPrefix(name, "concat-"), "manifest %s left behind", name)
	}

	_, err = f.assembler.MergeVideos(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrEmptyInput)
}

func TestCreateFinalVideo_IncompleteSceneAbortsWithoutUpload(t *testing.T) {
	story := completeStory()
	story.Scenes[1].ImageURL = ""
	f := newAssemblyFixture(t, story)

	_, err := f.assembler.CreateAndUploadVideo(context.Background(), "42")
	require.Error(t, err)

	var incomplete *domain.IncompleteSceneError
	require.True(t, errors.As(err, &incomplete))
	assert.Equal(t, "2", incomplete.SceneID)
	assert.Zero(t, f.encoder.callCount())
	assert.Empty(t, f.storage.uploaded())
	assert.Empty(t, f.leftovers(t))
}

func TestCreateAndUploadVideo_CleansUpWhenUploadFails(t *testing.T) {
	f := newAssemblyFixture(t, completeStory())
	f.storage.uploadErr = domain.IOErrorf(errBoom, "upload")

	_, err := f.assembler.CreateAndUploadVideo(context.Background(), "42")
	assert.ErrorIs(t, err, domain.ErrIO)
	assert.Empty(t, f.leftovers(t))
}

func TestCreateAndUploadVideo_EncoderFailureCleansUp(t *testing.T) {
	f := newAssemblyFixture(t, completeStory())
	f.encoder.fail = map[string]error{"compose": domain.IOErrorf(errBoom, "ffmpeg compose")}

	_, err := f.assembler.CreateAndUploadVideo(context.Background(), "42")
	assert.ErrorIs(t, err, domain.ErrIO)
	assert.Empty(t, f.storage.uploaded())
	assert.Empty(t, f.leftovers(t))
}

func TestRenderStory_MarksFailure(t *testing.T) {
	story := completeStory()
	story.Scenes[0].AudioUnits[0].AudioURL = ""
	f := newAssemblyFixture(t, story)

	_, err := f.assembler.RenderStory(context.Background(), "42").Wait()
	assert.ErrorIs(t, err, domain.ErrIncompleteScene)

	view, err := f.lifecycle.service.CurrentStatus(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, domain.VideoStatusFailed, view.Status)
	assert.Contains(t, view.ErrorMessage, "incomplete")
}

func TestRenderStory_ConcurrentCallsShareOneRun(t *testing.T) {
	f := newAssemblyFixture(t, completeStory())
	f.storage.started = make(chan struct{}, 2)
	f.storage.gate = make(chan struct{})
	ctx := context.Background()

	first := f.assembler.RenderStory(ctx, "42")
	select {
	case <-f.storage.started:
	case <-time.After(5 * time.Second):
		t.Fatal("render never reached the upload")
	}

	second := f.assembler.RenderStory(ctx, "42")
	close(f.storage.gate)

	firstURL, err := first.Wait()
	require.NoError(t, err)
	secondURL, err := second.Wait()
	require.NoError(t, err)

	assert.Equal(t, firstURL, secondURL)
	assert.Len(t, f.storage.uploaded(), 1)

	view, err := f.lifecycle.service.CurrentStatus(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, domain.VideoStatusCompleted, view.Status)
}

func TestRenderStory_CompletedVideoFailsImmediately(t *testing.T) {
	f := newAssemblyFixture(t, completeStory())
	ctx := context.Background()
	_, err := f.assembler.RenderStory(ctx, "42").Wait()
	require.NoError(t, err)

	again := f.assembler.RenderStory(ctx, "42")
	select {
	case <-again.Done():
	default:
		t.Fatal("a render of a completed video settles before returning")
	}
	_, err = again.Wait()
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Len(t, f.storage.uploaded(), 1)
}

func TestRenderStory_RejectsNonNumericID(t *testing.T) {
	f := newAssemblyFixture(t, completeStory())

	_, err := f.assembler.RenderStory(context.Background(), "story-42").Wait()
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.lifecycle.service.CurrentStatus(context.Background(), "story-42")
	assert.ErrorIs(t, err, domain.ErrNotFound, "no video record is created")
}

func TestVideoKey(t *testing.T) {
	key, err := VideoKey("42", time.Date(2025, 3, 1, 9, 30, 5, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "00000042/videos/00000042_20250301_093005.mp4", key)

	_, err = VideoKey("story-42", time.Now())
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestStoryToVideoEndToEnd(t *testing.T) {
	story := twoSceneStory()
	p := newPipelineFixture(workerpool.InlineDispatcher{}, story)
	p.synth.On("Synthesize", mock.Anything, forScene("1")).Return(synthesized("1", "1"), nil)
	p.synth.On("Synthesize", mock.Anything, forScene("2")).Return(synthesized("2", "1"), nil)
	p.images.On("Generate", mock.Anything, forImageScene("1")).Return(generatedImage("1"), nil)
	p.images.On("Generate", mock.Anything, forImageScene("2")).Return(generatedImage("2"), nil)

	ctx := context.Background()
	_, err := p.lifecycle.service.StartProcessing(ctx, "42")
	require.NoError(t, err)

	report, err := p.pipeline.ProcessAllScenes(ctx, "42").Wait()
	require.NoError(t, err)
	assert.Empty(t, report.FailedScenes())

	generated, err := p.stories.GetStory(ctx, "42")
	require.NoError(t, err)
	for _, scene := range generated.Scenes {
		require.NoError(t, scene.Validate())
	}

	f := newAssemblyFixture(t, generated)
	f.lifecycle = p.lifecycle
	f.assembler.lifecycle = p.lifecycle.service

	url, err := f.assembler.RenderStory(ctx, "42").Wait()
	require.NoError(t, err)

	uploads := f.storage.uploaded()
	require.Len(t, uploads, 1)
	assert.Equal(t, "00000042/videos/00000042_20250301_093000.mp4", uploads[0].key)
	assert.Equal(t, objectURL(uploads[0].key), url)
	assert.Contains(t, uploads[0].content, generatedImage("1").ImageURL)
	assert.Less(t, strings.Index(uploads[0].content, "images/1.png"), strings.Index(uploads[0].content, "images/2.png"))
	assert.Empty(t, f.leftovers(t))

	view, err := p.lifecycle.service.CurrentStatus(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, domain.VideoStatusCompleted, view.Status)
	assert.Equal(t, url, view.VideoURL)
	assert.Equal(t, domain.StepNone, view.ProcessingStep)

	assert.Equal(t, []domain.ProcessingStep{
		domain.StepVoiceGenerating,
		domain.StepImageGenerating,
		domain.StepVoiceCompleted,
		domain.StepImageCompleted,
		domain.StepVideoRendering,
		domain.StepVideoRenderCompleted,
		domain.StepVideoUploading,
	}, p.lifecycle.publisher.steps())
}
