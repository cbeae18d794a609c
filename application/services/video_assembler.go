package services

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"story-video-pipeline/application/ports/inbound"
	"story-video-pipeline/application/ports/outbound"
	"story-video-pipeline/channel_utils"
	"story-video-pipeline/config"
	"story-video-pipeline/domain"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

const videoKeyTimeLayout = "20060102_150405"

type videoAssembler struct {
	logger     outbound.LoggerPort
	stories    outbound.StoryStorePort
	storage    outbound.ObjectStoragePort
	encoder    outbound.MediaEncoderPort
	lifecycle  inbound.VideoLifecyclePort
	mediaPool  outbound.TaskDispatcher
	workDir    string
	location   *time.Location
	presignTTL time.Duration
	now        func() time.Time
	renders    singleflight.Group
}

func NewVideoAssembler(logger outbound.LoggerPort, stories outbound.StoryStorePort, storage outbound.ObjectStoragePort,
	encoder outbound.MediaEncoderPort, lifecycle inbound.VideoLifecyclePort, mediaPool outbound.TaskDispatcher,
	assemblyConfig *config.AssemblyConfig, presignTTL time.Duration) inbound.VideoAssemblyPort {
	return &videoAssembler{
		logger:     logger,
		stories:    stories,
		storage:    storage,
		encoder:    encoder,
		lifecycle:  lifecycle,
		mediaPool:  mediaPool,
		workDir:    assemblyConfig.WorkDir,
		location:   assemblyConfig.Location,
		presignTTL: presignTTL,
		now:        time.Now,
	}
}

// MergeAudioFiles concatenates the audio assets in order into workDir. The
// running output is replaced after every step, never appended in place.
func (a *videoAssembler) MergeAudioFiles(ctx context.Context, workDir string, urls []string) (string, error) {
	if len(urls) == 0 {
		return "", fmt.Errorf("%w: no audio files to merge", domain.ErrEmptyInput)
	}

	inputs, err := a.resolveInputs(urls)
	if err != nil {
		return "", err
	}

	output := filepath.Join(workDir, "merged_audio.mp3")
	if err := a.encoder.EncodeAudio(ctx, inputs[0], output); err != nil {
		return "", err
	}

	for i, input := range inputs[1:] {
		next := filepath.Join(workDir, fmt.Sprintf("merged_audio_%d.mp3", i+1))
		if err := a.encoder.ConcatAudio(ctx, output, input, next); err != nil {
			_ = os.Remove(next)
			return "", err
		}
		if err := os.Rename(next, output); err != nil {
			return "", domain.IOErrorf(err, "replace merged audio")
		}
	}

	return output, nil
}

func (a *videoAssembler) CreateVideoFromImageAndAudio(ctx context.Context, workDir string, imageURL string, mergedAudioPath string) (string, error) {
	inputs, err := a.resolveInputs([]string{imageURL})
	if err != nil {
		return "", err
	}

	output := filepath.Join(workDir, "scene.mp4")
	if err := a.encoder.ComposeSceneClip(ctx, inputs[0], mergedAudioPath, output); err != nil {
		return "", err
	}
	return output, nil
}

// MergeVideos stream-copies the clips, in the given order, into one file
// under the work directory.
func (a *videoAssembler) MergeVideos(ctx context.Context, clipPaths []string) (string, error) {
	if len(clipPaths) == 0 {
		return "", fmt.Errorf("%w: no clips to merge", domain.ErrEmptyInput)
	}

	manifest, err := a.writeManifest(clipPaths)
	if err != nil {
		return "", err
	}
	defer os.Remove(manifest)

	out, err := os.CreateTemp(a.workDir, "final-*.mp4")
	if err != nil {
		return "", domain.IOErrorf(err, "create final video file")
	}
	output := out.Name()
	_ = out.Close()

	if err := a.encoder.ConcatClips(ctx, manifest, output); err != nil {
		_ = os.Remove(output)
		return "", err
	}
	return output, nil
}

func (a *videoAssembler) writeManifest(clipPaths []string) (string, error) {
	file, err := os.CreateTemp(a.workDir, "concat-*.txt")
	if err != nil {
		return "", domain.IOErrorf(err, "create concat manifest")
	}

	w := bufio.NewWriter(file)
	for _, clip := range clipPaths {
		abs, err := filepath.Abs(clip)
		if err != nil {
			abs = clip
		}
		fmt.Fprintf(w, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}

	if err := w.Flush(); err != nil {
		_ = file.Close()
		_ = os.Remove(file.Name())
		return "", domain.IOErrorf(err, "write concat manifest")
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(file.Name())
		return "", domain.IOErrorf(err, "close concat manifest")
	}
	return file.Name(), nil
}

// CreateFinalVideo renders the story into a local file. Every scene must be
// complete before any encoding starts. Scene work directories are removed on
// return; the caller owns the returned file.
func (a *videoAssembler) CreateFinalVideo(ctx context.Context, storyID string) (string, error) {
	story, err := a.stories.GetStory(ctx, storyID)
	if err != nil {
		return "", err
	}
	if len(story.Scenes) == 0 {
		return "", fmt.Errorf("%w: story %s has no scenes", domain.ErrEmptyInput, storyID)
	}
	for _, scene := range story.Scenes {
		if err := scene.Validate(); err != nil {
			return "", err
		}
	}

	root, err := os.MkdirTemp(a.workDir, "story-*")
	if err != nil {
		return "", domain.IOErrorf(err, "create story work directory")
	}
	defer func() {
		if err := os.RemoveAll(root); err != nil {
			a.logger.WarnWithFields("Failed to remove story work directory", map[string]interface{}{
				"story_id": storyID,
				"dir":      root,
				"error":    err.Error(),
			})
		}
	}()

	clips := make([]string, 0, len(story.Scenes))
	for i, scene := range story.Scenes {
		sceneDir := filepath.Join(root, fmt.Sprintf("scene-%03d", i))
		if err := os.MkdirAll(sceneDir, 0o755); err != nil {
			return "", domain.IOErrorf(err, "create scene work directory")
		}

		audio, err := a.MergeAudioFiles(ctx, sceneDir, scene.AudioURLs())
		if err != nil {
			return "", fmt.Errorf("scene %s: %w", scene.ID, err)
		}
		clip, err := a.CreateVideoFromImageAndAudio(ctx, sceneDir, scene.ImageURL, audio)
		if err != nil {
			return "", fmt.Errorf("scene %s: %w", scene.ID, err)
		}
		clips = append(clips, clip)

		a.logger.DebugWithFields("Scene clip rendered", map[string]interface{}{
			"story_id": storyID,
			"scene_id": scene.ID,
		})
	}

	return a.MergeVideos(ctx, clips)
}

// CreateAndUploadVideo renders and uploads the story video and returns its URL.
// The local file is removed whether or not the upload succeeds.
func (a *videoAssembler) CreateAndUploadVideo(ctx context.Context, storyID string) (string, error) {
	key, err := VideoKey(storyID, a.now().In(a.location))
	if err != nil {
		return "", err
	}

	a.recordStep(ctx, storyID, domain.StepVideoRendering)
	path, err := a.CreateFinalVideo(ctx, storyID)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			a.logger.WarnWithFields("Failed to remove final video", map[string]interface{}{
				"story_id": storyID,
				"path":     path,
				"error":    err.Error(),
			})
		}
	}()
	a.recordStep(ctx, storyID, domain.StepVideoRenderCompleted)

	a.recordStep(ctx, storyID, domain.StepVideoUploading)
	url, err := a.storage.Upload(ctx, path, key)
	if err != nil {
		return "", err
	}

	a.logger.InfoWithFields("Video uploaded", map[string]interface{}{
		"story_id": storyID,
		"key":      key,
	})
	return url, nil
}

// RenderStory moves the video to PROCESSING on the caller, so a video that
// cannot be rendered again fails the returned future right away. Concurrent
// calls for the same story share one render run.
func (a *videoAssembler) RenderStory(ctx context.Context, storyID string) *channel_utils.Future[string] {
	if _, err := VideoKey(storyID, a.now()); err != nil {
		return channel_utils.Failed[string](err)
	}
	ctx = context.WithoutCancel(ctx)

	if _, err := a.lifecycle.StartProcessing(ctx, storyID); err != nil {
		a.logger.ErrorWithFields(err, "Failed to start video render", map[string]interface{}{
			"story_id": storyID,
		})
		return channel_utils.Failed[string](err)
	}

	results := a.renders.DoChan(storyID, func() (interface{}, error) {
		return a.render(ctx, storyID)
	})
	return channel_utils.Go(func() (string, error) {
		res := <-results
		if res.Shared {
			a.logger.DebugWithFields("Joined in-flight video render", map[string]interface{}{
				"story_id": storyID,
			})
		}
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	})
}

// render runs the encoding on the media pool and drives the video to a
// terminal status, including when the pool rejects the job.
func (a *videoAssembler) render(ctx context.Context, storyID string) (string, error) {
	url, err := channel_utils.Submit(a.mediaPool, func() (string, error) {
		return a.CreateAndUploadVideo(ctx, storyID)
	}).Wait()
	if err != nil {
		a.logger.ErrorWithFields(err, "Video render failed", map[string]interface{}{
			"story_id": storyID,
		})
		if _, markErr := a.lifecycle.MarkFailed(ctx, storyID, err.Error()); markErr != nil {
			a.logger.ErrorWithFields(markErr, "Failed to mark video as failed", map[string]interface{}{
				"story_id": storyID,
			})
		}
		return "", err
	}

	if _, err := a.lifecycle.MarkCompleted(ctx, storyID, url); err != nil {
		a.logger.ErrorWithFields(err, "Failed to mark video as completed", map[string]interface{}{
			"story_id": storyID,
		})
		return url, err
	}
	return url, nil
}

func (a *videoAssembler) resolveInputs(urls []string) ([]string, error) {
	inputs := make([]string, 0, len(urls))
	for _, raw := range urls {
		input, err := a.resolveInput(raw)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, input)
	}
	return inputs, nil
}

// resolveInput swaps a stored object URL for a short-lived presigned one.
// Anything that is not an object storage URL is handed to the encoder as is.
func (a *videoAssembler) resolveInput(raw string) (string, error) {
	key, err := a.storage.KeyFromURL(raw)
	if err != nil {
		return raw, nil
	}
	signed, err := a.storage.PresignGet(key, a.presignTTL)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return signed, nil
}

func (a *videoAssembler) recordStep(ctx context.Context, storyID string, step domain.ProcessingStep) {
	_ = a.lifecycle.UpdateProcessingStep(ctx, storyID, step)
}

// VideoKey builds the object key for a rendered video: the numeric story id
// padded to eight digits, then the render time.
func VideoKey(storyID string, at time.Time) (string, error) {
	id, err := strconv.ParseUint(storyID, 10, 64)
	if err != nil {
		return "", domain.Validationf("story id %q is not numeric", storyID)
	}
	padded := fmt.Sprintf("%08d", id)
	return fmt.Sprintf("%s/videos/%s_%s.mp4", padded, padded, at.Format(videoKeyTimeLayout)), nil
}
