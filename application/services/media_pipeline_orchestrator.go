package services

import (
	"context"
	"story-video-pipeline/application/ports/inbound"
	"story-video-pipeline/application/ports/outbound"
	"story-video-pipeline/channel_utils"
	"story-video-pipeline/domain"
)

type mediaPipelineOrchestrator struct {
	logger         outbound.LoggerPort
	stories        outbound.StoryStorePort
	audioGenerator inbound.AudioGenerationPort
	imageGenerator inbound.ImageGenerationPort
	lifecycle      inbound.VideoLifecyclePort
	mediaPool      outbound.TaskDispatcher
	audioPool      outbound.TaskDispatcher
}

func NewMediaPipelineOrchestrator(logger outbound.LoggerPort, stories outbound.StoryStorePort,
	audioGenerator inbound.AudioGenerationPort, imageGenerator inbound.ImageGenerationPort, lifecycle inbound.VideoLifecyclePort,
	mediaPool outbound.TaskDispatcher, audioPool outbound.TaskDispatcher) inbound.MediaPipelinePort {
	return &mediaPipelineOrchestrator{
		logger:         logger,
		stories:        stories,
		audioGenerator: audioGenerator,
		imageGenerator: imageGenerator,
		lifecycle:      lifecycle,
		mediaPool:      mediaPool,
		audioPool:      audioPool,
	}
}

// StartStory moves the story's video to PROCESSING and starts media generation
// for all of its scenes. A story that cannot be read is rejected before any
// video record is touched. If the run cannot start the video is marked FAILED.
func (o *mediaPipelineOrchestrator) StartStory(ctx context.Context, storyID string) (*channel_utils.Future[domain.MediaReport], error) {
	if _, err := o.stories.GetStory(ctx, storyID); err != nil {
		return nil, err
	}
	if _, err := o.lifecycle.StartProcessing(ctx, storyID); err != nil {
		return nil, err
	}

	background := context.WithoutCancel(ctx)
	return channel_utils.Then(o.ProcessAllScenes(background, storyID), func(report domain.MediaReport, err error) (domain.MediaReport, error) {
		if err != nil {
			if _, markErr := o.lifecycle.MarkFailed(background, storyID, err.Error()); markErr != nil {
				o.logger.ErrorWithFields(markErr, "Failed to mark video as failed", map[string]interface{}{
					"story_id": storyID,
				})
			}
		}
		return report, err
	}), nil
}

// ProcessAllScenes fans the story out into one media job per scene. The
// returned future settles once every scene job has settled; it fails only
// when the story itself cannot be loaded or the job cannot be queued.
func (o *mediaPipelineOrchestrator) ProcessAllScenes(ctx context.Context, storyID string) *channel_utils.Future[domain.MediaReport] {
	ctx = context.WithoutCancel(ctx)

	scheduled := channel_utils.Submit(o.mediaPool, func() ([]*channel_utils.Future[domain.SceneOutcome], error) {
		story, err := o.stories.GetStory(ctx, storyID)
		if err != nil {
			return nil, err
		}

		o.recordStep(ctx, storyID, domain.StepVoiceGenerating)
		o.recordStep(ctx, storyID, domain.StepImageGenerating)

		futures := make([]*channel_utils.Future[domain.SceneOutcome], 0, len(story.Scenes))
		for _, sceneID := range story.SceneIDs() {
			futures = append(futures, o.ProcessSceneMedia(ctx, storyID, sceneID))
		}

		o.logger.InfoWithFields("Scene media jobs submitted", map[string]interface{}{
			"story_id": storyID,
			"scenes":   len(futures),
		})
		return futures, nil
	})

	return channel_utils.Then(scheduled, func(futures []*channel_utils.Future[domain.SceneOutcome], err error) (domain.MediaReport, error) {
		report := domain.MediaReport{StoryID: storyID}
		if err != nil {
			o.logger.ErrorWithFields(err, "Failed to start story media processing", map[string]interface{}{
				"story_id": storyID,
			})
			return report, err
		}

		for _, settled := range channel_utils.SettleAll(futures...) {
			outcome := settled.Value
			if settled.Err != nil {
				outcome.Err = settled.Err
			}
			report.Scenes = append(report.Scenes, outcome)
		}

		o.recordStep(ctx, storyID, domain.StepVoiceCompleted)
		o.recordStep(ctx, storyID, domain.StepImageCompleted)
		o.logReport(report)
		return report, nil
	})
}

// ProcessSceneMedia runs the audio and image stages of one scene side by side
// and joins both. Stage failures end up in the outcome, never in the future.
func (o *mediaPipelineOrchestrator) ProcessSceneMedia(ctx context.Context, storyID string, sceneID string) *channel_utils.Future[domain.SceneOutcome] {
	ctx = context.WithoutCancel(ctx)

	scene := channel_utils.Submit(o.mediaPool, func() (domain.SceneOutcome, error) {
		return o.processScene(ctx, storyID, sceneID), nil
	})

	return channel_utils.Then(scene, func(outcome domain.SceneOutcome, err error) (domain.SceneOutcome, error) {
		if err != nil {
			o.logger.ErrorWithFields(err, "Scene media job did not run", map[string]interface{}{
				"story_id": storyID,
				"scene_id": sceneID,
			})
			return domain.SceneOutcome{SceneID: sceneID, Err: err}, nil
		}
		return outcome, nil
	})
}

func (o *mediaPipelineOrchestrator) processScene(ctx context.Context, storyID string, sceneID string) domain.SceneOutcome {
	outcome := domain.SceneOutcome{SceneID: sceneID}

	story, err := o.stories.GetStory(ctx, storyID)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	scene, _, err := story.FindScene(sceneID)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	var (
		audioFuture *channel_utils.Future[domain.AudioStageResult]
		imageFuture *channel_utils.Future[domain.ImageResult]
	)

	if scene.AudioComplete() {
		outcome.AudioSkipped = true
	} else {
		audioFuture = channel_utils.Submit(o.audioPool, func() (domain.AudioStageResult, error) {
			return o.audioGenerator.GenerateSceneAudio(ctx, storyID, sceneID)
		})
	}

	if scene.HasImage() {
		outcome.ImageSkipped = true
		outcome.Image = domain.ImageResult{SceneID: sceneID, ImageURL: scene.ImageURL, Prompt: scene.ImagePrompt}
	} else {
		imageFuture = o.imageGenerator.GenerateImageForScene(ctx, storyID, sceneID)
	}

	if audioFuture != nil {
		outcome.Audio, outcome.AudioErr = audioFuture.Wait()
		if outcome.AudioErr != nil {
			o.logger.ErrorWithFields(outcome.AudioErr, "Audio stage failed", map[string]interface{}{
				"story_id": storyID,
				"scene_id": sceneID,
			})
		}
	}
	if imageFuture != nil {
		outcome.Image, outcome.ImageErr = imageFuture.Wait()
		if outcome.ImageErr != nil {
			o.logger.ErrorWithFields(outcome.ImageErr, "Image stage failed", map[string]interface{}{
				"story_id": storyID,
				"scene_id": sceneID,
			})
		}
	}

	return outcome
}

func (o *mediaPipelineOrchestrator) recordStep(ctx context.Context, storyID string, step domain.ProcessingStep) {
	// Progress display only; a failed write is logged by the lifecycle service.
	_ = o.lifecycle.UpdateProcessingStep(ctx, storyID, step)
}

func (o *mediaPipelineOrchestrator) logReport(report domain.MediaReport) {
	failed := report.FailedScenes()
	fields := map[string]interface{}{
		"story_id":      report.StoryID,
		"scenes":        len(report.Scenes),
		"failed_scenes": len(failed),
	}
	if len(failed) == 0 {
		o.logger.InfoWithFields("All scenes settled", fields)
		return
	}
	fields["failed_scene_ids"] = failed
	o.logger.WarnWithFields("All scenes settled with failures", fields)
}
