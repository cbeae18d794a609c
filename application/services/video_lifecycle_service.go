package services

import (
	"context"
	"errors"
	"story-video-pipeline/application/ports/inbound"
	"story-video-pipeline/application/ports/outbound"
	"story-video-pipeline/domain"
	"time"
)

type videoLifecycleService struct {
	logger        outbound.LoggerPort
	videos        outbound.VideoRepositoryPort
	statusStore   outbound.StatusStorePort
	stepPublisher outbound.StepEventPublisherPort
	now           func() time.Time
}

// NewVideoLifecycleService owns the Video state machine. The repository holds
// the durable record; the status store mirrors the coarse status and keeps the
// short-lived processing step.
func NewVideoLifecycleService(logger outbound.LoggerPort, videos outbound.VideoRepositoryPort,
	statusStore outbound.StatusStorePort, stepPublisher outbound.StepEventPublisherPort) inbound.VideoLifecyclePort {
	return &videoLifecycleService{
		logger:        logger,
		videos:        videos,
		statusStore:   statusStore,
		stepPublisher: stepPublisher,
		now:           time.Now,
	}
}

func (s *videoLifecycleService) InitVideo(ctx context.Context, storyID string) (*domain.Video, error) {
	video := domain.NewPendingVideo(storyID, s.now().UTC())
	if err := s.videos.Create(ctx, video); err != nil {
		return nil, err
	}
	s.mirrorStatus(ctx, storyID, video.Status)

	s.logger.InfoWithFields("Video created", map[string]interface{}{
		"story_id": storyID,
	})
	return video, nil
}

func (s *videoLifecycleService) StartProcessing(ctx context.Context, storyID string) (*domain.Video, error) {
	_, err := s.InitVideo(ctx, storyID)
	if err != nil && !errors.Is(err, domain.ErrConflict) {
		return nil, err
	}
	return s.MarkProcessing(ctx, storyID)
}

func (s *videoLifecycleService) MarkProcessing(ctx context.Context, storyID string) (*domain.Video, error) {
	return s.transition(ctx, storyID, domain.VideoStatusProcessing, func(*domain.Video) {})
}

func (s *videoLifecycleService) MarkCompleted(ctx context.Context, storyID string, videoURL string) (*domain.Video, error) {
	return s.transition(ctx, storyID, domain.VideoStatusCompleted, func(v *domain.Video) {
		v.VideoURL = videoURL
		v.ErrorMessage = ""
	})
}

func (s *videoLifecycleService) MarkFailed(ctx context.Context, storyID string, message string) (*domain.Video, error) {
	return s.transition(ctx, storyID, domain.VideoStatusFailed, func(v *domain.Video) {
		v.ErrorMessage = message
	})
}

func (s *videoLifecycleService) transition(ctx context.Context, storyID string, to domain.VideoStatus, apply func(*domain.Video)) (*domain.Video, error) {
	video, err := s.videos.GetByStoryID(ctx, storyID)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateTransition(video.Status, to); err != nil {
		return nil, err
	}
	if video.Status == to {
		return video, nil
	}

	from := video.Status
	apply(video)
	video.Status = to
	if to.Terminal() {
		completedAt := s.now().UTC()
		video.CompletedAt = &completedAt
	}

	if err := s.videos.Update(ctx, video); err != nil {
		return nil, err
	}
	s.mirrorStatus(ctx, storyID, to)
	if to.Terminal() {
		if err := s.DeleteProcessingStep(ctx, storyID); err != nil {
			s.logger.ErrorWithFields(err, "Failed to delete processing step", map[string]interface{}{
				"story_id": storyID,
			})
		}
	}

	s.logger.InfoWithFields("Video status changed", map[string]interface{}{
		"story_id": storyID,
		"from":     from,
		"to":       to,
	})
	return video, nil
}

func (s *videoLifecycleService) mirrorStatus(ctx context.Context, storyID string, status domain.VideoStatus) {
	if err := s.statusStore.SetVideoStatus(ctx, storyID, status); err != nil {
		s.logger.ErrorWithFields(err, "Failed to mirror video status", map[string]interface{}{
			"story_id": storyID,
			"status":   status,
		})
	}
}

func (s *videoLifecycleService) UpdateProcessingStep(ctx context.Context, storyID string, step domain.ProcessingStep) error {
	previous := s.GetProcessingStep(ctx, storyID)
	if err := s.statusStore.SetProcessingStep(ctx, storyID, step); err != nil {
		s.logger.ErrorWithFields(err, "Failed to update processing step", map[string]interface{}{
			"story_id": storyID,
			"step":     step,
		})
		return err
	}

	s.logger.DebugWithFields("Processing step updated", map[string]interface{}{
		"story_id": storyID,
		"step":     step,
	})

	if previous == step {
		return nil
	}
	err := s.stepPublisher.PublishStepChanged(ctx, domain.StepChangedEvent{
		StoryID:      storyID,
		PreviousStep: previous,
		Step:         step,
		ChangedAt:    s.now().UTC(),
	})
	if err != nil {
		s.logger.WarnWithFields("Failed to publish step change", map[string]interface{}{
			"story_id": storyID,
			"step":     step,
			"error":    err.Error(),
		})
	}
	return nil
}

func (s *videoLifecycleService) GetProcessingStep(ctx context.Context, storyID string) domain.ProcessingStep {
	step, err := s.statusStore.GetProcessingStep(ctx, storyID)
	if err != nil {
		s.logger.ErrorWithFields(err, "Failed to read processing step", map[string]interface{}{
			"story_id": storyID,
		})
		return domain.StepNone
	}
	return step
}

func (s *videoLifecycleService) DeleteProcessingStep(ctx context.Context, storyID string) error {
	return s.statusStore.DeleteProcessingStep(ctx, storyID)
}

func (s *videoLifecycleService) CurrentStatus(ctx context.Context, storyID string) (domain.StatusView, error) {
	var video *domain.Video

	status, ok, err := s.statusStore.GetVideoStatus(ctx, storyID)
	if err != nil {
		s.logger.WarnWithFields("Status store unavailable, reading video record", map[string]interface{}{
			"story_id": storyID,
			"error":    err.Error(),
		})
	}
	if !ok || status.Terminal() {
		video, err = s.videos.GetByStoryID(ctx, storyID)
		if err != nil {
			return domain.StatusView{}, err
		}
		if !ok {
			s.mirrorStatus(ctx, storyID, video.Status)
		}
		status = video.Status
	}

	view := domain.StatusView{
		StoryID: storyID,
		Status:  status,
	}
	if status == domain.VideoStatusProcessing {
		view.ProcessingStep = s.GetProcessingStep(ctx, storyID)
		view.ProcessingStepDescription = view.ProcessingStep.Description()
	}
	if video != nil {
		createdAt := video.CreatedAt
		view.CreatedAt = &createdAt
		view.CompletedAt = video.CompletedAt
		view.VideoURL = video.VideoURL
		view.ErrorMessage = video.ErrorMessage
	}
	return view, nil
}
