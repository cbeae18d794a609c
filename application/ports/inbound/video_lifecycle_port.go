package inbound

import (
	"context"
	"story-video-pipeline/domain"
)

type VideoLifecyclePort interface {
	InitVideo(ctx context.Context, storyID string) (*domain.Video, error)
	MarkProcessing(ctx context.Context, storyID string) (*domain.Video, error)
	// StartProcessing creates the video when the story has none yet and moves it to PROCESSING.
	StartProcessing(ctx context.Context, storyID string) (*domain.Video, error)
	MarkCompleted(ctx context.Context, storyID string, videoURL string) (*domain.Video, error)
	MarkFailed(ctx context.Context, storyID string, message string) (*domain.Video, error)
	UpdateProcessingStep(ctx context.Context, storyID string, step domain.ProcessingStep) error
	GetProcessingStep(ctx context.Context, storyID string) domain.ProcessingStep
	DeleteProcessingStep(ctx context.Context, storyID string) error
	CurrentStatus(ctx context.Context, storyID string) (domain.StatusView, error)
}
