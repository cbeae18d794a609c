package outbound

import (
	"context"
	"story-video-pipeline/domain"
)

// StatusStorePort keeps short-lived, story-keyed progress records. Every write
// refreshes the record's retention window.
type StatusStorePort interface {
	SetVideoStatus(ctx context.Context, storyID string, status domain.VideoStatus) error
	// GetVideoStatus reports false when no unexpired status exists.
	GetVideoStatus(ctx context.Context, storyID string) (domain.VideoStatus, bool, error)
	SetProcessingStep(ctx context.Context, storyID string, step domain.ProcessingStep) error
	// GetProcessingStep returns domain.StepNone when absent or expired.
	GetProcessingStep(ctx context.Context, storyID string) (domain.ProcessingStep, error)
	DeleteProcessingStep(ctx context.Context, storyID string) error
}
