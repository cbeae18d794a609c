package outbound

import (
	"context"
	"story-video-pipeline/domain"
)

type VideoRepositoryPort interface {
	// Create fails with domain.ErrConflict when the story already has a video.
	Create(ctx context.Context, video *domain.Video) error
	GetByStoryID(ctx context.Context, storyID string) (*domain.Video, error)
	Update(ctx context.Context, video *domain.Video) error
}
