package outbound

import (
	"context"
	"story-video-pipeline/domain"
)

// StoryStorePort reads stories and applies partial updates scoped to a single
// scene or a single audio unit.
type StoryStorePort interface {
	GetStory(ctx context.Context, storyID string) (*domain.Story, error)
	ListScenes(ctx context.Context, storyID string) ([]domain.Scene, error)
	UpdateSceneImage(ctx context.Context, storyID string, sceneID string, image domain.ImageResult) error
	UpdateAudioUnit(ctx context.Context, storyID string, sceneID string, audioID string, synthesis domain.AudioSynthesis) error
}
