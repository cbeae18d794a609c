package inbound

import (
	"context"
	"story-video-pipeline/channel_utils"
	"story-video-pipeline/domain"
)

type MediaPipelinePort interface {
	// StartStory validates the story, moves its video to PROCESSING and runs ProcessAllScenes.
	StartStory(ctx context.Context, storyID string) (*channel_utils.Future[domain.MediaReport], error)
	// ProcessAllScenes resolves once every scene has settled, whatever the per-scene outcome.
	ProcessAllScenes(ctx context.Context, storyID string) *channel_utils.Future[domain.MediaReport]
	ProcessSceneMedia(ctx context.Context, storyID string, sceneID string) *channel_utils.Future[domain.SceneOutcome]
}
