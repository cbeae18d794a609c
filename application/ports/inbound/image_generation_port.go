package inbound

import (
	"context"
	"story-video-pipeline/channel_utils"
	"story-video-pipeline/domain"
)

type ImageGenerationPort interface {
	GenerateImageForScene(ctx context.Context, storyID string, sceneID string) *channel_utils.Future[domain.ImageResult]
}
