package inbound

import (
	"context"
	"story-video-pipeline/domain"
)

type AudioGenerationPort interface {
	GenerateSceneAudio(ctx context.Context, storyID string, sceneID string) (domain.AudioStageResult, error)
}
