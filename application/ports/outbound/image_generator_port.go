package outbound

import (
	"context"
	"story-video-pipeline/domain"
)

type ImageCharacter struct {
	Name        string
	GenderCode  *int
	Description string
}

type ImageAudioContext struct {
	Type      domain.AudioType
	Character string
	Text      string
	Emotion   string
}

// GenerateImageRequest only carries textual context, never generated asset URLs.
type GenerateImageRequest struct {
	StoryID    string
	StoryTitle string
	SceneID    string
	Characters []ImageCharacter
	Audios     []ImageAudioContext
}

type ImageGeneratorPort interface {
	Generate(ctx context.Context, req GenerateImageRequest) (*domain.ImageResult, error)
}
