package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"story-video-pipeline/application/ports/outbound"
	"story-video-pipeline/config"
	"story-video-pipeline/domain"
)

const imageService = "image-generation"

type ImageRequest struct {
	SceneId       string              `json:"scene_id"`
	StoryMetadata ImageStoryMetadata  `json:"story_metadata"`
	Audios        []ImageRequestAudio `json:"audios"`
}

type ImageStoryMetadata struct {
	StoryId    string                  `json:"story_id"`
	Title      string                  `json:"title"`
	Characters []ImageRequestCharacter `json:"characters"`
}

type ImageRequestCharacter struct {
	Name        string `json:"name"`
	Gender      *int   `json:"gender,omitempty"`
	Description string `json:"description"`
}

type ImageRequestAudio struct {
	Type      string `json:"type"`
	Character string `json:"character,omitempty"`
	Text      string `json:"text"`
	Emotion   string `json:"emotion,omitempty"`
}

type ImageResponse struct {
	SceneId     string `json:"scene_id"`
	ImageUrl    string `json:"image_url"`
	ImagePrompt string `json:"image_prompt"`
}

type imageGenerator struct {
	ContentFetcher
	imageConfig *config.ImageServiceConfig
	logger      outbound.LoggerPort
}

func NewImageGenerator(contentFetcher ContentFetcher, imageConfig *config.ImageServiceConfig, logger outbound.LoggerPort) outbound.ImageGeneratorPort {
	return &imageGenerator{
		ContentFetcher: contentFetcher,
		imageConfig:    imageConfig,
		logger:         logger,
	}
}

func (i *imageGenerator) Generate(ctx context.Context, params outbound.GenerateImageRequest) (*domain.ImageResult, error) {
	req, err := i.getRequest(ctx, params)
	if err != nil {
		i.logger.ErrorWithFields(err, "Failed to construct the HTTP request for image generation", map[string]interface{}{
			"story_id": params.StoryID,
			"scene_id": params.SceneID,
		})
		return nil, err
	}

	payload, err := i.FetchContent(imageService, req)
	if err != nil {
		return nil, err
	}

	var res ImageResponse
	if err := json.Unmarshal(payload, &res); err != nil {
		return nil, &domain.ExternalServiceError{Service: imageService, StatusCode: http.StatusOK, Body: "malformed response: " + err.Error()}
	}
	if res.ImageUrl == "" {
		return nil, &domain.ExternalServiceError{Service: imageService, StatusCode: http.StatusOK, Body: "response has no image url"}
	}

	sceneID := res.SceneId
	if sceneID == "" {
		sceneID = params.SceneID
	}

	return &domain.ImageResult{
		SceneID:  sceneID,
		ImageURL: res.ImageUrl,
		Prompt:   res.ImagePrompt,
	}, nil
}

func (i *imageGenerator) getRequest(ctx context.Context, params outbound.GenerateImageRequest) (*http.Request, error) {
	characters := make([]ImageRequestCharacter, 0, len(params.Characters))
	for _, c := range params.Characters {
		characters = append(characters, ImageRequestCharacter{
			Name:        c.Name,
			Gender:      c.GenderCode,
			Description: c.Description,
		})
	}

	audios := make([]ImageRequestAudio, 0, len(params.Audios))
	for _, a := range params.Audios {
		audios = append(audios, ImageRequestAudio{
			Type:      string(a.Type),
			Character: a.Character,
			Text:      a.Text,
			Emotion:   a.Emotion,
		})
	}

	reqBody := ImageRequest{
		SceneId: params.SceneID,
		StoryMetadata: ImageStoryMetadata{
			StoryId:    params.StoryID,
			Title:      params.StoryTitle,
			Characters: characters,
		},
		Audios: audios,
	}

	jsonPayload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.imageConfig.ApiUrl, bytes.NewBuffer(jsonPayload))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-KEY", i.imageConfig.ApiKey)

	return req, nil
}
