package services

import (
	"context"
	"story-video-pipeline/application/ports/inbound"
	"story-video-pipeline/application/ports/outbound"
	"story-video-pipeline/channel_utils"
	"story-video-pipeline/domain"
)

type sceneImageGenerator struct {
	logger    outbound.LoggerPort
	stories   outbound.StoryStorePort
	generator outbound.ImageGeneratorPort
	imagePool outbound.TaskDispatcher
}

func NewSceneImageGenerator(logger outbound.LoggerPort, stories outbound.StoryStorePort,
	generator outbound.ImageGeneratorPort, imagePool outbound.TaskDispatcher) inbound.ImageGenerationPort {
	return &sceneImageGenerator{
		logger:    logger,
		stories:   stories,
		generator: generator,
		imagePool: imagePool,
	}
}

func (g *sceneImageGenerator) GenerateImageForScene(ctx context.Context, storyID string, sceneID string) *channel_utils.Future[domain.ImageResult] {
	return channel_utils.Submit(g.imagePool, func() (domain.ImageResult, error) {
		return g.generate(ctx, storyID, sceneID)
	})
}

func (g *sceneImageGenerator) generate(ctx context.Context, storyID string, sceneID string) (domain.ImageResult, error) {
	story, err := g.stories.GetStory(ctx, storyID)
	if err != nil {
		return domain.ImageResult{}, err
	}
	scene, _, err := story.FindScene(sceneID)
	if err != nil {
		return domain.ImageResult{}, err
	}

	result, err := g.generator.Generate(ctx, buildImageRequest(story, scene))
	if err != nil {
		g.logger.ErrorWithFields(err, "Failed to generate scene image", map[string]interface{}{
			"story_id": storyID,
			"scene_id": sceneID,
		})
		return domain.ImageResult{}, err
	}
	if result.SceneID == "" {
		result.SceneID = sceneID
	}

	if err := g.stories.UpdateSceneImage(ctx, storyID, sceneID, *result); err != nil {
		g.logger.ErrorWithFields(err, "Failed to persist scene image", map[string]interface{}{
			"story_id":  storyID,
			"scene_id":  sceneID,
			"image_url": result.ImageURL,
		})
	}

	return *result, nil
}

func buildImageRequest(story *domain.Story, scene *domain.Scene) outbound.GenerateImageRequest {
	characters := make([]outbound.ImageCharacter, 0, len(story.Characters))
	for _, c := range story.Characters {
		character := outbound.ImageCharacter{
			Name:        c.Name,
			Description: c.Description,
		}
		if code, ok := c.GenderCode(); ok {
			character.GenderCode = &code
		}
		characters = append(characters, character)
	}

	audios := make([]outbound.ImageAudioContext, 0, len(scene.AudioUnits))
	for _, unit := range scene.AudioUnits {
		audios = append(audios, outbound.ImageAudioContext{
			Type:      unit.Type,
			Character: unit.Character,
			Text:      unit.Text,
			Emotion:   unit.Emotion,
		})
	}

	return outbound.GenerateImageRequest{
		StoryID:    story.ID,
		StoryTitle: story.Title,
		SceneID:    scene.ID,
		Characters: characters,
		Audios:     audios,
	}
}
