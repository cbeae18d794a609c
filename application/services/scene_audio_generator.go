package services

import (
	"context"
	"encoding/json"
	"errors"
	"story-video-pipeline/application/ports/inbound"
	"story-video-pipeline/application/ports/outbound"
	"story-video-pipeline/domain"
	"strings"
)

type sceneAudioGenerator struct {
	logger      outbound.LoggerPort
	stories     outbound.StoryStorePort
	synthesizer outbound.SpeechSynthesizerPort
}

func NewSceneAudioGenerator(logger outbound.LoggerPort, stories outbound.StoryStorePort,
	synthesizer outbound.SpeechSynthesizerPort) inbound.AudioGenerationPort {
	return &sceneAudioGenerator{
		logger:      logger,
		stories:     stories,
		synthesizer: synthesizer,
	}
}

// GenerateSceneAudio synthesizes the scene's units one after another in
// declared order. A failing unit is logged and counted; the remaining units
// are still attempted. Only a missing story or scene fails the call.
func (g *sceneAudioGenerator) GenerateSceneAudio(ctx context.Context, storyID string, sceneID string) (domain.AudioStageResult, error) {
	var result domain.AudioStageResult

	story, err := g.stories.GetStory(ctx, storyID)
	if err != nil {
		return result, err
	}
	scene, _, err := story.FindScene(sceneID)
	if err != nil {
		return result, err
	}

	for _, unit := range scene.AudioUnits {
		result.Attempted++

		if err := g.generateUnit(ctx, story, sceneID, unit); err != nil {
			result.Failed++
			fields := map[string]interface{}{
				"story_id": storyID,
				"scene_id": sceneID,
				"audio_id": unit.ID,
			}
			if errors.Is(err, domain.ErrValidation) {
				fields["error"] = err.Error()
				g.logger.WarnWithFields("Skipping audio unit", fields)
			} else {
				g.logger.ErrorWithFields(err, "Failed to generate audio unit", fields)
			}
			continue
		}
		result.Synthesized++
	}

	g.logger.InfoWithFields("Scene audio generated", map[string]interface{}{
		"story_id":    storyID,
		"scene_id":    sceneID,
		"attempted":   result.Attempted,
		"synthesized": result.Synthesized,
		"failed":      result.Failed,
	})
	return result, nil
}

func (g *sceneAudioGenerator) generateUnit(ctx context.Context, story *domain.Story, sceneID string, unit domain.AudioUnit) error {
	text := strings.TrimSpace(unit.Text)
	if text == "" {
		return domain.Validationf("audio unit %s has no text", unit.ID)
	}

	storyID := story.ID
	voiceCode := story.VoiceCodeFor(unit)
	res, err := g.synthesizer.Synthesize(ctx, outbound.SynthesizeSpeechRequest{
		StoryID:   storyID,
		SceneID:   sceneID,
		AudioID:   unit.ID,
		Text:      text,
		VoiceCode: voiceCode,
	})
	if err != nil {
		return err
	}

	settings, err := json.Marshal(map[string]string{"output_format": res.Format})
	if err != nil {
		return err
	}

	return g.stories.UpdateAudioUnit(ctx, storyID, sceneID, unit.ID, domain.AudioSynthesis{
		AudioURL:      res.AudioURL,
		ContentType:   res.ContentType,
		FileSize:      res.FileSize,
		ModelID:       res.ModelID,
		AudioSettings: string(settings),
		VoiceCode:     voiceCode,
	})
}
