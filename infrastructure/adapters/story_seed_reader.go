package adapters

import (
	"encoding/json"
	"fmt"
	"os"
	"story-video-pipeline/application/ports/outbound"
	"story-video-pipeline/domain"
)

type seedStory struct {
	StoryID            string          `json:"story_id"`
	Title              string          `json:"title"`
	NarrationVoiceCode string          `json:"narration_voice_code"`
	Characters         []seedCharacter `json:"characters"`
	Scenes             []seedScene     `json:"scenes"`
}

type seedCharacter struct {
	Name        string `json:"name"`
	Gender      string `json:"gender"`
	Description string `json:"description"`
	VoiceCode   string `json:"voice_code"`
}

type seedScene struct {
	SceneID     string      `json:"scene_id"`
	ImageURL    string      `json:"image_url"`
	ImagePrompt string      `json:"image_prompt"`
	Audios      []seedAudio `json:"audios"`
}

type seedAudio struct {
	AudioID   string `json:"audio_id"`
	Type      string `json:"type"`
	Character string `json:"character"`
	Text      string `json:"text"`
	Emotion   string `json:"emotion"`
	AudioURL  string `json:"audio_url"`
}

// StorySeedReader loads stories from a JSON file for the memory story store.
type StorySeedReader interface {
	Read(fileName string) ([]*domain.Story, error)
}

type fileStorySeedReader struct {
	logger outbound.LoggerPort
}

func NewFileStorySeedReader(logger outbound.LoggerPort) StorySeedReader {
	return &fileStorySeedReader{
		logger: logger,
	}
}

func (f *fileStorySeedReader) Read(fileName string) ([]*domain.Story, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, domain.IOErrorf(err, "open seed file %s", fileName)
	}
	defer func(file *os.File) {
		err := file.Close()
		if err != nil {
			f.logger.Error(err, "failed to close seed file")
		}
	}(file)

	var seeds []seedStory
	if err := json.NewDecoder(file).Decode(&seeds); err != nil {
		f.logger.ErrorWithFields(err, "failed to decode seed file", map[string]interface{}{
			"file": fileName,
		})
		return nil, fmt.Errorf("%w: decode seed file %s: %w", domain.ErrValidation, fileName, err)
	}

	stories := make([]*domain.Story, 0, len(seeds))
	for _, seed := range seeds {
		if seed.StoryID == "" {
			return nil, domain.Validationf("seed file %s has a story without story_id", fileName)
		}
		stories = append(stories, seed.toDomain())
	}

	f.logger.InfoWithFields("Loaded story seeds", map[string]interface{}{
		"file":    fileName,
		"stories": len(stories),
	})
	return stories, nil
}

func (s seedStory) toDomain() *domain.Story {
	story := &domain.Story{
		ID:                 s.StoryID,
		Title:              s.Title,
		NarrationVoiceCode: s.NarrationVoiceCode,
	}
	for _, c := range s.Characters {
		story.Characters = append(story.Characters, domain.Character{
			Name:        c.Name,
			Gender:      c.Gender,
			Description: c.Description,
			VoiceCode:   c.VoiceCode,
		})
	}
	for _, sc := range s.Scenes {
		scene := domain.Scene{
			ID:          sc.SceneID,
			ImageURL:    sc.ImageURL,
			ImagePrompt: sc.ImagePrompt,
		}
		for _, a := range sc.Audios {
			scene.AudioUnits = append(scene.AudioUnits, domain.AudioUnit{
				ID:             a.AudioID,
				Type:           domain.AudioType(a.Type),
				Character:      a.Character,
				Text:           a.Text,
				Emotion:        a.Emotion,
				AudioSynthesis: domain.AudioSynthesis{AudioURL: a.AudioURL},
			})
		}
		story.Scenes = append(story.Scenes, scene)
	}
	return story
}
