package adapters

import (
	"context"
	"errors"
	"fmt"
	"story-video-pipeline/application/ports/outbound"
	"story-video-pipeline/config"
	"story-video-pipeline/domain"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
)

type dynamoStoryItem struct {
	StoryId            string            `dynamodbav:"story_id"`
	Title              string            `dynamodbav:"title"`
	NarrationVoiceCode string            `dynamodbav:"narration_voice_code,omitempty"`
	Characters         []dynamoCharacter `dynamodbav:"characters"`
	Scenes             []dynamoScene     `dynamodbav:"scenes"`
}

type dynamoCharacter struct {
	Name        string `dynamodbav:"name"`
	Gender      string `dynamodbav:"gender"`
	Description string `dynamodbav:"description"`
	VoiceCode   string `dynamodbav:"voice_code,omitempty"`
}

type dynamoScene struct {
	SceneId     string        `dynamodbav:"scene_id"`
	ImageUrl    string        `dynamodbav:"image_url,omitempty"`
	ImagePrompt string        `dynamodbav:"image_prompt,omitempty"`
	Audios      []dynamoAudio `dynamodbav:"audios"`
}

type dynamoAudio struct {
	AudioId       string `dynamodbav:"audio_id"`
	Type          string `dynamodbav:"type"`
	Character     string `dynamodbav:"character,omitempty"`
	Text          string `dynamodbav:"text"`
	Emotion       string `dynamodbav:"emotion,omitempty"`
	AudioUrl      string `dynamodbav:"audio_url,omitempty"`
	ContentType   string `dynamodbav:"content_type,omitempty"`
	FileSize      int64  `dynamodbav:"file_size,omitempty"`
	BaseModel     string `dynamodbav:"base_model,omitempty"`
	AudioSettings string `dynamodbav:"audio_settings,omitempty"`
	VoiceCode     string `dynamodbav:"voice_code,omitempty"`
}

type dynamoStoryStore struct {
	logger       outbound.LoggerPort
	dynamoSvc    dynamodbiface.DynamoDBAPI
	dynamoConfig *config.DynamoConfig
}

// NewDynamoStoryStore keeps one item per story with scenes and audio units as
// nested lists. Partial updates address list elements by index and are guarded
// by a condition on the element's id.
func NewDynamoStoryStore(logger outbound.LoggerPort, dynamoSvc dynamodbiface.DynamoDBAPI, dynamoConfig *config.DynamoConfig) outbound.StoryStorePort {
	return &dynamoStoryStore{
		logger:       logger,
		dynamoSvc:    dynamoSvc,
		dynamoConfig: dynamoConfig,
	}
}

func (s *dynamoStoryStore) GetStory(ctx context.Context, storyID string) (*domain.Story, error) {
	item, err := s.getItem(ctx, storyID, "")
	if err != nil {
		return nil, err
	}
	return item.toDomain(), nil
}

func (s *dynamoStoryStore) ListScenes(ctx context.Context, storyID string) ([]domain.Scene, error) {
	item, err := s.getItem(ctx, storyID, "scenes")
	if err != nil {
		return nil, err
	}
	return item.toDomain().Scenes, nil
}

func (s *dynamoStoryStore) UpdateSceneImage(ctx context.Context, storyID string, sceneID string, image domain.ImageResult) error {
	item, err := s.getItem(ctx, storyID, "scenes")
	if err != nil {
		return err
	}
	sceneIdx := item.sceneIndex(sceneID)
	if sceneIdx < 0 {
		return domain.NotFoundf("scene %s in story %s", sceneID, storyID)
	}

	path := fmt.Sprintf("#scenes[%d]", sceneIdx)
	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(s.dynamoConfig.StoryTableName),
		Key:       storyKey(storyID),
		UpdateExpression: aws.String(fmt.Sprintf("SET %s.#image_url = :image_url, %s.#image_prompt = :image_prompt",
			path, path)),
		ConditionExpression: aws.String(fmt.Sprintf("%s.#scene_id = :scene_id", path)),
		ExpressionAttributeNames: map[string]*string{
			"#scenes":       aws.String("scenes"),
			"#scene_id":     aws.String("scene_id"),
			"#image_url":    aws.String("image_url"),
			"#image_prompt": aws.String("image_prompt"),
		},
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":scene_id":     {S: aws.String(sceneID)},
			":image_url":    {S: aws.String(image.ImageURL)},
			":image_prompt": {S: aws.String(image.Prompt)},
		},
	}

	return s.update(ctx, input, map[string]interface{}{
		"story_id": storyID,
		"scene_id": sceneID,
	})
}

func (s *dynamoStoryStore) UpdateAudioUnit(ctx context.Context, storyID string, sceneID string, audioID string, synthesis domain.AudioSynthesis) error {
	item, err := s.getItem(ctx, storyID, "scenes")
	if err != nil {
		return err
	}
	sceneIdx := item.sceneIndex(sceneID)
	if sceneIdx < 0 {
		return domain.NotFoundf("scene %s in story %s", sceneID, storyID)
	}
	audioIdx := item.Scenes[sceneIdx].audioIndex(audioID)
	if audioIdx < 0 {
		return domain.NotFoundf("audio unit %s in scene %s", audioID, sceneID)
	}

	scenePath := fmt.Sprintf("#scenes[%d]", sceneIdx)
	path := fmt.Sprintf("%s.#audios[%d]", scenePath, audioIdx)
	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(s.dynamoConfig.StoryTableName),
		Key:       storyKey(storyID),
		UpdateExpression: aws.String(fmt.Sprintf(
			"SET %[1]s.#audio_url = :audio_url, %[1]s.#content_type = :content_type, %[1]s.#file_size = :file_size, %[1]s.#base_model = :base_model, %[1]s.#audio_settings = :audio_settings, %[1]s.#voice_code = :voice_code",
			path)),
		ConditionExpression: aws.String(fmt.Sprintf("%s.#scene_id = :scene_id AND %s.#audio_id = :audio_id", scenePath, path)),
		ExpressionAttributeNames: map[string]*string{
			"#scenes":         aws.String("scenes"),
			"#audios":         aws.String("audios"),
			"#scene_id":       aws.String("scene_id"),
			"#audio_id":       aws.String("audio_id"),
			"#audio_url":      aws.String("audio_url"),
			"#content_type":   aws.String("content_type"),
			"#file_size":      aws.String("file_size"),
			"#base_model":     aws.String("base_model"),
			"#audio_settings": aws.String("audio_settings"),
			"#voice_code":     aws.String("voice_code"),
		},
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":scene_id":       {S: aws.String(sceneID)},
			":audio_id":       {S: aws.String(audioID)},
			":audio_url":      {S: aws.String(synthesis.AudioURL)},
			":content_type":   {S: aws.String(synthesis.ContentType)},
			":file_size":      {N: aws.String(fmt.Sprintf("%d", synthesis.FileSize))},
			":base_model":     {S: aws.String(synthesis.ModelID)},
			":audio_settings": {S: aws.String(synthesis.AudioSettings)},
			":voice_code":     {S: aws.String(synthesis.VoiceCode)},
		},
	}

	return s.update(ctx, input, map[string]interface{}{
		"story_id": storyID,
		"scene_id": sceneID,
		"audio_id": audioID,
	})
}

func (s *dynamoStoryStore) getItem(ctx context.Context, storyID string, projection string) (*dynamoStoryItem, error) {
	input := &dynamodb.GetItemInput{
		TableName:      aws.String(s.dynamoConfig.StoryTableName),
		Key:            storyKey(storyID),
		ConsistentRead: aws.Bool(true),
	}
	if projection != "" {
		input.ProjectionExpression = aws.String(projection)
	}

	out, err := s.dynamoSvc.GetItemWithContext(ctx, input)
	if err != nil {
		s.logger.ErrorWithFields(err, "Failed to read story item", map[string]interface{}{
			"story_id": storyID,
		})
		return nil, err
	}
	if len(out.Item) == 0 {
		return nil, domain.NotFoundf("story %s", storyID)
	}

	var item dynamoStoryItem
	if err := dynamodbattribute.UnmarshalMap(out.Item, &item); err != nil {
		s.logger.ErrorWithFields(err, "Failed to unmarshal story item", map[string]interface{}{
			"story_id": storyID,
		})
		return nil, err
	}
	if item.StoryId == "" {
		item.StoryId = storyID
	}
	return &item, nil
}

func (s *dynamoStoryStore) update(ctx context.Context, input *dynamodb.UpdateItemInput, fields map[string]interface{}) error {
	_, err := s.dynamoSvc.UpdateItemWithContext(ctx, input)
	if err == nil {
		return nil
	}

	var aerr awserr.Error
	if errors.As(err, &aerr) && aerr.Code() == dynamodb.ErrCodeConditionalCheckFailedException {
		s.logger.WarnWithFields("Story changed shape during partial update", fields)
		return fmt.Errorf("%w: story layout changed during update", domain.ErrConflict)
	}

	s.logger.ErrorWithFields(err, "Failed to update story item", fields)
	return err
}

func storyKey(storyID string) map[string]*dynamodb.AttributeValue {
	return map[string]*dynamodb.AttributeValue{
		"story_id": {S: aws.String(storyID)},
	}
}

func (i *dynamoStoryItem) sceneIndex(sceneID string) int {
	for idx, scene := range i.Scenes {
		if scene.SceneId == sceneID {
			return idx
		}
	}
	return -1
}

func (s *dynamoScene) audioIndex(audioID string) int {
	for idx, audio := range s.Audios {
		if audio.AudioId == audioID {
			return idx
		}
	}
	return -1
}

func (i *dynamoStoryItem) toDomain() *domain.Story {
	story := &domain.Story{
		ID:                 i.StoryId,
		Title:              i.Title,
		NarrationVoiceCode: i.NarrationVoiceCode,
	}
	for _, c := range i.Characters {
		story.Characters = append(story.Characters, domain.Character{
			Name:        c.Name,
			Gender:      c.Gender,
			Description: c.Description,
			VoiceCode:   c.VoiceCode,
		})
	}
	for _, sc := range i.Scenes {
		scene := domain.Scene{
			ID:          sc.SceneId,
			ImageURL:    sc.ImageUrl,
			ImagePrompt: sc.ImagePrompt,
		}
		for _, a := range sc.Audios {
			scene.AudioUnits = append(scene.AudioUnits, domain.AudioUnit{
				ID:        a.AudioId,
				Type:      domain.AudioType(a.Type),
				Character: a.Character,
				Text:      a.Text,
				Emotion:   a.Emotion,
				AudioSynthesis: domain.AudioSynthesis{
					AudioURL:      a.AudioUrl,
					ContentType:   a.ContentType,
					FileSize:      a.FileSize,
					ModelID:       a.BaseModel,
					AudioSettings: a.AudioSettings,
					VoiceCode:     a.VoiceCode,
				},
			})
		}
		story.Scenes = append(story.Scenes, scene)
	}
	return story
}
