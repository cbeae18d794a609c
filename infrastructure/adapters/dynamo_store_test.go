package adapters

import (
	"context"
	"story-video-pipeline/config"
	"story-video-pipeline/domain"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDynamo keeps items in memory keyed by the value of keyAttr.
type fakeDynamo struct {
	dynamodbiface.DynamoDBAPI

	mu        sync.Mutex
	keyAttr   string
	items     map[string]map[string]*dynamodb.AttributeValue
	updates   []*dynamodb.UpdateItemInput
	updateErr error
}

func newFakeDynamo(keyAttr string) *fakeDynamo {
	return &fakeDynamo{keyAttr: keyAttr, items: make(map[string]map[string]*dynamodb.AttributeValue)}
}

func (f *fakeDynamo) GetItemWithContext(_ aws.Context, in *dynamodb.GetItemInput, _ ...request.Option) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: f.items[aws.StringValue(in.Key[f.keyAttr].S)]}, nil
}

func (f *fakeDynamo) PutItemWithContext(_ aws.Context, in *dynamodb.PutItemInput, _ ...request.Option) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[aws.StringValue(in.Item[f.keyAttr].S)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItemWithContext(_ aws.Context, in *dynamodb.DeleteItemInput, _ ...request.Option) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, aws.StringValue(in.Key[f.keyAttr].S))
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDynamo) UpdateItemWithContext(_ aws.Context, in *dynamodb.UpdateItemInput, _ ...request.Option) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, in)
	return &dynamodb.UpdateItemOutput{}, f.updateErr
}

func putStory(t *testing.T, f *fakeDynamo, item dynamoStoryItem) {
	t.Helper()
	av, err := dynamodbattribute.MarshalMap(item)
	require.NoError(t, err)
	f.items[item.StoryId] = av
}

func storedStory() dynamoStoryItem {
	return dynamoStoryItem{
		StoryId:    "42",
		Title:      "The fox",
		Characters: []dynamoCharacter{{Name: "Fox", Gender: "여성", Description: "red"}},
		Scenes: []dynamoScene{
			{SceneId: "1", Audios: []dynamoAudio{{AudioId: "1", Type: "narration", Text: "Snow"}}},
			{SceneId: "2", ImageUrl: "https://img", Audios: []dynamoAudio{
				{AudioId: "1", Type: "narration", Text: "Wind"},
				{AudioId: "2", Type: "dialogue", Character: "Fox", Text: "Hi", AudioUrl: "https://a", BaseModel: "m"},
			}},
		},
	}
}

func TestDynamoStoryStore_GetStory(t *testing.T) {
	fake := newFakeDynamo("story_id")
	putStory(t, fake, storedStory())
	store := NewDynamoStoryStore(NewNopLogger(), fake, &config.DynamoConfig{StoryTableName: "stories"})

	story, err := store.GetStory(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "The fox", story.Title)
	require.Len(t, story.Scenes, 2)
	assert.Equal(t, "https://img", story.Scenes[1].ImageURL)
	assert.Equal(t, domain.DialogueAudioType, story.Scenes[1].AudioUnits[1].Type)
	assert.Equal(t, "m", story.Scenes[1].AudioUnits[1].ModelID)

	_, err = store.GetStory(context.Background(), "404")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDynamoStoryStore_UpdateAudioUnitTargetsOneElement(t *testing.T) {
	fake := newFakeDynamo("story_id")
	putStory(t, fake, storedStory())
	store := NewDynamoStoryStore(NewNopLogger(), fake, &config.DynamoConfig{StoryTableName: "stories"})

	err := store.UpdateAudioUnit(context.Background(), "42", "2", "2", domain.AudioSynthesis{
		AudioURL: "https://new", ContentType: "audio/mpeg", FileSize: 12, ModelID: "m2", AudioSettings: "{}", VoiceCode: "fox-voice",
	})
	require.NoError(t, err)

	require.Len(t, fake.updates, 1)
	in := fake.updates[0]
	assert.Equal(t, "stories", aws.StringValue(in.TableName))
	assert.Contains(t, aws.StringValue(in.UpdateExpression), "#scenes[1].#audios[1].#audio_url = :audio_url")
	assert.Equal(t, "#scenes[1].#scene_id = :scene_id AND #scenes[1].#audios[1].#audio_id = :audio_id", aws.StringValue(in.ConditionExpression))
	assert.Equal(t, "12", aws.StringValue(in.ExpressionAttributeValues[":file_size"].N))
	assert.Contains(t, aws.StringValue(in.UpdateExpression), "#scenes[1].#audios[1].#voice_code = :voice_code")
	assert.Equal(t, "fox-voice", aws.StringValue(in.ExpressionAttributeValues[":voice_code"].S))

	err = store.UpdateAudioUnit(context.Background(), "42", "2", "9", domain.AudioSynthesis{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDynamoStoryStore_UpdateSceneImage(t *testing.T) {
	fake := newFakeDynamo("story_id")
	putStory(t, fake, storedStory())
	store := NewDynamoStoryStore(NewNopLogger(), fake, &config.DynamoConfig{StoryTableName: "stories"})

	require.NoError(t, store.UpdateSceneImage(context.Background(), "42", "1", domain.ImageResult{ImageURL: "https://i", Prompt: "p"}))
	in := fake.updates[0]
	assert.Equal(t, "SET #scenes[0].#image_url = :image_url, #scenes[0].#image_prompt = :image_prompt", aws.StringValue(in.UpdateExpression))

	fake.updateErr = awserr.New(dynamodb.ErrCodeConditionalCheckFailedException, "condition failed", nil)
	err := store.UpdateSceneImage(context.Background(), "42", "1", domain.ImageResult{ImageURL: "https://i"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	err = store.UpdateSceneImage(context.Background(), "42", "7", domain.ImageResult{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDynamoStatusStore_Expiry(t *testing.T) {
	fake := newFakeDynamo("status_key")
	store := NewDynamoStatusStore(NewNopLogger(), fake, &config.DynamoConfig{StatusTableName: "status", StatusTTL: time.Hour}).(*dynamoStatusStore)

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.SetVideoStatus(ctx, "42", domain.VideoStatusProcessing))
	require.NoError(t, store.SetProcessingStep(ctx, "42", domain.StepImageGenerating))
	assert.Contains(t, fake.items, "video:status:42")
	assert.Contains(t, fake.items, "video:processing:42")

	status, ok, err := store.GetVideoStatus(ctx, "42")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.VideoStatusProcessing, status)

	step, err := store.GetProcessingStep(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, domain.StepImageGenerating, step)

	now = now.Add(2 * time.Hour)
	_, ok, err = store.GetVideoStatus(ctx, "42")
	require.NoError(t, err)
	assert.False(t, ok, "expired items are ignored before the table evicts them")

	step, err = store.GetProcessingStep(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, domain.StepNone, step)

	require.NoError(t, store.SetProcessingStep(ctx, "42", domain.StepVideoRendering))
	require.NoError(t, store.DeleteProcessingStep(ctx, "42"))
	assert.NotContains(t, fake.items, "video:processing:42")
}

func TestMemoryStatusStore_Expiry(t *testing.T) {
	now := time.Now()
	store := NewMemoryStatusStore(time.Minute).WithClock(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, store.SetProcessingStep(ctx, "1", domain.StepVoiceGenerating))
	step, err := store.GetProcessingStep(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, domain.StepVoiceGenerating, step)

	now = now.Add(time.Minute)
	step, err = store.GetProcessingStep(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, domain.StepNone, step)
	assert.Zero(t, store.Len(), "expired entry is dropped on read")
}

func TestMemoryStatusStore_SweepsUnreadEntries(t *testing.T) {
	now := time.Now()
	store := NewMemoryStatusStore(time.Minute).WithClock(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, store.SetVideoStatus(ctx, "1", domain.VideoStatusCompleted))
	require.NoError(t, store.SetVideoStatus(ctx, "2", domain.VideoStatusFailed))
	now = now.Add(30 * time.Second)
	require.NoError(t, store.SetVideoStatus(ctx, "3", domain.VideoStatusProcessing))

	now = now.Add(45 * time.Second)
	store.Sweep()
	assert.Equal(t, 1, store.Len())

	status, ok, err := store.GetVideoStatus(ctx, "3")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.VideoStatusProcessing, status)

	now = now.Add(time.Minute)
	for i := 0; i < sweepEvery; i++ {
		require.NoError(t, store.SetProcessingStep(ctx, "hot", domain.StepVoiceGenerating))
	}
	assert.Equal(t, 1, store.Len(), "writes sweep entries nobody reads")
}

func TestMemoryStoryStore_PartialUpdates(t *testing.T) {
	seed := storedStory()
	store := NewMemoryStoryStore(seed.toDomain())
	ctx := context.Background()

	require.NoError(t, store.UpdateAudioUnit(ctx, "42", "1", "1", domain.AudioSynthesis{AudioURL: "https://a"}))
	require.NoError(t, store.UpdateSceneImage(ctx, "42", "1", domain.ImageResult{ImageURL: "https://i", Prompt: "p"}))

	story, err := store.GetStory(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "https://a", story.Scenes[0].AudioUnits[0].AudioURL)
	assert.Equal(t, "https://i", story.Scenes[0].ImageURL)

	story.Scenes[0].ImageURL = "mutated"
	again, err := store.GetStory(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "https://i", again.Scenes[0].ImageURL, "reads return copies")

	assert.ErrorIs(t, store.UpdateAudioUnit(ctx, "42", "1", "9", domain.AudioSynthesis{}), domain.ErrNotFound)
}
