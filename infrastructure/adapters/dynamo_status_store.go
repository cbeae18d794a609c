package adapters

import (
	"context"
	"story-video-pipeline/application/ports/outbound"
	"story-video-pipeline/config"
	"story-video-pipeline/domain"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
)

const (
	videoStatusKeyPrefix     = "video:status:"
	videoProcessingKeyPrefix = "video:processing:"
)

type dynamoStatusItem struct {
	StatusKey string `dynamodbav:"status_key"`
	Value     string `dynamodbav:"value"`
	TTL       int64  `dynamodbav:"ttl"`
}

type dynamoStatusStore struct {
	logger       outbound.LoggerPort
	dynamoSvc    dynamodbiface.DynamoDBAPI
	dynamoConfig *config.DynamoConfig
	now          func() time.Time
}

// NewDynamoStatusStore relies on the table's TTL attribute for eviction. DynamoDB
// deletes expired items lazily, so reads also compare the ttl with the clock.
func NewDynamoStatusStore(logger outbound.LoggerPort, dynamoSvc dynamodbiface.DynamoDBAPI, dynamoConfig *config.DynamoConfig) outbound.StatusStorePort {
	return &dynamoStatusStore{
		logger:       logger,
		dynamoSvc:    dynamoSvc,
		dynamoConfig: dynamoConfig,
		now:          time.Now,
	}
}

func (c *dynamoStatusStore) SetVideoStatus(ctx context.Context, storyID string, status domain.VideoStatus) error {
	return c.put(ctx, videoStatusKeyPrefix+storyID, string(status))
}

func (c *dynamoStatusStore) GetVideoStatus(ctx context.Context, storyID string) (domain.VideoStatus, bool, error) {
	value, ok, err := c.get(ctx, videoStatusKeyPrefix+storyID)
	if err != nil || !ok {
		return "", false, err
	}
	status := domain.VideoStatus(value)
	if !status.Valid() {
		c.logger.WarnWithFields("Ignoring unknown video status", map[string]interface{}{
			"story_id": storyID,
			"value":    value,
		})
		return "", false, nil
	}
	return status, true, nil
}

func (c *dynamoStatusStore) SetProcessingStep(ctx context.Context, storyID string, step domain.ProcessingStep) error {
	return c.put(ctx, videoProcessingKeyPrefix+storyID, string(step))
}

func (c *dynamoStatusStore) GetProcessingStep(ctx context.Context, storyID string) (domain.ProcessingStep, error) {
	value, ok, err := c.get(ctx, videoProcessingKeyPrefix+storyID)
	if err != nil || !ok {
		return domain.StepNone, err
	}
	step, _ := domain.ParseProcessingStep(value)
	return step, nil
}

func (c *dynamoStatusStore) DeleteProcessingStep(ctx context.Context, storyID string) error {
	_, err := c.dynamoSvc.DeleteItemWithContext(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(c.dynamoConfig.StatusTableName),
		Key:       statusKey(videoProcessingKeyPrefix + storyID),
	})
	if err != nil {
		c.logger.ErrorWithFields(err, "Failed to delete processing step", map[string]interface{}{
			"story_id": storyID,
		})
	}
	return err
}

func (c *dynamoStatusStore) put(ctx context.Context, key string, value string) error {
	item := dynamoStatusItem{
		StatusKey: key,
		Value:     value,
		TTL:       c.now().Add(c.dynamoConfig.StatusTTL).Unix(),
	}
	av, err := dynamodbattribute.MarshalMap(item)
	if err != nil {
		c.logger.ErrorWithFields(err, "Failed to marshal status item", map[string]interface{}{
			"item": item,
		})
		return err
	}

	input := &dynamodb.PutItemInput{
		Item:      av,
		TableName: aws.String(c.dynamoConfig.StatusTableName),
	}

	_, err = c.dynamoSvc.PutItemWithContext(ctx, input)
	if err != nil {
		c.logger.ErrorWithFields(err, "Failed to save status item", map[string]interface{}{
			"item": item,
		})
		return err
	}

	return nil
}

func (c *dynamoStatusStore) get(ctx context.Context, key string) (string, bool, error) {
	out, err := c.dynamoSvc.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.dynamoConfig.StatusTableName),
		Key:            statusKey(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		c.logger.ErrorWithFields(err, "Failed to read status item", map[string]interface{}{
			"key": key,
		})
		return "", false, err
	}
	if len(out.Item) == 0 {
		return "", false, nil
	}

	var item dynamoStatusItem
	if err := dynamodbattribute.UnmarshalMap(out.Item, &item); err != nil {
		return "", false, err
	}
	if item.TTL > 0 && item.TTL <= c.now().Unix() {
		return "", false, nil
	}
	return item.Value, true, nil
}

func statusKey(key string) map[string]*dynamodb.AttributeValue {
	return map[string]*dynamodb.AttributeValue{
		"status_key": {S: aws.String(key)},
	}
}
