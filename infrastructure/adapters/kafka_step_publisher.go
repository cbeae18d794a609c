package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"story-video-pipeline/application/ports/outbound"
	"story-video-pipeline/config"
	"story-video-pipeline/domain"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

type KafkaStepPublisher struct {
	writer messageWriter
	logger outbound.LoggerPort
}

func NewKafkaStepPublisher(kafkaConfig *config.KafkaConfig, logger outbound.LoggerPort) *KafkaStepPublisher {
	return &KafkaStepPublisher{
		writer: &kafkago.Writer{
			Addr:         kafkago.TCP(kafkaConfig.Brokers...),
			Topic:        kafkaConfig.StepTopic,
			Balancer:     &kafkago.Hash{},
			BatchTimeout: 50 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// PublishStepChanged keys messages by story id so a story's steps stay ordered within a partition.
func (p *KafkaStepPublisher) PublishStepChanged(ctx context.Context, event domain.StepChangedEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal step event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(event.StoryID),
		Value: value,
		Time:  event.ChangedAt,
	})
	if err != nil {
		p.logger.ErrorWithFields(err, "Failed to publish step event", map[string]interface{}{
			"story_id": event.StoryID,
			"step":     event.Step,
		})
		return fmt.Errorf("kafka publish: %w", err)
	}
	return nil
}

func (p *KafkaStepPublisher) Close() error {
	return p.writer.Close()
}

type noopStepPublisher struct{}

func NewNoopStepPublisher() outbound.StepEventPublisherPort {
	return noopStepPublisher{}
}

func (noopStepPublisher) PublishStepChanged(context.Context, domain.StepChangedEvent) error {
	return nil
}
