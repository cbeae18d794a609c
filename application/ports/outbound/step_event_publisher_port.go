package outbound

import (
	"context"
	"story-video-pipeline/domain"
)

type StepEventPublisherPort interface {
	PublishStepChanged(ctx context.Context, event domain.StepChangedEvent) error
}
