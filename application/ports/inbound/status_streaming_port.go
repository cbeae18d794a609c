package inbound

import (
	"context"
	"story-video-pipeline/domain"
)

// Subscription is the handle for one live push-connection.
type Subscription interface {
	StoryID() string
	Events() <-chan domain.StreamEvent
	// Done is closed when the server side closes the connection.
	Done() <-chan struct{}
}

type StatusStreamingPort interface {
	Subscribe(ctx context.Context, storyID string) (Subscription, error)
	// Release drops sub after the client went away. It does nothing if sub was already replaced.
	Release(sub Subscription)
	Complete(storyID string)
	// CloseAll closes every live subscription, used on shutdown.
	CloseAll()
}
