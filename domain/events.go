package domain

import "time"

type StreamEventName string

const (
	ConnectEvent StreamEventName = "connect"
	StatusEvent  StreamEventName = "status"
	ErrorEvent   StreamEventName = "error"
)

// StreamEvent is one frame delivered on a push-connection. Data is JSON encoded.
type StreamEvent struct {
	ID   string
	Name StreamEventName
	Data string
}

type MessageEvent struct {
	StoryID string `json:"story_id"`
	Message string `json:"message"`
}

type StepChangedEvent struct {
	StoryID      string         `json:"story_id"`
	PreviousStep ProcessingStep `json:"previous_step,omitempty"`
	Step         ProcessingStep `json:"step"`
	ChangedAt    time.Time      `json:"changed_at"`
}
