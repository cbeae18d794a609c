package services

import (
	"context"
	"encoding/json"
	"errors"
	"story-video-pipeline/application/ports/inbound"
	"story-video-pipeline/application/ports/outbound"
	"story-video-pipeline/config"
	"story-video-pipeline/domain"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	subscriptionBuffer = 16
	// terminalSendTimeout bounds how long a closing event waits for buffer room.
	terminalSendTimeout = time.Second
)

type subscription struct {
	storyID string
	events  chan domain.StreamEvent
	done    chan struct{}

	mu         sync.Mutex
	closed     bool
	timer      *time.Timer
	cancelTick func()
	pushed     bool
	lastStatus domain.VideoStatus
	lastStep   domain.ProcessingStep
}

func newSubscription(storyID string) *subscription {
	return &subscription{
		storyID: storyID,
		events:  make(chan domain.StreamEvent, subscriptionBuffer),
		done:    make(chan struct{}),
	}
}

func (s *subscription) StoryID() string {
	return s.storyID
}

// Events is closed after the last event once the subscription closes.
func (s *subscription) Events() <-chan domain.StreamEvent {
	return s.events
}

func (s *subscription) Done() <-chan struct{} {
	return s.done
}

// send waits up to wait for buffer room and reports false when the event was
// dropped. A zero wait never blocks. close waits for a blocked send.
func (s *subscription) send(event domain.StreamEvent, wait time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.events <- event:
		return true
	default:
	}
	if wait <= 0 {
		return false
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case s.events <- event:
		return true
	case <-timer.C:
		return false
	}
}

// changed records view as the last pushed state and reports whether it
// differs from the previous one.
func (s *subscription) changed(view domain.StatusView) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pushed && s.lastStatus == view.Status && s.lastStep == view.ProcessingStep {
		return false
	}
	s.pushed = true
	s.lastStatus = view.Status
	s.lastStep = view.ProcessingStep
	return true
}

func (s *subscription) setCancel(cancel func()) {
	s.mu.Lock()
	if !s.closed {
		s.cancelTick = cancel
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	cancel()
}

func (s *subscription) stopTicking() {
	s.mu.Lock()
	cancel := s.cancelTick
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (s *subscription) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *subscription) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.done)
	close(s.events)
	timer, cancel := s.timer, s.cancelTick
	s.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	if cancel != nil {
		cancel()
	}
}

type statusStreamingService struct {
	logger    outbound.LoggerPort
	lifecycle inbound.VideoLifecyclePort
	scheduler outbound.Scheduler
	timeout   time.Duration
	interval  time.Duration

	// terminalWait is how long the closing event waits on a full buffer.
	terminalWait time.Duration

	mu   sync.Mutex
	subs map[string]*subscription
}

// NewStatusStreamingService keeps at most one live subscription per story in
// memory. Nothing is persisted: after a restart clients reconnect and get the
// current state from the status store.
func NewStatusStreamingService(logger outbound.LoggerPort, lifecycle inbound.VideoLifecyclePort,
	scheduler outbound.Scheduler, streamingConfig *config.StreamingConfig) inbound.StatusStreamingPort {
	return &statusStreamingService{
		logger:    logger,
		lifecycle: lifecycle,
		scheduler: scheduler,
		timeout:   streamingConfig.Timeout,
		interval:  streamingConfig.PushInterval,
		subs:      make(map[string]*subscription),

		terminalWait: terminalSendTimeout,
	}
}

func (s *statusStreamingService) Subscribe(ctx context.Context, storyID string) (inbound.Subscription, error) {
	if storyID == "" {
		return nil, domain.Validationf("story id is required")
	}

	sub := newSubscription(storyID)
	timer := time.AfterFunc(s.timeout, func() {
		s.logger.DebugWithFields("Subscription timed out", map[string]interface{}{
			"story_id": storyID,
		})
		s.closeSubscription(sub)
	})
	sub.mu.Lock()
	sub.timer = timer
	sub.mu.Unlock()

	s.mu.Lock()
	previous := s.subs[storyID]
	s.subs[storyID] = sub
	s.mu.Unlock()

	if previous != nil {
		previous.close()
		s.logger.InfoWithFields("Replaced existing subscription", map[string]interface{}{
			"story_id": storyID,
		})
	}

	s.sendJSON(sub, domain.ConnectEvent, domain.MessageEvent{StoryID: storyID, Message: "connected"}, 0)

	if s.push(ctx, sub) {
		return sub, nil
	}

	sub.setCancel(s.scheduler.ScheduleAtFixedRate(s.interval, func() {
		s.tick(sub)
	}))

	s.logger.DebugWithFields("Subscription opened", map[string]interface{}{
		"story_id": storyID,
	})
	return sub, nil
}

func (s *statusStreamingService) tick(sub *subscription) {
	if !s.isCurrent(sub) {
		sub.stopTicking()
		return
	}
	s.push(context.Background(), sub)
}

// push sends the current status when it changed since the last push and
// reports whether the subscription is now closed.
func (s *statusStreamingService) push(ctx context.Context, sub *subscription) bool {
	view, err := s.lifecycle.CurrentStatus(ctx, sub.storyID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.sendJSON(sub, domain.ErrorEvent, domain.MessageEvent{StoryID: sub.storyID, Message: err.Error()}, s.terminalWait)
			s.closeSubscription(sub)
			return true
		}
		s.logger.WarnWithFields("Failed to read status for push", map[string]interface{}{
			"story_id": sub.storyID,
			"error":    err.Error(),
		})
		return sub.isClosed()
	}

	if sub.changed(view) {
		wait := time.Duration(0)
		if view.Terminal() {
			wait = s.terminalWait
		}
		s.sendJSON(sub, domain.StatusEvent, view, wait)
	}

	if view.Terminal() {
		s.closeSubscription(sub)
		return true
	}
	return sub.isClosed()
}

func (s *statusStreamingService) sendJSON(sub *subscription, name domain.StreamEventName, payload interface{}, wait time.Duration) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.ErrorWithFields(err, "Failed to encode stream event", map[string]interface{}{
			"story_id": sub.storyID,
			"event":    name,
		})
		return
	}

	if !sub.send(domain.StreamEvent{ID: uuid.NewString(), Name: name, Data: string(data)}, wait) {
		log := s.logger.DebugWithFields
		if wait > 0 {
			log = s.logger.WarnWithFields
		}
		log("Stream event dropped", map[string]interface{}{
			"story_id": sub.storyID,
			"event":    name,
		})
	}
}

func (s *statusStreamingService) isCurrent(sub *subscription) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subs[sub.storyID] == sub
}

// closeSubscription removes sub from the map only if it is still the live
// entry, then closes it.
func (s *statusStreamingService) closeSubscription(sub *subscription) {
	s.mu.Lock()
	if s.subs[sub.storyID] == sub {
		delete(s.subs, sub.storyID)
	}
	s.mu.Unlock()
	sub.close()
}

func (s *statusStreamingService) Release(sub inbound.Subscription) {
	if own, ok := sub.(*subscription); ok {
		s.closeSubscription(own)
	}
}

func (s *statusStreamingService) Complete(storyID string) {
	s.mu.Lock()
	sub := s.subs[storyID]
	delete(s.subs, storyID)
	s.mu.Unlock()

	if sub != nil {
		sub.close()
		s.logger.DebugWithFields("Subscription completed", map[string]interface{}{
			"story_id": storyID,
		})
	}
}

func (s *statusStreamingService) CloseAll() {
	s.mu.Lock()
	subs := s.subs
	s.subs = make(map[string]*subscription)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
}
