package services

import (
	"context"
	"encoding/json"
	"story-video-pipeline/application/ports/inbound"
	"story-video-pipeline/config"
	"story-video-pipeline/domain"
	"story-video-pipeline/infrastructure/adapters"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type streamingFixture struct {
	lifecycle *lifecycleFixture
	scheduler *fakeScheduler
	service   *statusStreamingService
}

func newStreamingFixture(timeout time.Duration) *streamingFixture {
	f := &streamingFixture{
		lifecycle: newLifecycleFixture(),
		scheduler: &fakeScheduler{},
	}
	f.service = NewStatusStreamingService(adapters.NewNopLogger(), f.lifecycle.service, f.scheduler,
		&config.StreamingConfig{Timeout: timeout, PushInterval: time.Second}).(*statusStreamingService)
	return f
}

func (f *streamingFixture) live() int {
	f.service.mu.Lock()
	defer f.service.mu.Unlock()
	return len(f.service.subs)
}

// pending returns the events buffered on sub without blocking.
func pending(sub inbound.Subscription) []domain.StreamEvent {
	var events []domain.StreamEvent
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		default:
			return events
		}
	}
}

func eventNames(events []domain.StreamEvent) []domain.StreamEventName {
	names := make([]domain.StreamEventName, 0, len(events))
	for _, ev := range events {
		names = append(names, ev.Name)
	}
	return names
}

func statusOf(t *testing.T, ev domain.StreamEvent) domain.StatusView {
	t.Helper()
	require.Equal(t, domain.StatusEvent, ev.Name)
	var view domain.StatusView
	require.NoError(t, json.Unmarshal([]byte(ev.Data), &view))
	return view
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func TestStatusStreaming_ResubscribeReplacesConnection(t *testing.T) {
	f := newStreamingFixture(time.Minute)
	ctx := context.Background()
	_, err := f.lifecycle.service.StartProcessing(ctx, "42")
	require.NoError(t, err)

	first, err := f.service.Subscribe(ctx, "42")
	require.NoError(t, err)
	second, err := f.service.Subscribe(ctx, "42")
	require.NoError(t, err)

	assert.True(t, isClosed(first.Done()))
	assert.False(t, isClosed(second.Done()))
	assert.Equal(t, 1, f.live())

	f.scheduler.tick()
	assert.True(t, f.scheduler.cancelled(0), "the replaced connection's task stops itself")
	assert.False(t, f.scheduler.cancelled(1))

	f.service.Release(first)
	assert.Equal(t, 1, f.live(), "releasing a replaced connection leaves the live one alone")
}

func TestStatusStreaming_TerminalAtSubscribeClosesImmediately(t *testing.T) {
	f := newStreamingFixture(time.Minute)
	ctx := context.Background()
	_, err := f.lifecycle.service.StartProcessing(ctx, "42")
	require.NoError(t, err)
	_, err = f.lifecycle.service.MarkCompleted(ctx, "42", "https://video")
	require.NoError(t, err)

	sub, err := f.service.Subscribe(ctx, "42")
	require.NoError(t, err)

	events := pending(sub)
	assert.Equal(t, []domain.StreamEventName{domain.ConnectEvent, domain.StatusEvent}, eventNames(events))
	view := statusOf(t, events[1])
	assert.Equal(t, domain.VideoStatusCompleted, view.Status)
	assert.Equal(t, "https://video", view.VideoURL)

	assert.True(t, isClosed(sub.Done()))
	assert.Zero(t, f.scheduler.count())
	assert.Zero(t, f.live())
}

func TestStatusStreaming_PushesChangesUntilTerminal(t *testing.T) {
	f := newStreamingFixture(time.Minute)
	ctx := context.Background()
	_, err := f.lifecycle.service.StartProcessing(ctx, "42")
	require.NoError(t, err)

	sub, err := f.service.Subscribe(ctx, "42")
	require.NoError(t, err)
	require.Equal(t, 1, f.scheduler.count())
	assert.Equal(t, time.Second, f.scheduler.tasks[0].interval)
	assert.Len(t, pending(sub), 2)

	f.scheduler.tick()
	assert.Empty(t, pending(sub), "unchanged state is not pushed again")

	require.NoError(t, f.lifecycle.service.UpdateProcessingStep(ctx, "42", domain.StepVoiceGenerating))
	f.scheduler.tick()
	events := pending(sub)
	require.Len(t, events, 1)
	assert.Equal(t, domain.StepVoiceGenerating, statusOf(t, events[0]).ProcessingStep)

	_, err = f.lifecycle.service.MarkFailed(ctx, "42", "render failed")
	require.NoError(t, err)
	f.scheduler.tick()
	events = pending(sub)
	require.Len(t, events, 1)
	view := statusOf(t, events[0])
	assert.Equal(t, domain.VideoStatusFailed, view.Status)
	assert.Equal(t, "render failed", view.ErrorMessage)

	assert.True(t, isClosed(sub.Done()))
	assert.True(t, f.scheduler.cancelled(0))
	assert.Zero(t, f.live())
}

func TestStatusStreaming_TerminalEventWaitsForSlowReader(t *testing.T) {
	f := newStreamingFixture(time.Minute)
	ctx := context.Background()
	_, err := f.lifecycle.service.StartProcessing(ctx, "42")
	require.NoError(t, err)

	sub, err := f.service.Subscribe(ctx, "42")
	require.NoError(t, err)
	own := sub.(*subscription)
	for len(own.events) < subscriptionBuffer {
		require.True(t, own.send(domain.StreamEvent{Name: domain.StatusEvent, Data: "{}"}, 0))
	}
	assert.False(t, own.send(domain.StreamEvent{Name: domain.StatusEvent, Data: "{}"}, 0), "a full buffer drops plain events")

	_, err = f.lifecycle.service.MarkCompleted(ctx, "42", "https://video")
	require.NoError(t, err)

	var received []domain.StreamEvent
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		time.Sleep(50 * time.Millisecond)
		for ev := range sub.Events() {
			received = append(received, ev)
		}
	}()

	f.scheduler.tick()
	<-drained

	require.Len(t, received, subscriptionBuffer+1)
	view := statusOf(t, received[len(received)-1])
	assert.Equal(t, domain.VideoStatusCompleted, view.Status)
	assert.True(t, isClosed(sub.Done()))
}

func TestStatusStreaming_TerminalEventGivesUpAfterTimeout(t *testing.T) {
	f := newStreamingFixture(time.Minute)
	f.service.terminalWait = 20 * time.Millisecond
	ctx := context.Background()
	_, err := f.lifecycle.service.StartProcessing(ctx, "42")
	require.NoError(t, err)

	sub, err := f.service.Subscribe(ctx, "42")
	require.NoError(t, err)
	own := sub.(*subscription)
	for len(own.events) < subscriptionBuffer {
		require.True(t, own.send(domain.StreamEvent{Name: domain.StatusEvent, Data: "{}"}, 0))
	}

	_, err = f.lifecycle.service.MarkFailed(ctx, "42", "boom")
	require.NoError(t, err)
	f.scheduler.tick()

	assert.True(t, isClosed(sub.Done()))
	assert.Len(t, pending(sub), subscriptionBuffer)
}

func TestStatusStreaming_UnknownStory(t *testing.T) {
	f := newStreamingFixture(time.Minute)

	sub, err := f.service.Subscribe(context.Background(), "404")
	require.NoError(t, err)

	assert.Equal(t, []domain.StreamEventName{domain.ConnectEvent, domain.ErrorEvent}, eventNames(pending(sub)))
	assert.True(t, isClosed(sub.Done()))
	assert.Zero(t, f.scheduler.count())
}

func TestStatusStreaming_Complete(t *testing.T) {
	f := newStreamingFixture(time.Minute)
	ctx := context.Background()
	_, err := f.lifecycle.service.StartProcessing(ctx, "42")
	require.NoError(t, err)

	sub, err := f.service.Subscribe(ctx, "42")
	require.NoError(t, err)

	f.service.Complete("missing")
	assert.Equal(t, 1, f.live())

	f.service.Complete("42")
	assert.True(t, isClosed(sub.Done()))
	assert.True(t, f.scheduler.cancelled(0))
	assert.Zero(t, f.live())

	f.service.Complete("42")
}

func TestStatusStreaming_TimesOut(t *testing.T) {
	f := newStreamingFixture(20 * time.Millisecond)
	ctx := context.Background()
	_, err := f.lifecycle.service.StartProcessing(ctx, "42")
	require.NoError(t, err)

	sub, err := f.service.Subscribe(ctx, "42")
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return isClosed(sub.Done()) }, time.Second, 5*time.Millisecond)
	assert.Zero(t, f.live())
}

func TestStatusStreaming_CloseAll(t *testing.T) {
	f := newStreamingFixture(time.Minute)
	ctx := context.Background()
	for _, id := range []string{"1", "2"} {
		_, err := f.lifecycle.service.StartProcessing(ctx, id)
		require.NoError(t, err)
		_, err = f.service.Subscribe(ctx, id)
		require.NoError(t, err)
	}

	f.service.CloseAll()
	assert.Zero(t, f.live())
	assert.True(t, f.scheduler.cancelled(0))
	assert.True(t, f.scheduler.cancelled(1))
}
