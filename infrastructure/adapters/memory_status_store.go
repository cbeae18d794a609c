package adapters

import (
	"context"
	"story-video-pipeline/domain"
	"sync"
	"time"
)

type memoryStatusEntry struct {
	value     string
	expiresAt time.Time
}

// sweepEvery is how many writes pass between sweeps of expired entries.
const sweepEvery = 256

type MemoryStatusStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryStatusEntry
	writes  int
}

func NewMemoryStatusStore(ttl time.Duration) *MemoryStatusStore {
	return &MemoryStatusStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryStatusEntry),
	}
}

// WithClock replaces the time source, used to exercise expiry.
func (s *MemoryStatusStore) WithClock(now func() time.Time) *MemoryStatusStore {
	s.now = now
	return s
}

func (s *MemoryStatusStore) SetVideoStatus(ctx context.Context, storyID string, status domain.VideoStatus) error {
	s.put(videoStatusKeyPrefix+storyID, string(status))
	return nil
}

func (s *MemoryStatusStore) GetVideoStatus(ctx context.Context, storyID string) (domain.VideoStatus, bool, error) {
	value, ok := s.get(videoStatusKeyPrefix + storyID)
	if !ok {
		return "", false, nil
	}
	return domain.VideoStatus(value), true, nil
}

func (s *MemoryStatusStore) SetProcessingStep(ctx context.Context, storyID string, step domain.ProcessingStep) error {
	s.put(videoProcessingKeyPrefix+storyID, string(step))
	return nil
}

func (s *MemoryStatusStore) GetProcessingStep(ctx context.Context, storyID string) (domain.ProcessingStep, error) {
	value, ok := s.get(videoProcessingKeyPrefix + storyID)
	if !ok {
		return domain.StepNone, nil
	}
	step, _ := domain.ParseProcessingStep(value)
	return step, nil
}

func (s *MemoryStatusStore) DeleteProcessingStep(ctx context.Context, storyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, videoProcessingKeyPrefix+storyID)
	return nil
}

func (s *MemoryStatusStore) put(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.entries[key] = memoryStatusEntry{value: value, expiresAt: now.Add(s.ttl)}
	s.writes++
	if s.writes%sweepEvery == 0 {
		s.sweepLocked(now)
	}
}

func (s *MemoryStatusStore) get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return "", false
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.entries, key)
		return "", false
	}
	return entry.value, true
}

// Sweep drops every expired entry.
func (s *MemoryStatusStore) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(s.now())
}

// Len counts stored entries, expired ones included.
func (s *MemoryStatusStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryStatusStore) sweepLocked(now time.Time) {
	for key, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, key)
		}
	}
}
