package workerpool

import (
	"fmt"
	"story-video-pipeline/application/ports/outbound"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
)

// Scheduler runs periodic tasks on its own small ants pool so that periodic
// status pushes never compete with generation work for workers.
type Scheduler struct {
	pool   *ants.Pool
	logger outbound.LoggerPort

	mu     sync.Mutex
	nextID uint64
	stops  map[uint64]func()
}

func NewScheduler(size int, idleExpiry time.Duration, logger outbound.LoggerPort) (*Scheduler, error) {
	pool, err := ants.NewPool(size,
		ants.WithNonblocking(true),
		ants.WithExpiryDuration(idleExpiry),
		ants.WithPanicHandler(func(p interface{}) {
			logger.Error(fmt.Errorf("%v", p), "Panic in scheduled task")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler pool: %w", err)
	}

	return &Scheduler{
		pool:   pool,
		logger: logger,
		stops:  make(map[uint64]func()),
	}, nil
}

// ScheduleAtFixedRate skips a tick while the previous run of the same task is still in flight.
func (s *Scheduler) ScheduleAtFixedRate(interval time.Duration, task func()) (cancel func()) {
	stop := make(chan struct{})
	var once sync.Once

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	cancel = func() {
		once.Do(func() {
			close(stop)
			s.mu.Lock()
			delete(s.stops, id)
			s.mu.Unlock()
		})
	}
	s.stops[id] = cancel
	s.mu.Unlock()

	var running atomic.Bool
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if !running.CompareAndSwap(false, true) {
					continue
				}
				err := s.pool.Submit(func() {
					defer running.Store(false)
					select {
					case <-stop:
						return
					default:
					}
					task()
				})
				if err != nil {
					running.Store(false)
					s.logger.Warn("Scheduler pool busy, skipping tick: " + err.Error())
				}
			}
		}
	}()

	return cancel
}

func (s *Scheduler) Scheduled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stops)
}

func (s *Scheduler) Close(timeout time.Duration) error {
	s.mu.Lock()
	stops := make([]func(), 0, len(s.stops))
	for _, stop := range s.stops {
		stops = append(stops, stop)
	}
	s.mu.Unlock()

	for _, stop := range stops {
		stop()
	}
	return s.pool.ReleaseTimeout(timeout)
}
