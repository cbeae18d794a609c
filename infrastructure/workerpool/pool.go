package workerpool

import (
	"errors"
	"fmt"
	"story-video-pipeline/application/ports/outbound"
	"story-video-pipeline/config"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
)

var (
	ErrPoolSaturated = errors.New("worker pool saturated")
	ErrPoolClosed    = errors.New("worker pool closed")
)

// Pool is a named, bounded task pool. Tasks wait in a queue of fixed capacity
// and are handed to an ants pool capped at the configured max size. When the
// queue is full the pool either rejects the task or runs it on the caller.
type Pool struct {
	name       string
	pool       *ants.Pool
	queue      chan func()
	callerRuns bool
	logger     outbound.LoggerPort

	mu         sync.RWMutex
	closed     bool
	dispatched chan struct{}
}

func NewPool(cfg config.PoolConfig, idleExpiry time.Duration, logger outbound.LoggerPort) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	panicHandler := func(p interface{}) {
		logger.ErrorWithFields(fmt.Errorf("%v", p), "Panic in worker pool", map[string]interface{}{
			"pool": cfg.Name,
		})
	}

	antsPool, err := ants.NewPool(cfg.MaxSize,
		ants.WithExpiryDuration(idleExpiry),
		ants.WithPanicHandler(panicHandler),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s pool: %w", cfg.Name, err)
	}

	p := &Pool{
		name:       cfg.Name,
		pool:       antsPool,
		queue:      make(chan func(), cfg.QueueCapacity),
		callerRuns: cfg.CallerRuns,
		logger:     logger,
		dispatched: make(chan struct{}),
	}
	go p.dispatch()

	logger.InfoWithFields("Worker pool started", map[string]interface{}{
		"pool":        cfg.Name,
		"core_size":   cfg.CoreSize,
		"max_size":    cfg.MaxSize,
		"queue":       cfg.QueueCapacity,
		"caller_runs": cfg.CallerRuns,
	})

	return p, nil
}

func (p *Pool) Name() string {
	return p.name
}

// Submit never drops a task silently: it is queued, run on the caller, or rejected with ErrPoolSaturated.
func (p *Pool) Submit(task func()) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return fmt.Errorf("%w: %s", ErrPoolClosed, p.name)
	}
	select {
	case p.queue <- task:
		p.mu.RUnlock()
		return nil
	default:
	}
	p.mu.RUnlock()

	if p.callerRuns {
		p.logger.DebugWithFields("Pool saturated, running task on caller", map[string]interface{}{
			"pool": p.name,
		})
		task()
		return nil
	}

	p.logger.WarnWithFields("Pool saturated, rejecting task", map[string]interface{}{
		"pool":    p.name,
		"running": p.pool.Running(),
		"queued":  len(p.queue),
	})
	return fmt.Errorf("%w: %s", ErrPoolSaturated, p.name)
}

func (p *Pool) dispatch() {
	defer close(p.dispatched)
	for task := range p.queue {
		if err := p.pool.Submit(task); err != nil {
			p.logger.ErrorWithFields(err, "Failed to hand task to workers, running inline", map[string]interface{}{
				"pool": p.name,
			})
			task()
		}
	}
}

func (p *Pool) Running() int {
	return p.pool.Running()
}

func (p *Pool) Queued() int {
	return len(p.queue)
}

// Close stops accepting tasks, lets queued tasks reach the workers and waits up to timeout for them.
func (p *Pool) Close(timeout time.Duration) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	<-p.dispatched
	return p.pool.ReleaseTimeout(timeout)
}
