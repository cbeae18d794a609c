package config

import (
	"fmt"
	"time"
)

type PoolConfig struct {
	Name          string
	CoreSize      int
	MaxSize       int
	QueueCapacity int
	// CallerRuns makes a saturated pool run the task on the submitting goroutine instead of rejecting it.
	CallerRuns bool
}

type PoolSetConfig struct {
	Media         PoolConfig
	Audio         PoolConfig
	Image         PoolConfig
	StatusMaxSize int
	IdleExpiry    time.Duration
}

func GetPoolSetConfig() (*PoolSetConfig, error) {
	media, err := getPoolConfig("media", "MEDIA", 4, 8, 100, false)
	if err != nil {
		return nil, err
	}
	audio, err := getPoolConfig("audio", "AUDIO", 2, 4, 50, false)
	if err != nil {
		return nil, err
	}
	image, err := getPoolConfig("image", "IMAGE", 10, 20, 100, true)
	if err != nil {
		return nil, err
	}
	statusMax, err := getIntEnv("STATUS_POOL_MAX", 16)
	if err != nil {
		return nil, err
	}
	if statusMax <= 0 {
		return nil, fmt.Errorf("STATUS_POOL_MAX must be positive")
	}
	idleExpiry, err := getDurationEnv("POOL_IDLE_EXPIRY", time.Minute)
	if err != nil {
		return nil, err
	}

	return &PoolSetConfig{
		Media:         media,
		Audio:         audio,
		Image:         image,
		StatusMaxSize: statusMax,
		IdleExpiry:    idleExpiry,
	}, nil
}

func getPoolConfig(name, prefix string, core, max, queue int, callerRuns bool) (PoolConfig, error) {
	cfg := PoolConfig{Name: name, CallerRuns: callerRuns}
	var err error
	if cfg.CoreSize, err = getIntEnv(prefix+"_POOL_CORE", core); err != nil {
		return cfg, err
	}
	if cfg.MaxSize, err = getIntEnv(prefix+"_POOL_MAX", max); err != nil {
		return cfg, err
	}
	if cfg.QueueCapacity, err = getIntEnv(prefix+"_POOL_QUEUE", queue); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (p PoolConfig) Validate() error {
	if p.MaxSize <= 0 {
		return fmt.Errorf("%s pool max size must be positive", p.Name)
	}
	if p.CoreSize < 0 || p.CoreSize > p.MaxSize {
		return fmt.Errorf("%s pool core size must be between 0 and %d", p.Name, p.MaxSize)
	}
	if p.QueueCapacity < 0 {
		return fmt.Errorf("%s pool queue capacity cannot be negative", p.Name)
	}
	return nil
}
