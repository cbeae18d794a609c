package workerpool

import (
	"errors"
	"story-video-pipeline/application/ports/outbound"
	"story-video-pipeline/config"
	"time"
)

// PoolSet groups the process-wide pools. It is built once at startup and its
// members are passed to the stages that need them.
type PoolSet struct {
	Media  *Pool
	Audio  *Pool
	Image  *Pool
	Status *Scheduler
}

func NewPoolSet(cfg *config.PoolSetConfig, logger outbound.LoggerPort) (*PoolSet, error) {
	media, err := NewPool(cfg.Media, cfg.IdleExpiry, logger)
	if err != nil {
		return nil, err
	}
	audio, err := NewPool(cfg.Audio, cfg.IdleExpiry, logger)
	if err != nil {
		_ = media.Close(0)
		return nil, err
	}
	image, err := NewPool(cfg.Image, cfg.IdleExpiry, logger)
	if err != nil {
		_ = media.Close(0)
		_ = audio.Close(0)
		return nil, err
	}
	status, err := NewScheduler(cfg.StatusMaxSize, cfg.IdleExpiry, logger)
	if err != nil {
		_ = media.Close(0)
		_ = audio.Close(0)
		_ = image.Close(0)
		return nil, err
	}

	return &PoolSet{
		Media:  media,
		Audio:  audio,
		Image:  image,
		Status: status,
	}, nil
}

func (s *PoolSet) Close(timeout time.Duration) error {
	return errors.Join(
		s.Status.Close(timeout),
		s.Media.Close(timeout),
		s.Audio.Close(timeout),
		s.Image.Close(timeout),
	)
}
