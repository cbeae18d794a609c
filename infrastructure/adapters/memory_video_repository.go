package adapters

import (
	"context"
	"story-video-pipeline/domain"
	"sync"
)

type MemoryVideoRepository struct {
	mu     sync.RWMutex
	videos map[string]*domain.Video
}

func NewMemoryVideoRepository() *MemoryVideoRepository {
	return &MemoryVideoRepository{videos: make(map[string]*domain.Video)}
}

func (r *MemoryVideoRepository) Create(ctx context.Context, video *domain.Video) error {
	if video == nil || video.StoryID == "" {
		return domain.Validationf("video needs a story id")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.videos[video.StoryID]; exists {
		return domain.ErrConflict
	}
	cp := *video
	r.videos[video.StoryID] = &cp
	return nil
}

func (r *MemoryVideoRepository) GetByStoryID(ctx context.Context, storyID string) (*domain.Video, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	video, ok := r.videos[storyID]
	if !ok {
		return nil, domain.NotFoundf("video for story %s", storyID)
	}
	cp := *video
	return &cp, nil
}

func (r *MemoryVideoRepository) Update(ctx context.Context, video *domain.Video) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.videos[video.StoryID]; !ok {
		return domain.NotFoundf("video for story %s", video.StoryID)
	}
	cp := *video
	r.videos[video.StoryID] = &cp
	return nil
}
