package adapters

import (
	"context"
	"story-video-pipeline/domain"
	"sync"
)

// MemoryStoryStore is a story store for local runs and tests. Updates lock the
// whole map but touch only the addressed scene or unit.
type MemoryStoryStore struct {
	mu      sync.RWMutex
	stories map[string]*domain.Story
}

func NewMemoryStoryStore(stories ...*domain.Story) *MemoryStoryStore {
	s := &MemoryStoryStore{stories: make(map[string]*domain.Story)}
	for _, story := range stories {
		s.Put(story)
	}
	return s
}

func (s *MemoryStoryStore) Put(story *domain.Story) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stories[story.ID] = copyStory(story)
}

func (s *MemoryStoryStore) GetStory(ctx context.Context, storyID string) (*domain.Story, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	story, ok := s.stories[storyID]
	if !ok {
		return nil, domain.NotFoundf("story %s", storyID)
	}
	return copyStory(story), nil
}

func (s *MemoryStoryStore) ListScenes(ctx context.Context, storyID string) ([]domain.Scene, error) {
	story, err := s.GetStory(ctx, storyID)
	if err != nil {
		return nil, err
	}
	return story.Scenes, nil
}

func (s *MemoryStoryStore) UpdateSceneImage(ctx context.Context, storyID string, sceneID string, image domain.ImageResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	story, ok := s.stories[storyID]
	if !ok {
		return domain.NotFoundf("story %s", storyID)
	}
	scene, _, err := story.FindScene(sceneID)
	if err != nil {
		return err
	}
	scene.ImageURL = image.ImageURL
	scene.ImagePrompt = image.Prompt
	return nil
}

func (s *MemoryStoryStore) UpdateAudioUnit(ctx context.Context, storyID string, sceneID string, audioID string, synthesis domain.AudioSynthesis) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	story, ok := s.stories[storyID]
	if !ok {
		return domain.NotFoundf("story %s", storyID)
	}
	scene, _, err := story.FindScene(sceneID)
	if err != nil {
		return err
	}
	unit, _, err := scene.FindAudioUnit(audioID)
	if err != nil {
		return err
	}
	unit.AudioSynthesis = synthesis
	return nil
}

func copyStory(story *domain.Story) *domain.Story {
	cp := *story
	cp.Characters = append([]domain.Character(nil), story.Characters...)
	cp.Scenes = make([]domain.Scene, len(story.Scenes))
	for i, scene := range story.Scenes {
		cp.Scenes[i] = scene
		cp.Scenes[i].AudioUnits = append([]domain.AudioUnit(nil), scene.AudioUnits...)
	}
	return &cp
}
