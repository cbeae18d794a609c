package services

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"story-video-pipeline/application/ports/outbound"
	"story-video-pipeline/config"
	"story-video-pipeline/domain"
	"story-video-pipeline/infrastructure/adapters"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
)

const (
	testBucket = "story-media"
	testRegion = "ap-northeast-2"
)

var errBoom = errors.New("boom")

func objectURL(key string) string {
	return adapters.ObjectURL(testBucket, testRegion, key)
}

type mockSynthesizer struct {
	mock.Mock
}

func (m *mockSynthesizer) Synthesize(ctx context.Context, req outbound.SynthesizeSpeechRequest) (*outbound.SynthesizeSpeechResponse, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*outbound.SynthesizeSpeechResponse)
	return res, args.Error(1)
}

// audioIDs returns the unit ids of every Synthesize call in call order.
func (m *mockSynthesizer) audioIDs() []string {
	var ids []string
	for _, call := range m.Calls {
		ids = append(ids, call.Arguments.Get(1).(outbound.SynthesizeSpeechRequest).AudioID)
	}
	return ids
}

func synthesized(sceneID, audioID string) *outbound.SynthesizeSpeechResponse {
	return &outbound.SynthesizeSpeechResponse{
		AudioURL:    objectURL(fmt.Sprintf("audio/%s/%s.mp3", sceneID, audioID)),
		ContentType: "audio/mpeg",
		FileSize:    1024,
		ModelID:     "eleven_multilingual_v2",
		Format:      "mp3",
	}
}

type mockImageGenerator struct {
	mock.Mock
}

func (m *mockImageGenerator) Generate(ctx context.Context, req outbound.GenerateImageRequest) (*domain.ImageResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*domain.ImageResult)
	return res, args.Error(1)
}

func generatedImage(sceneID string) *domain.ImageResult {
	return &domain.ImageResult{
		SceneID:  sceneID,
		ImageURL: objectURL("images/" + sceneID + ".png"),
		Prompt:   "a fox in the snow",
	}
}

type rejectingDispatcher struct{}

func (rejectingDispatcher) Submit(func()) error {
	return errors.New("pool saturated")
}

// failingImageStore fails every image update and passes everything else through.
type failingImageStore struct {
	*adapters.MemoryStoryStore
}

func (failingImageStore) UpdateSceneImage(context.Context, string, string, domain.ImageResult) error {
	return errBoom
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.StepChangedEvent
}

func (p *recordingPublisher) PublishStepChanged(ctx context.Context, event domain.StepChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) steps() []domain.ProcessingStep {
	p.mu.Lock()
	defer p.mu.Unlock()
	steps := make([]domain.ProcessingStep, 0, len(p.events))
	for _, e := range p.events {
		steps = append(steps, e.Step)
	}
	return steps
}

// fakeScheduler holds periodic tasks until the test fires them.
type fakeScheduler struct {
	mu    sync.Mutex
	tasks []*scheduledTask
}

type scheduledTask struct {
	interval  time.Duration
	run       func()
	cancelled bool
}

func (s *fakeScheduler) ScheduleAtFixedRate(interval time.Duration, task func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := &scheduledTask{interval: interval, run: task}
	s.tasks = append(s.tasks, st)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		st.cancelled = true
	}
}

func (s *fakeScheduler) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// tick runs every task that is still scheduled.
func (s *fakeScheduler) tick() {
	s.mu.Lock()
	var live []func()
	for _, t := range s.tasks {
		if !t.cancelled {
			live = append(live, t.run)
		}
	}
	s.mu.Unlock()
	for _, run := range live {
		run()
	}
}

func (s *fakeScheduler) cancelled(i int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks[i].cancelled
}

// fakeEncoder writes readable text instead of media so tests can follow the
// data through every encoding step.
type fakeEncoder struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
}

func (e *fakeEncoder) record(action string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, action)
	return e.fail[action]
}

func (e *fakeEncoder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

func (e *fakeEncoder) EncodeAudio(ctx context.Context, input string, output string) error {
	if err := e.record("encode"); err != nil {
		return err
	}
	return os.WriteFile(output, []byte(input), 0o644)
}

func (e *fakeEncoder) ConcatAudio(ctx context.Context, first string, second string, output string) error {
	if err := e.record("concat"); err != nil {
		return err
	}
	head, err := os.ReadFile(first)
	if err != nil {
		return err
	}
	return os.WriteFile(output, []byte(string(head)+"|"+second), 0o644)
}

func (e *fakeEncoder) ComposeSceneClip(ctx context.Context, image string, audio string, output string) error {
	if err := e.record("compose"); err != nil {
		return err
	}
	track, err := os.ReadFile(audio)
	if err != nil {
		return err
	}
	return os.WriteFile(output, []byte("["+image+" + "+string(track)+"]"), 0o644)
}

func (e *fakeEncoder) ConcatClips(ctx context.Context, manifest string, output string) error {
	if err := e.record("clips"); err != nil {
		return err
	}
	file, err := os.Open(manifest)
	if err != nil {
		return err
	}
	defer file.Close()

	var parts []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		path := strings.TrimSuffix(strings.TrimPrefix(scanner.Text(), "file '"), "'")
		path = strings.ReplaceAll(path, `'\''`, "'")
		clip, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		parts = append(parts, string(clip))
	}
	return os.WriteFile(output, []byte(strings.Join(parts, "\n")), 0o644)
}

func (e *fakeEncoder) Duration(ctx context.Context, path string) (float64, error) {
	return 0, nil
}

type uploadedObject struct {
	key     string
	content string
}

// fakeStorage presigns by appending a marker and remembers what was uploaded.
type fakeStorage struct {
	mu        sync.Mutex
	uploads   []uploadedObject
	uploadErr error
	// started, when set, receives one value per Upload call; gate holds uploads until closed.
	started chan struct{}
	gate    chan struct{}
}

func (s *fakeStorage) Upload(ctx context.Context, localPath string, key string) (string, error) {
	content, err := os.ReadFile(localPath)
	if err != nil {
		return "", err
	}
	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.gate != nil {
		<-s.gate
	}
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads = append(s.uploads, uploadedObject{key: key, content: string(content)})
	return objectURL(key), nil
}

func (s *fakeStorage) PresignGet(key string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("%s?signed=%d", objectURL(key), int(ttl.Seconds())), nil
}

func (s *fakeStorage) ObjectURL(key string) string {
	return objectURL(key)
}

func (s *fakeStorage) KeyFromURL(url string) (string, error) {
	return adapters.KeyFromURL(url)
}

func (s *fakeStorage) uploaded() []uploadedObject {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uploadedObject(nil), s.uploads...)
}

func testPoolSetConfig() *config.PoolSetConfig {
	return &config.PoolSetConfig{
		Media:         config.PoolConfig{Name: "media", CoreSize: 2, MaxSize: 4, QueueCapacity: 10},
		Audio:         config.PoolConfig{Name: "audio", CoreSize: 1, MaxSize: 2, QueueCapacity: 10},
		Image:         config.PoolConfig{Name: "image", CoreSize: 2, MaxSize: 4, QueueCapacity: 10, CallerRuns: true},
		StatusMaxSize: 2,
		IdleExpiry:    time.Second,
	}
}
