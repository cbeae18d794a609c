package domain

import (
	"strings"
	"time"
)

type AudioType string

const (
	NarrationAudioType AudioType = "narration"
	DialogueAudioType  AudioType = "dialogue"
	SoundAudioType     AudioType = "sound"
)

// Story is the read-mostly document the pipeline works on. The audio and image
// stages only ever mutate it through targeted partial updates.
type Story struct {
	ID                 string
	Title              string
	NarrationVoiceCode string
	Characters         []Character
	Scenes             []Scene
}

type Character struct {
	Name        string
	Gender      string
	Description string
	VoiceCode   string
}

// GenderCode maps the free-text gender label to the numeric code the image
// service understands: 0 for male, 1 for female. The second result is false
// when the label is not recognized.
func (c Character) GenderCode() (int, bool) {
	switch strings.ToLower(strings.TrimSpace(c.Gender)) {
	case "남성", "남자", "1", "male", "m":
		return 0, true
	case "여성", "여자", "2", "female", "f":
		return 1, true
	default:
		return 0, false
	}
}

type Scene struct {
	ID          string
	ImageURL    string
	ImagePrompt string
	AudioUnits  []AudioUnit
}

func (s Scene) HasImage() bool {
	return s.ImageURL != ""
}

// AudioComplete reports whether every unit of the scene already carries a
// synthesized asset. A scene without units is never complete.
func (s Scene) AudioComplete() bool {
	if len(s.AudioUnits) == 0 {
		return false
	}
	for _, unit := range s.AudioUnits {
		if !unit.HasAudio() {
			return false
		}
	}
	return true
}

type AudioUnit struct {
	ID        string
	Type      AudioType
	Character string
	Text      string
	Emotion   string
	AudioSynthesis
}

func (a AudioUnit) HasAudio() bool {
	return a.AudioURL != ""
}

// AudioSynthesis holds the fields written back once a unit has been synthesized.
type AudioSynthesis struct {
	AudioURL      string
	ContentType   string
	FileSize      int64
	ModelID       string
	AudioSettings string
	VoiceCode     string
}

type ImageResult struct {
	SceneID  string
	ImageURL string
	Prompt   string
}

type Video struct {
	StoryID      string
	Status       VideoStatus
	VideoURL     string
	PublishedURL string
	ErrorMessage string
	CreatedAt    time.Time
	CompletedAt  *time.Time
}

func NewPendingVideo(storyID string, now time.Time) *Video {
	return &Video{
		StoryID:   storyID,
		Status:    VideoStatusPending,
		CreatedAt: now,
	}
}

// StatusView is the snapshot pushed to subscribers and served by the polling endpoint.
type StatusView struct {
	StoryID                   string         `json:"story_id"`
	Status                    VideoStatus    `json:"status"`
	ProcessingStep            ProcessingStep `json:"processing_step,omitempty"`
	ProcessingStepDescription string         `json:"processing_step_description,omitempty"`
	VideoURL                  string         `json:"video_url,omitempty"`
	ErrorMessage              string         `json:"error_message,omitempty"`
	CreatedAt                 *time.Time     `json:"created_at,omitempty"`
	CompletedAt               *time.Time     `json:"completed_at,omitempty"`
}

func (v StatusView) Terminal() bool {
	return v.Status.Terminal()
}

type SceneOutcome struct {
	SceneID      string
	AudioSkipped bool
	ImageSkipped bool
	Audio        AudioStageResult
	Image        ImageResult
	// Err is set when the scene job itself could not run, e.g. its pool rejected it.
	Err      error
	AudioErr error
	ImageErr error
}

func (o SceneOutcome) Failed() bool {
	return o.Err != nil || o.AudioErr != nil || o.ImageErr != nil || o.Audio.Failed > 0
}

type AudioStageResult struct {
	Attempted   int
	Synthesized int
	Failed      int
}

// MediaReport is what a story-level media run resolves to once every scene has settled.
type MediaReport struct {
	StoryID string
	Scenes  []SceneOutcome
}

func (r MediaReport) FailedScenes() []string {
	var failed []string
	for _, s := range r.Scenes {
		if s.Failed() {
			failed = append(failed, s.SceneID)
		}
	}
	return failed
}
