package outbound

import "context"

type SynthesizeSpeechRequest struct {
	StoryID   string
	SceneID   string
	AudioID   string
	Text      string
	VoiceCode string
}

type SynthesizeSpeechResponse struct {
	AudioURL    string
	ContentType string
	FileSize    int64
	ModelID     string
	Format      string
}

type SpeechSynthesizerPort interface {
	Synthesize(ctx context.Context, req SynthesizeSpeechRequest) (*SynthesizeSpeechResponse, error)
}
