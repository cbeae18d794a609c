package outbound

import "context"

// MediaEncoderPort wraps the external encoding tool. Inputs may be local paths
// or URLs the tool can stream from.
type MediaEncoderPort interface {
	EncodeAudio(ctx context.Context, input string, output string) error
	ConcatAudio(ctx context.Context, first string, second string, output string) error
	ComposeSceneClip(ctx context.Context, image string, audio string, output string) error
	ConcatClips(ctx context.Context, manifest string, output string) error
	Duration(ctx context.Context, path string) (float64, error)
}
