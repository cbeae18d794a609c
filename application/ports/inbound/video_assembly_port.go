package inbound

import (
	"context"
	"story-video-pipeline/channel_utils"
)

type VideoAssemblyPort interface {
	MergeAudioFiles(ctx context.Context, workDir string, urls []string) (string, error)
	CreateVideoFromImageAndAudio(ctx context.Context, workDir string, imageURL string, mergedAudioPath string) (string, error)
	MergeVideos(ctx context.Context, clipPaths []string) (string, error)
	CreateFinalVideo(ctx context.Context, storyID string) (string, error)
	CreateAndUploadVideo(ctx context.Context, storyID string) (string, error)
	// RenderStory runs CreateAndUploadVideo off the caller and drives the video to a terminal status.
	RenderStory(ctx context.Context, storyID string) *channel_utils.Future[string]
}
