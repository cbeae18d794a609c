package adapters

import (
	"bytes"
	"context"
	"os/exec"
	"story-video-pipeline/application/ports/outbound"
	"story-video-pipeline/domain"
	"strconv"
	"strings"
)

const (
	audioConcatFilter = "[0:a][1:a]concat=n=2:v=0:a=1[outa]"
	// Fits the still image into 1080x1920 keeping its aspect ratio and pads the rest with white.
	sceneClipFilter = "[0:v]scale=iw*min(1080/iw\\,1920/ih):ih*min(1080/iw\\,1920/ih)," +
		"pad=1080:1920:(1080-iw*min(1080/iw\\,1920/ih))/2:(1920-ih*min(1080/iw\\,1920/ih))/2:white," +
		"format=yuv420p[outv]"
)

type ffmpegMediaEncoder struct {
	ffmpegPath  string
	ffprobePath string
	logger      outbound.LoggerPort
}

// NewFFmpegMediaEncoder shells out to ffmpeg; ffprobe is expected next to it.
func NewFFmpegMediaEncoder(ffmpegPath string, logger outbound.LoggerPort) outbound.MediaEncoderPort {
	ffprobePath := "ffprobe"
	if strings.HasSuffix(ffmpegPath, "ffmpeg") && ffmpegPath != "ffmpeg" {
		ffprobePath = strings.TrimSuffix(ffmpegPath, "ffmpeg") + "ffprobe"
	}
	return &ffmpegMediaEncoder{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		logger:      logger,
	}
}

func (f *ffmpegMediaEncoder) EncodeAudio(ctx context.Context, input string, output string) error {
	return f.run(ctx, "encode audio",
		"-y", "-i", input,
		"-vn", "-c:a", "libmp3lame", "-q:a", "2",
		output)
}

func (f *ffmpegMediaEncoder) ConcatAudio(ctx context.Context, first string, second string, output string) error {
	return f.run(ctx, "concat audio",
		"-y", "-i", first, "-i", second,
		"-filter_complex", audioConcatFilter,
		"-map", "[outa]",
		"-c:a", "libmp3lame", "-q:a", "2",
		output)
}

func (f *ffmpegMediaEncoder) ComposeSceneClip(ctx context.Context, image string, audio string, output string) error {
	return f.run(ctx, "compose scene clip",
		"-y", "-loop", "1", "-i", image, "-i", audio,
		"-filter_complex", sceneClipFilter,
		"-map", "[outv]", "-map", "1:a",
		"-c:v", "libx264", "-tune", "stillimage", "-r", "30",
		"-c:a", "aac", "-b:a", "192k", "-ar", "44100",
		"-shortest", "-movflags", "+faststart",
		output)
}

func (f *ffmpegMediaEncoder) ConcatClips(ctx context.Context, manifest string, output string) error {
	return f.run(ctx, "concat clips",
		"-y", "-f", "concat", "-safe", "0", "-i", manifest,
		"-c", "copy",
		output)
}

// Duration returns the container duration in seconds as reported by ffprobe.
func (f *ffmpegMediaEncoder) Duration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, f.ffprobePath, "-v", "error", "-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1", path)

	out, err := cmd.Output()
	if err != nil {
		f.logger.ErrorWithFields(err, "error getting media duration", map[string]interface{}{
			"path": path,
		})
		return 0, domain.IOErrorf(err, "probe %s", path)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, domain.IOErrorf(err, "parse duration of %s", path)
	}
	return duration, nil
}

func (f *ffmpegMediaEncoder) run(ctx context.Context, action string, args ...string) error {
	cmd := exec.CommandContext(ctx, f.ffmpegPath, append([]string{"-hide_banner", "-loglevel", "error"}, args...)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		f.logger.ErrorWithFields(err, "ffmpeg failed", map[string]interface{}{
			"action": action,
			"stderr": strings.TrimSpace(stderr.String()),
		})
		return domain.IOErrorf(err, "ffmpeg %s: %s", action, strings.TrimSpace(stderr.String()))
	}
	return nil
}
