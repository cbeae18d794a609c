package config

import (
	"fmt"
	"os"
	"time"
	_ "time/tzdata"
)

type AssemblyConfig struct {
	WorkDir    string
	FFmpegPath string
	Location   *time.Location
}

func GetAssemblyConfig() (*AssemblyConfig, error) {
	zone := getEnv("VIDEO_TIMEZONE", "Asia/Seoul")
	location, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("failed to load VIDEO_TIMEZONE %s: %w", zone, err)
	}

	return &AssemblyConfig{
		WorkDir:    getEnv("WORK_DIR", os.TempDir()),
		FFmpegPath: getEnv("FFMPEG_PATH", "ffmpeg"),
		Location:   location,
	}, nil
}
