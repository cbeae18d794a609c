package config

import (
	"fmt"
	"os"
)

type VideoDBConfig struct {
	Driver string
	DSN    string
}

func GetVideoDBConfig() (*VideoDBConfig, error) {
	driver := getEnv("VIDEO_DB_DRIVER", "pgx")
	if driver != "pgx" && driver != "sqlite" {
		return nil, fmt.Errorf("VIDEO_DB_DRIVER must be pgx or sqlite")
	}
	dsn := os.Getenv("VIDEO_DB_DSN")
	if dsn == "" {
		return nil, fmt.Errorf("VIDEO_DB_DSN must be set")
	}

	return &VideoDBConfig{
		Driver: driver,
		DSN:    dsn,
	}, nil
}
