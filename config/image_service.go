package config

import (
	"fmt"
	"os"
	"time"
)

type ImageServiceConfig struct {
	ApiUrl  string
	ApiKey  string
	Timeout time.Duration
}

func GetImageServiceConfig() (*ImageServiceConfig, error) {
	apiUrl := os.Getenv("IMAGE_API_URL")
	if apiUrl == "" {
		return nil, fmt.Errorf("IMAGE_API_URL must be set")
	}
	apiKey := os.Getenv("IMAGE_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("IMAGE_API_KEY must be set")
	}
	timeout, err := getDurationEnv("IMAGE_TIMEOUT", 3*time.Minute)
	if err != nil {
		return nil, err
	}

	return &ImageServiceConfig{
		ApiUrl:  apiUrl,
		ApiKey:  apiKey,
		Timeout: timeout,
	}, nil
}
