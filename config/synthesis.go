package config

import (
	"fmt"
	"os"
	"time"
)

type SynthesisConfig struct {
	ApiUrl        string
	ApiPassword   string
	ActiveProfile string
	ModelId       string
	OutputFormat  string
	Timeout       time.Duration
}

func GetSynthesisConfig() (*SynthesisConfig, error) {
	apiUrl := os.Getenv("SYNTHESIS_API_URL")
	if apiUrl == "" {
		return nil, fmt.Errorf("SYNTHESIS_API_URL must be set")
	}
	apiPassword := os.Getenv("API_PASSWORD")
	if apiPassword == "" {
		return nil, fmt.Errorf("API_PASSWORD must be set")
	}
	timeout, err := getDurationEnv("SYNTHESIS_TIMEOUT", 2*time.Minute)
	if err != nil {
		return nil, err
	}

	return &SynthesisConfig{
		ApiUrl:        apiUrl,
		ApiPassword:   apiPassword,
		ActiveProfile: getEnv("ACTIVE_PROFILE", "dev"),
		ModelId:       getEnv("SYNTHESIS_MODEL_ID", "eleven_multilingual_v2"),
		OutputFormat:  getEnv("SYNTHESIS_OUTPUT_FORMAT", "mp3"),
		Timeout:       timeout,
	}, nil
}

// Credential is the derived secret the synthesis service expects in the apiPwd header.
func (c *SynthesisConfig) Credential() string {
	return c.ActiveProfile + c.ApiPassword
}
