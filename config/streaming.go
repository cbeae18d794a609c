package config

import "time"

type StreamingConfig struct {
	Timeout      time.Duration
	PushInterval time.Duration
}

func GetStreamingConfig() (*StreamingConfig, error) {
	timeout, err := getDurationEnv("SSE_TIMEOUT", 30*time.Minute)
	if err != nil {
		return nil, err
	}
	interval, err := getDurationEnv("SSE_PUSH_INTERVAL", time.Second)
	if err != nil {
		return nil, err
	}

	return &StreamingConfig{
		Timeout:      timeout,
		PushInterval: interval,
	}, nil
}
