package config

import (
	"fmt"
	"os"
	"time"
)

const (
	BackendDynamo = "dynamo"
	BackendMemory = "memory"
)

type DynamoConfig struct {
	StoryStore      string
	StoryTableName  string
	StatusStore     string
	StatusTableName string
	StatusTTL       time.Duration
	// StorySeedFile preloads the memory story store from a JSON array of stories.
	StorySeedFile   string
}

func GetDynamoConfig() (*DynamoConfig, error) {
	cfg := &DynamoConfig{
		StoryStore:    getEnv("STORY_STORE", BackendDynamo),
		StatusStore:   getEnv("STATUS_STORE", BackendDynamo),
		StorySeedFile: os.Getenv("STORY_SEED_FILE"),
	}

	if cfg.StoryStore == BackendDynamo {
		cfg.StoryTableName = os.Getenv("STORY_TABLE_NAME")
		if cfg.StoryTableName == "" {
			return nil, fmt.Errorf("STORY_TABLE_NAME must be set")
		}
	}

	if cfg.StatusStore == BackendDynamo {
		cfg.StatusTableName = os.Getenv("STATUS_TABLE_NAME")
		if cfg.StatusTableName == "" {
			return nil, fmt.Errorf("STATUS_TABLE_NAME must be set")
		}
	}

	ttl, err := getDurationEnv("STATUS_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	cfg.StatusTTL = ttl

	return cfg, nil
}

func (c *DynamoConfig) NeedsSession() bool {
	return c.StoryStore == BackendDynamo || c.StatusStore == BackendDynamo
}
