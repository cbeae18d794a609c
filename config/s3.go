package config

import (
	"fmt"
	"os"
	"time"
)

type S3Config struct {
	BucketName string
	Region     string
	PresignTTL time.Duration
}

func GetS3Config() (*S3Config, error) {
	bucketName := os.Getenv("BUCKET_NAME")
	if bucketName == "" {
		return nil, fmt.Errorf("BUCKET_NAME must be set")
	}

	region := os.Getenv("REGION")
	if region == "" {
		return nil, fmt.Errorf("REGION must be set")
	}

	presignTTL, err := getDurationEnv("PRESIGN_TTL", 10*time.Minute)
	if err != nil {
		return nil, err
	}

	return &S3Config{
		BucketName: bucketName,
		Region:     region,
		PresignTTL: presignTTL,
	}, nil
}
