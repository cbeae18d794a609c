package adapters

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"story-video-pipeline/application/ports/outbound"
	"story-video-pipeline/config"
	"story-video-pipeline/domain"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

const s3HostMarker = ".amazonaws.com/"

type s3ObjectStorage struct {
	logger   outbound.LoggerPort
	s3Svc    s3iface.S3API
	s3Config *config.S3Config
}

func NewS3ObjectStorage(logger outbound.LoggerPort, s3Svc s3iface.S3API, s3Config *config.S3Config) outbound.ObjectStoragePort {
	return &s3ObjectStorage{
		logger:   logger,
		s3Svc:    s3Svc,
		s3Config: s3Config,
	}
}

func (s *s3ObjectStorage) Upload(ctx context.Context, localPath string, key string) (string, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return "", domain.IOErrorf(err, "open %s for upload", localPath)
	}
	defer func(file *os.File) {
		if err := file.Close(); err != nil {
			s.logger.Error(err, "Failed to close upload file")
		}
	}(file)

	putInput := &s3.PutObjectInput{
		Bucket: aws.String(s.s3Config.BucketName),
		Key:    aws.String(key),
		Body:   file,
	}
	if contentType := mime.TypeByExtension(filepath.Ext(localPath)); contentType != "" {
		putInput.ContentType = aws.String(contentType)
	}

	_, err = s.s3Svc.PutObjectWithContext(ctx, putInput)
	if err != nil {
		s.logger.ErrorWithFields(err, "Failed to upload object to S3", map[string]interface{}{
			"bucket": s.s3Config.BucketName,
			"key":    key,
		})
		return "", domain.IOErrorf(err, "upload %s", key)
	}

	url := s.ObjectURL(key)
	s.logger.DebugWithFields("Successfully uploaded object to S3", map[string]interface{}{
		"url": url,
	})
	return url, nil
}

func (s *s3ObjectStorage) PresignGet(key string, ttl time.Duration) (string, error) {
	req, _ := s.s3Svc.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.s3Config.BucketName),
		Key:    aws.String(key),
	})
	url, err := req.Presign(ttl)
	if err != nil {
		s.logger.ErrorWithFields(err, "Failed to presign object", map[string]interface{}{
			"key": key,
		})
		return "", err
	}
	return url, nil
}

func (s *s3ObjectStorage) ObjectURL(key string) string {
	return ObjectURL(s.s3Config.BucketName, s.s3Config.Region, key)
}

func (s *s3ObjectStorage) KeyFromURL(url string) (string, error) {
	return KeyFromURL(url)
}

// ObjectURL renders the public URL format other components parse back with KeyFromURL.
func ObjectURL(bucket, region, key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, key)
}

func KeyFromURL(url string) (string, error) {
	_, key, found := strings.Cut(url, s3HostMarker)
	if !found || key == "" {
		return "", domain.Validationf("not an object storage url: %s", url)
	}
	if idx := strings.IndexByte(key, '?'); idx >= 0 {
		key = key[:idx]
	}
	return key, nil
}
