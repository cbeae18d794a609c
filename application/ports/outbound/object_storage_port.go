package outbound

import (
	"context"
	"time"
)

type ObjectStoragePort interface {
	Upload(ctx context.Context, localPath string, key string) (string, error)
	PresignGet(key string, ttl time.Duration) (string, error)
	ObjectURL(key string) string
	KeyFromURL(url string) (string, error)
}
