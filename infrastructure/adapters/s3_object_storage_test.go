package adapters

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"story-video-pipeline/config"
	"story-video-pipeline/domain"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	s3iface.S3API
	key         string
	body        string
	contentType string
	err         error
}

func (f *fakeS3) PutObjectWithContext(_ aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.key = aws.StringValue(in.Key)
	f.body = string(body)
	f.contentType = aws.StringValue(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func testS3Config() *config.S3Config {
	return &config.S3Config{BucketName: "story-media", Region: "ap-northeast-2", PresignTTL: 10 * time.Minute}
}

func TestObjectURLRoundTrip(t *testing.T) {
	url := ObjectURL("story-media", "ap-northeast-2", "00000042/videos/00000042_20250301_093000.mp4")
	assert.Equal(t, "https://story-media.s3.ap-northeast-2.amazonaws.com/00000042/videos/00000042_20250301_093000.mp4", url)

	key, err := KeyFromURL(url)
	require.NoError(t, err)
	assert.Equal(t, "00000042/videos/00000042_20250301_093000.mp4", key)

	key, err = KeyFromURL(url + "?X-Amz-Expires=600")
	require.NoError(t, err)
	assert.Equal(t, "00000042/videos/00000042_20250301_093000.mp4", key)

	_, err = KeyFromURL("/tmp/local.mp3")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestS3ObjectStorage_Upload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "final.mp4")
	require.NoError(t, os.WriteFile(path, []byte("video"), 0o644))

	fake := &fakeS3{}
	storage := NewS3ObjectStorage(NewNopLogger(), fake, testS3Config())

	url, err := storage.Upload(context.Background(), path, "00000042/videos/a.mp4")
	require.NoError(t, err)
	assert.Equal(t, "https://story-media.s3.ap-northeast-2.amazonaws.com/00000042/videos/a.mp4", url)
	assert.Equal(t, "video", fake.body)

	_, err = storage.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"), "k")
	assert.ErrorIs(t, err, domain.ErrIO)
}

func TestS3ObjectStorage_PresignGet(t *testing.T) {
	sess, err := session.NewSession(&aws.Config{
		Region:      aws.String("ap-northeast-2"),
		Credentials: credentials.NewStaticCredentials("AKIDEXAMPLE", "secret", ""),
	})
	require.NoError(t, err)

	storage := NewS3ObjectStorage(NewNopLogger(), s3.New(sess), testS3Config())

	signed, err := storage.PresignGet("audio/1/1.mp3", 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(signed, "https://story-media.s3.ap-northeast-2.amazonaws.com/audio/1/1.mp3?"), signed)
	assert.Contains(t, signed, "X-Amz-Expires=600")

	key, err := storage.KeyFromURL(signed)
	require.NoError(t, err)
	assert.Equal(t, "audio/1/1.mp3", key)
}
