package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/resepia/backend/config"
	"github.com/resepia/backend/internal/metrics"
)

// ObjectStore is the blob storage behind recipe images
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body []byte) (publicURL string, err error)
	Delete(ctx context.Context, key string) error
}

// S3Store stores objects in an S3 (or S3-compatible) bucket
type S3Store struct {
	s3 *config.S3Config
}

var _ ObjectStore = (*S3Store)(nil)

func NewS3Store(s3Config *config.S3Config) *S3Store {
	return &S3Store{s3: s3Config}
}

func (s *S3Store) Put(ctx context.Context, key, contentType string, body []byte) (string, error) {
	_, err := s.s3.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.s3.BucketName),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
		CacheControl:  aws.String("public, max-age=31536000"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return s.s3.PublicURL(key), nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.s3.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.s3.BucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// ImageUpload is an image file received with a recipe form
type ImageUpload struct {
	Filename string
	Size     int64
	Body     io.Reader
}

// StoredImage is where an upload ended up
type StoredImage struct {
	Key string
	URL string
}

// ImageService validates recipe images and writes them to the object store
type ImageService struct {
	store    ObjectStore
	maxBytes int64
	now      func() time.Time
	metrics  *metrics.Collector
	logger   *zap.Logger
}

func NewImageService(store ObjectStore, maxBytes int64, m *metrics.Collector, log *zap.Logger) *ImageService {
	return &ImageService{
		store:    store,
		maxBytes: maxBytes,
		now:      time.Now,
		metrics:  m,
		logger:   log,
	}
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeFilename keeps the base name and replaces anything outside [A-Za-z0-9._-]
func SanitizeFilename(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	base = unsafeFilenameChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	if base == "" {
		return "image"
	}
	if len(base) > 100 {
		base = base[len(base)-100:]
	}
	return base
}

// ObjectKey builds public/<folder>/<unix_ms>_<filename>
func ObjectKey(folder uuid.UUID, filename string, at time.Time) string {
	return fmt.Sprintf("public/%s/%d_%s", folder, at.UnixMilli(), SanitizeFilename(filename))
}

// Upload checks size and content type, then stores the image under folder
func (s *ImageService) Upload(ctx context.Context, folder uuid.UUID, img *ImageUpload) (*StoredImage, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("image uploads: %w", ErrNotConfigured)
	}
	if img.Size > s.maxBytes {
		return nil, invalid("image", fmt.Sprintf("must be at most %d bytes", s.maxBytes))
	}

	data, err := io.ReadAll(io.LimitReader(img.Body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, invalid("image", fmt.Sprintf("must be at most %d bytes", s.maxBytes))
	}
	if len(data) == 0 {
		return nil, invalid("image", "is empty")
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		s.metrics.ImageUpload("rejected")
		return nil, invalid("image", "must be an image file")
	}

	key := ObjectKey(folder, img.Filename, s.now())
	url, err := s.store.Put(ctx, key, contentType, data)
	if err != nil {
		s.metrics.ImageUpload("failed")
		return nil, err
	}
	s.metrics.ImageUpload("stored")
	s.logger.Info("Recipe image stored", zap.String("key", key), zap.Int("bytes", len(data)))
	return &StoredImage{Key: key, URL: url}, nil
}

// Remove deletes a stored image; failures are logged only
func (s *ImageService) Remove(ctx context.Context, key string) {
	if s == nil || s.store == nil || key == "" {
		return
	}
	if err := s.store.Delete(ctx, key); err != nil {
		s.logger.Warn("Failed to delete recipe image", zap.String("key", key), zap.Error(err))
	}
}
