package media

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"notekeeper/internal/common"
	"notekeeper/internal/platform/config"
)

// Uploader stores an image and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, filename string, r io.Reader) (string, error)
}

const DefaultMaxImageBytes int64 = 10 << 20

var (
	ErrMissingFileName = fmt.Errorf("File name is missing: %w", common.ErrValidation)
	ErrInvalidFileType = fmt.Errorf("Invalid file type: %w", common.ErrValidation)
	ErrInvalidFileSize = fmt.Errorf("Invalid file size: %w", common.ErrValidation)
	ErrFileTooLarge    = fmt.Errorf("File size too long: %w", common.ErrValidation)
)

var allowedImageExt = []string{".png", ".jpg"}

// ValidateImage checks an attachment before it is sent anywhere.
func ValidateImage(name string, size, maxSize int64) error {
	if name == "" {
		return ErrMissingFileName
	}
	ok := false
	for _, ext := range allowedImageExt {
		if strings.HasSuffix(name, ext) {
			ok = true
			break
		}
	}
	if !ok {
		return ErrInvalidFileType
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxImageBytes
	}
	switch {
	case size <= 0:
		return ErrInvalidFileSize
	case size > maxSize:
		return ErrFileTooLarge
	}
	return nil
}

func extension(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// New builds the uploader selected by MEDIA_PROVIDER.
func New(ctx context.Context, cfg *config.Config) (Uploader, error) {
	switch cfg.MediaProvider {
	case "", "cloudinary":
		return NewCloudinaryUploader(cfg.CloudinaryCloudName, cfg.CloudinaryUploadPreset, nil), nil
	case "s3":
		return NewS3Uploader(ctx, S3Options{
			Region:        cfg.S3Region,
			Endpoint:      cfg.S3Endpoint,
			Bucket:        cfg.S3Bucket,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			PublicBaseURL: cfg.S3PublicBaseURL,
		})
	default:
		return nil, fmt.Errorf("unknown media provider %q", cfg.MediaProvider)
	}
}
