// File: internal/media/service.go
package media

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Kind classifies stored media objects.
type Kind string

const (
	KindPhoto Kind = "photo"
	KindVideo Kind = "video"
)

// Object describes a stored media file.
type Object struct {
	Path      string `json:"path"`       // storage key relative to the media root
	PublicURL string `json:"public_url"` // fully qualified download URL
	Kind      Kind   `json:"kind"`
}

// Service stores request photos and videos on local disk under per-owner
// directories and serves them through a public base URL.
type Service struct {
	storagePath string
	baseURL     string
	maxSize     int64
	logger      *zap.Logger
}

// NewService creates a media service rooted at storagePath.
func NewService(storagePath, baseURL string, maxSizeMB int, logger *zap.Logger) (*Service, error) {
	if storagePath == "" {
		return nil, fmt.Errorf("storage path cannot be empty")
	}
	if err := os.MkdirAll(storagePath, os.ModePerm); err != nil {
		logger.Error("Failed to create storage path directory", zap.String("path", storagePath), zap.Error(err))
		return nil, fmt.Errorf("failed to create storage path %s: %w", storagePath, err)
	}
	logger.Info("Media service initialized", zap.String("storagePath", storagePath))
	return &Service{
		storagePath: storagePath,
		baseURL:     strings.TrimRight(baseURL, "/"),
		maxSize:     int64(maxSizeMB) << 20,
		logger:      logger,
	}, nil
}

// ClassifyContentType maps a MIME type to a media kind.
func ClassifyContentType(contentType string) (Kind, error) {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return KindPhoto, nil
	case strings.HasPrefix(contentType, "video/"):
		return KindVideo, nil
	default:
		return "", fmt.Errorf("unsupported media type %q: only photos and videos are accepted", contentType)
	}
}

// SaveUploadedFile stores a multipart file under the owner's directory.
// Keys look like "<ownerID>/<unixms>_<uuid>.<ext>" so uploads from the same
// submission sort together.
func (s *Service) SaveUploadedFile(fileHeader *multipart.FileHeader, ownerID uuid.UUID) (*Object, error) {
	if fileHeader == nil {
		return nil, fmt.Errorf("fileHeader cannot be nil")
	}
	if s.maxSize > 0 && fileHeader.Size > s.maxSize {
		return nil, fmt.Errorf("file exceeds the %d MB upload limit", s.maxSize>>20)
	}

	contentType := fileHeader.Header.Get("Content-Type")
	kind, err := ClassifyContentType(contentType)
	if err != nil {
		return nil, err
	}

	src, err := fileHeader.Open()
	if err != nil {
		s.logger.Error("Failed to open uploaded file", zap.Error(err))
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	extension := filepath.Ext(filepath.Base(fileHeader.Filename))
	if extension == "" {
		switch {
		case strings.HasPrefix(contentType, "image/jpeg"):
			extension = ".jpg"
		case strings.HasPrefix(contentType, "image/png"):
			extension = ".png"
		case strings.HasPrefix(contentType, "video/mp4"):
			extension = ".mp4"
		case strings.HasPrefix(contentType, "video/quicktime"):
			extension = ".mov"
		default:
			return nil, fmt.Errorf("cannot determine file extension for content type %q", contentType)
		}
	}

	filename := fmt.Sprintf("%d_%s%s", time.Now().UnixMilli(), uuid.New().String(), extension)
	ownerDir := filepath.Join(s.storagePath, ownerID.String())
	if err := os.MkdirAll(ownerDir, os.ModePerm); err != nil {
		s.logger.Error("Failed to create owner directory", zap.String("path", ownerDir), zap.Error(err))
		return nil, fmt.Errorf("failed to create directory %s: %w", ownerDir, err)
	}

	destinationPath := filepath.Join(ownerDir, filename)
	dst, err := os.Create(destinationPath)
	if err != nil {
		s.logger.Error("Failed to create destination file", zap.String("path", destinationPath), zap.Error(err))
		return nil, fmt.Errorf("failed to create file %s: %w", destinationPath, err)
	}
	defer dst.Close()

	if _, err = io.Copy(dst, src); err != nil {
		s.logger.Error("Failed to copy uploaded file to destination", zap.String("path", destinationPath), zap.Error(err))
		os.Remove(destinationPath)
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	key := filepath.ToSlash(filepath.Join(ownerID.String(), filename))
	s.logger.Info("Media saved", zap.String("path", key), zap.String("kind", string(kind)))
	return &Object{
		Path:      key,
		PublicURL: s.PublicURL(key),
		Kind:      kind,
	}, nil
}

// PublicURL returns the download URL for a stored media key.
func (s *Service) PublicURL(key string) string {
	return s.baseURL + "/" + strings.TrimLeft(key, "/")
}

// DeleteFile deletes a stored media file by its key.
func (s *Service) DeleteFile(key string) error {
	if key == "" {
		return fmt.Errorf("media key cannot be empty")
	}

	cleanKey := filepath.Clean(key)
	if strings.Contains(cleanKey, "..") {
		s.logger.Warn("Attempt to delete media with path traversal", zap.String("key", key))
		return fmt.Errorf("invalid media key for deletion")
	}

	fullPath := filepath.Join(s.storagePath, cleanKey)
	if _, err := os.Stat(fullPath); os.IsNotExist(err) {
		s.logger.Warn("Attempt to delete non-existent media", zap.String("path", fullPath))
		return nil
	}

	if err := os.Remove(fullPath); err != nil {
		s.logger.Error("Failed to delete media", zap.String("path", fullPath), zap.Error(err))
		return fmt.Errorf("failed to delete file %s: %w", fullPath, err)
	}

	s.logger.Info("Media deleted", zap.String("path", fullPath))
	return nil
}
