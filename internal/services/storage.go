package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/google/uuid"
)

var ErrFileNotFound = errors.New("stored file not found")

type StorageService interface {
	EnsureReady(ctx context.Context) error
	SaveFile(ctx context.Context, key string, data []byte, contentType string) error
	ReadFile(ctx context.Context, key string) ([]byte, error)
	DeleteFile(ctx context.Context, key string) error
	BuildKey(id uuid.UUID, filename string) string
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// buildStorageKey produces "{id}_{name}" with the name reduced to safe characters.
func buildStorageKey(id uuid.UUID, filename string) string {
	name := unsafeFilenameChars.ReplaceAllString(filepath.Base(filename), "_")
	if name == "" || name == "." || name == "_" {
		name = "resume"
	}
	return fmt.Sprintf("%s_%s", id, name)
}

type storageService struct {
	uploadPath string
}

// NewStorageService stores files on the local filesystem under uploadPath.
func NewStorageService(uploadPath string) StorageService {
	return &storageService{
		uploadPath: uploadPath,
	}
}

func (s *storageService) EnsureReady(ctx context.Context) error {
	if err := os.MkdirAll(s.uploadPath, 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	return nil
}

func (s *storageService) BuildKey(id uuid.UUID, filename string) string {
	return buildStorageKey(id, filename)
}

func (s *storageService) SaveFile(ctx context.Context, key string, data []byte, contentType string) error {
	if err := os.WriteFile(s.path(key), data, 0644); err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}
	return nil
}

func (s *storageService) ReadFile(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", key, ErrFileNotFound)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

func (s *storageService) DeleteFile(ctx context.Context, key string) error {
	if err := os.Remove(s.path(key)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// path keeps keys inside the upload directory.
func (s *storageService) path(key string) string {
	return filepath.Join(s.uploadPath, filepath.Base(key))
}
