package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Metadata is written next to every saved image as "<key>.json".
type Metadata struct {
	JobID      string            `json:"prompt_id"`
	Prompt     string            `json:"prompt"`
	Provider   string            `json:"provider,omitempty"`
	SavedAt    time.Time         `json:"saved_at"`
	Additional map[string]string `json:"additional_metadata,omitempty"`
}

// FileStore persists downloaded images onto the local filesystem.
type FileStore struct {
	basePath string
	now      func() time.Time
}

// NewFileStore initializes a FileStore rooted at basePath.
func NewFileStore(basePath string) (*FileStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	return &FileStore{basePath: basePath, now: time.Now}, nil
}

// BasePath returns the configured root directory.
func (s *FileStore) BasePath() string {
	if s == nil {
		return ""
	}
	return s.basePath
}

// Write persists data at the given relative key and returns the cleaned key.
func (s *FileStore) Write(ctx context.Context, key string, data []byte) (string, error) {
	if s == nil {
		return "", errors.New("storage: no store configured")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	fullPath := s.path(cleanKey)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("storage: ensure directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write file: %w", err)
	}
	return cleanKey, nil
}

// SaveImage writes the image bytes at key and its metadata sidecar.
func (s *FileStore) SaveImage(ctx context.Context, key string, data []byte, meta Metadata) (string, error) {
	cleanKey, err := s.Write(ctx, key, data)
	if err != nil {
		return "", err
	}
	if meta.SavedAt.IsZero() {
		meta.SavedAt = s.now().UTC()
	}
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", fmt.Errorf("storage: encode metadata: %w", err)
	}
	if _, err := s.Write(ctx, cleanKey+".json", raw); err != nil {
		return "", err
	}
	return cleanKey, nil
}

// ReadMetadata loads the sidecar written by SaveImage.
func (s *FileStore) ReadMetadata(key string) (Metadata, error) {
	var meta Metadata
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return meta, err
	}
	raw, err := os.ReadFile(s.path(cleanKey + ".json"))
	if err != nil {
		return meta, fmt.Errorf("storage: read metadata: %w", err)
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return meta, fmt.Errorf("storage: decode metadata: %w", err)
	}
	return meta, nil
}

func (s *FileStore) path(cleanKey string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(cleanKey))
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("storage: key is required")
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := filepath.ToSlash(filepath.Clean(key))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", errors.New("storage: invalid key")
	}
	return cleaned, nil
}
