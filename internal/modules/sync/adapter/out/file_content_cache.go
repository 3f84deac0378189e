package out

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"komekome/internal/modules/sync/domain"
	syncout "komekome/internal/modules/sync/port/out"
	apperrors "komekome/internal/platform/errors"
)

type cachedContent struct {
	FetchedAt time.Time            `json:"fetched_at"`
	Bundle    domain.ContentBundle `json:"bundle"`
}

type FileContentCacheStore struct {
	path string
	mu   sync.Mutex
}

func NewFileContentCacheStore(dataDir string) syncout.ContentCacheStore {
	return &FileContentCacheStore{path: filepath.Join(dataDir, "content-cache.json")}
}

func (s *FileContentCacheStore) Save(_ context.Context, bundle domain.ContentBundle, fetchedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	payload, err := json.MarshalIndent(cachedContent{FetchedAt: fetchedAt, Bundle: bundle}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode content cache: %w", err)
	}
	if err := os.WriteFile(s.path, payload, 0o644); err != nil {
		return fmt.Errorf("write content cache: %w", err)
	}
	return nil
}

func (s *FileContentCacheStore) Load(_ context.Context) (domain.ContentBundle, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.ContentBundle{}, time.Time{}, apperrors.ErrNotFound
		}
		return domain.ContentBundle{}, time.Time{}, fmt.Errorf("read content cache: %w", err)
	}
	cached := cachedContent{}
	if err := json.Unmarshal(raw, &cached); err != nil {
		return domain.ContentBundle{}, time.Time{}, fmt.Errorf("decode content cache: %w", err)
	}
	return cached.Bundle, cached.FetchedAt, nil
}
