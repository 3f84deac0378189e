package out

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"komekome/internal/modules/review/domain"
	reviewout "komekome/internal/modules/review/port/out"
)

type FileItemStore struct {
	path string
	mu   sync.Mutex
}

func NewFileItemStore(dataDir string) reviewout.ItemStore {
	return &FileItemStore{path: filepath.Join(dataDir, "items.json")}
}

func (s *FileItemStore) LoadAll(_ context.Context) ([]domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.Item{}, nil
		}
		return nil, fmt.Errorf("read items: %w", err)
	}
	if len(raw) == 0 {
		return []domain.Item{}, nil
	}
	items := []domain.Item{}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	return items, nil
}

// SaveAll rewrites the collection through a temp file and rename, so a crash
// mid-save leaves the previous state intact.
func (s *FileItemStore) SaveAll(_ context.Context, items []domain.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	payload, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("write items: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace items: %w", err)
	}
	return nil
}
