package out

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"komekome/internal/modules/sync/domain"
	syncout "komekome/internal/modules/sync/port/out"
)

// FilePendingQueueStore persists the ordered not-yet-acknowledged batches.
// The whole queue is rewritten through a temp file and rename, so a crash
// between a remote ack and the queue update can at worst re-push a batch,
// which overwrites the same remote key.
type FilePendingQueueStore struct {
	path string
	mu   sync.Mutex
}

func NewFilePendingQueueStore(dataDir string) syncout.PendingQueueStore {
	return &FilePendingQueueStore{path: filepath.Join(dataDir, "pending-sync.json")}
}

func (s *FilePendingQueueStore) Load(_ context.Context) ([]domain.PendingBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.PendingBatch{}, nil
		}
		return nil, fmt.Errorf("read pending queue: %w", err)
	}
	if len(raw) == 0 {
		return []domain.PendingBatch{}, nil
	}
	queue := []domain.PendingBatch{}
	if err := json.Unmarshal(raw, &queue); err != nil {
		return nil, fmt.Errorf("decode pending queue: %w", err)
	}
	return queue, nil
}

func (s *FilePendingQueueStore) Save(_ context.Context, batches []domain.PendingBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	payload, err := json.MarshalIndent(batches, "", "  ")
	if err != nil {
		return fmt.Errorf("encode pending queue: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("write pending queue: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace pending queue: %w", err)
	}
	return nil
}
