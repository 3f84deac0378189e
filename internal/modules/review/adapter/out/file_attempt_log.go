package out

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"komekome/internal/modules/review/domain"
	reviewout "komekome/internal/modules/review/port/out"
)

// FileAttemptLog is the append-only attempt record, one JSON document per
// line. Attempts are immutable; the file only ever grows.
type FileAttemptLog struct {
	path string
	mu   sync.Mutex
}

func NewFileAttemptLog(dataDir string) reviewout.AttemptLog {
	return &FileAttemptLog{path: filepath.Join(dataDir, "attempts.jsonl")}
}

func (s *FileAttemptLog) Append(_ context.Context, attempt domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open attempt log: %w", err)
	}
	defer file.Close()
	payload, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("encode attempt: %w", err)
	}
	if _, err := file.Write(append(payload, '\n')); err != nil {
		return fmt.Errorf("write attempt log: %w", err)
	}
	return nil
}

func (s *FileAttemptLog) List(_ context.Context) ([]domain.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.Attempt{}, nil
		}
		return nil, fmt.Errorf("open attempt log: %w", err)
	}
	defer file.Close()

	out := []domain.Attempt{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		attempt := domain.Attempt{}
		if err := json.Unmarshal(line, &attempt); err != nil {
			return nil, fmt.Errorf("decode attempt line: %w", err)
		}
		out = append(out, attempt)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan attempt log: %w", err)
	}
	return out, nil
}
