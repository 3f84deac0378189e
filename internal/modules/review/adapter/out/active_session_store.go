package out

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"komekome/internal/modules/review/domain"
	reviewout "komekome/internal/modules/review/port/out"
	apperrors "komekome/internal/platform/errors"
)

type FileActiveSessionStore struct {
	path string
}

func NewFileActiveSessionStore(dataDir string) reviewout.ActiveSessionStore {
	return &FileActiveSessionStore{path: filepath.Join(dataDir, "active-session.json")}
}

func (s *FileActiveSessionStore) Save(_ context.Context, session domain.Session) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	payload, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal active session: %w", err)
	}
	if err := os.WriteFile(s.path, payload, 0o644); err != nil {
		return fmt.Errorf("write active session: %w", err)
	}
	return nil
}

func (s *FileActiveSessionStore) Load(_ context.Context) (domain.Session, error) {
	payload, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Session{}, apperrors.ErrNoActiveSession
		}
		return domain.Session{}, fmt.Errorf("read active session: %w", err)
	}
	session := domain.Session{}
	if err := json.Unmarshal(payload, &session); err != nil {
		return domain.Session{}, fmt.Errorf("decode active session: %w", err)
	}
	if session.ID == "" {
		return domain.Session{}, apperrors.ErrNoActiveSession
	}
	if session.MistakeCounts == nil {
		session.MistakeCounts = map[string]int{}
	}
	return session, nil
}

func (s *FileActiveSessionStore) Clear(_ context.Context) error {
	if err := os.Remove(s.path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("clear active session: %w", err)
	}
	return nil
}
