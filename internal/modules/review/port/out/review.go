package out

import (
	"context"

	"komekome/internal/modules/review/domain"
)

// ItemStore persists the full item collection. Implementations rewrite the
// whole set atomically; a crash mid-save must leave either the old or the
// new state, never a torn one.
type ItemStore interface {
	LoadAll(ctx context.Context) ([]domain.Item, error)
	SaveAll(ctx context.Context, items []domain.Item) error
}

// AttemptLog is the append-only record of answer events.
type AttemptLog interface {
	Append(ctx context.Context, attempt domain.Attempt) error
	List(ctx context.Context) ([]domain.Attempt, error)
}

type ActiveSessionStore interface {
	Save(ctx context.Context, session domain.Session) error
	Load(ctx context.Context) (domain.Session, error)
	Clear(ctx context.Context) error
}
