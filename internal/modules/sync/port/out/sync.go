package out

import (
	"context"
	"time"

	"komekome/internal/modules/sync/domain"
)

// RemoteKV is the remote store boundary: atomic get/put per key plus
// list-by-prefix. An absent key surfaces as apperrors.ErrNotFound; transport
// failures are classified into the sync/domain error taxonomy by the
// implementation.
type RemoteKV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, payload []byte) error
	List(ctx context.Context, prefix string) ([]string, error)
}

// PendingQueueStore persists the ordered not-yet-acknowledged batches.
// Entries leave the queue only on confirmed remote acceptance.
type PendingQueueStore interface {
	Load(ctx context.Context) ([]domain.PendingBatch, error)
	Save(ctx context.Context, batches []domain.PendingBatch) error
}

// ContentCacheStore keeps the last successfully pulled content payload so a
// failed pull degrades to stale content instead of empty state.
type ContentCacheStore interface {
	Save(ctx context.Context, bundle domain.ContentBundle, fetchedAt time.Time) error
	Load(ctx context.Context) (domain.ContentBundle, time.Time, error)
}
