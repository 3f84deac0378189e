package in

import (
	"context"

	"komekome/internal/modules/sync/dto"
)

type Usecase interface {
	// SyncNow pulls content and remote attempts, merges both into local
	// state, pushes locally-unique attempts, and flushes the pending queue.
	SyncNow(ctx context.Context) (dto.SyncOutput, error)
	// EnqueueSessionBatch packages the given attempts as one batch and
	// pushes it, falling back to the durable pending queue on failure.
	EnqueueSessionBatch(ctx context.Context, sessionID string, attemptIDs []string) (dto.EnqueueOutput, error)
	// FlushPending replays queued batches oldest-first; one batch failing
	// does not stop later batches from being tried.
	FlushPending(ctx context.Context) (dto.FlushOutput, error)
	Status(ctx context.Context) (dto.StatusOutput, error)
}
