package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	reviewdto "komekome/internal/modules/review/dto"
	"komekome/internal/modules/sync/domain"
	syncout "komekome/internal/modules/sync/port/out"
	"komekome/internal/platform/clock"
	apperrors "komekome/internal/platform/errors"
	"komekome/internal/platform/logging"
)

// SyncService owns the remote mechanics: batch pushes, prefix pulls, the
// durable pending queue and the content cache. It never touches review
// state; merging is composed one layer up.
type SyncService struct {
	clock   clock.Clock
	remote  syncout.RemoteKV
	pending syncout.PendingQueueStore
	cache   syncout.ContentCacheStore
}

func NewSyncService(clk clock.Clock, remote syncout.RemoteKV, pending syncout.PendingQueueStore, cache syncout.ContentCacheStore) *SyncService {
	return &SyncService{clock: clk, remote: remote, pending: pending, cache: cache}
}

func (s *SyncService) NewBatch(sessionID string, attempts []reviewdto.AttemptRecord) domain.Batch {
	return domain.Batch{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		CreatedAt: s.clock.Now(),
		Attempts:  attempts,
	}
}

func (s *SyncService) pushBatch(ctx context.Context, batch domain.Batch) error {
	payload, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("encode batch %s: %w", batch.ID, err)
	}
	if err := s.remote.Put(ctx, batch.Key(), payload); err != nil {
		return err
	}
	logging.Info().Str("batch", batch.ID).Int("attempts", len(batch.Attempts)).Msg("batch pushed")
	return nil
}

// PushOrEnqueue attempts immediate delivery and falls back to the durable
// pending queue. The batch key is stable, so a batch that was stored
// remotely but re-pushed on a later retry overwrites itself.
func (s *SyncService) PushOrEnqueue(ctx context.Context, batch domain.Batch) (bool, error) {
	err := s.pushBatch(ctx, batch)
	if err == nil {
		return true, nil
	}
	logging.Warn().Err(err).Str("batch", batch.ID).Msg("push failed, queueing batch")
	queue, loadErr := s.pending.Load(ctx)
	if loadErr != nil {
		return false, loadErr
	}
	for _, queued := range queue {
		if queued.Batch.ID == batch.ID {
			return false, err
		}
	}
	// A permanent rejection is a configuration problem: the entry is held
	// out of the automatic flush and retried only on an explicit one.
	queue = append(queue, domain.PendingBatch{Batch: batch, Held: !domain.Retryable(err)})
	if saveErr := s.pending.Save(ctx, queue); saveErr != nil {
		return false, saveErr
	}
	return false, err
}

// Flush replays pending batches oldest-first. Each batch is retried
// independently; a failure keeps that batch queued and moves on. Held
// entries are retried only when includeHeld is set.
func (s *SyncService) Flush(ctx context.Context, includeHeld bool) (delivered, remaining int, err error) {
	queue, err := s.pending.Load(ctx)
	if err != nil {
		return 0, 0, err
	}
	if len(queue) == 0 {
		return 0, 0, nil
	}
	kept := []domain.PendingBatch{}
	for _, entry := range queue {
		if entry.Held && !includeHeld {
			kept = append(kept, entry)
			continue
		}
		if pushErr := s.pushBatch(ctx, entry.Batch); pushErr != nil {
			logging.Warn().Err(pushErr).Str("batch", entry.Batch.ID).Msg("retry failed, batch stays queued")
			entry.Held = !domain.Retryable(pushErr)
			kept = append(kept, entry)
			continue
		}
		delivered++
	}
	if err := s.pending.Save(ctx, kept); err != nil {
		return delivered, len(kept), err
	}
	return delivered, len(kept), nil
}

// PullContent fetches the published item set. On failure it falls back to
// the last cached bundle (stale content beats empty state); the fetch error
// is still returned so callers can report connectivity.
func (s *SyncService) PullContent(ctx context.Context) (domain.ContentBundle, bool, error) {
	raw, err := s.remote.Get(ctx, domain.ContentKey)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Nothing published yet: empty, not an error.
			return domain.ContentBundle{}, false, nil
		}
		bundle, _, cacheErr := s.cache.Load(ctx)
		if cacheErr != nil {
			return domain.ContentBundle{}, false, err
		}
		logging.Warn().Err(err).Int("version", bundle.Version).Msg("content pull failed, serving cached bundle")
		return bundle, true, err
	}
	bundle := domain.ContentBundle{}
	if decodeErr := json.Unmarshal(raw, &bundle); decodeErr != nil {
		err := fmt.Errorf("%w: %s: %v", domain.ErrMalformedPayload, domain.ContentKey, decodeErr)
		cached, _, cacheErr := s.cache.Load(ctx)
		if cacheErr != nil {
			return domain.ContentBundle{}, false, err
		}
		return cached, true, err
	}
	if err := s.cache.Save(ctx, bundle, s.clock.Now()); err != nil {
		return domain.ContentBundle{}, false, fmt.Errorf("cache content: %w", err)
	}
	return bundle, false, nil
}

// PullAttempts reads back the flat remote attempt list: every batch key
// under the attempt prefix, flattened. A batch document that fails to
// decode is skipped and logged; it does not abort the rest.
func (s *SyncService) PullAttempts(ctx context.Context) ([]reviewdto.AttemptRecord, map[string]struct{}, error) {
	keys, err := s.remote.List(ctx, domain.AttemptPrefix)
	if err != nil {
		return nil, nil, err
	}
	records := []reviewdto.AttemptRecord{}
	ids := map[string]struct{}{}
	for _, key := range keys {
		raw, err := s.remote.Get(ctx, key)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			return nil, nil, err
		}
		batch := domain.Batch{}
		if err := json.Unmarshal(raw, &batch); err != nil {
			logging.Warn().Str("key", key).Msg("skipping malformed remote batch")
			continue
		}
		for _, record := range batch.Attempts {
			if record.ID == "" {
				continue
			}
			if _, seen := ids[record.ID]; seen {
				continue
			}
			ids[record.ID] = struct{}{}
			records = append(records, record)
		}
	}
	return records, ids, nil
}

func (s *SyncService) PendingStats(ctx context.Context) (batches, attempts int, err error) {
	queue, err := s.pending.Load(ctx)
	if err != nil {
		return 0, 0, err
	}
	for _, entry := range queue {
		attempts += len(entry.Batch.Attempts)
	}
	return len(queue), attempts, nil
}

func (s *SyncService) CacheInfo(ctx context.Context) (version int, fetchedAt time.Time) {
	bundle, at, err := s.cache.Load(ctx)
	if err != nil {
		return 0, time.Time{}
	}
	return bundle.Version, at
}
