package usecase

import (
	"context"
	"errors"
	"fmt"

	reviewdto "komekome/internal/modules/review/dto"
	reviewin "komekome/internal/modules/review/port/in"
	"komekome/internal/modules/sync/domain"
	"komekome/internal/modules/sync/dto"
	syncin "komekome/internal/modules/sync/port/in"
	"komekome/internal/modules/sync/service"
)

type Interactor struct {
	svc    *service.SyncService
	review reviewin.Usecase
}

func NewInteractor(svc *service.SyncService, review reviewin.Usecase) syncin.Usecase {
	return &Interactor{svc: svc, review: review}
}

// SyncNow is the full reconciliation pass: pull published content, pull the
// remote attempt set, merge both into local state, push every attempt the
// remote has not seen, then flush the pending queue. Local scheduling state
// is never blocked on any of it; a failed pass leaves local data usable and
// reports a status instead.
func (i *Interactor) SyncNow(ctx context.Context) (dto.SyncOutput, error) {
	out := dto.SyncOutput{Status: string(domain.StatusSynced)}

	bundle, usedCache, pullErr := i.svc.PullContent(ctx)
	out.UsedCache = usedCache
	if pullErr != nil {
		i.applyFailure(&out, pullErr)
	}
	if len(bundle.Items) > 0 {
		merged, err := i.review.MergeContent(ctx, bundle.Items)
		if err != nil {
			return dto.SyncOutput{}, fmt.Errorf("merge content: %w", err)
		}
		out.ContentCreated = merged.Created
		out.ContentUpdated = merged.Updated
	}

	// A malformed content document is discarded for that key alone; the
	// attempt pull is skipped only when the remote itself failed.
	if pullErr == nil || errors.Is(pullErr, domain.ErrMalformedPayload) {
		records, remoteIDs, err := i.svc.PullAttempts(ctx)
		if err != nil {
			i.applyFailure(&out, err)
		} else {
			adopted, err := i.review.MergeAttempts(ctx, records)
			if err != nil {
				return dto.SyncOutput{}, fmt.Errorf("merge attempts: %w", err)
			}
			out.AttemptsAdopted = adopted

			local, err := i.review.ListAttempts(ctx)
			if err != nil {
				return dto.SyncOutput{}, err
			}
			missing := domain.MissingRemotely(local, remoteIDs)
			if len(missing) > 0 {
				batch := i.svc.NewBatch("", missing)
				delivered, pushErr := i.svc.PushOrEnqueue(ctx, batch)
				if delivered {
					out.Pushed = len(missing)
				} else {
					i.applyFailure(&out, pushErr)
				}
			}

			flushed, _, err := i.svc.Flush(ctx, false)
			if err != nil {
				return dto.SyncOutput{}, err
			}
			out.BatchesFlushed = flushed
		}
	}

	pending, _, err := i.svc.PendingStats(ctx)
	if err != nil {
		return dto.SyncOutput{}, err
	}
	out.PendingBatches = pending
	return out, nil
}

func (i *Interactor) applyFailure(out *dto.SyncOutput, err error) {
	if err == nil {
		return
	}
	if domain.Retryable(err) {
		out.Status = string(domain.StatusOffline)
	} else {
		out.Status = string(domain.StatusError)
	}
	out.Message = err.Error()
}

func (i *Interactor) EnqueueSessionBatch(ctx context.Context, sessionID string, attemptIDs []string) (dto.EnqueueOutput, error) {
	if len(attemptIDs) == 0 {
		return dto.EnqueueOutput{}, nil
	}
	wanted := make(map[string]struct{}, len(attemptIDs))
	for _, id := range attemptIDs {
		wanted[id] = struct{}{}
	}
	local, err := i.review.ListAttempts(ctx)
	if err != nil {
		return dto.EnqueueOutput{}, err
	}
	attempts := []reviewdto.AttemptRecord{}
	for _, a := range local {
		if _, ok := wanted[a.ID]; ok {
			attempts = append(attempts, a)
		}
	}
	if len(attempts) == 0 {
		return dto.EnqueueOutput{}, nil
	}

	batch := i.svc.NewBatch(sessionID, attempts)
	delivered, pushErr := i.svc.PushOrEnqueue(ctx, batch)
	out := dto.EnqueueOutput{
		BatchID:   batch.ID,
		Attempts:  len(attempts),
		Delivered: delivered,
		Queued:    !delivered,
	}
	if !delivered && !domain.Retryable(pushErr) && pushErr != nil {
		// Still durable in the queue; surface the configuration problem.
		return out, pushErr
	}
	return out, nil
}

func (i *Interactor) FlushPending(ctx context.Context) (dto.FlushOutput, error) {
	delivered, remaining, err := i.svc.Flush(ctx, true)
	if err != nil {
		return dto.FlushOutput{}, err
	}
	return dto.FlushOutput{Delivered: delivered, Remaining: remaining}, nil
}

func (i *Interactor) Status(ctx context.Context) (dto.StatusOutput, error) {
	batches, attempts, err := i.svc.PendingStats(ctx)
	if err != nil {
		return dto.StatusOutput{}, err
	}
	version, fetchedAt := i.svc.CacheInfo(ctx)
	return dto.StatusOutput{
		PendingBatches:  batches,
		PendingAttempts: attempts,
		CachedVersion:   version,
		CachedAt:        fetchedAt,
	}, nil
}
