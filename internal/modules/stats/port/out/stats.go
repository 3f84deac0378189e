package out

import (
	"context"

	reviewdto "komekome/internal/modules/review/dto"
	"komekome/internal/modules/stats/dto"
)

// AttemptIndex is a queryable projection of the attempt log. Rebuild replaces
// the whole index; the log stays the source of truth.
type AttemptIndex interface {
	Rebuild(ctx context.Context, records []reviewdto.AttemptRecord) error
	Totals(ctx context.Context, from string) (dto.Totals, error)
	DailyCounts(ctx context.Context, from string) ([]dto.DailyPoint, error)
	WeakItems(ctx context.Context, from string, limit int) ([]dto.WeakItem, error)
	MistakeCounts(ctx context.Context, from string) ([]dto.TagCount, error)
	PracticeDates(ctx context.Context) ([]string, error)
	AttemptedItemCount(ctx context.Context) (int, error)
	Close() error
}
