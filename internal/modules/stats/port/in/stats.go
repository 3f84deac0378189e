package in

import (
	"context"

	"komekome/internal/modules/stats/dto"
)

// Usecase exposes study statistics over the attempt history.
type Usecase interface {
	// Overview reindexes the attempt log and returns aggregates for the
	// given period: "day", "week", "month", "year" or "all".
	Overview(ctx context.Context, period string) (dto.OverviewOutput, error)
	// Reindex rebuilds the attempt index from the log and returns the
	// number of attempts indexed.
	Reindex(ctx context.Context) (int, error)
}
