package usecase

import (
	"context"

	reviewin "komekome/internal/modules/review/port/in"
	"komekome/internal/modules/stats/dto"
	statsin "komekome/internal/modules/stats/port/in"
	"komekome/internal/modules/stats/service"
)

// Interactor rebuilds the attempt index from the log before answering, so
// the projection never drifts from the source of truth.
type Interactor struct {
	svc    *service.StatsService
	review reviewin.Usecase
}

func NewInteractor(svc *service.StatsService, review reviewin.Usecase) statsin.Usecase {
	return &Interactor{svc: svc, review: review}
}

func (i *Interactor) Overview(ctx context.Context, period string) (dto.OverviewOutput, error) {
	if _, err := i.Reindex(ctx); err != nil {
		return dto.OverviewOutput{}, err
	}
	items, err := i.review.ListItems(ctx)
	if err != nil {
		return dto.OverviewOutput{}, err
	}
	out, err := i.svc.Overview(ctx, period, len(items))
	if err != nil {
		return dto.OverviewOutput{}, err
	}

	titles := make(map[string]string, len(items))
	for _, item := range items {
		titles[item.ID] = item.Title
	}
	for idx := range out.WeakItems {
		out.WeakItems[idx].Title = titles[out.WeakItems[idx].ItemID]
	}
	return out, nil
}

func (i *Interactor) Reindex(ctx context.Context) (int, error) {
	records, err := i.review.ListAttempts(ctx)
	if err != nil {
		return 0, err
	}
	if err := i.svc.Rebuild(ctx, records); err != nil {
		return 0, err
	}
	return len(records), nil
}
