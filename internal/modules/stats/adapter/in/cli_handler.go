package in

import (
	"context"

	"komekome/internal/modules/stats/dto"
	statsin "komekome/internal/modules/stats/port/in"
)

type CLIHandler struct {
	usecase statsin.Usecase
}

func NewCLIHandler(usecase statsin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Overview(ctx context.Context, period string) (dto.OverviewOutput, error) {
	return h.usecase.Overview(ctx, period)
}

func (h CLIHandler) Reindex(ctx context.Context) (int, error) {
	return h.usecase.Reindex(ctx)
}
