package in

import (
	"context"

	"komekome/internal/modules/sync/dto"
	syncin "komekome/internal/modules/sync/port/in"
)

type CLIHandler struct {
	usecase syncin.Usecase
}

func NewCLIHandler(usecase syncin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) SyncNow(ctx context.Context) (dto.SyncOutput, error) {
	return h.usecase.SyncNow(ctx)
}

func (h CLIHandler) EnqueueSessionBatch(ctx context.Context, sessionID string, attemptIDs []string) (dto.EnqueueOutput, error) {
	return h.usecase.EnqueueSessionBatch(ctx, sessionID, attemptIDs)
}

func (h CLIHandler) FlushPending(ctx context.Context) (dto.FlushOutput, error) {
	return h.usecase.FlushPending(ctx)
}

func (h CLIHandler) Status(ctx context.Context) (dto.StatusOutput, error) {
	return h.usecase.Status(ctx)
}
