package in

import (
	"context"

	"komekome/internal/modules/review/dto"
	reviewin "komekome/internal/modules/review/port/in"
)

type CLIHandler struct {
	usecase reviewin.Usecase
}

func NewCLIHandler(usecase reviewin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) StartSession(ctx context.Context) (dto.StartOutput, error) {
	return h.usecase.StartSession(ctx)
}

func (h CLIHandler) Current(ctx context.Context) (dto.CurrentOutput, error) {
	return h.usecase.Current(ctx)
}

func (h CLIHandler) SubmitAnswer(ctx context.Context, input dto.AnswerInput) (dto.AnswerOutput, error) {
	return h.usecase.SubmitAnswer(ctx, input)
}

func (h CLIHandler) AbortSession(ctx context.Context) error {
	return h.usecase.AbortSession(ctx)
}

func (h CLIHandler) SessionStatus(ctx context.Context) (dto.SessionStatusOutput, error) {
	return h.usecase.SessionStatus(ctx)
}

func (h CLIHandler) DueItems(ctx context.Context) ([]dto.ItemOutput, error) {
	return h.usecase.DueItems(ctx)
}

func (h CLIHandler) ListItems(ctx context.Context) ([]dto.ItemOutput, error) {
	return h.usecase.ListItems(ctx)
}
