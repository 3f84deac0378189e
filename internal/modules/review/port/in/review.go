package in

import (
	"context"

	"komekome/internal/modules/review/dto"
)

type Usecase interface {
	StartSession(ctx context.Context) (dto.StartOutput, error)
	Current(ctx context.Context) (dto.CurrentOutput, error)
	SubmitAnswer(ctx context.Context, input dto.AnswerInput) (dto.AnswerOutput, error)
	AbortSession(ctx context.Context) error
	SessionStatus(ctx context.Context) (dto.SessionStatusOutput, error)

	DueItems(ctx context.Context) ([]dto.ItemOutput, error)
	ListItems(ctx context.Context) ([]dto.ItemOutput, error)

	// Merge entry points used by the sync engine. Both are idempotent.
	MergeContent(ctx context.Context, items []dto.ContentItem) (dto.ContentMergeOutput, error)
	MergeAttempts(ctx context.Context, records []dto.AttemptRecord) (int, error)
	ListAttempts(ctx context.Context) ([]dto.AttemptRecord, error)
}
