package usecase

import (
	"context"
	"errors"
	"fmt"

	"komekome/internal/modules/review/domain"
	"komekome/internal/modules/review/dto"
	reviewin "komekome/internal/modules/review/port/in"
	reviewout "komekome/internal/modules/review/port/out"
	"komekome/internal/modules/review/service"
	apperrors "komekome/internal/platform/errors"
)

type Interactor struct {
	svc         *service.ReviewService
	items       reviewout.ItemStore
	attempts    reviewout.AttemptLog
	activeStore reviewout.ActiveSessionStore
}

func NewInteractor(svc *service.ReviewService, items reviewout.ItemStore, attempts reviewout.AttemptLog, activeStore reviewout.ActiveSessionStore) reviewin.Usecase {
	return &Interactor{svc: svc, items: items, attempts: attempts, activeStore: activeStore}
}

func (i *Interactor) StartSession(ctx context.Context) (dto.StartOutput, error) {
	_, err := i.activeStore.Load(ctx)
	if err == nil {
		return dto.StartOutput{}, apperrors.ErrActiveSessionExists
	}
	if !errors.Is(err, apperrors.ErrNoActiveSession) {
		return dto.StartOutput{}, err
	}

	session, err := i.svc.BuildSession(ctx)
	if err != nil {
		return dto.StartOutput{}, err
	}
	out := dto.StartOutput{SessionID: session.ID, Total: len(session.Queue), StartedAt: session.StartedAt}
	if len(session.Queue) == 0 {
		// Nothing due: the session is born finished and never persisted.
		return out, nil
	}
	if err := i.activeStore.Save(ctx, session); err != nil {
		return dto.StartOutput{}, err
	}
	return out, nil
}

func (i *Interactor) Current(ctx context.Context) (dto.CurrentOutput, error) {
	session, err := i.activeStore.Load(ctx)
	if err != nil {
		return dto.CurrentOutput{}, err
	}
	itemID, ok := session.Current()
	if !ok {
		return dto.CurrentOutput{}, apperrors.ErrNoPresentedItem
	}
	item, err := i.svc.GetItem(ctx, itemID)
	if err != nil {
		return dto.CurrentOutput{}, err
	}
	return dto.CurrentOutput{
		SessionID:     session.ID,
		ItemID:        item.ID,
		Title:         item.Title,
		Category:      item.Category,
		Book:          item.Book,
		Kind:          item.Kind,
		TargetMinutes: item.TargetMinutes,
		ImageKey:      item.ImageKey,
		IntervalIndex: item.IntervalIndex,
		KomeTotal:     item.KomeTotal,
		SessionMisses: session.MistakeCounts[item.ID],
		Position:      session.Cursor + 1,
		QueueLength:   len(session.Queue),
		Remaining:     session.Remaining(),
	}, nil
}

func (i *Interactor) SubmitAnswer(ctx context.Context, input dto.AnswerInput) (dto.AnswerOutput, error) {
	session, err := i.activeStore.Load(ctx)
	if err != nil {
		return dto.AnswerOutput{}, err
	}
	presented, ok := session.Current()
	if !ok {
		return dto.AnswerOutput{}, apperrors.ErrNoPresentedItem
	}
	itemID := input.ItemID
	if itemID == "" {
		itemID = presented
	}

	outcome, attempt, err := i.svc.SubmitAnswer(ctx, session, itemID, domain.Result(input.Result), input.ElapsedSeconds, input.Mistakes, input.Memo)
	if err != nil {
		return dto.AnswerOutput{}, err
	}

	out := dto.AnswerOutput{
		AttemptID:      attempt.ID,
		ItemID:         attempt.ItemID,
		Result:         string(attempt.Result),
		CycleCompleted: outcome.CycleCompleted,
		Reinserted:     outcome.Reinserted,
		Graduated:      outcome.Item.Graduated,
		IntervalIndex:  outcome.Item.IntervalIndex,
		NextReview:     outcome.Item.NextReview,
		KomeTotal:      outcome.Item.KomeTotal,
		Remaining:      outcome.Session.Remaining(),
		SessionID:      session.ID,
	}

	if outcome.Session.Finished() {
		out.Finished = true
		out.SessionAttemptIDs = append([]string(nil), outcome.Session.AttemptIDs...)
		if err := i.activeStore.Clear(ctx); err != nil {
			return dto.AnswerOutput{}, err
		}
		return out, nil
	}
	if err := i.activeStore.Save(ctx, outcome.Session); err != nil {
		return dto.AnswerOutput{}, err
	}
	return out, nil
}

// AbortSession discards session state only. Item mutations and attempts
// already recorded in the session stay final.
func (i *Interactor) AbortSession(ctx context.Context) error {
	if _, err := i.activeStore.Load(ctx); err != nil {
		return err
	}
	return i.activeStore.Clear(ctx)
}

func (i *Interactor) SessionStatus(ctx context.Context) (dto.SessionStatusOutput, error) {
	session, err := i.activeStore.Load(ctx)
	if err != nil {
		return dto.SessionStatusOutput{}, err
	}
	return dto.SessionStatusOutput{
		SessionID: session.ID,
		StartedAt: session.StartedAt,
		Correct:   session.Stats.Correct,
		Incorrect: session.Stats.Incorrect,
		Cycles:    session.Stats.Cycles,
		Remaining: session.Remaining(),
		Queue:     len(session.Queue),
	}, nil
}

func (i *Interactor) DueItems(ctx context.Context) ([]dto.ItemOutput, error) {
	due, err := i.svc.DueItems(ctx)
	if err != nil {
		return nil, err
	}
	return toItemOutputs(due), nil
}

func (i *Interactor) ListItems(ctx context.Context) ([]dto.ItemOutput, error) {
	all, err := i.items.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	return toItemOutputs(all), nil
}

func (i *Interactor) MergeContent(ctx context.Context, remote []dto.ContentItem) (dto.ContentMergeOutput, error) {
	all, err := i.items.LoadAll(ctx)
	if err != nil {
		return dto.ContentMergeOutput{}, err
	}
	index := make(map[string]int, len(all))
	for pos, item := range all {
		index[item.ID] = pos
	}

	out := dto.ContentMergeOutput{}
	for _, c := range remote {
		if c.ID == "" {
			continue
		}
		incoming := domain.Item{
			ID:            c.ID,
			Title:         c.Title,
			Category:      c.Category,
			Book:          c.Book,
			Kind:          c.Kind,
			TargetMinutes: c.TargetMinutes,
			ImageKey:      c.ImageKey,
		}
		if pos, ok := index[c.ID]; ok {
			all[pos] = domain.MergeContent(all[pos], incoming)
			out.Updated++
			continue
		}
		all = append(all, domain.NewItemFromContent(incoming))
		index[c.ID] = len(all) - 1
		out.Created++
	}
	if err := i.items.SaveAll(ctx, all); err != nil {
		return dto.ContentMergeOutput{}, err
	}
	return out, nil
}

// MergeAttempts unions the given records into the attempt log by id.
// Records already present are skipped, so replaying the same payload is a
// no-op; a record that fails validation is dropped without aborting the rest.
func (i *Interactor) MergeAttempts(ctx context.Context, records []dto.AttemptRecord) (int, error) {
	existing, err := i.attempts.List(ctx)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]struct{}, len(existing))
	for _, a := range existing {
		seen[a.ID] = struct{}{}
	}

	adopted := []domain.Attempt{}
	for _, r := range records {
		attempt := recordToAttempt(r)
		if err := attempt.Validate(); err != nil {
			continue
		}
		if _, ok := seen[attempt.ID]; ok {
			continue
		}
		seen[attempt.ID] = struct{}{}
		adopted = append(adopted, attempt)
	}
	if len(adopted) == 0 {
		return 0, nil
	}
	domain.SortAttempts(adopted)
	for _, attempt := range adopted {
		if err := i.attempts.Append(ctx, attempt); err != nil {
			return 0, fmt.Errorf("adopt attempt %s: %w", attempt.ID, err)
		}
	}
	if err := i.appendHistory(ctx, adopted); err != nil {
		return 0, err
	}
	return len(adopted), nil
}

func (i *Interactor) appendHistory(ctx context.Context, adopted []domain.Attempt) error {
	all, err := i.items.LoadAll(ctx)
	if err != nil {
		return err
	}
	index := make(map[string]int, len(all))
	for pos, item := range all {
		index[item.ID] = pos
	}
	changed := false
	for _, attempt := range adopted {
		pos, ok := index[attempt.ItemID]
		if !ok {
			continue
		}
		all[pos].History = append(all[pos].History, attempt.ID)
		changed = true
	}
	if !changed {
		return nil
	}
	return i.items.SaveAll(ctx, all)
}

func (i *Interactor) ListAttempts(ctx context.Context) ([]dto.AttemptRecord, error) {
	attempts, err := i.attempts.List(ctx)
	if err != nil {
		return nil, err
	}
	domain.SortAttempts(attempts)
	out := make([]dto.AttemptRecord, len(attempts))
	for pos, a := range attempts {
		out[pos] = dto.AttemptRecord{
			ID:              a.ID,
			ItemID:          a.ItemID,
			Date:            a.Date,
			Result:          string(a.Result),
			ElapsedSeconds:  a.ElapsedSeconds,
			Mistakes:        a.Mistakes,
			Memo:            a.Memo,
			KomeTotalAtTime: a.KomeTotalAtTime,
		}
	}
	return out, nil
}

func recordToAttempt(r dto.AttemptRecord) domain.Attempt {
	return domain.Attempt{
		ID:              r.ID,
		ItemID:          r.ItemID,
		Date:            r.Date,
		Result:          domain.Result(r.Result),
		ElapsedSeconds:  r.ElapsedSeconds,
		Mistakes:        r.Mistakes,
		Memo:            r.Memo,
		KomeTotalAtTime: r.KomeTotalAtTime,
	}
}

func toItemOutputs(items []domain.Item) []dto.ItemOutput {
	out := make([]dto.ItemOutput, len(items))
	for pos, item := range items {
		out[pos] = dto.ItemOutput{
			ID:            item.ID,
			Title:         item.Title,
			Category:      item.Category,
			Book:          item.Book,
			Kind:          item.Kind,
			IntervalIndex: item.IntervalIndex,
			NextReview:    item.NextReview,
			Graduated:     item.Graduated,
			KomeTotal:     item.KomeTotal,
			LastReviewed:  item.LastReviewed,
			Attempts:      len(item.History),
		}
	}
	return out
}
