package service

import (
	"context"
	"fmt"
	"math/rand"

	"komekome/internal/modules/review/domain"
	reviewout "komekome/internal/modules/review/port/out"
	"komekome/internal/platform/clock"
	"komekome/internal/platform/id"
)

// ReviewService owns due-set selection and the answer transition around the
// pure domain logic. It is single-session and synchronous: every call either
// fully applies a transition or leaves all stores untouched.
type ReviewService struct {
	clock      clock.Clock
	sessionIDs id.Generator
	attemptIDs id.Generator
	items      reviewout.ItemStore
	attempts   reviewout.AttemptLog
	policy     domain.Policy
	shuffle    func(n int, swap func(i, j int))
}

func NewReviewService(clk clock.Clock, sessionIDs, attemptIDs id.Generator, items reviewout.ItemStore, attempts reviewout.AttemptLog, policy domain.Policy) *ReviewService {
	return &ReviewService{
		clock:      clk,
		sessionIDs: sessionIDs,
		attemptIDs: attemptIDs,
		items:      items,
		attempts:   attempts,
		policy:     policy,
		shuffle:    rand.Shuffle,
	}
}

func (s *ReviewService) Today() string {
	return s.clock.Now().Format(domain.DateLayout)
}

func (s *ReviewService) Policy() domain.Policy {
	return s.policy
}

// DueItems computes the due set fresh from the item store: non-graduated
// items whose review date has arrived or was never set.
func (s *ReviewService) DueItems(ctx context.Context) ([]domain.Item, error) {
	all, err := s.items.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	today := s.Today()
	due := []domain.Item{}
	for _, item := range all {
		if item.Due(today) {
			due = append(due, item)
		}
	}
	return due, nil
}

// BuildSession produces a new session over a uniformly shuffled due set.
// Each due item appears exactly once in the initial queue.
func (s *ReviewService) BuildSession(ctx context.Context) (domain.Session, error) {
	due, err := s.DueItems(ctx)
	if err != nil {
		return domain.Session{}, err
	}
	queue := make([]string, len(due))
	for i, item := range due {
		queue[i] = item.ID
	}
	s.shuffle(len(queue), func(i, j int) {
		queue[i], queue[j] = queue[j], queue[i]
	})
	return domain.NewSession(s.sessionIDs.New(), queue, s.clock.Now()), nil
}

func (s *ReviewService) GetItem(ctx context.Context, itemID string) (domain.Item, error) {
	all, err := s.items.LoadAll(ctx)
	if err != nil {
		return domain.Item{}, err
	}
	for _, item := range all {
		if item.ID == itemID {
			return item, nil
		}
	}
	return domain.Item{}, fmt.Errorf("%w: %s", domain.ErrUnknownItem, itemID)
}

// SubmitAnswer applies one answer: the session/item transition, exactly one
// appended attempt carrying the post-mutation kome snapshot, and the item
// store save. The attempt is logged before the item save so that a crash in
// between can only lose derived state, never the answer record.
func (s *ReviewService) SubmitAnswer(ctx context.Context, session domain.Session, itemID string, result domain.Result, elapsedSeconds int, mistakes []string, memo string) (domain.AnswerOutcome, domain.Attempt, error) {
	all, err := s.items.LoadAll(ctx)
	if err != nil {
		return domain.AnswerOutcome{}, domain.Attempt{}, err
	}
	idx := -1
	for i, item := range all {
		if item.ID == itemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.AnswerOutcome{}, domain.Attempt{}, fmt.Errorf("%w: %s", domain.ErrUnknownItem, itemID)
	}

	today := s.Today()
	outcome, err := domain.ApplyAnswer(session, all[idx], result, today, s.policy)
	if err != nil {
		return domain.AnswerOutcome{}, domain.Attempt{}, err
	}

	if result != domain.ResultIncorrect {
		mistakes = nil
	}
	attempt := domain.Attempt{
		ID:              s.attemptIDs.New(),
		ItemID:          itemID,
		Date:            today,
		Result:          result,
		ElapsedSeconds:  elapsedSeconds,
		Mistakes:        mistakes,
		Memo:            memo,
		KomeTotalAtTime: outcome.Item.KomeTotal,
	}
	outcome.Item.History = append(outcome.Item.History, attempt.ID)
	outcome.Session.AttemptIDs = append(outcome.Session.AttemptIDs, attempt.ID)

	if err := s.attempts.Append(ctx, attempt); err != nil {
		return domain.AnswerOutcome{}, domain.Attempt{}, fmt.Errorf("append attempt: %w", err)
	}
	all[idx] = outcome.Item
	if err := s.items.SaveAll(ctx, all); err != nil {
		return domain.AnswerOutcome{}, domain.Attempt{}, fmt.Errorf("save items: %w", err)
	}
	return outcome, attempt, nil
}
