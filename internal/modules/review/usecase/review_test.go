package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	reviewout "komekome/internal/modules/review/adapter/out"
	"komekome/internal/modules/review/domain"
	"komekome/internal/modules/review/dto"
	reviewin "komekome/internal/modules/review/port/in"
	"komekome/internal/modules/review/service"
	"komekome/internal/modules/review/usecase"
	apperrors "komekome/internal/platform/errors"
)

type fakeClock struct {
	values []time.Time
	idx    int
}

func (f *fakeClock) Now() time.Time {
	if f.idx >= len(f.values) {
		return f.values[len(f.values)-1]
	}
	v := f.values[f.idx]
	f.idx++
	return v
}

type seqID struct {
	prefix string
	n      int
}

func (s *seqID) New() string {
	s.n++
	return fmt.Sprintf("%s-%d", s.prefix, s.n)
}

func newReviewUC(t *testing.T, dir string, clk *fakeClock, items []domain.Item) reviewin.Usecase {
	t.Helper()
	itemStore := reviewout.NewFileItemStore(dir)
	attemptLog := reviewout.NewFileAttemptLog(dir)
	activeStore := reviewout.NewFileActiveSessionStore(dir)
	if err := itemStore.SaveAll(context.Background(), items); err != nil {
		t.Fatalf("seed items: %v", err)
	}
	svc := service.NewReviewService(clk, &seqID{prefix: "sess"}, &seqID{prefix: "a"}, itemStore, attemptLog, domain.DefaultPolicy())
	return usecase.NewInteractor(svc, itemStore, attemptLog, activeStore)
}

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func TestThreeMissesThenCorrectAdvancesOneStage(t *testing.T) {
	t.Parallel()
	clk := &fakeClock{values: []time.Time{day("2026-08-31")}}
	uc := newReviewUC(t, t.TempDir(), clk, []domain.Item{{ID: "itm-1", Title: "quadratics"}})
	ctx := context.Background()

	start, err := uc.StartSession(ctx)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if start.Total != 1 {
		t.Fatalf("expected 1 due item, got %d", start.Total)
	}

	for miss := 1; miss <= 3; miss++ {
		out, err := uc.SubmitAnswer(ctx, dto.AnswerInput{Result: "incorrect", Mistakes: []string{"careless"}})
		if err != nil {
			t.Fatalf("miss %d: %v", miss, err)
		}
		if out.Finished {
			t.Fatalf("miss %d must not finish the session", miss)
		}
		if !out.Reinserted {
			t.Fatalf("miss %d must reinsert the item", miss)
		}
		if out.KomeTotal != miss {
			t.Fatalf("miss %d: kome total %d", miss, out.KomeTotal)
		}
	}

	out, err := uc.SubmitAnswer(ctx, dto.AnswerInput{Result: "correct", ElapsedSeconds: 40})
	if err != nil {
		t.Fatalf("final correct answer: %v", err)
	}
	if out.IntervalIndex != 1 || out.NextReview != "2026-09-03" {
		t.Fatalf("expected stage 1 due 2026-09-03, got stage %d due %s", out.IntervalIndex, out.NextReview)
	}
	if out.KomeTotal != 3 {
		t.Fatalf("kome total must stay at 3 after a correct answer, got %d", out.KomeTotal)
	}
	if !out.Finished {
		t.Fatalf("queue must be drained")
	}
	if len(out.SessionAttemptIDs) != 4 {
		t.Fatalf("expected 4 session attempts, got %d", len(out.SessionAttemptIDs))
	}

	records, err := uc.ListAttempts(ctx)
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected 4 logged attempts, got %d", len(records))
	}
	if records[0].Mistakes[0] != "careless" {
		t.Fatalf("mistake tags must be recorded, got %v", records[0].Mistakes)
	}
	last := records[len(records)-1]
	if last.Result != "correct" || last.KomeTotalAtTime != 3 || last.ElapsedSeconds != 40 {
		t.Fatalf("final attempt snapshot wrong: %+v", last)
	}

	if _, err := uc.SessionStatus(ctx); !errors.Is(err, apperrors.ErrNoActiveSession) {
		t.Fatalf("finished session must be cleared, got %v", err)
	}
}

func TestStartSessionPresentsEveryDueItemOnceInSomeOrder(t *testing.T) {
	t.Parallel()
	clk := &fakeClock{values: []time.Time{day("2026-08-31")}}
	items := []domain.Item{
		{ID: "itm-1", Title: "one"},
		{ID: "itm-2", Title: "two", NextReview: "2026-08-30"},
		{ID: "itm-3", Title: "three", NextReview: "2026-08-31"},
		{ID: "itm-4", Title: "future", NextReview: "2026-09-02"},
		{ID: "itm-5", Title: "done", Graduated: true},
	}
	uc := newReviewUC(t, t.TempDir(), clk, items)
	ctx := context.Background()

	start, err := uc.StartSession(ctx)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if start.Total != 3 {
		t.Fatalf("expected 3 due items, got %d", start.Total)
	}

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		cur, err := uc.Current(ctx)
		if err != nil {
			t.Fatalf("current %d: %v", i, err)
		}
		if seen[cur.ItemID] {
			t.Fatalf("item %s presented twice", cur.ItemID)
		}
		seen[cur.ItemID] = true
		if _, err := uc.SubmitAnswer(ctx, dto.AnswerInput{Result: "correct"}); err != nil {
			t.Fatalf("answer %d: %v", i, err)
		}
	}
	for _, id := range []string{"itm-1", "itm-2", "itm-3"} {
		if !seen[id] {
			t.Fatalf("due item %s never presented", id)
		}
	}
}

func TestStartSessionRejectsWhenOneIsActive(t *testing.T) {
	t.Parallel()
	clk := &fakeClock{values: []time.Time{day("2026-08-31")}}
	uc := newReviewUC(t, t.TempDir(), clk, []domain.Item{{ID: "itm-1", Title: "one"}})
	ctx := context.Background()

	if _, err := uc.StartSession(ctx); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if _, err := uc.StartSession(ctx); !errors.Is(err, apperrors.ErrActiveSessionExists) {
		t.Fatalf("second start must be rejected, got %v", err)
	}
}

func TestEmptyDueSetYieldsFinishedSessionWithoutPersisting(t *testing.T) {
	t.Parallel()
	clk := &fakeClock{values: []time.Time{day("2026-08-31")}}
	uc := newReviewUC(t, t.TempDir(), clk, []domain.Item{
		{ID: "itm-1", Title: "future", NextReview: "2026-09-15"},
	})
	ctx := context.Background()

	start, err := uc.StartSession(ctx)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if start.Total != 0 {
		t.Fatalf("expected empty session, got %d items", start.Total)
	}
	if _, err := uc.Current(ctx); !errors.Is(err, apperrors.ErrNoActiveSession) {
		t.Fatalf("empty session must not persist, got %v", err)
	}
}

func TestAbortDiscardsSessionButKeepsAttemptsAndItemState(t *testing.T) {
	t.Parallel()
	clk := &fakeClock{values: []time.Time{day("2026-08-31")}}
	uc := newReviewUC(t, t.TempDir(), clk, []domain.Item{
		{ID: "itm-1", Title: "one"},
		{ID: "itm-2", Title: "two"},
	})
	ctx := context.Background()

	if _, err := uc.StartSession(ctx); err != nil {
		t.Fatalf("start session: %v", err)
	}
	answered, err := uc.SubmitAnswer(ctx, dto.AnswerInput{Result: "incorrect"})
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if err := uc.AbortSession(ctx); err != nil {
		t.Fatalf("abort: %v", err)
	}
	if _, err := uc.SessionStatus(ctx); !errors.Is(err, apperrors.ErrNoActiveSession) {
		t.Fatalf("aborted session must be gone, got %v", err)
	}

	records, err := uc.ListAttempts(ctx)
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("the recorded attempt must survive the abort, got %d", len(records))
	}
	items, err := uc.ListItems(ctx)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	for _, item := range items {
		if item.ID == answered.ItemID && item.KomeTotal != 1 {
			t.Fatalf("kome mutation must survive the abort, got %d", item.KomeTotal)
		}
	}
}

func TestAnsweringNonPresentedItemIsRejectedWithoutStateChange(t *testing.T) {
	t.Parallel()
	clk := &fakeClock{values: []time.Time{day("2026-08-31")}}
	uc := newReviewUC(t, t.TempDir(), clk, []domain.Item{
		{ID: "itm-1", Title: "one"},
	})
	ctx := context.Background()

	if _, err := uc.StartSession(ctx); err != nil {
		t.Fatalf("start session: %v", err)
	}
	if _, err := uc.SubmitAnswer(ctx, dto.AnswerInput{ItemID: "itm-9", Result: "correct"}); err == nil {
		t.Fatalf("answering an unknown item must fail")
	}
	records, err := uc.ListAttempts(ctx)
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("rejected answer must not log an attempt, got %d", len(records))
	}
}

func TestMergeAttemptsIsIdempotentAndSkipsMalformedRecords(t *testing.T) {
	t.Parallel()
	clk := &fakeClock{values: []time.Time{day("2026-08-31")}}
	uc := newReviewUC(t, t.TempDir(), clk, []domain.Item{{ID: "itm-1", Title: "one"}})
	ctx := context.Background()

	records := []dto.AttemptRecord{
		{ID: "a_x1", ItemID: "itm-1", Date: "2026-08-30", Result: "correct", KomeTotalAtTime: 0},
		{ID: "a_x2", ItemID: "itm-1", Date: "2026-08-29", Result: "incorrect", KomeTotalAtTime: 1},
		{ID: "", ItemID: "itm-1", Date: "2026-08-28", Result: "correct"},
		{ID: "a_x3", ItemID: "itm-1", Date: "2026-08-28", Result: "sideways"},
	}
	adopted, err := uc.MergeAttempts(ctx, records)
	if err != nil {
		t.Fatalf("merge attempts: %v", err)
	}
	if adopted != 2 {
		t.Fatalf("expected 2 adopted, got %d", adopted)
	}

	again, err := uc.MergeAttempts(ctx, records)
	if err != nil {
		t.Fatalf("second merge: %v", err)
	}
	if again != 0 {
		t.Fatalf("replay must adopt nothing, got %d", again)
	}

	all, err := uc.ListAttempts(ctx)
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 records in the log, got %d", len(all))
	}
	if all[0].Date > all[1].Date {
		t.Fatalf("attempts must list in date order: %s then %s", all[0].Date, all[1].Date)
	}
}

func TestMergeContentCreatesAndOverlaysWithoutTouchingSchedule(t *testing.T) {
	t.Parallel()
	clk := &fakeClock{values: []time.Time{day("2026-08-31")}}
	uc := newReviewUC(t, t.TempDir(), clk, []domain.Item{
		{ID: "itm-1", Title: "old", IntervalIndex: 2, NextReview: "2026-09-07", KomeTotal: 4},
	})
	ctx := context.Background()

	out, err := uc.MergeContent(ctx, []dto.ContentItem{
		{ID: "itm-1", Title: "renamed", Book: "blue book"},
		{ID: "itm-2", Title: "brand new"},
		{ID: "", Title: "no id"},
	})
	if err != nil {
		t.Fatalf("merge content: %v", err)
	}
	if out.Created != 1 || out.Updated != 1 {
		t.Fatalf("expected 1 created and 1 updated, got %+v", out)
	}

	items, err := uc.ListItems(ctx)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	byID := map[string]dto.ItemOutput{}
	for _, item := range items {
		byID[item.ID] = item
	}
	updated := byID["itm-1"]
	if updated.Title != "renamed" {
		t.Fatalf("content overlay missing: %+v", updated)
	}
	if updated.IntervalIndex != 2 || updated.NextReview != "2026-09-07" || updated.KomeTotal != 4 {
		t.Fatalf("schedule must survive the overlay: %+v", updated)
	}
	created := byID["itm-2"]
	if created.IntervalIndex != 0 || created.NextReview != "" || created.Graduated {
		t.Fatalf("new item must start unscheduled: %+v", created)
	}
}
