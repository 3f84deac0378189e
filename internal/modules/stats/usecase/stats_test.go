package usecase_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	reviewoutadapter "komekome/internal/modules/review/adapter/out"
	reviewdomain "komekome/internal/modules/review/domain"
	reviewdto "komekome/internal/modules/review/dto"
	reviewservice "komekome/internal/modules/review/service"
	reviewusecase "komekome/internal/modules/review/usecase"
	statsoutadapter "komekome/internal/modules/stats/adapter/out"
	statsin "komekome/internal/modules/stats/port/in"
	"komekome/internal/modules/stats/service"
	"komekome/internal/modules/stats/usecase"
	"komekome/internal/platform/id"
)

type fixedClock struct{ at time.Time }

func (f fixedClock) Now() time.Time { return f.at }

// 2026-08-31 is a Monday, so the Sunday-start week covers 08-30 onward.
var monday = time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

func newStatsUC(t *testing.T) (statsin.Usecase, context.Context) {
	t.Helper()
	dir := t.TempDir()
	clk := fixedClock{at: monday}
	ctx := context.Background()

	itemStore := reviewoutadapter.NewFileItemStore(dir)
	attemptLog := reviewoutadapter.NewFileAttemptLog(dir)
	activeStore := reviewoutadapter.NewFileActiveSessionStore(dir)
	if err := itemStore.SaveAll(ctx, []reviewdomain.Item{
		{ID: "itm-1", Title: "fractions"},
		{ID: "itm-2", Title: "geometry proof"},
		{ID: "itm-3", Title: "never touched"},
	}); err != nil {
		t.Fatalf("seed items: %v", err)
	}
	reviewUC := reviewusecase.NewInteractor(
		reviewservice.NewReviewService(clk, id.RandomHex{}, id.AttemptID{}, itemStore, attemptLog, reviewdomain.DefaultPolicy()),
		itemStore, attemptLog, activeStore,
	)

	adopted, err := reviewUC.MergeAttempts(ctx, []reviewdto.AttemptRecord{
		{ID: "a_1", ItemID: "itm-1", Date: "2026-08-31", Result: "correct", ElapsedSeconds: 60},
		{ID: "a_2", ItemID: "itm-2", Date: "2026-08-31", Result: "incorrect", ElapsedSeconds: 30, Mistakes: []string{"careless", "misread"}, KomeTotalAtTime: 2},
		{ID: "a_3", ItemID: "itm-2", Date: "2026-08-30", Result: "incorrect", ElapsedSeconds: 45, Mistakes: []string{"careless"}, KomeTotalAtTime: 1},
		{ID: "a_4", ItemID: "itm-1", Date: "2026-08-25", Result: "correct", ElapsedSeconds: 90},
	})
	if err != nil {
		t.Fatalf("seed attempts: %v", err)
	}
	if adopted != 4 {
		t.Fatalf("expected 4 seeded attempts, got %d", adopted)
	}

	index, err := statsoutadapter.NewSQLiteAttemptIndex(filepath.Join(dir, "stats.db"))
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	t.Cleanup(func() { _ = index.Close() })

	return usecase.NewInteractor(service.NewStatsService(clk, index), reviewUC), ctx
}

func TestWeekOverviewAggregatesFromTheAttemptLog(t *testing.T) {
	t.Parallel()
	uc, ctx := newStatsUC(t)

	out, err := uc.Overview(ctx, "week")
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if out.From != "2026-08-30" {
		t.Fatalf("week must start on Sunday, got %s", out.From)
	}
	if out.Total != 3 || out.Correct != 1 || out.Incorrect != 2 {
		t.Fatalf("week counts wrong: %+v", out)
	}
	if out.AccuracyPct != 33 {
		t.Fatalf("accuracy: got %d", out.AccuracyPct)
	}
	if out.StudySeconds != 135 {
		t.Fatalf("study seconds: got %d", out.StudySeconds)
	}
	if out.UniqueItems != 2 {
		t.Fatalf("unique items in window: got %d", out.UniqueItems)
	}
	if out.StreakDays != 2 {
		t.Fatalf("streak over 08-30..08-31: got %d", out.StreakDays)
	}
	// Coverage counts all-time attempted items against the whole catalog.
	if out.CoveragePct != 66 {
		t.Fatalf("coverage 2 of 3 items: got %d", out.CoveragePct)
	}

	if len(out.Daily) != 2 || out.Daily[0].Date != "2026-08-30" || out.Daily[1].Date != "2026-08-31" {
		t.Fatalf("daily points wrong: %+v", out.Daily)
	}
	if out.Daily[1].Total != 2 || out.Daily[1].Correct != 1 || out.Daily[1].Incorrect != 1 {
		t.Fatalf("monday point wrong: %+v", out.Daily[1])
	}

	if len(out.WeakItems) != 1 || out.WeakItems[0].ItemID != "itm-2" || out.WeakItems[0].Wrong != 2 {
		t.Fatalf("weak items wrong: %+v", out.WeakItems)
	}
	if out.WeakItems[0].Title != "geometry proof" {
		t.Fatalf("weak item must carry the catalog title, got %q", out.WeakItems[0].Title)
	}

	if len(out.Mistakes) != 2 {
		t.Fatalf("mistake breakdown wrong: %+v", out.Mistakes)
	}
	if out.Mistakes[0].Tag != "careless" || out.Mistakes[0].Count != 2 {
		t.Fatalf("most frequent tag first: %+v", out.Mistakes[0])
	}
}

func TestPeriodWindows(t *testing.T) {
	t.Parallel()
	uc, ctx := newStatsUC(t)

	day, err := uc.Overview(ctx, "day")
	if err != nil {
		t.Fatalf("day overview: %v", err)
	}
	if day.Total != 2 {
		t.Fatalf("day window: got %d attempts", day.Total)
	}

	month, err := uc.Overview(ctx, "month")
	if err != nil {
		t.Fatalf("month overview: %v", err)
	}
	if month.Total != 4 || month.StudySeconds != 225 {
		t.Fatalf("month window wrong: %+v", month)
	}

	all, err := uc.Overview(ctx, "all")
	if err != nil {
		t.Fatalf("all overview: %v", err)
	}
	if all.From != "" || all.Total != 4 {
		t.Fatalf("all-time window wrong: %+v", all)
	}

	if _, err := uc.Overview(ctx, "fortnight"); err == nil {
		t.Fatalf("unknown period must be rejected")
	}
}

func TestReindexReplacesTheWholeIndex(t *testing.T) {
	t.Parallel()
	uc, ctx := newStatsUC(t)

	count, err := uc.Reindex(ctx)
	if err != nil {
		t.Fatalf("reindex: %v", err)
	}
	if count != 4 {
		t.Fatalf("expected 4 indexed attempts, got %d", count)
	}
	again, err := uc.Reindex(ctx)
	if err != nil {
		t.Fatalf("second reindex: %v", err)
	}
	if again != 4 {
		t.Fatalf("reindex must rebuild, not accumulate: got %d", again)
	}
	out, err := uc.Overview(ctx, "all")
	if err != nil {
		t.Fatalf("overview after reindex: %v", err)
	}
	if out.Total != 4 {
		t.Fatalf("index must hold exactly the log, got %d", out.Total)
	}
}
