package service

import (
	"context"
	"fmt"
	"time"

	reviewdomain "komekome/internal/modules/review/domain"
	reviewdto "komekome/internal/modules/review/dto"
	"komekome/internal/modules/stats/dto"
	statsout "komekome/internal/modules/stats/port/out"
	"komekome/internal/platform/clock"
)

const weakItemLimit = 5

// StatsService turns the attempt index into period aggregates.
type StatsService struct {
	clock clock.Clock
	index statsout.AttemptIndex
}

func NewStatsService(clk clock.Clock, index statsout.AttemptIndex) *StatsService {
	return &StatsService{clock: clk, index: index}
}

func (s *StatsService) Rebuild(ctx context.Context, records []reviewdto.AttemptRecord) error {
	return s.index.Rebuild(ctx, records)
}

// PeriodStart returns the inclusive first date of the period, or "" for all
// time. Weeks start on Sunday.
func (s *StatsService) PeriodStart(period string) (string, error) {
	now := s.clock.Now()
	switch period {
	case "day":
		return now.Format(reviewdomain.DateLayout), nil
	case "week":
		start := now.AddDate(0, 0, -int(now.Weekday()))
		return start.Format(reviewdomain.DateLayout), nil
	case "month":
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start.Format(reviewdomain.DateLayout), nil
	case "year":
		start := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
		return start.Format(reviewdomain.DateLayout), nil
	case "all", "":
		return "", nil
	default:
		return "", fmt.Errorf("unknown period %q", period)
	}
}

func (s *StatsService) Overview(ctx context.Context, period string, totalItems int) (dto.OverviewOutput, error) {
	from, err := s.PeriodStart(period)
	if err != nil {
		return dto.OverviewOutput{}, err
	}

	totals, err := s.index.Totals(ctx, from)
	if err != nil {
		return dto.OverviewOutput{}, err
	}
	daily, err := s.index.DailyCounts(ctx, from)
	if err != nil {
		return dto.OverviewOutput{}, err
	}
	weak, err := s.index.WeakItems(ctx, from, weakItemLimit)
	if err != nil {
		return dto.OverviewOutput{}, err
	}
	mistakes, err := s.index.MistakeCounts(ctx, from)
	if err != nil {
		return dto.OverviewOutput{}, err
	}
	streak, err := s.streak(ctx)
	if err != nil {
		return dto.OverviewOutput{}, err
	}
	attempted, err := s.index.AttemptedItemCount(ctx)
	if err != nil {
		return dto.OverviewOutput{}, err
	}

	out := dto.OverviewOutput{
		Period:       period,
		From:         from,
		Total:        totals.Total,
		Correct:      totals.Correct,
		Incorrect:    totals.Total - totals.Correct,
		StudySeconds: totals.StudySeconds,
		UniqueItems:  totals.UniqueItems,
		StreakDays:   streak,
		Daily:        daily,
		WeakItems:    weak,
		Mistakes:     mistakes,
	}
	if totals.Total > 0 {
		out.AccuracyPct = totals.Correct * 100 / totals.Total
	}
	if totalItems > 0 {
		out.CoveragePct = attempted * 100 / totalItems
	}
	return out, nil
}

// streak counts consecutive practice days ending today, or yesterday when
// today has no attempts yet.
func (s *StatsService) streak(ctx context.Context) (int, error) {
	dates, err := s.index.PracticeDates(ctx)
	if err != nil {
		return 0, err
	}
	if len(dates) == 0 {
		return 0, nil
	}
	today := s.clock.Now().Format(reviewdomain.DateLayout)
	yesterday := reviewdomain.AddDays(today, -1)

	expected := today
	if dates[0] != today {
		if dates[0] != yesterday {
			return 0, nil
		}
		expected = yesterday
	}
	streak := 0
	for _, date := range dates {
		if date != expected {
			break
		}
		streak++
		expected = reviewdomain.AddDays(expected, -1)
	}
	return streak, nil
}
