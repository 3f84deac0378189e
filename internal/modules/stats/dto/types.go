package dto

type Totals struct {
	Total        int
	Correct      int
	StudySeconds int
	UniqueItems  int
}

type DailyPoint struct {
	Date         string
	Total        int
	Correct      int
	Incorrect    int
	StudySeconds int
}

type WeakItem struct {
	ItemID string
	Title  string
	Wrong  int
}

type TagCount struct {
	Tag   string
	Count int
}

type OverviewOutput struct {
	Period       string
	From         string
	Total        int
	Correct      int
	Incorrect    int
	AccuracyPct  int
	StudySeconds int
	UniqueItems  int
	CoveragePct  int
	StreakDays   int
	Daily        []DailyPoint
	WeakItems    []WeakItem
	Mistakes     []TagCount
}
