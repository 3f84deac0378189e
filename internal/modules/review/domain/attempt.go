package domain

import (
	"fmt"
	"sort"
)

// Attempt is an immutable record of one answered item. The id doubles as the
// merge key across devices; once written an attempt is never modified.
type Attempt struct {
	ID              string   `json:"id"`
	ItemID          string   `json:"item_id"`
	Date            string   `json:"date"`
	Result          Result   `json:"result"`
	ElapsedSeconds  int      `json:"elapsed_seconds,omitempty"`
	Mistakes        []string `json:"mistakes,omitempty"`
	Memo            string   `json:"memo,omitempty"`
	KomeTotalAtTime int      `json:"kome_total_at_time"`
}

func (a Attempt) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("attempt id is required")
	}
	if a.ItemID == "" {
		return fmt.Errorf("attempt %s: item id is required", a.ID)
	}
	if a.Date == "" {
		return fmt.Errorf("attempt %s: date is required", a.ID)
	}
	return a.Result.Validate()
}

// SortAttempts orders attempts by (date, id). Arrival order carries no
// meaning after a merge; readers sort on the record's own fields.
func SortAttempts(attempts []Attempt) {
	sort.Slice(attempts, func(i, j int) bool {
		if attempts[i].Date != attempts[j].Date {
			return attempts[i].Date < attempts[j].Date
		}
		return attempts[i].ID < attempts[j].ID
	})
}

// MistakeTags is the fixed taxonomy an incorrect answer may be labelled with.
var MistakeTags = []string{
	"knowledge-gap",
	"condition-misjudged",
	"misread",
	"procedure",
	"careless",
	"omission",
	"memorization",
	"composition",
}
