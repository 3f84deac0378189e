package dto

import "time"

type StartOutput struct {
	SessionID string
	Total     int
	StartedAt time.Time
}

type CurrentOutput struct {
	SessionID     string
	ItemID        string
	Title         string
	Category      string
	Book          string
	Kind          string
	TargetMinutes int
	ImageKey      string
	IntervalIndex int
	KomeTotal     int
	SessionMisses int
	Position      int
	QueueLength   int
	Remaining     int
}

type AnswerInput struct {
	ItemID         string
	Result         string
	ElapsedSeconds int
	Mistakes       []string
	Memo           string
}

type AnswerOutput struct {
	AttemptID         string
	ItemID            string
	Result            string
	CycleCompleted    bool
	Reinserted        bool
	Graduated         bool
	IntervalIndex     int
	NextReview        string
	KomeTotal         int
	Remaining         int
	Finished          bool
	SessionID         string
	SessionAttemptIDs []string
}

type SessionStatusOutput struct {
	SessionID string
	StartedAt time.Time
	Correct   int
	Incorrect int
	Cycles    int
	Remaining int
	Queue     int
}

type ItemOutput struct {
	ID            string
	Title         string
	Category      string
	Book          string
	Kind          string
	IntervalIndex int
	NextReview    string
	Graduated     bool
	KomeTotal     int
	LastReviewed  string
	Attempts      int
}

// ContentItem is the externally published shape of an item: content only,
// no scheduling state.
type ContentItem struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Category      string `json:"category,omitempty"`
	Book          string `json:"book,omitempty"`
	Kind          string `json:"kind,omitempty"`
	TargetMinutes int    `json:"target_minutes,omitempty"`
	ImageKey      string `json:"image_key,omitempty"`
}

// AttemptRecord is the wire and merge shape of an attempt.
type AttemptRecord struct {
	ID              string   `json:"id"`
	ItemID          string   `json:"item_id"`
	Date            string   `json:"date"`
	Result          string   `json:"result"`
	ElapsedSeconds  int      `json:"elapsed_seconds,omitempty"`
	Mistakes        []string `json:"mistakes,omitempty"`
	Memo            string   `json:"memo,omitempty"`
	KomeTotalAtTime int      `json:"kome_total_at_time"`
}

type ContentMergeOutput struct {
	Created int
	Updated int
}
