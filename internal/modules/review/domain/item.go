package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNoPresentedItem = errors.New("review: no item is presented")
	ErrItemMismatch    = errors.New("review: answer does not match the presented item")
	ErrUnknownResult   = errors.New("review: unknown answer result")
	ErrUnknownItem     = errors.New("review: unknown item")
)

// DateLayout is the calendar-day format used for all scheduling dates.
// Lexicographic comparison of two dates in this layout matches chronological
// order, which the due check relies on.
const DateLayout = "2006-01-02"

type Result string

const (
	ResultCorrect   Result = "correct"
	ResultIncorrect Result = "incorrect"
)

func (r Result) Validate() error {
	switch r {
	case ResultCorrect, ResultIncorrect:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownResult, r)
	}
}

// Policy holds the scheduling constants. SpacingDays[k] is the day offset
// applied when an item advances from interval index k to k+1; an advance past
// the last stage graduates the item.
type Policy struct {
	SpacingDays         []int
	SessionMistakeLimit int
	ReinsertOffset      int
}

func DefaultPolicy() Policy {
	return Policy{
		SpacingDays:         []int{3, 7, 14, 28},
		SessionMistakeLimit: 4,
		ReinsertOffset:      3,
	}
}

// Item is a single practice item with its scheduling state. Content fields
// are owned by the external publisher; scheduling fields are local
// authoritative state and survive content updates.
type Item struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Category      string   `json:"category,omitempty"`
	Book          string   `json:"book,omitempty"`
	Kind          string   `json:"kind,omitempty"`
	TargetMinutes int      `json:"target_minutes,omitempty"`
	ImageKey      string   `json:"image_key,omitempty"`
	IntervalIndex int      `json:"interval_index"`
	NextReview    string   `json:"next_review,omitempty"`
	Graduated     bool     `json:"graduated"`
	KomeTotal     int      `json:"kome_total"`
	LastReviewed  string   `json:"last_reviewed,omitempty"`
	History       []string `json:"history,omitempty"`
}

// Due reports whether the item should appear in today's session. Graduated
// items never do; an empty NextReview means eligible immediately.
func (i Item) Due(today string) bool {
	if i.Graduated {
		return false
	}
	return i.NextReview == "" || i.NextReview <= today
}

func (i Item) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("item id is required")
	}
	if i.Graduated && i.NextReview != "" {
		return fmt.Errorf("item %s: graduated items must not carry a review date", i.ID)
	}
	if i.KomeTotal < 0 {
		return fmt.Errorf("item %s: kome total must not be negative", i.ID)
	}
	return nil
}

// AddDays shifts a DateLayout date by n calendar days.
func AddDays(date string, n int) string {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return date
	}
	return t.AddDate(0, 0, n).Format(DateLayout)
}

// AdvanceInterval applies one successful stage advance: interval index moves
// up one step, the next review lands spacing[newIndex-1] days out, and an
// advance past the last stage graduates the item permanently.
func AdvanceInterval(item Item, today string, spacing []int) Item {
	next := item.IntervalIndex + 1
	if next > len(spacing) {
		item.Graduated = true
		item.NextReview = ""
	} else {
		item.IntervalIndex = next
		item.NextReview = AddDays(today, spacing[next-1])
	}
	item.LastReviewed = today
	return item
}

// MarkIncorrect records a wrong answer: the cumulative kome counter moves up
// and never back down. The interval index is left untouched; re-exposure is
// handled by session reinsertion, not by resetting long-term progress.
func MarkIncorrect(item Item, today string) Item {
	item.KomeTotal++
	item.LastReviewed = today
	return item
}

// MergeContent overlays externally published content fields onto a local
// item. Scheduling state and history are local authoritative and are never
// overwritten by a pull.
func MergeContent(local, remote Item) Item {
	local.Title = remote.Title
	local.Category = remote.Category
	local.Book = remote.Book
	local.Kind = remote.Kind
	local.TargetMinutes = remote.TargetMinutes
	local.ImageKey = remote.ImageKey
	return local
}

// NewItemFromContent creates a fresh item for content never seen locally,
// with scheduling state at defaults.
func NewItemFromContent(remote Item) Item {
	return Item{
		ID:            remote.ID,
		Title:         remote.Title,
		Category:      remote.Category,
		Book:          remote.Book,
		Kind:          remote.Kind,
		TargetMinutes: remote.TargetMinutes,
		ImageKey:      remote.ImageKey,
	}
}
