package domain

import (
	"fmt"
	"time"
)

type SessionStats struct {
	Correct   int `json:"correct"`
	Incorrect int `json:"incorrect"`
	Cycles    int `json:"cycles"`
}

// Session is the ephemeral state of one review sitting. The queue may grow
// during the session as missed items are reinserted; the session ends when
// the cursor passes the end of the queue. Aborting a session discards this
// state but never rolls back item mutations or logged attempts.
type Session struct {
	ID            string         `json:"id"`
	StartedAt     time.Time      `json:"started_at"`
	Queue         []string       `json:"queue"`
	Cursor        int            `json:"cursor"`
	MistakeCounts map[string]int `json:"mistake_counts"`
	AttemptIDs    []string       `json:"attempt_ids"`
	Stats         SessionStats   `json:"stats"`
}

func NewSession(id string, queue []string, startedAt time.Time) Session {
	return Session{
		ID:            id,
		StartedAt:     startedAt,
		Queue:         queue,
		Cursor:        0,
		MistakeCounts: map[string]int{},
	}
}

// Current returns the presented item id, or false when the queue is drained.
func (s Session) Current() (string, bool) {
	if s.Cursor < 0 || s.Cursor >= len(s.Queue) {
		return "", false
	}
	return s.Queue[s.Cursor], true
}

func (s Session) Finished() bool {
	return s.Cursor >= len(s.Queue)
}

// Remaining counts queue slots not yet presented, including the current one.
func (s Session) Remaining() int {
	if s.Finished() {
		return 0
	}
	return len(s.Queue) - s.Cursor
}

func (s Session) clone() Session {
	out := s
	out.Queue = append([]string(nil), s.Queue...)
	out.AttemptIDs = append([]string(nil), s.AttemptIDs...)
	out.MistakeCounts = make(map[string]int, len(s.MistakeCounts))
	for k, v := range s.MistakeCounts {
		out.MistakeCounts[k] = v
	}
	return out
}

// Reinsert places another occurrence of id a fixed lookahead past the
// current cursor, so other queued items are seen before it repeats. The
// insertion point is clamped to the queue end.
func Reinsert(queue []string, cursor int, id string, offset int) []string {
	pos := cursor + 1 + offset
	if pos > len(queue) {
		pos = len(queue)
	}
	out := make([]string, 0, len(queue)+1)
	out = append(out, queue[:pos]...)
	out = append(out, id)
	out = append(out, queue[pos:]...)
	return out
}

// AnswerOutcome carries the states produced by one answer transition.
type AnswerOutcome struct {
	Session        Session
	Item           Item
	CycleCompleted bool
	Reinserted     bool
}

// ApplyAnswer is the pure transition for one submitted answer. It returns
// new session and item values and never mutates its inputs; callers persist
// the results atomically. Answering with no presented item, or for an item
// other than the presented one, is an invariant violation and is rejected
// without any state change.
func ApplyAnswer(s Session, item Item, result Result, today string, policy Policy) (AnswerOutcome, error) {
	if err := result.Validate(); err != nil {
		return AnswerOutcome{}, err
	}
	current, ok := s.Current()
	if !ok {
		return AnswerOutcome{}, ErrNoPresentedItem
	}
	if current != item.ID {
		return AnswerOutcome{}, fmt.Errorf("%w: presented %s, answered %s", ErrItemMismatch, current, item.ID)
	}

	next := s.clone()
	out := AnswerOutcome{}

	switch result {
	case ResultCorrect:
		item = AdvanceInterval(item, today, policy.SpacingDays)
		next.Stats.Correct++
		delete(next.MistakeCounts, item.ID)
	case ResultIncorrect:
		item = MarkIncorrect(item, today)
		next.Stats.Incorrect++
		count := next.MistakeCounts[item.ID] + 1
		if count >= policy.SessionMistakeLimit {
			// A full mistake-cycle counts as one completed exposure:
			// the interval advances exactly as for a correct answer and
			// the item is not reinserted.
			item = AdvanceInterval(item, today, policy.SpacingDays)
			delete(next.MistakeCounts, item.ID)
			next.Stats.Cycles++
			out.CycleCompleted = true
		} else {
			next.MistakeCounts[item.ID] = count
			next.Queue = Reinsert(next.Queue, next.Cursor, item.ID, policy.ReinsertOffset)
			out.Reinserted = true
		}
	}

	next.Cursor++
	out.Session = next
	out.Item = item
	return out, nil
}
