package domain

import (
	"errors"
	"time"

	reviewdto "komekome/internal/modules/review/dto"
)

var (
	// ErrRemoteUnavailable covers timeouts, connection failures and 5xx
	// responses: the operation may succeed later and is queued for retry.
	ErrRemoteUnavailable = errors.New("sync: remote store unavailable")
	// ErrPermanentRejection covers auth failures and other 4xx responses:
	// a configuration problem, never retried automatically.
	ErrPermanentRejection = errors.New("sync: remote store rejected request")
	// ErrMalformedPayload marks a remote document that failed to decode.
	// The document is discarded; the rest of the merge proceeds.
	ErrMalformedPayload = errors.New("sync: malformed remote payload")
)

// Retryable reports whether a failed remote operation should be queued and
// replayed rather than surfaced as a configuration problem.
func Retryable(err error) bool {
	return errors.Is(err, ErrRemoteUnavailable)
}

// Remote key scheme: one key holds the externally authored item content,
// and each pushed attempt batch gets its own key under AttemptPrefix so the
// full attempt set is readable back as a flat list.
const (
	ContentKey    = "content/items"
	AttemptPrefix = "attempts/"
)

// Batch is one durable unit of the push path. Its id is also its remote
// key suffix, which makes a replayed push overwrite the same document
// instead of duplicating it.
type Batch struct {
	ID        string                    `json:"id"`
	SessionID string                    `json:"session_id,omitempty"`
	CreatedAt time.Time                 `json:"created_at"`
	Attempts  []reviewdto.AttemptRecord `json:"attempts"`
}

func (b Batch) Key() string {
	return AttemptPrefix + b.ID
}

// PendingBatch is one queue entry: the batch plus its delivery record. A
// held entry was rejected permanently; the automatic flush skips it and only
// an explicit flush retries it.
type PendingBatch struct {
	Batch Batch `json:"batch"`
	Held  bool  `json:"held,omitempty"`
}

// ContentBundle is the externally published item set.
type ContentBundle struct {
	Version int                     `json:"version"`
	Items   []reviewdto.ContentItem `json:"items"`
}

// MissingRemotely returns local attempts whose ids are absent from the
// remote set; those are the ones still owed a push.
func MissingRemotely(local []reviewdto.AttemptRecord, remoteIDs map[string]struct{}) []reviewdto.AttemptRecord {
	missing := []reviewdto.AttemptRecord{}
	for _, a := range local {
		if _, ok := remoteIDs[a.ID]; !ok {
			missing = append(missing, a)
		}
	}
	return missing
}

type Status string

const (
	StatusIdle    Status = "idle"
	StatusSyncing Status = "syncing"
	StatusSynced  Status = "synced"
	StatusOffline Status = "offline"
	StatusError   Status = "error"
)
