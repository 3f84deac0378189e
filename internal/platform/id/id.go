package id

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"time"
)

// Generator creates opaque identifiers.
type Generator interface {
	New() string
}

// AttemptID generates attempt identifiers of the form a_<base36 millis>_<suffix>.
// The timestamp component keeps ids roughly sortable; the random suffix keeps
// them unique across devices recording at the same millisecond.
type AttemptID struct{}

func (AttemptID) New() string {
	buf := make([]byte, 3)
	_, _ = rand.Read(buf)
	millis := time.Now().UnixMilli()
	return "a_" + strconv.FormatInt(millis, 36) + "_" + hex.EncodeToString(buf)
}

type RandomHex struct{}

func (RandomHex) New() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
