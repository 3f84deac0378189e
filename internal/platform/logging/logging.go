// Package logging provides the shared zerolog logger. The sync engine is the
// main consumer; scheduling logic is pure and stays silent.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu     sync.RWMutex
	logger = zerolog.New(io.Discard)
)

// Init configures the global logger. Level falls back to info when the
// string is unknown; KOMEKOME_LOG_LEVEL overrides the argument.
func Init(level string) {
	if env := os.Getenv("KOMEKOME_LOG_LEVEL"); env != "" {
		level = env
	}
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}

	mu.Lock()
	defer mu.Unlock()
	logger = zerolog.New(writer).Level(parsed).With().Timestamp().Logger()
}

func get() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func Debug() *zerolog.Event { l := get(); return l.Debug() }

func Info() *zerolog.Event { l := get(); return l.Info() }

func Warn() *zerolog.Event { l := get(); return l.Warn() }

func Error() *zerolog.Event { l := get(); return l.Error() }
