// Package audit keeps a trail of API requests: who called what, and with what
// outcome. Entries are held in a bounded in-memory buffer and optionally
// forwarded to durable sinks.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/R3E-Network/tracker/pkg/logger"
)

// Entry is one audited request.
type Entry struct {
	Time       time.Time `json:"time" db:"occurred_at"`
	Actor      string    `json:"actor,omitempty" db:"actor"`
	Role       string    `json:"role,omitempty" db:"role"`
	Method     string    `json:"method" db:"method"`
	Path       string    `json:"path" db:"path"`
	Status     int       `json:"status" db:"status"`
	DurationMS int64     `json:"durationMs" db:"duration_ms"`
	RemoteAddr string    `json:"remoteAddr,omitempty" db:"remote_addr"`
	TraceID    string    `json:"traceId,omitempty" db:"trace_id"`
}

// Sink persists entries beyond the in-memory buffer.
type Sink interface {
	Write(ctx context.Context, entry Entry) error
}

// Log is a bounded, concurrency-safe audit buffer.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	max     int
	sinks   []Sink
	log     *logger.Logger
}

// NewLog keeps the last max entries (200 when max <= 0).
func NewLog(max int, log *logger.Logger, sinks ...Sink) *Log {
	if max <= 0 {
		max = 200
	}
	if log == nil {
		log = logger.NewDefault("audit")
	}
	l := &Log{max: max, log: log}
	for _, s := range sinks {
		if s != nil {
			l.sinks = append(l.sinks, s)
		}
	}
	return l
}

// Add records an entry. Sink failures are logged and never reach the caller.
func (l *Log) Add(ctx context.Context, entry Entry) {
	if entry.Time.IsZero() {
		entry.Time = time.Now().UTC()
	}
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	if len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
	sinks := l.sinks
	l.mu.Unlock()

	for _, s := range sinks {
		if err := s.Write(ctx, entry); err != nil {
			l.log.WithContext(ctx).WithError(err).Warn("audit sink write failed")
		}
	}
}

// Recent returns up to limit entries, newest first.
func (l *Log) Recent(limit int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	if limit <= 0 || limit > len(l.entries) {
		limit = len(l.entries)
	}
	out := make([]Entry, 0, limit)
	for i := len(l.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, l.entries[i])
	}
	return out
}

// Purge drops buffered entries recorded before the cutoff.
func (l *Log) Purge(_ context.Context, before time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.entries[:0]
	for _, e := range l.entries {
		if !e.Time.Before(before) {
			kept = append(kept, e)
		}
	}
	removed := int64(len(l.entries) - len(kept))
	l.entries = kept
	return removed, nil
}
