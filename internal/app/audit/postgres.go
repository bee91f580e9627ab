package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// PostgresSink stores entries in the audit_log table.
type PostgresSink struct {
	db *sqlx.DB
}

// NewPostgresSink wraps an open connection pool.
func NewPostgresSink(db *sqlx.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

func (s *PostgresSink) Write(ctx context.Context, entry Entry) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO audit_log (occurred_at, actor, role, method, path, status, duration_ms, remote_addr, trace_id)
		VALUES (:occurred_at, :actor, :role, :method, :path, :status, :duration_ms, :remote_addr, :trace_id)
	`, entry)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Recent reads up to limit stored entries, newest first.
func (s *PostgresSink) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	out := []Entry{}
	err := s.db.SelectContext(ctx, &out, `
		SELECT occurred_at, actor, role, method, path, status, duration_ms, remote_addr, trace_id
		FROM audit_log
		ORDER BY occurred_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return out, nil
}

// Purge deletes entries recorded before the cutoff.
func (s *PostgresSink) Purge(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM audit_log WHERE occurred_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("purge audit entries: %w", err)
	}
	return res.RowsAffected()
}
