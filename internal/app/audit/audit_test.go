package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/tracker/pkg/logger"
)

type failingSink struct{ calls int }

func (f *failingSink) Write(context.Context, Entry) error {
	f.calls++
	return errors.New("disk full")
}

func TestLog_BoundedNewestFirst(t *testing.T) {
	l := NewLog(2, logger.NewNop())
	ctx := context.Background()
	l.Add(ctx, Entry{Path: "/a"})
	l.Add(ctx, Entry{Path: "/b"})
	l.Add(ctx, Entry{Path: "/c"})

	got := l.Recent(0)
	require.Len(t, got, 2)
	assert.Equal(t, "/c", got[0].Path)
	assert.Equal(t, "/b", got[1].Path)
	assert.False(t, got[0].Time.IsZero(), "time is stamped")

	assert.Len(t, l.Recent(1), 1)
}

func TestLog_SinkErrorsAreSwallowed(t *testing.T) {
	sink := &failingSink{}
	l := NewLog(10, logger.NewNop(), sink, nil)
	l.Add(context.Background(), Entry{Path: "/x"})

	assert.Equal(t, 1, sink.calls)
	assert.Len(t, l.Recent(10), 1)
}

func TestLog_Purge(t *testing.T) {
	l := NewLog(10, logger.NewNop())
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l.Add(context.Background(), Entry{Path: "/old", Time: now.Add(-48 * time.Hour)})
	l.Add(context.Background(), Entry{Path: "/new", Time: now})

	n, err := l.Purge(context.Background(), now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	got := l.Recent(10)
	require.Len(t, got, 1)
	assert.Equal(t, "/new", got[0].Path)
}

func TestFileSink_WritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	sink, err := NewFileSink(path)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, sink.Write(ctx, Entry{Method: "POST", Path: "/users", Status: 201}))
	require.NoError(t, sink.Write(ctx, Entry{Method: "GET", Path: "/users", Status: 200}))
	require.NoError(t, sink.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Entry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		lines = append(lines, e)
	}
	require.Len(t, lines, 2)
	assert.Equal(t, 201, lines[0].Status)
	assert.Equal(t, "GET", lines[1].Method)
}

func TestFileSink_BadPath(t *testing.T) {
	_, err := NewFileSink(filepath.Join(t.TempDir(), "missing", "audit.jsonl"))
	assert.Error(t, err)
}

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func TestPostgresSink_Write(t *testing.T) {
	db, mock := newMock(t)
	sink := NewPostgresSink(db)
	when := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO audit_log").
		WithArgs(when, "alice", "MANAGER", "POST", "/projects", 201, int64(12), "10.0.0.1:5555", "trace-1").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := sink.Write(context.Background(), Entry{
		Time: when, Actor: "alice", Role: "MANAGER", Method: "POST", Path: "/projects",
		Status: 201, DurationMS: 12, RemoteAddr: "10.0.0.1:5555", TraceID: "trace-1",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSink_RecentAndPurge(t *testing.T) {
	db, mock := newMock(t)
	sink := NewPostgresSink(db)
	when := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"occurred_at", "actor", "role", "method", "path", "status", "duration_ms", "remote_addr", "trace_id"}).
		AddRow(when, "bob", "DEVELOPER", "PATCH", "/tickets/1", 200, int64(3), "", "t")
	mock.ExpectQuery("SELECT occurred_at").WithArgs(5).WillReturnRows(rows)
	mock.ExpectExec("DELETE FROM audit_log").WithArgs(when).WillReturnResult(sqlmock.NewResult(0, 7))

	got, err := sink.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "bob", got[0].Actor)

	n, err := sink.Purge(context.Background(), when)
	require.NoError(t, err)
	assert.EqualValues(t, 7, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSink_RecentEmptyEncodesAsArray(t *testing.T) {
	db, mock := newMock(t)
	sink := NewPostgresSink(db)

	rows := sqlmock.NewRows([]string{"occurred_at", "actor", "role", "method", "path", "status", "duration_ms", "remote_addr", "trace_id"})
	mock.ExpectQuery("SELECT occurred_at").WithArgs(100).WillReturnRows(rows)

	got, err := sink.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.NotNil(t, got)

	buf, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(buf))
	require.NoError(t, mock.ExpectationsWereMet())
}

type countingTarget struct {
	cutoff time.Time
	n      int64
	err    error
}

func (c *countingTarget) Purge(_ context.Context, before time.Time) (int64, error) {
	c.cutoff = before
	return c.n, c.err
}

func TestPurger_RunOnce(t *testing.T) {
	now := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	ok := &countingTarget{n: 3}
	broken := &countingTarget{err: errors.New("db down")}

	p, err := NewPurger("@daily", 24*time.Hour, logger.NewNop(), ok, broken)
	require.NoError(t, err)
	p.now = func() time.Time { return now }

	assert.EqualValues(t, 3, p.RunOnce(context.Background()))
	assert.Equal(t, now.Add(-24*time.Hour), ok.cutoff)
	assert.Equal(t, now.Add(-24*time.Hour), broken.cutoff, "failures do not stop other targets")
}

func TestPurger_Validation(t *testing.T) {
	_, err := NewPurger("not a schedule", time.Hour, nil)
	assert.Error(t, err)
	_, err = NewPurger("@hourly", 0, nil)
	assert.Error(t, err)
}

func TestPurger_Lifecycle(t *testing.T) {
	p, err := NewPurger("@every 1h", time.Hour, logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "audit-purge", p.Name())

	require.NoError(t, p.Start(context.Background()))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Stop(ctx))
}
