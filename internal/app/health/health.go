// Package health reports liveness along with database reachability and basic
// process statistics.
package health

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// Pinger is satisfied by *sql.DB and *sqlx.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Status values.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
)

// Report is the /healthz payload.
type Report struct {
	Status     string        `json:"status"`
	Storage    string        `json:"storage"`
	Database   *Check        `json:"database,omitempty"`
	Process    *ProcessStats `json:"process,omitempty"`
	Goroutines int           `json:"goroutines"`
	Uptime     string        `json:"uptime"`
	CheckedAt  time.Time     `json:"checkedAt"`
}

// Check is the result of a single dependency check.
type Check struct {
	OK        bool   `json:"ok"`
	LatencyMS int64  `json:"latencyMs"`
	Error     string `json:"error,omitempty"`
}

// ProcessStats describes this process.
type ProcessStats struct {
	PID        int32   `json:"pid"`
	RSSBytes   uint64  `json:"rssBytes"`
	CPUPercent float64 `json:"cpuPercent"`
	OpenFiles  int     `json:"openFiles,omitempty"`
}

// Checker builds health reports.
type Checker struct {
	db      Pinger
	storage string
	started time.Time
	timeout time.Duration
	proc    *process.Process
}

// NewChecker returns a checker. db may be nil for the in-memory stores.
func NewChecker(db Pinger) *Checker {
	c := &Checker{
		db:      db,
		storage: "memory",
		started: time.Now(),
		timeout: 2 * time.Second,
	}
	if db != nil {
		c.storage = "postgres"
	}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		c.proc = p
	}
	return c
}

// Check runs every dependency check. The report is degraded when the database is
// configured and unreachable.
func (c *Checker) Check(ctx context.Context) Report {
	r := Report{
		Status:     StatusOK,
		Storage:    c.storage,
		Goroutines: runtime.NumGoroutine(),
		Uptime:     time.Since(c.started).Round(time.Second).String(),
		CheckedAt:  time.Now().UTC(),
	}
	if c.db != nil {
		r.Database = c.pingDB(ctx)
		if !r.Database.OK {
			r.Status = StatusDegraded
		}
	}
	r.Process = c.processStats(ctx)
	return r
}

func (c *Checker) pingDB(ctx context.Context) *Check {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	start := time.Now()
	err := c.db.PingContext(ctx)
	check := &Check{OK: err == nil, LatencyMS: time.Since(start).Milliseconds()}
	if err != nil {
		check.Error = err.Error()
	}
	return check
}

// processStats is best effort; platforms without procfs simply omit fields.
func (c *Checker) processStats(ctx context.Context) *ProcessStats {
	if c.proc == nil {
		return nil
	}
	stats := &ProcessStats{PID: c.proc.Pid}
	if mem, err := c.proc.MemoryInfoWithContext(ctx); err == nil && mem != nil {
		stats.RSSBytes = mem.RSS
	}
	if cpu, err := c.proc.CPUPercentWithContext(ctx); err == nil {
		stats.CPUPercent = cpu
	}
	if n, err := c.proc.NumFDsWithContext(ctx); err == nil {
		stats.OpenFiles = int(n)
	}
	return stats
}
