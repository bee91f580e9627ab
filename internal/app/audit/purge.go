package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/R3E-Network/tracker/pkg/logger"
)

// Purgeable drops entries older than a cutoff.
type Purgeable interface {
	Purge(ctx context.Context, before time.Time) (int64, error)
}

// Purger enforces the retention window on a cron schedule.
type Purger struct {
	cron      *cron.Cron
	schedule  string
	retention time.Duration
	targets   []Purgeable
	now       func() time.Time
	log       *logger.Logger
}

// NewPurger builds a purger. The schedule uses standard cron syntax or the
// @every / @daily descriptors.
func NewPurger(schedule string, retention time.Duration, log *logger.Logger, targets ...Purgeable) (*Purger, error) {
	if retention <= 0 {
		return nil, fmt.Errorf("audit retention must be positive, got %s", retention)
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid audit purge schedule %q: %w", schedule, err)
	}
	if log == nil {
		log = logger.NewDefault("audit-purge")
	}
	return &Purger{
		cron:      cron.New(),
		schedule:  schedule,
		retention: retention,
		targets:   targets,
		now:       time.Now,
		log:       log,
	}, nil
}

func (p *Purger) Name() string { return "audit-purge" }

// Start registers the job and starts the scheduler.
func (p *Purger) Start(ctx context.Context) error {
	if _, err := p.cron.AddFunc(p.schedule, func() { p.RunOnce(context.Background()) }); err != nil {
		return fmt.Errorf("schedule audit purge: %w", err)
	}
	p.cron.Start()
	p.log.WithContext(ctx).
		WithField("schedule", p.schedule).
		WithField("retention", p.retention.String()).
		Info("audit purge scheduled")
	return nil
}

// Stop waits for a running purge to finish or ctx to expire.
func (p *Purger) Stop(ctx context.Context) error {
	done := p.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce purges every target and returns the number of removed entries.
func (p *Purger) RunOnce(ctx context.Context) int64 {
	cutoff := p.now().Add(-p.retention)
	var total int64
	for _, t := range p.targets {
		n, err := t.Purge(ctx, cutoff)
		if err != nil {
			p.log.WithContext(ctx).WithError(err).Warn("audit purge failed")
			continue
		}
		total += n
	}
	p.log.WithContext(ctx).
		WithField("removed", total).
		WithField("cutoff", cutoff.Format(time.RFC3339)).
		Debug("audit purge finished")
	return total
}
