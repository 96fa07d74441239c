package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"worklog-summary/internal/logger"
	"worklog-summary/internal/period"
)

const (
	sweepLockKey = "worklog-summary:sweep"
	sweepLockTTL = 30 * time.Minute
)

// ErrSweepLocked is returned when another instance holds the sweep lock.
var ErrSweepLocked = errors.New("sweep already running elsewhere")

// SweepGuard serializes sweeps across processes.
type SweepGuard interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// SweepReport counts the outcomes of one sweep.
type SweepReport struct {
	Tenants  int
	Created  int
	Existing int
	NoData   int
	Failed   int
}

func (r *SweepReport) String() string {
	return fmt.Sprintf("tenants=%d created=%d existing=%d no_data=%d failed=%d",
		r.Tenants, r.Created, r.Existing, r.NoData, r.Failed)
}

// CheckAndFillMissingSummaries generates the summaries of every closed week and
// month that ended within the last daysBack days and is still missing. It
// recovers periods whose triggered generation was dropped or failed.
func (e *Executor) CheckAndFillMissingSummaries(ctx context.Context, daysBack int) (*SweepReport, error) {
	if daysBack <= 0 {
		daysBack = 7
	}

	if e.sweepGuard != nil {
		release, err := e.sweepGuard.TryLock(ctx, sweepLockKey, sweepLockTTL)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	log := logger.WithModule("sweep")
	now := e.now().UTC()
	periods := closedPeriods(now, daysBack)

	tenants, err := e.store.ListTenants(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}

	report := &SweepReport{Tenants: len(tenants)}
	for _, tenant := range tenants {
		for _, p := range periods {
			if err := ctx.Err(); err != nil {
				return report, err
			}

			result, err := e.GeneratePeriod(ctx, tenant, p)
			if err != nil {
				report.Failed++
				log.Warnf("Failed to fill %s summary %s for %s: %v", p.Type, p.Key(), tenant, err)
				continue
			}
			switch result.Status {
			case StatusCreated:
				report.Created++
				log.Infof("Filled missing %s summary %s for %s", p.Type, p.Key(), tenant)
			case StatusAlreadyGenerated:
				report.Existing++
			case StatusNoData:
				report.NoData++
			}
		}
	}

	log.Infof("Sweep finished: %s", report)
	return report, nil
}

// closedPeriods lists the distinct weeks and months that have ended by now and
// whose end falls within the last daysBack days.
func closedPeriods(now time.Time, daysBack int) []period.Period {
	cutoff := period.StartOfDay(now).AddDate(0, 0, -daysBack)

	seen := make(map[string]bool)
	var periods []period.Period
	for d := cutoff; !d.After(now); d = d.AddDate(0, 0, 1) {
		for _, t := range []period.Type{period.Weekly, period.Monthly} {
			p, err := period.Compute(d, t)
			if err != nil {
				continue
			}
			if seen[p.Key()] || !p.Closed(now) || p.End.Before(cutoff) {
				continue
			}
			seen[p.Key()] = true
			periods = append(periods, p)
		}
	}
	return periods
}
