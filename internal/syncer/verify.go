package syncer

import (
	"context"
	"time"

	"github.com/lwei/csi800-data/internal/model"
	"github.com/lwei/csi800-data/internal/plan"
)

// LatestSource reports each stock's most recent stored trade date.
type LatestSource interface {
	LatestDates(ctx context.Context) (map[string]time.Time, error)
}

// Verify repairs constituents whose stored history lags the store's
// most recent trade date, or is missing entirely. Lagging and missing
// stocks get one incremental-window re-sync; everything current is
// left alone. An empty table falls back to an incremental sync of the
// whole roster.
func (r *Runner) Verify(ctx context.Context, planner *plan.Planner, latest LatestSource) (*model.RunResult, error) {
	dates, err := latest.LatestDates(ctx)
	if err != nil {
		return nil, err
	}

	p, err := planner.Plan(plan.ModeIncremental, "")
	if err != nil {
		return nil, err
	}
	p.Mode = "verify"

	if len(dates) == 0 {
		r.logger.Info("store is empty, repairing whole roster")
		return r.run(ctx, p, nil)
	}

	// The store-wide max trade date is the baseline every stock
	// should have reached.
	var baseline time.Time
	for _, d := range dates {
		if d.After(baseline) {
			baseline = d
		}
	}
	r.logger.Info("verify baseline resolved",
		"latest_trade_date", baseline.Format(model.DateLayout),
		"stocks_in_store", len(dates),
	)

	return r.run(ctx, p, func(inst model.Instrument) bool {
		d, ok := dates[inst.Code]
		return !ok || d.Before(baseline)
	})
}
