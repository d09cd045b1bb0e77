package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lwei/csi800-data/internal/model"
	"github.com/lwei/csi800-data/internal/normalize"
	"github.com/lwei/csi800-data/internal/provider"
)

// ErrRunTimeout marks instruments left unprocessed when the run's
// time budget ran out.
var ErrRunTimeout = errors.New("run time budget exceeded")

// RosterSource resolves the current index constituents.
type RosterSource interface {
	Constituents(ctx context.Context) ([]model.Instrument, error)
}

// BarSource fetches one instrument's raw daily history.
type BarSource interface {
	DailyBars(ctx context.Context, code string, start, end time.Time) ([]provider.RawBar, error)
}

// BarStore commits canonical rows idempotently.
type BarStore interface {
	UpsertBars(ctx context.Context, bars []model.DailyBar) (int, error)
}

// Config holds orchestration settings.
type Config struct {
	Concurrency int           // parallel instrument fetches
	RunTimeout  time.Duration // wall-clock budget for the whole run; 0 = none
}

// Runner orchestrates roster → fetch → normalize → write.
type Runner struct {
	cfg    Config
	roster RosterSource
	bars   BarSource
	store  BarStore
	logger *slog.Logger
}

// New creates a Runner.
func New(cfg Config, roster RosterSource, bars BarSource, store BarStore, logger *slog.Logger) *Runner {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		cfg:    cfg,
		roster: roster,
		bars:   bars,
		store:  store,
		logger: logger,
	}
}

// Run executes one sync over the whole roster. The returned error is
// non-nil only for fatal failures (no roster); per-instrument
// failures live in RunResult.Errors.
func (r *Runner) Run(ctx context.Context, p model.SyncPlan) (*model.RunResult, error) {
	return r.run(ctx, p, nil)
}

// run syncs the roster, optionally narrowed by keep.
func (r *Runner) run(ctx context.Context, p model.SyncPlan, keep func(model.Instrument) bool) (*model.RunResult, error) {
	result := &model.RunResult{
		RunID:     uuid.New(),
		Mode:      p.Mode,
		StartedAt: time.Now().UTC(),
		Errors:    make(map[string]error),
	}
	logger := r.logger.With("run_id", result.RunID, "mode", p.Mode)

	logger.Info("starting sync run",
		"start_date", p.StartDate.Format(model.DateLayout),
		"end_date", p.EndDate.Format(model.DateLayout),
	)

	instruments, err := r.roster.Constituents(ctx)
	if err != nil {
		return nil, err
	}
	if keep != nil {
		filtered := instruments[:0:0]
		for _, inst := range instruments {
			if keep(inst) {
				filtered = append(filtered, inst)
			}
		}
		instruments = filtered
	}
	result.InstrumentsAttempted = len(instruments)

	if r.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.RunTimeout)
		defer cancel()
	}

	// Semaphore for bounded concurrency; the mutex is the single
	// accumulation point for the shared result.
	sem := make(chan struct{}, r.cfg.Concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, inst := range instruments {
		wg.Add(1)
		go func(inst model.Instrument) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				mu.Lock()
				result.Errors[inst.Code] = fmt.Errorf("%w: %v", ErrRunTimeout, ctx.Err())
				mu.Unlock()
				return
			}
			if ctx.Err() != nil {
				mu.Lock()
				result.Errors[inst.Code] = fmt.Errorf("%w: %v", ErrRunTimeout, ctx.Err())
				mu.Unlock()
				return
			}

			rows, dropped, err := r.syncInstrument(ctx, inst, p)

			mu.Lock()
			defer mu.Unlock()
			result.RecordsDropped += dropped
			if err != nil {
				result.Errors[inst.Code] = err
				logger.Warn("instrument failed",
					"code", inst.Code,
					"name", inst.Name,
					"error", err,
				)
				return
			}
			result.InstrumentsSucceeded++
			result.RowsWritten += rows
			logger.Debug("instrument synced",
				"code", inst.Code,
				"rows", rows,
				"dropped", dropped,
			)
		}(inst)
	}
	wg.Wait()

	result.FinishedAt = time.Now().UTC()
	logger.Info("sync run complete",
		"attempted", result.InstrumentsAttempted,
		"succeeded", result.InstrumentsSucceeded,
		"failed", len(result.Errors),
		"rows_written", result.RowsWritten,
		"records_dropped", result.RecordsDropped,
		"duration", result.FinishedAt.Sub(result.StartedAt),
	)
	return result, nil
}

// syncInstrument runs fetch → normalize → write for one constituent.
// An empty history is a success with zero rows.
func (r *Runner) syncInstrument(ctx context.Context, inst model.Instrument, p model.SyncPlan) (rows, dropped int, err error) {
	raw, err := r.bars.DailyBars(ctx, inst.Code, p.StartDate, p.EndDate)
	if err != nil {
		return 0, 0, err
	}

	bars, dropped := normalize.Normalize(inst, raw)
	bars = clampToWindow(bars, p)
	if len(bars) == 0 {
		return 0, dropped, nil
	}

	rows, err = r.store.UpsertBars(ctx, bars)
	if err != nil {
		return rows, dropped, err
	}
	return rows, dropped, nil
}

// clampToWindow discards bars dated outside [StartDate, EndDate]; no
// row may ever be written beyond the planned window, whatever the
// provider returned.
func clampToWindow(bars []model.DailyBar, p model.SyncPlan) []model.DailyBar {
	kept := bars[:0]
	for _, b := range bars {
		if b.TradeDate.Before(p.StartDate) || b.TradeDate.After(p.EndDate) {
			continue
		}
		kept = append(kept, b)
	}
	return kept
}
