package model

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the canonical calendar-date form used throughout the job.
const DateLayout = "2006-01-02"

// Instrument is one index constituent, resolved fresh at the start of
// every run. Immutable for the run's duration.
type Instrument struct {
	Code string // 6-digit exchange code
	Name string // display name from the index provider
}

// DailyBar is the canonical row written to storage: one instrument's
// OHLCV for one trading date. Identity is (TradeDate, StockCode); a
// re-sync fully replaces the previous row for the same key.
type DailyBar struct {
	TradeDate time.Time // UTC midnight
	StockCode string
	StockName string
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
}

// Key returns the identity key "2006-01-02|code".
func (b DailyBar) Key() string {
	return b.TradeDate.Format(DateLayout) + "|" + b.StockCode
}

// SyncPlan is the date window computed once per run.
type SyncPlan struct {
	Mode      string
	StartDate time.Time // UTC midnight, inclusive
	EndDate   time.Time // UTC midnight, inclusive
}

// RunResult aggregates the observable outcome of one sync run.
// The orchestrator is the single writer; consumers read it only after
// the run completes.
type RunResult struct {
	RunID uuid.UUID
	Mode  string

	StartedAt  time.Time
	FinishedAt time.Time

	InstrumentsAttempted int
	InstrumentsSucceeded int
	RowsWritten          int
	RecordsDropped       int

	// Errors maps stock code to the failure that stopped that
	// instrument. A non-empty map does not by itself fail the run.
	Errors map[string]error
}

// FailureRatio returns failed/attempted, or 0 for an empty run.
func (r *RunResult) FailureRatio() float64 {
	if r.InstrumentsAttempted == 0 {
		return 0
	}
	return float64(len(r.Errors)) / float64(r.InstrumentsAttempted)
}

// FailedCodes returns the codes in Errors, for logging.
func (r *RunResult) FailedCodes() []string {
	codes := make([]string, 0, len(r.Errors))
	for code := range r.Errors {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
