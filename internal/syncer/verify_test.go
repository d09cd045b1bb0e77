package syncer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lwei/csi800-data/internal/model"
	"github.com/lwei/csi800-data/internal/plan"
	"github.com/lwei/csi800-data/internal/provider"
)

type fakeLatest struct {
	dates map[string]time.Time
	err   error
}

func (f *fakeLatest) LatestDates(context.Context) (map[string]time.Time, error) {
	return f.dates, f.err
}

func day(s string) time.Time {
	d, _ := time.ParseInLocation(model.DateLayout, s, time.UTC)
	return d
}

func verifyPlanner() *plan.Planner {
	p := plan.New(5)
	p.Now = func() time.Time { return day("2024-06-15") }
	return p
}

// Only lagging and missing constituents get re-synced; stocks already
// at the store-wide baseline are skipped.
func TestVerifyRepairsLaggingAndMissing(t *testing.T) {
	roster := &fakeRoster{instruments: []model.Instrument{
		{Code: "600000", Name: "Current"},
		{Code: "000001", Name: "Lagging"},
		{Code: "300750", Name: "Missing"},
	}}
	bars := &fakeBars{data: map[string][]provider.RawBar{
		"000001": {rawBar("2024-06-14", "11", "11.5", "11.6", "10.9", "200")},
		"300750": {rawBar("2024-06-14", "12", "12.5", "12.6", "11.9", "300")},
	}}
	store := newFakeStore()
	latest := &fakeLatest{dates: map[string]time.Time{
		"600000": day("2024-06-14"), // at baseline
		"000001": day("2024-06-10"), // behind
	}}

	r := newRunner(roster, bars, store, Config{Concurrency: 2})
	result, err := r.Verify(context.Background(), verifyPlanner(), latest)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	if result.Mode != "verify" {
		t.Errorf("Mode = %q, want verify", result.Mode)
	}
	if result.InstrumentsAttempted != 2 {
		t.Errorf("InstrumentsAttempted = %d, want 2 (lagging + missing)", result.InstrumentsAttempted)
	}
	if result.InstrumentsSucceeded != 2 {
		t.Errorf("InstrumentsSucceeded = %d, want 2", result.InstrumentsSucceeded)
	}
	if _, ok := store.rows["2024-06-14|000001"]; !ok {
		t.Error("lagging stock was not repaired")
	}
	if _, ok := store.rows["2024-06-14|300750"]; !ok {
		t.Error("missing stock was not repaired")
	}
}

// An empty table means there is no baseline; every constituent gets
// the incremental window.
func TestVerifyEmptyStoreSyncsWholeRoster(t *testing.T) {
	roster := &fakeRoster{instruments: []model.Instrument{
		{Code: "600000", Name: "A"},
		{Code: "000001", Name: "B"},
	}}
	bars := &fakeBars{data: map[string][]provider.RawBar{
		"600000": {rawBar("2024-06-14", "10", "10.5", "10.6", "9.9", "100")},
		"000001": {rawBar("2024-06-14", "11", "11.5", "11.6", "10.9", "200")},
	}}
	store := newFakeStore()

	r := newRunner(roster, bars, store, Config{Concurrency: 2})
	result, err := r.Verify(context.Background(), verifyPlanner(), &fakeLatest{})
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	if result.InstrumentsAttempted != 2 {
		t.Errorf("InstrumentsAttempted = %d, want 2", result.InstrumentsAttempted)
	}
	if store.rowCount() != 2 {
		t.Errorf("store holds %d rows, want 2", store.rowCount())
	}
}

// Nothing lags: verify is a no-op that still reports cleanly.
func TestVerifyAllCurrent(t *testing.T) {
	roster := &fakeRoster{instruments: []model.Instrument{
		{Code: "600000", Name: "A"},
		{Code: "000001", Name: "B"},
	}}
	store := newFakeStore()
	latest := &fakeLatest{dates: map[string]time.Time{
		"600000": day("2024-06-14"),
		"000001": day("2024-06-14"),
	}}

	r := newRunner(roster, &fakeBars{}, store, Config{Concurrency: 2})
	result, err := r.Verify(context.Background(), verifyPlanner(), latest)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	if result.InstrumentsAttempted != 0 {
		t.Errorf("InstrumentsAttempted = %d, want 0", result.InstrumentsAttempted)
	}
	if store.calls != 0 {
		t.Errorf("store saw %d calls, want 0", store.calls)
	}
}

// A failing latest-date query aborts verify before any fetch.
func TestVerifyLatestQueryFailureIsFatal(t *testing.T) {
	roster := &fakeRoster{instruments: []model.Instrument{{Code: "600000", Name: "A"}}}
	store := newFakeStore()
	queryErr := errors.New("relation does not exist")

	r := newRunner(roster, &fakeBars{}, store, Config{Concurrency: 1})
	_, err := r.Verify(context.Background(), verifyPlanner(), &fakeLatest{err: queryErr})
	if !errors.Is(err, queryErr) {
		t.Fatalf("Verify() error = %v, want the query error", err)
	}
	if store.calls != 0 {
		t.Errorf("store saw %d calls, want 0", store.calls)
	}
}
