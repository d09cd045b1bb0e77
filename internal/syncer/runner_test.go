package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lwei/csi800-data/internal/model"
	"github.com/lwei/csi800-data/internal/provider"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type fakeRoster struct {
	instruments []model.Instrument
	err         error
}

func (f *fakeRoster) Constituents(context.Context) ([]model.Instrument, error) {
	return f.instruments, f.err
}

type fakeBars struct {
	data map[string][]provider.RawBar
	errs map[string]error
}

func (f *fakeBars) DailyBars(_ context.Context, code string, _, _ time.Time) ([]provider.RawBar, error) {
	if err := f.errs[code]; err != nil {
		return nil, err
	}
	return f.data[code], nil
}

// blockingBars parks every fetch until the context dies.
type blockingBars struct{}

func (blockingBars) DailyBars(ctx context.Context, code string, _, _ time.Time) ([]provider.RawBar, error) {
	<-ctx.Done()
	return nil, &provider.FetchError{Code: code, Err: ctx.Err()}
}

type fakeStore struct {
	mu    sync.Mutex
	rows  map[string]model.DailyBar
	calls int
	err   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[string]model.DailyBar)}
}

func (f *fakeStore) UpsertBars(_ context.Context, bars []model.DailyBar) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	for _, b := range bars {
		f.rows[b.Key()] = b
	}
	return len(bars), nil
}

func (f *fakeStore) rowCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

func rawBar(date, open, close, high, low, volume string) provider.RawBar {
	return provider.RawBar{Date: date, Open: open, Close: close, High: high, Low: low, Volume: volume}
}

func testPlan(mode, start, end string) model.SyncPlan {
	s, _ := time.ParseInLocation(model.DateLayout, start, time.UTC)
	e, _ := time.ParseInLocation(model.DateLayout, end, time.UTC)
	return model.SyncPlan{Mode: mode, StartDate: s, EndDate: e}
}

func newRunner(roster RosterSource, bars BarSource, store BarStore, cfg Config) *Runner {
	return New(cfg, roster, bars, store, nil)
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

// Three instruments, one with no history at all: every instrument
// succeeds, rows come only from the other two, and the empty one
// records no error.
func TestRunEmptyHistoryIsSuccess(t *testing.T) {
	roster := &fakeRoster{instruments: []model.Instrument{
		{Code: "600000", Name: "A"},
		{Code: "000001", Name: "B"},
		{Code: "300750", Name: "C"},
	}}
	bars := &fakeBars{data: map[string][]provider.RawBar{
		"600000": {rawBar("2024-01-02", "10", "10.5", "10.6", "9.9", "100")},
		"000001": {rawBar("2024-01-02", "11", "11.5", "11.6", "10.9", "200")},
		// 300750: newly listed, nothing in range
	}}
	store := newFakeStore()

	r := newRunner(roster, bars, store, Config{Concurrency: 4})
	result, err := r.Run(context.Background(), testPlan("full", "2005-01-01", "2024-06-15"))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.InstrumentsAttempted != 3 {
		t.Errorf("InstrumentsAttempted = %d, want 3", result.InstrumentsAttempted)
	}
	if result.InstrumentsSucceeded != 3 {
		t.Errorf("InstrumentsSucceeded = %d, want 3", result.InstrumentsSucceeded)
	}
	if result.RowsWritten != 2 {
		t.Errorf("RowsWritten = %d, want 2", result.RowsWritten)
	}
	if len(result.Errors) != 0 {
		t.Errorf("Errors = %v, want none", result.Errors)
	}
}

// One instrument's fetch failure never blocks the others.
func TestRunIsolatesFetchFailure(t *testing.T) {
	roster := &fakeRoster{instruments: []model.Instrument{
		{Code: "600000", Name: "A"},
		{Code: "000001", Name: "B"},
	}}
	fetchErr := &provider.FetchError{Code: "600000", Err: errors.New("connection refused")}
	bars := &fakeBars{
		data: map[string][]provider.RawBar{
			"000001": {rawBar("2024-01-02", "11", "11.5", "11.6", "10.9", "200")},
		},
		errs: map[string]error{"600000": fetchErr},
	}
	store := newFakeStore()

	r := newRunner(roster, bars, store, Config{Concurrency: 2})
	result, err := r.Run(context.Background(), testPlan("incremental", "2024-01-01", "2024-01-05"))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.InstrumentsSucceeded != 1 {
		t.Errorf("InstrumentsSucceeded = %d, want 1", result.InstrumentsSucceeded)
	}
	if result.RowsWritten != 1 {
		t.Errorf("RowsWritten = %d, want 1", result.RowsWritten)
	}
	if got := result.Errors["600000"]; !errors.Is(got, fetchErr) {
		t.Errorf("Errors[600000] = %v, want the fetch error", got)
	}
	if _, ok := store.rows["2024-01-02|000001"]; !ok {
		t.Error("000001's row was not written")
	}
}

// A roster failure is fatal and must abort before any write.
func TestRunRosterFailureIsFatal(t *testing.T) {
	rosterErr := &provider.RosterError{Reason: "download failed"}
	roster := &fakeRoster{err: rosterErr}
	store := newFakeStore()

	r := newRunner(roster, &fakeBars{}, store, Config{Concurrency: 2})
	_, err := r.Run(context.Background(), testPlan("full", "2005-01-01", "2024-06-15"))

	var re *provider.RosterError
	if !errors.As(err, &re) {
		t.Fatalf("Run() error = %v, want *RosterError", err)
	}
	if store.calls != 0 {
		t.Errorf("store saw %d calls, want 0", store.calls)
	}
}

// Overlapping provider windows repeat a trade date; exactly one row
// lands and it carries the later-supplied value.
func TestRunDeduplicatesOverlappingBars(t *testing.T) {
	roster := &fakeRoster{instruments: []model.Instrument{{Code: "600000", Name: "X"}}}
	bars := &fakeBars{data: map[string][]provider.RawBar{
		"600000": {
			rawBar("2024-01-02", "10", "10.50", "10.6", "9.9", "100"),
			rawBar("2024-01-02", "10", "10.99", "11.0", "9.9", "150"),
		},
	}}
	store := newFakeStore()

	r := newRunner(roster, bars, store, Config{Concurrency: 1})
	result, err := r.Run(context.Background(), testPlan("bounded", "2024-01-01", "2024-06-15"))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if store.rowCount() != 1 {
		t.Fatalf("store holds %d rows, want 1", store.rowCount())
	}
	row := store.rows["2024-01-02|600000"]
	if row.Close.String() != "10.99" {
		t.Errorf("stored Close = %s, want 10.99 (last occurrence)", row.Close)
	}
	if result.RowsWritten != 1 {
		t.Errorf("RowsWritten = %d, want 1", result.RowsWritten)
	}
}

// Malformed provider records are dropped and counted, not fatal.
func TestRunCountsDroppedRecords(t *testing.T) {
	roster := &fakeRoster{instruments: []model.Instrument{{Code: "600000", Name: "X"}}}
	bars := &fakeBars{data: map[string][]provider.RawBar{
		"600000": {
			rawBar("2024-01-02", "10", "n/a", "10.6", "9.9", "100"),
			rawBar("2024-01-03", "10", "10.4", "10.6", "9.9", "100"),
		},
	}}
	store := newFakeStore()

	r := newRunner(roster, bars, store, Config{Concurrency: 1})
	result, err := r.Run(context.Background(), testPlan("incremental", "2024-01-01", "2024-01-05"))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.RecordsDropped != 1 {
		t.Errorf("RecordsDropped = %d, want 1", result.RecordsDropped)
	}
	if result.RowsWritten != 1 {
		t.Errorf("RowsWritten = %d, want 1", result.RowsWritten)
	}
	if result.InstrumentsSucceeded != 1 {
		t.Errorf("InstrumentsSucceeded = %d, want 1", result.InstrumentsSucceeded)
	}
}

// A write failure is scoped to its instrument; the run still
// completes and reports it.
func TestRunRecordsWriteFailure(t *testing.T) {
	roster := &fakeRoster{instruments: []model.Instrument{{Code: "600000", Name: "X"}}}
	bars := &fakeBars{data: map[string][]provider.RawBar{
		"600000": {rawBar("2024-01-02", "10", "10.5", "10.6", "9.9", "100")},
	}}
	store := newFakeStore()
	store.err = errors.New("permission denied for table")

	r := newRunner(roster, bars, store, Config{Concurrency: 1})
	result, err := r.Run(context.Background(), testPlan("incremental", "2024-01-01", "2024-01-05"))
	if err != nil {
		t.Fatalf("Run() error = %v, want nil (write failures are per-instrument)", err)
	}

	if result.InstrumentsSucceeded != 0 {
		t.Errorf("InstrumentsSucceeded = %d, want 0", result.InstrumentsSucceeded)
	}
	if got := result.Errors["600000"]; got == nil {
		t.Error("write failure missing from Errors")
	}
}

// Bars dated outside the planned window never reach the store.
func TestRunClampsToWindow(t *testing.T) {
	roster := &fakeRoster{instruments: []model.Instrument{{Code: "600000", Name: "X"}}}
	bars := &fakeBars{data: map[string][]provider.RawBar{
		"600000": {
			rawBar("2023-12-29", "9", "9.5", "9.6", "8.9", "50"), // before window
			rawBar("2024-01-02", "10", "10.5", "10.6", "9.9", "100"),
			rawBar("2024-01-09", "11", "11.5", "11.6", "10.9", "100"), // after window
		},
	}}
	store := newFakeStore()

	r := newRunner(roster, bars, store, Config{Concurrency: 1})
	result, err := r.Run(context.Background(), testPlan("bounded", "2024-01-01", "2024-01-05"))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if store.rowCount() != 1 {
		t.Fatalf("store holds %d rows, want 1", store.rowCount())
	}
	if _, ok := store.rows["2024-01-02|600000"]; !ok {
		t.Error("in-window row missing")
	}
	if result.RowsWritten != 1 {
		t.Errorf("RowsWritten = %d, want 1", result.RowsWritten)
	}
}

// When the run's time budget expires, instruments that never started
// are recorded as timed out, not silently skipped.
func TestRunTimeoutMarksRemaining(t *testing.T) {
	roster := &fakeRoster{instruments: []model.Instrument{
		{Code: "600000", Name: "A"},
		{Code: "000001", Name: "B"},
		{Code: "300750", Name: "C"},
	}}
	store := newFakeStore()

	r := newRunner(roster, blockingBars{}, store, Config{
		Concurrency: 1,
		RunTimeout:  20 * time.Millisecond,
	})
	result, err := r.Run(context.Background(), testPlan("full", "2005-01-01", "2024-06-15"))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// Every instrument is accounted for, none succeeded.
	if got := result.InstrumentsSucceeded + len(result.Errors); got != 3 {
		t.Errorf("succeeded+failed = %d, want 3", got)
	}
	timedOut := 0
	for _, e := range result.Errors {
		if errors.Is(e, ErrRunTimeout) {
			timedOut++
		}
	}
	if timedOut == 0 {
		t.Error("no instrument recorded with the run timeout error")
	}
	if store.rowCount() != 0 {
		t.Errorf("store holds %d rows, want 0", store.rowCount())
	}
}
