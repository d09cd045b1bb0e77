package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lwei/csi800-data/internal/model"
)

// WriteError marks a batch that the store rejected even after
// retries. Scoped to the instrument whose rows were being written.
type WriteError struct {
	Attempts int
	Err      error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// WriterConfig holds writer tunables.
type WriterConfig struct {
	Table     string
	BatchSize int           // max rows per upsert call
	Retries   int           // retries per batch after the first attempt
	Backoff   time.Duration // base delay, doubled per retry
}

// Writer commits DailyBars with idempotent insert-or-replace batches.
type Writer struct {
	cfg    WriterConfig
	db     *pgxpool.Pool
	logger *slog.Logger

	// Injectable for tests: zero-delay retries, fake upserts.
	sleep  func(time.Duration)
	upsert func(ctx context.Context, rows []model.DailyBar) (int, error)
}

// NewWriter creates a Writer on the given pool.
func NewWriter(cfg WriterConfig, db *pgxpool.Pool, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Writer{
		cfg:    cfg,
		db:     db,
		logger: logger,
		sleep:  time.Sleep,
	}
	w.upsert = w.batchUpsert
	return w
}

// UpsertBars writes all rows, chunked by BatchSize, and returns the
// number of rows written. Each chunk is retried with backoff before
// the error surfaces; rows written by earlier chunks stay committed.
func (w *Writer) UpsertBars(ctx context.Context, bars []model.DailyBar) (int, error) {
	total := 0
	for len(bars) > 0 {
		n := w.cfg.BatchSize
		if n <= 0 || n > len(bars) {
			n = len(bars)
		}
		chunk := bars[:n]
		bars = bars[n:]

		written, err := w.upsertWithRetry(ctx, chunk)
		if err != nil {
			return total, err
		}
		total += written
	}
	return total, nil
}

func (w *Writer) upsertWithRetry(ctx context.Context, chunk []model.DailyBar) (int, error) {
	backoff := w.cfg.Backoff
	var lastErr error

	for attempt := 0; attempt <= w.cfg.Retries; attempt++ {
		if attempt > 0 {
			w.logger.Warn("retrying batch upsert",
				"attempt", attempt,
				"backoff", backoff,
				"rows", len(chunk),
				"error", lastErr,
			)
			if err := ctx.Err(); err != nil {
				return 0, &WriteError{Attempts: attempt, Err: err}
			}
			w.sleep(backoff)
			backoff *= 2
		}

		n, err := w.upsert(ctx, chunk)
		if err == nil {
			return n, nil
		}
		lastErr = err
	}

	return 0, &WriteError{Attempts: w.cfg.Retries + 1, Err: lastErr}
}

const upsertSQLTemplate = `
	INSERT INTO %s (trade_date, stock_code, stock_name, open, high, low, close, volume)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (trade_date, stock_code) DO UPDATE SET
	    stock_name = EXCLUDED.stock_name,
	    open       = EXCLUDED.open,
	    high       = EXCLUDED.high,
	    low        = EXCLUDED.low,
	    close      = EXCLUDED.close,
	    volume     = EXCLUDED.volume`

// batchUpsert sends one pgx.Batch of insert-or-replace statements.
func (w *Writer) batchUpsert(ctx context.Context, rows []model.DailyBar) (int, error) {
	sql := fmt.Sprintf(upsertSQLTemplate, w.cfg.Table)

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(sql,
			r.TradeDate, r.StockCode, r.StockName,
			r.Open, r.High, r.Low, r.Close, r.Volume)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	count := 0
	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		count += int(ct.RowsAffected())
	}

	return count, nil
}

const schemaSQLTemplate = `
	CREATE TABLE IF NOT EXISTS %s (
	    trade_date date    NOT NULL,
	    stock_code text    NOT NULL,
	    stock_name text    NOT NULL,
	    open       numeric NOT NULL,
	    high       numeric NOT NULL,
	    low        numeric NOT NULL,
	    close      numeric NOT NULL,
	    volume     numeric NOT NULL,
	    PRIMARY KEY (trade_date, stock_code)
	)`

// EnsureSchema creates the price table if it does not exist.
func (w *Writer) EnsureSchema(ctx context.Context) error {
	if _, err := w.db.Exec(ctx, fmt.Sprintf(schemaSQLTemplate, w.cfg.Table)); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
