// Package store commits canonical rows to Postgres.
//
// One table holds the daily price history:
//
//	CREATE TABLE csi800_daily_data (
//	    trade_date date    NOT NULL,
//	    stock_code text    NOT NULL,
//	    stock_name text    NOT NULL,
//	    open       numeric NOT NULL,
//	    high       numeric NOT NULL,
//	    low        numeric NOT NULL,
//	    close      numeric NOT NULL,
//	    volume     numeric NOT NULL,
//	    PRIMARY KEY (trade_date, stock_code)
//	);
//
// Writes are idempotent insert-or-replace batches on the composite
// key, so re-syncing a window replaces rows instead of duplicating
// them (last write wins).
package store
