package store

import (
	"context"
	"fmt"
	"time"
)

// LatestDates returns each stock's most recent trade date in the
// table. An empty map means the table has no rows yet.
func (w *Writer) LatestDates(ctx context.Context) (map[string]time.Time, error) {
	sql := fmt.Sprintf(`SELECT stock_code, MAX(trade_date) FROM %s GROUP BY stock_code`, w.cfg.Table)

	rows, err := w.db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("query latest dates: %w", err)
	}
	defer rows.Close()

	latest := make(map[string]time.Time)
	for rows.Next() {
		var code string
		var date time.Time
		if err := rows.Scan(&code, &date); err != nil {
			return nil, fmt.Errorf("scan latest date: %w", err)
		}
		latest[code] = date.UTC()
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read latest dates: %w", err)
	}

	return latest, nil
}
