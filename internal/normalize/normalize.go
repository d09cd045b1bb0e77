// Package normalize maps raw provider records into canonical rows.
package normalize

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/lwei/csi800-data/internal/model"
	"github.com/lwei/csi800-data/internal/provider"
)

// Accepted provider date layouts.
var dateLayouts = []string{model.DateLayout, "20060102"}

// Normalize converts one instrument's raw records into DailyBars and
// returns the number of records dropped for unparseable fields.
//
// Identity (StockCode, StockName) always comes from the instrument,
// never from provider output, so stored identity stays consistent even
// if the provider's naming drifts. Records sharing a trade date are
// deduplicated with the last occurrence winning; surviving bars keep
// their original order.
func Normalize(inst model.Instrument, raw []provider.RawBar) ([]model.DailyBar, int) {
	bars := make([]model.DailyBar, 0, len(raw))
	index := make(map[string]int, len(raw))
	dropped := 0

	for _, r := range raw {
		bar, ok := toBar(inst, r)
		if !ok {
			dropped++
			continue
		}
		if i, dup := index[bar.Key()]; dup {
			bars[i] = bar
			continue
		}
		index[bar.Key()] = len(bars)
		bars = append(bars, bar)
	}

	return bars, dropped
}

func toBar(inst model.Instrument, r provider.RawBar) (model.DailyBar, bool) {
	date, ok := parseDate(r.Date)
	if !ok {
		return model.DailyBar{}, false
	}

	fields := [...]string{r.Open, r.High, r.Low, r.Close, r.Volume}
	var parsed [len(fields)]decimal.Decimal
	for i, s := range fields {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return model.DailyBar{}, false
		}
		parsed[i] = d
	}

	return model.DailyBar{
		TradeDate: date,
		StockCode: inst.Code,
		StockName: inst.Name,
		Open:      parsed[0],
		High:      parsed[1],
		Low:       parsed[2],
		Close:     parsed[3],
		Volume:    parsed[4],
	}, true
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
