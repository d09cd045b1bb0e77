package provider

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"
)

// Kline query constants. klt 101 = daily period, fqt 1 = forward
// adjusted prices (qfq), matching the upstream the roster tracks.
const (
	klinePeriodDaily  = "101"
	klineAdjustQfq    = "1"
	klineFields1      = "f1,f2,f3,f4,f5,f6"
	klineFields2      = "f51,f52,f53,f54,f55,f56,f57,f58,f59,f60,f61"
	klineDateParamFmt = "20060102"
)

// DailyBars fetches the daily history for one stock over [start, end]
// (dates inclusive). An empty result is valid: newly listed stocks
// have no history and suspended stocks trade nothing in the window.
// Any transport or payload failure is a *FetchError scoped to code.
func (c *Client) DailyBars(ctx context.Context, code string, start, end time.Time) ([]RawBar, error) {
	query := url.Values{}
	query.Set("secid", secID(code))
	query.Set("fields1", klineFields1)
	query.Set("fields2", klineFields2)
	query.Set("klt", klinePeriodDaily)
	query.Set("fqt", klineAdjustQfq)
	query.Set("beg", start.Format(klineDateParamFmt))
	query.Set("end", end.Format(klineDateParamFmt))

	body, err := c.doWithRetry(ctx, c.klineURL, query)
	if err != nil {
		return nil, &FetchError{Code: code, Err: err}
	}

	var resp klineResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &FetchError{Code: code, Err: err}
	}
	if resp.Data == nil || len(resp.Data.Klines) == 0 {
		return nil, nil
	}

	bars := make([]RawBar, 0, len(resp.Data.Klines))
	for _, line := range resp.Data.Klines {
		bars = append(bars, splitKline(line))
	}
	return bars, nil
}

// splitKline maps the comma-joined kline fields into a RawBar.
// Upstream order: date,open,close,high,low,volume,amount,...
// Short lines come back with only Date set and fall out during
// normalization.
func splitKline(line string) RawBar {
	fields := strings.Split(line, ",")
	if len(fields) < 6 {
		return RawBar{Date: line}
	}
	return RawBar{
		Date:   fields[0],
		Open:   fields[1],
		Close:  fields[2],
		High:   fields[3],
		Low:    fields[4],
		Volume: fields[5],
	}
}

// secID prefixes the exchange market id expected by the kline API:
// 1 for Shanghai listings (codes starting 6 or 9), 0 otherwise.
func secID(code string) string {
	if strings.HasPrefix(code, "6") || strings.HasPrefix(code, "9") {
		return "1." + code
	}
	return "0." + code
}
