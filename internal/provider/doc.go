// Package provider implements the market-data client for the sync job.
//
// Two upstream endpoints are consumed:
//   - CSI index constituents file (csindex.com.cn): tab-separated,
//     GBK-encoded, one row per constituent. Source of the instrument
//     roster.
//   - Eastmoney kline API (push2his.eastmoney.com): daily OHLCV
//     history per stock, forward-adjusted. Same upstream that
//     akshare's stock_zh_a_hist wraps.
//
// Both are plain unauthenticated HTTP GET. The client retries
// transient failures (5xx, 429, transport errors) with exponential
// backoff.
package provider
