package provider

// RawBar is one daily record exactly as the kline endpoint returned
// it: untyped strings, provider field order already resolved. Type
// coercion and validation belong to the normalizer.
type RawBar struct {
	Date   string
	Open   string
	Close  string
	High   string
	Low    string
	Volume string
}

// klineResponse is the envelope of qt/stock/kline/get.
type klineResponse struct {
	Data *klineData `json:"data"`
}

// klineData holds the per-stock payload. Klines entries are
// comma-joined strings: date,open,close,high,low,volume,amount,...
type klineData struct {
	Code   string   `json:"code"`
	Name   string   `json:"name"`
	Klines []string `json:"klines"`
}
