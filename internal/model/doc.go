// Package model defines shared data types used across the CSI 800 sync job.
//
// Conventions:
//   - Trade dates: time.Time normalized to UTC midnight (the DATE column)
//   - Prices and volume: decimal.Decimal, parsed from provider strings
//   - Stock codes: 6-digit exchange codes as strings (e.g. "600000")
package model
