// Package model defines the normalized market data types shared by the
// streaming and REST clients.
//
// Conventions:
//   - Prices: decimal.Decimal, never float64
//   - Sizes and volumes: int64 shares
//   - Timestamps: time.Time in UTC; ReceivedAt is the local receive time and
//     is zero for REST results
//   - Symbols: upper-case tickers as sent by the vendor
package model
