package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade represents an executed trade.
type Trade struct {
	Symbol     string          // Ticker (e.g., "AAPL")
	ID         int64           // Vendor trade ID
	Exchange   string          // Exchange code
	Price      decimal.Decimal // Execution price
	Size       int64           // Shares
	Conditions []string        // Sale condition codes
	Tape       string          // Tape (A, B, C)
	Timestamp  time.Time       // Exchange timestamp
	ReceivedAt time.Time       // Local receive time (streams only)
}

// Quote represents a top-of-book quote.
type Quote struct {
	Symbol      string
	BidExchange string
	BidPrice    decimal.Decimal
	BidSize     int64
	AskExchange string
	AskPrice    decimal.Decimal
	AskSize     int64
	Conditions  []string
	Tape        string
	Timestamp   time.Time
	ReceivedAt  time.Time
}

// Spread returns AskPrice - BidPrice.
func (q Quote) Spread() decimal.Decimal {
	return q.AskPrice.Sub(q.BidPrice)
}

// Midpoint returns the average of the bid and ask prices.
func (q Quote) Midpoint() decimal.Decimal {
	return q.BidPrice.Add(q.AskPrice).Div(decimal.NewFromInt(2))
}

// Crossed reports whether the bid is above the ask.
func (q Quote) Crossed() bool {
	return q.BidPrice.GreaterThan(q.AskPrice)
}

// Bar is an OHLCV aggregate over one interval starting at Timestamp.
type Bar struct {
	Symbol     string
	Open       decimal.Decimal
	High       decimal.Decimal
	Low        decimal.Decimal
	Close      decimal.Decimal
	Volume     int64
	TradeCount int64           // Zero when the vendor does not report it
	VWAP       decimal.Decimal // Zero when the vendor does not report it
	Timestamp  time.Time
	ReceivedAt time.Time
}

// Range returns High - Low.
func (b Bar) Range() decimal.Decimal {
	return b.High.Sub(b.Low)
}

// Change returns Close - Open.
func (b Bar) Change() decimal.Decimal {
	return b.Close.Sub(b.Open)
}
