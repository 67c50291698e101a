package api

import (
	"time"

	"github.com/shopspring/decimal"
)

// APITrade is a trade as returned by /v2/stocks/{symbol}/trades.
type APITrade struct {
	Timestamp  time.Time       `json:"t"`
	Exchange   string          `json:"x"`
	Price      decimal.Decimal `json:"p"`
	Size       int64           `json:"s"`
	Conditions []string        `json:"c"`
	ID         int64           `json:"i"`
	Tape       string          `json:"z"`
}

// APIBar is a bar as returned by the bars endpoints.
type APIBar struct {
	Timestamp  time.Time       `json:"t"`
	Open       decimal.Decimal `json:"o"`
	High       decimal.Decimal `json:"h"`
	Low        decimal.Decimal `json:"l"`
	Close      decimal.Decimal `json:"c"`
	Volume     int64           `json:"v"`
	TradeCount int64           `json:"n"`
	VWAP       decimal.Decimal `json:"vw"`
}

// TradesResponse from GET /v2/stocks/{symbol}/trades
type TradesResponse struct {
	Symbol        string     `json:"symbol"`
	Trades        []APITrade `json:"trades"`
	NextPageToken string     `json:"next_page_token"`
}

// BarsResponse from GET /v2/stocks/{symbol}/bars
type BarsResponse struct {
	Symbol        string   `json:"symbol"`
	Bars          []APIBar `json:"bars"`
	NextPageToken string   `json:"next_page_token"`
}

// MultiBarsResponse from GET /v2/stocks/bars
type MultiBarsResponse struct {
	Bars          map[string][]APIBar `json:"bars"`
	NextPageToken string              `json:"next_page_token"`
}

// Feed selects the data source.
type Feed string

const (
	FeedIEX Feed = "iex"
	FeedSIP Feed = "sip"
)

// Adjustment selects corporate action adjustment for bars.
type Adjustment string

const (
	AdjustmentRaw      Adjustment = "raw"
	AdjustmentSplit    Adjustment = "split"
	AdjustmentDividend Adjustment = "dividend"
	AdjustmentAll      Adjustment = "all"
)

// TradesRequest queries historical trades for one symbol.
type TradesRequest struct {
	Symbol    string
	Start     time.Time
	End       time.Time
	Limit     int // Page size; 0 uses the client default
	Feed      Feed
	PageToken string
}

// WithPageToken returns a copy of r for the page at token.
func (r TradesRequest) WithPageToken(token string) TradesRequest {
	r.PageToken = token
	return r
}

// BarsRequest queries historical bars for one symbol.
type BarsRequest struct {
	Symbol     string
	TimeFrame  TimeFrame
	Start      time.Time
	End        time.Time
	Limit      int
	Adjustment Adjustment
	Feed       Feed
	PageToken  string
}

// WithPageToken returns a copy of r for the page at token.
func (r BarsRequest) WithPageToken(token string) BarsRequest {
	r.PageToken = token
	return r
}

// MultiBarsRequest queries historical bars for several symbols at once.
type MultiBarsRequest struct {
	Symbols    []string
	TimeFrame  TimeFrame
	Start      time.Time
	End        time.Time
	Limit      int
	Adjustment Adjustment
	Feed       Feed
	PageToken  string
}

// WithPageToken returns a copy of r for the page at token.
func (r MultiBarsRequest) WithPageToken(token string) MultiBarsRequest {
	r.PageToken = token
	return r
}
