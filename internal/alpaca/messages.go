package alpaca

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/marketdata-sdk/internal/model"
)

// Message types (the "T" field).
const (
	msgSuccess      = "success"
	msgError        = "error"
	msgSubscription = "subscription"
	msgTrade        = "t"
	msgQuote        = "q"
	msgBar          = "b"
)

// Server error codes.
const (
	CodeInvalidSyntax          = 400
	CodeNotAuthenticated       = 401
	CodeAuthFailed             = 402
	CodeAlreadyAuthenticated   = 403
	CodeAuthTimeout            = 404
	CodeSymbolLimitExceeded    = 405
	CodeConnectionLimit        = 406
	CodeSlowClient             = 407
	CodeInsufficientSubscribed = 409
	CodeInternalError          = 500
)

// ServerError is an error message sent by the stream.
type ServerError struct {
	Code int
	Msg  string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("alpaca stream error %d: %s", e.Code, e.Msg)
}

type header struct {
	Type string `json:"T"`
}

type controlMessage struct {
	Type string `json:"T"`
	Msg  string `json:"msg"`
	Code int    `json:"code"`

	// Set on subscription acknowledgements.
	Trades []string `json:"trades"`
	Quotes []string `json:"quotes"`
	Bars   []string `json:"bars"`
}

// Every data message declares T so encoding/json does not fold it onto t.

type tradeMessage struct {
	Type       string          `json:"T"`
	Symbol     string          `json:"S"`
	ID         int64           `json:"i"`
	Exchange   string          `json:"x"`
	Price      decimal.Decimal `json:"p"`
	Size       int64           `json:"s"`
	Conditions []string        `json:"c"`
	Tape       string          `json:"z"`
	Timestamp  time.Time       `json:"t"`
}

func (m tradeMessage) toModel(receivedAt time.Time) model.Trade {
	return model.Trade{
		Symbol:     m.Symbol,
		ID:         m.ID,
		Exchange:   m.Exchange,
		Price:      m.Price,
		Size:       m.Size,
		Conditions: m.Conditions,
		Tape:       m.Tape,
		Timestamp:  m.Timestamp.UTC(),
		ReceivedAt: receivedAt,
	}
}

type quoteMessage struct {
	Type        string          `json:"T"`
	Symbol      string          `json:"S"`
	BidExchange string          `json:"bx"`
	BidPrice    decimal.Decimal `json:"bp"`
	BidSize     int64           `json:"bs"`
	AskExchange string          `json:"ax"`
	AskPrice    decimal.Decimal `json:"ap"`
	AskSize     int64           `json:"as"`
	Conditions  []string        `json:"c"`
	Tape        string          `json:"z"`
	Timestamp   time.Time       `json:"t"`
}

func (m quoteMessage) toModel(receivedAt time.Time) model.Quote {
	return model.Quote{
		Symbol:      m.Symbol,
		BidExchange: m.BidExchange,
		BidPrice:    m.BidPrice,
		BidSize:     m.BidSize,
		AskExchange: m.AskExchange,
		AskPrice:    m.AskPrice,
		AskSize:     m.AskSize,
		Conditions:  m.Conditions,
		Tape:        m.Tape,
		Timestamp:   m.Timestamp.UTC(),
		ReceivedAt:  receivedAt,
	}
}

type barMessage struct {
	Type       string          `json:"T"`
	Symbol     string          `json:"S"`
	Open       decimal.Decimal `json:"o"`
	High       decimal.Decimal `json:"h"`
	Low        decimal.Decimal `json:"l"`
	Close      decimal.Decimal `json:"c"`
	Volume     int64           `json:"v"`
	TradeCount int64           `json:"n"`
	VWAP       decimal.Decimal `json:"vw"`
	Timestamp  time.Time       `json:"t"`
}

func (m barMessage) toModel(receivedAt time.Time) model.Bar {
	return model.Bar{
		Symbol:     m.Symbol,
		Open:       m.Open,
		High:       m.High,
		Low:        m.Low,
		Close:      m.Close,
		Volume:     m.Volume,
		TradeCount: m.TradeCount,
		VWAP:       m.VWAP,
		Timestamp:  m.Timestamp.UTC(),
		ReceivedAt: receivedAt,
	}
}

// authRequest is the first frame sent on a connection.
type authRequest struct {
	Action string `json:"action"`
	Key    string `json:"key"`
	Secret string `json:"secret"`
}

// subscriptionRequest subscribes or unsubscribes symbols per channel.
type subscriptionRequest struct {
	Action string   `json:"action"`
	Trades []string `json:"trades,omitempty"`
	Quotes []string `json:"quotes,omitempty"`
	Bars   []string `json:"bars,omitempty"`
}
