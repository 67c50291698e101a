package polygon

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/marketdata-sdk/internal/model"
	"github.com/rickgao/marketdata-sdk/internal/stream"
)

// Event types (the "ev" field).
const (
	evStatus    = "status"
	evTrade     = "T"
	evQuote     = "Q"
	evSecondAgg = "A"
	evMinuteAgg = "AM"
)

// Status values on status messages.
const (
	statusConnected      = "connected"
	statusAuthSuccess    = "auth_success"
	statusAuthFailed     = "auth_failed"
	statusMaxConnections = "max_connections"
	statusSuccess        = "success"
	statusError          = "error"
)

// StatusError is an error status sent by the stream.
type StatusError struct {
	Status  string
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("polygon stream %s: %s", e.Status, e.Message)
}

// channelPrefix maps a channel flag to its subscription prefix.
var channelPrefix = map[stream.Channel]string{
	stream.ChannelTrade:     evTrade,
	stream.ChannelQuote:     evQuote,
	stream.ChannelSecondBar: evSecondAgg,
	stream.ChannelMinuteBar: evMinuteAgg,
}

type header struct {
	Event string `json:"ev"`
}

type statusMessage struct {
	Event   string `json:"ev"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type tradeMessage struct {
	Event      string          `json:"ev"`
	Symbol     string          `json:"sym"`
	Exchange   int             `json:"x"`
	ID         string          `json:"i"`
	Tape       int             `json:"z"`
	Price      decimal.Decimal `json:"p"`
	Size       int64           `json:"s"`
	Conditions []int           `json:"c"`
	Timestamp  int64           `json:"t"` // Unix ms
}

func (m tradeMessage) toModel(receivedAt time.Time) model.Trade {
	id, _ := strconv.ParseInt(m.ID, 10, 64)
	return model.Trade{
		Symbol:     m.Symbol,
		ID:         id,
		Exchange:   strconv.Itoa(m.Exchange),
		Price:      m.Price,
		Size:       m.Size,
		Conditions: conditions(m.Conditions),
		Tape:       tape(m.Tape),
		Timestamp:  time.UnixMilli(m.Timestamp).UTC(),
		ReceivedAt: receivedAt,
	}
}

type quoteMessage struct {
	Event       string          `json:"ev"`
	Symbol      string          `json:"sym"`
	BidExchange int             `json:"bx"`
	BidPrice    decimal.Decimal `json:"bp"`
	BidSize     int64           `json:"bs"`
	AskExchange int             `json:"ax"`
	AskPrice    decimal.Decimal `json:"ap"`
	AskSize     int64           `json:"as"`
	Condition   int             `json:"c"`
	Tape        int             `json:"z"`
	Timestamp   int64           `json:"t"`
}

func (m quoteMessage) toModel(receivedAt time.Time) model.Quote {
	q := model.Quote{
		Symbol:      m.Symbol,
		BidExchange: strconv.Itoa(m.BidExchange),
		BidPrice:    m.BidPrice,
		BidSize:     m.BidSize,
		AskExchange: strconv.Itoa(m.AskExchange),
		AskPrice:    m.AskPrice,
		AskSize:     m.AskSize,
		Tape:        tape(m.Tape),
		Timestamp:   time.UnixMilli(m.Timestamp).UTC(),
		ReceivedAt:  receivedAt,
	}
	if m.Condition != 0 {
		q.Conditions = []string{strconv.Itoa(m.Condition)}
	}
	return q
}

// aggMessage is a second (A) or minute (AM) aggregate.
type aggMessage struct {
	Event  string          `json:"ev"`
	Symbol string          `json:"sym"`
	Volume int64           `json:"v"`
	VWAP   decimal.Decimal `json:"vw"`
	Open   decimal.Decimal `json:"o"`
	High   decimal.Decimal `json:"h"`
	Low    decimal.Decimal `json:"l"`
	Close  decimal.Decimal `json:"c"`
	Start  int64           `json:"s"` // Unix ms
	End    int64           `json:"e"`
}

func (m aggMessage) toModel(receivedAt time.Time) model.Bar {
	return model.Bar{
		Symbol:     m.Symbol,
		Open:       m.Open,
		High:       m.High,
		Low:        m.Low,
		Close:      m.Close,
		Volume:     m.Volume,
		VWAP:       m.VWAP,
		Timestamp:  time.UnixMilli(m.Start).UTC(),
		ReceivedAt: receivedAt,
	}
}

type actionRequest struct {
	Action string `json:"action"`
	Params string `json:"params"`
}

func conditions(codes []int) []string {
	if len(codes) == 0 {
		return nil
	}
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = strconv.Itoa(c)
	}
	return out
}

func tape(z int) string {
	switch z {
	case 1:
		return "A"
	case 2:
		return "B"
	case 3:
		return "C"
	default:
		return ""
	}
}
