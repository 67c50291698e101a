package alpaca

import (
	"strings"

	"github.com/google/uuid"

	"github.com/rickgao/marketdata-sdk/internal/model"
	"github.com/rickgao/marketdata-sdk/internal/stream"
)

// Kind is a stream channel.
type Kind string

const (
	KindTrades Kind = "trades"
	KindQuotes Kind = "quotes"
	KindBars   Kind = "bars"
)

// Wildcard subscribes to every symbol on a channel.
const Wildcard = "*"

// StreamKey returns the registry key for kind and symbol, e.g. "trades.AAPL".
func StreamKey(kind Kind, symbol string) string {
	return string(kind) + "." + symbol
}

// Subscription is a stream subscription understood by StreamClient.
type Subscription interface {
	stream.Subscription
	Kind() Kind
	Symbol() string
}

// Receiver is a Subscription that delivers values of type T.
type Receiver[T any] interface {
	Subscription
	Received() *stream.Event[T]
}

type subscription[T any] struct {
	kind     Kind
	symbol   string
	received stream.Event[T]
}

func (s *subscription[T]) setup(kind Kind, symbol string) {
	s.kind = kind
	s.symbol = strings.ToUpper(strings.TrimSpace(symbol))
}

// Stream returns the key, e.g. "trades.AAPL".
func (s *subscription[T]) Stream() string { return StreamKey(s.kind, s.symbol) }

// Kind returns the channel.
func (s *subscription[T]) Kind() Kind { return s.kind }

// Symbol returns the upper-cased ticker.
func (s *subscription[T]) Symbol() string { return s.symbol }

// Received fires for every value delivered to this subscription.
func (s *subscription[T]) Received() *stream.Event[T] { return &s.received }

// TradeSubscription receives trades for one symbol.
type TradeSubscription struct {
	subscription[model.Trade]
}

// NewTradeSubscription subscribes to trades for symbol.
func NewTradeSubscription(symbol string) *TradeSubscription {
	s := &TradeSubscription{}
	s.setup(KindTrades, symbol)
	return s
}

// QuoteSubscription receives quotes for one symbol.
type QuoteSubscription struct {
	subscription[model.Quote]
}

// NewQuoteSubscription subscribes to quotes for symbol.
func NewQuoteSubscription(symbol string) *QuoteSubscription {
	s := &QuoteSubscription{}
	s.setup(KindQuotes, symbol)
	return s
}

// BarSubscription receives minute bars for one symbol.
type BarSubscription struct {
	subscription[model.Bar]
}

// NewBarSubscription subscribes to minute bars for symbol.
func NewBarSubscription(symbol string) *BarSubscription {
	s := &BarSubscription{}
	s.setup(KindBars, symbol)
	return s
}

// MultiSubscription groups subscriptions of one data type so a single handler
// can be attached to all of them.
type MultiSubscription[T any] struct {
	subs []Receiver[T]
}

// Combine groups subs.
func Combine[T any](subs ...Receiver[T]) *MultiSubscription[T] {
	return &MultiSubscription[T]{subs: subs}
}

// OnReceived registers fn on every held subscription under one ID.
func (m *MultiSubscription[T]) OnReceived(fn func(T)) stream.HandlerID {
	id := uuid.New()
	for _, s := range m.subs {
		s.Received().AddWithID(id, fn)
	}
	return id
}

// RemoveHandler removes the handler from every held subscription.
func (m *MultiSubscription[T]) RemoveHandler(id stream.HandlerID) {
	for _, s := range m.subs {
		s.Received().Remove(id)
	}
}

// Streams lists the key of every held subscription.
func (m *MultiSubscription[T]) Streams() []string {
	keys := make([]string, len(m.subs))
	for i, s := range m.subs {
		keys[i] = s.Stream()
	}
	return keys
}

// Subscriptions returns the held subscriptions for Subscribe and Unsubscribe.
func (m *MultiSubscription[T]) Subscriptions() []stream.Subscription {
	out := make([]stream.Subscription, len(m.subs))
	for i, s := range m.subs {
		out[i] = s
	}
	return out
}
