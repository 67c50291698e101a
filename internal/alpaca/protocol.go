package alpaca

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/marketdata-sdk/internal/auth"
	"github.com/rickgao/marketdata-sdk/internal/model"
	"github.com/rickgao/marketdata-sdk/internal/stream"
)

// protocol implements stream.Protocol for the Alpaca stream and routes data
// to the subscriptions it tracks.
type protocol struct {
	creds  *auth.Credentials
	logger *slog.Logger

	mu   sync.RWMutex
	subs map[string]Subscription
}

func newProtocol(creds *auth.Credentials, logger *slog.Logger) *protocol {
	return &protocol{
		creds:  creds,
		logger: logger,
		subs:   make(map[string]Subscription),
	}
}

func (p *protocol) AuthRequest() ([]byte, error) {
	if p.creds == nil {
		return nil, auth.ErrMissingCredentials
	}
	return json.Marshal(authRequest{
		Action: "auth",
		Key:    p.creds.KeyID,
		Secret: p.creds.SecretKey,
	})
}

// Handle decodes a frame. Alpaca frames are always JSON arrays.
func (p *protocol) Handle(frame []byte, receivedAt time.Time) ([]stream.Control, error) {
	var msgs []json.RawMessage
	if err := json.Unmarshal(frame, &msgs); err != nil {
		return nil, fmt.Errorf("unmarshal frame: %w", err)
	}

	var controls []stream.Control
	var errs []error
	for _, raw := range msgs {
		var h header
		if err := json.Unmarshal(raw, &h); err != nil {
			errs = append(errs, fmt.Errorf("unmarshal message: %w", err))
			continue
		}

		var err error
		switch h.Type {
		case msgTrade:
			var m tradeMessage
			if err = json.Unmarshal(raw, &m); err == nil {
				p.deliverTrade(m.toModel(receivedAt))
			}
		case msgQuote:
			var m quoteMessage
			if err = json.Unmarshal(raw, &m); err == nil {
				p.deliverQuote(m.toModel(receivedAt))
			}
		case msgBar:
			var m barMessage
			if err = json.Unmarshal(raw, &m); err == nil {
				p.deliverBar(m.toModel(receivedAt))
			}
		case msgSuccess, msgError, msgSubscription:
			var m controlMessage
			if err = json.Unmarshal(raw, &m); err == nil {
				if c, ok := p.control(m); ok {
					controls = append(controls, c)
				}
			}
		default:
			p.logger.Debug("ignoring message", "type", h.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("unmarshal %q message: %w", h.Type, err))
		}
	}

	return controls, errors.Join(errs...)
}

func (p *protocol) control(m controlMessage) (stream.Control, bool) {
	switch m.Type {
	case msgSuccess:
		if m.Msg == "authenticated" {
			return stream.Control{Auth: stream.AuthAuthorized}, true
		}
		p.logger.Debug("stream status", "msg", m.Msg)
	case msgSubscription:
		p.logger.Debug("subscriptions updated",
			"trades", m.Trades,
			"quotes", m.Quotes,
			"bars", m.Bars,
		)
	case msgError:
		if status := authStatus(m.Code); status != stream.AuthUnknown {
			return stream.Control{Auth: status}, true
		}
		return stream.Control{Err: &ServerError{Code: m.Code, Msg: m.Msg}}, true
	}
	return stream.Control{}, false
}

// authStatus maps auth-related error codes. Other codes return AuthUnknown.
func authStatus(code int) stream.AuthStatus {
	switch code {
	case CodeAuthFailed, CodeNotAuthenticated, CodeAuthTimeout:
		return stream.AuthUnauthorized
	case CodeConnectionLimit:
		return stream.AuthTooManyConnections
	case CodeAlreadyAuthenticated:
		return stream.AuthAuthorized
	default:
		return stream.AuthUnknown
	}
}

func (p *protocol) track(subs []Subscription) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range subs {
		p.subs[s.Stream()] = s
	}
}

func (p *protocol) untrack(subs []Subscription) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range subs {
		delete(p.subs, s.Stream())
	}
}

// lookup returns the subscriptions for symbol and the channel wildcard.
func (p *protocol) lookup(kind Kind, symbol string) []Subscription {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []Subscription
	if s, ok := p.subs[StreamKey(kind, symbol)]; ok {
		out = append(out, s)
	}
	if s, ok := p.subs[StreamKey(kind, Wildcard)]; ok {
		out = append(out, s)
	}
	return out
}

func (p *protocol) deliverTrade(t model.Trade) {
	for _, s := range p.lookup(KindTrades, t.Symbol) {
		if r, ok := s.(Receiver[model.Trade]); ok {
			r.Received().Emit(t)
		}
	}
}

func (p *protocol) deliverQuote(q model.Quote) {
	for _, s := range p.lookup(KindQuotes, q.Symbol) {
		if r, ok := s.(Receiver[model.Quote]); ok {
			r.Received().Emit(q)
		}
	}
}

func (p *protocol) deliverBar(b model.Bar) {
	for _, s := range p.lookup(KindBars, b.Symbol) {
		if r, ok := s.(Receiver[model.Bar]); ok {
			r.Received().Emit(b)
		}
	}
}

// buildRequest groups subs by channel.
func buildRequest(action string, subs []Subscription) subscriptionRequest {
	req := subscriptionRequest{Action: action}
	for _, s := range subs {
		switch s.Kind() {
		case KindTrades:
			req.Trades = append(req.Trades, s.Symbol())
		case KindQuotes:
			req.Quotes = append(req.Quotes, s.Symbol())
		case KindBars:
			req.Bars = append(req.Bars, s.Symbol())
		}
	}
	return req
}
