package polygon

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rickgao/marketdata-sdk/internal/auth"
	"github.com/rickgao/marketdata-sdk/internal/model"
	"github.com/rickgao/marketdata-sdk/internal/stream"
)

// protocol implements stream.Protocol for the Polygon stream.
type protocol struct {
	apiKey auth.APIKey
	logger *slog.Logger

	trades     stream.Event[model.Trade]
	quotes     stream.Event[model.Quote]
	secondBars stream.Event[model.Bar]
	minuteBars stream.Event[model.Bar]
}

func (p *protocol) AuthRequest() ([]byte, error) {
	if p.apiKey == "" {
		return nil, auth.ErrMissingCredentials
	}
	return json.Marshal(actionRequest{Action: "auth", Params: string(p.apiKey)})
}

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
		switch h.Event {
		case evTrade:
			var m tradeMessage
			if err = json.Unmarshal(raw, &m); err == nil {
				p.trades.Emit(m.toModel(receivedAt))
			}
		case evQuote:
			var m quoteMessage
			if err = json.Unmarshal(raw, &m); err == nil {
				p.quotes.Emit(m.toModel(receivedAt))
			}
		case evSecondAgg:
			var m aggMessage
			if err = json.Unmarshal(raw, &m); err == nil {
				p.secondBars.Emit(m.toModel(receivedAt))
			}
		case evMinuteAgg:
			var m aggMessage
			if err = json.Unmarshal(raw, &m); err == nil {
				p.minuteBars.Emit(m.toModel(receivedAt))
			}
		case evStatus:
			var m statusMessage
			if err = json.Unmarshal(raw, &m); err == nil {
				if c, ok := p.status(m); ok {
					controls = append(controls, c)
				}
			}
		default:
			p.logger.Debug("ignoring message", "ev", h.Event)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("unmarshal %q message: %w", h.Event, err))
		}
	}

	return controls, errors.Join(errs...)
}

func (p *protocol) status(m statusMessage) (stream.Control, bool) {
	switch m.Status {
	case statusAuthSuccess:
		return stream.Control{Auth: stream.AuthAuthorized}, true
	case statusAuthFailed:
		return stream.Control{Auth: stream.AuthUnauthorized}, true
	case statusMaxConnections:
		return stream.Control{Auth: stream.AuthTooManyConnections}, true
	case statusError:
		return stream.Control{Err: &StatusError{Status: m.Status, Message: m.Message}}, true
	case statusConnected, statusSuccess:
		p.logger.Debug("stream status", "status", m.Status, "message", m.Message)
	default:
		p.logger.Debug("unknown status", "status", m.Status, "message", m.Message)
	}
	return stream.Control{}, false
}

// params renders the subscription list for symbol, e.g. "T.AAPL,Q.AAPL".
func params(symbol string, channels stream.Channel) string {
	parts := make([]string, 0, 4)
	for _, ch := range channels.Split() {
		parts = append(parts, channelPrefix[ch]+"."+symbol)
	}
	return strings.Join(parts, ",")
}
