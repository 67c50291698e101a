package polygon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rickgao/marketdata-sdk/internal/auth"
	"github.com/rickgao/marketdata-sdk/internal/model"
	"github.com/rickgao/marketdata-sdk/internal/stream"
	"github.com/rickgao/marketdata-sdk/internal/transport"
)

// Stream endpoints.
const (
	DefaultStreamURL = "wss://socket.polygon.io/stocks"
	DelayedStreamURL = "wss://delayed.polygon.io/stocks"
)

// StreamClient is a Polygon stock stream connection.
type StreamClient struct {
	*stream.Session
	protocol *protocol
}

var _ stream.ChannelClient = (*StreamClient)(nil)

// ClientOption configures a StreamClient.
type ClientOption func(*clientOptions)

type clientOptions struct {
	logger      *slog.Logger
	newConn     stream.ConnFactory
	authTimeout time.Duration
	transport   transport.Config
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// WithConnFactory replaces the transport constructor.
func WithConnFactory(f stream.ConnFactory) ClientOption {
	return func(o *clientOptions) {
		o.newConn = f
	}
}

// WithAuthTimeout bounds the wait for the auth reply.
func WithAuthTimeout(d time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.authTimeout = d
	}
}

// WithTransportConfig sets WebSocket settings. The URL is always the one
// passed to NewStreamClient.
func WithTransportConfig(cfg transport.Config) ClientOption {
	return func(o *clientOptions) {
		o.transport = cfg
	}
}

// NewStreamClient creates a client for the stream at url.
func NewStreamClient(url string, apiKey auth.APIKey, opts ...ClientOption) *StreamClient {
	o := clientOptions{
		logger:    slog.Default(),
		transport: transport.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	o.transport.URL = url

	p := &protocol{
		apiKey: apiKey,
		logger: o.logger.With("vendor", "polygon"),
	}
	s := stream.NewSession(stream.SessionConfig{
		Name:        "polygon",
		Transport:   o.transport,
		AuthTimeout: o.authTimeout,
	}, p, o.newConn, o.logger)

	return &StreamClient{Session: s, protocol: p}
}

// Trades fires for every trade received.
func (c *StreamClient) Trades() *stream.Event[model.Trade] { return &c.protocol.trades }

// Quotes fires for every quote received.
func (c *StreamClient) Quotes() *stream.Event[model.Quote] { return &c.protocol.quotes }

// SecondBars fires for every per-second aggregate.
func (c *StreamClient) SecondBars() *stream.Event[model.Bar] { return &c.protocol.secondBars }

// MinuteBars fires for every per-minute aggregate.
func (c *StreamClient) MinuteBars() *stream.Event[model.Bar] { return &c.protocol.minuteBars }

// Subscribe subscribes symbol on every channel set in channels.
func (c *StreamClient) Subscribe(ctx context.Context, symbol string, channels stream.Channel) error {
	return c.update(ctx, "subscribe", symbol, channels)
}

// Unsubscribe unsubscribes symbol from every channel set in channels.
func (c *StreamClient) Unsubscribe(ctx context.Context, symbol string, channels stream.Channel) error {
	return c.update(ctx, "unsubscribe", symbol, channels)
}

func (c *StreamClient) update(ctx context.Context, action, symbol string, channels stream.Channel) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return fmt.Errorf("%w: empty symbol", stream.ErrInvalidSubscription)
	}
	if channels == 0 || channels&^stream.AllChannels != 0 {
		return fmt.Errorf("%w: channels %s", stream.ErrInvalidSubscription, channels)
	}

	frame, err := json.Marshal(actionRequest{Action: action, Params: params(symbol, channels)})
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", action, err)
	}
	if err := c.Send(frame); err != nil {
		return fmt.Errorf("send %s: %w", action, err)
	}
	return nil
}
