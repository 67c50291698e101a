package alpaca

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rickgao/marketdata-sdk/internal/auth"
	"github.com/rickgao/marketdata-sdk/internal/stream"
	"github.com/rickgao/marketdata-sdk/internal/transport"
)

// Stream endpoints.
const (
	DefaultStreamURL = "wss://stream.data.alpaca.markets/v2/iex"
	SandboxStreamURL = "wss://stream.data.sandbox.alpaca.markets/v2/iex"
)

// StreamURL returns the stock stream URL for base and feed ("iex" or "sip").
func StreamURL(base, feed string) string {
	return base + "/v2/" + feed
}

// StreamClient is an Alpaca stock stream connection.
type StreamClient struct {
	*stream.Session
	protocol *protocol
	logger   *slog.Logger
}

var _ stream.SubscriptionClient = (*StreamClient)(nil)

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
func NewStreamClient(url string, creds *auth.Credentials, opts ...ClientOption) *StreamClient {
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

	logger := o.logger.With("vendor", "alpaca")
	p := newProtocol(creds, logger)
	s := stream.NewSession(stream.SessionConfig{
		Name:        "alpaca",
		Transport:   o.transport,
		AuthTimeout: o.authTimeout,
	}, p, o.newConn, o.logger)

	return &StreamClient{
		Session:  s,
		protocol: p,
		logger:   logger,
	}
}

// Subscribe starts delivery for subs and sends one subscribe frame.
func (c *StreamClient) Subscribe(ctx context.Context, subs ...stream.Subscription) error {
	return c.update(ctx, "subscribe", subs)
}

// Unsubscribe sends one unsubscribe frame and stops delivery for subs.
func (c *StreamClient) Unsubscribe(ctx context.Context, subs ...stream.Subscription) error {
	return c.update(ctx, "unsubscribe", subs)
}

func (c *StreamClient) update(ctx context.Context, action string, subs []stream.Subscription) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	typed, err := asSubscriptions(subs)
	if err != nil {
		return err
	}
	if len(typed) == 0 {
		return nil
	}

	frame, err := json.Marshal(buildRequest(action, typed))
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", action, err)
	}

	if action == "subscribe" {
		c.protocol.track(typed)
		if err := c.Send(frame); err != nil {
			return fmt.Errorf("send subscribe: %w", err)
		}
		return nil
	}

	err = c.Send(frame)
	c.protocol.untrack(typed)
	if err != nil {
		return fmt.Errorf("send unsubscribe: %w", err)
	}
	return nil
}

func asSubscriptions(subs []stream.Subscription) ([]Subscription, error) {
	out := make([]Subscription, 0, len(subs))
	for _, s := range subs {
		if s == nil {
			return nil, stream.ErrNilSubscription
		}
		a, ok := s.(Subscription)
		if !ok {
			return nil, fmt.Errorf("%w: %T is not an alpaca subscription", stream.ErrInvalidSubscription, s)
		}
		if a.Symbol() == "" {
			return nil, fmt.Errorf("%w: empty symbol", stream.ErrInvalidSubscription)
		}
		out = append(out, a)
	}
	return out, nil
}
