package stream

import "context"

// Client is the contract every streaming client exposes, whether it talks to
// the network directly or wraps another client.
type Client interface {
	// Connect opens the WebSocket connection without authenticating.
	Connect(ctx context.Context) error

	// ConnectAndAuthenticate opens the connection and performs the vendor
	// auth handshake. A non-authorized status is not an error.
	ConnectAndAuthenticate(ctx context.Context) (AuthStatus, error)

	// Disconnect closes the connection. The client may be connected again.
	Disconnect(ctx context.Context) error

	// Close releases the client. It cannot be used afterwards.
	Close() error

	Connected() *Event[AuthStatus]
	SocketOpened() *Event[struct{}]
	SocketClosed() *Event[struct{}]
	Errors() *Event[error]
}

// Subscription describes one subscribable data feed.
type Subscription interface {
	// Stream returns the stream identifier, e.g. "trades.AAPL".
	Stream() string
}

// SubscriptionClient is a client whose subscriptions are descriptor values,
// one stream each (Alpaca style).
type SubscriptionClient interface {
	Client
	Subscribe(ctx context.Context, subs ...Subscription) error
	Unsubscribe(ctx context.Context, subs ...Subscription) error
}

// ChannelClient is a client whose subscriptions are per-symbol channel flags
// (Polygon style).
type ChannelClient interface {
	Client
	Subscribe(ctx context.Context, symbol string, channels Channel) error
	Unsubscribe(ctx context.Context, symbol string, channels Channel) error
}
