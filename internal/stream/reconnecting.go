package stream

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ReconnectingClient wraps a SubscriptionClient, records every subscription
// and replays them after the wrapped client re-authenticates.
type ReconnectingClient struct {
	*reconnector
	client   SubscriptionClient
	registry *Registry
}

var _ SubscriptionClient = (*ReconnectingClient)(nil)

// NewReconnectingClient wraps client. The parameters are validated here and a
// bad configuration is returned as ErrInvalidParameters.
func NewReconnectingClient(client SubscriptionClient, opts ...Option) (*ReconnectingClient, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	r, err := newReconnector(client, opts)
	if err != nil {
		return nil, err
	}

	c := &ReconnectingClient{
		reconnector: r,
		client:      client,
		registry:    NewRegistry(),
	}
	r.replay = c.replay
	r.start()
	return c, nil
}

// Subscribe records subs as desired and forwards them to the wrapped client.
// The registry keeps them when the forward fails for any reason other than
// ErrInvalidSubscription, so they are replayed on the next reconnection.
func (c *ReconnectingClient) Subscribe(ctx context.Context, subs ...Subscription) error {
	if err := checkSubscriptions(subs); err != nil {
		return err
	}
	var added []string
	for _, s := range subs {
		key := s.Stream()
		if _, ok := c.registry.Get(key); !ok {
			added = append(added, key)
		}
		c.registry.Add(key, s)
	}
	err := c.client.Subscribe(ctx, subs...)
	if errors.Is(err, ErrInvalidSubscription) {
		for _, key := range added {
			c.registry.Remove(key)
		}
	}
	return err
}

// Unsubscribe forwards subs to the wrapped client and then drops them from
// the registry.
func (c *ReconnectingClient) Unsubscribe(ctx context.Context, subs ...Subscription) error {
	if err := checkSubscriptions(subs); err != nil {
		return err
	}
	err := c.client.Unsubscribe(ctx, subs...)
	for _, s := range subs {
		c.registry.Remove(s.Stream())
	}
	return err
}

// Subscriptions returns the desired subscription set.
func (c *ReconnectingClient) Subscriptions() []RegistryEntry {
	return c.registry.Snapshot()
}

func (c *ReconnectingClient) replay(ctx context.Context) int {
	n := 0
	for _, e := range c.registry.Snapshot() {
		if ctx.Err() != nil {
			return n
		}
		err := c.client.Subscribe(ctx, e.Subscription)
		c.replayed(e.Key, err)
		if err == nil {
			n++
		}
	}
	return n
}

func checkSubscriptions(subs []Subscription) error {
	for _, s := range subs {
		if s == nil {
			return ErrNilSubscription
		}
		if strings.TrimSpace(s.Stream()) == "" {
			return fmt.Errorf("%w: empty stream identifier", ErrInvalidSubscription)
		}
	}
	return nil
}

// ReconnectingChannelClient wraps a ChannelClient, accumulates channel flags
// per symbol and replays them after the wrapped client re-authenticates.
type ReconnectingChannelClient struct {
	*reconnector
	client   ChannelClient
	registry *ChannelRegistry
}

var _ ChannelClient = (*ReconnectingChannelClient)(nil)

// NewReconnectingChannelClient wraps client.
func NewReconnectingChannelClient(client ChannelClient, opts ...Option) (*ReconnectingChannelClient, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	r, err := newReconnector(client, opts)
	if err != nil {
		return nil, err
	}

	c := &ReconnectingChannelClient{
		reconnector: r,
		client:      client,
		registry:    NewChannelRegistry(),
	}
	r.replay = c.replay
	r.start()
	return c, nil
}

// Subscribe adds channels for symbol to the registry and forwards the call.
// Symbols are trimmed and upper-cased.
func (c *ReconnectingChannelClient) Subscribe(ctx context.Context, symbol string, channels Channel) error {
	symbol, err := checkChannelArgs(symbol, channels)
	if err != nil {
		return err
	}
	c.registry.Add(symbol, channels)
	return c.client.Subscribe(ctx, symbol, channels)
}

// Unsubscribe forwards the call and then clears channels for symbol.
func (c *ReconnectingChannelClient) Unsubscribe(ctx context.Context, symbol string, channels Channel) error {
	symbol, err := checkChannelArgs(symbol, channels)
	if err != nil {
		return err
	}
	err = c.client.Unsubscribe(ctx, symbol, channels)
	c.registry.Remove(symbol, channels)
	return err
}

// Subscriptions returns the desired channel flags per symbol.
func (c *ReconnectingChannelClient) Subscriptions() []ChannelEntry {
	return c.registry.Snapshot()
}

func (c *ReconnectingChannelClient) replay(ctx context.Context) int {
	n := 0
	for _, e := range c.registry.Snapshot() {
		if ctx.Err() != nil {
			return n
		}
		err := c.client.Subscribe(ctx, e.Symbol, e.Channels)
		c.replayed(e.Symbol, err)
		if err == nil {
			n++
		}
	}
	return n
}

// checkChannelArgs validates the arguments and returns the normalized symbol.
func checkChannelArgs(symbol string, channels Channel) (string, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return "", fmt.Errorf("%w: empty symbol", ErrInvalidSubscription)
	}
	if channels == 0 || channels&^AllChannels != 0 {
		return "", fmt.Errorf("%w: channels %#x", ErrInvalidSubscription, uint8(channels))
	}
	return symbol, nil
}

// IsReplayError reports whether err came from a failed subscription replay.
func IsReplayError(err error) bool {
	var re *ReplayError
	return errors.As(err, &re)
}
