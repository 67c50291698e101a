package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that all values are usable. Credentials are checked when
// a client is built, since a binary may only need one vendor.
func (c *Config) Validate() error {
	switch c.Alpaca.Feed {
	case "iex", "sip":
	default:
		return fmt.Errorf("alpaca.feed must be iex or sip, got %q", c.Alpaca.Feed)
	}
	if !strings.HasPrefix(c.Alpaca.StreamURL, "ws://") && !strings.HasPrefix(c.Alpaca.StreamURL, "wss://") {
		return fmt.Errorf("alpaca.stream_url must be a ws:// or wss:// URL, got %q", c.Alpaca.StreamURL)
	}
	if !strings.HasPrefix(c.Polygon.StreamURL, "ws://") && !strings.HasPrefix(c.Polygon.StreamURL, "wss://") {
		return fmt.Errorf("polygon.stream_url must be a ws:// or wss:// URL, got %q", c.Polygon.StreamURL)
	}

	if err := c.Reconnect.Parameters().Validate(); err != nil {
		return fmt.Errorf("reconnect: %w", err)
	}

	if c.Transport.BufferSize < 1 {
		return errors.New("transport.buffer_size must be >= 1")
	}
	if c.Transport.PingTimeout < c.Transport.PingInterval {
		return fmt.Errorf("transport.ping_timeout (%s) cannot be shorter than ping_interval (%s)",
			c.Transport.PingTimeout, c.Transport.PingInterval)
	}

	if c.REST.MaxRetries < 0 {
		return errors.New("rest.max_retries must be >= 0")
	}
	if c.REST.PageLimit < 1 || c.REST.PageLimit > 10000 {
		return fmt.Errorf("rest.page_limit must be between 1 and 10000, got %d", c.REST.PageLimit)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /, got %q", c.Metrics.Path)
	}

	return nil
}
