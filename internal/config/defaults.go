package config

import (
	"time"

	"github.com/rickgao/marketdata-sdk/internal/stream"
	"github.com/rickgao/marketdata-sdk/internal/transport"
)

// Default values for optional configuration fields.
const (
	DefaultAlpacaDataURL    = "https://data.alpaca.markets"
	DefaultAlpacaStreamBase = "wss://stream.data.alpaca.markets"
	DefaultAlpacaFeed       = "iex"
	DefaultPolygonStreamURL = "wss://socket.polygon.io/stocks"
	DefaultRESTTimeout      = 30 * time.Second
	DefaultMaxRetries       = 3
	DefaultRetryBackoff     = 1 * time.Second
	DefaultPageLimit        = 1000
	DefaultMetricsAddr      = ":9090"
	DefaultMetricsPath      = "/metrics"
)

func (c *Config) applyDefaults() {
	// Alpaca defaults
	if c.Alpaca.DataURL == "" {
		c.Alpaca.DataURL = DefaultAlpacaDataURL
	}
	if c.Alpaca.Feed == "" {
		c.Alpaca.Feed = DefaultAlpacaFeed
	}
	if c.Alpaca.StreamURL == "" {
		c.Alpaca.StreamURL = DefaultAlpacaStreamBase + "/v2/" + c.Alpaca.Feed
	}

	// Polygon defaults
	if c.Polygon.StreamURL == "" {
		c.Polygon.StreamURL = DefaultPolygonStreamURL
	}

	// Reconnect defaults
	if c.Reconnect.MaxAttempts == nil {
		n := stream.DefaultMaxReconnectAttempts
		c.Reconnect.MaxAttempts = &n
	}
	if c.Reconnect.MinDelay == 0 && c.Reconnect.MaxDelay == 0 {
		c.Reconnect.MinDelay = stream.DefaultMinReconnectDelay
		c.Reconnect.MaxDelay = stream.DefaultMaxReconnectDelay
	}

	// Transport defaults
	tc := transport.DefaultConfig()
	if c.Transport.HandshakeTimeout == 0 {
		c.Transport.HandshakeTimeout = tc.HandshakeTimeout
	}
	if c.Transport.PingInterval == 0 {
		c.Transport.PingInterval = tc.PingInterval
	}
	if c.Transport.PingTimeout == 0 {
		c.Transport.PingTimeout = tc.PingTimeout
	}
	if c.Transport.WriteTimeout == 0 {
		c.Transport.WriteTimeout = tc.WriteTimeout
	}
	if c.Transport.BufferSize == 0 {
		c.Transport.BufferSize = tc.BufferSize
	}
	if c.Transport.AuthTimeout == 0 {
		c.Transport.AuthTimeout = stream.DefaultAuthTimeout
	}

	// REST defaults
	if c.REST.Timeout == 0 {
		c.REST.Timeout = DefaultRESTTimeout
	}
	if c.REST.MaxRetries == 0 {
		c.REST.MaxRetries = DefaultMaxRetries
	}
	if c.REST.RetryBackoff == 0 {
		c.REST.RetryBackoff = DefaultRetryBackoff
	}
	if c.REST.PageLimit == 0 {
		c.REST.PageLimit = DefaultPageLimit
	}

	// Metrics defaults
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = DefaultMetricsAddr
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}
