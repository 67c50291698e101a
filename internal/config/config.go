package config

import (
	"time"

	"github.com/rickgao/marketdata-sdk/internal/auth"
	"github.com/rickgao/marketdata-sdk/internal/stream"
	"github.com/rickgao/marketdata-sdk/internal/transport"
)

// Config is the root configuration for the SDK binaries.
type Config struct {
	Alpaca    AlpacaConfig    `yaml:"alpaca"`
	Polygon   PolygonConfig   `yaml:"polygon"`
	Reconnect ReconnectConfig `yaml:"reconnect"`
	Transport TransportConfig `yaml:"transport"`
	REST      RESTConfig      `yaml:"rest"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// AlpacaConfig holds Alpaca market data settings.
type AlpacaConfig struct {
	DataURL       string `yaml:"data_url"`   // REST base URL
	StreamURL     string `yaml:"stream_url"` // Full stock stream URL; derived from feed when empty
	Feed          string `yaml:"feed"`       // "iex" or "sip"
	KeyID         string `yaml:"key_id"`
	SecretKey     string `yaml:"secret_key"`
	SecretKeyPath string `yaml:"secret_key_path"` // File holding the secret, used when secret_key is empty
}

// PolygonConfig holds Polygon stream settings.
type PolygonConfig struct {
	StreamURL string `yaml:"stream_url"`
	APIKey    string `yaml:"api_key"`
}

// ReconnectConfig holds reconnection loop settings. A nil MaxAttempts means
// the default; an explicit 0 disables reconnection.
type ReconnectConfig struct {
	MaxAttempts *int          `yaml:"max_attempts"`
	MinDelay    time.Duration `yaml:"min_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
}

// TransportConfig holds WebSocket settings shared by both vendors.
type TransportConfig struct {
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	PingInterval     time.Duration `yaml:"ping_interval"`
	PingTimeout      time.Duration `yaml:"ping_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	AuthTimeout      time.Duration `yaml:"auth_timeout"`
	BufferSize       int           `yaml:"buffer_size"`
}

// RESTConfig holds historical data client settings.
type RESTConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
	PageLimit    int           `yaml:"page_limit"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// Credentials returns the Alpaca key pair. The secret comes from secret_key,
// or from secret_key_path when secret_key is empty.
func (a AlpacaConfig) Credentials() (*auth.Credentials, error) {
	if a.SecretKey == "" && a.SecretKeyPath != "" {
		return auth.LoadCredentials(a.KeyID, a.SecretKeyPath)
	}
	return auth.NewCredentials(a.KeyID, a.SecretKey)
}

// Key returns the Polygon API key.
func (p PolygonConfig) Key() auth.APIKey {
	return auth.APIKey(p.APIKey)
}

// Parameters converts the section to stream reconnection parameters.
func (r ReconnectConfig) Parameters() stream.ReconnectionParameters {
	p := stream.ReconnectionParameters{
		MaxAttempts: stream.DefaultMaxReconnectAttempts,
		MinDelay:    r.MinDelay,
		MaxDelay:    r.MaxDelay,
	}
	if r.MaxAttempts != nil {
		p.MaxAttempts = *r.MaxAttempts
	}
	return p
}

// Config returns the transport settings for url.
func (t TransportConfig) Config(url string) transport.Config {
	return transport.Config{
		URL:              url,
		HandshakeTimeout: t.HandshakeTimeout,
		PingInterval:     t.PingInterval,
		PingTimeout:      t.PingTimeout,
		WriteTimeout:     t.WriteTimeout,
		BufferSize:       t.BufferSize,
	}
}
