package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/rickgao/marketdata-sdk/internal/auth"
	"github.com/rickgao/marketdata-sdk/internal/metrics"
	"github.com/rickgao/marketdata-sdk/internal/version"
)

// REST endpoints.
const (
	DefaultBaseURL = "https://data.alpaca.markets"
	SandboxBaseURL = "https://data.sandbox.alpaca.markets"
)

// DefaultPageLimit is the page size requested when a request sets none.
const DefaultPageLimit = 1000

// Client provides access to the Alpaca market data REST API.
type Client struct {
	baseURL    string
	creds      *auth.Credentials
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
	userAgent  string

	maxRetries   int
	retryBackoff time.Duration
	pageLimit    int
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new REST API client. creds may be nil for endpoints
// that need no authentication.
func NewClient(baseURL string, creds *auth.Credentials, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		creds:   creds,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:       slog.Default(),
		userAgent:    version.UserAgent(),
		maxRetries:   3,
		retryBackoff: time.Second,
		pageLimit:    DefaultPageLimit,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets the retry configuration.
func WithRetries(max int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithPageLimit sets the default page size.
func WithPageLimit(n int) ClientOption {
	return func(c *Client) {
		c.pageLimit = n
	}
}

// WithMetrics counts fetched pages.
func WithMetrics(m *metrics.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}
