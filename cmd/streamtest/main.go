// streamtest connects to a market data stream and prints trades to the console.
// The connection is wrapped so that dropped sockets are reopened and every
// subscription is replayed.
//
// Usage: go run ./cmd/streamtest --config configs/sdk.example.yaml --vendor alpaca --symbols AAPL,MSFT
//
// Credentials are read from the config file, which usually refers to
// APCA_API_KEY_ID, APCA_API_SECRET_KEY and POLYGON_API_KEY.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rickgao/marketdata-sdk/internal/alpaca"
	"github.com/rickgao/marketdata-sdk/internal/config"
	"github.com/rickgao/marketdata-sdk/internal/metrics"
	"github.com/rickgao/marketdata-sdk/internal/model"
	"github.com/rickgao/marketdata-sdk/internal/polygon"
	"github.com/rickgao/marketdata-sdk/internal/stream"
	"github.com/rickgao/marketdata-sdk/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/sdk.example.yaml", "path to config file")
	vendor := flag.String("vendor", "alpaca", "stream vendor: alpaca or polygon")
	symbols := flag.String("symbols", "AAPL", "comma-separated symbols")
	quotes := flag.Bool("quotes", false, "also print quotes")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		reg := metrics.NewRegistry()
		m = metrics.New(reg)
		srv := serveMetrics(cfg.Metrics, reg, logger)
		defer srv.Close()
	}

	opts := []stream.Option{
		stream.WithParameters(cfg.Reconnect.Parameters()),
		stream.WithLogger(logger),
		stream.WithMetrics(m),
	}
	list := splitSymbols(*symbols)

	logger.Info("starting stream", "version", version.Version, "vendor", *vendor, "symbols", list)

	var client stream.Client
	switch *vendor {
	case "alpaca":
		client, err = startAlpaca(ctx, cfg, list, *quotes, opts, logger)
	case "polygon":
		client, err = startPolygon(ctx, cfg, list, *quotes, opts, logger)
	default:
		err = fmt.Errorf("unknown vendor %q", *vendor)
	}
	if err != nil {
		logger.Error("failed to start stream", "error", err)
		os.Exit(1)
	}

	client.Errors().Add(func(err error) {
		if stream.IsReplayError(err) {
			logger.Warn("subscription replay failed", "error", err)
			return
		}
		logger.Debug("stream error", "error", err)
	})
	client.Connected().Add(func(status stream.AuthStatus) {
		logger.Info("connected", "status", status)
	})

	logger.Info("streaming started - press Ctrl+C to stop")

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")
	if err := client.Close(); err != nil {
		logger.Warn("close failed", "error", err)
	}
	logger.Info("shutdown complete")
}

func startAlpaca(ctx context.Context, cfg *config.Config, symbols []string, quotes bool, opts []stream.Option, logger *slog.Logger) (stream.Client, error) {
	creds, err := cfg.Alpaca.Credentials()
	if err != nil {
		return nil, fmt.Errorf("alpaca credentials: %w", err)
	}
	logger.Info("using API credentials", "key_id", creds.KeyID)

	sc := alpaca.NewStreamClient(cfg.Alpaca.StreamURL, creds,
		alpaca.WithLogger(logger),
		alpaca.WithAuthTimeout(cfg.Transport.AuthTimeout),
		alpaca.WithTransportConfig(cfg.Transport.Config(cfg.Alpaca.StreamURL)),
	)
	rc, err := stream.NewReconnectingClient(sc, opts...)
	if err != nil {
		return nil, err
	}

	if err := authenticate(ctx, rc); err != nil {
		rc.Close()
		return nil, err
	}

	var subs []stream.Subscription
	for _, sym := range symbols {
		ts := alpaca.NewTradeSubscription(sym)
		ts.Received().Add(printTrade)
		subs = append(subs, ts)
		if quotes {
			qs := alpaca.NewQuoteSubscription(sym)
			qs.Received().Add(printQuote)
			subs = append(subs, qs)
		}
	}
	if err := rc.Subscribe(ctx, subs...); err != nil {
		rc.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	return rc, nil
}

func startPolygon(ctx context.Context, cfg *config.Config, symbols []string, quotes bool, opts []stream.Option, logger *slog.Logger) (stream.Client, error) {
	if cfg.Polygon.APIKey == "" {
		return nil, errors.New("polygon.api_key is required")
	}
	logger.Info("using API key", "key", cfg.Polygon.Key())

	sc := polygon.NewStreamClient(cfg.Polygon.StreamURL, cfg.Polygon.Key(),
		polygon.WithLogger(logger),
		polygon.WithAuthTimeout(cfg.Transport.AuthTimeout),
		polygon.WithTransportConfig(cfg.Transport.Config(cfg.Polygon.StreamURL)),
	)
	sc.Trades().Add(printTrade)
	sc.Quotes().Add(printQuote)

	rc, err := stream.NewReconnectingChannelClient(sc, opts...)
	if err != nil {
		return nil, err
	}
	if err := authenticate(ctx, rc); err != nil {
		rc.Close()
		return nil, err
	}

	channels := stream.ChannelTrade
	if quotes {
		channels |= stream.ChannelQuote
	}
	for _, sym := range symbols {
		if err := rc.Subscribe(ctx, sym, channels); err != nil {
			rc.Close()
			return nil, fmt.Errorf("subscribe %s: %w", sym, err)
		}
	}
	return rc, nil
}

func authenticate(ctx context.Context, c stream.Client) error {
	authCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	status, err := c.ConnectAndAuthenticate(authCtx)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if status != stream.AuthAuthorized {
		return fmt.Errorf("authentication failed: %s", status)
	}
	return nil
}

func serveMetrics(cfg config.MetricsConfig, reg *prometheus.Registry, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, metrics.Handler(reg))
	srv := &http.Server{Addr: cfg.Addr, Handler: mux}
	go func() {
		logger.Info("serving metrics", "addr", cfg.Addr, "path", cfg.Path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	return srv
}

func splitSymbols(s string) []string {
	var out []string
	for _, sym := range strings.Split(s, ",") {
		if sym = strings.TrimSpace(sym); sym != "" {
			out = append(out, strings.ToUpper(sym))
		}
	}
	return out
}

func printTrade(t model.Trade) {
	fmt.Printf("[TRADE] symbol=%s price=%s size=%d exchange=%s ts=%s\n",
		t.Symbol, t.Price, t.Size, t.Exchange, t.Timestamp.Format(time.RFC3339Nano))
}

func printQuote(q model.Quote) {
	fmt.Printf("[QUOTE] symbol=%s bid=%s x %d ask=%s x %d spread=%s\n",
		q.Symbol, q.BidPrice, q.BidSize, q.AskPrice, q.AskSize, q.Spread())
}
