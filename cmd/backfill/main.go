// backfill downloads historical bars or trades from the Alpaca REST API and
// writes them to stdout as JSON lines.
//
// Usage:
//
//	go run ./cmd/backfill --config configs/sdk.example.yaml --symbols AAPL,MSFT --timeframe 1Day --start 2024-01-02
//	go run ./cmd/backfill --config configs/sdk.example.yaml --symbols AAPL --trades --start 2024-01-02T14:30:00Z --end 2024-01-02T14:31:00Z
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rickgao/marketdata-sdk/internal/api"
	"github.com/rickgao/marketdata-sdk/internal/config"
	"github.com/rickgao/marketdata-sdk/internal/metrics"
	"github.com/rickgao/marketdata-sdk/internal/model"
	"github.com/rickgao/marketdata-sdk/internal/paging"
)

func main() {
	configPath := flag.String("config", "configs/sdk.example.yaml", "path to config file")
	symbols := flag.String("symbols", "AAPL", "comma-separated symbols")
	timeframe := flag.String("timeframe", "1Day", "bar time frame, e.g. 1Min, 15Min, 1Hour, 1Day")
	start := flag.String("start", "", "start time (RFC3339 or YYYY-MM-DD)")
	end := flag.String("end", "", "end time (RFC3339 or YYYY-MM-DD)")
	trades := flag.Bool("trades", false, "download trades instead of bars")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	// Logs go to stderr; stdout carries the data.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	if err := run(logger, *configPath, *symbols, *timeframe, *start, *end, *trades); err != nil {
		logger.Error("backfill failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, configPath, symbols, timeframe, start, end string, trades bool) error {
	cfg, err := config.LoadAndValidate(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	creds, err := cfg.Alpaca.Credentials()
	if err != nil {
		return fmt.Errorf("alpaca credentials: %w", err)
	}

	startTime, err := parseTime(start)
	if err != nil {
		return fmt.Errorf("parse start: %w", err)
	}
	endTime, err := parseTime(end)
	if err != nil {
		return fmt.Errorf("parse end: %w", err)
	}
	tf, err := api.ParseTimeFrame(timeframe)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New(metrics.NewRegistry())
	client := api.NewClient(cfg.Alpaca.DataURL, creds,
		api.WithLogger(logger),
		api.WithTimeout(cfg.REST.Timeout),
		api.WithRetries(cfg.REST.MaxRetries, cfg.REST.RetryBackoff),
		api.WithPageLimit(cfg.REST.PageLimit),
		api.WithMetrics(m),
	)

	list := strings.Split(strings.ToUpper(symbols), ",")
	enc := json.NewEncoder(os.Stdout)
	feed := api.Feed(cfg.Alpaca.Feed)

	var n int
	if trades {
		for _, sym := range list {
			for t, err := range client.ListTrades(ctx, api.TradesRequest{
				Symbol: sym,
				Start:  startTime,
				End:    endTime,
				Feed:   feed,
			}) {
				if err != nil {
					return fmt.Errorf("list trades %s: %w", sym, err)
				}
				if err := enc.Encode(t); err != nil {
					return err
				}
				n++
			}
		}
	} else {
		res := client.StreamMultiBars(ctx, api.MultiBarsRequest{
			Symbols:   list,
			TimeFrame: tf,
			Start:     startTime,
			End:       endTime,
			Feed:      feed,
		})
		for _, sym := range list {
			c, err := writeBars(ctx, enc, res.Symbol(sym))
			n += c
			if err != nil {
				return fmt.Errorf("bars %s: %w", sym, err)
			}
		}
		if err := res.Wait(); err != nil {
			return err
		}
	}

	logger.Info("backfill complete", "records", n, "symbols", len(list))
	return nil
}

func writeBars(ctx context.Context, enc *json.Encoder, q *paging.Queue[model.Bar]) (int, error) {
	n := 0
	for b, err := range q.All(ctx) {
		if err != nil {
			return n, err
		}
		if err := enc.Encode(b); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
