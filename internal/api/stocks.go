package api

import (
	"context"
	"fmt"
	"iter"
	"net/url"
	"strings"
	"time"

	"github.com/rickgao/marketdata-sdk/internal/model"
	"github.com/rickgao/marketdata-sdk/internal/paging"
)

// DefaultPaginationTimeout bounds CollectTrades and CollectBars when ctx has
// no deadline.
const DefaultPaginationTimeout = 5 * time.Minute

// GetTrades fetches one page of trades.
func (c *Client) GetTrades(ctx context.Context, req TradesRequest) (paging.Page[model.Trade], error) {
	if req.Symbol == "" {
		return paging.Page[model.Trade]{}, fmt.Errorf("get trades: symbol is required")
	}

	query := url.Values{}
	setCommon(query, req.Start, req.End, c.limit(req.Limit), req.Feed, req.PageToken)

	var resp TradesResponse
	if err := c.get(ctx, "/v2/stocks/"+url.PathEscape(req.Symbol)+"/trades", query, &resp); err != nil {
		return paging.Page[model.Trade]{}, fmt.Errorf("get trades %s: %w", req.Symbol, err)
	}
	c.metrics.IncPage("trades")

	return paging.Page[model.Trade]{
		Items:         tradesToModel(req.Symbol, resp.Trades),
		NextPageToken: resp.NextPageToken,
	}, nil
}

// GetBars fetches one page of bars.
func (c *Client) GetBars(ctx context.Context, req BarsRequest) (paging.Page[model.Bar], error) {
	if req.Symbol == "" {
		return paging.Page[model.Bar]{}, fmt.Errorf("get bars: symbol is required")
	}
	query, err := c.barsQuery(req.TimeFrame, req.Start, req.End, req.Limit, req.Adjustment, req.Feed, req.PageToken)
	if err != nil {
		return paging.Page[model.Bar]{}, fmt.Errorf("get bars %s: %w", req.Symbol, err)
	}

	var resp BarsResponse
	if err := c.get(ctx, "/v2/stocks/"+url.PathEscape(req.Symbol)+"/bars", query, &resp); err != nil {
		return paging.Page[model.Bar]{}, fmt.Errorf("get bars %s: %w", req.Symbol, err)
	}
	c.metrics.IncPage("bars")

	return paging.Page[model.Bar]{
		Items:         barsToModel(req.Symbol, resp.Bars),
		NextPageToken: resp.NextPageToken,
	}, nil
}

// GetMultiBars fetches one page of bars for several symbols.
func (c *Client) GetMultiBars(ctx context.Context, req MultiBarsRequest) (paging.MultiPage[model.Bar], error) {
	if len(req.Symbols) == 0 {
		return paging.MultiPage[model.Bar]{}, fmt.Errorf("get multi bars: symbols are required")
	}
	query, err := c.barsQuery(req.TimeFrame, req.Start, req.End, req.Limit, req.Adjustment, req.Feed, req.PageToken)
	if err != nil {
		return paging.MultiPage[model.Bar]{}, fmt.Errorf("get multi bars: %w", err)
	}
	query.Set("symbols", strings.Join(req.Symbols, ","))

	var resp MultiBarsResponse
	if err := c.get(ctx, "/v2/stocks/bars", query, &resp); err != nil {
		return paging.MultiPage[model.Bar]{}, fmt.Errorf("get multi bars: %w", err)
	}
	c.metrics.IncPage("multi_bars")

	items := make(map[string][]model.Bar, len(resp.Bars))
	for symbol, bars := range resp.Bars {
		items[symbol] = barsToModel(symbol, bars)
	}
	return paging.MultiPage[model.Bar]{
		Items:         items,
		NextPageToken: resp.NextPageToken,
	}, nil
}

// ListTrades yields every trade matching req, fetching pages on demand.
func (c *Client) ListTrades(ctx context.Context, req TradesRequest) iter.Seq2[model.Trade, error] {
	return paging.Items(ctx, req, c.GetTrades)
}

// ListBars yields every bar matching req, fetching pages on demand.
func (c *Client) ListBars(ctx context.Context, req BarsRequest) iter.Seq2[model.Bar, error] {
	return paging.Items(ctx, req, c.GetBars)
}

// CollectTrades fetches every trade matching req.
func (c *Client) CollectTrades(ctx context.Context, req TradesRequest) ([]model.Trade, error) {
	ctx, cancel := withPaginationTimeout(ctx)
	defer cancel()
	return paging.Collect(ctx, req, c.GetTrades)
}

// CollectBars fetches every bar matching req.
func (c *Client) CollectBars(ctx context.Context, req BarsRequest) ([]model.Bar, error) {
	ctx, cancel := withPaginationTimeout(ctx)
	defer cancel()
	return paging.Collect(ctx, req, c.GetBars)
}

// StreamMultiBars walks a multi-symbol bars query in the background. Read
// each symbol from the result's queues; Wait returns the walk's error.
func (c *Client) StreamMultiBars(ctx context.Context, req MultiBarsRequest) *paging.FanOutResult[model.Bar] {
	return paging.FanOut(ctx, req, req.Symbols, c.GetMultiBars)
}

func (c *Client) barsQuery(tf TimeFrame, start, end time.Time, limit int, adj Adjustment, feed Feed, token string) (url.Values, error) {
	if tf == (TimeFrame{}) {
		tf = OneMin
	}
	if err := tf.Validate(); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("timeframe", tf.String())
	setCommon(query, start, end, c.limit(limit), feed, token)
	if adj != "" {
		query.Set("adjustment", string(adj))
	}
	return query, nil
}

func (c *Client) limit(n int) int {
	if n > 0 {
		return n
	}
	return c.pageLimit
}

func withPaginationTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, DefaultPaginationTimeout)
}
