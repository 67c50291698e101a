package api

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rickgao/marketdata-sdk/internal/model"
)

// TimeFrameUnit is the unit of a bar interval.
type TimeFrameUnit string

const (
	Min   TimeFrameUnit = "Min"
	Hour  TimeFrameUnit = "Hour"
	Day   TimeFrameUnit = "Day"
	Week  TimeFrameUnit = "Week"
	Month TimeFrameUnit = "Month"
)

// TimeFrame is a bar interval such as 5Min or 1Day.
type TimeFrame struct {
	N    int
	Unit TimeFrameUnit
}

// Common time frames.
var (
	OneMin  = TimeFrame{1, Min}
	OneHour = TimeFrame{1, Hour}
	OneDay  = TimeFrame{1, Day}
)

func (tf TimeFrame) String() string {
	return strconv.Itoa(tf.N) + string(tf.Unit)
}

// Validate checks the amount is allowed for the unit.
func (tf TimeFrame) Validate() error {
	limit := 0
	switch tf.Unit {
	case Min:
		limit = 59
	case Hour:
		limit = 23
	case Day, Week:
		limit = 1
	case Month:
		limit = 12
	default:
		return fmt.Errorf("invalid time frame unit %q", tf.Unit)
	}
	if tf.N < 1 || tf.N > limit {
		return fmt.Errorf("invalid time frame %s: amount must be 1-%d", tf, limit)
	}
	return nil
}

// ParseTimeFrame parses strings such as "15Min" or "1Day".
func ParseTimeFrame(s string) (TimeFrame, error) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return TimeFrame{}, fmt.Errorf("invalid time frame %q", s)
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil {
		return TimeFrame{}, fmt.Errorf("invalid time frame %q: %w", s, err)
	}
	tf := TimeFrame{N: n, Unit: TimeFrameUnit(s[i:])}
	if err := tf.Validate(); err != nil {
		return TimeFrame{}, err
	}
	return tf, nil
}

// FormatTime renders t for query parameters. The zero time renders empty.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// setCommon adds the query parameters shared by every historical endpoint.
func setCommon(query url.Values, start, end time.Time, limit int, feed Feed, token string) {
	if s := FormatTime(start); s != "" {
		query.Set("start", s)
	}
	if s := FormatTime(end); s != "" {
		query.Set("end", s)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if feed != "" {
		query.Set("feed", string(feed))
	}
	if token != "" {
		query.Set("page_token", token)
	}
}

// ToModel converts an APITrade to model.Trade.
func (t APITrade) ToModel(symbol string) model.Trade {
	return model.Trade{
		Symbol:     symbol,
		ID:         t.ID,
		Exchange:   t.Exchange,
		Price:      t.Price,
		Size:       t.Size,
		Conditions: t.Conditions,
		Tape:       t.Tape,
		Timestamp:  t.Timestamp.UTC(),
	}
}

// ToModel converts an APIBar to model.Bar.
func (b APIBar) ToModel(symbol string) model.Bar {
	return model.Bar{
		Symbol:     symbol,
		Open:       b.Open,
		High:       b.High,
		Low:        b.Low,
		Close:      b.Close,
		Volume:     b.Volume,
		TradeCount: b.TradeCount,
		VWAP:       b.VWAP,
		Timestamp:  b.Timestamp.UTC(),
	}
}

func tradesToModel(symbol string, in []APITrade) []model.Trade {
	out := make([]model.Trade, len(in))
	for i, t := range in {
		out[i] = t.ToModel(symbol)
	}
	return out
}

func barsToModel(symbol string, in []APIBar) []model.Bar {
	out := make([]model.Bar, len(in))
	for i, b := range in {
		out[i] = b.ToModel(symbol)
	}
	return out
}
