package alpaca

import (
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/marketdata-sdk/internal/auth"
	"github.com/rickgao/marketdata-sdk/internal/model"
	"github.com/rickgao/marketdata-sdk/internal/stream"
)

func testProtocol() *protocol {
	return newProtocol(&auth.Credentials{KeyID: "key", SecretKey: "secret"}, slog.Default())
}

func TestProtocol_AuthRequest(t *testing.T) {
	frame, err := testProtocol().AuthRequest()
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"auth","key":"key","secret":"secret"}`, string(frame))

	_, err = newProtocol(nil, slog.Default()).AuthRequest()
	assert.ErrorIs(t, err, auth.ErrMissingCredentials)
}

func TestProtocol_Control(t *testing.T) {
	tests := []struct {
		name     string
		frame    string
		want     stream.AuthStatus
		wantErr  int
		controls int
	}{
		{"greeting", `[{"T":"success","msg":"connected"}]`, stream.AuthUnknown, 0, 0},
		{"authenticated", `[{"T":"success","msg":"authenticated"}]`, stream.AuthAuthorized, 0, 1},
		{"auth failed", `[{"T":"error","code":402,"msg":"auth failed"}]`, stream.AuthUnauthorized, 0, 1},
		{"not authenticated", `[{"T":"error","code":401,"msg":"not authenticated"}]`, stream.AuthUnauthorized, 0, 1},
		{"auth timeout", `[{"T":"error","code":404,"msg":"auth timeout"}]`, stream.AuthUnauthorized, 0, 1},
		{"connection limit", `[{"T":"error","code":406,"msg":"connection limit exceeded"}]`, stream.AuthTooManyConnections, 0, 1},
		{"already authenticated", `[{"T":"error","code":403,"msg":"already authenticated"}]`, stream.AuthAuthorized, 0, 1},
		{"symbol limit", `[{"T":"error","code":405,"msg":"symbol limit exceeded"}]`, stream.AuthUnknown, 405, 1},
		{"subscription ack", `[{"T":"subscription","trades":["AAPL"],"quotes":[],"bars":[]}]`, stream.AuthUnknown, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			controls, err := testProtocol().Handle([]byte(tt.frame), time.Now())
			require.NoError(t, err)
			require.Len(t, controls, tt.controls)
			if tt.controls == 0 {
				return
			}
			assert.Equal(t, tt.want, controls[0].Auth)
			if tt.wantErr != 0 {
				var se *ServerError
				require.ErrorAs(t, controls[0].Err, &se)
				assert.Equal(t, tt.wantErr, se.Code)
			} else {
				assert.NoError(t, controls[0].Err)
			}
		})
	}
}

func TestProtocol_DeliversData(t *testing.T) {
	p := testProtocol()
	trades := NewTradeSubscription("aapl")
	quotes := NewQuoteSubscription(Wildcard)
	bars := NewBarSubscription("MSFT")
	p.track([]Subscription{trades, quotes, bars})

	var gotTrades []model.Trade
	var gotQuotes []model.Quote
	var gotBars []model.Bar
	trades.Received().Add(func(tr model.Trade) { gotTrades = append(gotTrades, tr) })
	quotes.Received().Add(func(q model.Quote) { gotQuotes = append(gotQuotes, q) })
	bars.Received().Add(func(b model.Bar) { gotBars = append(gotBars, b) })

	frame := `[
		{"T":"t","S":"AAPL","i":96921,"x":"D","p":189.12,"s":100,"c":["@"],"z":"C","t":"2024-01-02T15:04:05.123456789Z"},
		{"T":"t","S":"TSLA","i":1,"x":"V","p":250,"s":5,"t":"2024-01-02T15:04:05Z"},
		{"T":"q","S":"TSLA","bx":"V","bp":249.98,"bs":2,"ax":"V","ap":250.02,"as":3,"c":["R"],"z":"C","t":"2024-01-02T15:04:05Z"},
		{"T":"b","S":"MSFT","o":410.5,"h":412,"l":409.25,"c":411,"v":12000,"n":310,"vw":410.87,"t":"2024-01-02T15:04:00Z"}
	]`
	receivedAt := time.Now()
	controls, err := p.Handle([]byte(frame), receivedAt)
	require.NoError(t, err)
	assert.Empty(t, controls)

	require.Len(t, gotTrades, 1)
	tr := gotTrades[0]
	assert.Equal(t, "AAPL", tr.Symbol)
	assert.Equal(t, int64(96921), tr.ID)
	assert.True(t, tr.Price.Equal(decimal.RequireFromString("189.12")))
	assert.Equal(t, int64(100), tr.Size)
	assert.Equal(t, []string{"@"}, tr.Conditions)
	assert.Equal(t, time.Date(2024, 1, 2, 15, 4, 5, 123456789, time.UTC), tr.Timestamp)
	assert.Equal(t, receivedAt, tr.ReceivedAt)

	require.Len(t, gotQuotes, 1)
	assert.Equal(t, "TSLA", gotQuotes[0].Symbol)
	assert.True(t, gotQuotes[0].Spread().Equal(decimal.RequireFromString("0.04")))
	assert.Equal(t, int64(3), gotQuotes[0].AskSize)

	require.Len(t, gotBars, 1)
	assert.True(t, gotBars[0].Close.Equal(decimal.NewFromInt(411)))
	assert.Equal(t, int64(310), gotBars[0].TradeCount)
}

func TestProtocol_UntrackStopsDelivery(t *testing.T) {
	p := testProtocol()
	trades := NewTradeSubscription("AAPL")
	p.track([]Subscription{trades})
	p.untrack([]Subscription{trades})

	calls := 0
	trades.Received().Add(func(model.Trade) { calls++ })

	_, err := p.Handle([]byte(`[{"T":"t","S":"AAPL","p":1,"s":1,"t":"2024-01-02T15:04:05Z"}]`), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, calls)
}

func TestProtocol_DecodeErrors(t *testing.T) {
	p := testProtocol()

	_, err := p.Handle([]byte(`{"T":"success"}`), time.Now())
	assert.Error(t, err)

	// A bad message does not hide the good ones around it.
	controls, err := p.Handle([]byte(`[{"T":"t","p":"x"},{"T":"success","msg":"authenticated"}]`), time.Now())
	assert.Error(t, err)
	require.Len(t, controls, 1)
	assert.Equal(t, stream.AuthAuthorized, controls[0].Auth)

	controls, err = p.Handle([]byte(`[{"T":"n","S":"AAPL"}]`), time.Now())
	assert.NoError(t, err)
	assert.Empty(t, controls)
}

func TestBuildRequest(t *testing.T) {
	req := buildRequest("subscribe", []Subscription{
		NewTradeSubscription("AAPL"),
		NewQuoteSubscription("AAPL"),
		NewTradeSubscription("MSFT"),
		NewBarSubscription("SPY"),
	})
	data, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"subscribe","trades":["AAPL","MSFT"],"quotes":["AAPL"],"bars":["SPY"]}`, string(data))

	data, err = json.Marshal(buildRequest("unsubscribe", []Subscription{NewQuoteSubscription("IBM")}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"unsubscribe","quotes":["IBM"]}`, string(data))
}
