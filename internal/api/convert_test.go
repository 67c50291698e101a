package api

import (
	"net/url"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTimeFrame(t *testing.T) {
	tests := []struct {
		tf      TimeFrame
		str     string
		wantErr bool
	}{
		{OneMin, "1Min", false},
		{TimeFrame{15, Min}, "15Min", false},
		{TimeFrame{60, Min}, "60Min", true},
		{OneHour, "1Hour", false},
		{TimeFrame{24, Hour}, "24Hour", true},
		{OneDay, "1Day", false},
		{TimeFrame{2, Day}, "2Day", true},
		{TimeFrame{1, Week}, "1Week", false},
		{TimeFrame{12, Month}, "12Month", false},
		{TimeFrame{0, Month}, "0Month", true},
		{TimeFrame{1, "Year"}, "1Year", true},
	}

	for _, tt := range tests {
		t.Run(tt.str, func(t *testing.T) {
			assert.Equal(t, tt.str, tt.tf.String())
			if tt.wantErr {
				assert.Error(t, tt.tf.Validate())
			} else {
				assert.NoError(t, tt.tf.Validate())
			}
		})
	}
}

func TestParseTimeFrame(t *testing.T) {
	tf, err := ParseTimeFrame("15Min")
	assert.NoError(t, err)
	assert.Equal(t, TimeFrame{15, Min}, tf)

	tf, err = ParseTimeFrame("1Day")
	assert.NoError(t, err)
	assert.Equal(t, OneDay, tf)

	for _, s := range []string{"", "Min", "5", "90Min", "1Year"} {
		_, err := ParseTimeFrame(s)
		assert.Error(t, err, s)
	}
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "", FormatTime(time.Time{}))
	ny := time.FixedZone("EDT", -4*3600)
	assert.Equal(t, "2024-06-03T13:30:00Z", FormatTime(time.Date(2024, 6, 3, 9, 30, 0, 0, ny)))
	assert.Equal(t, "2024-06-03T13:30:00.5Z", FormatTime(time.Date(2024, 6, 3, 13, 30, 0, 500000000, time.UTC)))
}

func TestSetCommon(t *testing.T) {
	q := url.Values{}
	setCommon(q, time.Time{}, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 0, "", "")
	assert.Equal(t, url.Values{"end": {"2024-01-01T00:00:00Z"}}, q)
}

func TestAPITrade_ToModel(t *testing.T) {
	ts := time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC)
	tr := APITrade{
		Timestamp: ts,
		Exchange:  "V",
		Price:     decimal.RequireFromString("187.15"),
		Size:      50,
		ID:        7,
		Tape:      "C",
	}.ToModel("AAPL")

	assert.Equal(t, "AAPL", tr.Symbol)
	assert.Equal(t, int64(7), tr.ID)
	assert.Equal(t, "V", tr.Exchange)
	assert.Equal(t, ts, tr.Timestamp)
	assert.True(t, tr.ReceivedAt.IsZero())
}

func TestAPIBar_ToModel(t *testing.T) {
	b := APIBar{
		Open:  decimal.NewFromInt(10),
		High:  decimal.NewFromInt(12),
		Low:   decimal.NewFromInt(9),
		Close: decimal.NewFromInt(11),
		VWAP:  decimal.RequireFromString("10.5"),
	}.ToModel("SPY")

	assert.Equal(t, "SPY", b.Symbol)
	assert.True(t, b.Range().Equal(decimal.NewFromInt(3)))
	assert.Equal(t, "10.5", b.VWAP.String())
}
