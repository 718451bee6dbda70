package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhumphrey11/comoda-backfill/internal/domain"
	"github.com/dhumphrey11/comoda-backfill/internal/fetch"
)

func TestCoinAPI_SymbolID(t *testing.T) {
	a := NewCoinAPI(&fakeExecutor{}, "key")

	assert.Equal(t, "BITSTAMP_SPOT_BTC_USD", a.symbolID("btc"))
	assert.Equal(t, "BITSTAMP_SPOT_ETH_USD", a.symbolID("ETH"))
}

func TestCoinAPI_WindowsAreDaily(t *testing.T) {
	a := NewCoinAPI(&fakeExecutor{}, "key")

	windows := a.Windows(window(t, "2024-03-01", "2024-03-05"))
	assert.Len(t, windows, 5)
}

func TestCoinAPI_Fetch(t *testing.T) {
	executor := &fakeExecutor{responses: []*fetch.Response{jsonResponse(
		`[{"price_open":100.5,"price_high":110.0,"price_low":99.0,"price_close":105.25,"volume_traded":1234.5}]`,
	)}}
	a := NewCoinAPI(executor, "key")

	batch, err := a.Fetch(context.Background(), "BTC", window(t, "2024-03-01", "2024-03-01"))
	require.NoError(t, err)

	require.Len(t, batch.PriceBars, 1)
	bar := batch.PriceBars[0]
	assert.Equal(t, "BTC", bar.Token)
	assert.Equal(t, day("2024-03-01"), bar.Date)
	assert.Equal(t, 100.5, bar.Open)
	assert.Equal(t, 110.0, bar.High)
	assert.Equal(t, 99.0, bar.Low)
	assert.Equal(t, 105.25, bar.Close)
	assert.Equal(t, 1234.5, bar.Volume)
	assert.Equal(t, domain.ProviderCoinAPI, bar.Source)

	require.Len(t, executor.requests, 1)
	req := executor.requests[0]
	assert.Contains(t, req.URL, "BITSTAMP_SPOT_BTC_USD")
	assert.Equal(t, "key", req.Headers["X-CoinAPI-Key"])
	assert.Equal(t, "1DAY", req.Query["period_id"])
	assert.Equal(t, "1", req.Query["limit"])
	assert.Equal(t, "2024-03-01T00:00:00", req.Query["time_start"])
	assert.Equal(t, "2024-03-02T00:00:00", req.Query["time_end"])
}

func TestCoinAPI_Fetch_MissingFieldsDefaultToZero(t *testing.T) {
	executor := &fakeExecutor{responses: []*fetch.Response{jsonResponse(
		`[{"price_close":42.0}]`,
	)}}
	a := NewCoinAPI(executor, "key")

	batch, err := a.Fetch(context.Background(), "SOL", window(t, "2024-03-01", "2024-03-01"))
	require.NoError(t, err)

	require.Len(t, batch.PriceBars, 1)
	bar := batch.PriceBars[0]
	assert.Zero(t, bar.Open)
	assert.Zero(t, bar.Volume)
	assert.Equal(t, 42.0, bar.Close)
}

func TestCoinAPI_Fetch_EmptyResponse(t *testing.T) {
	executor := &fakeExecutor{responses: []*fetch.Response{jsonResponse(`[]`)}}
	a := NewCoinAPI(executor, "key")

	batch, err := a.Fetch(context.Background(), "BTC", window(t, "2024-03-01", "2024-03-01"))
	require.NoError(t, err)
	assert.Zero(t, batch.Len())
}

func TestCoinAPI_Fetch_MalformedResponse(t *testing.T) {
	executor := &fakeExecutor{responses: []*fetch.Response{jsonResponse(`not json`)}}
	a := NewCoinAPI(executor, "key")

	_, err := a.Fetch(context.Background(), "BTC", window(t, "2024-03-01", "2024-03-01"))
	require.Error(t, err)

	var failure *fetch.Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, domain.ProviderCoinAPI, failure.Provider)
}
