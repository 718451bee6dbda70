package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dhumphrey11/comoda-backfill/internal/domain"
	"github.com/dhumphrey11/comoda-backfill/internal/fetch"
)

const coinAPIBase = "https://rest.coinapi.io/v1"

// CoinAPI fetches daily OHLCV bars, one request per token-day.
type CoinAPI struct {
	executor Executor
	apiKey   string
	baseURL  string
	exchange string
	quote    string
}

// NewCoinAPI creates the CoinAPI price adapter.
func NewCoinAPI(executor Executor, apiKey string) *CoinAPI {
	return &CoinAPI{
		executor: executor,
		apiKey:   apiKey,
		baseURL:  coinAPIBase,
		exchange: "BITSTAMP",
		quote:    "USD",
	}
}

// Compile-time interface check.
var _ Adapter = (*CoinAPI)(nil)

// Name returns the provider identity.
func (a *CoinAPI) Name() domain.Provider {
	return domain.ProviderCoinAPI
}

// Windows partitions into one-day work items: the history endpoint is
// queried one day at a time.
func (a *CoinAPI) Windows(w DateWindow) []DateWindow {
	return dailyWindows(w)
}

// symbolID maps a plain ticker onto an exchange-qualified instrument id.
func (a *CoinAPI) symbolID(token string) string {
	return fmt.Sprintf("%s_SPOT_%s_%s", a.exchange, strings.ToUpper(token), a.quote)
}

// coinAPIBar is one element of the OHLCV history response.
type coinAPIBar struct {
	PriceOpen    float64 `json:"price_open"`
	PriceHigh    float64 `json:"price_high"`
	PriceLow     float64 `json:"price_low"`
	PriceClose   float64 `json:"price_close"`
	VolumeTraded float64 `json:"volume_traded"`
}

// Fetch retrieves the single daily bar for token on the work-item day.
func (a *CoinAPI) Fetch(ctx context.Context, token string, w DateWindow) (*domain.Batch, error) {
	day := w.Start
	req := &fetch.Request{
		URL: fmt.Sprintf("%s/ohlcv/%s/history", a.baseURL, a.symbolID(token)),
		Query: map[string]string{
			"period_id":  "1DAY",
			"time_start": day.Format("2006-01-02T15:04:05"),
			"time_end":   day.AddDate(0, 0, 1).Format("2006-01-02T15:04:05"),
			"limit":      "1",
		},
		Headers: map[string]string{"X-CoinAPI-Key": a.apiKey},
	}

	resp, err := a.executor.Execute(ctx, req)
	if err != nil {
		return nil, err
	}

	var bars []coinAPIBar
	if err := json.Unmarshal(resp.Body, &bars); err != nil {
		return nil, &fetch.Failure{
			Provider: a.Name(),
			URL:      req.URL,
			Err:      fmt.Errorf("decode ohlcv response: %w", err),
		}
	}

	batch := domain.NewBatch(a.Name())
	if len(bars) == 0 {
		return batch, nil
	}

	bar := bars[0]
	batch.PriceBars = append(batch.PriceBars, &domain.PriceBar{
		Token:  strings.ToUpper(token),
		Date:   day,
		Open:   bar.PriceOpen,
		High:   bar.PriceHigh,
		Low:    bar.PriceLow,
		Close:  bar.PriceClose,
		Volume: bar.VolumeTraded,
		Source: a.Name(),
	})
	return batch, nil
}
