package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dhumphrey11/comoda-backfill/internal/domain"
	"github.com/dhumphrey11/comoda-backfill/internal/fetch"
)

const yahooBase = "https://query1.finance.yahoo.com/v8/finance/chart"

// Yahoo fetches daily macro bars from the Yahoo Finance chart endpoint,
// one windowed call per symbol. The endpoint is unauthenticated and
// reports gaps as nulls, which stay nullable in the canonical record.
type Yahoo struct {
	executor Executor
	baseURL  string
}

// NewYahoo creates the Yahoo Finance macro adapter.
func NewYahoo(executor Executor) *Yahoo {
	return &Yahoo{executor: executor, baseURL: yahooBase}
}

// Compile-time interface check.
var _ Adapter = (*Yahoo)(nil)

// Name returns the provider identity.
func (a *Yahoo) Name() domain.Provider {
	return domain.ProviderYahoo
}

// Windows keeps the whole window as one work item per symbol.
func (a *Yahoo) Windows(w DateWindow) []DateWindow {
	return singleWindow(w)
}

type yahooChartResponse struct {
	Chart struct {
		Result []yahooChartResult `json:"result"`
	} `json:"chart"`
}

type yahooChartResult struct {
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []yahooQuote `json:"quote"`
	} `json:"indicators"`
}

type yahooQuote struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}

// Fetch retrieves the daily series for a macro symbol over the window.
// Macro symbols (^GSPC, DX-Y.NYB) are case-significant and passed through
// without token normalization.
func (a *Yahoo) Fetch(ctx context.Context, symbol string, w DateWindow) (*domain.Batch, error) {
	req := &fetch.Request{
		URL: fmt.Sprintf("%s/%s", a.baseURL, symbol),
		Query: map[string]string{
			"period1":  fmt.Sprintf("%d", w.Start.Unix()),
			"period2":  fmt.Sprintf("%d", w.End.AddDate(0, 0, 1).Unix()),
			"interval": "1d",
		},
	}

	resp, err := a.executor.Execute(ctx, req)
	if err != nil {
		return nil, err
	}

	var payload yahooChartResponse
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return nil, &fetch.Failure{
			Provider: a.Name(),
			URL:      req.URL,
			Err:      fmt.Errorf("decode chart response: %w", err),
		}
	}

	batch := domain.NewBatch(a.Name())
	if len(payload.Chart.Result) == 0 {
		return batch, nil
	}

	result := payload.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return batch, nil
	}
	quote := result.Indicators.Quote[0]

	for i, ts := range result.Timestamp {
		batch.MacroBars = append(batch.MacroBars, &domain.MacroBar{
			Symbol: symbol,
			Date:   domain.Day(time.Unix(ts, 0)),
			Open:   at(quote.Open, i),
			High:   at(quote.High, i),
			Low:    at(quote.Low, i),
			Close:  at(quote.Close, i),
			Volume: at(quote.Volume, i),
			Value:  nil,
		})
	}
	return batch, nil
}

// at indexes a parallel series; the chart endpoint sometimes returns
// quote arrays shorter than the timestamp array.
func at[T any](series []*T, i int) *T {
	if i >= len(series) {
		return nil
	}
	return series[i]
}
