package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/dhumphrey11/comoda-backfill/internal/domain"
	"github.com/dhumphrey11/comoda-backfill/internal/fetch"
)

const santimentEndpoint = "https://api.santiment.net/graphql"

// Santiment fetches daily sentiment and on-chain metrics over GraphQL.
// One Fetch yields two record families: sentiment metrics are consolidated
// into one SentimentScore per day, on-chain metrics map one point to one
// OnchainMetric row.
type Santiment struct {
	executor Executor
	apiKey   string
	endpoint string
}

// Sentiment-side metrics, consolidated by day.
var santimentSentimentMetrics = []string{
	"sentiment_volume_consumed_1d",
	"social_volume_total",
	"sentiment_balance_total",
}

// On-chain metrics, one canonical row per point.
var santimentOnchainMetrics = []string{
	"active_addresses_24h",
	"dev_activity",
	"transaction_volume",
}

// symbolToSlug maps common tickers onto Santiment project slugs; anything
// unmapped is lowercased and used as-is.
var symbolToSlug = map[string]string{
	"BTC": "bitcoin",
	"ETH": "ethereum",
}

// NewSantiment creates the Santiment GraphQL adapter.
func NewSantiment(executor Executor, apiKey string) *Santiment {
	return &Santiment{
		executor: executor,
		apiKey:   apiKey,
		endpoint: santimentEndpoint,
	}
}

// Compile-time interface check.
var _ Adapter = (*Santiment)(nil)

// Name returns the provider identity.
func (a *Santiment) Name() domain.Provider {
	return domain.ProviderSantiment
}

// Windows keeps the whole window as one work item per token; the metric
// loop lives inside Fetch.
func (a *Santiment) Windows(w DateWindow) []DateWindow {
	return singleWindow(w)
}

// Slug resolves a token to its Santiment project slug.
func (a *Santiment) Slug(token string) string {
	if slug, ok := symbolToSlug[strings.ToUpper(token)]; ok {
		return slug
	}
	return strings.ToLower(token)
}

type santimentPoint struct {
	Datetime string   `json:"datetime"`
	Value    *float64 `json:"value"`
}

type santimentResponse struct {
	Data struct {
		GetMetric struct {
			TimeseriesData []santimentPoint `json:"timeseriesData"`
		} `json:"getMetric"`
	} `json:"data"`
}

// Fetch retrieves all configured metrics for token over the window.
func (a *Santiment) Fetch(ctx context.Context, token string, w DateWindow) (*domain.Batch, error) {
	symbol := strings.ToUpper(token)
	slug := a.Slug(token)
	batch := domain.NewBatch(a.Name())

	// Sentiment metrics, consolidated by day.
	byDay := make(map[string]map[string]float64)
	for _, metric := range santimentSentimentMetrics {
		series, err := a.fetchMetric(ctx, slug, metric, w)
		if err != nil {
			return nil, err
		}
		for _, point := range series {
			day := strings.SplitN(point.Datetime, "T", 2)[0]
			if byDay[day] == nil {
				byDay[day] = make(map[string]float64)
			}
			if point.Value != nil {
				byDay[day][metric] = *point.Value
			}
		}
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	for _, day := range days {
		date, err := time.Parse("2006-01-02", day)
		if err != nil {
			continue
		}
		score := byDay[day]["sentiment_balance_total"]
		batch.SentimentScores = append(batch.SentimentScores, &domain.SentimentScore{
			Token:          symbol,
			Date:           date,
			SentimentScore: score,
			PositiveCount:  positiveFromBalance(score),
			NegativeCount:  negativeFromBalance(score),
			NeutralCount:   0,
			Source:         a.Name(),
		})
	}

	// On-chain metrics.
	for _, metric := range santimentOnchainMetrics {
		series, err := a.fetchMetric(ctx, slug, metric, w)
		if err != nil {
			return nil, err
		}
		for _, point := range series {
			day := strings.SplitN(point.Datetime, "T", 2)[0]
			date, err := time.Parse("2006-01-02", day)
			if err != nil {
				continue
			}
			value := 0.0
			if point.Value != nil {
				value = *point.Value
			}
			batch.OnchainMetrics = append(batch.OnchainMetrics, &domain.OnchainMetric{
				Token:       symbol,
				Date:        date,
				MetricName:  metric,
				MetricValue: value,
				Source:      a.Name(),
			})
		}
	}

	return batch, nil
}

// fetchMetric runs one getMetric timeseries query.
func (a *Santiment) fetchMetric(ctx context.Context, slug, metric string, w DateWindow) ([]santimentPoint, error) {
	query := fmt.Sprintf(`
		query($slug: String!, $from: DateTime!, $to: DateTime!, $interval: String!) {
			getMetric(metric: %q) {
				timeseriesData(slug: $slug, from: $from, to: $to, interval: $interval) {
					datetime
					value
				}
			}
		}`, metric)

	req := &fetch.Request{
		Method: "POST",
		URL:    a.endpoint,
		Headers: map[string]string{
			"Authorization": "Bearer " + a.apiKey,
		},
		Body: map[string]any{
			"query": query,
			"variables": map[string]string{
				"slug":     slug,
				"from":     w.Start.Format("2006-01-02") + "T00:00:00Z",
				"to":       w.End.Format("2006-01-02") + "T00:00:00Z",
				"interval": "1d",
			},
		},
	}

	resp, err := a.executor.Execute(ctx, req)
	if err != nil {
		return nil, err
	}

	var payload santimentResponse
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return nil, &fetch.Failure{
			Provider: a.Name(),
			URL:      a.endpoint,
			Err:      fmt.Errorf("decode getMetric %s: %w", metric, err),
		}
	}
	return payload.Data.GetMetric.TimeseriesData, nil
}

// positiveFromBalance derives a positive mention count from the signed
// sentiment balance: the positive half of the signal, never below zero.
func positiveFromBalance(score float64) int {
	n := int(math.Round((score + math.Abs(score)) / 2))
	if n < 0 {
		return 0
	}
	return n
}

// negativeFromBalance mirrors positiveFromBalance for the negative half.
func negativeFromBalance(score float64) int {
	n := int(math.Round((math.Abs(score) - score) / 2))
	if n < 0 {
		return 0
	}
	return n
}
