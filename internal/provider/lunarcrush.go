package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dhumphrey11/comoda-backfill/internal/domain"
	"github.com/dhumphrey11/comoda-backfill/internal/fetch"
)

const lunarCrushBase = "https://lunarcrush.com/api3"

// LunarCrush fetches daily social sentiment and engagement timeseries,
// one windowed call per token. Response keys vary by subscription tier,
// so every field is extracted with a fallback chain.
type LunarCrush struct {
	executor Executor
	apiKey   string
	baseURL  string
}

// NewLunarCrush creates the LunarCrush sentiment adapter.
func NewLunarCrush(executor Executor, apiKey string) *LunarCrush {
	return &LunarCrush{
		executor: executor,
		apiKey:   apiKey,
		baseURL:  lunarCrushBase,
	}
}

// Compile-time interface check.
var _ Adapter = (*LunarCrush)(nil)

// Name returns the provider identity.
func (a *LunarCrush) Name() domain.Provider {
	return domain.ProviderLunarCrush
}

// Windows keeps the whole window as one work item per token.
func (a *LunarCrush) Windows(w DateWindow) []DateWindow {
	return singleWindow(w)
}

type lunarCrushResponse struct {
	Data []lunarCrushAsset `json:"data"`
}

type lunarCrushAsset struct {
	TimeSeries      []lunarCrushPoint `json:"timeSeries"`
	TimeSeriesSnake []lunarCrushPoint `json:"time_series"`
}

type lunarCrushPoint struct {
	Time           *int64   `json:"time"`
	Timestamp      *int64   `json:"timestamp"`
	GalaxyScore    *float64 `json:"galaxy_score"`
	Sentiment      *float64 `json:"sentiment"`
	SocialBullish  *float64 `json:"social_bullish"`
	SocialPositive *float64 `json:"social_positive"`
	SocialBearish  *float64 `json:"social_bearish"`
	SocialNegative *float64 `json:"social_negative"`
	SocialVolume   *float64 `json:"social_volume"`
}

// Fetch retrieves the daily sentiment series for token over the window.
func (a *LunarCrush) Fetch(ctx context.Context, token string, w DateWindow) (*domain.Batch, error) {
	symbol := strings.ToUpper(token)
	req := &fetch.Request{
		URL: a.baseURL + "/assets",
		Query: map[string]string{
			"symbol":      symbol,
			"interval":    "day",
			"data_points": "1000",
			"start_time":  w.Start.Format("2006-01-02") + "T00:00:00Z",
			"end_time":    w.End.Format("2006-01-02") + "T00:00:00Z",
			"key":         a.apiKey,
		},
	}

	resp, err := a.executor.Execute(ctx, req)
	if err != nil {
		return nil, err
	}

	var payload lunarCrushResponse
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return nil, &fetch.Failure{
			Provider: a.Name(),
			URL:      req.URL,
			Err:      fmt.Errorf("decode assets response: %w", err),
		}
	}

	batch := domain.NewBatch(a.Name())
	for _, asset := range payload.Data {
		series := asset.TimeSeries
		if len(series) == 0 {
			series = asset.TimeSeriesSnake
		}
		for _, point := range series {
			batch.SentimentScores = append(batch.SentimentScores, a.normalizePoint(symbol, point))
		}
	}
	return batch, nil
}

// normalizePoint maps one timeseries point into a SentimentScore, trying
// the common key names in tier order and defaulting absent values to zero.
func (a *LunarCrush) normalizePoint(symbol string, p lunarCrushPoint) *domain.SentimentScore {
	epoch := firstInt64(p.Time, p.Timestamp)
	score := firstFloat(p.GalaxyScore, p.Sentiment)
	pos := int(firstFloat(p.SocialBullish, p.SocialPositive))
	neg := int(firstFloat(p.SocialBearish, p.SocialNegative))
	neu := int(firstFloat(p.SocialVolume)) - pos - neg
	if neu < 0 {
		neu = 0
	}

	return &domain.SentimentScore{
		Token:          symbol,
		Date:           domain.Day(time.Unix(epoch, 0)),
		SentimentScore: score,
		PositiveCount:  pos,
		NegativeCount:  neg,
		NeutralCount:   neu,
		Source:         a.Name(),
	}
}

func firstInt64(values ...*int64) int64 {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return 0
}

func firstFloat(values ...*float64) float64 {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return 0.0
}
