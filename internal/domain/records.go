package domain

import "time"

// PriceBar represents one daily OHLCV bar for a token.
// Corresponds to the price_bars table.
type PriceBar struct {
	Token     string    // uppercase token symbol
	Date      time.Time // UTC calendar day (midnight)
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Source    Provider
	FetchedAt time.Time // stamped by the coordinator at accumulation
	RunID     string    // stamped by the coordinator before persistence
}

// NewsEvent represents one news item tied to a token and day.
// Corresponds to the news_events table.
type NewsEvent struct {
	Token          string
	Date           time.Time
	Title          string
	Description    string
	Source         string // publishing outlet, not the API provider
	SentimentScore float64
	URL            string
	FetchedAt      time.Time
	RunID          string
}

// SentimentScore represents one day of aggregated social sentiment.
// Corresponds to the sentiment_scores table.
type SentimentScore struct {
	Token          string
	Date           time.Time
	SentimentScore float64
	PositiveCount  int
	NegativeCount  int
	NeutralCount   int
	Source         Provider
	FetchedAt      time.Time
	RunID          string
}

// OnchainMetric represents one (token, day, metric) observation.
// Corresponds to the onchain_metrics table.
type OnchainMetric struct {
	Token       string
	Date        time.Time
	MetricName  string
	MetricValue float64
	Source      Provider
	FetchedAt   time.Time
	RunID       string
}

// MacroBar represents one daily bar of a macro index or instrument.
// All observation fields are nullable; providers legitimately omit them.
// Corresponds to the macro_bars table.
type MacroBar struct {
	Symbol    string
	Date      time.Time
	Open      *float64
	High      *float64
	Low       *float64
	Close     *float64
	Volume    *int64
	Value     *float64
	FetchedAt time.Time
	RunID     string
}

// Day normalizes a timestamp to UTC day granularity. Sub-day precision
// from providers is discarded at the adapter boundary.
func Day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
