package export

import (
	"strconv"
	"time"

	"github.com/dhumphrey11/comoda-backfill/internal/domain"
)

// Flat row shapes for the snapshot files. Field order defines the CSV
// column order; parquet tags define the columnar schema. Dates are
// serialized as calendar days, capture timestamps as RFC 3339.

const dayFormat = "2006-01-02"

// PriceBarRow is the export shape of domain.PriceBar.
type PriceBarRow struct {
	TokenSymbol      string  `parquet:"token_symbol"`
	Date             string  `parquet:"date"`
	OpenPrice        float64 `parquet:"open_price"`
	HighPrice        float64 `parquet:"high_price"`
	LowPrice         float64 `parquet:"low_price"`
	ClosePrice       float64 `parquet:"close_price"`
	Volume           float64 `parquet:"volume"`
	SourceAPI        string  `parquet:"source_api"`
	TimestampFetched string  `parquet:"timestamp_fetched"`
	BackfillRunID    string  `parquet:"backfill_run_id"`
}

func priceBarRow(b *domain.PriceBar) PriceBarRow {
	return PriceBarRow{
		TokenSymbol:      b.Token,
		Date:             b.Date.Format(dayFormat),
		OpenPrice:        b.Open,
		HighPrice:        b.High,
		LowPrice:         b.Low,
		ClosePrice:       b.Close,
		Volume:           b.Volume,
		SourceAPI:        b.Source.String(),
		TimestampFetched: b.FetchedAt.UTC().Format(time.RFC3339),
		BackfillRunID:    b.RunID,
	}
}

var priceBarHeader = []string{
	"token_symbol", "date", "open_price", "high_price", "low_price",
	"close_price", "volume", "source_api", "timestamp_fetched", "backfill_run_id",
}

func (r PriceBarRow) record() []string {
	return []string{
		r.TokenSymbol, r.Date,
		formatFloat(r.OpenPrice), formatFloat(r.HighPrice), formatFloat(r.LowPrice),
		formatFloat(r.ClosePrice), formatFloat(r.Volume),
		r.SourceAPI, r.TimestampFetched, r.BackfillRunID,
	}
}

// NewsEventRow is the export shape of domain.NewsEvent.
type NewsEventRow struct {
	TokenSymbol      string  `parquet:"token_symbol"`
	Date             string  `parquet:"date"`
	Title            string  `parquet:"title"`
	Description      string  `parquet:"description"`
	Source           string  `parquet:"source"`
	SentimentScore   float64 `parquet:"sentiment_score"`
	URL              string  `parquet:"url"`
	TimestampFetched string  `parquet:"timestamp_fetched"`
	BackfillRunID    string  `parquet:"backfill_run_id"`
}

func newsEventRow(e *domain.NewsEvent) NewsEventRow {
	return NewsEventRow{
		TokenSymbol:      e.Token,
		Date:             e.Date.Format(dayFormat),
		Title:            e.Title,
		Description:      e.Description,
		Source:           e.Source,
		SentimentScore:   e.SentimentScore,
		URL:              e.URL,
		TimestampFetched: e.FetchedAt.UTC().Format(time.RFC3339),
		BackfillRunID:    e.RunID,
	}
}

var newsEventHeader = []string{
	"token_symbol", "date", "title", "description", "source",
	"sentiment_score", "url", "timestamp_fetched", "backfill_run_id",
}

func (r NewsEventRow) record() []string {
	return []string{
		r.TokenSymbol, r.Date, r.Title, r.Description, r.Source,
		formatFloat(r.SentimentScore), r.URL, r.TimestampFetched, r.BackfillRunID,
	}
}

// SentimentScoreRow is the export shape of domain.SentimentScore.
type SentimentScoreRow struct {
	TokenSymbol      string  `parquet:"token_symbol"`
	Date             string  `parquet:"date"`
	SentimentScore   float64 `parquet:"sentiment_score"`
	PositiveMentions int32   `parquet:"positive_mentions"`
	NegativeMentions int32   `parquet:"negative_mentions"`
	NeutralMentions  int32   `parquet:"neutral_mentions"`
	SourceAPI        string  `parquet:"source_api"`
	TimestampFetched string  `parquet:"timestamp_fetched"`
	BackfillRunID    string  `parquet:"backfill_run_id"`
}

func sentimentScoreRow(s *domain.SentimentScore) SentimentScoreRow {
	return SentimentScoreRow{
		TokenSymbol:      s.Token,
		Date:             s.Date.Format(dayFormat),
		SentimentScore:   s.SentimentScore,
		PositiveMentions: int32(s.PositiveCount),
		NegativeMentions: int32(s.NegativeCount),
		NeutralMentions:  int32(s.NeutralCount),
		SourceAPI:        s.Source.String(),
		TimestampFetched: s.FetchedAt.UTC().Format(time.RFC3339),
		BackfillRunID:    s.RunID,
	}
}

var sentimentScoreHeader = []string{
	"token_symbol", "date", "sentiment_score", "positive_mentions",
	"negative_mentions", "neutral_mentions", "source_api",
	"timestamp_fetched", "backfill_run_id",
}

func (r SentimentScoreRow) record() []string {
	return []string{
		r.TokenSymbol, r.Date, formatFloat(r.SentimentScore),
		strconv.Itoa(int(r.PositiveMentions)), strconv.Itoa(int(r.NegativeMentions)),
		strconv.Itoa(int(r.NeutralMentions)),
		r.SourceAPI, r.TimestampFetched, r.BackfillRunID,
	}
}

// OnchainMetricRow is the export shape of domain.OnchainMetric.
type OnchainMetricRow struct {
	TokenSymbol      string  `parquet:"token_symbol"`
	Date             string  `parquet:"date"`
	MetricName       string  `parquet:"metric_name"`
	MetricValue      float64 `parquet:"metric_value"`
	SourceAPI        string  `parquet:"source_api"`
	TimestampFetched string  `parquet:"timestamp_fetched"`
	BackfillRunID    string  `parquet:"backfill_run_id"`
}

func onchainMetricRow(m *domain.OnchainMetric) OnchainMetricRow {
	return OnchainMetricRow{
		TokenSymbol:      m.Token,
		Date:             m.Date.Format(dayFormat),
		MetricName:       m.MetricName,
		MetricValue:      m.MetricValue,
		SourceAPI:        m.Source.String(),
		TimestampFetched: m.FetchedAt.UTC().Format(time.RFC3339),
		BackfillRunID:    m.RunID,
	}
}

var onchainMetricHeader = []string{
	"token_symbol", "date", "metric_name", "metric_value",
	"source_api", "timestamp_fetched", "backfill_run_id",
}

func (r OnchainMetricRow) record() []string {
	return []string{
		r.TokenSymbol, r.Date, r.MetricName, formatFloat(r.MetricValue),
		r.SourceAPI, r.TimestampFetched, r.BackfillRunID,
	}
}

// MacroBarRow is the export shape of domain.MacroBar. Observation fields
// stay optional; a nil is an empty CSV cell and a parquet null.
type MacroBarRow struct {
	Symbol           string   `parquet:"symbol"`
	Date             string   `parquet:"date"`
	OpenPrice        *float64 `parquet:"open_price,optional"`
	HighPrice        *float64 `parquet:"high_price,optional"`
	LowPrice         *float64 `parquet:"low_price,optional"`
	ClosePrice       *float64 `parquet:"close_price,optional"`
	Volume           *int64   `parquet:"volume,optional"`
	Value            *float64 `parquet:"value,optional"`
	TimestampFetched string   `parquet:"timestamp_fetched"`
	BackfillRunID    string   `parquet:"backfill_run_id"`
}

func macroBarRow(b *domain.MacroBar) MacroBarRow {
	return MacroBarRow{
		Symbol:           b.Symbol,
		Date:             b.Date.Format(dayFormat),
		OpenPrice:        b.Open,
		HighPrice:        b.High,
		LowPrice:         b.Low,
		ClosePrice:       b.Close,
		Volume:           b.Volume,
		Value:            b.Value,
		TimestampFetched: b.FetchedAt.UTC().Format(time.RFC3339),
		BackfillRunID:    b.RunID,
	}
}

var macroBarHeader = []string{
	"symbol", "date", "open_price", "high_price", "low_price",
	"close_price", "volume", "value", "timestamp_fetched", "backfill_run_id",
}

func (r MacroBarRow) record() []string {
	return []string{
		r.Symbol, r.Date,
		formatFloatPtr(r.OpenPrice), formatFloatPtr(r.HighPrice),
		formatFloatPtr(r.LowPrice), formatFloatPtr(r.ClosePrice),
		formatInt64Ptr(r.Volume), formatFloatPtr(r.Value),
		r.TimestampFetched, r.BackfillRunID,
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatInt64Ptr(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}
