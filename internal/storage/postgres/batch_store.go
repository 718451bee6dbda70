package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dhumphrey11/comoda-backfill/internal/domain"
	"github.com/dhumphrey11/comoda-backfill/internal/storage"
)

// BatchStore implements storage.BatchStore using PostgreSQL. One run's
// batch is written inside a single transaction with one bulk copy per
// populated record family.
type BatchStore struct {
	pool *Pool
}

// NewBatchStore creates a new BatchStore.
func NewBatchStore(pool *Pool) *BatchStore {
	return &BatchStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BatchStore = (*BatchStore)(nil)

// InsertBatch writes the whole batch in one transaction. A failure partway
// rolls back every row of the run.
func (s *BatchStore) InsertBatch(ctx context.Context, batch *domain.Batch) error {
	if batch == nil {
		return storage.ErrInvalidInput
	}
	if batch.Len() == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := copyPriceBars(ctx, tx, batch.PriceBars); err != nil {
		return err
	}
	if err := copyNewsEvents(ctx, tx, batch.NewsEvents); err != nil {
		return err
	}
	if err := copySentimentScores(ctx, tx, batch.SentimentScores); err != nil {
		return err
	}
	if err := copyOnchainMetrics(ctx, tx, batch.OnchainMetrics); err != nil {
		return err
	}
	if err := copyMacroBars(ctx, tx, batch.MacroBars); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func copyPriceBars(ctx context.Context, tx pgx.Tx, bars []*domain.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}

	columns := []string{
		"token_symbol", "date", "open_price", "high_price", "low_price",
		"close_price", "volume", "source_api", "timestamp_fetched", "backfill_run_id",
	}
	_, err := tx.CopyFrom(ctx, pgx.Identifier{"price_bars"}, columns,
		pgx.CopyFromSlice(len(bars), func(i int) ([]any, error) {
			b := bars[i]
			return []any{
				b.Token, b.Date, b.Open, b.High, b.Low,
				b.Close, b.Volume, b.Source.String(), b.FetchedAt, b.RunID,
			}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy price bars: %w", err)
	}
	return nil
}

func copyNewsEvents(ctx context.Context, tx pgx.Tx, events []*domain.NewsEvent) error {
	if len(events) == 0 {
		return nil
	}

	columns := []string{
		"token_symbol", "date", "title", "description", "source",
		"sentiment_score", "url", "timestamp_fetched", "backfill_run_id",
	}
	_, err := tx.CopyFrom(ctx, pgx.Identifier{"news_events"}, columns,
		pgx.CopyFromSlice(len(events), func(i int) ([]any, error) {
			e := events[i]
			return []any{
				e.Token, e.Date, e.Title, e.Description, e.Source,
				e.SentimentScore, e.URL, e.FetchedAt, e.RunID,
			}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy news events: %w", err)
	}
	return nil
}

func copySentimentScores(ctx context.Context, tx pgx.Tx, scores []*domain.SentimentScore) error {
	if len(scores) == 0 {
		return nil
	}

	columns := []string{
		"token_symbol", "date", "sentiment_score", "positive_mentions",
		"negative_mentions", "neutral_mentions", "source_api",
		"timestamp_fetched", "backfill_run_id",
	}
	_, err := tx.CopyFrom(ctx, pgx.Identifier{"sentiment_scores"}, columns,
		pgx.CopyFromSlice(len(scores), func(i int) ([]any, error) {
			sc := scores[i]
			return []any{
				sc.Token, sc.Date, sc.SentimentScore, sc.PositiveCount,
				sc.NegativeCount, sc.NeutralCount, sc.Source.String(),
				sc.FetchedAt, sc.RunID,
			}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy sentiment scores: %w", err)
	}
	return nil
}

func copyOnchainMetrics(ctx context.Context, tx pgx.Tx, metrics []*domain.OnchainMetric) error {
	if len(metrics) == 0 {
		return nil
	}

	columns := []string{
		"token_symbol", "date", "metric_name", "metric_value",
		"source_api", "timestamp_fetched", "backfill_run_id",
	}
	_, err := tx.CopyFrom(ctx, pgx.Identifier{"onchain_metrics"}, columns,
		pgx.CopyFromSlice(len(metrics), func(i int) ([]any, error) {
			m := metrics[i]
			return []any{
				m.Token, m.Date, m.MetricName, m.MetricValue,
				m.Source.String(), m.FetchedAt, m.RunID,
			}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy onchain metrics: %w", err)
	}
	return nil
}

func copyMacroBars(ctx context.Context, tx pgx.Tx, bars []*domain.MacroBar) error {
	if len(bars) == 0 {
		return nil
	}

	columns := []string{
		"symbol", "date", "open_price", "high_price", "low_price",
		"close_price", "volume", "value", "timestamp_fetched", "backfill_run_id",
	}
	_, err := tx.CopyFrom(ctx, pgx.Identifier{"macro_bars"}, columns,
		pgx.CopyFromSlice(len(bars), func(i int) ([]any, error) {
			b := bars[i]
			return []any{
				b.Symbol, b.Date, b.Open, b.High, b.Low,
				b.Close, b.Volume, b.Value, b.FetchedAt, b.RunID,
			}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy macro bars: %w", err)
	}
	return nil
}
