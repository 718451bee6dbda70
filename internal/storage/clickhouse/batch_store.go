package clickhouse

import (
	"context"
	"fmt"

	"github.com/dhumphrey11/comoda-backfill/internal/domain"
	"github.com/dhumphrey11/comoda-backfill/internal/storage"
)

// BatchStore implements storage.BatchStore using ClickHouse. It mirrors
// run batches into columnar MergeTree tables for analytical reads; the
// Postgres store remains the durable record. ClickHouse inserts are not
// transactional across tables.
type BatchStore struct {
	conn *Conn
}

// NewBatchStore creates a new BatchStore.
func NewBatchStore(conn *Conn) *BatchStore {
	return &BatchStore{conn: conn}
}

// Compile-time interface check.
var _ storage.BatchStore = (*BatchStore)(nil)

// InsertBatch appends every record family of the batch, one prepared
// batch insert per populated table.
func (s *BatchStore) InsertBatch(ctx context.Context, batch *domain.Batch) error {
	if batch == nil {
		return storage.ErrInvalidInput
	}

	if err := s.insertPriceBars(ctx, batch.PriceBars); err != nil {
		return err
	}
	if err := s.insertNewsEvents(ctx, batch.NewsEvents); err != nil {
		return err
	}
	if err := s.insertSentimentScores(ctx, batch.SentimentScores); err != nil {
		return err
	}
	if err := s.insertOnchainMetrics(ctx, batch.OnchainMetrics); err != nil {
		return err
	}
	if err := s.insertMacroBars(ctx, batch.MacroBars); err != nil {
		return err
	}
	return nil
}

func (s *BatchStore) insertPriceBars(ctx context.Context, bars []*domain.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_bars (
			token_symbol, date, open_price, high_price, low_price,
			close_price, volume, source_api, timestamp_fetched, backfill_run_id
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare price bars batch: %w", err)
	}

	for _, b := range bars {
		err = batch.Append(
			b.Token, b.Date, b.Open, b.High, b.Low,
			b.Close, b.Volume, b.Source.String(), b.FetchedAt, b.RunID,
		)
		if err != nil {
			return fmt.Errorf("append price bar: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send price bars batch: %w", err)
	}
	return nil
}

func (s *BatchStore) insertNewsEvents(ctx context.Context, events []*domain.NewsEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO news_events (
			token_symbol, date, title, description, source,
			sentiment_score, url, timestamp_fetched, backfill_run_id
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare news events batch: %w", err)
	}

	for _, e := range events {
		err = batch.Append(
			e.Token, e.Date, e.Title, e.Description, e.Source,
			e.SentimentScore, e.URL, e.FetchedAt, e.RunID,
		)
		if err != nil {
			return fmt.Errorf("append news event: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send news events batch: %w", err)
	}
	return nil
}

func (s *BatchStore) insertSentimentScores(ctx context.Context, scores []*domain.SentimentScore) error {
	if len(scores) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO sentiment_scores (
			token_symbol, date, sentiment_score, positive_mentions,
			negative_mentions, neutral_mentions, source_api,
			timestamp_fetched, backfill_run_id
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare sentiment scores batch: %w", err)
	}

	for _, sc := range scores {
		err = batch.Append(
			sc.Token, sc.Date, sc.SentimentScore, int32(sc.PositiveCount),
			int32(sc.NegativeCount), int32(sc.NeutralCount), sc.Source.String(),
			sc.FetchedAt, sc.RunID,
		)
		if err != nil {
			return fmt.Errorf("append sentiment score: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send sentiment scores batch: %w", err)
	}
	return nil
}

func (s *BatchStore) insertOnchainMetrics(ctx context.Context, metrics []*domain.OnchainMetric) error {
	if len(metrics) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO onchain_metrics (
			token_symbol, date, metric_name, metric_value,
			source_api, timestamp_fetched, backfill_run_id
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare onchain metrics batch: %w", err)
	}

	for _, m := range metrics {
		err = batch.Append(
			m.Token, m.Date, m.MetricName, m.MetricValue,
			m.Source.String(), m.FetchedAt, m.RunID,
		)
		if err != nil {
			return fmt.Errorf("append onchain metric: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send onchain metrics batch: %w", err)
	}
	return nil
}

func (s *BatchStore) insertMacroBars(ctx context.Context, bars []*domain.MacroBar) error {
	if len(bars) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO macro_bars (
			symbol, date, open_price, high_price, low_price,
			close_price, volume, value, timestamp_fetched, backfill_run_id
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare macro bars batch: %w", err)
	}

	for _, b := range bars {
		err = batch.Append(
			b.Symbol, b.Date, b.Open, b.High, b.Low,
			b.Close, b.Volume, b.Value, b.FetchedAt, b.RunID,
		)
		if err != nil {
			return fmt.Errorf("append macro bar: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send macro bars batch: %w", err)
	}
	return nil
}
