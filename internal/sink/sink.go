package sink

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dhumphrey11/comoda-backfill/internal/domain"
	"github.com/dhumphrey11/comoda-backfill/internal/export"
	"github.com/dhumphrey11/comoda-backfill/internal/storage"
)

// Sink persists a run's batch to the export snapshot and the durable
// store, in that order: the snapshot is on disk before the transaction
// starts, so a transaction failure never loses the run's output entirely.
type Sink struct {
	store    storage.BatchStore
	mirror   storage.BatchStore
	exporter *export.Exporter
	logger   *zap.Logger
}

// Options configures a Sink.
type Options struct {
	// Store is the durable destination. Required.
	Store storage.BatchStore

	// Mirror is an optional columnar analytical copy. Mirror failures
	// are logged, never fatal.
	Mirror storage.BatchStore

	Exporter *export.Exporter
	Logger   *zap.Logger
}

// New creates a Sink.
func New(opts Options) *Sink {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{
		store:    opts.Store,
		mirror:   opts.Mirror,
		exporter: opts.Exporter,
		logger:   logger,
	}
}

// Persist writes the export snapshot, then commits the batch to the
// durable store in a single transaction. The records must already carry
// their run id. Insert semantics are append-only: re-submitting the same
// run id produces parallel rows, not a merge.
func (s *Sink) Persist(ctx context.Context, batch *domain.Batch) error {
	if batch == nil || batch.Len() == 0 {
		return nil
	}

	runID := runIDOf(batch)

	if s.exporter != nil {
		paths, err := s.exporter.WriteBatch(batch, runID)
		if err != nil {
			return fmt.Errorf("write export snapshot: %w", err)
		}
		s.logger.Info("export snapshot written",
			zap.String("provider", batch.Provider.String()),
			zap.String("run_id", runID),
			zap.Strings("files", paths),
		)
	}

	if err := s.store.InsertBatch(ctx, batch); err != nil {
		// The snapshot already on disk is the recovery artifact.
		return fmt.Errorf("insert run batch: %w", err)
	}

	if s.mirror != nil {
		if err := s.mirror.InsertBatch(ctx, batch); err != nil {
			s.logger.Warn("columnar mirror insert failed",
				zap.String("provider", batch.Provider.String()),
				zap.String("run_id", runID),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("run batch persisted",
		zap.String("provider", batch.Provider.String()),
		zap.String("run_id", runID),
		zap.Int("records", batch.Len()),
	)
	return nil
}

// runIDOf reads the stamped run id off the first record.
func runIDOf(b *domain.Batch) string {
	switch {
	case len(b.PriceBars) > 0:
		return b.PriceBars[0].RunID
	case len(b.NewsEvents) > 0:
		return b.NewsEvents[0].RunID
	case len(b.SentimentScores) > 0:
		return b.SentimentScores[0].RunID
	case len(b.OnchainMetrics) > 0:
		return b.OnchainMetrics[0].RunID
	case len(b.MacroBars) > 0:
		return b.MacroBars[0].RunID
	}
	return ""
}
