package storage

import (
	"context"

	"github.com/dhumphrey11/comoda-backfill/internal/domain"
)

// BatchStore persists one run's accumulated records. Implementations must
// not depend on record order within the batch.
type BatchStore interface {
	// InsertBatch writes every record in the batch. The Postgres
	// implementation commits all rows in a single transaction: all rows
	// land together or none do. Tables are append-only; re-submitting a
	// batch produces parallel rows, not merges.
	InsertBatch(ctx context.Context, batch *domain.Batch) error
}
