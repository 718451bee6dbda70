package memory

import (
	"context"
	"sync"

	"github.com/dhumphrey11/comoda-backfill/internal/domain"
	"github.com/dhumphrey11/comoda-backfill/internal/storage"
)

// BatchStore is an in-memory implementation of storage.BatchStore, used
// by tests and the --use-memory mode.
type BatchStore struct {
	mu      sync.RWMutex
	batches []*domain.Batch
}

// NewBatchStore creates a new in-memory batch store.
func NewBatchStore() *BatchStore {
	return &BatchStore{}
}

// Compile-time interface check.
var _ storage.BatchStore = (*BatchStore)(nil)

// InsertBatch appends the batch.
func (s *BatchStore) InsertBatch(_ context.Context, batch *domain.Batch) error {
	if batch == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, batch)
	return nil
}

// Batches returns all inserted batches.
func (s *BatchStore) Batches() []*domain.Batch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Batch, len(s.batches))
	copy(out, s.batches)
	return out
}

// RecordCount returns the total number of records across all batches.
func (s *BatchStore) RecordCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, b := range s.batches {
		total += b.Len()
	}
	return total
}
