package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhumphrey11/comoda-backfill/internal/domain"
	"github.com/dhumphrey11/comoda-backfill/internal/storage"
)

func TestBatchStore_InsertAndCount(t *testing.T) {
	store := NewBatchStore()

	b := domain.NewBatch(domain.ProviderCoinAPI)
	b.PriceBars = append(b.PriceBars, &domain.PriceBar{Token: "BTC"}, &domain.PriceBar{Token: "ETH"})

	require.NoError(t, store.InsertBatch(context.Background(), b))

	assert.Len(t, store.Batches(), 1)
	assert.Equal(t, 2, store.RecordCount())
}

func TestBatchStore_NilBatch(t *testing.T) {
	store := NewBatchStore()

	err := store.InsertBatch(context.Background(), nil)
	require.ErrorIs(t, err, storage.ErrInvalidInput)
	assert.Zero(t, store.RecordCount())
}
