package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhumphrey11/comoda-backfill/internal/domain"
)

func ptr[T any](v T) *T {
	return &v
}

func testBatch() *domain.Batch {
	fetched := time.Date(2024, 3, 10, 12, 30, 0, 0, time.UTC)
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	b := domain.NewBatch(domain.ProviderCoinAPI)
	b.PriceBars = append(b.PriceBars, &domain.PriceBar{
		Token: "BTC", Date: date,
		Open: 65000.5, High: 66000.0, Low: 64000.0, Close: 65500.25, Volume: 1234.5,
		Source: domain.ProviderCoinAPI, FetchedAt: fetched, RunID: "run-1",
	})
	return b
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteBatch_PriceBars(t *testing.T) {
	dir := t.TempDir()
	e := NewExporter(dir)

	paths, err := e.WriteBatch(testBatch(), "run-1")
	require.NoError(t, err)
	require.Len(t, paths, 2)

	csvPath := filepath.Join(dir, "coinapi_ohlcv_run-1.csv")
	parquetPath := filepath.Join(dir, "coinapi_ohlcv_run-1.parquet")
	assert.Equal(t, []string{csvPath, parquetPath}, paths)

	rows := readCSV(t, csvPath)
	require.Len(t, rows, 2)
	assert.Equal(t, priceBarHeader, rows[0])
	assert.Equal(t, []string{
		"BTC", "2024-03-01", "65000.5", "66000", "64000", "65500.25", "1234.5",
		"coinapi", "2024-03-10T12:30:00Z", "run-1",
	}, rows[1])

	parquetRows, err := parquet.ReadFile[PriceBarRow](parquetPath)
	require.NoError(t, err)
	require.Len(t, parquetRows, 1)
	assert.Equal(t, "BTC", parquetRows[0].TokenSymbol)
	assert.Equal(t, 65500.25, parquetRows[0].ClosePrice)
	assert.Equal(t, "run-1", parquetRows[0].BackfillRunID)
}

func TestWriteBatch_MacroBarsKeepNulls(t *testing.T) {
	dir := t.TempDir()
	e := NewExporter(dir)

	fetched := time.Date(2024, 3, 10, 12, 30, 0, 0, time.UTC)
	b := domain.NewBatch(domain.ProviderYahoo)
	b.MacroBars = append(b.MacroBars, &domain.MacroBar{
		Symbol:    "^GSPC",
		Date:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Open:      ptr(5100.0),
		Close:     ptr(5140.0),
		Volume:    nil,
		FetchedAt: fetched,
		RunID:     "run-7",
	})

	_, err := e.WriteBatch(b, "run-7")
	require.NoError(t, err)

	rows := readCSV(t, filepath.Join(dir, "yahoo_macro_run-7.csv"))
	require.Len(t, rows, 2)
	assert.Equal(t, macroBarHeader, rows[0])
	// Absent observations export as empty cells.
	assert.Equal(t, []string{
		"^GSPC", "2024-03-01", "5100", "", "", "5140", "", "",
		"2024-03-10T12:30:00Z", "run-7",
	}, rows[1])

	parquetRows, err := parquet.ReadFile[MacroBarRow](filepath.Join(dir, "yahoo_macro_run-7.parquet"))
	require.NoError(t, err)
	require.Len(t, parquetRows, 1)
	require.NotNil(t, parquetRows[0].OpenPrice)
	assert.Equal(t, 5100.0, *parquetRows[0].OpenPrice)
	assert.Nil(t, parquetRows[0].Volume)
}

func TestWriteBatch_OnlyPopulatedFamilies(t *testing.T) {
	dir := t.TempDir()
	e := NewExporter(dir)

	b := domain.NewBatch(domain.ProviderSantiment)
	b.SentimentScores = append(b.SentimentScores, &domain.SentimentScore{
		Token: "BTC", Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		SentimentScore: 3.6, PositiveCount: 4,
		Source: domain.ProviderSantiment, RunID: "run-9",
	})
	b.OnchainMetrics = append(b.OnchainMetrics, &domain.OnchainMetric{
		Token: "BTC", Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		MetricName: "dev_activity", MetricValue: 42.0,
		Source: domain.ProviderSantiment, RunID: "run-9",
	})

	paths, err := e.WriteBatch(b, "run-9")
	require.NoError(t, err)

	// Two populated families, a csv/parquet pair each.
	require.Len(t, paths, 4)
	assert.FileExists(t, filepath.Join(dir, "santiment_sentiment_run-9.csv"))
	assert.FileExists(t, filepath.Join(dir, "santiment_onchain_run-9.parquet"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}

func TestWriteBatch_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "exports")
	e := NewExporter(dir)

	_, err := e.WriteBatch(testBatch(), "run-1")
	require.NoError(t, err)
	assert.DirExists(t, dir)
}
