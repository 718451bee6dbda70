package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/dhumphrey11/comoda-backfill/internal/domain"
)

// Exporter writes a run's immutable snapshot pair: a row-oriented CSV and
// a columnar Parquet file per populated record family, named
// deterministically by provider, family, and run id. Downstream loaders
// can reproduce the run independently of the database.
type Exporter struct {
	dir string
}

// NewExporter creates an Exporter rooted at dir. The directory is created
// on first write.
func NewExporter(dir string) *Exporter {
	return &Exporter{dir: dir}
}

// Dir returns the export directory.
func (e *Exporter) Dir() string {
	return e.dir
}

// WriteBatch writes the snapshot pair for every populated family in the
// batch and returns the written paths.
func (e *Exporter) WriteBatch(batch *domain.Batch, runID string) ([]string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create exports dir: %w", err)
	}

	var paths []string

	if len(batch.PriceBars) > 0 {
		rows := make([]PriceBarRow, len(batch.PriceBars))
		for i, b := range batch.PriceBars {
			rows[i] = priceBarRow(b)
		}
		p, err := writePair(e.dir, baseName(batch.Provider, "ohlcv"), runID, priceBarHeader, rows)
		if err != nil {
			return paths, err
		}
		paths = append(paths, p...)
	}

	if len(batch.NewsEvents) > 0 {
		rows := make([]NewsEventRow, len(batch.NewsEvents))
		for i, ev := range batch.NewsEvents {
			rows[i] = newsEventRow(ev)
		}
		p, err := writePair(e.dir, baseName(batch.Provider, "news"), runID, newsEventHeader, rows)
		if err != nil {
			return paths, err
		}
		paths = append(paths, p...)
	}

	if len(batch.SentimentScores) > 0 {
		rows := make([]SentimentScoreRow, len(batch.SentimentScores))
		for i, s := range batch.SentimentScores {
			rows[i] = sentimentScoreRow(s)
		}
		p, err := writePair(e.dir, baseName(batch.Provider, "sentiment"), runID, sentimentScoreHeader, rows)
		if err != nil {
			return paths, err
		}
		paths = append(paths, p...)
	}

	if len(batch.OnchainMetrics) > 0 {
		rows := make([]OnchainMetricRow, len(batch.OnchainMetrics))
		for i, m := range batch.OnchainMetrics {
			rows[i] = onchainMetricRow(m)
		}
		p, err := writePair(e.dir, baseName(batch.Provider, "onchain"), runID, onchainMetricHeader, rows)
		if err != nil {
			return paths, err
		}
		paths = append(paths, p...)
	}

	if len(batch.MacroBars) > 0 {
		rows := make([]MacroBarRow, len(batch.MacroBars))
		for i, b := range batch.MacroBars {
			rows[i] = macroBarRow(b)
		}
		p, err := writePair(e.dir, baseName(batch.Provider, "macro"), runID, macroBarHeader, rows)
		if err != nil {
			return paths, err
		}
		paths = append(paths, p...)
	}

	return paths, nil
}

// baseName builds the deterministic file stem for a provider and family.
func baseName(p domain.Provider, family string) string {
	return fmt.Sprintf("%s_%s", p, family)
}

// csvRow is implemented by every export row shape.
type csvRow interface {
	record() []string
}

// writePair writes base_runID.csv and base_runID.parquet for one family.
func writePair[T csvRow](dir, base, runID string, header []string, rows []T) ([]string, error) {
	csvPath := filepath.Join(dir, fmt.Sprintf("%s_%s.csv", base, runID))
	if err := writeCSV(csvPath, header, rows); err != nil {
		return nil, err
	}

	parquetPath := filepath.Join(dir, fmt.Sprintf("%s_%s.parquet", base, runID))
	if err := writeParquet(parquetPath, rows); err != nil {
		return nil, err
	}

	return []string{csvPath, parquetPath}, nil
}

func writeCSV[T csvRow](path string, header []string, rows []T) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row.record()); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv %s: %w", path, err)
	}
	return f.Close()
}

func writeParquet[T any](path string, rows []T) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create parquet %s: %w", path, err)
	}
	defer f.Close()

	w := parquet.NewGenericWriter[T](f)
	if _, err := w.Write(rows); err != nil {
		return fmt.Errorf("write parquet rows: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return f.Close()
}
