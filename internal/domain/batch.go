package domain

import "time"

// Batch accumulates canonical records for a single run. One run produces
// exactly one Batch; records are never mutated after stamping.
type Batch struct {
	Provider        Provider
	PriceBars       []*PriceBar
	NewsEvents      []*NewsEvent
	SentimentScores []*SentimentScore
	OnchainMetrics  []*OnchainMetric
	MacroBars       []*MacroBar
}

// NewBatch creates an empty batch for a provider.
func NewBatch(p Provider) *Batch {
	return &Batch{Provider: p}
}

// Len returns the total number of records across all families.
func (b *Batch) Len() int {
	return len(b.PriceBars) + len(b.NewsEvents) + len(b.SentimentScores) +
		len(b.OnchainMetrics) + len(b.MacroBars)
}

// Merge appends all records from other into b. The provider tag of other
// is ignored; the coordinator only merges batches from a single adapter.
func (b *Batch) Merge(other *Batch) {
	if other == nil {
		return
	}
	b.PriceBars = append(b.PriceBars, other.PriceBars...)
	b.NewsEvents = append(b.NewsEvents, other.NewsEvents...)
	b.SentimentScores = append(b.SentimentScores, other.SentimentScores...)
	b.OnchainMetrics = append(b.OnchainMetrics, other.OnchainMetrics...)
	b.MacroBars = append(b.MacroBars, other.MacroBars...)
}

// StampFetchedAt sets the capture timestamp on every record in the batch.
func (b *Batch) StampFetchedAt(t time.Time) {
	for _, r := range b.PriceBars {
		r.FetchedAt = t
	}
	for _, r := range b.NewsEvents {
		r.FetchedAt = t
	}
	for _, r := range b.SentimentScores {
		r.FetchedAt = t
	}
	for _, r := range b.OnchainMetrics {
		r.FetchedAt = t
	}
	for _, r := range b.MacroBars {
		r.FetchedAt = t
	}
}

// StampRunID tags every record in the batch with the run identifier.
// Until this is called the records are considered in-flight.
func (b *Batch) StampRunID(runID string) {
	for _, r := range b.PriceBars {
		r.RunID = runID
	}
	for _, r := range b.NewsEvents {
		r.RunID = runID
	}
	for _, r := range b.SentimentScores {
		r.RunID = runID
	}
	for _, r := range b.OnchainMetrics {
		r.RunID = runID
	}
	for _, r := range b.MacroBars {
		r.RunID = runID
	}
}
