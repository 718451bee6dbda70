package backfill

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dhumphrey11/comoda-backfill/internal/domain"
	"github.com/dhumphrey11/comoda-backfill/internal/provider"
	"github.com/dhumphrey11/comoda-backfill/internal/sink"
)

// Coordinator drives one provider's backfill run: it iterates the
// token × window work items in declared order, accumulates canonical
// records in memory for the whole run, stamps them, and hands the batch
// to the sink. Work items are fetched sequentially; a failed item is
// logged and skipped, never fatal.
type Coordinator struct {
	adapter provider.Adapter
	sink    *sink.Sink
	logger  *zap.Logger
	now     func() time.Time
}

// Options configures a Coordinator.
type Options struct {
	Adapter provider.Adapter
	Sink    *sink.Sink
	Logger  *zap.Logger

	// Now overrides the capture-timestamp clock. Tests only.
	Now func() time.Time
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(opts Options) *Coordinator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Coordinator{
		adapter: opts.Adapter,
		sink:    opts.Sink,
		logger:  logger,
		now:     now,
	}
}

// ItemFailure records one skipped work item.
type ItemFailure struct {
	Token  string
	Window provider.DateWindow
	Err    error
}

// Summary reports the outcome of a run.
type Summary struct {
	RunID       string
	Accepted    int
	FailedItems []ItemFailure
	Duration    time.Duration
}

// Run executes the backfill for tokens over window, tagging every
// accepted record with runID. The only fatal outcome is a sink failure;
// in that case the export snapshot already written remains on disk.
func (c *Coordinator) Run(ctx context.Context, tokens []string, window provider.DateWindow, runID string) (*Summary, error) {
	start := c.now()
	summary := &Summary{RunID: runID}

	tokens = normalizeTokens(tokens)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("no tokens to backfill")
	}
	if runID == "" {
		return nil, fmt.Errorf("run id must not be empty")
	}

	windows := c.adapter.Windows(window)
	batch := domain.NewBatch(c.adapter.Name())

	c.logger.Info("backfill run starting",
		zap.String("provider", c.adapter.Name().String()),
		zap.String("run_id", runID),
		zap.Strings("tokens", tokens),
		zap.String("start", window.Start.Format("2006-01-02")),
		zap.String("end", window.End.Format("2006-01-02")),
		zap.Int("work_items", len(tokens)*len(windows)),
	)

	for _, token := range tokens {
		for _, w := range windows {
			if err := ctx.Err(); err != nil {
				return summary, err
			}

			itemBatch, err := c.adapter.Fetch(ctx, token, w)
			if err != nil {
				c.logger.Warn("work item failed, skipping",
					zap.String("provider", c.adapter.Name().String()),
					zap.String("token", token),
					zap.String("window_start", w.Start.Format("2006-01-02")),
					zap.String("window_end", w.End.Format("2006-01-02")),
					zap.Error(err),
				)
				summary.FailedItems = append(summary.FailedItems, ItemFailure{
					Token:  token,
					Window: w,
					Err:    err,
				})
				continue
			}

			itemBatch.StampFetchedAt(c.now())
			batch.Merge(itemBatch)
		}
	}

	summary.Accepted = batch.Len()

	if batch.Len() == 0 {
		summary.Duration = c.now().Sub(start)
		c.logger.Info("backfill run complete with zero records",
			zap.String("provider", c.adapter.Name().String()),
			zap.String("run_id", runID),
			zap.Int("failed_items", len(summary.FailedItems)),
		)
		return summary, nil
	}

	batch.StampRunID(runID)

	if err := c.sink.Persist(ctx, batch); err != nil {
		return summary, fmt.Errorf("persist run %s: %w", runID, err)
	}

	summary.Duration = c.now().Sub(start)
	c.logger.Info("backfill run complete",
		zap.String("provider", c.adapter.Name().String()),
		zap.String("run_id", runID),
		zap.Int("accepted", summary.Accepted),
		zap.Int("failed_items", len(summary.FailedItems)),
		zap.Duration("duration", summary.Duration),
	)
	return summary, nil
}

// normalizeTokens uppercases symbols and drops blanks. Case is never a
// distinguishing key downstream.
func normalizeTokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
