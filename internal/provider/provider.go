package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/dhumphrey11/comoda-backfill/internal/domain"
	"github.com/dhumphrey11/comoda-backfill/internal/fetch"
)

// Executor issues provider requests. Satisfied by *fetch.Executor.
type Executor interface {
	Execute(ctx context.Context, req *fetch.Request) (*fetch.Response, error)
}

// DateWindow is an inclusive start/end pair at UTC day granularity.
type DateWindow struct {
	Start time.Time
	End   time.Time
}

// NewDateWindow validates and normalizes a window. Start must not be
// after end.
func NewDateWindow(start, end time.Time) (DateWindow, error) {
	s, e := domain.Day(start), domain.Day(end)
	if s.After(e) {
		return DateWindow{}, fmt.Errorf("invalid window: start %s after end %s",
			s.Format("2006-01-02"), e.Format("2006-01-02"))
	}
	return DateWindow{Start: s, End: e}, nil
}

// Days enumerates every calendar day in the window, in order.
func (w DateWindow) Days() []time.Time {
	var days []time.Time
	for d := w.Start; !d.After(w.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Contains reports whether day falls inside the window.
func (w DateWindow) Contains(day time.Time) bool {
	d := domain.Day(day)
	return !d.Before(w.Start) && !d.After(w.End)
}

// Adapter knows one external source: its request shape, its pagination or
// windowing convention, and the mapping of its responses into canonical
// records. Fetch must never let a single malformed response item abort
// the window; missing fields degrade to the type's zero value.
type Adapter interface {
	// Name returns the provider identity stamped on records.
	Name() domain.Provider

	// Windows partitions the requested window the way this source is
	// fetched: one sub-window per work item.
	Windows(w DateWindow) []DateWindow

	// Fetch retrieves and normalizes records for one token (or macro
	// symbol) and one work-item window. The token is pre-validated
	// non-empty and uppercase-normalized by the caller.
	Fetch(ctx context.Context, token string, w DateWindow) (*domain.Batch, error)
}

// dailyWindows splits a window into one-day work items.
func dailyWindows(w DateWindow) []DateWindow {
	days := w.Days()
	windows := make([]DateWindow, len(days))
	for i, d := range days {
		windows[i] = DateWindow{Start: d, End: d}
	}
	return windows
}

// singleWindow keeps the whole window as one work item.
func singleWindow(w DateWindow) []DateWindow {
	return []DateWindow{w}
}
