package engine

import (
	"context"
	"fmt"
	"time"
)

// ZeroElapsed is the display value whenever no record is active.
const ZeroElapsed = "00:00:00"

// FormatElapsed renders a duration as zero-padded HH:MM:SS. Negative
// durations clamp to zero.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// Elapsed computes the live duration display for a record: increasing
// HH:MM:SS while the record is active, ZeroElapsed the moment it is not.
// Purely derived; never a source of truth.
func Elapsed(rec *Record, now time.Time) string {
	if !rec.Active() {
		return ZeroElapsed
	}
	return FormatElapsed(now.Sub(rec.CheckInTime))
}

// RecordSource yields the caller's current active record, or nil when none.
type RecordSource func(ctx context.Context) (*Record, error)

// Ticker recomputes the elapsed display on a fixed cadence while observing
// an active record through a RecordSource.
type Ticker struct {
	clock    Clock
	Interval time.Duration
}

// NewTicker returns a 1-second ticker on the given clock.
func NewTicker(clock Clock) *Ticker {
	return &Ticker{clock: clock, Interval: time.Second}
}

// Run emits the current display immediately and then once per interval
// until the context is cancelled or emit returns an error. The interval
// timer is released on return, so tearing down the consumer cannot leak it.
func (t *Ticker) Run(ctx context.Context, source RecordSource, emit func(string) error) error {
	tick := func() error {
		rec, err := source(ctx)
		if err != nil {
			return err
		}
		return emit(Elapsed(rec, t.clock.Now()))
	}

	if err := tick(); err != nil {
		return err
	}

	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := tick(); err != nil {
				return err
			}
		}
	}
}
