package engine

import (
	"context"
	"errors"
	"time"
)

// Position is a transient positioning fix. It is never persisted on its
// own, only embedded into attendance record snapshots.
type Position struct {
	Coordinates
	AccuracyMeters float64   `json:"accuracy_meters"`
	CapturedAt     time.Time `json:"captured_at"`
}

// PositionOptions tunes a single positioning request.
type PositionOptions struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaximumAge   time.Duration
}

// DefaultPositionOptions trades precision for reliability: low accuracy,
// 15s timeout, cached fixes accepted up to 5 minutes old.
func DefaultPositionOptions() PositionOptions {
	return PositionOptions{
		HighAccuracy: false,
		Timeout:      15 * time.Second,
		MaximumAge:   5 * time.Minute,
	}
}

// PositionProvider is the device positioning collaborator. Failures must be
// one of the typed geolocation errors so the retry policy can classify them.
type PositionProvider interface {
	CurrentPosition(ctx context.Context, opts PositionOptions) (Position, error)
}

// SleepFunc waits for the given delay or until the context is cancelled.
// Injectable so retry backoff is testable without real timers.
type SleepFunc func(ctx context.Context, d time.Duration) error

func defaultSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

const defaultMaxAttempts = 3

// Acquirer wraps a PositionProvider with bounded retry. Each Acquire call
// is a fresh chain: the attempt counter starts at zero, so a manual retry
// after an exhausted chain simply calls Acquire again.
type Acquirer struct {
	provider    PositionProvider
	opts        PositionOptions
	sleep       SleepFunc
	maxAttempts int
	lastFailure error
}

// NewAcquirer builds an Acquirer with the default options and retry bounds.
func NewAcquirer(provider PositionProvider) *Acquirer {
	return &Acquirer{
		provider:    provider,
		opts:        DefaultPositionOptions(),
		sleep:       defaultSleep,
		maxAttempts: defaultMaxAttempts,
	}
}

// WithOptions overrides the positioning request options.
func (a *Acquirer) WithOptions(opts PositionOptions) *Acquirer {
	a.opts = opts
	return a
}

// WithSleep overrides the backoff sleeper.
func (a *Acquirer) WithSleep(sleep SleepFunc) *Acquirer {
	a.sleep = sleep
	return a
}

// retryDelay implements the per-cause backoff policy:
// unavailable 2000ms x attempt, timeout fixed 1000ms, unknown fixed 2000ms.
func retryDelay(cause error, attempt int) time.Duration {
	switch {
	case errors.Is(cause, ErrPositionUnavailable):
		return time.Duration(attempt) * 2000 * time.Millisecond
	case errors.Is(cause, ErrLocationTimeout):
		return 1000 * time.Millisecond
	default:
		return 2000 * time.Millisecond
	}
}

// Acquire requests a position, retrying transient failures up to the
// attempt bound. Permission denial is terminal and never retried. On
// exhaustion a RetriesExhaustedError wrapping the last cause is returned.
func (a *Acquirer) Acquire(ctx context.Context) (Position, error) {
	a.lastFailure = nil

	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		pos, err := a.provider.CurrentPosition(ctx, a.opts)
		if err == nil {
			return pos, nil
		}
		if errors.Is(err, ErrPermissionDenied) {
			a.lastFailure = err
			return Position{}, err
		}
		if attempt == a.maxAttempts {
			exhausted := &RetriesExhaustedError{Cause: err, Attempts: attempt}
			a.lastFailure = exhausted
			return Position{}, exhausted
		}
		if serr := a.sleep(ctx, retryDelay(err, attempt)); serr != nil {
			a.lastFailure = serr
			return Position{}, serr
		}
	}
	// unreachable with maxAttempts >= 1
	return Position{}, ErrUnknownLocation
}

// CanSkip reports whether the operator may elect to proceed without a
// location check. The skip option is offered after an error of any kind,
// but never taken automatically.
func (a *Acquirer) CanSkip() bool { return a.lastFailure != nil }

// LastFailure returns the failure that ended the most recent chain, or nil
// after a success.
func (a *Acquirer) LastFailure() error { return a.lastFailure }
