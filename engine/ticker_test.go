package engine

import (
	"context"
	"testing"
	"time"
)

func TestFormatElapsed(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00"},
		{time.Second, "00:00:01"},
		{90 * time.Second, "00:01:30"},
		{time.Hour + 2*time.Minute + 3*time.Second, "01:02:03"},
		{25 * time.Hour, "25:00:00"},
		{-time.Second, "00:00:00"},
	}
	for _, c := range cases {
		if got := FormatElapsed(c.d); got != c.want {
			t.Errorf("FormatElapsed(%v) = %q, want %q", c.d, got, c.want)
		}
	}
}

func TestElapsedTracksActiveRecord(t *testing.T) {
	clock := newFakeClock(9, 0)
	rec := &Record{CheckInTime: clock.Now()}

	clock.Advance(5 * time.Second)
	if got := Elapsed(rec, clock.Now()); got != "00:00:05" {
		t.Fatalf("active record: %q", got)
	}
	clock.Advance(time.Second)
	if got := Elapsed(rec, clock.Now()); got != "00:00:06" {
		t.Fatalf("next tick must increase: %q", got)
	}

	// once check-out completes the very next recompute shows zero
	out := clock.Now()
	rec.CheckOutTime = &out
	if got := Elapsed(rec, clock.Now()); got != ZeroElapsed {
		t.Fatalf("completed record: %q, want %q", got, ZeroElapsed)
	}

	if got := Elapsed(nil, clock.Now()); got != ZeroElapsed {
		t.Fatalf("no record: %q, want %q", got, ZeroElapsed)
	}
}

func TestTickerRunEmitsAndStops(t *testing.T) {
	clock := newFakeClock(9, 0)
	rec := &Record{CheckInTime: clock.Now().Add(-42 * time.Second)}

	tk := NewTicker(clock)
	tk.Interval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	var frames []string
	err := tk.Run(ctx,
		func(context.Context) (*Record, error) { return rec, nil },
		func(frame string) error {
			frames = append(frames, frame)
			if len(frames) >= 3 {
				cancel()
			}
			return nil
		})
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(frames) < 3 || frames[0] != "00:00:42" {
		t.Fatalf("frames %v", frames)
	}
}
