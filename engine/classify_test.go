package engine

import (
	"testing"
	"time"
)

func at(hour, minute int) time.Time {
	return time.Date(2026, 8, 23, hour, minute, 0, 0, time.Local)
}

func mustWindow(t *testing.T, start, end string) ScheduledWindow {
	t.Helper()
	w, err := SessionType{StartTime: start, EndTime: end}.Window()
	if err != nil {
		t.Fatalf("window %s-%s: %v", start, end, err)
	}
	return w
}

func TestClassifyLateArrival(t *testing.T) {
	c := NewClassifier()
	w := mustWindow(t, "09:00", "17:00")
	// earliestAllowed=08:30, latestOnTime=09:15
	if got := c.Classify(w, at(9, 20)); got != StatusLate {
		t.Fatalf("09:20 check-in: got %v, want late", got)
	}
}

func TestClassifyEarlyGraceWindow(t *testing.T) {
	c := NewClassifier()
	w := mustWindow(t, "09:00", "17:00")
	if got := c.Classify(w, at(8, 45)); got != StatusPresent {
		t.Fatalf("08:45 check-in: got %v, want present", got)
	}
}

func TestClassifyBoundaries(t *testing.T) {
	c := NewClassifier()
	w := mustWindow(t, "09:00", "17:00")

	cases := []struct {
		hour, minute int
		want         Status
	}{
		{8, 29, StatusLate},     // before the early grace window
		{8, 30, StatusPresent},  // exactly earliestAllowed
		{9, 15, StatusPresent},  // exactly latestOnTime
		{9, 16, StatusLate},     // one minute past grace
		{17, 0, StatusLate},     // at scheduled end, far past grace
		{17, 1, StatusLate},     // after the session already ended
		{9, 0, StatusPresent},   // on the dot
	}
	for _, tc := range cases {
		if got := c.Classify(w, at(tc.hour, tc.minute)); got != tc.want {
			t.Errorf("%02d:%02d: got %v, want %v", tc.hour, tc.minute, got, tc.want)
		}
	}
}

func TestClassifyIsPure(t *testing.T) {
	c := NewClassifier()
	w := mustWindow(t, "09:00", "17:00")
	instant := at(9, 20)
	first := c.Classify(w, instant)
	second := c.Classify(w, instant)
	if first != second {
		t.Fatalf("classification not idempotent: %v vs %v", first, second)
	}
}

func TestParseTimeOfDay(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"09:00", 540, false},
		{"00:00", 0, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"09:60", 0, true},
		{"0900", 0, true},
		{"", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseTimeOfDay(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseTimeOfDay(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ParseTimeOfDay(%q) = %d, %v; want %d", tc.in, got, err, tc.want)
		}
	}
}
