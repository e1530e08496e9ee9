package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Status labels an attendance record. Absent is never assigned by the
// classifier; it is inferred externally from the absence of any record.
type Status string

const (
	StatusPresent Status = "present"
	StatusLate    Status = "late"
	StatusAbsent  Status = "absent"
)

// Method records how a check-in was performed.
type Method string

const (
	MethodFacial Method = "facial"
	MethodManual Method = "manual"
)

// SessionType is a named scheduled work window. Start and end are
// times-of-day in "HH:MM". Read-only reference data from the engine's
// perspective.
type SessionType struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// ScheduledWindow is a session window expressed as minutes since midnight.
type ScheduledWindow struct {
	StartMinutes int
	EndMinutes   int
}

// ParseTimeOfDay converts "HH:MM" to minutes since midnight.
func ParseTimeOfDay(s string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}

// Window parses the session type's schedule.
func (s SessionType) Window() (ScheduledWindow, error) {
	start, err := ParseTimeOfDay(s.StartTime)
	if err != nil {
		return ScheduledWindow{}, err
	}
	end, err := ParseTimeOfDay(s.EndTime)
	if err != nil {
		return ScheduledWindow{}, err
	}
	return ScheduledWindow{StartMinutes: start, EndMinutes: end}, nil
}

// MinutesSinceMidnight expresses an instant as minutes into its local day.
func MinutesSinceMidnight(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// Classifier applies the grace-period rules to a check-in instant.
type Classifier struct {
	EarlyGraceMinutes int
	LateGraceMinutes  int
}

// NewClassifier returns a Classifier with the standard 30-minute early and
// 15-minute late grace windows.
func NewClassifier() *Classifier {
	return &Classifier{EarlyGraceMinutes: 30, LateGraceMinutes: 15}
}

// Classify labels a check-in Present or Late. A check-in before the early
// grace window or after the session has already ended is Late, as is one
// past the late grace bound. Pure function of its inputs.
func (c *Classifier) Classify(window ScheduledWindow, checkIn time.Time) Status {
	checkInMinutes := MinutesSinceMidnight(checkIn)
	earliestAllowed := window.StartMinutes - c.EarlyGraceMinutes
	latestOnTime := window.StartMinutes + c.LateGraceMinutes

	if checkInMinutes < earliestAllowed || checkInMinutes > window.EndMinutes {
		return StatusLate
	}
	if checkInMinutes > latestOnTime {
		return StatusLate
	}
	return StatusPresent
}
