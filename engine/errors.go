package engine

import (
	"errors"
	"fmt"
)

// Geolocation failures. Only these are ever retried, and only by the
// Acquirer; everything else is surfaced once and requires a new user action.
var (
	ErrPermissionDenied    = errors.New("location permission denied")
	ErrPositionUnavailable = errors.New("position unavailable")
	ErrLocationTimeout     = errors.New("location request timed out")
	ErrUnknownLocation     = errors.New("unknown location error")
)

// RetriesExhaustedError is returned by the Acquirer after all attempts for
// one acquisition chain failed. Terminal until a fresh manual retry.
type RetriesExhaustedError struct {
	Cause    error
	Attempts int
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("location retries exhausted after %d attempts: %v", e.Attempts, e.Cause)
}

func (e *RetriesExhaustedError) Unwrap() error { return e.Cause }

// Biometric failures.
var (
	ErrNoFaceDetected        = errors.New("no face detected")
	ErrMultipleFacesDetected = errors.New("multiple faces detected")
	ErrTemplateCorrupt       = errors.New("stored face template is corrupt or unreadable")
	ErrTemplateNotEnrolled   = errors.New("no face template enrolled for user")
	ErrEnrollmentIncomplete  = errors.New("enrollment capture is incomplete")
)

// LowConfidenceError reports a detection below the quality floor for the
// requested purpose.
type LowConfidenceError struct {
	Confidence float64
	Floor      float64
}

func (e *LowConfidenceError) Error() string {
	return fmt.Sprintf("detection confidence %.2f below required %.2f", e.Confidence, e.Floor)
}

// AccessDeniedError reports a verification distance above the acceptance
// threshold. MatchPercent carries the display value shown to the user.
type AccessDeniedError struct {
	Distance     float64
	MatchPercent float64
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("access denied: face match %.0f%% (distance %.4f)", e.MatchPercent, e.Distance)
}

// FaceMismatchError reports a re-enrollment attempt whose captured face is
// not plausibly the same person as the existing template.
type FaceMismatchError struct {
	Distance float64
}

func (e *FaceMismatchError) Error() string {
	return fmt.Sprintf("face does not match the registered identity (distance %.4f)", e.Distance)
}

// Session transition failures. Each maps to one human-readable message at
// the HTTP boundary; a rejected transition never mutates state.
var (
	ErrAlreadyActive     = errors.New("must check out of current session first")
	ErrNoSessionSelected = errors.New("no session type selected")
	ErrNoLocationSample  = errors.New("a location sample is required")
	ErrOutsideGeofence   = errors.New("location is outside all permitted work sites")
	ErrMinimumDuration   = errors.New("minimum session duration not met")
	ErrRecordNotFound    = errors.New("no active attendance record found")
)
