package engine

import (
	"context"
	"math"
	"time"
)

// Record is one check-in/check-out pair for one user. Created on a
// successful check-in gate pass, mutated once on check-out, never mutated
// afterward. A record with a nil CheckOutTime is the user's active record.
type Record struct {
	ID            string     `json:"id"`
	UserID        uint       `json:"user_id"`
	SessionTypeID uint       `json:"session_type_id"`
	CheckInTime   time.Time  `json:"check_in_time"`
	CheckOutTime  *time.Time `json:"check_out_time"`
	CheckInLat    *float64   `json:"check_in_lat"`
	CheckInLon    *float64   `json:"check_in_lon"`
	CheckOutLat   *float64   `json:"check_out_lat"`
	CheckOutLon   *float64   `json:"check_out_lon"`
	TotalHours    *float64   `json:"total_hours"`
	Status        Status     `json:"status"`
	Method        Method     `json:"method"`
}

// Active reports whether the record has a check-in but no check-out yet.
func (r *Record) Active() bool { return r != nil && r.CheckOutTime == nil }

// Store is the persistence collaborator. The engine assumes each call is
// atomic and never retries store failures; they are surfaced opaquely and
// leave engine state unchanged.
type Store interface {
	CreateRecord(ctx context.Context, rec *Record) error
	UpdateRecord(ctx context.Context, rec *Record) error
	FindActiveRecord(ctx context.Context, userID uint) (*Record, error)
	ListSessionTypes(ctx context.Context, activeOnly bool) ([]SessionType, error)
	ListSites(ctx context.Context, activeOnly bool) ([]Site, error)
	StoredTemplate(ctx context.Context, userID uint) ([]float64, error)
	SaveTemplate(ctx context.Context, userID uint, template []float64) error
}

// MinSessionDuration rejects instant double-taps that would produce
// degenerate zero-length sessions.
const MinSessionDuration = time.Minute

// Sessions owns the lifecycle of work sessions: not-started -> active ->
// completed, with at most one active record per user at any time.
type Sessions struct {
	store      Store
	matcher    *Matcher
	classifier *Classifier
	clock      Clock

	// MinDuration is the shortest accepted session length.
	MinDuration time.Duration
	// RefreshTemplate re-saves the live embedding as the user's template
	// after a successful check-in, keeping the reference current. Runs only
	// after the record write reports success; its own failure does not undo
	// the check-in.
	RefreshTemplate bool
}

// NewSessions wires the state machine with its collaborators.
func NewSessions(store Store, matcher *Matcher, classifier *Classifier, clock Clock) *Sessions {
	return &Sessions{
		store:           store,
		matcher:         matcher,
		classifier:      classifier,
		clock:           clock,
		MinDuration:     MinSessionDuration,
		RefreshTemplate: true,
	}
}

// CheckInRequest carries everything a check-in transition needs. Detections
// is the raw output of the face detector for the live frame; gating happens
// inside the transition. SkipLocation may only be set after the acquirer
// reported a failure and the operator explicitly opted in.
type CheckInRequest struct {
	UserID        uint
	SessionTypeID uint
	Sample        *Position
	SkipLocation  bool
	Detections    []Detection
}

// CheckInResult is the successful transition outcome.
type CheckInResult struct {
	Record      *Record      `json:"record"`
	Verify      VerifyResult `json:"verify"`
	Containment Containment  `json:"-"`
	Nearest     *SiteMatch   `json:"nearest_site,omitempty"`
}

// CheckIn runs the NotStarted -> Active transition. Preconditions are
// checked in order and the first failure wins; any failure leaves state
// unchanged.
func (s *Sessions) CheckIn(ctx context.Context, req CheckInRequest) (*CheckInResult, error) {
	// 1. no existing active record for this user
	active, err := s.store.FindActiveRecord(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if active.Active() {
		return nil, ErrAlreadyActive
	}

	// 2. a session type is selected
	if req.SessionTypeID == 0 {
		return nil, ErrNoSessionSelected
	}
	sessionType, err := s.findSessionType(ctx, req.SessionTypeID)
	if err != nil {
		return nil, err
	}
	window, err := sessionType.Window()
	if err != nil {
		return nil, err
	}

	// 3. a geolocation sample is available (unless skipping after failure)
	if req.Sample == nil && !req.SkipLocation {
		return nil, ErrNoLocationSample
	}

	// 4. geofence: reject only an explicit Outside; Unknown is non-blocking
	containment := ContainmentUnknown
	var nearest *SiteMatch
	if !req.SkipLocation {
		sites, err := s.store.ListSites(ctx, true)
		if err != nil {
			return nil, err
		}
		containment, nearest = EvaluateGeofence(req.Sample, sites)
		if containment == ContainmentOutside {
			return nil, ErrOutsideGeofence
		}
	}

	// 5. biometric verification against the stored template
	stored, err := s.store.StoredTemplate(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, ErrTemplateNotEnrolled
	}
	det, err := s.matcher.GateSingleFace(req.Detections, PurposeVerify)
	if err != nil {
		return nil, err
	}
	verify, err := s.matcher.Verify(det.Embedding, stored)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	rec := &Record{
		UserID:        req.UserID,
		SessionTypeID: sessionType.ID,
		CheckInTime:   now,
		Status:        s.classifier.Classify(window, now),
		Method:        MethodFacial,
	}
	if req.Sample != nil {
		lat, lon := req.Sample.Latitude, req.Sample.Longitude
		rec.CheckInLat, rec.CheckInLon = &lat, &lon
	}

	if err := s.store.CreateRecord(ctx, rec); err != nil {
		return nil, err
	}

	if s.RefreshTemplate {
		// best effort: the check-in already succeeded
		_ = s.store.SaveTemplate(ctx, req.UserID, det.Embedding)
	}

	return &CheckInResult{Record: rec, Verify: verify, Containment: containment, Nearest: nearest}, nil
}

// CheckOutRequest carries the Active -> Completed transition inputs.
type CheckOutRequest struct {
	UserID uint
	Sample *Position
}

// CheckOut runs the Active -> Completed transition.
func (s *Sessions) CheckOut(ctx context.Context, req CheckOutRequest) (*Record, error) {
	active, err := s.store.FindActiveRecord(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if !active.Active() {
		return nil, ErrRecordNotFound
	}

	// 1. check-out requires a location snapshot the same as check-in does
	if req.Sample == nil {
		return nil, ErrNoLocationSample
	}

	// 2. elapsed time since check-in must reach the minimum
	now := s.clock.Now()
	elapsed := now.Sub(active.CheckInTime)
	if elapsed < s.MinDuration {
		return nil, ErrMinimumDuration
	}

	updated := *active
	checkout := now
	lat, lon := req.Sample.Latitude, req.Sample.Longitude
	hours := RoundHours(elapsed)
	updated.CheckOutTime = &checkout
	updated.CheckOutLat, updated.CheckOutLon = &lat, &lon
	updated.TotalHours = &hours

	if err := s.store.UpdateRecord(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// RoundHours converts an elapsed duration to hours rounded to 2 decimals.
func RoundHours(d time.Duration) float64 {
	return math.Round(d.Hours()*100) / 100
}

func (s *Sessions) findSessionType(ctx context.Context, id uint) (SessionType, error) {
	types, err := s.store.ListSessionTypes(ctx, true)
	if err != nil {
		return SessionType{}, err
	}
	for _, t := range types {
		if t.ID == id {
			return t, nil
		}
	}
	return SessionType{}, ErrNoSessionSelected
}
