package engine

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time                  { return c.now }
func (c *fakeClock) Advance(d time.Duration)         { c.now = c.now.Add(d) }
func newFakeClock(hour, minute int) *fakeClock {
	return &fakeClock{now: time.Date(2026, 8, 23, hour, minute, 0, 0, time.Local)}
}

type fakeStore struct {
	records      []*Record
	sessionTypes []SessionType
	sites        []Site
	templates    map[uint][]float64

	createErr    error
	updateErr    error
	templateSets int
	nextID       int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessionTypes: []SessionType{{ID: 1, Name: "Morning Shift", StartTime: "09:00", EndTime: "17:00"}},
		sites:        []Site{{ID: 1, Name: "HQ", Latitude: 21.033618, Longitude: 105.7796304, RadiusMeters: 100}},
		templates:    map[uint][]float64{},
	}
}

func (s *fakeStore) CreateRecord(ctx context.Context, rec *Record) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.nextID++
	rec.ID = time.Now().Format("20060102") + "-" + string(rune('a'+s.nextID))
	cp := *rec
	s.records = append(s.records, &cp)
	return nil
}

func (s *fakeStore) UpdateRecord(ctx context.Context, rec *Record) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	for i, r := range s.records {
		if r.ID == rec.ID {
			cp := *rec
			s.records[i] = &cp
			return nil
		}
	}
	return ErrRecordNotFound
}

func (s *fakeStore) FindActiveRecord(ctx context.Context, userID uint) (*Record, error) {
	for _, r := range s.records {
		if r.UserID == userID && r.CheckOutTime == nil {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) ListSessionTypes(ctx context.Context, activeOnly bool) ([]SessionType, error) {
	return s.sessionTypes, nil
}

func (s *fakeStore) ListSites(ctx context.Context, activeOnly bool) ([]Site, error) {
	return s.sites, nil
}

func (s *fakeStore) StoredTemplate(ctx context.Context, userID uint) ([]float64, error) {
	return s.templates[userID], nil
}

func (s *fakeStore) SaveTemplate(ctx context.Context, userID uint, template []float64) error {
	s.templateSets++
	s.templates[userID] = template
	return nil
}

func onSitePosition() *Position {
	return &Position{Coordinates: Coordinates{Latitude: 21.033618, Longitude: 105.7796304}}
}

func matchingDetections(stored []float64) []Detection {
	live := make([]float64, len(stored))
	copy(live, stored)
	return []Detection{{Confidence: 0.95, Embedding: live}}
}

func newTestSessions(store *fakeStore, clock Clock) *Sessions {
	return NewSessions(store, NewMatcher(), NewClassifier(), clock)
}

func enrollUser(store *fakeStore, userID uint) []float64 {
	tpl := make([]float64, 128)
	tpl[0] = 0.5
	store.templates[userID] = tpl
	return tpl
}

func TestCheckInHappyPath(t *testing.T) {
	store := newFakeStore()
	clock := newFakeClock(8, 45)
	s := newTestSessions(store, clock)
	tpl := enrollUser(store, 7)

	res, err := s.CheckIn(context.Background(), CheckInRequest{
		UserID:        7,
		SessionTypeID: 1,
		Sample:        onSitePosition(),
		Detections:    matchingDetections(tpl),
	})
	if err != nil {
		t.Fatalf("check-in: %v", err)
	}
	rec := res.Record
	if rec.Status != StatusPresent {
		t.Fatalf("08:45 within early grace: status %v", rec.Status)
	}
	if rec.Method != MethodFacial {
		t.Fatalf("method %v", rec.Method)
	}
	if rec.CheckOutTime != nil || rec.TotalHours != nil {
		t.Fatal("fresh record must have no checkout fields")
	}
	if rec.CheckInLat == nil || *rec.CheckInLat != 21.033618 {
		t.Fatalf("check-in location snapshot missing: %+v", rec)
	}
	if !res.Verify.Matched || res.Verify.Distance != 0 {
		t.Fatalf("verify result %+v", res.Verify)
	}
	if res.Containment != ContainmentWithin {
		t.Fatalf("containment %v", res.Containment)
	}
}

func TestCheckInActiveRecordInvariant(t *testing.T) {
	store := newFakeStore()
	clock := newFakeClock(9, 0)
	s := newTestSessions(store, clock)
	tpl := enrollUser(store, 7)

	req := CheckInRequest{UserID: 7, SessionTypeID: 1, Sample: onSitePosition(), Detections: matchingDetections(tpl)}
	if _, err := s.CheckIn(context.Background(), req); err != nil {
		t.Fatalf("first check-in: %v", err)
	}

	_, err := s.CheckIn(context.Background(), req)
	if !errors.Is(err, ErrAlreadyActive) {
		t.Fatalf("second check-in must fail with AlreadyActive, got %v", err)
	}
	if len(store.records) != 1 {
		t.Fatalf("rejected transition created a record: %d records", len(store.records))
	}
}

func TestCheckInPreconditionOrder(t *testing.T) {
	store := newFakeStore()
	clock := newFakeClock(9, 0)
	s := newTestSessions(store, clock)

	// no session selected wins before location and biometric gates
	_, err := s.CheckIn(context.Background(), CheckInRequest{UserID: 7})
	if !errors.Is(err, ErrNoSessionSelected) {
		t.Fatalf("want NoSessionSelected, got %v", err)
	}

	// unknown session type id is also a selection failure
	_, err = s.CheckIn(context.Background(), CheckInRequest{UserID: 7, SessionTypeID: 99, Sample: onSitePosition()})
	if !errors.Is(err, ErrNoSessionSelected) {
		t.Fatalf("unknown session type: want NoSessionSelected, got %v", err)
	}

	// missing sample before geofence/biometric
	_, err = s.CheckIn(context.Background(), CheckInRequest{UserID: 7, SessionTypeID: 1})
	if !errors.Is(err, ErrNoLocationSample) {
		t.Fatalf("want NoLocationSample, got %v", err)
	}
}

func TestCheckInOutsideGeofence(t *testing.T) {
	store := newFakeStore()
	clock := newFakeClock(9, 0)
	s := newTestSessions(store, clock)
	tpl := enrollUser(store, 7)

	offSite := &Position{Coordinates: Coordinates{Latitude: 10.8380556, Longitude: 106.7351069}}
	_, err := s.CheckIn(context.Background(), CheckInRequest{
		UserID: 7, SessionTypeID: 1, Sample: offSite, Detections: matchingDetections(tpl),
	})
	if !errors.Is(err, ErrOutsideGeofence) {
		t.Fatalf("want OutsideGeofence, got %v", err)
	}
	if len(store.records) != 0 {
		t.Fatal("rejected transition must not create a record")
	}
}

func TestCheckInUnknownGeofenceAllows(t *testing.T) {
	store := newFakeStore()
	store.sites = nil // no sites configured: containment is unknown
	clock := newFakeClock(9, 0)
	s := newTestSessions(store, clock)
	tpl := enrollUser(store, 7)

	res, err := s.CheckIn(context.Background(), CheckInRequest{
		UserID: 7, SessionTypeID: 1, Sample: onSitePosition(), Detections: matchingDetections(tpl),
	})
	if err != nil {
		t.Fatalf("unknown containment must not block: %v", err)
	}
	if res.Containment != ContainmentUnknown {
		t.Fatalf("containment %v", res.Containment)
	}
}

func TestCheckInSkipLocation(t *testing.T) {
	store := newFakeStore()
	clock := newFakeClock(9, 0)
	s := newTestSessions(store, clock)
	tpl := enrollUser(store, 7)

	res, err := s.CheckIn(context.Background(), CheckInRequest{
		UserID: 7, SessionTypeID: 1, SkipLocation: true, Detections: matchingDetections(tpl),
	})
	if err != nil {
		t.Fatalf("skip-location check-in: %v", err)
	}
	if res.Record.CheckInLat != nil {
		t.Fatal("skipped location must leave the snapshot empty")
	}
}

func TestCheckInBiometricGates(t *testing.T) {
	store := newFakeStore()
	clock := newFakeClock(9, 0)
	s := newTestSessions(store, clock)

	// not enrolled
	_, err := s.CheckIn(context.Background(), CheckInRequest{
		UserID: 7, SessionTypeID: 1, Sample: onSitePosition(),
		Detections: []Detection{{Confidence: 0.9, Embedding: []float64{1}}},
	})
	if !errors.Is(err, ErrTemplateNotEnrolled) {
		t.Fatalf("want TemplateNotEnrolled, got %v", err)
	}

	tpl := enrollUser(store, 7)

	// two faces: comparison must not be attempted
	_, err = s.CheckIn(context.Background(), CheckInRequest{
		UserID: 7, SessionTypeID: 1, Sample: onSitePosition(),
		Detections: []Detection{{Confidence: 0.9, Embedding: tpl}, {Confidence: 0.9, Embedding: tpl}},
	})
	if !errors.Is(err, ErrMultipleFacesDetected) {
		t.Fatalf("want MultipleFacesDetected, got %v", err)
	}

	// distance over threshold
	far := make([]float64, len(tpl))
	copy(far, tpl)
	far[0] += 0.5
	_, err = s.CheckIn(context.Background(), CheckInRequest{
		UserID: 7, SessionTypeID: 1, Sample: onSitePosition(),
		Detections: []Detection{{Confidence: 0.9, Embedding: far}},
	})
	var denied *AccessDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("want AccessDenied, got %v", err)
	}
	if len(store.records) != 0 {
		t.Fatal("no record on any biometric rejection")
	}
}

func TestCheckInTemplateRefreshOnlyAfterCreate(t *testing.T) {
	store := newFakeStore()
	clock := newFakeClock(9, 0)
	s := newTestSessions(store, clock)
	tpl := enrollUser(store, 7)

	store.createErr = errors.New("store unavailable")
	_, err := s.CheckIn(context.Background(), CheckInRequest{
		UserID: 7, SessionTypeID: 1, Sample: onSitePosition(), Detections: matchingDetections(tpl),
	})
	if err == nil || !errors.Is(err, store.createErr) {
		t.Fatalf("store failure must surface, got %v", err)
	}
	if store.templateSets != 0 {
		t.Fatal("template must not refresh when the record write failed")
	}

	store.createErr = nil
	if _, err := s.CheckIn(context.Background(), CheckInRequest{
		UserID: 7, SessionTypeID: 1, Sample: onSitePosition(), Detections: matchingDetections(tpl),
	}); err != nil {
		t.Fatalf("check-in: %v", err)
	}
	if store.templateSets != 1 {
		t.Fatalf("template refresh expected after success, got %d", store.templateSets)
	}
}

func TestCheckOutRoundTrip(t *testing.T) {
	store := newFakeStore()
	clock := newFakeClock(9, 0)
	s := newTestSessions(store, clock)
	tpl := enrollUser(store, 7)

	if _, err := s.CheckIn(context.Background(), CheckInRequest{
		UserID: 7, SessionTypeID: 1, Sample: onSitePosition(), Detections: matchingDetections(tpl),
	}); err != nil {
		t.Fatalf("check-in: %v", err)
	}

	// 30s elapsed: below the minimum
	clock.Advance(30 * time.Second)
	_, err := s.CheckOut(context.Background(), CheckOutRequest{UserID: 7, Sample: onSitePosition()})
	if !errors.Is(err, ErrMinimumDuration) {
		t.Fatalf("30s session: want MinimumDuration, got %v", err)
	}
	if active, _ := store.FindActiveRecord(context.Background(), 7); !active.Active() {
		t.Fatal("rejected check-out must leave the record active")
	}

	// 90s elapsed: accepted, total_hours = round(0.025, 2)
	clock.Advance(60 * time.Second)
	rec, err := s.CheckOut(context.Background(), CheckOutRequest{UserID: 7, Sample: onSitePosition()})
	if err != nil {
		t.Fatalf("90s session: %v", err)
	}
	if rec.CheckOutTime == nil || rec.TotalHours == nil {
		t.Fatalf("checkout fields missing: %+v", rec)
	}
	want := RoundHours(90 * time.Second)
	if math.Abs(*rec.TotalHours-want) > 1e-9 {
		t.Fatalf("total hours %v, want %v", *rec.TotalHours, want)
	}
	if rec.CheckOutLat == nil || *rec.CheckOutLat != 21.033618 {
		t.Fatal("check-out location snapshot missing")
	}

	if active, _ := store.FindActiveRecord(context.Background(), 7); active != nil {
		t.Fatal("record should be completed")
	}
}

func TestCheckOutPreconditions(t *testing.T) {
	store := newFakeStore()
	clock := newFakeClock(9, 0)
	s := newTestSessions(store, clock)

	_, err := s.CheckOut(context.Background(), CheckOutRequest{UserID: 7, Sample: onSitePosition()})
	if !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("no active record: want RecordNotFound, got %v", err)
	}

	tpl := enrollUser(store, 7)
	if _, err := s.CheckIn(context.Background(), CheckInRequest{
		UserID: 7, SessionTypeID: 1, Sample: onSitePosition(), Detections: matchingDetections(tpl),
	}); err != nil {
		t.Fatalf("check-in: %v", err)
	}
	clock.Advance(2 * time.Minute)

	_, err = s.CheckOut(context.Background(), CheckOutRequest{UserID: 7})
	if !errors.Is(err, ErrNoLocationSample) {
		t.Fatalf("missing sample: want NoLocationSample, got %v", err)
	}
}

func TestCheckOutStoreFailureLeavesStateUnchanged(t *testing.T) {
	store := newFakeStore()
	clock := newFakeClock(9, 0)
	s := newTestSessions(store, clock)
	tpl := enrollUser(store, 7)

	if _, err := s.CheckIn(context.Background(), CheckInRequest{
		UserID: 7, SessionTypeID: 1, Sample: onSitePosition(), Detections: matchingDetections(tpl),
	}); err != nil {
		t.Fatalf("check-in: %v", err)
	}
	clock.Advance(2 * time.Minute)

	store.updateErr = errors.New("store unavailable")
	if _, err := s.CheckOut(context.Background(), CheckOutRequest{UserID: 7, Sample: onSitePosition()}); err == nil {
		t.Fatal("expected store failure to surface")
	}
	if active, _ := store.FindActiveRecord(context.Background(), 7); !active.Active() {
		t.Fatal("failed update must leave the record active")
	}
}

func TestRoundHours(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want float64
	}{
		{90 * time.Second, 0.03}, // 0.025h rounds half away from zero
		{36 * time.Minute, 0.6},
		{8 * time.Hour, 8},
		{7*time.Hour + 59*time.Minute, 7.98},
	}
	for _, c := range cases {
		if got := RoundHours(c.d); math.Abs(got-c.want) > 1e-9 {
			t.Errorf("RoundHours(%v) = %v, want %v", c.d, got, c.want)
		}
	}
}
