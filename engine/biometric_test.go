package engine

import (
	"errors"
	"math"
	"testing"
)

// embeddingAtDistance builds a unit-direction vector pair exactly d apart.
func embeddingAtDistance(d float64) (a, b []float64) {
	a = make([]float64, 128)
	b = make([]float64, 128)
	a[0] = 0
	b[0] = d
	return a, b
}

func TestGateSingleFace(t *testing.T) {
	m := NewMatcher()

	if _, err := m.GateSingleFace(nil, PurposeVerify); !errors.Is(err, ErrNoFaceDetected) {
		t.Fatalf("zero faces: got %v", err)
	}

	two := []Detection{{Confidence: 0.9}, {Confidence: 0.9}}
	_, err := m.GateSingleFace(two, PurposeVerify)
	if !errors.Is(err, ErrMultipleFacesDetected) {
		t.Fatalf("two faces must be MultipleFacesDetected, got %v", err)
	}
	if errors.Is(err, ErrNoFaceDetected) {
		t.Fatal("two faces must not be reported as NoFaceDetected")
	}

	low := []Detection{{Confidence: 0.69, Embedding: []float64{1}}}
	var lce *LowConfidenceError
	if _, err := m.GateSingleFace(low, PurposeVerify); !errors.As(err, &lce) {
		t.Fatalf("verify floor 0.7: got %v", err)
	} else if lce.Floor != 0.7 {
		t.Fatalf("wrong verify floor %v", lce.Floor)
	}

	// 0.69 clears the looser enrollment floor
	if _, err := m.GateSingleFace(low, PurposeEnroll); err != nil {
		t.Fatalf("enroll floor 0.5: got %v", err)
	}
	tooLow := []Detection{{Confidence: 0.49}}
	if _, err := m.GateSingleFace(tooLow, PurposeEnroll); !errors.As(err, &lce) {
		t.Fatalf("below enroll floor: got %v", err)
	}
}

func TestVerifyThresholdBoundary(t *testing.T) {
	m := NewMatcher()

	live, stored := embeddingAtDistance(0.35)
	res, err := m.Verify(live, stored)
	if err != nil || !res.Matched {
		t.Fatalf("distance exactly 0.35 must match: res=%+v err=%v", res, err)
	}

	live, stored = embeddingAtDistance(0.350001)
	res, err = m.Verify(live, stored)
	var denied *AccessDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("distance 0.350001 must be AccessDenied, got %v", err)
	}
	if res.Matched {
		t.Fatal("result must not be marked matched on denial")
	}
	wantPct := MatchPercent(0.350001)
	if math.Abs(denied.MatchPercent-wantPct) > 1e-9 {
		t.Fatalf("denial must report computed match%%: got %v want %v", denied.MatchPercent, wantPct)
	}
}

func TestReEnrollmentThresholdBoundary(t *testing.T) {
	m := NewMatcher()

	live, stored := embeddingAtDistance(0.8)
	if err := m.CheckReEnrollment(live, stored); err != nil {
		t.Fatalf("distance exactly 0.8 must pass continuity: %v", err)
	}

	live, stored = embeddingAtDistance(0.800001)
	var mismatch *FaceMismatchError
	if err := m.CheckReEnrollment(live, stored); !errors.As(err, &mismatch) {
		t.Fatalf("distance 0.800001 must be FaceMismatch, got %v", err)
	}
}

func TestMatchPercent(t *testing.T) {
	cases := []struct {
		distance float64
		want     float64
	}{
		{0, 100},
		{0.35, 65},
		{1, 0},
		{1.5, 0}, // clamped, never negative
	}
	for _, c := range cases {
		if got := MatchPercent(c.distance); math.Abs(got-c.want) > 1e-9 {
			t.Fatalf("MatchPercent(%v) = %v, want %v", c.distance, got, c.want)
		}
	}
}

func TestEuclideanDistanceCorruptTemplate(t *testing.T) {
	if _, err := EuclideanDistance([]float64{1, 2}, []float64{1}); !errors.Is(err, ErrTemplateCorrupt) {
		t.Fatalf("length mismatch: got %v", err)
	}
	if _, err := EuclideanDistance(nil, []float64{1}); !errors.Is(err, ErrTemplateCorrupt) {
		t.Fatalf("empty vector: got %v", err)
	}
}

func TestEnrollmentFlow(t *testing.T) {
	e := NewEnrollment(NewMatcher())

	angle, ok := e.NextAngle()
	if !ok || angle != AngleForward {
		t.Fatalf("first capture must be forward, got %v %v", angle, ok)
	}

	samples := [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	for i, s := range samples {
		if e.Step() != i+1 {
			t.Fatalf("step %d, want %d", e.Step(), i+1)
		}
		if err := e.Capture([]Detection{{Confidence: 0.6, Embedding: s}}); err != nil {
			t.Fatalf("capture %d: %v", i+1, err)
		}
	}
	if !e.Complete() {
		t.Fatal("three samples should complete the capture")
	}
	if _, ok := e.NextAngle(); ok {
		t.Fatal("no angle expected after completion")
	}

	template, err := e.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	third := 1.0 / 3.0
	for i, v := range template {
		if math.Abs(v-third) > 1e-12 {
			t.Fatalf("template[%d] = %v, want %v", i, v, third)
		}
	}
}

func TestEnrollmentResetDiscardsAllSamples(t *testing.T) {
	e := NewEnrollment(NewMatcher())
	_ = e.Capture([]Detection{{Confidence: 0.9, Embedding: []float64{1}}})
	_ = e.Capture([]Detection{{Confidence: 0.9, Embedding: []float64{2}}})

	e.Reset()
	if e.Step() != 1 {
		t.Fatalf("reset must restart at step 1, got %d", e.Step())
	}
	if _, err := e.Finalize(); !errors.Is(err, ErrEnrollmentIncomplete) {
		t.Fatalf("finalize after reset: got %v", err)
	}
}

func TestEnrollmentGatesApply(t *testing.T) {
	e := NewEnrollment(NewMatcher())

	if err := e.Capture(nil); !errors.Is(err, ErrNoFaceDetected) {
		t.Fatalf("no face: %v", err)
	}
	two := []Detection{{Confidence: 0.9}, {Confidence: 0.9}}
	if err := e.Capture(two); !errors.Is(err, ErrMultipleFacesDetected) {
		t.Fatalf("multi face: %v", err)
	}
	if e.Step() != 1 {
		t.Fatalf("failed captures must not advance, step=%d", e.Step())
	}
}
