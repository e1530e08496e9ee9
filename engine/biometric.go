package engine

import (
	"context"
	"math"
)

// Calibrated thresholds. The verification cutoff is a security parameter:
// intentionally far stricter than the embedding provider's generic
// same-person default to curb false accepts.
const (
	DefaultVerifyDistanceMax     = 0.35
	DefaultReEnrollDistanceMax   = 0.8
	DefaultVerifyConfidenceFloor = 0.7
	DefaultEnrollConfidenceFloor = 0.5
)

// Detection is one face found in a frame by the embedding provider.
type Detection struct {
	Confidence float64   `json:"confidence"`
	Embedding  []float64 `json:"embedding"`
}

// FaceDetector is the camera + embedding provider collaborator.
type FaceDetector interface {
	DetectFaces(ctx context.Context, frame []byte) ([]Detection, error)
}

// Purpose selects which quality floor applies to detection gating.
type Purpose int

const (
	PurposeVerify Purpose = iota
	PurposeEnroll
)

// Matcher gates face detections and compares embeddings against a stored
// template.
type Matcher struct {
	VerifyDistanceMax     float64
	ReEnrollDistanceMax   float64
	VerifyConfidenceFloor float64
	EnrollConfidenceFloor float64
}

// NewMatcher returns a Matcher with the calibrated default thresholds.
func NewMatcher() *Matcher {
	return &Matcher{
		VerifyDistanceMax:     DefaultVerifyDistanceMax,
		ReEnrollDistanceMax:   DefaultReEnrollDistanceMax,
		VerifyConfidenceFloor: DefaultVerifyConfidenceFloor,
		EnrollConfidenceFloor: DefaultEnrollConfidenceFloor,
	}
}

func (m *Matcher) confidenceFloor(purpose Purpose) float64 {
	if purpose == PurposeEnroll {
		return m.EnrollConfidenceFloor
	}
	return m.VerifyConfidenceFloor
}

// GateSingleFace applies the detection gates, identical for enrollment and
// verification apart from the quality floor: exactly one face, confidence
// at or above the floor for the purpose.
func (m *Matcher) GateSingleFace(detections []Detection, purpose Purpose) (Detection, error) {
	if len(detections) == 0 {
		return Detection{}, ErrNoFaceDetected
	}
	if len(detections) > 1 {
		return Detection{}, ErrMultipleFacesDetected
	}
	det := detections[0]
	floor := m.confidenceFloor(purpose)
	if det.Confidence < floor {
		return Detection{}, &LowConfidenceError{Confidence: det.Confidence, Floor: floor}
	}
	return det, nil
}

// EuclideanDistance returns the L2 distance between two embeddings.
// Mismatched or empty vectors indicate a corrupt template.
func EuclideanDistance(a, b []float64) (float64, error) {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0, ErrTemplateCorrupt
	}
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return math.Sqrt(sum), nil
}

// MatchPercent converts a distance to the similarity percentage shown to
// users: max(0, (1-distance)*100).
func MatchPercent(distance float64) float64 {
	return math.Max(0, (1-distance)*100)
}

// VerifyResult carries the comparison outcome for display and audit.
type VerifyResult struct {
	Distance     float64 `json:"distance"`
	MatchPercent float64 `json:"match_percent"`
	Matched      bool    `json:"matched"`
}

// Verify compares a live embedding against the stored template. The cutoff
// is inclusive: distance exactly at the threshold is accepted. A rejection
// is returned as AccessDeniedError alongside the populated result.
func (m *Matcher) Verify(live, stored []float64) (VerifyResult, error) {
	d, err := EuclideanDistance(live, stored)
	if err != nil {
		return VerifyResult{}, err
	}
	res := VerifyResult{
		Distance:     d,
		MatchPercent: MatchPercent(d),
		Matched:      d <= m.VerifyDistanceMax,
	}
	if !res.Matched {
		return res, &AccessDeniedError{Distance: d, MatchPercent: res.MatchPercent}
	}
	return res, nil
}

// CheckReEnrollment is the looser continuity check used when replacing an
// existing template: is this plausibly the same person re-registering. It
// is not a security gate.
func (m *Matcher) CheckReEnrollment(live, stored []float64) error {
	d, err := EuclideanDistance(live, stored)
	if err != nil {
		return err
	}
	if d > m.ReEnrollDistanceMax {
		return &FaceMismatchError{Distance: d}
	}
	return nil
}
