package engine

// EnrollmentAngle names the head pose requested for one capture step.
type EnrollmentAngle string

const (
	AngleForward EnrollmentAngle = "forward"
	AngleRight   EnrollmentAngle = "right"
	AngleLeft    EnrollmentAngle = "left"
)

// EnrollmentAngles is the capture sequence; a template is finalized only
// after one sample per angle.
var EnrollmentAngles = []EnrollmentAngle{AngleForward, AngleRight, AngleLeft}

// Enrollment tracks an in-progress multi-sample template capture. Not safe
// for concurrent use; one enrollment runs per user at a time.
type Enrollment struct {
	matcher *Matcher
	samples [][]float64
}

// NewEnrollment starts a capture session at step 1.
func NewEnrollment(matcher *Matcher) *Enrollment {
	return &Enrollment{matcher: matcher}
}

// Step returns the 1-based step of the next capture.
func (e *Enrollment) Step() int { return len(e.samples) + 1 }

// NextAngle returns the pose expected for the next capture, or false when
// all samples are collected.
func (e *Enrollment) NextAngle() (EnrollmentAngle, bool) {
	if len(e.samples) >= len(EnrollmentAngles) {
		return "", false
	}
	return EnrollmentAngles[len(e.samples)], true
}

// Capture gates one detection result under the enrollment quality floor and
// records its embedding as the sample for the current angle.
func (e *Enrollment) Capture(detections []Detection) error {
	if len(e.samples) >= len(EnrollmentAngles) {
		return ErrEnrollmentIncomplete // already complete; finalize or reset
	}
	det, err := e.matcher.GateSingleFace(detections, PurposeEnroll)
	if err != nil {
		return err
	}
	sample := make([]float64, len(det.Embedding))
	copy(sample, det.Embedding)
	e.samples = append(e.samples, sample)
	return nil
}

// Reset discards all captured samples and restarts at step 1. Resetting any
// individual step discards the whole in-progress enrollment.
func (e *Enrollment) Reset() {
	e.samples = nil
}

// Complete reports whether every angle has a sample.
func (e *Enrollment) Complete() bool {
	return len(e.samples) == len(EnrollmentAngles)
}

// Finalize averages the captured samples into the reference template.
func (e *Enrollment) Finalize() ([]float64, error) {
	if !e.Complete() {
		return nil, ErrEnrollmentIncomplete
	}
	dim := len(e.samples[0])
	for _, s := range e.samples {
		if len(s) != dim || dim == 0 {
			return nil, ErrTemplateCorrupt
		}
	}
	template := make([]float64, dim)
	for _, s := range e.samples {
		for i, v := range s {
			template[i] += v
		}
	}
	n := float64(len(e.samples))
	for i := range template {
		template[i] /= n
	}
	return template, nil
}
