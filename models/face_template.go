package models

import (
	"encoding/json"
	"time"
)

// FaceTemplate is the single biometric reference stored per user: a
// fixed-length embedding kept as a JSON column, with a decoded helper
// field for comparisons.
type FaceTemplate struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	UserID     uint            `gorm:"not null;uniqueIndex" json:"user_id"`
	Embedding  json.RawMessage `gorm:"type:json" json:"-"`
	Vector     []float64       `gorm:"-" json:"embedding"`
	EnrolledAt time.Time       `json:"enrolled_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// DecodeVector unmarshals the stored JSON embedding into Vector.
func (t *FaceTemplate) DecodeVector() error {
	if len(t.Embedding) == 0 {
		t.Vector = nil
		return nil
	}
	return json.Unmarshal(t.Embedding, &t.Vector)
}

// EncodeVector marshals Vector into the stored JSON column.
func (t *FaceTemplate) EncodeVector() error {
	raw, err := json.Marshal(t.Vector)
	if err != nil {
		return err
	}
	t.Embedding = raw
	return nil
}
