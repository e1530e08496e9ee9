package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AttendanceRecord stores one check-in/check-out pair. A row with a NULL
// check_out_time is the user's active record; at most one such row may
// exist per user at any time.
type AttendanceRecord struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	UserID        uint       `gorm:"not null;index:idx_attendance_user_open" json:"user_id"`
	SessionTypeID uint       `gorm:"not null;index" json:"session_type_id"`
	CheckInTime   time.Time  `gorm:"not null;index" json:"check_in_time"`
	CheckOutTime  *time.Time `gorm:"index:idx_attendance_user_open" json:"check_out_time"`
	CheckInLat    *float64   `json:"check_in_lat"`
	CheckInLon    *float64   `json:"check_in_lon"`
	CheckOutLat   *float64   `json:"check_out_lat"`
	CheckOutLon   *float64   `json:"check_out_lon"`
	TotalHours    *float64   `json:"total_hours"`
	Status        string     `gorm:"size:16;not null" json:"status"`
	Method        string     `gorm:"size:16;not null;default:facial" json:"method"`
	RequestID     string     `gorm:"size:36" json:"request_id"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// BeforeCreate assigns the record id when the caller did not.
func (r *AttendanceRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
