package models

import "time"

// APIAudit stores aggregated attendance-API call counts per day, path and
// user, giving administrators a lightweight trail of who hit which
// endpoint without logging every request body.
type APIAudit struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Date      time.Time `gorm:"index:idx_audit_date_path_user,unique;type:date;not null" json:"date"`
	Path      string    `gorm:"index:idx_audit_date_path_user,unique;size:255;not null" json:"path"`
	UserID    uint      `gorm:"index:idx_audit_date_path_user,unique;not null" json:"user_id"`
	Count     int64     `gorm:"not null;default:0" json:"count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
