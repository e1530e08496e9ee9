package models

import "time"

// CompanyLocation is a circular geofence site check-ins are validated
// against. Multiple sites may be active at once; containment against any
// one of them is sufficient.
type CompanyLocation struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:128;not null" json:"name"`
	Latitude     float64   `gorm:"not null" json:"latitude"`
	Longitude    float64   `gorm:"not null" json:"longitude"`
	RadiusMeters float64   `gorm:"not null" json:"radius_meters"`
	Active       bool      `gorm:"default:true;index" json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
