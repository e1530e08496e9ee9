package models

import (
	"time"

	"gorm.io/gorm"
)

// Roles recognized by the API. Admins manage sites and session types.
const (
	RoleEmployee = "employee"
	RoleAdmin    = "admin"
)

// User represents an employee account. Passwords are stored as bcrypt hashes only.
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Username     string         `gorm:"size:64;not null;uniqueIndex" json:"username"`
	Email        string         `gorm:"size:255" json:"email"`
	FullName     string         `gorm:"size:128" json:"full_name"`
	PasswordHash string         `gorm:"size:255" json:"-"`
	Role         string         `gorm:"size:32;default:employee" json:"role"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}

// IsAdmin reports whether the user may manage reference data.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }
