// Package domain holds the thin user projection this core maintains.
//
// Users are owned by the identity service; this table only mirrors the
// entitlement flag the subscription lifecycle toggles.
package domain

import "time"

// User mirrors the subscribed flag for entitlement checks.
type User struct {
	ID           string    `gorm:"primaryKey;type:text" json:"id"`
	IsSubscribed bool      `gorm:"not null;default:false" json:"is_subscribed"`
	UpdatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }
