// Package domain contains persistence models for interview outcomes.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Outcome records one finished video interview for an application.
type Outcome struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	RoomID        string       `gorm:"type:text;not null" json:"room_id"`
	ApplicationID string       `gorm:"type:text;not null;index" json:"application_id"`
	UserID        string       `gorm:"type:text;not null;index" json:"user_id"`
	StartedAt     time.Time    `gorm:"not null" json:"started_at"`
	EndedAt       time.Time    `gorm:"not null" json:"ended_at"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (Outcome) TableName() string { return "interview_outcomes" }
