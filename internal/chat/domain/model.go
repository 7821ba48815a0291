// Package domain contains persistence models for chat between users and
// companies.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Sender identifies which side of the conversation wrote a message.
type Sender string

const (
	SenderUser    Sender = "user"
	SenderCompany Sender = "company"
)

// Message is one chat message between a user and a company. User and
// company ids are minted upstream by the identity service and stored
// verbatim.
type Message struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID    string       `gorm:"type:text;not null;index:idx_messages_pair" json:"user_id"`
	CompanyID string       `gorm:"type:text;not null;index:idx_messages_pair" json:"company_id"`
	Sender    Sender       `gorm:"type:text;not null" json:"sender"`
	Content   string       `gorm:"type:text;not null" json:"content"`
	SentAt    time.Time    `gorm:"not null" json:"sent_at"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (Message) TableName() string { return "messages" }
