// Package domain defines the subscription lifecycle records and contracts.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Status is the persisted lifecycle state of a subscription record.
// A record only exists once the gateway confirms payment, so there is no
// persisted pending state.
type Status string

const (
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// Subscription is one purchased plan term for a user. Plan fields are
// snapshotted at creation time so later catalog edits do not rewrite
// history. At most one record per user carries IsCurrent=true.
type Subscription struct {
	ID     snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID string       `gorm:"type:text;not null;index" json:"user_id"`

	PlanID   snowflake.ID                `gorm:"not null" json:"plan_id"`
	PlanName string                      `gorm:"type:text;not null" json:"plan_name"`
	Price    int64                       `gorm:"not null" json:"price"`
	Features datatypes.JSONSlice[string] `gorm:"type:jsonb;not null;default:'[]'" json:"features"`

	StartDate time.Time `gorm:"not null" json:"start_date"`
	EndDate   time.Time `gorm:"not null;index" json:"end_date"`

	// PaymentID holds the provider id of the last applied charge. It is
	// the dedupe key that keeps a replayed charge from extending EndDate
	// twice.
	PaymentID     string `gorm:"type:text;index" json:"payment_id"`
	OrderID       string `gorm:"type:text;index" json:"order_id"`
	ProviderSubID string `gorm:"type:text;index" json:"-"`

	Status    Status `gorm:"type:text;not null" json:"status"`
	IsCurrent bool   `gorm:"not null;default:false;index" json:"is_current"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }

// EventRecord stores every received webhook delivery keyed by the
// provider's event id. The unique index is what makes replays idempotent.
type EventRecord struct {
	ID              snowflake.ID   `gorm:"primaryKey"`
	Provider        string         `gorm:"type:text;not null;uniqueIndex:idx_webhook_provider_event"`
	ProviderEventID string         `gorm:"type:text;not null;uniqueIndex:idx_webhook_provider_event"`
	EventType       string         `gorm:"type:text;not null"`
	Payload         datatypes.JSON `gorm:"type:jsonb"`
	ReceivedAt      time.Time      `gorm:"not null"`
	ProcessedAt     *time.Time
}

// TableName sets the database table name.
func (EventRecord) TableName() string { return "webhook_events" }
