package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, record *Subscription) error
	Update(ctx context.Context, db *gorm.DB, record *Subscription) error

	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Subscription, error)
	FindCurrentByUser(ctx context.Context, db *gorm.DB, userID string) (*Subscription, error)
	FindByPaymentID(ctx context.Context, db *gorm.DB, paymentID string) (*Subscription, error)
	FindByOrderID(ctx context.Context, db *gorm.DB, orderID string) (*Subscription, error)
	FindByProviderSubID(ctx context.Context, db *gorm.DB, providerSubID string) (*Subscription, error)
	ListByUser(ctx context.Context, db *gorm.DB, userID string) ([]Subscription, error)

	// SupersedeCurrent flips every current record for the user to
	// IsCurrent=false, regardless of status.
	SupersedeCurrent(ctx context.Context, db *gorm.DB, userID string, now time.Time) error

	// FindDueExpiry returns current records whose term has lapsed.
	FindDueExpiry(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]*Subscription, error)
	CountDueExpiry(ctx context.Context, db *gorm.DB, now time.Time) (int64, error)

	InsertEvent(ctx context.Context, db *gorm.DB, event *EventRecord) (bool, error)
	FindEvent(ctx context.Context, db *gorm.DB, provider string, providerEventID string) (*EventRecord, error)
	MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, processedAt time.Time) error

	// SetUserSubscribed toggles the entitlement flag mirrored on the
	// users table.
	SetUserSubscribed(ctx context.Context, db *gorm.DB, userID string, subscribed bool, now time.Time) error
}
