// Package domain contains the subscription plan catalog.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Plan is a catalog entry. Plans are treated as immutable once a
// subscription has been issued against them; subscriptions snapshot the
// fields they depend on at creation time.
type Plan struct {
	ID             snowflake.ID               `gorm:"primaryKey" json:"id"`
	Name           string                     `gorm:"type:text;not null" json:"name"`
	Price          int64                      `gorm:"not null" json:"price"`
	DurationDays   int                        `gorm:"not null" json:"duration_days"`
	Features       datatypes.JSONSlice[string] `gorm:"type:jsonb;not null;default:'[]'" json:"features"`
	ProviderPlanID string                     `gorm:"type:text;not null" json:"-"`
	CreatedAt      time.Time                  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
	UpdatedAt      time.Time                  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (Plan) TableName() string { return "subscription_plans" }

// Repository reads the plan catalog.
type Repository interface {
	FindByID(ctx context.Context, id snowflake.ID) (*Plan, error)
	List(ctx context.Context) ([]Plan, error)
}

var ErrPlanNotFound = errors.New("plan_not_found")
