package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	subscriptiondomain "github.com/smallbiznis/nextway/internal/subscription/domain"
	userdomain "github.com/smallbiznis/nextway/internal/user/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct{}

// Provide builds the subscription repository.
func Provide() subscriptiondomain.Repository {
	return &repository{}
}

func (r *repository) Create(ctx context.Context, db *gorm.DB, record *subscriptiondomain.Subscription) error {
	return db.WithContext(ctx).Create(record).Error
}

func (r *repository) Update(ctx context.Context, db *gorm.DB, record *subscriptiondomain.Subscription) error {
	return db.WithContext(ctx).Save(record).Error
}

func (r *repository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*subscriptiondomain.Subscription, error) {
	return r.findOne(ctx, db, "id = ?", id)
}

func (r *repository) FindCurrentByUser(ctx context.Context, db *gorm.DB, userID string) (*subscriptiondomain.Subscription, error) {
	return r.findOne(ctx, db, "user_id = ? AND is_current = ?", userID, true)
}

func (r *repository) FindByPaymentID(ctx context.Context, db *gorm.DB, paymentID string) (*subscriptiondomain.Subscription, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, nil
	}
	return r.findOne(ctx, db, "payment_id = ?", paymentID)
}

func (r *repository) FindByOrderID(ctx context.Context, db *gorm.DB, orderID string) (*subscriptiondomain.Subscription, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, nil
	}
	return r.findOne(ctx, db, "order_id = ?", orderID)
}

func (r *repository) FindByProviderSubID(ctx context.Context, db *gorm.DB, providerSubID string) (*subscriptiondomain.Subscription, error) {
	providerSubID = strings.TrimSpace(providerSubID)
	if providerSubID == "" {
		return nil, nil
	}
	return r.findOne(ctx, db, "provider_sub_id = ?", providerSubID)
}

func (r *repository) findOne(ctx context.Context, db *gorm.DB, query string, args ...any) (*subscriptiondomain.Subscription, error) {
	var record subscriptiondomain.Subscription
	err := db.WithContext(ctx).
		Where(query, args...).
		Order("created_at DESC").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *repository) ListByUser(ctx context.Context, db *gorm.DB, userID string) ([]subscriptiondomain.Subscription, error) {
	var records []subscriptiondomain.Subscription
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repository) SupersedeCurrent(ctx context.Context, db *gorm.DB, userID string, now time.Time) error {
	return db.WithContext(ctx).
		Model(&subscriptiondomain.Subscription{}).
		Where("user_id = ? AND is_current = ?", userID, true).
		Updates(map[string]any{
			"is_current": false,
			"updated_at": now,
		}).Error
}

func (r *repository) FindDueExpiry(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]*subscriptiondomain.Subscription, error) {
	if limit <= 0 {
		limit = 100
	}
	var records []*subscriptiondomain.Subscription
	err := db.WithContext(ctx).
		Where("is_current = ? AND end_date < ?", true, now).
		Order("end_date ASC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repository) CountDueExpiry(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&subscriptiondomain.Subscription{}).
		Where("is_current = ? AND end_date < ?", true, now).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) InsertEvent(ctx context.Context, db *gorm.DB, event *subscriptiondomain.EventRecord) (bool, error) {
	result := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider"}, {Name: "provider_event_id"}},
			DoNothing: true,
		}).
		Create(event)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) FindEvent(ctx context.Context, db *gorm.DB, provider string, providerEventID string) (*subscriptiondomain.EventRecord, error) {
	var record subscriptiondomain.EventRecord
	err := db.WithContext(ctx).
		Where("provider = ? AND provider_event_id = ?", provider, providerEventID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *repository) MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, processedAt time.Time) error {
	return db.WithContext(ctx).
		Model(&subscriptiondomain.EventRecord{}).
		Where("id = ?", id).
		Update("processed_at", processedAt).Error
}

func (r *repository) SetUserSubscribed(ctx context.Context, db *gorm.DB, userID string, subscribed bool, now time.Time) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return subscriptiondomain.ErrInvalidUser
	}
	return db.WithContext(ctx).
		Model(&userdomain.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"is_subscribed": subscribed,
			"updated_at":    now,
		}).Error
}
