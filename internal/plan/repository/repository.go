package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/nextway/internal/cache"
	plandomain "github.com/smallbiznis/nextway/internal/plan/domain"
	"gorm.io/gorm"
)

const planCacheTTL = 5 * time.Minute

// NewPlanCache builds the cache used for hot-path plan lookups during
// webhook processing.
func NewPlanCache() cache.Cache[snowflake.ID, plandomain.Plan] {
	return cache.NewTTLCache[snowflake.ID, plandomain.Plan]()
}

type Repository struct {
	db    *gorm.DB
	cache cache.Cache[snowflake.ID, plandomain.Plan]
}

func Provide(db *gorm.DB, planCache cache.Cache[snowflake.ID, plandomain.Plan]) plandomain.Repository {
	return &Repository{db: db, cache: planCache}
}

func (r *Repository) FindByID(ctx context.Context, id snowflake.ID) (*plandomain.Plan, error) {
	if id == 0 {
		return nil, plandomain.ErrPlanNotFound
	}
	if cached, ok := r.cache.Get(id); ok {
		return &cached, nil
	}

	var plan plandomain.Plan
	err := r.db.WithContext(ctx).First(&plan, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, plandomain.ErrPlanNotFound
		}
		return nil, err
	}

	r.cache.Set(id, plan, planCacheTTL)
	return &plan, nil
}

func (r *Repository) List(ctx context.Context) ([]plandomain.Plan, error) {
	var plans []plandomain.Plan
	if err := r.db.WithContext(ctx).Order("price ASC").Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}
