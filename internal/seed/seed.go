// Package seed bootstraps reference data for fresh installs.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	plandomain "github.com/smallbiznis/nextway/internal/plan/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var defaultPlans = []plandomain.Plan{
	{
		Name:         "Starter",
		Price:        19900,
		DurationDays: 30,
		Features: datatypes.NewJSONSlice([]string{
			"apply_unlimited",
			"chat_with_companies",
		}),
		ProviderPlanID: "plan_starter_monthly",
	},
	{
		Name:         "Pro",
		Price:        49900,
		DurationDays: 30,
		Features: datatypes.NewJSONSlice([]string{
			"apply_unlimited",
			"chat_with_companies",
			"video_interviews",
			"priority_support",
		}),
		ProviderPlanID: "plan_pro_monthly",
	},
}

// EnsureDefaultPlans seeds the plan catalog when it is empty. Existing
// catalogs are left untouched so operator edits survive restarts.
func EnsureDefaultPlans(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&plandomain.Plan{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		now := time.Now().UTC()
		for _, plan := range defaultPlans {
			plan.ID = node.Generate()
			plan.CreatedAt = now
			plan.UpdatedAt = now
			if err := tx.Create(&plan).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
