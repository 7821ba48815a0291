package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	plandomain "github.com/smallbiznis/nextway/internal/plan/domain"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newRepo(t *testing.T) (plandomain.Repository, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&plandomain.Plan{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	return Provide(db, NewPlanCache()), db, node
}

func seedPlan(t *testing.T, db *gorm.DB, node *snowflake.Node, name string, price int64) plandomain.Plan {
	t.Helper()
	plan := plandomain.Plan{
		ID:             node.Generate(),
		Name:           name,
		Price:          price,
		DurationDays:   30,
		Features:       datatypes.JSONSlice[string]{"chat_with_companies"},
		ProviderPlanID: "plan_ext_" + name,
	}
	if err := db.Create(&plan).Error; err != nil {
		t.Fatalf("seed plan: %v", err)
	}
	return plan
}

func TestFindByID(t *testing.T) {
	repo, db, node := newRepo(t)
	plan := seedPlan(t, db, node, "Pro", 500)

	found, err := repo.FindByID(context.Background(), plan.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.Name != "Pro" || found.DurationDays != 30 {
		t.Fatalf("found = %+v", found)
	}

	if _, err := repo.FindByID(context.Background(), node.Generate()); !errors.Is(err, plandomain.ErrPlanNotFound) {
		t.Fatalf("unknown id err = %v, want ErrPlanNotFound", err)
	}
	if _, err := repo.FindByID(context.Background(), 0); !errors.Is(err, plandomain.ErrPlanNotFound) {
		t.Fatalf("zero id err = %v, want ErrPlanNotFound", err)
	}
}

func TestFindByIDServesFromCache(t *testing.T) {
	repo, db, node := newRepo(t)
	plan := seedPlan(t, db, node, "Pro", 500)

	if _, err := repo.FindByID(context.Background(), plan.ID); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	// A direct row delete does not invalidate the cache; the lookup must
	// still succeed within the TTL.
	if err := db.Delete(&plandomain.Plan{}, "id = ?", plan.ID).Error; err != nil {
		t.Fatalf("delete row: %v", err)
	}

	found, err := repo.FindByID(context.Background(), plan.ID)
	if err != nil {
		t.Fatalf("cached find: %v", err)
	}
	if found.Name != "Pro" {
		t.Fatalf("cached plan = %+v", found)
	}
}

func TestListOrdersByPrice(t *testing.T) {
	repo, db, node := newRepo(t)
	seedPlan(t, db, node, "Pro", 900)
	seedPlan(t, db, node, "Starter", 100)

	plans, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(plans) != 2 {
		t.Fatalf("plans len = %d, want 2", len(plans))
	}
	if plans[0].Name != "Starter" || plans[1].Name != "Pro" {
		t.Fatalf("order = %q, %q", plans[0].Name, plans[1].Name)
	}
}
