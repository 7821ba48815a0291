package sweep

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/nextway/internal/clock"
	subscriptiondomain "github.com/smallbiznis/nextway/internal/subscription/domain"
	"github.com/smallbiznis/nextway/internal/subscription/repository"
	userdomain "github.com/smallbiznis/nextway/internal/user/domain"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var sweepNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func newSweepFixture(t *testing.T) (*gorm.DB, *Worker, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&userdomain.User{}, &subscriptiondomain.Subscription{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	worker := NewWorker(Params{
		DB:    db,
		Log:   zap.NewNop(),
		Clock: clock.FixedClock{At: sweepNow},
		Repo:  repository.Provide(),
		Config: Config{
			BatchSize:    10,
			PollInterval: time.Hour,
		},
	})
	return db, worker, node
}

func seedSubscription(t *testing.T, db *gorm.DB, node *snowflake.Node, userID string, status subscriptiondomain.Status, current bool, endDate time.Time) snowflake.ID {
	t.Helper()
	record := subscriptiondomain.Subscription{
		ID:        node.Generate(),
		UserID:    userID,
		PlanID:    node.Generate(),
		PlanName:  "Pro Monthly",
		Price:     500,
		StartDate: endDate.AddDate(0, 0, -30),
		EndDate:   endDate,
		Status:    status,
		IsCurrent: current,
	}
	if err := db.Create(&record).Error; err != nil {
		t.Fatalf("seed subscription: %v", err)
	}
	return record.ID
}

func TestSweepExpiresLapsedCurrent(t *testing.T) {
	db, worker, node := newSweepFixture(t)

	if err := db.Create(&userdomain.User{ID: "u1", IsSubscribed: true}).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	id := seedSubscription(t, db, node, "u1", subscriptiondomain.StatusActive, true, sweepNow.AddDate(0, 0, -1))

	if err := worker.RunOnce(); err != nil {
		t.Fatalf("run once: %v", err)
	}

	var record subscriptiondomain.Subscription
	if err := db.First(&record, "id = ?", id).Error; err != nil {
		t.Fatalf("load record: %v", err)
	}
	if record.Status != subscriptiondomain.StatusExpired {
		t.Fatalf("status = %s, want expired", record.Status)
	}
	if record.IsCurrent {
		t.Fatal("expired record must not stay current")
	}

	var user userdomain.User
	if err := db.First(&user, "id = ?", "u1").Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if user.IsSubscribed {
		t.Fatal("entitlement flag should be cleared")
	}
}

func TestSweepLeavesNonMatchingUntouched(t *testing.T) {
	db, worker, node := newSweepFixture(t)

	if err := db.Create(&userdomain.User{ID: "u1", IsSubscribed: true}).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}

	stillRunning := seedSubscription(t, db, node, "u1", subscriptiondomain.StatusActive, true, sweepNow.AddDate(0, 0, 5))
	alreadyCancelled := seedSubscription(t, db, node, "u2", subscriptiondomain.StatusCancelled, false, sweepNow.AddDate(0, 0, -2))
	alreadyExpired := seedSubscription(t, db, node, "u3", subscriptiondomain.StatusExpired, false, sweepNow.AddDate(0, 0, -40))

	if err := worker.RunOnce(); err != nil {
		t.Fatalf("run once: %v", err)
	}

	assertState := func(id snowflake.ID, status subscriptiondomain.Status, current bool) {
		t.Helper()
		var record subscriptiondomain.Subscription
		if err := db.First(&record, "id = ?", id).Error; err != nil {
			t.Fatalf("load record: %v", err)
		}
		if record.Status != status || record.IsCurrent != current {
			t.Fatalf("record %d = %s current=%v, want %s current=%v", id, record.Status, record.IsCurrent, status, current)
		}
	}

	assertState(stillRunning, subscriptiondomain.StatusActive, true)
	assertState(alreadyCancelled, subscriptiondomain.StatusCancelled, false)
	assertState(alreadyExpired, subscriptiondomain.StatusExpired, false)

	var user userdomain.User
	if err := db.First(&user, "id = ?", "u1").Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if !user.IsSubscribed {
		t.Fatal("entitlement flag must stay set for a live subscription")
	}
}

func TestSweepSecondRunIsNoop(t *testing.T) {
	db, worker, node := newSweepFixture(t)

	if err := db.Create(&userdomain.User{ID: "u1", IsSubscribed: true}).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	id := seedSubscription(t, db, node, "u1", subscriptiondomain.StatusActive, true, sweepNow.AddDate(0, 0, -1))

	if err := worker.RunOnce(); err != nil {
		t.Fatalf("first run: %v", err)
	}
	var first subscriptiondomain.Subscription
	if err := db.First(&first, "id = ?", id).Error; err != nil {
		t.Fatalf("load record: %v", err)
	}

	if err := worker.RunOnce(); err != nil {
		t.Fatalf("second run: %v", err)
	}
	var second subscriptiondomain.Subscription
	if err := db.First(&second, "id = ?", id).Error; err != nil {
		t.Fatalf("load record: %v", err)
	}
	if second.Status != first.Status || second.IsCurrent != first.IsCurrent || !second.UpdatedAt.Equal(first.UpdatedAt) {
		t.Fatal("second sweep must not touch already expired records")
	}
}
