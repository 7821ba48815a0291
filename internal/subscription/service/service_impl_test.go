package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/nextway/internal/clock"
	"github.com/smallbiznis/nextway/internal/config"
	paymentdomain "github.com/smallbiznis/nextway/internal/payment/domain"
	plandomain "github.com/smallbiznis/nextway/internal/plan/domain"
	planrepository "github.com/smallbiznis/nextway/internal/plan/repository"
	"github.com/smallbiznis/nextway/internal/realtime/event"
	subscriptiondomain "github.com/smallbiznis/nextway/internal/subscription/domain"
	"github.com/smallbiznis/nextway/internal/subscription/repository"
	userdomain "github.com/smallbiznis/nextway/internal/user/domain"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	testKeySecret     = "key-secret"
	testWebhookSecret = "webhook-secret"
)

var testNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

type fakeGateway struct {
	mu        sync.Mutex
	orders    []paymentdomain.CreateOrderRequest
	subs      []paymentdomain.CreateSubscriptionRequest
	cancelled []string

	cancelErr error
}

func (g *fakeGateway) CreateOrder(ctx context.Context, req paymentdomain.CreateOrderRequest) (*paymentdomain.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.orders = append(g.orders, req)
	return &paymentdomain.Order{
		ID:       fmt.Sprintf("order_%d", len(g.orders)),
		Amount:   req.Amount,
		Currency: req.Currency,
		Status:   "created",
		Notes:    req.Notes,
	}, nil
}

func (g *fakeGateway) FetchOrder(ctx context.Context, orderID string) (*paymentdomain.Order, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, paymentdomain.ErrOrderNotFound
	}
	return &paymentdomain.Order{ID: orderID, Status: "paid"}, nil
}

func (g *fakeGateway) CreateSubscription(ctx context.Context, req paymentdomain.CreateSubscriptionRequest) (*paymentdomain.ProviderSubscription, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.subs = append(g.subs, req)
	return &paymentdomain.ProviderSubscription{
		ID:     fmt.Sprintf("psub_%d", len(g.subs)),
		PlanID: req.PlanID,
		Status: "created",
	}, nil
}

func (g *fakeGateway) CancelSubscription(ctx context.Context, subscriptionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancelErr != nil {
		return g.cancelErr
	}
	g.cancelled = append(g.cancelled, subscriptionID)
	return nil
}

type notifierRecorder struct {
	mu      sync.Mutex
	updates []event.SubscriptionUpdate
}

func (n *notifierRecorder) SubscriptionUpdated(userID string, update event.SubscriptionUpdate) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updates = append(n.updates, update)
}

func (n *notifierRecorder) last(t *testing.T) event.SubscriptionUpdate {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.updates) == 0 {
		t.Fatal("expected a subscription update emission")
	}
	return n.updates[len(n.updates)-1]
}

type fixture struct {
	db       *gorm.DB
	svc      subscriptiondomain.Service
	gateway  *fakeGateway
	notifier *notifierRecorder
	plan     plandomain.Plan
	repo     subscriptiondomain.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&plandomain.Plan{},
		&userdomain.User{},
		&subscriptiondomain.Subscription{},
		&subscriptiondomain.EventRecord{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	plan := plandomain.Plan{
		ID:             node.Generate(),
		Name:           "Pro Monthly",
		Price:          500,
		DurationDays:   30,
		Features:       datatypes.JSONSlice[string]{"unlimited_applications", "priority_support"},
		ProviderPlanID: "plan_ext_1",
	}
	if err := db.Create(&plan).Error; err != nil {
		t.Fatalf("seed plan: %v", err)
	}
	if err := db.Create(&userdomain.User{ID: "u1"}).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}

	gateway := &fakeGateway{}
	notifier := &notifierRecorder{}
	repo := repository.Provide()
	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.FixedClock{At: testNow},
		Cfg: config.Config{
			Razorpay: config.RazorpayConfig{
				KeySecret:     testKeySecret,
				WebhookSecret: testWebhookSecret,
			},
		},
		Gateway:  gateway,
		Plans:    planrepository.Provide(db, planrepository.NewPlanCache()),
		Repo:     repo,
		Notifier: notifier,
	})

	return &fixture{
		db:       db,
		svc:      svc,
		gateway:  gateway,
		notifier: notifier,
		plan:     plan,
		repo:     repo,
	}
}

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func webhookBody(t *testing.T, eventID, name string, payment, order, sub map[string]any) []byte {
	t.Helper()
	payload := map[string]any{}
	if payment != nil {
		payload["payment"] = map[string]any{"entity": payment}
	}
	if order != nil {
		payload["order"] = map[string]any{"entity": order}
	}
	if sub != nil {
		payload["subscription"] = map[string]any{"entity": sub}
	}
	body, err := json.Marshal(map[string]any{
		"id":      eventID,
		"event":   name,
		"payload": payload,
	})
	if err != nil {
		t.Fatalf("marshal webhook body: %v", err)
	}
	return body
}

func (f *fixture) ingestOrderPaid(t *testing.T, eventID, paymentID, orderID string) {
	t.Helper()
	body := webhookBody(t, eventID, paymentdomain.EventOrderPaid,
		map[string]any{"id": paymentID, "order_id": orderID, "amount": 500, "status": "captured"},
		map[string]any{"id": orderID, "amount": 500, "notes": map[string]string{
			"user_id": "u1",
			"plan_id": f.plan.ID.String(),
		}},
		nil,
	)
	if err := f.svc.IngestWebhook(context.Background(), body, sign(body, testWebhookSecret)); err != nil {
		t.Fatalf("ingest order.paid: %v", err)
	}
}

func (f *fixture) currentForUser(t *testing.T, userID string) *subscriptiondomain.Subscription {
	t.Helper()
	record, err := f.repo.FindCurrentByUser(context.Background(), f.db, userID)
	if err != nil {
		t.Fatalf("find current: %v", err)
	}
	return record
}

func (f *fixture) userSubscribed(t *testing.T, userID string) bool {
	t.Helper()
	var user userdomain.User
	if err := f.db.First(&user, "id = ?", userID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	return user.IsSubscribed
}

func TestInitializeOrder(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.InitializeOrder(context.Background(), subscriptiondomain.InitializeOrderRequest{
		UserID: "u1",
		PlanID: f.plan.ID.String(),
	})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if resp.OrderID == "" {
		t.Fatal("expected an order id")
	}
	if resp.Amount != 500 {
		t.Fatalf("amount = %d, want 500", resp.Amount)
	}

	if len(f.gateway.orders) != 1 {
		t.Fatalf("gateway orders = %d, want 1", len(f.gateway.orders))
	}
	notes := f.gateway.orders[0].Notes
	if notes["user_id"] != "u1" || notes["plan_id"] != f.plan.ID.String() {
		t.Fatalf("correlation notes = %v", notes)
	}

	var count int64
	f.db.Model(&subscriptiondomain.Subscription{}).Count(&count)
	if count != 0 {
		t.Fatalf("subscription records = %d, want 0 before webhook", count)
	}
}

func TestInitializeOrderUnknownPlan(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.InitializeOrder(context.Background(), subscriptiondomain.InitializeOrderRequest{
		UserID: "u1",
		PlanID: "123456789",
	})
	if !errors.Is(err, subscriptiondomain.ErrInvalidPlan) {
		t.Fatalf("err = %v, want ErrInvalidPlan", err)
	}
	if len(f.gateway.orders) != 0 {
		t.Fatal("no gateway order should be created for an unknown plan")
	}
}

func TestVerifyCheckout(t *testing.T) {
	f := newFixture(t)

	signature := sign([]byte("order_1|pay_1"), testKeySecret)
	resp, err := f.svc.VerifyCheckout(context.Background(), subscriptiondomain.VerifyCheckoutRequest{
		UserID:    "u1",
		PlanID:    f.plan.ID.String(),
		OrderID:   "order_1",
		PaymentID: "pay_1",
		Signature: signature,
	})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if resp.ProviderSubscriptionID == "" {
		t.Fatal("expected a provider subscription id")
	}

	if len(f.gateway.subs) != 1 {
		t.Fatalf("gateway subscriptions = %d, want 1", len(f.gateway.subs))
	}
	created := f.gateway.subs[0]
	if created.PlanID != "plan_ext_1" {
		t.Fatalf("provider plan id = %q", created.PlanID)
	}
	if created.Notes["payment_id"] != "pay_1" {
		t.Fatalf("payment correlation missing from notes: %v", created.Notes)
	}

	var count int64
	f.db.Model(&subscriptiondomain.Subscription{}).Count(&count)
	if count != 0 {
		t.Fatal("verify must not create a local record")
	}
}

func TestVerifyCheckoutBadSignature(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.VerifyCheckout(context.Background(), subscriptiondomain.VerifyCheckoutRequest{
		UserID:    "u1",
		PlanID:    f.plan.ID.String(),
		OrderID:   "order_1",
		PaymentID: "pay_1",
		Signature: sign([]byte("order_1|pay_2"), testKeySecret),
	})
	if !errors.Is(err, paymentdomain.ErrInvalidSignature) {
		t.Fatalf("err = %v, want ErrInvalidSignature", err)
	}
	if len(f.gateway.subs) != 0 {
		t.Fatal("no provider subscription may be created on a bad signature")
	}
}

func TestOrderPaidCreatesSubscription(t *testing.T) {
	f := newFixture(t)

	f.ingestOrderPaid(t, "evt_1", "pay_1", "order_1")

	record := f.currentForUser(t, "u1")
	if record == nil {
		t.Fatal("expected a current subscription")
	}
	if record.Status != subscriptiondomain.StatusActive {
		t.Fatalf("status = %s, want active", record.Status)
	}
	wantEnd := testNow.AddDate(0, 0, 30)
	if !record.EndDate.Equal(wantEnd) {
		t.Fatalf("end date = %v, want %v", record.EndDate, wantEnd)
	}
	if len(record.Features) != 2 {
		t.Fatalf("features snapshot = %v", record.Features)
	}
	if record.PaymentID != "pay_1" || record.OrderID != "order_1" {
		t.Fatalf("correlation keys = %q %q", record.PaymentID, record.OrderID)
	}
	if !f.userSubscribed(t, "u1") {
		t.Fatal("user entitlement flag should be set")
	}

	update := f.notifier.last(t)
	if update.Type != event.UpdateNewSubscription {
		t.Fatalf("update type = %s, want new_subscription", update.Type)
	}
	if update.UserID != "u1" {
		t.Fatalf("update user = %s", update.UserID)
	}
}

func TestOrderPaidSupersedesCurrent(t *testing.T) {
	f := newFixture(t)

	f.ingestOrderPaid(t, "evt_1", "pay_1", "order_1")
	f.ingestOrderPaid(t, "evt_2", "pay_2", "order_2")

	var current int64
	f.db.Model(&subscriptiondomain.Subscription{}).
		Where("user_id = ? AND is_current = ?", "u1", true).
		Count(&current)
	if current != 1 {
		t.Fatalf("current records = %d, want exactly 1", current)
	}

	record := f.currentForUser(t, "u1")
	if record.PaymentID != "pay_2" {
		t.Fatalf("current record payment = %s, want pay_2", record.PaymentID)
	}

	var old subscriptiondomain.Subscription
	if err := f.db.First(&old, "payment_id = ?", "pay_1").Error; err != nil {
		t.Fatalf("load superseded record: %v", err)
	}
	if old.IsCurrent {
		t.Fatal("superseded record must not stay current")
	}
}

func TestWebhookBadSignatureRejected(t *testing.T) {
	f := newFixture(t)

	body := webhookBody(t, "evt_1", paymentdomain.EventOrderPaid,
		map[string]any{"id": "pay_1", "order_id": "order_1"},
		map[string]any{"id": "order_1", "notes": map[string]string{"user_id": "u1", "plan_id": f.plan.ID.String()}},
		nil,
	)
	err := f.svc.IngestWebhook(context.Background(), body, sign(body, "wrong-secret"))
	if !errors.Is(err, paymentdomain.ErrInvalidSignature) {
		t.Fatalf("err = %v, want ErrInvalidSignature", err)
	}

	var count int64
	f.db.Model(&subscriptiondomain.EventRecord{}).Count(&count)
	if count != 0 {
		t.Fatal("rejected deliveries must not persist an event record")
	}
}

func TestWebhookMissingCorrelation(t *testing.T) {
	f := newFixture(t)

	body := webhookBody(t, "evt_1", paymentdomain.EventOrderPaid,
		map[string]any{"id": "pay_1", "order_id": "order_1"},
		map[string]any{"id": "order_1", "notes": map[string]string{}},
		nil,
	)
	err := f.svc.IngestWebhook(context.Background(), body, sign(body, testWebhookSecret))
	if !errors.Is(err, subscriptiondomain.ErrMissingCorrelation) {
		t.Fatalf("err = %v, want ErrMissingCorrelation", err)
	}
}

func TestWebhookReplayIsIdempotent(t *testing.T) {
	f := newFixture(t)

	f.ingestOrderPaid(t, "evt_1", "pay_1", "order_1")

	body := webhookBody(t, "evt_2", paymentdomain.EventPaymentCaptured,
		map[string]any{"id": "pay_1", "order_id": "order_1", "status": "captured"},
		nil, nil,
	)
	signature := sign(body, testWebhookSecret)
	if err := f.svc.IngestWebhook(context.Background(), body, signature); err != nil {
		t.Fatalf("first capture: %v", err)
	}
	before := f.currentForUser(t, "u1")

	err := f.svc.IngestWebhook(context.Background(), body, signature)
	if !errors.Is(err, subscriptiondomain.ErrEventAlreadyProcessed) {
		t.Fatalf("replay err = %v, want ErrEventAlreadyProcessed", err)
	}

	after := f.currentForUser(t, "u1")
	if after.Status != before.Status || !after.EndDate.Equal(before.EndDate) || after.PaymentID != before.PaymentID {
		t.Fatal("replay changed subscription state")
	}
}

func TestOrderPaidRetryAfterPartialFailure(t *testing.T) {
	f := newFixture(t)

	f.ingestOrderPaid(t, "evt_1", "pay_1", "order_1")

	// A crash between applying the order and stamping the event leaves
	// processed_at empty, so the gateway's retry runs the handler again.
	res := f.db.Model(&subscriptiondomain.EventRecord{}).
		Where("provider_event_id = ?", "evt_1").
		Update("processed_at", nil)
	if res.Error != nil || res.RowsAffected != 1 {
		t.Fatalf("reset processed_at: err=%v rows=%d", res.Error, res.RowsAffected)
	}

	f.ingestOrderPaid(t, "evt_1", "pay_1", "order_1")

	var count int64
	if err := f.db.Model(&subscriptiondomain.Subscription{}).
		Where("user_id = ?", "u1").Count(&count).Error; err != nil {
		t.Fatalf("count subscriptions: %v", err)
	}
	if count != 1 {
		t.Fatalf("subscription rows = %d, want 1", count)
	}
	current := f.currentForUser(t, "u1")
	if current.OrderID != "order_1" || !current.IsCurrent {
		t.Fatalf("unexpected current record: %+v", current)
	}
}

func TestPaymentFailed(t *testing.T) {
	f := newFixture(t)

	f.ingestOrderPaid(t, "evt_1", "pay_1", "order_1")

	body := webhookBody(t, "evt_2", paymentdomain.EventPaymentFailed,
		map[string]any{"id": "pay_1", "order_id": "order_1", "status": "failed"},
		nil, nil,
	)
	if err := f.svc.IngestWebhook(context.Background(), body, sign(body, testWebhookSecret)); err != nil {
		t.Fatalf("ingest payment.failed: %v", err)
	}

	var record subscriptiondomain.Subscription
	if err := f.db.First(&record, "payment_id = ?", "pay_1").Error; err != nil {
		t.Fatalf("load record: %v", err)
	}
	if record.Status != subscriptiondomain.StatusFailed {
		t.Fatalf("status = %s, want failed", record.Status)
	}
	if record.IsCurrent {
		t.Fatal("failed record must not stay current")
	}
	if f.userSubscribed(t, "u1") {
		t.Fatal("entitlement flag should be cleared")
	}
}

func TestSubscriptionChargedExtendsOnce(t *testing.T) {
	f := newFixture(t)

	f.ingestOrderPaid(t, "evt_1", "pay_1", "order_1")
	firstEnd := f.currentForUser(t, "u1").EndDate

	charged := func(eventID, paymentID string) []byte {
		return webhookBody(t, eventID, paymentdomain.EventSubscriptionCharged,
			map[string]any{"id": paymentID, "status": "captured"},
			nil,
			map[string]any{"id": "psub_1", "notes": map[string]string{"payment_id": "pay_1"}},
		)
	}

	body := charged("evt_2", "pay_2")
	if err := f.svc.IngestWebhook(context.Background(), body, sign(body, testWebhookSecret)); err != nil {
		t.Fatalf("ingest charged: %v", err)
	}

	record := f.currentForUser(t, "u1")
	wantEnd := firstEnd.AddDate(0, 0, 30)
	if !record.EndDate.Equal(wantEnd) {
		t.Fatalf("end date = %v, want %v", record.EndDate, wantEnd)
	}
	if record.PaymentID != "pay_2" {
		t.Fatalf("payment id = %s, want pay_2", record.PaymentID)
	}
	if record.ProviderSubID != "psub_1" {
		t.Fatalf("provider sub id = %s, want backfilled psub_1", record.ProviderSubID)
	}
	if f.notifier.last(t).Type != event.UpdateSubscriptionRenewed {
		t.Fatal("expected a subscription_renewed emission")
	}

	// Same charge delivered again under a fresh event id must not extend
	// the term a second time.
	replay := charged("evt_3", "pay_2")
	if err := f.svc.IngestWebhook(context.Background(), replay, sign(replay, testWebhookSecret)); err != nil {
		t.Fatalf("ingest charged replay: %v", err)
	}
	record = f.currentForUser(t, "u1")
	if !record.EndDate.Equal(wantEnd) {
		t.Fatalf("replayed charge extended end date to %v", record.EndDate)
	}
}

func TestSubscriptionCancelledWebhook(t *testing.T) {
	f := newFixture(t)

	f.ingestOrderPaid(t, "evt_1", "pay_1", "order_1")

	body := webhookBody(t, "evt_2", paymentdomain.EventSubscriptionCancelled,
		nil, nil,
		map[string]any{"id": "psub_1", "notes": map[string]string{"payment_id": "pay_1"}},
	)
	if err := f.svc.IngestWebhook(context.Background(), body, sign(body, testWebhookSecret)); err != nil {
		t.Fatalf("ingest cancelled: %v", err)
	}

	var record subscriptiondomain.Subscription
	if err := f.db.First(&record, "payment_id = ?", "pay_1").Error; err != nil {
		t.Fatalf("load record: %v", err)
	}
	if record.Status != subscriptiondomain.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", record.Status)
	}
	if record.IsCurrent {
		t.Fatal("cancelled record must not stay current")
	}
	if !record.EndDate.Equal(testNow) {
		t.Fatalf("end date = %v, want clamp to now", record.EndDate)
	}
	if f.userSubscribed(t, "u1") {
		t.Fatal("entitlement flag should be cleared")
	}
	if f.notifier.last(t).Type != event.UpdateSubscriptionCancelled {
		t.Fatal("expected a subscription_cancelled emission")
	}
}

func TestCancelByUser(t *testing.T) {
	f := newFixture(t)

	f.ingestOrderPaid(t, "evt_1", "pay_1", "order_1")
	record := f.currentForUser(t, "u1")
	record.ProviderSubID = "psub_1"
	if err := f.db.Save(record).Error; err != nil {
		t.Fatalf("backfill provider sub id: %v", err)
	}

	err := f.svc.Cancel(context.Background(), subscriptiondomain.CancelRequest{
		UserID:         "u1",
		SubscriptionID: record.ID.String(),
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if len(f.gateway.cancelled) != 1 || f.gateway.cancelled[0] != "psub_1" {
		t.Fatalf("gateway cancellations = %v", f.gateway.cancelled)
	}

	var updated subscriptiondomain.Subscription
	if err := f.db.First(&updated, "id = ?", record.ID).Error; err != nil {
		t.Fatalf("load record: %v", err)
	}
	if updated.Status != subscriptiondomain.StatusCancelled || updated.IsCurrent {
		t.Fatalf("record = %s current=%v, want cancelled and not current", updated.Status, updated.IsCurrent)
	}
	if f.userSubscribed(t, "u1") {
		t.Fatal("entitlement flag should be cleared")
	}
}

func TestCancelRejectsWrongUser(t *testing.T) {
	f := newFixture(t)

	f.ingestOrderPaid(t, "evt_1", "pay_1", "order_1")
	record := f.currentForUser(t, "u1")

	err := f.svc.Cancel(context.Background(), subscriptiondomain.CancelRequest{
		UserID:         "u2",
		SubscriptionID: record.ID.String(),
	})
	if !errors.Is(err, subscriptiondomain.ErrSubscriptionNotFound) {
		t.Fatalf("err = %v, want ErrSubscriptionNotFound", err)
	}
	if len(f.gateway.cancelled) != 0 {
		t.Fatal("gateway must not be called for a foreign record")
	}
}

func TestCancelRejectsNonActive(t *testing.T) {
	f := newFixture(t)

	f.ingestOrderPaid(t, "evt_1", "pay_1", "order_1")
	record := f.currentForUser(t, "u1")

	if err := f.svc.Cancel(context.Background(), subscriptiondomain.CancelRequest{
		UserID: "u1", SubscriptionID: record.ID.String(),
	}); err != nil {
		t.Fatalf("first cancel: %v", err)
	}

	err := f.svc.Cancel(context.Background(), subscriptiondomain.CancelRequest{
		UserID: "u1", SubscriptionID: record.ID.String(),
	})
	if !errors.Is(err, subscriptiondomain.ErrSubscriptionNotActive) {
		t.Fatalf("err = %v, want ErrSubscriptionNotActive", err)
	}
}

func TestGatewayCancelFailureKeepsRecord(t *testing.T) {
	f := newFixture(t)

	f.ingestOrderPaid(t, "evt_1", "pay_1", "order_1")
	record := f.currentForUser(t, "u1")
	record.ProviderSubID = "psub_1"
	if err := f.db.Save(record).Error; err != nil {
		t.Fatalf("backfill provider sub id: %v", err)
	}
	f.gateway.cancelErr = paymentdomain.ErrGatewayRequest

	err := f.svc.Cancel(context.Background(), subscriptiondomain.CancelRequest{
		UserID:         "u1",
		SubscriptionID: record.ID.String(),
	})
	if !errors.Is(err, paymentdomain.ErrGatewayRequest) {
		t.Fatalf("err = %v, want gateway error", err)
	}

	var updated subscriptiondomain.Subscription
	if err := f.db.First(&updated, "id = ?", record.ID).Error; err != nil {
		t.Fatalf("load record: %v", err)
	}
	if updated.Status != subscriptiondomain.StatusActive || !updated.IsCurrent {
		t.Fatal("record must stay active when the gateway call fails")
	}
}

func TestListByUser(t *testing.T) {
	f := newFixture(t)

	f.ingestOrderPaid(t, "evt_1", "pay_1", "order_1")
	f.ingestOrderPaid(t, "evt_2", "pay_2", "order_2")

	records, err := f.svc.ListByUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
}
