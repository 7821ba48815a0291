package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/nextway/internal/audit/domain"
	"github.com/smallbiznis/nextway/internal/clock"
	"github.com/smallbiznis/nextway/internal/config"
	paymentdomain "github.com/smallbiznis/nextway/internal/payment/domain"
	"github.com/smallbiznis/nextway/internal/payment/razorpay"
	plandomain "github.com/smallbiznis/nextway/internal/plan/domain"
	"github.com/smallbiznis/nextway/internal/realtime/event"
	subscriptiondomain "github.com/smallbiznis/nextway/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	provider = "razorpay"

	noteUserID    = "user_id"
	notePlanID    = "plan_id"
	notePaymentID = "payment_id"

	defaultCurrency = "INR"

	// Recurring subscriptions are created for a year of monthly-equivalent
	// charges; the provider stops charging after this many cycles.
	subscriptionTotalCount = 12
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Cfg      config.Config
	Gateway  paymentdomain.Gateway
	Plans    plandomain.Repository
	Repo     subscriptiondomain.Repository
	AuditSvc auditdomain.Service
	Notifier subscriptiondomain.Notifier `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	cfg      config.RazorpayConfig
	gateway  paymentdomain.Gateway
	plans    plandomain.Repository
	repo     subscriptiondomain.Repository
	auditSvc auditdomain.Service
	notifier subscriptiondomain.Notifier
}

func NewService(p Params) subscriptiondomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("subscription.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		cfg:      p.Cfg.Razorpay,
		gateway:  p.Gateway,
		plans:    p.Plans,
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
		notifier: p.Notifier,
	}
}

func (s *Service) InitializeOrder(ctx context.Context, req subscriptiondomain.InitializeOrderRequest) (*subscriptiondomain.InitializeOrderResponse, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, subscriptiondomain.ErrInvalidUser
	}

	plan, err := s.resolvePlan(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}

	order, err := s.gateway.CreateOrder(ctx, paymentdomain.CreateOrderRequest{
		Amount:   plan.Price,
		Currency: defaultCurrency,
		Receipt:  fmt.Sprintf("sub_%s", s.genID.Generate()),
		Notes: map[string]string{
			noteUserID: userID,
			notePlanID: plan.ID.String(),
		},
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("gateway order created",
		zap.String("order_id", order.ID),
		zap.String("user_id", userID),
		zap.String("plan_id", plan.ID.String()),
	)

	return &subscriptiondomain.InitializeOrderResponse{
		OrderID:  order.ID,
		Amount:   order.Amount,
		Currency: order.Currency,
		PlanID:   plan.ID.String(),
	}, nil
}

func (s *Service) VerifyCheckout(ctx context.Context, req subscriptiondomain.VerifyCheckoutRequest) (*subscriptiondomain.VerifyCheckoutResponse, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, subscriptiondomain.ErrInvalidUser
	}
	orderID := strings.TrimSpace(req.OrderID)
	paymentID := strings.TrimSpace(req.PaymentID)
	if orderID == "" || paymentID == "" {
		return nil, paymentdomain.ErrInvalidSignature
	}

	if !razorpay.VerifyCheckoutSignature(orderID, paymentID, req.Signature, s.cfg.KeySecret) {
		return nil, paymentdomain.ErrInvalidSignature
	}

	if _, err := s.gateway.FetchOrder(ctx, orderID); err != nil {
		return nil, err
	}

	plan, err := s.resolvePlan(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}

	// No local record yet; the order.paid webhook creates it. The notes
	// here are what later charged/cancelled webhooks correlate on.
	providerSub, err := s.gateway.CreateSubscription(ctx, paymentdomain.CreateSubscriptionRequest{
		PlanID:     plan.ProviderPlanID,
		TotalCount: subscriptionTotalCount,
		Notes: map[string]string{
			noteUserID:    userID,
			notePlanID:    plan.ID.String(),
			notePaymentID: paymentID,
		},
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("checkout verified",
		zap.String("order_id", orderID),
		zap.String("user_id", userID),
		zap.String("provider_subscription_id", providerSub.ID),
	)

	return &subscriptiondomain.VerifyCheckoutResponse{
		ProviderSubscriptionID: providerSub.ID,
	}, nil
}

func (s *Service) IngestWebhook(ctx context.Context, payload []byte, signature string) error {
	if !razorpay.VerifyWebhookSignature(payload, signature, s.cfg.WebhookSecret) {
		return paymentdomain.ErrInvalidSignature
	}

	parsed, err := paymentdomain.ParseWebhook(payload)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrUnknownEvent) {
			s.log.Debug("ignoring unhandled webhook event")
			return nil
		}
		return err
	}

	now := s.clock.Now()
	received := subscriptiondomain.EventRecord{
		ID:              s.genID.Generate(),
		Provider:        provider,
		ProviderEventID: eventKey(parsed),
		EventType:       parsed.Event,
		Payload:         datatypes.JSON(payload),
		ReceivedAt:      now,
	}

	inserted, err := s.repo.InsertEvent(ctx, s.db, &received)
	if err != nil {
		return err
	}
	stored := &received
	if !inserted {
		stored, err = s.repo.FindEvent(ctx, s.db, provider, received.ProviderEventID)
		if err != nil {
			return err
		}
		if stored == nil {
			return subscriptiondomain.ErrInvalidEvent
		}
		if stored.ProcessedAt != nil {
			return subscriptiondomain.ErrEventAlreadyProcessed
		}
	}

	if err := s.processEvent(ctx, parsed, now); err != nil {
		return err
	}

	return s.repo.MarkProcessed(ctx, s.db, stored.ID, now)
}

// eventKey is the dedupe key for a webhook delivery. Providers that omit
// the event id fall back to a digest of the raw body, so byte-identical
// replays still collapse onto one record.
func eventKey(parsed *paymentdomain.WebhookEvent) string {
	if parsed.ID != "" {
		return parsed.ID
	}
	sum := sha256.Sum256(parsed.Raw)
	return hex.EncodeToString(sum[:])
}

func (s *Service) processEvent(ctx context.Context, parsed *paymentdomain.WebhookEvent, now time.Time) error {
	switch parsed.Event {
	case paymentdomain.EventOrderPaid:
		return s.applyOrderPaid(ctx, parsed, now)
	case paymentdomain.EventPaymentCaptured:
		return s.applyPaymentCaptured(ctx, parsed, now)
	case paymentdomain.EventPaymentFailed:
		return s.applyPaymentFailed(ctx, parsed, now)
	case paymentdomain.EventSubscriptionCharged:
		return s.applySubscriptionCharged(ctx, parsed, now)
	case paymentdomain.EventSubscriptionCancelled:
		return s.applySubscriptionCancelled(ctx, parsed, now)
	default:
		return subscriptiondomain.ErrInvalidEvent
	}
}

func (s *Service) applyOrderPaid(ctx context.Context, parsed *paymentdomain.WebhookEvent, now time.Time) error {
	userID := strings.TrimSpace(parsed.Order.Notes[noteUserID])
	rawPlanID := strings.TrimSpace(parsed.Order.Notes[notePlanID])
	if userID == "" || rawPlanID == "" {
		return subscriptiondomain.ErrMissingCorrelation
	}

	// Processing and the processed-marker are separate commits, so a
	// crash between them hands the gateway's retry back to this handler.
	// The order id keeps that retry from minting a second record.
	if existing, err := s.repo.FindByOrderID(ctx, s.db, parsed.Order.ID); err != nil {
		return err
	} else if existing != nil {
		s.log.Info("order already applied", zap.String("order_id", parsed.Order.ID))
		return nil
	}

	plan, err := s.resolvePlan(ctx, rawPlanID)
	if err != nil {
		return err
	}

	record := &subscriptiondomain.Subscription{
		ID:        s.genID.Generate(),
		UserID:    userID,
		PlanID:    plan.ID,
		PlanName:  plan.Name,
		Price:     plan.Price,
		Features:  plan.Features,
		StartDate: now,
		EndDate:   now.AddDate(0, 0, plan.DurationDays),
		PaymentID: parsed.Payment.ID,
		OrderID:   parsed.Order.ID,
		Status:    subscriptiondomain.StatusActive,
		IsCurrent: true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.SupersedeCurrent(ctx, tx, userID, now); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, tx, record); err != nil {
			return err
		}
		return s.repo.SetUserSubscribed(ctx, tx, userID, true, now)
	})
	if err != nil {
		return err
	}

	s.audit(ctx, "subscription.created", record, map[string]any{
		"order_id":   record.OrderID,
		"payment_id": record.PaymentID,
	})
	s.notify(userID, event.SubscriptionUpdate{
		Type:     event.UpdateNewSubscription,
		UserID:   userID,
		PlanID:   plan.ID.String(),
		PlanName: plan.Name,
		EndDate:  record.EndDate.Format(time.RFC3339),
	})
	return nil
}

func (s *Service) applyPaymentCaptured(ctx context.Context, parsed *paymentdomain.WebhookEvent, now time.Time) error {
	record, err := s.repo.FindByPaymentID(ctx, s.db, parsed.Payment.ID)
	if err != nil {
		return err
	}
	if record == nil {
		// Capture can race ahead of order.paid; the record it confirms
		// does not exist yet.
		s.log.Warn("payment captured with no matching record",
			zap.String("payment_id", parsed.Payment.ID))
		return nil
	}
	if record.Status == subscriptiondomain.StatusActive {
		return nil
	}

	record.Status = subscriptiondomain.StatusActive
	record.UpdatedAt = now
	return s.repo.Update(ctx, s.db, record)
}

func (s *Service) applyPaymentFailed(ctx context.Context, parsed *paymentdomain.WebhookEvent, now time.Time) error {
	record, err := s.repo.FindByPaymentID(ctx, s.db, parsed.Payment.ID)
	if err != nil {
		return err
	}
	if record == nil {
		s.log.Warn("payment failed with no matching record",
			zap.String("payment_id", parsed.Payment.ID))
		return nil
	}

	wasCurrent := record.IsCurrent
	record.Status = subscriptiondomain.StatusFailed
	record.IsCurrent = false
	record.UpdatedAt = now

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Update(ctx, tx, record); err != nil {
			return err
		}
		if wasCurrent {
			return s.repo.SetUserSubscribed(ctx, tx, record.UserID, false, now)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.audit(ctx, "subscription.payment_failed", record, map[string]any{
		"payment_id": parsed.Payment.ID,
	})
	return nil
}

func (s *Service) applySubscriptionCharged(ctx context.Context, parsed *paymentdomain.WebhookEvent, now time.Time) error {
	record, err := s.findByProviderSubscription(ctx, parsed)
	if err != nil {
		return err
	}
	if record == nil {
		return subscriptiondomain.ErrSubscriptionNotFound
	}
	if record.PaymentID != "" && record.PaymentID == parsed.Payment.ID {
		// This charge already extended the term.
		return nil
	}

	plan, err := s.plans.FindByID(ctx, record.PlanID)
	if err != nil {
		return err
	}

	record.EndDate = record.EndDate.AddDate(0, 0, plan.DurationDays)
	record.PaymentID = parsed.Payment.ID
	record.Status = subscriptiondomain.StatusActive
	if record.ProviderSubID == "" {
		record.ProviderSubID = parsed.Subscription.ID
	}
	record.UpdatedAt = now

	if err := s.repo.Update(ctx, s.db, record); err != nil {
		return err
	}

	s.audit(ctx, "subscription.renewed", record, map[string]any{
		"payment_id": parsed.Payment.ID,
		"end_date":   record.EndDate.Format(time.RFC3339),
	})
	s.notify(record.UserID, event.SubscriptionUpdate{
		Type:     event.UpdateSubscriptionRenewed,
		UserID:   record.UserID,
		PlanID:   record.PlanID.String(),
		PlanName: record.PlanName,
		EndDate:  record.EndDate.Format(time.RFC3339),
	})
	return nil
}

func (s *Service) applySubscriptionCancelled(ctx context.Context, parsed *paymentdomain.WebhookEvent, now time.Time) error {
	record, err := s.findByProviderSubscription(ctx, parsed)
	if err != nil {
		return err
	}
	if record == nil {
		s.log.Warn("subscription cancelled with no matching record",
			zap.String("provider_subscription_id", parsed.Subscription.ID))
		return nil
	}
	if record.Status == subscriptiondomain.StatusCancelled {
		return nil
	}

	if err := s.cancelRecord(ctx, record, now); err != nil {
		return err
	}

	s.audit(ctx, "subscription.cancelled", record, map[string]any{
		"provider_subscription_id": parsed.Subscription.ID,
	})
	s.notify(record.UserID, event.SubscriptionUpdate{
		Type:   event.UpdateSubscriptionCancelled,
		UserID: record.UserID,
		PlanID: record.PlanID.String(),
	})
	return nil
}

// findByProviderSubscription resolves the record a recurring webhook
// refers to. Matching prefers the provider subscription id and falls
// back to the payment id carried in the subscription's notes, which
// covers the first charged event after checkout, before the provider
// subscription id has been backfilled.
func (s *Service) findByProviderSubscription(ctx context.Context, parsed *paymentdomain.WebhookEvent) (*subscriptiondomain.Subscription, error) {
	record, err := s.repo.FindByProviderSubID(ctx, s.db, parsed.Subscription.ID)
	if err != nil || record != nil {
		return record, err
	}
	return s.repo.FindByPaymentID(ctx, s.db, parsed.Subscription.Notes[notePaymentID])
}

func (s *Service) Cancel(ctx context.Context, req subscriptiondomain.CancelRequest) error {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return subscriptiondomain.ErrInvalidUser
	}
	id, err := snowflake.ParseString(strings.TrimSpace(req.SubscriptionID))
	if err != nil || id == 0 {
		return subscriptiondomain.ErrSubscriptionNotFound
	}

	record, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if record == nil || record.UserID != userID {
		return subscriptiondomain.ErrSubscriptionNotFound
	}
	if record.Status != subscriptiondomain.StatusActive {
		return subscriptiondomain.ErrSubscriptionNotActive
	}

	if record.ProviderSubID != "" {
		if err := s.gateway.CancelSubscription(ctx, record.ProviderSubID); err != nil {
			return err
		}
	}

	now := s.clock.Now()
	if err := s.cancelRecord(ctx, record, now); err != nil {
		return err
	}

	s.audit(ctx, "subscription.cancelled", record, map[string]any{
		"requested_by": userID,
	})
	s.notify(userID, event.SubscriptionUpdate{
		Type:   event.UpdateSubscriptionCancelled,
		UserID: userID,
		PlanID: record.PlanID.String(),
	})
	return nil
}

func (s *Service) cancelRecord(ctx context.Context, record *subscriptiondomain.Subscription, now time.Time) error {
	wasCurrent := record.IsCurrent
	record.Status = subscriptiondomain.StatusCancelled
	record.IsCurrent = false
	record.EndDate = now
	record.UpdatedAt = now

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Update(ctx, tx, record); err != nil {
			return err
		}
		if wasCurrent {
			return s.repo.SetUserSubscribed(ctx, tx, record.UserID, false, now)
		}
		return nil
	})
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]subscriptiondomain.Subscription, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, subscriptiondomain.ErrInvalidUser
	}
	return s.repo.ListByUser(ctx, s.db, userID)
}

func (s *Service) CurrentByUser(ctx context.Context, userID string) (*subscriptiondomain.Subscription, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, subscriptiondomain.ErrInvalidUser
	}
	record, err := s.repo.FindCurrentByUser(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, subscriptiondomain.ErrSubscriptionNotFound
	}
	return record, nil
}

func (s *Service) resolvePlan(ctx context.Context, rawPlanID string) (*plandomain.Plan, error) {
	planID, err := snowflake.ParseString(strings.TrimSpace(rawPlanID))
	if err != nil || planID == 0 {
		return nil, subscriptiondomain.ErrInvalidPlan
	}
	plan, err := s.plans.FindByID(ctx, planID)
	if err != nil {
		if errors.Is(err, plandomain.ErrPlanNotFound) {
			return nil, subscriptiondomain.ErrInvalidPlan
		}
		return nil, err
	}
	return plan, nil
}

func (s *Service) audit(ctx context.Context, action string, record *subscriptiondomain.Subscription, extra map[string]any) {
	if s.auditSvc == nil {
		return
	}
	metadata := map[string]any{
		"user_id":   record.UserID,
		"plan_id":   record.PlanID.String(),
		"plan_name": record.PlanName,
		"status":    string(record.Status),
	}
	for key, value := range extra {
		metadata[key] = value
	}
	if err := s.auditSvc.Record(ctx, auditdomain.ActorTypeSystem, "", action, "subscription", record.ID.String(), metadata); err != nil {
		s.log.Warn("audit record failed", zap.String("action", action), zap.Error(err))
	}
}

func (s *Service) notify(userID string, update event.SubscriptionUpdate) {
	if s.notifier == nil {
		return
	}
	s.notifier.SubscriptionUpdated(userID, update)
}
