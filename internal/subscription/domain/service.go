package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/nextway/internal/realtime/event"
)

// Service drives the subscription lifecycle: checkout initialization,
// webhook ingestion, user cancellation and history reads.
type Service interface {
	InitializeOrder(ctx context.Context, req InitializeOrderRequest) (*InitializeOrderResponse, error)
	VerifyCheckout(ctx context.Context, req VerifyCheckoutRequest) (*VerifyCheckoutResponse, error)
	IngestWebhook(ctx context.Context, payload []byte, signature string) error
	Cancel(ctx context.Context, req CancelRequest) error
	ListByUser(ctx context.Context, userID string) ([]Subscription, error)
	CurrentByUser(ctx context.Context, userID string) (*Subscription, error)
}

// Notifier pushes lifecycle transitions into the user's subscription
// room. Calls are fire-and-forget; delivery is never confirmed.
type Notifier interface {
	SubscriptionUpdated(userID string, update event.SubscriptionUpdate)
}

type InitializeOrderRequest struct {
	UserID string `json:"user_id"`
	PlanID string `json:"plan_id"`
}

type InitializeOrderResponse struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	PlanID   string `json:"plan_id"`
}

type VerifyCheckoutRequest struct {
	UserID    string `json:"user_id"`
	PlanID    string `json:"plan_id"`
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}

type VerifyCheckoutResponse struct {
	ProviderSubscriptionID string `json:"provider_subscription_id"`
}

type CancelRequest struct {
	UserID         string
	SubscriptionID string
}

var (
	ErrInvalidUser           = errors.New("invalid_user")
	ErrInvalidPlan           = errors.New("invalid_plan")
	ErrSubscriptionNotFound  = errors.New("subscription_not_found")
	ErrSubscriptionNotActive = errors.New("subscription_not_active")
	ErrInvalidEvent          = errors.New("invalid_event")
	ErrEventAlreadyProcessed = errors.New("event_already_processed")
	ErrMissingCorrelation    = errors.New("missing_correlation_metadata")
)
