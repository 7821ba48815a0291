// Package domain defines the payment gateway boundary.
package domain

import (
	"context"
	"errors"
)

// Gateway is the outbound contract to the payment provider. External ids
// returned here are the correlation keys webhooks are matched on.
type Gateway interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error)
	FetchOrder(ctx context.Context, orderID string) (*Order, error)
	CreateSubscription(ctx context.Context, req CreateSubscriptionRequest) (*ProviderSubscription, error)
	CancelSubscription(ctx context.Context, subscriptionID string) error
}

// CreateOrderRequest opens a one-time order for a plan purchase. Notes are
// opaque correlation metadata round-tripped back on webhook delivery.
type CreateOrderRequest struct {
	Amount   int64
	Currency string
	Receipt  string
	Notes    map[string]string
}

// Order mirrors the provider's order object.
type Order struct {
	ID       string
	Amount   int64
	Currency string
	Status   string
	Notes    map[string]string
}

// CreateSubscriptionRequest binds a recurring subscription to a provider
// plan.
type CreateSubscriptionRequest struct {
	PlanID     string
	TotalCount int
	Notes      map[string]string
}

// ProviderSubscription mirrors the provider's subscription object.
type ProviderSubscription struct {
	ID     string
	PlanID string
	Status string
}

var (
	ErrGatewayRequest   = errors.New("gateway_request_failed")
	ErrOrderNotFound    = errors.New("order_not_found")
	ErrInvalidSignature = errors.New("invalid_signature")
)
