package domain

import (
	"encoding/json"
	"errors"
	"strings"
)

// Webhook event names delivered by the provider.
const (
	EventOrderPaid             = "order.paid"
	EventPaymentCaptured       = "payment.captured"
	EventPaymentFailed         = "payment.failed"
	EventSubscriptionCharged   = "subscription.charged"
	EventSubscriptionCancelled = "subscription.cancelled"
)

// WebhookEvent is the parsed provider payload. Only the entities the state
// machine consumes are unpacked; the raw body stays available for audit.
type WebhookEvent struct {
	ID           string
	Event        string
	Payment      PaymentEntity
	Order        OrderEntity
	Subscription SubscriptionEntity
	Raw          []byte
}

// PaymentEntity is the payment section of a webhook payload.
type PaymentEntity struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`
	Amount  int64  `json:"amount"`
	Status  string `json:"status"`
}

// OrderEntity is the order section of a webhook payload. Notes carry the
// correlation metadata set at order creation.
type OrderEntity struct {
	ID     string            `json:"id"`
	Amount int64             `json:"amount"`
	Notes  map[string]string `json:"notes"`
}

// SubscriptionEntity is the subscription section of a webhook payload.
// Notes round-trip the correlation metadata set when the provider
// subscription was created.
type SubscriptionEntity struct {
	ID     string            `json:"id"`
	PlanID string            `json:"plan_id"`
	Status string            `json:"status"`
	Notes  map[string]string `json:"notes"`
}

var (
	ErrInvalidPayload = errors.New("invalid_payload")
	ErrUnknownEvent   = errors.New("unknown_event")
)

type webhookEnvelope struct {
	ID      string `json:"id"`
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity PaymentEntity `json:"entity"`
		} `json:"payment"`
		Order struct {
			Entity OrderEntity `json:"entity"`
		} `json:"order"`
		Subscription struct {
			Entity SubscriptionEntity `json:"entity"`
		} `json:"subscription"`
	} `json:"payload"`
}

// ParseWebhook decodes a raw provider payload into a WebhookEvent.
// Signature verification must have happened before this is called.
func ParseWebhook(body []byte) (*WebhookEvent, error) {
	if !json.Valid(body) {
		return nil, ErrInvalidPayload
	}
	var envelope webhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, ErrInvalidPayload
	}

	name := strings.TrimSpace(envelope.Event)
	if name == "" {
		return nil, ErrInvalidPayload
	}
	switch name {
	case EventOrderPaid, EventPaymentCaptured, EventPaymentFailed,
		EventSubscriptionCharged, EventSubscriptionCancelled:
	default:
		return nil, ErrUnknownEvent
	}

	return &WebhookEvent{
		ID:           strings.TrimSpace(envelope.ID),
		Event:        name,
		Payment:      envelope.Payload.Payment.Entity,
		Order:        envelope.Payload.Order.Entity,
		Subscription: envelope.Payload.Subscription.Entity,
		Raw:          body,
	}, nil
}
