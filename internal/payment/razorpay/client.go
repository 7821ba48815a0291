// Package razorpay implements the payment gateway boundary against the
// Razorpay REST API.
package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gojektech/heimdall/v6"
	"github.com/gojektech/heimdall/v6/httpclient"
	"github.com/smallbiznis/nextway/internal/config"
	"github.com/smallbiznis/nextway/internal/observability/tracing"
	paymentdomain "github.com/smallbiznis/nextway/internal/payment/domain"
	"go.uber.org/zap"
)

// Client calls the Razorpay API with bounded timeouts and retries.
type Client struct {
	http      *httpclient.Client
	baseURL   string
	keyID     string
	keySecret string
	log       *zap.Logger
}

// NewClient builds a gateway client from configuration. Every call is
// bounded by the configured timeout; transient failures are retried with
// constant backoff before surfacing an error.
func NewClient(cfg config.RazorpayConfig, log *zap.Logger) paymentdomain.Gateway {
	backoff := heimdall.NewConstantBackoff(500*time.Millisecond, 100*time.Millisecond)
	client := httpclient.NewClient(
		httpclient.WithHTTPTimeout(cfg.Timeout),
		httpclient.WithHTTPClient(tracing.WrapHTTPClient(&http.Client{Timeout: cfg.Timeout})),
		httpclient.WithRetrier(heimdall.NewRetrier(backoff)),
		httpclient.WithRetryCount(cfg.RetryCount),
	)

	return &Client{
		http:      client,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		log:       log.Named("payment.razorpay"),
	}
}

type orderResponse struct {
	ID       string            `json:"id"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Status   string            `json:"status"`
	Notes    map[string]string `json:"notes"`
}

type subscriptionResponse struct {
	ID     string `json:"id"`
	PlanID string `json:"plan_id"`
	Status string `json:"status"`
}

func (c *Client) CreateOrder(ctx context.Context, req paymentdomain.CreateOrderRequest) (*paymentdomain.Order, error) {
	body := map[string]any{
		"amount":   req.Amount,
		"currency": req.Currency,
		"receipt":  req.Receipt,
		"notes":    req.Notes,
	}

	var resp orderResponse
	if err := c.do(ctx, http.MethodPost, "/orders", body, &resp); err != nil {
		return nil, err
	}
	return &paymentdomain.Order{
		ID:       resp.ID,
		Amount:   resp.Amount,
		Currency: resp.Currency,
		Status:   resp.Status,
		Notes:    resp.Notes,
	}, nil
}

func (c *Client) FetchOrder(ctx context.Context, orderID string) (*paymentdomain.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, paymentdomain.ErrOrderNotFound
	}

	var resp orderResponse
	if err := c.do(ctx, http.MethodGet, "/orders/"+orderID, nil, &resp); err != nil {
		return nil, err
	}
	return &paymentdomain.Order{
		ID:       resp.ID,
		Amount:   resp.Amount,
		Currency: resp.Currency,
		Status:   resp.Status,
		Notes:    resp.Notes,
	}, nil
}

func (c *Client) CreateSubscription(ctx context.Context, req paymentdomain.CreateSubscriptionRequest) (*paymentdomain.ProviderSubscription, error) {
	body := map[string]any{
		"plan_id":         req.PlanID,
		"total_count":     req.TotalCount,
		"customer_notify": 1,
		"notes":           req.Notes,
	}

	var resp subscriptionResponse
	if err := c.do(ctx, http.MethodPost, "/subscriptions", body, &resp); err != nil {
		return nil, err
	}
	return &paymentdomain.ProviderSubscription{
		ID:     resp.ID,
		PlanID: resp.PlanID,
		Status: resp.Status,
	}, nil
}

func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string) error {
	subscriptionID = strings.TrimSpace(subscriptionID)
	if subscriptionID == "" {
		return paymentdomain.ErrGatewayRequest
	}
	return c.do(ctx, http.MethodPost, "/subscriptions/"+subscriptionID+"/cancel", map[string]any{}, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("gateway request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %s %s", paymentdomain.ErrGatewayRequest, method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return paymentdomain.ErrOrderNotFound
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.log.Warn("gateway returned error status",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return fmt.Errorf("%w: status %d", paymentdomain.ErrGatewayRequest, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response", paymentdomain.ErrGatewayRequest)
	}
	return nil
}
