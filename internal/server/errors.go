package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	chatdomain "github.com/smallbiznis/nextway/internal/chat/domain"
	interviewdomain "github.com/smallbiznis/nextway/internal/interview/domain"
	paymentdomain "github.com/smallbiznis/nextway/internal/payment/domain"
	plandomain "github.com/smallbiznis/nextway/internal/plan/domain"
	subscriptiondomain "github.com/smallbiznis/nextway/internal/subscription/domain"
)

// ErrNotFound is the generic not-found surfaced to clients.
var ErrNotFound = errors.New("not_found")

// APIError is the JSON error body every handler returns on failure.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e *APIError) Error() string { return e.Code }

func invalidRequestError() *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "invalid_request",
		Message: "request body could not be parsed",
	}
}

func newValidationError(field, code, message string) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    code,
		Message: message,
		Field:   field,
	}
}

// AbortWithError maps domain errors onto HTTP statuses and writes the
// error body. Unrecognized errors surface as a generic internal error so
// gateway and database detail never leaks to clients.
func AbortWithError(c *gin.Context, err error) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		c.AbortWithStatusJSON(apiErr.Status, gin.H{"error": apiErr})
		return
	}

	status := http.StatusInternalServerError
	code := "internal_error"

	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, subscriptiondomain.ErrSubscriptionNotFound),
		errors.Is(err, plandomain.ErrPlanNotFound),
		errors.Is(err, paymentdomain.ErrOrderNotFound):
		status = http.StatusNotFound
		code = "not_found"
	case errors.Is(err, paymentdomain.ErrInvalidSignature):
		status = http.StatusBadRequest
		code = "invalid_signature"
	case errors.Is(err, paymentdomain.ErrInvalidPayload),
		errors.Is(err, subscriptiondomain.ErrInvalidUser),
		errors.Is(err, subscriptiondomain.ErrInvalidPlan),
		errors.Is(err, subscriptiondomain.ErrMissingCorrelation),
		errors.Is(err, chatdomain.ErrInvalidMessage),
		errors.Is(err, chatdomain.ErrInvalidSender),
		errors.Is(err, interviewdomain.ErrInvalidOutcome):
		status = http.StatusBadRequest
		code = err.Error()
	case errors.Is(err, subscriptiondomain.ErrSubscriptionNotActive):
		status = http.StatusConflict
		code = "subscription_not_active"
	case errors.Is(err, paymentdomain.ErrGatewayRequest):
		// Wrapped gateway failures stay generic toward the caller.
		status = http.StatusInternalServerError
		code = "internal_error"
	}

	c.AbortWithStatusJSON(status, gin.H{"error": gin.H{
		"code":    code,
		"message": http.StatusText(status),
	}})
}
