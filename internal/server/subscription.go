package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/nextway/internal/audit/domain"
	subscriptiondomain "github.com/smallbiznis/nextway/internal/subscription/domain"
)

type initializeOrderRequest struct {
	UserID string `json:"user_id"`
	PlanID string `json:"plan_id"`
}

func (s *Server) InitializeOrder(c *gin.Context) {
	var req initializeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.subscriptionSvc.InitializeOrder(c.Request.Context(), subscriptiondomain.InitializeOrderRequest{
		UserID: strings.TrimSpace(req.UserID),
		PlanID: strings.TrimSpace(req.PlanID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type verifyCheckoutRequest struct {
	UserID    string `json:"user_id"`
	PlanID    string `json:"plan_id"`
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

func (s *Server) VerifyCheckout(c *gin.Context) {
	var req verifyCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.subscriptionSvc.VerifyCheckout(c.Request.Context(), subscriptiondomain.VerifyCheckoutRequest{
		UserID:    strings.TrimSpace(req.UserID),
		PlanID:    strings.TrimSpace(req.PlanID),
		OrderID:   strings.TrimSpace(req.OrderID),
		PaymentID: strings.TrimSpace(req.PaymentID),
		Signature: strings.TrimSpace(req.Signature),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type cancelSubscriptionRequest struct {
	UserID string `json:"user_id"`
}

func (s *Server) CancelSubscription(c *gin.Context) {
	var req cancelSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	userID := strings.TrimSpace(req.UserID)
	subscriptionID := strings.TrimSpace(c.Param("id"))
	if subscriptionID == "" {
		AbortWithError(c, newValidationError("id", "invalid_subscription_id", "invalid subscription id"))
		return
	}

	err := s.subscriptionSvc.Cancel(c.Request.Context(), subscriptiondomain.CancelRequest{
		UserID:         userID,
		SubscriptionID: subscriptionID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		_ = s.auditSvc.Record(c.Request.Context(), auditdomain.ActorTypeUser, userID,
			"subscription.cancel_requested", "subscription", subscriptionID, map[string]any{
				"user_id": userID,
			})
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) ListSubscriptions(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("user_id"))
	if userID == "" {
		AbortWithError(c, newValidationError("user_id", "required", "user_id is required"))
		return
	}

	records, err := s.subscriptionSvc.ListByUser(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": records})
}

func (s *Server) CurrentSubscription(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("user_id"))
	if userID == "" {
		AbortWithError(c, newValidationError("user_id", "required", "user_id is required"))
		return
	}

	record, err := s.subscriptionSvc.CurrentByUser(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": record})
}
