package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/smallbiznis/nextway/internal/payment/domain"
	"github.com/smallbiznis/nextway/internal/payment/razorpay"
	subscriptiondomain "github.com/smallbiznis/nextway/internal/subscription/domain"
	"go.uber.org/zap"
)

// HandleRazorpayWebhook ingests gateway deliveries. The raw body is what
// the signature covers, so it must be read before any decoding. Replayed
// deliveries acknowledge with 200 so the gateway stops retrying; real
// processing failures return 500 so it retries later.
func (s *Server) HandleRazorpayWebhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	signature := c.GetHeader(razorpay.SignatureHeader)
	if err := s.subscriptionSvc.IngestWebhook(c.Request.Context(), body, signature); err != nil {
		switch {
		case errors.Is(err, subscriptiondomain.ErrEventAlreadyProcessed):
			c.JSON(http.StatusOK, gin.H{"status": "already_processed"})
		case errors.Is(err, paymentdomain.ErrInvalidSignature),
			errors.Is(err, paymentdomain.ErrInvalidPayload),
			errors.Is(err, subscriptiondomain.ErrMissingCorrelation):
			AbortWithError(c, err)
		default:
			s.log.Error("webhook processing failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": gin.H{
				"code":    "processing_failed",
				"message": http.StatusText(http.StatusInternalServerError),
			}})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
