package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignatureHeader is the header carrying the webhook signature.
const SignatureHeader = "X-Razorpay-Signature"

// VerifyWebhookSignature recomputes the HMAC-SHA256 of the raw body and
// compares it against the header value in constant time. Any mismatch must
// short-circuit all state mutation for the request.
func VerifyWebhookSignature(body []byte, signature, secret string) bool {
	if len(body) == 0 || signature == "" || secret == "" {
		return false
	}
	return hmacEqual(body, signature, secret)
}

// VerifyCheckoutSignature validates the client-supplied signature issued
// at checkout, computed over "orderID|paymentID".
func VerifyCheckoutSignature(orderID, paymentID, signature, secret string) bool {
	if orderID == "" || paymentID == "" || signature == "" || secret == "" {
		return false
	}
	return hmacEqual([]byte(orderID+"|"+paymentID), signature, secret)
}

func hmacEqual(message []byte, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
