package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

// Webhook event types
const (
	EventChargeSuccess   = "charge.success"
	EventChargeFailed    = "charge.failed"
	EventTransferSuccess = "transfer.success"
	EventTransferFailed  = "transfer.failed"
)

var ErrInvalidSignature = errors.New("x-paystack-signature does not match payload")

// WebhookEvent represents a Paystack webhook payload
type WebhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		ID        int64  `json:"id"`
		Reference string `json:"reference"`
		Status    string `json:"status"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
	} `json:"data"`
}

// VerifySignature checks the x-paystack-signature header, a hex HMAC-SHA512
// of the raw request body keyed by the API secret
func VerifySignature(payload []byte, header, secretKey string) error {
	if secretKey == "" {
		return errors.New("secret key is not configured")
	}
	if header == "" {
		return ErrInvalidSignature
	}

	mac := hmac.New(sha512.New, []byte(secretKey))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(header)) {
		return ErrInvalidSignature
	}
	return nil
}

// ParseWebhook verifies the signature header and decodes the event
func ParseWebhook(payload []byte, header, secretKey string) (*WebhookEvent, error) {
	if err := VerifySignature(payload, header, secretKey); err != nil {
		return nil, err
	}

	var event WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("failed to parse webhook payload: %w", err)
	}
	return &event, nil
}

// SignPayload produces a valid signature header for a payload, used in tests
func SignPayload(payload []byte, secretKey string) string {
	mac := hmac.New(sha512.New, []byte(secretKey))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
