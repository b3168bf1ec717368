package flutterwave

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
)

// Webhook event types
const (
	EventChargeCompleted = "charge.completed"
	EventTransfer        = "transfer.completed"
)

var ErrInvalidHash = errors.New("verif-hash does not match configured secret hash")

// WebhookEvent represents a Flutterwave webhook payload
type WebhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		ID       int64   `json:"id"`
		TxRef    string  `json:"tx_ref"`
		FlwRef   string  `json:"flw_ref"`
		Amount   float64 `json:"amount"`
		Currency string  `json:"currency"`
		Status   string  `json:"status"` // successful, failed
	} `json:"data"`
}

// VerifySignature checks the verif-hash header against the pre-shared secret
// hash. Flutterwave sends the hash verbatim, there is no payload HMAC.
func VerifySignature(header, secretHash string) error {
	if secretHash == "" {
		return errors.New("secret hash is not configured")
	}
	if header == "" {
		return ErrInvalidHash
	}
	if subtle.ConstantTimeCompare([]byte(header), []byte(secretHash)) != 1 {
		return ErrInvalidHash
	}
	return nil
}

// ParseWebhook verifies the verif-hash header and decodes the event
func ParseWebhook(payload []byte, header, secretHash string) (*WebhookEvent, error) {
	if err := VerifySignature(header, secretHash); err != nil {
		return nil, err
	}

	var event WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("failed to parse webhook payload: %w", err)
	}
	return &event, nil
}
