package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidSignature is returned when the Stripe-Signature header does
// not authenticate the payload
var ErrInvalidSignature = errors.New("stripe-signature does not authenticate payload")

// Webhook event types the platform reacts to
const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventPaymentIntentSucceeded   = "payment_intent.succeeded"
	EventPaymentIntentFailed      = "payment_intent.payment_failed"
	EventPayoutPaid               = "payout.paid"
	EventPayoutFailed             = "payout.failed"
)

// DefaultTolerance is the maximum accepted age of a signed webhook,
// matching stripe-go's signature verification default.
const DefaultTolerance = 5 * time.Minute

// WebhookEvent is the envelope Stripe posts to the webhook endpoint
type WebhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// VerifySignature validates the Stripe-Signature header against the raw
// request body. The header carries a unix timestamp and one or more v1
// HMAC-SHA256 signatures over "<timestamp>.<body>".
func VerifySignature(payload []byte, header, secret string, tolerance time.Duration) error {
	if secret == "" || header == "" {
		return fmt.Errorf("%w: missing webhook secret or signature header", ErrInvalidSignature)
	}

	var ts int64
	var signatures []string
	for _, pair := range strings.Split(header, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) != 2 {
			continue
		}
		switch parts[0] {
		case "t":
			parsed, err := strconv.ParseInt(parts[1], 10, 64)
			if err != nil {
				return fmt.Errorf("%w: invalid signature timestamp: %v", ErrInvalidSignature, err)
			}
			ts = parsed
		case "v1":
			signatures = append(signatures, parts[1])
		}
	}

	if ts == 0 || len(signatures) == 0 {
		return fmt.Errorf("%w: malformed header", ErrInvalidSignature)
	}

	if tolerance > 0 {
		age := time.Since(time.Unix(ts, 0))
		if age > tolerance || age < -tolerance {
			return fmt.Errorf("%w: timestamp outside tolerance window", ErrInvalidSignature)
		}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	for _, sig := range signatures {
		given, err := hex.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(given, expected) {
			return nil
		}
	}
	return fmt.Errorf("%w: no matching v1 signature", ErrInvalidSignature)
}

// ParseWebhook verifies the signature and decodes the event envelope
func ParseWebhook(payload []byte, header, secret string) (*WebhookEvent, error) {
	if err := VerifySignature(payload, header, secret, DefaultTolerance); err != nil {
		return nil, err
	}

	var event WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("failed to parse stripe webhook payload: %w", err)
	}
	return &event, nil
}

// SignPayload produces a valid Stripe-Signature header for testing
func SignPayload(payload []byte, secret string, at time.Time) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	return "t=" + ts + ",v1=" + hex.EncodeToString(mac.Sum(nil))
}
