package stripe

import (
	"errors"
	"testing"
	"time"
)

func TestVerifySignature_Valid(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded"}`)
	header := SignPayload(payload, "whsec_test", time.Now())

	if err := VerifySignature(payload, header, "whsec_test", DefaultTolerance); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestVerifySignature_WrongSecret(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	header := SignPayload(payload, "whsec_other", time.Now())

	if err := VerifySignature(payload, header, "whsec_test", DefaultTolerance); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifySignature_StaleTimestamp(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	header := SignPayload(payload, "whsec_test", time.Now().Add(-time.Hour))

	if err := VerifySignature(payload, header, "whsec_test", DefaultTolerance); err == nil {
		t.Fatal("expected tolerance error for stale timestamp")
	}
}

func TestVerifySignature_TamperedBody(t *testing.T) {
	payload := []byte(`{"amount":100}`)
	header := SignPayload(payload, "whsec_test", time.Now())

	if err := VerifySignature([]byte(`{"amount":999}`), header, "whsec_test", DefaultTolerance); err == nil {
		t.Fatal("expected signature mismatch for tampered body")
	}
}

func TestParseWebhook(t *testing.T) {
	payload := []byte(`{"id":"evt_42","type":"checkout.session.completed","data":{"object":{"id":"cs_123","payment_status":"paid"}}}`)
	header := SignPayload(payload, "whsec_test", time.Now())

	event, err := ParseWebhook(payload, header, "whsec_test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Type != EventCheckoutSessionCompleted {
		t.Fatalf("expected checkout.session.completed, got %s", event.Type)
	}
}

func TestParseWebhook_SignedButMalformed(t *testing.T) {
	payload := []byte(`{"id":"evt_broken"`)
	header := SignPayload(payload, "whsec_test", time.Now())

	_, err := ParseWebhook(payload, header, "whsec_test")
	if err == nil {
		t.Fatal("expected parse error for truncated payload")
	}
	if errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("decode failure must not read as a signature failure: %v", err)
	}
}
