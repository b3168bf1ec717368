package paystack

import (
	"errors"
	"testing"
)

func TestVerifySignature(t *testing.T) {
	const secret = "sk_test_paystack"
	payload := []byte(`{"event":"charge.success","data":{"reference":"FUND_WALLET-1700000000-abc123","status":"success","amount":10050,"currency":"NGN"}}`)

	sig := SignPayload(payload, secret)
	if err := VerifySignature(payload, sig, secret); err != nil {
		t.Fatalf("expected valid signature to verify, got %v", err)
	}

	if err := VerifySignature(payload, sig, "other-secret"); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for wrong secret, got %v", err)
	}

	tampered := append([]byte{}, payload...)
	tampered[len(tampered)-2] = 'X'
	if err := VerifySignature(tampered, sig, secret); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for tampered body, got %v", err)
	}

	if err := VerifySignature(payload, "", secret); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for missing header, got %v", err)
	}
}

func TestParseWebhook(t *testing.T) {
	const secret = "sk_test_paystack"
	payload := []byte(`{"event":"charge.success","data":{"id":7,"reference":"FUND_WALLET-1700000000-abc123","status":"success","amount":10050,"currency":"NGN"}}`)

	event, err := ParseWebhook(payload, SignPayload(payload, secret), secret)
	if err != nil {
		t.Fatalf("expected webhook to parse, got %v", err)
	}
	if event.Event != EventChargeSuccess {
		t.Errorf("expected event %q, got %q", EventChargeSuccess, event.Event)
	}
	if event.Data.Reference != "FUND_WALLET-1700000000-abc123" {
		t.Errorf("unexpected reference %q", event.Data.Reference)
	}
	if event.Data.Amount != 10050 {
		t.Errorf("unexpected amount %d", event.Data.Amount)
	}
}
