package flutterwave

import (
	"errors"
	"testing"
)

func TestVerifySignature(t *testing.T) {
	const secret = "fltwv-secret-hash"

	if err := VerifySignature(secret, secret); err != nil {
		t.Fatalf("expected matching hash to verify, got %v", err)
	}

	if err := VerifySignature("wrong-hash", secret); !errors.Is(err, ErrInvalidHash) {
		t.Fatalf("expected ErrInvalidHash for wrong header, got %v", err)
	}

	if err := VerifySignature("", secret); !errors.Is(err, ErrInvalidHash) {
		t.Fatalf("expected ErrInvalidHash for missing header, got %v", err)
	}

	if err := VerifySignature(secret, ""); err == nil {
		t.Fatal("expected error when secret hash is not configured")
	}
}

func TestParseWebhook(t *testing.T) {
	const secret = "fltwv-secret-hash"
	payload := []byte(`{"event":"charge.completed","data":{"id":42,"tx_ref":"FUND_WALLET-1700000000-abc123","amount":100.5,"currency":"NGN","status":"successful"}}`)

	event, err := ParseWebhook(payload, secret, secret)
	if err != nil {
		t.Fatalf("expected webhook to parse, got %v", err)
	}
	if event.Event != EventChargeCompleted {
		t.Errorf("expected event %q, got %q", EventChargeCompleted, event.Event)
	}
	if event.Data.TxRef != "FUND_WALLET-1700000000-abc123" {
		t.Errorf("unexpected tx_ref %q", event.Data.TxRef)
	}
	if event.Data.Status != "successful" {
		t.Errorf("unexpected status %q", event.Data.Status)
	}

	if _, err := ParseWebhook(payload, "bad", secret); !errors.Is(err, ErrInvalidHash) {
		t.Fatalf("expected ErrInvalidHash, got %v", err)
	}
}
