package payment_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/asherhq/asher-api/internal/domain/payment"
	"github.com/asherhq/asher-api/internal/domain/transaction"
	"github.com/asherhq/asher-api/internal/domain/wallet"
	"github.com/asherhq/asher-api/internal/pkg/gateway"
	"github.com/asherhq/asher-api/internal/pkg/paystack"
)

const testPaystackSecret = "sk_test_webhook"

// newWebhookServer mounts the webhook routes the way main does, with a
// Paystack adapter keyed to a known secret so tests can sign payloads.
func newWebhookServer(t *testing.T, f *fixture) *httptest.Server {
	t.Helper()

	registry := gateway.NewRegistry()
	registry.Register(gateway.NewPaystackAdapter(
		paystack.NewClient(paystack.Config{SecretKey: testPaystackSecret}),
		testPaystackSecret,
	))

	svc := payment.NewService(wallet.NewService(f.wallets), f.ledger, registry, f.engine, nil, nil, "")
	h := payment.NewHandler(svc, registry, nil, nil)

	r := chi.NewRouter()
	r.Mount("/webhooks", h.WebhookRoutes())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func chargeSuccessBody(ref string) []byte {
	return []byte(fmt.Sprintf(`{"event":"charge.success","data":{"id":1,"reference":%q,"status":"success","amount":10000,"currency":"USD"}}`, ref))
}

func postWebhook(t *testing.T, srv *httptest.Server, body []byte, signature string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/webhooks/paystack", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("building request failed: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("x-paystack-signature", signature)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("webhook request failed: %v", err)
	}
	resp.Body.Close()
	return resp
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	f := newFixture(t)
	defer cleanupTestDB(f.db)
	srv := newWebhookServer(t, f)

	w := f.newWallet(t, "USD", "")
	ref := transaction.GenerateReference(transaction.RefFundWallet)
	row := f.pendingTx(t, w, transaction.TypeCredit, "100.00", ref, transaction.RefFundWallet)

	body := chargeSuccessBody(ref)

	resp := postWebhook(t, srv, body, "deadbeef")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("forged signature got %d, want 401", resp.StatusCode)
	}
	resp = postWebhook(t, srv, body, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("missing signature got %d, want 401", resp.StatusCode)
	}

	// nothing may have moved
	if got := f.balance(t, w.ID); !got.IsZero() {
		t.Fatalf("rejected webhook credited the wallet: %s", got)
	}
	current, err := f.ledger.GetByID(context.Background(), row.ID)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if current.Status != transaction.StatusPending {
		t.Fatalf("rejected webhook moved the row to %s", current.Status)
	}

	// the same payload with a valid signature settles the payment
	resp = postWebhook(t, srv, body, paystack.SignPayload(body, testPaystackSecret))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("signed webhook got %d, want 200", resp.StatusCode)
	}
	if got := f.balance(t, w.ID); !got.Equal(decimal.RequireFromString("100.00")) {
		t.Fatalf("signed webhook balance = %s, want 100.00", got)
	}
}
