package gateway

import "testing"

func TestSelectByCountry(t *testing.T) {
	tests := []struct {
		country string
		want    string
	}{
		{"NG", Flutterwave},
		{"ng", Flutterwave},
		{"US", Stripe},
		{"GB", Stripe},
		{"GH", Flutterwave},
		{"ZA", Flutterwave},
		{"ZZ", Flutterwave}, // unknown country falls back
		{"", Flutterwave},
	}

	for _, tt := range tests {
		if got := SelectByCountry(tt.country); got != tt.want {
			t.Errorf("SelectByCountry(%q) = %q, want %q", tt.country, got, tt.want)
		}
	}

	// same input always routes the same way
	for i := 0; i < 10; i++ {
		if got := SelectByCountry("KE"); got != Flutterwave {
			t.Fatalf("SelectByCountry(KE) not deterministic, got %q", got)
		}
	}
}

func TestSelectForPayout(t *testing.T) {
	if gw, ok := SelectForPayout("NGN"); !ok || gw != Paystack {
		t.Errorf("SelectForPayout(NGN) = %q, %v", gw, ok)
	}
	if gw, ok := SelectForPayout("usd"); !ok || gw != Stripe {
		t.Errorf("SelectForPayout(usd) = %q, %v", gw, ok)
	}
	if gw, ok := SelectForPayout("GBP"); !ok || gw != Stripe {
		t.Errorf("SelectForPayout(GBP) = %q, %v", gw, ok)
	}
	if _, ok := SelectForPayout("EUR"); ok {
		t.Error("expected EUR payouts to be unsupported")
	}
}

func TestMapStatus(t *testing.T) {
	succeeded := []string{"success", "successful", "succeeded", "paid", "completed"}
	for _, s := range succeeded {
		if MapStatus(s) != StatusSucceeded {
			t.Errorf("MapStatus(%q) = %q, want succeeded", s, MapStatus(s))
		}
	}

	failed := []string{"failed", "cancelled", "declined", "abandoned"}
	for _, s := range failed {
		if MapStatus(s) != StatusFailed {
			t.Errorf("MapStatus(%q) = %q, want failed", s, MapStatus(s))
		}
	}

	if MapStatus("processing") != StatusPending {
		t.Error("unknown provider status should map to pending")
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get(Stripe); err == nil {
		t.Fatal("expected error for unregistered gateway")
	}

	r.Register(NewFlutterwaveAdapter(nil, "hash"))
	adapter, err := r.Get(Flutterwave)
	if err != nil {
		t.Fatalf("expected registered adapter, got %v", err)
	}
	if adapter.Name() != Flutterwave {
		t.Errorf("unexpected adapter name %q", adapter.Name())
	}
	if len(r.List()) != 1 {
		t.Errorf("expected 1 registered gateway, got %d", len(r.List()))
	}
}
