package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParsePositive(t *testing.T) {
	if _, err := ParsePositive("40.00"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParsePositive("0"); err == nil {
		t.Fatal("expected error for zero amount")
	}
	if _, err := ParsePositive("-5"); err == nil {
		t.Fatal("expected error for negative amount")
	}
	if _, err := ParsePositive("abc"); err == nil {
		t.Fatal("expected error for non-numeric amount")
	}
}

func TestSubunitsRoundTrip(t *testing.T) {
	amount := decimal.RequireFromString("100.50")
	cents := ToSubunits(amount, "USD")
	if cents != 10050 {
		t.Fatalf("expected 10050 cents, got %d", cents)
	}
	back := FromSubunits(cents, "USD")
	if !back.Equal(amount) {
		t.Fatalf("expected %s after round trip, got %s", amount, back)
	}
}

func TestZeroDecimalCurrency(t *testing.T) {
	amount := decimal.RequireFromString("100")
	if got := ToSubunits(amount, "JPY"); got != 100 {
		t.Fatalf("expected 100 for JPY, got %d", got)
	}
}

func TestFormat(t *testing.T) {
	if got := Format(decimal.RequireFromString("40.5")); got != "40.50" {
		t.Fatalf("expected 40.50, got %s", got)
	}
}
