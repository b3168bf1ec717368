package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Zero-decimal currencies per gateway conventions: amounts are sent to
// providers in the smallest unit, and these have no subunit.
var zeroDecimalCurrencies = map[string]bool{
	"JPY": true,
	"KRW": true,
	"UGX": true,
}

// Parse parses a decimal amount string. Rejects non-numeric input and
// negative values; amounts flowing through the ledger are always positive,
// direction is carried by the transaction type.
func Parse(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("amount %q must not be negative", raw)
	}
	return amount, nil
}

// ParsePositive is Parse plus a strict > 0 check.
func ParsePositive(raw string) (decimal.Decimal, error) {
	amount, err := Parse(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount %q must be greater than zero", raw)
	}
	return amount, nil
}

// ToSubunits converts a major-unit amount to the provider's smallest unit
// (cents, kobo, pesewas). Stripe and Paystack APIs take integer subunits.
func ToSubunits(amount decimal.Decimal, currency string) int64 {
	if zeroDecimalCurrencies[strings.ToUpper(currency)] {
		return amount.Round(0).IntPart()
	}
	return amount.Shift(2).Round(0).IntPart()
}

// FromSubunits converts a provider smallest-unit amount back to major units.
func FromSubunits(subunits int64, currency string) decimal.Decimal {
	d := decimal.NewFromInt(subunits)
	if zeroDecimalCurrencies[strings.ToUpper(currency)] {
		return d
	}
	return d.Shift(-2)
}

// Format renders an amount with two decimal places for display and
// provider form fields.
func Format(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}
