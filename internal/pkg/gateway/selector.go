package gateway

import "strings"

// Country coverage per gateway, ISO 3166-1 alpha-2. Stripe is preferred
// where available, then Flutterwave, then Paystack. Flutterwave is the
// fallback for countries no gateway lists.
var (
	stripeCountries = map[string]bool{
		"US": true, "GB": true, "CA": true, "AU": true, "NZ": true,
		"IE": true, "DE": true, "FR": true, "ES": true, "IT": true,
		"NL": true, "BE": true, "AT": true, "PT": true, "SE": true,
		"NO": true, "DK": true, "FI": true, "CH": true, "JP": true,
		"SG": true, "HK": true, "AE": true,
	}

	flutterwaveCountries = map[string]bool{
		"NG": true, "GH": true, "KE": true, "UG": true, "TZ": true,
		"RW": true, "ZM": true, "CM": true, "CI": true, "SN": true,
		"ML": true, "BF": true, "EG": true, "MA": true, "ZA": true,
	}

	paystackCountries = map[string]bool{
		"NG": true, "GH": true, "ZA": true, "KE": true, "CI": true,
	}
)

// SelectByCountry picks the gateway for a payer's country. Deterministic:
// the same country always routes to the same gateway.
func SelectByCountry(countryCode string) string {
	code := strings.ToUpper(strings.TrimSpace(countryCode))

	switch {
	case stripeCountries[code]:
		return Stripe
	case flutterwaveCountries[code]:
		return Flutterwave
	case paystackCountries[code]:
		return Paystack
	default:
		return Flutterwave
	}
}

// SelectForPayout routes a withdrawal by currency. Paystack handles NGN
// transfers, Stripe handles GBP and USD payouts.
func SelectForPayout(currency string) (string, bool) {
	switch strings.ToUpper(strings.TrimSpace(currency)) {
	case "NGN":
		return Paystack, true
	case "GBP", "USD":
		return Stripe, true
	default:
		return "", false
	}
}
