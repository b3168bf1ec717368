package gateway

import (
	"context"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"
)

// Gateway identifiers
const (
	Stripe      = "STRIPE"
	Flutterwave = "FLUTTERWAVE"
	Paystack    = "PAYSTACK"
)

// Standardized payment statuses across providers
const (
	StatusPending   = "pending"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

var (
	// ErrSignatureInvalid is returned when a webhook's signature header does
	// not authenticate the payload. Handlers must reject the request without
	// reading the body further.
	ErrSignatureInvalid = errors.New("webhook signature verification failed")

	// ErrEventIgnored is returned by ParseWebhook for authentic events the
	// platform does not act on. Handlers acknowledge these with 200.
	ErrEventIgnored = errors.New("webhook event type not handled")
)

// Adapter is the interface every payment gateway integration implements.
// All amounts are in major currency units; adapters convert to provider
// subunits internally.
type Adapter interface {
	// Name returns the gateway identifier ("STRIPE", "FLUTTERWAVE", "PAYSTACK")
	Name() string

	// Initiate starts a payment keyed by the platform reference and returns
	// a redirect URL or client secret for the payer
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error)

	// Verify queries the provider for the current state of a payment. For
	// Stripe the ref is the provider object id (cs_... or pi_...); for
	// Flutterwave and Paystack it is the platform reference.
	Verify(ctx context.Context, ref string) (*Event, error)

	// ParseWebhook authenticates a webhook request and maps it to a
	// standardized event. Returns ErrSignatureInvalid on failed
	// authentication and ErrEventIgnored for event types the platform
	// does not process.
	ParseWebhook(payload []byte, headers http.Header) (*Event, error)
}

// InitiateRequest is a standardized payment creation request
type InitiateRequest struct {
	Reference   string
	Amount      decimal.Decimal
	Currency    string
	Email       string
	Name        string
	Description string
	RedirectURL string
	CancelURL   string
	Metadata    map[string]string
}

// InitiateResult is a standardized payment creation response
type InitiateResult struct {
	Gateway      string
	Reference    string
	PaymentURL   string // redirect URL for hosted checkout flows
	ClientSecret string // set for Stripe payment-intent flows
	ProviderRef  string // provider's own identifier for the payment
}

// Event is a standardized payment event, produced by webhook parsing and
// by Verify calls
type Event struct {
	Gateway     string
	Type        string // provider event type, verbatim
	Reference   string // platform reference carried through the provider
	ProviderRef string
	Status      string // StatusPending, StatusSucceeded, StatusFailed
	Amount      decimal.Decimal
	Currency    string
	Raw         []byte // original payload for audit archival
}

// MapStatus converts a provider-specific payment status to the
// standardized set
func MapStatus(providerStatus string) string {
	switch providerStatus {
	case "success", "successful", "succeeded", "completed", "paid", "complete":
		return StatusSucceeded
	case "failed", "cancelled", "canceled", "declined", "abandoned", "expired":
		return StatusFailed
	default:
		return StatusPending
	}
}
