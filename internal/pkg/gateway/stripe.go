package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/asherhq/asher-api/internal/pkg/money"
	"github.com/asherhq/asher-api/internal/pkg/stripe"
)

// StripeAdapter wraps the Stripe REST client behind the Adapter interface.
// Checkout sessions carry the platform reference in metadata so webhooks
// can be correlated back to the pending ledger rows.
type StripeAdapter struct {
	client        *stripe.Client
	webhookSecret string
}

func NewStripeAdapter(client *stripe.Client, webhookSecret string) *StripeAdapter {
	return &StripeAdapter{
		client:        client,
		webhookSecret: webhookSecret,
	}
}

func (a *StripeAdapter) Name() string {
	return Stripe
}

func (a *StripeAdapter) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	metadata := map[string]string{"reference": req.Reference}
	for k, v := range req.Metadata {
		metadata[k] = v
	}

	session, err := a.client.CreateCheckoutSession(
		ctx,
		money.ToSubunits(req.Amount, req.Currency),
		req.Currency,
		req.RedirectURL,
		req.CancelURL,
		req.Description,
		metadata,
	)
	if err != nil {
		return nil, fmt.Errorf("stripe checkout session failed: %w", err)
	}

	return &InitiateResult{
		Gateway:     Stripe,
		Reference:   req.Reference,
		PaymentURL:  session.URL,
		ProviderRef: session.ID,
	}, nil
}

func (a *StripeAdapter) Verify(ctx context.Context, ref string) (*Event, error) {
	switch {
	case strings.HasPrefix(ref, "cs_"):
		session, err := a.client.GetCheckoutSession(ctx, ref)
		if err != nil {
			return nil, err
		}
		status := StatusPending
		if session.PaymentStatus == "paid" {
			status = StatusSucceeded
		} else if session.Status == "expired" {
			status = StatusFailed
		}
		return &Event{
			Gateway:     Stripe,
			Type:        "checkout.session",
			ProviderRef: session.ID,
			Status:      status,
		}, nil

	case strings.HasPrefix(ref, "pi_"):
		intent, err := a.client.GetPaymentIntent(ctx, ref)
		if err != nil {
			return nil, err
		}
		return &Event{
			Gateway:     Stripe,
			Type:        "payment_intent",
			ProviderRef: intent.ID,
			Status:      MapStatus(intent.Status),
			Amount:      money.FromSubunits(intent.Amount, intent.Currency),
			Currency:    strings.ToUpper(intent.Currency),
		}, nil

	default:
		return nil, fmt.Errorf("unrecognized stripe reference format: %s", ref)
	}
}

// checkoutSessionObject is the subset of the webhook session payload the
// platform reads
type checkoutSessionObject struct {
	ID            string            `json:"id"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	PaymentIntent string            `json:"payment_intent"`
	PaymentStatus string            `json:"payment_status"`
	Metadata      map[string]string `json:"metadata"`
}

type paymentIntentObject struct {
	ID       string            `json:"id"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Status   string            `json:"status"`
	Metadata map[string]string `json:"metadata"`
}

type payoutObject struct {
	ID       string            `json:"id"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Status   string            `json:"status"`
	Metadata map[string]string `json:"metadata"`
}

func (a *StripeAdapter) ParseWebhook(payload []byte, headers http.Header) (*Event, error) {
	event, err := stripe.ParseWebhook(payload, headers.Get("Stripe-Signature"), a.webhookSecret)
	if err != nil {
		if errors.Is(err, stripe.ErrInvalidSignature) {
			return nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
		}
		// authenticated but undecodable payload, answered 400 not 401
		return nil, err
	}

	switch event.Type {
	case stripe.EventCheckoutSessionCompleted:
		var obj checkoutSessionObject
		if err := json.Unmarshal(event.Data.Object, &obj); err != nil {
			return nil, fmt.Errorf("failed to decode checkout session object: %w", err)
		}
		status := StatusSucceeded
		if obj.PaymentStatus != "paid" {
			status = StatusPending
		}
		return &Event{
			Gateway:     Stripe,
			Type:        event.Type,
			Reference:   obj.Metadata["reference"],
			ProviderRef: obj.ID,
			Status:      status,
			Amount:      money.FromSubunits(obj.AmountTotal, obj.Currency),
			Currency:    strings.ToUpper(obj.Currency),
			Raw:         payload,
		}, nil

	case stripe.EventPaymentIntentSucceeded, stripe.EventPaymentIntentFailed:
		var obj paymentIntentObject
		if err := json.Unmarshal(event.Data.Object, &obj); err != nil {
			return nil, fmt.Errorf("failed to decode payment intent object: %w", err)
		}
		status := StatusSucceeded
		if event.Type == stripe.EventPaymentIntentFailed {
			status = StatusFailed
		}
		return &Event{
			Gateway:     Stripe,
			Type:        event.Type,
			Reference:   obj.Metadata["reference"],
			ProviderRef: obj.ID,
			Status:      status,
			Amount:      money.FromSubunits(obj.Amount, obj.Currency),
			Currency:    strings.ToUpper(obj.Currency),
			Raw:         payload,
		}, nil

	case stripe.EventPayoutPaid, stripe.EventPayoutFailed:
		var obj payoutObject
		if err := json.Unmarshal(event.Data.Object, &obj); err != nil {
			return nil, fmt.Errorf("failed to decode payout object: %w", err)
		}
		status := StatusSucceeded
		if event.Type == stripe.EventPayoutFailed {
			status = StatusFailed
		}
		return &Event{
			Gateway:     Stripe,
			Type:        event.Type,
			Reference:   obj.Metadata["reference"],
			ProviderRef: obj.ID,
			Status:      status,
			Amount:      money.FromSubunits(obj.Amount, obj.Currency),
			Currency:    strings.ToUpper(obj.Currency),
			Raw:         payload,
		}, nil

	default:
		return nil, ErrEventIgnored
	}
}
