package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/asherhq/asher-api/internal/pkg/money"
	"github.com/asherhq/asher-api/internal/pkg/paystack"
)

// PaystackAdapter wraps the Paystack REST client. Paystack takes amounts
// in subunits and echoes the platform reference back on webhooks.
type PaystackAdapter struct {
	client    *paystack.Client
	secretKey string
}

func NewPaystackAdapter(client *paystack.Client, secretKey string) *PaystackAdapter {
	return &PaystackAdapter{
		client:    client,
		secretKey: secretKey,
	}
}

func (a *PaystackAdapter) Name() string {
	return Paystack
}

func (a *PaystackAdapter) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	resp, err := a.client.InitializeTransaction(ctx, paystack.InitializeRequest{
		Reference:   req.Reference,
		Email:       req.Email,
		Amount:      money.ToSubunits(req.Amount, req.Currency),
		Currency:    req.Currency,
		CallbackURL: req.RedirectURL,
	})
	if err != nil {
		return nil, fmt.Errorf("paystack transaction initialization failed: %w", err)
	}

	return &InitiateResult{
		Gateway:     Paystack,
		Reference:   req.Reference,
		PaymentURL:  resp.Data.AuthorizationURL,
		ProviderRef: resp.Data.AccessCode,
	}, nil
}

func (a *PaystackAdapter) Verify(ctx context.Context, ref string) (*Event, error) {
	resp, err := a.client.VerifyTransaction(ctx, ref)
	if err != nil {
		return nil, err
	}

	return &Event{
		Gateway:     Paystack,
		Type:        "transaction.verify",
		Reference:   resp.Data.Reference,
		ProviderRef: strconv.FormatInt(resp.Data.ID, 10),
		Status:      MapStatus(resp.Data.Status),
		Amount:      money.FromSubunits(resp.Data.Amount, resp.Data.Currency),
		Currency:    strings.ToUpper(resp.Data.Currency),
	}, nil
}

func (a *PaystackAdapter) ParseWebhook(payload []byte, headers http.Header) (*Event, error) {
	event, err := paystack.ParseWebhook(payload, headers.Get("x-paystack-signature"), a.secretKey)
	if err != nil {
		if errors.Is(err, paystack.ErrInvalidSignature) {
			return nil, ErrSignatureInvalid
		}
		return nil, err
	}

	switch event.Event {
	case paystack.EventChargeSuccess, paystack.EventChargeFailed,
		paystack.EventTransferSuccess, paystack.EventTransferFailed:
	default:
		return nil, ErrEventIgnored
	}

	return &Event{
		Gateway:     Paystack,
		Type:        event.Event,
		Reference:   event.Data.Reference,
		ProviderRef: strconv.FormatInt(event.Data.ID, 10),
		Status:      MapStatus(event.Data.Status),
		Amount:      money.FromSubunits(event.Data.Amount, event.Data.Currency),
		Currency:    strings.ToUpper(event.Data.Currency),
		Raw:         payload,
	}, nil
}
