package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/asherhq/asher-api/internal/pkg/flutterwave"
	"github.com/asherhq/asher-api/internal/pkg/money"
)

// FlutterwaveAdapter wraps the Flutterwave REST client. The platform
// reference travels as tx_ref, so webhook and verify lookups need no
// extra correlation state.
type FlutterwaveAdapter struct {
	client     *flutterwave.Client
	secretHash string
}

func NewFlutterwaveAdapter(client *flutterwave.Client, secretHash string) *FlutterwaveAdapter {
	return &FlutterwaveAdapter{
		client:     client,
		secretHash: secretHash,
	}
}

func (a *FlutterwaveAdapter) Name() string {
	return Flutterwave
}

func (a *FlutterwaveAdapter) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	resp, err := a.client.InitiatePayment(ctx, flutterwave.InitiatePaymentRequest{
		TxRef:       req.Reference,
		Amount:      money.Format(req.Amount),
		Currency:    req.Currency,
		RedirectURL: req.RedirectURL,
		Email:       req.Email,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return nil, fmt.Errorf("flutterwave payment initiation failed: %w", err)
	}

	return &InitiateResult{
		Gateway:    Flutterwave,
		Reference:  req.Reference,
		PaymentURL: resp.Data.Link,
	}, nil
}

func (a *FlutterwaveAdapter) Verify(ctx context.Context, ref string) (*Event, error) {
	resp, err := a.client.VerifyByReference(ctx, ref)
	if err != nil {
		return nil, err
	}

	return &Event{
		Gateway:     Flutterwave,
		Type:        "transaction.verify",
		Reference:   resp.Data.TxRef,
		ProviderRef: strconv.FormatInt(resp.Data.ID, 10),
		Status:      MapStatus(resp.Data.Status),
		Amount:      decimal.NewFromFloat(resp.Data.Amount),
		Currency:    strings.ToUpper(resp.Data.Currency),
	}, nil
}

func (a *FlutterwaveAdapter) ParseWebhook(payload []byte, headers http.Header) (*Event, error) {
	event, err := flutterwave.ParseWebhook(payload, headers.Get("verif-hash"), a.secretHash)
	if err != nil {
		if errors.Is(err, flutterwave.ErrInvalidHash) {
			return nil, ErrSignatureInvalid
		}
		return nil, err
	}

	if event.Event != flutterwave.EventChargeCompleted {
		return nil, ErrEventIgnored
	}

	return &Event{
		Gateway:     Flutterwave,
		Type:        event.Event,
		Reference:   event.Data.TxRef,
		ProviderRef: strconv.FormatInt(event.Data.ID, 10),
		Status:      MapStatus(event.Data.Status),
		Amount:      decimal.NewFromFloat(event.Data.Amount),
		Currency:    strings.ToUpper(event.Data.Currency),
		Raw:         payload,
	}, nil
}
