package payment

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/asherhq/asher-api/internal/domain/transaction"
	"github.com/asherhq/asher-api/internal/domain/wallet"
	"github.com/asherhq/asher-api/internal/middleware"
	"github.com/asherhq/asher-api/internal/pkg/gateway"
	"github.com/asherhq/asher-api/internal/pkg/money"
	"github.com/asherhq/asher-api/internal/pkg/response"
	"github.com/asherhq/asher-api/internal/pkg/storage"
	"github.com/asherhq/asher-api/internal/pkg/validator"
)

const maxWebhookBody = 1 << 20 // providers send small JSON payloads

// PayoutEvents advances payout records from provider transfer callbacks.
// Kept as an interface so the webhook handler does not depend on the
// payout package.
type PayoutEvents interface {
	HandleProviderEvent(ctx context.Context, event gateway.Event) error
}

type Handler struct {
	svc      *Service
	registry *gateway.Registry
	archiver *storage.WebhookArchiver
	payouts  PayoutEvents
}

func NewHandler(svc *Service, registry *gateway.Registry, archiver *storage.WebhookArchiver, payouts PayoutEvents) *Handler {
	return &Handler{
		svc:      svc,
		registry: registry,
		archiver: archiver,
		payouts:  payouts,
	}
}

// payout-side provider events, routed past the ledger engine
var payoutEventTypes = map[string]bool{
	"payout.paid":      true,
	"payout.failed":    true,
	"transfer.success": true,
	"transfer.failed":  true,
}

type fundWalletRequest struct {
	Amount      string `json:"amount" validate:"required"`
	Currency    string `json:"currency" validate:"required,currency"`
	Gateway     string `json:"gateway" validate:"omitempty,gateway"`
	CountryCode string `json:"country_code" validate:"omitempty,len=2"`
	Email       string `json:"email" validate:"omitempty,email"`
	Name        string `json:"name"`
}

func (h *Handler) FundWallet(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req fundWalletRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	amount, err := money.ParsePositive(req.Amount)
	if err != nil {
		response.BadRequest(w, "amount must be a positive decimal")
		return
	}

	result, err := h.svc.FundWallet(r.Context(), FundRequest{
		UserID:         userID,
		Amount:         amount,
		Currency:       req.Currency,
		Gateway:        req.Gateway,
		CountryCode:    req.CountryCode,
		Email:          req.Email,
		Name:           req.Name,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrUnsupportedGateway):
			response.BadRequest(w, "unsupported payment gateway")
		case errors.Is(err, ErrGatewayUnavailable):
			response.BadGateway(w, "payment gateway unavailable, try again later")
		default:
			response.InternalError(w)
		}
		return
	}

	response.Created(w, result)
}

func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	reference := chi.URLParam(r, "reference")
	outcome, err := h.svc.VerifyPayment(r.Context(), reference)
	if err != nil {
		switch {
		case errors.Is(err, transaction.ErrNotFound):
			response.NotFound(w, "transaction not found")
		case errors.Is(err, ErrGatewayUnavailable):
			response.BadGateway(w, "payment gateway unavailable, try again later")
		case errors.Is(err, wallet.ErrInsufficientFunds):
			response.Conflict(w, "insufficient wallet balance")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, outcome)
}

// Webhook handles provider callbacks. The gateway name comes from the
// route; signature failures are 401 with no state change, everything the
// engine resolves (including unknown references) is acknowledged with 200
// to stop provider retries.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	gatewayName := strings.ToUpper(chi.URLParam(r, "gateway"))
	adapter, err := h.registry.Get(gatewayName)
	if err != nil {
		response.NotFound(w, "unknown gateway")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		response.BadRequest(w, "unreadable body")
		return
	}

	event, err := adapter.ParseWebhook(body, r.Header)
	if err != nil {
		if errors.Is(err, gateway.ErrEventIgnored) {
			response.OK(w, map[string]string{"status": "ignored"})
			return
		}
		if errors.Is(err, gateway.ErrSignatureInvalid) {
			log.Warn().Str("gateway", adapter.Name()).Msg("Rejected webhook with invalid signature")
			response.Unauthorized(w, "invalid webhook signature")
			return
		}
		response.BadRequest(w, "malformed webhook payload")
		return
	}

	h.archiver.Archive(adapter.Name(), event.Reference, body)

	if payoutEventTypes[event.Type] {
		if h.payouts == nil {
			response.OK(w, map[string]string{"status": "ignored"})
			return
		}
		if err := h.payouts.HandleProviderEvent(r.Context(), *event); err != nil {
			log.Error().Err(err).Str("gateway", adapter.Name()).Msg("Payout event handling failed")
			response.InternalError(w)
			return
		}
		response.OK(w, map[string]string{"status": "processed"})
		return
	}

	outcome, err := h.svc.HandleWebhookEvent(r.Context(), *event)
	if err != nil {
		if errors.Is(err, ErrAnomaly) {
			// Manual-review territory; retrying the delivery cannot fix it.
			log.Error().Err(err).Str("gateway", adapter.Name()).Msg("Webhook reconciliation anomaly")
			response.OK(w, map[string]string{"status": "anomaly"})
			return
		}
		log.Error().Err(err).Str("gateway", adapter.Name()).Msg("Webhook reconciliation failed")
		response.InternalError(w)
		return
	}

	response.OK(w, outcome)
}

type sweepRequest struct {
	TTLSeconds int64 `json:"ttl_seconds" validate:"required,min=60"`
}

// Sweep fails stale PENDING transactions. Operational endpoint, admin only.
func (h *Handler) Sweep(w http.ResponseWriter, r *http.Request) {
	var req sweepRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	swept, err := h.svc.SweepStalePending(r.Context(), time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]int64{"swept": swept})
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/fund-wallet", h.FundWallet)
		r.Get("/verify/{reference}", h.VerifyPayment)
		r.With(middleware.RequireRole("admin")).Post("/sweep", h.Sweep)
	})
	return r
}

// WebhookRoutes are mounted outside the auth middleware; providers
// authenticate via signatures instead
func (h *Handler) WebhookRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/{gateway}", h.Webhook)
	return r
}
