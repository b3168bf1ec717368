package payout

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/asherhq/asher-api/internal/domain/payment"
	"github.com/asherhq/asher-api/internal/domain/wallet"
	"github.com/asherhq/asher-api/internal/middleware"
	"github.com/asherhq/asher-api/internal/pkg/money"
	"github.com/asherhq/asher-api/internal/pkg/response"
	"github.com/asherhq/asher-api/internal/pkg/validator"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type payoutRequest struct {
	Amount        string `json:"amount" validate:"required"`
	Currency      string `json:"currency" validate:"required,currency"`
	Destination   string `json:"destination"`
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code"`
	AccountName   string `json:"account_name"`
}

func (h *Handler) Request(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req payoutRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}
	if req.Destination == "" && (req.AccountNumber == "" || req.BankCode == "") {
		response.BadRequest(w, "destination or bank account details are required")
		return
	}

	amount, err := money.ParsePositive(req.Amount)
	if err != nil {
		response.BadRequest(w, "amount must be a positive decimal")
		return
	}

	p, err := h.svc.RequestPayout(r.Context(), Request{
		UserID:        userID,
		Amount:        amount,
		Currency:      req.Currency,
		Destination:   req.Destination,
		AccountNumber: req.AccountNumber,
		BankCode:      req.BankCode,
		AccountName:   req.AccountName,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrUnsupportedCurrency):
			response.BadRequest(w, "payouts are not supported in this currency")
		case errors.Is(err, wallet.ErrWalletNotFound):
			response.NotFound(w, "wallet not found")
		case errors.Is(err, wallet.ErrInvalidAmount):
			response.BadRequest(w, "amount must be greater than zero")
		case errors.Is(err, wallet.ErrInsufficientFunds):
			response.Conflict(w, "insufficient wallet balance")
		case errors.Is(err, payment.ErrGatewayUnavailable):
			response.BadGateway(w, "payout provider unavailable, wallet refunded")
		default:
			response.InternalError(w)
		}
		return
	}

	response.Created(w, p)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	payoutID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid payout id")
		return
	}

	p, err := h.svc.Get(r.Context(), userID, payoutID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "payout not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, p)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	payouts, err := h.svc.List(r.Context(), userID)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, payouts)
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/", h.Request)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	return r
}
