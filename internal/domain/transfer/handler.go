package transfer

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

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

type transferRequest struct {
	ReceiverID string `json:"receiver_id" validate:"required,uuid"`
	Amount     string `json:"amount" validate:"required"`
	Currency   string `json:"currency" validate:"required,currency"`
}

func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	senderID := middleware.GetUserID(r.Context())
	if senderID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req transferRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	receiverID, err := uuid.Parse(req.ReceiverID)
	if err != nil {
		response.BadRequest(w, "invalid receiver id")
		return
	}
	amount, err := money.ParsePositive(req.Amount)
	if err != nil {
		response.BadRequest(w, "amount must be a positive decimal")
		return
	}

	result, err := h.svc.Transfer(r.Context(), senderID, receiverID, amount, req.Currency)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Created(w, result)
}

type payBillRequest struct {
	BillRef  string `json:"bill_ref" validate:"required"`
	Amount   string `json:"amount" validate:"required"`
	Currency string `json:"currency" validate:"required,currency"`
	BillType string `json:"bill_type" validate:"omitempty,bill_type"`
}

func (h *Handler) PayBill(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetUserID(r.Context())
	if tenantID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req payBillRequest
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

	result, err := h.svc.PayBill(r.Context(), tenantID, req.BillRef, amount, req.Currency, req.BillType)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Created(w, result)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSameUser):
		response.BadRequest(w, "cannot transfer to yourself")
	case errors.Is(err, ErrCurrencyMismatch):
		response.BadRequest(w, "landlord has no wallet in this currency")
	case errors.Is(err, ErrTenancyNotFound):
		response.NotFound(w, "no active tenancy")
	case errors.Is(err, wallet.ErrWalletNotFound):
		response.NotFound(w, "wallet not found")
	case errors.Is(err, wallet.ErrInvalidAmount):
		response.BadRequest(w, "amount must be greater than zero")
	case errors.Is(err, wallet.ErrInsufficientFunds):
		response.Conflict(w, "insufficient wallet balance")
	default:
		response.InternalError(w)
	}
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/", h.Transfer)
	r.With(middleware.RequireTenant()).Post("/pay-bill", h.PayBill)
	return r
}
