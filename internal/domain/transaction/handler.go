package transaction

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/asherhq/asher-api/internal/middleware"
	"github.com/asherhq/asher-api/internal/pkg/response"
)

type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// List returns the caller's transaction history, newest first.
// Supports ?page=, ?limit= and ?reference= category filter.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	reference := r.URL.Query().Get("reference")

	rows, total, err := h.repo.ListByUser(r.Context(), userID, reference, limit, (page-1)*limit)
	if err != nil {
		response.InternalError(w)
		return
	}

	pages := (total + limit - 1) / limit
	response.WithMeta(w, rows, response.Meta{
		Total:   total,
		Page:    page,
		Limit:   limit,
		Pages:   pages,
		HasNext: page < pages,
		HasPrev: page > 1,
	})
}

// GetByReference returns a single transaction by its reference id. Owners
// only; other users' references look like missing rows.
func (h *Handler) GetByReference(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	reference := chi.URLParam(r, "reference")

	t, err := h.repo.GetByReference(r.Context(), reference)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "transaction not found")
			return
		}
		response.InternalError(w)
		return
	}
	if t.UserID != userID {
		response.NotFound(w, "transaction not found")
		return
	}

	response.OK(w, t)
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/", h.List)
	r.Get("/{reference}", h.GetByReference)
	return r
}
