package order

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/clovershop/backoffice/internal/common"
	"github.com/clovershop/backoffice/internal/events"
)

// Store captures the repository methods used by the handlers.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (Order, error)
	List(ctx context.Context, page, perPage int) ([]Order, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, to Status) (Order, error)
}

// Handler exposes order listing and the admin status transition.
type Handler struct {
	Store          Store
	Validate       *validator.Validate
	Events         *events.Bus
	DefaultPerPage int
}

// List handles GET /orders.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	perPage := h.DefaultPerPage
	if perPage <= 0 {
		perPage = 20
	}
	page, perPage := common.ParsePagination(r, perPage)
	orders, total, err := h.Store.List(r.Context(), page, perPage)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list orders", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       orders,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: total},
	})
}

// Get handles GET /orders/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	o, err := h.Store.Get(r.Context(), id)
	if err != nil {
		writeOrderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": o})
}

type statusPayload struct {
	Status string `json:"status" validate:"required,oneof=pending paid fulfilled canceled"`
}

// PatchStatus handles PATCH /admin/orders/{id}/status.
func (h *Handler) PatchStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	var payload statusPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", "invalid status", err.Error())
			return
		}
	}
	o, err := h.Store.UpdateStatus(r.Context(), id, Status(payload.Status))
	if err != nil {
		writeOrderError(w, err)
		return
	}
	if h.Events != nil {
		topic := events.TopicOrderUpdated
		if o.Status == StatusCanceled {
			topic = events.TopicOrderCanceled
		}
		_, _ = h.Events.Emit(r.Context(), topic, o.ID, map[string]any{
			"orderId": o.ID,
			"status":  o.Status,
		})
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": o})
}

func writeOrderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "ORDER_NOT_FOUND", "order not found", nil)
	case errors.Is(err, ErrInvalidTransition):
		common.JSONError(w, http.StatusConflict, "INVALID_TRANSITION", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order operation failed", nil)
	}
}
