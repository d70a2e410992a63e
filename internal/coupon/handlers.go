package coupon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/clovershop/backoffice/internal/common"
	"github.com/clovershop/backoffice/internal/discount"
	"github.com/clovershop/backoffice/internal/obs"
	"github.com/clovershop/backoffice/internal/shop"
)

// Store captures the repository methods used by the handlers.
type Store interface {
	ByCode(ctx context.Context, code string) (*Coupon, error)
	List(ctx context.Context) ([]Coupon, error)
	Create(ctx context.Context, c Coupon) (Coupon, error)
	Update(ctx context.Context, c Coupon) (Coupon, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// Handler exposes coupon management and validation endpoints.
type Handler struct {
	Store    Store
	Validate *validator.Validate
	Now      func() time.Time
}

func (h *Handler) now() time.Time {
	if h != nil && h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

type couponPayload struct {
	Code             string     `json:"code" validate:"required,min=3,max=32"`
	Percentage       string     `json:"percentage" validate:"required"`
	Enabled          *bool      `json:"enabled"`
	StartsAt         time.Time  `json:"startsAt" validate:"required"`
	EndsAt           time.Time  `json:"endsAt" validate:"required"`
	AvailableOnline  *bool      `json:"availableOnline"`
	AvailableInStore *bool      `json:"availableInStore"`
	UsageLimit       *int32     `json:"usageLimit" validate:"omitempty,gt=0"`
	CustomerIDs      []string   `json:"customerIds" validate:"dive,uuid"`
}

type validateRequest struct {
	Code        string  `json:"code" validate:"required"`
	OrderSource string  `json:"orderSource" validate:"required,oneof=ONLINE IN_STORE PHONE"`
	CustomerID  *string `json:"customerId" validate:"omitempty,uuid"`
}

// List handles GET /admin/coupons.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon store not configured", nil)
		return
	}
	coupons, err := h.Store.List(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list coupons", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": coupons})
}

// Create handles POST /admin/coupons.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	c, ok := h.decode(w, r, uuid.Nil)
	if !ok {
		return
	}
	created, err := h.Store.Create(r.Context(), c)
	if err != nil {
		if errors.Is(err, ErrCodeTaken) {
			common.JSONError(w, http.StatusConflict, "CONFLICT", "coupon code already exists", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create coupon", nil)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": created})
}

// Update handles PATCH /admin/coupons/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid coupon id", nil)
		return
	}
	c, ok := h.decode(w, r, id)
	if !ok {
		return
	}
	updated, err := h.Store.Update(r.Context(), c)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "coupon not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update coupon", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": updated})
}

// Delete handles DELETE /admin/coupons/{id} as a soft delete.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid coupon id", nil)
		return
	}
	if err := h.Store.SoftDelete(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "coupon not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to delete coupon", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Preview handles POST /coupons/validate. It never mutates usage counters;
// redemption happens at order commit.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon store not configured", nil)
		return
	}
	var payload validateRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid payload", err.Error())
			return
		}
	}
	var customerID *uuid.UUID
	if payload.CustomerID != nil {
		cid, err := uuid.Parse(*payload.CustomerID)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid customer id", nil)
			return
		}
		customerID = &cid
	}

	c, err := h.Store.ByCode(r.Context(), payload.Code)
	if err != nil && !errors.Is(err, ErrNotFound) {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to look up coupon", nil)
		return
	}
	result := Validate(c, shop.Source(payload.OrderSource), customerID, h.now())
	if obs.CouponValidationsTotal != nil {
		reason := "ok"
		if !result.Valid {
			reason = string(result.Reason)
		}
		obs.CouponValidationsTotal.With(prometheus.Labels{"reason": reason}).Inc()
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, id uuid.UUID) (Coupon, bool) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon store not configured", nil)
		return Coupon{}, false
	}
	var payload couponPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return Coupon{}, false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid payload", err.Error())
			return Coupon{}, false
		}
	}
	percentage, err := decimal.NewFromString(payload.Percentage)
	if err != nil || percentage.IsNegative() || percentage.GreaterThan(decimal.NewFromInt(100)) {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "percentage must be between 0 and 100", nil)
		return Coupon{}, false
	}
	if !payload.EndsAt.After(payload.StartsAt) {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "endsAt must be after startsAt", nil)
		return Coupon{}, false
	}

	c := Coupon{
		ID:               id,
		Code:             Canonical(payload.Code),
		Percentage:       percentage,
		StartsAt:         payload.StartsAt,
		EndsAt:           payload.EndsAt,
		AvailableOnline:  true,
		AvailableInStore: true,
		UsageLimit:       payload.UsageLimit,
	}
	if payload.Enabled != nil && !*payload.Enabled {
		c.State = discount.StateDisabled
	} else {
		c.State = discount.StateActive
	}
	if payload.AvailableOnline != nil {
		c.AvailableOnline = *payload.AvailableOnline
	}
	if payload.AvailableInStore != nil {
		c.AvailableInStore = *payload.AvailableInStore
	}
	for _, raw := range payload.CustomerIDs {
		cid, err := uuid.Parse(raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid customer id", nil)
			return Coupon{}, false
		}
		c.CustomerIDs = append(c.CustomerIDs, cid)
	}
	return c, true
}
