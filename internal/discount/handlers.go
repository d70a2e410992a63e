package discount

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
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/clovershop/backoffice/internal/common"
	"github.com/clovershop/backoffice/internal/events"
)

// Store captures the repository methods used by the handlers.
type Store interface {
	List(ctx context.Context) ([]Discount, error)
	Create(ctx context.Context, d Discount) (Discount, error)
	Update(ctx context.Context, d Discount) (Discount, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// Handler exposes administrative discount management endpoints.
type Handler struct {
	Store    Store
	Validate *validator.Validate
	Events   *events.Bus
	Log      zerolog.Logger
}

type discountPayload struct {
	Name             string     `json:"name" validate:"required,min=1,max=200"`
	Percentage       string     `json:"percentage" validate:"required"`
	Enabled          *bool      `json:"enabled"`
	StartsAt         time.Time  `json:"startsAt" validate:"required"`
	EndsAt           time.Time  `json:"endsAt" validate:"required"`
	AvailableOnline  *bool      `json:"availableOnline"`
	AvailableInStore *bool      `json:"availableInStore"`
	Targeting        *targeting `json:"targeting" validate:"required"`
}

type targeting struct {
	Kind       string   `json:"kind" validate:"required,oneof=all category products single"`
	CategoryID *string  `json:"categoryId" validate:"omitempty,uuid"`
	ProductIDs []string `json:"productIds" validate:"dive,uuid"`
	VariantIDs []string `json:"variantIds" validate:"dive,uuid"`
	ProductID  *string  `json:"productId" validate:"omitempty,uuid"`
	VariantID  *string  `json:"variantId" validate:"omitempty,uuid"`
}

// List handles GET /admin/discounts.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "discount store not configured", nil)
		return
	}
	discounts, err := h.Store.List(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list discounts", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": discounts})
}

// Create handles POST /admin/discounts.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "discount store not configured", nil)
		return
	}
	d, ok := h.decode(w, r, uuid.Nil)
	if !ok {
		return
	}
	created, err := h.Store.Create(r.Context(), d)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create discount", nil)
		return
	}
	h.emit(r.Context(), events.TopicDiscountCreated, created)
	common.JSON(w, http.StatusCreated, map[string]any{"data": created})
}

// Update handles PATCH /admin/discounts/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid discount id", nil)
		return
	}
	d, ok := h.decode(w, r, id)
	if !ok {
		return
	}
	updated, err := h.Store.Update(r.Context(), d)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "discount not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update discount", nil)
		return
	}
	h.emit(r.Context(), events.TopicDiscountUpdated, updated)
	common.JSON(w, http.StatusOK, map[string]any{"data": updated})
}

// Delete handles DELETE /admin/discounts/{id} as a soft delete.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid discount id", nil)
		return
	}
	if err := h.Store.SoftDelete(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "discount not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to delete discount", nil)
		return
	}
	if h.Events != nil {
		if _, err := h.Events.Emit(r.Context(), events.TopicDiscountDeleted, id, map[string]any{"discountId": id}); err != nil {
			h.Log.Error().Err(err).Str("topic", events.TopicDiscountDeleted).Str("discount_id", id.String()).Msg("emit discount event")
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, id uuid.UUID) (Discount, bool) {
	var payload discountPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return Discount{}, false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid payload", err.Error())
			return Discount{}, false
		}
	}
	percentage, err := decimal.NewFromString(payload.Percentage)
	if err != nil || percentage.IsNegative() || percentage.GreaterThan(decimal.NewFromInt(100)) {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "percentage must be between 0 and 100", nil)
		return Discount{}, false
	}
	if !payload.EndsAt.After(payload.StartsAt) {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "endsAt must be after startsAt", nil)
		return Discount{}, false
	}
	target, err := targetingFromPayload(payload.Targeting)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return Discount{}, false
	}

	d := Discount{
		ID:               id,
		Name:             payload.Name,
		Percentage:       percentage,
		State:            StateActive,
		StartsAt:         payload.StartsAt,
		EndsAt:           payload.EndsAt,
		AvailableOnline:  true,
		AvailableInStore: true,
		Targeting:        target,
	}
	if payload.Enabled != nil && !*payload.Enabled {
		d.State = StateDisabled
	}
	if payload.AvailableOnline != nil {
		d.AvailableOnline = *payload.AvailableOnline
	}
	if payload.AvailableInStore != nil {
		d.AvailableInStore = *payload.AvailableInStore
	}
	return d, true
}

func targetingFromPayload(t *targeting) (Targeting, error) {
	if t == nil {
		return Targeting{}, errors.New("targeting is required")
	}
	out := Targeting{Kind: TargetKind(t.Kind)}
	switch out.Kind {
	case TargetAll:
	case TargetCategory:
		if t.CategoryID == nil {
			return Targeting{}, errors.New("categoryId is required for category targeting")
		}
		cid, err := uuid.Parse(*t.CategoryID)
		if err != nil {
			return Targeting{}, errors.New("invalid categoryId")
		}
		out.CategoryID = cid
	case TargetProducts:
		if len(t.ProductIDs) == 0 && len(t.VariantIDs) == 0 {
			return Targeting{}, errors.New("products targeting needs productIds or variantIds")
		}
		for _, raw := range t.ProductIDs {
			pid, err := uuid.Parse(raw)
			if err != nil {
				return Targeting{}, errors.New("invalid productIds entry")
			}
			out.ProductIDs = append(out.ProductIDs, pid)
		}
		for _, raw := range t.VariantIDs {
			vid, err := uuid.Parse(raw)
			if err != nil {
				return Targeting{}, errors.New("invalid variantIds entry")
			}
			out.VariantIDs = append(out.VariantIDs, vid)
		}
	case TargetSingle:
		if t.ProductID == nil && t.VariantID == nil {
			return Targeting{}, errors.New("single targeting needs productId or variantId")
		}
		if t.ProductID != nil {
			pid, err := uuid.Parse(*t.ProductID)
			if err != nil {
				return Targeting{}, errors.New("invalid productId")
			}
			out.ProductID = pid
		}
		if t.VariantID != nil {
			vid, err := uuid.Parse(*t.VariantID)
			if err != nil {
				return Targeting{}, errors.New("invalid variantId")
			}
			out.VariantID = &vid
		}
	default:
		return Targeting{}, errors.New("unknown targeting kind")
	}
	return out, nil
}

func (h *Handler) emit(ctx context.Context, topic string, d Discount) {
	if h.Events == nil {
		return
	}
	if _, err := h.Events.Emit(ctx, topic, d.ID, map[string]any{
		"discountId": d.ID,
		"name":       d.Name,
		"percentage": d.Percentage,
		"state":      d.State,
	}); err != nil {
		h.Log.Error().Err(err).Str("topic", topic).Str("discount_id", d.ID.String()).Msg("emit discount event")
	}
}
