package pricing

import (
	"encoding/json"
	"errors"
	"net/http"

	validator "github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/clovershop/backoffice/internal/common"
	"github.com/clovershop/backoffice/internal/obs"
)

// Handler exposes the quote endpoint. Quotes are read-only; they never touch
// inventory or coupon counters.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

// Quote handles POST /pricing/quote.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", "invalid quote request", err.Error())
			return
		}
	}

	quote, err := h.Svc.Quote(r.Context(), req)
	if err != nil {
		countQuote("error")
		WriteError(w, err)
		return
	}
	countQuote("ok")
	common.JSON(w, http.StatusOK, map[string]any{"data": quote})
}

// WriteError maps pricing errors onto the HTTP error envelope. Checkout
// reuses it since it surfaces the same failures.
func WriteError(w http.ResponseWriter, err error) {
	var (
		pnf *ProductNotFoundError
		vnf *VariantNotFoundError
		ice *InvalidCartError
		cie *CouponInvalidError
	)
	switch {
	case errors.As(err, &pnf):
		common.JSONError(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", pnf.Error(), nil)
	case errors.As(err, &vnf):
		common.JSONError(w, http.StatusNotFound, "VARIANT_NOT_FOUND", vnf.Error(), nil)
	case errors.As(err, &ice):
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_CART", ice.Error(), nil)
	case errors.As(err, &cie):
		common.JSONError(w, http.StatusUnprocessableEntity, "COUPON_INVALID", cie.Error(), map[string]any{
			"code":   cie.Code,
			"reason": cie.Reason,
		})
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to price cart", nil)
	}
}

func countQuote(result string) {
	if obs.QuotesTotal != nil {
		obs.QuotesTotal.With(prometheus.Labels{"result": result}).Inc()
	}
}
