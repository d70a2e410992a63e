package checkout

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/clovershop/backoffice/internal/common"
	"github.com/clovershop/backoffice/internal/obs"
	"github.com/clovershop/backoffice/internal/pricing"
)

// Handler exposes POST /checkout.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req pricing.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", "invalid checkout request", err.Error())
			return
		}
	}

	start := time.Now()
	o, err := h.Svc.Checkout(r.Context(), req)
	result := "ok"
	if err != nil {
		result = "error"
	}
	observeCheckout(string(req.Source), result, time.Since(start))
	if err != nil {
		var iue *InventoryUnavailableError
		if errors.As(err, &iue) {
			common.JSONError(w, http.StatusConflict, "INVENTORY_UNAVAILABLE", iue.Error(), nil)
			return
		}
		pricing.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": o})
}

func observeCheckout(source, result string, elapsed time.Duration) {
	if source == "" {
		source = "ONLINE"
	}
	if obs.CheckoutsTotal != nil {
		obs.CheckoutsTotal.With(prometheus.Labels{"source": source, "result": result}).Inc()
	}
	if obs.CheckoutDuration != nil {
		obs.CheckoutDuration.With(prometheus.Labels{"result": result}).Observe(float64(elapsed.Milliseconds()))
	}
}
