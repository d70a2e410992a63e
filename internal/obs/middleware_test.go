package obs_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/clovershop/backoffice/internal/obs"
)

func TestHTTPObsLabelsByRoutePattern(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewHTTPMetrics("backoffice", []float64{1, 10}, registry)
	handler := obs.HTTPObs{Metrics: metrics}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/products/42", nil)
	req = req.WithContext(obs.WithRoutePattern(req.Context(), "/products/{id}"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNoContent, rr.Code)
	total := testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodGet, "/products/{id}", "204"))
	require.Equal(t, float64(1), total, "counter must label by pattern, not concrete path")
	require.NotZero(t, testutil.CollectAndCount(metrics.ReqDur))
	require.Zero(t, testutil.ToFloat64(metrics.InFlight))
}

func TestNewHTTPMetricsReregisterReusesCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	first := obs.NewHTTPMetrics("backoffice", nil, registry)
	second := obs.NewHTTPMetrics("backoffice", nil, registry)
	require.Same(t, first.ReqTotal, second.ReqTotal)
	require.Same(t, first.ReqDur, second.ReqDur)
}
