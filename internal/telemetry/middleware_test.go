package telemetry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestMetricsMiddlewareRecordsRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(MetricsMiddleware)
	r.Get("/liveSeller/liveSellerList", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/liveSeller/liveSellerList?start=1", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected 418, got %d", rr.Code)
	}

	metrics := httptest.NewRecorder()
	Handler().ServeHTTP(metrics, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	want := `trendycart_api_requests_total{endpoint="/liveSeller/liveSellerList",method="GET",status="418"}`
	if !strings.Contains(metrics.Body.String(), want) {
		t.Fatalf("expected %s in metrics output", want)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	LiveTransitionsTotal.WithLabelValues("go_live", "ok").Inc()

	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "trendycart_live_transitions_total") {
		t.Fatalf("expected live transition metric in output")
	}
}

func TestSamplerFor(t *testing.T) {
	for _, rate := range []float64{-1, 0, 0.25, 1, 2} {
		if samplerFor(rate) == nil {
			t.Fatalf("samplerFor(%v) returned nil", rate)
		}
	}
}
