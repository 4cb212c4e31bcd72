package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestRoutePattern(t *testing.T) {
	var pattern string

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req)
			pattern = routePattern(req)
		})
	})
	r.Get("/api/v1/collections/{collection}/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/collections/reals/0b8f3c1e-5d1a-4f7e-9c2b-1a2b3c4d5e6f", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)
	if pattern != "/api/v1/collections/{collection}/{id}" {
		t.Errorf("routePattern() = %q", pattern)
	}

	req = httptest.NewRequest(http.MethodGet, "/nope", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)
	if pattern != "unmatched" {
		t.Errorf("routePattern() для несовпавшего пути = %q, хотели unmatched", pattern)
	}
}

func TestMetricsMiddleware_StatusCode(t *testing.T) {
	r := chi.NewRouter()
	r.Use(MetricsMiddleware())
	r.Get("/teapot", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/teapot", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("статус = %d, хотели 418", rec.Code)
	}
}
