package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/mixtape/internal/shared"
	"golang.org/x/time/rate"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestBasicRouter(t *testing.T) {
	t.Run("Routes By Method", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle(http.MethodGet, "/ping", okHandler())

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if w.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", w.Code)
		}

		w = httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ping", nil))
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405 for wrong method, got %d", w.Code)
		}
	})

	t.Run("Applies Middleware In Order", func(t *testing.T) {
		router := NewBasicRouter()

		var order []string
		tag := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router.Use(tag("first"), tag("second"))
		router.Handle(http.MethodGet, "/ping", okHandler())

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))

		if len(order) != 2 || order[0] != "first" || order[1] != "second" {
			t.Errorf("unexpected middleware order: %v", order)
		}
	})

	t.Run("Handler Registers All Routes", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handler(&multiRouteHandler{})

		for _, path := range []string{"/a", "/b"} {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
			if w.Code != http.StatusOK {
				t.Errorf("expected 200 for %s, got %d", path, w.Code)
			}
		}
	})
}

type multiRouteHandler struct{}

func (h *multiRouteHandler) Routes() []string { return []string{"/a", "/b"} }

func (h *multiRouteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestRequestLogger(t *testing.T) {
	logger := shared.NewLogger(nil)

	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if w.Code != http.StatusTeapot {
		t.Errorf("middleware must not alter the status, got %d", w.Code)
	}
}

func TestThrottle(t *testing.T) {
	limiter := rate.NewLimiter(rate.Limit(0), 2)
	handler := Throttle(limiter)(okHandler())

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/searchbar", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d should pass, got %d", i, w.Code)
		}
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/searchbar", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 once the burst is spent, got %d", w.Code)
	}
}
