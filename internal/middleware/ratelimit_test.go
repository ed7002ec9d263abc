package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiterAllowsWithinBudget(t *testing.T) {
	rl := NewRateLimiter(100, 100, 100, 100)
	defer rl.Stop()
	handler := rl.Limit(okHandler())

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
		r.RemoteAddr = "10.0.0.1:1234"
		handler.ServeHTTP(w, r)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d rejected unexpectedly with %d", i, w.Code)
		}
	}
}

func TestRateLimiterRejectsPerIP(t *testing.T) {
	// global budget is generous so only the per-IP limit can trip
	rl := NewRateLimiter(1000, 1000, 1, 1)
	defer rl.Stop()
	handler := rl.Limit(okHandler())

	r := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	r.RemoteAddr = "10.0.0.2:1234"

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 after burst exhausted, got %d", w.Code)
	}
}

func TestRateLimiterRejectsGlobal(t *testing.T) {
	rl := NewRateLimiter(1, 1, 1000, 1000)
	defer rl.Stop()
	handler := rl.Limit(okHandler())

	first := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	first.RemoteAddr = "10.0.0.3:1234"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, first)
	if w.Code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", w.Code)
	}

	second := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	second.RemoteAddr = "10.0.0.4:1234"
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, second)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 from global limit, got %d", w.Code)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(*http.Request)
		expect string
	}{
		{
			name:   "x-forwarded-for single",
			setup:  func(r *http.Request) { r.Header.Set("X-Forwarded-For", "1.2.3.4") },
			expect: "1.2.3.4",
		},
		{
			name:   "x-forwarded-for chain",
			setup:  func(r *http.Request) { r.Header.Set("X-Forwarded-For", "1.2.3.4, 5.6.7.8") },
			expect: "1.2.3.4",
		},
		{
			name:   "x-real-ip",
			setup:  func(r *http.Request) { r.Header.Set("X-Real-IP", "9.8.7.6") },
			expect: "9.8.7.6",
		},
		{
			name:   "remote addr with port",
			setup:  func(r *http.Request) { r.RemoteAddr = "10.1.1.1:5555" },
			expect: "10.1.1.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(r)
			if got := getClientIP(r); got != tt.expect {
				t.Errorf("getClientIP() = %q, want %q", got, tt.expect)
			}
		})
	}
}
