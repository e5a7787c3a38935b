package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fdg312/coach-hub/internal/config"
)

func limitedHandler(rps, burst int) http.Handler {
	cfg := &config.Config{RateLimitRPS: rps, RateLimitBurst: burst}
	return RateLimitMiddleware(cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func hit(h http.Handler, path, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimitRejectsBurstOverflow(t *testing.T) {
	h := limitedHandler(1, 1)

	if w := hit(h, "/v1/foods", "10.0.0.7:4100"); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for first request, got %d", w.Code)
	}
	w := hit(h, "/v1/foods", "10.0.0.7:4101")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 for second request, got %d", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "1" {
		t.Errorf("expected Retry-After 1, got %q", got)
	}

	var body rateLimitedBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Error.Code != "rate_limited" {
		t.Errorf("expected code rate_limited, got %q", body.Error.Code)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	h := limitedHandler(0, 0)
	for i := 0; i < 20; i++ {
		if w := hit(h, "/v1/foods", "10.0.0.7:4100"); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}
	}
}

func TestRateLimitBucketsPerIP(t *testing.T) {
	h := limitedHandler(1, 1)

	if w := hit(h, "/v1/plans", "10.0.0.7:1"); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for first IP, got %d", w.Code)
	}
	if w := hit(h, "/v1/plans", "10.0.0.8:1"); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for second IP, got %d", w.Code)
	}
}

func TestRateLimitSkipsHealthz(t *testing.T) {
	h := limitedHandler(1, 1)
	for i := 0; i < 3; i++ {
		if w := hit(h, "/healthz", "10.0.0.7:1"); w.Code != http.StatusOK {
			t.Fatalf("healthz request %d: expected 200, got %d", i, w.Code)
		}
	}
}

func TestVisitorsSweepIdle(t *testing.T) {
	clock := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	v := newVisitors(1, 1)
	v.now = func() time.Time { return clock }

	v.allow("10.0.0.7")
	clock = clock.Add(visitorIdleTTL + time.Second)
	for i := 1; i < sweepEvery; i++ {
		v.allow("10.0.0.8")
	}

	if _, ok := v.byIP["10.0.0.7"]; ok {
		t.Error("expected idle visitor to be swept")
	}
	if _, ok := v.byIP["10.0.0.8"]; !ok {
		t.Error("expected active visitor to stay")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		forwarded  string
		remoteAddr string
		want       string
	}{
		{"remote addr", "", "1.2.3.4:5678", "1.2.3.4"},
		{"forwarded", "9.9.9.9", "1.2.3.4:5678", "9.9.9.9"},
		{"forwarded chain", " 9.9.9.9 , 10.0.0.1", "1.2.3.4:5678", "9.9.9.9"},
		{"blank forwarded", " ", "1.2.3.4:5678", "1.2.3.4"},
		{"no port", "", "1.2.3.4", "1.2.3.4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if got := clientIP(req); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
