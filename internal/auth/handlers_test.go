package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fdg312/coach-hub/internal/config"
	"github.com/fdg312/coach-hub/internal/userctx"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:           "test",
		AuthMode:      "dev",
		AuthEnabled:   true,
		AuthRequired:  true,
		JWTSecret:     "test-secret-key-for-testing-only",
		JWTIssuer:     "coach-hub-test",
		JWTTTLMinutes: 60,
	}
}

func TestHandleDevAuth(t *testing.T) {
	handler := NewHandlers(NewService(testConfig()))

	t.Run("EmptyBody", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/v1/auth/dev", nil)
		w := httptest.NewRecorder()

		handler.HandleDevAuth(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d. Body: %s", w.Code, w.Body.String())
		}

		var resp DevAuthResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.AccessToken == "" {
			t.Error("expected access_token not empty")
		}
		if resp.TokenType != "Bearer" {
			t.Errorf("expected token_type Bearer, got %q", resp.TokenType)
		}
		if resp.ExpiresIn != int64((30 * 24 * time.Hour).Seconds()) {
			t.Errorf("expected expires_in 2592000, got %d", resp.ExpiresIn)
		}
		if resp.UserID != "dev-user" {
			t.Errorf("expected user_id dev-user, got %q", resp.UserID)
		}
	})

	t.Run("CustomUser", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/v1/auth/dev", bytes.NewBufferString(`{"user_id": "coach-42"}`))
		w := httptest.NewRecorder()

		handler.HandleDevAuth(w, req)

		var resp DevAuthResponse
		json.NewDecoder(w.Body).Decode(&resp)
		if resp.UserID != "coach-42" {
			t.Errorf("expected user_id coach-42, got %q", resp.UserID)
		}
	})

	t.Run("InvalidUser", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/v1/auth/dev", bytes.NewBufferString(`{"user_id": "two words"}`))
		w := httptest.NewRecorder()

		handler.HandleDevAuth(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", w.Code)
		}
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/v1/auth/dev", bytes.NewBufferString(`{`))
		w := httptest.NewRecorder()

		handler.HandleDevAuth(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", w.Code)
		}
	})
}

func TestMiddlewareAuth(t *testing.T) {
	cfg := testConfig()
	service := NewService(cfg)
	middleware := NewMiddleware(cfg, service)

	t.Run("ValidToken", func(t *testing.T) {
		token, err := service.generateJWT("test_user_123")
		if err != nil {
			t.Fatal(err)
		}

		req := httptest.NewRequest("GET", "/v1/clients", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		var calledNext bool
		handler := middleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calledNext = true
			if got := userctx.OwnerUserID(r.Context()); got != "test_user_123" {
				t.Errorf("expected owner test_user_123, got %q", got)
			}
			w.WriteHeader(http.StatusOK)
		}))

		handler.ServeHTTP(w, req)

		if !calledNext {
			t.Error("expected next handler to be called")
		}
		if w.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", w.Code)
		}
	})

	rejected := []struct {
		name   string
		header string
	}{
		{"MissingToken", ""},
		{"InvalidToken", "Bearer invalid_token"},
		{"WrongScheme", "Basic dXNlcjpwYXNz"},
	}
	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/v1/clients", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handler := middleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("should not call next handler")
			}))
			handler.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("expected status 401, got %d", w.Code)
			}
		})
	}

	t.Run("HealthzIsPublic", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/healthz", nil)
		w := httptest.NewRecorder()

		handler := middleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", w.Code)
		}
	})
}

func TestMiddlewareWrap(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(userctx.OwnerUserID(r.Context())))
	})

	tests := []struct {
		name     string
		enabled  bool
		required bool
		wantCode int
		wantBody string
	}{
		{"AuthDisabled", false, false, http.StatusOK, userctx.DefaultUserID},
		{"OptionalWithoutToken", true, false, http.StatusOK, userctx.DefaultUserID},
		{"RequiredWithoutToken", true, true, http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.AuthEnabled = tt.enabled
			cfg.AuthRequired = tt.required
			middleware := NewMiddleware(cfg, NewService(cfg))

			req := httptest.NewRequest("GET", "/v1/clients", nil)
			w := httptest.NewRecorder()
			middleware.Wrap(next).ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Fatalf("expected status %d, got %d", tt.wantCode, w.Code)
			}
			if tt.wantCode == http.StatusOK && w.Body.String() != tt.wantBody {
				t.Errorf("expected owner %q, got %q", tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestOptionalAuthMiddleware(t *testing.T) {
	cfg := testConfig()
	cfg.AuthRequired = false
	service := NewService(cfg)
	middleware := NewMiddleware(cfg, service)

	t.Run("ValidTokenAddsContext", func(t *testing.T) {
		token, err := service.generateJWT("test_user_123")
		if err != nil {
			t.Fatal(err)
		}

		req := httptest.NewRequest("GET", "/v1/clients", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		var gotSub string
		handler := middleware.OptionalAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotSub, _ = GetUserID(r.Context())
			w.WriteHeader(http.StatusOK)
		}))
		handler.ServeHTTP(w, req)

		if gotSub != "test_user_123" {
			t.Fatalf("expected sub in context, got %q", gotSub)
		}
	})

	t.Run("InvalidTokenRejected", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/v1/clients", nil)
		req.Header.Set("Authorization", "Bearer invalid")
		w := httptest.NewRecorder()

		handler := middleware.OptionalAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("should not call next handler")
		}))
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
	})

	t.Run("DevAuthPathAlwaysAccessible", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/v1/auth/dev", nil)
		req.Header.Set("Authorization", "Bearer invalid")
		w := httptest.NewRecorder()

		var called bool
		handler := middleware.OptionalAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			w.WriteHeader(http.StatusOK)
		}))
		handler.ServeHTTP(w, req)

		if !called || w.Code != http.StatusOK {
			t.Fatalf("expected /v1/auth/dev passthrough, called=%v status=%d", called, w.Code)
		}
	})
}

func TestVerifyJWT(t *testing.T) {
	cfg := testConfig()
	service := NewService(cfg)

	token, err := service.generateJWT("test_user_123")
	if err != nil {
		t.Fatal(err)
	}
	sub, err := service.VerifyJWT(token)
	if err != nil {
		t.Fatal(err)
	}
	if sub != "test_user_123" {
		t.Errorf("expected sub 'test_user_123', got '%s'", sub)
	}

	t.Run("Expired", func(t *testing.T) {
		old := NewService(cfg)
		old.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		expired, err := old.generateJWT("test_user_123")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := service.VerifyJWT(expired); err != ErrInvalidToken {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("WrongIssuer", func(t *testing.T) {
		otherCfg := testConfig()
		otherCfg.JWTIssuer = "someone-else"
		foreign, err := NewService(otherCfg).generateJWT("test_user_123")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := service.VerifyJWT(foreign); err != ErrInvalidToken {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("WrongSecret", func(t *testing.T) {
		otherCfg := testConfig()
		otherCfg.JWTSecret = "another-secret"
		foreign, err := NewService(otherCfg).generateJWT("test_user_123")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := service.VerifyJWT(foreign); err != ErrInvalidToken {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})
}
