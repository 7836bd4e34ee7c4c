package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/magnusfroste/domainproxy/internal/auth"
)

func loginHandler(t *testing.T) *AuthHandler {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	svc := auth.NewService(&auth.Config{
		JWTSecret:         []byte("test-secret-at-least-32-characters!!"),
		AdminPasswordHash: string(hash),
		TokenExpiry:       time.Hour,
	}, nil, slog.Default())
	return NewAuthHandler(svc, slog.Default())
}

func TestLogin(t *testing.T) {
	h := loginHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login",
		strings.NewReader(`{"password":"hunter22"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Token == "" {
		t.Error("expected a session token")
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	h := loginHandler(t)

	for _, body := range []string{`{"password":"wrong"}`, `{"password":""}`, `garbage`} {
		req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.Login(rec, req)
		if rec.Code == http.StatusOK {
			t.Errorf("body %q: login should fail", body)
		}
	}
}
