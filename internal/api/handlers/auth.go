package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/magnusfroste/domainproxy/internal/auth"
)

// AuthHandler handles admin session login.
type AuthHandler struct {
	authService *auth.Service
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService *auth.Service, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{authService: authService, logger: logger}
}

// LoginRequest is the body for admin login.
type LoginRequest struct {
	Password string `json:"password"`
}

// LoginResponse carries the admin session token.
type LoginResponse struct {
	Token string `json:"token"`
}

// Login handles POST /v1/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}

	token, err := h.authService.AdminLogin(req.Password)
	if err != nil {
		h.logger.Info("admin login rejected", "remote_addr", r.RemoteAddr)
		WriteUnauthorized(w, "Invalid credentials")
		return
	}

	h.logger.Info("admin login", "remote_addr", r.RemoteAddr)
	WriteJSON(w, http.StatusOK, &LoginResponse{Token: token})
}
