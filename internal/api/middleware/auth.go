package middleware

import (
	"context"
	"log/slog"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	apierrors "github.com/magnusfroste/domainproxy/internal/api/errors"
	"github.com/magnusfroste/domainproxy/internal/auth"
	"github.com/magnusfroste/domainproxy/internal/models"
)

// Context keys for authenticated principals.
type contextKey string

const (
	// OwnerKey is the context key for the authenticated owner.
	OwnerKey contextKey = "owner"
	// AdminKey is the context key for the admin session subject.
	AdminKey contextKey = "admin"
)

// GetOwner extracts the authenticated owner from the request context.
func GetOwner(ctx context.Context) *models.Owner {
	if v := ctx.Value(OwnerKey); v != nil {
		return v.(*models.Owner)
	}
	return nil
}

// IsAdmin reports whether the request carries a valid admin session.
func IsAdmin(ctx context.Context) bool {
	return ctx.Value(AdminKey) != nil
}

// AuthMiddleware handles owner API key and admin JWT authentication.
type AuthMiddleware struct {
	authService  *auth.Service
	apiKeyHeader string
	logger       *slog.Logger
}

// NewAuthMiddleware creates a new authentication middleware.
func NewAuthMiddleware(authService *auth.Service, apiKeyHeader string, logger *slog.Logger) *AuthMiddleware {
	if apiKeyHeader == "" {
		apiKeyHeader = "X-API-Key"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthMiddleware{
		authService:  authService,
		apiKeyHeader: apiKeyHeader,
		logger:       logger,
	}
}

// RequireOwner validates the owner API token and attaches the owner to the
// request context. Admin sessions also pass, with no owner attached.
func (m *AuthMiddleware) RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.Header.Get(m.apiKeyHeader)
		if apiKey != "" {
			owner, err := m.authService.ValidateAPIKey(r.Context(), apiKey)
			if err != nil {
				m.logger.Debug("API key validation failed", "error", err)
				writeUnauthorized(w, r, "Invalid API key")
				return
			}
			ctx := context.WithValue(r.Context(), OwnerKey, owner)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		if ctx, ok := m.adminContext(r); ok {
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		writeUnauthorized(w, r, "Missing authentication")
	})
}

// RequireAdmin validates the admin session JWT.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, ok := m.adminContext(r)
		if !ok {
			writeUnauthorized(w, r, "Admin authentication required")
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// adminContext validates a Bearer token and returns a context carrying the
// admin marker.
func (m *AuthMiddleware) adminContext(r *http.Request) (context.Context, bool) {
	token := auth.ExtractBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		// WebSocket clients cannot set headers from a browser; accept the
		// token as a query parameter there.
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		return nil, false
	}

	claims, err := m.authService.ValidateToken(token)
	if err != nil {
		m.logger.Debug("JWT validation failed", "error", err)
		return nil, false
	}
	if claims.Subject != "admin" {
		return nil, false
	}

	return context.WithValue(r.Context(), AdminKey, claims.Subject), true
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request, message string) {
	err := apierrors.NewUnauthorizedError(message)
	apierrors.WriteErrorWithRequestID(w, err, chimiddleware.GetReqID(r.Context()))
}
