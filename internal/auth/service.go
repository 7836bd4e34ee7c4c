// Package auth provides authentication for the management API: owner API
// tokens and admin JWT sessions.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/magnusfroste/domainproxy/internal/models"
	"github.com/magnusfroste/domainproxy/internal/store"
)

// Common errors returned by the auth service.
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidAPIKey    = errors.New("invalid API key")
	ErrInvalidPassword  = errors.New("invalid password")
	ErrMissingClaims    = errors.New("missing required claims")
	ErrInvalidSignature = errors.New("invalid token signature")
)

// Claims carries the validated admin session identity.
type Claims struct {
	Subject string    `json:"sub"`
	Exp     time.Time `json:"exp"`
}

// Config holds authentication configuration.
type Config struct {
	JWTSecret []byte
	// AdminPasswordHash is the bcrypt hash of the admin password. Empty
	// disables admin login.
	AdminPasswordHash string
	TokenExpiry       time.Duration
}

// Service authenticates owners by API token and admins by password + JWT.
type Service struct {
	jwtSecret         []byte
	adminPasswordHash string
	tokenExpiry       time.Duration
	owners            store.OwnerStore
	logger            *slog.Logger
}

// NewService creates a new authentication service.
func NewService(cfg *Config, owners store.OwnerStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		jwtSecret:         cfg.JWTSecret,
		adminPasswordHash: cfg.AdminPasswordHash,
		tokenExpiry:       cfg.TokenExpiry,
		owners:            owners,
		logger:            logger,
	}
}

// AdminLogin checks the admin password and returns a signed session token.
func (s *Service) AdminLogin(password string) (string, error) {
	if s.adminPasswordHash == "" {
		return "", ErrInvalidPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.adminPasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidPassword
	}
	return s.GenerateToken("admin")
}

// GenerateToken creates a signed JWT for the given subject.
func (s *Service) GenerateToken(subject string) (string, error) {
	if subject == "" {
		return "", ErrMissingClaims
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"exp": now.Add(s.tokenExpiry).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		s.logger.Error("failed to sign token", "error", err)
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// ValidateToken validates a JWT and returns its claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrSignatureInvalid) {
			return nil, ErrInvalidSignature
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	subject, ok := mapClaims["sub"].(string)
	if !ok || subject == "" {
		return nil, ErrMissingClaims
	}
	expFloat, ok := mapClaims["exp"].(float64)
	if !ok {
		return nil, ErrMissingClaims
	}

	return &Claims{
		Subject: subject,
		Exp:     time.Unix(int64(expFloat), 0),
	}, nil
}

// ValidateAPIKey resolves an owner API token to its owner. Only the SHA256
// hash of the token is ever stored or compared.
func (s *Service) ValidateAPIKey(ctx context.Context, apiKey string) (*models.Owner, error) {
	if apiKey == "" || s.owners == nil {
		return nil, ErrInvalidAPIKey
	}

	owner, err := s.owners.GetByTokenHash(ctx, HashToken(apiKey))
	if err != nil {
		s.logger.Debug("API key lookup failed", "error", err)
		return nil, ErrInvalidAPIKey
	}
	if owner == nil {
		return nil, ErrInvalidAPIKey
	}
	return owner, nil
}

// GenerateOwnerToken generates a new owner API token. The raw token is
// shown once at creation and only its hash is stored.
func GenerateOwnerToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generating random bytes: %w", err)
	}
	return "dpx_" + base64.RawURLEncoding.EncodeToString(bytes), nil
}

// HashToken creates a SHA256 hash of an API token for storage.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// ExtractBearerToken extracts the token from a Bearer authorization header.
func ExtractBearerToken(authHeader string) string {
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
