package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/magnusfroste/domainproxy/internal/auth"
	"github.com/magnusfroste/domainproxy/internal/models"
	"github.com/magnusfroste/domainproxy/internal/store"
)

// OwnerHandler manages owner accounts. Admin-only.
type OwnerHandler struct {
	store  store.Store
	logger *slog.Logger
}

// NewOwnerHandler creates a new owner handler.
func NewOwnerHandler(st store.Store, logger *slog.Logger) *OwnerHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OwnerHandler{store: st, logger: logger}
}

// CreateOwnerRequest is the body for creating an owner.
type CreateOwnerRequest struct {
	Name string `json:"name"`
}

// CreateOwnerResponse carries the owner and its raw API token. The token
// is returned exactly once; only its hash is stored.
type CreateOwnerResponse struct {
	Owner *models.Owner `json:"owner"`
	Token string        `json:"token"`
}

// Create handles POST /v1/owners.
func (h *OwnerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateOwnerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		WriteBadRequest(w, "Name is required")
		return
	}

	token, err := auth.GenerateOwnerToken()
	if err != nil {
		h.logger.Error("failed to generate owner token", "error", err)
		WriteInternalError(w, "Failed to generate token")
		return
	}

	owner := &models.Owner{
		Name:      name,
		TokenHash: auth.HashToken(token),
	}
	if err := h.store.Owners().Create(r.Context(), owner); err != nil {
		h.logger.Error("failed to create owner", "name", name, "error", err)
		WriteInternalError(w, "Failed to create owner")
		return
	}

	h.logger.Info("owner created", "owner_id", owner.ID, "name", name)
	WriteJSON(w, http.StatusCreated, &CreateOwnerResponse{Owner: owner, Token: token})
}

// List handles GET /v1/owners.
func (h *OwnerHandler) List(w http.ResponseWriter, r *http.Request) {
	owners, err := h.store.Owners().List(r.Context())
	if err != nil {
		h.logger.Error("failed to list owners", "error", err)
		WriteInternalError(w, "Failed to list owners")
		return
	}
	WriteJSON(w, http.StatusOK, owners)
}

// Delete handles DELETE /v1/owners/{ownerID}. All of the owner's base
// domains and mappings are removed with it.
func (h *OwnerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerID")
	if ownerID == "" {
		WriteBadRequest(w, "Owner ID is required")
		return
	}

	if err := h.store.Owners().Delete(r.Context(), ownerID); err != nil {
		h.logger.Debug("failed to delete owner", "owner_id", ownerID, "error", err)
		WriteNotFound(w, "Owner not found")
		return
	}

	h.logger.Info("owner deleted", "owner_id", ownerID)
	w.WriteHeader(http.StatusNoContent)
}
