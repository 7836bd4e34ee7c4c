package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/magnusfroste/domainproxy/internal/api/middleware"
	"github.com/magnusfroste/domainproxy/internal/resolver"
	"github.com/magnusfroste/domainproxy/internal/store"
	"github.com/magnusfroste/domainproxy/internal/terminator"
)

// MappingHandler manages subdomain mappings in the owner's namespace.
type MappingHandler struct {
	store      store.Store
	resolver   *resolver.Resolver
	terminator *terminator.Client
	logger     *slog.Logger
}

// NewMappingHandler creates a new mapping handler.
func NewMappingHandler(st store.Store, res *resolver.Resolver, term *terminator.Client, logger *slog.Logger) *MappingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MappingHandler{
		store:      st,
		resolver:   res,
		terminator: term,
		logger:     logger,
	}
}

// CreateMappingRequest is the body for creating or replacing a mapping.
type CreateMappingRequest struct {
	Label     string `json:"label"`
	TargetURL string `json:"target_url"`
}

// Create handles POST /v1/domains/{domain}/mappings. Re-posting an existing
// label replaces the target and resets provisioning status.
func (h *MappingHandler) Create(w http.ResponseWriter, r *http.Request) {
	owner := middleware.GetOwner(r.Context())
	if owner == nil {
		WriteForbidden(w, "Owner credentials required")
		return
	}

	baseDomain, ok := normalizeDomain(chi.URLParam(r, "domain"))
	if !ok {
		WriteBadRequest(w, "Invalid base domain")
		return
	}

	var req CreateMappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}

	label := strings.ToLower(strings.TrimSpace(req.Label))
	if !validLabel(label) {
		WriteBadRequest(w, "Invalid label")
		return
	}
	if h.resolver.Reserved(label) {
		WriteBadRequest(w, "Label is reserved")
		return
	}
	if !validTargetURL(req.TargetURL) {
		WriteBadRequest(w, "Target URL must be absolute http or https")
		return
	}

	mapping, err := h.store.Mappings().Upsert(r.Context(), owner.ID, baseDomain, label, req.TargetURL)
	if err != nil {
		h.logger.Error("failed to upsert mapping",
			"owner_id", owner.ID,
			"base_domain", baseDomain,
			"label", label,
			"error", err,
		)
		WriteInternalError(w, "Failed to save mapping")
		return
	}

	h.logger.Info("mapping saved",
		"owner_id", owner.ID,
		"host", label+"."+baseDomain,
		"target", req.TargetURL,
	)
	WriteJSON(w, http.StatusCreated, mapping)
}

// List handles GET /v1/domains/{domain}/mappings.
func (h *MappingHandler) List(w http.ResponseWriter, r *http.Request) {
	owner := middleware.GetOwner(r.Context())
	if owner == nil {
		WriteForbidden(w, "Owner credentials required")
		return
	}

	baseDomain, ok := normalizeDomain(chi.URLParam(r, "domain"))
	if !ok {
		WriteBadRequest(w, "Invalid base domain")
		return
	}

	mappings, err := h.store.Mappings().List(r.Context(), owner.ID, baseDomain)
	if err != nil {
		h.logger.Error("failed to list mappings", "base_domain", baseDomain, "error", err)
		WriteInternalError(w, "Failed to list mappings")
		return
	}

	WriteJSON(w, http.StatusOK, mappings)
}

// Delete handles DELETE /v1/domains/{domain}/mappings/{label}. The TLS
// terminator is notified so the hostname's certificate can be discarded.
func (h *MappingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	owner := middleware.GetOwner(r.Context())
	if owner == nil {
		WriteForbidden(w, "Owner credentials required")
		return
	}

	baseDomain, ok := normalizeDomain(chi.URLParam(r, "domain"))
	if !ok {
		WriteBadRequest(w, "Invalid base domain")
		return
	}
	label := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "label")))
	if !validLabel(label) {
		WriteBadRequest(w, "Invalid label")
		return
	}

	deleted, err := h.store.Mappings().Delete(r.Context(), owner.ID, baseDomain, label)
	if err != nil {
		h.logger.Error("failed to delete mapping",
			"base_domain", baseDomain,
			"label", label,
			"error", err,
		)
		WriteInternalError(w, "Failed to delete mapping")
		return
	}
	if !deleted {
		WriteNotFound(w, "Mapping not found")
		return
	}

	host := label + "." + baseDomain
	if h.terminator != nil {
		h.terminator.DropCertificate(r.Context(), host)
	}

	h.logger.Info("mapping deleted", "owner_id", owner.ID, "host", host)
	w.WriteHeader(http.StatusNoContent)
}

// ListDomains handles GET /v1/domains.
func (h *MappingHandler) ListDomains(w http.ResponseWriter, r *http.Request) {
	owner := middleware.GetOwner(r.Context())
	if owner == nil {
		WriteForbidden(w, "Owner credentials required")
		return
	}

	domains, err := h.store.Domains().List(r.Context(), owner.ID)
	if err != nil {
		h.logger.Error("failed to list domains", "owner_id", owner.ID, "error", err)
		WriteInternalError(w, "Failed to list domains")
		return
	}

	WriteJSON(w, http.StatusOK, domains)
}

// normalizeDomain lowercases and validates a base domain path parameter.
// At least two labels are required; a mapping under a single-label base
// could never be reached, since such hosts route to the control plane.
func normalizeDomain(domain string) (string, bool) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return "", false
	}
	parts := strings.Split(domain, ".")
	if len(parts) < 2 {
		return "", false
	}
	for _, p := range parts {
		if !validLabel(p) {
			return "", false
		}
	}
	return domain, true
}

// validLabel enforces DNS label syntax: 1-63 chars of [a-z0-9-], no
// leading or trailing hyphen.
func validLabel(label string) bool {
	if len(label) == 0 || len(label) > 63 {
		return false
	}
	if label[0] == '-' || label[len(label)-1] == '-' {
		return false
	}
	for i := 0; i < len(label); i++ {
		c := label[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '-' {
			return false
		}
	}
	return true
}

// validTargetURL requires an absolute http(s) URL with a host.
func validTargetURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
