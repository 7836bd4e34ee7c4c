// Package resolver parses inbound host headers and resolves them against the
// mapping registry.
package resolver

import (
	"context"
	"log/slog"
	"net"
	"strings"

	"github.com/magnusfroste/domainproxy/internal/models"
	"github.com/magnusfroste/domainproxy/internal/store"
)

// Default reserved labels. A reserved leftmost label is never tenant
// traffic, so the control plane's own hostname cannot be shadowed by a
// registered mapping.
var defaultReserved = []string{"www", "localhost"}

// Resolution is the outcome of classifying one host header.
type Resolution struct {
	// Label and BaseDomain are the parsed candidate pair. Empty when the
	// host is not tenant-shaped.
	Label      string
	BaseDomain string
	// TenantShaped is true when the host has at least 3 labels and a
	// non-reserved leftmost label, regardless of registry contents.
	TenantShaped bool
	// Mapping is non-nil only when the registry holds a matching entry.
	Mapping *models.ResolvedMapping
}

// Matched reports whether the host resolved to a registered mapping.
func (r *Resolution) Matched() bool {
	return r != nil && r.Mapping != nil
}

// Split parses a raw host header into a candidate (label, base domain)
// pair. It lowercases, strips a trailing port, takes the leftmost label as
// the subdomain candidate and rejoins the rest as the base domain. ok is
// false when the host has fewer than 3 labels or is malformed; such hosts
// have no subdomain component and belong to the control plane.
func Split(host string) (label, baseDomain string, ok bool) {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return "", "", false
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	parts := strings.Split(host, ".")
	if len(parts) < 3 {
		return "", "", false
	}
	for _, p := range parts {
		if p == "" {
			return "", "", false
		}
	}

	// Everything after the first dot is the base domain, so multi-level
	// customer domains (app.division.customer.com) resolve as long as the
	// registry holds the matching multi-label base-domain string.
	return parts[0], strings.Join(parts[1:], "."), true
}

// Resolver classifies host headers and queries the registry for matches.
// It holds no state across requests; every call is a point-in-time read.
type Resolver struct {
	mappings store.MappingStore
	reserved map[string]struct{}
	logger   *slog.Logger
}

// New creates a Resolver. extraReserved adds deployment-specific labels
// (e.g. a loopback test label) to the built-in reserved set.
func New(mappings store.MappingStore, extraReserved []string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}

	reserved := make(map[string]struct{}, len(defaultReserved)+len(extraReserved))
	for _, l := range defaultReserved {
		reserved[l] = struct{}{}
	}
	for _, l := range extraReserved {
		if l = strings.ToLower(strings.TrimSpace(l)); l != "" {
			reserved[l] = struct{}{}
		}
	}

	return &Resolver{
		mappings: mappings,
		reserved: reserved,
		logger:   logger,
	}
}

// Reserved reports whether a label is always excluded from tenant routing.
func (r *Resolver) Reserved(label string) bool {
	_, ok := r.reserved[strings.ToLower(label)]
	return ok
}

// Lookup finds the registered mapping for a host, ignoring the reserved-label
// exclusion. Certificate authorization checks the registry's contents, not
// routability: a mapping whose label was reserved after registration still
// exists and keeps its certificate renewable.
func (r *Resolver) Lookup(ctx context.Context, host string) (*models.ResolvedMapping, error) {
	label, baseDomain, ok := Split(host)
	if !ok {
		return nil, nil
	}
	return r.mappings.FindMapping(ctx, baseDomain, label)
}

// MarkVerified records that a mapping's hostname has been observed working
// end to end, moving its provisioning status to success.
func (r *Resolver) MarkVerified(ctx context.Context, mappingID string) error {
	return r.mappings.UpdateStatus(ctx, mappingID, models.StatusSuccess, "")
}

// Resolve classifies a raw host header. A non-nil error means the registry
// read failed; the returned Resolution still carries the parsed shape so
// the caller can degrade to its fallback path instead of erroring out.
func (r *Resolver) Resolve(ctx context.Context, host string) (*Resolution, error) {
	label, baseDomain, ok := Split(host)
	if !ok {
		return &Resolution{}, nil
	}
	if r.Reserved(label) {
		return &Resolution{}, nil
	}

	res := &Resolution{
		Label:        label,
		BaseDomain:   baseDomain,
		TenantShaped: true,
	}

	mapping, err := r.mappings.FindMapping(ctx, baseDomain, label)
	if err != nil {
		r.logger.Error("registry lookup failed",
			"base_domain", baseDomain,
			"label", label,
			"error", err,
		)
		return res, err
	}

	res.Mapping = mapping
	return res, nil
}
