// Package store provides database access interfaces and implementations.
package store

import (
	"context"

	"github.com/magnusfroste/domainproxy/internal/models"
)

// OwnerStore defines operations for owner (API principal) management.
type OwnerStore interface {
	// Create creates a new owner.
	Create(ctx context.Context, owner *models.Owner) error
	// Get retrieves an owner by ID.
	Get(ctx context.Context, id string) (*models.Owner, error)
	// GetByTokenHash retrieves an owner by the SHA256 hash of its API token.
	// Returns nil, nil when no owner matches.
	GetByTokenHash(ctx context.Context, hash string) (*models.Owner, error)
	// List retrieves all owners.
	List(ctx context.Context) ([]*models.Owner, error)
	// Delete removes an owner. Base domains and mappings cascade.
	Delete(ctx context.Context, id string) error
}

// DomainStore defines operations for base domain management.
type DomainStore interface {
	// Upsert creates the base domain for an owner if absent and returns the
	// existing or new row. The (owner_id, domain) uniqueness constraint makes
	// concurrent auto-creation race-free.
	Upsert(ctx context.Context, ownerID, domain string) (*models.BaseDomain, error)
	// Get retrieves a base domain by owner ID and domain string.
	// Returns nil, nil when not found.
	Get(ctx context.Context, ownerID, domain string) (*models.BaseDomain, error)
	// List retrieves all base domains for a given owner.
	List(ctx context.Context, ownerID string) ([]*models.BaseDomain, error)
	// DeleteIfEmpty removes a base domain when it has no remaining mappings.
	DeleteIfEmpty(ctx context.Context, id string) error
}

// MappingStore defines operations for subdomain mapping management.
type MappingStore interface {
	// FindMapping looks up a mapping by (base domain, label) across every
	// owner's namespace. Returns nil, nil on miss.
	FindMapping(ctx context.Context, baseDomain, label string) (*models.ResolvedMapping, error)
	// Upsert inserts a mapping or, if (base domain, label) already exists for
	// the owner, replaces its target URL and resets status to pending.
	// The base domain is auto-created when absent.
	Upsert(ctx context.Context, ownerID, baseDomain, label, targetURL string) (*models.Mapping, error)
	// Delete removes a mapping in the owner's namespace. Returns whether a
	// row was deleted. An orphaned base domain is removed as well.
	Delete(ctx context.Context, ownerID, baseDomain, label string) (bool, error)
	// List retrieves all mappings for a base domain in the owner's namespace.
	List(ctx context.Context, ownerID, baseDomain string) ([]*models.Mapping, error)
	// UpdateStatus sets the advisory provisioning status for a mapping.
	UpdateStatus(ctx context.Context, id string, status models.ProvisioningStatus, message string) error
}

// Store is the main interface for database operations.
type Store interface {
	// Owners returns the OwnerStore for owner operations.
	Owners() OwnerStore
	// Domains returns the DomainStore for base domain operations.
	Domains() DomainStore
	// Mappings returns the MappingStore for subdomain mapping operations.
	Mappings() MappingStore

	// WithTx executes the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// Otherwise, the transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error

	// Close closes the database connection.
	Close() error
}
