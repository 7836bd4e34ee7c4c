package models

import "time"

// ProvisioningStatus tracks certificate provisioning progress for a mapping.
// It is advisory only, for operator visibility; it never gates dispatch.
type ProvisioningStatus string

const (
	// StatusPending means no certificate has been confirmed yet.
	StatusPending ProvisioningStatus = "pending"
	// StatusSuccess means the TLS terminator has been observed authorizing
	// the hostname.
	StatusSuccess ProvisioningStatus = "success"
	// StatusError means provisioning was reported as failed.
	StatusError ProvisioningStatus = "error"
)

// Mapping binds a subdomain label under a base domain to a forwarding
// target URL. (base_domain_id, label) is unique; re-registering the same
// pair replaces the target URL and resets the provisioning status.
type Mapping struct {
	ID              string             `json:"id"`
	BaseDomainID    string             `json:"base_domain_id"`
	Label           string             `json:"label"`
	TargetURL       string             `json:"target_url"`
	Status          ProvisioningStatus `json:"status"`
	StatusMessage   string             `json:"status_message,omitempty"`
	StatusUpdatedAt time.Time          `json:"status_updated_at"`
	CreatedAt       time.Time          `json:"created_at"`
}

// ResolvedMapping is the owner-agnostic read model returned by registry
// lookups: a mapping joined with the base domain it belongs to.
type ResolvedMapping struct {
	Mapping
	BaseDomain string `json:"base_domain"`
	OwnerID    string `json:"owner_id"`
}
