package models

import "time"

// BaseDomain is a customer-owned DNS domain registered under exactly one
// owner. The (owner_id, domain) pair is unique: two owners may register the
// same literal domain string without collision.
type BaseDomain struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Domain    string    `json:"domain"`
	CreatedAt time.Time `json:"created_at"`
}
