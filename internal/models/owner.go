package models

import "time"

// Owner is an API-key-holding principal (a SaaS builder). An owner holds
// zero or more base domains; deleting an owner cascades to its base domains
// and subdomain mappings.
type Owner struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	TokenHash string    `json:"-"` // SHA256 hash of the API token
	CreatedAt time.Time `json:"created_at"`
}
