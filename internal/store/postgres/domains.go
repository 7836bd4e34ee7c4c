package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/magnusfroste/domainproxy/internal/models"
)

// DomainStore implements store.DomainStore using PostgreSQL.
type DomainStore struct {
	db     queryable
	logger *slog.Logger
}

// Upsert inserts the base domain for an owner or returns the existing row.
// A single statement with ON CONFLICT keeps concurrent auto-creation of the
// same domain from producing two rows.
func (s *DomainStore) Upsert(ctx context.Context, ownerID, domain string) (*models.BaseDomain, error) {
	query := `
		INSERT INTO base_domains (id, owner_id, domain, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (owner_id, domain) DO UPDATE SET domain = EXCLUDED.domain
		RETURNING id, owner_id, domain, created_at
	`
	bd := &models.BaseDomain{}
	err := s.db.QueryRowContext(ctx, query,
		uuid.NewString(),
		ownerID,
		domain,
		time.Now().UTC(),
	).Scan(&bd.ID, &bd.OwnerID, &bd.Domain, &bd.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("upserting base domain: %w", err)
	}

	return bd, nil
}

func (s *DomainStore) Get(ctx context.Context, ownerID, domain string) (*models.BaseDomain, error) {
	query := `
		SELECT id, owner_id, domain, created_at
		FROM base_domains
		WHERE owner_id = $1 AND domain = $2
	`
	bd := &models.BaseDomain{}
	err := s.db.QueryRowContext(ctx, query, ownerID, domain).Scan(
		&bd.ID,
		&bd.OwnerID,
		&bd.Domain,
		&bd.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting base domain: %w", err)
	}

	return bd, nil
}

func (s *DomainStore) List(ctx context.Context, ownerID string) ([]*models.BaseDomain, error) {
	query := `
		SELECT id, owner_id, domain, created_at
		FROM base_domains
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying base domains: %w", err)
	}
	defer rows.Close()

	var domains []*models.BaseDomain
	for rows.Next() {
		bd := &models.BaseDomain{}
		if err := rows.Scan(
			&bd.ID,
			&bd.OwnerID,
			&bd.Domain,
			&bd.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning base domain: %w", err)
		}
		domains = append(domains, bd)
	}

	return domains, rows.Err()
}

// DeleteIfEmpty removes a base domain only when no mappings reference it.
func (s *DomainStore) DeleteIfEmpty(ctx context.Context, id string) error {
	query := `
		DELETE FROM base_domains
		WHERE id = $1
		  AND NOT EXISTS (SELECT 1 FROM mappings WHERE base_domain_id = $1)
	`
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("deleting base domain: %w", err)
	}
	return nil
}
