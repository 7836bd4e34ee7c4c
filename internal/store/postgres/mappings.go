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

// MappingStore implements store.MappingStore using PostgreSQL.
type MappingStore struct {
	db     queryable
	logger *slog.Logger
}

// FindMapping looks up a mapping by (base domain, label) across every
// owner's namespace. The edge and the authorization endpoint only know the
// hostname, not which owner registered it. Should two owners ever register
// the same base domain, the oldest mapping wins, so dispatch stays stable
// across lookups.
func (s *MappingStore) FindMapping(ctx context.Context, baseDomain, label string) (*models.ResolvedMapping, error) {
	query := `
		SELECT m.id, m.base_domain_id, m.label, m.target_url,
		       m.status, m.status_message, m.status_updated_at, m.created_at,
		       d.domain, d.owner_id
		FROM mappings m
		JOIN base_domains d ON d.id = m.base_domain_id
		WHERE d.domain = $1 AND m.label = $2
		ORDER BY m.created_at, m.id
		LIMIT 1
	`
	rm := &models.ResolvedMapping{}
	var message sql.NullString
	err := s.db.QueryRowContext(ctx, query, baseDomain, label).Scan(
		&rm.ID,
		&rm.BaseDomainID,
		&rm.Label,
		&rm.TargetURL,
		&rm.Status,
		&message,
		&rm.StatusUpdatedAt,
		&rm.CreatedAt,
		&rm.BaseDomain,
		&rm.OwnerID,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding mapping: %w", err)
	}

	rm.StatusMessage = message.String
	return rm, nil
}

// Upsert registers a mapping, auto-creating the base domain when absent.
// Re-registering an existing (base domain, label) replaces the target URL
// and resets the provisioning status to pending.
func (s *MappingStore) Upsert(ctx context.Context, ownerID, baseDomain, label, targetURL string) (*models.Mapping, error) {
	domains := &DomainStore{db: s.db, logger: s.logger}
	bd, err := domains.Upsert(ctx, ownerID, baseDomain)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO mappings (id, base_domain_id, label, target_url, status, status_message, status_updated_at, created_at)
		VALUES ($1, $2, $3, $4, $5, NULL, $6, $6)
		ON CONFLICT (base_domain_id, label) DO UPDATE SET
			target_url        = EXCLUDED.target_url,
			status            = EXCLUDED.status,
			status_message    = NULL,
			status_updated_at = EXCLUDED.status_updated_at
		RETURNING id, base_domain_id, label, target_url, status, status_updated_at, created_at
	`
	m := &models.Mapping{}
	err = s.db.QueryRowContext(ctx, query,
		uuid.NewString(),
		bd.ID,
		label,
		targetURL,
		models.StatusPending,
		time.Now().UTC(),
	).Scan(&m.ID, &m.BaseDomainID, &m.Label, &m.TargetURL, &m.Status, &m.StatusUpdatedAt, &m.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("upserting mapping: %w", err)
	}

	return m, nil
}

// Delete removes a mapping within the owner's namespace and cleans up the
// base domain when it was the last mapping.
func (s *MappingStore) Delete(ctx context.Context, ownerID, baseDomain, label string) (bool, error) {
	query := `
		DELETE FROM mappings m
		USING base_domains d
		WHERE m.base_domain_id = d.id
		  AND d.owner_id = $1 AND d.domain = $2 AND m.label = $3
		RETURNING d.id
	`
	var baseDomainID string
	err := s.db.QueryRowContext(ctx, query, ownerID, baseDomain, label).Scan(&baseDomainID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("deleting mapping: %w", err)
	}

	domains := &DomainStore{db: s.db, logger: s.logger}
	if err := domains.DeleteIfEmpty(ctx, baseDomainID); err != nil {
		// The mapping itself is gone; an orphaned base domain row is harmless.
		s.logger.Warn("failed to clean up empty base domain", "error", err, "base_domain_id", baseDomainID)
	}

	return true, nil
}

func (s *MappingStore) List(ctx context.Context, ownerID, baseDomain string) ([]*models.Mapping, error) {
	query := `
		SELECT m.id, m.base_domain_id, m.label, m.target_url,
		       m.status, m.status_message, m.status_updated_at, m.created_at
		FROM mappings m
		JOIN base_domains d ON d.id = m.base_domain_id
		WHERE d.owner_id = $1 AND d.domain = $2
		ORDER BY m.created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, ownerID, baseDomain)
	if err != nil {
		return nil, fmt.Errorf("querying mappings: %w", err)
	}
	defer rows.Close()

	var mappings []*models.Mapping
	for rows.Next() {
		m := &models.Mapping{}
		var message sql.NullString
		if err := rows.Scan(
			&m.ID,
			&m.BaseDomainID,
			&m.Label,
			&m.TargetURL,
			&m.Status,
			&message,
			&m.StatusUpdatedAt,
			&m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning mapping: %w", err)
		}
		m.StatusMessage = message.String
		mappings = append(mappings, m)
	}

	return mappings, rows.Err()
}

func (s *MappingStore) UpdateStatus(ctx context.Context, id string, status models.ProvisioningStatus, message string) error {
	query := `
		UPDATE mappings
		SET status = $2, status_message = NULLIF($3, ''), status_updated_at = $4
		WHERE id = $1
	`
	if _, err := s.db.ExecContext(ctx, query, id, status, message, time.Now().UTC()); err != nil {
		return fmt.Errorf("updating mapping status: %w", err)
	}
	return nil
}
