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

// OwnerStore implements store.OwnerStore using PostgreSQL.
type OwnerStore struct {
	db     queryable
	logger *slog.Logger
}

func (s *OwnerStore) Create(ctx context.Context, owner *models.Owner) error {
	if owner.ID == "" {
		owner.ID = uuid.NewString()
	}
	query := `
		INSERT INTO owners (id, name, token_hash, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	now := time.Now().UTC()
	err := s.db.QueryRowContext(ctx, query,
		owner.ID,
		owner.Name,
		owner.TokenHash,
		now,
	).Scan(&owner.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("owner token already exists: %w", err)
		}
		return fmt.Errorf("creating owner: %w", err)
	}

	return nil
}

func (s *OwnerStore) Get(ctx context.Context, id string) (*models.Owner, error) {
	query := `
		SELECT id, name, token_hash, created_at
		FROM owners
		WHERE id = $1
	`
	owner := &models.Owner{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&owner.ID,
		&owner.Name,
		&owner.TokenHash,
		&owner.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting owner: %w", err)
	}

	return owner, nil
}

func (s *OwnerStore) GetByTokenHash(ctx context.Context, hash string) (*models.Owner, error) {
	query := `
		SELECT id, name, token_hash, created_at
		FROM owners
		WHERE token_hash = $1
	`
	owner := &models.Owner{}
	err := s.db.QueryRowContext(ctx, query, hash).Scan(
		&owner.ID,
		&owner.Name,
		&owner.TokenHash,
		&owner.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting owner by token: %w", err)
	}

	return owner, nil
}

func (s *OwnerStore) List(ctx context.Context) ([]*models.Owner, error) {
	query := `
		SELECT id, name, token_hash, created_at
		FROM owners
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying owners: %w", err)
	}
	defer rows.Close()

	var owners []*models.Owner
	for rows.Next() {
		owner := &models.Owner{}
		if err := rows.Scan(
			&owner.ID,
			&owner.Name,
			&owner.TokenHash,
			&owner.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning owner: %w", err)
		}
		owners = append(owners, owner)
	}

	return owners, rows.Err()
}

// Delete removes an owner. Base domains and mappings are removed by the
// ON DELETE CASCADE constraints; this is a deliberate, irreversible bulk
// delete.
func (s *OwnerStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM owners WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting owner: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("owner not found")
	}

	return nil
}
