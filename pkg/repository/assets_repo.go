package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/stay-concierge/pkg/domain"
)

// AssetsRepository handles asset data persistence.
type AssetsRepository struct {
	db *sql.DB
}

// NewAssetsRepository creates a new assets repository.
func NewAssetsRepository(db *sql.DB) *AssetsRepository {
	return &AssetsRepository{db: db}
}

// Create creates a new asset, reporting false when the ID is already stored.
func (r *AssetsRepository) Create(ctx context.Context, asset *domain.Asset) (bool, error) {
	query := `
		INSERT INTO assets (id, tenant_id, name, address, short_term, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, query,
		asset.ID,
		asset.TenantID,
		asset.Name,
		asset.Address,
		asset.ShortTerm,
		asset.CreatedAt,
		asset.UpdatedAt,
	)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

// GetByID retrieves an asset by ID.
func (r *AssetsRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Asset, error) {
	query := `
		SELECT id, tenant_id, name, address, short_term, created_at, updated_at
		FROM assets
		WHERE id = $1 AND archived_at IS NULL
	`

	var asset domain.Asset
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&asset.ID,
		&asset.TenantID,
		&asset.Name,
		&asset.Address,
		&asset.ShortTerm,
		&asset.CreatedAt,
		&asset.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAssetNotFound
		}
		return nil, err
	}

	return &asset, nil
}

// ListByTenant retrieves a tenant's assets, oldest first.
func (r *AssetsRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]domain.Asset, error) {
	query := `
		SELECT id, tenant_id, name, address, short_term, created_at, updated_at
		FROM assets
		WHERE tenant_id = $1 AND archived_at IS NULL
		ORDER BY created_at ASC, name ASC
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []domain.Asset
	for rows.Next() {
		var asset domain.Asset
		err := rows.Scan(
			&asset.ID,
			&asset.TenantID,
			&asset.Name,
			&asset.Address,
			&asset.ShortTerm,
			&asset.CreatedAt,
			&asset.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}

	return assets, rows.Err()
}

// Update updates an asset's name, address and term flag.
func (r *AssetsRepository) Update(ctx context.Context, asset *domain.Asset) error {
	query := `
		UPDATE assets
		SET name = $1, address = $2, short_term = $3, updated_at = NOW()
		WHERE id = $4 AND archived_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query,
		asset.Name,
		asset.Address,
		asset.ShortTerm,
		asset.ID,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrAssetNotFound
	}

	return nil
}

// Archive hides an asset and completes its active bookings in one
// transaction, so their access codes stop working. It reports false when the
// asset is missing or already archived.
func (r *AssetsRepository) Archive(ctx context.Context, id uuid.UUID, at time.Time) (archived bool, err error) {
	err = Tx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE assets
			SET archived_at = $2, updated_at = $2
			WHERE id = $1 AND archived_at IS NULL
		`, id, at)
		if err != nil {
			return err
		}
		n, err := result.RowsAffected()
		if err != nil || n == 0 {
			return err
		}
		archived = true

		_, err = tx.ExecContext(ctx, `
			UPDATE bookings
			SET active = FALSE, completed_at = $2
			WHERE asset_id = $1 AND active
		`, id, at)
		return err
	})
	if err != nil {
		return false, err
	}
	return archived, nil
}
