package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tendant/stay-concierge/pkg/domain"
)

// ManagersRepository handles manager data persistence.
type ManagersRepository struct {
	db *sql.DB
}

// NewManagersRepository creates a new managers repository.
func NewManagersRepository(db *sql.DB) *ManagersRepository {
	return &ManagersRepository{db: db}
}

// Upsert registers a manager or refreshes the profile of a known one.
func (r *ManagersRepository) Upsert(ctx context.Context, manager *domain.Manager) error {
	query := `
		INSERT INTO managers (id, display_name, username, created_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET display_name = EXCLUDED.display_name,
			username = EXCLUDED.username,
			last_seen_at = EXCLUDED.last_seen_at
	`
	_, err := r.db.ExecContext(ctx, query,
		manager.ID,
		manager.DisplayName,
		manager.Username,
		manager.CreatedAt,
		manager.LastSeenAt,
	)
	return err
}

// GetByID retrieves a manager by external ID.
func (r *ManagersRepository) GetByID(ctx context.Context, id string) (*domain.Manager, error) {
	query := `
		SELECT id, display_name, username, created_at, last_seen_at
		FROM managers
		WHERE id = $1
	`

	var manager domain.Manager
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&manager.ID,
		&manager.DisplayName,
		&manager.Username,
		&manager.CreatedAt,
		&manager.LastSeenAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrManagerNotFound
		}
		return nil, err
	}

	return &manager, nil
}
