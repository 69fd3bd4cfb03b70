package repository

import (
	"context"
	"database/sql"

	"github.com/tendant/stay-concierge/pkg/domain"
)

// SuggestionsRepository stores product feedback from managers.
type SuggestionsRepository struct {
	db *sql.DB
}

// NewSuggestionsRepository creates a new suggestions repository.
func NewSuggestionsRepository(db *sql.DB) *SuggestionsRepository {
	return &SuggestionsRepository{db: db}
}

// Create stores a suggestion.
func (r *SuggestionsRepository) Create(ctx context.Context, s *domain.Suggestion) error {
	query := `
		INSERT INTO suggestions (id, manager_id, text, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.ExecContext(ctx, query, s.ID, s.ManagerID, s.Text, s.CreatedAt)
	return err
}
