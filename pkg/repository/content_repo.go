package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/tendant/stay-concierge/pkg/domain"
)

// ContentRepository handles content node persistence.
type ContentRepository struct {
	db *sql.DB
}

// NewContentRepository creates a new content repository.
func NewContentRepository(db *sql.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// Upsert writes the node at its (asset, section, field_key) coordinate.
// An existing row is overwritten only when its content differs, so repeating
// an identical write leaves updated_at untouched. It reports whether a row changed.
func (r *ContentRepository) Upsert(ctx context.Context, node *domain.ContentNode) (bool, error) {
	query := `
		INSERT INTO content_nodes (id, asset_id, section, field_key, display_name,
			text_content, media_kind, media_ref, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (asset_id, section, field_key) DO UPDATE
		SET display_name = EXCLUDED.display_name,
			text_content = EXCLUDED.text_content,
			media_kind = EXCLUDED.media_kind,
			media_ref = EXCLUDED.media_ref,
			updated_at = EXCLUDED.updated_at
		WHERE (content_nodes.display_name, content_nodes.text_content,
				content_nodes.media_kind, content_nodes.media_ref)
			IS DISTINCT FROM (EXCLUDED.display_name, EXCLUDED.text_content,
				EXCLUDED.media_kind, EXCLUDED.media_ref)
	`

	var text, kind, ref sql.NullString
	if node.Text != nil {
		text = sql.NullString{String: *node.Text, Valid: true}
	}
	if node.Media != nil {
		kind = sql.NullString{String: string(node.Media.Kind), Valid: true}
		ref = sql.NullString{String: node.Media.Ref, Valid: true}
	}

	result, err := r.db.ExecContext(ctx, query,
		node.ID,
		node.AssetID,
		node.Section,
		node.FieldKey,
		node.DisplayName,
		text,
		kind,
		ref,
		node.CreatedAt,
		node.UpdatedAt,
	)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// Get retrieves the node at a coordinate.
func (r *ContentRepository) Get(ctx context.Context, assetID uuid.UUID, section domain.Section, key string) (*domain.ContentNode, error) {
	query := `
		SELECT id, asset_id, section, field_key, display_name, text_content,
			media_kind, media_ref, created_at, updated_at
		FROM content_nodes
		WHERE asset_id = $1 AND section = $2 AND field_key = $3
	`

	node, err := scanNode(r.db.QueryRowContext(ctx, query, assetID, section, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return node, nil
}

// ListBySection retrieves all nodes of one section of an asset, ordered by display name.
func (r *ContentRepository) ListBySection(ctx context.Context, assetID uuid.UUID, section domain.Section) ([]domain.ContentNode, error) {
	query := `
		SELECT id, asset_id, section, field_key, display_name, text_content,
			media_kind, media_ref, created_at, updated_at
		FROM content_nodes
		WHERE asset_id = $1 AND section = $2
		ORDER BY display_name ASC, field_key ASC
	`

	rows, err := r.db.QueryContext(ctx, query, assetID, section)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nodes []domain.ContentNode
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, *node)
	}

	return nodes, rows.Err()
}

// Delete removes the node at a coordinate and reports whether it existed.
func (r *ContentRepository) Delete(ctx context.Context, assetID uuid.UUID, section domain.Section, key string) (bool, error) {
	query := `
		DELETE FROM content_nodes
		WHERE asset_id = $1 AND section = $2 AND field_key = $3
	`
	result, err := r.db.ExecContext(ctx, query, assetID, section, key)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func scanNode(s rowScanner) (*domain.ContentNode, error) {
	var node domain.ContentNode
	var text, kind, ref sql.NullString
	err := s.Scan(
		&node.ID,
		&node.AssetID,
		&node.Section,
		&node.FieldKey,
		&node.DisplayName,
		&text,
		&kind,
		&ref,
		&node.CreatedAt,
		&node.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if text.Valid {
		node.Text = &text.String
	}
	if kind.Valid && ref.Valid {
		node.Media = &domain.Media{Kind: domain.MediaKind(kind.String), Ref: ref.String}
	}
	return &node, nil
}
