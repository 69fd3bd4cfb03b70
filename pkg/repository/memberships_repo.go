package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/tendant/stay-concierge/pkg/domain"
)

// MembershipsRepository handles membership data persistence.
type MembershipsRepository struct {
	db *sql.DB
}

// NewMembershipsRepository creates a new memberships repository.
func NewMembershipsRepository(db *sql.DB) *MembershipsRepository {
	return &MembershipsRepository{db: db}
}

// Create creates a new membership.
func (r *MembershipsRepository) Create(ctx context.Context, membership *domain.Membership) error {
	return r.CreateTx(ctx, r.db, membership)
}

// CreateTx creates a new membership within a transaction.
func (r *MembershipsRepository) CreateTx(ctx context.Context, q Querier, membership *domain.Membership) error {
	query := `
		INSERT INTO memberships (id, tenant_id, manager_id, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := q.ExecContext(ctx, query,
		membership.ID,
		membership.TenantID,
		membership.ManagerID,
		membership.Role,
		membership.CreatedAt,
	)
	return err
}

// Join inserts the membership unless the manager already belongs to the tenant.
// It reports whether a new row was written.
func (r *MembershipsRepository) Join(ctx context.Context, membership *domain.Membership) (bool, error) {
	query := `
		INSERT INTO memberships (id, tenant_id, manager_id, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tenant_id, manager_id) DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, query,
		membership.ID,
		membership.TenantID,
		membership.ManagerID,
		membership.Role,
		membership.CreatedAt,
	)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// Get retrieves the membership of a manager in a tenant.
func (r *MembershipsRepository) Get(ctx context.Context, tenantID uuid.UUID, managerID string) (*domain.Membership, error) {
	query := `
		SELECT id, tenant_id, manager_id, role, created_at
		FROM memberships
		WHERE tenant_id = $1 AND manager_id = $2
	`

	var membership domain.Membership
	err := r.db.QueryRowContext(ctx, query, tenantID, managerID).Scan(
		&membership.ID,
		&membership.TenantID,
		&membership.ManagerID,
		&membership.Role,
		&membership.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotMember
		}
		return nil, err
	}

	return &membership, nil
}

// ListByManager retrieves a manager's memberships with tenant details.
func (r *MembershipsRepository) ListByManager(ctx context.Context, managerID string) ([]domain.MembershipWithTenant, error) {
	query := `
		SELECT
			m.id, m.tenant_id, m.manager_id, m.role, m.created_at,
			t.id, t.name, t.city, t.greeting, t.timezone, t.checkin_time, t.checkout_time,
			t.long_term_only, COALESCE(t.invite_code, ''), t.created_at, t.updated_at
		FROM memberships m
		INNER JOIN tenants t ON m.tenant_id = t.id
		WHERE m.manager_id = $1
		ORDER BY m.created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, managerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.MembershipWithTenant
	for rows.Next() {
		var mt domain.MembershipWithTenant
		err := rows.Scan(
			&mt.ID,
			&mt.TenantID,
			&mt.ManagerID,
			&mt.Role,
			&mt.CreatedAt,
			&mt.Tenant.ID,
			&mt.Tenant.Name,
			&mt.Tenant.City,
			&mt.Tenant.Greeting,
			&mt.Tenant.Timezone,
			&mt.Tenant.CheckInTime,
			&mt.Tenant.CheckOutTime,
			&mt.Tenant.LongTermOnly,
			&mt.Tenant.InviteCode,
			&mt.Tenant.CreatedAt,
			&mt.Tenant.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		results = append(results, mt)
	}

	return results, rows.Err()
}

// ListByTenant retrieves all members of a tenant with their profiles.
func (r *MembershipsRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]domain.MemberWithManager, error) {
	query := `
		SELECT
			m.id, m.tenant_id, m.manager_id, m.role, m.created_at,
			g.id, g.display_name, g.username, g.created_at, g.last_seen_at
		FROM memberships m
		INNER JOIN managers g ON m.manager_id = g.id
		WHERE m.tenant_id = $1
		ORDER BY m.created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.MemberWithManager
	for rows.Next() {
		var mm domain.MemberWithManager
		err := rows.Scan(
			&mm.ID,
			&mm.TenantID,
			&mm.ManagerID,
			&mm.Role,
			&mm.CreatedAt,
			&mm.Manager.ID,
			&mm.Manager.DisplayName,
			&mm.Manager.Username,
			&mm.Manager.CreatedAt,
			&mm.Manager.LastSeenAt,
		)
		if err != nil {
			return nil, err
		}
		results = append(results, mm)
	}

	return results, rows.Err()
}
