package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/tendant/stay-concierge/pkg/domain"
)

// TenantsRepository handles tenant data persistence.
type TenantsRepository struct {
	db *sql.DB
}

// NewTenantsRepository creates a new tenants repository.
func NewTenantsRepository(db *sql.DB) *TenantsRepository {
	return &TenantsRepository{db: db}
}

const tenantColumns = `id, name, city, greeting, timezone, checkin_time, checkout_time,
		long_term_only, COALESCE(invite_code, ''), created_at, updated_at`

// Create creates a new tenant. It reports false when a tenant with the same
// ID already exists, leaving that row untouched.
func (r *TenantsRepository) Create(ctx context.Context, tenant *domain.Tenant) (bool, error) {
	return r.CreateTx(ctx, r.db, tenant)
}

// CreateTx creates a new tenant within a transaction.
func (r *TenantsRepository) CreateTx(ctx context.Context, q Querier, tenant *domain.Tenant) (bool, error) {
	query := `
		INSERT INTO tenants (id, name, city, greeting, timezone, checkin_time, checkout_time,
			long_term_only, invite_code, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11)
		ON CONFLICT (id) DO NOTHING
	`
	result, err := q.ExecContext(ctx, query,
		tenant.ID,
		tenant.Name,
		tenant.City,
		tenant.Greeting,
		tenant.Timezone,
		tenant.CheckInTime,
		tenant.CheckOutTime,
		tenant.LongTermOnly,
		tenant.InviteCode,
		tenant.CreatedAt,
		tenant.UpdatedAt,
	)
	if IsUniqueViolation(err) {
		return false, domain.ErrCodeCollision
	}
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

// CreateWithOwner creates the tenant and its owner membership in one
// transaction. When the tenant already exists nothing is written and
// created is false.
func (r *TenantsRepository) CreateWithOwner(ctx context.Context, tenant *domain.Tenant, owner *domain.Membership) (created bool, err error) {
	memberships := NewMembershipsRepository(r.db)
	err = Tx(ctx, r.db, func(tx *sql.Tx) error {
		created, err = r.CreateTx(ctx, tx, tenant)
		if err != nil || !created {
			return err
		}
		return memberships.CreateTx(ctx, tx, owner)
	})
	return created, err
}

// GetByID retrieves a tenant by ID.
func (r *TenantsRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetByInviteCode retrieves the tenant holding an invite code.
func (r *TenantsRepository) GetByInviteCode(ctx context.Context, code string) (*domain.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE invite_code = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, code))
}

func (r *TenantsRepository) scanOne(row *sql.Row) (*domain.Tenant, error) {
	var tenant domain.Tenant
	err := row.Scan(
		&tenant.ID,
		&tenant.Name,
		&tenant.City,
		&tenant.Greeting,
		&tenant.Timezone,
		&tenant.CheckInTime,
		&tenant.CheckOutTime,
		&tenant.LongTermOnly,
		&tenant.InviteCode,
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTenantNotFound
		}
		return nil, err
	}
	return &tenant, nil
}

// Update updates a tenant's settings.
func (r *TenantsRepository) Update(ctx context.Context, tenant *domain.Tenant) error {
	query := `
		UPDATE tenants
		SET name = $1, city = $2, greeting = $3, timezone = $4, checkin_time = $5,
			checkout_time = $6, long_term_only = $7, updated_at = NOW()
		WHERE id = $8
	`
	result, err := r.db.ExecContext(ctx, query,
		tenant.Name,
		tenant.City,
		tenant.Greeting,
		tenant.Timezone,
		tenant.CheckInTime,
		tenant.CheckOutTime,
		tenant.LongTermOnly,
		tenant.ID,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrTenantNotFound
	}

	return nil
}

// SetInviteCode replaces the tenant's invite code.
func (r *TenantsRepository) SetInviteCode(ctx context.Context, id uuid.UUID, code string) error {
	query := `
		UPDATE tenants
		SET invite_code = $1, updated_at = NOW()
		WHERE id = $2
	`
	result, err := r.db.ExecContext(ctx, query, code, id)
	if err != nil {
		if IsUniqueViolation(err) {
			return domain.ErrCodeCollision
		}
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrTenantNotFound
	}

	return nil
}
