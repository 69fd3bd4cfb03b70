package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/stay-concierge/pkg/domain"
)

// BookingsRepository handles booking persistence.
// Rows are never deleted so that codes stay unique for all time.
type BookingsRepository struct {
	db *sql.DB
}

// NewBookingsRepository creates a new bookings repository.
func NewBookingsRepository(db *sql.DB) *BookingsRepository {
	return &BookingsRepository{db: db}
}

// Create creates a new booking, reporting false when the ID is already stored.
// A code already used by any booking yields ErrCodeCollision.
func (r *BookingsRepository) Create(ctx context.Context, booking *domain.Booking) (bool, error) {
	query := `
		INSERT INTO bookings (id, asset_id, guest_label, checkin_date, code, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, query,
		booking.ID,
		booking.AssetID,
		booking.GuestLabel,
		booking.CheckinDate,
		booking.Code,
		booking.Active,
		booking.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return false, domain.ErrCodeCollision
		}
		return false, err
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

// GetByID retrieves a booking by ID.
func (r *BookingsRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	query := `
		SELECT id, asset_id, guest_label, checkin_date, code, active, created_at, completed_at
		FROM bookings
		WHERE id = $1
	`

	var b domain.Booking
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&b.ID,
		&b.AssetID,
		&b.GuestLabel,
		&b.CheckinDate,
		&b.Code,
		&b.Active,
		&b.CreatedAt,
		&b.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, err
	}

	return &b, nil
}

// GetByCodeWithAsset retrieves a booking and its asset by access code,
// regardless of whether the booking is still active.
func (r *BookingsRepository) GetByCodeWithAsset(ctx context.Context, code string) (*domain.BookingWithAsset, error) {
	query := `
		SELECT
			b.id, b.asset_id, b.guest_label, b.checkin_date, b.code, b.active, b.created_at, b.completed_at,
			a.id, a.tenant_id, a.name, a.address, a.short_term, a.created_at, a.updated_at
		FROM bookings b
		INNER JOIN assets a ON b.asset_id = a.id
		WHERE b.code = $1
	`

	var bw domain.BookingWithAsset
	err := r.db.QueryRowContext(ctx, query, code).Scan(
		&bw.ID,
		&bw.AssetID,
		&bw.GuestLabel,
		&bw.CheckinDate,
		&bw.Code,
		&bw.Active,
		&bw.CreatedAt,
		&bw.CompletedAt,
		&bw.Asset.ID,
		&bw.Asset.TenantID,
		&bw.Asset.Name,
		&bw.Asset.Address,
		&bw.Asset.ShortTerm,
		&bw.Asset.CreatedAt,
		&bw.Asset.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, err
	}

	return &bw, nil
}

// Deactivate marks an active booking as completed. It reports whether the row changed;
// an already completed booking is left as is.
func (r *BookingsRepository) Deactivate(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	query := `
		UPDATE bookings
		SET active = FALSE, completed_at = $1
		WHERE id = $2 AND active
	`
	result, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// ListActiveByAsset retrieves the active bookings of an asset by check-in date.
func (r *BookingsRepository) ListActiveByAsset(ctx context.Context, assetID uuid.UUID) ([]domain.Booking, error) {
	query := `
		SELECT id, asset_id, guest_label, checkin_date, code, active, created_at, completed_at
		FROM bookings
		WHERE asset_id = $1 AND active
		ORDER BY checkin_date ASC, created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, assetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		var b domain.Booking
		err := rows.Scan(
			&b.ID,
			&b.AssetID,
			&b.GuestLabel,
			&b.CheckinDate,
			&b.Code,
			&b.Active,
			&b.CreatedAt,
			&b.CompletedAt,
		)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}

	return bookings, rows.Err()
}
