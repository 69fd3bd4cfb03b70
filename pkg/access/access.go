// Package access issues and validates the two kinds of access codes: durable
// tenant invite codes that grant membership, and per-stay booking codes that
// grant a guest read access to one asset.
package access

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/tendant/stay-concierge/pkg/domain"
)

const (
	codeBytes = 24

	// Deep link payload prefixes.
	InvitePrefix  = "join_"
	BookingPrefix = "guest_"

	defaultMaxCodeAttempts = 5
	maxGuestLabelLength    = 128
)

// DateLayouts are the accepted check-in date formats, tried in order.
var DateLayouts = []string{"2006-01-02", "02.01.2006"}

// GenerateCode returns 192 random bits encoded as 32 URL-safe characters.
func GenerateCode() (string, error) {
	b := make([]byte, codeBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// TenantStore reads tenants and manages their invite codes.
type TenantStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error)
	GetByInviteCode(ctx context.Context, code string) (*domain.Tenant, error)
	SetInviteCode(ctx context.Context, id uuid.UUID, code string) error
}

// MembershipJoiner creates memberships idempotently.
type MembershipJoiner interface {
	Join(ctx context.Context, membership *domain.Membership) (bool, error)
}

// BookingStore persists bookings.
type BookingStore interface {
	// Create reports false, writing nothing, when the booking ID is already stored.
	Create(ctx context.Context, booking *domain.Booking) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	GetByCodeWithAsset(ctx context.Context, code string) (*domain.BookingWithAsset, error)
	Deactivate(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	ListActiveByAsset(ctx context.Context, assetID uuid.UUID) ([]domain.Booking, error)
}

// Config holds access service settings.
type Config struct {
	Timeout         time.Duration
	MaxCodeAttempts int
	// LinkBaseURL is the channel deep link prefix, e.g. https://t.me/concierge_bot?start=
	LinkBaseURL string
	Logger      *slog.Logger
}

// Service issues and validates access codes.
type Service struct {
	config      Config
	tenants     TenantStore
	memberships MembershipJoiner
	bookings    BookingStore
	generate    func() (string, error)
	logger      *slog.Logger
}

// NewService creates a new access service.
func NewService(config Config, tenants TenantStore, memberships MembershipJoiner, bookings BookingStore) *Service {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.MaxCodeAttempts <= 0 {
		config.MaxCodeAttempts = defaultMaxCodeAttempts
	}
	return &Service{
		config:      config,
		tenants:     tenants,
		memberships: memberships,
		bookings:    bookings,
		generate:    GenerateCode,
		logger:      logger,
	}
}

func (s *Service) scope(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.config.Timeout)
}

// IssueInvite returns the tenant's invite code, creating one on first use.
func (s *Service) IssueInvite(ctx context.Context, tenantID uuid.UUID) (string, error) {
	ctx, cancel := s.scope(ctx)
	defer cancel()

	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return "", domain.Retryable(err)
	}
	if tenant.InviteCode != "" {
		return tenant.InviteCode, nil
	}
	return s.storeInvite(ctx, tenantID)
}

// RotateInvite replaces the tenant's invite code. The previous code stops working at once.
func (s *Service) RotateInvite(ctx context.Context, tenantID uuid.UUID) (string, error) {
	ctx, cancel := s.scope(ctx)
	defer cancel()

	code, err := s.storeInvite(ctx, tenantID)
	if err != nil {
		return "", err
	}
	s.logger.Info("invite code rotated", "tenant_id", tenantID)
	return code, nil
}

func (s *Service) storeInvite(ctx context.Context, tenantID uuid.UUID) (string, error) {
	for attempt := 0; attempt < s.config.MaxCodeAttempts; attempt++ {
		code, err := s.generate()
		if err != nil {
			return "", err
		}
		err = s.tenants.SetInviteCode(ctx, tenantID, code)
		if errors.Is(err, domain.ErrCodeCollision) {
			s.logger.Warn("invite code collision", "tenant_id", tenantID, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return "", domain.Retryable(fmt.Errorf("failed to store invite code: %w", err))
		}
		return code, nil
	}
	return "", domain.ErrCodeCollision
}

// ValidateInvite returns the tenant an invite code belongs to.
func (s *Service) ValidateInvite(ctx context.Context, code string) (*domain.Tenant, error) {
	if !plausibleCode(code) {
		return nil, domain.ErrAccessDenied
	}

	ctx, cancel := s.scope(ctx)
	defer cancel()

	tenant, err := s.tenants.GetByInviteCode(ctx, code)
	if errors.Is(err, domain.ErrTenantNotFound) {
		return nil, domain.ErrAccessDenied
	}
	if err != nil {
		return nil, domain.Retryable(err)
	}
	return tenant, nil
}

// AcceptInvite makes the manager a member of the invite's tenant. Accepting
// again is harmless: joined reports whether a new membership was created.
func (s *Service) AcceptInvite(ctx context.Context, managerID, code string) (*domain.Tenant, bool, error) {
	tenant, err := s.ValidateInvite(ctx, code)
	if err != nil {
		return nil, false, err
	}

	ctx, cancel := s.scope(ctx)
	defer cancel()

	joined, err := s.memberships.Join(ctx, domain.NewMembership(tenant.ID, managerID, domain.RoleMember))
	if err != nil {
		return nil, false, domain.Retryable(fmt.Errorf("failed to join tenant: %w", err))
	}
	if joined {
		s.logger.Info("manager joined tenant", "tenant_id", tenant.ID, "manager_id", managerID)
	}
	return tenant, joined, nil
}

// ParseDate parses a check-in date in any of DateLayouts.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, domain.ErrInvalidDate
}

// IssueBooking creates a booking with a fresh code for a guest's stay at an
// asset. Repeating a request with the same id returns the booking issued the
// first time; a nil id mints a fresh one.
func (s *Service) IssueBooking(ctx context.Context, id, assetID uuid.UUID, guest, checkinDate string) (*domain.Booking, error) {
	guest = strings.Join(strings.Fields(guest), " ")
	if guest == "" {
		return nil, domain.ErrInvalidGuestName
	}
	if utf8.RuneCountInString(guest) > maxGuestLabelLength {
		return nil, domain.ErrValueTooLong
	}
	date, err := ParseDate(checkinDate)
	if err != nil {
		return nil, err
	}
	if id == uuid.Nil {
		id = uuid.New()
	}

	ctx, cancel := s.scope(ctx)
	defer cancel()

	for attempt := 0; attempt < s.config.MaxCodeAttempts; attempt++ {
		code, err := s.generate()
		if err != nil {
			return nil, err
		}
		booking := &domain.Booking{
			ID:          id,
			AssetID:     assetID,
			GuestLabel:  guest,
			CheckinDate: date,
			Code:        code,
			Active:      true,
			CreatedAt:   time.Now().UTC(),
		}
		created, err := s.bookings.Create(ctx, booking)
		if errors.Is(err, domain.ErrCodeCollision) {
			s.logger.Warn("booking code collision", "asset_id", assetID, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return nil, domain.Retryable(fmt.Errorf("failed to create booking: %w", err))
		}
		if !created {
			return s.existingBooking(ctx, id, assetID)
		}
		s.logger.Info("booking issued", "booking_id", booking.ID, "asset_id", assetID)
		return booking, nil
	}
	return nil, domain.ErrCodeCollision
}

// existingBooking returns a booking issued by an earlier attempt of the same request.
func (s *Service) existingBooking(ctx context.Context, id, assetID uuid.UUID) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, domain.Retryable(err)
	}
	if b.AssetID != assetID {
		return nil, domain.ErrBookingNotFound
	}
	s.logger.Info("booking issue repeated", "booking_id", id, "asset_id", assetID)
	return b, nil
}

// ValidateBooking returns the active booking for a code. Unknown and completed
// codes are indistinguishable to the caller.
func (s *Service) ValidateBooking(ctx context.Context, code string) (*domain.BookingWithAsset, error) {
	if !plausibleCode(code) {
		return nil, domain.ErrAccessDenied
	}

	ctx, cancel := s.scope(ctx)
	defer cancel()

	b, err := s.bookings.GetByCodeWithAsset(ctx, code)
	if errors.Is(err, domain.ErrBookingNotFound) {
		return nil, domain.ErrAccessDenied
	}
	if err != nil {
		return nil, domain.Retryable(err)
	}
	if !b.Active {
		s.logger.Warn("inactive booking code presented", "booking_id", b.ID)
		return nil, domain.ErrAccessDenied
	}
	return b, nil
}

// Booking returns a booking by ID.
func (s *Service) Booking(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	ctx, cancel := s.scope(ctx)
	defer cancel()

	b, err := s.bookings.GetByID(ctx, id)
	return b, domain.Retryable(err)
}

// CompleteBooking deactivates a booking. Completing it again is a no-op.
func (s *Service) CompleteBooking(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := s.scope(ctx)
	defer cancel()

	changed, err := s.bookings.Deactivate(ctx, id, time.Now().UTC())
	if err != nil {
		return domain.Retryable(fmt.Errorf("failed to complete booking: %w", err))
	}
	if changed {
		s.logger.Info("booking completed", "booking_id", id)
		return nil
	}
	// Nothing changed: either already completed or never existed.
	if _, err := s.bookings.GetByID(ctx, id); err != nil {
		return domain.Retryable(err)
	}
	return nil
}

// ListActiveBookings lists an asset's active bookings by check-in date.
func (s *Service) ListActiveBookings(ctx context.Context, assetID uuid.UUID) ([]domain.Booking, error) {
	ctx, cancel := s.scope(ctx)
	defer cancel()

	list, err := s.bookings.ListActiveByAsset(ctx, assetID)
	return list, domain.Retryable(err)
}

// InviteLink returns the deep link that joins a tenant.
func (s *Service) InviteLink(code string) string {
	return s.config.LinkBaseURL + InvitePrefix + code
}

// BookingLink returns the deep link a guest opens to see their stay.
func (s *Service) BookingLink(code string) string {
	return s.config.LinkBaseURL + BookingPrefix + code
}

// plausibleCode rejects values that cannot have come from GenerateCode
// without touching storage.
func plausibleCode(code string) bool {
	if code == "" || len(code) > 64 {
		return false
	}
	for _, r := range code {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
