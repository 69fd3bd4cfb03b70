// Package identity manages tenants, the managers who run them and the
// role-tagged memberships linking the two.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/tendant/stay-concierge/pkg/domain"
	"github.com/tendant/stay-concierge/pkg/sanitize"
)

const (
	maxNameLength     = 128
	maxGreetingLength = 2000

	minSuggestionLength = 10
	maxSuggestionLength = 1000
)

var (
	clockRE    = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
	timezoneRE = regexp.MustCompile(`^UTC([+-](1[0-4]|0?\d)(:(00|30|45))?)?$`)
)

// TenantStore persists tenants.
type TenantStore interface {
	// CreateWithOwner reports false, writing nothing, when the tenant ID is already stored.
	CreateWithOwner(ctx context.Context, tenant *domain.Tenant, owner *domain.Membership) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error)
	Update(ctx context.Context, tenant *domain.Tenant) error
}

// ManagerStore persists managers.
type ManagerStore interface {
	Upsert(ctx context.Context, manager *domain.Manager) error
}

// MembershipStore reads memberships.
type MembershipStore interface {
	Get(ctx context.Context, tenantID uuid.UUID, managerID string) (*domain.Membership, error)
	ListByManager(ctx context.Context, managerID string) ([]domain.MembershipWithTenant, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]domain.MemberWithManager, error)
}

// SuggestionStore persists manager feedback.
type SuggestionStore interface {
	Create(ctx context.Context, s *domain.Suggestion) error
}

// Config holds identity service settings.
type Config struct {
	Timeout time.Duration
	Logger  *slog.Logger
}

// Service manages tenants, managers and memberships.
type Service struct {
	config      Config
	tenants     TenantStore
	managers    ManagerStore
	memberships MembershipStore
	suggestions SuggestionStore
	logger      *slog.Logger
}

// NewService creates a new identity service.
func NewService(
	config Config,
	tenants TenantStore,
	managers ManagerStore,
	memberships MembershipStore,
	suggestions SuggestionStore,
) *Service {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		config:      config,
		tenants:     tenants,
		managers:    managers,
		memberships: memberships,
		suggestions: suggestions,
		logger:      logger,
	}
}

func (s *Service) scope(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.config.Timeout)
}

// Touch registers the manager on first contact and refreshes the profile afterwards.
func (s *Service) Touch(ctx context.Context, id, displayName, username string) error {
	ctx, cancel := s.scope(ctx)
	defer cancel()

	now := time.Now().UTC()
	err := s.managers.Upsert(ctx, &domain.Manager{
		ID:          id,
		DisplayName: displayName,
		Username:    username,
		CreatedAt:   now,
		LastSeenAt:  now,
	})
	if err != nil {
		return domain.Retryable(fmt.Errorf("failed to register manager: %w", err))
	}
	return nil
}

// CreateTenant registers a tenant and makes the manager its owner in one transaction.
// id is chosen by the caller so a repeated request returns the tenant created
// the first time instead of a second one. A nil id mints a fresh one.
func (s *Service) CreateTenant(ctx context.Context, id uuid.UUID, managerID, name, city string) (*domain.Tenant, error) {
	name, err := CleanName(name)
	if err != nil {
		return nil, err
	}
	city, err = CleanName(city)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.scope(ctx)
	defer cancel()

	tenant := domain.NewTenant(name, city)
	if id != uuid.Nil {
		tenant.ID = id
	}
	owner := domain.NewMembership(tenant.ID, managerID, domain.RoleOwner)
	created, err := s.tenants.CreateWithOwner(ctx, tenant, owner)
	if err != nil {
		return nil, domain.Retryable(fmt.Errorf("failed to create tenant: %w", err))
	}
	if !created {
		return s.existingTenant(ctx, tenant.ID, managerID)
	}

	s.logger.Info("tenant created", "tenant_id", tenant.ID, "manager_id", managerID)
	return tenant, nil
}

// existingTenant returns a tenant created by an earlier attempt of the same
// request. It only belongs to the caller if they own it.
func (s *Service) existingTenant(ctx context.Context, id uuid.UUID, managerID string) (*domain.Tenant, error) {
	m, err := s.memberships.Get(ctx, id, managerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotMember) {
			return nil, domain.ErrTenantNotFound
		}
		return nil, domain.Retryable(err)
	}
	if m.Role != domain.RoleOwner {
		return nil, domain.ErrTenantNotFound
	}
	tenant, err := s.tenants.GetByID(ctx, id)
	if err != nil {
		return nil, domain.Retryable(err)
	}
	s.logger.Info("tenant creation repeated", "tenant_id", id, "manager_id", managerID)
	return tenant, nil
}

// Tenant returns a tenant by ID.
func (s *Service) Tenant(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	ctx, cancel := s.scope(ctx)
	defer cancel()

	t, err := s.tenants.GetByID(ctx, id)
	return t, domain.Retryable(err)
}

// Tenants lists the tenants a manager belongs to.
func (s *Service) Tenants(ctx context.Context, managerID string) ([]domain.MembershipWithTenant, error) {
	ctx, cancel := s.scope(ctx)
	defer cancel()

	list, err := s.memberships.ListByManager(ctx, managerID)
	return list, domain.Retryable(err)
}

// Members lists the managers of a tenant.
func (s *Service) Members(ctx context.Context, tenantID uuid.UUID) ([]domain.MemberWithManager, error) {
	ctx, cancel := s.scope(ctx)
	defer cancel()

	list, err := s.memberships.ListByTenant(ctx, tenantID)
	return list, domain.Retryable(err)
}

// Authorize returns the manager's membership if its role allows the action.
func (s *Service) Authorize(ctx context.Context, tenantID uuid.UUID, managerID string, action domain.Action) (*domain.Membership, error) {
	ctx, cancel := s.scope(ctx)
	defer cancel()

	m, err := s.memberships.Get(ctx, tenantID, managerID)
	if err != nil {
		return nil, domain.Retryable(err)
	}
	if !m.Role.Can(action) {
		return nil, domain.ErrForbidden
	}
	return m, nil
}

// UpdateSetting validates and stores one tenant setting.
func (s *Service) UpdateSetting(ctx context.Context, managerID string, tenantID uuid.UUID, setting domain.TenantSetting, value string) (*domain.Tenant, error) {
	if !setting.Valid() {
		return nil, domain.ErrInvalidSetting
	}
	if _, err := s.Authorize(ctx, tenantID, managerID, domain.ActionEditSettings); err != nil {
		return nil, err
	}

	ctx, cancel := s.scope(ctx)
	defer cancel()

	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, domain.Retryable(err)
	}

	value = sanitize.Text(value)
	switch setting {
	case domain.TenantSettingName:
		if tenant.Name, err = CleanName(value); err != nil {
			return nil, err
		}
	case domain.TenantSettingCity:
		if tenant.City, err = CleanName(value); err != nil {
			return nil, err
		}
	case domain.TenantSettingGreeting:
		if value == "" {
			return nil, domain.ErrEmptyName
		}
		if utf8.RuneCountInString(value) > maxGreetingLength {
			return nil, domain.ErrValueTooLong
		}
		tenant.Greeting = value
	case domain.TenantSettingTimezone:
		tz, err := ParseTimezone(value)
		if err != nil {
			return nil, err
		}
		tenant.Timezone = tz
	case domain.TenantSettingCheckInTime:
		if !clockRE.MatchString(value) {
			return nil, domain.ErrInvalidTime
		}
		tenant.CheckInTime = value
	case domain.TenantSettingCheckOutTime:
		if !clockRE.MatchString(value) {
			return nil, domain.ErrInvalidTime
		}
		tenant.CheckOutTime = value
	}

	if err := s.tenants.Update(ctx, tenant); err != nil {
		return nil, domain.Retryable(fmt.Errorf("failed to update tenant: %w", err))
	}
	return tenant, nil
}

// ToggleLongTerm flips the tenant's long-term-only flag.
func (s *Service) ToggleLongTerm(ctx context.Context, managerID string, tenantID uuid.UUID) (*domain.Tenant, error) {
	if _, err := s.Authorize(ctx, tenantID, managerID, domain.ActionEditSettings); err != nil {
		return nil, err
	}

	ctx, cancel := s.scope(ctx)
	defer cancel()

	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, domain.Retryable(err)
	}
	tenant.LongTermOnly = !tenant.LongTermOnly
	if err := s.tenants.Update(ctx, tenant); err != nil {
		return nil, domain.Retryable(fmt.Errorf("failed to update tenant: %w", err))
	}
	return tenant, nil
}

// Suggest records product feedback from a manager.
func (s *Service) Suggest(ctx context.Context, managerID, text string) error {
	text = sanitize.Text(text)
	n := utf8.RuneCountInString(text)
	if n < minSuggestionLength || n > maxSuggestionLength {
		return domain.ErrSuggestionLength
	}

	ctx, cancel := s.scope(ctx)
	defer cancel()

	sg := &domain.Suggestion{
		ID:        uuid.New(),
		ManagerID: managerID,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.suggestions.Create(ctx, sg); err != nil {
		return domain.Retryable(fmt.Errorf("failed to store suggestion: %w", err))
	}

	s.logger.Info("suggestion received", "manager_id", managerID, "suggestion_id", sg.ID, "length", n)
	return nil
}

// ParseTimezone normalizes values like "utc+3" or "UTC-05:30" to the stored form.
func ParseTimezone(value string) (string, error) {
	tz := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(value), " ", ""))
	if !timezoneRE.MatchString(tz) {
		return "", domain.ErrInvalidTimezone
	}
	return tz, nil
}

// CleanName normalizes a typed name to one line, rejecting empty or overlong names.
func CleanName(s string) (string, error) {
	return sanitize.Line(s, maxNameLength)
}
