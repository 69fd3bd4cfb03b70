// Package memstore is an in-memory backend mirroring the Postgres repositories,
// including their uniqueness guarantees. It backs tests and the --memory dev mode.
package memstore

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/stay-concierge/pkg/domain"
)

// ErrForeignKey stands in for the Postgres foreign key violation raised when a
// row references a parent that does not exist.
var ErrForeignKey = errors.New("memstore: foreign key violation")

type nodeKey struct {
	asset   uuid.UUID
	section domain.Section
	key     string
}

type memberKey struct {
	tenant  uuid.UUID
	manager string
}

// Store holds all entities behind one lock.
type Store struct {
	mu sync.Mutex

	tenants     map[uuid.UUID]domain.Tenant
	inviteIndex map[string]uuid.UUID
	managers    map[string]domain.Manager
	memberships map[memberKey]domain.Membership
	assets      map[uuid.UUID]domain.Asset
	nodes       map[nodeKey]domain.ContentNode
	bookings    map[uuid.UUID]domain.Booking
	codeIndex   map[string]uuid.UUID
	suggestions []domain.Suggestion

	fail error
}

// New returns an empty store.
func New() *Store {
	return &Store{
		tenants:     make(map[uuid.UUID]domain.Tenant),
		inviteIndex: make(map[string]uuid.UUID),
		managers:    make(map[string]domain.Manager),
		memberships: make(map[memberKey]domain.Membership),
		assets:      make(map[uuid.UUID]domain.Asset),
		nodes:       make(map[nodeKey]domain.ContentNode),
		bookings:    make(map[uuid.UUID]domain.Booking),
		codeIndex:   make(map[string]uuid.UUID),
	}
}

// SetFailure makes every subsequent call return err until cleared with nil.
func (s *Store) SetFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

// begin takes the lock and reports an injected failure or a done context.
func (s *Store) begin(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	if s.fail != nil {
		err := s.fail
		s.mu.Unlock()
		return err
	}
	return nil
}

// Tenants returns the tenant repository view.
func (s *Store) Tenants() *Tenants { return &Tenants{s} }

// Managers returns the manager repository view.
func (s *Store) Managers() *Managers { return &Managers{s} }

// Memberships returns the membership repository view.
func (s *Store) Memberships() *Memberships { return &Memberships{s} }

// Assets returns the asset repository view.
func (s *Store) Assets() *Assets { return &Assets{s} }

// Content returns the content node repository view.
func (s *Store) Content() *Content { return &Content{s} }

// Bookings returns the booking repository view.
func (s *Store) Bookings() *Bookings { return &Bookings{s} }

// Suggestions returns the suggestion repository view.
func (s *Store) Suggestions() *Suggestions { return &Suggestions{s} }

// Counts is a snapshot of row counts, used by tests to assert nothing was written.
type Counts struct {
	Tenants, Managers, Memberships, Assets, Nodes, Bookings, Suggestions int
}

// Counts returns the current row counts.
func (s *Store) Counts() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Counts{
		Tenants:     len(s.tenants),
		Managers:    len(s.managers),
		Memberships: len(s.memberships),
		Assets:      len(s.assets),
		Nodes:       len(s.nodes),
		Bookings:    len(s.bookings),
		Suggestions: len(s.suggestions),
	}
}

// Tenants implements the tenant repository.
type Tenants struct{ s *Store }

// CreateWithOwner stores the tenant and its owner membership atomically.
// An existing tenant with the same ID is left untouched and created is false.
func (r *Tenants) CreateWithOwner(ctx context.Context, tenant *domain.Tenant, owner *domain.Membership) (bool, error) {
	s := r.s
	if err := s.begin(ctx); err != nil {
		return false, err
	}
	defer s.mu.Unlock()

	if _, exists := s.tenants[tenant.ID]; exists {
		return false, nil
	}
	if tenant.InviteCode != "" {
		if _, taken := s.inviteIndex[tenant.InviteCode]; taken {
			return false, domain.ErrCodeCollision
		}
		s.inviteIndex[tenant.InviteCode] = tenant.ID
	}
	s.tenants[tenant.ID] = *tenant
	s.memberships[memberKey{owner.TenantID, owner.ManagerID}] = *owner
	return true, nil
}

// GetByID retrieves a tenant by ID.
func (r *Tenants) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	s := r.s
	if err := s.begin(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	t, ok := s.tenants[id]
	if !ok {
		return nil, domain.ErrTenantNotFound
	}
	return &t, nil
}

// GetByInviteCode retrieves the tenant holding an invite code.
func (r *Tenants) GetByInviteCode(ctx context.Context, code string) (*domain.Tenant, error) {
	s := r.s
	if err := s.begin(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	id, ok := s.inviteIndex[code]
	if !ok {
		return nil, domain.ErrTenantNotFound
	}
	t := s.tenants[id]
	return &t, nil
}

// Update updates a tenant's settings.
func (r *Tenants) Update(ctx context.Context, tenant *domain.Tenant) error {
	s := r.s
	if err := s.begin(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()

	cur, ok := s.tenants[tenant.ID]
	if !ok {
		return domain.ErrTenantNotFound
	}
	cur.Name = tenant.Name
	cur.City = tenant.City
	cur.Greeting = tenant.Greeting
	cur.Timezone = tenant.Timezone
	cur.CheckInTime = tenant.CheckInTime
	cur.CheckOutTime = tenant.CheckOutTime
	cur.LongTermOnly = tenant.LongTermOnly
	cur.UpdatedAt = time.Now().UTC()
	s.tenants[tenant.ID] = cur
	return nil
}

// SetInviteCode replaces the tenant's invite code.
func (r *Tenants) SetInviteCode(ctx context.Context, id uuid.UUID, code string) error {
	s := r.s
	if err := s.begin(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()

	cur, ok := s.tenants[id]
	if !ok {
		return domain.ErrTenantNotFound
	}
	if owner, taken := s.inviteIndex[code]; taken && owner != id {
		return domain.ErrCodeCollision
	}
	if cur.InviteCode != "" {
		delete(s.inviteIndex, cur.InviteCode)
	}
	cur.InviteCode = code
	cur.UpdatedAt = time.Now().UTC()
	s.tenants[id] = cur
	s.inviteIndex[code] = id
	return nil
}

// Managers implements the manager repository.
type Managers struct{ s *Store }

// Upsert registers a manager or refreshes the profile of a known one.
func (r *Managers) Upsert(ctx context.Context, m *domain.Manager) error {
	s := r.s
	if err := s.begin(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()

	if cur, ok := s.managers[m.ID]; ok {
		cur.DisplayName = m.DisplayName
		cur.Username = m.Username
		cur.LastSeenAt = m.LastSeenAt
		s.managers[m.ID] = cur
		return nil
	}
	s.managers[m.ID] = *m
	return nil
}

// GetByID retrieves a manager by external ID.
func (r *Managers) GetByID(ctx context.Context, id string) (*domain.Manager, error) {
	s := r.s
	if err := s.begin(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	m, ok := s.managers[id]
	if !ok {
		return nil, domain.ErrManagerNotFound
	}
	return &m, nil
}

// Memberships implements the membership repository.
type Memberships struct{ s *Store }

// Join inserts the membership unless the pair already exists.
func (r *Memberships) Join(ctx context.Context, m *domain.Membership) (bool, error) {
	s := r.s
	if err := s.begin(ctx); err != nil {
		return false, err
	}
	defer s.mu.Unlock()

	k := memberKey{m.TenantID, m.ManagerID}
	if _, ok := s.memberships[k]; ok {
		return false, nil
	}
	s.memberships[k] = *m
	return true, nil
}

// Get retrieves the membership of a manager in a tenant.
func (r *Memberships) Get(ctx context.Context, tenantID uuid.UUID, managerID string) (*domain.Membership, error) {
	s := r.s
	if err := s.begin(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	m, ok := s.memberships[memberKey{tenantID, managerID}]
	if !ok {
		return nil, domain.ErrNotMember
	}
	return &m, nil
}

// ListByManager retrieves a manager's memberships with tenant details.
func (r *Memberships) ListByManager(ctx context.Context, managerID string) ([]domain.MembershipWithTenant, error) {
	s := r.s
	if err := s.begin(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	var out []domain.MembershipWithTenant
	for k, m := range s.memberships {
		if k.manager != managerID {
			continue
		}
		out = append(out, domain.MembershipWithTenant{Membership: m, Tenant: s.tenants[k.tenant]})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Tenant.Name < out[j].Tenant.Name
	})
	return out, nil
}

// ListByTenant retrieves all members of a tenant with their profiles.
func (r *Memberships) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]domain.MemberWithManager, error) {
	s := r.s
	if err := s.begin(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	var out []domain.MemberWithManager
	for k, m := range s.memberships {
		if k.tenant != tenantID {
			continue
		}
		out = append(out, domain.MemberWithManager{Membership: m, Manager: s.managers[k.manager]})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ManagerID < out[j].ManagerID
	})
	return out, nil
}

// Assets implements the asset repository.
type Assets struct{ s *Store }

// Create creates a new asset, reporting false when the ID is already stored.
func (r *Assets) Create(ctx context.Context, a *domain.Asset) (bool, error) {
	s := r.s
	if err := s.begin(ctx); err != nil {
		return false, err
	}
	defer s.mu.Unlock()

	if _, exists := s.assets[a.ID]; exists {
		return false, nil
	}
	if _, ok := s.tenants[a.TenantID]; !ok {
		return false, ErrForeignKey
	}
	s.assets[a.ID] = *a
	return true, nil
}

// GetByID retrieves an asset by ID.
func (r *Assets) GetByID(ctx context.Context, id uuid.UUID) (*domain.Asset, error) {
	s := r.s
	if err := s.begin(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	a, ok := s.assets[id]
	if !ok || a.ArchivedAt != nil {
		return nil, domain.ErrAssetNotFound
	}
	return &a, nil
}

// ListByTenant retrieves a tenant's assets, oldest first.
func (r *Assets) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]domain.Asset, error) {
	s := r.s
	if err := s.begin(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	var out []domain.Asset
	for _, a := range s.assets {
		if a.TenantID == tenantID && a.ArchivedAt == nil {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Update updates an asset's name, address and term flag.
func (r *Assets) Update(ctx context.Context, a *domain.Asset) error {
	s := r.s
	if err := s.begin(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()

	cur, ok := s.assets[a.ID]
	if !ok || cur.ArchivedAt != nil {
		return domain.ErrAssetNotFound
	}
	cur.Name = a.Name
	cur.Address = a.Address
	cur.ShortTerm = a.ShortTerm
	cur.UpdatedAt = time.Now().UTC()
	s.assets[a.ID] = cur
	return nil
}

// Archive hides an asset and completes its active bookings.
func (r *Assets) Archive(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	s := r.s
	if err := s.begin(ctx); err != nil {
		return false, err
	}
	defer s.mu.Unlock()

	a, ok := s.assets[id]
	if !ok || a.ArchivedAt != nil {
		return false, nil
	}
	a.ArchivedAt = &at
	a.UpdatedAt = at
	s.assets[id] = a

	for bid, b := range s.bookings {
		if b.AssetID == id && b.Active {
			b.Active = false
			b.CompletedAt = &at
			s.bookings[bid] = b
		}
	}
	return true, nil
}

// Content implements the content node repository.
type Content struct{ s *Store }

// Upsert writes the node at its coordinate, leaving identical content untouched.
func (r *Content) Upsert(ctx context.Context, n *domain.ContentNode) (bool, error) {
	s := r.s
	if err := s.begin(ctx); err != nil {
		return false, err
	}
	defer s.mu.Unlock()

	if _, ok := s.assets[n.AssetID]; !ok {
		return false, ErrForeignKey
	}
	k := nodeKey{n.AssetID, n.Section, n.FieldKey}
	cur, ok := s.nodes[k]
	if !ok {
		s.nodes[k] = cloneNode(*n)
		return true, nil
	}
	if cur.SameContent(n) {
		return false, nil
	}
	cur.DisplayName = n.DisplayName
	cur.Text = n.Text
	cur.Media = n.Media
	cur.UpdatedAt = n.UpdatedAt
	s.nodes[k] = cloneNode(cur)
	return true, nil
}

// Get retrieves the node at a coordinate, or nil.
func (r *Content) Get(ctx context.Context, assetID uuid.UUID, section domain.Section, key string) (*domain.ContentNode, error) {
	s := r.s
	if err := s.begin(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	n, ok := s.nodes[nodeKey{assetID, section, key}]
	if !ok {
		return nil, nil
	}
	n = cloneNode(n)
	return &n, nil
}

// ListBySection retrieves all nodes of one section, ordered by display name.
func (r *Content) ListBySection(ctx context.Context, assetID uuid.UUID, section domain.Section) ([]domain.ContentNode, error) {
	s := r.s
	if err := s.begin(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	var out []domain.ContentNode
	for k, n := range s.nodes {
		if k.asset == assetID && k.section == section {
			out = append(out, cloneNode(n))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayName != out[j].DisplayName {
			return out[i].DisplayName < out[j].DisplayName
		}
		return out[i].FieldKey < out[j].FieldKey
	})
	return out, nil
}

// Delete removes the node at a coordinate and reports whether it existed.
func (r *Content) Delete(ctx context.Context, assetID uuid.UUID, section domain.Section, key string) (bool, error) {
	s := r.s
	if err := s.begin(ctx); err != nil {
		return false, err
	}
	defer s.mu.Unlock()

	k := nodeKey{assetID, section, key}
	if _, ok := s.nodes[k]; !ok {
		return false, nil
	}
	delete(s.nodes, k)
	return true, nil
}

func cloneNode(n domain.ContentNode) domain.ContentNode {
	if n.Text != nil {
		t := *n.Text
		n.Text = &t
	}
	if n.Media != nil {
		m := *n.Media
		n.Media = &m
	}
	return n
}

// Bookings implements the booking repository.
type Bookings struct{ s *Store }

// Create creates a booking; a code used before by any booking is rejected.
func (r *Bookings) Create(ctx context.Context, b *domain.Booking) (bool, error) {
	s := r.s
	if err := s.begin(ctx); err != nil {
		return false, err
	}
	defer s.mu.Unlock()

	if _, exists := s.bookings[b.ID]; exists {
		return false, nil
	}
	if _, ok := s.assets[b.AssetID]; !ok {
		return false, ErrForeignKey
	}
	if _, taken := s.codeIndex[b.Code]; taken {
		return false, domain.ErrCodeCollision
	}
	s.bookings[b.ID] = *b
	s.codeIndex[b.Code] = b.ID
	return true, nil
}

// GetByID retrieves a booking by ID.
func (r *Bookings) GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	s := r.s
	if err := s.begin(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	return &b, nil
}

// GetByCodeWithAsset retrieves a booking and its asset by access code.
func (r *Bookings) GetByCodeWithAsset(ctx context.Context, code string) (*domain.BookingWithAsset, error) {
	s := r.s
	if err := s.begin(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	id, ok := s.codeIndex[code]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	b := s.bookings[id]
	return &domain.BookingWithAsset{Booking: b, Asset: s.assets[b.AssetID]}, nil
}

// Deactivate marks an active booking as completed and reports whether it changed.
func (r *Bookings) Deactivate(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	s := r.s
	if err := s.begin(ctx); err != nil {
		return false, err
	}
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok || !b.Active {
		return false, nil
	}
	b.Active = false
	b.CompletedAt = &at
	s.bookings[id] = b
	return true, nil
}

// ListActiveByAsset retrieves the active bookings of an asset by check-in date.
func (r *Bookings) ListActiveByAsset(ctx context.Context, assetID uuid.UUID) ([]domain.Booking, error) {
	s := r.s
	if err := s.begin(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	var out []domain.Booking
	for _, b := range s.bookings {
		if b.AssetID == assetID && b.Active {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CheckinDate.Equal(out[j].CheckinDate) {
			return out[i].CheckinDate.Before(out[j].CheckinDate)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Suggestions implements the suggestion repository.
type Suggestions struct{ s *Store }

// Create stores a suggestion.
func (r *Suggestions) Create(ctx context.Context, sg *domain.Suggestion) error {
	s := r.s
	if err := s.begin(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()

	s.suggestions = append(s.suggestions, *sg)
	return nil
}

// List returns stored suggestions in insertion order.
func (r *Suggestions) List() []domain.Suggestion {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]domain.Suggestion(nil), r.s.suggestions...)
}
