// Package content stores the guest-facing information tree of each asset:
// asset -> section -> field key, where a field key is either part of the
// fixed catalogue or a generated custom key.
package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/tendant/stay-concierge/pkg/catalog"
	"github.com/tendant/stay-concierge/pkg/domain"
	"github.com/tendant/stay-concierge/pkg/sanitize"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

const (
	maxNameLength    = 128
	maxAddressLength = 256
	maxTextLength    = 4000

	defaultCustomKeyAttempts = 3
)

// AssetStore persists assets.
type AssetStore interface {
	// Create reports false, writing nothing, when the asset ID is already stored.
	Create(ctx context.Context, asset *domain.Asset) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Asset, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]domain.Asset, error)
	Update(ctx context.Context, asset *domain.Asset) error
	// Archive reports false when the asset is missing or already archived.
	Archive(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}

// NodeStore persists content nodes.
type NodeStore interface {
	Upsert(ctx context.Context, node *domain.ContentNode) (bool, error)
	Get(ctx context.Context, assetID uuid.UUID, section domain.Section, key string) (*domain.ContentNode, error)
	ListBySection(ctx context.Context, assetID uuid.UUID, section domain.Section) ([]domain.ContentNode, error)
	Delete(ctx context.Context, assetID uuid.UUID, section domain.Section, key string) (bool, error)
}

// Config holds content service settings.
type Config struct {
	Timeout time.Duration
	// Language drives the collation of custom field names.
	Language language.Tag
	Logger   *slog.Logger
}

// Service manages assets and their content trees.
type Service struct {
	config Config
	assets AssetStore
	nodes  NodeStore
	newKey func() (string, error)
	logger *slog.Logger
}

// NewService creates a new content service.
func NewService(config Config, assets AssetStore, nodes NodeStore) *Service {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.Language == language.Und {
		config.Language = language.English
	}
	return &Service{
		config: config,
		assets: assets,
		nodes:  nodes,
		newKey: catalog.NewCustomKey,
		logger: logger,
	}
}

func (s *Service) scope(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.config.Timeout)
}

// CreateAsset registers a short-term asset under a tenant. The address may be
// empty. Repeating a request with the same id returns the stored asset; a nil
// id mints a fresh one.
func (s *Service) CreateAsset(ctx context.Context, id, tenantID uuid.UUID, name, address string) (*domain.Asset, error) {
	name, err := sanitize.Line(name, maxNameLength)
	if err != nil {
		return nil, err
	}
	address = strings.Join(strings.Fields(address), " ")
	if utf8.RuneCountInString(address) > maxAddressLength {
		return nil, domain.ErrValueTooLong
	}

	ctx, cancel := s.scope(ctx)
	defer cancel()

	asset := domain.NewAsset(tenantID, name, address)
	if id != uuid.Nil {
		asset.ID = id
	}
	created, err := s.assets.Create(ctx, asset)
	if err != nil {
		return nil, domain.Retryable(fmt.Errorf("failed to create asset: %w", err))
	}
	if !created {
		existing, err := s.assets.GetByID(ctx, asset.ID)
		if err != nil {
			return nil, domain.Retryable(err)
		}
		if existing.TenantID != tenantID {
			return nil, domain.ErrAssetNotFound
		}
		s.logger.Info("asset creation repeated", "asset_id", asset.ID, "tenant_id", tenantID)
		return existing, nil
	}

	s.logger.Info("asset created", "asset_id", asset.ID, "tenant_id", tenantID)
	return asset, nil
}

// Asset returns an asset by ID.
func (s *Service) Asset(ctx context.Context, id uuid.UUID) (*domain.Asset, error) {
	ctx, cancel := s.scope(ctx)
	defer cancel()

	a, err := s.assets.GetByID(ctx, id)
	return a, domain.Retryable(err)
}

// Assets lists a tenant's assets.
func (s *Service) Assets(ctx context.Context, tenantID uuid.UUID) ([]domain.Asset, error) {
	ctx, cancel := s.scope(ctx)
	defer cancel()

	list, err := s.assets.ListByTenant(ctx, tenantID)
	return list, domain.Retryable(err)
}

// UpdateAsset changes the asset's name or address.
func (s *Service) UpdateAsset(ctx context.Context, id uuid.UUID, attr domain.AssetAttr, value string) (*domain.Asset, error) {
	if !attr.Valid() {
		return nil, domain.ErrInvalidSetting
	}

	ctx, cancel := s.scope(ctx)
	defer cancel()

	asset, err := s.assets.GetByID(ctx, id)
	if err != nil {
		return nil, domain.Retryable(err)
	}

	switch attr {
	case domain.AssetAttrName:
		if asset.Name, err = sanitize.Line(value, maxNameLength); err != nil {
			return nil, err
		}
	case domain.AssetAttrAddress:
		if asset.Address, err = sanitize.Line(value, maxAddressLength); err != nil {
			return nil, err
		}
	}

	if err := s.assets.Update(ctx, asset); err != nil {
		return nil, domain.Retryable(fmt.Errorf("failed to update asset: %w", err))
	}
	return asset, nil
}

// ToggleTerm switches the asset between short-term and long-term rental.
func (s *Service) ToggleTerm(ctx context.Context, id uuid.UUID) (*domain.Asset, error) {
	ctx, cancel := s.scope(ctx)
	defer cancel()

	asset, err := s.assets.GetByID(ctx, id)
	if err != nil {
		return nil, domain.Retryable(err)
	}
	asset.ShortTerm = !asset.ShortTerm
	if err := s.assets.Update(ctx, asset); err != nil {
		return nil, domain.Retryable(fmt.Errorf("failed to update asset: %w", err))
	}
	return asset, nil
}

// ArchiveAsset deletes an asset from the manager's view and completes its
// active bookings, after which their access codes are denied. Content rows
// are kept.
func (s *Service) ArchiveAsset(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := s.scope(ctx)
	defer cancel()

	archived, err := s.assets.Archive(ctx, id, time.Now().UTC())
	if err != nil {
		return domain.Retryable(fmt.Errorf("failed to archive asset: %w", err))
	}
	if !archived {
		return domain.ErrAssetNotFound
	}
	s.logger.Info("asset archived", "asset_id", id)
	return nil
}

// UpsertInput describes a write to one content coordinate.
type UpsertInput struct {
	AssetID  uuid.UUID
	Section  domain.Section
	FieldKey string
	// DisplayName defaults to the catalogue name for fixed keys and to the
	// stored name for existing custom keys.
	DisplayName string
	Text        *string
	Media       *domain.Media
}

// Upsert creates or overwrites the node at (asset, section, field key).
// Writing content identical to what is stored changes nothing, including updated_at.
func (s *Service) Upsert(ctx context.Context, in UpsertInput) (*domain.ContentNode, error) {
	if in.Text == nil && in.Media == nil {
		return nil, domain.ErrEmptyContent
	}
	if in.Text != nil {
		t := sanitize.Text(*in.Text)
		if t == "" && in.Media == nil {
			return nil, domain.ErrEmptyContent
		}
		if utf8.RuneCountInString(t) > maxTextLength {
			return nil, domain.ErrValueTooLong
		}
		in.Text = &t
	}
	if in.Media != nil && (!in.Media.Kind.Valid() || in.Media.Ref == "") {
		return nil, domain.ErrUnsupportedMedia
	}

	ctx, cancel := s.scope(ctx)
	defer cancel()
	return s.write(ctx, in)
}

func (s *Service) write(ctx context.Context, in UpsertInput) (*domain.ContentNode, error) {
	if _, ok := catalog.Lookup(in.Section); !ok {
		return nil, domain.ErrInvalidSection
	}

	name := strings.TrimSpace(in.DisplayName)
	switch {
	case catalog.IsFixed(in.Section, in.FieldKey):
		if name == "" {
			f, _ := catalog.FieldOf(in.Section, in.FieldKey)
			name = f.DisplayName
		}
	case catalog.IsCustomKey(in.FieldKey):
		if name == "" {
			cur, err := s.nodes.Get(ctx, in.AssetID, in.Section, in.FieldKey)
			if err != nil {
				return nil, domain.Retryable(err)
			}
			if cur == nil {
				return nil, domain.ErrUnknownField
			}
			name = cur.DisplayName
		}
	default:
		return nil, domain.ErrUnknownField
	}

	now := time.Now().UTC()
	node := &domain.ContentNode{
		ID:          uuid.New(),
		AssetID:     in.AssetID,
		Section:     in.Section,
		FieldKey:    in.FieldKey,
		DisplayName: name,
		Text:        in.Text,
		Media:       in.Media,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	changed, err := s.nodes.Upsert(ctx, node)
	if err != nil {
		return nil, domain.Retryable(fmt.Errorf("failed to write content: %w", err))
	}
	if changed {
		s.logger.Debug("content written", "asset_id", in.AssetID, "section", in.Section, "field_key", in.FieldKey)
	}

	stored, err := s.nodes.Get(ctx, in.AssetID, in.Section, in.FieldKey)
	if err != nil {
		return nil, domain.Retryable(err)
	}
	if stored == nil {
		return nil, fmt.Errorf("content node vanished after write: %s/%s", in.Section, in.FieldKey)
	}
	return stored, nil
}

// Read returns the node at a coordinate. A missing node is reported with ok=false and no error.
func (s *Service) Read(ctx context.Context, assetID uuid.UUID, section domain.Section, key string) (*domain.ContentNode, bool, error) {
	ctx, cancel := s.scope(ctx)
	defer cancel()

	n, err := s.nodes.Get(ctx, assetID, section, key)
	if err != nil {
		return nil, false, domain.Retryable(err)
	}
	return n, n != nil, nil
}

// ListOptions narrows ListSection.
type ListOptions struct {
	// GuestView drops nodes with neither text nor media.
	GuestView bool
}

// ListSection returns a section's nodes: fixed fields in catalogue order,
// then custom fields ordered by display name.
func (s *Service) ListSection(ctx context.Context, assetID uuid.UUID, section domain.Section, opts ListOptions) ([]domain.ContentNode, error) {
	if _, ok := catalog.Lookup(section); !ok {
		return nil, domain.ErrInvalidSection
	}

	ctx, cancel := s.scope(ctx)
	defer cancel()

	nodes, err := s.nodes.ListBySection(ctx, assetID, section)
	if err != nil {
		return nil, domain.Retryable(fmt.Errorf("failed to list content: %w", err))
	}

	out := nodes[:0]
	for _, n := range nodes {
		if opts.GuestView && !n.IsFilled() {
			continue
		}
		out = append(out, n)
	}
	s.sortNodes(section, out)
	return out, nil
}

func (s *Service) sortNodes(section domain.Section, nodes []domain.ContentNode) {
	// Collators keep internal buffers and are not safe for concurrent use.
	col := collate.New(s.config.Language, collate.IgnoreCase)
	sort.SliceStable(nodes, func(i, j int) bool {
		pi := catalog.Position(section, nodes[i].FieldKey)
		pj := catalog.Position(section, nodes[j].FieldKey)
		switch {
		case pi >= 0 && pj >= 0:
			return pi < pj
		case pi >= 0:
			return true
		case pj >= 0:
			return false
		}
		if c := col.CompareString(nodes[i].DisplayName, nodes[j].DisplayName); c != 0 {
			return c < 0
		}
		return nodes[i].FieldKey < nodes[j].FieldKey
	})
}

// ListFilledKeys returns the keys of a section holding non-empty text or media.
func (s *Service) ListFilledKeys(ctx context.Context, assetID uuid.UUID, section domain.Section) (map[string]bool, error) {
	if _, ok := catalog.Lookup(section); !ok {
		return nil, domain.ErrInvalidSection
	}

	ctx, cancel := s.scope(ctx)
	defer cancel()
	return s.filled(ctx, assetID, section)
}

func (s *Service) filled(ctx context.Context, assetID uuid.UUID, section domain.Section) (map[string]bool, error) {
	nodes, err := s.nodes.ListBySection(ctx, assetID, section)
	if err != nil {
		return nil, domain.Retryable(fmt.Errorf("failed to list content: %w", err))
	}
	keys := make(map[string]bool, len(nodes))
	for i := range nodes {
		if nodes[i].IsFilled() {
			keys[nodes[i].FieldKey] = true
		}
	}
	return keys, nil
}

// CompletionKeys returns the filled keys used to mark progress on a section menu.
// A parent section counts the filled keys of its children as well.
func (s *Service) CompletionKeys(ctx context.Context, assetID uuid.UUID, section domain.Section) (map[string]bool, error) {
	if _, ok := catalog.Lookup(section); !ok {
		return nil, domain.ErrInvalidSection
	}

	ctx, cancel := s.scope(ctx)
	defer cancel()

	keys, err := s.filled(ctx, assetID, section)
	if err != nil {
		return nil, err
	}
	for _, child := range catalog.Children(section) {
		more, err := s.filled(ctx, assetID, child)
		if err != nil {
			return nil, err
		}
		for k := range more {
			keys[k] = true
		}
	}
	return keys, nil
}

// RegisterCustom stores a new custom field and returns its generated key.
func (s *Service) RegisterCustom(ctx context.Context, assetID uuid.UUID, section domain.Section, displayName string, text *string, media *domain.Media) (string, error) {
	name, err := sanitize.Line(displayName, maxNameLength)
	if err != nil {
		return "", err
	}

	for attempt := 0; attempt < defaultCustomKeyAttempts; attempt++ {
		key, err := s.newKey()
		if err != nil {
			return "", fmt.Errorf("failed to generate custom key: %w", err)
		}
		_, exists, err := s.Read(ctx, assetID, section, key)
		if err != nil {
			return "", err
		}
		if exists {
			s.logger.Warn("custom key collision", "asset_id", assetID, "section", section)
			continue
		}
		_, err = s.Upsert(ctx, UpsertInput{
			AssetID:     assetID,
			Section:     section,
			FieldKey:    key,
			DisplayName: name,
			Text:        text,
			Media:       media,
		})
		if err != nil {
			return "", err
		}
		return key, nil
	}
	return "", domain.ErrCodeCollision
}

// DeleteCustom removes a custom field. Deleting one that is already gone is a no-op.
func (s *Service) DeleteCustom(ctx context.Context, assetID uuid.UUID, section domain.Section, key string) error {
	if _, ok := catalog.Lookup(section); !ok {
		return domain.ErrInvalidSection
	}
	if catalog.IsFixed(section, key) {
		return domain.ErrFixedField
	}
	if !catalog.IsCustomKey(key) {
		return domain.ErrUnknownField
	}

	ctx, cancel := s.scope(ctx)
	defer cancel()

	deleted, err := s.nodes.Delete(ctx, assetID, section, key)
	if err != nil {
		return domain.Retryable(fmt.Errorf("failed to delete custom field: %w", err))
	}
	if deleted {
		s.logger.Info("custom field deleted", "asset_id", assetID, "section", section, "field_key", key)
	}
	return nil
}

// Clear empties a node's text and media but keeps the row and its display name.
// Clearing a coordinate with no node is a no-op.
func (s *Service) Clear(ctx context.Context, assetID uuid.UUID, section domain.Section, key string) error {
	ctx, cancel := s.scope(ctx)
	defer cancel()

	cur, err := s.nodes.Get(ctx, assetID, section, key)
	if err != nil {
		return domain.Retryable(err)
	}
	if cur == nil {
		return nil
	}
	_, err = s.write(ctx, UpsertInput{
		AssetID:     assetID,
		Section:     section,
		FieldKey:    key,
		DisplayName: cur.DisplayName,
	})
	if errors.Is(err, domain.ErrUnknownField) {
		return nil
	}
	return err
}
