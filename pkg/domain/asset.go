package domain

import (
	"time"

	"github.com/google/uuid"
)

// Asset represents a rental unit owned by exactly one tenant.
type Asset struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Name      string
	Address   string
	ShortTerm bool
	CreatedAt time.Time
	UpdatedAt time.Time

	// ArchivedAt is set once the asset is deleted; archived assets are never
	// returned by the stores.
	ArchivedAt *time.Time
}

// NewAsset returns a short-term asset with a fresh id.
func NewAsset(tenantID uuid.UUID, name, address string) *Asset {
	now := time.Now().UTC()
	return &Asset{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Name:      name,
		Address:   address,
		ShortTerm: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AssetAttr names an editable asset attribute.
type AssetAttr string

const (
	AssetAttrName    AssetAttr = "name"
	AssetAttrAddress AssetAttr = "address"
)

// Valid reports whether a is a known attribute.
func (a AssetAttr) Valid() bool {
	return a == AssetAttrName || a == AssetAttrAddress
}
