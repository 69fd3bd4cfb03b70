package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Section is one of the fixed top-level branches of an asset's content tree.
type Section string

const (
	SectionCheckin     Section = "checkin"
	SectionHelp        Section = "help"
	SectionStores      Section = "stores"
	SectionRent        Section = "rent"
	SectionExperiences Section = "experiences"
	SectionCheckout    Section = "checkout"
)

// ParseSection converts a raw value into a Section.
func ParseSection(s string) (Section, error) {
	switch sec := Section(s); sec {
	case SectionCheckin, SectionHelp, SectionStores, SectionRent, SectionExperiences, SectionCheckout:
		return sec, nil
	}
	return "", ErrInvalidSection
}

// MediaKind is the type of an attached media reference.
type MediaKind string

const (
	MediaPhoto    MediaKind = "photo"
	MediaVideo    MediaKind = "video"
	MediaDocument MediaKind = "document"
)

// Valid reports whether k is a supported media kind.
func (k MediaKind) Valid() bool {
	return k == MediaPhoto || k == MediaVideo || k == MediaDocument
}

// Media is an opaque reference to a file held by the messaging channel.
type Media struct {
	Kind MediaKind `json:"kind"`
	Ref  string    `json:"ref"`
}

// ContentNode is one piece of guest-facing information at (asset, section, field key).
type ContentNode struct {
	ID          uuid.UUID
	AssetID     uuid.UUID
	Section     Section
	FieldKey    string
	DisplayName string
	Text        *string
	Media       *Media
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsFilled returns true if the node carries non-blank text or a media reference.
func (n *ContentNode) IsFilled() bool {
	if n == nil {
		return false
	}
	if n.Text != nil && strings.TrimSpace(*n.Text) != "" {
		return true
	}
	return n.Media != nil && n.Media.Ref != ""
}

// SameContent reports whether two nodes would render identically.
func (n *ContentNode) SameContent(o *ContentNode) bool {
	if n.DisplayName != o.DisplayName {
		return false
	}
	if (n.Text == nil) != (o.Text == nil) || (n.Text != nil && *n.Text != *o.Text) {
		return false
	}
	if (n.Media == nil) != (o.Media == nil) || (n.Media != nil && *n.Media != *o.Media) {
		return false
	}
	return true
}
