package domain

import (
	"time"

	"github.com/google/uuid"
)

// Booking grants one guest read access to one asset's content for a stay.
// The code is unique for all time; completed bookings are deactivated, never deleted.
type Booking struct {
	ID          uuid.UUID
	AssetID     uuid.UUID
	GuestLabel  string
	CheckinDate time.Time
	Code        string
	Active      bool
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// BookingWithAsset represents a booking joined with its asset.
type BookingWithAsset struct {
	Booking
	Asset Asset
}

// Suggestion is product feedback left by a manager.
type Suggestion struct {
	ID        uuid.UUID
	ManagerID string
	Text      string
	CreatedAt time.Time
}
