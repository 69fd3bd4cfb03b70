package domain

import "time"

// Manager is a person who manages assets through the messaging channel.
// ID is the channel's external user identifier.
type Manager struct {
	ID          string
	DisplayName string
	Username    string
	CreatedAt   time.Time
	LastSeenAt  time.Time
}
