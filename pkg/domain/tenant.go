package domain

import (
	"time"

	"github.com/google/uuid"
)

// Defaults applied to a newly registered tenant.
const (
	DefaultGreeting     = "Welcome! Here is everything you need for your stay."
	DefaultCheckInTime  = "14:00"
	DefaultCheckOutTime = "12:00"
	DefaultTimezone     = "UTC+3"
)

// Tenant represents a company that manages one or more rental assets.
type Tenant struct {
	ID           uuid.UUID
	Name         string
	City         string
	Greeting     string
	Timezone     string
	CheckInTime  string
	CheckOutTime string
	LongTermOnly bool
	InviteCode   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewTenant returns a tenant with the default settings filled in.
func NewTenant(name, city string) *Tenant {
	now := time.Now().UTC()
	return &Tenant{
		ID:           uuid.New(),
		Name:         name,
		City:         city,
		Greeting:     DefaultGreeting,
		Timezone:     DefaultTimezone,
		CheckInTime:  DefaultCheckInTime,
		CheckOutTime: DefaultCheckOutTime,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// TenantSetting names an editable tenant attribute.
type TenantSetting string

const (
	TenantSettingName         TenantSetting = "name"
	TenantSettingCity         TenantSetting = "city"
	TenantSettingGreeting     TenantSetting = "greeting"
	TenantSettingTimezone     TenantSetting = "timezone"
	TenantSettingCheckInTime  TenantSetting = "checkin_time"
	TenantSettingCheckOutTime TenantSetting = "checkout_time"
)

// Valid reports whether s is one of the known settings.
func (s TenantSetting) Valid() bool {
	switch s {
	case TenantSettingName, TenantSettingCity, TenantSettingGreeting,
		TenantSettingTimezone, TenantSettingCheckInTime, TenantSettingCheckOutTime:
		return true
	}
	return false
}
