package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a manager's role within a tenant.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Action is something a manager may attempt inside a tenant.
type Action string

const (
	ActionEditContent   Action = "content:edit"
	ActionManageAssets  Action = "assets:manage"
	ActionDeleteAssets  Action = "assets:delete"
	ActionIssueBookings Action = "bookings:issue"
	ActionEditSettings  Action = "tenant:settings"
	ActionManageInvites Action = "tenant:invites"
)

var rolePermissions = map[Role]map[Action]bool{
	RoleOwner: {
		ActionEditContent:   true,
		ActionManageAssets:  true,
		ActionDeleteAssets:  true,
		ActionIssueBookings: true,
		ActionEditSettings:  true,
		ActionManageInvites: true,
	},
	RoleAdmin: {
		ActionEditContent:   true,
		ActionManageAssets:  true,
		ActionDeleteAssets:  true,
		ActionIssueBookings: true,
		ActionEditSettings:  true,
		ActionManageInvites: true,
	},
	RoleMember: {
		ActionEditContent:   true,
		ActionManageAssets:  true,
		ActionIssueBookings: true,
	},
}

// Can reports whether the role grants the action.
func (r Role) Can(a Action) bool {
	return rolePermissions[r][a]
}

// Membership links a manager to a tenant.
type Membership struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	ManagerID string
	Role      Role
	CreatedAt time.Time
}

// NewMembership returns a membership stamped with a fresh id.
func NewMembership(tenantID uuid.UUID, managerID string, role Role) *Membership {
	return &Membership{
		ID:        uuid.New(),
		TenantID:  tenantID,
		ManagerID: managerID,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
}

// MembershipWithTenant represents a membership with its tenant details.
type MembershipWithTenant struct {
	Membership
	Tenant Tenant
}

// MemberWithManager represents a membership with the manager's profile.
type MemberWithManager struct {
	Membership
	Manager Manager
}
