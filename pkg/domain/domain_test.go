package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func stringPtr(s string) *string {
	return &s
}

func TestContentNode_IsFilled(t *testing.T) {
	tests := []struct {
		name string
		node *ContentNode
		want bool
	}{
		{name: "nil node", node: nil, want: false},
		{name: "no text no media", node: &ContentNode{}, want: false},
		{name: "blank text", node: &ContentNode{Text: stringPtr("   ")}, want: false},
		{name: "text", node: &ContentNode{Text: stringPtr("Network: Guest")}, want: true},
		{name: "media without ref", node: &ContentNode{Media: &Media{Kind: MediaPhoto}}, want: false},
		{name: "media", node: &ContentNode{Media: &Media{Kind: MediaPhoto, Ref: "file-1"}}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.node.IsFilled(); got != tt.want {
				t.Errorf("IsFilled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContentNode_SameContent(t *testing.T) {
	base := &ContentNode{DisplayName: "Wi-Fi", Text: stringPtr("pass 12345")}

	if !base.SameContent(&ContentNode{DisplayName: "Wi-Fi", Text: stringPtr("pass 12345")}) {
		t.Error("identical nodes should have the same content")
	}
	if base.SameContent(&ContentNode{DisplayName: "Wi-Fi", Text: stringPtr("pass 54321")}) {
		t.Error("different text should not match")
	}
	if base.SameContent(&ContentNode{DisplayName: "Wi-Fi", Text: stringPtr("pass 12345"), Media: &Media{Kind: MediaPhoto, Ref: "x"}}) {
		t.Error("added media should not match")
	}
}

func TestParseSection(t *testing.T) {
	for _, s := range []string{"checkin", "help", "stores", "rent", "experiences", "checkout"} {
		if _, err := ParseSection(s); err != nil {
			t.Errorf("ParseSection(%q) error = %v", s, err)
		}
	}
	if _, err := ParseSection("kitchen"); err != ErrInvalidSection {
		t.Errorf("ParseSection(kitchen) error = %v, want %v", err, ErrInvalidSection)
	}
}

func TestRole_Can(t *testing.T) {
	tests := []struct {
		role   Role
		action Action
		want   bool
	}{
		{RoleOwner, ActionEditSettings, true},
		{RoleAdmin, ActionManageInvites, true},
		{RoleMember, ActionEditContent, true},
		{RoleMember, ActionEditSettings, false},
		{RoleMember, ActionManageInvites, false},
		{RoleMember, ActionManageAssets, true},
		{RoleMember, ActionDeleteAssets, false},
		{RoleAdmin, ActionDeleteAssets, true},
		{Role("guest"), ActionEditContent, false},
	}

	for _, tt := range tests {
		if got := tt.role.Can(tt.action); got != tt.want {
			t.Errorf("%s.Can(%s) = %v, want %v", tt.role, tt.action, got, tt.want)
		}
	}
}

func TestNewTenant_Defaults(t *testing.T) {
	tenant := NewTenant("Riverside Stays", "Lisbon")

	if tenant.ID == uuid.Nil {
		t.Error("ID should be set")
	}
	if tenant.CheckInTime != DefaultCheckInTime {
		t.Errorf("CheckInTime = %q, want %q", tenant.CheckInTime, DefaultCheckInTime)
	}
	if tenant.CheckOutTime != DefaultCheckOutTime {
		t.Errorf("CheckOutTime = %q, want %q", tenant.CheckOutTime, DefaultCheckOutTime)
	}
	if tenant.Timezone != DefaultTimezone {
		t.Errorf("Timezone = %q, want %q", tenant.Timezone, DefaultTimezone)
	}
	if tenant.LongTermOnly {
		t.Error("LongTermOnly should default to false")
	}
}

func TestRetryable(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should be nil")
	}
	if err := Retryable(ErrAssetNotFound); err != ErrAssetNotFound {
		t.Errorf("Retryable(not found) = %v, want unchanged", err)
	}
	err := Retryable(context.DeadlineExceeded)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Retryable(deadline) = %v, want ErrUnavailable", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("Retryable should keep the original error in the chain")
	}
}

func TestUnavailable(t *testing.T) {
	if Unavailable(nil) != nil {
		t.Error("Unavailable(nil) should be nil")
	}
	refused := errors.New("dial tcp: connection refused")
	err := Unavailable(refused)
	if !errors.Is(err, ErrUnavailable) || !errors.Is(err, refused) {
		t.Errorf("Unavailable(refused) = %v, want ErrUnavailable wrapping the cause", err)
	}
	if again := Unavailable(err); again != err {
		t.Errorf("Unavailable should not wrap twice, got %v", again)
	}
}
