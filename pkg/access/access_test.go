package access

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/stay-concierge/internal/memstore"
	"github.com/tendant/stay-concierge/pkg/domain"
)

type fixture struct {
	svc    *Service
	store  *memstore.Store
	tenant *domain.Tenant
	asset  *domain.Asset
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memstore.New()
	ctx := context.Background()

	tenant := domain.NewTenant("Riverside Stays", "Lisbon")
	owner := domain.NewMembership(tenant.ID, "mgr-1", domain.RoleOwner)
	if _, err := store.Tenants().CreateWithOwner(ctx, tenant, owner); err != nil {
		t.Fatalf("CreateWithOwner failed: %v", err)
	}
	asset := domain.NewAsset(tenant.ID, "Loft 3B", "")
	if _, err := store.Assets().Create(ctx, asset); err != nil {
		t.Fatalf("Create asset failed: %v", err)
	}

	svc := NewService(Config{LinkBaseURL: "https://t.me/concierge_bot?start="},
		store.Tenants(), store.Memberships(), store.Bookings())
	return &fixture{svc: svc, store: store, tenant: tenant, asset: asset}
}

func TestGenerateCode(t *testing.T) {
	re := regexp.MustCompile(`^[A-Za-z0-9_-]{32}$`)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := GenerateCode()
		if err != nil {
			t.Fatalf("GenerateCode failed: %v", err)
		}
		if !re.MatchString(code) {
			t.Errorf("GenerateCode() = %q, want 32 URL-safe chars", code)
		}
		if seen[code] {
			t.Fatalf("GenerateCode repeated %q", code)
		}
		seen[code] = true
	}
}

func TestBookingLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	booking, err := f.svc.IssueBooking(ctx, uuid.New(), f.asset.ID, "John Doe", "2025-06-20")
	if err != nil {
		t.Fatalf("IssueBooking failed: %v", err)
	}
	want := time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)
	if !booking.CheckinDate.Equal(want) {
		t.Errorf("CheckinDate = %v, want %v", booking.CheckinDate, want)
	}

	got, err := f.svc.ValidateBooking(ctx, booking.Code)
	if err != nil {
		t.Fatalf("ValidateBooking failed: %v", err)
	}
	if got.ID != booking.ID || got.Asset.ID != f.asset.ID {
		t.Errorf("ValidateBooking = %+v, want booking %s on asset %s", got, booking.ID, f.asset.ID)
	}

	if err := f.svc.CompleteBooking(ctx, booking.ID); err != nil {
		t.Fatalf("CompleteBooking failed: %v", err)
	}
	if _, err := f.svc.ValidateBooking(ctx, booking.Code); !errors.Is(err, domain.ErrAccessDenied) {
		t.Errorf("ValidateBooking after completion error = %v, want %v", err, domain.ErrAccessDenied)
	}
	if err := f.svc.CompleteBooking(ctx, booking.ID); err != nil {
		t.Errorf("second CompleteBooking error = %v, want nil", err)
	}

	stored, err := f.svc.Booking(ctx, booking.ID)
	if err != nil {
		t.Fatalf("Booking failed: %v", err)
	}
	if stored.Active || stored.CompletedAt == nil {
		t.Errorf("stored booking = %+v, want inactive with completion time", stored)
	}
}

func TestCompleteBooking_Unknown(t *testing.T) {
	f := newFixture(t)

	err := f.svc.CompleteBooking(context.Background(), uuid.New())
	if !errors.Is(err, domain.ErrBookingNotFound) {
		t.Errorf("CompleteBooking error = %v, want %v", err, domain.ErrBookingNotFound)
	}
}

func TestValidateBooking_DenialIsGeneric(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, code := range []string{"", "not a code!", "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"} {
		if _, err := f.svc.ValidateBooking(ctx, code); !errors.Is(err, domain.ErrAccessDenied) {
			t.Errorf("ValidateBooking(%q) error = %v, want %v", code, err, domain.ErrAccessDenied)
		}
	}
}

func TestIssueBooking_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		guest    string
		date     string
		expected error
	}{
		{name: "dotted date", guest: "Maria", date: "20.06.2025"},
		{name: "empty guest", guest: "  ", date: "2025-06-20", expected: domain.ErrInvalidGuestName},
		{name: "garbage date", guest: "Maria", date: "next friday", expected: domain.ErrInvalidDate},
		{name: "impossible date", guest: "Maria", date: "2025-02-30", expected: domain.ErrInvalidDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.IssueBooking(ctx, uuid.New(), f.asset.ID, tt.guest, tt.date)
			if !errors.Is(err, tt.expected) {
				t.Errorf("IssueBooking error = %v, want %v", err, tt.expected)
			}
		})
	}

	if got := f.store.Counts().Bookings; got != 1 {
		t.Errorf("bookings = %d, want only the valid one", got)
	}
}

func TestCodeNeverReissued(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.IssueBooking(ctx, uuid.New(), f.asset.ID, "John Doe", "2025-06-20")
	if err != nil {
		t.Fatalf("IssueBooking failed: %v", err)
	}
	if err := f.svc.CompleteBooking(ctx, first.ID); err != nil {
		t.Fatalf("CompleteBooking failed: %v", err)
	}

	// The generator repeats the retired code once before yielding a fresh one.
	codes := []string{first.Code, "fresh-code-000000000000000000000"}
	f.svc.generate = func() (string, error) {
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}

	second, err := f.svc.IssueBooking(ctx, uuid.New(), f.asset.ID, "Jane Roe", "2025-07-01")
	if err != nil {
		t.Fatalf("IssueBooking failed: %v", err)
	}
	if second.Code == first.Code {
		t.Fatal("retired booking code was issued again")
	}
	if second.Code != "fresh-code-000000000000000000000" {
		t.Errorf("Code = %q, want the retried code", second.Code)
	}
}

func TestIssueBooking_RepeatedIDReturnsFirstBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := uuid.New()

	first, err := f.svc.IssueBooking(ctx, id, f.asset.ID, "John Doe", "2025-06-20")
	if err != nil {
		t.Fatalf("IssueBooking failed: %v", err)
	}
	again, err := f.svc.IssueBooking(ctx, id, f.asset.ID, "John Doe", "2025-06-20")
	if err != nil {
		t.Fatalf("repeated IssueBooking failed: %v", err)
	}
	if again.Code != first.Code {
		t.Errorf("repeated IssueBooking code = %q, want %q", again.Code, first.Code)
	}
	if n := f.store.Counts().Bookings; n != 1 {
		t.Errorf("bookings = %d, want 1", n)
	}

	if _, err := f.svc.IssueBooking(ctx, id, uuid.New(), "John Doe", "2025-06-20"); !errors.Is(err, domain.ErrBookingNotFound) {
		t.Errorf("IssueBooking for another asset error = %v, want %v", err, domain.ErrBookingNotFound)
	}
}

func TestIssueBooking_GivesUpAfterCollisions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.IssueBooking(ctx, uuid.New(), f.asset.ID, "John Doe", "2025-06-20")
	if err != nil {
		t.Fatalf("IssueBooking failed: %v", err)
	}
	f.svc.generate = func() (string, error) { return first.Code, nil }

	_, err = f.svc.IssueBooking(ctx, uuid.New(), f.asset.ID, "Jane Roe", "2025-07-01")
	if !errors.Is(err, domain.ErrCodeCollision) {
		t.Errorf("IssueBooking error = %v, want %v", err, domain.ErrCodeCollision)
	}
}

func TestInvite_AcceptTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	code, err := f.svc.IssueInvite(ctx, f.tenant.ID)
	if err != nil {
		t.Fatalf("IssueInvite failed: %v", err)
	}
	again, err := f.svc.IssueInvite(ctx, f.tenant.ID)
	if err != nil {
		t.Fatalf("IssueInvite failed: %v", err)
	}
	if again != code {
		t.Errorf("IssueInvite returned a new code %q, want durable %q", again, code)
	}

	tenant, joined, err := f.svc.AcceptInvite(ctx, "mgr-2", code)
	if err != nil {
		t.Fatalf("AcceptInvite failed: %v", err)
	}
	if !joined || tenant.ID != f.tenant.ID {
		t.Errorf("AcceptInvite = %s, %v, want joined %s", tenant.ID, joined, f.tenant.ID)
	}

	_, joined, err = f.svc.AcceptInvite(ctx, "mgr-2", code)
	if err != nil {
		t.Fatalf("second AcceptInvite failed: %v", err)
	}
	if joined {
		t.Error("second AcceptInvite should not create a membership")
	}

	m, err := f.store.Memberships().ListByTenant(ctx, f.tenant.ID)
	if err != nil {
		t.Fatalf("ListByTenant failed: %v", err)
	}
	if len(m) != 2 {
		t.Errorf("memberships = %d, want owner plus one member", len(m))
	}

	// The owner keeps their role when following their own link.
	_, joined, err = f.svc.AcceptInvite(ctx, "mgr-1", code)
	if err != nil || joined {
		t.Errorf("owner AcceptInvite = %v, %v, want no-op", joined, err)
	}
	owner, _ := f.store.Memberships().Get(ctx, f.tenant.ID, "mgr-1")
	if owner.Role != domain.RoleOwner {
		t.Errorf("owner role = %s, want %s", owner.Role, domain.RoleOwner)
	}
}

func TestRotateInvite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	old, err := f.svc.IssueInvite(ctx, f.tenant.ID)
	if err != nil {
		t.Fatalf("IssueInvite failed: %v", err)
	}
	rotated, err := f.svc.RotateInvite(ctx, f.tenant.ID)
	if err != nil {
		t.Fatalf("RotateInvite failed: %v", err)
	}
	if rotated == old {
		t.Fatal("RotateInvite returned the old code")
	}

	if _, err := f.svc.ValidateInvite(ctx, old); !errors.Is(err, domain.ErrAccessDenied) {
		t.Errorf("ValidateInvite(old) error = %v, want %v", err, domain.ErrAccessDenied)
	}
	if _, err := f.svc.ValidateInvite(ctx, rotated); err != nil {
		t.Errorf("ValidateInvite(new) error = %v", err)
	}
}

func TestListActiveBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	late, err := f.svc.IssueBooking(ctx, uuid.New(), f.asset.ID, "Late Guest", "2025-09-01")
	if err != nil {
		t.Fatalf("IssueBooking failed: %v", err)
	}
	early, err := f.svc.IssueBooking(ctx, uuid.New(), f.asset.ID, "Early Guest", "2025-05-01")
	if err != nil {
		t.Fatalf("IssueBooking failed: %v", err)
	}
	done, err := f.svc.IssueBooking(ctx, uuid.New(), f.asset.ID, "Done Guest", "2025-01-01")
	if err != nil {
		t.Fatalf("IssueBooking failed: %v", err)
	}
	if err := f.svc.CompleteBooking(ctx, done.ID); err != nil {
		t.Fatalf("CompleteBooking failed: %v", err)
	}

	list, err := f.svc.ListActiveBookings(ctx, f.asset.ID)
	if err != nil {
		t.Fatalf("ListActiveBookings failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != early.ID || list[1].ID != late.ID {
		t.Errorf("ListActiveBookings = %+v, want early then late", list)
	}
}

func TestLinks(t *testing.T) {
	f := newFixture(t)

	if got := f.svc.InviteLink("abc"); got != "https://t.me/concierge_bot?start=join_abc" {
		t.Errorf("InviteLink = %q", got)
	}
	if got := f.svc.BookingLink("xyz"); got != "https://t.me/concierge_bot?start=guest_xyz" {
		t.Errorf("BookingLink = %q", got)
	}
}
