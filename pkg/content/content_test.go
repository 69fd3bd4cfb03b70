package content

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/stay-concierge/internal/memstore"
	"github.com/tendant/stay-concierge/pkg/catalog"
	"github.com/tendant/stay-concierge/pkg/domain"
)

func stringPtr(s string) *string {
	return &s
}

type fixture struct {
	svc   *Service
	store *memstore.Store
	asset *domain.Asset
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memstore.New()
	svc := NewService(Config{}, store.Assets(), store.Content())
	ctx := context.Background()

	tenant := domain.NewTenant("Riverside Stays", "Lisbon")
	owner := domain.NewMembership(tenant.ID, "mgr-1", domain.RoleOwner)
	if _, err := store.Tenants().CreateWithOwner(ctx, tenant, owner); err != nil {
		t.Fatalf("CreateWithOwner failed: %v", err)
	}

	asset, err := svc.CreateAsset(ctx, uuid.New(), tenant.ID, "Loft 3B", "")
	if err != nil {
		t.Fatalf("CreateAsset failed: %v", err)
	}
	return &fixture{svc: svc, store: store, asset: asset}
}

func TestRiversideScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	wifi := "Network: Riverside-Guest, pass 12345"

	_, err := f.svc.Upsert(ctx, UpsertInput{
		AssetID:  f.asset.ID,
		Section:  domain.SectionCheckin,
		FieldKey: "wifi",
		Text:     stringPtr(wifi),
	})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	nodes, err := f.svc.ListSection(ctx, f.asset.ID, domain.SectionCheckin, ListOptions{})
	if err != nil {
		t.Fatalf("ListSection failed: %v", err)
	}
	var found bool
	for _, n := range nodes {
		if n.FieldKey == "wifi" {
			found = true
			if n.Text == nil || *n.Text != wifi {
				t.Errorf("wifi text = %v, want %q", n.Text, wifi)
			}
			if n.DisplayName != "📶 Wi-Fi" {
				t.Errorf("wifi display name = %q, want catalogue name", n.DisplayName)
			}
		}
	}
	if !found {
		t.Fatal("ListSection did not return the wifi node")
	}

	keys, err := f.svc.ListFilledKeys(ctx, f.asset.ID, domain.SectionCheckin)
	if err != nil {
		t.Fatalf("ListFilledKeys failed: %v", err)
	}
	if !keys["wifi"] {
		t.Errorf("ListFilledKeys = %v, want wifi", keys)
	}
}

func TestUpsert_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := UpsertInput{
		AssetID:  f.asset.ID,
		Section:  domain.SectionCheckin,
		FieldKey: "parking",
		Text:     stringPtr("Underground, spot 14"),
	}

	first, err := f.svc.Upsert(ctx, in)
	if err != nil {
		t.Fatalf("first Upsert failed: %v", err)
	}
	second, err := f.svc.Upsert(ctx, in)
	if err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("ID changed: %s -> %s", first.ID, second.ID)
	}
	if !first.UpdatedAt.Equal(second.UpdatedAt) {
		t.Errorf("UpdatedAt changed: %v -> %v", first.UpdatedAt, second.UpdatedAt)
	}
	if got := f.store.Counts().Nodes; got != 1 {
		t.Errorf("nodes = %d, want 1", got)
	}

	in.Text = stringPtr("Street parking only")
	third, err := f.svc.Upsert(ctx, in)
	if err != nil {
		t.Fatalf("third Upsert failed: %v", err)
	}
	if third.ID != first.ID {
		t.Errorf("overwrite changed ID: %s -> %s", first.ID, third.ID)
	}
	if *third.Text != "Street parking only" {
		t.Errorf("Text = %q, want overwrite", *third.Text)
	}
}

func TestUpsert_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		in       UpsertInput
		expected error
	}{
		{
			name:     "no content",
			in:       UpsertInput{AssetID: f.asset.ID, Section: domain.SectionCheckin, FieldKey: "wifi"},
			expected: domain.ErrEmptyContent,
		},
		{
			name:     "blank text",
			in:       UpsertInput{AssetID: f.asset.ID, Section: domain.SectionCheckin, FieldKey: "wifi", Text: stringPtr("  ")},
			expected: domain.ErrEmptyContent,
		},
		{
			name:     "key from another section",
			in:       UpsertInput{AssetID: f.asset.ID, Section: domain.SectionRent, FieldKey: "wifi", Text: stringPtr("x")},
			expected: domain.ErrUnknownField,
		},
		{
			name:     "unknown section",
			in:       UpsertInput{AssetID: f.asset.ID, Section: domain.Section("garden"), FieldKey: "wifi", Text: stringPtr("x")},
			expected: domain.ErrInvalidSection,
		},
		{
			name:     "custom key never registered",
			in:       UpsertInput{AssetID: f.asset.ID, Section: domain.SectionRent, FieldKey: "custom_00ff00ff00ff00ff", Text: stringPtr("x")},
			expected: domain.ErrUnknownField,
		},
		{
			name: "bad media kind",
			in: UpsertInput{AssetID: f.asset.ID, Section: domain.SectionCheckin, FieldKey: "documents",
				Media: &domain.Media{Kind: "sticker", Ref: "f1"}},
			expected: domain.ErrUnsupportedMedia,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Upsert(ctx, tt.in)
			if !errors.Is(err, tt.expected) {
				t.Errorf("Upsert error = %v, want %v", err, tt.expected)
			}
		})
	}

	if got := f.store.Counts().Nodes; got != 0 {
		t.Errorf("nodes = %d, want 0", got)
	}
}

func TestListFilledKeys_OnlyFilledNodes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	writes := []UpsertInput{
		{AssetID: f.asset.ID, Section: domain.SectionCheckin, FieldKey: "wifi", Text: stringPtr("pass 1")},
		{AssetID: f.asset.ID, Section: domain.SectionCheckin, FieldKey: "documents", Media: &domain.Media{Kind: domain.MediaDocument, Ref: "doc-1"}},
		{AssetID: f.asset.ID, Section: domain.SectionCheckin, FieldKey: "rules", Text: stringPtr("No parties")},
		{AssetID: f.asset.ID, Section: domain.SectionHelp, FieldKey: "breakfast", Text: stringPtr("Cafe downstairs")},
	}
	for _, in := range writes {
		if _, err := f.svc.Upsert(ctx, in); err != nil {
			t.Fatalf("Upsert(%s) failed: %v", in.FieldKey, err)
		}
	}
	if err := f.svc.Clear(ctx, f.asset.ID, domain.SectionCheckin, "rules"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	keys, err := f.svc.ListFilledKeys(ctx, f.asset.ID, domain.SectionCheckin)
	if err != nil {
		t.Fatalf("ListFilledKeys failed: %v", err)
	}
	want := map[string]bool{"wifi": true, "documents": true}
	if len(keys) != len(want) {
		t.Errorf("ListFilledKeys = %v, want %v", keys, want)
	}
	for k := range keys {
		n, ok, err := f.svc.Read(ctx, f.asset.ID, domain.SectionCheckin, k)
		if err != nil || !ok {
			t.Fatalf("Read(%s) = %v, %v", k, ok, err)
		}
		if !n.IsFilled() {
			t.Errorf("key %s reported filled but Read shows empty node", k)
		}
	}

	completion, err := f.svc.CompletionKeys(ctx, f.asset.ID, domain.SectionCheckin)
	if err != nil {
		t.Fatalf("CompletionKeys failed: %v", err)
	}
	if !completion["breakfast"] || !completion["wifi"] {
		t.Errorf("CompletionKeys = %v, want child section keys included", completion)
	}
	if completion["rules"] {
		t.Error("CompletionKeys should not include a cleared node")
	}
}

func TestCustomFields_RegisterDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, key := range []string{"museums", "parks"} {
		_, err := f.svc.Upsert(ctx, UpsertInput{AssetID: f.asset.ID, Section: domain.SectionExperiences, FieldKey: key, Text: stringPtr("see map")})
		if err != nil {
			t.Fatalf("Upsert(%s) failed: %v", key, err)
		}
	}

	key, err := f.svc.RegisterCustom(ctx, f.asset.ID, domain.SectionExperiences, "Wine tasting", stringPtr("Ask front desk"), nil)
	if err != nil {
		t.Fatalf("RegisterCustom failed: %v", err)
	}
	if !catalog.IsCustomKey(key) {
		t.Errorf("key %q is not in the custom namespace", key)
	}

	n, ok, err := f.svc.Read(ctx, f.asset.ID, domain.SectionExperiences, key)
	if err != nil || !ok {
		t.Fatalf("Read(custom) = %v, %v", ok, err)
	}
	if n.DisplayName != "Wine tasting" || *n.Text != "Ask front desk" {
		t.Errorf("custom node = %+v", n)
	}

	if err := f.svc.DeleteCustom(ctx, f.asset.ID, domain.SectionExperiences, key); err != nil {
		t.Fatalf("DeleteCustom failed: %v", err)
	}
	if _, ok, _ := f.svc.Read(ctx, f.asset.ID, domain.SectionExperiences, key); ok {
		t.Error("custom node still present after delete")
	}

	nodes, err := f.svc.ListSection(ctx, f.asset.ID, domain.SectionExperiences, ListOptions{})
	if err != nil {
		t.Fatalf("ListSection failed: %v", err)
	}
	if len(nodes) != 2 || nodes[0].FieldKey != "museums" || nodes[1].FieldKey != "parks" {
		t.Errorf("fixed fields disturbed: %+v", nodes)
	}

	if err := f.svc.DeleteCustom(ctx, f.asset.ID, domain.SectionExperiences, key); err != nil {
		t.Errorf("second DeleteCustom error = %v, want nil", err)
	}
	if err := f.svc.DeleteCustom(ctx, f.asset.ID, domain.SectionExperiences, "museums"); !errors.Is(err, domain.ErrFixedField) {
		t.Errorf("DeleteCustom(fixed) error = %v, want %v", err, domain.ErrFixedField)
	}
}

func TestRegisterCustom_RetriesOnCollision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.RegisterCustom(ctx, f.asset.ID, domain.SectionRent, "Gate code", stringPtr("1234"), nil)
	if err != nil {
		t.Fatalf("RegisterCustom failed: %v", err)
	}

	keys := []string{first, first, "custom_aaaaaaaaaaaaaaaa"}
	f.svc.newKey = func() (string, error) {
		k := keys[0]
		keys = keys[1:]
		return k, nil
	}

	second, err := f.svc.RegisterCustom(ctx, f.asset.ID, domain.SectionRent, "Bike storage", stringPtr("Basement"), nil)
	if err != nil {
		t.Fatalf("RegisterCustom failed: %v", err)
	}
	if second != "custom_aaaaaaaaaaaaaaaa" {
		t.Errorf("key = %q, want the first non-colliding key", second)
	}

	n, _, _ := f.svc.Read(ctx, f.asset.ID, domain.SectionRent, first)
	if n.DisplayName != "Gate code" {
		t.Errorf("existing custom field overwritten: %+v", n)
	}
}

func TestListSection_Ordering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, name := range []string{"zebra crossing", "Écluse", "apple orchard"} {
		if _, err := f.svc.RegisterCustom(ctx, f.asset.ID, domain.SectionExperiences, name, stringPtr("info"), nil); err != nil {
			t.Fatalf("RegisterCustom(%s) failed: %v", name, err)
		}
	}
	for _, key := range []string{"entertainment", "excursions"} {
		if _, err := f.svc.Upsert(ctx, UpsertInput{AssetID: f.asset.ID, Section: domain.SectionExperiences, FieldKey: key, Text: stringPtr("x")}); err != nil {
			t.Fatalf("Upsert(%s) failed: %v", key, err)
		}
	}

	nodes, err := f.svc.ListSection(ctx, f.asset.ID, domain.SectionExperiences, ListOptions{})
	if err != nil {
		t.Fatalf("ListSection failed: %v", err)
	}

	var got []string
	for _, n := range nodes {
		got = append(got, n.DisplayName)
	}
	want := []string{"🚌 Excursions", "🎭 Cinema and theatre", "apple orchard", "Écluse", "zebra crossing"}
	if len(got) != len(want) {
		t.Fatalf("ListSection = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ListSection[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestListSection_GuestView(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Upsert(ctx, UpsertInput{AssetID: f.asset.ID, Section: domain.SectionCheckout, FieldKey: "self_checkout", Text: stringPtr("Leave keys inside")}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if _, err := f.svc.Upsert(ctx, UpsertInput{AssetID: f.asset.ID, Section: domain.SectionCheckout, FieldKey: "discounts", Text: stringPtr("10% for returning guests")}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := f.svc.Clear(ctx, f.asset.ID, domain.SectionCheckout, "discounts"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	all, err := f.svc.ListSection(ctx, f.asset.ID, domain.SectionCheckout, ListOptions{})
	if err != nil {
		t.Fatalf("ListSection failed: %v", err)
	}
	guest, err := f.svc.ListSection(ctx, f.asset.ID, domain.SectionCheckout, ListOptions{GuestView: true})
	if err != nil {
		t.Fatalf("ListSection(guest) failed: %v", err)
	}

	if len(all) != 2 {
		t.Errorf("manager view has %d nodes, want 2", len(all))
	}
	if len(guest) != 1 || guest[0].FieldKey != "self_checkout" {
		t.Errorf("guest view = %+v, want only self_checkout", guest)
	}
}

func TestAssets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if !f.asset.ShortTerm {
		t.Error("new assets should be short-term")
	}

	updated, err := f.svc.UpdateAsset(ctx, f.asset.ID, domain.AssetAttrAddress, " Rua  Augusta 10 ")
	if err != nil {
		t.Fatalf("UpdateAsset failed: %v", err)
	}
	if updated.Address != "Rua Augusta 10" {
		t.Errorf("Address = %q, want collapsed whitespace", updated.Address)
	}

	if _, err := f.svc.UpdateAsset(ctx, f.asset.ID, domain.AssetAttrName, ""); !errors.Is(err, domain.ErrEmptyName) {
		t.Errorf("UpdateAsset(empty name) error = %v, want %v", err, domain.ErrEmptyName)
	}

	toggled, err := f.svc.ToggleTerm(ctx, f.asset.ID)
	if err != nil {
		t.Fatalf("ToggleTerm failed: %v", err)
	}
	if toggled.ShortTerm {
		t.Error("ToggleTerm should switch to long-term")
	}

	list, err := f.svc.Assets(ctx, f.asset.TenantID)
	if err != nil {
		t.Fatalf("Assets failed: %v", err)
	}
	if len(list) != 1 || list[0].Name != "Loft 3B" {
		t.Errorf("Assets = %+v", list)
	}

	if _, err := f.svc.Asset(ctx, uuid.New()); !errors.Is(err, domain.ErrAssetNotFound) {
		t.Errorf("Asset(unknown) error = %v, want %v", err, domain.ErrAssetNotFound)
	}
}

func TestCreateAsset_RepeatedIDReturnsFirstAsset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	again, err := f.svc.CreateAsset(ctx, f.asset.ID, f.asset.TenantID, "Loft 3B", "Rua Augusta 10")
	if err != nil {
		t.Fatalf("repeated CreateAsset failed: %v", err)
	}
	if again.ID != f.asset.ID || again.Address != "" {
		t.Errorf("repeated CreateAsset = %+v, want the first asset unchanged", again)
	}
	if n := f.store.Counts().Assets; n != 1 {
		t.Errorf("assets = %d, want 1", n)
	}

	if _, err := f.svc.CreateAsset(ctx, f.asset.ID, uuid.New(), "Loft 3B", ""); !errors.Is(err, domain.ErrAssetNotFound) {
		t.Errorf("CreateAsset under another tenant error = %v, want %v", err, domain.ErrAssetNotFound)
	}
}

func TestArchiveAsset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	booking := &domain.Booking{
		ID:          uuid.New(),
		AssetID:     f.asset.ID,
		GuestLabel:  "Maria",
		CheckinDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Code:        "riverside-code",
		Active:      true,
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := f.store.Bookings().Create(ctx, booking); err != nil {
		t.Fatalf("Create booking failed: %v", err)
	}

	if err := f.svc.ArchiveAsset(ctx, f.asset.ID); err != nil {
		t.Fatalf("ArchiveAsset failed: %v", err)
	}

	if _, err := f.svc.Asset(ctx, f.asset.ID); !errors.Is(err, domain.ErrAssetNotFound) {
		t.Errorf("Asset(archived) error = %v, want %v", err, domain.ErrAssetNotFound)
	}
	list, err := f.svc.Assets(ctx, f.asset.TenantID)
	if err != nil || len(list) != 0 {
		t.Errorf("Assets = %+v, %v; want none", list, err)
	}
	if _, err := f.svc.UpdateAsset(ctx, f.asset.ID, domain.AssetAttrName, "Loft 4C"); !errors.Is(err, domain.ErrAssetNotFound) {
		t.Errorf("UpdateAsset(archived) error = %v, want %v", err, domain.ErrAssetNotFound)
	}

	got, err := f.store.Bookings().GetByID(ctx, booking.ID)
	if err != nil {
		t.Fatalf("GetByID booking failed: %v", err)
	}
	if got.Active || got.CompletedAt == nil {
		t.Errorf("booking = %+v, want completed", got)
	}

	if err := f.svc.ArchiveAsset(ctx, f.asset.ID); !errors.Is(err, domain.ErrAssetNotFound) {
		t.Errorf("second ArchiveAsset error = %v, want %v", err, domain.ErrAssetNotFound)
	}
	if err := f.svc.ArchiveAsset(ctx, uuid.New()); !errors.Is(err, domain.ErrAssetNotFound) {
		t.Errorf("ArchiveAsset(unknown) error = %v, want %v", err, domain.ErrAssetNotFound)
	}
}

func TestUpsert_UnknownAssetIsStorageError(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Upsert(context.Background(), UpsertInput{
		AssetID:  uuid.New(),
		Section:  domain.SectionCheckin,
		FieldKey: "wifi",
		Text:     stringPtr("pass"),
	})
	if !errors.Is(err, memstore.ErrForeignKey) {
		t.Errorf("Upsert error = %v, want %v", err, memstore.ErrForeignKey)
	}
	if errors.Is(err, domain.ErrAssetNotFound) {
		t.Errorf("Upsert error = %v, must not read as a missing asset", err)
	}
}

func TestBackendFailureIsRetryable(t *testing.T) {
	f := newFixture(t)
	f.store.SetFailure(context.DeadlineExceeded)

	_, err := f.svc.Upsert(context.Background(), UpsertInput{
		AssetID:  f.asset.ID,
		Section:  domain.SectionCheckin,
		FieldKey: "wifi",
		Text:     stringPtr("pass"),
	})
	if !errors.Is(err, domain.ErrUnavailable) {
		t.Errorf("Upsert error = %v, want %v", err, domain.ErrUnavailable)
	}
}
