package conversation

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/tendant/stay-concierge/internal/command"
	"github.com/tendant/stay-concierge/pkg/catalog"
	"github.com/tendant/stay-concierge/pkg/content"
	"github.com/tendant/stay-concierge/pkg/domain"
)

const dateLayout = "2006-01-02"

// menu renders the dashboard of the active tenant. A user with no tenant gets the
// welcome screen, a user with several tenants and no valid selection picks one.
func (t *turn) menu(notice string) (Reply, error) {
	tenants, err := t.identity.Tenants(t.ctx, t.ev.UserID)
	if err != nil {
		return Reply{}, err
	}

	if len(tenants) == 0 {
		t.sess.ActiveTenantID = uuid.Nil
		return prefixed(notice, Reply{
			Text: msgWelcome,
			View: view(ViewMainMenu,
				btn("🏢 Create company", command.NewTenant{}),
				btn("❓ Help", command.Help{}),
			),
		}), nil
	}

	var active *domain.MembershipWithTenant
	for i := range tenants {
		if tenants[i].TenantID == t.sess.ActiveTenantID {
			active = &tenants[i]
		}
	}
	if active == nil {
		if len(tenants) > 1 {
			t.sess.ActiveTenantID = uuid.Nil
			return t.tenantList(lines(notice, msgPickTenant))
		}
		active = &tenants[0]
		t.sess.ActiveTenantID = active.TenantID
	}

	tenant := active.Tenant
	buttons := []Button{btn("🏠 Apartments", command.ListAssets{TenantID: tenant.ID})}
	if active.Role.Can(domain.ActionEditSettings) {
		buttons = append(buttons, btn("⚙️ Settings", command.TenantSettings{TenantID: tenant.ID}))
	}
	if active.Role.Can(domain.ActionManageInvites) {
		buttons = append(buttons, btn("✉️ Invite colleagues", command.ShowInvite{TenantID: tenant.ID}))
	}
	buttons = append(buttons, btn("👥 Members", command.ListMembers{TenantID: tenant.ID}))
	if len(tenants) > 1 {
		buttons = append(buttons, btn("🔀 Switch company", command.ListTenants{}))
	}
	buttons = append(buttons,
		btn("🏢 New company", command.NewTenant{}),
		btn("💡 Suggest an improvement", command.Suggest{}),
		btn("❓ Help", command.Help{}),
	)

	text := lines(tenant.Name, tenant.City)
	return prefixed(notice, Reply{Text: text, View: view(ViewMainMenu, buttons...)}), nil
}

// tenantList lets the user pick the tenant they work with.
func (t *turn) tenantList(notice string) (Reply, error) {
	tenants, err := t.identity.Tenants(t.ctx, t.ev.UserID)
	if err != nil {
		return Reply{}, err
	}
	v := view(ViewTenantList)
	for _, m := range tenants {
		b := btn(m.Tenant.Name, command.SelectTenant{TenantID: m.TenantID})
		b.Done = m.TenantID == t.sess.ActiveTenantID
		v.Buttons = append(v.Buttons, b)
	}
	v.Buttons = append(v.Buttons, btn("🏢 New company", command.NewTenant{}))
	if t.sess.ActiveTenantID != uuid.Nil {
		v.Buttons = append(v.Buttons, btn("⬅️ Back", command.MainMenu{}))
	}
	return Reply{Text: notice, View: v}, nil
}

func (t *turn) settingsView(tenantID uuid.UUID) (Reply, error) {
	tenant, err := t.identity.Tenant(t.ctx, tenantID)
	if err != nil {
		return t.settle(err)
	}

	settings := []domain.TenantSetting{
		domain.TenantSettingName,
		domain.TenantSettingCity,
		domain.TenantSettingGreeting,
		domain.TenantSettingTimezone,
		domain.TenantSettingCheckInTime,
		domain.TenantSettingCheckOutTime,
	}
	text := []string{tenant.Name}
	v := view(ViewTenantSettings)
	for _, s := range settings {
		text = append(text, fmt.Sprintf("%s: %s", settingLabels[s], orDash(settingValue(tenant, s))))
		v.Buttons = append(v.Buttons, btn("✏️ "+settingLabels[s], command.EditTenantSetting{TenantID: tenant.ID, Setting: s}))
	}
	term := "short and long term"
	if tenant.LongTermOnly {
		term = "long term only"
	}
	text = append(text, "rentals: "+term)

	toggle := btn("📆 Long-term only", command.ToggleLongTerm{TenantID: tenant.ID})
	toggle.Done = tenant.LongTermOnly
	v.Buttons = append(v.Buttons, toggle, btn("⬅️ Back", command.MainMenu{}))
	return Reply{Text: lines(text...), View: v}, nil
}

func (t *turn) membersView(tenantID uuid.UUID) (Reply, error) {
	members, err := t.identity.Members(t.ctx, tenantID)
	if err != nil {
		return t.settle(err)
	}
	v := view(ViewMembers, btn("⬅️ Back", command.MainMenu{}))
	for _, m := range members {
		name := m.Manager.DisplayName
		if name == "" {
			name = m.ManagerID
		}
		if m.Manager.Username != "" {
			name += " (@" + m.Manager.Username + ")"
		}
		v.Items = append(v.Items, Item{Title: name, Text: string(m.Role)})
	}
	return Reply{Text: fmt.Sprintf("Members: %d", len(members)), View: v}, nil
}

func (t *turn) assetList(tenantID uuid.UUID) (Reply, error) {
	assets, err := t.content.Assets(t.ctx, tenantID)
	if err != nil {
		return t.settle(err)
	}
	v := view(ViewAssetList)
	for _, a := range assets {
		v.Buttons = append(v.Buttons, btn("🏠 "+a.Name, command.ShowAsset{AssetID: a.ID}))
	}
	v.Buttons = append(v.Buttons,
		btn("➕ Add apartment", command.NewAsset{TenantID: tenantID}),
		btn("⬅️ Back", command.MainMenu{}),
	)
	text := "Your apartments:"
	if len(assets) == 0 {
		text = "No apartments yet."
	}
	return Reply{Text: text, View: v}, nil
}

// visibleSections returns the top-level sections shown for an asset. The rent
// section only applies to long-term rentals.
func visibleSections(asset *domain.Asset) []domain.Section {
	var out []domain.Section
	for _, id := range catalog.TopLevel() {
		if id == domain.SectionRent && asset.ShortTerm {
			continue
		}
		out = append(out, id)
	}
	return out
}

func sectionVisible(asset *domain.Asset, section domain.Section) bool {
	for _, id := range visibleSections(asset) {
		if id == section {
			return true
		}
		for _, child := range catalog.Children(id) {
			if child == section {
				return true
			}
		}
	}
	return false
}

func sectionLabel(id domain.Section) string {
	s, _ := catalog.Lookup(id)
	return s.Icon + " " + s.DisplayName
}

// sectionComplete reports whether every fixed field of a section and its
// children is filled.
func sectionComplete(id domain.Section, filled map[string]bool) bool {
	for _, sid := range append([]domain.Section{id}, catalog.Children(id)...) {
		s, _ := catalog.Lookup(sid)
		for _, f := range s.Fields {
			if !filled[f.Key] {
				return false
			}
		}
	}
	return true
}

func (t *turn) assetView(assetID uuid.UUID) (Reply, error) {
	asset, err := t.content.Asset(t.ctx, assetID)
	if err != nil {
		return t.settle(err)
	}

	v := view(ViewAsset)
	for _, id := range visibleSections(asset) {
		filled, err := t.content.CompletionKeys(t.ctx, asset.ID, id)
		if err != nil {
			return Reply{}, err
		}
		b := btn(sectionLabel(id), command.ShowSection{AssetID: asset.ID, Section: id})
		b.Done = sectionComplete(id, filled)
		v.Buttons = append(v.Buttons, b)
	}

	term := "short-term rental"
	if !asset.ShortTerm {
		term = "long-term rental"
	}
	v.Buttons = append(v.Buttons,
		btn("🔑 Bookings", command.ListBookings{AssetID: asset.ID}),
		btn("👀 Guest preview", command.PreviewGuest{AssetID: asset.ID}),
		btn("✏️ Name", command.EditAsset{AssetID: asset.ID, Attr: domain.AssetAttrName}),
		btn("✏️ Address", command.EditAsset{AssetID: asset.ID, Attr: domain.AssetAttrAddress}),
		btn("🔁 Switch to "+otherTerm(asset.ShortTerm), command.ToggleTerm{AssetID: asset.ID}),
		btn("🗑 Delete", command.DeleteAsset{AssetID: asset.ID}),
		btn("⬅️ Back", command.ListAssets{TenantID: asset.TenantID}),
	)
	return Reply{Text: lines("🏠 "+asset.Name, asset.Address, term), View: v}, nil
}

func otherTerm(shortTerm bool) string {
	if shortTerm {
		return "long term"
	}
	return "short term"
}

func (t *turn) sectionView(assetID uuid.UUID, section domain.Section) (Reply, error) {
	asset, err := t.content.Asset(t.ctx, assetID)
	if err != nil {
		return t.settle(err)
	}
	cat, ok := catalog.Lookup(section)
	if !ok || !sectionVisible(asset, section) {
		return t.settle(domain.ErrInvalidSection)
	}

	nodes, err := t.content.ListSection(t.ctx, asset.ID, section, content.ListOptions{})
	if err != nil {
		return Reply{}, err
	}
	filled := make(map[string]bool, len(nodes))
	for i := range nodes {
		filled[nodes[i].FieldKey] = nodes[i].IsFilled()
	}

	v := view(ViewSection)
	for _, f := range cat.Fields {
		b := btn(f.DisplayName, command.ShowField{AssetID: asset.ID, Section: section, Key: f.Key})
		b.Done = filled[f.Key]
		v.Buttons = append(v.Buttons, b)
	}
	for _, n := range nodes {
		if !catalog.IsCustomKey(n.FieldKey) {
			continue
		}
		b := btn(n.DisplayName, command.ShowField{AssetID: asset.ID, Section: section, Key: n.FieldKey})
		b.Done = filled[n.FieldKey]
		v.Buttons = append(v.Buttons, b)
	}
	for _, child := range catalog.Children(section) {
		keys, err := t.content.CompletionKeys(t.ctx, asset.ID, child)
		if err != nil {
			return Reply{}, err
		}
		b := btn(sectionLabel(child), command.ShowSection{AssetID: asset.ID, Section: child})
		b.Done = sectionComplete(child, keys)
		v.Buttons = append(v.Buttons, b)
	}

	back := btn("⬅️ Back", command.ShowAsset{AssetID: asset.ID})
	if cat.Parent != "" {
		back = btn("⬅️ Back", command.ShowSection{AssetID: asset.ID, Section: cat.Parent})
	}
	v.Buttons = append(v.Buttons, btn("➕ Add field", command.NewCustom{AssetID: asset.ID, Section: section}), back)
	return Reply{Text: lines(sectionLabel(section), asset.Name), View: v}, nil
}

func (t *turn) fieldView(assetID uuid.UUID, section domain.Section, key string) (Reply, error) {
	node, ok, err := t.content.Read(t.ctx, assetID, section, key)
	if err != nil {
		return t.settle(err)
	}
	field, fixed := catalog.FieldOf(section, key)
	if !fixed && !ok {
		return t.settle(domain.ErrUnknownField)
	}

	name := field.DisplayName
	if !fixed {
		name = node.DisplayName
	}
	r := Reply{Text: lines(name, msgFieldEmpty), View: view(ViewField)}
	if ok && node.IsFilled() {
		text := ""
		if node.Text != nil {
			text = *node.Text
		}
		r.Text = lines(name, text)
		r.Media = node.Media
	}

	r.View.Buttons = append(r.View.Buttons, btn("✏️ Edit", command.EditField{AssetID: assetID, Section: section, Key: key}))
	if ok && node.IsFilled() {
		r.View.Buttons = append(r.View.Buttons, btn("🧹 Clear", command.ClearField{AssetID: assetID, Section: section, Key: key}))
	}
	if !fixed {
		r.View.Buttons = append(r.View.Buttons, btn("🗑 Delete field", command.DeleteCustom{AssetID: assetID, Section: section, Key: key}))
	}
	r.View.Buttons = append(r.View.Buttons, btn("⬅️ Back", command.ShowSection{AssetID: assetID, Section: section}))
	return r, nil
}

func (t *turn) bookingList(assetID uuid.UUID) (Reply, error) {
	bookings, err := t.access.ListActiveBookings(t.ctx, assetID)
	if err != nil {
		return Reply{}, err
	}
	v := view(ViewBookingList)
	for _, b := range bookings {
		label := fmt.Sprintf("%s · %s", b.GuestLabel, b.CheckinDate.Format(dateLayout))
		v.Buttons = append(v.Buttons, btn(label, command.ShowBooking{BookingID: b.ID}))
	}
	v.Buttons = append(v.Buttons,
		btn("➕ New booking", command.NewBooking{AssetID: assetID}),
		btn("⬅️ Back", command.ShowAsset{AssetID: assetID}),
	)
	text := "Active bookings:"
	if len(bookings) == 0 {
		text = msgNoBookings
	}
	return Reply{Text: text, View: v}, nil
}

func (t *turn) bookingView(b *domain.Booking) (Reply, error) {
	link := t.access.BookingLink(b.Code)
	v := view(ViewBooking, Button{Label: "🔗 Guest link", URL: link})
	if b.Active {
		v.Buttons = append(v.Buttons, btn("✅ Complete", command.CompleteBooking{BookingID: b.ID}))
	}
	v.Buttons = append(v.Buttons, btn("⬅️ Back", command.ListBookings{AssetID: b.AssetID}))

	status := "active"
	if !b.Active {
		status = "completed"
	}
	text := lines(
		"Guest: "+b.GuestLabel,
		"Check-in: "+b.CheckinDate.Format(dateLayout),
		"Status: "+status,
	)
	return Reply{Text: text, View: v}, nil
}

// guestSections returns the visible top-level sections that hold any content.
func (t *turn) guestSections(asset *domain.Asset) ([]domain.Section, error) {
	var out []domain.Section
	for _, id := range visibleSections(asset) {
		keys, err := t.content.CompletionKeys(t.ctx, asset.ID, id)
		if err != nil {
			return nil, err
		}
		if len(keys) > 0 {
			out = append(out, id)
		}
	}
	return out, nil
}

func (t *turn) guestHome(code string) (Reply, error) {
	b, err := t.access.ValidateBooking(t.ctx, code)
	if err != nil {
		return t.settle(err)
	}
	tenant, err := t.identity.Tenant(t.ctx, b.Asset.TenantID)
	if err != nil {
		return t.settle(err)
	}
	sections, err := t.guestSections(&b.Asset)
	if err != nil {
		return Reply{}, err
	}

	v := view(ViewGuestHome)
	for _, id := range sections {
		v.Buttons = append(v.Buttons, btn(sectionLabel(id), command.GuestSection{Code: code, Section: id}))
	}
	text := lines(
		tenant.Greeting,
		"🏠 "+b.Asset.Name,
		b.Asset.Address,
		fmt.Sprintf("Check-in %s from %s, check-out until %s.", b.CheckinDate.Format(dateLayout), tenant.CheckInTime, tenant.CheckOutTime),
	)
	if len(sections) == 0 {
		text = lines(text, msgGuestNoContent)
	}
	return Reply{Text: text, View: v}, nil
}

func (t *turn) guestSection(code string, section domain.Section) (Reply, error) {
	b, err := t.access.ValidateBooking(t.ctx, code)
	if err != nil {
		return t.settle(err)
	}
	cat, ok := catalog.Lookup(section)
	if !ok || !sectionVisible(&b.Asset, section) {
		return t.settle(domain.ErrAccessDenied)
	}

	nodes, err := t.content.ListSection(t.ctx, b.AssetID, section, content.ListOptions{GuestView: true})
	if err != nil {
		return Reply{}, err
	}
	v := view(ViewGuestSection)
	for i := range nodes {
		v.Items = append(v.Items, nodeItem(&nodes[i]))
	}
	for _, child := range catalog.Children(section) {
		keys, err := t.content.CompletionKeys(t.ctx, b.AssetID, child)
		if err != nil {
			return Reply{}, err
		}
		if len(keys) > 0 {
			v.Buttons = append(v.Buttons, btn(sectionLabel(child), command.GuestSection{Code: code, Section: child}))
		}
	}
	back := btn("⬅️ Back", command.GuestHome{Code: code})
	if cat.Parent != "" {
		back = btn("⬅️ Back", command.GuestSection{Code: code, Section: cat.Parent})
	}
	v.Buttons = append(v.Buttons, back)

	text := sectionLabel(section)
	if len(v.Items) == 0 && len(v.Buttons) == 1 {
		text = lines(text, msgGuestNoContent)
	}
	return Reply{Text: text, View: v}, nil
}

// guestPreview shows a manager everything a guest of the asset would see.
func (t *turn) guestPreview(asset *domain.Asset) (Reply, error) {
	tenant, err := t.identity.Tenant(t.ctx, asset.TenantID)
	if err != nil {
		return t.settle(err)
	}

	v := view(ViewGuestPreview, btn("⬅️ Back", command.ShowAsset{AssetID: asset.ID}))
	for _, top := range visibleSections(asset) {
		for _, id := range append([]domain.Section{top}, catalog.Children(top)...) {
			nodes, err := t.content.ListSection(t.ctx, asset.ID, id, content.ListOptions{GuestView: true})
			if err != nil {
				return Reply{}, err
			}
			for i := range nodes {
				item := nodeItem(&nodes[i])
				item.Title = sectionLabel(id) + " / " + item.Title
				v.Items = append(v.Items, item)
			}
		}
	}

	text := lines(tenant.Greeting, "🏠 "+asset.Name, asset.Address)
	if len(v.Items) == 0 {
		text = lines(text, msgGuestNoContent)
	}
	return Reply{Text: text, View: v}, nil
}

// nodeItem renders a content node, naming fixed fields from the catalogue.
func nodeItem(n *domain.ContentNode) Item {
	item := Item{Title: n.DisplayName, Media: n.Media}
	if f, ok := catalog.FieldOf(n.Section, n.FieldKey); ok {
		item.Title = f.DisplayName
	}
	if n.Text != nil {
		item.Text = *n.Text
	}
	return item
}
