package conversation

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/tendant/stay-concierge/internal/command"
	"github.com/tendant/stay-concierge/pkg/domain"
)

// command handles a decoded button press, deep link or slash command.
func (t *turn) command(c command.Command) (Reply, error) {
	switch c := c.(type) {
	case command.MainMenu:
		t.sess.ClearFlow()
		return t.menu("")

	case command.Cancel:
		t.sess.ClearFlow()
		return t.menu(msgCancelled)

	case command.Help:
		t.sess.ClearFlow()
		return t.menu(msgHelp)

	case command.NewTenant:
		return t.start(&TenantNameStep{})

	case command.ListTenants:
		t.sess.ClearFlow()
		return t.tenantList("")

	case command.SelectTenant:
		if err := t.authorizeTenant(c.TenantID, domain.ActionEditContent); err != nil {
			return t.settle(err)
		}
		t.sess.ActiveTenantID = c.TenantID
		t.sess.ClearFlow()
		return t.menu("")

	case command.TenantSettings:
		if err := t.authorizeTenant(c.TenantID, domain.ActionEditSettings); err != nil {
			return t.settle(err)
		}
		t.sess.ClearFlow()
		return t.settingsView(c.TenantID)

	case command.EditTenantSetting:
		if err := t.authorizeTenant(c.TenantID, domain.ActionEditSettings); err != nil {
			return t.settle(err)
		}
		return t.start(&TenantSettingStep{TenantID: c.TenantID, Setting: c.Setting})

	case command.ToggleLongTerm:
		if _, err := t.identity.ToggleLongTerm(t.ctx, t.ev.UserID, c.TenantID); err != nil {
			return t.settle(err)
		}
		return t.settingsView(c.TenantID)

	case command.ShowInvite:
		return t.inviteView(c.TenantID, false)

	case command.RotateInvite:
		return t.inviteView(c.TenantID, true)

	case command.ListMembers:
		if err := t.authorizeTenant(c.TenantID, domain.ActionEditContent); err != nil {
			return t.settle(err)
		}
		return t.membersView(c.TenantID)

	case command.ListAssets:
		if err := t.authorizeTenant(c.TenantID, domain.ActionEditContent); err != nil {
			return t.settle(err)
		}
		t.sess.ClearFlow()
		return t.assetList(c.TenantID)

	case command.NewAsset:
		if err := t.authorizeTenant(c.TenantID, domain.ActionManageAssets); err != nil {
			return t.settle(err)
		}
		return t.start(&AssetNameStep{TenantID: c.TenantID})

	case command.SkipAddress:
		f, ok := t.sess.Flow.(*AssetAddressStep)
		if !ok {
			return t.stale()
		}
		if !f.ready() {
			return t.lost(f)
		}
		return t.createAsset(f, "")

	case command.SaveAsset:
		if _, err := t.authorizeAsset(c.AssetID, domain.ActionEditContent); err != nil {
			return t.settle(err)
		}
		t.sess.ClearFlow()
		r, err := t.assetView(c.AssetID)
		return prefixed(msgAssetSaved, r), err

	case command.DiscardAsset:
		// The asset row was written when the address was entered and is kept.
		t.sess.ClearFlow()
		return t.menu(msgAssetKept)

	case command.ShowAsset:
		if _, err := t.authorizeAsset(c.AssetID, domain.ActionEditContent); err != nil {
			return t.settle(err)
		}
		t.sess.ClearFlow()
		return t.assetView(c.AssetID)

	case command.EditAsset:
		if _, err := t.authorizeAsset(c.AssetID, domain.ActionManageAssets); err != nil {
			return t.settle(err)
		}
		return t.start(&AssetEditStep{AssetID: c.AssetID, Attr: c.Attr})

	case command.ToggleTerm:
		if _, err := t.authorizeAsset(c.AssetID, domain.ActionManageAssets); err != nil {
			return t.settle(err)
		}
		if _, err := t.content.ToggleTerm(t.ctx, c.AssetID); err != nil {
			return t.settle(err)
		}
		return t.assetView(c.AssetID)

	case command.DeleteAsset:
		asset, err := t.authorizeAsset(c.AssetID, domain.ActionDeleteAssets)
		if err != nil {
			return t.settle(err)
		}
		t.sess.ClearFlow()
		return Reply{
			Text: fmt.Sprintf(msgAssetDelete, asset.Name),
			View: view(ViewAssetDelete,
				btn("🗑 Delete", command.ConfirmDeleteAsset{AssetID: asset.ID}),
				btn("⬅️ Back", command.ShowAsset{AssetID: asset.ID}),
			),
		}, nil

	case command.ConfirmDeleteAsset:
		asset, err := t.authorizeAsset(c.AssetID, domain.ActionDeleteAssets)
		if err != nil {
			return t.settle(err)
		}
		if err := t.content.ArchiveAsset(t.ctx, asset.ID); err != nil {
			return t.settle(err)
		}
		r, err := t.assetList(asset.TenantID)
		return prefixed(msgAssetDeleted, r), err

	case command.PreviewGuest:
		asset, err := t.authorizeAsset(c.AssetID, domain.ActionEditContent)
		if err != nil {
			return t.settle(err)
		}
		return t.guestPreview(asset)

	case command.ShowSection:
		if _, err := t.authorizeAsset(c.AssetID, domain.ActionEditContent); err != nil {
			return t.settle(err)
		}
		t.sess.ClearFlow()
		return t.sectionView(c.AssetID, c.Section)

	case command.ShowField:
		if _, err := t.authorizeAsset(c.AssetID, domain.ActionEditContent); err != nil {
			return t.settle(err)
		}
		t.sess.ClearFlow()
		return t.fieldView(c.AssetID, c.Section, c.Key)

	case command.EditField:
		if _, err := t.authorizeAsset(c.AssetID, domain.ActionEditContent); err != nil {
			return t.settle(err)
		}
		return t.start(&FieldContentStep{AssetID: c.AssetID, Section: c.Section, FieldKey: c.Key})

	case command.ClearField:
		if _, err := t.authorizeAsset(c.AssetID, domain.ActionEditContent); err != nil {
			return t.settle(err)
		}
		if err := t.content.Clear(t.ctx, c.AssetID, c.Section, c.Key); err != nil {
			return t.settle(err)
		}
		t.sess.ClearFlow()
		r, err := t.sectionView(c.AssetID, c.Section)
		return prefixed(msgFieldCleared, r), err

	case command.NewCustom:
		if _, err := t.authorizeAsset(c.AssetID, domain.ActionEditContent); err != nil {
			return t.settle(err)
		}
		return t.start(&CustomNameStep{AssetID: c.AssetID, Section: c.Section})

	case command.SaveCustom:
		return t.saveCustom()

	case command.DiscardCustom:
		f, ok := t.sess.Flow.(*CustomConfirmStep)
		t.sess.ClearFlow()
		if !ok || f.AssetID == uuid.Nil || f.Section == "" {
			return t.menu(msgCancelled)
		}
		r, err := t.sectionView(f.AssetID, f.Section)
		return prefixed(msgCancelled, r), err

	case command.DeleteCustom:
		if _, err := t.authorizeAsset(c.AssetID, domain.ActionEditContent); err != nil {
			return t.settle(err)
		}
		if err := t.content.DeleteCustom(t.ctx, c.AssetID, c.Section, c.Key); err != nil {
			return t.settle(err)
		}
		t.sess.ClearFlow()
		r, err := t.sectionView(c.AssetID, c.Section)
		return prefixed(msgCustomDeleted, r), err

	case command.ListBookings:
		if _, err := t.authorizeAsset(c.AssetID, domain.ActionIssueBookings); err != nil {
			return t.settle(err)
		}
		t.sess.ClearFlow()
		return t.bookingList(c.AssetID)

	case command.NewBooking:
		if _, err := t.authorizeAsset(c.AssetID, domain.ActionIssueBookings); err != nil {
			return t.settle(err)
		}
		return t.start(&BookingGuestStep{AssetID: c.AssetID})

	case command.ShowBooking:
		b, err := t.access.Booking(t.ctx, c.BookingID)
		if err != nil {
			return t.settle(err)
		}
		if _, err := t.authorizeAsset(b.AssetID, domain.ActionIssueBookings); err != nil {
			return t.settle(err)
		}
		return t.bookingView(b)

	case command.CompleteBooking:
		b, err := t.access.Booking(t.ctx, c.BookingID)
		if err != nil {
			return t.settle(err)
		}
		if _, err := t.authorizeAsset(b.AssetID, domain.ActionIssueBookings); err != nil {
			return t.settle(err)
		}
		if err := t.access.CompleteBooking(t.ctx, b.ID); err != nil {
			return t.settle(err)
		}
		r, err := t.bookingList(b.AssetID)
		return prefixed(msgBookingDone, r), err

	case command.JoinTenant:
		tenant, joined, err := t.access.AcceptInvite(t.ctx, t.ev.UserID, c.Code)
		if err != nil {
			return t.settle(err)
		}
		t.sess.ActiveTenantID = tenant.ID
		t.sess.ClearFlow()
		if joined {
			return t.menu(fmt.Sprintf(msgJoined, tenant.Name))
		}
		return t.menu(fmt.Sprintf(msgAlreadyMember, tenant.Name))

	case command.GuestHome:
		t.sess.ClearFlow()
		return t.guestHome(c.Code)

	case command.GuestSection:
		t.sess.ClearFlow()
		return t.guestSection(c.Code, c.Section)

	case command.Suggest:
		return t.start(&SuggestionStep{})
	}

	return Reply{}, fmt.Errorf("unhandled command %T", c)
}

// stale answers a button that does not match the current step.
func (t *turn) stale() (Reply, error) {
	t.logger.Warn("stale button", "user_id", t.ev.UserID)
	if t.sess.Flow != nil {
		return t.reprompt(msgUseButtons)
	}
	return t.menu(msgStaleButton)
}

// inviteView shows the tenant's invite link, rotating it first when asked.
func (t *turn) inviteView(tenantID uuid.UUID, rotate bool) (Reply, error) {
	if err := t.authorizeTenant(tenantID, domain.ActionManageInvites); err != nil {
		return t.settle(err)
	}
	tenant, err := t.identity.Tenant(t.ctx, tenantID)
	if err != nil {
		return t.settle(err)
	}

	var code, notice string
	if rotate {
		code, err = t.access.RotateInvite(t.ctx, tenantID)
		notice = msgInviteRotated
	} else {
		code, err = t.access.IssueInvite(t.ctx, tenantID)
	}
	if err != nil {
		return t.settle(err)
	}

	link := t.access.InviteLink(code)
	r := Reply{
		Text: fmt.Sprintf(msgInvite, tenant.Name, link),
		View: view(ViewInvite,
			Button{Label: "🔗 Invite link", URL: link},
			btn("🔄 New link", command.RotateInvite{TenantID: tenant.ID}),
			btn("⬅️ Back", command.MainMenu{}),
		),
	}
	return prefixed(notice, r), nil
}
