package conversation

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/tendant/stay-concierge/internal/command"
	"github.com/tendant/stay-concierge/pkg/catalog"
	"github.com/tendant/stay-concierge/pkg/content"
	"github.com/tendant/stay-concierge/pkg/domain"
	"github.com/tendant/stay-concierge/pkg/identity"
)

// input is the payload of a text or media event. A media caption arrives as text.
type input struct {
	text  string
	media *domain.Media
}

func (in input) textPtr() *string {
	if in.text == "" {
		return nil
	}
	s := in.text
	return &s
}

// input feeds a text or media event to the current flow step.
func (t *turn) input(in input) (Reply, error) {
	f := t.sess.Flow
	if !f.ready() {
		return t.lost(f)
	}

	switch f := f.(type) {
	case *TenantNameStep:
		if in.media != nil {
			return t.reprompt(msgTextOnly)
		}
		name, err := identity.CleanName(in.text)
		if err != nil {
			return t.invalid(err)
		}
		return t.start(&TenantCityStep{Name: name, TenantID: uuid.New()})

	case *TenantCityStep:
		if in.media != nil {
			return t.reprompt(msgTextOnly)
		}
		tenant, err := t.identity.CreateTenant(t.ctx, f.TenantID, t.ev.UserID, f.Name, in.text)
		if err != nil {
			return t.invalid(err)
		}
		t.sess.ActiveTenantID = tenant.ID
		t.sess.ClearFlow()
		return t.menu(fmt.Sprintf(msgTenantCreated, tenant.Name))

	case *AssetNameStep:
		if in.media != nil {
			return t.reprompt(msgTextOnly)
		}
		name, err := identity.CleanName(in.text)
		if err != nil {
			return t.invalid(err)
		}
		return t.start(&AssetAddressStep{TenantID: f.TenantID, Name: name, AssetID: uuid.New()})

	case *AssetAddressStep:
		if in.media != nil {
			return t.reprompt(msgTextOnly)
		}
		return t.createAsset(f, in.text)

	case *AssetConfirmStep, *CustomConfirmStep:
		return t.reprompt(msgUseButtons)

	case *FieldContentStep:
		if _, err := t.authorizeAsset(f.AssetID, domain.ActionEditContent); err != nil {
			return t.settle(err)
		}
		_, err := t.content.Upsert(t.ctx, content.UpsertInput{
			AssetID:  f.AssetID,
			Section:  f.Section,
			FieldKey: f.FieldKey,
			Text:     in.textPtr(),
			Media:    in.media,
		})
		if err != nil {
			return t.invalid(err)
		}
		t.sess.ClearFlow()
		r, err := t.sectionView(f.AssetID, f.Section)
		return prefixed(msgFieldSaved, r), err

	case *CustomNameStep:
		if in.media != nil {
			return t.reprompt(msgTextOnly)
		}
		name, err := identity.CleanName(in.text)
		if err != nil {
			return t.invalid(err)
		}
		return t.start(&CustomContentStep{AssetID: f.AssetID, Section: f.Section, Name: name})

	case *CustomContentStep:
		if in.media == nil && in.text == "" {
			return t.invalid(domain.ErrEmptyContent)
		}
		if in.media != nil && !in.media.Kind.Valid() {
			return t.invalid(domain.ErrUnsupportedMedia)
		}
		key, err := catalog.NewCustomKey()
		if err != nil {
			return Reply{}, fmt.Errorf("failed to generate custom key: %w", err)
		}
		return t.start(&CustomConfirmStep{
			AssetID:  f.AssetID,
			Section:  f.Section,
			Name:     f.Name,
			FieldKey: key,
			Text:     in.textPtr(),
			Media:    in.media,
		})

	case *BookingGuestStep:
		if in.media != nil {
			return t.reprompt(msgTextOnly)
		}
		guest, err := identity.CleanName(in.text)
		if err != nil {
			return t.invalid(domain.ErrInvalidGuestName)
		}
		return t.start(&BookingDateStep{AssetID: f.AssetID, Guest: guest, BookingID: uuid.New()})

	case *BookingDateStep:
		if in.media != nil {
			return t.reprompt(msgTextOnly)
		}
		if _, err := t.authorizeAsset(f.AssetID, domain.ActionIssueBookings); err != nil {
			return t.settle(err)
		}
		b, err := t.access.IssueBooking(t.ctx, f.BookingID, f.AssetID, f.Guest, in.text)
		if err != nil {
			return t.invalid(err)
		}
		t.sess.ClearFlow()
		r, err := t.bookingView(b)
		return prefixed(fmt.Sprintf(msgBookingIssued, b.GuestLabel, t.access.BookingLink(b.Code)), r), err

	case *TenantSettingStep:
		if in.media != nil {
			return t.reprompt(msgTextOnly)
		}
		if _, err := t.identity.UpdateSetting(t.ctx, t.ev.UserID, f.TenantID, f.Setting, in.text); err != nil {
			return t.invalid(err)
		}
		t.sess.ClearFlow()
		r, err := t.settingsView(f.TenantID)
		return prefixed(msgSettingSaved, r), err

	case *AssetEditStep:
		if in.media != nil {
			return t.reprompt(msgTextOnly)
		}
		if _, err := t.authorizeAsset(f.AssetID, domain.ActionManageAssets); err != nil {
			return t.settle(err)
		}
		if _, err := t.content.UpdateAsset(t.ctx, f.AssetID, f.Attr, in.text); err != nil {
			return t.invalid(err)
		}
		t.sess.ClearFlow()
		return t.assetView(f.AssetID)

	case *SuggestionStep:
		if in.media != nil {
			return t.reprompt(msgTextOnly)
		}
		if err := t.identity.Suggest(t.ctx, t.ev.UserID, in.text); err != nil {
			return t.invalid(err)
		}
		t.sess.ClearFlow()
		return t.menu(msgSuggestThanks)
	}

	return Reply{}, fmt.Errorf("unhandled flow step %s", f.flowName())
}

func (t *turn) createAsset(f *AssetAddressStep, address string) (Reply, error) {
	if err := t.authorizeTenant(f.TenantID, domain.ActionManageAssets); err != nil {
		return t.settle(err)
	}
	asset, err := t.content.CreateAsset(t.ctx, f.AssetID, f.TenantID, f.Name, address)
	if err != nil {
		return t.invalid(err)
	}
	return t.start(&AssetConfirmStep{AssetID: asset.ID})
}

// saveCustom commits the pending custom field.
func (t *turn) saveCustom() (Reply, error) {
	f, ok := t.sess.Flow.(*CustomConfirmStep)
	if !ok {
		if t.sess.Flow == nil {
			t.logger.Warn("conversation state lost", "user_id", t.ev.UserID, "flow", "custom_confirm")
			return t.menu(msgStateLost)
		}
		return t.reprompt(msgUseButtons)
	}
	if !f.ready() {
		return t.lost(f)
	}
	if _, err := t.authorizeAsset(f.AssetID, domain.ActionEditContent); err != nil {
		return t.settle(err)
	}

	if err := t.registerCustom(f); err != nil {
		if msg, ok := validationText(err); ok {
			t.sess.Flow = &CustomContentStep{AssetID: f.AssetID, Section: f.Section, Name: f.Name}
			return t.reprompt(msg)
		}
		return t.settle(err)
	}
	t.sess.ClearFlow()
	r, err := t.sectionView(f.AssetID, f.Section)
	return prefixed(fmt.Sprintf(msgCustomSaved, f.Name), r), err
}

// prompt renders the question a flow step asks.
func (t *turn) prompt(f Flow) (Reply, error) {
	cancelBtn := btn("✖️ Cancel", command.Cancel{})

	switch f := f.(type) {
	case *TenantNameStep:
		return Reply{Text: msgTenantName, View: view(ViewPrompt, cancelBtn)}, nil

	case *TenantCityStep:
		return Reply{Text: fmt.Sprintf(msgTenantCity, f.Name), View: view(ViewPrompt, cancelBtn)}, nil

	case *AssetNameStep:
		return Reply{Text: msgAssetName, View: view(ViewPrompt, cancelBtn)}, nil

	case *AssetAddressStep:
		return Reply{
			Text: fmt.Sprintf(msgAssetAddress, f.Name),
			View: view(ViewPrompt, btn("⏭ Skip", command.SkipAddress{}), cancelBtn),
		}, nil

	case *AssetConfirmStep:
		asset, err := t.content.Asset(t.ctx, f.AssetID)
		if err != nil {
			return Reply{}, err
		}
		return Reply{
			Text: fmt.Sprintf(msgAssetCreated, asset.Name),
			View: view(ViewAssetConfirm,
				btn("✅ Save", command.SaveAsset{AssetID: asset.ID}),
				btn("✖️ Don't save", command.DiscardAsset{AssetID: asset.ID}),
			),
		}, nil

	case *FieldContentStep:
		name, help, err := t.fieldLabel(f)
		if err != nil {
			return Reply{}, err
		}
		r := Reply{Text: lines(fmt.Sprintf(msgFieldPrompt, name), help), View: view(ViewPrompt, cancelBtn)}
		cur, ok, err := t.content.Read(t.ctx, f.AssetID, f.Section, f.FieldKey)
		if err != nil {
			return Reply{}, err
		}
		if ok && cur.IsFilled() {
			r.View.Items = []Item{nodeItem(cur)}
		}
		return r, nil

	case *CustomNameStep:
		return Reply{Text: msgCustomName, View: view(ViewPrompt, cancelBtn)}, nil

	case *CustomContentStep:
		return Reply{Text: fmt.Sprintf(msgCustomContent, f.Name), View: view(ViewPrompt, cancelBtn)}, nil

	case *CustomConfirmStep:
		item := Item{Title: f.Name, Media: f.Media}
		if f.Text != nil {
			item.Text = *f.Text
		}
		v := view(ViewCustomConfirm,
			btn("✅ Save", command.SaveCustom{}),
			btn("✖️ Discard", command.DiscardCustom{}),
		)
		v.Items = []Item{item}
		return Reply{Text: fmt.Sprintf(msgCustomConfirm, f.Name), View: v}, nil

	case *BookingGuestStep:
		return Reply{Text: msgBookingGuest, View: view(ViewPrompt, cancelBtn)}, nil

	case *BookingDateStep:
		return Reply{Text: fmt.Sprintf(msgBookingDate, f.Guest), View: view(ViewPrompt, cancelBtn)}, nil

	case *TenantSettingStep:
		tenant, err := t.identity.Tenant(t.ctx, f.TenantID)
		if err != nil {
			return Reply{}, err
		}
		text := fmt.Sprintf(msgSettingPrompt, settingLabels[f.Setting], settingValue(tenant, f.Setting))
		return Reply{Text: text, View: view(ViewPrompt, cancelBtn)}, nil

	case *AssetEditStep:
		asset, err := t.content.Asset(t.ctx, f.AssetID)
		if err != nil {
			return Reply{}, err
		}
		cur := asset.Name
		if f.Attr == domain.AssetAttrAddress {
			cur = orDash(asset.Address)
		}
		text := fmt.Sprintf(msgAssetEdit, assetAttrLabels[f.Attr], cur)
		return Reply{Text: text, View: view(ViewPrompt, cancelBtn)}, nil

	case *SuggestionStep:
		return Reply{Text: msgSuggestPrompt, View: view(ViewPrompt, cancelBtn)}, nil
	}

	return Reply{}, fmt.Errorf("no prompt for flow step %s", f.flowName())
}

// fieldLabel returns the display name and help text of a field.
func (t *turn) fieldLabel(f *FieldContentStep) (string, string, error) {
	if field, ok := catalog.FieldOf(f.Section, f.FieldKey); ok {
		return field.DisplayName, field.Help, nil
	}
	cur, ok, err := t.content.Read(t.ctx, f.AssetID, f.Section, f.FieldKey)
	if err != nil {
		return "", "", err
	}
	if !ok {
		return "", "", domain.ErrUnknownField
	}
	return cur.DisplayName, "", nil
}

func settingValue(tenant *domain.Tenant, s domain.TenantSetting) string {
	switch s {
	case domain.TenantSettingName:
		return tenant.Name
	case domain.TenantSettingCity:
		return tenant.City
	case domain.TenantSettingGreeting:
		return tenant.Greeting
	case domain.TenantSettingTimezone:
		return tenant.Timezone
	case domain.TenantSettingCheckInTime:
		return tenant.CheckInTime
	case domain.TenantSettingCheckOutTime:
		return tenant.CheckOutTime
	}
	return ""
}

func orDash(s string) string {
	if s == "" {
		return "not set"
	}
	return s
}

// registerCustom stores the pending field under the key minted for it, so a
// repeated save overwrites the same field.
func (t *turn) registerCustom(f *CustomConfirmStep) error {
	if f.FieldKey == "" {
		_, err := t.content.RegisterCustom(t.ctx, f.AssetID, f.Section, f.Name, f.Text, f.Media)
		return err
	}
	_, err := t.content.Upsert(t.ctx, content.UpsertInput{
		AssetID:     f.AssetID,
		Section:     f.Section,
		FieldKey:    f.FieldKey,
		DisplayName: f.Name,
		Text:        f.Text,
		Media:       f.Media,
	})
	return err
}
