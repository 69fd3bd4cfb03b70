package conversation

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tendant/stay-concierge/internal/session"
	"github.com/tendant/stay-concierge/pkg/domain"
)

var errUnknownFlow = errors.New("unknown flow")

// Flow is one step of a multi-turn data entry flow, carrying the fields
// collected by the steps before it.
type Flow interface {
	flowName() string
	// ready reports whether the data this step depends on is present.
	ready() bool
	// restart returns the first step of the flow, or nil when not even that
	// can be rebuilt and the user must start again from a menu.
	restart(activeTenant uuid.UUID) Flow
}

// Tenant creation: name, then city.
//
// Steps that create an entity carry its ID, minted when the step is entered,
// so that input redelivered after a failed turn finds the entity instead of
// creating a second one.
type (
	TenantNameStep struct{}
	TenantCityStep struct {
		Name     string    `json:"name"`
		TenantID uuid.UUID `json:"tenant_id"`
	}
)

// Asset creation: name, then address, then save or discard.
type (
	AssetNameStep struct {
		TenantID uuid.UUID `json:"tenant_id"`
	}
	AssetAddressStep struct {
		TenantID uuid.UUID `json:"tenant_id"`
		Name     string    `json:"name"`
		AssetID  uuid.UUID `json:"asset_id"`
	}
	AssetConfirmStep struct {
		AssetID uuid.UUID `json:"asset_id"`
	}
)

// FieldContentStep waits for the content of one field.
type FieldContentStep struct {
	AssetID  uuid.UUID      `json:"asset_id"`
	Section  domain.Section `json:"section"`
	FieldKey string         `json:"field_key"`
}

// Custom field creation: name, then content, then save or discard.
type (
	CustomNameStep struct {
		AssetID uuid.UUID      `json:"asset_id"`
		Section domain.Section `json:"section"`
	}
	CustomContentStep struct {
		AssetID uuid.UUID      `json:"asset_id"`
		Section domain.Section `json:"section"`
		Name    string         `json:"name"`
	}
	CustomConfirmStep struct {
		AssetID  uuid.UUID      `json:"asset_id"`
		Section  domain.Section `json:"section"`
		Name     string         `json:"name"`
		FieldKey string         `json:"field_key,omitempty"`
		Text     *string        `json:"text,omitempty"`
		Media    *domain.Media  `json:"media,omitempty"`
	}
)

// Booking issuance: guest name, then check-in date.
type (
	BookingGuestStep struct {
		AssetID uuid.UUID `json:"asset_id"`
	}
	BookingDateStep struct {
		AssetID   uuid.UUID `json:"asset_id"`
		Guest     string    `json:"guest"`
		BookingID uuid.UUID `json:"booking_id"`
	}
)

// Single-step edits.
type (
	TenantSettingStep struct {
		TenantID uuid.UUID            `json:"tenant_id"`
		Setting  domain.TenantSetting `json:"setting"`
	}
	AssetEditStep struct {
		AssetID uuid.UUID        `json:"asset_id"`
		Attr    domain.AssetAttr `json:"attr"`
	}
	SuggestionStep struct{}
)

func (*TenantNameStep) flowName() string    { return "tenant_name" }
func (*TenantCityStep) flowName() string    { return "tenant_city" }
func (*AssetNameStep) flowName() string     { return "asset_name" }
func (*AssetAddressStep) flowName() string  { return "asset_address" }
func (*AssetConfirmStep) flowName() string  { return "asset_confirm" }
func (*FieldContentStep) flowName() string  { return "field_content" }
func (*CustomNameStep) flowName() string    { return "custom_name" }
func (*CustomContentStep) flowName() string { return "custom_content" }
func (*CustomConfirmStep) flowName() string { return "custom_confirm" }
func (*BookingGuestStep) flowName() string  { return "booking_guest" }
func (*BookingDateStep) flowName() string   { return "booking_date" }
func (*TenantSettingStep) flowName() string { return "tenant_setting" }
func (*AssetEditStep) flowName() string     { return "asset_edit" }
func (*SuggestionStep) flowName() string    { return "suggestion" }

func (*TenantNameStep) ready() bool      { return true }
func (f *TenantCityStep) ready() bool    { return f.Name != "" }
func (f *AssetNameStep) ready() bool     { return f.TenantID != uuid.Nil }
func (f *AssetAddressStep) ready() bool  { return f.TenantID != uuid.Nil && f.Name != "" }
func (f *AssetConfirmStep) ready() bool  { return f.AssetID != uuid.Nil }
func (f *FieldContentStep) ready() bool  { return f.AssetID != uuid.Nil && f.Section != "" && f.FieldKey != "" }
func (f *CustomNameStep) ready() bool    { return f.AssetID != uuid.Nil && f.Section != "" }
func (f *CustomContentStep) ready() bool { return f.AssetID != uuid.Nil && f.Section != "" && f.Name != "" }
func (f *CustomConfirmStep) ready() bool {
	return f.AssetID != uuid.Nil && f.Section != "" && f.Name != "" && (f.Text != nil || f.Media != nil)
}
func (f *BookingGuestStep) ready() bool  { return f.AssetID != uuid.Nil }
func (f *BookingDateStep) ready() bool   { return f.AssetID != uuid.Nil && f.Guest != "" }
func (f *TenantSettingStep) ready() bool { return f.TenantID != uuid.Nil && f.Setting.Valid() }
func (f *AssetEditStep) ready() bool     { return f.AssetID != uuid.Nil && f.Attr.Valid() }
func (*SuggestionStep) ready() bool      { return true }

func (*TenantNameStep) restart(uuid.UUID) Flow { return &TenantNameStep{} }
func (*TenantCityStep) restart(uuid.UUID) Flow { return &TenantNameStep{} }

func (f *AssetNameStep) restart(active uuid.UUID) Flow    { return assetStart(f.TenantID, active) }
func (f *AssetAddressStep) restart(active uuid.UUID) Flow { return assetStart(f.TenantID, active) }
func (f *AssetConfirmStep) restart(active uuid.UUID) Flow { return assetStart(uuid.Nil, active) }

func (*FieldContentStep) restart(uuid.UUID) Flow   { return nil }
func (f *CustomNameStep) restart(uuid.UUID) Flow    { return customStart(f.AssetID, f.Section) }
func (f *CustomContentStep) restart(uuid.UUID) Flow { return customStart(f.AssetID, f.Section) }
func (f *CustomConfirmStep) restart(uuid.UUID) Flow { return customStart(f.AssetID, f.Section) }

func (f *BookingGuestStep) restart(uuid.UUID) Flow { return bookingStart(f.AssetID) }
func (f *BookingDateStep) restart(uuid.UUID) Flow  { return bookingStart(f.AssetID) }

func (*TenantSettingStep) restart(uuid.UUID) Flow { return nil }
func (*AssetEditStep) restart(uuid.UUID) Flow     { return nil }
func (*SuggestionStep) restart(uuid.UUID) Flow    { return &SuggestionStep{} }

func assetStart(tenantID, active uuid.UUID) Flow {
	if tenantID == uuid.Nil {
		tenantID = active
	}
	if tenantID == uuid.Nil {
		return nil
	}
	return &AssetNameStep{TenantID: tenantID}
}

func customStart(assetID uuid.UUID, section domain.Section) Flow {
	if assetID == uuid.Nil || section == "" {
		return nil
	}
	return &CustomNameStep{AssetID: assetID, Section: section}
}

func bookingStart(assetID uuid.UUID) Flow {
	if assetID == uuid.Nil {
		return nil
	}
	return &BookingGuestStep{AssetID: assetID}
}

var flowTypes = map[string]func() Flow{
	"tenant_name":    func() Flow { return &TenantNameStep{} },
	"tenant_city":    func() Flow { return &TenantCityStep{} },
	"asset_name":     func() Flow { return &AssetNameStep{} },
	"asset_address":  func() Flow { return &AssetAddressStep{} },
	"asset_confirm":  func() Flow { return &AssetConfirmStep{} },
	"field_content":  func() Flow { return &FieldContentStep{} },
	"custom_name":    func() Flow { return &CustomNameStep{} },
	"custom_content": func() Flow { return &CustomContentStep{} },
	"custom_confirm": func() Flow { return &CustomConfirmStep{} },
	"booking_guest":  func() Flow { return &BookingGuestStep{} },
	"booking_date":   func() Flow { return &BookingDateStep{} },
	"tenant_setting": func() Flow { return &TenantSettingStep{} },
	"asset_edit":     func() Flow { return &AssetEditStep{} },
	"suggestion":     func() Flow { return &SuggestionStep{} },
}

// Session is the decoded per-user conversation state.
type Session struct {
	// ActiveTenantID is the tenant the manager is working in. It outlives every flow.
	ActiveTenantID uuid.UUID
	Flow           Flow
}

// ClearFlow ends the current flow, keeping the active tenant.
func (s *Session) ClearFlow() {
	s.Flow = nil
}

// Record encodes the session for storage.
func (s *Session) Record() (session.Record, error) {
	rec := session.Record{ActiveTenantID: s.ActiveTenantID}
	if s.Flow == nil {
		return rec, nil
	}
	data, err := json.Marshal(s.Flow)
	if err != nil {
		return session.Record{}, fmt.Errorf("failed to encode flow %s: %w", s.Flow.flowName(), err)
	}
	rec.Flow = s.Flow.flowName()
	rec.Data = data
	return rec, nil
}

// DecodeSession rebuilds a session from storage. When the flow cannot be
// decoded the session is still returned, without a flow, along with the error.
func DecodeSession(rec session.Record) (*Session, error) {
	s := &Session{ActiveTenantID: rec.ActiveTenantID}
	if rec.Flow == "" {
		return s, nil
	}
	newFlow, ok := flowTypes[rec.Flow]
	if !ok {
		return s, fmt.Errorf("%w: %q", errUnknownFlow, rec.Flow)
	}
	f := newFlow()
	if len(rec.Data) > 0 {
		if err := json.Unmarshal(rec.Data, f); err != nil {
			return s, fmt.Errorf("failed to decode flow %s: %w", rec.Flow, err)
		}
	}
	s.Flow = f
	return s, nil
}
