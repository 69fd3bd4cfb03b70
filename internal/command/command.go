// Package command defines the closed set of button commands exchanged with the
// presentation adapter. A command is encoded once into a short opaque token
// (at most 64 bytes, the common limit for button payloads) and decoded once at
// the boundary; the conversation engine dispatches on the decoded type.
package command

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tendant/stay-concierge/pkg/access"
	"github.com/tendant/stay-concierge/pkg/domain"
)

// MaxTokenLength is the longest token Encode may produce.
const MaxTokenLength = 64

const sep = ":"

var (
	ErrUnknownCommand   = errors.New("unknown command")
	ErrMalformedCommand = errors.New("malformed command")
)

// Command is one decoded button press.
type Command interface {
	Encode() string
	command()
}

type (
	MainMenu    struct{}
	Cancel      struct{}
	Help        struct{}
	NewTenant   struct{}
	ListTenants struct{}
	Suggest     struct{}
	SkipAddress struct{}
	SaveCustom  struct{}
	// DiscardCustom drops the pending custom field without writing it.
	DiscardCustom struct{}

	SelectTenant      struct{ TenantID uuid.UUID }
	TenantSettings    struct{ TenantID uuid.UUID }
	EditTenantSetting struct {
		TenantID uuid.UUID
		Setting  domain.TenantSetting
	}
	ToggleLongTerm struct{ TenantID uuid.UUID }
	ShowInvite     struct{ TenantID uuid.UUID }
	RotateInvite   struct{ TenantID uuid.UUID }
	ListMembers    struct{ TenantID uuid.UUID }
	ListAssets     struct{ TenantID uuid.UUID }
	NewAsset       struct{ TenantID uuid.UUID }

	ShowAsset    struct{ AssetID uuid.UUID }
	SaveAsset    struct{ AssetID uuid.UUID }
	DiscardAsset struct{ AssetID uuid.UUID }
	EditAsset    struct {
		AssetID uuid.UUID
		Attr    domain.AssetAttr
	}
	ToggleTerm   struct{ AssetID uuid.UUID }
	PreviewGuest struct{ AssetID uuid.UUID }
	// DeleteAsset asks for confirmation; ConfirmDeleteAsset archives the asset.
	DeleteAsset        struct{ AssetID uuid.UUID }
	ConfirmDeleteAsset struct{ AssetID uuid.UUID }

	ShowSection struct {
		AssetID uuid.UUID
		Section domain.Section
	}
	NewCustom struct {
		AssetID uuid.UUID
		Section domain.Section
	}
	ShowField struct {
		AssetID uuid.UUID
		Section domain.Section
		Key     string
	}
	EditField struct {
		AssetID uuid.UUID
		Section domain.Section
		Key     string
	}
	ClearField struct {
		AssetID uuid.UUID
		Section domain.Section
		Key     string
	}
	DeleteCustom struct {
		AssetID uuid.UUID
		Section domain.Section
		Key     string
	}

	ListBookings    struct{ AssetID uuid.UUID }
	NewBooking      struct{ AssetID uuid.UUID }
	ShowBooking     struct{ BookingID uuid.UUID }
	CompleteBooking struct{ BookingID uuid.UUID }

	// JoinTenant and GuestHome arrive through deep links; GuestHome and
	// GuestSection also back the guest's navigation buttons.
	JoinTenant   struct{ Code string }
	GuestHome    struct{ Code string }
	GuestSection struct {
		Code    string
		Section domain.Section
	}
)

func (MainMenu) command()          {}
func (Cancel) command()            {}
func (Help) command()              {}
func (NewTenant) command()         {}
func (ListTenants) command()       {}
func (Suggest) command()           {}
func (SkipAddress) command()       {}
func (SaveCustom) command()        {}
func (DiscardCustom) command()     {}
func (SelectTenant) command()      {}
func (TenantSettings) command()    {}
func (EditTenantSetting) command() {}
func (ToggleLongTerm) command()    {}
func (ShowInvite) command()        {}
func (RotateInvite) command()      {}
func (ListMembers) command()       {}
func (ListAssets) command()        {}
func (NewAsset) command()          {}
func (ShowAsset) command()         {}
func (SaveAsset) command()         {}
func (DiscardAsset) command()      {}
func (EditAsset) command()         {}
func (ToggleTerm) command()        {}
func (PreviewGuest) command()      {}
func (ShowSection) command()       {}
func (NewCustom) command()         {}
func (ShowField) command()         {}
func (EditField) command()         {}
func (ClearField) command()        {}
func (DeleteCustom) command()      {}
func (ListBookings) command()      {}
func (NewBooking) command()        {}
func (ShowBooking) command()       {}
func (CompleteBooking) command()   {}
func (JoinTenant) command()        {}
func (GuestHome) command()         {}
func (GuestSection) command()      {}

func (DeleteAsset) command()        {}
func (ConfirmDeleteAsset) command() {}

// Verbs. Kept short so that an id, a section and a custom key fit in one token.
const (
	verbMainMenu          = "menu"
	verbCancel            = "cancel"
	verbHelp              = "help"
	verbNewTenant         = "tn"
	verbListTenants       = "tl"
	verbSuggest           = "sg"
	verbSkipAddress       = "ak"
	verbSaveCustom        = "cs"
	verbDiscardCustom     = "cd"
	verbSelectTenant      = "ts"
	verbTenantSettings    = "tc"
	verbEditTenantSetting = "te"
	verbToggleLongTerm    = "tt"
	verbShowInvite        = "iv"
	verbRotateInvite      = "ir"
	verbListMembers       = "tm"
	verbListAssets        = "al"
	verbNewAsset          = "an"
	verbShowAsset         = "av"
	verbSaveAsset         = "as"
	verbDiscardAsset      = "ad"
	verbEditAsset         = "ae"
	verbToggleTerm        = "at"
	verbPreviewGuest      = "pg"
	verbDeleteAsset       = "ar"
	verbConfirmDelete     = "ay"
	verbShowSection       = "sv"
	verbNewCustom         = "cn"
	verbShowField         = "fv"
	verbEditField         = "fe"
	verbClearField        = "fc"
	verbDeleteCustom      = "cx"
	verbListBookings      = "bl"
	verbNewBooking        = "bn"
	verbShowBooking       = "bv"
	verbCompleteBooking   = "bc"
	verbJoinTenant        = "join"
	verbGuestHome         = "gh"
	verbGuestSection      = "gs"
)

func (MainMenu) Encode() string      { return verbMainMenu }
func (Cancel) Encode() string        { return verbCancel }
func (Help) Encode() string          { return verbHelp }
func (NewTenant) Encode() string     { return verbNewTenant }
func (ListTenants) Encode() string   { return verbListTenants }
func (Suggest) Encode() string       { return verbSuggest }
func (SkipAddress) Encode() string   { return verbSkipAddress }
func (SaveCustom) Encode() string    { return verbSaveCustom }
func (DiscardCustom) Encode() string { return verbDiscardCustom }

func (c SelectTenant) Encode() string   { return join(verbSelectTenant, id(c.TenantID)) }
func (c TenantSettings) Encode() string { return join(verbTenantSettings, id(c.TenantID)) }
func (c EditTenantSetting) Encode() string {
	return join(verbEditTenantSetting, id(c.TenantID), string(c.Setting))
}
func (c ToggleLongTerm) Encode() string { return join(verbToggleLongTerm, id(c.TenantID)) }
func (c ShowInvite) Encode() string     { return join(verbShowInvite, id(c.TenantID)) }
func (c RotateInvite) Encode() string   { return join(verbRotateInvite, id(c.TenantID)) }
func (c ListMembers) Encode() string    { return join(verbListMembers, id(c.TenantID)) }
func (c ListAssets) Encode() string     { return join(verbListAssets, id(c.TenantID)) }
func (c NewAsset) Encode() string       { return join(verbNewAsset, id(c.TenantID)) }
func (c ShowAsset) Encode() string      { return join(verbShowAsset, id(c.AssetID)) }
func (c SaveAsset) Encode() string      { return join(verbSaveAsset, id(c.AssetID)) }
func (c DiscardAsset) Encode() string   { return join(verbDiscardAsset, id(c.AssetID)) }
func (c EditAsset) Encode() string      { return join(verbEditAsset, id(c.AssetID), string(c.Attr)) }
func (c ToggleTerm) Encode() string     { return join(verbToggleTerm, id(c.AssetID)) }
func (c PreviewGuest) Encode() string   { return join(verbPreviewGuest, id(c.AssetID)) }
func (c DeleteAsset) Encode() string    { return join(verbDeleteAsset, id(c.AssetID)) }
func (c ConfirmDeleteAsset) Encode() string {
	return join(verbConfirmDelete, id(c.AssetID))
}
func (c ShowSection) Encode() string {
	return join(verbShowSection, id(c.AssetID), string(c.Section))
}
func (c NewCustom) Encode() string { return join(verbNewCustom, id(c.AssetID), string(c.Section)) }
func (c ShowField) Encode() string {
	return join(verbShowField, id(c.AssetID), string(c.Section), c.Key)
}
func (c EditField) Encode() string {
	return join(verbEditField, id(c.AssetID), string(c.Section), c.Key)
}
func (c ClearField) Encode() string {
	return join(verbClearField, id(c.AssetID), string(c.Section), c.Key)
}
func (c DeleteCustom) Encode() string {
	return join(verbDeleteCustom, id(c.AssetID), string(c.Section), c.Key)
}
func (c ListBookings) Encode() string    { return join(verbListBookings, id(c.AssetID)) }
func (c NewBooking) Encode() string      { return join(verbNewBooking, id(c.AssetID)) }
func (c ShowBooking) Encode() string     { return join(verbShowBooking, id(c.BookingID)) }
func (c CompleteBooking) Encode() string { return join(verbCompleteBooking, id(c.BookingID)) }
func (c JoinTenant) Encode() string      { return join(verbJoinTenant, c.Code) }
func (c GuestHome) Encode() string       { return join(verbGuestHome, c.Code) }
func (c GuestSection) Encode() string {
	return join(verbGuestSection, c.Code, string(c.Section))
}

// Parse decodes a token produced by Encode.
func Parse(token string) (Command, error) {
	token = strings.TrimSpace(token)
	if token == "" || len(token) > MaxTokenLength {
		return nil, ErrMalformedCommand
	}
	parts := strings.Split(token, sep)
	verb, args := parts[0], parts[1:]

	switch verb {
	case verbMainMenu:
		return MainMenu{}, want(args, 0)
	case verbCancel:
		return Cancel{}, want(args, 0)
	case verbHelp:
		return Help{}, want(args, 0)
	case verbNewTenant:
		return NewTenant{}, want(args, 0)
	case verbListTenants:
		return ListTenants{}, want(args, 0)
	case verbSuggest:
		return Suggest{}, want(args, 0)
	case verbSkipAddress:
		return SkipAddress{}, want(args, 0)
	case verbSaveCustom:
		return SaveCustom{}, want(args, 0)
	case verbDiscardCustom:
		return DiscardCustom{}, want(args, 0)

	case verbSelectTenant, verbTenantSettings, verbToggleLongTerm, verbShowInvite,
		verbRotateInvite, verbListMembers, verbListAssets, verbNewAsset:
		if err := want(args, 1); err != nil {
			return nil, err
		}
		tid, err := parseID(args[0])
		if err != nil {
			return nil, err
		}
		return tenantCommand(verb, tid), nil

	case verbEditTenantSetting:
		if err := want(args, 2); err != nil {
			return nil, err
		}
		tid, err := parseID(args[0])
		if err != nil {
			return nil, err
		}
		setting := domain.TenantSetting(args[1])
		if !setting.Valid() {
			return nil, ErrMalformedCommand
		}
		return EditTenantSetting{TenantID: tid, Setting: setting}, nil

	case verbShowAsset, verbSaveAsset, verbDiscardAsset, verbToggleTerm, verbPreviewGuest,
		verbDeleteAsset, verbConfirmDelete, verbListBookings, verbNewBooking:
		if err := want(args, 1); err != nil {
			return nil, err
		}
		aid, err := parseID(args[0])
		if err != nil {
			return nil, err
		}
		return assetCommand(verb, aid), nil

	case verbEditAsset:
		if err := want(args, 2); err != nil {
			return nil, err
		}
		aid, err := parseID(args[0])
		if err != nil {
			return nil, err
		}
		attr := domain.AssetAttr(args[1])
		if !attr.Valid() {
			return nil, ErrMalformedCommand
		}
		return EditAsset{AssetID: aid, Attr: attr}, nil

	case verbShowSection, verbNewCustom:
		if err := want(args, 2); err != nil {
			return nil, err
		}
		aid, err := parseID(args[0])
		if err != nil {
			return nil, err
		}
		section, err := domain.ParseSection(args[1])
		if err != nil {
			return nil, ErrMalformedCommand
		}
		if verb == verbNewCustom {
			return NewCustom{AssetID: aid, Section: section}, nil
		}
		return ShowSection{AssetID: aid, Section: section}, nil

	case verbShowField, verbEditField, verbClearField, verbDeleteCustom:
		if err := want(args, 3); err != nil {
			return nil, err
		}
		aid, err := parseID(args[0])
		if err != nil {
			return nil, err
		}
		section, err := domain.ParseSection(args[1])
		if err != nil || args[2] == "" {
			return nil, ErrMalformedCommand
		}
		return fieldCommand(verb, aid, section, args[2]), nil

	case verbShowBooking, verbCompleteBooking:
		if err := want(args, 1); err != nil {
			return nil, err
		}
		bid, err := parseID(args[0])
		if err != nil {
			return nil, err
		}
		if verb == verbShowBooking {
			return ShowBooking{BookingID: bid}, nil
		}
		return CompleteBooking{BookingID: bid}, nil

	case verbJoinTenant, verbGuestHome:
		if err := want(args, 1); err != nil {
			return nil, err
		}
		if args[0] == "" {
			return nil, ErrMalformedCommand
		}
		if verb == verbJoinTenant {
			return JoinTenant{Code: args[0]}, nil
		}
		return GuestHome{Code: args[0]}, nil

	case verbGuestSection:
		if err := want(args, 2); err != nil {
			return nil, err
		}
		section, err := domain.ParseSection(args[1])
		if err != nil || args[0] == "" {
			return nil, ErrMalformedCommand
		}
		return GuestSection{Code: args[0], Section: section}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, verb)
}

// ParseStart decodes a deep link start payload. An empty payload opens the main menu.
func ParseStart(payload string) (Command, error) {
	payload = strings.TrimSpace(payload)
	switch {
	case payload == "":
		return MainMenu{}, nil
	case strings.HasPrefix(payload, access.InvitePrefix):
		code := strings.TrimPrefix(payload, access.InvitePrefix)
		if code == "" {
			return nil, ErrMalformedCommand
		}
		return JoinTenant{Code: code}, nil
	case strings.HasPrefix(payload, access.BookingPrefix):
		code := strings.TrimPrefix(payload, access.BookingPrefix)
		if code == "" {
			return nil, ErrMalformedCommand
		}
		return GuestHome{Code: code}, nil
	}
	return nil, fmt.Errorf("%w: start payload", ErrUnknownCommand)
}

// ParseSlash maps typed commands such as "/menu" to their button equivalents.
// ok is false when text is not a known slash command. A "/start" payload is
// parsed like a deep link, so a bad payload yields the same error ParseStart does.
func ParseSlash(text string) (c Command, ok bool, err error) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return nil, false, nil
	}
	// Group chats append the bot name: /menu@concierge_bot
	name, _, _ := strings.Cut(strings.TrimPrefix(fields[0], "/"), "@")
	switch strings.ToLower(name) {
	case "start":
		if len(fields) > 1 {
			c, err := ParseStart(fields[1])
			return c, true, err
		}
		return MainMenu{}, true, nil
	case "menu":
		return MainMenu{}, true, nil
	case "cancel":
		return Cancel{}, true, nil
	case "help":
		return Help{}, true, nil
	case "suggest":
		return Suggest{}, true, nil
	}
	return nil, false, nil
}

func tenantCommand(verb string, tid uuid.UUID) Command {
	switch verb {
	case verbSelectTenant:
		return SelectTenant{TenantID: tid}
	case verbTenantSettings:
		return TenantSettings{TenantID: tid}
	case verbToggleLongTerm:
		return ToggleLongTerm{TenantID: tid}
	case verbShowInvite:
		return ShowInvite{TenantID: tid}
	case verbRotateInvite:
		return RotateInvite{TenantID: tid}
	case verbListMembers:
		return ListMembers{TenantID: tid}
	case verbListAssets:
		return ListAssets{TenantID: tid}
	default:
		return NewAsset{TenantID: tid}
	}
}

func assetCommand(verb string, aid uuid.UUID) Command {
	switch verb {
	case verbShowAsset:
		return ShowAsset{AssetID: aid}
	case verbSaveAsset:
		return SaveAsset{AssetID: aid}
	case verbDiscardAsset:
		return DiscardAsset{AssetID: aid}
	case verbToggleTerm:
		return ToggleTerm{AssetID: aid}
	case verbPreviewGuest:
		return PreviewGuest{AssetID: aid}
	case verbDeleteAsset:
		return DeleteAsset{AssetID: aid}
	case verbConfirmDelete:
		return ConfirmDeleteAsset{AssetID: aid}
	case verbListBookings:
		return ListBookings{AssetID: aid}
	default:
		return NewBooking{AssetID: aid}
	}
}

func fieldCommand(verb string, aid uuid.UUID, section domain.Section, key string) Command {
	switch verb {
	case verbShowField:
		return ShowField{AssetID: aid, Section: section, Key: key}
	case verbEditField:
		return EditField{AssetID: aid, Section: section, Key: key}
	case verbClearField:
		return ClearField{AssetID: aid, Section: section, Key: key}
	default:
		return DeleteCustom{AssetID: aid, Section: section, Key: key}
	}
}

func want(args []string, n int) error {
	if len(args) != n {
		return ErrMalformedCommand
	}
	return nil
}

func join(parts ...string) string {
	return strings.Join(parts, sep)
}

// id encodes a UUID in 22 characters.
func id(u uuid.UUID) string {
	return base64.RawURLEncoding.EncodeToString(u[:])
}

func parseID(s string) (uuid.UUID, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil || len(b) != 16 {
		return uuid.Nil, ErrMalformedCommand
	}
	u, err := uuid.FromBytes(b)
	if err != nil {
		return uuid.Nil, ErrMalformedCommand
	}
	return u, nil
}
