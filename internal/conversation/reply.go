package conversation

import (
	"strings"

	"github.com/tendant/stay-concierge/internal/command"
	"github.com/tendant/stay-concierge/pkg/domain"
)

// EventKind classifies an inbound event.
type EventKind string

const (
	EventText    EventKind = "text"
	EventMedia   EventKind = "media"
	EventCommand EventKind = "command"
	EventStart   EventKind = "start"
)

// Valid reports whether k is a known event kind.
func (k EventKind) Valid() bool {
	switch k {
	case EventText, EventMedia, EventCommand, EventStart:
		return true
	}
	return false
}

// InboundMedia is an attachment received from the channel.
type InboundMedia struct {
	Kind    domain.MediaKind `json:"kind"`
	Ref     string           `json:"ref"`
	Caption string           `json:"caption,omitempty"`
}

// Event is one inbound turn from a user.
type Event struct {
	UserID       string        `json:"user_id"`
	DisplayName  string        `json:"display_name,omitempty"`
	Username     string        `json:"username,omitempty"`
	Kind         EventKind     `json:"kind"`
	Text         string        `json:"text,omitempty"`
	Media        *InboundMedia `json:"media,omitempty"`
	Command      string        `json:"command,omitempty"`
	StartPayload string        `json:"start_payload,omitempty"`
}

// Reply is what the adapter renders back to the user.
type Reply struct {
	Text  string        `json:"text"`
	View  *View         `json:"view,omitempty"`
	Media *domain.Media `json:"media,omitempty"`
}

// ViewKind tells the adapter which screen a reply represents.
type ViewKind string

const (
	ViewMainMenu       ViewKind = "main_menu"
	ViewTenantList     ViewKind = "tenant_list"
	ViewTenantSettings ViewKind = "tenant_settings"
	ViewInvite         ViewKind = "invite"
	ViewMembers        ViewKind = "members"
	ViewAssetList      ViewKind = "asset_list"
	ViewAsset          ViewKind = "asset"
	ViewAssetConfirm   ViewKind = "asset_confirm"
	ViewAssetDelete    ViewKind = "asset_delete"
	ViewSection        ViewKind = "section"
	ViewField          ViewKind = "field"
	ViewCustomConfirm  ViewKind = "custom_confirm"
	ViewBookingList    ViewKind = "booking_list"
	ViewBooking        ViewKind = "booking"
	ViewGuestHome      ViewKind = "guest_home"
	ViewGuestSection   ViewKind = "guest_section"
	ViewGuestPreview   ViewKind = "guest_preview"
	ViewPrompt         ViewKind = "prompt"
)

// View is a serializable screen description. Layout and pagination are the adapter's job.
type View struct {
	Kind    ViewKind `json:"kind"`
	Items   []Item   `json:"items,omitempty"`
	Buttons []Button `json:"buttons,omitempty"`
}

// Button carries either a command token or an external URL.
type Button struct {
	Label   string `json:"label"`
	Command string `json:"command,omitempty"`
	URL     string `json:"url,omitempty"`
	// Done marks a filled field or a completed step.
	Done bool `json:"done,omitempty"`
}

// Item is one piece of content to display.
type Item struct {
	Title string        `json:"title"`
	Text  string        `json:"text,omitempty"`
	Media *domain.Media `json:"media,omitempty"`
}

func btn(label string, c command.Command) Button {
	return Button{Label: label, Command: c.Encode()}
}

func view(kind ViewKind, buttons ...Button) *View {
	return &View{Kind: kind, Buttons: buttons}
}

func lines(parts ...string) string {
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n")
}

// prefixed puts a notice above a reply's own text.
func prefixed(notice string, r Reply) Reply {
	if notice == "" {
		return r
	}
	if r.Text == "" {
		r.Text = notice
		return r
	}
	r.Text = notice + "\n\n" + r.Text
	return r
}
