package command

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/tendant/stay-concierge/pkg/domain"
)

func TestEncodeParse(t *testing.T) {
	tid := uuid.New()
	aid := uuid.New()
	bid := uuid.New()
	code := "Zx3_kLm9-QwErTyUiOpAsDfGhJkLzXcV"

	commands := []Command{
		MainMenu{},
		Cancel{},
		NewTenant{},
		SkipAddress{},
		SelectTenant{TenantID: tid},
		EditTenantSetting{TenantID: tid, Setting: domain.TenantSettingCheckOutTime},
		NewAsset{TenantID: tid},
		DiscardAsset{AssetID: aid},
		EditAsset{AssetID: aid, Attr: domain.AssetAttrAddress},
		DeleteAsset{AssetID: aid},
		ConfirmDeleteAsset{AssetID: aid},
		ShowSection{AssetID: aid, Section: domain.SectionExperiences},
		NewCustom{AssetID: aid, Section: domain.SectionRent},
		EditField{AssetID: aid, Section: domain.SectionCheckin, Key: "remote_checkin"},
		DeleteCustom{AssetID: aid, Section: domain.SectionExperiences, Key: "custom_0123456789abcdef"},
		CompleteBooking{BookingID: bid},
		GuestHome{Code: code},
		GuestSection{Code: code, Section: domain.SectionExperiences},
	}

	for _, c := range commands {
		token := c.Encode()
		if len(token) > MaxTokenLength {
			t.Errorf("%T token is %d bytes, want at most %d", c, len(token), MaxTokenLength)
		}
		got, err := Parse(token)
		if err != nil {
			t.Errorf("Parse(%q) error = %v", token, err)
			continue
		}
		if got != c {
			t.Errorf("Parse(%q) = %#v, want %#v", token, got, c)
		}
	}
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		expected error
	}{
		{name: "empty", token: "", expected: ErrMalformedCommand},
		{name: "unknown verb", token: "zz:1", expected: ErrUnknownCommand},
		{name: "missing id", token: "av", expected: ErrMalformedCommand},
		{name: "bad id", token: "av:not-an-id", expected: ErrMalformedCommand},
		{name: "bad section", token: "sv:" + id(uuid.New()) + ":garden", expected: ErrMalformedCommand},
		{name: "bad setting", token: "te:" + id(uuid.New()) + ":color", expected: ErrMalformedCommand},
		{name: "empty key", token: "fe:" + id(uuid.New()) + ":checkin:", expected: ErrMalformedCommand},
		{name: "extra args", token: "menu:x", expected: ErrMalformedCommand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.token)
			if !errors.Is(err, tt.expected) {
				t.Errorf("Parse(%q) error = %v, want %v", tt.token, err, tt.expected)
			}
		})
	}
}

func TestParseStart(t *testing.T) {
	tests := []struct {
		payload string
		want    Command
		wantErr bool
	}{
		{payload: "", want: MainMenu{}},
		{payload: "join_abc123", want: JoinTenant{Code: "abc123"}},
		{payload: "guest_xyz-789", want: GuestHome{Code: "xyz-789"}},
		{payload: "join_", wantErr: true},
		{payload: "promo_2025", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseStart(tt.payload)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseStart(%q) error = %v, wantErr %v", tt.payload, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseStart(%q) = %#v, want %#v", tt.payload, got, tt.want)
		}
	}
}

func TestParseSlash(t *testing.T) {
	tests := []struct {
		text    string
		want    Command
		ok      bool
		wantErr error
	}{
		{text: "/menu", want: MainMenu{}, ok: true},
		{text: "/cancel@concierge_bot", want: Cancel{}, ok: true},
		{text: "/start guest_abc", want: GuestHome{Code: "abc"}, ok: true},
		{text: "/start", want: MainMenu{}, ok: true},
		{text: "/start bogus", ok: true, wantErr: ErrUnknownCommand},
		{text: "/start guest_", ok: true, wantErr: ErrMalformedCommand},
		{text: "/Suggest", want: Suggest{}, ok: true},
		{text: "/unknown", ok: false},
		{text: "hello", ok: false},
	}

	for _, tt := range tests {
		got, ok, err := ParseSlash(tt.text)
		if ok != tt.ok {
			t.Errorf("ParseSlash(%q) ok = %v, want %v", tt.text, ok, tt.ok)
			continue
		}
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("ParseSlash(%q) error = %v, want %v", tt.text, err, tt.wantErr)
			continue
		}
		if err == nil && ok && got != tt.want {
			t.Errorf("ParseSlash(%q) = %#v, want %#v", tt.text, got, tt.want)
		}
	}
}
