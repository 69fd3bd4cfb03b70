// Package catalog holds the static section catalogue: the ordered sections of an
// asset's content tree and the fixed fields each section offers.
package catalog

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/tendant/stay-concierge/pkg/domain"
)

// CustomKeyPrefix namespaces generated custom field keys. No fixed key uses it.
const CustomKeyPrefix = "custom_"

// Field is a fixed content coordinate within a section.
type Field struct {
	Key         string `json:"key"`
	DisplayName string `json:"display_name"`
	Help        string `json:"help,omitempty"`
}

// Section describes one branch of the content tree.
type Section struct {
	ID          domain.Section `json:"id"`
	DisplayName string         `json:"display_name"`
	Icon        string         `json:"icon"`
	Parent      domain.Section `json:"parent,omitempty"`
	Fields      []Field        `json:"fields"`
}

var sections = []Section{
	{
		ID:          domain.SectionCheckin,
		DisplayName: "Check-in",
		Icon:        "🧳",
		Fields: []Field{
			{Key: "checkin_time", DisplayName: "🕐 Check-in and check-out time", Help: "Tell the guest when they can arrive and when they must leave."},
			{Key: "parking", DisplayName: "🚗 Parking", Help: "Say whether the apartment has parking and where it is."},
			{Key: "wifi", DisplayName: "📶 Wi-Fi", Help: "Network name and password for the apartment Wi-Fi."},
			{Key: "door_key", DisplayName: "🔑 Door key", Help: "Explain where the key is, or whether there is a key safe and its code."},
			{Key: "how_to_find", DisplayName: "🗺️ How to find the building", Help: "Which side to approach the entrance from."},
			{Key: "how_to_reach", DisplayName: "🏢 How to reach the apartment", Help: "Walk the guest from the entrance to the door."},
			{Key: "documents", DisplayName: "📄 Check-in documents", Help: "Attach any documents the guest needs."},
			{Key: "deposit", DisplayName: "💰 Deposit", Help: "Describe the security deposit."},
			{Key: "remote_checkin", DisplayName: "🔒 Remote check-in", Help: "Explain how remote check-in works."},
			{Key: "rules", DisplayName: "📋 House rules", Help: "List the rules of the stay."},
		},
	},
	{
		ID:          domain.SectionHelp,
		DisplayName: "Help",
		Icon:        "🏠",
		Parent:      domain.SectionCheckin,
		Fields: []Field{
			{Key: "breakfast", DisplayName: "🥐 Breakfast"},
			{Key: "linen", DisplayName: "🛏 Change of linen"},
			{Key: "manager_contact", DisplayName: "📱 Contact the manager"},
			{Key: "tv_setup", DisplayName: "📺 TV setup"},
			{Key: "ac", DisplayName: "❄️ Air conditioning"},
		},
	},
	{
		ID:          domain.SectionStores,
		DisplayName: "Stores",
		Icon:        "📍",
		Parent:      domain.SectionCheckin,
		Fields: []Field{
			{Key: "shops", DisplayName: "🛒 Shops"},
			{Key: "car_rental", DisplayName: "🚗 Car rental"},
			{Key: "sport", DisplayName: "🏃 Sport"},
			{Key: "hospitals", DisplayName: "💊 Hospitals"},
		},
	},
	{
		ID:          domain.SectionRent,
		DisplayName: "Rent",
		Icon:        "📹",
		Fields: []Field{
			{Key: "uk_phones", DisplayName: "🏢 Building management phones"},
			{Key: "dispatcher", DisplayName: "👤 Dispatcher phone"},
			{Key: "emergency", DisplayName: "🆘 Emergency service phone"},
			{Key: "chats", DisplayName: "💬 Building chats"},
			{Key: "feedback_form", DisplayName: "📝 Feedback form"},
			{Key: "internet", DisplayName: "🌐 Internet"},
		},
	},
	{
		ID:          domain.SectionExperiences,
		DisplayName: "Experiences",
		Icon:        "🍿",
		Fields: []Field{
			{Key: "excursions", DisplayName: "🚌 Excursions"},
			{Key: "museums", DisplayName: "🏛️ Museums"},
			{Key: "parks", DisplayName: "🖼️ Parks"},
			{Key: "entertainment", DisplayName: "🎭 Cinema and theatre"},
		},
	},
	{
		ID:          domain.SectionCheckout,
		DisplayName: "Check-out",
		Icon:        "📦",
		Fields: []Field{
			{Key: "self_checkout", DisplayName: "🚪 Leaving without a manager"},
			{Key: "deposit_return", DisplayName: "💸 Deposit return"},
			{Key: "extend_stay", DisplayName: "📅 Extend the stay"},
			{Key: "discounts", DisplayName: "🎁 Discounts"},
		},
	},
}

var (
	bySection map[domain.Section]*Section
	byField   map[domain.Section]map[string]int
)

func init() {
	bySection = make(map[domain.Section]*Section, len(sections))
	byField = make(map[domain.Section]map[string]int, len(sections))
	for i := range sections {
		s := &sections[i]
		bySection[s.ID] = s
		idx := make(map[string]int, len(s.Fields))
		for j, f := range s.Fields {
			idx[f.Key] = j
		}
		byField[s.ID] = idx
	}
}

// Sections returns the catalogue in display order. The slice is a copy.
func Sections() []Section {
	out := make([]Section, len(sections))
	for i, s := range sections {
		s.Fields = append([]Field(nil), s.Fields...)
		out[i] = s
	}
	return out
}

// Lookup returns the catalogue entry for a section.
func Lookup(id domain.Section) (Section, bool) {
	s, ok := bySection[id]
	if !ok {
		return Section{}, false
	}
	return *s, true
}

// TopLevel returns the sections that have no parent, in display order.
func TopLevel() []domain.Section {
	var out []domain.Section
	for _, s := range sections {
		if s.Parent == "" {
			out = append(out, s.ID)
		}
	}
	return out
}

// Children returns the sections nested under id, in display order.
func Children(id domain.Section) []domain.Section {
	var out []domain.Section
	for _, s := range sections {
		if s.Parent == id {
			out = append(out, s.ID)
		}
	}
	return out
}

// FieldOf returns the fixed field with key in section.
func FieldOf(section domain.Section, key string) (Field, bool) {
	idx, ok := byField[section][key]
	if !ok {
		return Field{}, false
	}
	return bySection[section].Fields[idx], true
}

// Position returns the catalogue index of a fixed key, or -1.
func Position(section domain.Section, key string) int {
	if idx, ok := byField[section][key]; ok {
		return idx
	}
	return -1
}

// IsFixed reports whether key is part of section's fixed vocabulary.
func IsFixed(section domain.Section, key string) bool {
	_, ok := byField[section][key]
	return ok
}

// IsCustomKey reports whether key lives in the custom namespace.
func IsCustomKey(key string) bool {
	return strings.HasPrefix(key, CustomKeyPrefix) && len(key) > len(CustomKeyPrefix)
}

// NewCustomKey generates a random key in the custom namespace.
func NewCustomKey() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return CustomKeyPrefix + hex.EncodeToString(b), nil
}
