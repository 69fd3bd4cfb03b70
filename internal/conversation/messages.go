package conversation

import (
	"errors"

	"github.com/tendant/stay-concierge/pkg/domain"
)

const (
	msgApology     = "Sorry, something went wrong. Please try again in a moment."
	msgDenied      = "This link or button is no longer valid."
	msgForbidden   = "Only owners and admins of this company can do that."
	msgStateLost   = "I lost track of what we were doing, so let's start this step over."
	msgStaleButton = "That button has expired. Here is the main menu."
	msgIdle        = "Use the menu below to pick what to do next."
	msgCancelled   = "Cancelled. Nothing was saved."
	msgTextOnly    = "Please answer with text."
	msgUseButtons  = "Please use the buttons below."

	msgWelcome = "Hi! I help you collect everything guests need to know about your apartments " +
		"and share it with them through a personal link.\n\nStart by creating your company."
	msgHelp = "Create a company, add your apartments and fill in their sections. " +
		"Then issue a booking for each guest and send them the link. " +
		"Invite colleagues with the invite link from the company menu."
	msgPickTenant = "Pick the company you want to work with."

	msgTenantName    = "Enter the name of your company."
	msgTenantCity    = "Which city does %s operate in?"
	msgTenantCreated = "Company %s created."

	msgAssetName    = "Enter the name of the apartment."
	msgAssetAddress = "Enter the address of %s, or skip this step."
	msgAssetCreated = "Apartment %s created. Save it?"
	msgAssetSaved   = "Saved."
	msgAssetKept    = "Okay. The apartment stays in your list; you can edit it any time."
	msgAssetDelete  = "Delete %s? Its booking links stop working and it leaves your list."
	msgAssetDeleted = "Apartment deleted."

	msgFieldPrompt   = "Send the content for %s: text, a photo, a video or a document."
	msgFieldSaved    = "Saved ✅"
	msgFieldCleared  = "Cleared."
	msgFieldEmpty    = "Nothing here yet."
	msgCustomName    = "Enter a name for the new field."
	msgCustomContent = "Send the content for %s: text, a photo, a video or a document."
	msgCustomConfirm = "Add the field %s?"
	msgCustomSaved   = "Field %s added."
	msgCustomDeleted = "Field deleted."

	msgBookingGuest   = "Enter the guest's name."
	msgBookingDate    = "Enter the check-in date for %s (YYYY-MM-DD or DD.MM.YYYY)."
	msgBookingIssued  = "Booking for %s created. Send this link to the guest:\n%s"
	msgBookingDone    = "Booking completed. Its link no longer works."
	msgNoBookings     = "No active bookings."
	msgSettingPrompt  = "Enter the new %s. Current value: %s"
	msgSettingSaved   = "Settings updated."
	msgAssetEdit      = "Enter the new %s. Current value: %s"
	msgInvite         = "Share this link with colleagues to add them to %s:\n%s"
	msgInviteRotated  = "The old link no longer works."
	msgJoined         = "Welcome to %s!"
	msgAlreadyMember  = "You are already a member of %s."
	msgSuggestPrompt  = "Tell us what to improve (10 to 1000 characters)."
	msgSuggestThanks  = "Thank you! We read every suggestion."
	msgGuestNoContent = "Your host has not added any information yet."
)

// validationText returns the re-prompt for a recoverable input error.
func validationText(err error) (string, bool) {
	switch {
	case errors.Is(err, domain.ErrEmptyName):
		return "This can't be empty.", true
	case errors.Is(err, domain.ErrValueTooLong):
		return "That is too long, please shorten it.", true
	case errors.Is(err, domain.ErrInvalidDate):
		return "I couldn't read that date. Use YYYY-MM-DD or DD.MM.YYYY.", true
	case errors.Is(err, domain.ErrInvalidGuestName):
		return "Please enter the guest's name.", true
	case errors.Is(err, domain.ErrInvalidTime):
		return "Use the HH:MM format, for example 14:00.", true
	case errors.Is(err, domain.ErrInvalidTimezone):
		return "Use a UTC offset such as UTC+3 or UTC-05:30.", true
	case errors.Is(err, domain.ErrEmptyContent):
		return "Send some text, a photo, a video or a document.", true
	case errors.Is(err, domain.ErrUnsupportedMedia):
		return "I can only store photos, videos and documents.", true
	case errors.Is(err, domain.ErrSuggestionLength):
		return "Suggestions must be 10 to 1000 characters long.", true
	}
	return "", false
}

var settingLabels = map[domain.TenantSetting]string{
	domain.TenantSettingName:         "company name",
	domain.TenantSettingCity:         "city",
	domain.TenantSettingGreeting:     "guest greeting",
	domain.TenantSettingTimezone:     "timezone",
	domain.TenantSettingCheckInTime:  "check-in time",
	domain.TenantSettingCheckOutTime: "check-out time",
}

var assetAttrLabels = map[domain.AssetAttr]string{
	domain.AssetAttrName:    "name",
	domain.AssetAttrAddress: "address",
}
