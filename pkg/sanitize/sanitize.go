// Package sanitize normalizes free text typed by managers before it is stored.
package sanitize

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tendant/stay-concierge/pkg/domain"
)

// Line returns s as a single line: control characters removed, whitespace
// trimmed and collapsed. It rejects empty results and results longer than
// limit runes.
func Line(s string, limit int) (string, error) {
	s = strings.Join(strings.Fields(removeControlChars(s)), " ")
	if s == "" {
		return "", domain.ErrEmptyName
	}
	if limit > 0 && utf8.RuneCountInString(s) > limit {
		return "", domain.ErrValueTooLong
	}
	return s, nil
}

// Text removes control characters other than line breaks and tabs, and trims
// surrounding whitespace. Line structure inside the text is kept.
func Text(s string) string {
	return strings.TrimSpace(removeControlChars(s))
}

// removeControlChars removes control characters and zero-width marks, except
// newline and tab.
func removeControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || r == '\u200b' || r == '\ufeff' {
			return -1
		}
		return r
	}, s)
}
