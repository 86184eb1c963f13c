package core

// key.go is the single source of truth for the composite key grammar:
//
//	DD/MM/YYYY -<suffix>
//
// Parsing is lenient about surrounding whitespace and spaces around the dash;
// formatting always emits the canonical form with no space after the dash.

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// keyRegex matches a key with exact-width date fields followed by at least
// one character after the dash.
var keyRegex = regexp.MustCompile(`^\s*(\d{2})/(\d{2})/(\d{4})\s*-(.+)$`)

// ParseKey splits a key into its date and trimmed suffix. It returns false if
// the key does not match the grammar or the date is not a calendar day.
// "01/03/2024 -" has nothing after the dash and is rejected; "01/03/2024 - "
// parses with an empty suffix.
func ParseKey(key string) (Date, string, bool) {
	m := keyRegex.FindStringSubmatch(key)
	if m == nil {
		return Date{}, "", false
	}

	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])

	d, ok := NewDate(year, month, day)
	if !ok {
		return Date{}, "", false
	}
	return d, strings.TrimSpace(m[4]), true
}

// Category returns the uppercased first letter of the suffix, or a space if
// the suffix is empty. A space never matches a category filter.
func Category(suffix string) rune {
	suffix = strings.TrimSpace(suffix)
	if suffix == "" {
		return ' '
	}
	r, _ := utf8.DecodeRuneInString(suffix)
	return unicode.ToUpper(r)
}

// FormatKey renders a key. The suffix is emitted exactly as given.
func FormatKey(d Date, suffix string) string {
	return fmt.Sprintf("%02d/%02d/%04d -%s", d.Day, d.Month, d.Year, suffix)
}

// KeyCategory returns the category of a key, or false if it does not parse.
func KeyCategory(key string) (rune, bool) {
	_, suffix, ok := ParseKey(key)
	if !ok {
		return 0, false
	}
	return Category(suffix), true
}
