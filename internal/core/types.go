package core

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"
)

// RecordSet maps canonical keys to entry text.
type RecordSet map[string]string

// Entry is a single key/text pair. Slices of entries are used wherever
// iteration order matters.
type Entry struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// SortedKeys returns the keys in lexicographic order. Canonical keys lead
// with the day, so this is not chronological; use SortedByDate for display.
func (rs RecordSet) SortedKeys() []string {
	keys := make([]string, 0, len(rs))
	for k := range rs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Entries returns the record set as entries in lexicographic key order.
func (rs RecordSet) Entries() []Entry {
	keys := rs.SortedKeys()
	out := make([]Entry, len(keys))
	for i, k := range keys {
		out[i] = Entry{Key: k, Text: rs[k]}
	}
	return out
}

// SortedByDate returns entries ordered by decoded date, then by suffix.
// Keys that do not parse are placed last, in lexicographic order.
func (rs RecordSet) SortedByDate() []Entry {
	entries := rs.Entries()
	sort.SliceStable(entries, func(i, j int) bool {
		di, si, oki := ParseKey(entries[i].Key)
		dj, sj, okj := ParseKey(entries[j].Key)
		switch {
		case oki && !okj:
			return true
		case !oki:
			return false
		}
		if c := di.Compare(dj); c != 0 {
			return c < 0
		}
		return si < sj
	})
	return entries
}

// Clone returns an independent copy of the record set.
func (rs RecordSet) Clone() RecordSet {
	out := make(RecordSet, len(rs))
	for k, v := range rs {
		out[k] = v
	}
	return out
}

// FromEntries builds a record set; later entries win on equal keys.
func FromEntries(entries []Entry) RecordSet {
	rs := make(RecordSet, len(entries))
	for _, e := range entries {
		rs[e.Key] = e.Text
	}
	return rs
}

// Date is a Gregorian calendar date without time or zone.
type Date struct {
	Year  int
	Month int
	Day   int
}

// NewDate returns the date for the given triple, or false if it does not
// name a real calendar day (e.g. 31/04).
func NewDate(year, month, day int) (Date, bool) {
	if year < 1 || year > 9999 || month < 1 || month > 12 || day < 1 {
		return Date{}, false
	}
	if day > LastDayOfMonth(year, month) {
		return Date{}, false
	}
	return Date{Year: year, Month: month, Day: day}, true
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: int(m), Day: d}
}

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or
// after o.
func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return cmpInt(d.Year, o.Year)
	case d.Month != o.Month:
		return cmpInt(d.Month, o.Month)
	default:
		return cmpInt(d.Day, o.Day)
	}
}

// String renders the date as DD/MM/YYYY.
func (d Date) String() string {
	return fmt.Sprintf("%02d/%02d/%04d", d.Day, d.Month, d.Year)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Unit selects the calendar field a shift operates on.
type Unit int

const (
	UnitDays Unit = iota
	UnitMonths
	UnitYears
)

// String returns the lowercase plural name of the unit.
func (u Unit) String() string {
	switch u {
	case UnitDays:
		return "days"
	case UnitMonths:
		return "months"
	case UnitYears:
		return "years"
	default:
		return fmt.Sprintf("unit(%d)", int(u))
	}
}

// ParseUnit converts a user-supplied unit name to a Unit.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "day", "days", "d":
		return UnitDays, nil
	case "month", "months", "m":
		return UnitMonths, nil
	case "year", "years", "y":
		return UnitYears, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidUnit, s)
	}
}

// CategoryFilter restricts an operation to all entries or to one category.
// The zero value matches every entry.
type CategoryFilter struct {
	only     bool
	category rune
}

// FilterAll matches every category.
func FilterAll() CategoryFilter {
	return CategoryFilter{}
}

// OnlyCategory matches entries whose category letter equals c (case-insensitive).
func OnlyCategory(c rune) CategoryFilter {
	return CategoryFilter{only: true, category: unicode.ToUpper(c)}
}

// ParseCategoryFilter converts a user-supplied filter. An empty string or
// "all" yields FilterAll; anything else filters on its first letter.
func ParseCategoryFilter(s string) CategoryFilter {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return FilterAll()
	}
	return OnlyCategory(Category(s))
}

// Allows reports whether an entry with the given category passes the filter.
func (f CategoryFilter) Allows(category rune) bool {
	if !f.only {
		return true
	}
	if category == ' ' {
		return false
	}
	return category == f.category
}

// IsAll reports whether the filter matches every category.
func (f CategoryFilter) IsAll() bool {
	return !f.only
}

// String returns "all" or the category letter.
func (f CategoryFilter) String() string {
	if !f.only {
		return "all"
	}
	return string(f.category)
}

// ShiftStats summarizes a bulk date shift.
type ShiftStats struct {
	Changed          int `json:"changed"`
	Invalid          int `json:"invalid"`
	Filtered         int `json:"filtered"`
	OverwrittenInLot int `json:"overwritten_in_lot"`
}

// ValidationErrors maps each rejected raw key to the reason it was rejected.
type ValidationErrors map[string]string

// IngestStats summarizes a spreadsheet import.
type IngestStats struct {
	Imported         int              `json:"imported"`
	Skipped          int              `json:"skipped"`
	OverwrittenInLot int              `json:"overwritten_in_lot"`
	Valid            int              `json:"valid"`
	Errors           ValidationErrors `json:"errors,omitempty"`
}
