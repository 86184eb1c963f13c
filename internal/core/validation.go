package core

// validation.go normalizes raw keys into canonical form and validates whole
// batches of raw records.
//
// Normalization happens in three steps:
//  1. Cleanup: typographic dashes become "-", whitespace runs collapse
//  2. Pattern match: "D/M/YY - suffix" or a bare "D/M/YY" (suffix defaults to "P")
//  3. Shape check: the result must be "DD/MM/YYYY -<suffix>" naming a real date
//
// Batch validation never aborts: every raw key ends up either in the
// normalized record set or in the error map, never both.

import (
	"regexp"
	"sort"
	"strings"
)

// BatchErrorKey is the error map key used when the input as a whole is not
// a record set.
const BatchErrorKey = "__batch__"

// DefaultSuffix is used when a raw key has no suffix.
const DefaultSuffix = "P"

var (
	rawKeyRegex       = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{2,4})\s*-\s*(.*)$`)
	rawDateRegex      = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{2,4})$`)
	canonicalKeyRegex = regexp.MustCompile(`^\d{2}/\d{2}/\d{4} -.+$`)
)

var dashReplacer = strings.NewReplacer(
	"–", "-", // en dash
	"—", "-", // em dash
	"−", "-", // minus sign
)

// NormalizeKey converts a raw key into its canonical form.
// Returns ErrKeyPattern if the key is neither "date - suffix" nor a bare
// date, and ErrKeyShape if the normalized result is not a canonical key.
func NormalizeKey(raw string) (string, error) {
	s := dashReplacer.Replace(raw)
	s = strings.Join(strings.Fields(s), " ")

	var day, month, year, suffix string
	if m := rawKeyRegex.FindStringSubmatch(s); m != nil {
		day, month, year = m[1], m[2], m[3]
		suffix = strings.TrimSpace(m[4])
		if suffix == "" {
			suffix = DefaultSuffix
		}
	} else if m := rawDateRegex.FindStringSubmatch(s); m != nil {
		day, month, year = m[1], m[2], m[3]
		suffix = DefaultSuffix
	} else {
		return "", ErrKeyPattern
	}

	key := padLeft(day, 2) + "/" + padLeft(month, 2) + "/" + expandYear(year) + " -" + suffix
	if !canonicalKeyRegex.MatchString(key) {
		return "", ErrKeyShape
	}
	if _, _, ok := ParseKey(key); !ok {
		return "", ErrKeyShape
	}
	return key, nil
}

// expandYear prefixes any year token shorter than four digits with "20".
// "94" becomes "2094", not "1994".
func expandYear(y string) string {
	if len(y) < 4 {
		return "20" + y
	}
	return y
}

func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

// rawRecord is one input pair in processing order.
type rawRecord struct {
	key   string
	value any
}

// ValidateBatch normalizes a raw mapping. Raw keys are processed in sorted
// order, so when two raw keys collapse to one canonical key the
// lexicographically later raw key is the one rejected.
func ValidateBatch(raw map[string]any) (RecordSet, ValidationErrors) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	records := make([]rawRecord, len(keys))
	for i, k := range keys {
		records[i] = rawRecord{key: k, value: raw[k]}
	}
	return validateRecords(records)
}

// ValidateEntries normalizes entries in the given order; on duplicates the
// later entry is rejected.
func ValidateEntries(entries []Entry) (RecordSet, ValidationErrors) {
	records := make([]rawRecord, len(entries))
	for i, e := range entries {
		records[i] = rawRecord{key: e.Key, value: e.Text}
	}
	return validateRecords(records)
}

// ValidateDocument validates an untyped document such as decoded JSON.
// Anything that is not a mapping of key to value fails as a whole under
// BatchErrorKey.
func ValidateDocument(doc any) (RecordSet, ValidationErrors) {
	switch d := doc.(type) {
	case map[string]any:
		return ValidateBatch(d)
	case map[string]string:
		return ValidateBatch(toAnyMap(d))
	case RecordSet:
		return ValidateBatch(toAnyMap(d))
	default:
		return RecordSet{}, ValidationErrors{BatchErrorKey: ErrNotMapping.Error()}
	}
}

func toAnyMap[M ~map[string]string](m M) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func validateRecords(records []rawRecord) (RecordSet, ValidationErrors) {
	result := make(RecordSet, len(records))
	errs := make(ValidationErrors)

	for _, r := range records {
		text, ok := r.value.(string)
		if !ok {
			errs[r.key] = ErrNotText.Error()
			continue
		}

		key, err := NormalizeKey(r.key)
		if err != nil {
			errs[r.key] = err.Error()
			continue
		}

		if _, exists := result[key]; exists {
			errs[r.key] = ErrDuplicateKey.Error()
			continue
		}
		result[key] = text
	}

	return result, errs
}
