package core

import "sort"

// Shift re-keys entries by moving every date by amount units.
//
// Entries whose key does not parse are copied unchanged and counted as
// Invalid; entries excluded by the filter are copied unchanged and counted as
// Filtered. Shifted keys keep their full original suffix. When a write lands
// on a key already present in the result, the later write wins and
// OverwrittenInLot is incremented.
//
// The result is sorted by key. Shift never fails and never drops an entry
// other than through a counted collision.
func Shift(entries []Entry, unit Unit, amount int, filter CategoryFilter) ([]Entry, ShiftStats) {
	var stats ShiftStats
	result := make(map[string]string, len(entries))

	put := func(key, text string) {
		if _, exists := result[key]; exists {
			stats.OverwrittenInLot++
		}
		result[key] = text
	}

	for _, e := range entries {
		date, suffix, ok := ParseKey(e.Key)
		if !ok {
			stats.Invalid++
			put(e.Key, e.Text)
			continue
		}

		if !filter.Allows(Category(suffix)) {
			stats.Filtered++
			put(e.Key, e.Text)
			continue
		}

		stats.Changed++
		put(FormatKey(Add(date, unit, amount), suffix), e.Text)
	}

	out := make([]Entry, 0, len(result))
	for k, v := range result {
		out = append(out, Entry{Key: k, Text: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })

	return out, stats
}

// ShiftRecordSet applies Shift to a record set, visiting keys in sorted order.
func ShiftRecordSet(rs RecordSet, unit Unit, amount int, filter CategoryFilter) (RecordSet, ShiftStats) {
	shifted, stats := Shift(rs.Entries(), unit, amount, filter)
	return FromEntries(shifted), stats
}
