// Package core provides the business logic for the class diary.
//
// This package is the heart of classlog, containing all domain logic
// independent of any UI, storage or transport layer. It can be used by web
// handlers, CLI tools, or tests without modification.
//
// # Keys
//
// Every diary entry is stored under a composite key "DD/MM/YYYY -<suffix>".
// The date is a zero-padded Gregorian date; the suffix is free-form text whose
// first letter, uppercased, is the entry's category ("T" for theoretical
// sessions, "P" for practical ones). [ParseKey], [FormatKey] and [Category]
// are the only places that know the key grammar.
//
// # Record Sets
//
// A [RecordSet] maps keys to the text taught that day. Raw mappings coming from
// users, files or spreadsheets pass through [ValidateBatch] (or
// [ValidateDocument] for untyped JSON) before they are treated as canonical:
//
//	rs, errs := core.ValidateBatch(map[string]any{
//	    "5/1/24 - T": "Introduction",
//	    "bad-key":    "ignored",
//	})
//	// rs   == {"05/01/2024 -T": "Introduction"}
//	// errs == {"bad-key": "does not follow the required key pattern"}
//
// # Date Shifting
//
// [Shift] re-keys a whole record set by a number of days, months or years,
// clamping to the end of the month where needed. A [CategoryFilter] restricts
// the shift to one category; everything else passes through unchanged.
//
// # Spreadsheet Ingestion
//
// [Ingest] reads any [Grid] (see package sheet for xlsx and csv readers),
// locates the header row by fuzzy matching, extracts (date, category, text)
// triples and validates the result.
//
// # Error Handling
//
// Per-item problems never abort a batch: they are reported as counters or as
// per-key messages. Technical errors are mapped to user-friendly messages with
// [MapError]:
//
//   - KEY001-KEY004: Key and record validation
//   - SES001-SES002: Session entry errors
//   - IMP001-IMP003: Spreadsheet import errors
//   - REQ001: Malformed request bodies
//   - FILE001-FILE003, DB001-DB003: File and storage errors
package core
