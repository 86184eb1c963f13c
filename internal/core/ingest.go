package core

// ingest.go turns a spreadsheet-like grid into diary records.
//
// The flow is:
//  1. DetectHeader scans the first rows for the date, category and text columns
//  2. ExtractRows reads every row below the header into raw entries
//  3. ValidateEntries normalizes the raw entries into a record set
//
// Rows with an unreadable date, an unknown category or empty text are
// counted as skipped; they never fail the import. A readable date that is not
// a real day (31/02, a three-digit year) still forms a key and is reported by
// the validator in IngestStats.Errors.

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultHeaderScanRows is how many rows DetectHeader inspects by default.
const DefaultHeaderScanRows = 10

// Grid is a tabular source addressed by 1-based row and column. Cell returns
// nil for absent cells; values may be time.Time, numbers or strings.
type Grid interface {
	Cell(row, col int) any
	MaxRow() int
	MaxCol() int
}

// Rows is an in-memory Grid. Rows[0][0] is cell (1, 1).
type Rows [][]any

func (r Rows) Cell(row, col int) any {
	if row < 1 || row > len(r) {
		return nil
	}
	cells := r[row-1]
	if col < 1 || col > len(cells) {
		return nil
	}
	return cells[col-1]
}

func (r Rows) MaxRow() int { return len(r) }

func (r Rows) MaxCol() int {
	n := 0
	for _, cells := range r {
		n = max(n, len(cells))
	}
	return n
}

// HeaderMatch locates the header row and the three columns of interest.
// All positions are 1-based.
type HeaderMatch struct {
	Row      int  `json:"row"`
	Date     int  `json:"date_col"`
	Category int  `json:"category_col"`
	Text     int  `json:"text_col"`
	Fallback bool `json:"fallback"`
}

// FallbackHeader is used when no scanned row names all three columns.
var FallbackHeader = HeaderMatch{Row: 1, Date: 1, Category: 2, Text: 4, Fallback: true}

var (
	dateHeaders = map[string]bool{"data": true, "dia": true}
	textHeaders = map[string]bool{
		"materia lecionada":  true,
		"materia":            true,
		"conteudo":           true,
		"conteudo lecionado": true,
		"descricao":          true,
	}
)

const categoryHeaderPrefix = "modalidade"

// DetectHeader scans up to maxScanRows rows from the top and returns the first
// row that names a date, a category and a text column. When a row names the
// same column kind twice, the rightmost one is used. If no row qualifies,
// FallbackHeader is returned.
func DetectHeader(g Grid, maxScanRows int) HeaderMatch {
	if maxScanRows <= 0 {
		maxScanRows = DefaultHeaderScanRows
	}
	lastRow := min(maxScanRows, g.MaxRow())
	maxCol := g.MaxCol()

	for row := 1; row <= lastRow; row++ {
		var dateCol, catCol, textCol int
		for col := 1; col <= maxCol; col++ {
			h := NormalizeHeader(cellText(g.Cell(row, col)))
			if h == "" {
				continue
			}
			switch {
			case dateHeaders[h]:
				dateCol = col
			case strings.HasPrefix(h, categoryHeaderPrefix):
				catCol = col
			case textHeaders[h]:
				textCol = col
			}
		}
		if dateCol > 0 && catCol > 0 && textCol > 0 {
			return HeaderMatch{Row: row, Date: dateCol, Category: catCol, Text: textCol}
		}
	}

	return FallbackHeader
}

var (
	cellDateStrip = regexp.MustCompile(`[^\d/]`)
	cellDateRegex = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{2,4})$`)

	cellDateCanonical = regexp.MustCompile(`^(\d{2})/(\d{2})/(\d{4})$`)
)

// cellDateText renders a date cell as "DD/MM/YYYY". Native dates are
// formatted directly; anything else is reduced to digits and slashes and read
// as D/M/Y with a year of two to four digits. Years shorter than four digits
// get a "20" prefix, so a three-digit year yields a five-digit one. The
// result is not checked against the calendar; the key validator does that.
func cellDateText(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case time.Time:
		if x.IsZero() {
			return "", false
		}
		return DateOf(x).String(), true
	case Date:
		return x.String(), true
	}

	s := cellDateStrip.ReplaceAllString(cellText(v), "")
	m := cellDateRegex.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return padLeft(m[1], 2) + "/" + padLeft(m[2], 2) + "/" + expandYear(m[3]), true
}

// ParseCellDate reads a calendar date from a spreadsheet cell, using the same
// rules as the importer. Three-digit years and impossible days are rejected.
func ParseCellDate(v any) (Date, bool) {
	text, ok := cellDateText(v)
	if !ok {
		return Date{}, false
	}
	m := cellDateCanonical.FindStringSubmatch(text)
	if m == nil {
		return Date{}, false
	}
	d, _ := strconv.Atoi(m[1])
	mo, _ := strconv.Atoi(m[2])
	y, _ := strconv.Atoi(m[3])
	return NewDate(y, mo, d)
}

// ParseCellCategory recognizes "Teórica"/"Prática" style cells and returns
// 'T' or 'P'.
func ParseCellCategory(v any) (rune, bool) {
	s := NormalizeHeader(cellText(v))
	switch {
	case strings.Contains(s, "teor"):
		return 'T', true
	case strings.Contains(s, "prat"):
		return 'P', true
	default:
		return 0, false
	}
}

// ExtractRows reads every row below the header. A repeated key overwrites
// the earlier row and is counted in OverwrittenInLot. Entries are returned in
// order of first appearance.
func ExtractRows(g Grid, h HeaderMatch) ([]Entry, IngestStats) {
	var stats IngestStats
	var entries []Entry
	index := make(map[string]int)

	for row := h.Row + 1; row <= g.MaxRow(); row++ {
		date, ok := cellDateText(g.Cell(row, h.Date))
		if !ok {
			stats.Skipped++
			continue
		}
		cat, ok := ParseCellCategory(g.Cell(row, h.Category))
		if !ok {
			stats.Skipped++
			continue
		}
		text := strings.TrimSpace(cellText(g.Cell(row, h.Text)))
		if text == "" {
			stats.Skipped++
			continue
		}

		key := date + " -" + string(cat)
		if i, exists := index[key]; exists {
			entries[i].Text = text
			stats.OverwrittenInLot++
		} else {
			index[key] = len(entries)
			entries = append(entries, Entry{Key: key, Text: text})
		}
		stats.Imported++
	}

	return entries, stats
}

// Ingest detects the header, extracts rows and validates the result.
func Ingest(g Grid, maxScanRows int) (RecordSet, IngestStats, HeaderMatch) {
	header := DetectHeader(g, maxScanRows)
	entries, stats := ExtractRows(g, header)

	rs, errs := ValidateEntries(entries)
	stats.Valid = len(rs)
	if len(errs) > 0 {
		stats.Errors = errs
	}
	return rs, stats, header
}
