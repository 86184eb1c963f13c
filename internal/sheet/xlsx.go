// Package sheet reads spreadsheet files into grids the diary importer can
// scan for a header row.
package sheet

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/classlog/internal/core"
)

// Sheet is one worksheet read into memory.
type Sheet struct {
	Name string
	core.Rows
}

// OpenXLSX reads the named worksheet, or the first one when sheetName is
// empty. Numeric cells formatted as dates are returned as time.Time; every
// other non-empty cell is returned as its displayed text.
func OpenXLSX(r io.Reader, sheetName string) (*Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	name, err := pickSheet(f, sheetName)
	if err != nil {
		return nil, err
	}

	shown, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", name, err)
	}
	raw, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", name, err)
	}
	if len(shown) == 0 {
		return nil, fmt.Errorf("sheet %q: %w", name, core.ErrEmptyFile)
	}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	dateStyles := make(map[int]bool)
	isDateStyle := func(styleID int) bool {
		if v, ok := dateStyles[styleID]; ok {
			return v
		}
		v := false
		if style, err := f.GetStyle(styleID); err == nil {
			v = isDateFormat(style.NumFmt, style.CustomNumFmt)
		}
		dateStyles[styleID] = v
		return v
	}

	rows := make(core.Rows, len(shown))
	for i, cells := range shown {
		out := make([]any, len(cells))
		for j, text := range cells {
			if text == "" {
				continue
			}
			out[j] = text

			rawText := text
			if i < len(raw) && j < len(raw[i]) {
				rawText = raw[i][j]
			}
			serial, err := strconv.ParseFloat(rawText, 64)
			if err != nil {
				continue
			}
			axis, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				continue
			}
			styleID, err := f.GetCellStyle(name, axis)
			if err != nil || !isDateStyle(styleID) {
				continue
			}
			if t, err := excelize.ExcelDateToTime(serial, date1904); err == nil {
				out[j] = t
			}
		}
		rows[i] = out
	}

	return &Sheet{Name: name, Rows: rows}, nil
}

func pickSheet(f *excelize.File, want string) (string, error) {
	sheets := f.GetSheetList()
	if want == "" {
		if len(sheets) == 0 {
			return "", core.ErrEmptyFile
		}
		return sheets[0], nil
	}
	for _, s := range sheets {
		if strings.EqualFold(s, want) {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", core.ErrSheetNotFound, want)
}

// Built-in number formats that render dates: 14-22 and 45-47 in every
// locale, 27-36 and 50-58 in the East Asian ones.
func isBuiltinDateFormat(id int) bool {
	switch {
	case id >= 14 && id <= 22, id >= 27 && id <= 36, id >= 45 && id <= 47, id >= 50 && id <= 58:
		return true
	}
	return false
}

var (
	quotedRegex    = regexp.MustCompile(`"[^"]*"|\[[^\]]*\]|\\.`)
	dateTokenRegex = regexp.MustCompile(`[dy]`)
)

func isDateFormat(id int, custom *string) bool {
	if custom != nil && *custom != "" {
		code := quotedRegex.ReplaceAllString(strings.ToLower(*custom), "")
		return dateTokenRegex.MatchString(code)
	}
	return isBuiltinDateFormat(id)
}
