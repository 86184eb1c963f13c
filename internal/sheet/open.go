package sheet

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/classlog/internal/core"
)

// Open reads an uploaded spreadsheet, choosing the reader from the file
// extension. sheetName only applies to workbooks.
func Open(filename string, r io.Reader, sheetName string) (core.Grid, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		s, err := OpenXLSX(r, sheetName)
		if err != nil {
			return nil, err
		}
		return s, nil
	case ".csv", ".txt":
		rows, err := ReadCSV(r)
		if err != nil {
			return nil, err
		}
		return rows, nil
	default:
		return nil, fmt.Errorf("%w: %q", core.ErrUnsupportedFormat, filepath.Ext(filename))
	}
}
