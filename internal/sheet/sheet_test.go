package sheet

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/classlog/internal/core"
)

func buildWorkbook(t *testing.T, build func(f *excelize.File)) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })
	build(f)

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer failed: %v", err)
	}
	return buf
}

func setRow(t *testing.T, f *excelize.File, sheet, cell string, values ...any) {
	t.Helper()
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		t.Fatalf("SetSheetRow %s!%s failed: %v", sheet, cell, err)
	}
}

func TestOpenXLSX_DatesAndText(t *testing.T) {
	buf := buildWorkbook(t, func(f *excelize.File) {
		setRow(t, f, "Sheet1", "A1", "Data", "Modalidade", "Matéria", "Carga")
		setRow(t, f, "Sheet1", "A2", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), "Teórica", "Intro", 2)
		setRow(t, f, "Sheet1", "A3", "06/01/2024", "Prática", "Lab")
	})

	s, err := OpenXLSX(buf, "")
	if err != nil {
		t.Fatalf("OpenXLSX failed: %v", err)
	}

	if s.Name != "Sheet1" || s.MaxRow() != 3 {
		t.Errorf("sheet = %q with %d rows", s.Name, s.MaxRow())
	}

	cell, ok := s.Cell(2, 1).(time.Time)
	if !ok {
		t.Fatalf("date cell = %#v, want time.Time", s.Cell(2, 1))
	}
	if got := core.DateOf(cell); got != (core.Date{Year: 2024, Month: 1, Day: 5}) {
		t.Errorf("date cell = %v", got)
	}
	if got := s.Cell(2, 4); got != "2" {
		t.Errorf("plain number cell = %#v, want \"2\"", got)
	}
	if got := s.Cell(3, 1); got != "06/01/2024" {
		t.Errorf("text date cell = %#v", got)
	}
	if got := s.Cell(3, 4); got != nil {
		t.Errorf("missing cell = %#v, want nil", got)
	}

	rs, stats, header := core.Ingest(s, core.DefaultHeaderScanRows)
	if header.Fallback || stats.Valid != 2 {
		t.Errorf("ingest header = %+v, stats = %+v", header, stats)
	}
	if rs["05/01/2024 -T"] != "Intro" || rs["06/01/2024 -P"] != "Lab" {
		t.Errorf("ingested = %v", rs)
	}
}

func TestOpenXLSX_NamedSheet(t *testing.T) {
	buf := buildWorkbook(t, func(f *excelize.File) {
		if _, err := f.NewSheet("Diário"); err != nil {
			t.Fatalf("NewSheet failed: %v", err)
		}
		setRow(t, f, "Sheet1", "A1", "ignored")
		setRow(t, f, "Diário", "A1", "Data", "Modalidade", "Conteúdo")
	})

	s, err := OpenXLSX(buf, "diário")
	if err != nil {
		t.Fatalf("OpenXLSX failed: %v", err)
	}
	if s.Name != "Diário" || s.Cell(1, 3) != "Conteúdo" {
		t.Errorf("picked sheet %q: %v", s.Name, s.Rows)
	}
}

func TestOpenXLSX_SheetNotFound(t *testing.T) {
	buf := buildWorkbook(t, func(f *excelize.File) {
		setRow(t, f, "Sheet1", "A1", "x")
	})

	if _, err := OpenXLSX(buf, "Missing"); !errors.Is(err, core.ErrSheetNotFound) {
		t.Errorf("err = %v, want ErrSheetNotFound", err)
	}
}

func TestOpenXLSX_EmptySheet(t *testing.T) {
	buf := buildWorkbook(t, func(*excelize.File) {})

	if _, err := OpenXLSX(buf, ""); !errors.Is(err, core.ErrEmptyFile) {
		t.Errorf("err = %v, want ErrEmptyFile", err)
	}
}

func TestOpenXLSX_NotAWorkbook(t *testing.T) {
	if _, err := OpenXLSX(strings.NewReader("Data;Modalidade"), ""); err == nil {
		t.Error("expected error for non-zip input")
	}
}

func TestIsDateFormat(t *testing.T) {
	custom := func(s string) *string { return &s }

	tests := []struct {
		name   string
		id     int
		custom *string
		want   bool
	}{
		{"general", 0, nil, false},
		{"short date", 14, nil, true},
		{"date time", 22, nil, true},
		{"percent", 10, nil, false},
		{"custom date", 164, custom("dd/mm/yyyy"), true},
		{"custom time only", 165, custom("hh:mm"), false},
		{"quoted letters ignored", 166, custom(`0 "days"`), false},
		{"locale prefix", 167, custom("[$-416]d/m/yy;@"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isDateFormat(tt.id, tt.custom); got != tt.want {
				t.Errorf("isDateFormat(%d) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestReadCSV(t *testing.T) {
	t.Run("semicolon with bom", func(t *testing.T) {
		in := "\xEF\xBB\xBFData;Modalidade;Matéria\n05/01/2024;Teórica;\"Intro; parte 1\"\n"
		rows, err := ReadCSV(strings.NewReader(in))
		if err != nil {
			t.Fatalf("ReadCSV failed: %v", err)
		}
		if rows.Cell(1, 1) != "Data" {
			t.Errorf("BOM not stripped: %q", rows.Cell(1, 1))
		}
		if rows.Cell(2, 3) != "Intro; parte 1" {
			t.Errorf("quoted field = %q", rows.Cell(2, 3))
		}
	})

	t.Run("comma ragged rows", func(t *testing.T) {
		in := "title\nData,Modalidade,,Matéria\n05/01/2024,Teórica,,Intro\n"
		rows, err := ReadCSV(strings.NewReader(in))
		if err != nil {
			t.Fatalf("ReadCSV failed: %v", err)
		}
		if rows.MaxRow() != 3 || rows.MaxCol() != 4 {
			t.Errorf("shape = %dx%d", rows.MaxRow(), rows.MaxCol())
		}
		if rows.Cell(3, 3) != nil {
			t.Errorf("empty field = %#v, want nil", rows.Cell(3, 3))
		}
	})

	t.Run("title line before semicolons", func(t *testing.T) {
		in := "Diário de classe\nData;Modalidade;Matéria\n"
		rows, err := ReadCSV(strings.NewReader(in))
		if err != nil {
			t.Fatalf("ReadCSV failed: %v", err)
		}
		if rows.MaxCol() != 3 || rows.Cell(2, 2) != "Modalidade" {
			t.Errorf("rows = %v", rows)
		}
	})

	t.Run("empty", func(t *testing.T) {
		if _, err := ReadCSV(strings.NewReader(" \n")); !errors.Is(err, core.ErrEmptyFile) {
			t.Errorf("err = %v, want ErrEmptyFile", err)
		}
	})
}

func TestOpen_Dispatch(t *testing.T) {
	g, err := Open("Diario.CSV", strings.NewReader("a,b\n"), "")
	if err != nil {
		t.Fatalf("Open csv failed: %v", err)
	}
	if _, ok := g.(core.Rows); !ok {
		t.Errorf("csv grid type = %T", g)
	}

	if _, err := Open("notes.pdf", strings.NewReader("x"), ""); !errors.Is(err, core.ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
}
