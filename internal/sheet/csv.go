package sheet

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/classlog/internal/core"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadCSV reads a delimited text export. The delimiter is ';' when the first
// line holding any delimiter has more semicolons than commas, otherwise ','.
// Rows may have differing lengths and empty fields are returned as nil.
func ReadCSV(r io.Reader) (core.Rows, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	first, err := br.Peek(4096)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(bytes.TrimSpace(first)) == 0 {
		return nil, core.ErrEmptyFile
	}

	reader := csv.NewReader(br)
	reader.Comma = sniffDelimiter(first)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	var rows core.Rows
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		row := make([]any, len(record))
		for i, field := range record {
			if strings.TrimSpace(field) != "" {
				row[i] = field
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// sniffDelimiter skips title lines such as "Diário de classe" that carry no
// delimiter at all.
func sniffDelimiter(sample []byte) rune {
	for _, line := range bytes.Split(sample, []byte{'\n'}) {
		semi := bytes.Count(line, []byte{';'})
		comma := bytes.Count(line, []byte{','})
		if semi == 0 && comma == 0 {
			continue
		}
		if semi > comma {
			return ';'
		}
		return ','
	}
	return ','
}
