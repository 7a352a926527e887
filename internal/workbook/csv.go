package workbook

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"unicode/utf8"
)

// CSVSheetName is the name given to the single sheet of a delimited file.
const CSVSheetName = "Sheet1"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseCSV reads a delimited text file as a one-sheet workbook.
func ParseCSV(data []byte, comma rune) (*Workbook, error) {
	data = bytes.TrimPrefix(sanitizeUTF8(data), utf8BOM)

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}

	return &Workbook{
		SheetNames: []string{CSVSheetName},
		Sheets:     map[string]Sheet{CSVSheetName: records},
	}, nil
}

func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('\uFFFD')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}
