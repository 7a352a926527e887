// Package workbook models an uploaded spreadsheet as an ordered set of named
// sheets, each a 2-D grid of cell values.
//
// Parsing the raw file format is delegated to a [Provider]. The default
// provider reads .xlsx files with excelize and .csv/.tsv files with
// encoding/csv. [MapWorkbook] turns one sheet into the loosely typed rows the
// import wizard works with.
package workbook

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyFile is returned when the uploaded file has no bytes or no sheets.
	ErrEmptyFile = errors.New("empty file")

	// ErrUnsupportedFormat is returned for files the provider cannot read.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrFileTooLarge is returned when the file exceeds the provider's size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrSheetNotFound is returned when a sheet name is not part of the workbook.
	ErrSheetNotFound = errors.New("sheet not found")
)

// File is the raw upload as received from the user. It is kept alongside the
// wizard state from the upload step until submission.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Data        []byte
}

// Sheet is a grid of formatted cell text, row-major. Rows may be ragged.
type Sheet [][]string

// Workbook is the parsed form of an uploaded file.
type Workbook struct {
	SheetNames []string         // Sheet order as it appears in the file
	Sheets     map[string]Sheet // Cell grid per sheet name
}

// Row is one line of imported data. Cells are string, float64, bool, or nil
// (empty). Hooks may coerce strings into the other kinds.
type Row []any

// Sheet returns the named sheet.
func (w *Workbook) Sheet(name string) (Sheet, bool) {
	if w == nil {
		return nil, false
	}
	s, ok := w.Sheets[name]
	return s, ok
}

// SheetCount returns the number of sheets in the workbook.
func (w *Workbook) SheetCount() int {
	if w == nil {
		return 0
	}
	return len(w.SheetNames)
}

// Validate checks that every listed sheet has a grid and the list is non-empty.
func (w *Workbook) Validate() error {
	if w == nil || len(w.SheetNames) == 0 {
		return ErrEmptyFile
	}
	for _, name := range w.SheetNames {
		if _, ok := w.Sheets[name]; !ok {
			return fmt.Errorf("%w: %q", ErrSheetNotFound, name)
		}
	}
	return nil
}

// DataRowCount returns the number of rows in the sheet's used range, minus
// the one row reserved for a header.
func (s Sheet) DataRowCount() int {
	if len(s) <= 1 {
		return 0
	}
	return len(s) - 1
}

// Width returns the length of the longest row.
func (s Sheet) Width() int {
	width := 0
	for _, row := range s {
		width = max(width, len(row))
	}
	return width
}
