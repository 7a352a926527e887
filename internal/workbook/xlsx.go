package workbook

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ParseXLSX reads every visible sheet of an xlsx document. Cell values are
// the formatted text excelize renders for each cell.
func ParseXLSX(data []byte) (*Workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: open xlsx: %v", ErrUnsupportedFormat, err)
	}
	defer f.Close()

	wb := &Workbook{Sheets: make(map[string]Sheet)}
	for _, name := range f.GetSheetList() {
		visible, err := f.GetSheetVisible(name)
		if err == nil && !visible {
			continue
		}

		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}

		wb.SheetNames = append(wb.SheetNames, name)
		wb.Sheets[name] = Sheet(rows)
	}

	if len(wb.SheetNames) == 0 {
		return nil, ErrEmptyFile
	}
	return wb, nil
}

// WriteXLSX renders a workbook back to xlsx bytes, keeping sheet order.
// Used for fixtures and for exporting rejected rows.
func WriteXLSX(wb *Workbook) ([]byte, error) {
	if err := wb.Validate(); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	defaultSheet := f.GetSheetName(0)
	for i, name := range wb.SheetNames {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("add sheet %q: %w", name, err)
		}

		for r, row := range wb.Sheets[name] {
			cells := make([]any, len(row))
			for c, v := range row {
				cells[c] = v
			}
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return nil, err
			}
			if err := f.SetSheetRow(name, cell, &cells); err != nil {
				return nil, fmt.Errorf("write sheet %q row %d: %w", name, r+1, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
