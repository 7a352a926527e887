package workbook

import (
	"fmt"
	"strconv"
	"strings"
)

// MapWorkbook converts one sheet into rows. With no sheet name the first
// sheet is used. Blank rows are dropped, rows are padded to the sheet width,
// and empty cells become nil.
func MapWorkbook(wb *Workbook, sheetName ...string) ([]Row, error) {
	sheet, err := pickSheet(wb, sheetName...)
	if err != nil {
		return nil, err
	}

	width := sheet.Width()
	rows := make([]Row, 0, len(sheet))
	for _, cells := range sheet {
		if isEmptyRow(cells) {
			continue
		}
		row := make(Row, width)
		for i, v := range cells {
			if v != "" {
				row[i] = v
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func pickSheet(wb *Workbook, sheetName ...string) (Sheet, error) {
	if wb.SheetCount() == 0 {
		return nil, ErrEmptyFile
	}

	name := wb.SheetNames[0]
	if len(sheetName) > 0 && sheetName[0] != "" {
		name = sheetName[0]
	}

	sheet, ok := wb.Sheet(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, name)
	}
	return sheet, nil
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// CellString renders a cell the way it would appear in the sheet.
func CellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// Clone returns a deep copy of the row slice so callers can hand rows to
// code that may modify them.
func Clone(rows []Row) []Row {
	if rows == nil {
		return nil
	}
	out := make([]Row, len(rows))
	for i, r := range rows {
		if r != nil {
			out[i] = append(Row(nil), r...)
		}
	}
	return out
}
