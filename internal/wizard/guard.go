package wizard

import "github.com/JonMunkholm/SheetImport/internal/workbook"

// ExceedsLimit reports whether the sheet has more data rows than maxRecords.
// A maxRecords of zero or less disables the check.
func ExceedsLimit(sheet workbook.Sheet, maxRecords int) bool {
	return maxRecords > 0 && sheet.DataRowCount() > maxRecords
}

func checkLimit(sheet workbook.Sheet, maxRecords int) error {
	if ExceedsLimit(sheet, maxRecords) {
		return &LimitError{Max: maxRecords, Rows: sheet.DataRowCount()}
	}
	return nil
}
