package wizard

import (
	"context"

	"github.com/JonMunkholm/SheetImport/internal/workbook"
)

// UploadHook post-processes freshly mapped rows before header handling.
type UploadHook func(ctx context.Context, rows []workbook.Row) ([]workbook.Row, error)

// SelectHeaderHook derives the header and data rows from the chosen header
// candidate and the rows after it.
type SelectHeaderHook func(ctx context.Context, headerRow workbook.Row, dataRows []workbook.Row) (HeaderResult, error)

// MatchColumnsHook turns normalized values into the records to validate.
// rawRows are the data rows the values were built from.
type MatchColumnsHook func(ctx context.Context, values []Record, rawRows []workbook.Row, columns Columns) ([]Record, error)

// HeaderResult is the output of a SelectHeaderHook.
type HeaderResult struct {
	ImportedRows []workbook.Row
	HeaderRow    workbook.Row
}

// Hooks are the caller-supplied transformation points. A nil hook passes
// its input through unchanged.
type Hooks struct {
	Upload       UploadHook
	SelectHeader SelectHeaderHook
	MatchColumns MatchColumnsHook
}

func (h Hooks) withDefaults() Hooks {
	if h.Upload == nil {
		h.Upload = func(_ context.Context, rows []workbook.Row) ([]workbook.Row, error) {
			return rows, nil
		}
	}
	if h.SelectHeader == nil {
		h.SelectHeader = func(_ context.Context, headerRow workbook.Row, dataRows []workbook.Row) (HeaderResult, error) {
			return HeaderResult{ImportedRows: dataRows, HeaderRow: headerRow}, nil
		}
	}
	if h.MatchColumns == nil {
		h.MatchColumns = func(_ context.Context, values []Record, _ []workbook.Row, _ Columns) ([]Record, error) {
			return values, nil
		}
	}
	return h
}
