package wizard

import (
	"strings"

	"github.com/JonMunkholm/SheetImport/internal/schema"
	"github.com/JonMunkholm/SheetImport/internal/workbook"
)

var booleanWhitelist = map[string]bool{
	"yes":   true,
	"no":    false,
	"true":  true,
	"false": false,
	"y":     true,
	"n":     false,
	"1":     true,
	"0":     false,
	"on":    true,
	"off":   false,
}

// NormalizeTableData applies the column mapping to rows, producing one record
// per row keyed by field key. Empty, ignored, and new columns produce no key.
func NormalizeTableData(columns Columns, rows []workbook.Row, fields []schema.Field) []Record {
	byKey := make(map[string]schema.Field, len(fields))
	for _, f := range fields {
		byKey[f.Key] = f
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec := make(Record)
		for _, c := range columns {
			if !c.Matched() {
				continue
			}

			var cell any
			if c.Index < len(row) {
				cell = row[c.Index]
			}

			switch c.Kind {
			case ColumnMatchedCheckbox:
				rec[c.FieldKey] = normalizeCheckbox(cell, byKey[c.FieldKey])
			case ColumnMatchedSelect:
				entry := workbook.CellString(cell)
				for _, mo := range c.MatchedOptions {
					if mo.Entry == entry && mo.Value != "" {
						rec[c.FieldKey] = mo.Value
						break
					}
				}
			default:
				if cell == nil || cell == "" {
					continue
				}
				rec[c.FieldKey] = cell
			}
		}
		records = append(records, rec)
	}
	return records
}

func normalizeCheckbox(cell any, f schema.Field) bool {
	switch v := cell.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case nil:
		return false
	}

	s := strings.TrimSpace(workbook.CellString(cell))
	for k, b := range f.BooleanMatches {
		if strings.EqualFold(k, s) {
			return b
		}
	}
	return booleanWhitelist[strings.ToLower(s)]
}
