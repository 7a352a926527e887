package core

// convert.go turns user-entered cell text into typed values.
//
// These functions handle the messy reality of spreadsheet data:
//   - Multiple date formats (US, EU, ISO, etc.)
//   - Currency symbols and thousand separators in numbers
//   - Various boolean representations (yes/no, true/false, 1/0)
//   - Excel formula prefixes (="value")
//
// All ToPg* functions return pgtype values with Valid=false for empty or
// invalid input. CoerceRecord uses them to produce the values that are
// stored for a submitted import.

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/SheetImport/internal/schema"
	"github.com/JonMunkholm/SheetImport/internal/wizard"
	"github.com/JonMunkholm/SheetImport/internal/workbook"
)

// numericRegex matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would result in dates more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

// DateLayout is the layout dates are stored in.
const DateLayout = "2006-01-02"

var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"2006-01-02", "2006/01/02", "2006.01.02",
		"Jan 2, 2006", "2 Jan 2006",
		"20060102",
	}
)

// ToPgText converts a string to pgtype.Text.
// Returns invalid if the string is empty or only whitespace.
func ToPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// ToPgDate converts a string to pgtype.Date.
// Supports multiple date formats and handles 2-digit years with pivot.
func ToPgDate(s string) pgtype.Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Date{Valid: false}
	}

	for _, layout := range fourDigitYearLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return pgtype.Date{Time: t, Valid: true}
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return pgtype.Date{Time: t, Valid: true}
		}
	}

	return pgtype.Date{Valid: false}
}

// ToPgNumeric converts a string to pgtype.Numeric.
// Handles currency symbols, thousands separators, and accounting format (parentheses for negative).
func ToPgNumeric(s string) pgtype.Numeric {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Numeric{Valid: false}
	}

	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "") // Euro
	s = strings.ReplaceAll(s, "£", "") // Pound
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if isNegative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return pgtype.Numeric{Valid: false}
	}

	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		return pgtype.Numeric{Valid: false}
	}
	return n
}

// ToPgBool converts a string to pgtype.Bool.
// Accepts various representations: true/false, yes/no, t/f, y/n, 1/0.
func ToPgBool(s string) pgtype.Bool {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return pgtype.Bool{Valid: false}
	}

	switch s {
	case "true", "t", "yes", "y", "1":
		return pgtype.Bool{Bool: true, Valid: true}
	case "false", "f", "no", "n", "0":
		return pgtype.Bool{Bool: false, Valid: true}
	default:
		return pgtype.Bool{Valid: false}
	}
}

// CleanCell removes common spreadsheet artifacts from a cell value:
// surrounding whitespace, the Excel formula prefix (="..."), and quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.Trim(s, `"'`)
}

// CoerceValue converts one record value to the field's format. Text stays a
// string, numbers become float64, dates become YYYY-MM-DD strings, and
// booleans become bool. Empty input returns nil.
func CoerceValue(v any, f schema.Field) (any, error) {
	if b, ok := v.(bool); ok {
		if f.Format == schema.FormatText {
			return workbook.CellString(b), nil
		}
		return b, nil
	}

	raw := CleanCell(workbook.CellString(v))
	if raw == "" {
		return nil, nil
	}

	switch f.Format {
	case schema.FormatNumeric:
		n := ToPgNumeric(raw)
		if !n.Valid {
			return nil, fmt.Errorf("invalid number %q", raw)
		}
		fv, err := n.Float64Value()
		if err != nil || !fv.Valid {
			return nil, fmt.Errorf("invalid number %q", raw)
		}
		return fv.Float64, nil
	case schema.FormatDate:
		d := ToPgDate(raw)
		if !d.Valid {
			return nil, fmt.Errorf("invalid date %q", raw)
		}
		return d.Time.Format(DateLayout), nil
	case schema.FormatBool:
		b := ToPgBool(raw)
		if !b.Valid {
			return nil, fmt.Errorf("invalid bool %q", raw)
		}
		return b.Bool, nil
	default:
		return ToPgText(raw).String, nil
	}
}

// CoerceRecord converts every known field of rec. Keys without a field
// definition are kept as text.
func CoerceRecord(rec wizard.Record, fields []schema.Field) (map[string]any, error) {
	byKey := make(map[string]schema.Field, len(fields))
	for _, f := range fields {
		byKey[f.Key] = f
	}

	out := make(map[string]any, len(rec))
	for k, v := range rec {
		f, ok := byKey[k]
		if !ok {
			f = schema.Field{Key: k, Format: schema.FormatText}
		}
		cv, err := CoerceValue(v, f)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		if cv != nil {
			out[k] = cv
		}
	}
	return out, nil
}
