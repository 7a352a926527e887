package core

// validation.go checks mapped records before they are submitted.
//
// Validation happens at two levels:
//  1. Field rules from the schema: required, unique, and regex, each with
//     its own level. Only error-level failures block a row.
//  2. Format checks: numeric, date, and bool fields must convert with the
//     ToPg* helpers.
//
// A session may add a row hook and a table hook that append their own
// errors after the built-in rules have run.

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/SheetImport/internal/schema"
	"github.com/JonMunkholm/SheetImport/internal/wizard"
	"github.com/JonMunkholm/SheetImport/internal/workbook"
)

// ValidationError is a single failed check on one field.
type ValidationError struct {
	Field   string       `json:"field"`
	Value   string       `json:"value,omitempty"`
	Message string       `json:"message"`
	Level   schema.Level `json:"level"`
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// RowResult is the validation outcome of one record.
type RowResult struct {
	Index  int               `json:"index"`
	Record wizard.Record     `json:"record"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// Valid reports whether the row has no error-level failures.
func (r RowResult) Valid() bool {
	for _, e := range r.Errors {
		if e.Level == schema.LevelError {
			return false
		}
	}
	return true
}

// AddError appends a failure at the given level.
func (r *RowResult) AddError(field, message string, level schema.Level) {
	if level == "" {
		level = schema.LevelError
	}
	r.Errors = append(r.Errors, ValidationError{
		Field:   field,
		Value:   workbook.CellString(r.Record[field]),
		Message: message,
		Level:   level,
	})
}

// RowHook may add errors to a single row.
type RowHook func(ctx context.Context, row *RowResult) error

// TableHook may add errors across all rows.
type TableHook func(ctx context.Context, rows []RowResult) error

// ValidateRecords checks every record against the fields.
func ValidateRecords(records []wizard.Record, fields []schema.Field) []RowResult {
	results := make([]RowResult, len(records))
	for i, rec := range records {
		results[i] = RowResult{Index: i, Record: rec}
	}

	for _, f := range fields {
		for _, v := range f.Validations {
			switch v.Rule {
			case schema.RuleRequired:
				for i := range results {
					if isEmpty(results[i].Record[f.Key]) {
						results[i].AddError(f.Key, messageOr(v, "required field is empty"), v.Level)
					}
				}
			case schema.RuleUnique:
				checkUnique(results, f.Key, v)
			case schema.RuleRegex:
				re, err := v.Regexp()
				if err != nil {
					continue
				}
				for i := range results {
					val := results[i].Record[f.Key]
					if isEmpty(val) {
						continue
					}
					if !re.MatchString(workbook.CellString(val)) {
						results[i].AddError(f.Key, messageOr(v, "value does not match the expected format"), v.Level)
					}
				}
			}
		}

		for i := range results {
			if err := ValidateValue(results[i].Record[f.Key], f); err != nil {
				results[i].AddError(f.Key, err.Error(), schema.LevelError)
			}
		}
	}
	return results
}

// ValidateValue checks that a non-empty value fits the field's format.
func ValidateValue(v any, f schema.Field) error {
	if isEmpty(v) {
		return nil
	}
	if _, ok := v.(bool); ok {
		return nil
	}

	raw := CleanCell(workbook.CellString(v))
	switch f.Format {
	case schema.FormatNumeric:
		if !ToPgNumeric(raw).Valid {
			return fmt.Errorf("invalid number format")
		}
	case schema.FormatDate:
		if !ToPgDate(raw).Valid {
			return fmt.Errorf("invalid date format (use YYYY-MM-DD or similar)")
		}
	case schema.FormatBool:
		if !ToPgBool(raw).Valid {
			return fmt.Errorf("must be yes/no, true/false, or 1/0")
		}
	}
	return nil
}

// ApplyHooks runs the row hook on each row, then the table hook.
func ApplyHooks(ctx context.Context, rows []RowResult, rowHook RowHook, tableHook TableHook) error {
	if rowHook != nil {
		for i := range rows {
			if err := rowHook(ctx, &rows[i]); err != nil {
				return fmt.Errorf("row hook on row %d: %w", rows[i].Index, err)
			}
		}
	}
	if tableHook != nil {
		if err := tableHook(ctx, rows); err != nil {
			return fmt.Errorf("table hook: %w", err)
		}
	}
	return nil
}

// Split separates valid rows from rows with error-level failures.
func Split(rows []RowResult) (valid, invalid []RowResult) {
	for _, r := range rows {
		if r.Valid() {
			valid = append(valid, r)
		} else {
			invalid = append(invalid, r)
		}
	}
	return valid, invalid
}

// Summary counts validation outcomes.
type Summary struct {
	Total    int `json:"total"`
	Valid    int `json:"valid"`
	Invalid  int `json:"invalid"`
	Warnings int `json:"warnings"`
}

// Summarize counts rows by outcome. Warnings counts valid rows that carry
// at least one non-error message.
func Summarize(rows []RowResult) Summary {
	s := Summary{Total: len(rows)}
	for _, r := range rows {
		if !r.Valid() {
			s.Invalid++
			continue
		}
		s.Valid++
		if len(r.Errors) > 0 {
			s.Warnings++
		}
	}
	return s
}

func checkUnique(results []RowResult, key string, v schema.Validation) {
	seen := make(map[string][]int)
	for i := range results {
		val := results[i].Record[key]
		if isEmpty(val) {
			if v.AllowEmpty {
				continue
			}
			val = ""
		}
		s := workbook.CellString(val)
		seen[s] = append(seen[s], i)
	}
	for _, idx := range seen {
		if len(idx) < 2 {
			continue
		}
		for _, i := range idx {
			results[i].AddError(key, messageOr(v, "value must be unique"), v.Level)
		}
	}
}

func messageOr(v schema.Validation, fallback string) string {
	if v.ErrorMessage != "" {
		return v.ErrorMessage
	}
	return fallback
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	}
	return false
}
