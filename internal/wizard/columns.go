package wizard

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/SheetImport/internal/schema"
	"github.com/JonMunkholm/SheetImport/internal/workbook"
)

// ColumnKind is the match status of a source column.
type ColumnKind string

const (
	ColumnEmpty           ColumnKind = "empty"
	ColumnIgnored         ColumnKind = "ignored"
	ColumnMatched         ColumnKind = "matched"
	ColumnMatchedCheckbox ColumnKind = "matchedCheckbox"
	ColumnMatchedSelect   ColumnKind = "matchedSelect"
	ColumnNew             ColumnKind = "new"
)

// MatchedOption maps one distinct cell entry of a select column to an
// option value. An empty Value means the entry is unmatched.
type MatchedOption struct {
	Entry string `json:"entry"`
	Value string `json:"value,omitempty"`
}

// Column is the mapping of one source column.
type Column struct {
	Kind           ColumnKind      `json:"type"`
	Index          int             `json:"index"`
	Header         string          `json:"header"`
	FieldKey       string          `json:"value,omitempty"`
	MatchedOptions []MatchedOption `json:"matchedOptions,omitempty"`
}

// Matched reports whether the column feeds a target field.
func (c Column) Matched() bool {
	switch c.Kind {
	case ColumnMatched, ColumnMatchedCheckbox, ColumnMatchedSelect:
		return true
	}
	return false
}

// Columns is the full mapping, ordered by source index.
type Columns []Column

// EmptyColumns returns an unmatched column per header cell.
func EmptyColumns(header workbook.Row) Columns {
	cols := make(Columns, len(header))
	for i, v := range header {
		cols[i] = Column{Kind: ColumnEmpty, Index: i, Header: workbook.CellString(v)}
	}
	return cols
}

// Clone returns a deep copy.
func (cs Columns) Clone() Columns {
	if cs == nil {
		return nil
	}
	out := make(Columns, len(cs))
	for i, c := range cs {
		if c.MatchedOptions != nil {
			c.MatchedOptions = append([]MatchedOption(nil), c.MatchedOptions...)
		}
		out[i] = c
	}
	return out
}

// Mapping returns target field key to source column index for matched columns.
func (cs Columns) Mapping() map[string]int {
	m := make(map[string]int)
	for _, c := range cs {
		if c.Matched() {
			m[c.FieldKey] = c.Index
		}
	}
	return m
}

// Validate checks the mapping against a header of headerLen cells and the
// target fields. With no fields, field keys are not checked.
func (cs Columns) Validate(headerLen int, fields []schema.Field) error {
	byKey := make(map[string]schema.Field, len(fields))
	for _, f := range fields {
		byKey[f.Key] = f
	}

	seenIdx := make(map[int]bool, len(cs))
	seenKey := make(map[string]int, len(cs))
	for _, c := range cs {
		if c.Index < 0 || c.Index >= headerLen {
			return fmt.Errorf("%w: column index %d outside header of %d", ErrColumnMapping, c.Index, headerLen)
		}
		if seenIdx[c.Index] {
			return fmt.Errorf("%w: column %d mapped twice", ErrColumnMapping, c.Index)
		}
		seenIdx[c.Index] = true

		switch c.Kind {
		case ColumnEmpty, ColumnIgnored, ColumnNew:
			continue
		case ColumnMatched, ColumnMatchedCheckbox, ColumnMatchedSelect:
		default:
			return fmt.Errorf("%w: column %d has unknown type %q", ErrColumnMapping, c.Index, c.Kind)
		}

		if c.FieldKey == "" {
			return fmt.Errorf("%w: column %d is matched to no field", ErrColumnMapping, c.Index)
		}
		if prev, dup := seenKey[c.FieldKey]; dup {
			return fmt.Errorf("%w: field %q matched by columns %d and %d", ErrColumnMapping, c.FieldKey, prev, c.Index)
		}
		seenKey[c.FieldKey] = c.Index

		if len(fields) == 0 {
			continue
		}
		f, ok := byKey[c.FieldKey]
		if !ok {
			return fmt.Errorf("%w: unknown field %q", ErrColumnMapping, c.FieldKey)
		}
		if want := kindFor(f); want != c.Kind {
			return fmt.Errorf("%w: field %q needs a %s column, got %s", ErrColumnMapping, f.Key, want, c.Kind)
		}
	}
	return nil
}

// UnmatchedRequired returns the required fields no column is matched to.
func UnmatchedRequired(cs Columns, fields []schema.Field) []schema.Field {
	mapped := cs.Mapping()
	var missing []schema.Field
	for _, f := range fields {
		if _, ok := mapped[f.Key]; !ok && f.Required() {
			missing = append(missing, f)
		}
	}
	return missing
}

// Override rematches columns by header name. A field key of "" or "-"
// ignores the column. A field taken from another column leaves that column
// empty. Header names compare case-insensitively.
func (cs Columns) Override(overrides map[string]string, rows []workbook.Row, fields []schema.Field) (Columns, error) {
	out := cs.Clone()
	byHeader := make(map[string]int, len(out))
	for i, c := range out {
		byHeader[normalizeHeader(c.Header)] = i
	}

	for header, key := range overrides {
		i, ok := byHeader[normalizeHeader(header)]
		if !ok {
			return nil, fmt.Errorf("%w: no column named %q", ErrColumnMapping, header)
		}
		if key == "" || key == "-" {
			out[i] = Column{Kind: ColumnIgnored, Index: out[i].Index, Header: out[i].Header}
			continue
		}

		f, ok := findField(fields, key)
		if !ok {
			return nil, fmt.Errorf("%w: unknown field %q", ErrColumnMapping, key)
		}
		for j, c := range out {
			if j != i && c.FieldKey == key {
				out[j] = Column{Kind: ColumnEmpty, Index: c.Index, Header: c.Header}
			}
		}
		out[i] = MatchColumn(out[i], f, rows)
	}
	return out, nil
}

// HeaderMapping returns the columns keyed by header: the matched field key,
// or "-" for a column with no field. Columns without a header are skipped.
func (cs Columns) HeaderMapping() map[string]string {
	out := make(map[string]string, len(cs))
	for _, c := range cs {
		h := strings.TrimSpace(c.Header)
		if h == "" {
			continue
		}
		if c.Matched() {
			out[h] = c.FieldKey
		} else {
			out[h] = "-"
		}
	}
	return out
}

// KnownHeaders returns the entries of mapping whose header is one of the
// columns, ignoring case.
func (cs Columns) KnownHeaders(mapping map[string]string) map[string]string {
	present := make(map[string]bool, len(cs))
	for _, c := range cs {
		present[normalizeHeader(c.Header)] = true
	}
	out := make(map[string]string, len(mapping))
	for h, key := range mapping {
		if n := normalizeHeader(h); n != "" && present[n] {
			out[h] = key
		}
	}
	return out
}

func findField(fields []schema.Field, key string) (schema.Field, bool) {
	for _, f := range fields {
		if f.Key == key {
			return f, true
		}
	}
	return schema.Field{}, false
}

// MatchColumn returns column c matched to field f, with select options
// resolved against the column's distinct entries in rows.
func MatchColumn(c Column, f schema.Field, rows []workbook.Row) Column {
	c.FieldKey = f.Key
	c.Kind = kindFor(f)
	c.MatchedOptions = nil

	if c.Kind == ColumnMatchedSelect {
		for _, entry := range uniqueEntries(rows, c.Index) {
			mo := MatchedOption{Entry: entry}
			if o, ok := f.Option(entry); ok {
				mo.Value = o.Value
			}
			c.MatchedOptions = append(c.MatchedOptions, mo)
		}
	}
	return c
}

func kindFor(f schema.Field) ColumnKind {
	switch f.Type {
	case schema.TypeCheckbox:
		return ColumnMatchedCheckbox
	case schema.TypeSelect:
		return ColumnMatchedSelect
	default:
		return ColumnMatched
	}
}

func uniqueEntries(rows []workbook.Row, idx int) []string {
	seen := make(map[string]bool)
	var entries []string
	for _, r := range rows {
		if idx >= len(r) {
			continue
		}
		s := workbook.CellString(r[idx])
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		entries = append(entries, s)
	}
	return entries
}
