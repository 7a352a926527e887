package wizard

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/JonMunkholm/SheetImport/internal/schema"
	"github.com/JonMunkholm/SheetImport/internal/workbook"
)

// DefaultAutoMapDistance is the edit distance within which a header is
// matched to a field automatically.
const DefaultAutoMapDistance = 2

// SuggestColumns proposes a column mapping for header. A header is matched
// to a field when the distance to its key, label, or an alternate match is
// at most autoMapDistance. Pairs are assigned closest first, so each field
// goes to its nearest header (the leftmost on a tie) and a header that loses
// a field still gets its next closest free one.
func SuggestColumns(header workbook.Row, rows []workbook.Row, fields []schema.Field, autoMapDistance int) Columns {
	cols := EmptyColumns(header)
	if autoMapDistance < 0 {
		return cols
	}

	type candidate struct {
		col, field, dist int
	}
	var cands []candidate
	for i, c := range cols {
		h := normalizeHeader(c.Header)
		if h == "" {
			continue
		}
		for fi, f := range fields {
			if d := fieldDistance(h, f); d <= autoMapDistance {
				cands = append(cands, candidate{col: i, field: fi, dist: d})
			}
		}
	}
	// Candidates are built in column then field order; a stable sort keeps
	// that order among equal distances.
	sort.SliceStable(cands, func(a, b int) bool { return cands[a].dist < cands[b].dist })

	colDone := make([]bool, len(cols))
	fieldDone := make([]bool, len(fields))
	for _, c := range cands {
		if colDone[c.col] || fieldDone[c.field] {
			continue
		}
		colDone[c.col], fieldDone[c.field] = true, true
		cols[c.col] = MatchColumn(cols[c.col], fields[c.field], rows)
	}
	return cols
}

func fieldDistance(header string, f schema.Field) int {
	d := levenshtein.ComputeDistance(header, normalizeHeader(f.Key))
	if f.Label != "" {
		d = min(d, levenshtein.ComputeDistance(header, normalizeHeader(f.Label)))
	}
	for _, alt := range f.AlternateMatches {
		d = min(d, levenshtein.ComputeDistance(header, normalizeHeader(alt)))
	}
	return d
}

func normalizeHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
