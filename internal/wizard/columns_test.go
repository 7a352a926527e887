package wizard

import (
	"errors"
	"reflect"
	"testing"

	"github.com/JonMunkholm/SheetImport/internal/schema"
	"github.com/JonMunkholm/SheetImport/internal/workbook"
)

var testFields = []schema.Field{
	{Key: "name", Label: "Full Name", AlternateMatches: []string{"contact"}, Type: schema.TypeInput,
		Validations: []schema.Validation{{Rule: schema.RuleRequired}}},
	{Key: "email", Label: "Email", AlternateMatches: []string{"e-mail address"}, Type: schema.TypeInput},
	{Key: "active", Label: "Active", Type: schema.TypeCheckbox, BooleanMatches: map[string]bool{"si": true}},
	{Key: "stage", Label: "Stage", Type: schema.TypeSelect, Options: []schema.Option{
		{Label: "Lead", Value: "LEAD"},
		{Label: "Customer", Value: "CUSTOMER"},
	}},
}

func TestSuggestColumns(t *testing.T) {
	header := workbook.Row{"full name", "Emial", "Active", "stage", "Notes", nil}
	rows := []workbook.Row{
		{"Ada", "a@x.io", "yes", "Lead", "n", nil},
		{"Bob", "b@x.io", "no", "customer", "", nil},
		{"Cy", "c@x.io", "si", "Lead", "", nil},
		{"Di", "d@x.io", "", "Partner", "", nil},
	}

	cols := SuggestColumns(header, rows, testFields, DefaultAutoMapDistance)
	if len(cols) != len(header) {
		t.Fatalf("len(cols) = %d, want %d", len(cols), len(header))
	}

	tests := []struct {
		idx  int
		kind ColumnKind
		key  string
	}{
		{0, ColumnMatched, "name"},
		{1, ColumnMatched, "email"},
		{2, ColumnMatchedCheckbox, "active"},
		{3, ColumnMatchedSelect, "stage"},
		{4, ColumnEmpty, ""},
		{5, ColumnEmpty, ""},
	}
	for _, tt := range tests {
		c := cols[tt.idx]
		if c.Kind != tt.kind || c.FieldKey != tt.key || c.Index != tt.idx {
			t.Errorf("cols[%d] = %+v, want kind %s key %q", tt.idx, c, tt.kind, tt.key)
		}
	}

	wantOptions := []MatchedOption{
		{Entry: "Lead", Value: "LEAD"},
		{Entry: "customer", Value: "CUSTOMER"},
		{Entry: "Partner"},
	}
	if !reflect.DeepEqual(cols[3].MatchedOptions, wantOptions) {
		t.Errorf("MatchedOptions = %v, want %v", cols[3].MatchedOptions, wantOptions)
	}
}

func TestSuggestColumns_ClosestHeaderWins(t *testing.T) {
	fields := []schema.Field{{Key: "email", Label: "Email"}}
	header := workbook.Row{"Emails", "Email"}

	cols := SuggestColumns(header, nil, fields, 2)
	if cols[0].Kind != ColumnEmpty {
		t.Errorf("cols[0] = %+v, want empty", cols[0])
	}
	if cols[1].Kind != ColumnMatched || cols[1].FieldKey != "email" {
		t.Errorf("cols[1] = %+v, want matched to email", cols[1])
	}

	cols = SuggestColumns(workbook.Row{"Email", "Emails"}, nil, fields, 2)
	if cols[0].FieldKey != "email" || cols[1].Kind != ColumnEmpty {
		t.Errorf("first exact header should keep the field, got %+v", cols)
	}

	// "Phone1" is nearest to phone but loses it to "Phone"; it falls back
	// to phone_2, which is still within the distance.
	fields = []schema.Field{{Key: "phone"}, {Key: "phone_2"}}
	cols = SuggestColumns(workbook.Row{"Phone1", "Phone"}, nil, fields, 2)
	if cols[1].FieldKey != "phone" {
		t.Errorf("cols[1] = %+v, want matched to phone", cols[1])
	}
	if cols[0].Kind != ColumnMatched || cols[0].FieldKey != "phone_2" {
		t.Errorf("cols[0] = %+v, want matched to phone_2", cols[0])
	}

	// A displaced header with no other field in reach stays empty.
	cols = SuggestColumns(workbook.Row{"Phone1", "Phone"}, nil, fields[:1], 2)
	if cols[0].Kind != ColumnEmpty {
		t.Errorf("cols[0] = %+v, want empty", cols[0])
	}
}

func TestSuggestColumns_Distance(t *testing.T) {
	fields := []schema.Field{{Key: "phone", Label: "Phone"}}

	if cols := SuggestColumns(workbook.Row{"fone"}, nil, fields, 2); cols[0].Kind != ColumnMatched {
		t.Errorf("distance 2 should match, got %+v", cols[0])
	}
	if cols := SuggestColumns(workbook.Row{"fone"}, nil, fields, 1); cols[0].Kind != ColumnEmpty {
		t.Errorf("distance 1 should not match, got %+v", cols[0])
	}
	if cols := SuggestColumns(workbook.Row{"phone"}, nil, fields, -1); cols[0].Kind != ColumnEmpty {
		t.Errorf("negative distance disables matching, got %+v", cols[0])
	}
}

func TestNormalizeTableData(t *testing.T) {
	cols := Columns{
		{Kind: ColumnMatched, Index: 0, FieldKey: "name"},
		{Kind: ColumnIgnored, Index: 1},
		{Kind: ColumnMatchedCheckbox, Index: 2, FieldKey: "active"},
		{Kind: ColumnMatchedSelect, Index: 3, FieldKey: "stage", MatchedOptions: []MatchedOption{
			{Entry: "Lead", Value: "LEAD"},
			{Entry: "Partner"},
		}},
		{Kind: ColumnNew, Index: 4, Header: "Custom"},
		{Kind: ColumnEmpty, Index: 5},
	}
	rows := []workbook.Row{
		{"Ada", "skip", "Yes", "Lead", "c", "e"},
		{nil, "skip", "si", "Partner", "c", "e"},
		{"", nil, true, nil},
		{"Cy", nil, 0.0},
	}

	got := NormalizeTableData(cols, rows, testFields)
	want := []Record{
		{"name": "Ada", "active": true, "stage": "LEAD"},
		{"active": true},
		{"active": true},
		{"name": "Cy", "active": false},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NormalizeTableData() = %v, want %v", got, want)
	}
}

func TestNormalizeCheckbox(t *testing.T) {
	f := schema.Field{BooleanMatches: map[string]bool{"Ja": true, "yes": false}}
	tests := []struct {
		in   any
		want bool
	}{
		{"ja", true},
		{"YES", false},
		{"true", true},
		{"off", false},
		{"maybe", false},
		{1.0, true},
		{nil, false},
		{false, false},
	}
	for _, tt := range tests {
		if got := normalizeCheckbox(tt.in, f); got != tt.want {
			t.Errorf("normalizeCheckbox(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestColumns_ValidateAgainstFields(t *testing.T) {
	tests := []struct {
		name    string
		cols    Columns
		wantErr bool
	}{
		{"matched", Columns{{Kind: ColumnMatched, Index: 0, FieldKey: "name"}}, false},
		{"unknown field", Columns{{Kind: ColumnMatched, Index: 0, FieldKey: "zip"}}, true},
		{"checkbox field as plain match", Columns{{Kind: ColumnMatched, Index: 0, FieldKey: "active"}}, true},
		{"select field", Columns{{Kind: ColumnMatchedSelect, Index: 0, FieldKey: "stage"}}, false},
		{"new column", Columns{{Kind: ColumnNew, Index: 1, Header: "x"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cols.Validate(2, testFields)
			if tt.wantErr != (err != nil) {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrColumnMapping) {
				t.Errorf("Validate() error = %v, want ErrColumnMapping", err)
			}
		})
	}
}

func TestUnmatchedRequired(t *testing.T) {
	cols := Columns{{Kind: ColumnMatched, Index: 0, FieldKey: "email"}}
	missing := UnmatchedRequired(cols, testFields)
	if len(missing) != 1 || missing[0].Key != "name" {
		t.Errorf("UnmatchedRequired() = %v, want [name]", missing)
	}

	cols = append(cols, Column{Kind: ColumnMatched, Index: 1, FieldKey: "name"})
	if missing := UnmatchedRequired(cols, testFields); len(missing) != 0 {
		t.Errorf("UnmatchedRequired() = %v, want none", missing)
	}
}

func TestColumns_CloneAndMapping(t *testing.T) {
	cols := Columns{
		{Kind: ColumnMatchedSelect, Index: 2, FieldKey: "stage", MatchedOptions: []MatchedOption{{Entry: "a"}}},
		{Kind: ColumnIgnored, Index: 0},
	}
	c := cols.Clone()
	c[0].MatchedOptions[0].Value = "changed"
	if cols[0].MatchedOptions[0].Value != "" {
		t.Error("Clone() shares matched options")
	}
	if m := cols.Mapping(); !reflect.DeepEqual(m, map[string]int{"stage": 2}) {
		t.Errorf("Mapping() = %v", m)
	}

	empty := EmptyColumns(workbook.Row{"a", 2.0})
	if empty[1].Header != "2" || empty[1].Kind != ColumnEmpty {
		t.Errorf("EmptyColumns() = %+v", empty)
	}
}

func TestColumns_Override(t *testing.T) {
	header := workbook.Row{"Name", "Mail", "Status"}
	rows := []workbook.Row{{"Ada", "a@x.io", "Lead"}, {"Bob", "b@x.io", "Partner"}}
	cols := SuggestColumns(header, rows, testFields, DefaultAutoMapDistance)

	got, err := cols.Override(map[string]string{"mail": "email", "STATUS": "stage", "Name": "-"}, rows, testFields)
	if err != nil {
		t.Fatalf("Override() error = %v", err)
	}
	if got[0].Kind != ColumnIgnored || got[0].FieldKey != "" {
		t.Errorf("Name column = %+v, want ignored", got[0])
	}
	if got[1].Kind != ColumnMatched || got[1].FieldKey != "email" {
		t.Errorf("Mail column = %+v, want matched to email", got[1])
	}
	if got[2].Kind != ColumnMatchedSelect || len(got[2].MatchedOptions) != 2 {
		t.Fatalf("Status column = %+v, want select with 2 entries", got[2])
	}
	if got[2].MatchedOptions[0].Value != "LEAD" || got[2].MatchedOptions[1].Value != "" {
		t.Errorf("MatchedOptions = %+v", got[2].MatchedOptions)
	}
	if cols[0].FieldKey != "name" {
		t.Errorf("Override modified its receiver: %+v", cols[0])
	}

	moved, err := got.Override(map[string]string{"Status": "email"}, rows, testFields)
	if err != nil {
		t.Fatalf("Override() error = %v", err)
	}
	if moved[1].Kind != ColumnEmpty || moved[2].FieldKey != "email" {
		t.Errorf("moved = %+v, want email taken from Mail", moved)
	}

	for _, bad := range []map[string]string{{"Phone": "email"}, {"Mail": "phone"}} {
		if _, err := cols.Override(bad, rows, testFields); !errors.Is(err, ErrColumnMapping) {
			t.Errorf("Override(%v) error = %v, want ErrColumnMapping", bad, err)
		}
	}
}

func TestColumns_HeaderMapping(t *testing.T) {
	cols := Columns{
		{Kind: ColumnMatched, Index: 0, Header: " Name ", FieldKey: "name"},
		{Kind: ColumnIgnored, Index: 1, Header: "Notes"},
		{Kind: ColumnEmpty, Index: 2, Header: ""},
		{Kind: ColumnMatchedCheckbox, Index: 3, Header: "Active", FieldKey: "active"},
	}
	want := map[string]string{"Name": "name", "Notes": "-", "Active": "active"}
	if got := cols.HeaderMapping(); !reflect.DeepEqual(got, want) {
		t.Errorf("HeaderMapping() = %v, want %v", got, want)
	}
}

func TestColumns_KnownHeaders(t *testing.T) {
	cols := EmptyColumns(workbook.Row{"Name", "E-mail", nil})
	got := cols.KnownHeaders(map[string]string{"name": "name", "Phone": "phone", "E-MAIL": "email", "": "-"})
	want := map[string]string{"name": "name", "E-MAIL": "email"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("KnownHeaders() = %v, want %v", got, want)
	}
}
