package wizard

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/JonMunkholm/SheetImport/internal/workbook"
)

// recorder counts step indicator moves and collects notifications.
type recorder struct {
	next     int
	prev     int
	messages []string
}

func (r *recorder) NotifyError(msg string) { r.messages = append(r.messages, msg) }

func newTestController(t *testing.T, opts Options) (*Controller, *recorder) {
	t.Helper()
	rec := &recorder{}
	opts.NextStep = func() { rec.next++ }
	opts.PrevStep = func() { rec.prev++ }
	opts.Notifier = rec
	c, err := NewController(opts)
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}
	return c, rec
}

func testFile() *workbook.File {
	return &workbook.File{Name: "people.csv", Data: []byte("x")}
}

func singleSheet(rows ...[]string) *workbook.Workbook {
	return &workbook.Workbook{
		SheetNames: []string{"Sheet1"},
		Sheets:     map[string]workbook.Sheet{"Sheet1": rows},
	}
}

func twoSheets() *workbook.Workbook {
	return &workbook.Workbook{
		SheetNames: []string{"Zeta", "Alpha"},
		Sheets: map[string]workbook.Sheet{
			"Zeta":  {{"name"}, {"a"}},
			"Alpha": {{"title", "year"}, {"x", "1999"}, {"y", "2001"}},
		},
	}
}

func dataSheet(dataRows int) workbook.Sheet {
	s := workbook.Sheet{{"name"}}
	for i := 0; i < dataRows; i++ {
		s = append(s, []string{"row"})
	}
	return s
}

func TestSubmitUpload_AutoHeader(t *testing.T) {
	c, rec := newTestController(t, Options{SelectHeader: false, MaxRecords: 0})

	wb := singleSheet([]string{"name", "email"}, []string{"Ada", "ada@x.io"}, []string{"Bob", "bob@x.io"})
	if err := c.SubmitUpload(context.Background(), wb, testFile()); err != nil {
		t.Fatalf("SubmitUpload() error = %v", err)
	}

	st, ok := c.State().(MatchColumns)
	if !ok {
		t.Fatalf("State() = %T, want MatchColumns", c.State())
	}
	if want := (workbook.Row{"name", "email"}); !reflect.DeepEqual(st.HeaderValues, want) {
		t.Errorf("HeaderValues = %v, want %v", st.HeaderValues, want)
	}
	wantRows := []workbook.Row{{"Ada", "ada@x.io"}, {"Bob", "bob@x.io"}}
	if !reflect.DeepEqual(st.Rows, wantRows) {
		t.Errorf("Rows = %v, want %v", st.Rows, wantRows)
	}
	if _, ok := c.PreviousState().(Upload); !ok {
		t.Errorf("PreviousState() = %T, want Upload", c.PreviousState())
	}
	if rec.next != 1 {
		t.Errorf("nextStep calls = %d, want 1", rec.next)
	}
	if c.UploadedFile() == nil {
		t.Error("UploadedFile() = nil after upload")
	}
}

func TestSubmitUpload_AutoHeaderUsesHook(t *testing.T) {
	var called int
	hooks := Hooks{
		SelectHeader: func(_ context.Context, header workbook.Row, data []workbook.Row) (HeaderResult, error) {
			called++
			return HeaderResult{HeaderRow: workbook.Row{"Renamed"}, ImportedRows: data[:1]}, nil
		},
	}
	c, _ := newTestController(t, Options{Hooks: hooks})

	wb := singleSheet([]string{"name"}, []string{"a"}, []string{"b"})
	if err := c.SubmitUpload(context.Background(), wb, testFile()); err != nil {
		t.Fatalf("SubmitUpload() error = %v", err)
	}

	st := c.State().(MatchColumns)
	if called != 1 {
		t.Errorf("select header hook calls = %d, want 1", called)
	}
	if !reflect.DeepEqual(st.HeaderValues, workbook.Row{"Renamed"}) || len(st.Rows) != 1 {
		t.Errorf("state = %+v, want hook output", st)
	}
}

func TestSubmitUpload_SelectHeaderEnabled(t *testing.T) {
	c, rec := newTestController(t, Options{SelectHeader: true})

	wb := singleSheet([]string{"report"}, []string{"name"}, []string{"Ada"})
	if err := c.SubmitUpload(context.Background(), wb, testFile()); err != nil {
		t.Fatalf("SubmitUpload() error = %v", err)
	}

	st, ok := c.State().(SelectHeader)
	if !ok {
		t.Fatalf("State() = %T, want SelectHeader", c.State())
	}
	if len(st.Rows) != 3 {
		t.Errorf("len(Rows) = %d, want 3", len(st.Rows))
	}

	if err := c.ConfirmHeader(context.Background(), 1); err != nil {
		t.Fatalf("ConfirmHeader() error = %v", err)
	}
	mc := c.State().(MatchColumns)
	if !reflect.DeepEqual(mc.HeaderValues, workbook.Row{"name"}) {
		t.Errorf("HeaderValues = %v, want [name]", mc.HeaderValues)
	}
	if !reflect.DeepEqual(mc.Rows, []workbook.Row{{"Ada"}}) {
		t.Errorf("Rows = %v, want [[Ada]]", mc.Rows)
	}
	if !reflect.DeepEqual(c.PreviousState(), st) {
		t.Errorf("PreviousState() = %+v, want the SelectHeader state", c.PreviousState())
	}
	if rec.next != 2 {
		t.Errorf("nextStep calls = %d, want 2", rec.next)
	}
}

func TestSubmitUpload_MultiSheet(t *testing.T) {
	var uploadCalls int
	hooks := Hooks{Upload: func(_ context.Context, rows []workbook.Row) ([]workbook.Row, error) {
		uploadCalls++
		return rows, nil
	}}
	c, rec := newTestController(t, Options{Hooks: hooks, MaxRecords: 1})

	wb := twoSheets()
	if err := c.SubmitUpload(context.Background(), wb, testFile()); err != nil {
		t.Fatalf("SubmitUpload() error = %v", err)
	}

	st, ok := c.State().(SelectSheet)
	if !ok {
		t.Fatalf("State() = %T, want SelectSheet", c.State())
	}
	if !reflect.DeepEqual(st.Workbook.SheetNames, []string{"Zeta", "Alpha"}) {
		t.Errorf("SheetNames = %v, want [Zeta Alpha]", st.Workbook.SheetNames)
	}
	if uploadCalls != 0 {
		t.Errorf("upload hook calls = %d, want 0 before a sheet is chosen", uploadCalls)
	}
	if rec.next != 1 {
		t.Errorf("nextStep calls = %d, want 1", rec.next)
	}
}

func TestSelectSheet(t *testing.T) {
	c, rec := newTestController(t, Options{SelectHeader: false})
	ctx := context.Background()

	if err := c.SubmitUpload(ctx, twoSheets(), testFile()); err != nil {
		t.Fatal(err)
	}
	sheetState := c.State()

	if err := c.SelectSheet(ctx, "Alpha"); err != nil {
		t.Fatalf("SelectSheet() error = %v", err)
	}

	st, ok := c.State().(SelectHeader)
	if !ok {
		t.Fatalf("State() = %T, want SelectHeader", c.State())
	}
	want := []workbook.Row{{"title", "year"}, {"x", "1999"}, {"y", "2001"}}
	if !reflect.DeepEqual(st.Rows, want) {
		t.Errorf("Rows = %v, want %v", st.Rows, want)
	}
	if !reflect.DeepEqual(c.PreviousState(), sheetState) {
		t.Error("PreviousState() should be the SelectSheet state")
	}
	if rec.next != 1 {
		t.Errorf("nextStep calls = %d, want 1: sheet and header selection share a position", rec.next)
	}

	if err := c.SelectSheet(ctx, "Alpha"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("SelectSheet() from SelectHeader error = %v, want ErrInvalidTransition", err)
	}
}

func TestSelectSheet_Unknown(t *testing.T) {
	c, rec := newTestController(t, Options{})
	ctx := context.Background()
	if err := c.SubmitUpload(ctx, twoSheets(), testFile()); err != nil {
		t.Fatal(err)
	}

	err := c.SelectSheet(ctx, "Missing")
	if !errors.Is(err, ErrUnknownSheet) {
		t.Errorf("SelectSheet() error = %v, want ErrUnknownSheet", err)
	}
	if len(rec.messages) != 0 {
		t.Errorf("argument errors should not notify, got %v", rec.messages)
	}
}

func TestRowLimit_SelectSheetRejected(t *testing.T) {
	var uploadCalls int
	hooks := Hooks{Upload: func(_ context.Context, rows []workbook.Row) ([]workbook.Row, error) {
		uploadCalls++
		return rows, nil
	}}
	c, rec := newTestController(t, Options{Hooks: hooks, MaxRecords: 5})
	ctx := context.Background()

	wb := &workbook.Workbook{
		SheetNames: []string{"Big", "Small"},
		Sheets:     map[string]workbook.Sheet{"Big": dataSheet(6), "Small": dataSheet(5)},
	}
	if err := c.SubmitUpload(ctx, wb, testFile()); err != nil {
		t.Fatal(err)
	}
	before, prevBefore := c.State(), c.PreviousState()
	nextBefore := rec.next

	err := c.SelectSheet(ctx, "Big")
	var le *LimitError
	if !errors.As(err, &le) {
		t.Fatalf("SelectSheet() error = %v, want *LimitError", err)
	}
	if !IsRecoverable(err) {
		t.Error("IsRecoverable() = false for a limit error")
	}
	if len(rec.messages) != 1 || !strings.Contains(rec.messages[0], "5") {
		t.Errorf("messages = %v, want one containing the limit", rec.messages)
	}
	if rec.messages[0] != "Too many records. Up to 5 allowed" {
		t.Errorf("message = %q", rec.messages[0])
	}
	if uploadCalls != 0 {
		t.Errorf("upload hook called %d times after rejection", uploadCalls)
	}
	if !reflect.DeepEqual(c.State(), before) || !reflect.DeepEqual(c.PreviousState(), prevBefore) {
		t.Error("state changed after rejection")
	}
	if rec.next != nextBefore {
		t.Error("nextStep called after rejection")
	}

	if err := c.SelectSheet(ctx, "Small"); err != nil {
		t.Errorf("SelectSheet(Small) with exactly 5 data rows error = %v", err)
	}
}

func TestRowLimit_SingleSheetUpload(t *testing.T) {
	tests := []struct {
		name       string
		maxRecords int
		dataRows   int
		wantReject bool
	}{
		{"at limit", 3, 3, false},
		{"over limit", 3, 4, true},
		{"zero disables", 0, 1000, false},
		{"negative disables", -1, 1000, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newTestController(t, Options{MaxRecords: tt.maxRecords})
			wb := &workbook.Workbook{
				SheetNames: []string{"S"},
				Sheets:     map[string]workbook.Sheet{"S": dataSheet(tt.dataRows)},
			}

			err := c.SubmitUpload(context.Background(), wb, testFile())
			if tt.wantReject {
				var le *LimitError
				if !errors.As(err, &le) {
					t.Fatalf("SubmitUpload() error = %v, want *LimitError", err)
				}
				if _, ok := c.State().(Upload); !ok {
					t.Errorf("State() = %T, want Upload", c.State())
				}
				if len(rec.messages) != 1 {
					t.Errorf("notifications = %d, want 1", len(rec.messages))
				}
				return
			}
			if err != nil {
				t.Fatalf("SubmitUpload() error = %v", err)
			}
			if _, ok := c.State().(MatchColumns); !ok {
				t.Errorf("State() = %T, want MatchColumns", c.State())
			}
		})
	}
}

func TestExceedsLimit(t *testing.T) {
	for n := 1; n <= 10; n++ {
		if ExceedsLimit(dataSheet(n), n) {
			t.Errorf("ExceedsLimit(%d rows, %d) = true, want false", n, n)
		}
		if !ExceedsLimit(dataSheet(n+1), n) {
			t.Errorf("ExceedsLimit(%d rows, %d) = false, want true", n+1, n)
		}
		if ExceedsLimit(dataSheet(n*100), 0) || ExceedsLimit(dataSheet(n*100), -n) {
			t.Errorf("ExceedsLimit with disabled limit = true for %d rows", n*100)
		}
	}
}

func TestHookFailure_LeavesStateUnchanged(t *testing.T) {
	hookErr := errors.New("upstream rejected the rows")
	failUpload := func(context.Context, []workbook.Row) ([]workbook.Row, error) { return nil, hookErr }
	failHeader := func(context.Context, workbook.Row, []workbook.Row) (HeaderResult, error) {
		return HeaderResult{}, hookErr
	}
	failMatch := func(context.Context, []Record, []workbook.Row, Columns) ([]Record, error) { return nil, hookErr }

	tests := []struct {
		name   string
		opts   Options
		setup  func(t *testing.T, c *Controller)
		action func(c *Controller) error
	}{
		{
			name:   "upload hook on single sheet",
			opts:   Options{Hooks: Hooks{Upload: failUpload}},
			action: func(c *Controller) error { return c.SubmitUpload(context.Background(), singleSheet([]string{"a"}), testFile()) },
		},
		{
			name:   "auto header hook",
			opts:   Options{Hooks: Hooks{SelectHeader: failHeader}},
			action: func(c *Controller) error { return c.SubmitUpload(context.Background(), singleSheet([]string{"a"}), testFile()) },
		},
		{
			name: "upload hook on sheet choice",
			opts: Options{Hooks: Hooks{Upload: failUpload}},
			setup: func(t *testing.T, c *Controller) {
				if err := c.SubmitUpload(context.Background(), twoSheets(), testFile()); err != nil {
					t.Fatal(err)
				}
			},
			action: func(c *Controller) error { return c.SelectSheet(context.Background(), "Zeta") },
		},
		{
			name: "select header hook",
			opts: Options{SelectHeader: true, Hooks: Hooks{SelectHeader: failHeader}},
			setup: func(t *testing.T, c *Controller) {
				if err := c.SubmitUpload(context.Background(), singleSheet([]string{"a"}, []string{"b"}), testFile()); err != nil {
					t.Fatal(err)
				}
			},
			action: func(c *Controller) error { return c.ConfirmHeader(context.Background(), 0) },
		},
		{
			name: "match columns hook",
			opts: Options{Hooks: Hooks{MatchColumns: failMatch}},
			setup: func(t *testing.T, c *Controller) {
				if err := c.SubmitUpload(context.Background(), singleSheet([]string{"a"}, []string{"b"}), testFile()); err != nil {
					t.Fatal(err)
				}
			},
			action: func(c *Controller) error { return c.ConfirmColumns(context.Background(), Columns{{Kind: ColumnIgnored, Index: 0}}) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newTestController(t, tt.opts)
			if tt.setup != nil {
				tt.setup(t, c)
			}
			before, prevBefore, nextBefore := c.State(), c.PreviousState(), rec.next

			err := tt.action(c)
			var he *HookError
			if !errors.As(err, &he) || !errors.Is(err, hookErr) {
				t.Fatalf("error = %v, want HookError wrapping the hook error", err)
			}
			if !reflect.DeepEqual(c.State(), before) {
				t.Errorf("State() = %+v, want unchanged %+v", c.State(), before)
			}
			if !reflect.DeepEqual(c.PreviousState(), prevBefore) {
				t.Error("PreviousState() changed after hook failure")
			}
			if len(rec.messages) != 1 || rec.messages[0] != hookErr.Error() {
				t.Errorf("messages = %v, want exactly [%q]", rec.messages, hookErr.Error())
			}
			if rec.next != nextBefore {
				t.Error("nextStep called after hook failure")
			}
		})
	}
}

func TestHookFailure_Retry(t *testing.T) {
	fail := true
	hooks := Hooks{Upload: func(_ context.Context, rows []workbook.Row) ([]workbook.Row, error) {
		if fail {
			return nil, errors.New("try again")
		}
		return rows, nil
	}}
	c, _ := newTestController(t, Options{Hooks: hooks})
	wb := singleSheet([]string{"h"}, []string{"v"})

	if err := c.SubmitUpload(context.Background(), wb, testFile()); err == nil {
		t.Fatal("first SubmitUpload() should fail")
	}
	fail = false
	if err := c.SubmitUpload(context.Background(), wb, testFile()); err != nil {
		t.Fatalf("resubmitted SubmitUpload() error = %v", err)
	}
	if _, ok := c.State().(MatchColumns); !ok {
		t.Errorf("State() = %T, want MatchColumns", c.State())
	}
}

func TestSubmitUpload_NoData(t *testing.T) {
	hooks := Hooks{Upload: func(context.Context, []workbook.Row) ([]workbook.Row, error) { return nil, nil }}
	c, rec := newTestController(t, Options{Hooks: hooks})

	err := c.SubmitUpload(context.Background(), singleSheet([]string{"a"}), testFile())
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("SubmitUpload() error = %v, want ErrNoData", err)
	}
	if !IsRecoverable(err) || len(rec.messages) != 1 {
		t.Errorf("empty sheet should be a notified, recoverable error")
	}
}

func TestConfirmColumns(t *testing.T) {
	var gotValues []Record
	var gotRaw []workbook.Row
	hooks := Hooks{MatchColumns: func(_ context.Context, values []Record, raw []workbook.Row, cols Columns) ([]Record, error) {
		gotValues, gotRaw = values, raw
		return append(values, Record{"extra": true}), nil
	}}
	c, rec := newTestController(t, Options{Hooks: hooks})
	ctx := context.Background()

	wb := singleSheet([]string{"Name", "Notes"}, []string{"Ada", "n1"}, []string{"Bob", ""})
	if err := c.SubmitUpload(ctx, wb, testFile()); err != nil {
		t.Fatal(err)
	}
	matchState := c.State()

	cols := Columns{
		{Kind: ColumnMatched, Index: 0, Header: "Name", FieldKey: "name"},
		{Kind: ColumnIgnored, Index: 1, Header: "Notes"},
	}
	if err := c.ConfirmColumns(ctx, cols); err != nil {
		t.Fatalf("ConfirmColumns() error = %v", err)
	}

	st, ok := c.State().(ValidateData)
	if !ok {
		t.Fatalf("State() = %T, want ValidateData", c.State())
	}
	wantValues := []Record{{"name": "Ada"}, {"name": "Bob"}}
	if !reflect.DeepEqual(gotValues[:2], wantValues) {
		t.Errorf("hook values = %v, want %v", gotValues, wantValues)
	}
	if len(gotRaw) != 2 {
		t.Errorf("hook raw rows = %d, want 2", len(gotRaw))
	}
	if len(st.Records) != 3 {
		t.Errorf("len(Records) = %d, want hook output of 3", len(st.Records))
	}
	if !reflect.DeepEqual(st.ImportedColumns, cols) {
		t.Errorf("ImportedColumns = %v, want %v", st.ImportedColumns, cols)
	}
	if !reflect.DeepEqual(c.PreviousState(), matchState) {
		t.Error("PreviousState() should be the MatchColumns state")
	}
	if rec.next != 2 {
		t.Errorf("nextStep calls = %d, want 2", rec.next)
	}
}

func TestConfirmColumns_InvalidMapping(t *testing.T) {
	c, rec := newTestController(t, Options{})
	ctx := context.Background()
	if err := c.SubmitUpload(ctx, singleSheet([]string{"a", "b"}, []string{"1", "2"}), testFile()); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		cols Columns
	}{
		{"index out of range", Columns{{Kind: ColumnIgnored, Index: 2}}},
		{"duplicate index", Columns{{Kind: ColumnIgnored, Index: 0}, {Kind: ColumnEmpty, Index: 0}}},
		{"duplicate field", Columns{{Kind: ColumnMatched, Index: 0, FieldKey: "x"}, {Kind: ColumnMatched, Index: 1, FieldKey: "x"}}},
		{"matched without field", Columns{{Kind: ColumnMatched, Index: 0}}},
		{"unknown kind", Columns{{Kind: "weird", Index: 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.ConfirmColumns(ctx, tt.cols)
			if !errors.Is(err, ErrColumnMapping) {
				t.Errorf("ConfirmColumns() error = %v, want ErrColumnMapping", err)
			}
		})
	}
	if _, ok := c.State().(MatchColumns); !ok {
		t.Errorf("State() = %T, want MatchColumns", c.State())
	}
	if len(rec.messages) != 0 {
		t.Errorf("argument errors should not notify, got %v", rec.messages)
	}
}

func TestConfirmColumns_FileNotFoundPanics(t *testing.T) {
	var hookCalled bool
	initial := MatchColumns{Rows: []workbook.Row{{"Ada"}}, HeaderValues: workbook.Row{"name"}}
	c, _ := newTestController(t, Options{
		InitialState: initial,
		Hooks: Hooks{MatchColumns: func(_ context.Context, v []Record, _ []workbook.Row, _ Columns) ([]Record, error) {
			hookCalled = true
			return v, nil
		}},
	})

	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrFileNotFound) {
			t.Fatalf("recover() = %v, want ErrFileNotFound", r)
		}
		if !reflect.DeepEqual(c.State(), initial) {
			t.Errorf("State() = %+v, want unchanged", c.State())
		}
		if hookCalled {
			t.Error("hook called before the file check")
		}
	}()

	_ = c.ConfirmColumns(context.Background(), Columns{{Kind: ColumnIgnored, Index: 0}})
	t.Fatal("ConfirmColumns() without uploaded file did not panic")
}

func TestStartSubmit(t *testing.T) {
	initial := ValidateData{Records: []Record{{"a": "1"}}}
	c, rec := newTestController(t, Options{InitialState: initial, UploadedFile: testFile()})

	if err := c.StartSubmit(); err != nil {
		t.Fatalf("StartSubmit() error = %v", err)
	}
	if _, ok := c.State().(Loading); !ok {
		t.Errorf("State() = %T, want Loading", c.State())
	}
	if rec.next != 0 {
		t.Errorf("nextStep calls = %d, want 0 for loading", rec.next)
	}
	if err := c.Back(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Back() from Loading error = %v, want ErrInvalidTransition", err)
	}
	if err := c.StartSubmit(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second StartSubmit() error = %v, want ErrInvalidTransition", err)
	}
}

func TestBack_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c, rec := newTestController(t, Options{SelectHeader: true})

	if err := c.SubmitUpload(ctx, twoSheets(), testFile()); err != nil {
		t.Fatal(err)
	}
	selectSheet := c.State()
	if err := c.SelectSheet(ctx, "Alpha"); err != nil {
		t.Fatal(err)
	}
	selectHeader := c.State()
	if err := c.ConfirmHeader(ctx, 0); err != nil {
		t.Fatal(err)
	}
	matchColumns := c.State()

	// MatchColumns -> SelectHeader, then forward again.
	if err := c.Back(); err != nil {
		t.Fatalf("Back() error = %v", err)
	}
	if !reflect.DeepEqual(c.State(), selectHeader) {
		t.Errorf("Back() from MatchColumns = %+v, want %+v", c.State(), selectHeader)
	}
	if !reflect.DeepEqual(c.PreviousState(), selectHeader) {
		t.Error("Back() must not update the checkpoint")
	}
	if err := c.ConfirmHeader(ctx, 0); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(c.State(), matchColumns) {
		t.Errorf("forward after back = %+v, want %+v", c.State(), matchColumns)
	}

	// SelectHeader -> SelectSheet.
	c2, _ := newTestController(t, Options{SelectHeader: true})
	if err := c2.SubmitUpload(ctx, twoSheets(), testFile()); err != nil {
		t.Fatal(err)
	}
	if err := c2.SelectSheet(ctx, "Alpha"); err != nil {
		t.Fatal(err)
	}
	if err := c2.Back(); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(c2.State(), selectSheet) {
		t.Errorf("Back() from SelectHeader = %+v, want %+v", c2.State(), selectSheet)
	}

	// SelectSheet -> Upload.
	c3, _ := newTestController(t, Options{})
	if err := c3.SubmitUpload(ctx, twoSheets(), testFile()); err != nil {
		t.Fatal(err)
	}
	if err := c3.Back(); err != nil {
		t.Fatal(err)
	}
	if _, ok := c3.State().(Upload); !ok {
		t.Errorf("Back() from SelectSheet = %T, want Upload", c3.State())
	}

	if rec.prev != 1 {
		t.Errorf("prevStep calls = %d, want 1", rec.prev)
	}
}

func TestBack_HookCannotCorruptCheckpoint(t *testing.T) {
	ctx := context.Background()
	hooks := Hooks{SelectHeader: func(_ context.Context, header workbook.Row, data []workbook.Row) (HeaderResult, error) {
		header[0] = "mutated"
		data[0][0] = "mutated"
		return HeaderResult{HeaderRow: header, ImportedRows: data}, nil
	}}
	c, _ := newTestController(t, Options{SelectHeader: true, Hooks: hooks})

	if err := c.SubmitUpload(ctx, singleSheet([]string{"h"}, []string{"v"}), testFile()); err != nil {
		t.Fatal(err)
	}
	if err := c.ConfirmHeader(ctx, 0); err != nil {
		t.Fatal(err)
	}
	if err := c.Back(); err != nil {
		t.Fatal(err)
	}

	want := SelectHeader{Rows: []workbook.Row{{"h"}, {"v"}}}
	if !reflect.DeepEqual(c.State(), want) {
		t.Errorf("State() after back = %+v, want %+v", c.State(), want)
	}
}

func TestBack_FromValidateData(t *testing.T) {
	ctx := context.Background()

	resume := MatchColumns{Rows: []workbook.Row{{"Ada"}}, HeaderValues: workbook.Row{"name"}}
	tests := []struct {
		name    string
		initial State
		want    State
	}{
		{"default initial", nil, Upload{}},
		{"injected initial", resume, resume},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newTestController(t, Options{InitialState: tt.initial, UploadedFile: testFile()})
			if tt.initial == nil {
				if err := c.SubmitUpload(ctx, singleSheet([]string{"name"}, []string{"Ada"}), testFile()); err != nil {
					t.Fatal(err)
				}
			}
			if err := c.ConfirmColumns(ctx, Columns{{Kind: ColumnMatched, Index: 0, FieldKey: "name"}}); err != nil {
				t.Fatal(err)
			}
			checkpoint := c.PreviousState()

			if err := c.Back(); err != nil {
				t.Fatalf("Back() error = %v", err)
			}
			if !reflect.DeepEqual(c.State(), tt.want) {
				t.Errorf("State() = %+v, want %+v", c.State(), tt.want)
			}
			if !reflect.DeepEqual(c.PreviousState(), tt.want) {
				t.Errorf("PreviousState() = %+v, want reset to %+v", c.PreviousState(), tt.want)
			}
			if tt.initial == nil && reflect.DeepEqual(c.State(), checkpoint) {
				t.Error("Back() from ValidateData restored the literal checkpoint")
			}
			if rec.prev != 1 {
				t.Errorf("prevStep calls = %d, want 1", rec.prev)
			}
		})
	}
}

func TestBack_NotAllowed(t *testing.T) {
	c, rec := newTestController(t, Options{})
	if err := c.Back(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Back() from Upload error = %v, want ErrInvalidTransition", err)
	}
	if rec.prev != 0 {
		t.Error("prevStep called for a rejected back")
	}
}

func TestInvalidTransitions(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestController(t, Options{})

	if err := c.ConfirmHeader(ctx, 0); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("ConfirmHeader() from Upload error = %v", err)
	}
	if err := c.ConfirmColumns(ctx, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("ConfirmColumns() from Upload error = %v", err)
	}
	if err := c.StartSubmit(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("StartSubmit() from Upload error = %v", err)
	}
	if err := c.SubmitUpload(ctx, singleSheet([]string{"a"}, []string{"b"}), testFile()); err != nil {
		t.Fatal(err)
	}
	if err := c.SubmitUpload(ctx, singleSheet([]string{"a"}), testFile()); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("SubmitUpload() from MatchColumns error = %v", err)
	}
}

func TestConfirmHeader_OutOfRange(t *testing.T) {
	c, _ := newTestController(t, Options{InitialState: SelectHeader{Rows: []workbook.Row{{"a"}}}})
	for _, idx := range []int{-1, 1} {
		if err := c.ConfirmHeader(context.Background(), idx); !errors.Is(err, ErrHeaderIndex) {
			t.Errorf("ConfirmHeader(%d) error = %v, want ErrHeaderIndex", idx, err)
		}
	}
}

func TestNewController_InitialState(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"default", Options{}, false},
		{"select header", Options{InitialState: SelectHeader{}}, false},
		{"select sheet", Options{InitialState: SelectSheet{Workbook: twoSheets()}}, false},
		{"select sheet without workbook", Options{InitialState: SelectSheet{}}, true},
		{"validate data with file", Options{InitialState: ValidateData{}, UploadedFile: testFile()}, false},
		{"validate data without file", Options{InitialState: ValidateData{}}, true},
		{"loading", Options{InitialState: Loading{}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewController(tt.opts)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidInitialState) {
					t.Errorf("NewController() error = %v, want ErrInvalidInitialState", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewController() error = %v", err)
			}
			if !reflect.DeepEqual(c.State(), c.InitialState()) || !reflect.DeepEqual(c.PreviousState(), c.InitialState()) {
				t.Error("state and checkpoint should start at the initial state")
			}
		})
	}
}

func TestStep_Text(t *testing.T) {
	for s := StepUpload; s <= StepLoading; s++ {
		b, err := s.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var got Step
		if err := got.UnmarshalText(b); err != nil || got != s {
			t.Errorf("UnmarshalText(%q) = %v, %v; want %v", b, got, err, s)
		}
	}
	var s Step
	if err := s.UnmarshalText([]byte("nope")); err == nil {
		t.Error("UnmarshalText(nope) should fail")
	}
	if Position(StepLoading) != Position(StepValidateData) {
		t.Error("Loading should share the validation position")
	}
	if Position(StepSelectSheet) != Position(StepSelectHeader) {
		t.Error("sheet and header selection should share a position")
	}
	if Position(StepUpload) >= Position(StepSelectHeader) || Position(StepSelectHeader) >= Position(StepMatchColumns) {
		t.Error("positions should increase along the forward path")
	}
}
