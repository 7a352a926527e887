package wizard

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/SheetImport/internal/schema"
	"github.com/JonMunkholm/SheetImport/internal/workbook"
)

// Options configures a Controller.
type Options struct {
	// NextStep and PrevStep move the host's step indicator. Either may be nil.
	NextStep func()
	PrevStep func()

	// MaxRecords caps the data rows of the imported sheet. <= 0 is unlimited.
	MaxRecords int

	// SelectHeader enables the manual header step. When false the first row
	// of a single-sheet upload is used as the header.
	SelectHeader bool

	Hooks  Hooks
	Fields []schema.Field

	// InitialState resumes the wizard mid-flow. Nil starts at Upload.
	InitialState State

	// UploadedFile is required when InitialState is ValidateData.
	UploadedFile *workbook.File

	Notifier Notifier
	Logger   *slog.Logger
}

// Controller drives one import through its steps. It is not safe for
// concurrent use; the host serializes calls.
type Controller struct {
	state        State
	history      history
	uploadedFile *workbook.File

	nextStep     func()
	prevStep     func()
	maxRecords   int
	selectHeader bool
	hooks        Hooks
	fields       []schema.Field
	notifier     Notifier
	log          *slog.Logger
}

// NewController validates opts and returns a controller at the initial state.
func NewController(opts Options) (*Controller, error) {
	initial := opts.InitialState
	if initial == nil {
		initial = Upload{}
	}
	if err := validateInitial(initial, opts.UploadedFile); err != nil {
		return nil, err
	}

	c := &Controller{
		state:        initial,
		history:      newHistory(initial),
		uploadedFile: opts.UploadedFile,
		nextStep:     opts.NextStep,
		prevStep:     opts.PrevStep,
		maxRecords:   opts.MaxRecords,
		selectHeader: opts.SelectHeader,
		hooks:        opts.Hooks.withDefaults(),
		fields:       opts.Fields,
		notifier:     opts.Notifier,
		log:          opts.Logger,
	}
	if c.notifier == nil {
		c.notifier = nopNotifier{}
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	return c, nil
}

func validateInitial(s State, file *workbook.File) error {
	switch st := s.(type) {
	case Upload, SelectHeader, MatchColumns:
		return nil
	case SelectSheet:
		if err := st.Workbook.Validate(); err != nil {
			return fmt.Errorf("%w: select sheet: %v", ErrInvalidInitialState, err)
		}
		return nil
	case ValidateData:
		if file == nil {
			return fmt.Errorf("%w: validate data requires the uploaded file", ErrInvalidInitialState)
		}
		return nil
	default:
		return fmt.Errorf("%w: cannot start at %s", ErrInvalidInitialState, s.Step())
	}
}

// State returns the current state. Its payload must not be modified.
func (c *Controller) State() State { return c.state }

// PreviousState returns the back-navigation checkpoint.
func (c *Controller) PreviousState() State { return c.history.previous }

// InitialState returns the state the wizard started from.
func (c *Controller) InitialState() State { return c.history.initial }

// UploadedFile returns the file kept since the upload step, or nil.
func (c *Controller) UploadedFile() *workbook.File { return c.uploadedFile }

// Fields returns the target fields.
func (c *Controller) Fields() []schema.Field { return c.fields }

// SubmitUpload handles a parsed upload. A multi-sheet workbook moves to
// SelectSheet. A single sheet is checked against the row limit and passed
// through the upload hook, then moves to SelectHeader, or straight to
// MatchColumns with the first row as header when header selection is off.
func (c *Controller) SubmitUpload(ctx context.Context, wb *workbook.Workbook, file *workbook.File) error {
	if _, ok := c.state.(Upload); !ok {
		return c.invalid("upload")
	}
	if err := wb.Validate(); err != nil {
		return err
	}
	c.uploadedFile = file

	if wb.SheetCount() > 1 {
		c.commit(SelectSheet{Workbook: wb})
		return nil
	}

	sheetName := wb.SheetNames[0]
	rows, err := c.loadSheet(ctx, wb, sheetName)
	if err != nil {
		return err
	}

	if c.selectHeader {
		c.commit(SelectHeader{Rows: rows})
		return nil
	}

	res, err := c.hooks.SelectHeader(ctx, rows[0], rows[1:])
	if err != nil {
		return c.fail(StepUpload, &HookError{Step: StepSelectHeader, Err: err})
	}
	c.commit(MatchColumns{Rows: res.ImportedRows, HeaderValues: res.HeaderRow})
	return nil
}

// SelectSheet imports the named sheet of the workbook being shown.
func (c *Controller) SelectSheet(ctx context.Context, sheetName string) error {
	st, ok := c.state.(SelectSheet)
	if !ok {
		return c.invalid("select sheet")
	}
	if _, ok := st.Workbook.Sheet(sheetName); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSheet, sheetName)
	}

	rows, err := c.loadSheet(ctx, st.Workbook, sheetName)
	if err != nil {
		return err
	}
	c.commit(SelectHeader{Rows: rows})
	return nil
}

// loadSheet applies the row limit and the upload hook to one sheet. The
// hook must leave at least one row.
func (c *Controller) loadSheet(ctx context.Context, wb *workbook.Workbook, sheetName string) ([]workbook.Row, error) {
	step := c.state.Step()

	sheet, _ := wb.Sheet(sheetName)
	if err := checkLimit(sheet, c.maxRecords); err != nil {
		return nil, c.fail(step, err)
	}

	mapped, err := workbook.MapWorkbook(wb, sheetName)
	if err != nil {
		return nil, err
	}
	rows, err := c.hooks.Upload(ctx, mapped)
	if err != nil {
		return nil, c.fail(step, &HookError{Step: StepUpload, Err: err})
	}
	if len(rows) == 0 {
		return nil, c.fail(step, ErrNoData)
	}
	return rows, nil
}

// ConfirmHeader uses row index as the header and the rows after it as data.
func (c *Controller) ConfirmHeader(ctx context.Context, index int) error {
	st, ok := c.state.(SelectHeader)
	if !ok {
		return c.invalid("confirm header")
	}
	if index < 0 || index >= len(st.Rows) {
		return fmt.Errorf("%w: %d of %d rows", ErrHeaderIndex, index, len(st.Rows))
	}

	rows := workbook.Clone(st.Rows)
	res, err := c.hooks.SelectHeader(ctx, rows[index], rows[index+1:])
	if err != nil {
		return c.fail(StepSelectHeader, &HookError{Step: StepSelectHeader, Err: err})
	}
	c.commit(MatchColumns{Rows: res.ImportedRows, HeaderValues: res.HeaderRow})
	return nil
}

// ConfirmColumns applies the column mapping and moves to ValidateData.
// It panics with ErrFileNotFound when no file was uploaded.
func (c *Controller) ConfirmColumns(ctx context.Context, columns Columns) error {
	st, ok := c.state.(MatchColumns)
	if !ok {
		return c.invalid("confirm columns")
	}
	if err := columns.Validate(len(st.HeaderValues), c.fields); err != nil {
		return err
	}
	c.requireFile()

	rows := workbook.Clone(st.Rows)
	cols := columns.Clone()
	values := NormalizeTableData(cols, rows, c.fields)

	records, err := c.hooks.MatchColumns(ctx, values, rows, cols)
	if err != nil {
		return c.fail(StepMatchColumns, &HookError{Step: StepMatchColumns, Err: err})
	}
	c.commit(ValidateData{Records: records, ImportedColumns: columns.Clone()})
	return nil
}

// StartSubmit moves from ValidateData to Loading. It panics with
// ErrFileNotFound when no file was uploaded.
func (c *Controller) StartSubmit() error {
	if _, ok := c.state.(ValidateData); !ok {
		return c.invalid("submit")
	}
	c.requireFile()
	c.commit(Loading{})
	return nil
}

// Back returns to the checkpoint, or to the initial state when leaving
// ValidateData.
func (c *Controller) Back() error {
	switch c.state.(type) {
	case SelectSheet, SelectHeader, MatchColumns, ValidateData:
	default:
		return c.invalid("back")
	}

	from := c.state
	c.state = c.history.restore(from)
	c.log.Debug("step back", "from", from.Step(), "to", c.state.Step())
	if c.prevStep != nil {
		c.prevStep()
	}
	return nil
}

// commit replaces the state and records the one being left.
func (c *Controller) commit(next State) {
	prev := c.state
	c.history.record(prev)
	c.state = next

	c.log.Debug("step transition", "from", prev.Step(), "to", next.Step())
	if Position(prev.Step()) != Position(next.Step()) && c.nextStep != nil {
		c.nextStep()
	}
}

// fail reports a user-correctable error and leaves the state unchanged.
func (c *Controller) fail(step Step, err error) error {
	c.log.Warn("step rejected", "step", step, "error", err)
	c.notifier.NotifyError(err.Error())
	return err
}

func (c *Controller) invalid(action string) error {
	return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, action, c.state.Step())
}

func (c *Controller) requireFile() {
	if c.uploadedFile == nil {
		c.log.Error("validation entered without uploaded file", "step", c.state.Step())
		panic(ErrFileNotFound)
	}
}
