package wizard

import (
	"fmt"

	"github.com/JonMunkholm/SheetImport/internal/workbook"
)

// Step identifies a wizard phase.
type Step int

const (
	StepUpload Step = iota
	StepSelectSheet
	StepSelectHeader
	StepMatchColumns
	StepValidateData
	StepLoading
)

var stepNames = [...]string{
	StepUpload:       "upload",
	StepSelectSheet:  "selectSheet",
	StepSelectHeader: "selectHeader",
	StepMatchColumns: "matchColumns",
	StepValidateData: "validateData",
	StepLoading:      "loading",
}

func (s Step) String() string {
	if s < 0 || int(s) >= len(stepNames) {
		return fmt.Sprintf("Step(%d)", int(s))
	}
	return stepNames[s]
}

// MarshalText encodes the step by name.
func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a step name.
func (s *Step) UnmarshalText(b []byte) error {
	for i, name := range stepNames {
		if name == string(b) {
			*s = Step(i)
			return nil
		}
	}
	return fmt.Errorf("unknown step %q", string(b))
}

// Position is the index of the step on the user-visible stepper. Sheet and
// header selection share one position, as do validation and loading.
func Position(s Step) int {
	switch s {
	case StepUpload:
		return 0
	case StepSelectSheet, StepSelectHeader:
		return 1
	case StepMatchColumns:
		return 2
	default:
		return 3
	}
}

// Record is one normalized row keyed by target field key.
type Record map[string]any

// State is the wizard's current phase together with the data it owns.
// Exactly one of the variants below is active at a time; the controller
// replaces the value on each transition and never modifies it in place.
type State interface {
	Step() Step
	isState()
}

// Upload waits for a file.
type Upload struct{}

// SelectSheet asks the user to pick one sheet of a multi-sheet workbook.
type SelectSheet struct {
	Workbook *workbook.Workbook
}

// SelectHeader asks the user which row holds the column headers.
type SelectHeader struct {
	Rows []workbook.Row
}

// MatchColumns asks the user to map source columns onto target fields.
type MatchColumns struct {
	Rows         []workbook.Row // Data rows, header excluded
	HeaderValues workbook.Row
}

// ValidateData holds the mapped records awaiting review and submission.
type ValidateData struct {
	Records         []Record
	ImportedColumns Columns
}

// Loading is reached once submission starts.
type Loading struct{}

func (Upload) Step() Step       { return StepUpload }
func (SelectSheet) Step() Step  { return StepSelectSheet }
func (SelectHeader) Step() Step { return StepSelectHeader }
func (MatchColumns) Step() Step { return StepMatchColumns }
func (ValidateData) Step() Step { return StepValidateData }
func (Loading) Step() Step      { return StepLoading }

func (Upload) isState()       {}
func (SelectSheet) isState()  {}
func (SelectHeader) isState() {}
func (MatchColumns) isState() {}
func (ValidateData) isState() {}
func (Loading) isState()      {}
