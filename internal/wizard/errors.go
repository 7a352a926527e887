package wizard

import (
	"errors"
	"fmt"
)

var (
	// ErrFileNotFound signals that validation was entered without the
	// uploaded file. It is a host contract violation and is raised with panic.
	ErrFileNotFound = errors.New("File not found")

	// ErrInvalidTransition is returned when an action is not allowed from
	// the current step.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrInvalidInitialState is returned by NewController for an unusable
	// resume state.
	ErrInvalidInitialState = errors.New("invalid initial state")

	// ErrUnknownSheet is returned when the chosen sheet is not in the workbook.
	ErrUnknownSheet = errors.New("unknown sheet")

	// ErrHeaderIndex is returned when the chosen header row does not exist.
	ErrHeaderIndex = errors.New("header row out of range")

	// ErrColumnMapping is returned for a column mapping that does not fit the
	// header or the target fields.
	ErrColumnMapping = errors.New("invalid column mapping")

	// ErrNoData is reported when the selected sheet has no rows.
	ErrNoData = errors.New("No data found in the selected sheet")
)

// LimitError reports a sheet with more data rows than allowed.
type LimitError struct {
	Max  int
	Rows int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("Too many records. Up to %d allowed", e.Max)
}

// HookError wraps a failed hook. Its message is the hook's message verbatim.
type HookError struct {
	Step Step
	Err  error
}

func (e *HookError) Error() string {
	return e.Err.Error()
}

func (e *HookError) Unwrap() error {
	return e.Err
}

// IsRecoverable reports whether err was raised by the wizard for the user to
// correct: a row-limit rejection, a hook failure, or an empty sheet. Such
// errors have already been sent to the notifier and left state unchanged.
func IsRecoverable(err error) bool {
	var le *LimitError
	var he *HookError
	return errors.As(err, &le) || errors.As(err, &he) || errors.Is(err, ErrNoData)
}
