package core

import (
	"time"

	"github.com/JonMunkholm/SheetImport/internal/wizard"
	"github.com/JonMunkholm/SheetImport/internal/workbook"
)

// DefaultPreviewRows caps the rows included in a snapshot.
const DefaultPreviewRows = 25

// SheetInfo describes one sheet offered at the sheet selection step.
type SheetInfo struct {
	Name string `json:"name"`
	Rows int    `json:"rows"` // Data rows, header excluded
}

// Snapshot is the externally visible view of a session.
//
// Stepper counts the controller's step callbacks. Commits advance it only
// when Position changes, but every Back retreats it, so after going back
// between sheet and header selection, or from validation to the start, it
// no longer equals Position. Clients drawing a progress bar should use
// Position.
type Snapshot struct {
	ID           string      `json:"id"`
	Target       string      `json:"target"`
	FileName     string      `json:"fileName,omitempty"`
	Step         wizard.Step `json:"step"`
	Position     int         `json:"position"` // Stepper index of Step
	Stepper      int         `json:"stepper"`  // Net advance and retreat calls
	PreviousStep wizard.Step `json:"previousStep"`

	Sheets  []SheetInfo     `json:"sheets,omitempty"`
	Header  workbook.Row    `json:"header,omitempty"`
	Rows    []workbook.Row  `json:"rows,omitempty"`
	Columns wizard.Columns  `json:"columns,omitempty"`
	Records []wizard.Record `json:"records,omitempty"`
	Total   int             `json:"total"`

	// Unmatched lists required field keys no imported column maps to.
	Unmatched []string `json:"unmatched,omitempty"`

	Notifications []string      `json:"notifications,omitempty"`
	Result        *SubmitResult `json:"result,omitempty"`
	Error         string        `json:"error,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// snapshot must be called with s.mu held. It drains queued notifications.
func (s *Session) snapshot(previewRows int) *Snapshot {
	snap := &Snapshot{
		ID:            s.ID,
		Target:        s.Target.Name,
		Step:          s.ctrl.State().Step(),
		Position:      wizard.Position(s.ctrl.State().Step()),
		Stepper:       s.stepper,
		PreviousStep:  s.ctrl.PreviousState().Step(),
		Notifications: s.drainNotes(),
		Result:        s.result,
		CreatedAt:     s.CreatedAt,
	}
	if f := s.ctrl.UploadedFile(); f != nil {
		snap.FileName = f.Name
	}
	if s.failure != nil {
		snap.Error = FormatUserError(s.failure)
	}

	switch st := s.ctrl.State().(type) {
	case wizard.SelectSheet:
		for _, name := range st.Workbook.SheetNames {
			sheet, _ := st.Workbook.Sheet(name)
			snap.Sheets = append(snap.Sheets, SheetInfo{Name: name, Rows: sheet.DataRowCount()})
		}
	case wizard.SelectHeader:
		snap.Rows = preview(st.Rows, previewRows)
		snap.Total = len(st.Rows)
	case wizard.MatchColumns:
		snap.Header = st.HeaderValues
		snap.Rows = preview(st.Rows, previewRows)
		snap.Total = len(st.Rows)
	case wizard.ValidateData:
		snap.Columns = st.ImportedColumns
		snap.Records = preview(st.Records, previewRows)
		snap.Total = len(st.Records)
		for _, f := range wizard.UnmatchedRequired(st.ImportedColumns, s.Target.Fields) {
			snap.Unmatched = append(snap.Unmatched, f.Key)
		}
	}
	return snap
}

func preview[T any](rows []T, limit int) []T {
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}
