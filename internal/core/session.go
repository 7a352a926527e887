package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/SheetImport/internal/schema"
	"github.com/JonMunkholm/SheetImport/internal/wizard"
)

var (
	// ErrSessionNotFound is returned for an unknown or expired session id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionBusy is returned when another call holds the session.
	ErrSessionBusy = errors.New("session busy")

	// ErrUnknownTarget is returned when no field set has the requested name.
	ErrUnknownTarget = errors.New("unknown target")
)

// Session is one import in progress. All wizard calls on it are serialized
// by mu; calls that find it held fail with ErrSessionBusy.
type Session struct {
	ID        string
	Target    schema.Set
	CreatedAt time.Time
	Client    ClientInfo

	mu      sync.Mutex
	ctrl    *wizard.Controller
	stepper int // moved by the controller's step callbacks
	result  *SubmitResult
	failure error

	notesMu sync.Mutex
	notes   []string

	usedMu   sync.Mutex
	lastUsed time.Time
}

// SubmitResult is the outcome of a finished import.
type SubmitResult struct {
	ImportID uuid.UUID `json:"importId"`
	Summary
	Rejected []RowResult `json:"rejected,omitempty"`
}

func newSession(target schema.Set, client ClientInfo, now time.Time) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Target:    target,
		CreatedAt: now,
		Client:    client,
		lastUsed:  now,
	}
}

// NotifyError queues a message for the next snapshot.
func (s *Session) NotifyError(message string) {
	s.notesMu.Lock()
	s.notes = append(s.notes, message)
	s.notesMu.Unlock()
}

func (s *Session) drainNotes() []string {
	s.notesMu.Lock()
	defer s.notesMu.Unlock()
	notes := s.notes
	s.notes = nil
	return notes
}

func (s *Session) nextStep() { s.stepper++ }
func (s *Session) prevStep() { s.stepper-- }

func (s *Session) touch(now time.Time) {
	s.usedMu.Lock()
	s.lastUsed = now
	s.usedMu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.usedMu.Lock()
	defer s.usedMu.Unlock()
	return s.lastUsed
}

// lock takes the session for one call.
func (s *Session) lock(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.mu.TryLock() {
		return ErrSessionBusy
	}
	return nil
}
