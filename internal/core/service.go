package core

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/SheetImport/internal/logging"
	"github.com/JonMunkholm/SheetImport/internal/schema"
	"github.com/JonMunkholm/SheetImport/internal/store"
	"github.com/JonMunkholm/SheetImport/internal/wizard"
	"github.com/JonMunkholm/SheetImport/internal/workbook"
)

const (
	// DefaultMaxSessions caps open sessions when none is configured.
	DefaultMaxSessions = 50

	// DefaultSessionTTL is how long an idle session is kept.
	DefaultSessionTTL = 30 * time.Minute

	// SubmitTimeout bounds a single store write.
	SubmitTimeout = 2 * time.Minute
)

// ServiceOptions configures a Service.
type ServiceOptions struct {
	MaxRecords      int  // Data rows allowed per sheet; <= 0 is unlimited
	SelectHeader    bool // Ask for the header row instead of using the first
	AutoMapDistance int
	MaxSessions     int
	SessionTTL      time.Duration
	PreviewRows     int

	Hooks     wizard.Hooks
	RowHook   RowHook
	TableHook TableHook

	// Lookup resolves a target name to its fields. Nil uses the schema
	// registry; an empty name picks the registry default.
	Lookup func(name string) (schema.Set, bool)
}

// Service hosts import sessions, one wizard controller each.
type Service struct {
	provider workbook.Provider
	store    store.Store
	limiter  *SessionLimiter
	opts     ServiceOptions
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewService creates a Service. A nil limiter uses the defaults.
func NewService(provider workbook.Provider, st store.Store, limiter *SessionLimiter, opts ServiceOptions) *Service {
	if limiter == nil {
		limiter = NewSessionLimiter(0, 0)
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	if opts.PreviewRows == 0 {
		opts.PreviewRows = DefaultPreviewRows
	}
	if opts.Lookup == nil {
		opts.Lookup = registryLookup
	}
	return &Service{
		provider: provider,
		store:    st,
		limiter:  limiter,
		opts:     opts,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

func registryLookup(name string) (schema.Set, bool) {
	if name == "" {
		return schema.Default()
	}
	return schema.Get(name)
}

// Create opens an empty session at the upload step.
func (s *Service) Create(ctx context.Context, target string) (*Snapshot, error) {
	sess, err := s.open(ctx, target, nil, nil)
	if err != nil {
		return nil, err
	}
	return s.do(ctx, sess.ID, func(context.Context, *Session) error { return nil })
}

// Start opens a session and submits file to its upload step. A recoverable
// upload error keeps the session and is returned with its snapshot; any
// other failure discards the session.
func (s *Service) Start(ctx context.Context, target string, file workbook.File) (*Snapshot, error) {
	sess, err := s.open(ctx, target, nil, nil)
	if err != nil {
		return nil, err
	}

	snap, err := s.Upload(ctx, sess.ID, file)
	if err != nil && !wizard.IsRecoverable(err) {
		s.remove(sess.ID)
		return nil, err
	}
	return snap, err
}

// Resume opens a session from a supplied state, for example a saved column
// mapping. file is required when resuming at ValidateData.
func (s *Service) Resume(ctx context.Context, target string, initial wizard.State, file *workbook.File) (*Snapshot, error) {
	sess, err := s.open(ctx, target, initial, file)
	if err != nil {
		return nil, err
	}
	return s.do(ctx, sess.ID, func(context.Context, *Session) error { return nil })
}

func (s *Service) open(ctx context.Context, target string, initial wizard.State, file *workbook.File) (*Session, error) {
	set, ok := s.opts.Lookup(target)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTarget, target)
	}

	sess := newSession(set, ClientInfoFrom(ctx), s.now())
	ctrl, err := wizard.NewController(wizard.Options{
		NextStep:     sess.nextStep,
		PrevStep:     sess.prevStep,
		MaxRecords:   s.opts.MaxRecords,
		SelectHeader: s.opts.SelectHeader,
		Hooks:        s.opts.Hooks,
		Fields:       set.Fields,
		InitialState: initial,
		UploadedFile: file,
		Notifier:     sess,
		Logger:       slog.Default().With("session_id", sess.ID, "target", set.Name),
	})
	if err != nil {
		return nil, err
	}
	sess.ctrl = ctrl
	sess.stepper = wizard.Position(ctrl.State().Step())

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sessions) >= s.opts.MaxSessions {
		return nil, ErrTooManySessions
	}
	s.sessions[sess.ID] = sess

	logging.WithFields(ctx, "session_id", sess.ID, "target", set.Name).
		Info("import session opened", "step", ctrl.State().Step())
	return sess, nil
}

// Upload parses file and submits it to the session's upload step.
func (s *Service) Upload(ctx context.Context, id string, file workbook.File) (*Snapshot, error) {
	return s.do(ctx, id, func(ctx context.Context, sess *Session) error {
		if _, ok := sess.ctrl.State().(wizard.Upload); !ok {
			return fmt.Errorf("%w: upload from %s", wizard.ErrInvalidTransition, sess.ctrl.State().Step())
		}
		if err := s.limiter.Acquire(ctx); err != nil {
			return err
		}
		defer s.limiter.Release()

		wb, err := s.provider.Parse(ctx, file)
		if err != nil {
			return fmt.Errorf("parse %s: %w", file.Name, err)
		}
		logging.FromContext(ctx).Info("workbook parsed", "file", file.Name, "sheets", wb.SheetCount())
		return sess.ctrl.SubmitUpload(ctx, wb, &file)
	})
}

// SelectSheet imports one sheet of a multi-sheet workbook.
func (s *Service) SelectSheet(ctx context.Context, id, sheet string) (*Snapshot, error) {
	return s.do(ctx, id, func(ctx context.Context, sess *Session) error {
		return sess.ctrl.SelectSheet(ctx, sheet)
	})
}

// ConfirmHeader picks the header row.
func (s *Service) ConfirmHeader(ctx context.Context, id string, index int) (*Snapshot, error) {
	return s.do(ctx, id, func(ctx context.Context, sess *Session) error {
		return sess.ctrl.ConfirmHeader(ctx, index)
	})
}

// SuggestColumns proposes a column mapping for the session's header.
func (s *Service) SuggestColumns(ctx context.Context, id string) (wizard.Columns, error) {
	var cols wizard.Columns
	_, err := s.do(ctx, id, func(ctx context.Context, sess *Session) error {
		st, ok := sess.ctrl.State().(wizard.MatchColumns)
		if !ok {
			return fmt.Errorf("%w: suggest columns from %s", wizard.ErrInvalidTransition, sess.ctrl.State().Step())
		}
		cols = wizard.SuggestColumns(st.HeaderValues, st.Rows, sess.Target.Fields, s.autoMapDistance())
		return nil
	})
	return cols, err
}

func (s *Service) autoMapDistance() int {
	if s.opts.AutoMapDistance == 0 {
		return wizard.DefaultAutoMapDistance
	}
	return s.opts.AutoMapDistance
}

// ConfirmColumns applies a column mapping. A nil mapping uses the suggested one.
func (s *Service) ConfirmColumns(ctx context.Context, id string, columns wizard.Columns) (*Snapshot, error) {
	return s.do(ctx, id, func(ctx context.Context, sess *Session) error {
		if columns == nil {
			if st, ok := sess.ctrl.State().(wizard.MatchColumns); ok {
				columns = wizard.SuggestColumns(st.HeaderValues, st.Rows, sess.Target.Fields, s.autoMapDistance())
			}
		}
		return sess.ctrl.ConfirmColumns(ctx, columns)
	})
}

// ConfirmMapping applies the suggested mapping with overrides, given as
// header name to field key, and confirms it.
func (s *Service) ConfirmMapping(ctx context.Context, id string, overrides map[string]string) (*Snapshot, error) {
	return s.do(ctx, id, func(ctx context.Context, sess *Session) error {
		st, ok := sess.ctrl.State().(wizard.MatchColumns)
		if !ok {
			return fmt.Errorf("%w: confirm mapping from %s", wizard.ErrInvalidTransition, sess.ctrl.State().Step())
		}
		return s.confirmOverrides(ctx, sess, st, overrides)
	})
}

// confirmOverrides applies overrides to the suggested columns and confirms
// the result.
func (s *Service) confirmOverrides(ctx context.Context, sess *Session, st wizard.MatchColumns, overrides map[string]string) error {
	cols := wizard.SuggestColumns(st.HeaderValues, st.Rows, sess.Target.Fields, s.autoMapDistance())
	cols, err := cols.Override(overrides, st.Rows, sess.Target.Fields)
	if err != nil {
		return err
	}
	return sess.ctrl.ConfirmColumns(ctx, cols)
}

// Back returns the session to its previous step.
func (s *Service) Back(ctx context.Context, id string) (*Snapshot, error) {
	return s.do(ctx, id, func(_ context.Context, sess *Session) error {
		return sess.ctrl.Back()
	})
}

// Validate checks the records awaiting submission.
func (s *Service) Validate(ctx context.Context, id string) ([]RowResult, Summary, error) {
	var rows []RowResult
	_, err := s.do(ctx, id, func(ctx context.Context, sess *Session) error {
		st, ok := sess.ctrl.State().(wizard.ValidateData)
		if !ok {
			return fmt.Errorf("%w: validate from %s", wizard.ErrInvalidTransition, sess.ctrl.State().Step())
		}
		var err error
		rows, err = s.validate(ctx, st.Records, sess.Target.Fields)
		return err
	})
	if err != nil {
		return nil, Summary{}, err
	}
	return rows, Summarize(rows), nil
}

func (s *Service) validate(ctx context.Context, records []wizard.Record, fields []schema.Field) ([]RowResult, error) {
	rows := ValidateRecords(records, fields)
	if err := ApplyHooks(ctx, rows, s.opts.RowHook, s.opts.TableHook); err != nil {
		return nil, err
	}
	return rows, nil
}

// Submit moves the session to Loading, validates its records, and stores
// the valid ones. Invalid rows are counted and returned, not stored. A store
// failure leaves the session in Loading with the error on its snapshot.
func (s *Service) Submit(ctx context.Context, id string) (*Snapshot, error) {
	return s.do(ctx, id, func(ctx context.Context, sess *Session) error {
		st, ok := sess.ctrl.State().(wizard.ValidateData)
		if !ok {
			return fmt.Errorf("%w: submit from %s", wizard.ErrInvalidTransition, sess.ctrl.State().Step())
		}
		if err := s.limiter.Acquire(ctx); err != nil {
			return err
		}
		defer s.limiter.Release()

		if err := sess.ctrl.StartSubmit(); err != nil {
			return err
		}

		log := logging.FromContext(ctx)
		res, err := s.submit(ctx, sess, st)
		if err != nil {
			sess.failure = err
			log.Error("import submit failed", "error", err)
			return err
		}
		sess.result = res
		log.Info("import stored",
			"import_id", res.ImportID,
			"valid", res.Valid,
			"invalid", res.Invalid,
			"warnings", res.Warnings,
		)
		return nil
	})
}

func (s *Service) submit(ctx context.Context, sess *Session, st wizard.ValidateData) (*SubmitResult, error) {
	rows, err := s.validate(ctx, st.Records, sess.Target.Fields)
	if err != nil {
		return nil, err
	}
	valid, invalid := Split(rows)

	records := make([]store.Record, 0, len(valid))
	for _, r := range valid {
		values, err := CoerceRecord(r.Record, sess.Target.Fields)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", r.Index, err)
		}
		records = append(records, store.Record{RowIndex: r.Index, Values: values})
	}

	imp := &store.Import{
		SessionID: sess.ID,
		Target:    sess.Target.Name,
		Mapping:   st.ImportedColumns.Mapping(),
		Records:   records,
		Rejected:  len(invalid),
		ClientIP:  sess.Client.IPAddress,
		UserAgent: sess.Client.UserAgent,
	}
	if f := sess.ctrl.UploadedFile(); f != nil {
		imp.FileName = f.Name
	}

	saveCtx, cancel := context.WithTimeout(ctx, SubmitTimeout)
	defer cancel()
	if err := s.store.SaveImport(saveCtx, imp); err != nil {
		return nil, fmt.Errorf("save import: %w", err)
	}

	return &SubmitResult{
		ImportID: imp.ID,
		Summary:  Summarize(rows),
		Rejected: invalid,
	}, nil
}

// Snapshot returns the session's current view and drains its notifications.
func (s *Service) Snapshot(ctx context.Context, id string) (*Snapshot, error) {
	return s.do(ctx, id, func(context.Context, *Session) error { return nil })
}

// Close discards a session.
func (s *Service) Close(id string) error {
	if !s.remove(id) {
		return ErrSessionNotFound
	}
	slog.Info("import session closed", "session_id", id)
	return nil
}

// Fields returns the target field set by name.
func (s *Service) Fields(name string) (schema.Set, error) {
	set, ok := s.opts.Lookup(name)
	if !ok {
		return schema.Set{}, fmt.Errorf("%w: %q", ErrUnknownTarget, name)
	}
	return set, nil
}

// History lists stored imports, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]store.Summary, error) {
	return s.store.ListImports(ctx, limit)
}

// Ping checks the record store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Import returns a stored import with its records.
func (s *Service) Import(ctx context.Context, id string) (*store.Import, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	return s.store.GetImport(ctx, uid)
}

// SessionIDs returns the ids of open sessions, sorted.
func (s *Service) SessionIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Status reports open sessions and limiter usage.
type Status struct {
	Sessions    int           `json:"sessions"`
	MaxSessions int           `json:"maxSessions"`
	Limiter     LimiterStatus `json:"limiter"`
}

// Status returns the current service load.
func (s *Service) Status() Status {
	s.mu.RLock()
	n := len(s.sessions)
	s.mu.RUnlock()
	return Status{Sessions: n, MaxSessions: s.opts.MaxSessions, Limiter: s.limiter.Status()}
}

// Run expires idle sessions until ctx is done.
func (s *Service) Run(ctx context.Context) {
	interval := min(s.opts.SessionTTL/2, time.Minute)
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Expire(); n > 0 {
				slog.Info("expired idle import sessions", "count", n)
			}
		}
	}
}

// Expire removes sessions idle longer than the TTL and returns how many.
// Sessions with a call in flight are skipped.
func (s *Service) Expire() int {
	cutoff := s.now().Add(-s.opts.SessionTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, sess := range s.sessions {
		if !sess.idleSince().Before(cutoff) {
			continue
		}
		if !sess.mu.TryLock() {
			continue
		}
		delete(s.sessions, id)
		sess.mu.Unlock()
		n++
	}
	return n
}

// Shutdown waits for in-flight parse and submit work to finish.
func (s *Service) Shutdown(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

func (s *Service) get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

func (s *Service) remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// do runs fn with the session locked and returns its snapshot. Recoverable
// wizard errors are returned together with the snapshot so callers can show
// the notification; other errors return no snapshot.
func (s *Service) do(ctx context.Context, id string, fn func(context.Context, *Session) error) (*Snapshot, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if err := sess.lock(ctx); err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()
	sess.touch(s.now())

	ctx = logging.WithSession(ctx, id)
	if err := fn(ctx, sess); err != nil {
		if wizard.IsRecoverable(err) {
			return sess.snapshot(s.opts.PreviewRows), err
		}
		return nil, err
	}
	return sess.snapshot(s.opts.PreviewRows), nil
}
