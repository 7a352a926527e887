package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process Store.
type Memory struct {
	mu      sync.RWMutex
	imports map[uuid.UUID]*Import
	order   []uuid.UUID

	templates map[uuid.UUID]*Template
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		imports:   make(map[uuid.UUID]*Import),
		templates: make(map[uuid.UUID]*Template),
	}
}

// SaveImport stores a copy of imp, assigning an ID and timestamp if unset.
func (m *Memory) SaveImport(ctx context.Context, imp *Import) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	prepare(imp)

	cp := *imp
	cp.Records = append([]Record(nil), imp.Records...)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.imports[cp.ID]; !exists {
		m.order = append(m.order, cp.ID)
	}
	m.imports[cp.ID] = &cp
	return nil
}

// GetImport returns the import with its records.
func (m *Memory) GetImport(_ context.Context, id uuid.UUID) (*Import, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	imp, ok := m.imports[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *imp
	cp.Records = append([]Record(nil), imp.Records...)
	return &cp, nil
}

// ListImports returns the newest imports first.
func (m *Memory) ListImports(_ context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Summary, 0, min(limit, len(m.order)))
	for i := len(m.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, summarize(m.imports[m.order[i]]))
	}
	return out, nil
}

// SaveTemplate stores a copy of t. Names are unique per target.
func (m *Memory) SaveTemplate(ctx context.Context, t *Template) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	prepareTemplate(t)

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.templates {
		if other.ID != t.ID && other.Target == t.Target && other.Name == t.Name {
			return ErrTemplateExists
		}
	}
	m.templates[t.ID] = cloneTemplate(t)
	return nil
}

// GetTemplate returns a template by id.
func (m *Memory) GetTemplate(_ context.Context, id uuid.UUID) (*Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.templates[id]
	if !ok {
		return nil, ErrTemplateNotFound
	}
	return cloneTemplate(t), nil
}

// ListTemplates returns the target's templates sorted by name. An empty
// target lists all of them.
func (m *Memory) ListTemplates(_ context.Context, target string) ([]Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Template, 0, len(m.templates))
	for _, t := range m.templates {
		if target == "" || t.Target == target {
			out = append(out, *cloneTemplate(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Target != out[j].Target {
			return out[i].Target < out[j].Target
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// DeleteTemplate removes a template.
func (m *Memory) DeleteTemplate(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.templates[id]; !ok {
		return ErrTemplateNotFound
	}
	delete(m.templates, id)
	return nil
}

// Ping always succeeds.
func (m *Memory) Ping(context.Context) error { return nil }

// Close is a no-op.
func (m *Memory) Close() {}
