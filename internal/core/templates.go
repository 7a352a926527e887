package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/JonMunkholm/SheetImport/internal/store"
	"github.com/JonMunkholm/SheetImport/internal/wizard"
	"github.com/JonMunkholm/SheetImport/internal/workbook"
)

// TemplateMatchThreshold is the share of a template's headers that must be
// present in a file for the template to be offered.
const TemplateMatchThreshold = 0.7

// ErrInvalidTemplate is returned for a template that cannot be saved.
var ErrInvalidTemplate = errors.New("invalid template")

// TemplateMatch is a saved template scored against a session's header row.
type TemplateMatch struct {
	store.Template
	Score float64 `json:"score"`
}

// CreateTemplate validates and saves a column mapping for target. Mapping
// values are field keys of the target; "" or "-" ignores the column. With no
// headers the mapped headers are used.
func (s *Service) CreateTemplate(ctx context.Context, target, name string, headers []string, mapping map[string]string) (*store.Template, error) {
	set, err := s.Fields(target)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidTemplate)
	}
	if len(mapping) == 0 {
		return nil, fmt.Errorf("%w: mapping is required", ErrInvalidTemplate)
	}

	clean := make(map[string]string, len(mapping))
	usedBy := make(map[string]string)
	for header, key := range mapping {
		header, key = strings.TrimSpace(header), strings.TrimSpace(key)
		if header == "" {
			return nil, fmt.Errorf("%w: empty header name", ErrInvalidTemplate)
		}
		if key == "" || key == "-" {
			clean[header] = "-"
			continue
		}
		if _, ok := set.Field(key); !ok {
			return nil, fmt.Errorf("%w: unknown field %q", ErrInvalidTemplate, key)
		}
		if prev, dup := usedBy[key]; dup {
			return nil, fmt.Errorf("%w: field %q mapped by %q and %q", ErrInvalidTemplate, key, prev, header)
		}
		usedBy[key] = header
		clean[header] = key
	}

	if len(headers) == 0 {
		for h := range clean {
			headers = append(headers, h)
		}
		sort.Strings(headers)
	}

	t := &store.Template{Target: set.Name, Name: name, Headers: headers, Mapping: clean}
	if err := s.store.SaveTemplate(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// SaveSessionTemplate saves the mapping a session confirmed. The session
// must be at the validation step.
func (s *Service) SaveSessionTemplate(ctx context.Context, id, name string) (*store.Template, error) {
	var t *store.Template
	_, err := s.do(ctx, id, func(ctx context.Context, sess *Session) error {
		st, ok := sess.ctrl.State().(wizard.ValidateData)
		if !ok {
			return fmt.Errorf("%w: save template from %s", wizard.ErrInvalidTransition, sess.ctrl.State().Step())
		}
		var headers []string
		for _, c := range st.ImportedColumns {
			if h := strings.TrimSpace(c.Header); h != "" {
				headers = append(headers, h)
			}
		}
		var err error
		t, err = s.CreateTemplate(ctx, sess.Target.Name, name, headers, st.ImportedColumns.HeaderMapping())
		return err
	})
	return t, err
}

// Templates lists saved templates for target, or all of them when target
// is empty.
func (s *Service) Templates(ctx context.Context, target string) ([]store.Template, error) {
	return s.store.ListTemplates(ctx, target)
}

// Template returns one saved template.
func (s *Service) Template(ctx context.Context, id string) (*store.Template, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", store.ErrTemplateNotFound, id)
	}
	return s.store.GetTemplate(ctx, uid)
}

// DeleteTemplate removes a saved template.
func (s *Service) DeleteTemplate(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: %s", store.ErrTemplateNotFound, id)
	}
	return s.store.DeleteTemplate(ctx, uid)
}

// MatchTemplates returns the session target's templates that fit its header
// row, best first. The session must be at the column matching step.
func (s *Service) MatchTemplates(ctx context.Context, id string) ([]TemplateMatch, error) {
	var matches []TemplateMatch
	_, err := s.do(ctx, id, func(ctx context.Context, sess *Session) error {
		st, ok := sess.ctrl.State().(wizard.MatchColumns)
		if !ok {
			return fmt.Errorf("%w: match templates from %s", wizard.ErrInvalidTransition, sess.ctrl.State().Step())
		}
		templates, err := s.store.ListTemplates(ctx, sess.Target.Name)
		if err != nil {
			return err
		}

		header := make([]string, len(st.HeaderValues))
		for i, v := range st.HeaderValues {
			header[i] = workbook.CellString(v)
		}
		for _, t := range templates {
			if score := matchTemplateHeaders(header, t.Headers); score >= TemplateMatchThreshold {
				matches = append(matches, TemplateMatch{Template: t, Score: score})
			}
		}
		sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
		return nil
	})
	if matches == nil && err == nil {
		matches = []TemplateMatch{}
	}
	return matches, err
}

// ApplyTemplate confirms the session's columns from a saved template. The
// template's mapping overrides the suggestion for the headers the file
// has; other headers keep their suggested match.
func (s *Service) ApplyTemplate(ctx context.Context, id, templateID string) (*Snapshot, error) {
	t, err := s.Template(ctx, templateID)
	if err != nil {
		return nil, err
	}
	return s.do(ctx, id, func(ctx context.Context, sess *Session) error {
		if t.Target != sess.Target.Name {
			return fmt.Errorf("%w: template %q is for %s, not %s", wizard.ErrColumnMapping, t.Name, t.Target, sess.Target.Name)
		}
		st, ok := sess.ctrl.State().(wizard.MatchColumns)
		if !ok {
			return fmt.Errorf("%w: apply template from %s", wizard.ErrInvalidTransition, sess.ctrl.State().Step())
		}
		overrides := wizard.EmptyColumns(st.HeaderValues).KnownHeaders(t.Mapping)
		return s.confirmOverrides(ctx, sess, st, overrides)
	})
}

// matchTemplateHeaders returns the share of template headers found in
// header, ignoring case and surrounding space.
func matchTemplateHeaders(header, templateHeaders []string) float64 {
	if len(templateHeaders) == 0 {
		return 0
	}

	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[strings.ToLower(strings.TrimSpace(h))] = true
	}

	matched := 0
	for _, h := range templateHeaders {
		if present[strings.ToLower(strings.TrimSpace(h))] {
			matched++
		}
	}
	return float64(matched) / float64(len(templateHeaders))
}
