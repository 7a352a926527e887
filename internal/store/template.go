package store

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrTemplateNotFound is returned when a mapping template does not exist.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrTemplateExists is returned when a target already has a template
	// with the same name.
	ErrTemplateExists = errors.New("template already exists")
)

// Template is a saved column mapping for one target. Mapping is keyed by
// header name; a value of "-" marks a column that is ignored.
type Template struct {
	ID        uuid.UUID         `json:"id"`
	Target    string            `json:"target"`
	Name      string            `json:"name"`
	Headers   []string          `json:"headers"`
	Mapping   map[string]string `json:"mapping"`
	CreatedAt time.Time         `json:"createdAt"`
}

func prepareTemplate(t *Template) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if t.Mapping == nil {
		t.Mapping = map[string]string{}
	}
	if t.Headers == nil {
		t.Headers = []string{}
	}
}

func cloneTemplate(t *Template) *Template {
	cp := *t
	cp.Headers = append([]string(nil), t.Headers...)
	cp.Mapping = make(map[string]string, len(t.Mapping))
	for k, v := range t.Mapping {
		cp.Mapping[k] = v
	}
	return &cp
}
