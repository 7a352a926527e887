// Package store persists submitted imports and saved mapping templates.
//
// [Postgres] writes each import and its records in one transaction, using
// the COPY protocol for the records. [Memory] keeps everything in process
// and is used when no database is configured.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when an import does not exist.
var ErrNotFound = errors.New("import not found")

// Record is one accepted row of an import.
type Record struct {
	RowIndex int            `json:"rowIndex"` // Position in the validated data
	Values   map[string]any `json:"values"`
}

// Import is a submitted import with its accepted records.
type Import struct {
	ID        uuid.UUID      `json:"id"`
	SessionID string         `json:"sessionId"`
	Target    string         `json:"target"`
	FileName  string         `json:"fileName"`
	Mapping   map[string]int `json:"mapping"` // Field key to source column index
	Records   []Record       `json:"records,omitempty"`
	Rejected  int            `json:"rejected"`
	ClientIP  string         `json:"clientIp,omitempty"`
	UserAgent string         `json:"userAgent,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Summary is an import without its records.
type Summary struct {
	ID          uuid.UUID `json:"id"`
	Target      string    `json:"target"`
	FileName    string    `json:"fileName"`
	RecordCount int       `json:"recordCount"`
	Rejected    int       `json:"rejected"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Store saves and reads imports.
type Store interface {
	SaveImport(ctx context.Context, imp *Import) error
	GetImport(ctx context.Context, id uuid.UUID) (*Import, error)
	ListImports(ctx context.Context, limit int) ([]Summary, error)

	SaveTemplate(ctx context.Context, t *Template) error
	GetTemplate(ctx context.Context, id uuid.UUID) (*Template, error)
	ListTemplates(ctx context.Context, target string) ([]Template, error)
	DeleteTemplate(ctx context.Context, id uuid.UUID) error

	Ping(ctx context.Context) error
	Close()
}

// DefaultListLimit caps ListImports when the caller passes no limit.
const DefaultListLimit = 50

func summarize(imp *Import) Summary {
	return Summary{
		ID:          imp.ID,
		Target:      imp.Target,
		FileName:    imp.FileName,
		RecordCount: len(imp.Records),
		Rejected:    imp.Rejected,
		CreatedAt:   imp.CreatedAt,
	}
}

func prepare(imp *Import) {
	if imp.ID == uuid.Nil {
		imp.ID = uuid.New()
	}
	if imp.CreatedAt.IsZero() {
		imp.CreatedAt = time.Now().UTC()
	}
	if imp.Mapping == nil {
		imp.Mapping = map[string]int{}
	}
}
