package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS imports (
		id             UUID PRIMARY KEY,
		session_id     TEXT NOT NULL,
		target         TEXT NOT NULL,
		file_name      TEXT NOT NULL,
		mapping        JSONB NOT NULL,
		record_count   INTEGER NOT NULL,
		rejected_count INTEGER NOT NULL,
		client_ip      TEXT,
		user_agent     TEXT,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS import_records (
		import_id UUID NOT NULL REFERENCES imports(id) ON DELETE CASCADE,
		row_index INTEGER NOT NULL,
		data      JSONB NOT NULL,
		PRIMARY KEY (import_id, row_index)
	)`,
	`CREATE INDEX IF NOT EXISTS imports_created_at_idx ON imports (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS import_templates (
		id         UUID PRIMARY KEY,
		target     TEXT NOT NULL,
		name       TEXT NOT NULL,
		headers    TEXT[] NOT NULL,
		mapping    JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT import_templates_target_name_unique UNIQUE (target, name)
	)`,
}

// uniqueViolation is the Postgres error code for a unique constraint.
const uniqueViolation = "23505"

var recordColumns = []string{"import_id", "row_index", "data"}

// Postgres is a Store backed by PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

// PoolConfig holds connection pool settings.
type PoolConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Connect opens a pool, verifies it, and ensures the schema exists.
func Connect(ctx context.Context, cfg PoolConfig) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	p := &Postgres{pool: pool}
	if err := p.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// NewPostgres wraps an existing pool. The schema is not checked.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates the import tables if they are missing.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// SaveImport writes the import row and copies its records in one transaction.
func (p *Postgres) SaveImport(ctx context.Context, imp *Import) error {
	prepare(imp)

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertImport(ctx, tx, imp); err != nil {
		return err
	}

	if len(imp.Records) > 0 {
		id := pgUUID(imp.ID)
		n, err := tx.CopyFrom(ctx,
			pgx.Identifier{"import_records"},
			recordColumns,
			pgx.CopyFromSlice(len(imp.Records), func(i int) ([]any, error) {
				r := imp.Records[i]
				return []any{id, int32(r.RowIndex), r.Values}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("copy records: %w", err)
		}
		if int(n) != len(imp.Records) {
			return fmt.Errorf("copy records: wrote %d of %d", n, len(imp.Records))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	return nil
}

func insertImport(ctx context.Context, db DBTX, imp *Import) error {
	_, err := db.Exec(ctx, `
		INSERT INTO imports (id, session_id, target, file_name, mapping, record_count, rejected_count, client_ip, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		pgUUID(imp.ID),
		imp.SessionID,
		imp.Target,
		imp.FileName,
		imp.Mapping,
		len(imp.Records),
		imp.Rejected,
		pgText(imp.ClientIP),
		pgText(imp.UserAgent),
		imp.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert import: %w", err)
	}
	return nil
}

// GetImport reads an import and its records.
func (p *Postgres) GetImport(ctx context.Context, id uuid.UUID) (*Import, error) {
	var (
		imp       Import
		clientIP  pgtype.Text
		userAgent pgtype.Text
		count     int
	)
	err := p.pool.QueryRow(ctx, `
		SELECT session_id, target, file_name, mapping, record_count, rejected_count, client_ip, user_agent, created_at
		FROM imports WHERE id = $1`, pgUUID(id),
	).Scan(&imp.SessionID, &imp.Target, &imp.FileName, &imp.Mapping, &count, &imp.Rejected, &clientIP, &userAgent, &imp.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get import: %w", err)
	}
	imp.ID = id
	imp.ClientIP = clientIP.String
	imp.UserAgent = userAgent.String

	rows, err := p.pool.Query(ctx, `
		SELECT row_index, data FROM import_records
		WHERE import_id = $1 ORDER BY row_index`, pgUUID(id))
	if err != nil {
		return nil, fmt.Errorf("get import records: %w", err)
	}
	imp.Records, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (Record, error) {
		var r Record
		var idx int32
		if err := row.Scan(&idx, &r.Values); err != nil {
			return Record{}, err
		}
		r.RowIndex = int(idx)
		return r, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan import records: %w", err)
	}
	if len(imp.Records) != count {
		return nil, fmt.Errorf("get import: expected %d records, found %d", count, len(imp.Records))
	}
	return &imp, nil
}

// ListImports returns the newest imports first.
func (p *Postgres) ListImports(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := p.pool.Query(ctx, `
		SELECT id, target, file_name, record_count, rejected_count, created_at
		FROM imports ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Summary, error) {
		var (
			s  Summary
			id pgtype.UUID
		)
		if err := row.Scan(&id, &s.Target, &s.FileName, &s.RecordCount, &s.Rejected, &s.CreatedAt); err != nil {
			return Summary{}, err
		}
		s.ID = uuid.UUID(id.Bytes)
		return s, nil
	})
}

// SaveTemplate inserts t. A second template with the same target and name
// fails with ErrTemplateExists.
func (p *Postgres) SaveTemplate(ctx context.Context, t *Template) error {
	prepareTemplate(t)

	_, err := p.pool.Exec(ctx, `
		INSERT INTO import_templates (id, target, name, headers, mapping, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		pgUUID(t.ID), t.Target, t.Name, t.Headers, t.Mapping, t.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %q for %s", ErrTemplateExists, t.Name, t.Target)
	}
	if err != nil {
		return fmt.Errorf("insert template: %w", err)
	}
	return nil
}

// GetTemplate reads one template.
func (p *Postgres) GetTemplate(ctx context.Context, id uuid.UUID) (*Template, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, target, name, headers, mapping, created_at
		FROM import_templates WHERE id = $1`, pgUUID(id))
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	t, err := pgx.CollectExactlyOneRow(rows, scanTemplate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTemplateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	return &t, nil
}

// ListTemplates returns the target's templates sorted by name. An empty
// target lists all of them.
func (p *Postgres) ListTemplates(ctx context.Context, target string) ([]Template, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, target, name, headers, mapping, created_at
		FROM import_templates
		WHERE $1 = '' OR target = $1
		ORDER BY target, name`, target)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return pgx.CollectRows(rows, scanTemplate)
}

// DeleteTemplate removes a template.
func (p *Postgres) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM import_templates WHERE id = $1`, pgUUID(id))
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

func scanTemplate(row pgx.CollectableRow) (Template, error) {
	var (
		t  Template
		id pgtype.UUID
	)
	if err := row.Scan(&id, &t.Target, &t.Name, &t.Headers, &t.Mapping, &t.CreatedAt); err != nil {
		return Template{}, err
	}
	t.ID = uuid.UUID(id.Bytes)
	return t, nil
}

// Ping checks that the database is reachable.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close closes the pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func pgText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
