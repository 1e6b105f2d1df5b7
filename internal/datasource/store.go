// Package datasource reads aggregation inputs from SQLite tables and keeps
// named filter sets next to them.
package datasource

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/janekbaraniewski/aggscope/internal/core"
	"github.com/janekbaraniewski/aggscope/internal/filters"
	_ "github.com/mattn/go-sqlite3"
)

var (
	ErrUnknownTable = errors.New("datasource: unknown table")
	ErrNotFound     = errors.New("datasource: not found")
)

const internalTablePrefix = "aggscope_"

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func OpenStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("datasource: creating DB dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("datasource: opening DB: %w", err)
	}

	store := NewStore(db)
	if err := store.Init(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS aggscope_saved_filters (
			name TEXT PRIMARY KEY,
			filters TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("datasource: init schema: %w", err)
		}
	}
	return nil
}

// Tables lists user tables, skipping SQLite and aggscope bookkeeping tables.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("datasource: list tables: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("datasource: scan table name: %w", err)
		}
		if strings.HasPrefix(name, "sqlite_") || strings.HasPrefix(name, internalTablePrefix) {
			continue
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// FieldOverride adjusts how a column is exposed in the index pattern.
type FieldOverride struct {
	NonFilterable bool
	Format        core.SerializedFieldFormat
}

// IndexPattern describes the columns of table.
func (s *Store) IndexPattern(ctx context.Context, table string, overrides map[string]FieldOverride) (core.IndexPattern, error) {
	rows, err := s.db.QueryContext(ctx, `PRAGMA table_info(`+filters.QuoteIdent(table)+`)`)
	if err != nil {
		return core.IndexPattern{}, fmt.Errorf("datasource: table info %s: %w", table, err)
	}
	defer rows.Close()

	pattern := core.IndexPattern{Title: table}
	for rows.Next() {
		var (
			cid       int
			name      string
			declType  string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &declType, &notNull, &dfltValue, &pk); err != nil {
			return core.IndexPattern{}, fmt.Errorf("datasource: scan table info: %w", err)
		}
		field := core.Field{
			Name:         name,
			Type:         fieldType(declType),
			Filterable:   true,
			Aggregatable: true,
		}
		if o, ok := overrides[name]; ok {
			field.Filterable = !o.NonFilterable
			field.Format = o.Format
		}
		pattern.Fields = append(pattern.Fields, field)
	}
	if err := rows.Err(); err != nil {
		return core.IndexPattern{}, fmt.Errorf("datasource: table info %s: %w", table, err)
	}
	if len(pattern.Fields) == 0 {
		return core.IndexPattern{}, fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	return pattern, nil
}

func fieldType(declType string) core.FieldType {
	t := strings.ToUpper(strings.TrimSpace(declType))
	switch {
	case strings.HasPrefix(t, "BOOL"):
		return core.FieldTypeBoolean
	case strings.Contains(t, "DATE"), strings.Contains(t, "TIME"):
		return core.FieldTypeDate
	case strings.Contains(t, "INT"), strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"),
		strings.Contains(t, "DOUB"), strings.Contains(t, "NUM"), strings.Contains(t, "DEC"):
		return core.FieldTypeNumber
	case strings.Contains(t, "CHAR"), strings.Contains(t, "TEXT"), strings.Contains(t, "CLOB"):
		return core.FieldTypeString
	}
	return core.FieldTypeUnknown
}

// SaveFilters stores a named filter set, replacing any previous one.
func (s *Store) SaveFilters(ctx context.Context, name string, list []core.Filter) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("datasource: saved filters need a name")
	}
	if list == nil {
		list = []core.Filter{}
	}
	payload, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("datasource: marshal filters: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO aggscope_saved_filters (name, filters, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET filters = excluded.filters, updated_at = excluded.updated_at
	`, name, string(payload), s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("datasource: save filters %s: %w", name, err)
	}
	return nil
}

func (s *Store) LoadFilters(ctx context.Context, name string) ([]core.Filter, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT filters FROM aggscope_saved_filters WHERE name = ?`, name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: saved filters %q", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("datasource: load filters %s: %w", name, err)
	}
	var out []core.Filter
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return nil, fmt.Errorf("datasource: parse filters %s: %w", name, err)
	}
	filters.RestoreRangeTimes(out)
	return out, nil
}

func (s *Store) SavedFilterNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM aggscope_saved_filters ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("datasource: list saved filters: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("datasource: scan saved filter name: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}
