// Package sqlite persists flat fact tables in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/couchcryptid/sales-synth-service/internal/domain"
)

// Store implements the table store over a SQLite database file.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// identifier allows plain snake_case table and column names only; everything
// is interpolated quoted, so this is belt and braces against injection.
var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Open opens (creating if needed) the database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// WriteTable writes the rows according to mode. The table is created on first
// write, with column types sniffed from the first row and a unique index over
// the merge keys. Merge mode upserts, keeping the incoming row on conflict.
func (s *Store) WriteTable(ctx context.Context, table domain.Table, mode domain.WriteMode) error {
	if err := validateTable(table); err != nil {
		return err
	}
	if len(table.Rows) == 0 {
		if mode == domain.WriteOverwrite {
			return s.clearIfExists(ctx, table.Name)
		}
		return nil
	}

	if err := s.ensureTable(ctx, table); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin write to %s: %w", table.Name, err)
	}
	defer tx.Rollback()

	if mode == domain.WriteOverwrite {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %q`, table.Name)); err != nil {
			return fmt.Errorf("clear table %s: %w", table.Name, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, insertStatement(table, mode))
	if err != nil {
		return fmt.Errorf("prepare insert into %s: %w", table.Name, err)
	}
	defer stmt.Close()

	for _, row := range table.Rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("insert into %s: %w", table.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit write to %s: %w", table.Name, err)
	}
	s.logger.Debug("table written", "table", table.Name, "rows", len(table.Rows), "mode", mode.String())
	return nil
}

// ReadTable returns the table's full contents. Column order follows the
// stored schema; timestamps come back as time.Time.
func (s *Store) ReadTable(ctx context.Context, name string) (domain.Table, error) {
	if !identifier.MatchString(name) {
		return domain.Table{}, fmt.Errorf("invalid table name %q", name)
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT * FROM %q`, name))
	if err != nil {
		return domain.Table{}, fmt.Errorf("read table %s: %w", name, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return domain.Table{}, fmt.Errorf("read columns of %s: %w", name, err)
	}

	out := domain.Table{Name: name, Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		scan := make([]any, len(columns))
		for i := range values {
			scan[i] = &values[i]
		}
		if err := rows.Scan(scan...); err != nil {
			return domain.Table{}, fmt.Errorf("scan row of %s: %w", name, err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		out.Rows = append(out.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return domain.Table{}, fmt.Errorf("read table %s: %w", name, err)
	}
	return out, nil
}

// TableExists reports whether a table of the given name exists.
func (s *Store) TableExists(ctx context.Context, name string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", name, err)
	}
	return count > 0, nil
}

func (s *Store) clearIfExists(ctx context.Context, name string) error {
	exists, err := s.TableExists(ctx, name)
	if err != nil || !exists {
		return err
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %q`, name)); err != nil {
		return fmt.Errorf("clear table %s: %w", name, err)
	}
	return nil
}

func (s *Store) ensureTable(ctx context.Context, table domain.Table) error {
	defs := make([]string, len(table.Columns))
	for i, col := range table.Columns {
		defs[i] = fmt.Sprintf("%q %s", col, columnType(table.Rows[0][i]))
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (%s)`, table.Name, strings.Join(defs, ", "))
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", table.Name, err)
	}

	if len(table.MergeKeys) > 0 {
		keys := make([]string, len(table.MergeKeys))
		for i, k := range table.MergeKeys {
			keys[i] = fmt.Sprintf("%q", k)
		}
		index := fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %q ON %q (%s)`,
			table.Name+"_merge_key", table.Name, strings.Join(keys, ", "))
		if _, err := s.db.ExecContext(ctx, index); err != nil {
			return fmt.Errorf("create merge index on %s: %w", table.Name, err)
		}
	}
	return nil
}

func insertStatement(table domain.Table, mode domain.WriteMode) string {
	cols := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		cols[i] = fmt.Sprintf("%q", c)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	stmt := fmt.Sprintf(`INSERT INTO %q (%s) VALUES (%s)`, table.Name, strings.Join(cols, ", "), placeholders)

	if mode != domain.WriteMergeByKey || len(table.MergeKeys) == 0 {
		return stmt
	}

	keySet := make(map[string]bool, len(table.MergeKeys))
	keys := make([]string, len(table.MergeKeys))
	for i, k := range table.MergeKeys {
		keySet[k] = true
		keys[i] = fmt.Sprintf("%q", k)
	}
	var updates []string
	for _, c := range table.Columns {
		if !keySet[c] {
			updates = append(updates, fmt.Sprintf("%q = excluded.%q", c, c))
		}
	}
	if len(updates) == 0 {
		return stmt + fmt.Sprintf(" ON CONFLICT(%s) DO NOTHING", strings.Join(keys, ", "))
	}
	return stmt + fmt.Sprintf(" ON CONFLICT(%s) DO UPDATE SET %s", strings.Join(keys, ", "), strings.Join(updates, ", "))
}

func columnType(v any) string {
	switch v.(type) {
	case int64, int, bool:
		return "INTEGER"
	case float64:
		return "REAL"
	case time.Time:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

func validateTable(table domain.Table) error {
	if !identifier.MatchString(table.Name) {
		return fmt.Errorf("invalid table name %q", table.Name)
	}
	if len(table.Columns) == 0 {
		return fmt.Errorf("table %s has no columns", table.Name)
	}
	for _, c := range table.Columns {
		if !identifier.MatchString(c) {
			return fmt.Errorf("table %s: invalid column name %q", table.Name, c)
		}
	}
	// Row widths must match before the first row's values are used to sniff
	// column types.
	for _, row := range table.Rows {
		if len(row) != len(table.Columns) {
			return fmt.Errorf("table %s: row has %d values, want %d", table.Name, len(row), len(table.Columns))
		}
	}
	return nil
}
