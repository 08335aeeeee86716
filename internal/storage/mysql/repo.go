// Package mysql implements the MySQL sink on database/sql with
// go-sql-driver/mysql, using multi-row INSERT statements.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	driver "github.com/go-sql-driver/mysql"
)

// maxPlaceholders stays below the server's prepared statement limit.
const maxPlaceholders = 65535

// Config holds MySQL repository configuration.
type Config struct {
	DSN   string
	Table string
}

// Repository is a MySQL-backed storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository validates the DSN, opens a pool and pings it.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	dc, err := driver.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql dsn: %w", err)
	}
	connector, err := driver.NewConnector(dc)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql connector: %w", err)
	}
	db := sql.OpenDB(connector)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}
	return &Repository{db: db, cfg: cfg}, func() { _ = db.Close() }, nil
}

// CopyFrom inserts rows in one transaction, packing as many rows per
// statement as the placeholder limit allows.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("mysql: CopyFrom: columns must not be empty")
	}
	if len(rows) == 0 {
		return 0, nil
	}
	perStmt := maxPlaceholders / len(columns)
	if perStmt < 1 {
		return 0, fmt.Errorf("mysql: CopyFrom: %d columns exceed the placeholder limit", len(columns))
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	var inserted int64
	for start := 0; start < len(rows); start += perStmt {
		end := min(start+perStmt, len(rows))
		query, args, err := insertSQL(r.cfg.Table, columns, rows[start:end])
		if err != nil {
			_ = tx.Rollback()
			return 0, err
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("insert rows %d-%d: %w", start, end-1, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		inserted += n
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

// EnsureTable creates the table with TEXT columns if it is missing.
func (r *Repository) EnsureTable(ctx context.Context, columns []string) error {
	sqlText, err := createTableSQL(r.cfg.Table, columns)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, sqlText)
	return err
}

func insertSQL(table string, columns []string, rows [][]any) (string, []any, error) {
	group := "(" + strings.TrimSuffix(strings.Repeat("?,", len(columns)), ",") + ")"
	groups := make([]string, len(rows))
	args := make([]any, 0, len(rows)*len(columns))
	for i, row := range rows {
		if len(row) != len(columns) {
			return "", nil, fmt.Errorf("mysql: row %d has %d values for %d columns", i, len(row), len(columns))
		}
		groups[i] = group
		args = append(args, row...)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		myFQN(table), strings.Join(mapIdent(columns), ", "), strings.Join(groups, ", ")), args, nil
}

func createTableSQL(table string, columns []string) (string, error) {
	if strings.TrimSpace(table) == "" {
		return "", fmt.Errorf("mysql ddl: table must not be empty")
	}
	if len(columns) == 0 {
		return "", fmt.Errorf("mysql ddl: at least one column is required")
	}
	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = myIdent(c) + " TEXT NULL"
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)", myFQN(table), strings.Join(defs, ",\n  ")), nil
}

// myIdent quotes an identifier with backticks.
func myIdent(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" }

func myFQN(name string) string {
	parts := strings.Split(strings.TrimSpace(name), ".")
	for i, p := range parts {
		parts[i] = myIdent(p)
	}
	return strings.Join(parts, ".")
}

func mapIdent(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = myIdent(c)
	}
	return out
}
