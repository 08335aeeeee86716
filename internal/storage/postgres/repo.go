// Package postgres implements the Postgres sink using pgx v5 and COPY.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds Postgres repository configuration.
type Config struct {
	DSN   string // connection string for pgxpool
	Table string // target table, optionally schema-qualified: "public.results"
}

// Repository is a Postgres-backed storage.Repository.
type Repository struct {
	pool *pgxpool.Pool
	cfg  Config
}

// NewRepository opens a pool and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	return &Repository{pool: pool, cfg: cfg}, pool.Close, nil
}

// CopyFrom streams rows into the target table with COPY.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := r.pool.CopyFrom(ctx, splitFQN(r.cfg.Table), columns, pgx.CopyFromRows(rows))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Detail != "" {
			return n, fmt.Errorf("copy into %s: %s (%s)", r.cfg.Table, pgErr.Detail, pgErr.SQLState())
		}
		return n, fmt.Errorf("copy into %s: %w", r.cfg.Table, err)
	}
	return n, nil
}

// EnsureTable creates the target table with TEXT columns if it is missing.
func (r *Repository) EnsureTable(ctx context.Context, columns []string) error {
	sql, err := createTableSQL(r.cfg.Table, columns)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, sql)
	return err
}

// createTableSQL renders CREATE TABLE IF NOT EXISTS with one nullable TEXT
// column per name.
func createTableSQL(table string, columns []string) (string, error) {
	fqn := strings.TrimSpace(table)
	if fqn == "" {
		return "", fmt.Errorf("postgres ddl: table must not be empty")
	}
	if len(columns) == 0 {
		return "", fmt.Errorf("postgres ddl: at least one column is required")
	}
	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = pgIdent(c) + " TEXT"
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);", pgFQN(fqn), strings.Join(defs, ",\n  ")), nil
}

// pgIdent quotes a single identifier segment for Postgres.
func pgIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// pgFQN quotes a possibly schema-qualified name like "public.results" to
// "public"."results". Empty segments are ignored.
func pgFQN(name string) string {
	parts := splitFQN(name)
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = pgIdent(p)
	}
	return strings.Join(out, ".")
}

// splitFQN converts "schema.table" into a pgx.Identifier {"schema","table"}.
func splitFQN(fqn string) pgx.Identifier {
	parts := strings.Split(fqn, ".")
	id := make(pgx.Identifier, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			id = append(id, p)
		}
	}
	return id
}
