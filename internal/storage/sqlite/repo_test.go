package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/NeoOrigin/flint-sub000/internal/invocation"
	"github.com/NeoOrigin/flint-sub000/internal/storage"
	"github.com/NeoOrigin/flint-sub000/internal/table"
)

func newFileRepo(t *testing.T, tableName string) (storage.Repository, string) {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "sink.db")
	repo, err := storage.New(context.Background(), storage.Config{Kind: "sqlite", DSN: dsn, Table: tableName})
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	t.Cleanup(repo.Close)
	return repo, dsn
}

func readAll(t *testing.T, dsn, query string) [][]sql.NullString {
	t.Helper()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	rows, err := db.Query(query)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer rows.Close()
	cols, _ := rows.Columns()

	var out [][]sql.NullString
	for rows.Next() {
		vals := make([]sql.NullString, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			t.Fatalf("scan: %v", err)
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows: %v", err)
	}
	return out
}

func TestEnsureTableAndCopyFrom(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo, dsn := newFileRepo(t, "results")
	cols := []string{"id", "odd name"}

	if err := repo.EnsureTable(ctx, cols); err != nil {
		t.Fatalf("EnsureTable() error = %v", err)
	}
	// idempotent
	if err := repo.EnsureTable(ctx, cols); err != nil {
		t.Fatalf("second EnsureTable() error = %v", err)
	}

	n, err := repo.CopyFrom(ctx, cols, [][]any{{"1", "a"}, {"2", nil}})
	if err != nil {
		t.Fatalf("CopyFrom() error = %v", err)
	}
	if n != 2 {
		t.Fatalf("CopyFrom() = %d, want 2", n)
	}

	got := readAll(t, dsn, `SELECT id, "odd name" FROM results ORDER BY id`)
	want := [][]sql.NullString{
		{{String: "1", Valid: true}, {String: "a", Valid: true}},
		{{String: "2", Valid: true}, {}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("rows = %v, want %v", got, want)
	}
}

func TestCopyFromRejectsRaggedRows(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo, dsn := newFileRepo(t, "ragged")
	if err := repo.EnsureTable(ctx, []string{"a", "b"}); err != nil {
		t.Fatalf("EnsureTable() error = %v", err)
	}
	if _, err := repo.CopyFrom(ctx, []string{"a", "b"}, [][]any{{"1", "2"}, {"3"}}); err == nil {
		t.Fatal("CopyFrom() with a short row: want error")
	}
	if got := readAll(t, dsn, "SELECT a, b FROM ragged"); len(got) != 0 {
		t.Fatalf("rows committed after failure: %v", got)
	}
}

func TestLoadOutputIntoSQLite(t *testing.T) {
	t.Parallel()

	repo, dsn := newFileRepo(t, "out")
	out := &invocation.Output{
		Columns: []string{"k", "v"},
		Data:    table.Table{{"a", "1"}, {"b", "2"}, {"c", "3"}},
	}
	cfg := storage.Config{Kind: "sqlite", Table: "out", AutoCreateTable: true, BatchSize: 2}

	n, err := storage.LoadOutput(context.Background(), repo, cfg, out)
	if err != nil {
		t.Fatalf("LoadOutput() error = %v", err)
	}
	if n != 3 {
		t.Fatalf("LoadOutput() = %d, want 3", n)
	}
	got := readAll(t, dsn, "SELECT k || '=' || v FROM out ORDER BY k")
	var flat []string
	for _, r := range got {
		flat = append(flat, r[0].String)
	}
	if strings.Join(flat, ",") != "a=1,b=2,c=3" {
		t.Fatalf("rows = %v", flat)
	}
}

func TestNewRepositoryRejectsEmptyDSN(t *testing.T) {
	t.Parallel()

	if _, _, err := NewRepository(context.Background(), Config{Table: "t"}); err == nil {
		t.Fatal("NewRepository() with empty DSN: want error")
	}
}

func TestCreateTableSQL(t *testing.T) {
	t.Parallel()

	got, err := createTableSQL("main.t", []string{`we"ird`})
	if err != nil {
		t.Fatalf("createTableSQL() error = %v", err)
	}
	want := "CREATE TABLE IF NOT EXISTS \"main\".\"t\" (\n  \"we\"\"ird\" TEXT\n);"
	if got != want {
		t.Fatalf("createTableSQL() = %q, want %q", got, want)
	}
	if _, err := createTableSQL(" ", []string{"a"}); err == nil {
		t.Fatal("empty table: want error")
	}
	if _, err := createTableSQL("t", nil); err == nil {
		t.Fatal("no columns: want error")
	}
}
