package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// writeEngine writes a JSON engine running script through /bin/sh and
// returns the config path. extra is merged into the top-level object.
func writeEngine(t *testing.T, script string, extra map[string]any) string {
	t.Helper()

	dir := t.TempDir()
	ctl := filepath.Join(dir, "ctl.sh")
	if err := os.WriteFile(ctl, []byte(script), 0o644); err != nil {
		t.Fatal(err)
	}
	eng := map[string]any{
		"name":            "cli-test",
		"controller":      "/bin/sh",
		"controller_args": []string{ctl},
		"temp":            map[string]any{"dir": dir},
	}
	for k, v := range extra {
		eng[k] = v
	}
	b, err := json.Marshal(eng)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "engine.json")
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	t.Setenv("METRICS_BACKEND", "none")
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

const echoScript = `cat "$DATA_INPUT_PATH" > "$DATA_OUTPUT_PATH"
`

func TestRunRoundTrip(t *testing.T) {
	cfg := writeEngine(t, echoScript, nil)
	in := writeInput(t, "id,name\n1,ann\n2,bob\n")

	code, stdout, stderr := runCLI(t, "-config", cfg, "-input", in, "-action", "copy")
	if code != 0 {
		t.Fatalf("exit = %d, stderr:\n%s", code, stderr)
	}
	if stdout != "id,name\n1,ann\n2,bob\n" {
		t.Fatalf("stdout = %q", stdout)
	}
}

func TestRunActionsKeepOrder(t *testing.T) {
	cfg := writeEngine(t, `printf 'action\n%s\n' "$1" > "$DATA_OUTPUT_PATH"
`, nil)

	code, stdout, stderr := runCLI(t, "-config", cfg, "-parallel", "2", "first", "second", "third")
	if code != 0 {
		t.Fatalf("exit = %d, stderr:\n%s", code, stderr)
	}
	want := "action\n--first\naction\n--second\naction\n--third\n"
	if stdout != want {
		t.Fatalf("stdout = %q, want %q", stdout, want)
	}
}

func TestRunActionsFile(t *testing.T) {
	cfg := writeEngine(t, `printf 'action\n%s\n' "$1" > "$DATA_OUTPUT_PATH"
`, nil)
	list := filepath.Join(t.TempDir(), "actions.txt")
	if err := os.WriteFile(list, []byte("# nightly\nrefresh\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	code, stdout, _ := runCLI(t, "-config", cfg, "-actions-file", list)
	if code != 0 || stdout != "action\n--refresh\n" {
		t.Fatalf("exit = %d stdout = %q", code, stdout)
	}
}

func TestRunArgumentsReachEnvironment(t *testing.T) {
	cfg := writeEngine(t, `printf 'greeting\n%s\n' "$GREETING" > "$DATA_OUTPUT_PATH"
`, nil)

	code, stdout, stderr := runCLI(t, "-config", cfg, "-arg", "GREETING=hello", "-action", "greet")
	if code != 0 {
		t.Fatalf("exit = %d, stderr:\n%s", code, stderr)
	}
	if stdout != "greeting\nhello\n" {
		t.Fatalf("stdout = %q", stdout)
	}
}

func TestRunExitCode(t *testing.T) {
	cfg := writeEngine(t, `[ "$1" = "--fail" ] && exit 3
exit 0
`, nil)

	code, _, _ := runCLI(t, "-config", cfg, "ok", "fail")
	if code != 3 {
		t.Fatalf("exit = %d, want 3", code)
	}
}

func TestRunValidate(t *testing.T) {
	good := writeEngine(t, "exit 0\n", nil)
	if code, _, stderr := runCLI(t, "-config", good, "-validate"); code != 0 {
		t.Fatalf("valid config: exit = %d, stderr:\n%s", code, stderr)
	}

	bad := writeEngine(t, "exit 0\n", map[string]any{"controller": ""})
	code, _, stderr := runCLI(t, "-config", bad, "-validate")
	if code != 1 || !strings.Contains(stderr, "controller") {
		t.Fatalf("invalid config: exit = %d, stderr:\n%s", code, stderr)
	}
}

func TestRunUsageErrors(t *testing.T) {
	cfg := writeEngine(t, "exit 0\n", nil)

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no action", []string{"-config", cfg}, 2},
		{"malformed pair", []string{"-config", cfg, "-arg", "novalue", "x"}, 2},
		{"missing config", []string{"-config", filepath.Join(t.TempDir(), "nope.json"), "x"}, 1},
		{"bad aggregate", []string{"-config", cfg, "-aggregate", "median:x", "x"}, 1},
		{"missing input", []string{"-config", cfg, "-input", filepath.Join(t.TempDir(), "nope.csv"), "x"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code, _, stderr := runCLI(t, tt.args...); code != tt.want {
				t.Fatalf("exit = %d, want %d, stderr:\n%s", code, tt.want, stderr)
			}
		})
	}
}

func TestRunAggregates(t *testing.T) {
	cfg := writeEngine(t, echoScript, nil)
	in := writeInput(t, "id,amount\n1,2.5\n2,x\n3,4\n")

	code, _, stderr := runCLI(t, "-config", cfg, "-input", in, "-aggregate", "count:amount", "-aggregate", "sum:missing", "-action", "copy")
	if code != 0 {
		t.Fatalf("exit = %d, stderr:\n%s", code, stderr)
	}
	for _, want := range []string{
		"kind=count column=amount accepted=3 result=3",
		"kind=sum column=missing",
	} {
		if !strings.Contains(stderr, want) {
			t.Fatalf("stderr missing %q:\n%s", want, stderr)
		}
	}
}

func TestRunAggregatesSkipNullMarker(t *testing.T) {
	cfg := writeEngine(t, echoScript, map[string]any{
		"output": map[string]any{"format": "delimited", "options": map[string]any{"null": "NA"}},
	})
	in := writeInput(t, "id,amount\n1,2\nNA,NA\n3,4\n")

	code, _, stderr := runCLI(t, "-config", cfg, "-input", in, "-aggregate", "concatenate:amount", "-aggregate", "max:amount", "-action", "copy")
	if code != 0 {
		t.Fatalf("exit = %d, stderr:\n%s", code, stderr)
	}
	for _, want := range []string{
		"kind=concatenate column=amount accepted=3 result=24",
		"kind=max column=amount accepted=2 result=4",
	} {
		if !strings.Contains(stderr, want) {
			t.Fatalf("stderr missing %q:\n%s", want, stderr)
		}
	}
}

func TestRunSinkSQLite(t *testing.T) {
	db := filepath.Join(t.TempDir(), "out.db")
	cfg := writeEngine(t, echoScript, map[string]any{
		"sink": map[string]any{
			"kind":              "sqlite",
			"dsn":               db,
			"table":             "results",
			"auto_create_table": true,
		},
	})
	in := writeInput(t, "id,name\n1,ann\n2,bob\n")

	code, _, stderr := runCLI(t, "-config", cfg, "-input", in, "-action", "copy")
	if code != 0 {
		t.Fatalf("exit = %d, stderr:\n%s", code, stderr)
	}

	conn, err := sql.Open("sqlite", db)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	rows, err := conn.Query("SELECT id, name FROM results ORDER BY id")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer rows.Close()
	var got []string
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			t.Fatal(err)
		}
		got = append(got, id+"="+name)
	}
	if want := []string{"1=ann", "2=bob"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("rows = %v, want %v", got, want)
	}

	// -no-sink leaves the table alone
	if code, _, _ := runCLI(t, "-config", cfg, "-input", in, "-no-sink", "-action", "copy"); code != 0 {
		t.Fatalf("exit = %d", code)
	}
	var n int
	if err := conn.QueryRow("SELECT COUNT(*) FROM results").Scan(&n); err != nil || n != 2 {
		t.Fatalf("count = %d, err = %v", n, err)
	}
}

func TestParseFlagsPrecedence(t *testing.T) {
	t.Setenv("FLINT_CONFIG", "/etc/flint/env.yaml")
	t.Setenv("METRICS_BACKEND", "datadog")
	t.Setenv("PUSHGATEWAY_URL", "")

	var stderr bytes.Buffer
	o, err := parseFlags([]string{"-parallel", "0", "-option", "a=b", "act"}, &stderr)
	if err != nil {
		t.Fatal(err)
	}
	if o.cfgPath != "/etc/flint/env.yaml" || o.metricsBackend != "datadog" || o.parallel != 1 {
		t.Fatalf("options = %+v", o)
	}
	if !reflect.DeepEqual([]string(o.actions), []string{"act"}) || !reflect.DeepEqual([]string(o.opts), []string{"a=b"}) {
		t.Fatalf("actions = %v opts = %v", o.actions, o.opts)
	}

	o, err = parseFlags([]string{"-config", "flag.json", "-metrics-backend", "none"}, &stderr)
	if err != nil {
		t.Fatal(err)
	}
	if o.cfgPath != "flag.json" || o.metricsBackend != "none" {
		t.Fatalf("flag values lost: %+v", o)
	}

	t.Setenv("FLINT_CONFIG", "")
	if o, _ = parseFlags(nil, &stderr); o.cfgPath != defaultConfigPath {
		t.Fatalf("default config = %q", o.cfgPath)
	}
}
