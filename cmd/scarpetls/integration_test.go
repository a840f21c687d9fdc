package main_test

import (
	"database/sql"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureSource = `// Adds one.
helper(x) -> x + 1;
__on_tick() -> helper(1);
unused_fn() -> null;
result = helper(2);
print(result)
`

// buildBinary compiles the scarpetls binary into t.TempDir().
func buildBinary(t *testing.T) string {
	t.Helper()
	binName := "scarpetls"
	if runtime.GOOS == "windows" {
		binName += ".exe"
	}
	bin := filepath.Join(t.TempDir(), binName)
	cmd := exec.Command("go", "build", "-o", bin, ".")
	cmd.Dir = filepath.Join(projectRoot(t), "cmd", "scarpetls")
	cmd.Env = append(os.Environ(), "CGO_ENABLED=1")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "build failed: %s", string(out))
	return bin
}

// projectRoot walks up from this file to the directory holding go.mod.
func projectRoot(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok, "runtime.Caller failed")
	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		require.NotEqual(t, parent, dir, "could not find project root")
		dir = parent
	}
}

// createFixture writes a repo with a .git dir and one script.
func createFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.sc"), []byte(fixtureSource), 0o644))
	return dir
}

// indexFixture builds the binary and indexes a fresh fixture.
func indexFixture(t *testing.T) (bin, dir string) {
	t.Helper()
	bin = buildBinary(t)
	dir = createFixture(t)

	out, err := run(t, bin, dir, "index", dir)
	require.NoError(t, err, "index failed: %s", out)
	require.FileExists(t, filepath.Join(dir, ".scarpetls", "index.db"))
	return bin, dir
}

func run(t *testing.T, bin, dir string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(bin, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "HOME="+t.TempDir())
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// runQuery executes a query command and returns the parsed CLIResult.
func runQuery(t *testing.T, bin, dir string, args ...string) map[string]any {
	t.Helper()
	cmd := exec.Command(bin, append([]string{"query"}, args...)...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "HOME="+t.TempDir())
	stdout, err := cmd.Output()
	if err != nil && len(stdout) == 0 {
		t.Fatalf("query command failed with no output: %v", err)
	}

	var result map[string]any
	require.NoError(t, json.Unmarshal(stdout, &result), "invalid JSON output: %s", string(stdout))
	return result
}

func resultList(t *testing.T, result map[string]any) []map[string]any {
	t.Helper()
	raw, ok := result["results"].([]any)
	require.True(t, ok, "results should be an array: %v", result)
	out := make([]map[string]any, len(raw))
	for i, r := range raw {
		out[i] = r.(map[string]any)
	}
	return out
}

func skipShort(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
}

func TestIndex_WritesSymbols(t *testing.T) {
	skipShort(t)
	_, dir := indexFixture(t)

	db, err := sql.Open("sqlite3", filepath.Join(dir, ".scarpetls", "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM symbols WHERE kind = 'function'`).Scan(&n))
	assert.Equal(t, 3, n)
}

func TestIndex_Force(t *testing.T) {
	skipShort(t)
	bin, dir := indexFixture(t)

	out, err := run(t, bin, dir, "index", "--force", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Cleared database")
	assert.Contains(t, out, "Indexed 1 file(s)")
}

func TestQuery_SymbolAt(t *testing.T) {
	skipShort(t)
	bin, dir := indexFixture(t)

	result := runQuery(t, bin, dir, "symbol-at", "main.sc", "1", "2")
	assert.Equal(t, "symbol-at", result["command"])
	sym, ok := result["results"].(map[string]any)
	require.True(t, ok, "results should be a symbol object")
	assert.Equal(t, "helper", sym["name"])
	assert.Equal(t, "function", sym["kind"])
	assert.Equal(t, "helper(x)", sym["signature"])
	assert.Equal(t, "Adds one.", sym["doc"])
}

func TestQuery_SymbolAt_NotIndexed(t *testing.T) {
	skipShort(t)
	bin, dir := indexFixture(t)

	result := runQuery(t, bin, dir, "symbol-at", "other.sc", "0", "0")
	assert.Nil(t, result["results"])
}

func TestQuery_Definition(t *testing.T) {
	skipShort(t)
	bin, dir := indexFixture(t)

	// helper in `result = helper(2);`
	result := runQuery(t, bin, dir, "definition", "main.sc", "4", "10")
	locs := resultList(t, result)
	require.Len(t, locs, 1)
	assert.Equal(t, float64(1), locs[0]["start_line"])
	assert.Equal(t, float64(0), locs[0]["start_col"])
	assert.NotNil(t, locs[0]["symbol_id"])
}

func TestQuery_References(t *testing.T) {
	skipShort(t)
	bin, dir := indexFixture(t)

	result := runQuery(t, bin, dir, "references", "main.sc", "1", "0")
	locs := resultList(t, result)
	lines := make([]float64, len(locs))
	for i, l := range locs {
		lines[i] = l["start_line"].(float64)
	}
	assert.ElementsMatch(t, []float64{1, 2, 4}, lines, "declaration plus two calls")
}

func TestQuery_References_RequiresTarget(t *testing.T) {
	skipShort(t)
	bin, dir := indexFixture(t)

	result := runQuery(t, bin, dir, "references")
	assert.Contains(t, result["error"], "--symbol")
}

func TestQuery_CallersAndCallees(t *testing.T) {
	skipShort(t)
	bin, dir := indexFixture(t)

	callers := resultList(t, runQuery(t, bin, dir, "callers", "main.sc", "1", "0"))
	names := map[string]bool{}
	for _, c := range callers {
		names[c["caller_name"].(string)] = true
	}
	assert.True(t, names["__on_tick"], "callers: %v", callers)
	assert.True(t, names["main.sc"], "top-level call is attributed to the script: %v", callers)

	callees := resultList(t, runQuery(t, bin, dir, "callees", "main.sc", "2", "0"))
	require.Len(t, callees, 1)
	assert.Equal(t, "helper", callees[0]["callee_name"])
}

func TestQuery_SymbolsAndSearch(t *testing.T) {
	skipShort(t)
	bin, dir := indexFixture(t)

	funcs := resultList(t, runQuery(t, bin, dir, "symbols", "--kind", "function"))
	assert.Len(t, funcs, 3)
	for _, f := range funcs {
		assert.Equal(t, "function", f["kind"])
	}

	found := resultList(t, runQuery(t, bin, dir, "search", "__on_*"))
	require.Len(t, found, 1)
	assert.Equal(t, "__on_tick", found[0]["name"])

	paged := runQuery(t, bin, dir, "symbols", "--kind", "function", "--limit", "1", "--sort", "name", "--order", "desc")
	items := resultList(t, paged)
	require.Len(t, items, 1)
	assert.Equal(t, "unused_fn", items[0]["name"])
	assert.Equal(t, float64(3), paged["total_count"])
}

func TestQuery_FilesAndSummary(t *testing.T) {
	skipShort(t)
	bin, dir := indexFixture(t)

	files := resultList(t, runQuery(t, bin, dir, "files"))
	require.Len(t, files, 1)
	assert.True(t, strings.HasSuffix(files[0]["path"].(string), "main.sc"))
	assert.Equal(t, "scarpet", files[0]["language"])

	summary := runQuery(t, bin, dir, "summary")
	s, ok := summary["results"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), s["file_count"])
}

func TestQuery_Unused(t *testing.T) {
	skipShort(t)
	bin, dir := indexFixture(t)

	unused := resultList(t, runQuery(t, bin, dir, "unused"))
	require.Len(t, unused, 1, "callbacks are never unused")
	assert.Equal(t, "unused_fn", unused[0]["name"])
}

func TestQuery_TransitiveCallers(t *testing.T) {
	skipShort(t)
	bin, dir := indexFixture(t)

	result := runQuery(t, bin, dir, "transitive-callers", "main.sc", "1", "0", "--max-depth", "2")
	g, ok := result["results"].(map[string]any)
	require.True(t, ok)
	nodes := g["nodes"].([]any)
	assert.GreaterOrEqual(t, len(nodes), 3, "helper plus its two callers")
}

func TestQuery_SymbolDetailAndScope(t *testing.T) {
	skipShort(t)
	bin, dir := indexFixture(t)

	detail := runQuery(t, bin, dir, "symbol-detail", "main.sc", "1", "0")
	d, ok := detail["results"].(map[string]any)
	require.True(t, ok)
	params := d["parameters"].([]any)
	require.Len(t, params, 1)
	assert.Equal(t, "x", params[0].(map[string]any)["name"])

	scopes := resultList(t, runQuery(t, bin, dir, "scope-at", "main.sc", "1", "14"))
	require.Len(t, scopes, 2)
	assert.Equal(t, "function", scopes[0]["kind"])
	assert.Equal(t, "document", scopes[1]["kind"])
}

func TestQuery_MissingDatabase(t *testing.T) {
	skipShort(t)
	bin := buildBinary(t)
	dir := createFixture(t)

	result := runQuery(t, bin, dir, "symbols")
	assert.Contains(t, result["error"], "run 'scarpetls index' first")
}

func TestCheck(t *testing.T) {
	skipShort(t)
	bin := buildBinary(t)
	dir := createFixture(t)

	out, err := run(t, bin, dir, "check", "--format", "text", "--no-color", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "0 error(s)")

	bad := filepath.Join(dir, "bad.sc")
	require.NoError(t, os.WriteFile(bad, []byte("f(x -> 1"), 0o644))
	out, err = run(t, bin, dir, "check", "--format", "text", "--no-color", bad)
	require.Error(t, err, "errors exit non-zero")
	assert.Contains(t, out, "bad.sc:0:")
	assert.Contains(t, out, ": error: ")
}

func TestCheck_JSON(t *testing.T) {
	skipShort(t)
	bin := buildBinary(t)
	dir := createFixture(t)
	src := filepath.Join(dir, "warn.sc")
	require.NoError(t, os.WriteFile(src, []byte("foo(1)"), 0o644))

	cmd := exec.Command(bin, "check", src)
	cmd.Dir = dir
	stdout, err := cmd.Output()
	require.NoError(t, err, "warnings alone do not fail")

	var result map[string]any
	require.NoError(t, json.Unmarshal(stdout, &result))
	diags := resultList(t, result)
	require.Len(t, diags, 1)
	assert.Equal(t, "warning", diags[0]["severity"])
	assert.Equal(t, "unknown-function", diags[0]["code"])
}

func TestScript_BundledReport(t *testing.T) {
	skipShort(t)
	bin, dir := indexFixture(t)

	out, err := run(t, bin, dir, "script", "unused")
	require.NoError(t, err, out)
	assert.Contains(t, out, "unused_fn is never used")
	assert.NotContains(t, out, "__on_tick")
}

func TestScript_FileWithArgs(t *testing.T) {
	skipShort(t)
	bin, dir := indexFixture(t)

	script := filepath.Join(dir, "count.risor")
	require.NoError(t, os.WriteFile(script, []byte(`print(len(files()), args[0])`), 0o644))

	out, err := run(t, bin, dir, "script", script, "hello")
	require.NoError(t, err, out)
	assert.Contains(t, out, "1 hello")
}
