package scarpetls

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/scarpetls/internal/store"
)

const engineSample = `// Adds one.
inc(x) -> x + 1;
global_total = 0;
__on_tick() -> global_total = inc(global_total);
schedule(10, 'inc', 1);
`

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	e, err := New(dbPath, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

// testFileHash computes the same SHA256 hex hash the engine uses.
func testFileHash(content []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(content))
}

func writeScript(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// symbolKinds returns "kind:name" for every symbol of path, sorted.
func symbolKinds(t *testing.T, e *Engine, path string) []string {
	t.Helper()
	f, err := e.Store().FileByPath(path)
	require.NoError(t, err)
	require.NotNil(t, f, path)
	syms, err := e.Store().SymbolsByFile(f.ID)
	require.NoError(t, err)
	var out []string
	for _, s := range syms {
		out = append(out, s.Kind+":"+s.Name)
	}
	sort.Strings(out)
	return out
}

func TestNew_CreatesStoreAndRuntime(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	e, err := New(dbPath)
	require.NoError(t, err)
	defer e.Close()

	require.NotNil(t, e.store)
	require.NotNil(t, e.runtime)
	require.NotNil(t, e.Analyzer())
	require.NotNil(t, e.Query())

	// Migration ran.
	_, err = e.Store().InsertFile(&store.File{
		Path: "/tmp/test.sc", Language: LanguageScarpet, Hash: "abc", LastIndexed: time.Now(),
	})
	require.NoError(t, err)
}

func TestNew_InvalidPath(t *testing.T) {
	_, err := New("/nonexistent/dir/db.sqlite")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scarpetls:")
}

func TestClose(t *testing.T) {
	e, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, e.Close())
}

func TestSupported(t *testing.T) {
	e := newTestEngine(t)
	assert.True(t, e.Supported("/a/b.sc"))
	assert.True(t, e.Supported("/a/b.SCL"))
	assert.False(t, e.Supported("/a/b.go"))

	e = newTestEngine(t, WithExtensions(".scarpet"))
	assert.True(t, e.Supported("x.scarpet"))
	assert.False(t, e.Supported("x.sc"))
}

func TestIndexFiles_SkipsUnsupportedExtensions(t *testing.T) {
	e := newTestEngine(t)
	tmp := writeScript(t, t.TempDir(), "readme.txt", "hello")

	require.NoError(t, e.IndexFiles(context.Background(), []string{tmp}))

	f, err := e.Store().FileByPath(tmp)
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestIndexFiles_ExportsSymbols(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		t.Run(fmt.Sprintf("parallel=%v", parallel), func(t *testing.T) {
			e := newTestEngine(t, WithParallel(parallel))
			path := writeScript(t, t.TempDir(), "main.sc", engineSample)

			require.NoError(t, e.IndexFiles(context.Background(), []string{path}))

			assert.Equal(t, []string{
				"function:__on_tick",
				"function:inc",
				"global:global_total",
				"parameter:x",
				"script:main.sc",
			}, symbolKinds(t, e, path))

			f, err := e.Store().FileByPath(path)
			require.NoError(t, err)
			assert.Equal(t, LanguageScarpet, f.Language)
			assert.Equal(t, testFileHash([]byte(engineSample)), f.Hash)
			assert.Equal(t, 6, f.LineCount)

			inc, err := e.Store().SymbolsByName("inc")
			require.NoError(t, err)
			require.Len(t, inc, 1)
			assert.Equal(t, "Adds one.", inc[0].Doc)
			assert.Equal(t, "inc(x)", inc[0].Signature)

			callers, err := e.Query().Callers(inc[0].ID)
			require.NoError(t, err)
			assert.Len(t, callers, 2, "__on_tick calls it and the script schedules it")
		})
	}
}

func TestIndexFiles_SkipsUnchangedFiles(t *testing.T) {
	e := newTestEngine(t)
	path := writeScript(t, t.TempDir(), "main.sc", engineSample)

	require.NoError(t, e.IndexFiles(context.Background(), []string{path}))
	first, err := e.Store().FileByPath(path)
	require.NoError(t, err)

	require.NoError(t, e.IndexFiles(context.Background(), []string{path}))
	second, err := e.Store().FileByPath(path)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestIndexFiles_ReindexesChangedFiles(t *testing.T) {
	e := newTestEngine(t)
	path := writeScript(t, t.TempDir(), "main.sc", "old() -> 1")
	require.NoError(t, e.IndexFiles(context.Background(), []string{path}))

	require.NoError(t, os.WriteFile(path, []byte("fresh(a) -> a"), 0o644))
	require.NoError(t, e.IndexFiles(context.Background(), []string{path}))

	assert.Equal(t, []string{"function:fresh", "parameter:a", "script:main.sc"}, symbolKinds(t, e, path))
	old, err := e.Store().SymbolsByName("old")
	require.NoError(t, err)
	assert.Empty(t, old)
}

func TestIndexFiles_ContinuesPastUnreadableFiles(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		t.Run(fmt.Sprintf("parallel=%v", parallel), func(t *testing.T) {
			e := newTestEngine(t, WithParallel(parallel))
			dir := t.TempDir()
			good := writeScript(t, dir, "good.sc", "ok() -> 1")
			missing := filepath.Join(dir, "missing.sc")

			err := e.IndexFiles(context.Background(), []string{missing, good})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "1 error(s)")

			assert.Contains(t, symbolKinds(t, e, good), "function:ok")
		})
	}
}

func TestIndexFiles_BrokenScriptsStillIndex(t *testing.T) {
	e := newTestEngine(t)
	path := writeScript(t, t.TempDir(), "broken.sc", "f(a) -> (a + ; g() -> 2")
	require.NoError(t, e.IndexFiles(context.Background(), []string{path}))
	assert.Contains(t, symbolKinds(t, e, path), "script:broken.sc")
}

func TestIndexFiles_CanceledContext(t *testing.T) {
	e := newTestEngine(t, WithParallel(false))
	path := writeScript(t, t.TempDir(), "main.sc", engineSample)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, e.IndexFiles(ctx, []string{path}), context.Canceled)
}

func TestIndexDirectory_DiscoversScripts(t *testing.T) {
	root := t.TempDir()
	a := writeScript(t, root, "a.sc", "a() -> 1")
	b := writeScript(t, root, "lib/b.scl", "b() -> a()")
	writeScript(t, root, "notes.txt", "docs")

	e := newTestEngine(t)
	require.NoError(t, e.IndexDirectory(context.Background(), root))

	files, err := e.Store().AllFiles()
	require.NoError(t, err)
	var paths []string
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	assert.ElementsMatch(t, []string{a, b}, paths)
}

func TestIndexDirectory_SkipsHiddenAndExcludedDirs(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{".git", "vendor", "node_modules", "__pycache__"} {
		writeScript(t, root, filepath.Join(dir, "lib.sc"), "lib() -> 1")
	}

	e := newTestEngine(t)
	require.NoError(t, e.IndexDirectory(context.Background(), root))

	files, err := e.Store().AllFiles()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestBuiltinsChanged(t *testing.T) {
	e := newTestEngine(t)
	assert.True(t, e.BuiltinsChanged(), "no hash before the first index")

	path := writeScript(t, t.TempDir(), "main.sc", "x = 1")
	require.NoError(t, e.IndexFiles(context.Background(), []string{path}))
	assert.False(t, e.BuiltinsChanged())

	other, err := New(filepath.Join(t.TempDir(), "other.db"), WithBuiltins(testBuiltins()))
	require.NoError(t, err)
	defer other.Close()
	require.NoError(t, other.Store().SetMetadata(builtinsHashKey, e.analyzer.builtins.Hash()))
	assert.True(t, other.BuiltinsChanged())
}

func TestNewQueryBuilder(t *testing.T) {
	s, err := store.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Migrate())

	qb := NewQueryBuilder(s, nil)
	require.NotNil(t, qb)

	sym, err := qb.SymbolAt("nonexistent.sc", 0, 0)
	require.NoError(t, err)
	assert.Nil(t, sym)

	result, err := qb.Symbols(SymbolFilter{}, Sort{}, Pagination{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalCount)
	assert.Empty(t, result.Items)
}
