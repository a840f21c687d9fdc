package scarpetls

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/scarpetls/internal/store"
)

// querySample is indexed by most query tests. Line numbers matter.
const querySample = `// Squares n.
square(n) -> n * n;
global_count = 0;
bump() -> global_count = global_count + 1;
run(xs) -> (
    for(xs, bump());
    map(xs, _(v) -> square(v))
);
__on_tick() -> run([1, 2]);
schedule(20, 'run', [3]);
unused_fn() -> null;
total = square(3)`

func newTestQueryBuilder(t *testing.T) (*QueryBuilder, *store.Store) {
	t.Helper()
	s, err := store.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return NewQueryBuilder(s, nil), s
}

// indexFixture writes files under a temp dir, indexes them and returns the
// engine with the absolute path of each file.
func indexFixture(t *testing.T, files map[string]string) (*Engine, map[string]string) {
	t.Helper()
	dir := t.TempDir()
	paths := make(map[string]string, len(files))
	var list []string
	for name, src := range files {
		paths[name] = writeScript(t, dir, name, src)
		list = append(list, paths[name])
	}
	e := newTestEngine(t)
	require.NoError(t, e.IndexFiles(context.Background(), list))
	return e, paths
}

func symbolNamed(t *testing.T, e *Engine, name string) *store.Symbol {
	t.Helper()
	syms, err := e.Store().SymbolsByName(name)
	require.NoError(t, err)
	require.Len(t, syms, 1, name)
	return syms[0]
}

func TestDefinitionAt(t *testing.T) {
	t.Parallel()
	e, paths := indexFixture(t, map[string]string{"main.sc": querySample})
	path := paths["main.sc"]
	q := e.Query()

	tests := []struct {
		name      string
		line, col int
		wantLine  int
		wantCol   int
	}{
		{"call", 8, len("__on_tick() -> "), 4, 0},
		{"function string", 9, len("schedule(20, 'r"), 4, 0},
		{"declaration resolves to itself", 1, 0, 1, 0},
		{"call from lambda", 6, len("    map(xs, _(v) -> sq"), 1, 0},
		{"parameter use", 1, len("square(n) -> n"), 1, len("square(")},
		{"global write", 3, len("bump() -> g"), 2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			locs, err := q.DefinitionAt(path, tt.line, tt.col)
			require.NoError(t, err)
			require.Len(t, locs, 1)
			assert.Equal(t, path, locs[0].File)
			assert.Equal(t, tt.wantLine, locs[0].StartLine)
			assert.Equal(t, tt.wantCol, locs[0].StartCol)
		})
	}

	locs, err := q.DefinitionAt(path, 5, len("    f"))
	require.NoError(t, err)
	assert.Empty(t, locs, "built-ins have no definition")

	locs, err = q.DefinitionAt("/not/indexed.sc", 0, 0)
	require.NoError(t, err)
	assert.Nil(t, locs)
}

func TestReferencesTo(t *testing.T) {
	t.Parallel()
	e, paths := indexFixture(t, map[string]string{"main.sc": querySample})
	q := e.Query()

	locs, err := q.ReferencesTo(symbolNamed(t, e, "square").ID)
	require.NoError(t, err)
	var lines []int
	for _, l := range locs {
		assert.Equal(t, paths["main.sc"], l.File)
		lines = append(lines, l.StartLine)
	}
	assert.Equal(t, []int{1, 6, 11}, lines, "source order")

	locs, err = q.ReferencesTo(symbolNamed(t, e, "run").ID)
	require.NoError(t, err)
	lines = nil
	for _, l := range locs {
		lines = append(lines, l.StartLine)
	}
	assert.ElementsMatch(t, []int{4, 8, 9}, lines, "function strings count")
}

func TestCallersAndCallees(t *testing.T) {
	t.Parallel()
	e, _ := indexFixture(t, map[string]string{"main.sc": querySample})
	q := e.Query()

	square := symbolNamed(t, e, "square")
	run := symbolNamed(t, e, "run")
	script := symbolNamed(t, e, "main.sc")

	callers, err := q.Callers(square.ID)
	require.NoError(t, err)
	var ids []int64
	for _, c := range callers {
		ids = append(ids, c.CallerSymbolID)
	}
	assert.ElementsMatch(t, []int64{run.ID, script.ID}, ids, "lambda calls belong to the enclosing function")

	callees, err := q.Callees(run.ID)
	require.NoError(t, err)
	ids = nil
	for _, c := range callees {
		ids = append(ids, c.CalleeSymbolID)
	}
	assert.ElementsMatch(t, []int64{symbolNamed(t, e, "bump").ID, square.ID}, ids)
}

func TestSymbolAt(t *testing.T) {
	t.Parallel()
	e, paths := indexFixture(t, map[string]string{"main.sc": querySample})
	q := e.Query()
	path := paths["main.sc"]

	sym, err := q.SymbolAt(path, 4, 1)
	require.NoError(t, err)
	require.NotNil(t, sym)
	assert.Equal(t, "run", sym.Name)
	assert.Equal(t, store.KindFunction, sym.Kind)
	assert.Equal(t, path, sym.FilePath)
	assert.Equal(t, 2, sym.RefCount)

	sym, err = q.SymbolAt(path, 4, len("run(x"))
	require.NoError(t, err)
	require.NotNil(t, sym)
	assert.Equal(t, "xs", sym.Name)
	assert.Equal(t, store.KindParameter, sym.Kind)

	sym, err = q.SymbolAt(path, 5, 2)
	require.NoError(t, err)
	require.NotNil(t, sym)
	assert.Equal(t, store.KindScript, sym.Kind, "bodies fall back to the script")

	sym, err = q.SymbolAt("/nope.sc", 0, 0)
	require.NoError(t, err)
	assert.Nil(t, sym)
}

func TestScopeAt(t *testing.T) {
	t.Parallel()
	e, paths := indexFixture(t, map[string]string{"main.sc": querySample})
	q := e.Query()
	path := paths["main.sc"]

	chain, err := q.ScopeAt(path, 6, len("    map(xs, _(v) -> sq"))
	require.NoError(t, err)
	var kinds []string
	for _, sc := range chain {
		kinds = append(kinds, sc.Kind)
	}
	assert.Equal(t, []string{store.ScopeLambda, store.ScopeFunction, store.ScopeDocument}, kinds)

	run := symbolNamed(t, e, "run")
	require.NotNil(t, chain[1].SymbolID)
	assert.Equal(t, run.ID, *chain[1].SymbolID)

	chain, err = q.ScopeAt(path, 11, 2)
	require.NoError(t, err)
	require.Len(t, chain, 1)
	assert.Equal(t, store.ScopeDocument, chain[0].Kind)

	chain, err = q.ScopeAt("/nope.sc", 0, 0)
	require.NoError(t, err)
	assert.Nil(t, chain)
}

func TestSymbolDetail(t *testing.T) {
	t.Parallel()
	e, _ := indexFixture(t, map[string]string{"main.sc": querySample})
	q := e.Query()

	run := symbolNamed(t, e, "run")
	detail, err := q.SymbolDetail(run.ID)
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.Equal(t, "run", detail.Symbol.Name)
	assert.Equal(t, "run(xs)", detail.Symbol.Signature)

	require.Len(t, detail.Parameters, 1)
	assert.Equal(t, "xs", detail.Parameters[0].Name)

	var children []string
	for _, c := range detail.Children {
		children = append(children, c.Name)
	}
	assert.Equal(t, []string{"v", "xs"}, children, "lambda parameters belong to the enclosing function")

	square := symbolNamed(t, e, "square")
	detail, err = q.SymbolDetail(square.ID)
	require.NoError(t, err)
	assert.Equal(t, "Squares n.", detail.Symbol.Doc)

	detail, err = q.SymbolDetail(99999)
	require.NoError(t, err)
	assert.Nil(t, detail)
}

func TestSymbolDetail_NonFunctionHasNoParameters(t *testing.T) {
	t.Parallel()
	q, s := newTestQueryBuilder(t)
	fID, err := s.InsertFile(&store.File{Path: "/v.sc", Language: LanguageScarpet, Hash: "h", LastIndexed: time.Now()})
	require.NoError(t, err)
	id, err := s.InsertSymbol(&store.Symbol{FileID: &fID, Name: "x", Kind: store.KindVariable, EndCol: 1})
	require.NoError(t, err)

	detail, err := q.SymbolDetail(id)
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.NotNil(t, detail.Parameters)
	assert.Empty(t, detail.Parameters)
	assert.Empty(t, detail.Children)
}
