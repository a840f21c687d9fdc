package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

func ptr[T any](v T) *T { return &v }

// insertTestFile inserts a file and returns it with ID set.
func insertTestFile(t *testing.T, s *Store, path string) *File {
	t.Helper()
	f := &File{Path: path, Language: "scarpet", Hash: "abc123", LineCount: 10, LastIndexed: time.Now().Truncate(time.Second)}
	id, err := s.InsertFile(f)
	require.NoError(t, err)
	require.Positive(t, id)
	return f
}

// insertTestSymbol inserts a symbol with minimal required fields.
func insertTestSymbol(t *testing.T, s *Store, fileID *int64, name, kind string) *Symbol {
	t.Helper()
	sym := &Symbol{
		FileID:    fileID,
		Name:      name,
		Kind:      kind,
		Signature: name + "()",
		StartLine: 0, StartCol: 0, EndLine: 9, EndCol: 0,
	}
	id, err := s.InsertSymbol(sym)
	require.NoError(t, err)
	require.Positive(t, id)
	return sym
}

// =============================================================================
// Schema & Lifecycle
// =============================================================================

func TestMigrate_AllTablesExist(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	for _, table := range []string{
		"files", "symbols", "function_parameters", "scopes", "references_",
		"resolved_references", "call_graph", "metadata",
	} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Migrate())
}

func TestMigrate_WALMode(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	var mode string
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

// =============================================================================
// Files
// =============================================================================

func TestFile_InsertAndRetrieve(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	f := &File{Path: "/apps/miner.sc", Language: "scarpet", Hash: "sha256abc", LineCount: 42, LastIndexed: time.Now().Truncate(time.Second)}
	id, err := s.InsertFile(f)
	require.NoError(t, err)

	got, err := s.FileByPath("/apps/miner.sc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "scarpet", got.Language)
	assert.Equal(t, "sha256abc", got.Hash)
	assert.Equal(t, 42, got.LineCount)

	byID, err := s.FileByID(id)
	require.NoError(t, err)
	assert.Equal(t, got.Path, byID.Path)
}

func TestFile_NotFound(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	got, err := s.FileByPath("/nonexistent")
	require.NoError(t, err)
	assert.Nil(t, got)

	byID, err := s.FileByID(999)
	require.NoError(t, err)
	assert.Nil(t, byID)
}

func TestFile_Listing(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	insertTestFile(t, s, "/b.sc")
	insertTestFile(t, s, "/a.sc")

	all, err := s.AllFiles()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "/a.sc", all[0].Path)

	byLang, err := s.FilesByLanguage("scarpet")
	require.NoError(t, err)
	assert.Len(t, byLang, 2)

	none, err := s.FilesByLanguage("go")
	require.NoError(t, err)
	assert.Empty(t, none)
}

// =============================================================================
// Symbols & parameters
// =============================================================================

func TestSymbol_InsertAndQuery(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/main.sc")

	script := insertTestSymbol(t, s, &f.ID, "main.sc", KindScript)
	fn := &Symbol{
		FileID: &f.ID, Name: "helper", Kind: KindFunction,
		Signature: "helper(a, ...rest)", Doc: "Does things.",
		StartLine: 2, StartCol: 0, EndLine: 4, EndCol: 1,
		ParentSymbolID: &script.ID,
	}
	_, err := s.InsertSymbol(fn)
	require.NoError(t, err)
	insertTestSymbol(t, s, &f.ID, "global_count", KindGlobal)

	byFile, err := s.SymbolsByFile(f.ID)
	require.NoError(t, err)
	assert.Len(t, byFile, 3)

	byName, err := s.SymbolsByName("helper")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "helper(a, ...rest)", byName[0].Signature)
	assert.Equal(t, "Does things.", byName[0].Doc)
	require.NotNil(t, byName[0].ParentSymbolID)
	assert.Equal(t, script.ID, *byName[0].ParentSymbolID)

	byKind, err := s.SymbolsByKind(KindGlobal)
	require.NoError(t, err)
	require.Len(t, byKind, 1)
	assert.Equal(t, "global_count", byKind[0].Name)

	children, err := s.SymbolChildren(script.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, fn.ID, children[0].ID)

	got, err := s.SymbolByID(fn.ID)
	require.NoError(t, err)
	assert.Equal(t, "helper", got.Name)

	missing, err := s.SymbolByID(12345)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSymbol_NilFileID(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	sym := insertTestSymbol(t, s, nil, "orphan", KindFunction)

	got, err := s.SymbolByID(sym.ID)
	require.NoError(t, err)
	assert.Nil(t, got.FileID)
}

func TestFunctionParam_Ordered(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/main.sc")
	fn := insertTestSymbol(t, s, &f.ID, "f", KindFunction)

	for _, fp := range []*FunctionParam{
		{SymbolID: fn.ID, Name: "rest", Ordinal: 2, Kind: KindRest},
		{SymbolID: fn.ID, Name: "a", Ordinal: 0, Kind: KindParameter},
		{SymbolID: fn.ID, Name: "cfg", Ordinal: 1, Kind: KindOuter},
	} {
		_, err := s.InsertFunctionParam(fp)
		require.NoError(t, err)
	}

	params, err := s.FunctionParams(fn.ID)
	require.NoError(t, err)
	require.Len(t, params, 3)
	assert.Equal(t, "a", params[0].Name)
	assert.Equal(t, KindOuter, params[1].Kind)
	assert.Equal(t, KindRest, params[2].Kind)
}

// =============================================================================
// Scopes & references
// =============================================================================

func TestScope_Chain(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/main.sc")
	fn := insertTestSymbol(t, s, &f.ID, "f", KindFunction)

	doc := &Scope{FileID: f.ID, Kind: ScopeDocument, EndLine: 20}
	_, err := s.InsertScope(doc)
	require.NoError(t, err)
	body := &Scope{FileID: f.ID, SymbolID: &fn.ID, Kind: ScopeFunction, StartLine: 2, EndLine: 5, ParentScopeID: &doc.ID}
	_, err = s.InsertScope(body)
	require.NoError(t, err)
	lambda := &Scope{FileID: f.ID, Kind: ScopeLambda, StartLine: 3, EndLine: 3, ParentScopeID: &body.ID}
	_, err = s.InsertScope(lambda)
	require.NoError(t, err)

	chain, err := s.ScopeChain(lambda.ID)
	require.NoError(t, err)
	require.Len(t, chain, 3)
	assert.Equal(t, ScopeLambda, chain[0].Kind)
	assert.Equal(t, ScopeFunction, chain[1].Kind)
	assert.Equal(t, ScopeDocument, chain[2].Kind)

	scopes, err := s.ScopesByFile(f.ID)
	require.NoError(t, err)
	assert.Len(t, scopes, 3)
}

func TestReference_InsertAndQuery(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/main.sc")
	scope := &Scope{FileID: f.ID, Kind: ScopeDocument}
	_, err := s.InsertScope(scope)
	require.NoError(t, err)

	for _, ref := range []*Reference{
		{FileID: f.ID, ScopeID: &scope.ID, Name: "x", StartLine: 3, StartCol: 4, EndLine: 3, EndCol: 5, Context: ContextVariable},
		{FileID: f.ID, ScopeID: &scope.ID, Name: "x", StartLine: 1, StartCol: 0, EndLine: 1, EndCol: 1, Context: ContextDeclaration},
		{FileID: f.ID, Name: "helper", StartLine: 2, StartCol: 0, EndLine: 2, EndCol: 6, Context: ContextCall},
	} {
		_, err := s.InsertReference(ref)
		require.NoError(t, err)
	}

	byFile, err := s.ReferencesByFile(f.ID)
	require.NoError(t, err)
	require.Len(t, byFile, 3)
	assert.Equal(t, ContextDeclaration, byFile[0].Context, "source order")

	byName, err := s.ReferencesByName("x")
	require.NoError(t, err)
	assert.Len(t, byName, 2)

	inScope, err := s.ReferencesInScope(scope.ID)
	require.NoError(t, err)
	assert.Len(t, inScope, 2)
}

// =============================================================================
// Resolution
// =============================================================================

func TestResolvedReference_InsertAndQuery(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/main.sc")
	sym := insertTestSymbol(t, s, &f.ID, "x", KindVariable)
	ref := &Reference{FileID: f.ID, Name: "x", Context: ContextVariable}
	_, err := s.InsertReference(ref)
	require.NoError(t, err)

	_, err = s.InsertResolvedReference(&ResolvedReference{ReferenceID: ref.ID, TargetSymbolID: sym.ID, ResolutionKind: ResolutionLexical})
	require.NoError(t, err)

	byRef, err := s.ResolvedReferencesByRef(ref.ID)
	require.NoError(t, err)
	require.Len(t, byRef, 1)
	assert.Equal(t, sym.ID, byRef[0].TargetSymbolID)
	assert.Equal(t, ResolutionLexical, byRef[0].ResolutionKind)

	byTarget, err := s.ResolvedReferencesByTarget(sym.ID)
	require.NoError(t, err)
	assert.Len(t, byTarget, 1)

	refs, err := s.ReferencesToSymbol(sym.ID)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, ref.ID, refs[0].ID)
}

func TestCallEdge_InsertAndQuery(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/main.sc")
	caller := insertTestSymbol(t, s, &f.ID, "main", KindFunction)
	callee := insertTestSymbol(t, s, &f.ID, "helper", KindFunction)

	_, err := s.InsertCallEdge(&CallEdge{CallerSymbolID: caller.ID, CalleeSymbolID: callee.ID, FileID: &f.ID, Line: 4, Col: 2})
	require.NoError(t, err)

	callers, err := s.CallersByCallee(callee.ID)
	require.NoError(t, err)
	require.Len(t, callers, 1)
	assert.Equal(t, caller.ID, callers[0].CallerSymbolID)
	assert.Equal(t, 4, callers[0].Line)

	callees, err := s.CalleesByCaller(caller.ID)
	require.NoError(t, err)
	require.Len(t, callees, 1)

	all, err := s.AllCallEdges()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

// =============================================================================
// Metadata
// =============================================================================

func TestMetadata(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	v, err := s.GetMetadata("builtins_hash")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, s.SetMetadata("builtins_hash", "one"))
	require.NoError(t, s.SetMetadata("builtins_hash", "two"))
	v, err = s.GetMetadata("builtins_hash")
	require.NoError(t, err)
	assert.Equal(t, "two", v)
}

// =============================================================================
// DeleteFileData (transactional re-index)
// =============================================================================

func TestDeleteFileData(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/main.sc")
	other := insertTestFile(t, s, "/other.sc")

	script := insertTestSymbol(t, s, &f.ID, "main.sc", KindScript)
	fn := insertTestSymbol(t, s, &f.ID, "helper", KindFunction)
	kept := insertTestSymbol(t, s, &other.ID, "kept", KindFunction)
	_, err := s.InsertFunctionParam(&FunctionParam{SymbolID: fn.ID, Name: "a", Kind: KindParameter})
	require.NoError(t, err)
	scope := &Scope{FileID: f.ID, SymbolID: &fn.ID, Kind: ScopeFunction}
	_, err = s.InsertScope(scope)
	require.NoError(t, err)
	ref := &Reference{FileID: f.ID, ScopeID: &scope.ID, Name: "helper", Context: ContextCall}
	_, err = s.InsertReference(ref)
	require.NoError(t, err)
	_, err = s.InsertResolvedReference(&ResolvedReference{ReferenceID: ref.ID, TargetSymbolID: fn.ID, ResolutionKind: ResolutionFunction})
	require.NoError(t, err)
	_, err = s.InsertCallEdge(&CallEdge{CallerSymbolID: script.ID, CalleeSymbolID: fn.ID, FileID: &f.ID})
	require.NoError(t, err)

	require.NoError(t, s.DeleteFileData(f.ID))

	syms, _ := s.SymbolsByFile(f.ID)
	assert.Empty(t, syms)
	scopes, _ := s.ScopesByFile(f.ID)
	assert.Empty(t, scopes)
	refs, _ := s.ReferencesByFile(f.ID)
	assert.Empty(t, refs)
	params, _ := s.FunctionParams(fn.ID)
	assert.Empty(t, params)
	edges, _ := s.AllCallEdges()
	assert.Empty(t, edges)
	gone, _ := s.FileByPath("/main.sc")
	assert.Nil(t, gone)

	still, err := s.SymbolByID(kept.ID)
	require.NoError(t, err)
	assert.NotNil(t, still, "other files are untouched")
}

func TestDeleteFileData_Reindex(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/main.sc")
	insertTestSymbol(t, s, &f.ID, "old_func", KindFunction)

	require.NoError(t, s.DeleteFileData(f.ID))
	f2 := insertTestFile(t, s, "/main.sc")
	insertTestSymbol(t, s, &f2.ID, "new_func", KindFunction)

	syms, err := s.SymbolsByFile(f2.ID)
	require.NoError(t, err)
	require.Len(t, syms, 1)
	assert.Equal(t, "new_func", syms[0].Name)
}
