package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchedStore_SymbolsByFile_ReturnsBufferedSymbols(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/main.sc")

	batch := NewBatchedStore(s)
	id1, err := batch.InsertSymbol(&Symbol{FileID: &f.ID, Name: "foo", Kind: KindFunction})
	require.NoError(t, err)
	assert.Negative(t, id1, "batched IDs should be negative")
	id2, err := batch.InsertSymbol(&Symbol{FileID: &f.ID, Name: "global_bar", Kind: KindGlobal})
	require.NoError(t, err)
	assert.Less(t, id2, id1)

	syms, err := batch.SymbolsByFile(f.ID)
	require.NoError(t, err)
	require.Len(t, syms, 2)
	for _, sym := range syms {
		assert.Negative(t, sym.ID, "buffered symbols should have negative IDs")
	}
}

func TestBatchedStore_SymbolsByFile_MergesWithDatabase(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/main.sc")
	insertTestSymbol(t, s, &f.ID, "existing", KindFunction)

	batch := NewBatchedStore(s)
	_, err := batch.InsertSymbol(&Symbol{FileID: &f.ID, Name: "fresh", Kind: KindFunction})
	require.NoError(t, err)

	syms, err := batch.SymbolsByFile(f.ID)
	require.NoError(t, err)
	require.Len(t, syms, 2)
	names := []string{syms[0].Name, syms[1].Name}
	assert.ElementsMatch(t, []string{"existing", "fresh"}, names)
}

func TestBatchedStore_SymbolsByFile_DoesNotReturnOtherFiles(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f1 := insertTestFile(t, s, "/a.sc")
	f2 := insertTestFile(t, s, "/b.sc")

	batch := NewBatchedStore(s)
	_, err := batch.InsertSymbol(&Symbol{FileID: &f1.ID, Name: "in_a", Kind: KindFunction})
	require.NoError(t, err)
	_, err = batch.InsertSymbol(&Symbol{FileID: &f2.ID, Name: "in_b", Kind: KindFunction})
	require.NoError(t, err)

	syms, err := batch.SymbolsByFile(f1.ID)
	require.NoError(t, err)
	require.Len(t, syms, 1)
	assert.Equal(t, "in_a", syms[0].Name)
}

func TestCommitBatch_RemapsEveryForeignKey(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/main.sc")

	batch := NewBatchedStore(s)
	script := &Symbol{FileID: &f.ID, Name: "main.sc", Kind: KindScript}
	_, err := batch.InsertSymbol(script)
	require.NoError(t, err)
	fn := &Symbol{FileID: &f.ID, Name: "helper", Kind: KindFunction, ParentSymbolID: &script.ID}
	_, err = batch.InsertSymbol(fn)
	require.NoError(t, err)
	param := &Symbol{FileID: &f.ID, Name: "a", Kind: KindParameter, ParentSymbolID: &fn.ID}
	_, err = batch.InsertSymbol(param)
	require.NoError(t, err)
	_, err = batch.InsertFunctionParam(&FunctionParam{SymbolID: fn.ID, Name: "a", Kind: KindParameter})
	require.NoError(t, err)

	doc := &Scope{FileID: f.ID, Kind: ScopeDocument}
	_, err = batch.InsertScope(doc)
	require.NoError(t, err)
	body := &Scope{FileID: f.ID, SymbolID: &fn.ID, Kind: ScopeFunction, ParentScopeID: &doc.ID}
	_, err = batch.InsertScope(body)
	require.NoError(t, err)

	ref := &Reference{FileID: f.ID, ScopeID: &body.ID, Name: "a", Context: ContextVariable}
	_, err = batch.InsertReference(ref)
	require.NoError(t, err)
	_, err = batch.InsertResolvedReference(&ResolvedReference{ReferenceID: ref.ID, TargetSymbolID: param.ID, ResolutionKind: ResolutionLexical})
	require.NoError(t, err)
	_, err = batch.InsertCallEdge(&CallEdge{CallerSymbolID: script.ID, CalleeSymbolID: fn.ID, FileID: &f.ID, Line: 1})
	require.NoError(t, err)

	require.NoError(t, s.CommitBatch(batch))

	syms, err := s.SymbolsByFile(f.ID)
	require.NoError(t, err)
	require.Len(t, syms, 3)
	byName := map[string]*Symbol{}
	for _, sym := range syms {
		assert.Positive(t, sym.ID)
		byName[sym.Name] = sym
	}
	require.NotNil(t, byName["a"].ParentSymbolID)
	assert.Equal(t, byName["helper"].ID, *byName["a"].ParentSymbolID)

	params, err := s.FunctionParams(byName["helper"].ID)
	require.NoError(t, err)
	assert.Len(t, params, 1)

	scopes, err := s.ScopesByFile(f.ID)
	require.NoError(t, err)
	require.Len(t, scopes, 2)
	require.NotNil(t, scopes[1].ParentScopeID)
	assert.Equal(t, scopes[0].ID, *scopes[1].ParentScopeID)

	resolved, err := s.ResolvedReferencesByTarget(byName["a"].ID)
	require.NoError(t, err)
	assert.Len(t, resolved, 1)

	callers, err := s.CallersByCallee(byName["helper"].ID)
	require.NoError(t, err)
	require.Len(t, callers, 1)
	assert.Equal(t, byName["main.sc"].ID, callers[0].CallerSymbolID)
}

func TestCommitBatch_UnknownFakeIDRollsBack(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/main.sc")

	batch := NewBatchedStore(s)
	_, err := batch.InsertSymbol(&Symbol{FileID: &f.ID, Name: "orphan", Kind: KindVariable, ParentSymbolID: ptr(int64(-99))})
	require.NoError(t, err)

	err = s.CommitBatch(batch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in batch")

	syms, err := s.SymbolsByFile(f.ID)
	require.NoError(t, err)
	assert.Empty(t, syms)
}
