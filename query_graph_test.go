package scarpetls

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/scarpetls/internal/store"
)

func insertFunction(t *testing.T, s *store.Store, fileID int64, name string) int64 {
	t.Helper()
	id, err := s.InsertSymbol(&store.Symbol{FileID: &fileID, Name: name, Kind: store.KindFunction, EndCol: len(name)})
	require.NoError(t, err)
	return id
}

func insertEdge(t *testing.T, s *store.Store, fileID, caller, callee int64, line int) {
	t.Helper()
	_, err := s.InsertCallEdge(&store.CallEdge{CallerSymbolID: caller, CalleeSymbolID: callee, FileID: &fileID, Line: line})
	require.NoError(t, err)
}

// chainFixture builds a -> b -> c -> d plus e -> c.
func chainFixture(t *testing.T) (*QueryBuilder, map[string]int64) {
	t.Helper()
	q, s := newTestQueryBuilder(t)
	fID, err := s.InsertFile(&store.File{Path: "/g.sc", Language: LanguageScarpet, Hash: "h", LastIndexed: time.Now()})
	require.NoError(t, err)
	ids := map[string]int64{}
	for _, n := range []string{"a", "b", "c", "d", "e"} {
		ids[n] = insertFunction(t, s, fID, n)
	}
	insertEdge(t, s, fID, ids["a"], ids["b"], 1)
	insertEdge(t, s, fID, ids["b"], ids["c"], 2)
	insertEdge(t, s, fID, ids["c"], ids["d"], 3)
	insertEdge(t, s, fID, ids["e"], ids["c"], 4)
	return q, ids
}

func nodeDepths(g *CallGraph) map[string]int {
	out := make(map[string]int, len(g.Nodes))
	for _, n := range g.Nodes {
		out[n.Symbol.Name] = n.Depth
	}
	return out
}

func TestTransitiveCallers(t *testing.T) {
	t.Parallel()
	q, ids := chainFixture(t)

	g, err := q.TransitiveCallers(ids["c"], 5)
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, ids["c"], g.Root)
	assert.Equal(t, "c", g.Nodes[0].Symbol.Name, "root first")
	assert.Equal(t, map[string]int{"c": 0, "b": 1, "e": 1, "a": 2}, nodeDepths(g))
	assert.Len(t, g.Edges, 3)
	assert.Equal(t, 2, g.Depth)
	assert.Equal(t, "/g.sc", g.Edges[0].File)
	assert.Equal(t, 1, g.Edges[0].Line, "edges sorted by position")
}

func TestTransitiveCallees(t *testing.T) {
	t.Parallel()
	q, ids := chainFixture(t)

	g, err := q.TransitiveCallees(ids["a"], 2)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 0, "b": 1, "c": 2}, nodeDepths(g), "depth limit stops before d")
	assert.Len(t, g.Edges, 2)
	assert.Equal(t, 2, g.Depth)
}

func TestTransitive_DepthZeroAndErrors(t *testing.T) {
	t.Parallel()
	q, ids := chainFixture(t)

	g, err := q.TransitiveCallees(ids["a"], 0)
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 1)
	assert.Empty(t, g.Edges)

	_, err = q.TransitiveCallers(ids["a"], -1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-negative")

	g, err = q.TransitiveCallers(99999, 3)
	require.NoError(t, err)
	assert.Nil(t, g)
}

func TestTransitive_CyclesTerminate(t *testing.T) {
	t.Parallel()
	q, s := newTestQueryBuilder(t)
	fID, err := s.InsertFile(&store.File{Path: "/cycle.sc", Language: LanguageScarpet, Hash: "h", LastIndexed: time.Now()})
	require.NoError(t, err)
	ping := insertFunction(t, s, fID, "ping")
	pong := insertFunction(t, s, fID, "pong")
	insertEdge(t, s, fID, ping, pong, 0)
	insertEdge(t, s, fID, pong, ping, 1)
	insertEdge(t, s, fID, ping, ping, 2)

	g, err := q.TransitiveCallees(ping, maxGraphDepth+50)
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 2)
	assert.Len(t, g.Edges, 3)
	assert.Equal(t, 1, g.Depth)
}

func TestTransitive_LongChainIsCapped(t *testing.T) {
	t.Parallel()
	q, s := newTestQueryBuilder(t)
	fID, err := s.InsertFile(&store.File{Path: "/long.sc", Language: LanguageScarpet, Hash: "h", LastIndexed: time.Now()})
	require.NoError(t, err)

	prev := insertFunction(t, s, fID, "f0")
	root := prev
	for i := 1; i <= maxGraphDepth+10; i++ {
		next := insertFunction(t, s, fID, fmt.Sprintf("f%d", i))
		insertEdge(t, s, fID, prev, next, i)
		prev = next
	}

	g, err := q.TransitiveCallees(root, 1000)
	require.NoError(t, err)
	assert.Equal(t, maxGraphDepth, g.Depth)
	assert.Len(t, g.Nodes, maxGraphDepth+1)
}

func TestUnusedFunctions(t *testing.T) {
	t.Parallel()
	e, _ := indexFixture(t, map[string]string{"main.sc": querySample})

	res, err := e.Query().UnusedFunctions(SymbolFilter{}, Sort{}, Pagination{})
	require.NoError(t, err)
	assert.Equal(t, []string{"unused_fn"}, names(res.Items), "callbacks are invoked by the game")
	assert.Equal(t, 1, res.TotalCount)
}

func TestUnusedFunctions_RecursionIsAUse(t *testing.T) {
	t.Parallel()
	e, paths := indexFixture(t, map[string]string{
		"a.sc": "loop_forever(n) -> loop_forever(n + 1); dead() -> 0",
		"b.sc": "also_dead() -> 0",
	})

	res, err := e.Query().UnusedFunctions(SymbolFilter{}, Sort{Field: SortByName}, Pagination{})
	require.NoError(t, err)
	assert.Equal(t, []string{"also_dead", "dead"}, names(res.Items))

	f, err := e.Store().FileByPath(paths["b.sc"])
	require.NoError(t, err)
	res, err = e.Query().UnusedFunctions(SymbolFilter{FileID: &f.ID}, Sort{}, Pagination{})
	require.NoError(t, err)
	assert.Equal(t, []string{"also_dead"}, names(res.Items))
}

func TestHotspots(t *testing.T) {
	t.Parallel()
	q, ids := chainFixture(t)

	hs, err := q.Hotspots(2)
	require.NoError(t, err)
	require.Len(t, hs, 2)
	assert.Equal(t, "c", hs[0].Symbol.Name)
	assert.Equal(t, 2, hs[0].CallerCount)
	assert.Equal(t, 1, hs[0].CalleeCount)
	assert.Equal(t, ids["b"], hs[1].Symbol.ID, "ties break by name")

	hs, err = q.Hotspots(0)
	require.NoError(t, err)
	assert.Empty(t, hs)

	_, err = q.Hotspots(-1)
	require.Error(t, err)
}
