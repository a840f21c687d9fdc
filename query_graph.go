package scarpetls

import (
	"fmt"
	"sort"
)

// maxGraphDepth caps transitive call graph traversal.
const maxGraphDepth = 100

// CallGraph represents a transitive call graph rooted at a symbol.
// Nodes and edges are bulk-loaded then traversed with BFS -- no recursive
// SQL or N+1 queries.
type CallGraph struct {
	Root  int64           // starting symbol ID
	Nodes []CallGraphNode // all symbols reachable within depth, root first
	Edges []CallGraphEdge // all edges in the subgraph
	Depth int             // actual max depth reached (may be < maxDepth if graph is shallow)
}

// CallGraphNode is a symbol in the call graph with its distance from the root.
type CallGraphNode struct {
	Symbol SymbolResult
	Depth  int // BFS depth from root (0 = root itself)
}

// CallGraphEdge is a single caller-callee relationship in the call graph.
type CallGraphEdge struct {
	CallerID int64
	CalleeID int64
	File     string
	Line     int
	Col      int
}

// callGraphData holds the bulk-loaded call graph adjacency maps and file path index.
type callGraphData struct {
	forward       map[int64][]int64     // caller -> callees
	reverse       map[int64][]int64     // callee -> callers
	edgesByCaller map[int64][]*CallEdge // edges keyed by caller
	edgesByCallee map[int64][]*CallEdge // edges keyed by callee
	filePaths     map[int64]string      // file ID -> path
}

// buildCallGraph bulk-loads all call edges and files into memory and builds
// forward/reverse adjacency maps. This avoids N+1 queries during BFS traversal.
func (q *QueryBuilder) buildCallGraph() (*callGraphData, error) {
	edges, err := q.store.AllCallEdges()
	if err != nil {
		return nil, fmt.Errorf("load edges: %w", err)
	}
	files, err := q.store.AllFiles()
	if err != nil {
		return nil, fmt.Errorf("load files: %w", err)
	}

	data := &callGraphData{
		forward:       make(map[int64][]int64),
		reverse:       make(map[int64][]int64),
		edgesByCaller: make(map[int64][]*CallEdge),
		edgesByCallee: make(map[int64][]*CallEdge),
		filePaths:     make(map[int64]string, len(files)),
	}
	for _, f := range files {
		data.filePaths[f.ID] = f.Path
	}
	for _, e := range edges {
		data.forward[e.CallerSymbolID] = append(data.forward[e.CallerSymbolID], e.CalleeSymbolID)
		data.reverse[e.CalleeSymbolID] = append(data.reverse[e.CalleeSymbolID], e.CallerSymbolID)
		data.edgesByCaller[e.CallerSymbolID] = append(data.edgesByCaller[e.CallerSymbolID], e)
		data.edgesByCallee[e.CalleeSymbolID] = append(data.edgesByCallee[e.CalleeSymbolID], e)
	}
	return data, nil
}

// resolveCallGraphEdge converts a CallEdge to a CallGraphEdge,
// resolving FileID to a file path string.
func resolveCallGraphEdge(edge *CallEdge, filePaths map[int64]string) CallGraphEdge {
	file := ""
	if edge.FileID != nil {
		file = filePaths[*edge.FileID]
	}
	return CallGraphEdge{
		CallerID: edge.CallerSymbolID,
		CalleeID: edge.CalleeSymbolID,
		File:     file,
		Line:     edge.Line,
		Col:      edge.Col,
	}
}

// TransitiveCallers returns all transitive callers of a symbol up to maxDepth.
// maxDepth of 0 returns only the root node (no traversal). Negative returns error.
// Capped at 100. Returns nil, nil if symbolID does not exist.
func (q *QueryBuilder) TransitiveCallers(symbolID int64, maxDepth int) (*CallGraph, error) {
	g, err := q.transitive(symbolID, maxDepth, true)
	if err != nil {
		return nil, fmt.Errorf("transitive callers: %w", err)
	}
	return g, nil
}

// TransitiveCallees returns all transitive callees of a symbol up to maxDepth.
// maxDepth of 0 returns only the root node (no traversal). Negative returns error.
// Capped at 100. Returns nil, nil if symbolID does not exist.
func (q *QueryBuilder) TransitiveCallees(symbolID int64, maxDepth int) (*CallGraph, error) {
	g, err := q.transitive(symbolID, maxDepth, false)
	if err != nil {
		return nil, fmt.Errorf("transitive callees: %w", err)
	}
	return g, nil
}

// transitive walks the call graph breadth-first from symbolID, following
// callers when reverse is set and callees otherwise.
func (q *QueryBuilder) transitive(symbolID int64, maxDepth int, reverse bool) (*CallGraph, error) {
	if maxDepth < 0 {
		return nil, fmt.Errorf("maxDepth must be non-negative, got %d", maxDepth)
	}
	maxDepth = min(maxDepth, maxGraphDepth)

	rootSym, err := q.symbolResultByID(symbolID)
	if err != nil {
		return nil, err
	}
	if rootSym == nil {
		return nil, nil
	}

	result := &CallGraph{
		Root:  symbolID,
		Nodes: []CallGraphNode{{Symbol: *rootSym, Depth: 0}},
		Edges: []CallGraphEdge{},
	}
	if maxDepth == 0 {
		return result, nil
	}

	data, err := q.buildCallGraph()
	if err != nil {
		return nil, err
	}
	adjacent, edgesOf := data.forward, data.edgesByCaller
	if reverse {
		adjacent, edgesOf = data.reverse, data.edgesByCallee
	}

	visited := map[int64]int{symbolID: 0} // symbol ID -> depth
	queue := []int64{symbolID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		depth := visited[id]
		if depth >= maxDepth {
			continue
		}
		for _, next := range adjacent[id] {
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = depth + 1
			result.Depth = max(result.Depth, depth+1)
			queue = append(queue, next)
		}
	}

	nodeIDs := make([]int64, 0, len(visited)-1)
	for id := range visited {
		if id != symbolID {
			nodeIDs = append(nodeIDs, id)
		}
	}
	symbols, err := q.symbolResultsByIDs(nodeIDs)
	if err != nil {
		return nil, fmt.Errorf("load symbols: %w", err)
	}
	var nodes []CallGraphNode
	for _, id := range nodeIDs {
		if sr, ok := symbols[id]; ok {
			nodes = append(nodes, CallGraphNode{Symbol: *sr, Depth: visited[id]})
		}
	}
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Depth != nodes[j].Depth {
			return nodes[i].Depth < nodes[j].Depth
		}
		return nodes[i].Symbol.ID < nodes[j].Symbol.ID
	})
	result.Nodes = append(result.Nodes, nodes...)

	// An edge belongs to the subgraph when both ends were visited.
	edgeSeen := make(map[int64]bool)
	for id := range visited {
		for _, edge := range edgesOf[id] {
			other := edge.CalleeSymbolID
			if reverse {
				other = edge.CallerSymbolID
			}
			if _, ok := visited[other]; ok && !edgeSeen[edge.ID] {
				edgeSeen[edge.ID] = true
				result.Edges = append(result.Edges, resolveCallGraphEdge(edge, data.filePaths))
			}
		}
	}
	sort.Slice(result.Edges, func(i, j int) bool {
		a, b := result.Edges[i], result.Edges[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Col < b.Col
	})

	return result, nil
}

// HotspotResult represents a heavily-used function with fan-in/fan-out
// metrics from the call graph.
type HotspotResult struct {
	Symbol      SymbolResult
	CallerCount int // direct call sites (fan-in from call_graph)
	CalleeCount int // direct calls made (fan-out from call_graph)
}

// UnusedFunctions returns function symbols that nothing calls or names in a
// function string. Functions named after event callbacks are invoked by the
// game and are never reported. Supports the same SymbolFilter and
// Pagination as Symbols(); the filter's Kinds are ignored.
func (q *QueryBuilder) UnusedFunctions(filter SymbolFilter, sort Sort, page Pagination) (*PagedResult[SymbolResult], error) {
	filter.Kinds = nil
	where, args := filterClauses(filter)
	where = append(where,
		"s.kind = 'function'",
		refCountExpr+" = 0",
	)
	if callbacks := q.callbackNames(); len(callbacks) > 0 {
		where = append(where, "s.name NOT IN ("+placeholders(len(callbacks))+")")
		for _, name := range callbacks {
			args = append(args, name)
		}
	}

	res, err := q.pagedSymbols(where, args, sort, page)
	if err != nil {
		return nil, fmt.Errorf("unused functions: %w", err)
	}
	return res, nil
}

func (q *QueryBuilder) callbackNames() []string {
	if q.builtins == nil {
		return nil
	}
	return q.builtins.CallbackNames()
}

// Hotspots returns the top-N most-called functions with fan-in and fan-out
// metrics, ordered by fan-in descending.
// topN of 0 returns empty list. Negative returns error.
func (q *QueryBuilder) Hotspots(topN int) ([]*HotspotResult, error) {
	if topN < 0 {
		return nil, fmt.Errorf("hotspots: topN must be non-negative, got %d", topN)
	}
	if topN == 0 {
		return []*HotspotResult{}, nil
	}

	dataSQL := fmt.Sprintf(
		`SELECT %s,
			(SELECT COUNT(*) FROM call_graph cg WHERE cg.callee_symbol_id = s.id) AS caller_count,
			(SELECT COUNT(*) FROM call_graph cg WHERE cg.caller_symbol_id = s.id) AS callee_count
		 FROM symbols s
		 LEFT JOIN files f ON s.file_id = f.id
		 WHERE s.kind = 'function'
		   AND EXISTS (SELECT 1 FROM call_graph cg2 WHERE cg2.callee_symbol_id = s.id)
		 ORDER BY caller_count DESC, s.name
		 LIMIT ?`,
		symbolResultSelect(),
	)

	rows, err := q.store.DB().Query(dataSQL, topN)
	if err != nil {
		return nil, fmt.Errorf("hotspots: query: %w", err)
	}
	defer rows.Close()

	items := []*HotspotResult{}
	for rows.Next() {
		hr, err := scanHotspotResult(rows)
		if err != nil {
			return nil, fmt.Errorf("hotspots: scan: %w", err)
		}
		items = append(items, hr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("hotspots: rows: %w", err)
	}
	return items, nil
}

// scanHotspotResult scans a row into a HotspotResult.
// Expects columns: [symbolResultSelect..., caller_count, callee_count].
func scanHotspotResult(row scanner) (*HotspotResult, error) {
	hr := &HotspotResult{}
	var counts [2]int
	sr, err := scanSymbolResult(suffixScanner{row, []any{&counts[0], &counts[1]}})
	if err != nil {
		return nil, err
	}
	hr.Symbol = sr
	hr.CallerCount, hr.CalleeCount = counts[0], counts[1]
	return hr, nil
}

// suffixScanner appends extra destinations to every Scan call.
type suffixScanner struct {
	scanner
	extra []any
}

func (s suffixScanner) Scan(dest ...any) error {
	return s.scanner.Scan(append(dest, s.extra...)...)
}
