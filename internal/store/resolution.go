package store

import "fmt"

// --- ResolvedReference operations ---

func (s *Store) InsertResolvedReference(rr *ResolvedReference) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO resolved_references (reference_id, target_symbol_id, resolution_kind)
		 VALUES (?, ?, ?)`,
		rr.ReferenceID, rr.TargetSymbolID, rr.ResolutionKind,
	)
	if err != nil {
		return 0, fmt.Errorf("insert resolved reference: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	rr.ID = id
	return id, nil
}

func (s *Store) queryResolvedRefs(query string, args ...any) ([]*ResolvedReference, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var refs []*ResolvedReference
	for rows.Next() {
		rr := &ResolvedReference{}
		if err := rows.Scan(&rr.ID, &rr.ReferenceID, &rr.TargetSymbolID, &rr.ResolutionKind); err != nil {
			return nil, fmt.Errorf("scan resolved reference: %w", err)
		}
		refs = append(refs, rr)
	}
	return refs, rows.Err()
}

const resolvedRefCols = `id, reference_id, target_symbol_id, resolution_kind`

func (s *Store) ResolvedReferencesByRef(referenceID int64) ([]*ResolvedReference, error) {
	return s.queryResolvedRefs(
		"SELECT "+resolvedRefCols+" FROM resolved_references WHERE reference_id = ?", referenceID,
	)
}

func (s *Store) ResolvedReferencesByTarget(symbolID int64) ([]*ResolvedReference, error) {
	return s.queryResolvedRefs(
		"SELECT "+resolvedRefCols+" FROM resolved_references WHERE target_symbol_id = ?", symbolID,
	)
}

// ReferencesToSymbol returns every reference resolved to symbolID, in
// file and source order.
func (s *Store) ReferencesToSymbol(symbolID int64) ([]*Reference, error) {
	return s.queryReferences(
		`SELECT r.id, r.file_id, r.scope_id, r.name, r.start_line, r.start_col, r.end_line, r.end_col, r.context
		 FROM references_ r
		 JOIN resolved_references rr ON rr.reference_id = r.id
		 WHERE rr.target_symbol_id = ?
		 ORDER BY r.file_id, r.start_line, r.start_col`, symbolID,
	)
}

// --- CallEdge operations ---

func (s *Store) InsertCallEdge(edge *CallEdge) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO call_graph (caller_symbol_id, callee_symbol_id, file_id, line, col)
		 VALUES (?, ?, ?, ?, ?)`,
		edge.CallerSymbolID, edge.CalleeSymbolID, edge.FileID, edge.Line, edge.Col,
	)
	if err != nil {
		return 0, fmt.Errorf("insert call edge: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	edge.ID = id
	return id, nil
}

func (s *Store) queryCallEdges(query string, args ...any) ([]*CallEdge, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var edges []*CallEdge
	for rows.Next() {
		e := &CallEdge{}
		if err := rows.Scan(&e.ID, &e.CallerSymbolID, &e.CalleeSymbolID, &e.FileID, &e.Line, &e.Col); err != nil {
			return nil, fmt.Errorf("scan call edge: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

const callEdgeCols = `id, caller_symbol_id, callee_symbol_id, file_id, line, col`

func (s *Store) AllCallEdges() ([]*CallEdge, error) {
	return s.queryCallEdges("SELECT " + callEdgeCols + " FROM call_graph ORDER BY id")
}

func (s *Store) CallersByCallee(calleeSymbolID int64) ([]*CallEdge, error) {
	return s.queryCallEdges(
		"SELECT "+callEdgeCols+" FROM call_graph WHERE callee_symbol_id = ? ORDER BY file_id, line, col", calleeSymbolID,
	)
}

func (s *Store) CalleesByCaller(callerSymbolID int64) ([]*CallEdge, error) {
	return s.queryCallEdges(
		"SELECT "+callEdgeCols+" FROM call_graph WHERE caller_symbol_id = ? ORDER BY file_id, line, col", callerSymbolID,
	)
}
