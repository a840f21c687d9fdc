package store

import (
	"database/sql"
	"fmt"
)

// CommitBatch inserts all buffered data from a BatchedStore into SQLite
// within a single transaction. Fake (negative) IDs are remapped to real
// IDs, and every FK within the batch is rewritten using the fakeToReal
// mapping.
//
// Insert order respects FK dependencies:
//  1. Symbols (parent_symbol_id must precede the child in the batch)
//  2. FunctionParams (symbol_id)
//  3. Scopes (symbol_id, parent_scope_id)
//  4. References (scope_id)
//  5. ResolvedReferences (reference_id, target_symbol_id)
//  6. CallEdges (caller_symbol_id, callee_symbol_id)
func (s *Store) CommitBatch(batch *BatchedStore) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	fakeToReal := make(map[int64]int64)
	remap := func(id int64) (int64, error) {
		if id >= 0 {
			return id, nil
		}
		realID, ok := fakeToReal[id]
		if !ok {
			return 0, fmt.Errorf("fake id %d not in batch", id)
		}
		return realID, nil
	}
	remapPtr := func(id *int64) (*int64, error) {
		if id == nil {
			return nil, nil
		}
		realID, err := remap(*id)
		if err != nil {
			return nil, err
		}
		return &realID, nil
	}

	// 1. Symbols
	for _, sym := range batch.Symbols {
		if sym.ParentSymbolID, err = remapPtr(sym.ParentSymbolID); err != nil {
			return fmt.Errorf("commit batch: symbol %q parent: %w", sym.Name, err)
		}
		realID, err := insertSymbolTx(tx, &sym)
		if err != nil {
			return fmt.Errorf("commit batch: symbol %q: %w", sym.Name, err)
		}
		fakeToReal[sym.ID] = realID
	}

	// 2. FunctionParams
	for _, fp := range batch.FunctionParams {
		if fp.SymbolID, err = remap(fp.SymbolID); err != nil {
			return fmt.Errorf("commit batch: function param %q: %w", fp.Name, err)
		}
		realID, err := insertFunctionParamTx(tx, &fp)
		if err != nil {
			return fmt.Errorf("commit batch: function param %q: %w", fp.Name, err)
		}
		fakeToReal[fp.ID] = realID
	}

	// 3. Scopes
	for _, scope := range batch.Scopes {
		if scope.ParentScopeID, err = remapPtr(scope.ParentScopeID); err != nil {
			return fmt.Errorf("commit batch: scope parent: %w", err)
		}
		if scope.SymbolID, err = remapPtr(scope.SymbolID); err != nil {
			return fmt.Errorf("commit batch: scope symbol: %w", err)
		}
		realID, err := insertScopeTx(tx, &scope)
		if err != nil {
			return fmt.Errorf("commit batch: scope: %w", err)
		}
		fakeToReal[scope.ID] = realID
	}

	// 4. References
	for _, ref := range batch.References {
		if ref.ScopeID, err = remapPtr(ref.ScopeID); err != nil {
			return fmt.Errorf("commit batch: reference %q: %w", ref.Name, err)
		}
		realID, err := insertReferenceTx(tx, &ref)
		if err != nil {
			return fmt.Errorf("commit batch: reference %q: %w", ref.Name, err)
		}
		fakeToReal[ref.ID] = realID
	}

	// 5. ResolvedReferences
	for _, rr := range batch.ResolvedReferences {
		if rr.ReferenceID, err = remap(rr.ReferenceID); err != nil {
			return fmt.Errorf("commit batch: resolved reference: %w", err)
		}
		if rr.TargetSymbolID, err = remap(rr.TargetSymbolID); err != nil {
			return fmt.Errorf("commit batch: resolved reference target: %w", err)
		}
		realID, err := insertResolvedReferenceTx(tx, &rr)
		if err != nil {
			return fmt.Errorf("commit batch: resolved reference: %w", err)
		}
		fakeToReal[rr.ID] = realID
	}

	// 6. CallEdges
	for _, edge := range batch.CallEdges {
		if edge.CallerSymbolID, err = remap(edge.CallerSymbolID); err != nil {
			return fmt.Errorf("commit batch: call edge caller: %w", err)
		}
		if edge.CalleeSymbolID, err = remap(edge.CalleeSymbolID); err != nil {
			return fmt.Errorf("commit batch: call edge callee: %w", err)
		}
		realID, err := insertCallEdgeTx(tx, &edge)
		if err != nil {
			return fmt.Errorf("commit batch: call edge: %w", err)
		}
		fakeToReal[edge.ID] = realID
	}

	return tx.Commit()
}

// --- Transaction-scoped insert helpers ---
// These mirror the Store insert methods but accept *sql.Tx instead of using s.db.

func insertSymbolTx(tx *sql.Tx, sym *Symbol) (int64, error) {
	res, err := tx.Exec(
		`INSERT INTO symbols (file_id, name, kind, signature, doc,
			start_line, start_col, end_line, end_col, parent_symbol_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sym.FileID, sym.Name, sym.Kind, sym.Signature, sym.Doc,
		sym.StartLine, sym.StartCol, sym.EndLine, sym.EndCol, sym.ParentSymbolID,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertFunctionParamTx(tx *sql.Tx, fp *FunctionParam) (int64, error) {
	res, err := tx.Exec(
		"INSERT INTO function_parameters (symbol_id, name, ordinal, kind) VALUES (?, ?, ?, ?)",
		fp.SymbolID, fp.Name, fp.Ordinal, fp.Kind,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertScopeTx(tx *sql.Tx, scope *Scope) (int64, error) {
	res, err := tx.Exec(
		`INSERT INTO scopes (file_id, symbol_id, kind, start_line, start_col, end_line, end_col, parent_scope_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		scope.FileID, scope.SymbolID, scope.Kind,
		scope.StartLine, scope.StartCol, scope.EndLine, scope.EndCol, scope.ParentScopeID,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertReferenceTx(tx *sql.Tx, ref *Reference) (int64, error) {
	res, err := tx.Exec(
		`INSERT INTO references_ (file_id, scope_id, name, start_line, start_col, end_line, end_col, context)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ref.FileID, ref.ScopeID, ref.Name,
		ref.StartLine, ref.StartCol, ref.EndLine, ref.EndCol, ref.Context,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertResolvedReferenceTx(tx *sql.Tx, rr *ResolvedReference) (int64, error) {
	res, err := tx.Exec(
		"INSERT INTO resolved_references (reference_id, target_symbol_id, resolution_kind) VALUES (?, ?, ?)",
		rr.ReferenceID, rr.TargetSymbolID, rr.ResolutionKind,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertCallEdgeTx(tx *sql.Tx, edge *CallEdge) (int64, error) {
	res, err := tx.Exec(
		"INSERT INTO call_graph (caller_symbol_id, callee_symbol_id, file_id, line, col) VALUES (?, ?, ?, ?, ?)",
		edge.CallerSymbolID, edge.CalleeSymbolID, edge.FileID, edge.Line, edge.Col,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
