package scarpetls

import (
	"database/sql"
	"fmt"

	"github.com/jward/scarpetls/internal/store"
)

// containsPos is a WHERE fragment matching rows whose
// (start_line, start_col)..(end_line, end_col) span contains a position.
// Arguments: line, line, line, line, col, line, line, col.
const containsPos = `start_line <= ? AND end_line >= ?
	AND (start_line < ? OR (start_line = ? AND start_col <= ?))
	AND (end_line > ? OR (end_line = ? AND end_col >= ?))`

func containsArgs(line, col int) []any {
	return []any{line, line, line, line, col, line, line, col}
}

// SymbolDetail bundles a symbol with its parameters and the symbols
// declared directly under it.
type SymbolDetail struct {
	Symbol     SymbolResult
	Parameters []*store.FunctionParam // empty for non-functions
	Children   []SymbolResult         // parameters, locals and nested functions
}

// SymbolAt returns the narrowest symbol whose span contains (file, line,
// col). The script symbol spans the whole file, so inside an indexed file
// the result is only nil past its end. Returns nil with no error when the
// file is not indexed.
func (q *QueryBuilder) SymbolAt(file string, line, col int) (*SymbolResult, error) {
	f, err := q.store.FileByPath(file)
	if err != nil {
		return nil, fmt.Errorf("symbol at: lookup file: %w", err)
	}
	if f == nil {
		return nil, nil
	}

	row := q.store.DB().QueryRow(
		fmt.Sprintf(
			`SELECT %s
			 FROM symbols s
			 LEFT JOIN files f ON s.file_id = f.id
			 WHERE s.file_id = ? AND s.id IN (SELECT id FROM symbols WHERE file_id = ? AND %s)
			 ORDER BY (s.end_line - s.start_line) ASC, (s.end_col - s.start_col) ASC, s.id DESC
			 LIMIT 1`,
			symbolResultSelect(), containsPos,
		),
		append([]any{f.ID, f.ID}, containsArgs(line, col)...)...,
	)
	sr, err := scanSymbolResult(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("symbol at: %w", err)
	}
	return &sr, nil
}

// SymbolDetail returns the symbol with its parameters and children.
// Returns nil with no error if the symbol ID does not exist.
func (q *QueryBuilder) SymbolDetail(symbolID int64) (*SymbolDetail, error) {
	sr, err := q.symbolResultByID(symbolID)
	if err != nil {
		return nil, fmt.Errorf("symbol detail: %w", err)
	}
	if sr == nil {
		return nil, nil
	}

	params, err := q.store.FunctionParams(symbolID)
	if err != nil {
		return nil, fmt.Errorf("symbol detail: function params: %w", err)
	}
	if params == nil {
		params = []*store.FunctionParam{}
	}

	children, err := q.Symbols(SymbolFilter{ParentID: &symbolID}, Sort{Field: SortByName}, Pagination{Limit: maxLimit})
	if err != nil {
		return nil, fmt.Errorf("symbol detail: %w", err)
	}

	return &SymbolDetail{
		Symbol:     *sr,
		Parameters: params,
		Children:   children.Items,
	}, nil
}

// ScopeAt returns the scope chain at a position, ordered from innermost to
// outermost. Finds the narrowest scope containing (file, line, col), then
// walks parent_scope_id to the document scope.
// Returns nil slice, nil error if the file is not indexed.
func (q *QueryBuilder) ScopeAt(file string, line, col int) ([]*store.Scope, error) {
	f, err := q.store.FileByPath(file)
	if err != nil {
		return nil, fmt.Errorf("scope at: lookup file: %w", err)
	}
	if f == nil {
		return nil, nil
	}

	var innermost int64
	err = q.store.DB().QueryRow(
		`SELECT id FROM scopes WHERE file_id = ? AND `+containsPos+`
		 ORDER BY (end_line - start_line) ASC, (end_col - start_col) ASC, id DESC
		 LIMIT 1`,
		append([]any{f.ID}, containsArgs(line, col)...)...,
	).Scan(&innermost)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scope at: find innermost: %w", err)
	}

	chain, err := q.store.ScopeChain(innermost)
	if err != nil {
		return nil, fmt.Errorf("scope at: scope chain: %w", err)
	}
	return chain, nil
}

// symbolResultsByIDs loads multiple symbols as SymbolResults (with ref counts)
// in a single query. Missing IDs are simply absent from the map.
func (q *QueryBuilder) symbolResultsByIDs(ids []int64) (map[int64]*SymbolResult, error) {
	if len(ids) == 0 {
		return map[int64]*SymbolResult{}, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	items, err := q.querySymbolResults(
		fmt.Sprintf(
			`SELECT %s
			 FROM symbols s
			 LEFT JOIN files f ON s.file_id = f.id
			 WHERE s.id IN (%s)`,
			symbolResultSelect(), placeholders(len(ids)),
		),
		args...,
	)
	if err != nil {
		return nil, err
	}
	result := make(map[int64]*SymbolResult, len(items))
	for i := range items {
		result[items[i].ID] = &items[i]
	}
	return result, nil
}

// symbolResultByID loads a single symbol as a SymbolResult (with ref counts)
// by its ID. Returns nil with no error if not found.
func (q *QueryBuilder) symbolResultByID(symbolID int64) (*SymbolResult, error) {
	row := q.store.DB().QueryRow(
		fmt.Sprintf(
			`SELECT %s
			 FROM symbols s
			 LEFT JOIN files f ON s.file_id = f.id
			 WHERE s.id = ?`,
			symbolResultSelect(),
		),
		symbolID,
	)
	sr, err := scanSymbolResult(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sr, nil
}
