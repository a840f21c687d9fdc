package scarpetls

import (
	"fmt"

	"github.com/jward/scarpetls/internal/builtins"
	"github.com/jward/scarpetls/internal/store"
)

// QueryBuilder answers cross-file questions over the index. Positions are
// zero-based lines and UTF-16 columns.
type QueryBuilder struct {
	store    *store.Store
	builtins *builtins.Table
}

// NewQueryBuilder wraps an already-migrated Store. Callback names come from
// t; a nil t uses the embedded built-in table.
func NewQueryBuilder(s *store.Store, t *builtins.Table) *QueryBuilder {
	if t == nil {
		t = builtins.Default()
	}
	return &QueryBuilder{store: s, builtins: t}
}

// Location represents a source code position range.
type Location struct {
	File      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// DefinitionAt returns the declarations the name at (file, line, col)
// resolves to. A declaration resolves to itself. Returns nil when the file
// is not indexed or nothing resolvable covers the position.
func (q *QueryBuilder) DefinitionAt(file string, line, col int) ([]Location, error) {
	f, err := q.store.FileByPath(file)
	if err != nil {
		return nil, fmt.Errorf("definition at: lookup file: %w", err)
	}
	if f == nil {
		return nil, nil
	}

	args := append([]any{f.ID}, containsArgs(line, col)...)
	locs, err := q.locations(
		`SELECT DISTINCT tf.path, s.start_line, s.start_col, s.end_line, s.end_col
		 FROM references_ r
		 JOIN resolved_references rr ON rr.reference_id = r.id
		 JOIN symbols s ON s.id = rr.target_symbol_id
		 JOIN files tf ON tf.id = s.file_id
		 WHERE r.id IN (SELECT id FROM references_ WHERE file_id = ? AND `+containsPos+`)
		 ORDER BY tf.path, s.start_line, s.start_col`, args...)
	if err != nil {
		return nil, fmt.Errorf("definition at: %w", err)
	}
	return locs, nil
}

// ReferencesTo returns every occurrence resolving to symbolID, the
// declaration included, ordered by file and position.
func (q *QueryBuilder) ReferencesTo(symbolID int64) ([]Location, error) {
	locs, err := q.locations(
		`SELECT f.path, r.start_line, r.start_col, r.end_line, r.end_col
		 FROM resolved_references rr
		 JOIN references_ r ON r.id = rr.reference_id
		 JOIN files f ON f.id = r.file_id
		 WHERE rr.target_symbol_id = ?
		 ORDER BY f.path, r.start_line, r.start_col`, symbolID)
	if err != nil {
		return nil, fmt.Errorf("references to: %w", err)
	}
	return locs, nil
}

// Callers returns call graph edges where the given symbol is the callee.
func (q *QueryBuilder) Callers(symbolID int64) ([]*store.CallEdge, error) {
	return q.store.CallersByCallee(symbolID)
}

// Callees returns call graph edges where the given symbol is the caller.
func (q *QueryBuilder) Callees(symbolID int64) ([]*store.CallEdge, error) {
	return q.store.CalleesByCaller(symbolID)
}

func (q *QueryBuilder) locations(query string, args ...any) ([]Location, error) {
	rows, err := q.store.DB().Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Location
	for rows.Next() {
		var l Location
		if err := rows.Scan(&l.File, &l.StartLine, &l.StartCol, &l.EndLine, &l.EndCol); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
