package scarpetls

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/jward/scarpetls/internal/store"
)

// --- Common Types ---

// Pagination controls offset+limit paging on list/search results.
type Pagination struct {
	Offset int // skip this many results (default 0)
	Limit  int // max results to return (default 50, max 500)
}

const (
	defaultLimit = 50
	maxLimit     = 500
)

// normalize returns a Pagination with defaults applied and bounds enforced.
func (p Pagination) normalize() Pagination {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}

// SortField specifies how to order results.
type SortField string

const (
	SortByName     SortField = "name"
	SortByKind     SortField = "kind"
	SortByFile     SortField = "file"
	SortByRefCount SortField = "ref_count"
)

// SortOrder specifies ascending or descending.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// Sort controls result ordering.
type Sort struct {
	Field SortField
	Order SortOrder
}

// SymbolResult extends Symbol with computed fields useful for discovery.
type SymbolResult struct {
	store.Symbol
	FilePath string // resolved file path
	RefCount int    // resolved uses, declarations excluded
}

// PagedResult wraps a page of results with total count for pagination.
type PagedResult[T any] struct {
	Items      []T
	TotalCount int // total matching results (before pagination)
}

// SymbolFilter specifies which symbols to include.
type SymbolFilter struct {
	Kinds      []string // match any of these kinds
	FileID     *int64   // restrict to a single file
	ParentID   *int64   // restrict to direct children of this symbol
	PathPrefix *string  // restrict to symbols in files under this path
}

// --- Internal Helpers ---

// refCountExpr counts the resolved references to s that are uses rather
// than the declaration itself.
const refCountExpr = `(SELECT COUNT(*) FROM resolved_references rr
	JOIN references_ r ON r.id = rr.reference_id
	WHERE rr.target_symbol_id = s.id AND r.context != 'declaration')`

// symbolResultSelect is the column list scanSymbolResult expects.
func symbolResultSelect() string {
	return fmt.Sprintf(`%s, COALESCE(f.path, '') AS file_path, %s AS ref_count`,
		prefixSymbolCols("s"), refCountExpr)
}

// normalizePathPrefix ensures a path prefix ends with "/" for correct LIKE matching.
// "scripts/shops" -> "scripts/shops/" to prevent matching "scripts/shops_old/".
func normalizePathPrefix(prefix string) string {
	if prefix == "" {
		return ""
	}
	if !strings.HasSuffix(prefix, "/") {
		return prefix + "/"
	}
	return prefix
}

// symbolSortColumn returns the SQL ORDER BY expression for symbol queries.
// Falls back to "s.name" for unknown fields.
func symbolSortColumn(field SortField) string {
	switch field {
	case SortByName:
		return "s.name"
	case SortByKind:
		return "s.kind"
	case SortByFile:
		return "f.path"
	case SortByRefCount:
		return "ref_count"
	default:
		return "s.name"
	}
}

// sortDirection returns "ASC" or "DESC".
func sortDirection(order SortOrder) string {
	if order == Desc {
		return "DESC"
	}
	return "ASC"
}

// filterClauses turns a SymbolFilter into WHERE conditions over symbols s
// joined with files f.
func filterClauses(filter SymbolFilter) ([]string, []any) {
	var where []string
	var args []any

	if len(filter.Kinds) > 0 {
		where = append(where, "s.kind IN ("+placeholders(len(filter.Kinds))+")")
		for _, k := range filter.Kinds {
			args = append(args, k)
		}
	}
	if filter.FileID != nil {
		where = append(where, "s.file_id = ?")
		args = append(args, *filter.FileID)
	}
	if filter.ParentID != nil {
		where = append(where, "s.parent_symbol_id = ?")
		args = append(args, *filter.ParentID)
	}
	if filter.PathPrefix != nil {
		prefix := normalizePathPrefix(*filter.PathPrefix)
		if prefix != "" {
			where = append(where, "f.path LIKE ? ESCAPE '\\'")
			args = append(args, escapeLike(prefix)+"%")
		}
	}
	return where, args
}

func placeholders(n int) string {
	return strings.Repeat("?,", n-1) + "?"
}

// pagedSymbols counts and loads one page of symbols matching where.
func (q *QueryBuilder) pagedSymbols(where []string, args []any, sort Sort, page Pagination) (*PagedResult[SymbolResult], error) {
	page = page.normalize()

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	countSQL := `SELECT COUNT(*) FROM symbols s LEFT JOIN files f ON s.file_id = f.id ` + whereClause
	var totalCount int
	if err := q.store.DB().QueryRow(countSQL, args...).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("count: %w", err)
	}

	dataSQL := fmt.Sprintf(
		`SELECT %s
		 FROM symbols s
		 LEFT JOIN files f ON s.file_id = f.id
		 %s
		 ORDER BY %s %s, s.id
		 LIMIT ? OFFSET ?`,
		symbolResultSelect(), whereClause, symbolSortColumn(sort.Field), sortDirection(sort.Order),
	)
	dataArgs := append(append([]any{}, args...), page.Limit, page.Offset)

	items, err := q.querySymbolResults(dataSQL, dataArgs...)
	if err != nil {
		return nil, err
	}
	return &PagedResult[SymbolResult]{Items: items, TotalCount: totalCount}, nil
}

func (q *QueryBuilder) querySymbolResults(query string, args ...any) ([]SymbolResult, error) {
	rows, err := q.store.DB().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	items := []SymbolResult{}
	for rows.Next() {
		sr, err := scanSymbolResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		items = append(items, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return items, nil
}

// --- Enumeration Endpoints ---

// Symbols is the primary listing/filtering endpoint. All filter fields are optional.
func (q *QueryBuilder) Symbols(filter SymbolFilter, sort Sort, page Pagination) (*PagedResult[SymbolResult], error) {
	where, args := filterClauses(filter)
	res, err := q.pagedSymbols(where, args, sort, page)
	if err != nil {
		return nil, fmt.Errorf("symbols: %w", err)
	}
	return res, nil
}

// Files lists indexed files under pathPrefix, ordered by path.
func (q *QueryBuilder) Files(pathPrefix string, sort Sort, page Pagination) (*PagedResult[store.File], error) {
	page = page.normalize()

	whereClause := ""
	var args []any
	if prefix := normalizePathPrefix(pathPrefix); prefix != "" {
		whereClause = "WHERE path LIKE ? ESCAPE '\\'"
		args = append(args, escapeLike(prefix)+"%")
	}

	var totalCount int
	if err := q.store.DB().QueryRow("SELECT COUNT(*) FROM files "+whereClause, args...).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("files: count: %w", err)
	}

	dataSQL := fmt.Sprintf(
		`SELECT id, path, language, hash, line_count, last_indexed FROM files %s ORDER BY path %s LIMIT ? OFFSET ?`,
		whereClause, sortDirection(sort.Order),
	)
	dataArgs := append(append([]any{}, args...), page.Limit, page.Offset)

	rows, err := q.store.DB().Query(dataSQL, dataArgs...)
	if err != nil {
		return nil, fmt.Errorf("files: query: %w", err)
	}
	defer rows.Close()

	items := []store.File{}
	for rows.Next() {
		var f store.File
		if err := rows.Scan(&f.ID, &f.Path, &f.Language, &f.Hash, &f.LineCount, &f.LastIndexed); err != nil {
			return nil, fmt.Errorf("files: scan: %w", err)
		}
		items = append(items, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("files: rows: %w", err)
	}

	return &PagedResult[store.File]{Items: items, TotalCount: totalCount}, nil
}

// --- Search ---

// SearchSymbols performs glob-style search on symbol names.
// '*' is the wildcard (mapped to SQL '%').
func (q *QueryBuilder) SearchSymbols(pattern string, filter SymbolFilter, sort Sort, page Pagination) (*PagedResult[SymbolResult], error) {
	where, args := filterClauses(filter)

	// Pattern matching: escape literal % and _ first, then convert * to %
	if pattern != "" && pattern != "*" {
		likePattern := strings.ReplaceAll(escapeLike(pattern), "*", "%")
		where = append([]string{"s.name LIKE ? ESCAPE '\\'"}, where...)
		args = append([]any{likePattern}, args...)
	}

	res, err := q.pagedSymbols(where, args, sort, page)
	if err != nil {
		return nil, fmt.Errorf("search symbols: %w", err)
	}
	return res, nil
}

// --- Digest Endpoints ---

// ProjectSummary provides a high-level overview of the indexed scripts.
type ProjectSummary struct {
	FileCount   int
	LineCount   int
	SymbolCount int
	KindCounts  map[string]int
	TopSymbols  []SymbolResult
}

// ProjectSummary returns file, line and symbol totals, a per-kind
// breakdown, and the topN most-used functions and globals.
func (q *QueryBuilder) ProjectSummary(topN int) (*ProjectSummary, error) {
	summary := &ProjectSummary{KindCounts: make(map[string]int)}

	err := q.store.DB().QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(line_count), 0) FROM files`,
	).Scan(&summary.FileCount, &summary.LineCount)
	if err != nil {
		return nil, fmt.Errorf("project summary: files: %w", err)
	}

	kindRows, err := q.store.DB().Query(`SELECT kind, COUNT(*) FROM symbols GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("project summary: kind counts: %w", err)
	}
	defer kindRows.Close()
	for kindRows.Next() {
		var kind string
		var count int
		if err := kindRows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("project summary: scan kind: %w", err)
		}
		summary.KindCounts[kind] = count
		summary.SymbolCount += count
	}
	if err := kindRows.Err(); err != nil {
		return nil, fmt.Errorf("project summary: kind rows: %w", err)
	}

	summary.TopSymbols = []SymbolResult{}
	if topN > 0 {
		topSQL := fmt.Sprintf(
			`SELECT %s
			 FROM symbols s
			 LEFT JOIN files f ON s.file_id = f.id
			 WHERE s.kind IN ('function', 'global') AND %s > 0
			 ORDER BY ref_count DESC, s.name
			 LIMIT ?`,
			symbolResultSelect(), refCountExpr,
		)
		top, err := q.querySymbolResults(topSQL, topN)
		if err != nil {
			return nil, fmt.Errorf("project summary: top symbols: %w", err)
		}
		summary.TopSymbols = top
	}

	return summary, nil
}

// --- Scan Helpers ---

// prefixSymbolCols returns the SymbolCols with a table prefix applied.
func prefixSymbolCols(prefix string) string {
	cols := []string{
		"id", "file_id", "name", "kind", "signature", "doc",
		"start_line", "start_col", "end_line", "end_col", "parent_symbol_id",
	}
	prefixed := make([]string, len(cols))
	for i, c := range cols {
		prefixed[i] = prefix + "." + c
	}
	return strings.Join(prefixed, ", ")
}

type scanner interface {
	Scan(dest ...any) error
}

// scanSymbolResult scans a row selected with symbolResultSelect.
func scanSymbolResult(row scanner) (SymbolResult, error) {
	var sr SymbolResult
	var sig, doc sql.NullString
	err := row.Scan(
		&sr.ID, &sr.FileID, &sr.Name, &sr.Kind, &sig, &doc,
		&sr.StartLine, &sr.StartCol, &sr.EndLine, &sr.EndCol,
		&sr.ParentSymbolID,
		&sr.FilePath, &sr.RefCount,
	)
	if err != nil {
		return sr, err
	}
	sr.Signature = sig.String
	sr.Doc = doc.String
	return sr, nil
}

// escapeLike escapes SQL LIKE special characters (% and _) with backslash.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
