package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/risor-io/risor/object"

	"github.com/jward/scarpetls/internal/store"
)

// Store host functions are read-only. Results are lists of maps with
// snake_case keys mirroring the column names.

func makeFilesFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("files", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("files", 0, len(args))
		}
		files, err := s.AllFiles()
		if err != nil {
			return object.Errorf("files: %v", err)
		}
		var results []object.Object
		for _, f := range files {
			results = append(results, object.NewMap(map[string]object.Object{
				"id":         object.NewInt(f.ID),
				"path":       object.NewString(f.Path),
				"language":   object.NewString(f.Language),
				"hash":       object.NewString(f.Hash),
				"line_count": object.NewInt(int64(f.LineCount)),
			}))
		}
		return listOrEmpty(results)
	})
}

func makeSymbolFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("symbol", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("symbol", 1, len(args))
		}
		id, err := toInt64(args[0])
		if err != nil {
			return object.Errorf("symbol: %v", err)
		}
		sym, queryErr := s.SymbolByID(id)
		if queryErr != nil {
			return object.Errorf("symbol: %v", queryErr)
		}
		if sym == nil {
			return object.Nil
		}
		return symbolToMap(sym)
	})
}

func makeSymbolsByNameFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("symbols_by_name", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("symbols_by_name", 1, len(args))
		}
		name, err := toString(args[0])
		if err != nil {
			return object.Errorf("symbols_by_name: %v", err)
		}
		syms, queryErr := s.SymbolsByName(name)
		if queryErr != nil {
			return object.Errorf("symbols_by_name: %v", queryErr)
		}
		return symbolsToList(syms)
	})
}

func makeSymbolsByFileFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("symbols_by_file", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("symbols_by_file", 1, len(args))
		}
		fileID, err := toInt64(args[0])
		if err != nil {
			return object.Errorf("symbols_by_file: %v", err)
		}
		syms, queryErr := s.SymbolsByFile(fileID)
		if queryErr != nil {
			return object.Errorf("symbols_by_file: %v", queryErr)
		}
		return symbolsToList(syms)
	})
}

func makeSymbolsByKindFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("symbols_by_kind", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("symbols_by_kind", 1, len(args))
		}
		kind, err := toString(args[0])
		if err != nil {
			return object.Errorf("symbols_by_kind: %v", err)
		}
		syms, queryErr := s.SymbolsByKind(kind)
		if queryErr != nil {
			return object.Errorf("symbols_by_kind: %v", queryErr)
		}
		return symbolsToList(syms)
	})
}

func makeReferencesToFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("references_to", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("references_to", 1, len(args))
		}
		symbolID, err := toInt64(args[0])
		if err != nil {
			return object.Errorf("references_to: %v", err)
		}
		refs, queryErr := s.ReferencesToSymbol(symbolID)
		if queryErr != nil {
			return object.Errorf("references_to: %v", queryErr)
		}
		return referencesToList(refs)
	})
}

func makeReferencesByFileFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("references_by_file", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("references_by_file", 1, len(args))
		}
		fileID, err := toInt64(args[0])
		if err != nil {
			return object.Errorf("references_by_file: %v", err)
		}
		refs, queryErr := s.ReferencesByFile(fileID)
		if queryErr != nil {
			return object.Errorf("references_by_file: %v", queryErr)
		}
		return referencesToList(refs)
	})
}

func makeScopesByFileFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("scopes_by_file", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("scopes_by_file", 1, len(args))
		}
		fileID, err := toInt64(args[0])
		if err != nil {
			return object.Errorf("scopes_by_file: %v", err)
		}
		scopes, queryErr := s.ScopesByFile(fileID)
		if queryErr != nil {
			return object.Errorf("scopes_by_file: %v", queryErr)
		}
		return scopesToList(scopes)
	})
}

func makeScopeChainFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("scope_chain", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("scope_chain", 1, len(args))
		}
		scopeID, err := toInt64(args[0])
		if err != nil {
			return object.Errorf("scope_chain: %v", err)
		}
		chain, queryErr := s.ScopeChain(scopeID)
		if queryErr != nil {
			return object.Errorf("scope_chain: %v", queryErr)
		}
		return scopesToList(chain)
	})
}

func makeFunctionParamsFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("function_params", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("function_params", 1, len(args))
		}
		symbolID, err := toInt64(args[0])
		if err != nil {
			return object.Errorf("function_params: %v", err)
		}
		params, queryErr := s.FunctionParams(symbolID)
		if queryErr != nil {
			return object.Errorf("function_params: %v", queryErr)
		}
		var results []object.Object
		for _, fp := range params {
			results = append(results, object.NewMap(map[string]object.Object{
				"id":        object.NewInt(fp.ID),
				"symbol_id": object.NewInt(fp.SymbolID),
				"name":      object.NewString(fp.Name),
				"ordinal":   object.NewInt(int64(fp.Ordinal)),
				"kind":      object.NewString(fp.Kind),
			}))
		}
		return listOrEmpty(results)
	})
}

// makeCallersFn creates "callers": the call edges pointing at a symbol.
//
// callers(symbol_id) → [{caller_symbol_id, callee_symbol_id, line, col}]
func makeCallersFn(s *store.Store) *object.Builtin {
	return makeEdgesFn("callers", s.CallersByCallee)
}

// makeCalleesFn creates "callees": the call edges leaving a symbol.
func makeCalleesFn(s *store.Store) *object.Builtin {
	return makeEdgesFn("callees", s.CalleesByCaller)
}

func makeEdgesFn(name string, query func(int64) ([]*store.CallEdge, error)) *object.Builtin {
	return object.NewBuiltin(name, func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError(name, 1, len(args))
		}
		symbolID, err := toInt64(args[0])
		if err != nil {
			return object.Errorf("%s: %v", name, err)
		}
		edges, queryErr := query(symbolID)
		if queryErr != nil {
			return object.Errorf("%s: %v", name, queryErr)
		}
		var results []object.Object
		for _, e := range edges {
			m := map[string]object.Object{
				"id":               object.NewInt(e.ID),
				"caller_symbol_id": object.NewInt(e.CallerSymbolID),
				"callee_symbol_id": object.NewInt(e.CalleeSymbolID),
				"line":             object.NewInt(int64(e.Line)),
				"col":              object.NewInt(int64(e.Col)),
			}
			if e.FileID != nil {
				m["file_id"] = object.NewInt(*e.FileID)
			}
			results = append(results, object.NewMap(m))
		}
		return listOrEmpty(results)
	})
}

// makeDBQueryFn creates a db_query bridge that executes read-only SQL.
// Returns a list of maps (column name → value).
func makeDBQueryFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("db_query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 {
			return object.Errorf("db_query: expected at least 1 argument (sql), got %d", len(args))
		}
		sqlStr, err := toString(args[0])
		if err != nil {
			return object.Errorf("db_query: %v", err)
		}

		trimmed := strings.TrimSpace(strings.ToUpper(sqlStr))
		if !strings.HasPrefix(trimmed, "SELECT") && !strings.HasPrefix(trimmed, "WITH") {
			return object.Errorf("db_query: only SELECT queries are allowed")
		}

		var queryArgs []any
		for _, arg := range args[1:] {
			switch v := arg.(type) {
			case *object.Int:
				queryArgs = append(queryArgs, v.Value())
			case *object.Float:
				queryArgs = append(queryArgs, v.Value())
			case *object.String:
				queryArgs = append(queryArgs, v.Value())
			case *object.Bool:
				queryArgs = append(queryArgs, v.Value())
			case *object.NilType:
				queryArgs = append(queryArgs, nil)
			default:
				queryArgs = append(queryArgs, fmt.Sprintf("%v", arg))
			}
		}

		rows, queryErr := s.DB().QueryContext(ctx, sqlStr, queryArgs...)
		if queryErr != nil {
			return object.Errorf("db_query: %v", queryErr)
		}
		defer rows.Close()

		cols, colErr := rows.Columns()
		if colErr != nil {
			return object.Errorf("db_query: columns: %v", colErr)
		}

		var results []object.Object
		for rows.Next() {
			values := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range values {
				ptrs[i] = &values[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return object.Errorf("db_query: scan: %v", err)
			}
			row := make(map[string]object.Object, len(cols))
			for i, col := range cols {
				row[col] = sqlValueToObject(values[i])
			}
			results = append(results, object.NewMap(row))
		}
		if err := rows.Err(); err != nil {
			return object.Errorf("db_query: rows: %v", err)
		}
		return listOrEmpty(results)
	})
}

// sqlValueToObject converts a database value to a Risor object.
func sqlValueToObject(v any) object.Object {
	if v == nil {
		return object.Nil
	}
	switch val := v.(type) {
	case int64:
		return object.NewInt(val)
	case float64:
		return object.NewFloat(val)
	case string:
		return object.NewString(val)
	case bool:
		return object.NewBool(val)
	case []byte:
		return object.NewString(string(val))
	default:
		return object.NewString(fmt.Sprintf("%v", val))
	}
}

func symbolToMap(sym *store.Symbol) *object.Map {
	m := map[string]object.Object{
		"id":         object.NewInt(sym.ID),
		"name":       object.NewString(sym.Name),
		"kind":       object.NewString(sym.Kind),
		"signature":  object.NewString(sym.Signature),
		"doc":        object.NewString(sym.Doc),
		"start_line": object.NewInt(int64(sym.StartLine)),
		"start_col":  object.NewInt(int64(sym.StartCol)),
		"end_line":   object.NewInt(int64(sym.EndLine)),
		"end_col":    object.NewInt(int64(sym.EndCol)),
	}
	if sym.FileID != nil {
		m["file_id"] = object.NewInt(*sym.FileID)
	}
	if sym.ParentSymbolID != nil {
		m["parent_symbol_id"] = object.NewInt(*sym.ParentSymbolID)
	}
	return object.NewMap(m)
}

// symbolsToList converts a slice of store.Symbol to a Risor list of maps.
func symbolsToList(syms []*store.Symbol) object.Object {
	var results []object.Object
	for _, sym := range syms {
		results = append(results, symbolToMap(sym))
	}
	return listOrEmpty(results)
}

func referencesToList(refs []*store.Reference) object.Object {
	var results []object.Object
	for _, r := range refs {
		m := map[string]object.Object{
			"id":         object.NewInt(r.ID),
			"file_id":    object.NewInt(r.FileID),
			"name":       object.NewString(r.Name),
			"context":    object.NewString(r.Context),
			"start_line": object.NewInt(int64(r.StartLine)),
			"start_col":  object.NewInt(int64(r.StartCol)),
			"end_line":   object.NewInt(int64(r.EndLine)),
			"end_col":    object.NewInt(int64(r.EndCol)),
		}
		if r.ScopeID != nil {
			m["scope_id"] = object.NewInt(*r.ScopeID)
		}
		results = append(results, object.NewMap(m))
	}
	return listOrEmpty(results)
}

func scopesToList(scopes []*store.Scope) object.Object {
	var results []object.Object
	for _, sc := range scopes {
		m := map[string]object.Object{
			"id":         object.NewInt(sc.ID),
			"file_id":    object.NewInt(sc.FileID),
			"kind":       object.NewString(sc.Kind),
			"start_line": object.NewInt(int64(sc.StartLine)),
			"start_col":  object.NewInt(int64(sc.StartCol)),
			"end_line":   object.NewInt(int64(sc.EndLine)),
			"end_col":    object.NewInt(int64(sc.EndCol)),
		}
		if sc.SymbolID != nil {
			m["symbol_id"] = object.NewInt(*sc.SymbolID)
		}
		if sc.ParentScopeID != nil {
			m["parent_scope_id"] = object.NewInt(*sc.ParentScopeID)
		}
		results = append(results, object.NewMap(m))
	}
	return listOrEmpty(results)
}

func toInt64(obj object.Object) (int64, error) {
	if i, ok := obj.(*object.Int); ok {
		return i.Value(), nil
	}
	if f, ok := obj.(*object.Float); ok {
		return int64(f.Value()), nil
	}
	return 0, fmt.Errorf("expected int, got %s", obj.Type())
}

func toString(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", fmt.Errorf("expected string, got %s", obj.Type())
}
