package store

// DataStore is the interface for index writes. Both Store (direct SQLite)
// and BatchedStore (in-memory buffering for parallel indexing) implement it,
// so the exporter does not know which one it is writing to.
type DataStore interface {
	// Inserts return the assigned ID. Resolution rows and call edges may
	// point at IDs returned by earlier inserts on the same DataStore.
	InsertSymbol(sym *Symbol) (int64, error)
	InsertFunctionParam(fp *FunctionParam) (int64, error)
	InsertScope(scope *Scope) (int64, error)
	InsertReference(ref *Reference) (int64, error)
	InsertResolvedReference(rr *ResolvedReference) (int64, error)
	InsertCallEdge(edge *CallEdge) (int64, error)

	SymbolsByName(name string) ([]*Symbol, error)
	SymbolsByFile(fileID int64) ([]*Symbol, error)
}

// Compile-time check: *Store satisfies DataStore.
var _ DataStore = (*Store)(nil)
