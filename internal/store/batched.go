package store

import "sync"

// BatchedStore buffers index inserts in memory using fake (negative) IDs.
// It implements DataStore so the exporter can write to it without knowing
// whether it is hitting SQLite or an in-memory buffer.
//
// Thread safety: the mutex protects fake ID allocation and slice appends.
// Read queries pass through to the underlying Store, which is safe for
// concurrent reads.
type BatchedStore struct {
	store *Store
	mu    sync.Mutex

	Symbols            []Symbol
	FunctionParams     []FunctionParam
	Scopes             []Scope
	References         []Reference
	ResolvedReferences []ResolvedReference
	CallEdges          []CallEdge

	nextFakeID int64 // starts at -1, decrements
}

// Compile-time check: *BatchedStore satisfies DataStore.
var _ DataStore = (*BatchedStore)(nil)

// NewBatchedStore creates a BatchedStore backed by the given Store for read queries.
func NewBatchedStore(s *Store) *BatchedStore {
	return &BatchedStore{
		store:      s,
		nextFakeID: -1,
	}
}

func (b *BatchedStore) allocFakeID() int64 {
	id := b.nextFakeID
	b.nextFakeID--
	return id
}

func (b *BatchedStore) InsertSymbol(sym *Symbol) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sym.ID = b.allocFakeID()
	b.Symbols = append(b.Symbols, *sym)
	return sym.ID, nil
}

func (b *BatchedStore) InsertFunctionParam(fp *FunctionParam) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fp.ID = b.allocFakeID()
	b.FunctionParams = append(b.FunctionParams, *fp)
	return fp.ID, nil
}

func (b *BatchedStore) InsertScope(scope *Scope) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	scope.ID = b.allocFakeID()
	b.Scopes = append(b.Scopes, *scope)
	return scope.ID, nil
}

func (b *BatchedStore) InsertReference(ref *Reference) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ref.ID = b.allocFakeID()
	b.References = append(b.References, *ref)
	return ref.ID, nil
}

func (b *BatchedStore) InsertResolvedReference(rr *ResolvedReference) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rr.ID = b.allocFakeID()
	b.ResolvedReferences = append(b.ResolvedReferences, *rr)
	return rr.ID, nil
}

func (b *BatchedStore) InsertCallEdge(edge *CallEdge) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	edge.ID = b.allocFakeID()
	b.CallEdges = append(b.CallEdges, *edge)
	return edge.ID, nil
}

// SymbolsByName passes through to the underlying Store.
func (b *BatchedStore) SymbolsByName(name string) ([]*Symbol, error) {
	return b.store.SymbolsByName(name)
}

// SymbolsByFile returns symbols for a file, merging any buffered (not yet
// committed) symbols with those already in the database.
func (b *BatchedStore) SymbolsByFile(fileID int64) ([]*Symbol, error) {
	dbSyms, err := b.store.SymbolsByFile(fileID)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.Symbols {
		if b.Symbols[i].FileID != nil && *b.Symbols[i].FileID == fileID {
			dbSyms = append(dbSyms, &b.Symbols[i])
		}
	}
	return dbSyms, nil
}
