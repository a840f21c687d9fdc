package scarpetls

import "github.com/jward/scarpetls/internal/store"

// Public aliases for the index types returned by the QueryBuilder.

type Store = store.Store
type Symbol = store.Symbol
type File = store.File
type Scope = store.Scope
type CallEdge = store.CallEdge
type FunctionParam = store.FunctionParam
type Reference = store.Reference
