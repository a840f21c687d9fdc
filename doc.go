// Package scarpetls resolves symbols in Scarpet scripts, the scripting
// language of the Carpet mod.
//
// # Documents
//
// A [Document] is an immutable snapshot of one script: the parsed tree, its
// scope tables and the string literals classified as function references.
// Every query on a Document reads the same build, so a caller holding a
// *Document never sees a half-updated state.
//
//	doc := scarpetls.NewAnalyzer().Analyze("file:///app.sc", 1, src)
//	decl, err := doc.DefinitionAt(offset)
//	edits, err := doc.Rename(doc.Locate(offset), "new_name")
//
// A [Workspace] keeps the latest Document per URI for an editor session and
// replaces it with a single pointer swap on each change.
//
// # Index
//
// An [Engine] writes documents to a SQLite index so whole script trees can
// be queried without an editor:
//
//	e, err := scarpetls.New(".scarpetls/index.db")
//	if err != nil { ... }
//	defer e.Close()
//
//	err = e.IndexDirectory(ctx, "path/to/scripts")
//	q := e.Query()
//	locs, err := q.DefinitionAt("path/to/scripts/app.sc", 10, 5)
//
// The [QueryBuilder] answers position queries (DefinitionAt, ReferencesTo,
// SymbolAt), call graph queries (Callers, Callees, TransitiveCallers,
// TransitiveCallees) and discovery queries (Symbols, SearchSymbols, Files,
// UnusedFunctions, ProjectSummary).
//
// Each file is analysed on its own; names are never resolved across files.
package scarpetls
