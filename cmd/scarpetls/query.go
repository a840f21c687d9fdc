package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jward/scarpetls"
	"github.com/jward/scarpetls/internal/builtins"
	"github.com/jward/scarpetls/internal/store"
)

var (
	flagLimit  int
	flagOffset int
	flagSort   string
	flagOrder  string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the script index",
	Long:  "Run queries against an indexed script tree. All line and column numbers are 0-based; columns count UTF-16 code units.",
}

func init() {
	queryCmd.PersistentFlags().IntVar(&flagLimit, "limit", 50, "pagination limit (max 500)")
	queryCmd.PersistentFlags().IntVar(&flagOffset, "offset", 0, "pagination offset")
	queryCmd.PersistentFlags().StringVar(&flagSort, "sort", "", "sort field: name|kind|file|ref_count")
	queryCmd.PersistentFlags().StringVar(&flagOrder, "order", "asc", "sort order: asc|desc")

	queryCmd.AddCommand(symbolAtCmd)
	queryCmd.AddCommand(definitionCmd)
	queryCmd.AddCommand(referencesCmd)
	queryCmd.AddCommand(callersCmd)
	queryCmd.AddCommand(calleesCmd)
	queryCmd.AddCommand(symbolsCmd)
	queryCmd.AddCommand(searchCmd)
	queryCmd.AddCommand(filesCmd)
	queryCmd.AddCommand(summaryCmd)
	queryCmd.AddCommand(transitiveCallersCmd)
	queryCmd.AddCommand(transitiveCalleesCmd)
	queryCmd.AddCommand(unusedCmd)
	queryCmd.AddCommand(hotspotsCmd)
	queryCmd.AddCommand(symbolDetailCmd)
	queryCmd.AddCommand(scopeAtCmd)
}

// --- Helpers ---

// openStore opens the Store from the --db flag path (or default).
func openStore() (*store.Store, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	dbPath := resolveDBPath(findRepoRoot(cwd))

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s (run 'scarpetls index' first)", dbPath)
	}
	return store.NewStore(dbPath)
}

// newQueryBuilder wraps s with the configured built-in table, which the
// unused query needs to recognise callbacks.
func newQueryBuilder(s *store.Store) *scarpetls.QueryBuilder {
	var t *builtins.Table
	if cfg != nil && cfg.Builtins != "" {
		loaded, err := builtins.Load(cfg.Builtins)
		if err != nil {
			log.Warningf("loading built-ins %s: %v", cfg.Builtins, err)
		} else {
			t = loaded
		}
	}
	return scarpetls.NewQueryBuilder(s, t)
}

// resolveFilePath converts a file argument to an absolute path.
func resolveFilePath(file string) (string, error) {
	if filepath.IsAbs(file) {
		return file, nil
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("resolving file path %q: %w", file, err)
	}
	return abs, nil
}

// parseIntArg parses a positional argument as an integer with a clear error.
func parseIntArg(value, name string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative integer", name, value)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s %q: must be non-negative", name, value)
	}
	return n, nil
}

// parsePosition parses <file> <line> <col> positional arguments.
func parsePosition(args []string) (file string, line, col int, err error) {
	if file, err = resolveFilePath(args[0]); err != nil {
		return "", 0, 0, err
	}
	if line, err = parseIntArg(args[1], "line"); err != nil {
		return "", 0, 0, err
	}
	if col, err = parseIntArg(args[2], "col"); err != nil {
		return "", 0, 0, err
	}
	return file, line, col, nil
}

// resolveSymbolID resolves a symbol ID from either positional args
// (<file> <line> <col>) or the --symbol flag.
func resolveSymbolID(cmd *cobra.Command, args []string, qb *scarpetls.QueryBuilder) (int64, error) {
	symbolFlag, _ := cmd.Flags().GetInt64("symbol")
	if symbolFlag != 0 {
		return symbolFlag, nil
	}
	if len(args) < 3 {
		return 0, errors.New("requires either <file> <line> <col> arguments or --symbol flag")
	}

	file, line, col, err := parsePosition(args)
	if err != nil {
		return 0, err
	}
	sym, err := qb.SymbolAt(file, line, col)
	if err != nil {
		return 0, fmt.Errorf("looking up symbol: %w", err)
	}
	if sym == nil {
		return 0, fmt.Errorf("no symbol found at %s:%d:%d", file, line, col)
	}
	return sym.ID, nil
}

// outputResult marshals a CLIResult to stdout in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(result)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(CLIResult{Command: command, Error: err.Error()})
	return err
}

// buildPagination creates a Pagination from CLI flags.
func buildPagination() scarpetls.Pagination {
	return scarpetls.Pagination{Limit: flagLimit, Offset: flagOffset}
}

// buildSort creates a Sort from CLI flags.
func buildSort() scarpetls.Sort {
	field := scarpetls.SortByName
	switch flagSort {
	case "kind":
		field = scarpetls.SortByKind
	case "file":
		field = scarpetls.SortByFile
	case "ref_count":
		field = scarpetls.SortByRefCount
	}

	order := scarpetls.Asc
	if flagOrder == "desc" {
		order = scarpetls.Desc
	}
	return scarpetls.Sort{Field: field, Order: order}
}

// symbolResultToCLI converts a scarpetls.SymbolResult to a CLISymbol.
func symbolResultToCLI(sr scarpetls.SymbolResult) CLISymbol {
	return CLISymbol{
		ID:        sr.ID,
		Name:      sr.Name,
		Kind:      sr.Kind,
		Signature: sr.Signature,
		Doc:       sr.Doc,
		File:      sr.FilePath,
		StartLine: sr.StartLine,
		StartCol:  sr.StartCol,
		EndLine:   sr.EndLine,
		EndCol:    sr.EndCol,
		ParentID:  sr.ParentSymbolID,
		RefCount:  sr.RefCount,
	}
}

func symbolResultsToCLI(items []scarpetls.SymbolResult) []CLISymbol {
	out := make([]CLISymbol, len(items))
	for i, sr := range items {
		out[i] = symbolResultToCLI(sr)
	}
	return out
}

// locationToCLI converts a scarpetls.Location to a CLILocation.
func locationToCLI(loc scarpetls.Location, symbolID *int64) CLILocation {
	return CLILocation{
		File:      loc.File,
		StartLine: loc.StartLine,
		StartCol:  loc.StartCol,
		EndLine:   loc.EndLine,
		EndCol:    loc.EndCol,
		SymbolID:  symbolID,
	}
}

// lookupSymbolName fetches just the name of a symbol by ID.
// Returns empty string if not found.
func lookupSymbolName(s *store.Store, id int64) string {
	var name string
	err := s.DB().QueryRow("SELECT name FROM symbols WHERE id = ?", id).Scan(&name)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		log.Warningf("lookupSymbolName(%d): %v", id, err)
	}
	return name
}

// lookupFilePath fetches the file path for a file ID.
// Returns empty string if not found.
func lookupFilePath(s *store.Store, fileID *int64) string {
	if fileID == nil {
		return ""
	}
	var path string
	err := s.DB().QueryRow("SELECT path FROM files WHERE id = ?", *fileID).Scan(&path)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		log.Warningf("lookupFilePath(%d): %v", *fileID, err)
	}
	return path
}

func callEdgesToCLI(s *store.Store, edges []*store.CallEdge) []CLICallEdge {
	out := make([]CLICallEdge, len(edges))
	for i, e := range edges {
		out[i] = CLICallEdge{
			CallerID:   e.CallerSymbolID,
			CallerName: lookupSymbolName(s, e.CallerSymbolID),
			CalleeID:   e.CalleeSymbolID,
			CalleeName: lookupSymbolName(s, e.CalleeSymbolID),
			File:       lookupFilePath(s, e.FileID),
			Line:       e.Line,
			Col:        e.Col,
		}
	}
	return out
}

// --- Position-Based Commands ---

var symbolAtCmd = &cobra.Command{
	Use:   "symbol-at <file> <line> <col>",
	Short: "Find the innermost symbol at a position",
	Args:  cobra.ExactArgs(3),
	RunE:  runSymbolAt,
}

func runSymbolAt(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("symbol-at", err)
	}
	defer s.Close()

	file, line, col, err := parsePosition(args)
	if err != nil {
		return outputError("symbol-at", err)
	}

	sym, err := newQueryBuilder(s).SymbolAt(file, line, col)
	if err != nil {
		return outputError("symbol-at", err)
	}
	if sym == nil {
		return outputResult(CLIResult{Command: "symbol-at", Results: nil})
	}

	one := 1
	return outputResult(CLIResult{
		Command:    "symbol-at",
		Results:    symbolResultToCLI(*sym),
		TotalCount: &one,
	})
}

var definitionCmd = &cobra.Command{
	Use:   "definition <file> <line> <col>",
	Short: "Find the declaration of the name at a position",
	Args:  cobra.ExactArgs(3),
	RunE:  runDefinition,
}

func runDefinition(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("definition", err)
	}
	defer s.Close()

	file, line, col, err := parsePosition(args)
	if err != nil {
		return outputError("definition", err)
	}

	qb := newQueryBuilder(s)
	locs, err := qb.DefinitionAt(file, line, col)
	if err != nil {
		return outputError("definition", err)
	}

	cliLocs := make([]CLILocation, len(locs))
	for i, loc := range locs {
		var symID *int64
		if sym, err := qb.SymbolAt(loc.File, loc.StartLine, loc.StartCol); err == nil && sym != nil {
			symID = &sym.ID
		}
		cliLocs[i] = locationToCLI(loc, symID)
	}

	defCount := len(cliLocs)
	return outputResult(CLIResult{
		Command:    "definition",
		Results:    cliLocs,
		TotalCount: &defCount,
	})
}

// --- Symbol ID or Position Commands ---

var referencesCmd = &cobra.Command{
	Use:   "references [<file> <line> <col>]",
	Short: "Find all references to a symbol",
	Long:  "Accepts either <file> <line> <col> positional args or --symbol <id>.",
	Args:  cobra.MaximumNArgs(3),
	RunE:  runReferences,
}

func init() {
	referencesCmd.Flags().Int64("symbol", 0, "symbol ID to query")
}

func runReferences(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("references", err)
	}
	defer s.Close()

	qb := newQueryBuilder(s)
	symID, err := resolveSymbolID(cmd, args, qb)
	if err != nil {
		return outputError("references", err)
	}

	locs, err := qb.ReferencesTo(symID)
	if err != nil {
		return outputError("references", err)
	}

	cliLocs := make([]CLILocation, len(locs))
	for i, loc := range locs {
		cliLocs[i] = locationToCLI(loc, &symID)
	}

	refCount := len(cliLocs)
	return outputResult(CLIResult{
		Command:    "references",
		Results:    cliLocs,
		TotalCount: &refCount,
	})
}

var callersCmd = &cobra.Command{
	Use:   "callers [<file> <line> <col>]",
	Short: "Find callers of a function",
	Long:  "Accepts either <file> <line> <col> positional args or --symbol <id>. Top-level calls are attributed to the script symbol.",
	Args:  cobra.MaximumNArgs(3),
	RunE:  runCallers,
}

func init() {
	callersCmd.Flags().Int64("symbol", 0, "symbol ID to query")
}

func runCallers(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("callers", err)
	}
	defer s.Close()

	qb := newQueryBuilder(s)
	symID, err := resolveSymbolID(cmd, args, qb)
	if err != nil {
		return outputError("callers", err)
	}

	edges, err := qb.Callers(symID)
	if err != nil {
		return outputError("callers", err)
	}

	cliEdges := callEdgesToCLI(s, edges)
	callerCount := len(cliEdges)
	return outputResult(CLIResult{
		Command:    "callers",
		Results:    cliEdges,
		TotalCount: &callerCount,
	})
}

var calleesCmd = &cobra.Command{
	Use:   "callees [<file> <line> <col>]",
	Short: "Find functions called by a function",
	Long:  "Accepts either <file> <line> <col> positional args or --symbol <id>.",
	Args:  cobra.MaximumNArgs(3),
	RunE:  runCallees,
}

func init() {
	calleesCmd.Flags().Int64("symbol", 0, "symbol ID to query")
}

func runCallees(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("callees", err)
	}
	defer s.Close()

	qb := newQueryBuilder(s)
	symID, err := resolveSymbolID(cmd, args, qb)
	if err != nil {
		return outputError("callees", err)
	}

	edges, err := qb.Callees(symID)
	if err != nil {
		return outputError("callees", err)
	}

	cliEdges := callEdgesToCLI(s, edges)
	calleeCount := len(cliEdges)
	return outputResult(CLIResult{
		Command:    "callees",
		Results:    cliEdges,
		TotalCount: &calleeCount,
	})
}
