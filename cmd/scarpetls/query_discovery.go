package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jward/scarpetls"
	"github.com/jward/scarpetls/internal/store"
)

// --- Discovery / Search Commands ---

var (
	flagKind       string
	flagFile       string
	flagPathPrefix string
	flagPrefix     string
	flagTop        int
)

var symbolsCmd = &cobra.Command{
	Use:   "symbols",
	Short: "List symbols with optional filters",
	RunE:  runSymbols,
}

func init() {
	symbolsCmd.Flags().StringVar(&flagKind, "kind", "", "filter by symbol kind (function, variable, global, parameter, rest, outer, script)")
	symbolsCmd.Flags().StringVar(&flagFile, "file", "", "filter by file path")
	symbolsCmd.Flags().StringVar(&flagPathPrefix, "path-prefix", "", "filter by file path prefix")

	searchCmd.Flags().String("kind", "", "filter by symbol kind")

	filesCmd.Flags().StringVar(&flagPrefix, "prefix", "", "filter by path prefix")

	summaryCmd.Flags().IntVar(&flagTop, "top", 10, "number of top symbols to include")
}

// fileFilter resolves a --file flag to the indexed file's ID.
func fileFilter(s *store.Store, file string) (*int64, error) {
	resolved, err := resolveFilePath(file)
	if err != nil {
		return nil, err
	}
	f, err := s.FileByPath(resolved)
	if err != nil {
		return nil, fmt.Errorf("looking up file %q: %w", file, err)
	}
	if f == nil {
		return nil, fmt.Errorf("file not found: %s", file)
	}
	return &f.ID, nil
}

func runSymbols(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("symbols", err)
	}
	defer s.Close()

	filter := scarpetls.SymbolFilter{}
	if flagKind != "" {
		filter.Kinds = []string{flagKind}
	}
	if flagPathPrefix != "" {
		prefix, err := resolveFilePath(flagPathPrefix)
		if err != nil {
			return outputError("symbols", err)
		}
		filter.PathPrefix = &prefix
	}
	if flagFile != "" {
		id, err := fileFilter(s, flagFile)
		if err != nil {
			return outputError("symbols", err)
		}
		filter.FileID = id
	}

	result, err := newQueryBuilder(s).Symbols(filter, buildSort(), buildPagination())
	if err != nil {
		return outputError("symbols", err)
	}

	return outputResult(CLIResult{
		Command:    "symbols",
		Results:    symbolResultsToCLI(result.Items),
		TotalCount: &result.TotalCount,
	})
}

var searchCmd = &cobra.Command{
	Use:   "search <pattern>",
	Short: "Search symbols by glob pattern",
	Long:  "Search for symbols matching a glob pattern. Use * as wildcard (e.g. '__on_*' or '*_count').",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("search", err)
	}
	defer s.Close()

	filter := scarpetls.SymbolFilter{}
	if kind, _ := cmd.Flags().GetString("kind"); kind != "" {
		filter.Kinds = []string{kind}
	}

	result, err := newQueryBuilder(s).SearchSymbols(args[0], filter, buildSort(), buildPagination())
	if err != nil {
		return outputError("search", err)
	}

	return outputResult(CLIResult{
		Command:    "search",
		Results:    symbolResultsToCLI(result.Items),
		TotalCount: &result.TotalCount,
	})
}

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List indexed files",
	RunE:  runFiles,
}

func runFiles(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("files", err)
	}
	defer s.Close()

	prefix := flagPrefix
	if prefix != "" {
		if prefix, err = resolveFilePath(prefix); err != nil {
			return outputError("files", err)
		}
	}

	result, err := newQueryBuilder(s).Files(prefix, buildSort(), buildPagination())
	if err != nil {
		return outputError("files", err)
	}

	cliFiles := make([]CLIFile, len(result.Items))
	for i, f := range result.Items {
		cliFiles[i] = CLIFile{
			ID:        f.ID,
			Path:      f.Path,
			Language:  f.Language,
			LineCount: f.LineCount,
		}
	}

	return outputResult(CLIResult{
		Command:    "files",
		Results:    cliFiles,
		TotalCount: &result.TotalCount,
	})
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show totals and the most referenced symbols",
	RunE:  runSummary,
}

func runSummary(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("summary", err)
	}
	defer s.Close()

	summary, err := newQueryBuilder(s).ProjectSummary(flagTop)
	if err != nil {
		return outputError("summary", err)
	}

	return outputResult(CLIResult{
		Command: "summary",
		Results: CLIProjectSummary{
			FileCount:   summary.FileCount,
			LineCount:   summary.LineCount,
			SymbolCount: summary.SymbolCount,
			KindCounts:  summary.KindCounts,
			TopSymbols:  symbolResultsToCLI(summary.TopSymbols),
		},
	})
}
