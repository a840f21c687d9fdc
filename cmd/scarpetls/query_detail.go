package main

import (
	"github.com/spf13/cobra"

	"github.com/jward/scarpetls"
)

// --- Detail Commands ---

var symbolDetailCmd = &cobra.Command{
	Use:   "symbol-detail [<file> <line> <col>]",
	Short: "Get detailed metadata for a symbol",
	Long:  "Returns symbol info plus its parameters and the symbols declared directly under it.\nAccepts either <file> <line> <col> positional args or --symbol <id>.",
	Args:  cobra.MaximumNArgs(3),
	RunE:  runSymbolDetail,
}

func init() {
	symbolDetailCmd.Flags().Int64("symbol", 0, "symbol ID to query")
}

func runSymbolDetail(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("symbol-detail", err)
	}
	defer s.Close()

	qb := newQueryBuilder(s)
	symID, err := resolveSymbolID(cmd, args, qb)
	if err != nil {
		return outputError("symbol-detail", err)
	}

	detail, err := qb.SymbolDetail(symID)
	if err != nil {
		return outputError("symbol-detail", err)
	}
	if detail == nil {
		return outputResult(CLIResult{Command: "symbol-detail", Results: nil})
	}

	one := 1
	return outputResult(CLIResult{
		Command:    "symbol-detail",
		Results:    symbolDetailToCLI(detail),
		TotalCount: &one,
	})
}

func symbolDetailToCLI(d *scarpetls.SymbolDetail) CLISymbolDetail {
	params := make([]CLIFunctionParam, len(d.Parameters))
	for i, p := range d.Parameters {
		params[i] = CLIFunctionParam{Name: p.Name, Ordinal: p.Ordinal, Kind: p.Kind}
	}
	return CLISymbolDetail{
		Symbol:     symbolResultToCLI(d.Symbol),
		Parameters: params,
		Children:   symbolResultsToCLI(d.Children),
	}
}

var scopeAtCmd = &cobra.Command{
	Use:   "scope-at <file> <line> <col>",
	Short: "Get the scope chain at a position",
	Long:  "Returns scopes from innermost to outermost at the given position.\nLine and col are 0-based.",
	Args:  cobra.ExactArgs(3),
	RunE:  runScopeAt,
}

func runScopeAt(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("scope-at", err)
	}
	defer s.Close()

	file, line, col, err := parsePosition(args)
	if err != nil {
		return outputError("scope-at", err)
	}

	scopes, err := newQueryBuilder(s).ScopeAt(file, line, col)
	if err != nil {
		return outputError("scope-at", err)
	}

	cliScopes := make([]CLIScope, len(scopes))
	for i, sc := range scopes {
		cliScopes[i] = CLIScope{
			ID:        sc.ID,
			Kind:      sc.Kind,
			StartLine: sc.StartLine,
			StartCol:  sc.StartCol,
			EndLine:   sc.EndLine,
			EndCol:    sc.EndCol,
			SymbolID:  sc.SymbolID,
		}
	}

	total := len(cliScopes)
	return outputResult(CLIResult{
		Command:    "scope-at",
		Results:    cliScopes,
		TotalCount: &total,
	})
}
