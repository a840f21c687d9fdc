package main

import (
	"github.com/spf13/cobra"

	"github.com/jward/scarpetls"
)

// --- Graph Analysis Commands ---

var transitiveCallersCmd = &cobra.Command{
	Use:   "transitive-callers [<file> <line> <col>]",
	Short: "Find all transitive callers of a function",
	Long:  "Returns the transitive call graph of callers up to --max-depth.\nAccepts either <file> <line> <col> positional args or --symbol <id>.",
	Args:  cobra.MaximumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTransitive(cmd, args, "transitive-callers", (*scarpetls.QueryBuilder).TransitiveCallers)
	},
}

var transitiveCalleesCmd = &cobra.Command{
	Use:   "transitive-callees [<file> <line> <col>]",
	Short: "Find all transitive callees of a function",
	Long:  "Returns the transitive call graph of callees up to --max-depth.\nAccepts either <file> <line> <col> positional args or --symbol <id>.",
	Args:  cobra.MaximumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTransitive(cmd, args, "transitive-callees", (*scarpetls.QueryBuilder).TransitiveCallees)
	},
}

var unusedCmd = &cobra.Command{
	Use:   "unused",
	Short: "List functions nothing calls",
	Long:  "Lists user functions with no call and no function-string reference. Event callbacks such as __on_tick are never reported.",
	Args:  cobra.NoArgs,
	RunE:  runUnused,
}

var hotspotsCmd = &cobra.Command{
	Use:   "hotspots",
	Short: "Show most-called functions with fan-in and fan-out",
	Args:  cobra.NoArgs,
	RunE:  runHotspots,
}

func init() {
	transitiveCallersCmd.Flags().Int64("symbol", 0, "symbol ID to query")
	transitiveCallersCmd.Flags().Int("max-depth", 5, "maximum traversal depth (0-100)")

	transitiveCalleesCmd.Flags().Int64("symbol", 0, "symbol ID to query")
	transitiveCalleesCmd.Flags().Int("max-depth", 5, "maximum traversal depth (0-100)")

	unusedCmd.Flags().String("path-prefix", "", "filter by file path prefix")
	unusedCmd.Flags().String("file", "", "filter by file path")

	hotspotsCmd.Flags().Int("top", 10, "number of top hotspots to return")
}

type transitiveFunc func(q *scarpetls.QueryBuilder, symbolID int64, maxDepth int) (*scarpetls.CallGraph, error)

func runTransitive(cmd *cobra.Command, args []string, command string, walk transitiveFunc) error {
	s, err := openStore()
	if err != nil {
		return outputError(command, err)
	}
	defer s.Close()

	qb := newQueryBuilder(s)
	symID, err := resolveSymbolID(cmd, args, qb)
	if err != nil {
		return outputError(command, err)
	}

	maxDepth, _ := cmd.Flags().GetInt("max-depth")
	graph, err := walk(qb, symID, maxDepth)
	if err != nil {
		return outputError(command, err)
	}
	if graph == nil {
		return outputResult(CLIResult{Command: command, Results: nil})
	}

	one := 1
	return outputResult(CLIResult{
		Command:    command,
		Results:    callGraphToCLI(graph),
		TotalCount: &one,
	})
}

func callGraphToCLI(g *scarpetls.CallGraph) CLICallGraph {
	nodes := make([]CLICallGraphNode, len(g.Nodes))
	for i, n := range g.Nodes {
		nodes[i] = CLICallGraphNode{Symbol: symbolResultToCLI(n.Symbol), Depth: n.Depth}
	}
	edges := make([]CLICallGraphEdge, len(g.Edges))
	for i, e := range g.Edges {
		edges[i] = CLICallGraphEdge{
			CallerID: e.CallerID,
			CalleeID: e.CalleeID,
			File:     e.File,
			Line:     e.Line,
			Col:      e.Col,
		}
	}
	return CLICallGraph{Root: g.Root, Nodes: nodes, Edges: edges, Depth: g.Depth}
}

func runUnused(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("unused", err)
	}
	defer s.Close()

	filter := scarpetls.SymbolFilter{}
	if prefix, _ := cmd.Flags().GetString("path-prefix"); prefix != "" {
		abs, err := resolveFilePath(prefix)
		if err != nil {
			return outputError("unused", err)
		}
		filter.PathPrefix = &abs
	}
	if file, _ := cmd.Flags().GetString("file"); file != "" {
		id, err := fileFilter(s, file)
		if err != nil {
			return outputError("unused", err)
		}
		filter.FileID = id
	}

	result, err := newQueryBuilder(s).UnusedFunctions(filter, buildSort(), buildPagination())
	if err != nil {
		return outputError("unused", err)
	}

	return outputResult(CLIResult{
		Command:    "unused",
		Results:    symbolResultsToCLI(result.Items),
		TotalCount: &result.TotalCount,
	})
}

func runHotspots(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("hotspots", err)
	}
	defer s.Close()

	topN, _ := cmd.Flags().GetInt("top")
	results, err := newQueryBuilder(s).Hotspots(topN)
	if err != nil {
		return outputError("hotspots", err)
	}

	cliHotspots := make([]CLIHotspot, len(results))
	for i, h := range results {
		cliHotspots[i] = CLIHotspot{
			Symbol:      symbolResultToCLI(h.Symbol),
			CallerCount: h.CallerCount,
			CalleeCount: h.CalleeCount,
		}
	}

	total := len(cliHotspots)
	return outputResult(CLIResult{
		Command:    "hotspots",
		Results:    cliHotspots,
		TotalCount: &total,
	})
}
