package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
)

// formatLocationsText formats CLILocation results as "file:line:col" lines.
func formatLocationsText(w io.Writer, locs []CLILocation) {
	for _, loc := range locs {
		fmt.Fprintf(w, "%s:%d:%d\n", loc.File, loc.StartLine, loc.StartCol)
	}
}

// formatSymbolsText formats CLISymbol results as aligned columns.
func formatSymbolsText(w io.Writer, syms []CLISymbol) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tKIND\tREFS\tFILE\tLINE")
	for _, s := range syms {
		name := s.Name
		if s.Signature != "" {
			name = s.Signature
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%d\n",
			s.ID, name, s.Kind, s.RefCount, s.File, s.StartLine)
	}
	tw.Flush()
}

// formatCallEdgesText formats CLICallEdge results as aligned columns.
func formatCallEdgesText(w io.Writer, edges []CLICallEdge) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CALLER\tCALLEE\tFILE\tLINE\tCOL")
	for _, e := range edges {
		caller := fmt.Sprintf("%s (#%d)", e.CallerName, e.CallerID)
		callee := fmt.Sprintf("%s (#%d)", e.CalleeName, e.CalleeID)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n",
			caller, callee, e.File, e.Line, e.Col)
	}
	tw.Flush()
}

// formatFilesText formats CLIFile results as aligned columns.
func formatFilesText(w io.Writer, files []CLIFile) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPATH\tLINES")
	for _, f := range files {
		fmt.Fprintf(tw, "%d\t%s\t%d\n", f.ID, f.Path, f.LineCount)
	}
	tw.Flush()
}

// formatSummaryText formats CLIProjectSummary as readable text.
func formatSummaryText(w io.Writer, summary CLIProjectSummary) {
	fmt.Fprintln(w, "Project Summary")
	fmt.Fprintln(w, "===============")
	fmt.Fprintf(w, "Files: %d\n", summary.FileCount)
	fmt.Fprintf(w, "Lines: %d\n", summary.LineCount)
	fmt.Fprintf(w, "Symbols: %d\n", summary.SymbolCount)
	fmt.Fprintln(w)

	if len(summary.KindCounts) > 0 {
		fmt.Fprintln(w, "Symbol Kinds:")
		kinds := make([]string, 0, len(summary.KindCounts))
		for kind := range summary.KindCounts {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			fmt.Fprintf(w, "  %s: %d\n", kind, summary.KindCounts[kind])
		}
		fmt.Fprintln(w)
	}

	if len(summary.TopSymbols) > 0 {
		fmt.Fprintln(w, "Top Symbols by References:")
		for _, sym := range summary.TopSymbols {
			fmt.Fprintf(w, "  %s (%s) - %d refs\n",
				sym.Name, sym.Kind, sym.RefCount)
		}
	}
}

// formatSymbolDetailText prints a symbol followed by its parameters and
// children.
func formatSymbolDetailText(w io.Writer, d CLISymbolDetail) {
	formatSymbolsText(w, []CLISymbol{d.Symbol})
	if d.Symbol.Doc != "" {
		fmt.Fprintln(w)
		for _, line := range strings.Split(d.Symbol.Doc, "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
	if len(d.Parameters) > 0 {
		fmt.Fprintln(w, "\nParameters:")
		for _, p := range d.Parameters {
			fmt.Fprintf(w, "  %d. %s (%s)\n", p.Ordinal, p.Name, p.Kind)
		}
	}
	if len(d.Children) > 0 {
		fmt.Fprintln(w, "\nChildren:")
		formatSymbolsText(w, d.Children)
	}
}

// formatScopesText prints a scope chain innermost first.
func formatScopesText(w io.Writer, scopes []CLIScope) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tSTART\tEND")
	for _, sc := range scopes {
		fmt.Fprintf(tw, "%d\t%s\t%d:%d\t%d:%d\n",
			sc.ID, sc.Kind, sc.StartLine, sc.StartCol, sc.EndLine, sc.EndCol)
	}
	tw.Flush()
}

// formatCallGraphText prints one line per node, indented by depth.
func formatCallGraphText(w io.Writer, g CLICallGraph) {
	for _, n := range g.Nodes {
		fmt.Fprintf(w, "%s%s (#%d) %s:%d\n",
			strings.Repeat("  ", n.Depth), n.Symbol.Name, n.Symbol.ID, n.Symbol.File, n.Symbol.StartLine)
	}
}

// formatHotspotsText formats CLIHotspot results as aligned columns.
func formatHotspotsText(w io.Writer, hs []CLIHotspot) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCALLERS\tCALLEES\tFILE")
	for _, h := range hs {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n",
			h.Symbol.Name, h.CallerCount, h.CalleeCount, h.Symbol.File)
	}
	tw.Flush()
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type. It writes to os.Stdout.
func outputResultText(result CLIResult) error {
	return writeResultText(os.Stdout, result)
}

func writeResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []CLILocation:
		formatLocationsText(w, v)
	case []CLISymbol:
		formatSymbolsText(w, v)
	case CLISymbol:
		formatSymbolsText(w, []CLISymbol{v})
	case []CLICallEdge:
		formatCallEdgesText(w, v)
	case []CLIFile:
		formatFilesText(w, v)
	case CLIProjectSummary:
		formatSummaryText(w, v)
	case CLISymbolDetail:
		formatSymbolDetailText(w, v)
	case []CLIScope:
		formatScopesText(w, v)
	case CLICallGraph:
		formatCallGraphText(w, v)
	case []CLIHotspot:
		formatHotspotsText(w, v)
	case []CLIDiagnostic:
		formatDiagnosticsText(w, v)
	case nil:
		// No output for nil results (e.g., symbol-at with no match).
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}

	if result.TotalCount != nil {
		count := *result.TotalCount
		shown := resultLen(result.Results)
		if shown < count {
			fmt.Fprintf(w, "\nShowing %d of %d results\n", shown, count)
		}
	}
	return nil
}

// resultLen returns the length of a result slice, or 1 for a single value.
func resultLen(v any) int {
	switch r := v.(type) {
	case []CLILocation:
		return len(r)
	case []CLISymbol:
		return len(r)
	case []CLICallEdge:
		return len(r)
	case []CLIFile:
		return len(r)
	case []CLIScope:
		return len(r)
	case []CLIHotspot:
		return len(r)
	case []CLIDiagnostic:
		return len(r)
	case nil:
		return 0
	default:
		return 1
	}
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
