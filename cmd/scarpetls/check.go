package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jward/scarpetls"
	"github.com/jward/scarpetls/internal/syntax"
)

var flagNoColor bool

// errCheckFailed is returned when any checked file has an error diagnostic.
var errCheckFailed = errors.New("check failed")

var checkCmd = &cobra.Command{
	Use:   "check <file|dir>...",
	Short: "Report diagnostics for scripts",
	Long:  "Parses and analyses each script and prints its diagnostics. Directories are searched for files with the configured extensions. Exits non-zero when any error is reported.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&flagNoColor, "no-color", false, "disable colored output")
}

func runCheck(cmd *cobra.Command, args []string) error {
	if flagNoColor {
		color.NoColor = true
	}

	paths, err := collectScripts(args)
	if err != nil {
		return outputError("check", err)
	}

	opts, err := engineOptions()
	if err != nil {
		return outputError("check", err)
	}
	analyzer := scarpetls.NewAnalyzer(opts...)

	var diags []CLIDiagnostic
	failed := false
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return outputError("check", fmt.Errorf("reading %s: %w", path, err))
		}
		doc := analyzer.Analyze(path, 0, string(data))
		if scarpetls.HasErrors(doc.Diagnostics()) {
			failed = true
		}
		for _, d := range doc.Diagnostics() {
			diags = append(diags, diagnosticToCLI(path, d))
		}
		log.Debugf("checked %s: %d diagnostic(s)", path, len(doc.Diagnostics()))
	}
	if diags == nil {
		diags = []CLIDiagnostic{}
	}

	total := len(diags)
	if err := outputResult(CLIResult{Command: "check", Results: diags, TotalCount: &total}); err != nil {
		return err
	}
	if flagFormat == "text" {
		fmt.Fprintln(os.Stderr, checkSummary(len(paths), diags))
	}
	if failed {
		errorHandled = true
		return errCheckFailed
	}
	return nil
}

// collectScripts expands directories into the script files beneath them.
// Files named explicitly are checked whatever their extension.
func collectScripts(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("resolving path %q: %w", arg, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("path not found: %s", arg)
		}
		if !info.IsDir() {
			out = append(out, abs)
			continue
		}
		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != abs && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if cfg.HasExtension(path) {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", arg, err)
		}
	}
	sort.Strings(out)
	return out, nil
}

func diagnosticToCLI(file string, d syntax.Diagnostic) CLIDiagnostic {
	return CLIDiagnostic{
		File:     file,
		Line:     d.Range.Start.Line,
		Col:      d.Range.Start.Character,
		EndLine:  d.Range.End.Line,
		EndCol:   d.Range.End.Character,
		Severity: d.Severity.String(),
		Code:     d.Code,
		Message:  d.Message,
	}
}

var severityColors = map[string]*color.Color{
	"error":   color.New(color.FgRed, color.Bold),
	"warning": color.New(color.FgYellow),
	"info":    color.New(color.FgCyan),
	"hint":    color.New(color.Faint),
}

// formatDiagnosticsText prints one "file:line:col: severity: message" line
// per diagnostic.
func formatDiagnosticsText(w io.Writer, diags []CLIDiagnostic) {
	for _, d := range diags {
		sev := d.Severity
		if c, ok := severityColors[sev]; ok {
			sev = c.Sprint(sev)
		}
		fmt.Fprintf(w, "%s:%d:%d: %s: %s", d.File, d.Line, d.Col, sev, d.Message)
		if d.Code != "" {
			fmt.Fprintf(w, " [%s]", d.Code)
		}
		fmt.Fprintln(w)
	}
}

func checkSummary(files int, diags []CLIDiagnostic) string {
	counts := map[string]int{}
	for _, d := range diags {
		counts[d.Severity]++
	}
	return fmt.Sprintf("%d file(s) checked: %d error(s), %d warning(s)",
		files, counts["error"], counts["warning"])
}
