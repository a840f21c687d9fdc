package scarpetls

import (
	"fmt"

	"github.com/jward/scarpetls/internal/analysis"
	"github.com/jward/scarpetls/internal/builtins"
	"github.com/jward/scarpetls/internal/syntax"
)

// Semantic diagnostic codes. Parser codes are defined in internal/parser.
const (
	CodeUnknownFunction = "unknown-function"
	CodeUnboundOuter    = "unbound-outer"
	CodeDeprecated      = "deprecated"
)

// semanticDiagnostics reports calls to functions that are neither declared
// nor built in, outer() captures of names the enclosing scope does not
// bind, and uses of deprecated built-ins.
func (d *Document) semanticDiagnostics() []syntax.Diagnostic {
	if d.Tree.Root == nil {
		return nil
	}
	t := d.analyzer.builtins
	var out []syntax.Diagnostic
	d.tables.Walk(d.Tree.Root, func(n syntax.Node, s *analysis.Scope, _ *syntax.FunctionDecl) bool {
		switch n := n.(type) {
		case *syntax.Call:
			if v := analysis.OuterTarget(n); v != nil {
				if s.Func != nil && !analysis.IsGlobalName(v.Name) && !s.Captured(v.Name) {
					out = append(out, unboundOuter(v.Name, v.Loc))
				}
				return true
			}
			if _, ok := d.tables.Function(n.Name); ok {
				return true
			}
			if t.Kind(n.Name) != builtins.FunctionSymbol {
				out = append(out, syntax.Diagnostic{
					Range:    n.NameRange,
					Severity: syntax.SeverityWarning,
					Code:     CodeUnknownFunction,
					Message:  fmt.Sprintf("unknown function '%s'", n.Name),
				})
				return true
			}
			if dep := t.Functions[n.Name].Deprecated; dep != "" {
				out = append(out, deprecated(n.Name, dep, n.NameRange))
			}
		case *syntax.OuterParam:
			if !analysis.IsGlobalName(n.Name) && !s.Captured(n.Name) {
				out = append(out, unboundOuter(n.Name, n.NameRange))
			}
		case *syntax.FunctionDecl:
			if cb, ok := t.Callbacks[n.Name]; ok && cb.Deprecated != "" {
				out = append(out, deprecated(n.Name, cb.Deprecated, n.NameRange))
			}
		}
		return true
	})
	return out
}

func unboundOuter(name string, r syntax.Range) syntax.Diagnostic {
	return syntax.Diagnostic{
		Range:    r,
		Severity: syntax.SeverityWarning,
		Code:     CodeUnboundOuter,
		Message:  fmt.Sprintf("outer(%s): '%s' is not bound in the enclosing scope", name, name),
	}
}

func deprecated(name, note string, r syntax.Range) syntax.Diagnostic {
	return syntax.Diagnostic{
		Range:    r,
		Severity: syntax.SeverityWarning,
		Code:     CodeDeprecated,
		Message:  fmt.Sprintf("'%s' is deprecated. %s", name, note),
	}
}

// HasErrors reports whether any diagnostic is an error.
func HasErrors(diags []syntax.Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == syntax.SeverityError {
			return true
		}
	}
	return false
}
