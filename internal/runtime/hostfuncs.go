package runtime

import (
	"context"
	"strings"

	"github.com/risor-io/risor/object"
	"github.com/tliron/commonlog"

	"github.com/jward/scarpetls/internal/analysis"
	"github.com/jward/scarpetls/internal/builtins"
	"github.com/jward/scarpetls/internal/parser"
	"github.com/jward/scarpetls/internal/syntax"
)

// sourceArgs unpacks the (source, offset) pair shared by the point
// queries and parses the source.
func sourceArgs(name string, args []object.Object) (*syntax.Tree, int, object.Object) {
	if len(args) != 2 {
		return nil, 0, object.NewArgsError(name, 2, len(args))
	}
	src, err := toString(args[0])
	if err != nil {
		return nil, 0, object.Errorf("%s: source: %v", name, err)
	}
	offset, err := toInt64(args[1])
	if err != nil {
		return nil, 0, object.Errorf("%s: offset: %v", name, err)
	}
	return parser.Parse(src), int(offset), nil
}

// makeAnalyzeFn creates the "analyze" host function.
//
// analyze(source) → {functions, globals, function_refs, diagnostics, lines}
func makeAnalyzeFn(c *analysis.Classifier) *object.Builtin {
	return object.NewBuiltin("analyze", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("analyze", 1, len(args))
		}
		src, err := toString(args[0])
		if err != nil {
			return object.Errorf("analyze: %v", err)
		}

		tree := parser.Parse(src)
		tables := analysis.Build(tree.Root)

		var functions []object.Object
		for _, fn := range tables.Functions() {
			params := make([]object.Object, 0, len(fn.Params))
			for _, p := range fn.Params {
				params = append(params, object.NewString(paramText(p)))
			}
			m := rangeFields(fn.NameRange)
			m["name"] = object.NewString(fn.Name)
			m["params"] = object.NewList(params)
			m["doc"] = object.NewString(fn.Comment)
			functions = append(functions, object.NewMap(m))
		}

		var globals []object.Object
		for _, b := range tables.Globals() {
			m := rangeFields(b.Decl.Range())
			m["name"] = object.NewString(b.Name)
			globals = append(globals, object.NewMap(m))
		}

		var refs []object.Object
		syntax.Inspect(tree.Root, func(n syntax.Node) bool {
			s, ok := n.(*syntax.String)
			if !ok || !c.IsFunctionReference(tree.Root, s) {
				return true
			}
			m := rangeFields(s.Range())
			m["value"] = object.NewString(s.Value)
			m["resolved"] = object.NewBool(tables.ResolveString(s) != nil)
			refs = append(refs, object.NewMap(m))
			return true
		})

		var diags []object.Object
		for _, d := range tree.Diagnostics {
			m := rangeFields(d.Range)
			m["severity"] = object.NewString(d.Severity.String())
			m["code"] = object.NewString(d.Code)
			m["message"] = object.NewString(d.Message)
			diags = append(diags, object.NewMap(m))
		}

		return object.NewMap(map[string]object.Object{
			"functions":     listOrEmpty(functions),
			"globals":       listOrEmpty(globals),
			"function_refs": listOrEmpty(refs),
			"diagnostics":   listOrEmpty(diags),
			"lines":         object.NewInt(int64(tree.Lines.LineCount())),
		})
	})
}

// makeClassifyFn creates the "classify" host function.
//
// classify(source, offset) → bool
//
// True when the string literal at offset names a function.
func makeClassifyFn(c *analysis.Classifier) *object.Builtin {
	return object.NewBuiltin("classify", func(ctx context.Context, args ...object.Object) object.Object {
		tree, offset, errObj := sourceArgs("classify", args)
		if errObj != nil {
			return errObj
		}
		n := analysis.Locate(tree.Root, offset)
		return object.NewBool(c.IsFunctionReference(tree.Root, n))
	})
}

// makeResolveFn creates the "resolve" host function.
//
// resolve(source, offset) → {name, kind, start_line, ...} or nil
//
// Classified strings are not followed; use classify first.
func makeResolveFn() *object.Builtin {
	return object.NewBuiltin("resolve", func(ctx context.Context, args ...object.Object) object.Object {
		tree, offset, errObj := sourceArgs("resolve", args)
		if errObj != nil {
			return errObj
		}
		n := analysis.Locate(tree.Root, offset)
		if n == nil {
			return object.Nil
		}
		tables := analysis.Build(tree.Root)
		decl, err := tables.Resolve(tree.Root, n)
		if err != nil {
			return object.Errorf("resolve: %v", err)
		}
		if decl == nil {
			return object.Nil
		}
		name, _ := analysis.NameOf(decl)
		m := rangeFields(analysis.NameRange(decl))
		m["name"] = object.NewString(name)
		m["kind"] = object.NewString(syntax.KindOf(decl))
		return object.NewMap(m)
	})
}

// makeReachableFn creates the "reachable" host function.
//
// reachable(source, offset) → [{name, kind}]
func makeReachableFn() *object.Builtin {
	return object.NewBuiltin("reachable", func(ctx context.Context, args ...object.Object) object.Object {
		tree, offset, errObj := sourceArgs("reachable", args)
		if errObj != nil {
			return errObj
		}
		tables := analysis.Build(tree.Root)
		var results []object.Object
		for _, sym := range tables.Reachable(tree.Root, offset) {
			results = append(results, object.NewMap(map[string]object.Object{
				"name": object.NewString(sym.Name),
				"kind": object.NewString(sym.Kind.String()),
			}))
		}
		return listOrEmpty(results)
	})
}

// makeBuiltinFn creates the "builtin" host function.
//
// builtin(name) → {kind, syntax, doc, deprecated} or nil
func makeBuiltinFn(t *builtins.Table) *object.Builtin {
	return object.NewBuiltin("builtin", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("builtin", 1, len(args))
		}
		name, err := toString(args[0])
		if err != nil {
			return object.Errorf("builtin: %v", err)
		}

		switch t.Kind(name) {
		case builtins.FunctionSymbol:
			fn := t.Functions[name]
			return object.NewMap(map[string]object.Object{
				"kind":       object.NewString("function"),
				"syntax":     object.NewString(t.Syntax(name)),
				"doc":        object.NewString(fn.Plain),
				"deprecated": object.NewString(fn.Deprecated),
			})
		case builtins.ConstantSymbol:
			return object.NewMap(map[string]object.Object{
				"kind":       object.NewString("constant"),
				"syntax":     object.NewString(name),
				"doc":        object.NewString(t.Constants[name].Plain),
				"deprecated": object.NewString(""),
			})
		case builtins.CallbackSymbol:
			cb := t.Callbacks[name]
			return object.NewMap(map[string]object.Object{
				"kind":       object.NewString("callback"),
				"syntax":     object.NewString(builtins.FormatCall(name, cb.Params)),
				"doc":        object.NewString(cb.Plain),
				"deprecated": object.NewString(cb.Deprecated),
			})
		}
		return object.Nil
	})
}

// paramText renders a parameter the way it is written in source.
func paramText(p syntax.Node) string {
	switch p := p.(type) {
	case *syntax.Param:
		return p.Name
	case *syntax.RestParam:
		return "..." + p.Name
	case *syntax.OuterParam:
		return "outer(" + p.Name + ")"
	}
	return ""
}

// rangeFields returns the position keys shared by every result map.
func rangeFields(r syntax.Range) map[string]object.Object {
	return map[string]object.Object{
		"start_line": object.NewInt(int64(r.Start.Line)),
		"start_col":  object.NewInt(int64(r.Start.Character)),
		"end_line":   object.NewInt(int64(r.End.Line)),
		"end_col":    object.NewInt(int64(r.End.Character)),
		"offset":     object.NewInt(int64(r.Start.Offset)),
	}
}

func listOrEmpty(items []object.Object) *object.List {
	if items == nil {
		items = []object.Object{}
	}
	return object.NewList(items)
}

// logObject provides log.Info/Warn/Error/Debug methods for Risor scripts.
type logObject struct {
	logger commonlog.Logger
}

func (l *logObject) Info(msg string) {
	l.logger.Info(strings.TrimSpace(msg))
}

func (l *logObject) Warn(msg string) {
	l.logger.Warning(strings.TrimSpace(msg))
}

func (l *logObject) Error(msg string) {
	l.logger.Error(strings.TrimSpace(msg))
}

func (l *logObject) Debug(msg string) {
	l.logger.Debug(strings.TrimSpace(msg))
}
