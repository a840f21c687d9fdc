// Package runtime embeds a Risor VM for ad-hoc scripts over the symbol
// index and the Scarpet analyzer.
package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"
	"github.com/tliron/commonlog"

	"github.com/jward/scarpetls/internal/analysis"
	"github.com/jward/scarpetls/internal/builtins"
	"github.com/jward/scarpetls/internal/store"
)

// Runtime runs Risor scripts with index queries and analysis host
// functions as globals.
type Runtime struct {
	store      *store.Store
	scriptsDir string
	fsys       fs.FS
	builtins   *builtins.Table
	classifier *analysis.Classifier
	log        commonlog.Logger
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS configures the Runtime to load scripts from an fs.FS
// instead of from disk. Also configures the Risor importer to use
// FSImporter for import statement resolution.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithBuiltins sets the table behind the builtin() host function.
func WithBuiltins(t *builtins.Table) RuntimeOption {
	return func(r *Runtime) {
		r.builtins = t
	}
}

// WithClassifier sets the classifier used by analyze() and classify().
func WithClassifier(c *analysis.Classifier) RuntimeOption {
	return func(r *Runtime) {
		r.classifier = c
	}
}

// WithLogger routes the script-visible log object to l.
func WithLogger(l commonlog.Logger) RuntimeOption {
	return func(r *Runtime) {
		r.log = l
	}
}

// NewRuntime creates a Runtime wired to the given Store and scripts
// directory. The Store may be nil, in which case only the analysis host
// functions are available.
func NewRuntime(s *store.Store, scriptsDir string, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		store:      s,
		scriptsDir: scriptsDir,
		builtins:   builtins.Default(),
		classifier: analysis.NewClassifier(nil),
		log:        commonlog.GetLogger("scarpetls.script"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunScript loads and executes a Risor script with all standard globals
// plus any extra globals provided by the caller.
func (r *Runtime) RunScript(ctx context.Context, scriptPath string, extraGlobals map[string]any) error {
	src, err := r.LoadScript(scriptPath)
	if err != nil {
		return err
	}
	return r.eval(ctx, src, scriptPath, extraGlobals)
}

// RunSource executes Risor source code directly with all standard globals
// plus any extra globals.
func (r *Runtime) RunSource(ctx context.Context, source string, extraGlobals map[string]any) error {
	return r.eval(ctx, source, "<inline>", extraGlobals)
}

func (r *Runtime) eval(ctx context.Context, source, label string, extraGlobals map[string]any) error {
	globals := r.buildGlobals(extraGlobals)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}
	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	r.log.Debug("running script", "script", label)
	if _, err := risor.Eval(ctx, source, opts...); err != nil {
		return fmt.Errorf("runtime: script %s: %w", label, err)
	}
	return nil
}

// buildImporter returns a Risor importer configured for the Runtime's
// script source, or nil if neither fs.FS nor scriptsDir is configured.
func (r *Runtime) buildImporter(globals map[string]any) importer.Importer {
	globalNames := make([]string, 0, len(globals))
	for name := range globals {
		globalNames = append(globalNames, name)
	}

	if r.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    r.fsys,
			Extensions:  []string{".risor"},
		})
	}
	if r.scriptsDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   r.scriptsDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

// LoadScript reads a .risor file and returns its source code. Relative
// paths are taken against the fs.FS when one is configured, otherwise
// against scriptsDir.
func (r *Runtime) LoadScript(path string) (string, error) {
	if r.fsys != nil {
		fsPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
		data, err := fs.ReadFile(r.fsys, fsPath)
		if err != nil {
			return "", fmt.Errorf("runtime: loading script %s from fs: %w", fsPath, err)
		}
		return string(data), nil
	}

	fullPath := path
	if !filepath.IsAbs(path) && r.scriptsDir != "" {
		fullPath = filepath.Join(r.scriptsDir, path)
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("runtime: loading script %s: %w", fullPath, err)
	}
	return string(data), nil
}

// buildGlobals constructs the full set of globals exposed to Risor scripts.
func (r *Runtime) buildGlobals(extra map[string]any) map[string]any {
	globals := map[string]any{
		"analyze":   makeAnalyzeFn(r.classifier),
		"classify":  makeClassifyFn(r.classifier),
		"resolve":   makeResolveFn(),
		"reachable": makeReachableFn(),
		"builtin":   makeBuiltinFn(r.builtins),
		"log":       mustProxy(&logObject{logger: r.log}),
	}

	// Index queries need a Store (nil for analysis-only scripts).
	if r.store != nil {
		globals["db_query"] = makeDBQueryFn(r.store)
		globals["files"] = makeFilesFn(r.store)
		globals["symbol"] = makeSymbolFn(r.store)
		globals["symbols_by_name"] = makeSymbolsByNameFn(r.store)
		globals["symbols_by_file"] = makeSymbolsByFileFn(r.store)
		globals["symbols_by_kind"] = makeSymbolsByKindFn(r.store)
		globals["references_to"] = makeReferencesToFn(r.store)
		globals["references_by_file"] = makeReferencesByFileFn(r.store)
		globals["scopes_by_file"] = makeScopesByFileFn(r.store)
		globals["scope_chain"] = makeScopeChainFn(r.store)
		globals["function_params"] = makeFunctionParamsFn(r.store)
		globals["callers"] = makeCallersFn(r.store)
		globals["callees"] = makeCalleesFn(r.store)
	}

	for k, v := range extra {
		globals[k] = v
	}
	return globals
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}
