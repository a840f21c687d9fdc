package scarpetls

import (
	"io/fs"

	"github.com/tliron/commonlog"

	"github.com/jward/scarpetls/internal/builtins"
	"github.com/jward/scarpetls/internal/config"
)

// settings collects everything an Option can set. Analyzer, Workspace and
// Engine each read the fields that apply to them.
type settings struct {
	builtins     *builtins.Table
	functionRefs map[string]int
	markdown     bool
	log          commonlog.Logger

	extensions  []string
	useParallel bool
	workers     int
	scriptsDir  string
	scriptsFS   fs.FS
}

func defaultSettings() *settings {
	cfg := config.Default()
	return &settings{
		builtins:    builtins.Default(),
		markdown:    cfg.Hover.Markdown,
		log:         commonlog.GetLogger("scarpetls"),
		extensions:  cfg.Index.Extensions,
		useParallel: cfg.Index.Parallel,
	}
}

func applyOptions(opts []Option) *settings {
	s := defaultSettings()
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Option configures an Analyzer, a Workspace or an Engine.
type Option func(*settings)

// WithBuiltins replaces the embedded built-in table.
func WithBuiltins(t *builtins.Table) Option {
	return func(s *settings) {
		if t != nil {
			s.builtins = t
		}
	}
}

// WithFunctionRefs adds entries to the function-reference classifier
// table. A negative index removes a default entry.
func WithFunctionRefs(extra map[string]int) Option {
	return func(s *settings) {
		s.functionRefs = extra
	}
}

// WithMarkdown selects markdown (true) or plain text hover and completion
// documentation.
func WithMarkdown(markdown bool) Option {
	return func(s *settings) {
		s.markdown = markdown
	}
}

// WithLogger sets the logger used for skipped files and degraded queries.
func WithLogger(l commonlog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}

// WithParallel controls parallel indexing. When true (default), IndexFiles
// analyses files on a bounded worker pool and commits each file's batch
// from a single goroutine. Set to false for serial mode.
func WithParallel(parallel bool) Option {
	return func(s *settings) {
		s.useParallel = parallel
	}
}

// WithWorkers bounds the parallel indexing pool. Zero means one worker per
// CPU.
func WithWorkers(n int) Option {
	return func(s *settings) {
		s.workers = n
	}
}

// WithExtensions sets the file extensions IndexDirectory picks up.
func WithExtensions(exts ...string) Option {
	return func(s *settings) {
		s.extensions = exts
	}
}

// WithScriptsDir sets the directory Risor scripts and their imports are
// loaded from.
func WithScriptsDir(dir string) Option {
	return func(s *settings) {
		s.scriptsDir = dir
	}
}

// WithScriptsFS loads Risor scripts from fsys instead of from disk. This
// enables embedding scripts via go:embed.
func WithScriptsFS(fsys fs.FS) Option {
	return func(s *settings) {
		s.scriptsFS = fsys
	}
}

// WithConfig applies the settings of a loaded .scarpetls.toml. The
// built-in table path is not loaded here; pass the table with WithBuiltins.
func WithConfig(cfg *config.Config) Option {
	return func(s *settings) {
		if cfg == nil {
			return
		}
		s.functionRefs = cfg.FunctionReferences
		s.markdown = cfg.Hover.Markdown
		s.useParallel = cfg.Index.Parallel
		s.workers = cfg.Index.Workers
		if len(cfg.Index.Extensions) > 0 {
			s.extensions = cfg.Index.Extensions
		}
	}
}
