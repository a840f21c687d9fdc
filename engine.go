package scarpetls

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/tliron/commonlog"

	"github.com/jward/scarpetls/internal/runtime"
	"github.com/jward/scarpetls/internal/store"
)

// LanguageScarpet is the language recorded for every indexed file.
const LanguageScarpet = "scarpet"

// builtinsHashKey is the metadata key holding the built-in table digest the
// index was built with.
const builtinsHashKey = "builtins_hash"

// Engine maintains a SQLite index of Scarpet scripts: file discovery,
// change detection, per-file analysis, export and query access.
type Engine struct {
	store    *store.Store
	runtime  *runtime.Runtime
	analyzer *Analyzer
	log      commonlog.Logger

	extensions  []string
	useParallel bool
	workers     int
}

// New creates an Engine backed by a SQLite database at dbPath.
func New(dbPath string, opts ...Option) (*Engine, error) {
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("scarpetls: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("scarpetls: migrate: %w", err)
	}

	cfg := applyOptions(opts)
	e := &Engine{
		store:       s,
		analyzer:    newAnalyzer(cfg),
		log:         cfg.log,
		extensions:  cfg.extensions,
		useParallel: cfg.useParallel,
		workers:     cfg.workers,
	}

	rtOpts := []runtime.RuntimeOption{
		runtime.WithBuiltins(cfg.builtins),
		runtime.WithClassifier(e.analyzer.classifier),
		runtime.WithLogger(cfg.log),
	}
	if cfg.scriptsFS != nil {
		rtOpts = append(rtOpts, runtime.WithRuntimeFS(cfg.scriptsFS))
	}
	e.runtime = runtime.NewRuntime(s, cfg.scriptsDir, rtOpts...)

	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying Store for direct access.
func (e *Engine) Store() *Store {
	return e.store
}

// Analyzer returns the analyzer files are indexed with.
func (e *Engine) Analyzer() *Analyzer {
	return e.analyzer
}

// Query returns a new QueryBuilder wrapping the Store.
func (e *Engine) Query() *QueryBuilder {
	return &QueryBuilder{store: e.store, builtins: e.analyzer.builtins}
}

// RunScript runs a Risor script with the index and analysis host
// functions available as globals.
func (e *Engine) RunScript(ctx context.Context, path string, extraGlobals map[string]any) error {
	return e.runtime.RunScript(ctx, path, extraGlobals)
}

// RunSource is RunScript for inline source.
func (e *Engine) RunSource(ctx context.Context, source string, extraGlobals map[string]any) error {
	return e.runtime.RunSource(ctx, source, extraGlobals)
}

// BuiltinsChanged reports whether the built-in table differs from the one
// the database was built with. Returns true if the DB has no stored hash
// (first run). When true, the caller should delete the DB and reindex,
// since unknown-function and classification results depend on the table.
func (e *Engine) BuiltinsChanged() bool {
	stored, err := e.store.GetMetadata(builtinsHashKey)
	if err != nil || stored == "" {
		return true
	}
	return stored != e.analyzer.builtins.Hash()
}

func (e *Engine) storeBuiltinsHash() {
	if err := e.store.SetMetadata(builtinsHashKey, e.analyzer.builtins.Hash()); err != nil {
		e.log.Warningf("storing builtins hash: %v", err)
	}
}

// Supported reports whether path has one of the indexed extensions.
func (e *Engine) Supported(path string) bool {
	ext := filepath.Ext(path)
	for _, x := range e.extensions {
		if strings.EqualFold(x, ext) {
			return true
		}
	}
	return false
}

// IndexFiles indexes the given file paths. When WithParallel is enabled,
// files are analysed on a bounded worker pool with batched SQLite writes.
// Otherwise falls back to the serial path.
//
// For each file:
// 1. Skip unsupported extensions
// 2. Skip unchanged files (same content hash)
// 3. Delete stale data, insert the file record
// 4. Analyse and export symbols, scopes, references and call edges
//
// Errors on individual files are logged and skipped; processing continues.
func (e *Engine) IndexFiles(ctx context.Context, paths []string) error {
	if e.useParallel {
		return e.IndexFilesParallel(ctx, paths)
	}
	return e.indexFilesSerial(ctx, paths)
}

func (e *Engine) indexFilesSerial(ctx context.Context, paths []string) error {
	var errs []error
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.indexFile(path); err != nil {
			e.log.Warningf("skipping %s: %v", path, err)
			errs = append(errs, fmt.Errorf("index %s: %w", path, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("indexing had %d error(s): %w", len(errs), errs[0])
	}
	e.storeBuiltinsHash()
	return nil
}

func (e *Engine) indexFile(path string) error {
	item, skip, err := e.prepareFile(path)
	if err != nil || skip {
		return err
	}
	doc := e.analyzer.Analyze(path, 0, string(item.content))
	if err := indexDocument(e.store, item.fileID, path, doc); err != nil {
		e.discard(item)
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

// workItem is a file that passed change detection and has a fresh file
// record.
type workItem struct {
	path    string
	fileID  int64
	content []byte

	batch *store.BatchedStore
	err   error
}

// prepareFile does the serial part of indexing a file: hash check, cleanup,
// file record. skip=true means the file is unchanged or unsupported.
func (e *Engine) prepareFile(path string) (*workItem, bool, error) {
	if !e.Supported(path) {
		return nil, true, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("read file: %w", err)
	}
	hash := fmt.Sprintf("%x", sha256.Sum256(content))

	existing, err := e.store.FileByPath(path)
	if err != nil {
		return nil, false, fmt.Errorf("lookup file: %w", err)
	}
	if existing != nil && existing.Hash == hash {
		return nil, true, nil
	}
	if existing != nil {
		if err := e.store.DeleteFileData(existing.ID); err != nil {
			return nil, false, fmt.Errorf("delete old data: %w", err)
		}
	}

	fileID, err := e.store.InsertFile(&store.File{
		Path:        path,
		Language:    LanguageScarpet,
		Hash:        hash,
		LineCount:   bytes.Count(content, []byte{'\n'}) + 1,
		LastIndexed: time.Now(),
	})
	if err != nil {
		return nil, false, fmt.Errorf("insert file: %w", err)
	}
	return &workItem{path: path, fileID: fileID, content: content}, false, nil
}

// discard removes a half-indexed file so the next run retries it instead
// of skipping it as unchanged.
func (e *Engine) discard(item *workItem) {
	if err := e.store.DeleteFileData(item.fileID); err != nil {
		e.log.Errorf("discarding %s: %v", item.path, err)
	}
}

// skipDirs are directories that are never indexed.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
}

// IndexDirectory walks root and indexes all files with supported extensions.
// If root is inside a git repository, uses git ls-files to respect .gitignore.
// Falls back to a filesystem walk (skipping hidden dirs, node_modules,
// vendor, __pycache__) if git is unavailable.
func (e *Engine) IndexDirectory(ctx context.Context, root string) error {
	paths, err := e.gitListFiles(root)
	if err != nil {
		e.log.Debugf("git ls-files in %s: %v; walking instead", root, err)
		paths, err = e.walkListFiles(root)
		if err != nil {
			return err
		}
	}
	return e.IndexFiles(ctx, paths)
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) files under root, filtered to supported extensions.
func (e *Engine) gitListFiles(root string) ([]string, error) {
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		absPath := filepath.Join(root, line)
		if e.Supported(absPath) {
			paths = append(paths, absPath)
		}
	}
	return paths, nil
}

// walkListFiles discovers files by walking the filesystem.
func (e *Engine) walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if e.Supported(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}
