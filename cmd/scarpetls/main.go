package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/jward/scarpetls"
	"github.com/jward/scarpetls/internal/builtins"
	"github.com/jward/scarpetls/internal/config"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	flagDB      string
	flagFormat  string
	flagConfig  string
	flagVerbose bool
	flagLogFile string
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

// cfg is loaded once per invocation by the root PersistentPreRunE.
var cfg *config.Config

var log = commonlog.GetLogger("scarpetls.cli")

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "scarpetls",
	Short:         "Symbol resolution and language server for Scarpet scripts",
	Long:          "scarpetls resolves definitions, references and renames in Carpet mod Scarpet scripts. It serves editors over LSP and indexes script trees into SQLite for queries.",
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(flagFormat); err != nil {
			return err
		}
		return setup()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: .scarpetls/index.db relative to repo root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: nearest "+config.FileName+")")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "write logs to this file instead of stderr")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(scriptCmd)
}

// setup loads the configuration and configures logging.
func setup() error {
	var err error
	if flagConfig != "" {
		cfg, err = config.Load(flagConfig)
	} else {
		cfg, err = config.Discover(".")
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	verbosity := cfg.Verbosity()
	if flagVerbose {
		verbosity = 2
	}
	var logPath *string
	if flagLogFile != "" {
		logPath = &flagLogFile
	}
	commonlog.Configure(verbosity, logPath)
	if cfg.Path != "" {
		log.Debugf("using config %s", cfg.Path)
	}
	return nil
}

// engineOptions translates the loaded configuration into engine options.
func engineOptions() ([]scarpetls.Option, error) {
	opts := []scarpetls.Option{
		scarpetls.WithConfig(cfg),
		scarpetls.WithLogger(commonlog.GetLogger("scarpetls")),
	}
	if cfg.Builtins != "" {
		t, err := builtins.Load(cfg.Builtins)
		if err != nil {
			return nil, fmt.Errorf("loading built-ins: %w", err)
		}
		opts = append(opts, scarpetls.WithBuiltins(t))
	}
	return opts, nil
}

var flagForce bool

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index a script tree for queries",
	Long:  "Analyses every Scarpet script under path and writes symbols, scopes, references and call edges to the SQLite database.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&flagForce, "force", false, "delete database and reindex from scratch")
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()

	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}

	repoRoot := findRepoRoot(targetDir)
	dbPath := resolveDBPath(repoRoot)

	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dbDir, err)
	}

	if flagForce {
		if err := removeDB(dbPath); err != nil {
			return fmt.Errorf("removing database for --force: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Cleared database: %s\n", dbPath)
	}

	opts, err := engineOptions()
	if err != nil {
		return err
	}
	_, statErr := os.Stat(dbPath)
	existed := statErr == nil

	engine, err := scarpetls.New(dbPath, opts...)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	// Classification and unknown-function results depend on the table.
	if existed && engine.BuiltinsChanged() {
		engine.Close()
		fmt.Fprintln(os.Stderr, "Built-in table changed; rebuilding index")
		if err := removeDB(dbPath); err != nil {
			return fmt.Errorf("removing stale database: %w", err)
		}
		if engine, err = scarpetls.New(dbPath, opts...); err != nil {
			return fmt.Errorf("creating engine: %w", err)
		}
	}
	defer engine.Close()

	if err := engine.IndexDirectory(context.Background(), targetDir); err != nil {
		return fmt.Errorf("indexing: %w", err)
	}

	files, err := engine.Store().AllFiles()
	if err != nil {
		return fmt.Errorf("counting files: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Indexed %d file(s) under %s in %s\n",
		len(files), targetDir, time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(os.Stderr, "Database: %s\n", dbPath)
	return nil
}

// removeDB deletes the database and its WAL side files.
func removeDB(dbPath string) error {
	for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// resolveTargetDir returns the absolute path of the directory to index.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the database path: the --db flag, then the config
// file's [index].db, then the default under repoRoot.
func resolveDBPath(repoRoot string) string {
	db := flagDB
	if db == "" && cfg != nil {
		db = cfg.Index.DB
	}
	if db == "" {
		db = filepath.Join(".scarpetls", "index.db")
	}
	if filepath.IsAbs(db) {
		return db
	}
	return filepath.Join(repoRoot, db)
}
