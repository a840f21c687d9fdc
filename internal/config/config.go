// Package config loads .scarpetls.toml project settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file searched for from the working
// directory upwards.
const FileName = ".scarpetls.toml"

// Config is the decoded configuration. Paths are resolved against the
// directory holding the file.
type Config struct {
	// Path is the file the configuration came from; empty for defaults.
	Path string `toml:"-"`

	LogLevel string `toml:"log_level"`
	// Builtins optionally replaces the embedded built-in table (.json or
	// .msgpack).
	Builtins           string         `toml:"builtins"`
	Index              IndexConfig    `toml:"index"`
	FunctionReferences map[string]int `toml:"function_references"`
	Hover              HoverConfig    `toml:"hover"`
}

// IndexConfig controls `scarpetls index`.
type IndexConfig struct {
	DB         string   `toml:"db"`
	Extensions []string `toml:"extensions"`
	Parallel   bool     `toml:"parallel"`
	Workers    int      `toml:"workers"`
}

// HoverConfig controls hover rendering.
type HoverConfig struct {
	Markdown bool `toml:"markdown"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		LogLevel: "warning",
		Index: IndexConfig{
			DB:         filepath.Join(".scarpetls", "index.db"),
			Extensions: []string{".sc", ".scl"},
			Parallel:   true,
		},
		Hover: HoverConfig{Markdown: true},
	}
}

// Load decodes path over the defaults. Keys the file does not set keep
// their default values; unknown keys are an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if meta.IsDefined("index", "workers") && cfg.Index.Workers < 0 {
		return nil, fmt.Errorf("%s: [index].workers must not be negative", path)
	}
	if meta.IsDefined("log_level") {
		if _, ok := verbosity[strings.ToLower(cfg.LogLevel)]; !ok {
			return nil, fmt.Errorf("%s: unknown log_level %q", path, cfg.LogLevel)
		}
	}
	for i, ext := range cfg.Index.Extensions {
		if !strings.HasPrefix(ext, ".") {
			cfg.Index.Extensions[i] = "." + ext
		}
	}

	cfg.Path = path
	dir := filepath.Dir(path)
	if cfg.Builtins != "" && !filepath.IsAbs(cfg.Builtins) {
		cfg.Builtins = filepath.Join(dir, cfg.Builtins)
	}
	if meta.IsDefined("index", "db") && !filepath.IsAbs(cfg.Index.DB) {
		cfg.Index.DB = filepath.Join(dir, cfg.Index.DB)
	}
	return cfg, nil
}

// Find walks up from startDir to locate FileName.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Discover loads the nearest configuration above startDir, or the defaults
// when there is none.
func Discover(startDir string) (*Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}

var verbosity = map[string]int{
	"none":    -4,
	"error":   -2,
	"warning": -1,
	"notice":  0,
	"info":    1,
	"debug":   2,
}

// Verbosity maps LogLevel to a commonlog verbosity. Unknown levels map to
// warning.
func (c *Config) Verbosity() int {
	if v, ok := verbosity[strings.ToLower(c.LogLevel)]; ok {
		return v
	}
	return verbosity["warning"]
}

// HasExtension reports whether path should be indexed.
func (c *Config) HasExtension(path string) bool {
	ext := filepath.Ext(path)
	for _, e := range c.Index.Extensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}
