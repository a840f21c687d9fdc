package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/risor-io/risor/object"
	"github.com/spf13/cobra"

	"github.com/jward/scarpetls"
	"github.com/jward/scarpetls/scripts"
)

var scriptCmd = &cobra.Command{
	Use:   "script <file.risor|report> [args...]",
	Short: "Run a Risor script against the index",
	Long: `Runs a Risor script with the index and analysis functions as globals.
The script is read from disk when the path exists, otherwise it names a
bundled report (for example "unused" or "outline"). Remaining arguments
are available to the script as the list 'args'.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScript,
}

func runScript(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting cwd: %w", err)
	}
	dbPath := resolveDBPath(findRepoRoot(cwd))
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return fmt.Errorf("database not found: %s (run 'scarpetls index' first)", dbPath)
	}

	opts, err := engineOptions()
	if err != nil {
		return err
	}

	target := args[0]
	if info, statErr := os.Stat(target); statErr == nil && !info.IsDir() {
		abs, err := filepath.Abs(target)
		if err != nil {
			return fmt.Errorf("resolving %q: %w", target, err)
		}
		opts = append(opts, scarpetls.WithScriptsDir(filepath.Dir(abs)))
		target = abs
	} else {
		name, err := bundledScript(target)
		if err != nil {
			return err
		}
		opts = append(opts, scarpetls.WithScriptsFS(scripts.FS))
		target = name
	}

	engine, err := scarpetls.New(dbPath, opts...)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	defer engine.Close()

	extra := map[string]any{"args": scriptArgs(args[1:])}
	if err := engine.RunScript(context.Background(), target, extra); err != nil {
		return err
	}
	return nil
}

// bundledScript maps a report name to its path in the embedded scripts.
func bundledScript(name string) (string, error) {
	candidates := []string{name}
	if !strings.HasSuffix(name, ".risor") {
		candidates = append(candidates, path.Join("reports", name+".risor"))
	}
	for _, c := range candidates {
		if info, err := fs.Stat(scripts.FS, c); err == nil && !info.IsDir() {
			return c, nil
		}
	}
	return "", fmt.Errorf("script not found: %s", name)
}

func scriptArgs(args []string) *object.List {
	items := make([]object.Object, len(args))
	for i, a := range args {
		items[i] = object.NewString(a)
	}
	return object.NewList(items)
}
