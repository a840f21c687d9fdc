package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jward/scarpetls"
	"github.com/jward/scarpetls/internal/lsp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the language server on stdin/stdout",
	Long:  "Speaks the Language Server Protocol over stdio. Logs go to stderr, or to --log-file.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	opts, err := engineOptions()
	if err != nil {
		return err
	}
	ws := scarpetls.NewWorkspace(opts...)
	log.Infof("starting %s %s", lsp.Name, version)
	if err := lsp.NewServer(ws, version).RunStdio(); err != nil {
		return fmt.Errorf("serving: %w", err)
	}
	return nil
}
