// Package lsp serves a scarpetls.Workspace over the Language Server
// Protocol.
package lsp

import (
	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"github.com/jward/scarpetls"
)

// Name is reported to clients in the initialize result.
const Name = "scarpetls"

// Server answers LSP requests from the documents of one Workspace.
type Server struct {
	ws      *scarpetls.Workspace
	version string
	log     commonlog.Logger
	handler protocol.Handler
}

// NewServer creates a Server for ws. version is reported to clients.
func NewServer(ws *scarpetls.Workspace, version string) *Server {
	s := &Server{
		ws:      ws,
		version: version,
		log:     commonlog.GetLogger("scarpetls.lsp"),
	}
	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.didOpen,
		TextDocumentDidChange: s.didChange,
		TextDocumentDidClose:  s.didClose,

		TextDocumentDefinition:     s.definition,
		TextDocumentReferences:     s.references,
		TextDocumentPrepareRename:  s.prepareRename,
		TextDocumentRename:         s.rename,
		TextDocumentHover:          s.hover,
		TextDocumentCompletion:     s.completion,
		TextDocumentDocumentSymbol: s.documentSymbol,
	}
	return s
}

// Handler returns the protocol handler, for embedding the server in
// another transport.
func (s *Server) Handler() *protocol.Handler { return &s.handler }

// RunStdio serves requests on stdin/stdout until the client exits.
func (s *Server) RunStdio() error {
	return server.NewServer(&s.handler, Name, false).RunStdio()
}

func (s *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	if params.ClientInfo != nil {
		s.log.Infof("initialize from %s", params.ClientInfo.Name)
	}

	capabilities := s.handler.CreateServerCapabilities()
	capabilities.TextDocumentSync = protocol.TextDocumentSyncOptions{
		OpenClose: ptr(true),
		Change:    ptr(protocol.TextDocumentSyncKindIncremental),
	}
	capabilities.RenameProvider = protocol.RenameOptions{PrepareProvider: ptr(true)}
	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{"'", "_"},
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    Name,
			Version: &s.version,
		},
	}, nil
}

func (s *Server) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *Server) shutdown(ctx *glsp.Context) error {
	protocol.SetTraceValue(protocol.TraceValueOff)
	for _, uri := range s.ws.URIs() {
		s.ws.Close(uri)
	}
	return nil
}

func (s *Server) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func ptr[T any](v T) *T { return &v }
