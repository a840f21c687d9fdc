package lsp

import (
	"errors"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/jward/scarpetls"
	"github.com/jward/scarpetls/internal/analysis"
)

// document returns the open document for uri and the byte offset of pos,
// or nil when the client asks about a document it never opened.
func (s *Server) document(uri string, pos protocol.Position) (*scarpetls.Document, int) {
	doc := s.ws.Document(uri)
	if doc == nil {
		s.log.Debugf("request for unopened document %s", uri)
		return nil, 0
	}
	return doc, offsetOf(doc, pos)
}

// lookupFailed logs and swallows analysis.ErrForeignNode so the client
// gets an empty answer. Other errors pass through.
func (s *Server) lookupFailed(method, uri string, err error) error {
	if errors.Is(err, analysis.ErrForeignNode) {
		s.log.Errorf("%s in %s: %s", method, uri, err)
		return nil
	}
	return err
}

func (s *Server) definition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	doc, offset := s.document(params.TextDocument.URI, params.Position)
	if doc == nil {
		return nil, nil
	}
	decl, err := doc.DefinitionAt(offset)
	if err != nil {
		return nil, s.lookupFailed("definition", doc.URI, err)
	}
	if decl == nil {
		return nil, nil
	}
	return toLocation(doc.URI, decl), nil
}

func (s *Server) references(ctx *glsp.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	doc, offset := s.document(params.TextDocument.URI, params.Position)
	if doc == nil {
		return nil, nil
	}
	decl, err := doc.DefinitionAt(offset)
	if err != nil {
		return nil, s.lookupFailed("references", doc.URI, err)
	}
	if decl == nil {
		return nil, nil
	}
	refs, err := doc.ReferencesAt(offset)
	if err != nil {
		return nil, s.lookupFailed("references", doc.URI, err)
	}
	locs := make([]protocol.Location, 0, len(refs))
	for _, n := range refs {
		if n == decl && !params.Context.IncludeDeclaration {
			continue
		}
		locs = append(locs, toLocation(doc.URI, n))
	}
	return locs, nil
}

func (s *Server) prepareRename(ctx *glsp.Context, params *protocol.PrepareRenameParams) (any, error) {
	doc, offset := s.document(params.TextDocument.URI, params.Position)
	if doc == nil {
		return nil, nil
	}
	r, err := doc.PrepareRename(offset)
	if err != nil || r == nil {
		return nil, err
	}
	return toRange(*r), nil
}

// rename returns the workspace edit, or the rejection as an error whose
// message is shown to the user.
func (s *Server) rename(ctx *glsp.Context, params *protocol.RenameParams) (*protocol.WorkspaceEdit, error) {
	doc, offset := s.document(params.TextDocument.URI, params.Position)
	if doc == nil {
		return nil, nil
	}
	edits, err := doc.RenameAt(offset, params.NewName)
	if err != nil {
		var rej *analysis.RejectionError
		if errors.As(err, &rej) {
			s.log.Infof("rename rejected (%s): %s", rej.Kind, rej.Reason)
		}
		return nil, err
	}
	if len(edits) == 0 {
		return nil, nil
	}
	changes := make([]protocol.TextEdit, 0, len(edits))
	for _, e := range edits {
		changes = append(changes, protocol.TextEdit{Range: toRange(e.Range), NewText: e.NewText})
	}
	return &protocol.WorkspaceEdit{
		Changes: map[protocol.DocumentUri][]protocol.TextEdit{doc.URI: changes},
	}, nil
}

func (s *Server) hover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	doc, offset := s.document(params.TextDocument.URI, params.Position)
	if doc == nil {
		return nil, nil
	}
	h := doc.Hover(offset)
	if h == nil {
		return nil, nil
	}
	r := toRange(h.Range)
	return &protocol.Hover{Contents: markup(h.Contents, h.Markdown), Range: &r}, nil
}

func (s *Server) completion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	doc, offset := s.document(params.TextDocument.URI, params.Position)
	if doc == nil {
		return nil, nil
	}
	return toCompletionItems(doc.Completions(offset), s.ws.Analyzer().Markdown()), nil
}

func (s *Server) documentSymbol(ctx *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	doc := s.ws.Document(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}
	return toDocumentSymbols(doc.Symbols()), nil
}
