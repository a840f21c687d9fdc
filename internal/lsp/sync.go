package lsp

import (
	"errors"
	"fmt"

	"fortio.org/safecast"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/jward/scarpetls"
	"github.com/jward/scarpetls/internal/syntax"
)

// ErrNotOpen is returned for an incremental change to a document the
// client never opened.
var ErrNotOpen = errors.New("document not open")

func (s *Server) didOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	item := params.TextDocument
	doc := s.ws.Open(item.URI, item.Version, item.Text)
	s.publish(ctx, doc)
	return nil
}

func (s *Server) didChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI
	var text string
	if cur := s.ws.Document(uri); cur != nil {
		text = cur.Text
	} else if needsBase(params.ContentChanges) {
		return fmt.Errorf("%w: %s", ErrNotOpen, uri)
	}

	text, err := applyChanges(text, params.ContentChanges)
	if err != nil {
		return fmt.Errorf("change %s: %w", uri, err)
	}
	doc := s.ws.Update(uri, params.TextDocument.Version, text)
	s.publish(ctx, doc)
	return nil
}

func (s *Server) didClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI
	s.ws.Close(uri)
	notify(ctx, protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

// publish sends the diagnostics of doc.
func (s *Server) publish(ctx *glsp.Context, doc *scarpetls.Document) {
	params := protocol.PublishDiagnosticsParams{
		URI:         doc.URI,
		Diagnostics: toDiagnostics(doc.Diagnostics()),
	}
	if v, err := safecast.Conv[uint32](doc.Version); err == nil {
		params.Version = &v
	}
	s.log.Debugf("publishing %d diagnostic(s) for %s", len(params.Diagnostics), doc.URI)
	notify(ctx, protocol.ServerTextDocumentPublishDiagnostics, params)
}

func notify(ctx *glsp.Context, method string, params any) {
	if ctx != nil && ctx.Notify != nil {
		ctx.Notify(method, params)
	}
}

// needsBase reports whether the first change edits existing text rather
// than replacing it.
func needsBase(changes []any) bool {
	if len(changes) == 0 {
		return false
	}
	switch c := changes[0].(type) {
	case protocol.TextDocumentContentChangeEvent:
		return c.Range != nil
	case *protocol.TextDocumentContentChangeEvent:
		return c.Range != nil
	}
	return false
}

// applyChanges applies content changes in order; each range refers to the
// text produced by the changes before it.
func applyChanges(text string, changes []any) (string, error) {
	for _, c := range changes {
		switch c := c.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			text = c.Text
		case *protocol.TextDocumentContentChangeEventWhole:
			text = c.Text
		case protocol.TextDocumentContentChangeEvent:
			text = applyChange(text, c)
		case *protocol.TextDocumentContentChangeEvent:
			text = applyChange(text, *c)
		default:
			return "", fmt.Errorf("unsupported content change %T", c)
		}
	}
	return text, nil
}

func applyChange(text string, c protocol.TextDocumentContentChangeEvent) string {
	if c.Range == nil {
		return c.Text
	}
	lines := syntax.NewLineIndex(text)
	start := lines.Offset(int(c.Range.Start.Line), int(c.Range.Start.Character))
	end := lines.Offset(int(c.Range.End.Line), int(c.Range.End.Character))
	if end < start {
		start, end = end, start
	}
	return text[:start] + c.Text + text[end:]
}
