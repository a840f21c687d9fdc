package lsp

import (
	"fortio.org/safecast"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/jward/scarpetls"
	"github.com/jward/scarpetls/internal/analysis"
	"github.com/jward/scarpetls/internal/syntax"
)

func toPosition(p syntax.Position) protocol.Position {
	line, err := safecast.Conv[uint32](p.Line)
	if err != nil {
		line = 0
	}
	char, err := safecast.Conv[uint32](p.Character)
	if err != nil {
		char = 0
	}
	return protocol.Position{Line: line, Character: char}
}

func toRange(r syntax.Range) protocol.Range {
	return protocol.Range{Start: toPosition(r.Start), End: toPosition(r.End)}
}

// offsetOf converts a client position to a byte offset in doc.
func offsetOf(doc *scarpetls.Document, p protocol.Position) int {
	return doc.OffsetAt(int(p.Line), int(p.Character))
}

func toLocation(uri string, n syntax.Node) protocol.Location {
	return protocol.Location{URI: uri, Range: toRange(analysis.NameRange(n))}
}

func toSeverity(s syntax.Severity) protocol.DiagnosticSeverity {
	switch s {
	case syntax.SeverityError:
		return protocol.DiagnosticSeverityError
	case syntax.SeverityWarning:
		return protocol.DiagnosticSeverityWarning
	case syntax.SeverityInformation:
		return protocol.DiagnosticSeverityInformation
	}
	return protocol.DiagnosticSeverityHint
}

func toDiagnostics(diags []syntax.Diagnostic) []protocol.Diagnostic {
	source := Name
	out := make([]protocol.Diagnostic, 0, len(diags))
	for _, d := range diags {
		pd := protocol.Diagnostic{
			Range:    toRange(d.Range),
			Severity: ptr(toSeverity(d.Severity)),
			Source:   &source,
			Message:  d.Message,
		}
		if d.Code != "" {
			pd.Code = &protocol.IntegerOrString{Value: d.Code}
		}
		out = append(out, pd)
	}
	return out
}

func toSymbolKind(k analysis.Kind) protocol.SymbolKind {
	if k == analysis.KindFunction {
		return protocol.SymbolKindFunction
	}
	return protocol.SymbolKindVariable
}

func toDocumentSymbols(syms []scarpetls.DocumentSymbol) []protocol.DocumentSymbol {
	out := make([]protocol.DocumentSymbol, 0, len(syms))
	for _, s := range syms {
		ds := protocol.DocumentSymbol{
			Name:           s.Name,
			Kind:           toSymbolKind(s.Kind),
			Range:          toRange(s.Range),
			SelectionRange: toRange(s.SelectionRange),
		}
		detail := s.Detail
		if detail == "" {
			detail = s.Kind.String()
		}
		ds.Detail = &detail
		if len(s.Children) > 0 {
			ds.Children = toDocumentSymbols(s.Children)
		}
		out = append(out, ds)
	}
	return out
}

func toCompletionKind(k scarpetls.CompletionKind) protocol.CompletionItemKind {
	switch k {
	case scarpetls.CompletionFunction:
		return protocol.CompletionItemKindFunction
	case scarpetls.CompletionConstant:
		return protocol.CompletionItemKindConstant
	case scarpetls.CompletionKeyword:
		return protocol.CompletionItemKindKeyword
	case scarpetls.CompletionSnippet:
		return protocol.CompletionItemKindSnippet
	}
	return protocol.CompletionItemKindVariable
}

func toCompletionItems(items []scarpetls.CompletionItem, markdown bool) []protocol.CompletionItem {
	out := make([]protocol.CompletionItem, 0, len(items))
	for _, it := range items {
		text := it.InsertText
		if text == "" {
			text = it.Label
		}
		ci := protocol.CompletionItem{
			Label:    it.Label,
			Kind:     ptr(toCompletionKind(it.Kind)),
			TextEdit: protocol.TextEdit{Range: toRange(it.Range), NewText: text},
		}
		if text != it.Label && it.Kind != scarpetls.CompletionSnippet {
			ci.FilterText = ptr(text)
		}
		if it.Detail != "" {
			ci.Detail = ptr(it.Detail)
		}
		if it.Documentation != "" {
			ci.Documentation = markup(it.Documentation, markdown)
		}
		if it.Deprecated {
			ci.Deprecated = ptr(true)
			ci.Tags = []protocol.CompletionItemTag{protocol.CompletionItemTagDeprecated}
		}
		if it.Kind == scarpetls.CompletionSnippet {
			ci.InsertTextFormat = ptr(protocol.InsertTextFormatSnippet)
		}
		out = append(out, ci)
	}
	return out
}

func markup(text string, markdown bool) protocol.MarkupContent {
	kind := protocol.MarkupKindPlainText
	if markdown {
		kind = protocol.MarkupKindMarkdown
	}
	return protocol.MarkupContent{Kind: kind, Value: text}
}
