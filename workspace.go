package scarpetls

import (
	"sort"
	"sync"

	"github.com/tliron/commonlog"
)

// Workspace holds the latest Document of every open script. Each change
// replaces the document with a single pointer swap; a *Document obtained
// earlier stays valid and self-consistent but stale.
type Workspace struct {
	analyzer *Analyzer
	log      commonlog.Logger

	mu   sync.RWMutex
	docs map[string]*Document
}

// NewWorkspace creates an empty Workspace.
func NewWorkspace(opts ...Option) *Workspace {
	s := applyOptions(opts)
	return &Workspace{
		analyzer: newAnalyzer(s),
		log:      s.log,
		docs:     make(map[string]*Document),
	}
}

// Analyzer returns the analyzer documents are built with.
func (w *Workspace) Analyzer() *Analyzer { return w.analyzer }

// Open analyses text and stores it as the document for uri, replacing any
// previous version.
func (w *Workspace) Open(uri string, version int32, text string) *Document {
	doc := w.analyzer.Analyze(uri, version, text)
	w.mu.Lock()
	w.docs[uri] = doc
	w.mu.Unlock()
	return doc
}

// Update replaces the document for uri with a new version. Versions older
// than the stored one are ignored and the stored document is returned.
// Updating a closed document opens it.
func (w *Workspace) Update(uri string, version int32, text string) *Document {
	doc := w.analyzer.Analyze(uri, version, text)

	w.mu.Lock()
	defer w.mu.Unlock()
	if cur := w.docs[uri]; cur != nil && cur.Version > version {
		w.log.Noticef("ignoring stale version %d of %s (have %d)", version, uri, cur.Version)
		return cur
	}
	w.docs[uri] = doc
	return doc
}

// Close forgets uri. Queries through a *Document obtained before still
// work; Document(uri) returns nil afterwards.
func (w *Workspace) Close(uri string) {
	w.mu.Lock()
	delete(w.docs, uri)
	w.mu.Unlock()
}

// Document returns the current document for uri, or nil when it is not
// open.
func (w *Workspace) Document(uri string) *Document {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.docs[uri]
}

// URIs returns the open document URIs, sorted.
func (w *Workspace) URIs() []string {
	w.mu.RLock()
	uris := make([]string, 0, len(w.docs))
	for uri := range w.docs {
		uris = append(uris, uri)
	}
	w.mu.RUnlock()
	sort.Strings(uris)
	return uris
}
