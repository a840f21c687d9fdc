package scarpetls

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/jward/scarpetls/internal/store"
)

// IndexFilesParallel indexes files using a three-phase pipeline:
//
//	Phase A (serial):   Hash check, delete old data, prepare file records.
//	Phase B (parallel): Parse, analyse and export into a BatchedStore per file.
//	Phase C (serial):   Commit batches to SQLite.
//
// Analysis shares nothing between files, so Phase B needs no locking beyond
// the per-item batch.
func (e *Engine) IndexFilesParallel(ctx context.Context, paths []string) error {
	// ---- Phase A: Serial file preparation ----
	var items []*workItem
	var errs []error
	for _, path := range paths {
		item, skip, err := e.prepareFile(path)
		if err != nil {
			e.log.Warningf("skipping %s: %v", path, err)
			errs = append(errs, fmt.Errorf("prepare %s: %w", path, err))
			continue
		}
		if skip {
			continue
		}
		items = append(items, item)
	}

	// ---- Phase B: Parallel analysis ----
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workerCount())
	for _, item := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			item.batch = store.NewBatchedStore(e.store)
			doc := e.analyzer.Analyze(item.path, 0, string(item.content))
			item.err = indexDocument(item.batch, item.fileID, item.path, doc)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, item := range items {
			e.discard(item)
		}
		return err
	}

	// ---- Phase C: Serial commit ----
	for _, item := range items {
		if item.err != nil {
			e.discard(item)
			errs = append(errs, fmt.Errorf("export %s: %w", item.path, item.err))
			continue
		}
		if err := e.store.CommitBatch(item.batch); err != nil {
			e.discard(item)
			errs = append(errs, fmt.Errorf("commit %s: %w", item.path, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("indexing had %d error(s): %w", len(errs), errs[0])
	}
	e.storeBuiltinsHash()
	return nil
}

func (e *Engine) workerCount() int {
	if e.workers > 0 {
		return e.workers
	}
	return max(runtime.NumCPU(), 1)
}
