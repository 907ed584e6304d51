package loupe

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"

	"loupe/internal/extract"
	"loupe/internal/source"
)

// Load bulk-loads the workspace using a three-phase pipeline:
//
//	Phase A (serial):  discover mergeable files on disk.
//	Phase B (parallel): read and extract via worker pool.
//	Phase C (serial):  merge Sources into the index, one Catalog at the end.
//
// Errors on individual files are collected and reported together; the rest
// of the workspace still loads.
func (l *Library) Load(ctx context.Context) error {
	// ---- Phase A: Serial discovery ----
	l.mu.Lock()
	paths, err := l.ws.Discover()
	l.mu.Unlock()
	if err != nil {
		return fmt.Errorf("discover workspace: %w", err)
	}
	if len(paths) == 0 {
		l.Catalog()
		return nil
	}

	// ---- Phase B: Parallel extraction ----
	numWorkers := min(runtime.NumCPU(), len(paths))
	if numWorkers < 1 {
		numWorkers = 1
	}

	workCh := make(chan string, len(paths))
	for _, p := range paths {
		workCh <- p
	}
	close(workCh)

	type result struct {
		path string
		src  *source.Source
		err  error
	}
	resultCh := make(chan result, len(paths))

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Each worker gets its own parser; tree-sitter parsers are not
			// goroutine-safe, extract.Load creates one per call.
			for path := range workCh {
				if err := ctx.Err(); err != nil {
					resultCh <- result{path: path, err: err}
					continue
				}
				data, err := os.ReadFile(path)
				if err != nil {
					resultCh <- result{path: path, err: fmt.Errorf("read file: %w", err)}
					continue
				}
				src, err := extract.Load(path, string(data), 0)
				resultCh <- result{path: path, src: src, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// ---- Phase C: Serial merge ----
	var errs []error
	l.mu.Lock()
	for res := range resultCh {
		if res.err != nil {
			errs = append(errs, fmt.Errorf("load %s: %w", res.path, res.err))
			continue
		}
		l.api.Merge(res.src)
		l.ws.Add(res.path)
	}
	l.api.Catalog()
	l.mu.Unlock()

	if len(errs) > 0 {
		return fmt.Errorf("loading had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}
