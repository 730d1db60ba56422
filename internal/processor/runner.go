package processor

import (
	"context"
	"runtime"
	"sync"
)

// Run fans paths out across a worker pool, compresses each file in
// place, and calls onProgress exactly once per completed path. A failed
// file never stops the batch; its failure is visible only in the
// outcome. The counter increment and the callback run under one lock,
// so the Done values seen by onProgress form the strictly increasing
// run 1..Total with no gaps, though file completion order is arbitrary.
//
// Paths are assumed unique; callers are expected to deduplicate.
//
// Cancelling ctx stops dispatching new files and returns ctx.Err();
// files already dispatched run to completion and are never rolled back.
func Run(ctx context.Context, paths []string, cfg Config, onProgress func(ProgressEvent)) (Summary, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	engine := NewEngine(cfg)
	total := len(paths)
	summary := Summary{Total: total}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > total && total > 0 {
		workers = total
	}

	jobs := make(chan string)
	var mu sync.Mutex
	done := 0

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for path := range jobs {
				outcome := engine.Process(path)

				mu.Lock()
				done++
				switch outcome.Status {
				case StatusSuccess:
					summary.Compressed++
				case StatusSkipped:
					summary.Skipped++
				case StatusError:
					summary.Errors++
				}
				summary.BytesSaved += outcome.BytesSaved
				if onProgress != nil {
					onProgress(ProgressEvent{Done: done, Total: total, Outcome: outcome})
				}
				mu.Unlock()
			}
		}()
	}

	var dispatchErr error
dispatch:
	for _, path := range paths {
		select {
		case jobs <- path:
		case <-ctx.Done():
			dispatchErr = ctx.Err()
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	return summary, dispatchErr
}
