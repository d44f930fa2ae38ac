package sources

import (
	"context"
	"sync"
)

// SourceOutcome is one adapter's result within a multi-source fetch. Err is
// set only on total source failure; partial failures ride in Result.Errors.
type SourceOutcome struct {
	Key    string
	Result FetchResult
	Err    error
}

// FetchAll runs every adapter's Fetch with a bounded worker pool and waits
// for all of them. Outcomes are returned in adapter order regardless of
// completion order, so downstream batch processing is deterministic. The
// batch is only handed to canonicalization after this returns; partial
// batches are never resolved incrementally.
func FetchAll(ctx context.Context, adapters []Adapter, params FetchParams, workers int) []SourceOutcome {
	if workers <= 0 {
		workers = 4
	}

	outcomes := make([]SourceOutcome, len(adapters))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, adapter := range adapters {
		wg.Add(1)
		go func(i int, adapter Adapter) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			result, err := adapter.Fetch(ctx, params)
			outcomes[i] = SourceOutcome{Key: adapter.Key(), Result: result, Err: err}
		}(i, adapter)
	}
	wg.Wait()
	return outcomes
}
