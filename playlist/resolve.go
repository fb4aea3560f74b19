package playlist

import (
	"context"
	"sync"

	"Nia/media"

	"github.com/Strum355/log"
)

// ResolveConcurrently resolves searches with at most maxConcurrency lookups in flight.
// Items come back in the order of searches; failed lookups are left out.
func ResolveConcurrently(ctx context.Context, resolver media.Resolver, searches []string, requester media.Requester, maxConcurrency int) []*media.Item {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}

	ordered := make([]*media.Item, len(searches))
	var wg sync.WaitGroup
	concurrencySem := make(chan struct{}, maxConcurrency)

	// Loops over each search and runs go-routines to resolve concurrently
	for idx, search := range searches {
		wg.Add(1)
		go func(index int, search string) {
			defer wg.Done()

			select {
			case concurrencySem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-concurrencySem }()
			if ctx.Err() != nil {
				return
			}

			item, err := resolver.Resolve(ctx, search, requester)
			if err != nil {
				log.WithFields(log.Fields{"search": search}).WithError(err).Error("Failed to resolve playlist entry")
				return
			}
			ordered[index] = item
		}(idx, search)
	}

	wg.Wait()

	// Filter out failed lookups
	items := []*media.Item{}
	for _, item := range ordered {
		if item != nil {
			items = append(items, item)
		}
	}
	return items
}
