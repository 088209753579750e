package pagination

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Sternrassler/jam/pkg/progress"
)

// GetMany fetches one entity of kind name (e.g. "systems") per id
// concurrently and returns them in completion order. The first failure
// cancels the remaining requests and is returned without partial results.
// An empty ids slice issues no requests.
func GetMany[T any](ctx context.Context, f *Fetcher, name string, path func(id string) string, ids []string) ([]T, error) {
	if len(ids) == 0 {
		return []T{}, nil
	}
	start := time.Now()

	f.logger.Info().
		Int("ids", len(ids)).
		Str("endpoint", name).
		Msg("Starting parallel entity fetch")

	task := progress.AddTask(ctx, "Fetching "+name, len(ids), 0)

	results := make([]T, 0, len(ids))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.limit())

	for _, id := range ids {
		g.Go(func() error {
			p := path(id)
			fetchPages.WithLabelValues(name).Inc()

			var record T
			if err := f.client.GetJSON(gctx, p, nil, &record); err != nil {
				return fmt.Errorf("fetch %s: %w", p, err)
			}

			mu.Lock()
			results = append(results, record)
			mu.Unlock()

			fetchRecords.WithLabelValues(name).Inc()
			progress.Advance(ctx, task, 1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		f.logger.Error().Err(err).Msg("Entity fetch failed, discarding partial results")
		return nil, err
	}

	f.logger.Info().
		Int("records", len(results)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return results, nil
}
