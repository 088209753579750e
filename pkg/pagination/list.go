package pagination

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Sternrassler/jam/pkg/client"
	"github.com/Sternrassler/jam/pkg/progress"
)

// ListAll returns every record of ep matching filters, fetched pageSize at a
// time. The order of records across pages is not defined; use SortBy when a
// stable order is needed.
func ListAll[T any](ctx context.Context, f *Fetcher, ep Endpoint, filters []string, pageSize int) ([]T, error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("page size must be positive (got %d)", pageSize)
	}
	start := time.Now()
	label := ep.label()

	first, total, err := fetchPage[T](ctx, f, ep, Window{Skip: 0, Limit: pageSize}, filters)
	if err != nil {
		return nil, fmt.Errorf("fetch first page of %s: %w", ep.Path, err)
	}

	if ep.Total == TotalNone || total == 0 || len(first) >= total {
		f.logger.Debug().
			Str("endpoint", ep.Path).
			Int("records", len(first)).
			Dur("duration", time.Since(start)).
			Msg("Fetch complete (single page)")
		return first, nil
	}

	windows := Windows(total, pageSize)

	f.logger.Info().
		Str("endpoint", ep.Path).
		Int("total", total).
		Int("pages", len(windows)+1).
		Msg("Starting parallel page fetch")

	task := progress.AddTask(ctx, "Fetching "+label, total, pageSize)

	results := make([]T, 0, total)
	results = append(results, first...)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.limit())

	for _, w := range windows {
		g.Go(func() error {
			records, _, err := fetchPage[T](gctx, f, ep, w, filters)
			if err != nil {
				return fmt.Errorf("fetch %s skip=%d: %w", ep.Path, w.Skip, err)
			}

			mu.Lock()
			results = append(results, records...)
			mu.Unlock()

			progress.Advance(ctx, task, len(records))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		f.logger.Error().
			Err(err).
			Str("endpoint", ep.Path).
			Msg("Page fetch failed, discarding partial results")
		return nil, err
	}

	if len(results) != total {
		f.logger.Warn().
			Str("endpoint", ep.Path).
			Int("total", total).
			Int("records", len(results)).
			Msg("Result set changed during fetch")
	}

	f.logger.Info().
		Str("endpoint", ep.Path).
		Int("records", len(results)).
		Int("pages", len(windows)+1).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return results, nil
}

type bodyPage[T any] struct {
	TotalCount int `json:"totalCount"`
	Results    []T `json:"results"`
}

// fetchPage requests one window and returns its records and the declared total.
func fetchPage[T any](ctx context.Context, f *Fetcher, ep Endpoint, w Window, filters []string) ([]T, int, error) {
	fetchPages.WithLabelValues(ep.label()).Inc()

	f.logger.Debug().
		Str("endpoint", ep.Path).
		Int("skip", w.Skip).
		Int("limit", w.Limit).
		Msg("Requesting page window")

	resp, err := f.client.Get(ctx, ep.Path, ep.Params(w, filters))
	if err != nil {
		return nil, 0, err
	}

	var (
		records []T
		total   int
	)

	switch ep.Total {
	case TotalFromBody:
		var page bodyPage[T]
		if err := client.DecodeJSON(resp, &page); err != nil {
			return nil, 0, err
		}
		records, total = page.Results, page.TotalCount

	case TotalFromHeader:
		total, err = headerTotal(resp)
		if err != nil {
			resp.Body.Close()
			return nil, 0, err
		}
		if err := client.DecodeJSON(resp, &records); err != nil {
			return nil, 0, err
		}

	default:
		if err := client.DecodeJSON(resp, &records); err != nil {
			return nil, 0, err
		}
		total = len(records)
	}

	fetchRecords.WithLabelValues(ep.label()).Add(float64(len(records)))
	if records == nil {
		records = []T{}
	}
	return records, total, nil
}

func headerTotal(resp *http.Response) (int, error) {
	raw := strings.TrimSpace(resp.Header.Get(TotalCountHeader))
	total, err := strconv.Atoi(raw)
	if err != nil || total < 0 {
		endpoint := ""
		if resp.Request != nil {
			endpoint = resp.Request.URL.Path
		}
		return 0, &client.APIError{
			StatusCode: resp.StatusCode,
			Class:      client.ErrorClassDecode,
			Endpoint:   endpoint,
			Message:    fmt.Sprintf("invalid %s header %q", TotalCountHeader, raw),
		}
	}
	return total, nil
}
