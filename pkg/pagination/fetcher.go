package pagination

import (
	"context"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/jam/pkg/logging"
)

// Requester is the part of the API client the fetch engines need.
// *client.Client implements it and is safe to share between goroutines.
type Requester interface {
	Get(ctx context.Context, path string, query url.Values) (*http.Response, error)
	GetJSON(ctx context.Context, path string, query url.Values, out any) error
}

// Config holds fetch engine configuration.
type Config struct {
	// MaxConcurrency caps in-flight requests per fetch. 0 means one request
	// per remaining window or id, all at once.
	MaxConcurrency int
}

// DefaultConfig returns the default configuration: unbounded fan-out.
func DefaultConfig() Config {
	return Config{MaxConcurrency: 0}
}

// Fetcher runs fetches against one Requester. All concurrent requests of one
// fetch share that Requester, and with it one connection pool.
type Fetcher struct {
	client Requester
	config Config
	logger zerolog.Logger
}

// NewFetcher creates a new fetcher.
func NewFetcher(client Requester, config Config) *Fetcher {
	if config.MaxConcurrency < 0 {
		config.MaxConcurrency = 0
	}

	return &Fetcher{
		client: client,
		config: config,
		logger: logging.NewLogger("pagination"),
	}
}

func (f *Fetcher) limit() int {
	if f.config.MaxConcurrency == 0 {
		return -1
	}
	return f.config.MaxConcurrency
}
