// Package appctx provides application context helpers.
package appctx

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/Sternrassler/jam/internal/config"
	"github.com/Sternrassler/jam/internal/input"
	"github.com/Sternrassler/jam/internal/output"
	"github.com/Sternrassler/jam/internal/version"
	"github.com/Sternrassler/jam/pkg/auth"
	"github.com/Sternrassler/jam/pkg/cache"
	"github.com/Sternrassler/jam/pkg/client"
	"github.com/Sternrassler/jam/pkg/credential"
	"github.com/Sternrassler/jam/pkg/jumpcloud"
	"github.com/Sternrassler/jam/pkg/metrics"
	"github.com/Sternrassler/jam/pkg/pagination"
	"github.com/Sternrassler/jam/pkg/progress"
)

// contextKey is a private type for context keys.
type contextKey string

const appKey contextKey = "app"

// App holds the shared application context for all commands.
type App struct {
	Config   *config.Config
	Session  *credential.Session
	Provider *auth.Provider
	Service  *jumpcloud.Service
	Output   *output.Renderer
	Input    *input.Resolver
	Progress progress.Reporter

	// Redis is set when redis_url is configured
	Redis *redis.Client

	// Flags holds the global flag values
	Flags GlobalFlags
}

// GlobalFlags holds values for global CLI flags.
type GlobalFlags struct {
	// Overrides
	APIURL         string
	Limit          int
	MaxConcurrency int

	// Behavior flags
	Verbose     int // 0=warn, 1=info, 2=debug (stacks with -v -v or -vv)
	LogJSON     bool
	NoProgress  bool
	MetricsFile string
}

// NewApp wires the credential session, token provider, client factory and
// service for cfg. Nothing is fetched yet; the first API call triggers the
// token exchange if no valid token is stored.
func NewApp(ctx context.Context, cfg *config.Config, flags GlobalFlags) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, output.ErrUsage(err.Error())
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, output.ErrUsageHint("Invalid redis_url", err.Error())
		}
		rdb = redis.NewClient(opts)
	}

	store, err := credential.NewStore(credential.Options{
		Backend:  cfg.CredentialStore,
		Dir:      config.Dir(),
		ClientID: cfg.ClientID,
		Redis:    rdb,
	})
	if err != nil {
		return nil, output.ErrUsage(err.Error())
	}

	session, err := credential.Open(ctx, store)
	if err != nil {
		return nil, err
	}

	provider := auth.NewProvider(auth.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.OAuthURL,
		Timeout:      cfg.TimeoutDuration(),
	}, session)

	clientCfg := client.DefaultConfig(cfg.APIURL)
	clientCfg.Timeout = cfg.TimeoutDuration()
	clientCfg.UserAgent = version.UserAgent()
	if cfg.Cache.Enabled && rdb != nil {
		clientCfg.Cache = cache.NewManager(rdb)
		clientCfg.CacheTTL = cfg.CacheTTL()
		clientCfg.CacheScope = cfg.ClientID
	}

	factory, err := client.NewFactory(clientCfg, provider)
	if err != nil {
		return nil, output.ErrUsage(err.Error())
	}

	reporter := progress.Nop
	if !flags.NoProgress && output.IsTerminal(os.Stderr) {
		reporter = progress.NewBar(os.Stderr)
	}

	return &App{
		Config:   cfg,
		Session:  session,
		Provider: provider,
		Service: jumpcloud.NewService(factory, jumpcloud.Config{
			PageSize: cfg.Limit,
			Fetch:    pagination.Config{MaxConcurrency: cfg.MaxConcurrency},
		}),
		Output:   output.NewRenderer(output.Options{Location: loc}),
		Input:    input.Stdin(),
		Progress: reporter,
		Redis:    rdb,
		Flags:    flags,
	}, nil
}

// Context returns ctx carrying the app's progress reporter.
func (a *App) Context(ctx context.Context) context.Context {
	if a.Progress == nil {
		return ctx
	}
	return progress.WithReporter(ctx, a.Progress)
}

// Close stops the progress display, writes the credential back, flushes
// metrics to the configured textfile and releases the Redis connection.
func (a *App) Close(ctx context.Context) error {
	if a.Progress != nil {
		a.Progress.Close()
	}

	var errs []error
	if a.Session != nil {
		errs = append(errs, a.Session.Close(ctx))
	}
	if a.Config != nil && a.Config.MetricsFile != "" {
		if err := metrics.WriteTextfile(a.Config.MetricsFile); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	return errors.Join(errs...)
}

// WithApp stores the app in the context.
func WithApp(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, appKey, app)
}

// FromContext retrieves the app from the context.
func FromContext(ctx context.Context) *App {
	if ctx == nil {
		return nil
	}
	app, _ := ctx.Value(appKey).(*App)
	return app
}
