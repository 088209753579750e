package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sternrassler/jam/internal/output"
	"github.com/Sternrassler/jam/pkg/cache"
)

// NewCacheCmd creates the cache command group.
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the Redis response cache",
	}

	cmd.AddCommand(newCacheClearCmd())
	return cmd
}

func newCacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove cached responses for the current client id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, ctx, err := requireApp(cmd)
			if err != nil {
				return err
			}
			if app.Redis == nil {
				return output.ErrUsageHint("No response cache configured", "Set redis_url and cache.enabled in the config file")
			}

			removed, err := cache.NewManager(app.Redis).Purge(ctx, app.Config.ClientID)
			if err != nil {
				return err
			}
			app.Output.Notice("Removed %d cached responses.", removed)
			return nil
		},
	}
}
