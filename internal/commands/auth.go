package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/jam/pkg/credential"
)

// AuthStatus is the machine-readable form of 'jam auth status'.
type AuthStatus struct {
	Store        string     `json:"store"`
	ClientIDSet  bool       `json:"client_id_set"`
	Valid        bool       `json:"valid"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	ExpiresInSec int        `json:"expires_in_seconds,omitempty"`
}

// NewAuthCmd creates the auth command group.
func NewAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the stored API token",
		Long: `Manage the bearer token obtained with JAM_CLIENT_ID and JAM_CLIENT_SECRET.

Tokens are exchanged on demand and kept in the configured credential store
(file, keyring or redis) until they expire.`,
	}

	cmd.AddCommand(
		newAuthStatusCmd(),
		newAuthLoginCmd(),
		newAuthLogoutCmd(),
	)
	return cmd
}

func newAuthStatusCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the stored token's state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, _, err := requireApp(cmd)
			if err != nil {
				return err
			}

			now := time.Now()
			cred := app.Provider.Token()
			status := AuthStatus{
				Store:       app.Session.Store().Name(),
				ClientIDSet: app.Config.ClientID != "",
				Valid:       !cred.Expired(now),
			}
			if !cred.IsZero() {
				expires := cred.ExpiresAt
				status.ExpiresAt = &expires
				if status.Valid {
					status.ExpiresInSec = int(cred.ExpiresAt.Sub(now).Seconds())
				}
			}

			if asJSON {
				return app.Output.PrintJSON(status)
			}

			r := app.Output
			if err := r.PrintValue("Credential store: " + status.Store); err != nil {
				return err
			}
			switch {
			case cred.IsZero():
				return r.PrintValue(r.Muted.Render("No token stored"))
			case status.Valid:
				return r.PrintValue(r.Success.Render("Token valid until " + r.FormatValue(cred.ExpiresAt) +
					" (" + cred.ExpiresAt.Sub(now).Round(time.Second).String() + ")"))
			default:
				return r.PrintValue(r.Muted.Render("Token expired at " + r.FormatValue(cred.ExpiresAt)))
			}
		},
	}

	registerJSON(cmd, &asJSON, "token status")
	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Exchange the client credentials for a token",
		Long: `Exchange JAM_CLIENT_ID and JAM_CLIENT_SECRET for a bearer token and store
it. A still valid token is kept unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, ctx, err := requireApp(cmd)
			if err != nil {
				return err
			}

			if force {
				app.Session.Update(credential.Credential{})
			}
			if _, err := app.Provider.AuthorizationHeader(ctx); err != nil {
				return err
			}

			r := app.Output
			return r.PrintValue(r.Success.Render("Token valid until " + r.FormatValue(app.Provider.Token().ExpiresAt)))
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Exchange a new token even if the stored one is valid")
	return cmd
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, ctx, err := requireApp(cmd)
			if err != nil {
				return err
			}

			if err := app.Session.Discard(ctx); err != nil {
				return err
			}
			app.Output.Notice("Removed stored token from %s store.", app.Session.Store().Name())
			return nil
		},
	}
}
