package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/jam/internal/config"
	"github.com/Sternrassler/jam/internal/output"
)

// confirm asks a yes/no question on the terminal.
var confirm = func(title, description string) (bool, error) {
	var result bool
	err := huh.NewConfirm().
		Title(title).
		Description(description).
		Affirmative("Yes").
		Negative("No").
		Value(&result).
		Run()
	return result, err
}

// NewConfigCmd creates the config command for managing configuration.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage jam configuration",
		Long: `Manage jam configuration.

Configuration is loaded from these sources, highest precedence first:
  flags > environment (JAM_*) > config file > defaults

The client id and secret are read from JAM_CLIENT_ID and JAM_CLIENT_SECRET
only and are never written to the config file.`,
	}

	cmd.AddCommand(
		newConfigPathCmd(),
		newConfigShowCmd(),
		newConfigResetCmd(),
	)
	return cmd
}

func newRendererFor(cmd *cobra.Command) *output.Renderer {
	return output.NewRenderer(output.Options{Out: cmd.OutOrStdout(), ErrOut: cmd.ErrOrStderr()})
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := newRendererFor(cmd)
			path := config.Path()

			if err := r.PrintValue("Configuration file: " + path); err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil {
				return r.PrintValue(r.Success.Render("File exists"))
			}
			return r.PrintValue(r.Muted.Render("File doesn't exist yet and will be created on first run"))
		},
	}
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := newRendererFor(cmd)
			path := config.Path()

			if _, err := config.Init(path); err != nil {
				return err
			}
			data, err := os.ReadFile(path) //nolint:gosec // G304: path is the user's config file
			if err != nil {
				return fmt.Errorf("read config: %w", err)
			}

			if err := r.PrintValue(r.Title.Render("Configuration: " + path)); err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newConfigResetCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset the configuration file to defaults",
		Long: `Reset the configuration file to defaults. The current file is kept next
to it with a .backup suffix.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := newRendererFor(cmd)
			path := config.Path()

			if !force {
				ok, err := confirm("Reset configuration to defaults?", "Location: "+path)
				if errors.Is(err, huh.ErrUserAborted) {
					ok, err = false, nil
				}
				if err != nil {
					return output.ErrUsageHint("Cannot ask for confirmation", "Pass --force to reset without asking")
				}
				if !ok {
					r.Notice("Reset cancelled.")
					return nil
				}
			}

			backup, err := config.Reset(path)
			if err != nil {
				return err
			}
			if backup != "" {
				r.Notice("Backed up existing config to: %s", backup)
			}
			return r.PrintValue(r.Success.Render("Configuration reset to defaults."))
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation")
	return cmd
}
