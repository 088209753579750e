package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sternrassler/jam/internal/input"
	"github.com/Sternrassler/jam/internal/output"
	"github.com/Sternrassler/jam/pkg/jumpcloud"
)

// NewSystemsCmd creates the systems command group.
func NewSystemsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "systems",
		Aliases: []string{"system"},
		Short:   "Query JumpCloud systems",
	}

	cmd.AddCommand(
		newSystemsListCmd(),
		newSystemsGetCmd(),
		newSystemsFindCmd(),
		newSystemsFDEKeyCmd(),
		newSystemsBoundUsersCmd(),
	)
	return cmd
}

func newSystemsListCmd() *cobra.Command {
	var (
		export  exportFlags
		raw     []string
		filters jumpcloud.SystemFilters
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all systems",
		Long: `List all systems in JumpCloud.

Systems can be filtered with the shorthand flags or with JumpCloud's filter
syntax, e.g. '--os Windows' or '--filter os:$eq:Windows'. Both kinds combine
into one filter list.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, ctx, err := requireApp(cmd)
			if err != nil {
				return err
			}

			systems, err := app.Service.ListSystems(ctx, filters.Expressions(raw))
			if err != nil {
				return err
			}
			return present(app, "Systems", systems, app.Config.ConsoleSystemFields, app.Config.CSVSystemFields, export)
		},
	}

	cmd.Flags().StringArrayVar(&raw, "filter", nil, "Filter in JumpCloud's syntax, e.g. 'os:$eq:Windows' (repeatable)")
	cmd.Flags().StringVar(&filters.OS, "os", "", "Filter by operating system, e.g. 'Mac OS X'")
	cmd.Flags().StringVar(&filters.OSFamily, "os-family", "", "Filter by OS family, e.g. 'darwin'")
	export.register(cmd, "systems")
	return cmd
}

func newSystemsGetCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "get [SYSTEM_ID...]",
		Short: "Get systems by id",
		Long:  "Get JumpCloud systems by id. Ids are read from standard input, one per line, when none are given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, ctx, err := requireApp(cmd)
			if err != nil {
				return err
			}

			ids, err := app.Input.List(args)
			if err != nil {
				return err
			}
			systems, err := app.Service.GetSystems(ctx, ids)
			if err != nil {
				return err
			}
			return output.PrintRecords(app.Output, "Systems", systems, app.Config.ConsoleSystemFields, asJSON)
		},
	}

	registerJSON(cmd, &asJSON, "systems")
	return cmd
}

func newSystemsFindCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "find [HOSTNAME|SERIAL]",
		Short: "Find a system's id by hostname or serial number",
		Long: `Find a JumpCloud system's id by hostname or serial number. A single match
prints the id; several matches print a table.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, ctx, err := requireApp(cmd)
			if err != nil {
				return err
			}

			query, err := app.Input.Argument(input.FirstArg(args), "Hostname or serial number")
			if err != nil {
				return err
			}
			systems, err := app.Service.FindSystems(ctx, query)
			if err != nil {
				return err
			}
			return presentMatches(app, "systems", query, systems, app.Config.ConsoleSystemFields, asJSON)
		},
	}

	registerJSON(cmd, &asJSON, "systems")
	return cmd
}

func newSystemsFDEKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fde-key [SYSTEM_ID]",
		Short: "Print the full disk encryption key of a system",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, ctx, err := requireApp(cmd)
			if err != nil {
				return err
			}

			systemID, err := app.Input.Argument(input.FirstArg(args), "System ID")
			if err != nil {
				return err
			}
			key, err := app.Service.FDEKey(ctx, systemID)
			if err != nil {
				return err
			}
			return app.Output.PrintValue(key)
		},
	}
}

func newSystemsBoundUsersCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "bound-users [SYSTEM_ID]",
		Short: "List the users bound to a system",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, ctx, err := requireApp(cmd)
			if err != nil {
				return err
			}

			systemID, err := app.Input.Argument(input.FirstArg(args), "System ID")
			if err != nil {
				return err
			}
			users, err := app.Service.SystemBoundUsers(ctx, systemID)
			if err != nil {
				return err
			}
			return output.PrintRecords(app.Output, "Users", users, app.Config.ConsoleUserFields, asJSON)
		},
	}

	registerJSON(cmd, &asJSON, "users")
	return cmd
}
