package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/jam/internal/input"
	"github.com/Sternrassler/jam/internal/output"
	"github.com/Sternrassler/jam/pkg/jumpcloud"
)

// NewUsersCmd creates the users command group.
func NewUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "users",
		Aliases: []string{"user"},
		Short:   "Query JumpCloud system users",
	}

	cmd.AddCommand(
		newUsersListCmd(),
		newUsersGetCmd(),
		newUsersFindCmd(),
		newUsersBoundSystemsCmd(),
	)
	return cmd
}

func newUsersListCmd() *cobra.Command {
	var (
		export  exportFlags
		raw     []string
		filters jumpcloud.UserFilters
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all system users",
		Long: `List all system users in JumpCloud.

Users can be filtered with the shorthand flags or with JumpCloud's filter
syntax. Both kinds combine into one filter list, so
'--state ACTIVATED --department Engineering' is the same as
'--filter state:$eq:ACTIVATED --filter department:$eq:Engineering'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, ctx, err := requireApp(cmd)
			if err != nil {
				return err
			}

			if filters.State != "" {
				state := jumpcloud.State(strings.ToUpper(filters.State))
				if !state.Valid() {
					return output.ErrUsageHint("Invalid state: "+filters.State, "Use ACTIVATED, SUSPENDED or STAGED")
				}
				filters.State = string(state)
			}

			users, err := app.Service.ListUsers(ctx, filters.Expressions(raw))
			if err != nil {
				return err
			}
			return present(app, "Users", users, app.Config.ConsoleUserFields, app.Config.CSVUserFields, export)
		},
	}

	cmd.Flags().StringArrayVar(&raw, "filter", nil, "Filter in JumpCloud's syntax, e.g. 'employeeType:$eq:Contractor' (repeatable)")
	cmd.Flags().StringVar(&filters.Department, "department", "", "Filter by department, e.g. 'Engineering'")
	cmd.Flags().StringVar(&filters.CostCenter, "cost-center", "", "Filter by cost center, e.g. 'Data Engineering'")
	cmd.Flags().StringVar(&filters.Title, "title", "", "Filter by job title, e.g. 'Data Engineer'")
	cmd.Flags().StringVar(&filters.State, "state", "", "Filter by state: ACTIVATED, SUSPENDED or STAGED")
	export.register(cmd, "users")
	return cmd
}

func newUsersGetCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "get [USER_ID...]",
		Short: "Get system users by id",
		Long: `Get JumpCloud system users by id. Ids are read from standard input, one
per line, when none are given. Use 'jam users find' to look up an id by email.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, ctx, err := requireApp(cmd)
			if err != nil {
				return err
			}

			ids, err := app.Input.List(args)
			if err != nil {
				return err
			}
			users, err := app.Service.GetUsers(ctx, ids)
			if err != nil {
				return err
			}
			return output.PrintRecords(app.Output, "Users", users, app.Config.ConsoleUserFields, asJSON)
		},
	}

	registerJSON(cmd, &asJSON, "users")
	return cmd
}

func newUsersFindCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "find [EMAIL]",
		Short: "Find a user's id by email address",
		Long: `Find a JumpCloud user's id by email address. A single match prints the id;
several matches print a table.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, ctx, err := requireApp(cmd)
			if err != nil {
				return err
			}

			email, err := app.Input.Argument(input.FirstArg(args), "Email")
			if err != nil {
				return err
			}
			users, err := app.Service.FindUsers(ctx, email)
			if err != nil {
				return err
			}
			return presentMatches(app, "users", email, users, app.Config.ConsoleUserFields, asJSON)
		},
	}

	registerJSON(cmd, &asJSON, "users")
	return cmd
}

func newUsersBoundSystemsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "bound-systems [USER_ID]",
		Short: "List the systems bound to a user",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, ctx, err := requireApp(cmd)
			if err != nil {
				return err
			}

			userID, err := app.Input.Argument(input.FirstArg(args), "User ID")
			if err != nil {
				return err
			}
			systems, err := app.Service.UserBoundSystems(ctx, userID)
			if err != nil {
				return err
			}
			return output.PrintRecords(app.Output, "Systems", systems, app.Config.ConsoleSystemFields, asJSON)
		},
	}

	registerJSON(cmd, &asJSON, "systems")
	return cmd
}
