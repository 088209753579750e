package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sternrassler/jam/internal/input"
	"github.com/Sternrassler/jam/pkg/jumpcloud"
)

// NewGroupsCmd creates the groups command group.
func NewGroupsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "groups",
		Aliases: []string{"group"},
		Short:   "Query JumpCloud user groups",
	}

	cmd.AddCommand(
		newGroupsListCmd(),
		newGroupsMembersCmd(),
	)
	return cmd
}

func newGroupsListCmd() *cobra.Command {
	var (
		export  exportFlags
		raw     []string
		filters jumpcloud.GroupFilters
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all user groups",
		Long: `List all user groups in JumpCloud.

Groups can be filtered with --name or with JumpCloud's v2 filter syntax,
e.g. '--filter name:search:Engineering'. Both kinds combine into one filter
list.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, ctx, err := requireApp(cmd)
			if err != nil {
				return err
			}

			groups, err := app.Service.ListGroups(ctx, filters.Expressions(raw))
			if err != nil {
				return err
			}
			return present(app, "User Groups", groups, app.Config.ConsoleGroupFields, app.Config.CSVGroupFields, export)
		},
	}

	cmd.Flags().StringArrayVar(&raw, "filter", nil, "Filter in JumpCloud's v2 syntax, e.g. 'name:search:Engineering' (repeatable)")
	cmd.Flags().StringVar(&filters.Name, "name", "", "Filter by exact group name")
	export.register(cmd, "groups")
	return cmd
}

func newGroupsMembersCmd() *cobra.Command {
	var export exportFlags

	cmd := &cobra.Command{
		Use:     "get-members [GROUP_ID]",
		Aliases: []string{"members"},
		Short:   "List the members of a user group",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, ctx, err := requireApp(cmd)
			if err != nil {
				return err
			}

			groupID, err := app.Input.Argument(input.FirstArg(args), "Group ID")
			if err != nil {
				return err
			}
			members, err := app.Service.GroupMembers(ctx, groupID)
			if err != nil {
				return err
			}
			return present(app, "Group Members", members, app.Config.ConsoleUserFields, app.Config.CSVUserFields, export)
		},
	}

	export.register(cmd, "users")
	return cmd
}
