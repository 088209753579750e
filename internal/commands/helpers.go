// Package commands implements the jam subcommands.
package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/jam/internal/appctx"
	"github.com/Sternrassler/jam/internal/config"
	"github.com/Sternrassler/jam/internal/output"
)

// requireApp returns the app from the command context together with the
// context fetches should run under.
func requireApp(cmd *cobra.Command) (*appctx.App, context.Context, error) {
	app := appctx.FromContext(cmd.Context())
	if app == nil {
		return nil, nil, output.ErrUsage("Command requires configuration; run: jam config show")
	}
	return app, app.Context(cmd.Context()), nil
}

// exportFlags are shared by the commands that can write a CSV file.
type exportFlags struct {
	json    bool
	csvFile string
}

func (f *exportFlags) register(cmd *cobra.Command, what string) {
	cmd.Flags().BoolVarP(&f.json, "json", "j", false, "Return full JSON models of the "+what)
	cmd.Flags().StringVar(&f.csvFile, "csv", "", "Export result to the specified CSV file")
}

func registerJSON(cmd *cobra.Command, dst *bool, what string) {
	cmd.Flags().BoolVarP(dst, "json", "j", false, "Return full JSON models of the "+what)
}

// present prints records and, when a CSV path is given, exports them too.
func present[T output.Record](app *appctx.App, title string, records []T, console, csv config.FieldMap, flags exportFlags) error {
	if err := output.PrintRecords(app.Output, title, records, console, flags.json); err != nil {
		return err
	}
	if flags.csvFile != "" {
		return output.WriteCSV(app.Output, flags.csvFile, records, csv)
	}
	return nil
}

// presentMatches prints search results: a lone match as its id, several as a
// table, none as a notice.
func presentMatches[T output.Record](app *appctx.App, what, query string, records []T, console config.FieldMap, asJSON bool) error {
	switch {
	case asJSON:
		return app.Output.PrintJSON(records)
	case len(records) == 0:
		app.Output.Notice("No %s found matching '%s'.", what, query)
		return nil
	case len(records) == 1:
		return app.Output.PrintValue(records[0].Key())
	default:
		return output.PrintRecords(app.Output, "Search Results", records, console, false)
	}
}
