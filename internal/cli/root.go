// Package cli wires the jam command tree.
package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/jam/internal/appctx"
	"github.com/Sternrassler/jam/internal/commands"
	"github.com/Sternrassler/jam/internal/config"
	"github.com/Sternrassler/jam/internal/output"
	"github.com/Sternrassler/jam/internal/version"
	"github.com/Sternrassler/jam/pkg/logging"
)

// NewRootCmd creates the root cobra command.
func NewRootCmd() *cobra.Command {
	var flags appctx.GlobalFlags

	cmd := &cobra.Command{
		Use:   "jam",
		Short: "Command-line client for the JumpCloud API",
		Long: `jam queries JumpCloud users, systems and user groups.

Results print as a table in a terminal, as bare ids when piped, or as JSON
with -j. Commands taking an id read it from standard input when it is not
given, so lookups chain: jam users find ada@example.com | jam users bound-systems`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(flags, "")

			if skipSetup(cmd) {
				return nil
			}

			cfg, err := config.Load(config.Path(), config.FlagOverrides{
				APIURL:         flags.APIURL,
				Limit:          flags.Limit,
				MaxConcurrency: flags.MaxConcurrency,
				MetricsFile:    flags.MetricsFile,
			})
			if err != nil {
				return output.ErrUsageHint("Invalid configuration: "+err.Error(), "Check "+config.Path())
			}
			if flags.Verbose == 0 && cfg.LogLevel != "" {
				setupLogging(flags, logging.LogLevel(cfg.LogLevel))
			}

			app, err := appctx.NewApp(cmd.Context(), cfg, flags)
			if err != nil {
				return err
			}
			cmd.SetContext(appctx.WithApp(cmd.Context(), app))
			return nil
		},
	}

	cmd.SetVersionTemplate(version.Full() + "\n")

	// Allow flags anywhere in the command line
	cmd.Flags().SetInterspersed(true)
	cmd.PersistentFlags().SetInterspersed(true)

	// Override flags
	cmd.PersistentFlags().StringVar(&flags.APIURL, "api-url", "", "JumpCloud API base URL")
	cmd.PersistentFlags().IntVar(&flags.Limit, "limit", 0, "Page size for list requests")
	cmd.PersistentFlags().IntVar(&flags.MaxConcurrency, "max-concurrency", 0, "Maximum in-flight requests per fetch (0 = unbounded)")

	// Behavior flags
	cmd.PersistentFlags().CountVarP(&flags.Verbose, "verbose", "v", "Verbose logging (-v for info, -vv for debug)")
	cmd.PersistentFlags().BoolVar(&flags.LogJSON, "log-json", false, "Write logs as JSON lines")
	cmd.PersistentFlags().BoolVar(&flags.NoProgress, "no-progress", false, "Disable progress bars")
	cmd.PersistentFlags().StringVar(&flags.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit")

	cmd.AddCommand(
		commands.NewUsersCmd(),
		commands.NewSystemsCmd(),
		commands.NewGroupsCmd(),
		commands.NewAuthCmd(),
		commands.NewConfigCmd(),
		commands.NewCacheCmd(),
	)

	return cmd
}

func setupLogging(flags appctx.GlobalFlags, level logging.LogLevel) {
	if level == "" {
		level = logging.LevelForVerbosity(flags.Verbose)
	}
	logging.Setup(logging.Config{
		Level:  level,
		JSON:   flags.LogJSON,
		Output: os.Stderr,
	})
}

// skipSetup reports whether cmd runs without configuration and credentials.
func skipSetup(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "version", "config", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return true
		}
	}
	return false
}

// Execute runs the root command and exits with the code of its error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, NewRootCmd(), os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

// run executes root with args and returns the process exit code. The app,
// if one was set up, is closed whether or not the command failed.
func run(ctx context.Context, root *cobra.Command, args []string, stderr io.Writer) int {
	root.SetArgs(args)

	executedCmd, err := root.ExecuteContextC(ctx)

	if executedCmd != nil {
		if app := appctx.FromContext(executedCmd.Context()); app != nil {
			// Close with a fresh context so an interrupt still persists the token.
			if closeErr := app.Close(context.WithoutCancel(ctx)); closeErr != nil && err == nil {
				err = closeErr
			}
		}
	}
	if err == nil {
		return 0
	}

	err = transformCobraError(err)
	if errors.Is(err, context.Canceled) {
		return 130
	}

	output.NewRenderer(output.Options{ErrOut: stderr}).PrintError(err)
	return output.AsError(err).ExitCode()
}

var shorthandFlag = regexp.MustCompile(`unknown shorthand flag: '.' in (-\w)`)

// transformCobraError turns cobra's argument errors into usage errors.
func transformCobraError(err error) error {
	var e *output.Error
	if errors.As(err, &e) {
		return err
	}
	msg := err.Error()

	switch {
	case strings.HasPrefix(msg, "flag needs an argument: "):
		flag := strings.TrimPrefix(msg, "flag needs an argument: ")
		return output.ErrUsage(flag + " requires a value")
	case strings.HasPrefix(msg, "unknown flag: "):
		return output.ErrUsage("Unknown option: " + strings.TrimPrefix(msg, "unknown flag: "))
	case strings.HasPrefix(msg, "unknown shorthand flag: "):
		if m := shorthandFlag.FindStringSubmatch(msg); len(m) > 1 {
			return output.ErrUsage("Unknown option: " + m[1])
		}
		return output.ErrUsage(msg)
	case strings.HasPrefix(msg, "unknown command "):
		return output.ErrUsageHint(msg, "Run: jam --help")
	case strings.Contains(msg, "invalid argument"),
		strings.Contains(msg, "accepts at most"),
		strings.Contains(msg, "unknown command"):
		return output.ErrUsage(msg)
	}
	return err
}
