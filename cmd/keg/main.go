package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/smartystreets/keg/shell"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	environment := shell.NewEnvironment()
	logger := log.NewWithOptions(stderr, log.Options{ReportTimestamp: true, Prefix: "keg"})

	root := newRootCommand(environment, stdout, logger)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err != nil {
		logger.Error(err)
	}
	return exitCode(err)
}

func newRootCommand(environment *shell.Environment, stdout io.Writer, logger *log.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:           "keg",
		Short:         "Install desktop applications described by package manifests",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	bindFlags(root, environment)

	newApp := func(command *cobra.Command) (*App, error) {
		config, err := loadConfig(command)
		if err != nil {
			return nil, err
		}
		level, err := log.ParseLevel(config.LogLevel)
		if err != nil {
			return nil, err
		}
		logger.SetLevel(level)
		return NewApp(config, environment.HomeDirectory(), stdout, logger), nil
	}
	packages := func(use, short string, operation func(*App, context.Context, []string) error) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <identifier>...",
			Short: short,
			Args:  cobra.MinimumNArgs(1),
			RunE: func(command *cobra.Command, args []string) error {
				app, err := newApp(command)
				if err != nil {
					return err
				}
				return operation(app, command.Context(), args)
			},
		}
	}

	root.AddCommand(
		packages("install", "Install packages that are missing or damaged", (*App).Install),
		packages("upgrade", "Install newer catalog versions over installed packages", (*App).Upgrade),
		packages("uninstall", "Remove installed packages and their cleanup paths", (*App).Uninstall),
		packages("check-update", "Probe upstream for versions newer than the catalog's", (*App).CheckForUpdate),
		&cobra.Command{
			Use:   "list [identifier]...",
			Short: "List installed packages",
			RunE: func(command *cobra.Command, args []string) error {
				app, err := newApp(command)
				if err != nil {
					return err
				}
				return app.List(args)
			},
		},
		&cobra.Command{
			Use:   "available",
			Short: "List packages in the catalog",
			Args:  cobra.NoArgs,
			RunE: func(command *cobra.Command, _ []string) error {
				app, err := newApp(command)
				if err != nil {
					return err
				}
				return app.Available()
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the keg version",
			Args:  cobra.NoArgs,
			Run: func(command *cobra.Command, _ []string) {
				_, _ = fmt.Fprintf(command.OutOrStdout(), "keg [%s]\n", ldflagsSoftwareVersion)
			},
		},
	)
	return root
}

var ldflagsSoftwareVersion = "debug"
