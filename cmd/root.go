// Package cmd defines the jobmcp CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Mouseminar/job-mcp/internal/app"
	"github.com/Mouseminar/job-mcp/internal/config"
	"github.com/Mouseminar/job-mcp/internal/crawler"
)

// appKeyType is the key for storing the App in the command context.
type appKeyType string

const appKey appKeyType = "app"

// App is what the subcommands need from the application container; tests
// inject a fake through newApp.
type App interface {
	Close()
	Logger() *zap.Logger
	Search(ctx context.Context, query crawler.Query) (crawler.Report, error)
	SearchInterns(ctx context.Context, query crawler.Query) (crawler.Report, error)
	Run(ctx context.Context) error
}

// newApp is the application factory.
var newApp = func(ctx context.Context, configPath string) (App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return app.Build(ctx, cfg)
}

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

// newRootCmd builds the command tree. The returned func closes the app if a
// subcommand failed before PersistentPostRun could.
func newRootCmd() (*cobra.Command, func()) {
	var (
		cfgFile string
		once    sync.Once
		current App
	)
	closeApp := func() {
		once.Do(func() {
			if current != nil {
				current.Close()
			}
		})
	}

	cmd := &cobra.Command{
		Use:   "jobmcp",
		Short: "Aggregate job postings from Boss直聘, 猎聘, 智联招聘 and 前程无忧.",
		Long: `jobmcp fans one job search out to several Chinese job platforms,
normalizes and deduplicates the postings, and reports per-source counts and
failures. Use "search" for a one-off query or "serve" for the HTTP API.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			instance, err := newApp(cmd.Context(), cfgFile)
			if err != nil {
				return &exitError{code: 2, err: fmt.Errorf("initialize application: %w", err)}
			}
			current = instance
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, instance))
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			closeApp()
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newServeCmd())
	return cmd, closeApp
}

func resolveApp(ctx context.Context) (App, error) {
	instance, ok := ctx.Value(appKey).(App)
	if !ok || instance == nil {
		return nil, errors.New("application not initialized")
	}
	return instance, nil
}

// run executes the CLI with args and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root, closeApp := newRootCmd()
	defer closeApp()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	fmt.Fprintln(stderr, "Error:", err)
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	return 1
}

// Execute is the main entry point.
func Execute() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
