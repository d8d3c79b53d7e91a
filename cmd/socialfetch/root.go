package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
	errs "socialfetch/pkg/errors"
	"socialfetch/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	quiet      bool
	verbose    bool
	notify     bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "socialfetch",
	Short: "Fetch public posts, search results and papers into JSON archives",
	Long: `socialfetch collects content from several sources and writes it as JSON:

  x-posts      recent posts of an X user through the X API v2
  serp         Google results through a SERP proxy, with archived result pages
  arxiv        arXiv search results with PDF downloads
  linkedin     LinkedIn posts or raw pages through a Browserbase cloud browser

Secrets are read from flags, the environment (.env is loaded), the config
file or the credential store ('socialfetch auth set').`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the mapped status code
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		ui.PrintError("Error", err)
		os.Exit(errs.ExitCode(err))
	}
}

// printer returns the stderr printer for commands that skip setup
func printer() *ui.Printer {
	noColor, _ := rootCmd.PersistentFlags().GetBool("no-color")
	ui.SetNoColor(noColor)
	return ui.Stderr()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", "", "config file (default is ./.socialfetch.yaml or ~/.config/socialfetch/config.yaml)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.BoolVarP(&quiet, "quiet", "q", false, "only log errors")
	pf.BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
	pf.Bool("no-color", false, "disable colored output")
	pf.BoolVar(&notify, "notify", false, "send a desktop notification when a long run ends")
	pf.String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	pf.String("redis-addr", "", "cache GET responses in this Redis instance")
	pf.String("postgres-dsn", "", "also export fetched items to this Postgres database")

	rootCmd.SetVersionTemplate(`socialfetch {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
