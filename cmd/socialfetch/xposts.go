package main

import (
	"fmt"

	"github.com/spf13/cobra"
	errs "socialfetch/pkg/errors"
	"socialfetch/pkg/ratelimit"
	"socialfetch/pkg/sink"
	"socialfetch/pkg/xapi"
)

var (
	xMaxResults int
	xOutput     string
	xRaw        bool
)

var xPostsCmd = &cobra.Command{
	Use:   "x-posts <username>",
	Short: "Fetch recent posts of an X user through the X API v2",
	Long: `Resolve an X username and page through its timeline with the X API v2.

Requires X_BEARER_TOKEN (environment, .env, config file, or 'socialfetch auth set x').
Without --output the JSON document is written to stdout.`,
	Example: `  socialfetch x-posts jack
  socialfetch x-posts @nasa -n 250 -o results/nasa.json
  socialfetch x-posts jack --raw`,
	Args: cobra.ExactArgs(1),
	RunE: runXPosts,
}

func init() {
	rootCmd.AddCommand(xPostsCmd)

	f := xPostsCmd.Flags()
	f.IntVarP(&xMaxResults, "max-results", "n", 10, "number of posts to fetch")
	f.StringVarP(&xOutput, "output", "o", "", "output file (default stdout)")
	f.BoolVar(&xRaw, "raw", false, "write the full API objects instead of the compact records")
	f.String("base-url", xapi.DefaultBaseURL, "X API base URL")
	f.Float64("timeout", 30, "request timeout in seconds")
	f.Int("max-retries", 3, "retries for 429, 5xx and network errors")
	f.Float64("retry-backoff", 2, "initial retry backoff in seconds, doubled on each retry")
}

func runXPosts(cmd *cobra.Command, args []string) error {
	if xMaxResults <= 0 {
		return errs.New(errs.ErrorTypeValidation, "--max-results must be positive")
	}

	a, err := setup(cmd, map[string]string{
		"base-url": "x-base-url",
		"timeout":  "x-timeout",
		"output":   "",
	})
	if err != nil {
		return err
	}
	defer a.close()

	cfg := a.cfg
	if err := requireSecret(cfg.X.BearerToken, "X_BEARER_TOKEN", "x"); err != nil {
		return err
	}

	ctx := cmd.Context()
	hc := a.newClient("x", cfg.X.Timeout, xapi.AuthHeaders(cfg.X.BearerToken), cfg.X.BearerToken,
		a.retryPolicy(ctx, cfg.Retry.MaxRetries, cfg.Retry.InitialBackoff))
	client := xapi.NewClient(hc, cfg.X.BaseURL, ratelimit.ForDelay(cfg.X.PageDelay), a.log)

	user, err := client.UserByUsername(ctx, args[0])
	if err != nil {
		return err
	}
	a.printer.Info("User", fmt.Sprintf("%s (@%s, id %s)", user.Name, user.Username, user.ID))

	tweets, err := client.UserTweets(ctx, user.ID, xMaxResults)
	if err != nil {
		return err
	}

	if err := a.export(ctx, sink.Records("x", user.Username, a.runID, tweets, func(t xapi.Tweet) string { return t.ID })); err != nil {
		return err
	}
	if err := a.writeOutput(xOutput, xapi.BuildOutput(user, tweets, xRaw)); err != nil {
		return err
	}

	a.notifier.Success("x-posts", fmt.Sprintf("%d posts from @%s", len(tweets), user.Username))
	return nil
}
