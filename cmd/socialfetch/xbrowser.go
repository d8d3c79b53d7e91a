package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	errs "socialfetch/pkg/errors"
	"socialfetch/pkg/sink"
	"socialfetch/pkg/xbrowser"
)

var (
	xbMaxPosts    int
	xbOutput      string
	xbSessionFile string
	xbReset       bool
)

var xBrowserCmd = &cobra.Command{
	Use:   "x-browser <username>",
	Short: "Scrape an X timeline through a Browserbase cloud browser",
	Long: `Scroll an X profile timeline in a remote browser and collect the rendered posts.

X shows little to logged-out visitors; prefer x-posts, which uses the API.
Requires BROWSERBASE_API_KEY and BROWSERBASE_PROJECT_ID.`,
	Deprecated: "use x-posts, which reads the X API v2 instead of the rendered page",
	Example:    `  socialfetch x-browser jack -n 20`,
	Args:       cobra.ExactArgs(1),
	RunE:       runXBrowser,
}

func init() {
	rootCmd.AddCommand(xBrowserCmd)

	f := xBrowserCmd.Flags()
	f.IntVarP(&xbMaxPosts, "max-posts", "n", 10, "number of posts to collect")
	f.StringVarP(&xbOutput, "output", "o", "results/posts.json", "output file (- for stdout)")
	f.StringVar(&xbSessionFile, "session-file", ".x_context_id", "file holding the Browserbase context id")
	f.BoolVar(&xbReset, "reset-session", false, "forget the stored context first")
}

func runXBrowser(cmd *cobra.Command, args []string) error {
	if xbMaxPosts <= 0 {
		return errs.New(errs.ErrorTypeValidation, "--max-posts must be positive")
	}

	a, err := setup(cmd, map[string]string{"output": "", "session-file": ""})
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	live, err := a.openBrowser(ctx, xbSessionFile, xbReset)
	if err != nil {
		return err
	}
	defer closeBrowser(live)

	return scrapeTimeline(ctx, a, xbrowser.NewScraper(live.Page, a.log), args[0])
}

func scrapeTimeline(ctx context.Context, a *app, s *xbrowser.Scraper, username string) error {
	out, err := s.Scrape(ctx, username, xbMaxPosts)
	if err != nil {
		return err
	}

	if err := a.export(ctx, sink.Records("x-browser", out.User.Username, a.runID, out.Posts, xbrowser.Tweet.Key)); err != nil {
		return err
	}
	if err := a.writeOutput(xbOutput, out); err != nil {
		return err
	}

	a.notifier.Success("x-browser", fmt.Sprintf("%d posts from @%s", out.PostCount, out.User.Username))
	return nil
}
