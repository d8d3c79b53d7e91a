package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	errs "socialfetch/pkg/errors"
	"socialfetch/pkg/linkedin"
	"socialfetch/pkg/sink"
	"socialfetch/pkg/storage"
)

var (
	liMaxPosts     int
	liOutput       string
	liOutputDir    string
	liResetSession bool
)

var linkedinCmd = &cobra.Command{
	Use:   "linkedin",
	Short: "Scrape LinkedIn profiles through a Browserbase cloud browser",
	Long: `Scrape LinkedIn profiles and company pages with a logged-in remote browser.

The Browserbase context is kept in the session file, so the login (and any
security checkpoint) only has to happen once. Requires BROWSERBASE_API_KEY,
BROWSERBASE_PROJECT_ID, LINKEDIN_EMAIL and LINKEDIN_PASSWORD. Set
LINKEDIN_TOTP_SECRET to answer two-step verification automatically.`,
}

var linkedinPostsCmd = &cobra.Command{
	Use:   "posts <profile>",
	Short: "Collect recent posts of a profile or company page",
	Example: `  socialfetch linkedin posts satyanadella -n 20
  socialfetch linkedin posts https://www.linkedin.com/company/microsoft/ -o msft.json
  socialfetch linkedin posts williamhgates --reset-session`,
	Args: cobra.ExactArgs(1),
	RunE: runLinkedInPosts,
}

var linkedinHTMLCmd = &cobra.Command{
	Use:   "html <profile>",
	Short: "Save the rendered profile and activity pages as HTML",
	Example: `  socialfetch linkedin html satyanadella
  socialfetch linkedin html company/openai -o archive/openai`,
	Args: cobra.ExactArgs(1),
	RunE: runLinkedInHTML,
}

func init() {
	rootCmd.AddCommand(linkedinCmd)
	linkedinCmd.AddCommand(linkedinPostsCmd, linkedinHTMLCmd)

	pf := linkedinCmd.PersistentFlags()
	pf.String("session-file", "", "file holding the Browserbase context id (default .linkedin_context_id)")
	pf.BoolVar(&liResetSession, "reset-session", false, "forget the stored context and log in again")

	f := linkedinPostsCmd.Flags()
	f.IntVarP(&liMaxPosts, "max-posts", "n", 10, "number of posts to collect")
	f.StringVarP(&liOutput, "output", "o", "linkedin_posts.json", "output file (- for stdout)")

	linkedinHTMLCmd.Flags().StringVarP(&liOutputDir, "output-dir", "o", "linkedin_html", "directory for the HTML files")
}

// linkedinSession logs in on a fresh browser and hands it to fn
func linkedinSession(cmd *cobra.Command, fn func(ctx context.Context, a *app, b *linkedin.Browser) error) error {
	a, err := setup(cmd, map[string]string{"output": ""})
	if err != nil {
		return err
	}
	defer a.close()

	cfg := a.cfg
	creds := linkedin.Credentials{
		Email:      cfg.LinkedIn.Email,
		Password:   cfg.LinkedIn.Password,
		TOTPSecret: cfg.LinkedIn.TOTPSecret,
	}
	if err := creds.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	live, err := a.openBrowser(ctx, cfg.LinkedIn.SessionFile, liResetSession)
	if err != nil {
		return err
	}
	defer closeBrowser(live)

	b := linkedin.NewBrowser(live.Page, a.log)
	b.CheckpointTimeout = cfg.LinkedIn.LoginTimeout
	if err := b.EnsureLoggedIn(ctx, creds); err != nil {
		return err
	}
	return fn(ctx, a, b)
}

func runLinkedInPosts(cmd *cobra.Command, args []string) error {
	profile, err := linkedin.NormalizeProfile(args[0])
	if err != nil {
		return err
	}
	if liMaxPosts <= 0 {
		return errs.New(errs.ErrorTypeValidation, "--max-posts must be positive")
	}

	return linkedinSession(cmd, func(ctx context.Context, a *app, b *linkedin.Browser) error {
		out, err := b.ScrapePosts(ctx, profile, liMaxPosts)
		if err != nil {
			return err
		}

		if err := a.export(ctx, sink.Records("linkedin", profile.Handle, a.runID, out.Posts, linkedin.Post.Key)); err != nil {
			return err
		}
		if err := a.writeOutput(liOutput, out); err != nil {
			return err
		}

		if out.PostCount == 0 {
			a.printer.Warning("No posts found; the activity page may be empty or private")
		}
		a.notifier.Success("linkedin", fmt.Sprintf("%d posts from %s", out.PostCount, profile.Handle))
		return nil
	})
}

func runLinkedInHTML(cmd *cobra.Command, args []string) error {
	profile, err := linkedin.NormalizeProfile(args[0])
	if err != nil {
		return err
	}

	return linkedinSession(cmd, func(ctx context.Context, a *app, b *linkedin.Browser) error {
		store, err := storage.NewArtifactStore(liOutputDir, true)
		if err != nil {
			return err
		}

		archive, err := b.ArchiveHTML(ctx, profile, store)
		if err != nil {
			return err
		}

		a.printer.Info("Profile", archive.ProfileFile)
		a.printer.Info("Activity", archive.ActivityFile)
		a.notifier.Success("linkedin", "saved HTML for "+profile.Handle)
		return nil
	})
}
