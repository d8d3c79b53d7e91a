package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"socialfetch/pkg/config"
	"socialfetch/pkg/session"
)

var sessionFile string

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect or reset the stored Browserbase context",
}

var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored context id and when it was saved",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := session.NewStore(resolveSessionFile(), nil)
		info, err := store.Info()
		if err != nil {
			return err
		}

		p := printer()
		if info == nil {
			p.Warning(fmt.Sprintf("No session stored in %s", store.Path()))
			return nil
		}
		p.Info("File", info.Path)
		p.Info("Context", info.ContextID)
		p.Info("Updated", fmt.Sprintf("%s (%s ago)", info.UpdatedAt.Format(time.RFC3339), time.Since(info.UpdatedAt).Round(time.Second)))
		return nil
	},
}

var sessionResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget the stored context so the next run logs in again",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := session.NewStore(resolveSessionFile(), nil)
		if !store.Exists() {
			printer().Info("Session", "nothing to reset")
			return nil
		}
		if err := store.Delete(); err != nil {
			return err
		}
		printer().Success("Removed " + store.Path())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionShowCmd, sessionResetCmd)
	sessionCmd.PersistentFlags().StringVar(&sessionFile, "session-file", "", "session file (default from config, .linkedin_context_id)")
}

// resolveSessionFile prefers the flag, then the configured LinkedIn session
func resolveSessionFile() string {
	if sessionFile != "" {
		return sessionFile
	}
	if cfg, err := config.Load(configFile, nil); err == nil {
		return cfg.LinkedIn.SessionFile
	}
	return session.DefaultFile
}
