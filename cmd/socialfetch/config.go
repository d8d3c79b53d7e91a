package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"socialfetch/pkg/config"
	errs "socialfetch/pkg/errors"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Create, show or check the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configFile
		if path == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return errs.Wrap(errs.ErrorTypeFilesystem, err, "cannot resolve home directory")
			}
			path = filepath.Join(home, ".config", "socialfetch", "config.yaml")
		}

		if _, err := os.Stat(path); err == nil && !configForce {
			return errs.New(errs.ErrorTypeValidation, "%s already exists (use --force to replace it)", path)
		}
		if err := config.DefaultConfig().Save(path); err != nil {
			return errs.Wrap(errs.ErrorTypeFilesystem, err, "failed to write config")
		}

		printer().Success("Wrote " + path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with secrets masked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile, flagValues(cmd, nil))
		if err != nil {
			return errs.Wrap(errs.ErrorTypeValidation, err, "invalid configuration")
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(cfg.Redacted())
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load the configuration and report problems",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := config.Load(configFile, flagValues(cmd, nil)); err != nil {
			return errs.Wrap(errs.ErrorTypeValidation, err, "invalid configuration")
		}
		printer().Success("Configuration is valid")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd, configValidateCmd)
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "overwrite an existing file")
}
