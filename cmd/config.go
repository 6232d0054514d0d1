package cmd

import (
	"errors"
	"fmt"
	"os"

	"adw/cli/internal/config"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configInitForce bool

// configCmd groups commands that inspect and create the config file.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the adw config file",
}

// configShowCmd prints the effective configuration after env overrides.
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cfg.Audit.DSN != "" {
			cfg.Audit.DSN = "(set)"
		}
		b, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(b)
		return err
	},
}

// configInitCmd writes the defaults to the XDG config file.
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := config.Path()
		if err != nil {
			return err
		}
		if _, err := os.Stat(p); err == nil && !configInitForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", p)
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err := config.Save(config.Defaults()); err != nil {
			return err
		}
		fmt.Printf("✅ Wrote %s\n", p)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configShowCmd, configInitCmd)
	rootCmd.AddCommand(configCmd)
}
