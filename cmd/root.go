// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for adw, the agent dispatch
// client. It implements subcommands for dispatching prompts to the agent
// server, probing its health, inspecting model routing and managing the
// server token, using the Cobra CLI framework.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"adw/cli/internal/auth"
	"adw/cli/internal/backend"
	"adw/cli/internal/config"
	"adw/cli/internal/logging"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	showVersion bool
	configPath  string
	verbose     bool
)

// rootCmd represents the base command when called without any subcommands.
// It serves as the entry point for the adw CLI application.
var rootCmd = &cobra.Command{
	Use:           "adw",
	Short:         "adw dispatches prompts to an AI agent server",
	Long:          `adw is a command-line client that routes prompts to the right model tier, dispatches them to an agent server over HTTP with retries, and records every interaction.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			rt, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			serverVersion := "unknown"
			if st, err := rt.api.Health(cmd.Context()); err == nil && st.Version != "" {
				serverVersion = st.Version
			}
			fmt.Printf("adw %s\nserver %s\n", Version, serverVersion)
			return nil
		}
		// If no flag is set, show help
		return cmd.Help()
	},
}

// cliEnv bundles what every server-facing command needs.
type cliEnv struct {
	cfg         config.Config
	log         *pterm.Logger
	api         backend.API
	tokenSource auth.Source
}

// loadRuntime loads and validates configuration, builds the diagnostic
// logger and the HTTP backend carrying the resolved server token.
func loadRuntime(cmd *cobra.Command) (*cliEnv, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	log := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)

	token, src := auth.NewService().Token()
	log.Debug("resolved server token", log.Args("source", string(src)))

	api := backend.New(cfg.ServerURL, token, cfg.Endpoints, backend.WithUserAgent("adw-cli/"+Version))
	return &cliEnv{cfg: cfg, log: log, api: api, tokenSource: src}, nil
}

// Execute runs the CLI application.
// It executes the root command and handles any errors that occur during execution.
// Interrupts cancel the command context so in-flight dispatches stop promptly.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, logging.PresentError("", err))
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show CLI and server version information")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a config file (default $XDG_CONFIG_HOME/adw/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}
