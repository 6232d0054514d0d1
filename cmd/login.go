// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"adw/cli/internal/auth"
	"adw/cli/internal/backend"
	"adw/cli/internal/config"
	apperrors "adw/cli/internal/errors"
	"adw/cli/internal/httperrors"
	"adw/cli/internal/terminal"

	"github.com/spf13/cobra"
)

var loginNoVerify bool

// loginCmd stores an agent server API token in the OS keychain.
// The token is checked against the server's health endpoint before it is saved.
var loginCmd = &cobra.Command{
	Use:     "login",
	Aliases: []string{"auth"},
	Short:   "Store the agent server API token in the OS keychain",
	Long: `The login command prompts for the agent server's API token, verifies it against
the server and stores it in the OS keychain. Subsequent commands send it as a
bearer token.

The ADW_SERVER_TOKEN environment variable, when set, takes precedence over the
stored token. The token can also be piped in on stdin.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		token, err := terminal.ReadSecret("Enter agent server token: ")
		if err != nil {
			return err
		}

		var verify auth.Verifier
		if !loginNoVerify {
			verify = func(ctx context.Context, tok string) error {
				ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
				defer cancel()
				stop := startInlineSpinner(os.Stdout, "Verifying token")
				defer stop()
				_, err := backend.New(cfg.ServerURL, tok, cfg.Endpoints).Health(ctx)
				return err
			}
		}

		svc := auth.NewService()
		if err := svc.Login(cmd.Context(), token, verify); err != nil {
			switch apperrors.KindOf(err) {
			case apperrors.Authentication:
				fmt.Println("❌ The server rejected this token.")
				return err
			case apperrors.Connection, apperrors.Timeout, apperrors.Server:
				return httperrors.FormatNetworkError(err, "verifying the token", cfg.ServerURL)
			}
			return err
		}

		fmt.Println("✅ Token saved to the OS keychain")
		if _, src := svc.Token(); src == auth.SourceEnv {
			fmt.Printf("   Note: %s is set and takes precedence.\n", auth.EnvToken)
		}
		return nil
	},
}

func init() {
	loginCmd.Flags().BoolVar(&loginNoVerify, "no-verify", false, "Store the token without contacting the server")
	rootCmd.AddCommand(loginCmd)
}
