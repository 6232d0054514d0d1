// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"adw/cli/internal/auth"
	"adw/cli/internal/keychain"

	"github.com/spf13/cobra"
)

var logoutAll bool

// logoutCmd removes the stored server token, and with --all every adw secret.
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored server token",
	Long: `The logout command removes the agent server token from the OS keychain.
With --all it also removes the stored audit database DSN.

A token supplied through ADW_SERVER_TOKEN cannot be cleared from here; unset
the variable instead.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		envStillSet, err := auth.NewService().Logout()
		if err != nil {
			return err
		}
		if logoutAll {
			km, err := keychain.GetManager()
			if err != nil {
				return err
			}
			if err := km.ClearAll(); err != nil {
				return err
			}
			fmt.Println("✅ All stored secrets have been removed")
		} else {
			fmt.Println("✅ Server token removed")
		}
		if envStillSet {
			fmt.Printf("   Note: %s is still set in your environment.\n", auth.EnvToken)
		}
		return nil
	},
}

func init() {
	logoutCmd.Flags().BoolVar(&logoutAll, "all", false, "Also remove the audit database DSN")
	rootCmd.AddCommand(logoutCmd)
}
