package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"adw/cli/internal/httperrors"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// healthCmd probes the agent server independently of any session.
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the agent server is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := loadRuntime(cmd)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		defer cancel()

		stop := func() {}
		if stdoutIsTerminal() {
			stop = startInlineSpinner(os.Stdout, "Contacting "+rt.cfg.ServerURL)
		}
		st, err := rt.api.Health(ctx)
		stop()
		if err != nil {
			return httperrors.FormatNetworkError(err, "checking server health", rt.cfg.ServerURL)
		}
		if !st.Healthy {
			pterm.Warning.Printfln("Server at %s reports unhealthy", rt.cfg.ServerURL)
			return fmt.Errorf("server unhealthy")
		}

		version := st.Version
		if version == "" {
			version = "unknown"
		}
		pterm.Success.Printfln("Server at %s is healthy (version %s)", rt.cfg.ServerURL, version)
		pterm.Printfln("Token source: %s", rt.tokenSource)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
