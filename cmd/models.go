package cmd

import (
	"adw/cli/internal/config"
	"adw/cli/internal/router"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// modelsCmd prints which model each task type is routed to.
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Show the task type to model routing table",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		r, err := router.New(cfg.Models.HeavyLifting, cfg.Models.Lightweight)
		if err != nil {
			return err
		}

		data := pterm.TableData{{"Task type", "Tier", "Model"}}
		for _, e := range r.Table() {
			data = append(data, []string{string(e.TaskType), string(e.Tier), e.Model})
		}
		return pterm.DefaultTable.WithHasHeader().WithWriter(cmd.OutOrStdout()).WithData(data).Render()
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
