package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/menta2k/passport-photo/pkg/layout"
	"github.com/menta2k/passport-photo/pkg/types"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the page layout as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		settings, err := cfg.Settings()
		if err != nil {
			return err
		}
		plan, err := layout.PlanPage(settings.Page, settings.Canvas.Ratio())
		if err != nil {
			return err
		}
		copies := settings.Copies
		if copies <= 0 {
			copies = len(plan.Cells)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Copies int `json:"copies"`
			Pages  int `json:"pages"`
			types.PagePlan
		}{copies, layout.PagesFor(plan, copies), plan})
	},
}

func init() {
	addPipelineFlags(planCmd)
	rootCmd.AddCommand(planCmd)
}
