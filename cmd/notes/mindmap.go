package main

import (
	"fmt"

	"github.com/smartsum/backend/internal/app"
	"github.com/smartsum/backend/pkg/notes"

	"github.com/spf13/cobra"
)

var mindmapCmd = &cobra.Command{
	Use:   "mindmap",
	Short: "Render a Mermaid mindmap for a concept",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, nil)
		if err != nil {
			return err
		}
		concept, _ := cmd.Flags().GetString("concept")
		if concept == "" {
			return fmt.Errorf("--concept is required")
		}
		core, err := app.NewCore(cfg)
		if err != nil {
			return err
		}

		res := notes.NewMindmapper(core.AI, cfg.AI.ChatModel).Generate(cmd.Context(), concept)
		if res.Skipped {
			return fmt.Errorf("mindmap not generated: %s", res.Reason)
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.Value)
		return nil
	},
}

func init() {
	mindmapCmd.Flags().String("concept", "", "concept at the root of the mindmap")

	rootCmd.AddCommand(mindmapCmd)
}
