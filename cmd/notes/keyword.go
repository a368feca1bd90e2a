package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/smartsum/backend/internal/app"

	"github.com/spf13/cobra"
)

var keywordCmd = &cobra.Command{
	Use:   "keyword [file|-]",
	Short: "Extract what the input says about one keyword",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, nil)
		if err != nil {
			return err
		}
		src, err := sourceFromArgs(cmd, args)
		if err != nil {
			return err
		}
		core, err := app.NewCore(cfg)
		if err != nil {
			return err
		}

		text, err := core.Loader.LoadText(cmd.Context(), src)
		if err != nil {
			return fmt.Errorf("load input: %w", err)
		}
		keyword, _ := cmd.Flags().GetString("keyword")

		res := core.Processor.Query(cmd.Context(), text, keyword)
		out, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		if res.Error != "" {
			return errors.New(res.Error)
		}
		return nil
	},
}

func init() {
	keywordCmd.Flags().String("keyword", "", "keyword to focus on")
	keywordCmd.Flags().String("url", "", "fetch and query a web page")
	keywordCmd.Flags().String("media", "", "transcribe and query an audio or video file")
	keywordCmd.Flags().String("name", "", "document name")

	rootCmd.AddCommand(keywordCmd)
}
