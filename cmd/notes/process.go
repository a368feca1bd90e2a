package main

import (
	"fmt"

	"github.com/smartsum/backend/internal/app"
	"github.com/smartsum/backend/internal/storage"
	"github.com/smartsum/backend/internal/util"
	"github.com/smartsum/backend/pkg/loader"
	"github.com/smartsum/backend/pkg/logger"

	"github.com/spf13/cobra"
)

var processCmd = &cobra.Command{
	Use:   "process [file|-]",
	Short: "Produce a structured notes report",
	Long: `process segments the input by topic and extracts notes from every
segment. The report is written to stdout; with --out the report and the
mindmap are also saved as <name>.json and <name>_mindmap.mmd.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runProcess,
}

func init() {
	processCmd.Flags().String("url", "", "fetch and process a web page")
	processCmd.Flags().String("media", "", "transcribe and process an audio or video file")
	processCmd.Flags().String("name", "", "document name used for output files")
	processCmd.Flags().Bool("mindmap", true, "render a Mermaid mindmap")
	processCmd.Flags().String("concept", "", "mindmap concept (default: derived from segment topics)")
	processCmd.Flags().Bool("overall-summary", false, "ask for a document-level summary and keywords")
	processCmd.Flags().String("format", "json", "report format: json or yaml")
	processCmd.Flags().String("out", "", "directory to save the report and mindmap to")
	processCmd.Flags().Float64("threshold", 0.5, "similarity below which a new segment starts")
	processCmd.Flags().Int("max-words", 500, "maximum words per segment")
	processCmd.Flags().Int("min-words", 100, "minimum words before a topic shift may split")
	processCmd.Flags().Duration("delay", 0, "pause between extraction calls")
	processCmd.Flags().Int("workers", 1, "concurrent extraction calls")

	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, map[string]string{
		"generate_mindmap":             "mindmap",
		"overall_summary":              "overall-summary",
		"segment_similarity_threshold": "threshold",
		"segment_max_words":            "max-words",
		"segment_min_words":            "min-words",
		"api_delay":                    "delay",
		"extract_workers":              "workers",
	})
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

	ctx := cmd.Context()
	text, err := core.Loader.LoadText(ctx, src)
	if err != nil {
		return fmt.Errorf("load input: %w", err)
	}

	opts := cfg.Pipeline.Options()
	opts.MindmapConcept, _ = cmd.Flags().GetString("concept")

	res, err := core.Processor.Process(ctx, text, opts)
	if err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("format")
	if err := encode(cmd.OutOrStdout(), res.Report, format); err != nil {
		return err
	}

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		if res.Mindmap.Value != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "\n%s\n", res.Mindmap.Value)
		}
		return nil
	}

	files, err := storage.NewFileStore(out)
	if err != nil {
		return err
	}
	name := util.SafeName(loader.DisplayName(src), "notes")
	keys, err := storage.SaveArtifacts(ctx, files, name, res.Report, res.Mindmap.Value)
	if err != nil {
		return err
	}
	logger.Info("Saved report", "dir", out, "file", keys.Report)
	if keys.Mindmap != "" {
		logger.Info("Saved mindmap", "dir", out, "file", keys.Mindmap)
	}
	return nil
}
