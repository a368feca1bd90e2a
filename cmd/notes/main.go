// Package main is the notes CLI: it runs the notes pipeline on a file,
// stdin, a URL or a media file without the server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/smartsum/backend/internal/config"
	"github.com/smartsum/backend/pkg/logger"
	"github.com/smartsum/backend/pkg/logger/console"

	"github.com/spf13/cobra"
)

// version is set at build time via ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "notes",
	Short: "Turn transcripts and documents into structured notes",
	Long: `notes segments long text by topic, extracts a topic, summary, key points,
action items, questions and keywords per segment, and aggregates them into a
single report. It can also render a Mermaid mindmap and answer keyword
queries.

Configuration comes from flags, the environment (.env is loaded) and an
optional notes.yaml.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./notes.yaml or ~/.smartsum/notes.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "verbose logging")
}

// loadConfig resolves configuration for cmd. keys maps config keys to the
// names of flags on cmd.
func loadConfig(cmd *cobra.Command, keys map[string]string) (*config.Config, error) {
	cfgFile, _ := cmd.Flags().GetString("config")

	bindings := []config.FlagBinding{{Key: "debug", Flag: cmd.Flags().Lookup("debug")}}
	for key, name := range keys {
		bindings = append(bindings, config.FlagBinding{Key: key, Flag: cmd.Flags().Lookup(name)})
	}

	cfg, err := config.Load(cfgFile, bindings...)
	if err != nil {
		return nil, err
	}

	logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  cfg.Debug,
		Prefix: "notes",
		Output: cmd.ErrOrStderr(),
	}))
	return cfg, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
