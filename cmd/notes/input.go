package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/smartsum/backend/pkg/loader"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"
)

// sourceFromArgs picks the input: --url, --media, a file argument, or
// stdin for "-" and no argument.
func sourceFromArgs(cmd *cobra.Command, args []string) (loader.Source, error) {
	url, _ := cmd.Flags().GetString("url")
	media, _ := cmd.Flags().GetString("media")
	name, _ := cmd.Flags().GetString("name")

	set := 0
	for _, v := range []bool{url != "", media != "", len(args) > 0 && args[0] != "-"} {
		if v {
			set++
		}
	}
	if set > 1 {
		return loader.Source{}, fmt.Errorf("give only one of a file, --url or --media")
	}

	switch {
	case url != "":
		return loader.Source{Kind: loader.SourceURL, URL: url, Name: name}, nil
	case media != "":
		return loader.Source{Kind: loader.SourceMedia, Path: media, Name: name}, nil
	case len(args) > 0 && args[0] != "-":
		return loader.Source{Kind: loader.SourceFile, Path: args[0], Name: name}, nil
	}

	text, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return loader.Source{}, fmt.Errorf("read stdin: %w", err)
	}
	if name == "" {
		name = "stdin"
	}
	return loader.Source{Kind: loader.SourceText, Text: string(text), Name: name}, nil
}

// encode renders v as indented JSON or YAML.
func encode(w io.Writer, v any, format string) error {
	switch strings.ToLower(format) {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q (json or yaml)", format)
	}
}
