// Package storage persists pipeline artifacts (report JSON, Mermaid
// mindmaps, uploaded media) on the local filesystem or in S3.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/smartsum/backend/pkg/notes"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("artifact not found")

const (
	ContentTypeJSON    = "application/json"
	ContentTypeMermaid = "text/vnd.mermaid"
)

// ArtifactStore is a flat key/value blob store. Keys use forward slashes.
type ArtifactStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Keys names the artifacts saved for one report.
type Keys struct {
	Report  string `json:"report_file"`
	Mindmap string `json:"mindmap_file,omitempty"`
}

// ReportKey returns the key of the report JSON for name.
func ReportKey(name string) string {
	return name + ".json"
}

// MindmapKey returns the key of the Mermaid mindmap for name.
func MindmapKey(name string) string {
	return name + "_mindmap.mmd"
}

// SaveArtifacts writes the indented report as <name>.json and, when
// mindmap is non-empty, the diagram as <name>_mindmap.mmd.
func SaveArtifacts(ctx context.Context, store ArtifactStore, name string, report notes.DocumentReport, mindmap string) (Keys, error) {
	if strings.TrimSpace(name) == "" {
		return Keys{}, errors.New("artifact name is empty")
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return Keys{}, fmt.Errorf("marshal report: %w", err)
	}

	keys := Keys{Report: ReportKey(name)}
	if err := store.Put(ctx, keys.Report, data, ContentTypeJSON); err != nil {
		return Keys{}, fmt.Errorf("save report: %w", err)
	}

	if strings.TrimSpace(mindmap) != "" {
		keys.Mindmap = MindmapKey(name)
		if err := store.Put(ctx, keys.Mindmap, []byte(mindmap), ContentTypeMermaid); err != nil {
			return keys, fmt.Errorf("save mindmap: %w", err)
		}
	}
	return keys, nil
}
