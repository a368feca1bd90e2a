// Package loader turns pipeline inputs (inline text, files, web pages,
// audio or video) into plain text.
package loader

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

type SourceKind string

const (
	SourceText  SourceKind = "text"
	SourceFile  SourceKind = "file"
	SourceURL   SourceKind = "url"
	SourceMedia SourceKind = "media"
)

// ErrUnsupportedSource is returned for a source kind without a loader.
var ErrUnsupportedSource = errors.New("unsupported source")

// Source describes where a document's text comes from. Path is a local
// path or a storage key, depending on the ByteLoader in use.
type Source struct {
	Kind SourceKind `json:"kind"`
	Text string     `json:"text,omitempty"`
	Path string     `json:"path,omitempty"`
	URL  string     `json:"url,omitempty"`
	Name string     `json:"name,omitempty"`
}

// TextLoader extracts the text of a source.
type TextLoader interface {
	LoadText(ctx context.Context, src Source) (string, error)
}

// ByteLoader reads the raw bytes behind a source's Path.
type ByteLoader interface {
	Load(ctx context.Context, src Source) ([]byte, error)
}

// TextLoaderFunc adapts a function to TextLoader.
type TextLoaderFunc func(ctx context.Context, src Source) (string, error)

func (f TextLoaderFunc) LoadText(ctx context.Context, src Source) (string, error) {
	return f(ctx, src)
}

// Inline returns the source's Text as is.
var Inline = TextLoaderFunc(func(ctx context.Context, src Source) (string, error) {
	return src.Text, nil
})

// Mux dispatches to a TextLoader by source kind.
type Mux struct {
	loaders map[SourceKind]TextLoader
}

// NewMux returns a Mux that already handles SourceText.
func NewMux() *Mux {
	return &Mux{loaders: map[SourceKind]TextLoader{SourceText: Inline}}
}

// Handle registers l for kind, replacing any previous loader.
func (m *Mux) Handle(kind SourceKind, l TextLoader) *Mux {
	m.loaders[kind] = l
	return m
}

func (m *Mux) LoadText(ctx context.Context, src Source) (string, error) {
	l, ok := m.loaders[src.Kind]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedSource, src.Kind)
	}
	text, err := l.LoadText(ctx, src)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// ExtMux dispatches by the extension of the source path, falling back to
// a default loader.
type ExtMux struct {
	fallback TextLoader
	byExt    map[string]TextLoader
}

func NewExtMux(fallback TextLoader) *ExtMux {
	return &ExtMux{fallback: fallback, byExt: map[string]TextLoader{}}
}

// Handle registers l for ext, e.g. ".pdf". Matching ignores case.
func (m *ExtMux) Handle(ext string, l TextLoader) *ExtMux {
	m.byExt[strings.ToLower(ext)] = l
	return m
}

func (m *ExtMux) LoadText(ctx context.Context, src Source) (string, error) {
	if l, ok := m.byExt[strings.ToLower(path.Ext(src.Path))]; ok {
		return l.LoadText(ctx, src)
	}
	if m.fallback == nil {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedSource, src.Path)
	}
	return m.fallback.LoadText(ctx, src)
}

// DisplayName picks a human readable name for src.
func DisplayName(src Source) string {
	switch {
	case strings.TrimSpace(src.Name) != "":
		return strings.TrimSpace(src.Name)
	case src.URL != "":
		return src.URL
	case src.Path != "":
		return src.Path
	default:
		return "document"
	}
}
