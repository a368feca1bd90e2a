package io

import (
	"context"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/smartsum/backend/pkg/loader"
)

// FileLoader reads sources from the local filesystem.
type FileLoader struct{}

// NewFileLoader returns a filesystem loader.
func NewFileLoader() *FileLoader {
	return &FileLoader{}
}

// Load returns the raw bytes at src.Path.
func (l *FileLoader) Load(ctx context.Context, src loader.Source) ([]byte, error) {
	if src.Path == "" {
		return nil, fmt.Errorf("file source without path")
	}
	return os.ReadFile(src.Path)
}

// LoadText reads src.Path as UTF-8 text.
func (l *FileLoader) LoadText(ctx context.Context, src loader.Source) (string, error) {
	data, err := l.Load(ctx, src)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%s is not valid UTF-8 text", src.Path)
	}
	return string(data), nil
}
