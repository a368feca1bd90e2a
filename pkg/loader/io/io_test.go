package io

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartsum/backend/pkg/loader"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLoader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("Hello there."), 0o644))

	l := NewFileLoader()
	text, err := l.LoadText(context.Background(), loader.Source{Kind: loader.SourceFile, Path: path})
	require.NoError(t, err)
	assert.Equal(t, "Hello there.", text)

	_, err = l.LoadText(context.Background(), loader.Source{Kind: loader.SourceFile, Path: filepath.Join(dir, "missing.txt")})
	assert.Error(t, err)

	bin := filepath.Join(dir, "blob.bin")
	require.NoError(t, os.WriteFile(bin, []byte{0xff, 0xfe, 0xfd}, 0o644))
	_, err = l.LoadText(context.Background(), loader.Source{Kind: loader.SourceFile, Path: bin})
	assert.Error(t, err)
}
