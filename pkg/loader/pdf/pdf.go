// Package pdf extracts the text layer of PDF documents with pdftotext.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/smartsum/backend/pkg/loader"
)

const defaultTimeout = 30 * time.Second

var reNewlines = regexp.MustCompile(`\n{3,}`)

// PDFLoader reads a PDF through a ByteLoader and returns its text.
type PDFLoader struct {
	loader  loader.ByteLoader
	bin     string
	timeout time.Duration
}

// NewPDFLoader returns a loader that runs pdftotext from PATH.
func NewPDFLoader(l loader.ByteLoader) *PDFLoader {
	return &PDFLoader{loader: l, bin: "pdftotext", timeout: defaultTimeout}
}

func (l *PDFLoader) LoadText(ctx context.Context, src loader.Source) (string, error) {
	content, err := l.loader.Load(ctx, src)
	if err != nil {
		return "", err
	}
	return l.parse(ctx, content)
}

func (l *PDFLoader) parse(ctx context.Context, input []byte) (string, error) {
	if _, err := exec.LookPath(l.bin); err != nil {
		return "", fmt.Errorf("%s not found in PATH: %w", l.bin, err)
	}

	tmpDir, err := os.MkdirTemp("", "pdfextract-")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	pdfPath := filepath.Join(tmpDir, "input.pdf")
	if err := os.WriteFile(pdfPath, input, 0o600); err != nil {
		return "", fmt.Errorf("failed to write temp PDF: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	cmd := exec.CommandContext(
		ctx,
		l.bin,
		"-enc", "UTF-8",
		"-eol", "unix",
		"-nopgbrk",
		"-q",
		pdfPath,
		"-",
	)
	cmd.Env = append(os.Environ(), "LANG=C.UTF-8", "LC_ALL=C.UTF-8")

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if ctx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("%s timed out", l.bin)
	}
	if err != nil {
		return "", fmt.Errorf("%s failed: %w: %s", l.bin, err, bytes.TrimSpace(stderr.Bytes()))
	}

	return cleanText(string(out)), nil
}

// cleanText trims the output and collapses runs of blank lines.
func cleanText(text string) string {
	text = strings.TrimSpace(text)
	return reNewlines.ReplaceAllString(text, "\n\n")
}
