// Package extract turns source files into plain text for ingestion.
//
// PDF files are converted by the pdftotext tool from poppler-utils.
// Plain text and markdown files are read as is.
package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ToolName is the external PDF converter.
const ToolName = "pdftotext"

var (
	// ErrPDFToolNotFound indicates pdftotext is not on PATH.
	ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

	// ErrUnsupportedFormat indicates a file extension with no extractor.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// CommandRunner runs an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Extractor reads text out of supported files.
type Extractor struct {
	runner   CommandRunner
	lookPath bool
}

// New returns an Extractor that shells out to pdftotext.
func New() *Extractor {
	return &Extractor{runner: execRunner{}, lookPath: true}
}

// NewWithRunner returns an Extractor that uses runner in place of the
// real command. Used by tests.
func NewWithRunner(runner CommandRunner) *Extractor {
	return &Extractor{runner: runner}
}

// CheckAvailable reports whether pdftotext can be found.
func CheckAvailable() error {
	if _, err := exec.LookPath(ToolName); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// InstallInstructions returns a hint for installing pdftotext.
func InstallInstructions() string {
	return "pdftotext is required for PDF import. Install poppler:\n" +
		"  macOS: brew install poppler\n" +
		"  Debian/Ubuntu: apt install poppler-utils"
}

// Supported reports whether path has an extension the extractor handles.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".txt", ".md":
		return true
	}
	return false
}

// ExtractFile returns the text of the file at path. Pages of a PDF are
// separated by a newline and surrounding whitespace is trimmed.
func (e *Extractor) ExtractFile(ctx context.Context, path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return e.extractPDF(ctx, path)
	case ".txt", ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(data)), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func (e *Extractor) extractPDF(ctx context.Context, path string) (string, error) {
	if e.lookPath {
		if err := CheckAvailable(); err != nil {
			return "", err
		}
	}
	out, err := e.runner.Run(ctx, ToolName, "-enc", "UTF-8", path, "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext failed: %w", err)
	}
	text := strings.ReplaceAll(string(out), "\f", "\n")
	return strings.TrimSpace(text), nil
}

// TitleFromPath returns the file name without its extension.
func TitleFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
