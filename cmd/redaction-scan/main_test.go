package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-redaction-scanner/internal/pdftest"
)

func writeFixture(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestRun_Clean(t *testing.T) {
	path := writeFixture(t, "clean.pdf", pdftest.Clean())

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{path}, &stdout, &stderr)
	assert.Equal(t, exitClean, code, stderr.String())
	assert.Contains(t, stdout.String(), "Document: "+path)
	assert.Contains(t, stdout.String(), "Total redactions: 0")
}

func TestRun_RedactedWithPreviews(t *testing.T) {
	path := writeFixture(t, "contract.pdf", pdftest.Redacted())
	previews := filepath.Join(t.TempDir(), "previews")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--format=yaml", "--preview-dir", previews, "-V", path}, &stdout, &stderr)
	assert.NotEqual(t, exitError, code, stderr.String())
	assert.Contains(t, stdout.String(), "total_redactions: 1")
	assert.Contains(t, stderr.String(), "Analysis complete")
	assert.FileExists(t, filepath.Join(previews, "contract-page-001.png"))
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()
	notPDF := writeFixture(t, "notes.pdf", []byte("just text"))

	tests := []struct {
		name string
		args []string
	}{
		{"no files", nil},
		{"unknown flag", []string{"--bogus"}},
		{"bad format", []string{"--format=xml", notPDF}},
		{"missing file", []string{filepath.Join(dir, "missing.pdf")}},
		{"not a pdf", []string{notPDF}},
		{"bad threshold", []string{"--min-fill-alpha=3", notPDF}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			assert.Equal(t, exitError, run(context.Background(), tt.args, &stdout, &stderr))
			assert.NotEmpty(t, stderr.String())
		})
	}
}

func TestRun_UnknownFlagReported(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, exitError, run(context.Background(), []string{"--bogus", "file.pdf"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Error: unknown flag: --bogus")
	assert.Contains(t, stderr.String(), "Usage: redaction-scan")
	assert.Empty(t, stdout.String())
}

func TestRun_Help(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, exitClean, run(context.Background(), []string{"--help"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Usage: redaction-scan")
}
