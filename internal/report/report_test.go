package report

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/a3tai/mcp-redaction-scanner/internal/analysis"
	"github.com/a3tai/mcp-redaction-scanner/internal/capture"
	"github.com/a3tai/mcp-redaction-scanner/internal/geometry"
	"github.com/a3tai/mcp-redaction-scanner/internal/pdftest"
	"github.com/a3tai/mcp-redaction-scanner/internal/render"
)

func sampleReport() *Report {
	return &Report{
		Source:      "contract.pdf",
		GeneratedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Status:      analysis.StatusComplete,
		Counts:      analysis.Counts{Annotations: 1, Vectors: 1},
		Totals:      analysis.Totals{Pages: 2, TotalRedactions: 2, RecoverableCount: 1, RecoveryPercent: 50},
		Pages: []analysis.PageResult{
			{
				Page:             1,
				CandidateCount:   2,
				RecoverableCount: 1,
				Candidates: []analysis.Candidate{
					{Rect: geometry.Rect{X: 240, Y: 117, Width: 225, Height: 36}, Kind: capture.KindVector, Recoverable: true, RecoveredText: "4111 1111"},
					{Rect: geometry.Rect{X: 10, Y: 20, Width: 100, Height: 30}, Kind: capture.KindAnnotation, Subtype: "Redact"},
				},
			},
			{Page: 2},
		},
	}
}

func TestCollector(t *testing.T) {
	c := NewCollector("doc.pdf")
	c.now = func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.FixedZone("x", 3600)) }

	_, err := c.Report()
	assert.ErrorIs(t, err, ErrIncomplete)

	c.Status(analysis.StatusLoading)
	c.Progress(2)
	c.Counts(analysis.Counts{Vectors: 3})
	c.Page(analysis.PageResult{Page: 1, CandidateCount: 1})
	c.Status(analysis.StatusComplete)
	c.Progress(100)
	c.Totals(analysis.Totals{Pages: 1, TotalRedactions: 1})

	r, err := c.Report()
	require.NoError(t, err)
	assert.Equal(t, "doc.pdf", r.Source)
	assert.Equal(t, analysis.StatusComplete, r.Status)
	assert.Equal(t, 3, r.Counts.Vectors)
	assert.Len(t, r.Pages, 1)
	assert.Equal(t, time.UTC, r.GeneratedAt.Location())
	assert.Equal(t, 100, c.LastProgress())
	assert.Equal(t, []string{analysis.StatusLoading, analysis.StatusComplete}, c.Statuses())
}

func TestCollector_FailedScanHasNoReport(t *testing.T) {
	c := NewCollector("")
	c.Status(analysis.StatusLoading)
	c.Page(analysis.PageResult{Page: 1})
	c.Status(analysis.StatusLoadError)

	_, err := c.Report()
	assert.ErrorIs(t, err, ErrIncomplete)
	assert.Equal(t, analysis.StatusLoadError, c.LastStatus())
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	quiet := NewLogSink(log.New(&buf, "", 0), false)
	quiet.Status("Scanning page 1 of 1")
	quiet.Progress(50)
	quiet.Counts(analysis.Counts{Images: 1})
	quiet.Page(analysis.PageResult{Page: 1, CandidateCount: 2, RecoverableCount: 1})
	quiet.Totals(analysis.Totals{TotalRedactions: 2, RecoverableCount: 1, RecoveryPercent: 50})

	out := buf.String()
	assert.Contains(t, out, "Scanning page 1 of 1")
	assert.Contains(t, out, "page 1: 2 candidate(s), 1 recoverable")
	assert.Contains(t, out, "recoverable: 1 (50%)")
	assert.NotContains(t, out, "progress")

	buf.Reset()
	verbose := NewLogSink(log.New(&buf, "", 0), true)
	verbose.Progress(50)
	verbose.Counts(analysis.Counts{Images: 1})
	assert.Contains(t, buf.String(), "progress 50%")
	assert.Contains(t, buf.String(), "images=1")

	assert.NotNil(t, NewLogSink(nil, false).logger)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatText, false},
		{"TEXT", FormatText, false},
		{"json", FormatJSON, false},
		{"yml", FormatYAML, false},
		{" yaml ", FormatYAML, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWrite_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleReport(), FormatText))

	out := buf.String()
	assert.Contains(t, out, "Document: contract.pdf")
	assert.Contains(t, out, "Total redactions: 2")
	assert.Contains(t, out, "Recoverable: 1 (50%)")
	assert.Contains(t, out, "Page 1: 2 candidate(s), 1 recoverable")
	assert.Contains(t, out, `1. vector at (240.0, 117.0) 225.0x36.0: RECOVERABLE "4111 1111"`)
	assert.Contains(t, out, "2. annotation/Redact at (10.0, 20.0) 100.0x30.0\n")
	assert.NotContains(t, out, "Page 2:")
}

func TestWrite_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleReport(), FormatJSON))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	totals := decoded["totals"].(map[string]interface{})
	assert.Equal(t, float64(50), totals["recovery_percent"])

	pages := decoded["pages"].([]interface{})
	first := pages[0].(map[string]interface{})["candidates"].([]interface{})
	recoverable := first[0].(map[string]interface{})
	assert.Equal(t, float64(240), recoverable["x"])
	assert.Equal(t, "4111 1111", recoverable["recovered_text"])
	_, ok := first[1].(map[string]interface{})["recovered_text"]
	assert.False(t, ok, "unrecoverable candidates carry no text")
}

func TestWrite_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleReport(), FormatYAML))
	assert.True(t, strings.HasPrefix(buf.String(), "source: contract.pdf\n"))

	var decoded struct {
		Pages []struct {
			Candidates []map[string]interface{} `yaml:"candidates"`
		} `yaml:"pages"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.Pages, 2)
	assert.Equal(t, 225, decoded.Pages[0].Candidates[0]["width"])
	assert.Equal(t, "Redact", decoded.Pages[0].Candidates[1]["subtype"])
}

func TestWrite_UnknownFormat(t *testing.T) {
	assert.Error(t, Write(&bytes.Buffer{}, sampleReport(), Format("xml")))
}

func TestPreviewer(t *testing.T) {
	dir := t.TempDir()
	previews := NewPreviewer(filepath.Join(dir, "out"), "")
	collector := NewCollector("redacted.pdf")

	scanner := analysis.NewScanner(render.NewPDFCPULoader(), analysis.WithSurfaces(previews.Surfaces))
	summary, err := scanner.Scan(context.Background(), pdftest.Redacted(), analysis.MultiSink{collector, previews})
	require.NoError(t, err)
	require.NoError(t, previews.Err())
	require.Equal(t, 1, summary.Totals.TotalRedactions)

	files := previews.Files()
	require.Len(t, files, 1)
	assert.Equal(t, "preview-page-001.png", filepath.Base(files[0]))

	f, err := os.Open(files[0])
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 918, img.Bounds().Dx())
	assert.Equal(t, 1188, img.Bounds().Dy())

	c := summary.Pages[0].Candidates[0]
	r, g, _, _ := img.At(int(c.X+c.Width/2), int(c.Y+c.Height/2)).RGBA()
	if c.Recoverable {
		assert.Greater(t, r, g, "recoverable candidates are tinted red")
	}

	corner, _, _, _ := img.At(2, 2).RGBA()
	assert.Equal(t, uint32(0xffff), corner, "page background is white")
}

func TestPreviewer_WriteFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	previews := NewPreviewer(filepath.Join(blocker, "sub"), "doc")
	previews.Surfaces(render.NewViewport([4]float64{0, 0, 100, 100}, 0, 1))
	previews.Page(analysis.PageResult{Page: 1})

	assert.Error(t, previews.Err())
	assert.Empty(t, previews.Files())
}
