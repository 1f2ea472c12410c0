// Package analysis finds redaction candidates on rendered pages and decides whether
// the text underneath them is still recoverable from the text layer.
package analysis

import (
	"math"

	"github.com/a3tai/mcp-redaction-scanner/internal/capture"
	"github.com/a3tai/mcp-redaction-scanner/internal/geometry"
)

// TextItem is one text run with its box in viewport space
type TextItem struct {
	Text string        `json:"text"`
	Box  geometry.Rect `json:"box"`
}

// Candidate is an aggregated overlay region after classification
type Candidate struct {
	geometry.Rect `yaml:",inline"`
	Kind          capture.Kind `json:"kind" yaml:"kind"`
	Subtype       string       `json:"subtype,omitempty" yaml:"subtype,omitempty"`
	Recoverable   bool         `json:"recoverable" yaml:"recoverable"`
	RecoveredText string       `json:"recovered_text,omitempty" yaml:"recovered_text,omitempty"`
}

// Counts are the running overlay counters shown while a document is scanned
type Counts struct {
	Annotations int `json:"annotations" yaml:"annotations"`
	Vectors     int `json:"vectors" yaml:"vectors"`
	Images      int `json:"images" yaml:"images"`
}

// PageResult is the outcome of one page
type PageResult struct {
	Page             int           `json:"page" yaml:"page"`
	Width            float64       `json:"width" yaml:"width"`
	Height           float64       `json:"height" yaml:"height"`
	AnnotationCount  int           `json:"annotation_count" yaml:"annotation_count"`
	VectorCount      int           `json:"vector_count" yaml:"vector_count"`
	ImageCount       int           `json:"image_count" yaml:"image_count"`
	CandidateCount   int           `json:"candidate_count" yaml:"candidate_count"`
	RecoverableCount int           `json:"recoverable_count" yaml:"recoverable_count"`
	Candidates       []Candidate   `json:"candidates" yaml:"candidates"`
	Capture          capture.Stats `json:"capture" yaml:"capture"`
}

// Totals are the document-level results; final only after the last page
type Totals struct {
	Pages            int `json:"pages" yaml:"pages"`
	TotalRedactions  int `json:"total_redactions" yaml:"total_redactions"`
	RecoverableCount int `json:"recoverable_count" yaml:"recoverable_count"`
	RecoveryPercent  int `json:"recovery_percent" yaml:"recovery_percent"`
}

func (t *Totals) add(p PageResult) {
	t.Pages++
	t.TotalRedactions += p.CandidateCount
	t.RecoverableCount += p.RecoverableCount
	t.RecoveryPercent = percent(t.RecoverableCount, t.TotalRedactions)
}

// Summary is everything a completed scan produced
type Summary struct {
	Pages  []PageResult `json:"pages" yaml:"pages"`
	Counts Counts       `json:"counts" yaml:"counts"`
	Totals Totals       `json:"totals" yaml:"totals"`
}

func percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}
