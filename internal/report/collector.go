// Package report turns scanner progress into something people and tools can read.
package report

import (
	"errors"
	"time"

	"github.com/a3tai/mcp-redaction-scanner/internal/analysis"
)

// ErrIncomplete is returned when a report is requested from a scan that did not finish
var ErrIncomplete = errors.New("scan did not complete")

// Report is the result of scanning one document
type Report struct {
	Source      string                `json:"source,omitempty" yaml:"source,omitempty"`
	GeneratedAt time.Time             `json:"generated_at" yaml:"generated_at"`
	Status      string                `json:"status" yaml:"status"`
	Pages       []analysis.PageResult `json:"pages" yaml:"pages"`
	Counts      analysis.Counts       `json:"counts" yaml:"counts"`
	Totals      analysis.Totals       `json:"totals" yaml:"totals"`
	Previews    []string              `json:"previews,omitempty" yaml:"previews,omitempty"`
}

// Collector is a sink that assembles a Report. Results of a scan that failed are
// discarded.
type Collector struct {
	source   string
	statuses []string
	progress int
	counts   analysis.Counts
	pages    []analysis.PageResult
	totals   *analysis.Totals
	now      func() time.Time
}

// NewCollector creates a collector for the named source
func NewCollector(source string) *Collector {
	return &Collector{source: source, now: time.Now}
}

func (c *Collector) Status(msg string) {
	c.statuses = append(c.statuses, msg)
}

func (c *Collector) Progress(percent int) {
	c.progress = percent
}

func (c *Collector) Counts(counts analysis.Counts) {
	c.counts = counts
}

func (c *Collector) Page(result analysis.PageResult) {
	c.pages = append(c.pages, result)
}

func (c *Collector) Totals(t analysis.Totals) {
	c.totals = &t
}

// LastStatus returns the most recent status message
func (c *Collector) LastStatus() string {
	if len(c.statuses) == 0 {
		return ""
	}
	return c.statuses[len(c.statuses)-1]
}

// Statuses returns every status message in order
func (c *Collector) Statuses() []string {
	out := make([]string, len(c.statuses))
	copy(out, c.statuses)
	return out
}

// LastProgress returns the most recent progress percentage
func (c *Collector) LastProgress() int {
	return c.progress
}

// Report returns the finished report, or ErrIncomplete
func (c *Collector) Report() (*Report, error) {
	if c.totals == nil {
		return nil, ErrIncomplete
	}
	return &Report{
		Source:      c.source,
		GeneratedAt: c.now().UTC(),
		Status:      c.LastStatus(),
		Pages:       c.pages,
		Counts:      c.counts,
		Totals:      *c.totals,
	}, nil
}
