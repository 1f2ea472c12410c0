// Package capture observes the compositing calls made while a page renders and turns
// the ones that look like opaque overlays into page-space regions.
package capture

import (
	"fmt"

	"github.com/a3tai/mcp-redaction-scanner/internal/geometry"
)

// Kind identifies where a region came from
type Kind string

const (
	KindAnnotation Kind = "annotation"
	KindVector     Kind = "vector"
	KindImage      Kind = "image"
)

// Region is an overlay rectangle in viewport space. Regions are immutable and live for
// a single page pass.
type Region struct {
	geometry.Rect
	Kind  Kind    `json:"kind"`
	Alpha float64 `json:"alpha"`
	// Subtype is the annotation subtype; empty for drawn regions
	Subtype string `json:"subtype,omitempty"`
}

// Verdict is the outcome of classifying one intercepted call
type Verdict int

const (
	Keep Verdict = iota
	SkipTooSmall
	SkipTransparent
	SkipLayout
	SkipEmpty
	SkipError
)

func (v Verdict) String() string {
	switch v {
	case Keep:
		return "keep"
	case SkipTooSmall:
		return "too_small"
	case SkipTransparent:
		return "transparent"
	case SkipLayout:
		return "layout"
	case SkipEmpty:
		return "empty"
	case SkipError:
		return "error"
	default:
		return "unknown"
	}
}

// Stats counts intercepted calls by verdict
type Stats struct {
	Kept        int `json:"kept" yaml:"kept"`
	TooSmall    int `json:"too_small" yaml:"too_small"`
	Transparent int `json:"transparent" yaml:"transparent"`
	Layout      int `json:"layout" yaml:"layout"`
	Empty       int `json:"empty" yaml:"empty"`
	Errors      int `json:"errors" yaml:"errors"`
}

func (s *Stats) add(v Verdict) {
	switch v {
	case Keep:
		s.Kept++
	case SkipTooSmall:
		s.TooSmall++
	case SkipTransparent:
		s.Transparent++
	case SkipLayout:
		s.Layout++
	case SkipEmpty:
		s.Empty++
	case SkipError:
		s.Errors++
	}
}

// CaptureError describes a failure while classifying an intercepted call. The drawing
// call itself is never affected.
type CaptureError struct {
	Op  string
	Err error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture %s: %v", e.Op, e.Err)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}
