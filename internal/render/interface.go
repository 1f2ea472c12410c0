// Package render is the document-rendering collaborator: it loads PDF bytes, exposes
// per-page viewports, paints page content onto a canvas.Surface, and reads declared
// annotations and the text layer.
package render

import (
	"context"
	"errors"
	"fmt"

	"github.com/a3tai/mcp-redaction-scanner/internal/canvas"
	"github.com/a3tai/mcp-redaction-scanner/internal/geometry"
)

// Loader opens documents from raw bytes
type Loader interface {
	Load(ctx context.Context, data []byte) (Document, error)
}

// Document is a loaded PDF
type Document interface {
	NumPages() int
	// Page returns page n, 1-based
	Page(ctx context.Context, n int) (Page, error)
	Close() error
}

// Page is a single page of a Document
type Page interface {
	Number() int
	Viewport(scale float64) Viewport
	// Render paints the page onto surface. The surface is expected to start with an
	// identity transform; Render applies the viewport transform itself.
	Render(ctx context.Context, surface canvas.Surface, vp Viewport) error
	Annotations(ctx context.Context) ([]Annotation, error)
	TextContent(ctx context.Context) ([]TextRun, error)
}

// Annotation is a declared page annotation. Rect is the raw /Rect array in user
// space; it is nil or not 4 long when the annotation is malformed.
type Annotation struct {
	Subtype string    `json:"subtype"`
	Rect    []float64 `json:"rect"`
}

// TextRun is one run of extracted text. Transform maps the run origin from text space
// to user space; Width and Height are in user space units.
type TextRun struct {
	Text      string          `json:"text"`
	Transform geometry.Matrix `json:"transform"`
	Width     float64         `json:"width"`
	Height    float64         `json:"height"`
}

// Backend identifies the library behind an operation
type Backend string

const (
	BackendPDFCPU     Backend = "pdfcpu"
	BackendLedongthuc Backend = "ledongthuc"
	BackendContent    Backend = "content"
)

// RenderError is returned by every collaborator operation
type RenderError struct {
	Backend Backend `json:"backend"`
	Op      string  `json:"operation"`
	Page    int     `json:"page,omitempty"`
	Err     error   `json:"error"`
}

func (e *RenderError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("PDF %s error in %s (page %d): %v", e.Backend, e.Op, e.Page, e.Err)
	}
	return fmt.Sprintf("PDF %s error in %s: %v", e.Backend, e.Op, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// Common error variables
var (
	ErrDocumentClosed = errors.New("document is closed")
	ErrInvalidPage    = errors.New("invalid page number")
	ErrEmptyDocument  = errors.New("document has no pages")
)
