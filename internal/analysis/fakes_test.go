package analysis

import (
	"context"
	"fmt"

	"github.com/a3tai/mcp-redaction-scanner/internal/canvas"
	"github.com/a3tai/mcp-redaction-scanner/internal/render"
)

var letterBox = [4]float64{0, 0, 612, 792}

// fakePage draws in user space on top of the page background
type fakePage struct {
	n         int
	annots    []render.Annotation
	runs      []render.TextRun
	draw      func(s canvas.Surface)
	renderErr error
	textErr   error
}

func (p *fakePage) Number() int { return p.n }

func (p *fakePage) Viewport(scale float64) render.Viewport {
	return render.NewViewport(letterBox, 0, scale)
}

func (p *fakePage) Render(_ context.Context, s canvas.Surface, vp render.Viewport) error {
	if p.renderErr != nil {
		return p.renderErr
	}
	render.BeginPage(s, vp)
	if p.draw != nil {
		p.draw(s)
	}
	return nil
}

func (p *fakePage) Annotations(context.Context) ([]render.Annotation, error) {
	return p.annots, nil
}

func (p *fakePage) TextContent(context.Context) ([]render.TextRun, error) {
	return p.runs, p.textErr
}

type fakeDoc struct {
	pages     []*fakePage
	requested []int
	closed    bool
}

func newFakeDoc(pages ...*fakePage) *fakeDoc {
	for i, p := range pages {
		p.n = i + 1
	}
	return &fakeDoc{pages: pages}
}

func (d *fakeDoc) NumPages() int { return len(d.pages) }

func (d *fakeDoc) Page(_ context.Context, n int) (render.Page, error) {
	d.requested = append(d.requested, n)
	if n < 1 || n > len(d.pages) {
		return nil, render.ErrInvalidPage
	}
	return d.pages[n-1], nil
}

func (d *fakeDoc) Close() error {
	d.closed = true
	return nil
}

type fakeLoader struct {
	doc *fakeDoc
	err error
}

func (l fakeLoader) Load(context.Context, []byte) (render.Document, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.doc, nil
}

// eventSink records every sink call as a short string
type eventSink struct {
	events  []string
	pages   []PageResult
	totals  *Totals
	lastMsg string
}

func (s *eventSink) Status(msg string) {
	s.lastMsg = msg
	s.events = append(s.events, "status:"+msg)
}

func (s *eventSink) Progress(p int) {
	s.events = append(s.events, fmt.Sprintf("progress:%d", p))
}

func (s *eventSink) Counts(c Counts) {
	s.events = append(s.events, fmt.Sprintf("counts:%d/%d/%d", c.Annotations, c.Vectors, c.Images))
}

func (s *eventSink) Page(r PageResult) {
	s.pages = append(s.pages, r)
	s.events = append(s.events, fmt.Sprintf("page:%d", r.Page))
}

func (s *eventSink) Totals(t Totals) {
	s.totals = &t
	s.events = append(s.events, fmt.Sprintf("totals:%d/%d/%d", t.TotalRedactions, t.RecoverableCount, t.RecoveryPercent))
}
