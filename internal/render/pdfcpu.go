package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/a3tai/mcp-redaction-scanner/internal/canvas"
	"github.com/a3tai/mcp-redaction-scanner/internal/geometry"
)

// letterBox is used when a page declares no usable MediaBox
var letterBox = [4]float64{0, 0, 612, 792}

// PDFCPULoader loads documents with pdfcpu for structure and content and with
// ledongthuc/pdf for the text layer.
type PDFCPULoader struct{}

// NewPDFCPULoader creates a loader
func NewPDFCPULoader() *PDFCPULoader {
	return &PDFCPULoader{}
}

// Load parses data into a Document
func (l *PDFCPULoader) Load(ctx context.Context, data []byte) (doc Document, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	defer func() {
		if p := recover(); p != nil {
			doc = nil
			err = &RenderError{Backend: BackendPDFCPU, Op: "load", Err: fmt.Errorf("panic: %v", p)}
		}
	}()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, &RenderError{
			Backend: BackendPDFCPU,
			Op:      "load",
			Err:     fmt.Errorf("failed to read PDF context: %w", err),
		}
	}

	if err := pctx.EnsurePageCount(); err != nil {
		return nil, &RenderError{
			Backend: BackendPDFCPU,
			Op:      "load",
			Err:     fmt.Errorf("failed to ensure page count: %w", err),
		}
	}

	if pctx.PageCount == 0 {
		return nil, &RenderError{Backend: BackendPDFCPU, Op: "load", Err: ErrEmptyDocument}
	}

	return &PDFCPUDocument{ctx: pctx, data: data}, nil
}

// PDFCPUDocument is a Document backed by a pdfcpu context
type PDFCPUDocument struct {
	ctx  *model.Context
	data []byte

	textOnce sync.Once
	text     *textLayer
	textErr  error

	mu     sync.Mutex
	closed bool
}

// NumPages returns the page count
func (d *PDFCPUDocument) NumPages() int {
	return d.ctx.PageCount
}

// Page returns page n
func (d *PDFCPUDocument) Page(ctx context.Context, n int) (Page, error) {
	if d.isClosed() {
		return nil, &RenderError{Backend: BackendPDFCPU, Op: "page", Page: n, Err: ErrDocumentClosed}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n < 1 || n > d.ctx.PageCount {
		return nil, &RenderError{
			Backend: BackendPDFCPU,
			Op:      "page",
			Page:    n,
			Err:     fmt.Errorf("%w: %d (document has %d pages)", ErrInvalidPage, n, d.ctx.PageCount),
		}
	}

	pageDict, _, inherited, err := d.ctx.PageDict(n, false)
	if err != nil {
		return nil, &RenderError{Backend: BackendPDFCPU, Op: "page", Page: n, Err: err}
	}
	if pageDict == nil {
		return nil, &RenderError{Backend: BackendPDFCPU, Op: "page", Page: n, Err: ErrInvalidPage}
	}

	page := &PDFCPUPage{doc: d, number: n, dict: pageDict, box: letterBox}
	if inherited != nil {
		page.rotation = inherited.Rotate
		if box, ok := rectangleBox(inherited.CropBox); ok {
			page.box = box
		} else if box, ok := rectangleBox(inherited.MediaBox); ok {
			page.box = box
		}
		page.inheritedRes = inherited.Resources
	}
	return page, nil
}

// Close releases the document
func (d *PDFCPUDocument) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.text = nil
	return nil
}

func (d *PDFCPUDocument) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func (d *PDFCPUDocument) textLayer() (*textLayer, error) {
	d.textOnce.Do(func() {
		d.text, d.textErr = openTextLayer(d.data)
	})
	return d.text, d.textErr
}

// PDFCPUPage is one page of a PDFCPUDocument
type PDFCPUPage struct {
	doc          *PDFCPUDocument
	number       int
	dict         types.Dict
	inheritedRes types.Dict
	box          [4]float64
	rotation     int
}

// Number returns the 1-based page number
func (p *PDFCPUPage) Number() int {
	return p.number
}

// Viewport returns the page viewport at scale
func (p *PDFCPUPage) Viewport(scale float64) Viewport {
	return NewViewport(p.box, p.rotation, scale)
}

// Render paints the page onto surface
func (p *PDFCPUPage) Render(ctx context.Context, surface canvas.Surface, vp Viewport) (err error) {
	if p.doc.isClosed() {
		return &RenderError{Backend: BackendPDFCPU, Op: "render", Page: p.number, Err: ErrDocumentClosed}
	}

	defer func() {
		if r := recover(); r != nil {
			err = &RenderError{Backend: BackendContent, Op: "render", Page: p.number, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	content, err := p.content()
	if err != nil {
		return err
	}

	BeginPage(surface, vp)
	if err := NewInterpreter(surface).Run(ctx, content, p.resources()); err != nil {
		return &RenderError{Backend: BackendContent, Op: "render", Page: p.number, Err: err}
	}
	return nil
}

func (p *PDFCPUPage) content() ([]byte, error) {
	r, err := pdfcpu.ExtractPageContent(p.doc.ctx, p.number)
	if err != nil {
		return nil, &RenderError{Backend: BackendPDFCPU, Op: "content", Page: p.number, Err: err}
	}
	if r == nil {
		return nil, nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &RenderError{Backend: BackendPDFCPU, Op: "content", Page: p.number, Err: err}
	}
	return data, nil
}

func (p *PDFCPUPage) resources() Resources {
	if obj, ok := p.dict.Find("Resources"); ok {
		if d, err := p.doc.ctx.DereferenceDict(obj); err == nil && d != nil {
			return &pdfcpuResources{ctx: p.doc.ctx, dict: d}
		}
	}
	if p.inheritedRes != nil {
		return &pdfcpuResources{ctx: p.doc.ctx, dict: p.inheritedRes}
	}
	return nil
}

// Annotations returns the page's declared annotations
func (p *PDFCPUPage) Annotations(ctx context.Context) (annots []Annotation, err error) {
	if p.doc.isClosed() {
		return nil, &RenderError{Backend: BackendPDFCPU, Op: "annotations", Page: p.number, Err: ErrDocumentClosed}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			annots = nil
			err = &RenderError{Backend: BackendPDFCPU, Op: "annotations", Page: p.number, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	obj, ok := p.dict.Find("Annots")
	if !ok {
		return nil, nil
	}
	arr, err := p.doc.ctx.DereferenceArray(obj)
	if err != nil {
		return nil, &RenderError{Backend: BackendPDFCPU, Op: "annotations", Page: p.number, Err: err}
	}

	for _, entry := range arr {
		d, err := p.doc.ctx.DereferenceDict(entry)
		if err != nil || d == nil {
			continue
		}
		annot := Annotation{}
		if st, ok := d.Find("Subtype"); ok {
			annot.Subtype = nameValue(p.doc.ctx, st)
		}
		if r, ok := d.Find("Rect"); ok {
			annot.Rect = numberArray(p.doc.ctx, r)
		}
		annots = append(annots, annot)
	}
	return annots, nil
}

// TextContent returns the text runs of the page
func (p *PDFCPUPage) TextContent(ctx context.Context) ([]TextRun, error) {
	if p.doc.isClosed() {
		return nil, &RenderError{Backend: BackendLedongthuc, Op: "text", Page: p.number, Err: ErrDocumentClosed}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	layer, err := p.doc.textLayer()
	if err != nil {
		return nil, &RenderError{Backend: BackendLedongthuc, Op: "text", Page: p.number, Err: err}
	}
	runs, err := layer.runs(p.number)
	if err != nil {
		return nil, &RenderError{Backend: BackendLedongthuc, Op: "text", Page: p.number, Err: err}
	}
	return runs, nil
}

// pdfcpuResources resolves resource names against a /Resources dictionary
type pdfcpuResources struct {
	ctx  *model.Context
	dict types.Dict
}

func (r *pdfcpuResources) category(name string) types.Dict {
	obj, ok := r.dict.Find(name)
	if !ok {
		return nil
	}
	d, err := r.ctx.DereferenceDict(obj)
	if err != nil {
		return nil
	}
	return d
}

func (r *pdfcpuResources) ExtGState(name string) (ExtGState, bool) {
	states := r.category("ExtGState")
	if states == nil {
		return ExtGState{}, false
	}
	obj, ok := states.Find(name)
	if !ok {
		return ExtGState{}, false
	}
	d, err := r.ctx.DereferenceDict(obj)
	if err != nil || d == nil {
		return ExtGState{}, false
	}

	gs := ExtGState{}
	if ca, ok := d.Find("ca"); ok {
		if v, ok := numberValue(r.ctx, ca); ok {
			gs.FillAlpha, gs.HasFillAlpha = v, true
		}
	}
	return gs, true
}

func (r *pdfcpuResources) XObject(name string) (XObject, bool) {
	xobjects := r.category("XObject")
	if xobjects == nil {
		return XObject{}, false
	}
	ref, ok := xobjects.Find(name)
	if !ok {
		return XObject{}, false
	}
	obj, err := r.ctx.Dereference(ref)
	if err != nil {
		return XObject{}, false
	}
	sd, ok := obj.(types.StreamDict)
	if !ok {
		return XObject{}, false
	}

	xo := XObject{Matrix: geometry.Identity()}
	if st, ok := sd.Find("Subtype"); ok {
		xo.Subtype = nameValue(r.ctx, st)
	}

	switch xo.Subtype {
	case "Image":
		if w, ok := sd.Find("Width"); ok {
			xo.Width, _ = numberValue(r.ctx, w)
		}
		if h, ok := sd.Find("Height"); ok {
			xo.Height, _ = numberValue(r.ctx, h)
		}
	case "Form":
		if m, ok := sd.Find("Matrix"); ok {
			if nums := numberArray(r.ctx, m); len(nums) == 6 {
				xo.Matrix = geometry.Matrix{nums[0], nums[1], nums[2], nums[3], nums[4], nums[5]}
			}
		}
		if res, ok := sd.Find("Resources"); ok {
			if d, err := r.ctx.DereferenceDict(res); err == nil && d != nil {
				xo.Resources = &pdfcpuResources{ctx: r.ctx, dict: d}
			}
		}
		if err := sd.Decode(); err != nil {
			return XObject{}, false
		}
		xo.Content = sd.Content
	}
	return xo, true
}

func rectangleBox(r *types.Rectangle) ([4]float64, bool) {
	if r == nil {
		return [4]float64{}, false
	}
	box := [4]float64{r.LL.X, r.LL.Y, r.UR.X, r.UR.Y}
	if box[0] == box[2] || box[1] == box[3] {
		return [4]float64{}, false
	}
	return box, true
}

func numberValue(ctx *model.Context, obj types.Object) (float64, bool) {
	obj, err := ctx.Dereference(obj)
	if err != nil {
		return 0, false
	}
	switch v := obj.(type) {
	case types.Integer:
		return float64(v), true
	case types.Float:
		return float64(v), true
	}
	return 0, false
}

func nameValue(ctx *model.Context, obj types.Object) string {
	obj, err := ctx.Dereference(obj)
	if err != nil {
		return ""
	}
	if n, ok := obj.(types.Name); ok {
		return string(n)
	}
	return ""
}

// numberArray returns nil unless obj is an array made only of numbers
func numberArray(ctx *model.Context, obj types.Object) []float64 {
	arr, err := ctx.DereferenceArray(obj)
	if err != nil || arr == nil {
		return nil
	}
	out := make([]float64, 0, len(arr))
	for _, o := range arr {
		v, ok := numberValue(ctx, o)
		if !ok {
			return nil
		}
		out = append(out, v)
	}
	return out
}
