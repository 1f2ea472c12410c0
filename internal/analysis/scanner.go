package analysis

import (
	"context"
	"fmt"
	"log"
	"math"
	"runtime"

	"github.com/a3tai/mcp-redaction-scanner/internal/canvas"
	"github.com/a3tai/mcp-redaction-scanner/internal/capture"
	"github.com/a3tai/mcp-redaction-scanner/internal/geometry"
	"github.com/a3tai/mcp-redaction-scanner/internal/render"
)

// Policy holds every threshold used while scanning
type Policy struct {
	Scale           float64        `json:"scale" yaml:"scale"`
	DedupeEpsilon   float64        `json:"dedupe_epsilon" yaml:"dedupe_epsilon"`
	TextHeightFloor float64        `json:"text_height_floor" yaml:"text_height_floor"`
	TextWidthFloor  float64        `json:"text_width_floor" yaml:"text_width_floor"`
	Capture         capture.Policy `json:"capture" yaml:"capture"`
}

// DefaultPolicy returns the documented defaults
func DefaultPolicy() Policy {
	return Policy{
		Scale:           1.5,
		DedupeEpsilon:   geometry.DefaultEpsilon,
		TextHeightFloor: 12,
		TextWidthFloor:  1,
		Capture:         capture.DefaultPolicy(),
	}
}

// SurfaceFactory creates the drawing surface a page is rendered onto. The surface
// must start at identity.
type SurfaceFactory func(vp render.Viewport) canvas.Surface

// StateSurfaces renders onto state-only surfaces; nothing is rasterized
func StateSurfaces(render.Viewport) canvas.Surface {
	return canvas.NewState(geometry.Identity())
}

// Option configures a Scanner
type Option func(*Scanner)

// WithPolicy replaces the default thresholds
func WithPolicy(p Policy) Option {
	return func(s *Scanner) { s.policy = p }
}

// WithSurfaces sets the surface factory
func WithSurfaces(f SurfaceFactory) Option {
	return func(s *Scanner) { s.surfaces = f }
}

// WithYield replaces the hook run between pages
func WithYield(fn func()) Option {
	return func(s *Scanner) { s.yield = fn }
}

// WithStateObserver is called on every page state transition
func WithStateObserver(fn func(page int, state PageState)) Option {
	return func(s *Scanner) { s.onState = fn }
}

// WithLogger sets the logger used for capture errors and failures
func WithLogger(l *log.Logger) Option {
	return func(s *Scanner) { s.logger = l }
}

// Scanner drives documents through the page pipeline, one page at a time
type Scanner struct {
	loader   render.Loader
	policy   Policy
	surfaces SurfaceFactory
	yield    func()
	onState  func(page int, state PageState)
	logger   *log.Logger
}

// NewScanner creates a scanner loading documents with loader
func NewScanner(loader render.Loader, opts ...Option) *Scanner {
	s := &Scanner{
		loader:   loader,
		policy:   DefaultPolicy(),
		surfaces: StateSurfaces,
		yield:    runtime.Gosched,
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	if s.yield == nil {
		s.yield = func() {}
	}
	if s.surfaces == nil {
		s.surfaces = StateSurfaces
	}
	return s
}

// Policy returns the thresholds in use
func (s *Scanner) Policy() Policy {
	return s.policy
}

// Scan loads data and scans every page
func (s *Scanner) Scan(ctx context.Context, data []byte, sink Sink) (*Summary, error) {
	if sink == nil {
		sink = NopSink{}
	}
	s.begin(sink)

	doc, err := s.loader.Load(ctx, data)
	if err != nil {
		return nil, s.fail(sink, &ScanError{Kind: ErrorKindRender, Op: "load", Err: err})
	}
	defer doc.Close()

	return s.run(ctx, doc, sink)
}

// ScanDocument scans an already loaded document. The caller keeps ownership of doc.
func (s *Scanner) ScanDocument(ctx context.Context, doc render.Document, sink Sink) (*Summary, error) {
	if sink == nil {
		sink = NopSink{}
	}
	s.begin(sink)
	return s.run(ctx, doc, sink)
}

func (s *Scanner) begin(sink Sink) {
	sink.Status(StatusLoading)
	sink.Progress(2)
	sink.Counts(Counts{})
}

func (s *Scanner) run(ctx context.Context, doc render.Document, sink Sink) (*Summary, error) {
	summary := &Summary{}
	total := doc.NumPages()

	for n := 1; n <= total; n++ {
		sink.Status(fmt.Sprintf(statusScanningPageF, n, total))
		sink.Progress(progress(n-1, total))
		sink.Counts(summary.Counts)

		result, err := s.scanPage(ctx, doc, n)
		if err != nil {
			return nil, s.fail(sink, err)
		}

		summary.Pages = append(summary.Pages, result)
		summary.Counts.Annotations += result.AnnotationCount
		summary.Counts.Vectors += result.VectorCount
		summary.Counts.Images += result.ImageCount
		summary.Totals.add(result)

		sink.Page(result)
		sink.Progress(progress(n, total))
		sink.Counts(summary.Counts)

		if n < total {
			s.yield()
		}
	}

	sink.Status(StatusComplete)
	sink.Progress(100)
	sink.Totals(summary.Totals)
	return summary, nil
}

func (s *Scanner) scanPage(ctx context.Context, doc render.Document, n int) (PageResult, error) {
	m := &pageMachine{page: n, observe: s.onState}

	if err := m.advance(StateRendering); err != nil {
		return PageResult{}, err
	}
	page, err := doc.Page(ctx, n)
	if err != nil {
		return PageResult{}, &ScanError{Kind: ErrorKindRender, Page: n, Op: "page", Err: err}
	}

	vp := page.Viewport(s.policy.Scale)
	bounds := capture.Bounds{Width: vp.Width, Height: vp.Height}
	captured, err := capture.Session(s.surfaces(vp), bounds, s.policy.Capture, s.captureErrors(n),
		func(surface canvas.Surface) error {
			return page.Render(ctx, surface, vp)
		})
	if err != nil {
		return PageResult{}, &ScanError{Kind: ErrorKindRender, Page: n, Op: "render", Err: err}
	}

	if err := m.advance(StateExtracting); err != nil {
		return PageResult{}, err
	}
	annots, err := page.Annotations(ctx)
	if err != nil {
		return PageResult{}, &ScanError{Kind: ErrorKindRender, Page: n, Op: "annotations", Err: err}
	}
	runs, err := page.TextContent(ctx)
	if err != nil {
		return PageResult{}, &ScanError{Kind: ErrorKindRender, Page: n, Op: "text", Err: err}
	}

	if err := m.advance(StateAggregating); err != nil {
		return PageResult{}, err
	}
	layout := s.policy.Capture.Layout
	eps := s.policy.DedupeEpsilon
	annotRegions := ExtractAnnotations(annots, vp, layout, eps)
	regions := Aggregate(annotRegions, captured.Regions, layout, vp.Width, vp.Height, eps)

	if err := m.advance(StateClassifying); err != nil {
		return PageResult{}, err
	}
	items := TextItems(runs, vp, s.policy.TextHeightFloor, s.policy.TextWidthFloor)
	candidates := Classify(regions, items)

	vectors, images := capture.Counts(captured.Regions)
	result := PageResult{
		Page:            n,
		Width:           vp.Width,
		Height:          vp.Height,
		AnnotationCount: len(annotRegions),
		VectorCount:     vectors,
		ImageCount:      images,
		CandidateCount:  len(candidates),
		Candidates:      candidates,
		Capture:         captured.Stats,
	}
	for _, c := range candidates {
		if c.Recoverable {
			result.RecoverableCount++
		}
	}

	if err := m.advance(StateDone); err != nil {
		return PageResult{}, err
	}
	return result, nil
}

func (s *Scanner) captureErrors(page int) func(*capture.CaptureError) {
	return func(err *capture.CaptureError) {
		s.logger.Printf("%v", &ScanError{Kind: ErrorKindCapture, Page: page, Op: err.Op, Err: err.Err})
	}
}

func (s *Scanner) fail(sink Sink, err error) error {
	s.logger.Printf("scan failed: %v", err)
	sink.Status(StatusLoadError)
	return err
}

func progress(done, total int) int {
	if total <= 0 {
		return 100
	}
	return int(math.Round(float64(done) / float64(total) * 100))
}
