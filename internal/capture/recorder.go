package capture

import (
	"errors"
	"fmt"

	"github.com/a3tai/mcp-redaction-scanner/internal/canvas"
	"github.com/a3tai/mcp-redaction-scanner/internal/geometry"
)

var (
	errUnsupportedShape = errors.New("unsupported drawImage call shape")
	errNonFinite        = errors.New("non-finite coordinates")
)

// Policy holds the thresholds applied to intercepted calls. MinWidth/MinHeight act on
// the local destination size and are independent of the layout thresholds.
type Policy struct {
	MinWidth      float64               `json:"min_width" yaml:"min_width"`
	MinHeight     float64               `json:"min_height" yaml:"min_height"`
	MinFillAlpha  float64               `json:"min_fill_alpha" yaml:"min_fill_alpha"`
	MinImageAlpha float64               `json:"min_image_alpha" yaml:"min_image_alpha"`
	Layout        geometry.LayoutPolicy `json:"layout" yaml:"layout"`
}

// DefaultPolicy returns the documented default thresholds
func DefaultPolicy() Policy {
	return Policy{
		MinWidth:      12,
		MinHeight:     8,
		MinFillAlpha:  0.10,
		MinImageAlpha: 0.10,
		Layout:        geometry.DefaultLayoutPolicy(),
	}
}

// Bounds is the viewport size regions are clamped to
type Bounds struct {
	Width  float64
	Height float64
}

// Recorder decorates a surface: every call is delegated unchanged, and FillRect,
// FillPath and DrawImage calls are additionally classified and recorded.
type Recorder struct {
	canvas.Surface

	bounds  Bounds
	policy  Policy
	onError func(*CaptureError)

	regions []Region
	stats   Stats
	sealed  bool
}

// NewRecorder wraps surface. onError may be nil.
func NewRecorder(surface canvas.Surface, bounds Bounds, policy Policy, onError func(*CaptureError)) *Recorder {
	return &Recorder{
		Surface: surface,
		bounds:  bounds,
		policy:  policy,
		onError: onError,
	}
}

// FillRect records a vector region and paints through to the wrapped surface
func (r *Recorder) FillRect(x, y, w, h float64) {
	if !r.sealed {
		region, verdict, err := r.guard("fillRect", func() (Region, Verdict, error) {
			return r.classifyFill(x, y, w, h)
		})
		r.observe(region, verdict, err)
	}
	r.Surface.FillRect(x, y, w, h)
}

// FillPath records one vector region per subpath, from the bounds of its mapped
// points, and paints through to the wrapped surface
func (r *Recorder) FillPath(path canvas.Path) {
	if !r.sealed {
		for _, sub := range path {
			region, verdict, err := r.guard("fillPath", func() (Region, Verdict, error) {
				return r.classifySubpath(sub)
			})
			r.observe(region, verdict, err)
		}
	}
	r.Surface.FillPath(path)
}

// DrawImage records an image region and paints through to the wrapped surface
func (r *Recorder) DrawImage(img canvas.Image, args ...float64) {
	if !r.sealed {
		region, verdict, err := r.guard("drawImage", func() (Region, Verdict, error) {
			return r.classifyImage(img, args)
		})
		r.observe(region, verdict, err)
	}
	r.Surface.DrawImage(img, args...)
}

// CurrentTransform forwards the transform query when the wrapped surface supports it
func (r *Recorder) CurrentTransform() geometry.Matrix {
	if q, ok := r.Surface.(canvas.TransformQuerier); ok {
		return q.CurrentTransform()
	}
	return geometry.Identity()
}

// Regions returns the recorded regions in capture order
func (r *Recorder) Regions() []Region {
	out := make([]Region, len(r.regions))
	copy(out, r.regions)
	return out
}

// Stats returns per-verdict counters
func (r *Recorder) Stats() Stats {
	return r.stats
}

// Seal stops recording; later calls only reach the wrapped surface
func (r *Recorder) Seal() {
	r.sealed = true
}

func (r *Recorder) observe(region Region, verdict Verdict, err error) {
	if err != nil {
		verdict = SkipError
		var ce *CaptureError
		if !errors.As(err, &ce) {
			ce = &CaptureError{Op: "capture", Err: err}
		}
		if r.onError != nil {
			r.onError(ce)
		}
	}
	r.stats.add(verdict)
	if verdict == Keep {
		r.regions = append(r.regions, region)
	}
}

// guard turns a panic inside classification into a CaptureError
func (r *Recorder) guard(op string, fn func() (Region, Verdict, error)) (region Region, verdict Verdict, err error) {
	defer func() {
		if p := recover(); p != nil {
			region, verdict = Region{}, SkipError
			err = &CaptureError{Op: op, Err: fmt.Errorf("panic: %v", p)}
		}
	}()

	region, verdict, err = fn()
	if err != nil {
		err = &CaptureError{Op: op, Err: err}
	}
	return region, verdict, err
}

func (r *Recorder) classifyFill(x, y, w, h float64) (Region, Verdict, error) {
	local := geometry.Rect{X: x, Y: y, Width: w, Height: h}
	alpha := r.Surface.GlobalAlpha() * canvas.FillAlpha(r.Surface.FillStyle())
	return r.classify(local, nil, KindVector, alpha, r.policy.MinFillAlpha)
}

func (r *Recorder) classifySubpath(points []geometry.Point) (Region, Verdict, error) {
	local, err := geometry.BoundingBox(points...)
	if err != nil {
		return Region{}, SkipEmpty, nil
	}
	alpha := r.Surface.GlobalAlpha() * canvas.FillAlpha(r.Surface.FillStyle())
	return r.classify(local, points, KindVector, alpha, r.policy.MinFillAlpha)
}

func (r *Recorder) classifyImage(img canvas.Image, args []float64) (Region, Verdict, error) {
	dst, ok := canvas.Destination(img, args)
	if !ok {
		return Region{}, SkipError, fmt.Errorf("%w: %d arguments", errUnsupportedShape, len(args)+1)
	}
	// bitmaps carry no fill alpha
	return r.classify(dst, nil, KindImage, r.Surface.GlobalAlpha(), r.policy.MinImageAlpha)
}

// classify filters a local shape. points, when set, are the shape's outline and are
// mapped instead of the four corners of local.
func (r *Recorder) classify(local geometry.Rect, points []geometry.Point, kind Kind, alpha, minAlpha float64) (Region, Verdict, error) {
	if !local.IsFinite() {
		return Region{}, SkipError, errNonFinite
	}

	if local.Width < r.policy.MinWidth || local.Height < r.policy.MinHeight {
		return Region{}, SkipTooSmall, nil
	}

	if !(alpha >= minAlpha) {
		return Region{}, SkipTransparent, nil
	}

	if points == nil {
		corners := local.Corners()
		points = corners[:]
	}
	mapped, err := r.mapToViewport(points)
	if err != nil {
		return Region{}, SkipError, err
	}

	if mapped.IsEmpty() {
		return Region{}, SkipEmpty, nil
	}
	if r.policy.Layout.IsLayoutLike(mapped, r.bounds.Width, r.bounds.Height) {
		return Region{}, SkipLayout, nil
	}

	return Region{Rect: mapped, Kind: kind, Alpha: alpha}, Keep, nil
}

func (r *Recorder) mapToViewport(points []geometry.Point) (geometry.Rect, error) {
	q, ok := r.Surface.(canvas.TransformQuerier)
	if !ok {
		local, err := geometry.BoundingBox(points...)
		if err != nil {
			return geometry.Rect{}, err
		}
		return geometry.Clamp(local, r.bounds.Width, r.bounds.Height), nil
	}

	m := q.CurrentTransform()
	if !m.IsFinite() {
		return geometry.Rect{}, errNonFinite
	}
	box, err := m.MapPoints(points...)
	if err != nil {
		return geometry.Rect{}, err
	}
	if !box.IsFinite() {
		return geometry.Rect{}, errNonFinite
	}
	return geometry.Clamp(box, r.bounds.Width, r.bounds.Height), nil
}
