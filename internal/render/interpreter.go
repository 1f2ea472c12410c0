package render

import (
	"context"
	"math"

	"github.com/a3tai/mcp-redaction-scanner/internal/canvas"
	"github.com/a3tai/mcp-redaction-scanner/internal/geometry"
)

// MaxFormDepth bounds nested form XObjects
const MaxFormDepth = 8

// BackgroundFill is painted over the whole viewport before page content
const BackgroundFill = "#ffffff"

// ExtGState is the subset of a graphics state parameter dictionary we honour
type ExtGState struct {
	FillAlpha    float64
	HasFillAlpha bool
}

// XObject is a resolved external object
type XObject struct {
	Subtype   string
	Width     float64
	Height    float64
	Matrix    geometry.Matrix
	Content   []byte
	Resources Resources
}

// Resources resolves named resources referenced from a content stream
type Resources interface {
	ExtGState(name string) (ExtGState, bool)
	XObject(name string) (XObject, bool)
}

// BeginPage paints the opaque background at identity and installs the viewport
// transform. The surface must be at identity when called.
func BeginPage(surface canvas.Surface, vp Viewport) {
	surface.Save()
	surface.SetFillStyle(BackgroundFill)
	surface.FillRect(0, 0, vp.Width, vp.Height)
	surface.Restore()
	surface.Transform(vp.Transform)
}

// Interpreter executes content stream operations against a surface. Text showing
// operators are ignored; the text layer comes from TextContent.
type Interpreter struct {
	surface canvas.Surface
	path    pathBuilder
	depth   int
}

// NewInterpreter creates an interpreter drawing on surface
func NewInterpreter(surface canvas.Surface) *Interpreter {
	return &Interpreter{surface: surface, path: newPathBuilder()}
}

// Run parses and executes content. res may be nil.
func (in *Interpreter) Run(ctx context.Context, content []byte, res Resources) error {
	return in.Execute(ctx, ParseContent(content), res)
}

// Execute runs already parsed operations
func (in *Interpreter) Execute(ctx context.Context, ops []Operation, res Resources) error {
	for i, op := range ops {
		if i%512 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := in.apply(ctx, op, res); err != nil {
			return err
		}
	}
	return nil
}

func (in *Interpreter) apply(ctx context.Context, op Operation, res Resources) error {
	s := in.surface
	nums, numeric := op.Numbers()

	switch op.Operator {
	// graphics state
	case "q":
		s.Save()
	case "Q":
		s.Restore()
	case "cm":
		if numeric && len(nums) == 6 {
			s.Transform(geometry.Matrix{nums[0], nums[1], nums[2], nums[3], nums[4], nums[5]})
		}
	case "gs":
		if name, ok := op.NameOperand(); ok && res != nil {
			if gs, ok := res.ExtGState(name); ok && gs.HasFillAlpha {
				s.SetGlobalAlpha(gs.FillAlpha)
			}
		}

	// fill colour
	case "g":
		if numeric && len(nums) == 1 {
			s.SetFillStyle(canvas.FormatRGB(nums[0], nums[0], nums[0]))
		}
	case "rg":
		if numeric && len(nums) == 3 {
			s.SetFillStyle(canvas.FormatRGB(nums[0], nums[1], nums[2]))
		}
	case "k":
		if numeric && len(nums) == 4 {
			s.SetFillStyle(cmykStyle(nums))
		}
	case "cs":
		s.SetFillStyle(canvas.DefaultFillStyle)
	case "sc", "scn":
		setComponentColor(s, op)

	// path construction
	case "m":
		if numeric && len(nums) == 2 {
			in.path.moveTo(nums[0], nums[1])
		}
	case "l":
		if numeric && len(nums) == 2 {
			in.path.lineTo(nums[0], nums[1])
		}
	case "c":
		if numeric && len(nums) == 6 {
			in.path.curveTo(nums[0], nums[1], nums[2], nums[3], nums[4], nums[5])
		}
	case "v":
		if numeric && len(nums) == 4 {
			cur := in.path.currentPoint()
			in.path.curveTo(cur.X, cur.Y, nums[0], nums[1], nums[2], nums[3])
		}
	case "y":
		if numeric && len(nums) == 4 {
			in.path.curveTo(nums[0], nums[1], nums[2], nums[3], nums[2], nums[3])
		}
	case "h":
		in.path.closePath()
	case "re":
		if numeric && len(nums) == 4 {
			in.path.rect(nums[0], nums[1], nums[2], nums[3])
		}

	// painting
	case "f", "F", "f*", "B", "B*", "b", "b*":
		if op.Operator == "b" || op.Operator == "b*" {
			in.path.closePath()
		}
		in.fill()
	case "S", "s", "n":
		in.path.reset()

	// external objects
	case "Do":
		if name, ok := op.NameOperand(); ok && res != nil {
			if xo, ok := res.XObject(name); ok {
				return in.paintXObject(ctx, xo, res)
			}
		}
	case "BI":
		if op.Inline != nil {
			in.paintImage(op.Inline.Width, op.Inline.Height)
		}
	}

	return nil
}

func (in *Interpreter) fill() {
	defer in.path.reset()

	if in.path.isEmpty() {
		return
	}
	if in.path.onlyRects {
		for _, r := range in.path.rects {
			in.surface.FillRect(r.X, r.Y, r.Width, r.Height)
		}
		return
	}
	in.surface.FillPath(in.path.build())
}

func (in *Interpreter) paintXObject(ctx context.Context, xo XObject, parent Resources) error {
	switch xo.Subtype {
	case "Image":
		in.paintImage(xo.Width, xo.Height)
	case "Form":
		if in.depth >= MaxFormDepth {
			return nil
		}
		res := xo.Resources
		if res == nil {
			res = parent
		}

		in.surface.Save()
		defer in.surface.Restore()
		in.surface.Transform(xo.Matrix)

		saved := in.path
		in.path = newPathBuilder()
		in.depth++
		err := in.Run(ctx, xo.Content, res)
		in.depth--
		in.path = saved
		return err
	}
	return nil
}

// paintImage draws an image into the unit square of the current transform, the same
// way browser canvases are driven for PDF images.
func (in *Interpreter) paintImage(w, h float64) {
	if w <= 0 || h <= 0 || math.IsNaN(w) || math.IsNaN(h) {
		return
	}
	s := in.surface
	s.Save()
	s.Transform(geometry.Scale(1/w, -1/h))
	s.DrawImage(canvas.ImageSize{Width: w, Height: h}, 0, 0, w, h, 0, -h, w, h)
	s.Restore()
}

func setComponentColor(s canvas.Surface, op Operation) {
	var comps []float64
	for _, o := range op.Operands {
		if o.Kind == OperandName {
			// pattern colour; leave the style alone
			return
		}
		if o.Kind == OperandNumber {
			comps = append(comps, o.Number)
		}
	}
	switch len(comps) {
	case 1:
		s.SetFillStyle(canvas.FormatRGB(comps[0], comps[0], comps[0]))
	case 3:
		s.SetFillStyle(canvas.FormatRGB(comps[0], comps[1], comps[2]))
	case 4:
		s.SetFillStyle(cmykStyle(comps))
	}
}

func cmykStyle(c []float64) string {
	k := c[3]
	return canvas.FormatRGB(
		1-math.Min(1, c[0]+k),
		1-math.Min(1, c[1]+k),
		1-math.Min(1, c[2]+k),
	)
}

// curveSegments is how many line segments approximate a cubic Bézier
const curveSegments = 8

type pathBuilder struct {
	subpaths  canvas.Path
	current   []geometry.Point
	rects     []geometry.Rect
	onlyRects bool
}

func newPathBuilder() pathBuilder {
	return pathBuilder{onlyRects: true}
}

func (p *pathBuilder) reset() {
	*p = newPathBuilder()
}

func (p *pathBuilder) isEmpty() bool {
	return len(p.subpaths) == 0 && len(p.current) == 0
}

func (p *pathBuilder) currentPoint() geometry.Point {
	if len(p.current) > 0 {
		return p.current[len(p.current)-1]
	}
	return geometry.Point{}
}

func (p *pathBuilder) flush() {
	if len(p.current) > 0 {
		p.subpaths = append(p.subpaths, p.current)
		p.current = nil
	}
}

func (p *pathBuilder) moveTo(x, y float64) {
	p.flush()
	p.onlyRects = false
	p.current = []geometry.Point{{X: x, Y: y}}
}

func (p *pathBuilder) lineTo(x, y float64) {
	p.onlyRects = false
	p.current = append(p.current, geometry.Point{X: x, Y: y})
}

func (p *pathBuilder) curveTo(x1, y1, x2, y2, x3, y3 float64) {
	p.onlyRects = false
	p0 := p.currentPoint()
	for i := 1; i <= curveSegments; i++ {
		t := float64(i) / curveSegments
		mt := 1 - t
		a, b, c, d := mt*mt*mt, 3*mt*mt*t, 3*mt*t*t, t*t*t
		p.current = append(p.current, geometry.Point{
			X: a*p0.X + b*x1 + c*x2 + d*x3,
			Y: a*p0.Y + b*y1 + c*y2 + d*y3,
		})
	}
}

func (p *pathBuilder) closePath() {
	if len(p.current) > 1 {
		p.current = append(p.current, p.current[0])
	}
}

func (p *pathBuilder) rect(x, y, w, h float64) {
	p.flush()
	p.subpaths = append(p.subpaths, []geometry.Point{
		{X: x, Y: y}, {X: x + w, Y: y}, {X: x + w, Y: y + h}, {X: x, Y: y + h}, {X: x, Y: y},
	})
	if w < 0 {
		x, w = x+w, -w
	}
	if h < 0 {
		y, h = y+h, -h
	}
	p.rects = append(p.rects, geometry.Rect{X: x, Y: y, Width: w, Height: h})
}

func (p *pathBuilder) build() canvas.Path {
	p.flush()
	return p.subpaths
}
