// Package canvas defines the drawing surface pages are rendered onto. The model follows
// a 2D canvas context: a state stack carrying the current transform, global alpha and
// fill style, plus compositing primitives.
package canvas

import "github.com/a3tai/mcp-redaction-scanner/internal/geometry"

// Image is anything that can be blitted with DrawImage
type Image interface {
	// Size returns the natural width and height used by the 3-argument call shape
	Size() (width, height float64)
}

// ImageSize is an Image known only by its dimensions
type ImageSize struct {
	Width  float64
	Height float64
}

// Size implements Image
func (s ImageSize) Size() (float64, float64) { return s.Width, s.Height }

// Path is a list of subpaths in local coordinates. Each subpath is an implicitly
// closed polygon.
type Path [][]geometry.Point

// Surface is a drawing surface in the style of a canvas 2D context
type Surface interface {
	Save()
	Restore()

	// Transform post-multiplies the current transform: m is applied in local space
	// before the existing transform.
	Transform(m geometry.Matrix)
	SetTransform(m geometry.Matrix)

	SetGlobalAlpha(alpha float64)
	GlobalAlpha() float64
	SetFillStyle(style string)
	FillStyle() string

	FillRect(x, y, w, h float64)
	FillPath(path Path)

	// DrawImage accepts the three canvas call shapes after the image argument:
	// (dx, dy), (dx, dy, dw, dh) and (sx, sy, sw, sh, dx, dy, dw, dh).
	DrawImage(img Image, args ...float64)
}

// TransformQuerier is implemented by surfaces that expose their current transform
type TransformQuerier interface {
	CurrentTransform() geometry.Matrix
}

// Destination resolves the destination rectangle of a DrawImage call. ok is false
// when args does not match one of the supported call shapes.
func Destination(img Image, args []float64) (dst geometry.Rect, ok bool) {
	switch len(args) {
	case 2:
		var w, h float64
		if img != nil {
			w, h = img.Size()
		}
		return geometry.Rect{X: args[0], Y: args[1], Width: w, Height: h}, true
	case 4:
		return geometry.Rect{X: args[0], Y: args[1], Width: args[2], Height: args[3]}, true
	case 8:
		return geometry.Rect{X: args[4], Y: args[5], Width: args[6], Height: args[7]}, true
	default:
		return geometry.Rect{}, false
	}
}
