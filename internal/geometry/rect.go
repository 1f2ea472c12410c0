// Package geometry holds the page-space math shared by the capture, annotation and
// classification stages: rectangles, affine matrices and the layout heuristic.
package geometry

import (
	"errors"
	"math"
)

// DefaultEpsilon is the tolerance used when deciding two regions are the same.
const DefaultEpsilon = 1.5

// ErrNoPoints is returned by BoundingBox when called with no points.
var ErrNoPoints = errors.New("bounding box of empty point set")

// Point is a 2D coordinate
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle in viewport pixel space
type Rect struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Right returns the x coordinate of the right edge
func (r Rect) Right() float64 { return r.X + r.Width }

// Bottom returns the y coordinate of the bottom edge
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Area returns width * height
func (r Rect) Area() float64 { return r.Width * r.Height }

// IsEmpty reports whether the rectangle has no positive area
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// IsFinite reports whether every field is a finite number
func (r Rect) IsFinite() bool {
	return isFinite(r.X) && isFinite(r.Y) && isFinite(r.Width) && isFinite(r.Height)
}

// Corners returns the four corners in drawing order starting at the origin
func (r Rect) Corners() [4]Point {
	return [4]Point{
		{X: r.X, Y: r.Y},
		{X: r.X + r.Width, Y: r.Y},
		{X: r.X + r.Width, Y: r.Y + r.Height},
		{X: r.X, Y: r.Y + r.Height},
	}
}

// Intersects reports whether a and b overlap. Rectangles that only touch along an
// edge do not intersect.
func Intersects(a, b Rect) bool {
	return !(a.X+a.Width <= b.X ||
		b.X+b.Width <= a.X ||
		a.Y+a.Height <= b.Y ||
		b.Y+b.Height <= a.Y)
}

// Clamp clips r to [0,width]x[0,height]. The result never has a negative size.
func Clamp(r Rect, width, height float64) Rect {
	x := math.Max(0, math.Min(r.X, width))
	y := math.Max(0, math.Min(r.Y, height))
	right := math.Max(0, math.Min(r.X+r.Width, width))
	bottom := math.Max(0, math.Min(r.Y+r.Height, height))

	return Rect{
		X:      x,
		Y:      y,
		Width:  math.Max(0, right-x),
		Height: math.Max(0, bottom-y),
	}
}

// BoundingBox returns the smallest rectangle containing every point
func BoundingBox(points ...Point) (Rect, error) {
	if len(points) == 0 {
		return Rect{}, ErrNoPoints
	}

	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}

	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}, nil
}

// ApproxEqual reports whether |a-b| <= eps
func ApproxEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

// SameRegion reports whether all four fields of a and b are within eps.
// Only used for deduplication, never for intersection.
func SameRegion(a, b Rect, eps float64) bool {
	return ApproxEqual(a.X, b.X, eps) &&
		ApproxEqual(a.Y, b.Y, eps) &&
		ApproxEqual(a.Width, b.Width, eps) &&
		ApproxEqual(a.Height, b.Height, eps)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
