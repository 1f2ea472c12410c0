package render

import (
	"math"

	"github.com/a3tai/mcp-redaction-scanner/internal/geometry"
)

// Viewport describes a page rendered at a given scale. Transform maps PDF user space
// to viewport pixels with the origin at the top-left corner.
type Viewport struct {
	Width     float64         `json:"width"`
	Height    float64         `json:"height"`
	Scale     float64         `json:"scale"`
	Rotation  int             `json:"rotation"`
	Transform geometry.Matrix `json:"transform"`
}

// NewViewport builds the viewport for a page box [x0 y0 x1 y1] with the given /Rotate
// value and scale.
func NewViewport(box [4]float64, rotation int, scale float64) Viewport {
	x0, y0 := math.Min(box[0], box[2]), math.Min(box[1], box[3])
	x1, y1 := math.Max(box[0], box[2]), math.Max(box[1], box[3])
	centerX := (x0 + x1) / 2
	centerY := (y0 + y1) / 2

	rotation = normalizeRotation(rotation)

	var a, b, c, d float64
	switch rotation {
	case 90:
		a, b, c, d = 0, 1, 1, 0
	case 180:
		a, b, c, d = -1, 0, 0, 1
	case 270:
		a, b, c, d = 0, -1, -1, 0
	default:
		a, b, c, d = 1, 0, 0, -1
	}

	var offsetX, offsetY, width, height float64
	if a == 0 {
		offsetX = math.Abs(centerY-y0) * scale
		offsetY = math.Abs(centerX-x0) * scale
		width = (y1 - y0) * scale
		height = (x1 - x0) * scale
	} else {
		offsetX = math.Abs(centerX-x0) * scale
		offsetY = math.Abs(centerY-y0) * scale
		width = (x1 - x0) * scale
		height = (y1 - y0) * scale
	}

	return Viewport{
		Width:    width,
		Height:   height,
		Scale:    scale,
		Rotation: rotation,
		Transform: geometry.Matrix{
			a * scale,
			b * scale,
			c * scale,
			d * scale,
			offsetX - a*scale*centerX - c*scale*centerY,
			offsetY - b*scale*centerX - d*scale*centerY,
		},
	}
}

func normalizeRotation(r int) int {
	r %= 360
	if r < 0 {
		r += 360
	}
	// /Rotate must be a multiple of 90
	if r%90 != 0 {
		return 0
	}
	return r
}
