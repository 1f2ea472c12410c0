package canvas

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"

	"github.com/a3tai/mcp-redaction-scanner/internal/geometry"
)

// imagePlaceholder is painted where a bitmap is drawn; bitmaps are not decoded
var imagePlaceholder = color.NRGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}

// Raster is a surface that paints fills and image placeholders into an RGBA bitmap.
// It is used for page previews.
type Raster struct {
	*State
	img *image.RGBA
	z   *vector.Rasterizer
}

// NewRaster creates a raster surface of the given pixel size whose transform starts
// at base
func NewRaster(width, height int, base geometry.Matrix) *Raster {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.Transparent, image.Point{}, draw.Src)

	return &Raster{
		State: NewState(base),
		img:   img,
		z:     vector.NewRasterizer(width, height),
	}
}

// Image returns the painted bitmap
func (r *Raster) Image() *image.RGBA {
	return r.img
}

// FillRect paints a rectangle with the current fill style
func (r *Raster) FillRect(x, y, w, h float64) {
	r.State.FillRect(x, y, w, h)
	corners := geometry.Rect{X: x, Y: y, Width: w, Height: h}.Corners()
	r.fill([][]geometry.Point{corners[:]}, ParseColor(r.FillStyle()))
}

// FillPath paints every subpath with the current fill style
func (r *Raster) FillPath(path Path) {
	r.State.FillPath(path)
	r.fill(path, ParseColor(r.FillStyle()))
}

// DrawImage paints a placeholder over the destination rectangle
func (r *Raster) DrawImage(img Image, args ...float64) {
	r.State.DrawImage(img, args...)
	dst, ok := Destination(img, args)
	if !ok {
		return
	}
	corners := dst.Corners()
	r.fill([][]geometry.Point{corners[:]}, imagePlaceholder)
}

func (r *Raster) fill(path Path, c color.NRGBA) {
	c.A = uint8(math.Round(float64(c.A) * r.GlobalAlpha()))
	if c.A == 0 {
		return
	}

	m := r.CurrentTransform()
	if !m.IsFinite() {
		return
	}

	b := r.img.Bounds()
	r.z.Reset(b.Dx(), b.Dy())
	painted := false
	for _, sub := range path {
		if len(sub) < 3 {
			continue
		}
		for i, p := range sub {
			q := m.Apply(p)
			if i == 0 {
				r.z.MoveTo(float32(q.X), float32(q.Y))
				continue
			}
			r.z.LineTo(float32(q.X), float32(q.Y))
		}
		r.z.ClosePath()
		painted = true
	}
	if !painted {
		return
	}

	r.z.DrawOp = draw.Over
	r.z.Draw(r.img, b, image.NewUniform(c), image.Point{})
}
