package analysis

import (
	"github.com/a3tai/mcp-redaction-scanner/internal/capture"
	"github.com/a3tai/mcp-redaction-scanner/internal/geometry"
	"github.com/a3tai/mcp-redaction-scanner/internal/render"
)

// ExtractAnnotations maps declared annotation rectangles into viewport space. Only
// annotations with exactly four numbers in their rect are considered.
func ExtractAnnotations(annots []render.Annotation, vp render.Viewport, layout geometry.LayoutPolicy, eps float64) []capture.Region {
	var regions []capture.Region
	for _, a := range annots {
		if len(a.Rect) != 4 {
			continue
		}
		p1 := vp.Transform.Apply(geometry.Point{X: a.Rect[0], Y: a.Rect[1]})
		p2 := vp.Transform.Apply(geometry.Point{X: a.Rect[2], Y: a.Rect[3]})

		box, err := geometry.BoundingBox(p1, p2)
		if err != nil || !box.IsFinite() {
			continue
		}
		box = geometry.Clamp(box, vp.Width, vp.Height)
		if box.IsEmpty() || layout.IsLayoutLike(box, vp.Width, vp.Height) {
			continue
		}

		regions = append(regions, capture.Region{
			Rect:    box,
			Kind:    capture.KindAnnotation,
			Alpha:   1,
			Subtype: a.Subtype,
		})
	}
	return Dedupe(regions, eps)
}
