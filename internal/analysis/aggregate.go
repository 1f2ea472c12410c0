package analysis

import (
	"github.com/a3tai/mcp-redaction-scanner/internal/capture"
	"github.com/a3tai/mcp-redaction-scanner/internal/geometry"
)

// Dedupe drops regions whose rectangle matches an earlier one within eps on all four
// fields. The first region seen wins.
func Dedupe(regions []capture.Region, eps float64) []capture.Region {
	out := make([]capture.Region, 0, len(regions))
	for _, r := range regions {
		dup := false
		for _, kept := range out {
			if geometry.SameRegion(r.Rect, kept.Rect, eps) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, r)
		}
	}
	return out
}

// Aggregate merges annotation and overlay regions of one page, deduplicates them and
// re-applies the layout filter.
func Aggregate(annotations, overlays []capture.Region, layout geometry.LayoutPolicy, width, height, eps float64) []capture.Region {
	merged := make([]capture.Region, 0, len(annotations)+len(overlays))
	merged = append(merged, annotations...)
	merged = append(merged, overlays...)

	var out []capture.Region
	for _, r := range Dedupe(merged, eps) {
		if r.IsEmpty() || layout.IsLayoutLike(r.Rect, width, height) {
			continue
		}
		out = append(out, r)
	}
	return out
}
