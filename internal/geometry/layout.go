package geometry

// LayoutPolicy holds the thresholds that decide whether a rectangle looks like page
// background or structure rather than a redaction mark. The same policy must be used
// before and after aggregation.
type LayoutPolicy struct {
	MinWidth     float64 `json:"min_width" yaml:"min_width"`
	MinHeight    float64 `json:"min_height" yaml:"min_height"`
	MaxAreaRatio float64 `json:"max_area_ratio" yaml:"max_area_ratio"`
	MaxSpanRatio float64 `json:"max_span_ratio" yaml:"max_span_ratio"`
}

// DefaultLayoutPolicy returns the documented default thresholds
func DefaultLayoutPolicy() LayoutPolicy {
	return LayoutPolicy{
		MinWidth:     10,
		MinHeight:    8,
		MaxAreaRatio: 0.35,
		MaxSpanRatio: 0.95,
	}
}

// IsLayoutLike reports whether r should be rejected for a viewport of the given size.
func (p LayoutPolicy) IsLayoutLike(r Rect, viewportWidth, viewportHeight float64) bool {
	// Noise
	if r.Width < p.MinWidth || r.Height < p.MinHeight {
		return true
	}

	// Large background block
	pageArea := viewportWidth * viewportHeight
	if pageArea > 0 && r.Area()/pageArea > p.MaxAreaRatio {
		return true
	}

	// Full-span layout element
	if r.Width > viewportWidth*p.MaxSpanRatio || r.Height > viewportHeight*p.MaxSpanRatio {
		return true
	}

	return false
}
