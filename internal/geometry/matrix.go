package geometry

import "math"

// Matrix is a 2x3 affine transform stored as [a b c d e f], mapping
// (x, y) to (a*x + c*y + e, b*x + d*y + f).
type Matrix [6]float64

// Identity returns the identity matrix
func Identity() Matrix {
	return Matrix{1, 0, 0, 1, 0, 0}
}

// Translate creates a translation matrix
func Translate(tx, ty float64) Matrix {
	return Matrix{1, 0, 0, 1, tx, ty}
}

// Scale creates a scaling matrix
func Scale(sx, sy float64) Matrix {
	return Matrix{sx, 0, 0, sy, 0, 0}
}

// Rotate creates a rotation matrix (angle in radians)
func Rotate(angle float64) Matrix {
	cos := math.Cos(angle)
	sin := math.Sin(angle)
	return Matrix{cos, sin, -sin, cos, 0, 0}
}

// Apply maps a point through the matrix
func (m Matrix) Apply(p Point) Point {
	return Point{
		X: m[0]*p.X + m[2]*p.Y + m[4],
		Y: m[1]*p.X + m[3]*p.Y + m[5],
	}
}

// Multiply returns the matrix that applies m first and then other
func (m Matrix) Multiply(other Matrix) Matrix {
	return Matrix{
		m[0]*other[0] + m[1]*other[2],
		m[0]*other[1] + m[1]*other[3],
		m[2]*other[0] + m[3]*other[2],
		m[2]*other[1] + m[3]*other[3],
		m[4]*other[0] + m[5]*other[2] + other[4],
		m[4]*other[1] + m[5]*other[3] + other[5],
	}
}

// MapRect maps all four corners of r and returns their bounding box. Mapping only two
// corners would undercount rotated or skewed rectangles.
func (m Matrix) MapRect(r Rect) Rect {
	corners := r.Corners()
	// four points, cannot fail
	box, _ := m.MapPoints(corners[:]...)
	return box
}

// MapPoints maps every point and returns their bounding box
func (m Matrix) MapPoints(points ...Point) (Rect, error) {
	mapped := make([]Point, 0, len(points))
	for _, p := range points {
		mapped = append(mapped, m.Apply(p))
	}
	return BoundingBox(mapped...)
}

// IsIdentity returns true if the matrix is an identity matrix
func (m Matrix) IsIdentity() bool {
	return m == Identity()
}

// IsFinite reports whether every coefficient is finite
func (m Matrix) IsFinite() bool {
	for _, v := range m {
		if !isFinite(v) {
			return false
		}
	}
	return true
}
