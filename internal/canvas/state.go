package canvas

import "github.com/a3tai/mcp-redaction-scanner/internal/geometry"

// DefaultFillStyle is the fill style of a fresh surface
const DefaultFillStyle = "#000000"

type drawState struct {
	transform   geometry.Matrix
	globalAlpha float64
	fillStyle   string
}

// State is a surface that tracks graphics state and discards paint. It is the
// default render target when no pixels are needed, and the base of Raster.
type State struct {
	current drawState
	stack   []drawState

	// Draws counts compositing calls received
	Draws int
}

// NewState creates a state-only surface whose transform starts at base
func NewState(base geometry.Matrix) *State {
	return &State{
		current: drawState{
			transform:   base,
			globalAlpha: 1,
			fillStyle:   DefaultFillStyle,
		},
	}
}

// Save pushes the current state
func (s *State) Save() {
	s.stack = append(s.stack, s.current)
}

// Restore pops the last saved state. An unbalanced Restore is ignored, as a canvas does.
func (s *State) Restore() {
	if len(s.stack) == 0 {
		return
	}
	s.current = s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
}

// Transform post-multiplies the current transform
func (s *State) Transform(m geometry.Matrix) {
	s.current.transform = m.Multiply(s.current.transform)
}

// SetTransform replaces the current transform
func (s *State) SetTransform(m geometry.Matrix) {
	s.current.transform = m
}

// CurrentTransform implements TransformQuerier
func (s *State) CurrentTransform() geometry.Matrix {
	return s.current.transform
}

// SetGlobalAlpha sets the global alpha; values outside [0,1] are ignored
func (s *State) SetGlobalAlpha(alpha float64) {
	if !(alpha >= 0 && alpha <= 1) {
		return
	}
	s.current.globalAlpha = alpha
}

// GlobalAlpha returns the global alpha
func (s *State) GlobalAlpha() float64 {
	return s.current.globalAlpha
}

// SetFillStyle sets the CSS fill style
func (s *State) SetFillStyle(style string) {
	s.current.fillStyle = style
}

// FillStyle returns the CSS fill style
func (s *State) FillStyle() string {
	return s.current.fillStyle
}

// FillRect counts the call
func (s *State) FillRect(_, _, _, _ float64) {
	s.Draws++
}

// FillPath counts the call
func (s *State) FillPath(_ Path) {
	s.Draws++
}

// DrawImage counts the call
func (s *State) DrawImage(_ Image, _ ...float64) {
	s.Draws++
}

// Depth returns the number of saved states
func (s *State) Depth() int {
	return len(s.stack)
}
