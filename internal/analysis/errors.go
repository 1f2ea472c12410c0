package analysis

import (
	"errors"
	"fmt"
)

// ErrorKind categorises scan failures
type ErrorKind int

const (
	ErrorKindUnknown ErrorKind = iota
	// ErrorKindInput covers missing or expired tokens and rejected uploads
	ErrorKindInput
	// ErrorKindCapture covers failures inside the capture recorder; never fatal
	ErrorKindCapture
	// ErrorKindRender covers decode and render failures; fatal for the document
	ErrorKindRender
	// ErrorKindState is an out-of-order page state transition
	ErrorKindState
)

// String returns a string representation of the ErrorKind
func (k ErrorKind) String() string {
	switch k {
	case ErrorKindInput:
		return "INPUT"
	case ErrorKindCapture:
		return "CAPTURE"
	case ErrorKindRender:
		return "RENDER"
	case ErrorKindState:
		return "STATE"
	default:
		return "UNKNOWN"
	}
}

// ScanError is returned by the scanner and carries the page and step that failed
type ScanError struct {
	Kind ErrorKind `json:"kind"`
	Page int       `json:"page,omitempty"`
	Op   string    `json:"operation"`
	Err  error     `json:"error"`
}

func (e *ScanError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("[%s] %s failed on page %d: %v", e.Kind, e.Op, e.Page, e.Err)
	}
	return fmt.Sprintf("[%s] %s failed: %v", e.Kind, e.Op, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first ScanError in err's chain
func KindOf(err error) ErrorKind {
	var se *ScanError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ErrorKindUnknown
}

// ErrInvalidTransition is wrapped by ErrorKindState errors
var ErrInvalidTransition = errors.New("invalid page state transition")
