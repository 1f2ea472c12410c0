package analysis

import "fmt"

// PageState is the step a page is in
type PageState int

const (
	StateIdle PageState = iota
	StateRendering
	StateExtracting
	StateAggregating
	StateClassifying
	StateDone
)

func (s PageState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRendering:
		return "rendering"
	case StateExtracting:
		return "extracting"
	case StateAggregating:
		return "aggregating"
	case StateClassifying:
		return "classifying"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("PageState(%d)", int(s))
	}
}

// pageMachine enforces Idle → Rendering → Extracting → Aggregating → Classifying → Done
type pageMachine struct {
	page    int
	state   PageState
	observe func(page int, state PageState)
}

func (m *pageMachine) advance(next PageState) error {
	if next != m.state+1 {
		return &ScanError{
			Kind: ErrorKindState,
			Page: m.page,
			Op:   "transition",
			Err:  fmt.Errorf("%w: %s to %s", ErrInvalidTransition, m.state, next),
		}
	}
	m.state = next
	if m.observe != nil {
		m.observe(m.page, next)
	}
	return nil
}
