package capture

import "github.com/a3tai/mcp-redaction-scanner/internal/canvas"

// Result is what a capture session observed on one page
type Result struct {
	Regions []Region
	Stats   Stats
}

// Session installs a Recorder over surface for the duration of fn and seals it on the
// way out, even if fn fails or panics. fn must draw through the surface it is given.
func Session(surface canvas.Surface, bounds Bounds, policy Policy, onError func(*CaptureError),
	fn func(canvas.Surface) error,
) (Result, error) {
	rec := NewRecorder(surface, bounds, policy, onError)
	defer rec.Seal()

	if err := fn(rec); err != nil {
		return Result{}, err
	}

	return Result{Regions: rec.Regions(), Stats: rec.Stats()}, nil
}

// Counts splits regions by kind
func Counts(regions []Region) (vectors, images int) {
	for _, r := range regions {
		switch r.Kind {
		case KindVector:
			vectors++
		case KindImage:
			images++
		}
	}
	return vectors, images
}
