package analysis

import (
	"bytes"
	"context"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-redaction-scanner/internal/canvas"
	"github.com/a3tai/mcp-redaction-scanner/internal/capture"
	"github.com/a3tai/mcp-redaction-scanner/internal/geometry"
	"github.com/a3tai/mcp-redaction-scanner/internal/render"
)

func quietLogger() *log.Logger {
	return log.New(&bytes.Buffer{}, "", 0)
}

// inViewport draws directly in viewport pixels
func inViewport(fn func(s canvas.Surface)) func(s canvas.Surface) {
	return func(s canvas.Surface) {
		s.Save()
		s.SetTransform(geometry.Identity())
		fn(s)
		s.Restore()
	}
}

func scanOne(t *testing.T, page *fakePage) *Summary {
	t.Helper()
	scanner := NewScanner(nil, WithLogger(quietLogger()))
	summary, err := scanner.ScanDocument(context.Background(), newFakeDoc(page), nil)
	require.NoError(t, err)
	require.Len(t, summary.Pages, 1)
	return summary
}

func TestScanner_Scenarios(t *testing.T) {
	t.Run("AnnotationWithoutText", func(t *testing.T) {
		summary := scanOne(t, &fakePage{
			annots: []render.Annotation{{Subtype: "Square", Rect: []float64{100, 100, 200, 150}}},
		})

		page := summary.Pages[0]
		require.Len(t, page.Candidates, 1)
		c := page.Candidates[0]
		assert.Equal(t, capture.KindAnnotation, c.Kind)
		assert.Equal(t, "Square", c.Subtype)
		assert.Equal(t, geometry.Rect{X: 150, Y: 963, Width: 150, Height: 75}, c.Rect)
		assert.False(t, c.Recoverable)
		assert.Empty(t, c.RecoveredText)
		assert.Equal(t, Totals{Pages: 1, TotalRedactions: 1, RecoverableCount: 0}, summary.Totals)
	})

	t.Run("AnnotationOverText", func(t *testing.T) {
		summary := scanOne(t, &fakePage{
			annots: []render.Annotation{{Subtype: "Square", Rect: []float64{100, 100, 200, 150}}},
			runs: []render.TextRun{{
				Text:      "SECRET",
				Transform: geometry.Matrix{12, 0, 0, 12, 110, 110},
				Width:     40,
				Height:    12,
			}},
		})

		c := summary.Pages[0].Candidates[0]
		assert.True(t, c.Recoverable)
		assert.Equal(t, "SECRET", c.RecoveredText)
		assert.Equal(t, 1, summary.Totals.RecoverableCount)
		assert.Equal(t, 100, summary.Totals.RecoveryPercent)
	})

	t.Run("TinyFillIgnored", func(t *testing.T) {
		summary := scanOne(t, &fakePage{draw: func(s canvas.Surface) {
			s.FillRect(100, 100, 5, 5)
		}})

		assert.Empty(t, summary.Pages[0].Candidates)
		assert.Equal(t, 1, summary.Pages[0].Capture.TooSmall)
	})

	t.Run("LargeFillIgnored", func(t *testing.T) {
		summary := scanOne(t, &fakePage{draw: func(s canvas.Surface) {
			s.FillRect(0, 0, 612*0.8, 792*0.5)
		}})

		assert.Empty(t, summary.Pages[0].Candidates)
		assert.Zero(t, summary.Totals.TotalRedactions)
	})

	t.Run("NearDuplicateOverlays", func(t *testing.T) {
		summary := scanOne(t, &fakePage{draw: inViewport(func(s canvas.Surface) {
			s.FillRect(100, 100, 50, 20)
			s.FillRect(100.5, 100.7, 50.2, 19.8)
		})})

		page := summary.Pages[0]
		assert.Equal(t, 2, page.VectorCount)
		require.Len(t, page.Candidates, 1)
		assert.Equal(t, geometry.Rect{X: 100, Y: 100, Width: 50, Height: 20}, page.Candidates[0].Rect)
	})

	t.Run("BackgroundIsNotACandidate", func(t *testing.T) {
		summary := scanOne(t, &fakePage{})
		assert.Empty(t, summary.Pages[0].Candidates)
		assert.Equal(t, 1, summary.Pages[0].Capture.Layout)
	})

	t.Run("TransparentFillIgnored", func(t *testing.T) {
		summary := scanOne(t, &fakePage{draw: func(s canvas.Surface) {
			s.SetGlobalAlpha(0.05)
			s.FillRect(160, 690, 150, 24)
		}})
		assert.Empty(t, summary.Pages[0].Candidates)
		assert.Equal(t, 1, summary.Pages[0].Capture.Transparent)
	})

	t.Run("ImageOverlay", func(t *testing.T) {
		summary := scanOne(t, &fakePage{draw: func(s canvas.Surface) {
			s.Save()
			s.Transform(geometry.Matrix{200, 0, 0, 50, 100, 600})
			s.Transform(geometry.Scale(1.0/400, -1.0/100))
			s.DrawImage(canvas.ImageSize{Width: 400, Height: 100}, 0, 0, 400, 100, 0, -100, 400, 100)
			s.Restore()
		}})

		page := summary.Pages[0]
		assert.Equal(t, 1, page.ImageCount)
		require.Len(t, page.Candidates, 1)
		assert.Equal(t, capture.KindImage, page.Candidates[0].Kind)
	})
}

func TestScanner_SinkSequence(t *testing.T) {
	doc := newFakeDoc(
		&fakePage{annots: []render.Annotation{{Rect: []float64{100, 100, 200, 150}}}},
		&fakePage{
			draw: func(s canvas.Surface) { s.FillRect(160, 690, 150, 24) },
			runs: []render.TextRun{{
				Text:      "4111  1111",
				Transform: geometry.Matrix{12, 0, 0, 12, 170, 695},
				Width:     60,
				Height:    12,
			}},
		},
	)
	sink := &eventSink{}
	var yields int

	scanner := NewScanner(nil, WithLogger(quietLogger()), WithYield(func() { yields++ }))
	summary, err := scanner.ScanDocument(context.Background(), doc, sink)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"status:Loading PDF…", "progress:2", "counts:0/0/0",
		"status:Scanning page 1 of 2", "progress:0", "counts:0/0/0",
		"page:1", "progress:50", "counts:1/0/0",
		"status:Scanning page 2 of 2", "progress:50", "counts:1/0/0",
		"page:2", "progress:100", "counts:1/1/0",
		"status:Analysis complete", "progress:100", "totals:2/1/50",
	}, sink.events)

	assert.Equal(t, 1, yields)
	assert.Equal(t, "4111 1111", summary.Pages[1].Candidates[0].RecoveredText)
	assert.Equal(t, Counts{Annotations: 1, Vectors: 1}, summary.Counts)
	assert.False(t, doc.closed, "ScanDocument leaves the document open")
}

func TestScanner_StateTransitions(t *testing.T) {
	var seen []PageState
	scanner := NewScanner(nil,
		WithLogger(quietLogger()),
		WithStateObserver(func(page int, s PageState) {
			if page == 1 {
				seen = append(seen, s)
			}
		}))

	_, err := scanner.ScanDocument(context.Background(), newFakeDoc(&fakePage{}), nil)
	require.NoError(t, err)
	assert.Equal(t, []PageState{StateRendering, StateExtracting, StateAggregating, StateClassifying, StateDone}, seen)
}

func TestPageMachine_RejectsSkips(t *testing.T) {
	m := &pageMachine{page: 3}
	err := m.advance(StateClassifying)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, ErrorKindState, KindOf(err))
	assert.Equal(t, StateIdle, m.state)
}

func TestScanner_FailFast(t *testing.T) {
	boom := errors.New("corrupt content stream")
	doc := newFakeDoc(
		&fakePage{annots: []render.Annotation{{Rect: []float64{100, 100, 200, 150}}}},
		&fakePage{renderErr: boom},
		&fakePage{},
	)
	sink := &eventSink{}

	summary, err := NewScanner(nil, WithLogger(quietLogger())).ScanDocument(context.Background(), doc, sink)
	assert.Nil(t, summary)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, ErrorKindRender, KindOf(err))

	var se *ScanError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 2, se.Page)
	assert.Equal(t, "render", se.Op)

	assert.Equal(t, StatusLoadError, sink.lastMsg)
	assert.Nil(t, sink.totals)
	assert.Equal(t, []int{1, 2}, doc.requested, "no page after the failure is touched")
}

func TestScanner_TextFailureIsFatal(t *testing.T) {
	doc := newFakeDoc(&fakePage{textErr: errors.New("bad font")})
	_, err := NewScanner(nil, WithLogger(quietLogger())).ScanDocument(context.Background(), doc, nil)
	require.Error(t, err)

	var se *ScanError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "text", se.Op)
}

func TestScanner_CaptureErrorsAreLogged(t *testing.T) {
	var buf bytes.Buffer
	scanner := NewScanner(nil, WithLogger(log.New(&buf, "", 0)))

	summary, err := scanner.ScanDocument(context.Background(), newFakeDoc(&fakePage{
		draw: func(s canvas.Surface) {
			s.DrawImage(canvas.ImageSize{Width: 10, Height: 10}, 1, 2, 3)
			s.FillRect(160, 690, 150, 24)
		},
	}), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Pages[0].Capture.Errors)
	assert.Len(t, summary.Pages[0].Candidates, 1, "later draws are still captured")
	assert.Contains(t, buf.String(), "[CAPTURE] drawImage failed on page 1: unsupported drawImage call shape")
}

func TestScanner_Scan(t *testing.T) {
	t.Run("LoadsAndClosesDocument", func(t *testing.T) {
		doc := newFakeDoc(&fakePage{})
		summary, err := NewScanner(fakeLoader{doc: doc}, WithLogger(quietLogger())).
			Scan(context.Background(), []byte("%PDF-1.4"), nil)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Totals.Pages)
		assert.True(t, doc.closed)
	})

	t.Run("LoadFailure", func(t *testing.T) {
		sink := &eventSink{}
		loadErr := &render.RenderError{Backend: render.BackendPDFCPU, Op: "load", Err: errors.New("no xref")}

		_, err := NewScanner(fakeLoader{err: loadErr}, WithLogger(quietLogger())).
			Scan(context.Background(), []byte("junk"), sink)
		require.Error(t, err)
		assert.Equal(t, ErrorKindRender, KindOf(err))

		var re *render.RenderError
		assert.ErrorAs(t, err, &re)
		assert.Equal(t, []string{
			"status:Loading PDF…", "progress:2", "counts:0/0/0", "status:Error loading PDF",
		}, sink.events)
	})

	t.Run("EmptyDocument", func(t *testing.T) {
		sink := &eventSink{}
		summary, err := NewScanner(nil, WithLogger(quietLogger())).
			ScanDocument(context.Background(), newFakeDoc(), sink)
		require.NoError(t, err)
		assert.Equal(t, Totals{}, summary.Totals)
		require.NotNil(t, sink.totals)
	})
}

func TestScanner_CustomPolicy(t *testing.T) {
	policy := DefaultPolicy()
	policy.Capture.MinWidth = 2
	policy.Capture.MinHeight = 2
	policy.Capture.Layout.MinWidth = 2
	policy.Capture.Layout.MinHeight = 2

	scanner := NewScanner(nil, WithLogger(quietLogger()), WithPolicy(policy))
	assert.Equal(t, policy, scanner.Policy())

	summary, err := scanner.ScanDocument(context.Background(), newFakeDoc(&fakePage{draw: func(s canvas.Surface) {
		s.FillRect(100, 100, 5, 5)
	}}), nil)
	require.NoError(t, err)
	assert.Len(t, summary.Pages[0].Candidates, 1)
}
