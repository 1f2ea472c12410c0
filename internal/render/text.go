package render

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/a3tai/mcp-redaction-scanner/internal/geometry"
)

const (
	// sameLineTolerance is the baseline drift, in user space units, still treated as one line
	sameLineTolerance = 0.5
	// maxGapRatio is the horizontal gap, relative to the font size, that still joins glyphs
	maxGapRatio = 0.3
)

// textLayer reads the text layer of a document through ledongthuc/pdf
type textLayer struct {
	reader *pdf.Reader
}

func openTextLayer(data []byte) (layer *textLayer, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic opening text layer: %v", p)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	return &textLayer{reader: reader}, nil
}

// runs extracts the text runs of page n
func (t *textLayer) runs(n int) (runs []TextRun, err error) {
	defer func() {
		if p := recover(); p != nil {
			runs, err = nil, fmt.Errorf("panic reading text: %v", p)
		}
	}()

	if n < 1 || n > t.reader.NumPage() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPage, n)
	}
	page := t.reader.Page(n)
	if page.V.IsNull() {
		return nil, nil
	}
	return GroupGlyphs(page.Content().Text), nil
}

// GroupGlyphs joins consecutive glyphs that share a baseline, font and size into runs
func GroupGlyphs(glyphs []pdf.Text) []TextRun {
	var runs []TextRun
	var cur *pdf.Text
	var text strings.Builder
	var endX float64

	emit := func() {
		if cur == nil {
			return
		}
		s := text.String()
		if strings.TrimSpace(s) != "" {
			runs = append(runs, TextRun{
				Text:      s,
				Transform: geometry.Matrix{cur.FontSize, 0, 0, cur.FontSize, cur.X, cur.Y},
				Width:     endX - cur.X,
				Height:    cur.FontSize,
			})
		}
		cur = nil
		text.Reset()
	}

	for i := range glyphs {
		g := glyphs[i]
		if cur != nil && continues(*cur, g, endX) {
			text.WriteString(g.S)
			endX = math.Max(endX, g.X+g.W)
			continue
		}
		emit()
		cur = &glyphs[i]
		text.WriteString(g.S)
		endX = g.X + g.W
	}
	emit()

	return runs
}

func continues(start, g pdf.Text, endX float64) bool {
	if g.Font != start.Font || g.FontSize != start.FontSize {
		return false
	}
	if math.Abs(g.Y-start.Y) > sameLineTolerance {
		return false
	}
	gap := g.X - endX
	return gap >= -maxGapRatio*start.FontSize && gap < maxGapRatio*start.FontSize
}
