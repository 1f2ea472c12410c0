package analysis

import (
	"math"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/a3tai/mcp-redaction-scanner/internal/capture"
	"github.com/a3tai/mcp-redaction-scanner/internal/geometry"
	"github.com/a3tai/mcp-redaction-scanner/internal/render"
)

// TextItems places text runs in viewport space. Boxes grow upward from the mapped
// baseline; heightFloor and widthFloor guard against zero-size synthetic runs.
func TextItems(runs []render.TextRun, vp render.Viewport, heightFloor, widthFloor float64) []TextItem {
	items := make([]TextItem, 0, len(runs))
	for _, run := range runs {
		if strings.TrimSpace(run.Text) == "" {
			continue
		}

		origin := vp.Transform.Apply(geometry.Point{X: run.Transform[4], Y: run.Transform[5]})
		w := math.Max(run.Width*vp.Scale, widthFloor)
		h := math.Max(run.Height*vp.Scale, heightFloor)

		box := geometry.Rect{X: origin.X, Y: origin.Y - h, Width: w, Height: h}
		if !box.IsFinite() {
			continue
		}
		items = append(items, TextItem{Text: run.Text, Box: box})
	}
	return items
}

// Classify marks each region recoverable when at least one text item intersects it
func Classify(regions []capture.Region, items []TextItem) []Candidate {
	candidates := make([]Candidate, 0, len(regions))
	for _, r := range regions {
		c := Candidate{Rect: r.Rect, Kind: r.Kind, Subtype: r.Subtype}

		var hits []string
		for _, it := range items {
			if geometry.Intersects(r.Rect, it.Box) {
				hits = append(hits, it.Text)
			}
		}
		if len(hits) > 0 {
			c.Recoverable = true
			c.RecoveredText = JoinText(hits)
		}
		candidates = append(candidates, c)
	}
	return candidates
}

// JoinText joins runs with single spaces, collapsing inner whitespace and applying
// NFKC so ligatures and compatibility forms read as plain text.
func JoinText(parts []string) string {
	joined := strings.Join(parts, " ")
	return norm.NFKC.String(strings.Join(strings.Fields(joined), " "))
}
