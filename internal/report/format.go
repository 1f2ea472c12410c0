package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format selects how a report is written
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts text, json, yaml and yml in any case
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported report format: %s (must be text, json or yaml)", s)
	}
}

// Write encodes r to w
func Write(w io.Writer, r *Report, format Format) error {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		_, err = w.Write(append(data, '\n'))
		return err
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		return enc.Close()
	case FormatText, "":
		_, err := io.WriteString(w, Text(r))
		return err
	default:
		return fmt.Errorf("unsupported report format: %s", format)
	}
}

// Text renders a human readable summary of r
func Text(r *Report) string {
	text := ""
	if r.Source != "" {
		text += fmt.Sprintf("Document: %s\n", r.Source)
	}
	text += fmt.Sprintf("Pages scanned: %d\n", r.Totals.Pages)
	text += fmt.Sprintf("Total redactions: %d\n", r.Totals.TotalRedactions)
	text += fmt.Sprintf("Recoverable: %d (%d%%)\n", r.Totals.RecoverableCount, r.Totals.RecoveryPercent)
	text += fmt.Sprintf("Overlays: %d annotation(s), %d vector(s), %d image(s)\n",
		r.Counts.Annotations, r.Counts.Vectors, r.Counts.Images)

	for _, page := range r.Pages {
		if page.CandidateCount == 0 {
			continue
		}
		text += fmt.Sprintf("\nPage %d: %d candidate(s), %d recoverable\n",
			page.Page, page.CandidateCount, page.RecoverableCount)
		for i, c := range page.Candidates {
			kind := string(c.Kind)
			if c.Subtype != "" {
				kind += "/" + c.Subtype
			}
			text += fmt.Sprintf("%d. %s at (%.1f, %.1f) %.1fx%.1f", i+1, kind, c.X, c.Y, c.Width, c.Height)
			if c.Recoverable {
				text += fmt.Sprintf(": RECOVERABLE %q", c.RecoveredText)
			}
			text += "\n"
		}
	}

	if len(r.Previews) > 0 {
		text += "\nPreviews:\n"
		for _, p := range r.Previews {
			text += fmt.Sprintf("  %s\n", p)
		}
	}
	return text
}
