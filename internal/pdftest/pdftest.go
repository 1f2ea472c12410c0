// Package pdftest builds small, byte-exact PDF documents for tests.
package pdftest

import (
	"fmt"
	"strings"
)

// Page describes one page of a generated document
type Page struct {
	// Content is the uncompressed content stream
	Content string
	// Annots are annotation dictionaries, without the surrounding << >>
	Annots []string
	// MediaBox defaults to US Letter
	MediaBox string
	Rotate   int
	// XObjects maps resource names to stream objects built with Stream
	XObjects map[string]string
	// ExtGStates maps resource names to dictionaries, without the surrounding << >>
	ExtGStates map[string]string
}

// Stream renders a stream object with the given dictionary entries and data
func Stream(dict, data string) string {
	return fmt.Sprintf("<< %s /Length %d >>\nstream\n%s\nendstream", dict, len(data), data)
}

// Build renders a complete PDF. Object 1 is the catalog, 2 the page tree and 3 a
// Helvetica font, with every glyph half an em wide, available to every page as /F1.
func Build(pages ...Page) []byte {
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"", // page tree, filled in below
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /FirstChar 32 /LastChar 126 /Widths [" +
			strings.TrimSpace(strings.Repeat("500 ", 95)) + "] >>",
	}
	add := func(body string) int {
		objects = append(objects, body)
		return len(objects)
	}

	var kids []string
	for _, p := range pages {
		contentRef := add(Stream("", p.Content))

		var annotRefs []string
		for _, a := range p.Annots {
			annotRefs = append(annotRefs, fmt.Sprintf("%d 0 R", add("<< /Type /Annot "+a+" >>")))
		}

		var xobjects []string
		for name, body := range p.XObjects {
			xobjects = append(xobjects, fmt.Sprintf("/%s %d 0 R", name, add(body)))
		}
		var states []string
		for name, body := range p.ExtGStates {
			states = append(states, fmt.Sprintf("/%s << %s >>", name, body))
		}

		box := p.MediaBox
		if box == "" {
			box = "[0 0 612 792]"
		}

		var page strings.Builder
		fmt.Fprintf(&page, "<< /Type /Page /Parent 2 0 R /MediaBox %s /Contents %d 0 R", box, contentRef)
		page.WriteString(" /Resources << /Font << /F1 3 0 R >>")
		if len(xobjects) > 0 {
			page.WriteString(" /XObject << " + strings.Join(xobjects, " ") + " >>")
		}
		if len(states) > 0 {
			page.WriteString(" /ExtGState << " + strings.Join(states, " ") + " >>")
		}
		page.WriteString(" >>")
		if p.Rotate != 0 {
			fmt.Fprintf(&page, " /Rotate %d", p.Rotate)
		}
		if len(annotRefs) > 0 {
			page.WriteString(" /Annots [" + strings.Join(annotRefs, " ") + "]")
		}
		page.WriteString(" >>")

		kids = append(kids, fmt.Sprintf("%d 0 R", add(page.String())))
	}
	objects[1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(kids))

	var b strings.Builder
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects)+1)
	for i, body := range objects {
		offsets[i+1] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}

	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n", len(objects)+1)
	b.WriteString("0000000000 65535 f \n")
	for i := 1; i <= len(objects); i++ {
		fmt.Fprintf(&b, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	return []byte(b.String())
}

// Text returns content that shows s at (x, y) in 12pt Helvetica
func Text(x, y float64, s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "(", `\(`)
	s = strings.ReplaceAll(s, ")", `\)`)
	return fmt.Sprintf("BT\n/F1 12 Tf\n%g %g Td\n(%s) Tj\nET\n", x, y, s)
}

// Bar returns content that fills a rectangle in user space with the given grey level
func Bar(gray, x, y, w, h float64) string {
	return fmt.Sprintf("q\n%g g\n%g %g %g %g re\nf\nQ\n", gray, x, y, w, h)
}

// Redacted is a one-page document with a sentence whose middle is covered by a
// black bar; the text stays in the text layer.
func Redacted() []byte {
	return Build(Page{
		Content: Text(72, 700, "Account number 4111 1111 1111 1111 belongs to the client") +
			Bar(0, 160, 690, 150, 24),
	})
}

// Clean is a one-page document with text and no covering shapes
func Clean() []byte {
	return Build(Page{Content: Text(72, 700, "Nothing to see here")})
}
