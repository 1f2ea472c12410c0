package report

import (
	"fmt"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"github.com/a3tai/mcp-redaction-scanner/internal/analysis"
	"github.com/a3tai/mcp-redaction-scanner/internal/canvas"
	"github.com/a3tai/mcp-redaction-scanner/internal/geometry"
	"github.com/a3tai/mcp-redaction-scanner/internal/render"
)

// Overlay fills used on previews
var (
	RecoverableFill   = canvas.FormatRGBA(0.86, 0.15, 0.15, 0.45)
	UnrecoverableFill = canvas.FormatRGBA(0.15, 0.39, 0.92, 0.35)
)

// Previewer rasterizes each page while it is scanned and writes a PNG with the
// candidates highlighted once the page is done. Its Surfaces method must be installed
// as the scanner's surface factory and the Previewer itself added as a sink.
type Previewer struct {
	analysis.NopSink

	dir     string
	prefix  string
	current *canvas.Raster
	files   []string
	err     error
}

// NewPreviewer writes previews named <prefix>-page-NNN.png into dir
func NewPreviewer(dir, prefix string) *Previewer {
	if prefix == "" {
		prefix = "preview"
	}
	return &Previewer{dir: dir, prefix: prefix}
}

// Surfaces creates a raster surface for the page being rendered
func (p *Previewer) Surfaces(vp render.Viewport) canvas.Surface {
	p.current = canvas.NewRaster(int(math.Ceil(vp.Width)), int(math.Ceil(vp.Height)), geometry.Identity())
	return p.current
}

// Page paints the candidates and writes the preview
func (p *Previewer) Page(result analysis.PageResult) {
	if p.current == nil || p.err != nil {
		return
	}
	r := p.current
	p.current = nil

	r.Save()
	r.SetTransform(geometry.Identity())
	r.SetGlobalAlpha(1)
	for _, c := range result.Candidates {
		if c.Recoverable {
			r.SetFillStyle(RecoverableFill)
		} else {
			r.SetFillStyle(UnrecoverableFill)
		}
		r.FillRect(c.X, c.Y, c.Width, c.Height)
	}
	r.Restore()

	name := filepath.Join(p.dir, fmt.Sprintf("%s-page-%03d.png", p.prefix, result.Page))
	if err := writePNG(name, r); err != nil {
		p.err = err
		return
	}
	p.files = append(p.files, name)
}

// Files returns the previews written so far
func (p *Previewer) Files() []string {
	out := make([]string, len(p.files))
	copy(out, p.files)
	return out
}

// Err returns the first write failure
func (p *Previewer) Err() error {
	return p.err
}

func writePNG(name string, r *canvas.Raster) error {
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return fmt.Errorf("failed to create preview directory: %w", err)
	}
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create preview: %w", err)
	}
	if err := png.Encode(f, r.Image()); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode preview: %w", err)
	}
	return f.Close()
}
