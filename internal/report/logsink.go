package report

import (
	"log"

	"github.com/a3tai/mcp-redaction-scanner/internal/analysis"
)

// LogSink echoes scan progress to a logger
type LogSink struct {
	logger  *log.Logger
	verbose bool
}

// NewLogSink creates a sink writing to logger; nil means the standard logger.
// Progress and counts are only logged when verbose is set.
func NewLogSink(logger *log.Logger, verbose bool) *LogSink {
	if logger == nil {
		logger = log.Default()
	}
	return &LogSink{logger: logger, verbose: verbose}
}

func (s *LogSink) Status(msg string) {
	s.logger.Print(msg)
}

func (s *LogSink) Progress(percent int) {
	if s.verbose {
		s.logger.Printf("progress %d%%", percent)
	}
}

func (s *LogSink) Counts(c analysis.Counts) {
	if s.verbose {
		s.logger.Printf("annotations=%d vectors=%d images=%d", c.Annotations, c.Vectors, c.Images)
	}
}

func (s *LogSink) Page(r analysis.PageResult) {
	s.logger.Printf("page %d: %d candidate(s), %d recoverable", r.Page, r.CandidateCount, r.RecoverableCount)
}

func (s *LogSink) Totals(t analysis.Totals) {
	s.logger.Printf("total redactions: %d, recoverable: %d (%d%%)", t.TotalRedactions, t.RecoverableCount, t.RecoveryPercent)
}
