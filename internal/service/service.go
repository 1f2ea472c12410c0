// Package service ties intake, scanning and reporting together for the transports.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"

	"github.com/a3tai/mcp-redaction-scanner/internal/analysis"
	"github.com/a3tai/mcp-redaction-scanner/internal/config"
	"github.com/a3tai/mcp-redaction-scanner/internal/intake"
	"github.com/a3tai/mcp-redaction-scanner/internal/render"
	"github.com/a3tai/mcp-redaction-scanner/internal/report"
)

// Service handles uploads and scans
type Service struct {
	store         *intake.Store
	validator     *intake.Validator
	pathValidator *intake.PathValidator
	loader        render.Loader
	policy        analysis.Policy
	previewDir    string
	logger        *log.Logger
}

// NewService creates a service from cfg. A nil loader selects the pdfcpu backend.
func NewService(cfg *config.Config, loader render.Loader) (*Service, error) {
	pathValidator, err := intake.NewPathValidator(cfg.Directory)
	if err != nil {
		return nil, fmt.Errorf("failed to create path validator: %w", err)
	}
	if loader == nil {
		loader = render.NewPDFCPULoader()
	}

	return &Service{
		store:         intake.NewStore(cfg.TokenTTL, cfg.MaxUploads),
		validator:     intake.NewValidator(cfg.MaxFileSize),
		pathValidator: pathValidator,
		loader:        loader,
		policy:        cfg.Policy(),
		previewDir:    cfg.PreviewDirectory,
		logger:        log.Default(),
	}, nil
}

// PendingUploads returns the number of uploads not yet scanned
func (s *Service) PendingUploads() int {
	return s.store.Len()
}

// SweepUploads drops expired uploads and returns how many were removed
func (s *Service) SweepUploads() int {
	return s.store.Sweep()
}

// SetLogger replaces the logger used by scans
func (s *Service) SetLogger(l *log.Logger) {
	if l != nil {
		s.logger = l
	}
}

// Directory returns the directory files may be scanned from
func (s *Service) Directory() string {
	return s.pathValidator.Directory()
}

// MaxFileSize returns the upload limit in bytes
func (s *Service) MaxFileSize() int64 {
	return s.validator.MaxFileSize()
}

// Policy returns the detection thresholds
func (s *Service) Policy() analysis.Policy {
	return s.policy
}

// Upload validates data and hands back a single-use token for it
func (s *Service) Upload(data []byte) (string, error) {
	if err := s.validator.Validate(data); err != nil {
		return "", &analysis.ScanError{Kind: analysis.ErrorKindInput, Op: "upload", Err: err}
	}
	token, err := s.store.Put(data)
	if err != nil {
		return "", &analysis.ScanError{Kind: analysis.ErrorKindInput, Op: "upload", Err: err}
	}
	return token, nil
}

// ScanToken claims the upload behind token and scans it. A missing or expired token
// ends with a terminal status on sink and no processing.
func (s *Service) ScanToken(ctx context.Context, token string, sink analysis.Sink) (*report.Report, error) {
	data, err := s.store.Take(token)
	if err != nil {
		sink = orNop(sink)
		switch {
		case errors.Is(err, intake.ErrNoToken):
			sink.Status(analysis.StatusNoToken)
		case errors.Is(err, intake.ErrTokenExpired):
			sink.Status(analysis.StatusTokenExpired)
		}
		return nil, &analysis.ScanError{Kind: analysis.ErrorKindInput, Op: "token", Err: err}
	}
	// tokens are unique, so concurrent uploads never share preview files
	return s.scan(ctx, "upload", "upload-"+token, data, sink)
}

// ScanFile scans a PDF inside the configured directory
func (s *Service) ScanFile(ctx context.Context, path string, sink analysis.Sink) (*report.Report, error) {
	resolved, err := s.pathValidator.Resolve(path)
	if err != nil {
		return nil, &analysis.ScanError{Kind: analysis.ErrorKindInput, Op: "path", Err: fmt.Errorf("security validation failed: %w", err)}
	}
	data, err := s.validator.ReadFile(resolved)
	if err != nil {
		return nil, &analysis.ScanError{Kind: analysis.ErrorKindInput, Op: "read", Err: err}
	}
	return s.scan(ctx, resolved, previewPrefix(resolved), data, sink)
}

// ScanBytes scans data that was handed over directly. Previews are named after
// source, so callers scanning concurrently should pass distinct sources.
func (s *Service) ScanBytes(ctx context.Context, source string, data []byte, sink analysis.Sink) (*report.Report, error) {
	if err := s.validator.Validate(data); err != nil {
		return nil, &analysis.ScanError{Kind: analysis.ErrorKindInput, Op: "validate", Err: err}
	}
	return s.scan(ctx, source, previewPrefix(source), data, sink)
}

func (s *Service) scan(ctx context.Context, source, prefix string, data []byte, sink analysis.Sink) (*report.Report, error) {
	collector := report.NewCollector(source)
	sinks := analysis.MultiSink{collector}
	if sink != nil {
		sinks = append(sinks, sink)
	}

	opts := []analysis.Option{analysis.WithPolicy(s.policy), analysis.WithLogger(s.logger)}
	var previews *report.Previewer
	if s.previewDir != "" {
		previews = report.NewPreviewer(s.previewDir, prefix)
		opts = append(opts, analysis.WithSurfaces(previews.Surfaces))
		sinks = append(sinks, previews)
	}

	scanner := analysis.NewScanner(s.loader, opts...)
	if _, err := scanner.Scan(ctx, data, sinks); err != nil {
		return nil, err
	}

	r, err := collector.Report()
	if err != nil {
		return nil, err
	}
	if previews != nil {
		if err := previews.Err(); err != nil {
			s.logger.Printf("preview: %v", err)
		}
		r.Previews = previews.Files()
	}
	return r, nil
}

func previewPrefix(source string) string {
	base := filepath.Base(source)
	if ext := filepath.Ext(base); ext != "" {
		base = base[:len(base)-len(ext)]
	}
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "upload"
	}
	return base
}

func orNop(sink analysis.Sink) analysis.Sink {
	if sink == nil {
		return analysis.NopSink{}
	}
	return sink
}
