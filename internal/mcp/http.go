package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/server"

	"github.com/a3tai/mcp-redaction-scanner/internal/intake"
	"github.com/a3tai/mcp-redaction-scanner/internal/report"
)

// UploadResponse is returned by POST /v1/documents
type UploadResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// Handler returns the HTTP surface: REST upload and scan endpoints plus streamable
// MCP on /mcp.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if s.config.IsDebug() {
		r.Use(middleware.Logger)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/documents", s.handleHTTPUpload)
		r.Post("/documents/{token}/scan", s.handleHTTPScanToken)
		r.Post("/scan", s.handleHTTPScan)
	})

	r.Handle("/mcp", server.NewStreamableHTTPServer(s.mcpServer))
	return r
}

// handleHTTPUpload stores the request body and returns its token.
// POST /v1/documents
func (s *Server) handleHTTPUpload(w http.ResponseWriter, r *http.Request) {
	data, ok := s.readBody(w, r)
	if !ok {
		return
	}

	token, err := s.service.Upload(data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, UploadResponse{Token: token, ExpiresIn: int(s.config.TokenTTL.Seconds())})
}

// handleHTTPScanToken scans a previously uploaded document.
// POST /v1/documents/{token}/scan?format=json
func (s *Server) handleHTTPScanToken(w http.ResponseWriter, r *http.Request) {
	format, err := s.queryFormat(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	rep, err := s.service.ScanToken(r.Context(), chi.URLParam(r, "token"), nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeReport(w, rep, format)
}

// handleHTTPScan scans the request body without keeping it.
// POST /v1/scan?format=json
func (s *Server) handleHTTPScan(w http.ResponseWriter, r *http.Request) {
	format, err := s.queryFormat(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	data, ok := s.readBody(w, r)
	if !ok {
		return
	}

	rep, err := s.service.ScanBytes(r.Context(), "request-"+uuid.NewString(), data, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeReport(w, rep, format)
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	limit := s.service.MaxFileSize()
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit+1))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, fmt.Errorf("%w: limit is %d bytes", intake.ErrTooLarge, limit))
			return nil, false
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("failed to read body: %v", err)})
		return nil, false
	}
	return data, true
}

func (s *Server) queryFormat(r *http.Request) (report.Format, error) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = string(report.FormatJSON)
	}
	return report.ParseFormat(format)
}

func writeReport(w http.ResponseWriter, rep *report.Report, format report.Format) {
	switch format {
	case report.FormatJSON:
		w.Header().Set("Content-Type", "application/json")
	case report.FormatYAML:
		w.Header().Set("Content-Type", "application/yaml")
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	w.WriteHeader(http.StatusOK)
	if err := report.Write(w, rep, format); err != nil {
		log.Printf("failed to write report: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	code, msg := describeError(err)
	writeJSON(w, code, ErrorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to write response: %v", err)
	}
}
