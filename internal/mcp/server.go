package mcp

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/a3tai/mcp-redaction-scanner/internal/analysis"
	"github.com/a3tai/mcp-redaction-scanner/internal/config"
	"github.com/a3tai/mcp-redaction-scanner/internal/descriptions"
	"github.com/a3tai/mcp-redaction-scanner/internal/intake"
	"github.com/a3tai/mcp-redaction-scanner/internal/report"
	"github.com/a3tai/mcp-redaction-scanner/internal/service"
)

const shutdownTimeout = 5 * time.Second

// ToolInfo describes one registered tool for the server info output
type ToolInfo struct {
	Name        string
	Description string
	Parameters  string
}

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	service   *service.Service
	mcpServer *server.MCPServer
	tools     []ToolInfo
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, svc *service.Service) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		config:    cfg,
		service:   svc,
		mcpServer: mcpServer,
	}
	s.registerTools()

	return s, nil
}

func (s *Server) addTool(tool mcp.Tool, params string, handler server.ToolHandlerFunc) {
	s.mcpServer.AddTool(tool, handler)
	s.tools = append(s.tools, ToolInfo{Name: tool.Name, Description: tool.Description, Parameters: params})
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	s.addTool(mcp.NewTool(
		"redaction_upload",
		mcp.WithDescription(descriptions.GetToolDescription("redaction_upload")),
		mcp.WithString("data",
			mcp.Required(),
			mcp.Description("Base64 encoded PDF bytes"),
		),
	), "data (base64, required)", s.handleUpload)

	s.addTool(mcp.NewTool(
		"redaction_scan_token",
		mcp.WithDescription(descriptions.GetToolDescription("redaction_scan_token")),
		mcp.WithString("token",
			mcp.Required(),
			mcp.Description("Token returned by redaction_upload; each token can be scanned once"),
		),
		mcp.WithString("format",
			mcp.Description("Report format: text, json or yaml"),
		),
	), "token (required), format (optional)", s.handleScanToken)

	s.addTool(mcp.NewTool(
		"redaction_scan_file",
		mcp.WithDescription(descriptions.GetToolDescription("redaction_scan_file")),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the PDF file, relative to the configured directory or absolute inside it"),
		),
		mcp.WithString("format",
			mcp.Description("Report format: text, json or yaml"),
		),
	), "path (required), format (optional)", s.handleScanFile)

	s.addTool(mcp.NewTool(
		"redaction_server_info",
		mcp.WithDescription(descriptions.GetToolDescription("redaction_server_info")),
	), "none", s.handleServerInfo)
}

// Handler functions
func (s *Server) handleUpload(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	encoded, err := request.RequireString("data")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid data parameter: %v", err)), nil
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid data parameter: not base64: %v", err)), nil
	}

	token, err := s.service.Upload(data)
	if err != nil {
		_, msg := describeError(err)
		return mcp.NewToolResultError(msg), nil
	}

	text := fmt.Sprintf("Document token: %s\n", token)
	text += fmt.Sprintf("Size: %d bytes\n", len(data))
	text += fmt.Sprintf("Expires in: %s (single use)\n", s.config.TokenTTL)
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleScanToken(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	token, err := request.RequireString("token")
	if err != nil {
		return mcp.NewToolResultError(analysis.StatusNoToken), nil
	}
	format, err := s.format(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	r, err := s.service.ScanToken(ctx, token, nil)
	return s.reportResult(r, format, err)
}

func (s *Server) handleScanFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid path parameter: %v", err)), nil
	}
	format, err := s.format(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	r, err := s.service.ScanFile(ctx, path, nil)
	return s.reportResult(r, format, err)
}

func (s *Server) handleServerInfo(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.formatServerInfo()), nil
}

func (s *Server) format(request mcp.CallToolRequest) (report.Format, error) {
	return report.ParseFormat(request.GetString("format", s.config.Format))
}

func (s *Server) reportResult(r *report.Report, format report.Format, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		_, msg := describeError(err)
		return mcp.NewToolResultError(msg), nil
	}

	var b strings.Builder
	if err := report.Write(&b, r, format); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format report: %v", err)), nil
	}
	return mcp.NewToolResultText(b.String()), nil
}

// describeError maps a scan failure to an HTTP status and a user facing message
func describeError(err error) (int, string) {
	switch {
	case errors.Is(err, intake.ErrNoToken):
		return http.StatusBadRequest, analysis.StatusNoToken
	case errors.Is(err, intake.ErrTokenExpired):
		return http.StatusGone, analysis.StatusTokenExpired
	case errors.Is(err, intake.ErrStoreFull):
		return http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, intake.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, err.Error()
	}

	switch analysis.KindOf(err) {
	case analysis.ErrorKindInput:
		return http.StatusBadRequest, err.Error()
	case analysis.ErrorKindRender:
		return http.StatusUnprocessableEntity, fmt.Sprintf("%s: %v", analysis.StatusLoadError, err)
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

func (s *Server) formatServerInfo() string {
	policy := s.service.Policy()

	text := fmt.Sprintf("🔍 %s v%s\n\n", s.config.ServerName, s.config.Version)
	text += fmt.Sprintf("📁 Scan Directory: %s\n", s.service.Directory())
	text += fmt.Sprintf("📏 Max File Size: %d MB\n", s.service.MaxFileSize()/(1024*1024))
	text += fmt.Sprintf("⏱️  Upload Token Lifetime: %s\n", s.config.TokenTTL)
	text += fmt.Sprintf("📥 Pending Uploads: %d of %d\n\n", s.service.PendingUploads(), s.config.MaxUploads)

	text += "🎯 Detection Thresholds:\n"
	text += fmt.Sprintf("  Render scale: %g\n", policy.Scale)
	text += fmt.Sprintf("  Minimum overlay: %gx%g px\n", policy.Capture.MinWidth, policy.Capture.MinHeight)
	text += fmt.Sprintf("  Minimum alpha: fill %g, image %g\n", policy.Capture.MinFillAlpha, policy.Capture.MinImageAlpha)
	text += fmt.Sprintf("  Layout filter: below %gx%g px, area above %g, span above %g\n",
		policy.Capture.Layout.MinWidth, policy.Capture.Layout.MinHeight,
		policy.Capture.Layout.MaxAreaRatio, policy.Capture.Layout.MaxSpanRatio)
	text += fmt.Sprintf("  Dedupe tolerance: %g px\n", policy.DedupeEpsilon)

	text += "\n🛠️  Available Tools:\n"
	for _, tool := range s.tools {
		text += fmt.Sprintf("\n• %s\n", tool.Name)
		text += fmt.Sprintf("  Description: %s\n", summary(tool.Description))
		text += fmt.Sprintf("  Parameters: %s\n", tool.Parameters)
	}

	text += "\n💡 Usage: upload a PDF with redaction_upload, then call redaction_scan_token with the token, " +
		"or scan a file in the directory with redaction_scan_file. Candidates marked RECOVERABLE still " +
		"have their text in the document.\n"
	return text
}

// summary returns the first line of a tool description
func summary(desc string) string {
	if i := strings.IndexByte(desc, '\n'); i >= 0 {
		return desc[:i]
	}
	return desc
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.sweepUploads(ctx, s.config.TokenTTL)

	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// sweepUploads drops expired uploads every interval until ctx is done
func (s *Server) sweepUploads(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.service.SweepUploads(); n > 0 && s.config.IsDebug() {
				log.Printf("Dropped %d expired uploads", n)
			}
		}
	}
}

// runStdioMode runs the server in stdio mode
func (s *Server) runStdioMode(_ context.Context) error {
	if s.config.IsDebug() {
		log.Printf("Starting redaction scanner in stdio mode")
		log.Printf("Scan directory: %s", s.service.Directory())
	}

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode serves the REST and streamable MCP endpoints until ctx is done
func (s *Server) runServerMode(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Address(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve http: %w", err)
	}
}
