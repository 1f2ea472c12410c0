package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/a3tai/mcp-redaction-scanner/internal/analysis"
	"github.com/a3tai/mcp-redaction-scanner/internal/capture"
	"github.com/a3tai/mcp-redaction-scanner/internal/geometry"
	"github.com/a3tai/mcp-redaction-scanner/internal/report"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 100 * 1024 * 1024 // 100MB
	DefaultTokenTTL    = 10 * time.Minute
	DefaultMaxUploads  = 64

	// Directory permissions
	DefaultDirPerm = 0o750

	// EnvPrefix is prepended to every environment variable
	EnvPrefix = "REDACTION_SCAN"
)

// Config holds all configuration for the redaction scanner
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Document configuration
	Directory   string
	MaxFileSize int64 // Maximum PDF file size in bytes
	TokenTTL    time.Duration
	MaxUploads  int

	// Output
	PreviewDirectory string
	Format           string

	// Application configuration
	Version    string
	ServerName string
	LogLevel   string

	// Detection thresholds
	Scale            float64
	MinCaptureWidth  float64
	MinCaptureHeight float64
	MinFillAlpha     float64
	MinImageAlpha    float64
	LayoutMinWidth   float64
	LayoutMinHeight  float64
	LayoutMaxArea    float64
	LayoutMaxSpan    float64
	DedupeEpsilon    float64
	TextHeightFloor  float64
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		// Fallback to current directory if working directory cannot be determined
		currentDir = "."
	}

	policy := analysis.DefaultPolicy()
	return &Config{
		Mode:             ModeStdio, // Default to stdio mode for MCP compatibility
		Host:             DefaultHost,
		Port:             DefaultPort,
		Directory:        currentDir,
		MaxFileSize:      DefaultMaxFileSize,
		TokenTTL:         DefaultTokenTTL,
		MaxUploads:       DefaultMaxUploads,
		Format:           string(report.FormatText),
		Version:          "1.0.0",
		ServerName:       "mcp-redaction-scanner",
		LogLevel:         DefaultLogLevel,
		Scale:            policy.Scale,
		MinCaptureWidth:  policy.Capture.MinWidth,
		MinCaptureHeight: policy.Capture.MinHeight,
		MinFillAlpha:     policy.Capture.MinFillAlpha,
		MinImageAlpha:    policy.Capture.MinImageAlpha,
		LayoutMinWidth:   policy.Capture.Layout.MinWidth,
		LayoutMinHeight:  policy.Capture.Layout.MinHeight,
		LayoutMaxArea:    policy.Capture.Layout.MaxAreaRatio,
		LayoutMaxSpan:    policy.Capture.Layout.MaxSpanRatio,
		DedupeEpsilon:    policy.DedupeEpsilon,
		TextHeightFloor:  policy.TextHeightFloor,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	// Expand paths if needed
	if cfg.Directory != "" {
		if expandedPath, err := filepath.Abs(cfg.Directory); err == nil {
			cfg.Directory = expandedPath
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	// REDACTION_SCAN_MAX_FILE_SIZE maps to max-file-size
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("dir", cfg.Directory)
	viper.SetDefault("log-level", cfg.LogLevel)
	viper.SetDefault("max-file-size", cfg.MaxFileSize)
	viper.SetDefault("token-ttl", cfg.TokenTTL)
	viper.SetDefault("max-uploads", cfg.MaxUploads)
	viper.SetDefault("preview-dir", cfg.PreviewDirectory)
	viper.SetDefault("format", cfg.Format)
	viper.SetDefault("scale", cfg.Scale)
	viper.SetDefault("min-capture-width", cfg.MinCaptureWidth)
	viper.SetDefault("min-capture-height", cfg.MinCaptureHeight)
	viper.SetDefault("min-fill-alpha", cfg.MinFillAlpha)
	viper.SetDefault("min-image-alpha", cfg.MinImageAlpha)
	viper.SetDefault("layout-min-width", cfg.LayoutMinWidth)
	viper.SetDefault("layout-min-height", cfg.LayoutMinHeight)
	viper.SetDefault("layout-max-area", cfg.LayoutMaxArea)
	viper.SetDefault("layout-max-span", cfg.LayoutMaxSpan)
	viper.SetDefault("dedupe-epsilon", cfg.DedupeEpsilon)
	viper.SetDefault("text-height-floor", cfg.TextHeightFloor)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP server")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("dir", cfg.Directory, "Directory containing PDF files that may be scanned by path")
	pflag.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("max-file-size", cfg.MaxFileSize, "Maximum PDF file size in bytes")
	pflag.Duration("token-ttl", cfg.TokenTTL, "How long an uploaded document can be claimed")
	pflag.Int("max-uploads", cfg.MaxUploads, "Maximum number of unclaimed uploads held in memory")
	pflag.String("preview-dir", cfg.PreviewDirectory, "Write PNG page previews with candidates highlighted to this directory")
	pflag.String("format", cfg.Format, "Report format (text, json, yaml)")
	pflag.Float64("scale", cfg.Scale, "Render scale applied to every page")
	pflag.Float64("min-capture-width", cfg.MinCaptureWidth, "Minimum overlay width in pixels")
	pflag.Float64("min-capture-height", cfg.MinCaptureHeight, "Minimum overlay height in pixels")
	pflag.Float64("min-fill-alpha", cfg.MinFillAlpha, "Minimum effective alpha of a filled overlay")
	pflag.Float64("min-image-alpha", cfg.MinImageAlpha, "Minimum effective alpha of an image overlay")
	pflag.Float64("layout-min-width", cfg.LayoutMinWidth, "Regions narrower than this are treated as layout")
	pflag.Float64("layout-min-height", cfg.LayoutMinHeight, "Regions shorter than this are treated as layout")
	pflag.Float64("layout-max-area", cfg.LayoutMaxArea, "Regions covering more than this share of the page are treated as layout")
	pflag.Float64("layout-max-span", cfg.LayoutMaxSpan, "Regions spanning more than this share of the page width or height are treated as layout")
	pflag.Float64("dedupe-epsilon", cfg.DedupeEpsilon, "Tolerance in pixels when merging identical regions")
	pflag.Float64("text-height-floor", cfg.TextHeightFloor, "Minimum height of a text item box in pixels")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	pflag.VisitAll(func(f *pflag.Flag) {
		_ = viper.BindPFlag(f.Name, f)
	})
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nMCP Redaction Scanner - finds cosmetic redactions whose text is still in the PDF\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                         "+
			"# stdio mode, current directory (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --dir=/path/to/pdfs                     "+
			"# stdio mode with custom directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --dir=/path/to/pdfs       # server mode\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --host=0.0.0.0 --port=8081 # server on all interfaces\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  Every option can be set as %s_<OPTION>, e.g.\n", EnvPrefix)
		fmt.Fprintf(os.Stderr, "  %s_MODE           Server mode\n", EnvPrefix)
		fmt.Fprintf(os.Stderr, "  %s_DIR            PDF directory\n", EnvPrefix)
		fmt.Fprintf(os.Stderr, "  %s_MAX_FILE_SIZE  Maximum file size\n", EnvPrefix)
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.Directory = viper.GetString("dir")
	cfg.LogLevel = viper.GetString("log-level")
	cfg.MaxFileSize = viper.GetInt64("max-file-size")
	cfg.TokenTTL = viper.GetDuration("token-ttl")
	cfg.MaxUploads = viper.GetInt("max-uploads")
	cfg.PreviewDirectory = viper.GetString("preview-dir")
	cfg.Format = viper.GetString("format")
	cfg.Scale = viper.GetFloat64("scale")
	cfg.MinCaptureWidth = viper.GetFloat64("min-capture-width")
	cfg.MinCaptureHeight = viper.GetFloat64("min-capture-height")
	cfg.MinFillAlpha = viper.GetFloat64("min-fill-alpha")
	cfg.MinImageAlpha = viper.GetFloat64("min-image-alpha")
	cfg.LayoutMinWidth = viper.GetFloat64("layout-min-width")
	cfg.LayoutMinHeight = viper.GetFloat64("layout-min-height")
	cfg.LayoutMaxArea = viper.GetFloat64("layout-max-area")
	cfg.LayoutMaxSpan = viper.GetFloat64("layout-max-span")
	cfg.DedupeEpsilon = viper.GetFloat64("dedupe-epsilon")
	cfg.TextHeightFloor = viper.GetFloat64("text-height-floor")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate mode
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	// Validate port range (only for server mode)
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	// Validate PDF directory
	if c.Directory == "" {
		return errors.New("PDF directory cannot be empty")
	}

	// Check if PDF directory exists, create if it doesn't
	if _, err := os.Stat(c.Directory); os.IsNotExist(err) {
		if err := os.MkdirAll(c.Directory, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create PDF directory %s: %w", c.Directory, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access PDF directory %s: %w", c.Directory, err)
	}

	// Validate max file size
	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}
	if c.TokenTTL <= 0 {
		return errors.New("token TTL must be positive")
	}
	if c.MaxUploads <= 0 {
		return errors.New("maximum uploads must be positive")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	if _, err := report.ParseFormat(c.Format); err != nil {
		return err
	}

	return c.validateThresholds()
}

func (c *Config) validateThresholds() error {
	if c.Scale <= 0 {
		return errors.New("scale must be positive")
	}
	for name, v := range map[string]float64{
		"min-capture-width":  c.MinCaptureWidth,
		"min-capture-height": c.MinCaptureHeight,
		"layout-min-width":   c.LayoutMinWidth,
		"layout-min-height":  c.LayoutMinHeight,
		"dedupe-epsilon":     c.DedupeEpsilon,
		"text-height-floor":  c.TextHeightFloor,
	} {
		if v < 0 {
			return fmt.Errorf("%s cannot be negative", name)
		}
	}
	for name, v := range map[string]float64{
		"min-fill-alpha":  c.MinFillAlpha,
		"min-image-alpha": c.MinImageAlpha,
		"layout-max-area": c.LayoutMaxArea,
		"layout-max-span": c.LayoutMaxSpan,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be between 0 and 1", name)
		}
	}
	return nil
}

// Policy builds the scanner thresholds from the configuration
func (c *Config) Policy() analysis.Policy {
	policy := analysis.DefaultPolicy()
	policy.Scale = c.Scale
	policy.DedupeEpsilon = c.DedupeEpsilon
	policy.TextHeightFloor = c.TextHeightFloor
	policy.Capture = capture.Policy{
		MinWidth:      c.MinCaptureWidth,
		MinHeight:     c.MinCaptureHeight,
		MinFillAlpha:  c.MinFillAlpha,
		MinImageAlpha: c.MinImageAlpha,
		Layout: geometry.LayoutPolicy{
			MinWidth:     c.LayoutMinWidth,
			MinHeight:    c.LayoutMinHeight,
			MaxAreaRatio: c.LayoutMaxArea,
			MaxSpanRatio: c.LayoutMaxSpan,
		},
	}
	return policy
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, Directory: %s, LogLevel: %s, MaxFileSize: %d, Scale: %g}",
		c.Mode, c.Host, c.Port, c.Directory, c.LogLevel, c.MaxFileSize, c.Scale)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
