// Command redaction-scan checks local PDF files for cosmetic redactions.
//
// Exit status is 0 when nothing recoverable was found, 2 when at least one
// redaction still has text underneath it and 1 on errors.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/a3tai/mcp-redaction-scanner/internal/analysis"
	"github.com/a3tai/mcp-redaction-scanner/internal/config"
	"github.com/a3tai/mcp-redaction-scanner/internal/intake"
	"github.com/a3tai/mcp-redaction-scanner/internal/report"
	"github.com/a3tai/mcp-redaction-scanner/internal/service"
)

const (
	exitClean       = 0
	exitError       = 1
	exitRecoverable = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg := config.DefaultConfig()

	flags := pflag.NewFlagSet("redaction-scan", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVar(&cfg.Format, "format", cfg.Format, "Report format (text, json, yaml)")
	flags.StringVar(&cfg.PreviewDirectory, "preview-dir", "", "Write PNG page previews with candidates highlighted to this directory")
	flags.Int64Var(&cfg.MaxFileSize, "max-file-size", cfg.MaxFileSize, "Maximum PDF file size in bytes")
	flags.Float64Var(&cfg.Scale, "scale", cfg.Scale, "Render scale applied to every page")
	flags.Float64Var(&cfg.MinFillAlpha, "min-fill-alpha", cfg.MinFillAlpha, "Minimum effective alpha of a filled overlay")
	flags.Float64Var(&cfg.MinImageAlpha, "min-image-alpha", cfg.MinImageAlpha, "Minimum effective alpha of an image overlay")
	flags.Float64Var(&cfg.DedupeEpsilon, "dedupe-epsilon", cfg.DedupeEpsilon, "Tolerance in pixels when merging identical regions")
	verbose := flags.BoolP("verbose", "V", false, "Log scan progress to stderr")
	flags.Usage = func() {
		fmt.Fprintf(stderr, "Usage: redaction-scan [options] file.pdf [file.pdf ...]\n\nOptions:\n")
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitClean
		}
		fmt.Fprintf(stderr, "Error: %v\n\n", err)
		flags.Usage()
		return exitError
	}
	if flags.NArg() == 0 {
		fmt.Fprintf(stderr, "Error: PDF file path required\n\n")
		flags.Usage()
		return exitError
	}

	format, err := report.ParseFormat(cfg.Format)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: invalid configuration: %v\n", err)
		return exitError
	}

	svc, err := service.NewService(cfg, nil)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	logger := log.New(io.Discard, "", 0)
	if *verbose {
		logger = log.New(stderr, "", log.LstdFlags)
	}
	svc.SetLogger(logger)

	validator := intake.NewValidator(cfg.MaxFileSize)
	code := exitClean
	for _, path := range flags.Args() {
		var sink analysis.Sink
		if *verbose {
			sink = report.NewLogSink(logger, true)
		}

		data, err := validator.ReadFile(path)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %s: %v\n", path, err)
			code = exitError
			continue
		}
		r, err := svc.ScanBytes(ctx, path, data, sink)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %s: %v\n", path, err)
			code = exitError
			continue
		}

		if err := report.Write(stdout, r, format); err != nil {
			fmt.Fprintf(stderr, "Error: %s: %v\n", path, err)
			code = exitError
			continue
		}
		if r.Totals.RecoverableCount > 0 && code == exitClean {
			code = exitRecoverable
		}
	}
	return code
}
