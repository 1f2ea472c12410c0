package main

import (
	"bytes"
	"io"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/a3tai/mcp-redaction-scanner/internal/config"
)

func capturePrintVersion(t *testing.T) string {
	t.Helper()
	originalStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Failed to create pipe: %v", err)
	}
	os.Stdout = w
	defer func() { os.Stdout = originalStdout }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		printVersion()
		w.Close()
	}()

	var buf bytes.Buffer
	io.Copy(&buf, r)
	<-done
	return buf.String()
}

func TestPrintVersion(t *testing.T) {
	oldVersion, oldBuildTime, oldGitCommit := version, buildTime, gitCommit
	defer func() {
		version, buildTime, gitCommit = oldVersion, oldBuildTime, oldGitCommit
	}()

	tests := []struct {
		name      string
		version   string
		buildTime string
		gitCommit string
	}{
		{"build flags", "1.2.3", "2026-01-01_10:30:00", "abc123"},
		{"defaults", "dev", "unknown", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, buildTime, gitCommit = tt.version, tt.buildTime, tt.gitCommit
			output := capturePrintVersion(t)

			for _, expected := range []string{
				"MCP Redaction Scanner",
				"Version: " + tt.version,
				"Build Time: " + tt.buildTime,
				"Git Commit: " + tt.gitCommit,
				"Built with:",
			} {
				if !strings.Contains(output, expected) {
					t.Errorf("printVersion() output missing expected string: %s\nActual output:\n%s", expected, output)
				}
			}
		})
	}
}

func TestSetupLogging(t *testing.T) {
	originalOutput := log.Writer()
	originalFlags := log.Flags()
	defer func() {
		log.SetOutput(originalOutput)
		log.SetFlags(originalFlags)
	}()

	setupLogging(&config.Config{Mode: "stdio", LogLevel: "debug"})
	if log.Writer() != os.Stderr {
		t.Errorf("setupLogging() for stdio debug mode should set output to stderr")
	}

	setupLogging(&config.Config{Mode: "stdio", LogLevel: "info"})
	if log.Writer() != io.Discard {
		t.Errorf("setupLogging() for stdio non-debug mode should discard output")
	}

	log.SetFlags(0)
	setupLogging(&config.Config{Mode: "server", LogLevel: "info"})
	if got, want := log.Flags(), log.LstdFlags|log.Lshortfile; got != want {
		t.Errorf("setupLogging() for server mode: flags = %v, want %v", got, want)
	}
}
