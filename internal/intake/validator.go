package intake

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Validation errors
var (
	ErrEmptyDocument = errors.New("document is empty")
	ErrTooLarge      = errors.New("document too large")
	ErrNotPDF        = errors.New("not a PDF document")
)

// headerWindow is how far into the data the %PDF- marker may appear
const headerWindow = 1024

var pdfHeader = []byte("%PDF-")

// Validator checks uploads before they reach the scanner
type Validator struct {
	maxFileSize int64
}

// NewValidator creates a validator with the given size limit
func NewValidator(maxFileSize int64) *Validator {
	return &Validator{maxFileSize: maxFileSize}
}

// MaxFileSize returns the configured limit
func (v *Validator) MaxFileSize() int64 {
	return v.maxFileSize
}

// Validate checks size and header of raw bytes
func (v *Validator) Validate(data []byte) error {
	if len(data) == 0 {
		return ErrEmptyDocument
	}
	if v.maxFileSize > 0 && int64(len(data)) > v.maxFileSize {
		return fmt.Errorf("%w: %d bytes (max: %d bytes)", ErrTooLarge, len(data), v.maxFileSize)
	}

	window := data
	if len(window) > headerWindow {
		window = window[:headerWindow]
	}
	if !bytes.Contains(window, pdfHeader) {
		return fmt.Errorf("%w: missing %%PDF- header", ErrNotPDF)
	}
	return nil
}

// ReadFile validates a file on disk and returns its contents
func (v *Validator) ReadFile(filePath string) ([]byte, error) {
	if filePath == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}

	fileInfo, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("file does not exist: %s", filePath)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot access file: %w", err)
	}

	if fileInfo.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", filePath)
	}

	if !strings.HasSuffix(strings.ToLower(filePath), ".pdf") {
		return nil, fmt.Errorf("%w: %s", ErrNotPDF, filePath)
	}

	if fileInfo.Size() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, filePath)
	}

	if v.maxFileSize > 0 && fileInfo.Size() > v.maxFileSize {
		return nil, fmt.Errorf("%w: %d bytes (max: %d bytes)", ErrTooLarge, fileInfo.Size(), v.maxFileSize)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if err := v.Validate(data); err != nil {
		return nil, err
	}
	return data, nil
}
