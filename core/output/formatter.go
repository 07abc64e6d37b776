// Package output provides output formatting interfaces.
// This package produces human and machine-readable outputs.
package output

import (
	"encoding/json"
	"io"
	"strings"

	apperrors "matali-pricing/internal/errors"
)

// Format represents output format type
type Format string

const (
	// FormatCLI is a human-readable CLI table
	FormatCLI Format = "cli"

	// FormatJSON is machine-readable JSON
	FormatJSON Format = "json"
)

// ParseFormat parses a format name; empty means cli
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatCLI:
		return FormatCLI, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", apperrors.Newf(apperrors.TypeInput, "unknown output format %q (use cli or json)", s)
	}
}

// Formatter produces output in a specific format
type Formatter interface {
	// Format returns the format type
	Format() Format

	// Render writes v. Price results, quotes, quote lists and summaries,
	// tier tables, validation reports, services and ingestion results are supported.
	Render(w io.Writer, v any) error
}

// New returns the formatter for f
func New(f Format) (Formatter, error) {
	switch f {
	case FormatCLI, "":
		return &CLIFormatter{}, nil
	case FormatJSON:
		return &JSONFormatter{Indent: "  "}, nil
	default:
		return nil, apperrors.NotSupported("output format " + string(f))
	}
}

// JSONFormatter renders values as JSON
type JSONFormatter struct {
	Indent string
}

func (f *JSONFormatter) Format() Format {
	return FormatJSON
}

func (f *JSONFormatter) Render(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if f.Indent != "" {
		enc.SetIndent("", f.Indent)
	}
	return enc.Encode(v)
}
