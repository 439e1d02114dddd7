package export

import (
	"fmt"
	"strings"
)

// Format identifies an export encoding.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// ParseFormat normalises a user supplied format, defaulting to CSV.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", raw)
	}
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/csv; charset=utf-8"
}

// Sheet is a titled table. Every row must have len(Headers) cells.
type Sheet struct {
	Title   string
	Headers []string
	Rows    [][]string
	// Footer lines are printed under the table (PDF) or appended as single-cell rows (CSV).
	Footer []string
}

func (s Sheet) validate() error {
	if len(s.Headers) == 0 {
		return fmt.Errorf("sheet requires at least one header")
	}
	for i, row := range s.Rows {
		if len(row) != len(s.Headers) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(s.Headers))
		}
	}
	return nil
}

// Renderer encodes a sheet.
type Renderer interface {
	Render(sheet Sheet) ([]byte, error)
}

// RendererFor returns the renderer for a format.
func RendererFor(f Format) Renderer {
	if f == FormatPDF {
		return NewPDFRenderer()
	}
	return NewCSVRenderer()
}
