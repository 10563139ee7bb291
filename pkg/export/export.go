// Package export renders console tables and documents into downloadable files.
package export

import (
	"fmt"
	"strings"
)

// Format is a supported table export format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// Dataset defines tabular export content. Each row holds one value per header.
type Dataset struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// File is a rendered export.
type File struct {
	Name        string
	ContentType string
	Content     []byte
}

// ParseFormat normalises a user supplied format, defaulting to CSV.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	case FormatPDF:
		return FormatPDF, nil
	}
	return "", fmt.Errorf("unsupported export format %q", raw)
}

// Render produces data in format, named base plus the format extension.
func Render(format Format, base string, data Dataset) (*File, error) {
	var (
		content     []byte
		contentType string
		err         error
	)
	switch format {
	case FormatCSV:
		content, err = NewCSVExporter().Render(data)
		contentType = "text/csv"
	case FormatXLSX:
		content, err = NewXLSXExporter().Render(data)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		content, err = NewPDFExporter().Render(data)
		contentType = "application/pdf"
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return &File{Name: base + "." + string(format), ContentType: contentType, Content: content}, nil
}

func validate(data Dataset) error {
	if len(data.Headers) == 0 {
		return fmt.Errorf("export requires at least one header")
	}
	for i, row := range data.Rows {
		if len(row) != len(data.Headers) {
			return fmt.Errorf("row %d has %d values, want %d", i+1, len(row), len(data.Headers))
		}
	}
	return nil
}
