// Package export serializes reports for downstream analysis tooling. Column
// order is stable across all three formats so spreadsheets and ingest
// pipelines built against one export keep working against the others.
package export

import (
	"fmt"
	"io"

	"github.com/kmarcini/protrack/internal/report"
)

// Format identifies an export adapter.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// Columns is the shared header row for the entry table.
var Columns = []string{"Date", "User", "Project ID", "Project Name", "Work Type", "Hours", "Notes"}

// Writer serializes one report to a byte stream.
type Writer interface {
	Write(w io.Writer, r *report.Report) error
	// Ext is the conventional file extension, dot included.
	Ext() string
}

// For returns the adapter for a format name.
func For(f Format) (Writer, error) {
	switch f {
	case FormatCSV:
		return csvWriter{}, nil
	case FormatXLSX:
		return xlsxWriter{}, nil
	case FormatJSON:
		return jsonWriter{}, nil
	default:
		return nil, fmt.Errorf("unknown export format %q (valid: csv, xlsx, json)", f)
	}
}
