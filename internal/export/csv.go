package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/kmarcini/protrack/internal/report"
)

// csvWriter emits the flat entry table: one line per time entry, joined to
// project and work-type names, sorted by date.
type csvWriter struct{}

func (csvWriter) Ext() string { return ".csv" }

func (csvWriter) Write(w io.Writer, r *report.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, row := range r.Rows {
		rec := []string{
			row.Date,
			row.UserID,
			row.ProjectID,
			row.ProjectName,
			row.WorkType,
			row.Hours.String(),
			row.Notes,
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
