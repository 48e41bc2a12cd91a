package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/kmarcini/protrack/internal/report"
)

const (
	entrySheet   = "Time Report"
	summarySheet = "Summary"
)

// xlsxWriter emits a workbook: the entry table on one sheet and the
// aggregates on a second, so the file is directly useful without pivoting.
type xlsxWriter struct{}

func (xlsxWriter) Ext() string { return ".xlsx" }

func (xlsxWriter) Write(w io.Writer, r *report.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", entrySheet); err != nil {
		return fmt.Errorf("naming entry sheet: %w", err)
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("creating summary sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDDDDD"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	cols := make([]any, len(Columns))
	for i, c := range Columns {
		cols[i] = c
	}
	if err := f.SetSheetRow(entrySheet, "A1", &cols); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(Columns), 1)
	if err := f.SetCellStyle(entrySheet, "A1", last, header); err != nil {
		return err
	}
	for i, row := range r.Rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		hours, _ := row.Hours.Float64()
		values := []any{row.Date, row.UserID, row.ProjectID, row.ProjectName, row.WorkType, hours, row.Notes}
		if err := f.SetSheetRow(entrySheet, cell, &values); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(entrySheet, "A", "G", 18); err != nil {
		return err
	}

	if err := writeSummary(f, r, header); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, r *report.Report, header int) error {
	totalHours, _ := r.TotalHours.Float64()
	avgPerDay, _ := r.AvgHoursPerDay.Float64()

	rows := [][]any{
		{"Total Hours", totalHours},
		{"Entries", r.EntryCount},
		{"Days Active", r.DaysActive},
		{"Avg Hours / Day", avgPerDay},
	}
	if r.AvgRatio != nil {
		avgRatio, _ := r.AvgRatio.Float64()
		rows = append(rows, []any{"Avg Ratio", avgRatio})
	} else {
		rows = append(rows, []any{"Avg Ratio", "—"})
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		values := row
		if err := f.SetSheetRow(summarySheet, cell, &values); err != nil {
			return err
		}
	}

	base := len(rows) + 2
	head := []any{"Project ID", "Project Name", "Target Hours", "Hours", "Entries", "Ratio"}
	cell, _ := excelize.CoordinatesToCellName(1, base)
	if err := f.SetSheetRow(summarySheet, cell, &head); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(head), base)
	if err := f.SetCellStyle(summarySheet, cell, last, header); err != nil {
		return err
	}
	for i, p := range r.ByProject {
		target, _ := p.Target.Float64()
		hours, _ := p.Hours.Float64()
		var ratio any = "—"
		if p.Ratio != nil {
			ratio, _ = p.Ratio.Float64()
		}
		values := []any{p.ProjectID, p.ProjectName, target, hours, p.Entries, ratio}
		cell, _ := excelize.CoordinatesToCellName(1, base+1+i)
		if err := f.SetSheetRow(summarySheet, cell, &values); err != nil {
			return err
		}
	}
	return f.SetColWidth(summarySheet, "A", "F", 18)
}
