package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kmarcini/protrack/internal/export"
	"github.com/kmarcini/protrack/internal/repo"
	"github.com/kmarcini/protrack/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize logged time across the team",
	Long: "report reads every matching entry in the shared folder and prints\n" +
		"totals, per-project subtotals with the hours-to-target ratio, and\n" +
		"per-work-type subtotals. Use export to write the same data to a file.",
	RunE: runReport,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a report to a CSV, XLSX, or JSON file",
	RunE:  runExport,
}

func init() {
	for _, c := range []*cobra.Command{reportCmd, exportCmd} {
		c.Flags().String("from", "", "Start date (inclusive)")
		c.Flags().String("to", "", "End date (inclusive)")
		c.Flags().String("project", "", "Limit to one project id")
		c.Flags().String("work-type", "", "Limit to one work type (id or name)")
		c.Flags().String("user", "", "Limit to one user")
		c.Flags().Bool("mine", false, "Limit to your own entries")
	}
	exportCmd.Flags().String("format", "", "csv, xlsx, or json (default from config)")
	exportCmd.Flags().StringP("out", "o", "", "Output file (default time_report_<from>_to_<to>.<ext>)")

	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(exportCmd)
}

func buildReport(ctx context.Context, app *app, cmd *cobra.Command) (*report.Report, report.Filter, error) {
	var f report.Filter

	if s, _ := cmd.Flags().GetString("from"); s != "" {
		t, err := parseWhen(s)
		if err != nil {
			return nil, f, fmt.Errorf("parsing --from: %w", err)
		}
		f.From = t
	}
	if s, _ := cmd.Flags().GetString("to"); s != "" {
		t, err := parseWhen(s)
		if err != nil {
			return nil, f, fmt.Errorf("parsing --to: %w", err)
		}
		f.To = t
	}
	f.ProjectID, _ = cmd.Flags().GetString("project")
	if s, _ := cmd.Flags().GetString("work-type"); s != "" {
		id, err := resolveWorkType(app, s)
		if err != nil {
			return nil, f, err
		}
		f.WorkTypeID = id
	}
	f.UserID, _ = cmd.Flags().GetString("user")
	if mine, _ := cmd.Flags().GetBool("mine"); mine {
		f.UserID = app.user
	}

	entries, err := app.entries.List(ctx, repo.EntryFilter{
		From:       f.From,
		To:         f.To,
		ProjectID:  f.ProjectID,
		WorkTypeID: f.WorkTypeID,
		UserID:     f.UserID,
	})
	if err != nil {
		return nil, f, err
	}
	// Archived projects stay reportable; only new entries are blocked.
	projects, err := app.projects.List(repo.ProjectFilter{IncludeArchived: true})
	if err != nil {
		return nil, f, err
	}
	table, err := app.lookups.Table()
	if err != nil {
		return nil, f, err
	}

	return report.Build(entries, projects, table, f), f, nil
}

func runReport(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	r, _, err := buildReport(cmd.Context(), app, cmd)
	if err != nil {
		return err
	}
	if r.EntryCount == 0 {
		fmt.Println("No entries match.")
		return nil
	}

	fmt.Printf("Total: %sh across %d entries, %d active days (avg %sh/day)\n",
		r.TotalHours, r.EntryCount, r.DaysActive, r.AvgHoursPerDay)
	if r.AvgRatio != nil {
		fmt.Printf("Average ratio vs target: %s\n", r.AvgRatio)
	}

	fmt.Println("\nBy project:")
	for _, p := range r.ByProject {
		ratio := "     —"
		if p.Ratio != nil {
			ratio = p.Ratio.StringFixed(2)
		}
		name := p.ProjectName
		if name == "" {
			name = p.ProjectID
		}
		fmt.Printf("  %-30s %8sh  (%d entries, ratio %s)\n", name, p.Hours.StringFixed(2), p.Entries, ratio)
	}

	fmt.Println("\nBy work type:")
	for _, w := range r.ByWorkType {
		name := w.WorkTypeName
		if name == "" {
			name = w.WorkTypeID
		}
		fmt.Printf("  %-30s %8sh  (%d entries)\n", name, w.Hours.StringFixed(2), w.Entries)
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	r, f, err := buildReport(cmd.Context(), app, cmd)
	if err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("format")
	if format == "" {
		format = app.cfg.DefaultExportFormat
	}
	writer, err := export.For(export.Format(format))
	if err != nil {
		return err
	}

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = exportFileName(f, writer.Ext())
	}
	file, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("creating %s: %w", out, err)
	}
	if err := writer.Write(file, r); err != nil {
		file.Close()
		return fmt.Errorf("writing %s: %w", out, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", out, err)
	}

	fmt.Printf("Wrote %s (%d entries, %sh)\n", out, r.EntryCount, r.TotalHours)
	return nil
}

func exportFileName(f report.Filter, ext string) string {
	stamp := func(t time.Time, fallback string) string {
		if t.IsZero() {
			return fallback
		}
		return t.Format("2006-01-02")
	}
	from := stamp(f.From, "start")
	to := stamp(f.To, time.Now().Format("2006-01-02"))
	return fmt.Sprintf("time_report_%s_to_%s%s", from, to, ext)
}
