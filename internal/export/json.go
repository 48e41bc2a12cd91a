package export

import (
	"encoding/json"
	"io"

	"github.com/shopspring/decimal"

	"github.com/kmarcini/protrack/internal/report"
)

// jsonWriter emits a structured document: the entry rows plus the summary
// aggregates, shaped for ingestion by analytics tooling.
type jsonWriter struct{}

func (jsonWriter) Ext() string { return ".json" }

type jsonEntry struct {
	Date        string          `json:"date"`
	User        string          `json:"user"`
	ProjectID   string          `json:"project_id"`
	ProjectName string          `json:"project_name"`
	WorkType    string          `json:"work_type"`
	Hours       decimal.Decimal `json:"hours"`
	Notes       string          `json:"notes,omitempty"`
}

type jsonProject struct {
	ProjectID   string           `json:"project_id"`
	ProjectName string           `json:"project_name"`
	TargetHours decimal.Decimal  `json:"target_view_hours"`
	Hours       decimal.Decimal  `json:"hours"`
	Entries     int              `json:"entries"`
	Ratio       *decimal.Decimal `json:"ratio"` // null when target is zero
}

type jsonWorkType struct {
	WorkType string          `json:"work_type"`
	Hours    decimal.Decimal `json:"hours"`
	Entries  int             `json:"entries"`
}

type jsonDay struct {
	Date    string          `json:"date"`
	Hours   decimal.Decimal `json:"hours"`
	Entries int             `json:"entries"`
}

type jsonReport struct {
	TotalHours     decimal.Decimal  `json:"total_hours"`
	EntryCount     int              `json:"entry_count"`
	DaysActive     int              `json:"days_active"`
	AvgHoursPerDay decimal.Decimal  `json:"avg_hours_per_day"`
	AvgRatio       *decimal.Decimal `json:"avg_ratio"`
	ByProject      []jsonProject    `json:"by_project"`
	ByWorkType     []jsonWorkType   `json:"by_work_type"`
	ByDay          []jsonDay        `json:"by_day"`
	Entries        []jsonEntry      `json:"entries"`
}

func (jsonWriter) Write(w io.Writer, r *report.Report) error {
	out := jsonReport{
		TotalHours:     r.TotalHours,
		EntryCount:     r.EntryCount,
		DaysActive:     r.DaysActive,
		AvgHoursPerDay: r.AvgHoursPerDay,
		AvgRatio:       r.AvgRatio,
		ByProject:      []jsonProject{},
		ByWorkType:     []jsonWorkType{},
		ByDay:          []jsonDay{},
		Entries:        []jsonEntry{},
	}
	for _, p := range r.ByProject {
		out.ByProject = append(out.ByProject, jsonProject{
			ProjectID:   p.ProjectID,
			ProjectName: p.ProjectName,
			TargetHours: p.Target,
			Hours:       p.Hours,
			Entries:     p.Entries,
			Ratio:       p.Ratio,
		})
	}
	for _, wt := range r.ByWorkType {
		out.ByWorkType = append(out.ByWorkType, jsonWorkType{
			WorkType: wt.WorkTypeName,
			Hours:    wt.Hours,
			Entries:  wt.Entries,
		})
	}
	for _, d := range r.ByDay {
		out.ByDay = append(out.ByDay, jsonDay{Date: d.Date, Hours: d.Hours, Entries: d.Entries})
	}
	for _, row := range r.Rows {
		out.Entries = append(out.Entries, jsonEntry{
			Date:        row.Date,
			User:        row.UserID,
			ProjectID:   row.ProjectID,
			ProjectName: row.ProjectName,
			WorkType:    row.WorkType,
			Hours:       row.Hours,
			Notes:       row.Notes,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
