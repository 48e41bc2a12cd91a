package report_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kmarcini/protrack/internal/domain"
	"github.com/kmarcini/protrack/internal/report"
)

func entry(project, user, workType string, start time.Time, d time.Duration) domain.TimeEntry {
	end := start.Add(d)
	return domain.TimeEntry{
		ID:         project + "-" + user + "-" + start.Format("0102-1504"),
		ProjectID:  project,
		UserID:     user,
		WorkTypeID: workType,
		Start:      start,
		End:        &end,
	}
}

func project(id, name, target string) domain.Project {
	return domain.Project{
		ID:              id,
		Name:            name,
		TargetViewHours: decimal.RequireFromString(target),
	}
}

var day1 = time.Date(2026, 8, 3, 9, 0, 0, 0, time.Local)
var day2 = time.Date(2026, 8, 4, 9, 0, 0, 0, time.Local)

func TestBuildTotalsAndRatio(t *testing.T) {
	projects := []domain.Project{project("PRJ-A", "Alpha", "10")}
	entries := []domain.TimeEntry{
		entry("PRJ-A", "jdoe", "creation", day1, 4*time.Hour),
		entry("PRJ-A", "jdoe", "creation", day2, 5*time.Hour),
	}

	r := report.Build(entries, projects, domain.DefaultLookupTable(), report.Filter{})

	if r.TotalHours.String() != "9" {
		t.Errorf("TotalHours = %s, want 9", r.TotalHours)
	}
	if r.EntryCount != 2 || r.DaysActive != 2 {
		t.Errorf("EntryCount=%d DaysActive=%d, want 2 and 2", r.EntryCount, r.DaysActive)
	}
	if r.AvgHoursPerDay.String() != "4.5" {
		t.Errorf("AvgHoursPerDay = %s, want 4.5", r.AvgHoursPerDay)
	}
	if len(r.ByProject) != 1 {
		t.Fatalf("ByProject = %v", r.ByProject)
	}
	row := r.ByProject[0]
	if row.Ratio == nil || row.Ratio.String() != "0.9" {
		t.Errorf("ratio = %v, want 0.9", row.Ratio)
	}
	if r.AvgRatio == nil || r.AvgRatio.String() != "0.9" {
		t.Errorf("AvgRatio = %v, want 0.9", r.AvgRatio)
	}
}

func TestBuildZeroTargetHasNilRatio(t *testing.T) {
	projects := []domain.Project{project("PRJ-A", "Alpha", "0")}
	entries := []domain.TimeEntry{entry("PRJ-A", "jdoe", "creation", day1, time.Hour)}

	r := report.Build(entries, projects, domain.DefaultLookupTable(), report.Filter{})

	if r.ByProject[0].Ratio != nil {
		t.Errorf("ratio = %v, want nil for zero target", r.ByProject[0].Ratio)
	}
	if r.AvgRatio != nil {
		t.Errorf("AvgRatio = %v, want nil when no project has a target", r.AvgRatio)
	}
}

func TestBuildPartitionSumsEqualTotal(t *testing.T) {
	projects := []domain.Project{
		project("PRJ-A", "Alpha", "10"),
		project("PRJ-B", "Beta", "0"),
	}
	entries := []domain.TimeEntry{
		entry("PRJ-A", "jdoe", "creation", day1, 15*time.Minute),
		entry("PRJ-A", "asmith", "review", day1, 45*time.Minute),
		entry("PRJ-B", "jdoe", "creation", day2, 90*time.Minute),
		entry("PRJ-B", "jdoe", "planning", day2, 27*time.Minute),
	}

	r := report.Build(entries, projects, domain.DefaultLookupTable(), report.Filter{})

	byProject := decimal.Zero
	for _, row := range r.ByProject {
		byProject = byProject.Add(row.Hours)
	}
	if !byProject.Equal(r.TotalHours) {
		t.Errorf("project subtotals %s != total %s", byProject, r.TotalHours)
	}

	byWorkType := decimal.Zero
	for _, row := range r.ByWorkType {
		byWorkType = byWorkType.Add(row.Hours)
	}
	if !byWorkType.Equal(r.TotalHours) {
		t.Errorf("work-type subtotals %s != total %s", byWorkType, r.TotalHours)
	}

	byDay := decimal.Zero
	for _, row := range r.ByDay {
		byDay = byDay.Add(row.Hours)
	}
	if !byDay.Equal(r.TotalHours) {
		t.Errorf("day subtotals %s != total %s", byDay, r.TotalHours)
	}
}

func TestBuildExcludesRunningEntries(t *testing.T) {
	projects := []domain.Project{project("PRJ-A", "Alpha", "0")}
	running := domain.TimeEntry{
		ID: "open", ProjectID: "PRJ-A", UserID: "jdoe", WorkTypeID: "creation", Start: day1,
	}
	entries := []domain.TimeEntry{
		entry("PRJ-A", "jdoe", "creation", day1, time.Hour),
		running,
	}

	r := report.Build(entries, projects, domain.DefaultLookupTable(), report.Filter{})

	if r.EntryCount != 1 || r.TotalHours.String() != "1" {
		t.Errorf("running entry counted: count=%d total=%s", r.EntryCount, r.TotalHours)
	}
}

func TestBuildOrdering(t *testing.T) {
	projects := []domain.Project{
		project("PRJ-A", "Alpha", "0"),
		project("PRJ-B", "Beta", "0"),
		project("PRJ-C", "Gamma", "0"),
	}
	entries := []domain.TimeEntry{
		entry("PRJ-B", "jdoe", "creation", day1, 3*time.Hour),
		entry("PRJ-A", "jdoe", "creation", day2, time.Hour),
		entry("PRJ-C", "jdoe", "creation", day1, time.Hour),
	}

	r := report.Build(entries, projects, domain.DefaultLookupTable(), report.Filter{})

	// Hours descending, id breaking the tie.
	wantOrder := []string{"PRJ-B", "PRJ-A", "PRJ-C"}
	for i, want := range wantOrder {
		if r.ByProject[i].ProjectID != want {
			t.Errorf("ByProject[%d] = %s, want %s", i, r.ByProject[i].ProjectID, want)
		}
	}
	// Day buckets ascending by date.
	if len(r.ByDay) != 2 || r.ByDay[0].Date >= r.ByDay[1].Date {
		t.Errorf("ByDay not date-ordered: %v", r.ByDay)
	}
}

func TestBuildFilters(t *testing.T) {
	projects := []domain.Project{
		project("PRJ-A", "Alpha", "0"),
		project("PRJ-B", "Beta", "0"),
	}
	entries := []domain.TimeEntry{
		entry("PRJ-A", "jdoe", "creation", day1, time.Hour),
		entry("PRJ-B", "jdoe", "review", day2, time.Hour),
		entry("PRJ-A", "asmith", "creation", day2, time.Hour),
	}
	table := domain.DefaultLookupTable()

	byUser := report.Build(entries, projects, table, report.Filter{UserID: "asmith"})
	if byUser.EntryCount != 1 {
		t.Errorf("user filter matched %d entries, want 1", byUser.EntryCount)
	}

	byProject := report.Build(entries, projects, table, report.Filter{ProjectID: "PRJ-B"})
	if byProject.EntryCount != 1 || byProject.ByProject[0].ProjectID != "PRJ-B" {
		t.Errorf("project filter = %+v", byProject.ByProject)
	}

	byWorkType := report.Build(entries, projects, table, report.Filter{WorkTypeID: "review"})
	if byWorkType.EntryCount != 1 {
		t.Errorf("work-type filter matched %d entries, want 1", byWorkType.EntryCount)
	}

	byDate := report.Build(entries, projects, table, report.Filter{From: day2, To: day2})
	if byDate.EntryCount != 2 {
		t.Errorf("date filter matched %d entries, want 2", byDate.EntryCount)
	}
}

func TestBuildJoinsNamesIntoRows(t *testing.T) {
	projects := []domain.Project{project("PRJ-A", "Alpha", "0")}
	entries := []domain.TimeEntry{entry("PRJ-A", "jdoe", "creation", day1, 30*time.Minute)}

	r := report.Build(entries, projects, domain.DefaultLookupTable(), report.Filter{})

	if len(r.Rows) != 1 {
		t.Fatalf("Rows = %v", r.Rows)
	}
	row := r.Rows[0]
	if row.ProjectName != "Alpha" || row.WorkType != "Creation" {
		t.Errorf("row not joined to names: %+v", row)
	}
	if row.Date != day1.Format("2006-01-02") || row.Hours.String() != "0.5" {
		t.Errorf("row = %+v", row)
	}
}
