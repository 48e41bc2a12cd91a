// Package report aggregates time entries into summary statistics. Build is a
// pure function over an entry/project snapshot: once the caller has loaded
// the slices, nothing here touches storage, so one report always reflects
// one consistent view of the folder even while other machines keep writing.
package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kmarcini/protrack/internal/domain"
)

// Filter selects the entries a report covers. From/To bound the entry start
// date inclusively; zero values leave that side unbounded.
type Filter struct {
	From       time.Time
	To         time.Time
	ProjectID  string
	WorkTypeID string
	UserID     string
}

// ProjectRow is a per-project subtotal. Ratio is hours against the target
// view hours, nil when the target is zero: a ratio against no target is
// undefined, not infinite.
type ProjectRow struct {
	ProjectID   string
	ProjectName string
	Target      decimal.Decimal
	Hours       decimal.Decimal
	Entries     int
	Ratio       *decimal.Decimal
}

// WorkTypeRow is a per-work-type subtotal.
type WorkTypeRow struct {
	WorkTypeID   string
	WorkTypeName string
	Hours        decimal.Decimal
	Entries      int
}

// DayRow is a per-calendar-day bucket.
type DayRow struct {
	Date    string // YYYY-MM-DD
	Hours   decimal.Decimal
	Entries int
}

// EntryRow is one exported line, pre-joined to project and lookup names.
type EntryRow struct {
	Date        string // YYYY-MM-DD
	UserID      string
	ProjectID   string
	ProjectName string
	WorkType    string
	Hours       decimal.Decimal
	Notes       string
}

// Report is the derived, read-only aggregate. Never persisted.
type Report struct {
	Filter         Filter
	TotalHours     decimal.Decimal
	EntryCount     int
	DaysActive     int
	AvgHoursPerDay decimal.Decimal
	AvgRatio       *decimal.Decimal
	ByProject      []ProjectRow
	ByWorkType     []WorkTypeRow
	ByDay          []DayRow
	Rows           []EntryRow
}

// ratioPlaces bounds ratio and average output; subtotal hours stay exact.
const ratioPlaces = 4

// Build filters the snapshot and accumulates every aggregate. Totals come
// from a single pass over the filtered entries; day buckets are a second
// pass over the same slice, never a re-query. Running entries are skipped:
// an unfinished entry has no duration worth counting.
func Build(entries []domain.TimeEntry, projects []domain.Project, lookups *domain.LookupTable, f Filter) *Report {
	projectByID := make(map[string]domain.Project, len(projects))
	for _, p := range projects {
		projectByID[p.ID] = p
	}

	r := &Report{Filter: f, TotalHours: decimal.Zero, AvgHoursPerDay: decimal.Zero}
	var filtered []domain.TimeEntry
	// durations accumulate as integers; hours are converted once per bucket
	// so partition subtotals always sum to the overall total
	var totalDur time.Duration
	projDur := map[string]time.Duration{}
	projCount := map[string]int{}
	wtDur := map[string]time.Duration{}
	wtCount := map[string]int{}

	for _, e := range entries {
		if !matches(e, f) {
			continue
		}
		d, ok := e.Duration()
		if !ok {
			continue
		}
		filtered = append(filtered, e)
		totalDur += d
		projDur[e.ProjectID] += d
		projCount[e.ProjectID]++
		wtDur[e.WorkTypeID] += d
		wtCount[e.WorkTypeID]++
	}

	r.EntryCount = len(filtered)
	r.TotalHours = domain.HoursFromDuration(totalDur)

	for id, d := range projDur {
		row := ProjectRow{
			ProjectID: id,
			Hours:     domain.HoursFromDuration(d),
			Entries:   projCount[id],
		}
		if p, ok := projectByID[id]; ok {
			row.ProjectName = p.Name
			row.Target = p.TargetViewHours
			if p.TargetViewHours.IsPositive() {
				ratio := row.Hours.DivRound(p.TargetViewHours, ratioPlaces)
				row.Ratio = &ratio
			}
		}
		r.ByProject = append(r.ByProject, row)
	}
	sort.Slice(r.ByProject, func(i, j int) bool {
		if !r.ByProject[i].Hours.Equal(r.ByProject[j].Hours) {
			return r.ByProject[i].Hours.GreaterThan(r.ByProject[j].Hours)
		}
		return r.ByProject[i].ProjectID < r.ByProject[j].ProjectID
	})

	for id, d := range wtDur {
		row := WorkTypeRow{
			WorkTypeID: id,
			Hours:      domain.HoursFromDuration(d),
			Entries:    wtCount[id],
		}
		if lookups != nil {
			if v, ok := lookups.Find(domain.CategoryWorkTypes, id); ok {
				row.WorkTypeName = v.Name
			}
		}
		r.ByWorkType = append(r.ByWorkType, row)
	}
	sort.Slice(r.ByWorkType, func(i, j int) bool {
		if !r.ByWorkType[i].Hours.Equal(r.ByWorkType[j].Hours) {
			return r.ByWorkType[i].Hours.GreaterThan(r.ByWorkType[j].Hours)
		}
		return r.ByWorkType[i].WorkTypeID < r.ByWorkType[j].WorkTypeID
	})

	// Second pass: day buckets and export rows over the same filtered set.
	dayDur := map[string]time.Duration{}
	dayCount := map[string]int{}
	for _, e := range filtered {
		day := e.Start.Format("2006-01-02")
		d, _ := e.Duration()
		dayDur[day] += d
		dayCount[day]++

		row := EntryRow{
			Date:      day,
			UserID:    e.UserID,
			ProjectID: e.ProjectID,
			Hours:     e.Hours(),
			Notes:     e.Notes,
		}
		if p, ok := projectByID[e.ProjectID]; ok {
			row.ProjectName = p.Name
		}
		if lookups != nil {
			if v, ok := lookups.Find(domain.CategoryWorkTypes, e.WorkTypeID); ok {
				row.WorkType = v.Name
			} else {
				row.WorkType = e.WorkTypeID
			}
		} else {
			row.WorkType = e.WorkTypeID
		}
		r.Rows = append(r.Rows, row)
	}
	for day, d := range dayDur {
		r.ByDay = append(r.ByDay, DayRow{Date: day, Hours: domain.HoursFromDuration(d), Entries: dayCount[day]})
	}
	sort.Slice(r.ByDay, func(i, j int) bool { return r.ByDay[i].Date < r.ByDay[j].Date })
	sort.SliceStable(r.Rows, func(i, j int) bool { return r.Rows[i].Date < r.Rows[j].Date })

	// Days with no entries are excluded from the denominator, not counted
	// as zero.
	r.DaysActive = len(dayDur)
	if r.DaysActive > 0 {
		r.AvgHoursPerDay = r.TotalHours.DivRound(decimal.New(int64(r.DaysActive), 0), ratioPlaces)
	}

	// Average ratio across projects that have a target.
	var ratioSum decimal.Decimal
	ratioCount := 0
	for _, row := range r.ByProject {
		if row.Ratio != nil {
			ratioSum = ratioSum.Add(*row.Ratio)
			ratioCount++
		}
	}
	if ratioCount > 0 {
		avg := ratioSum.DivRound(decimal.New(int64(ratioCount), 0), ratioPlaces)
		r.AvgRatio = &avg
	}

	return r
}

func matches(e domain.TimeEntry, f Filter) bool {
	if f.ProjectID != "" && e.ProjectID != f.ProjectID {
		return false
	}
	if f.WorkTypeID != "" && e.WorkTypeID != f.WorkTypeID {
		return false
	}
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	if !f.From.IsZero() && e.Start.Before(day(f.From)) {
		return false
	}
	if !f.To.IsZero() && !e.Start.Before(day(f.To).AddDate(0, 0, 1)) {
		return false
	}
	return true
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
