package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TimeEntry is a single logged unit of work. End is nil while the timer is
// running; duration is always derived from Start/End, never stored.
type TimeEntry struct {
	ID         string     `json:"id"`
	ProjectID  string     `json:"project_id"`
	UserID     string     `json:"user_id"`
	WorkTypeID string     `json:"work_type_id"`
	Start      time.Time  `json:"start"`
	End        *time.Time `json:"end"`
	Notes      string     `json:"notes,omitempty"`
	Manual     bool       `json:"manual,omitempty"`
}

// Running reports whether the entry has no end timestamp yet.
func (e TimeEntry) Running() bool { return e.End == nil }

// Duration returns the elapsed time for a completed entry. ok is false for
// running entries.
func (e TimeEntry) Duration() (d time.Duration, ok bool) {
	if e.End == nil {
		return 0, false
	}
	return e.End.Sub(e.Start), true
}

// Hours converts a completed entry's duration to decimal hours. Running
// entries report zero.
func (e TimeEntry) Hours() decimal.Decimal {
	d, ok := e.Duration()
	if !ok {
		return decimal.Zero
	}
	return HoursFromDuration(d)
}

// HoursFromDuration converts with second granularity so that partition sums
// agree with overall totals.
func HoursFromDuration(d time.Duration) decimal.Decimal {
	return decimal.New(int64(d/time.Second), 0).Div(decimal.New(3600, 0))
}

// TimeFile is one partition of time entries: one file per user per month
// under time/. Per-user partitioning means each process only ever writes its
// own user's files, which removes cross-user write contention on the shared
// folder.
type TimeFile struct {
	SchemaVersion int         `json:"schema_version"`
	UserID        string      `json:"user_id"`
	Month         string      `json:"month"` // YYYY-MM
	Entries       []TimeEntry `json:"entries"`
}

// MonthKey formats the partition key for a point in time.
func MonthKey(t time.Time) string { return t.Format("2006-01") }

// TimeFileName is the file name of a user's partition for the given month.
func TimeFileName(userID, month string) string {
	return fmt.Sprintf("%s_%s.json", userID, month)
}

// legacyTimeFile is the version 1 shape: one file per user per day, entries
// recorded as a date plus whole hours.
type legacyTimeFile struct {
	UserID  string            `json:"user_id"`
	Date    string            `json:"date"` // YYYY-MM-DD
	Entries []legacyTimeEntry `json:"entries"`
}

type legacyTimeEntry struct {
	ID              string  `json:"id"`
	ProjectID       string  `json:"project_id"`
	WorkType        string  `json:"work_type"`
	Hours           float64 `json:"hours"`
	DurationMinutes float64 `json:"duration_minutes"`
	Date            string  `json:"date"`
	Notes           string  `json:"notes"`
}

// UnmarshalJSON upgrades version 1 day files on load. Legacy entries carried
// only a date and an hour count, so the upgrade anchors them at midnight
// local time and marks them manual. Duration is preserved exactly.
func (f *TimeFile) UnmarshalJSON(data []byte) error {
	var probe struct {
		SchemaVersion int `json:"schema_version"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if probe.SchemaVersion > SchemaVersion {
		return fmt.Errorf("time file declares version %d: %w", probe.SchemaVersion, ErrSchemaTooNew)
	}

	if probe.SchemaVersion >= SchemaVersion {
		type current TimeFile
		var c current
		if err := json.Unmarshal(data, &c); err != nil {
			return err
		}
		*f = TimeFile(c)
		return nil
	}

	var legacy legacyTimeFile
	if err := json.Unmarshal(data, &legacy); err != nil {
		return err
	}
	upgraded, err := upgradeTimeFile(&legacy)
	if err != nil {
		return err
	}
	*f = *upgraded
	return nil
}

func upgradeTimeFile(legacy *legacyTimeFile) (*TimeFile, error) {
	day, err := time.ParseInLocation("2006-01-02", legacy.Date, time.Local)
	if err != nil {
		return nil, fmt.Errorf("parsing legacy day file date %q: %w", legacy.Date, err)
	}
	f := &TimeFile{
		SchemaVersion: SchemaVersion,
		UserID:        legacy.UserID,
		Month:         MonthKey(day),
	}
	for _, le := range legacy.Entries {
		d := time.Duration(le.Hours * float64(time.Hour))
		if d == 0 && le.DurationMinutes > 0 {
			d = time.Duration(le.DurationMinutes * float64(time.Minute))
		}
		entryDay := day
		if le.Date != "" && le.Date != legacy.Date {
			if t, err := time.ParseInLocation("2006-01-02", le.Date, time.Local); err == nil {
				entryDay = t
			}
		}
		end := entryDay.Add(d)
		f.Entries = append(f.Entries, TimeEntry{
			ID:         le.ID,
			ProjectID:  le.ProjectID,
			UserID:     legacy.UserID,
			WorkTypeID: Slug(le.WorkType),
			Start:      entryDay,
			End:        &end,
			Notes:      le.Notes,
			Manual:     true,
		})
	}
	return f, nil
}
