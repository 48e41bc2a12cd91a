package domain_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/kmarcini/protrack/internal/domain"
)

func TestHoursFromDurationIsExact(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{15 * time.Minute, "0.25"},
		{90 * time.Minute, "1.5"},
		{8 * time.Hour, "8"},
		{0, "0"},
	}
	for _, c := range cases {
		got := domain.HoursFromDuration(c.d)
		if got.String() != c.want {
			t.Errorf("HoursFromDuration(%v) = %s, want %s", c.d, got, c.want)
		}
	}
}

func TestTimeEntryDuration(t *testing.T) {
	start := time.Date(2026, 3, 5, 9, 0, 0, 0, time.Local)
	end := start.Add(45 * time.Minute)

	running := domain.TimeEntry{Start: start}
	if !running.Running() {
		t.Error("entry without end should be running")
	}
	if _, ok := running.Duration(); ok {
		t.Error("running entry should have no duration")
	}
	if !running.Hours().IsZero() {
		t.Error("running entry should report zero hours")
	}

	done := domain.TimeEntry{Start: start, End: &end}
	d, ok := done.Duration()
	if !ok || d != 45*time.Minute {
		t.Errorf("Duration = %v (ok=%v), want 45m", d, ok)
	}
	if done.Hours().String() != "0.75" {
		t.Errorf("Hours = %s, want 0.75", done.Hours())
	}
}

func TestTimeFileUpgradesLegacyDayFile(t *testing.T) {
	legacy := []byte(`{
		"user_id": "jdoe",
		"date": "2024-03-05",
		"entries": [
			{"id": "e1", "project_id": "PRJ-1", "work_type": "Creation", "hours": 1.5, "notes": "storyboard"},
			{"id": "e2", "project_id": "PRJ-1", "work_type": "Review", "duration_minutes": 30}
		]
	}`)

	var f domain.TimeFile
	if err := json.Unmarshal(legacy, &f); err != nil {
		t.Fatalf("unmarshal legacy day file: %v", err)
	}

	if f.SchemaVersion != domain.SchemaVersion {
		t.Errorf("schema version = %d, want %d", f.SchemaVersion, domain.SchemaVersion)
	}
	if f.Month != "2024-03" {
		t.Errorf("month = %q, want 2024-03", f.Month)
	}
	if len(f.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(f.Entries))
	}

	e1 := f.Entries[0]
	if e1.UserID != "jdoe" || !e1.Manual {
		t.Errorf("legacy entry should carry the file user and be manual: %+v", e1)
	}
	if e1.WorkTypeID != "creation" {
		t.Errorf("work type = %q, want slug creation", e1.WorkTypeID)
	}
	d1, _ := e1.Duration()
	if d1 != 90*time.Minute {
		t.Errorf("duration preserved as %v, want 90m", d1)
	}
	wantStart := time.Date(2024, 3, 5, 0, 0, 0, 0, time.Local)
	if !e1.Start.Equal(wantStart) {
		t.Errorf("start anchored at %v, want midnight %v", e1.Start, wantStart)
	}

	d2, _ := f.Entries[1].Duration()
	if d2 != 30*time.Minute {
		t.Errorf("duration_minutes fallback gave %v, want 30m", d2)
	}
}

func TestTimeFileRejectsNewerSchema(t *testing.T) {
	data := []byte(`{"schema_version": 99}`)
	var f domain.TimeFile
	if err := json.Unmarshal(data, &f); !errors.Is(err, domain.ErrSchemaTooNew) {
		t.Fatalf("err = %v, want ErrSchemaTooNew", err)
	}
}

func TestMonthKeyAndFileName(t *testing.T) {
	at := time.Date(2026, 8, 24, 13, 0, 0, 0, time.Local)
	if got := domain.MonthKey(at); got != "2026-08" {
		t.Errorf("MonthKey = %q, want 2026-08", got)
	}
	if got := domain.TimeFileName("jdoe", "2026-08"); got != "jdoe_2026-08.json" {
		t.Errorf("TimeFileName = %q", got)
	}
}
